package domain

import (
	"context"
	"time"
)

// Service is the allocation queue for one dispensing terminal. Every
// time-dependent call takes the caller's now; the queue keeps no timers.
type Service interface {
	TerminalID() string

	Add(ctx context.Context, req PatientDoseRequest) error
	Load(ctx context.Context) (int, error)
	UpdateVitals(ctx context.Context, patientID string, update VitalsUpdate) error

	State(patientID string, now time.Time) (State, error)
	Countdown(patientID string, now time.Time) (Countdown, error)
	Pending(now time.Time) []PendingView

	Select(ctx context.Context, patientID string, now time.Time) error
	Deselect(ctx context.Context)
	Selected() (string, bool)

	Preview(ctx context.Context, patientID, sourceID string, now time.Time) (DosePlan, error)
	ConfirmWithdrawal(ctx context.Context, patientID, sourceID string, now time.Time) (Confirmation, error)
}
