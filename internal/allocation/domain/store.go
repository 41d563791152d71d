package domain

import "context"

//go:generate mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

// PatientQueueStore is the external patient queue. The engine reads pending
// patients from it and tells it when a patient's withdrawal is recorded.
type PatientQueueStore interface {
	ListPending(ctx context.Context) ([]PendingPatient, error)
	RemovePending(ctx context.Context, patientID string) error
}
