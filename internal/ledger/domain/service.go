package domain

import (
	"context"
	"time"

	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

// Service is the append-only withdrawal ledger. Mutations against one source
// are serialized; a mutation that finds the source locked fails with
// dose/domain.ErrSourceBusy instead of waiting.
type Service interface {
	RegisterSource(ctx context.Context, source dosedomain.RadioactiveSource) error

	Record(ctx context.Context, req RecordRequest) (WithdrawalRecord, error)
	RecordDose(ctx context.Context, req DoseRequest) (WithdrawalRecord, error)
	RecordClosure(ctx context.Context, sourceID, patientID string, at time.Time) (WithdrawalRecord, error)

	RemainingActivity(ctx context.Context, sourceID string, at time.Time) (dosedomain.Activity, error)
	Concentration(ctx context.Context, sourceID string, at time.Time) (dosedomain.Concentration, error)
	Source(ctx context.Context, sourceID string, at time.Time) (SourceStatus, error)
	SourceState(ctx context.Context, sourceID string) (dosedomain.SourceState, error)
	ActiveSource(ctx context.Context, isotopeID string, at time.Time) (SourceStatus, error)
	Sources(ctx context.Context, at time.Time) ([]SourceStatus, error)

	History(ctx context.Context) []WithdrawalRecord
	HistoryBySource(ctx context.Context, sourceID string) []WithdrawalRecord
	HistoryByPatient(ctx context.Context, patientID string) []WithdrawalRecord
}
