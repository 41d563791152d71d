package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
)

// RecordKind says how a withdrawal record came about.
type RecordKind string

const (
	// RecordKindDose is a draw sized from a target activity.
	RecordKindDose RecordKind = "dose"
	// RecordKindVolume is a draw of a caller-measured volume.
	RecordKindVolume RecordKind = "volume"
	// RecordKindClosure finalizes a request that needed no radiotracer.
	RecordKindClosure RecordKind = "closure"
)

// WithdrawalRecord is immutable once appended. The ledger is the only
// authority on how much has left a source.
type WithdrawalRecord struct {
	ID                  snowflake.ID
	SourceID            string
	IsotopeID           string
	PatientID           string
	Kind                RecordKind
	DrawnActivity       dosedomain.Activity
	DrawnVolume         dosedomain.Milliliters
	ConcentrationAtDraw dosedomain.Concentration
	RemainingAfter      dosedomain.Activity
	Timestamp           time.Time
	SourceVersion       uint64
	TerminalID          string
	CorrelationID       string
}

// HasPatient reports whether the record is attributed to a patient.
func (r WithdrawalRecord) HasPatient() bool { return r.PatientID != "" }

// RecordRequest draws a measured volume.
type RecordRequest struct {
	SourceID    string
	PatientID   string
	DrawnVolume dosedomain.Milliliters
	At          time.Time
}

// DoseRequest draws whatever volume holds TargetActivity at At. The volume
// is computed while the source is locked.
type DoseRequest struct {
	SourceID       string
	PatientID      string
	TargetActivity dosedomain.Activity
	At             time.Time
}

// SourceStatus is a point-in-time view of a registered source.
type SourceStatus struct {
	Source            dosedomain.RadioactiveSource
	Isotope           dosedomain.Isotope
	At                time.Time
	RemainingActivity dosedomain.Activity
	RemainingVolume   dosedomain.Milliliters
	// Concentration is zero when the source is depleted.
	Concentration     dosedomain.Concentration
	WithdrawnActivity dosedomain.Activity
	WithdrawnVolume   dosedomain.Milliliters
	Draws             int
	Version           uint64
}

// Depleted reports whether nothing remains to draw.
func (s SourceStatus) Depleted() bool {
	return s.RemainingActivity.IsZero() || s.RemainingVolume <= 0
}
