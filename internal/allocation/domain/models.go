package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
	"github.com/smallbiznis/radiodose/internal/dose/safety"
	ledgerdomain "github.com/smallbiznis/radiodose/internal/ledger/domain"
)

// State is derived on every query from the request and the caller's now.
type State string

const (
	StatePending          State = "pending"
	StatePendingScheduled State = "pending_scheduled"
	StateEligible         State = "eligible"
	StateSelected         State = "selected"
	StateWithdrawn        State = "withdrawn"
)

// EligibleNowLabel is shown once a scheduled countdown has run out.
const EligibleNowLabel = "eligible now"

// AdditionalInfo marks a scheduled re-draw request.
type AdditionalInfo struct {
	Region           string
	RequestedAt      time.Time
	ScheduledMinutes uint32
	// DoseNeeded set to false means an extra imaging pass with no new
	// radiotracer. Nil means a dose is drawn.
	DoseNeeded *bool
}

// EligibleAt is RequestedAt + ScheduledMinutes.
func (a AdditionalInfo) EligibleAt() time.Time {
	return a.RequestedAt.Add(time.Duration(a.ScheduledMinutes) * time.Minute)
}

// PatientDoseRequest is one patient waiting for dose preparation.
type PatientDoseRequest struct {
	PatientID        string
	PatientName      string
	WeightKg         float64
	DoseRatioPerKg   float64
	Procedure        string
	IsotopeID        string
	BloodGlucoseMgDl *int32
	AdditionalInfo   *AdditionalInfo
}

// Scheduled reports whether the request waits on a re-draw countdown.
func (r PatientDoseRequest) Scheduled() bool {
	return r.AdditionalInfo != nil && !r.AdditionalInfo.RequestedAt.IsZero()
}

// DoseNeeded is true unless a scheduled re-draw explicitly says otherwise.
func (r PatientDoseRequest) DoseNeeded() bool {
	if r.AdditionalInfo == nil || r.AdditionalInfo.DoseNeeded == nil {
		return true
	}
	return *r.AdditionalInfo.DoseNeeded
}

// Validate checks the request. Weight and ratio only matter when a dose
// will actually be drawn.
func (r PatientDoseRequest) Validate() error {
	if strings.TrimSpace(r.PatientID) == "" {
		return fmt.Errorf("%w: patient id is required", dosedomain.ErrInvalidInput)
	}
	if r.DoseNeeded() {
		if !finitePositive(r.WeightKg) {
			return fmt.Errorf("%w: patient %s weight must be positive, got %v", dosedomain.ErrInvalidInput, r.PatientID, r.WeightKg)
		}
		if !finitePositive(r.DoseRatioPerKg) {
			return fmt.Errorf("%w: patient %s dose ratio must be positive, got %v", dosedomain.ErrInvalidInput, r.PatientID, r.DoseRatioPerKg)
		}
	}
	if r.BloodGlucoseMgDl != nil && *r.BloodGlucoseMgDl < 0 {
		return fmt.Errorf("%w: patient %s blood glucose must not be negative", dosedomain.ErrInvalidInput, r.PatientID)
	}
	return nil
}

// Clone copies the pointer fields so callers cannot mutate queue state.
func (r PatientDoseRequest) Clone() PatientDoseRequest {
	if r.BloodGlucoseMgDl != nil {
		v := *r.BloodGlucoseMgDl
		r.BloodGlucoseMgDl = &v
	}
	if r.AdditionalInfo != nil {
		info := *r.AdditionalInfo
		if info.DoseNeeded != nil {
			v := *info.DoseNeeded
			info.DoseNeeded = &v
		}
		r.AdditionalInfo = &info
	}
	return r
}

// VitalsUpdate changes weight and/or glucose before withdrawal. Nil fields
// are left as they are.
type VitalsUpdate struct {
	WeightKg         *float64
	BloodGlucoseMgDl *int32
}

// Countdown is the derived re-draw timer.
type Countdown struct {
	Remaining time.Duration
	Eligible  bool
	Label     string
}

// PendingView is one row of the pending list.
type PendingView struct {
	Request   PatientDoseRequest
	State     State
	Countdown Countdown
}

// DosePlan is what a confirmation would do right now. Building one changes
// nothing.
type DosePlan struct {
	PatientID     string
	SourceID      string
	IsotopeID     string
	At            time.Time
	DoseNeeded    bool
	DisplayUnit   dosedomain.ActivityUnit
	Recommended   dosedomain.Activity
	Volume        dosedomain.Milliliters
	Concentration dosedomain.Concentration
	Remaining     dosedomain.Activity
	Verdict       safety.Verdict
	ProtocolNote  string
}

// Confirmation is the result of a committed withdrawal.
type Confirmation struct {
	Record        ledgerdomain.WithdrawalRecord
	Verdict       safety.Verdict
	CorrelationID string
}

// PendingPatient is the record shape supplied by the patient queue store.
type PendingPatient struct {
	PatientID        string
	PatientName      string
	Procedure        string
	IsotopeID        string
	AppointmentAt    time.Time
	WeightKg         float64
	DoseRatioPerKg   float64
	BloodGlucoseMgDl *int32
	AdditionalInfo   *AdditionalInfo
}

// Request converts a store record into a queue request.
func (p PendingPatient) Request() PatientDoseRequest {
	return PatientDoseRequest{
		PatientID:        strings.TrimSpace(p.PatientID),
		PatientName:      p.PatientName,
		WeightKg:         p.WeightKg,
		DoseRatioPerKg:   p.DoseRatioPerKg,
		Procedure:        p.Procedure,
		IsotopeID:        p.IsotopeID,
		BloodGlucoseMgDl: p.BloodGlucoseMgDl,
		AdditionalInfo:   p.AdditionalInfo,
	}.Clone()
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
