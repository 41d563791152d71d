package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	allocationdomain "github.com/smallbiznis/radiodose/internal/allocation/domain"
	"github.com/smallbiznis/radiodose/internal/dose/calculator"
	"github.com/smallbiznis/radiodose/internal/dose/decay"
	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
	"github.com/smallbiznis/radiodose/internal/dose/safety"
	ledgerdomain "github.com/smallbiznis/radiodose/internal/ledger/domain"
	obslogger "github.com/smallbiznis/radiodose/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/radiodose/internal/observability/metrics"
	"github.com/smallbiznis/radiodose/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Ledger     ledgerdomain.Service
	Gate       *safety.Gate                       `optional:"true"`
	Store      allocationdomain.PatientQueueStore `optional:"true"`
	ObsMetrics *obsmetrics.Metrics                `optional:"true"`
	Dispensing *obsmetrics.DispensingMetrics      `optional:"true"`
}

type Queue struct {
	log        *zap.Logger
	ledger     ledgerdomain.Service
	gate       *safety.Gate
	store      allocationdomain.PatientQueueStore
	obsMetrics *obsmetrics.Metrics
	dispensing *obsmetrics.DispensingMetrics
	terminalID string

	mu         sync.Mutex
	order      []string
	requests   map[string]*allocationdomain.PatientDoseRequest
	withdrawn  map[string]struct{}
	confirming map[string]struct{}
	selected   string
}

func NewService(p Params) allocationdomain.Service {
	gate := p.Gate
	if gate == nil {
		gate = safety.NewGate(safety.DefaultThresholds())
	}
	terminalID := uuid.NewString()
	return &Queue{
		log:        p.Log.Named("allocation.queue").With(zap.String("terminal_id", terminalID)),
		ledger:     p.Ledger,
		gate:       gate,
		store:      p.Store,
		obsMetrics: p.ObsMetrics,
		dispensing: p.Dispensing,
		terminalID: terminalID,
		requests:   make(map[string]*allocationdomain.PatientDoseRequest),
		withdrawn:  make(map[string]struct{}),
		confirming: make(map[string]struct{}),
	}
}

func (q *Queue) TerminalID() string { return q.terminalID }

func (q *Queue) Add(ctx context.Context, req allocationdomain.PatientDoseRequest) error {
	req = req.Clone()
	req.PatientID = strings.TrimSpace(req.PatientID)
	if err := req.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.addLocked(req)
}

func (q *Queue) addLocked(req allocationdomain.PatientDoseRequest) error {
	if _, exists := q.requests[req.PatientID]; exists {
		return fmt.Errorf("%w: %s", allocationdomain.ErrDuplicateRequest, req.PatientID)
	}
	if _, done := q.withdrawn[req.PatientID]; done {
		return fmt.Errorf("%w: %s", allocationdomain.ErrAlreadyWithdrawn, req.PatientID)
	}
	q.requests[req.PatientID] = &req
	q.order = append(q.order, req.PatientID)
	q.dispensing.SetPendingRequests(len(q.order))
	return nil
}

// Load pulls pending patients from the store and enqueues the ones not yet
// known. Invalid store records are skipped and logged.
func (q *Queue) Load(ctx context.Context) (int, error) {
	if q.store == nil {
		return 0, nil
	}
	pending, err := q.store.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	added := 0
	for _, p := range pending {
		req := p.Request()
		if err := req.Validate(); err != nil {
			q.log.Warn("skipping invalid pending patient", obslogger.Patient(req.PatientID), zap.Error(err))
			continue
		}
		if _, exists := q.requests[req.PatientID]; exists {
			continue
		}
		if _, done := q.withdrawn[req.PatientID]; done {
			continue
		}
		if err := q.addLocked(req); err != nil {
			return added, err
		}
		added++
	}
	q.log.Debug("pending patients loaded", zap.Int("received", len(pending)), zap.Int("added", added))
	return added, nil
}

func (q *Queue) UpdateVitals(ctx context.Context, patientID string, update allocationdomain.VitalsUpdate) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, err := q.lookupLocked(patientID)
	if err != nil {
		return err
	}
	if _, busy := q.confirming[req.PatientID]; busy {
		return fmt.Errorf("%w: confirmation in progress for %s", dosedomain.ErrSourceBusy, req.PatientID)
	}

	next := req.Clone()
	if update.WeightKg != nil {
		next.WeightKg = *update.WeightKg
	}
	if update.BloodGlucoseMgDl != nil {
		v := *update.BloodGlucoseMgDl
		next.BloodGlucoseMgDl = &v
	}
	if update.WeightKg != nil && !finitePositive(next.WeightKg) {
		return fmt.Errorf("%w: weight must be positive and finite, got %v", dosedomain.ErrInvalidInput, next.WeightKg)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*req = next
	return nil
}

func (q *Queue) State(patientID string, now time.Time) (allocationdomain.State, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	patientID = strings.TrimSpace(patientID)
	if _, done := q.withdrawn[patientID]; done {
		return allocationdomain.StateWithdrawn, nil
	}
	req, ok := q.requests[patientID]
	if !ok {
		return "", fmt.Errorf("%w: %s", allocationdomain.ErrRequestNotFound, patientID)
	}
	return q.stateLocked(req, now), nil
}

func (q *Queue) stateLocked(req *allocationdomain.PatientDoseRequest, now time.Time) allocationdomain.State {
	if q.selected == req.PatientID {
		return allocationdomain.StateSelected
	}
	if !req.Scheduled() {
		return allocationdomain.StatePending
	}
	if now.Before(req.AdditionalInfo.EligibleAt()) {
		return allocationdomain.StatePendingScheduled
	}
	return allocationdomain.StateEligible
}

func (q *Queue) Countdown(patientID string, now time.Time) (allocationdomain.Countdown, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, err := q.lookupLocked(patientID)
	if err != nil {
		return allocationdomain.Countdown{}, err
	}
	return countdown(*req, now), nil
}

func countdown(req allocationdomain.PatientDoseRequest, now time.Time) allocationdomain.Countdown {
	if !req.Scheduled() {
		return allocationdomain.Countdown{Eligible: true, Label: allocationdomain.EligibleNowLabel}
	}
	remaining := req.AdditionalInfo.EligibleAt().Sub(now)
	if remaining <= 0 {
		return allocationdomain.Countdown{Eligible: true, Label: allocationdomain.EligibleNowLabel}
	}
	return allocationdomain.Countdown{Remaining: remaining, Label: formatRemaining(remaining)}
}

// formatRemaining renders h:mm:ss or m:ss, rounding up so a countdown never
// reads 0:00 while still running.
func formatRemaining(d time.Duration) string {
	total := int64(math.Ceil(d.Seconds()))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func (q *Queue) Pending(now time.Time) []allocationdomain.PendingView {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]allocationdomain.PendingView, 0, len(q.order))
	for _, id := range q.order {
		req := q.requests[id]
		out = append(out, allocationdomain.PendingView{
			Request:   req.Clone(),
			State:     q.stateLocked(req, now),
			Countdown: countdown(*req, now),
		})
	}
	return out
}

func (q *Queue) Select(ctx context.Context, patientID string, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, err := q.lookupLocked(patientID)
	if err != nil {
		return err
	}
	if q.selected == req.PatientID {
		return nil
	}
	if req.Scheduled() && now.Before(req.AdditionalInfo.EligibleAt()) {
		return fmt.Errorf("%w: %s eligible at %s", allocationdomain.ErrNotEligible, req.PatientID,
			req.AdditionalInfo.EligibleAt().Format(time.RFC3339))
	}
	q.selected = req.PatientID
	return nil
}

func (q *Queue) Deselect(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.selected = ""
}

func (q *Queue) Selected() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.selected, q.selected != ""
}

func (q *Queue) Preview(ctx context.Context, patientID, sourceID string, now time.Time) (allocationdomain.DosePlan, error) {
	q.mu.Lock()
	req, err := q.lookupLocked(patientID)
	if err != nil {
		q.mu.Unlock()
		return allocationdomain.DosePlan{}, err
	}
	snapshot := req.Clone()
	q.mu.Unlock()

	sourceID, err = q.resolveSource(ctx, snapshot, sourceID, now)
	if err != nil {
		return allocationdomain.DosePlan{}, err
	}
	state, err := q.ledger.SourceState(ctx, sourceID)
	if err != nil {
		return allocationdomain.DosePlan{}, err
	}
	return q.plan(snapshot, state, now)
}

func (q *Queue) plan(req allocationdomain.PatientDoseRequest, state dosedomain.SourceState, now time.Time) (allocationdomain.DosePlan, error) {
	iso := state.Isotope
	plan := allocationdomain.DosePlan{
		PatientID:   req.PatientID,
		SourceID:    state.Source.ID,
		IsotopeID:   iso.ID,
		At:          now,
		DoseNeeded:  req.DoseNeeded(),
		DisplayUnit: iso.DoseUnit,
		Verdict:     q.gate.Evaluate(iso.RequiresGlucoseCheck(req.Procedure), req.BloodGlucoseMgDl),
	}
	plan.ProtocolNote, _ = iso.ProtocolNote(req.Procedure)

	remaining, err := decay.Remaining(state, now)
	if err != nil {
		return plan, err
	}
	plan.Remaining = remaining

	if !plan.DoseNeeded {
		if c, err := calculator.Concentration(state, now); err == nil {
			plan.Concentration = c
		}
		return plan, nil
	}

	plan.Recommended, err = calculator.RecommendedDose(req.WeightKg, req.DoseRatioPerKg, iso.DoseUnit)
	if err != nil {
		return plan, err
	}
	plan.Concentration, err = calculator.Concentration(state, now)
	if err != nil {
		return plan, err
	}
	plan.Volume, err = calculator.RequiredVolume(plan.Recommended, state, now)
	if err != nil {
		return plan, err
	}
	return plan, nil
}

// ConfirmWithdrawal commits the selected patient's withdrawal. The volume is
// computed by the ledger while it holds the source lock, so the plan seen in
// Preview is advisory and may differ if another terminal drew in between.
func (q *Queue) ConfirmWithdrawal(ctx context.Context, patientID, sourceID string, now time.Time) (allocationdomain.Confirmation, error) {
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	ctx = correlation.ContextWithTerminalID(ctx, q.terminalID)
	log := obslogger.WithContext(ctx, q.log)

	q.mu.Lock()
	req, err := q.lookupLocked(patientID)
	if err != nil {
		q.mu.Unlock()
		return allocationdomain.Confirmation{}, err
	}
	if q.selected != req.PatientID {
		q.mu.Unlock()
		return allocationdomain.Confirmation{}, fmt.Errorf("%w: %s", allocationdomain.ErrNotSelected, req.PatientID)
	}
	if _, busy := q.confirming[req.PatientID]; busy {
		q.mu.Unlock()
		return allocationdomain.Confirmation{}, fmt.Errorf("%w: confirmation already in flight for %s", dosedomain.ErrSourceBusy, req.PatientID)
	}
	q.confirming[req.PatientID] = struct{}{}
	snapshot := req.Clone()
	q.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			q.mu.Lock()
			delete(q.confirming, snapshot.PatientID)
			q.mu.Unlock()
		}
	}()

	sourceID, err = q.resolveSource(ctx, snapshot, sourceID, now)
	if err != nil {
		return allocationdomain.Confirmation{}, err
	}
	state, err := q.ledger.SourceState(ctx, sourceID)
	if err != nil {
		return allocationdomain.Confirmation{}, err
	}
	iso := state.Isotope
	verdict := q.gate.Evaluate(iso.RequiresGlucoseCheck(snapshot.Procedure), snapshot.BloodGlucoseMgDl)

	var rec ledgerdomain.WithdrawalRecord
	if snapshot.DoseNeeded() {
		target, err := calculator.RecommendedDose(snapshot.WeightKg, snapshot.DoseRatioPerKg, iso.DoseUnit)
		if err != nil {
			return allocationdomain.Confirmation{}, err
		}
		rec, err = q.ledger.RecordDose(ctx, ledgerdomain.DoseRequest{
			SourceID:       sourceID,
			PatientID:      snapshot.PatientID,
			TargetActivity: target,
			At:             now,
		})
		if err != nil {
			log.Warn("withdrawal refused", obslogger.Patient(snapshot.PatientID), zap.String("source_id", sourceID), zap.Error(err))
			return allocationdomain.Confirmation{}, err
		}
	} else {
		rec, err = q.ledger.RecordClosure(ctx, sourceID, snapshot.PatientID, now)
		if err != nil {
			return allocationdomain.Confirmation{}, err
		}
	}

	q.mu.Lock()
	q.finalizeLocked(snapshot.PatientID)
	committed = true
	pending := len(q.order)
	q.mu.Unlock()

	q.dispensing.SetPendingRequests(pending)
	q.dispensing.IncSafetyVerdict(string(verdict.Level))
	q.obsMetrics.RecordSafetyVerdict(ctx, iso.ID, string(verdict.Level))

	if !verdict.Clear() {
		log.Warn("withdrawal confirmed with safety annotation",
			obslogger.Patient(snapshot.PatientID),
			zap.String("level", string(verdict.Level)),
			zap.String("reason", verdict.Reason),
		)
	}
	log.Info("withdrawal confirmed",
		obslogger.Patient(snapshot.PatientID),
		zap.String("record_id", rec.ID.String()),
		zap.String("kind", string(rec.Kind)),
	)

	if q.store != nil {
		if err := q.store.RemovePending(ctx, snapshot.PatientID); err != nil {
			log.Error("failed to notify patient queue store", obslogger.Patient(snapshot.PatientID), zap.Error(err))
		}
	}

	return allocationdomain.Confirmation{Record: rec, Verdict: verdict, CorrelationID: cid}, nil
}

func (q *Queue) finalizeLocked(patientID string) {
	delete(q.requests, patientID)
	delete(q.confirming, patientID)
	q.withdrawn[patientID] = struct{}{}
	for i, id := range q.order {
		if id == patientID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	if q.selected == patientID {
		q.selected = ""
	}
}

// resolveSource falls back to the isotope's active source when no source id
// is given.
func (q *Queue) resolveSource(ctx context.Context, req allocationdomain.PatientDoseRequest, sourceID string, now time.Time) (string, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID != "" {
		return sourceID, nil
	}
	if strings.TrimSpace(req.IsotopeID) == "" {
		return "", fmt.Errorf("%w: no source given and patient %s has no isotope", dosedomain.ErrInvalidInput, req.PatientID)
	}
	st, err := q.ledger.ActiveSource(ctx, req.IsotopeID, now)
	if err != nil {
		return "", err
	}
	return st.Source.ID, nil
}

func (q *Queue) lookupLocked(patientID string) (*allocationdomain.PatientDoseRequest, error) {
	patientID = strings.TrimSpace(patientID)
	if _, done := q.withdrawn[patientID]; done {
		return nil, fmt.Errorf("%w: %s", allocationdomain.ErrAlreadyWithdrawn, patientID)
	}
	req, ok := q.requests[patientID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", allocationdomain.ErrRequestNotFound, patientID)
	}
	return req, nil
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
