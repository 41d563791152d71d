package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/radiodose/internal/clock"
	"github.com/smallbiznis/radiodose/internal/dose/calculator"
	"github.com/smallbiznis/radiodose/internal/dose/decay"
	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
	isotopedomain "github.com/smallbiznis/radiodose/internal/isotope/domain"
	ledgerdomain "github.com/smallbiznis/radiodose/internal/ledger/domain"
	"github.com/smallbiznis/radiodose/internal/lock"
	obslogger "github.com/smallbiznis/radiodose/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/radiodose/internal/observability/metrics"
	"github.com/smallbiznis/radiodose/internal/observability/tracing"
	"github.com/smallbiznis/radiodose/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Catalog    isotopedomain.Catalog
	Clock      clock.Clock                   `optional:"true"`
	Locker     *lock.Locker                  `optional:"true"`
	ObsMetrics *obsmetrics.Metrics           `optional:"true"`
	Dispensing *obsmetrics.DispensingMetrics `optional:"true"`
	Tracer     trace.TracerProvider          `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	catalog    isotopedomain.Catalog
	clock      clock.Clock
	locker     *lock.Locker
	obsMetrics *obsmetrics.Metrics
	dispensing *obsmetrics.DispensingMetrics
	tracer     trace.Tracer

	mu      sync.RWMutex
	sources map[string]*sourceEntry
	order   []string
	records []ledgerdomain.WithdrawalRecord
}

type sourceEntry struct {
	state   dosedomain.SourceState
	version uint64
	lastAt  time.Time
}

// mutation is what a locked operation wants appended. A nil draw leaves the
// source untouched and only appends the record.
type mutation struct {
	record ledgerdomain.WithdrawalRecord
	draw   *dosedomain.Draw
}

func NewService(p Params) ledgerdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	locker := p.Locker
	if locker == nil {
		locker = lock.NewLocker()
	}
	tp := p.Tracer
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Service{
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		catalog:    p.Catalog,
		clock:      clk,
		locker:     locker,
		obsMetrics: p.ObsMetrics,
		dispensing: p.Dispensing,
		tracer:     tp.Tracer("radiodose/ledger"),
		sources:    make(map[string]*sourceEntry),
	}
}

func (s *Service) RegisterSource(ctx context.Context, source dosedomain.RadioactiveSource) error {
	source.ID = strings.TrimSpace(source.ID)
	source.IsotopeID = strings.TrimSpace(source.IsotopeID)
	if err := source.Validate(); err != nil {
		return err
	}

	iso, err := s.catalog.Isotope(ctx, source.IsotopeID)
	if err != nil {
		return err
	}
	if err := iso.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sources[source.ID]; exists {
		return fmt.Errorf("%w: %s", ledgerdomain.ErrDuplicateSource, source.ID)
	}
	s.sources[source.ID] = &sourceEntry{
		state: dosedomain.SourceState{Source: source, Isotope: iso},
	}
	s.order = append(s.order, source.ID)

	s.obsMetrics.RecordSourceRegistered(ctx, iso.ID)
	obslogger.WithSource(s.log, source.ID, iso.ID).Info("source registered",
		zap.Float64("calibrated_mbq", source.CalibratedActivity.MBq()),
		zap.Time("calibration_time", source.CalibrationTime),
		zap.Float64("volume_ml", float64(source.VolumeML)),
	)
	return nil
}

func (s *Service) Record(ctx context.Context, req ledgerdomain.RecordRequest) (ledgerdomain.WithdrawalRecord, error) {
	return s.mutate(ctx, "record", req.SourceID, req.At, func(state dosedomain.SourceState) (mutation, error) {
		remaining, err := decay.Remaining(state, req.At)
		if err != nil {
			return mutation{}, err
		}
		activity, c, err := calculator.ActivityForVolume(req.DrawnVolume, state, req.At)
		if err != nil {
			return mutation{}, err
		}
		return drawMutation(state, req.PatientID, ledgerdomain.RecordKindVolume, activity, req.DrawnVolume, c, remaining, req.At), nil
	})
}

func (s *Service) RecordDose(ctx context.Context, req ledgerdomain.DoseRequest) (ledgerdomain.WithdrawalRecord, error) {
	return s.mutate(ctx, "record_dose", req.SourceID, req.At, func(state dosedomain.SourceState) (mutation, error) {
		volume, err := calculator.RequiredVolume(req.TargetActivity, state, req.At)
		if err != nil {
			return mutation{}, err
		}
		remaining, err := decay.Remaining(state, req.At)
		if err != nil {
			return mutation{}, err
		}
		c, err := calculator.Concentration(state, req.At)
		if err != nil {
			return mutation{}, err
		}
		return drawMutation(state, req.PatientID, ledgerdomain.RecordKindDose, req.TargetActivity, volume, c, remaining, req.At), nil
	})
}

func (s *Service) RecordClosure(ctx context.Context, sourceID, patientID string, at time.Time) (ledgerdomain.WithdrawalRecord, error) {
	return s.mutate(ctx, "record_closure", sourceID, at, func(state dosedomain.SourceState) (mutation, error) {
		remaining, err := decay.Remaining(state, at)
		if err != nil {
			return mutation{}, err
		}
		c, err := calculator.Concentration(state, at)
		if err != nil && !errors.Is(err, dosedomain.ErrDepletedSource) {
			return mutation{}, err
		}
		return mutation{record: ledgerdomain.WithdrawalRecord{
			SourceID:            state.Source.ID,
			IsotopeID:           state.Isotope.ID,
			PatientID:           strings.TrimSpace(patientID),
			Kind:                ledgerdomain.RecordKindClosure,
			ConcentrationAtDraw: c,
			RemainingAfter:      remaining,
			Timestamp:           at,
		}}, nil
	})
}

func drawMutation(
	state dosedomain.SourceState,
	patientID string,
	kind ledgerdomain.RecordKind,
	activity dosedomain.Activity,
	volume dosedomain.Milliliters,
	c dosedomain.Concentration,
	remaining dosedomain.Activity,
	at time.Time,
) mutation {
	return mutation{
		record: ledgerdomain.WithdrawalRecord{
			SourceID:            state.Source.ID,
			IsotopeID:           state.Isotope.ID,
			PatientID:           strings.TrimSpace(patientID),
			Kind:                kind,
			DrawnActivity:       activity,
			DrawnVolume:         volume,
			ConcentrationAtDraw: c,
			RemainingAfter:      dosedomain.MBq(remaining.MBq() - activity.MBq()),
			Timestamp:           at,
		},
		draw: &dosedomain.Draw{Activity: activity, Volume: volume, At: at},
	}
}

// mutate runs apply against a private copy of the source while holding the
// source lock, then commits the result. Readers never observe a half-applied
// withdrawal.
func (s *Service) mutate(
	ctx context.Context,
	op string,
	sourceID string,
	at time.Time,
	apply func(state dosedomain.SourceState) (mutation, error),
) (rec ledgerdomain.WithdrawalRecord, err error) {
	sourceID = strings.TrimSpace(sourceID)
	ctx, span := s.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attribute.String("source_id", sourceID)))
	defer func() {
		if err != nil {
			tracing.RecordError(span, err)
			s.dispensing.IncRejection(err)
		}
		span.End()
	}()

	if sourceID == "" {
		return rec, fmt.Errorf("%w: source id is required", dosedomain.ErrInvalidInput)
	}
	if at.IsZero() {
		return rec, fmt.Errorf("%w: withdrawal time is required", dosedomain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	token, ok, err := s.locker.TryLock(sourceID)
	if err != nil {
		return rec, fmt.Errorf("%w: %v", dosedomain.ErrInvalidInput, err)
	}
	if !ok {
		return rec, fmt.Errorf("%w: %s", dosedomain.ErrSourceBusy, sourceID)
	}
	acquired := s.clock.Now()
	defer func() {
		s.dispensing.ObserveLockHold(s.clock.Now().Sub(acquired))
		if relErr := s.locker.Release(sourceID, token); relErr != nil {
			s.log.Error("failed to release source lock", zap.String("source_id", sourceID), zap.Error(relErr))
		}
	}()

	state, version, lastAt, err := s.snapshot(sourceID)
	if err != nil {
		return rec, err
	}
	if at.Before(lastAt) {
		return rec, fmt.Errorf("%w: withdrawal at %s precedes the last record on %s at %s",
			dosedomain.ErrInvalidInput, at.Format(time.RFC3339), sourceID, lastAt.Format(time.RFC3339))
	}

	m, err := apply(state)
	if err != nil {
		return rec, err
	}
	if err := checkWithdrawnTotal(state, m.draw); err != nil {
		return rec, err
	}

	m.record.ID = s.genID.Generate()
	m.record.TerminalID = correlation.ExtractTerminalID(ctx)
	m.record.CorrelationID = correlation.ExtractCorrelationID(ctx)

	rec, err = s.commit(sourceID, version, m)
	if err != nil {
		return rec, err
	}

	span.SetAttributes(
		attribute.String("record_id", rec.ID.String()),
		attribute.String("kind", string(rec.Kind)),
		attribute.Int64("source_version", int64(rec.SourceVersion)),
	)
	s.dispensing.IncWithdrawal(string(rec.Kind))
	s.obsMetrics.RecordWithdrawal(ctx, rec.IsotopeID, string(rec.Kind), rec.DrawnActivity.MBq())
	obslogger.WithContext(ctx, obslogger.WithSource(s.log, rec.SourceID, rec.IsotopeID)).Info("withdrawal recorded",
		zap.String("record_id", rec.ID.String()),
		zap.String("kind", string(rec.Kind)),
		obslogger.Patient(rec.PatientID),
		zap.Float64("drawn_mbq", rec.DrawnActivity.MBq()),
		zap.Float64("drawn_ml", float64(rec.DrawnVolume)),
		zap.Float64("remaining_mbq", rec.RemainingAfter.MBq()),
		zap.Uint64("source_version", rec.SourceVersion),
	)
	return rec, nil
}

// withdrawnTolerance absorbs float noise when a draw empties the source
// exactly at its calibration instant.
const withdrawnTolerance = 1e-9

// checkWithdrawnTotal keeps the running withdrawn activity at or below the
// calibrated activity. Draws measured before the calibration instant carry
// more activity than was calibrated and are the usual way to breach it.
func checkWithdrawnTotal(state dosedomain.SourceState, draw *dosedomain.Draw) error {
	if draw == nil {
		return nil
	}
	calibrated := state.Source.CalibratedActivity
	total := state.WithdrawnActivity().Add(draw.Activity)
	if total.MBq() > calibrated.MBq()*(1+withdrawnTolerance) {
		return fmt.Errorf("%w: withdrawing %s would bring %s to %s withdrawn against %s calibrated",
			dosedomain.ErrInsufficientActivity, draw.Activity, state.Source.ID, total, calibrated)
	}
	return nil
}

func (s *Service) snapshot(sourceID string) (dosedomain.SourceState, uint64, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sources[sourceID]
	if !ok {
		return dosedomain.SourceState{}, 0, time.Time{}, fmt.Errorf("%w: %s", ledgerdomain.ErrSourceNotFound, sourceID)
	}
	return entry.state.Clone(), entry.version, entry.lastAt, nil
}

func (s *Service) commit(sourceID string, version uint64, m mutation) (ledgerdomain.WithdrawalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sources[sourceID]
	if !ok {
		return ledgerdomain.WithdrawalRecord{}, fmt.Errorf("%w: %s", ledgerdomain.ErrSourceNotFound, sourceID)
	}
	if entry.version != version {
		// Only possible if the lock was bypassed.
		return ledgerdomain.WithdrawalRecord{}, fmt.Errorf("%w: %s changed during withdrawal", dosedomain.ErrSourceBusy, sourceID)
	}

	if m.draw != nil {
		entry.state.Draws = append(entry.state.Draws, *m.draw)
		entry.version++
	}
	entry.lastAt = m.record.Timestamp
	m.record.SourceVersion = entry.version
	s.records = append(s.records, m.record)
	return m.record, nil
}

func (s *Service) RemainingActivity(ctx context.Context, sourceID string, at time.Time) (dosedomain.Activity, error) {
	state, _, _, err := s.snapshot(strings.TrimSpace(sourceID))
	if err != nil {
		return dosedomain.Activity{}, err
	}
	return decay.Remaining(state, at)
}

func (s *Service) Concentration(ctx context.Context, sourceID string, at time.Time) (dosedomain.Concentration, error) {
	state, _, _, err := s.snapshot(strings.TrimSpace(sourceID))
	if err != nil {
		return 0, err
	}
	return calculator.Concentration(state, at)
}

func (s *Service) SourceState(ctx context.Context, sourceID string) (dosedomain.SourceState, error) {
	state, _, _, err := s.snapshot(strings.TrimSpace(sourceID))
	return state, err
}

func (s *Service) Source(ctx context.Context, sourceID string, at time.Time) (ledgerdomain.SourceStatus, error) {
	state, version, _, err := s.snapshot(strings.TrimSpace(sourceID))
	if err != nil {
		return ledgerdomain.SourceStatus{}, err
	}
	return status(state, version, at)
}

func (s *Service) Sources(ctx context.Context, at time.Time) ([]ledgerdomain.SourceStatus, error) {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	out := make([]ledgerdomain.SourceStatus, 0, len(ids))
	for _, id := range ids {
		st, err := s.Source(ctx, id, at)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// ActiveSource returns the most recently registered source of the isotope
// that still holds activity at the given instant.
func (s *Service) ActiveSource(ctx context.Context, isotopeID string, at time.Time) (ledgerdomain.SourceStatus, error) {
	isotopeID = strings.TrimSpace(isotopeID)
	all, err := s.Sources(ctx, at)
	if err != nil {
		return ledgerdomain.SourceStatus{}, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Isotope.ID == isotopeID && !all[i].Depleted() {
			return all[i], nil
		}
	}
	return ledgerdomain.SourceStatus{}, fmt.Errorf("%w: no active source for isotope %s", ledgerdomain.ErrSourceNotFound, isotopeID)
}

func status(state dosedomain.SourceState, version uint64, at time.Time) (ledgerdomain.SourceStatus, error) {
	remaining, err := decay.Remaining(state, at)
	if err != nil {
		return ledgerdomain.SourceStatus{}, err
	}
	st := ledgerdomain.SourceStatus{
		Source:            state.Source,
		Isotope:           state.Isotope,
		At:                at,
		RemainingActivity: remaining,
		RemainingVolume:   state.RemainingVolume(),
		WithdrawnActivity: state.WithdrawnActivity(),
		WithdrawnVolume:   state.WithdrawnVolume(),
		Draws:             len(state.Draws),
		Version:           version,
	}
	if !st.Depleted() {
		st.Concentration = dosedomain.ConcentrationOf(remaining, st.RemainingVolume)
	}
	return st, nil
}

func (s *Service) History(ctx context.Context) []ledgerdomain.WithdrawalRecord {
	return s.filter(func(ledgerdomain.WithdrawalRecord) bool { return true })
}

func (s *Service) HistoryBySource(ctx context.Context, sourceID string) []ledgerdomain.WithdrawalRecord {
	sourceID = strings.TrimSpace(sourceID)
	return s.filter(func(r ledgerdomain.WithdrawalRecord) bool { return r.SourceID == sourceID })
}

func (s *Service) HistoryByPatient(ctx context.Context, patientID string) []ledgerdomain.WithdrawalRecord {
	patientID = strings.TrimSpace(patientID)
	return s.filter(func(r ledgerdomain.WithdrawalRecord) bool { return r.PatientID != "" && r.PatientID == patientID })
}

func (s *Service) filter(keep func(ledgerdomain.WithdrawalRecord) bool) []ledgerdomain.WithdrawalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledgerdomain.WithdrawalRecord, 0, len(s.records))
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
