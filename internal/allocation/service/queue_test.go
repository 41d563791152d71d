package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	allocationdomain "github.com/smallbiznis/radiodose/internal/allocation/domain"
	allocationmocks "github.com/smallbiznis/radiodose/internal/allocation/mocks"
	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
	"github.com/smallbiznis/radiodose/internal/dose/safety"
	isotopedomain "github.com/smallbiznis/radiodose/internal/isotope/domain"
	isotopemocks "github.com/smallbiznis/radiodose/internal/isotope/mocks"
	ledgerdomain "github.com/smallbiznis/radiodose/internal/ledger/domain"
	ledgermocks "github.com/smallbiznis/radiodose/internal/ledger/mocks"
	ledgerservice "github.com/smallbiznis/radiodose/internal/ledger/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var (
	t0  = time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	f18 = dosedomain.Isotope{
		ID:                     "f18",
		Name:                   "F-18 FDG",
		HalfLifeSeconds:        109.8 * 60,
		DoseUnit:               dosedomain.UnitMBq,
		ImagingProtocols:       map[string]string{"PET/CT Whole Body": "rest 60 min"},
		GlucoseCheckProcedures: []string{"PET/CT Whole Body"},
	}
)

func newLedger(t *testing.T) ledgerdomain.Service {
	t.Helper()
	ctrl := gomock.NewController(t)
	catalog := isotopemocks.NewMockCatalog(ctrl)
	catalog.EXPECT().Isotope(gomock.Any(), "f18").Return(f18, nil).AnyTimes()
	catalog.EXPECT().Isotope(gomock.Any(), gomock.Not("f18")).
		Return(dosedomain.Isotope{}, isotopedomain.ErrIsotopeNotFound).AnyTimes()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	ledger := ledgerservice.NewService(ledgerservice.Params{
		Log:     zaptest.NewLogger(t),
		GenID:   node,
		Catalog: catalog,
	})
	require.NoError(t, ledger.RegisterSource(context.Background(), dosedomain.RadioactiveSource{
		ID:                 "vial-1",
		IsotopeID:          "f18",
		CalibratedActivity: dosedomain.MBq(1000),
		CalibrationTime:    t0,
		VolumeML:           10,
	}))
	return ledger
}

func newQueue(t *testing.T, ledger ledgerdomain.Service, store allocationdomain.PatientQueueStore) *Queue {
	t.Helper()
	return NewService(Params{
		Log:    zaptest.NewLogger(t),
		Ledger: ledger,
		Store:  store,
	}).(*Queue)
}

func glucose(v int32) *int32 { return &v }

func walkIn(id string) allocationdomain.PatientDoseRequest {
	return allocationdomain.PatientDoseRequest{
		PatientID:        id,
		PatientName:      "Patient " + id,
		WeightKg:         70,
		DoseRatioPerKg:   3.7,
		Procedure:        "PET/CT Whole Body",
		IsotopeID:        "f18",
		BloodGlucoseMgDl: glucose(95),
	}
}

func redraw(id string, minutes uint32, doseNeeded bool) allocationdomain.PatientDoseRequest {
	req := walkIn(id)
	req.AdditionalInfo = &allocationdomain.AdditionalInfo{
		Region:           "pelvis",
		RequestedAt:      t0,
		ScheduledMinutes: minutes,
		DoseNeeded:       &doseNeeded,
	}
	return req
}

func TestAddValidatesAndRejectsDuplicates(t *testing.T) {
	q := newQueue(t, newLedger(t), nil)
	ctx := context.Background()

	require.NoError(t, q.Add(ctx, walkIn("p-1")))
	assert.ErrorIs(t, q.Add(ctx, walkIn("p-1")), allocationdomain.ErrDuplicateRequest)

	bad := walkIn("p-2")
	bad.WeightKg = 0
	assert.ErrorIs(t, q.Add(ctx, bad), dosedomain.ErrInvalidInput)

	// A closure-only re-draw does not need weight or ratio.
	closure := redraw("p-3", 10, false)
	closure.WeightKg = 0
	closure.DoseRatioPerKg = 0
	assert.NoError(t, q.Add(ctx, closure))

	assert.ErrorIs(t, q.Add(ctx, allocationdomain.PatientDoseRequest{PatientID: "  "}), dosedomain.ErrInvalidInput)
}

func TestScheduledEligibilityBoundary(t *testing.T) {
	q := newQueue(t, newLedger(t), nil)
	require.NoError(t, q.Add(context.Background(), redraw("p-1", 30, true)))
	eligibleAt := t0.Add(30 * time.Minute)

	state, err := q.State("p-1", eligibleAt.Add(-time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, allocationdomain.StatePendingScheduled, state)

	state, err = q.State("p-1", eligibleAt)
	require.NoError(t, err)
	assert.Equal(t, allocationdomain.StateEligible, state)

	state, err = q.State("p-1", eligibleAt.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, allocationdomain.StateEligible, state)
}

func TestCountdownLabel(t *testing.T) {
	q := newQueue(t, newLedger(t), nil)
	ctx := context.Background()
	require.NoError(t, q.Add(ctx, redraw("p-1", 90, true)))
	require.NoError(t, q.Add(ctx, walkIn("p-2")))

	cd, err := q.Countdown("p-1", t0)
	require.NoError(t, err)
	assert.False(t, cd.Eligible)
	assert.Equal(t, 90*time.Minute, cd.Remaining)
	assert.Equal(t, "1:30:00", cd.Label)

	// Partial seconds round up.
	cd, err = q.Countdown("p-1", t0.Add(89*time.Minute+500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "1:00", cd.Label)

	cd, err = q.Countdown("p-1", t0.Add(90*time.Minute))
	require.NoError(t, err)
	assert.True(t, cd.Eligible)

	cd, err = q.Countdown("p-1", t0.Add(90*time.Minute+time.Second))
	require.NoError(t, err)
	assert.True(t, cd.Eligible)
	assert.Zero(t, cd.Remaining)
	assert.Equal(t, allocationdomain.EligibleNowLabel, cd.Label)

	cd, err = q.Countdown("p-2", t0)
	require.NoError(t, err)
	assert.True(t, cd.Eligible)
}

func TestPendingKeepsInsertionOrder(t *testing.T) {
	q := newQueue(t, newLedger(t), nil)
	ctx := context.Background()
	for _, id := range []string{"p-3", "p-1", "p-2"} {
		require.NoError(t, q.Add(ctx, walkIn(id)))
	}
	require.NoError(t, q.Select(ctx, "p-1", t0))

	views := q.Pending(t0)
	require.Len(t, views, 3)
	assert.Equal(t, "p-3", views[0].Request.PatientID)
	assert.Equal(t, "p-1", views[1].Request.PatientID)
	assert.Equal(t, allocationdomain.StateSelected, views[1].State)
	assert.Equal(t, allocationdomain.StatePending, views[2].State)

	// Views are copies.
	*views[0].Request.BloodGlucoseMgDl = 400
	again := q.Pending(t0)
	assert.Equal(t, int32(95), *again[0].Request.BloodGlucoseMgDl)
}

func TestSelectIsIdempotentAndRespectsCountdown(t *testing.T) {
	q := newQueue(t, newLedger(t), nil)
	ctx := context.Background()
	require.NoError(t, q.Add(ctx, walkIn("p-1")))
	require.NoError(t, q.Add(ctx, redraw("p-2", 15, true)))

	require.NoError(t, q.Select(ctx, "p-1", t0))
	require.NoError(t, q.Select(ctx, "p-1", t0))
	id, ok := q.Selected()
	assert.True(t, ok)
	assert.Equal(t, "p-1", id)

	err := q.Select(ctx, "p-2", t0.Add(14*time.Minute))
	assert.ErrorIs(t, err, allocationdomain.ErrNotEligible)
	id, _ = q.Selected()
	assert.Equal(t, "p-1", id)

	require.NoError(t, q.Select(ctx, "p-2", t0.Add(15*time.Minute)))
	id, _ = q.Selected()
	assert.Equal(t, "p-2", id)

	assert.ErrorIs(t, q.Select(ctx, "ghost", t0), allocationdomain.ErrRequestNotFound)

	q.Deselect(ctx)
	_, ok = q.Selected()
	assert.False(t, ok)
}

func TestUpdateVitals(t *testing.T) {
	q := newQueue(t, newLedger(t), nil)
	ctx := context.Background()
	require.NoError(t, q.Add(ctx, walkIn("p-1")))

	weight := 80.0
	require.NoError(t, q.UpdateVitals(ctx, "p-1", allocationdomain.VitalsUpdate{WeightKg: &weight, BloodGlucoseMgDl: glucose(180)}))

	plan, err := q.Preview(ctx, "p-1", "vial-1", t0)
	require.NoError(t, err)
	assert.InDelta(t, 296, plan.Recommended.MBq(), 1e-9)
	assert.Equal(t, safety.LevelCaution, plan.Verdict.Level)

	bad := -1.0
	err = q.UpdateVitals(ctx, "p-1", allocationdomain.VitalsUpdate{WeightKg: &bad})
	assert.ErrorIs(t, err, dosedomain.ErrInvalidInput)

	plan, err = q.Preview(ctx, "p-1", "vial-1", t0)
	require.NoError(t, err)
	assert.InDelta(t, 296, plan.Recommended.MBq(), 1e-9)
}

func TestPreviewDoesNotMutate(t *testing.T) {
	ledger := newLedger(t)
	q := newQueue(t, ledger, nil)
	ctx := context.Background()
	req := walkIn("p-1")
	req.BloodGlucoseMgDl = glucose(240)
	require.NoError(t, q.Add(ctx, req))

	plan, err := q.Preview(ctx, "p-1", "", t0)
	require.NoError(t, err)
	assert.Equal(t, "vial-1", plan.SourceID)
	assert.InDelta(t, 259, plan.Recommended.MBq(), 1e-9)
	assert.InDelta(t, 2.59, float64(plan.Volume), 1e-9)
	assert.InDelta(t, 100, float64(plan.Concentration), 1e-9)
	assert.Equal(t, safety.LevelCritical, plan.Verdict.Level)
	assert.Equal(t, "rest 60 min", plan.ProtocolNote)

	assert.Empty(t, ledger.History(ctx))
	state, err := q.State("p-1", t0)
	require.NoError(t, err)
	assert.Equal(t, allocationdomain.StatePending, state)
}

func TestConfirmRequiresSelection(t *testing.T) {
	q := newQueue(t, newLedger(t), nil)
	ctx := context.Background()
	require.NoError(t, q.Add(ctx, walkIn("p-1")))

	_, err := q.ConfirmWithdrawal(ctx, "p-1", "vial-1", t0)
	assert.ErrorIs(t, err, allocationdomain.ErrNotSelected)
}

func TestConfirmDoseWithdrawal(t *testing.T) {
	ledger := newLedger(t)
	ctrl := gomock.NewController(t)
	store := allocationmocks.NewMockPatientQueueStore(ctrl)
	store.EXPECT().RemovePending(gomock.Any(), "p-1").Return(nil)

	q := newQueue(t, ledger, store)
	ctx := context.Background()
	req := walkIn("p-1")
	req.BloodGlucoseMgDl = glucose(210)
	require.NoError(t, q.Add(ctx, req))
	require.NoError(t, q.Add(ctx, walkIn("p-2")))
	require.NoError(t, q.Select(ctx, "p-1", t0))

	conf, err := q.ConfirmWithdrawal(ctx, "p-1", "vial-1", t0)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.RecordKindDose, conf.Record.Kind)
	assert.InDelta(t, 259, conf.Record.DrawnActivity.MBq(), 1e-9)
	assert.InDelta(t, 2.59, float64(conf.Record.DrawnVolume), 1e-9)
	assert.Equal(t, q.TerminalID(), conf.Record.TerminalID)
	assert.NotEmpty(t, conf.CorrelationID)
	assert.Equal(t, conf.CorrelationID, conf.Record.CorrelationID)
	// Critical glucose annotates the withdrawal but does not block it.
	assert.Equal(t, safety.LevelCritical, conf.Verdict.Level)

	state, err := q.State("p-1", t0)
	require.NoError(t, err)
	assert.Equal(t, allocationdomain.StateWithdrawn, state)
	_, ok := q.Selected()
	assert.False(t, ok)

	views := q.Pending(t0)
	require.Len(t, views, 1)
	assert.Equal(t, "p-2", views[0].Request.PatientID)

	_, err = q.ConfirmWithdrawal(ctx, "p-1", "vial-1", t0)
	assert.ErrorIs(t, err, allocationdomain.ErrAlreadyWithdrawn)
	assert.ErrorIs(t, q.Add(ctx, walkIn("p-1")), allocationdomain.ErrAlreadyWithdrawn)

	remaining, err := ledger.RemainingActivity(ctx, "vial-1", t0)
	require.NoError(t, err)
	assert.InDelta(t, 741, remaining.MBq(), 1e-9)
}

func TestRedrawWithoutDoseFlagStillDoses(t *testing.T) {
	q := newQueue(t, newLedger(t), nil)
	ctx := context.Background()

	req := walkIn("p-4")
	req.AdditionalInfo = &allocationdomain.AdditionalInfo{Region: "pelvis", RequestedAt: t0, ScheduledMinutes: 10}
	require.NoError(t, q.Add(ctx, req))
	now := t0.Add(10 * time.Minute)
	require.NoError(t, q.Select(ctx, "p-4", now))

	plan, err := q.Preview(ctx, "p-4", "vial-1", now)
	require.NoError(t, err)
	assert.True(t, plan.DoseNeeded)
	assert.False(t, plan.Recommended.IsZero())
	assert.Positive(t, float64(plan.Volume))

	// Without the flag a redraw is a dose request, so weight still matters.
	bad := walkIn("p-5")
	bad.WeightKg = 0
	bad.AdditionalInfo = &allocationdomain.AdditionalInfo{RequestedAt: t0, ScheduledMinutes: 10}
	assert.ErrorIs(t, q.Add(ctx, bad), dosedomain.ErrInvalidInput)
}

func TestConfirmClosureRecordsZeroActivity(t *testing.T) {
	ledger := newLedger(t)
	ctrl := gomock.NewController(t)
	store := allocationmocks.NewMockPatientQueueStore(ctrl)
	store.EXPECT().RemovePending(gomock.Any(), "p-9").Return(nil)

	q := newQueue(t, ledger, store)
	ctx := context.Background()
	require.NoError(t, q.Add(ctx, redraw("p-9", 20, false)))
	now := t0.Add(20 * time.Minute)
	require.NoError(t, q.Select(ctx, "p-9", now))

	plan, err := q.Preview(ctx, "p-9", "vial-1", now)
	require.NoError(t, err)
	assert.False(t, plan.DoseNeeded)
	assert.True(t, plan.Recommended.IsZero())
	assert.Zero(t, plan.Volume)

	conf, err := q.ConfirmWithdrawal(ctx, "p-9", "vial-1", now)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.RecordKindClosure, conf.Record.Kind)
	assert.Zero(t, conf.Record.DrawnVolume)
	assert.True(t, conf.Record.DrawnActivity.IsZero())
	assert.Empty(t, q.Pending(now))

	state, err := ledger.Source(ctx, "vial-1", now)
	require.NoError(t, err)
	assert.Zero(t, state.Draws)
}

func TestConfirmLogsStoreFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctrl := gomock.NewController(t)
	store := allocationmocks.NewMockPatientQueueStore(ctrl)
	store.EXPECT().RemovePending(gomock.Any(), "p-1").Return(errors.New("queue store offline"))

	q := NewService(Params{Log: zap.New(core), Ledger: newLedger(t), Store: store}).(*Queue)
	ctx := context.Background()
	require.NoError(t, q.Add(ctx, walkIn("p-1")))
	require.NoError(t, q.Select(ctx, "p-1", t0))

	_, err := q.ConfirmWithdrawal(ctx, "p-1", "vial-1", t0)
	require.NoError(t, err)

	entries := logs.FilterMessage("failed to notify patient queue store").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "p-****", entries[0].ContextMap()["patient_id"])
	assert.Empty(t, q.Pending(t0))
}

func TestConfirmFailureKeepsRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := ledgermocks.NewMockService(ctrl)
	state := dosedomain.SourceState{
		Source: dosedomain.RadioactiveSource{
			ID: "vial-1", IsotopeID: "f18", CalibratedActivity: dosedomain.MBq(1000), CalibrationTime: t0, VolumeML: 10,
		},
		Isotope: f18,
	}
	ledger.EXPECT().SourceState(gomock.Any(), "vial-1").Return(state, nil).AnyTimes()
	ledger.EXPECT().RecordDose(gomock.Any(), gomock.Any()).
		Return(ledgerdomain.WithdrawalRecord{}, dosedomain.ErrSourceBusy)

	q := newQueue(t, ledger, nil)
	ctx := context.Background()
	require.NoError(t, q.Add(ctx, walkIn("p-1")))
	require.NoError(t, q.Select(ctx, "p-1", t0))

	_, err := q.ConfirmWithdrawal(ctx, "p-1", "vial-1", t0)
	assert.ErrorIs(t, err, dosedomain.ErrSourceBusy)

	id, ok := q.Selected()
	assert.True(t, ok)
	assert.Equal(t, "p-1", id)
	assert.Len(t, q.Pending(t0), 1)

	// The in-flight marker is released so vitals can be edited again.
	weight := 75.0
	assert.NoError(t, q.UpdateVitals(ctx, "p-1", allocationdomain.VitalsUpdate{WeightKg: &weight}))
}

func TestLoadFromStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := allocationmocks.NewMockPatientQueueStore(ctrl)
	store.EXPECT().ListPending(gomock.Any()).Return([]allocationdomain.PendingPatient{
		{PatientID: "p-1", PatientName: "A", Procedure: "PET/CT Whole Body", IsotopeID: "f18", WeightKg: 70, DoseRatioPerKg: 3.7, AppointmentAt: t0},
		{PatientID: "p-bad", WeightKg: -3, DoseRatioPerKg: 3.7},
		{PatientID: "p-2", IsotopeID: "f18", WeightKg: 60, DoseRatioPerKg: 3.7, AdditionalInfo: &allocationdomain.AdditionalInfo{RequestedAt: t0, ScheduledMinutes: 5}},
	}, nil).Times(2)

	q := newQueue(t, newLedger(t), store)
	ctx := context.Background()

	added, err := q.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = q.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)

	views := q.Pending(t0)
	require.Len(t, views, 2)
	assert.Equal(t, allocationdomain.StatePendingScheduled, views[1].State)
}

func TestConcurrentTerminalsShareSource(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	const terminals = 8
	queues := make([]*Queue, terminals)
	for i := range queues {
		queues[i] = newQueue(t, ledger, nil)
		req := walkIn("p-" + string(rune('a'+i)))
		req.WeightKg = 10
		req.DoseRatioPerKg = 5
		require.NoError(t, queues[i].Add(ctx, req))
		require.NoError(t, queues[i].Select(ctx, req.PatientID, t0))
	}

	var wg sync.WaitGroup
	errs := make([]error, terminals)
	for i, q := range queues {
		wg.Add(1)
		go func(i int, q *Queue) {
			defer wg.Done()
			id, _ := q.Selected()
			for {
				_, err := q.ConfirmWithdrawal(ctx, id, "vial-1", t0)
				if dosedomain.Retryable(err) {
					runtime.Gosched()
					continue
				}
				errs[i] = err
				return
			}
		}(i, q)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	remaining, err := ledger.RemainingActivity(ctx, "vial-1", t0)
	require.NoError(t, err)
	assert.InDelta(t, 1000-terminals*50, remaining.MBq(), 1e-9)
	assert.Len(t, ledger.History(ctx), terminals)
}
