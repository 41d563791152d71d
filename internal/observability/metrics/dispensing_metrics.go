package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	allocationdomain "github.com/smallbiznis/radiodose/internal/allocation/domain"
	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
	ledgerdomain "github.com/smallbiznis/radiodose/internal/ledger/domain"
)

const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
)

const (
	WithdrawalReasonSourceBusy           = "source_busy"
	WithdrawalReasonInsufficientActivity = "insufficient_activity"
	WithdrawalReasonDepletedSource       = "depleted_source"
	WithdrawalReasonInvalidInput         = "invalid_input"
	WithdrawalReasonConfiguration        = "configuration"
	WithdrawalReasonNotFound             = "not_found"
	WithdrawalReasonWorkflow             = "workflow"
	WithdrawalReasonDeadlineExceeded     = "deadline_exceeded"
	WithdrawalReasonUnknown              = "unknown"
)

const (
	KindDose    = "dose"
	KindVolume  = "volume"
	KindClosure = "closure"
)

// DispensingMetrics captures hot-lab dispensing health signals.
type DispensingMetrics struct {
	withdrawals     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	lockHold        prometheus.Observer
	safetyVerdicts  *prometheus.CounterVec
	pendingRequests prometheus.Gauge
	withdrawnByKind map[string]prometheus.Counter
}

var (
	dispensingMetricsOnce sync.Once
	dispensingMetrics     *DispensingMetrics
)

// DispensingWithConfig returns the singleton dispensing metrics registry using config labels.
func DispensingWithConfig(cfg Config) *DispensingMetrics {
	dispensingMetricsOnce.Do(func() {
		dispensingMetrics = newDispensingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return dispensingMetrics
}

// NewDispensingMetrics registers a fresh set of collectors on registerer.
func NewDispensingMetrics(registerer prometheus.Registerer, cfg Config) *DispensingMetrics {
	return newDispensingMetrics(registerer, cfg)
}

func newDispensingMetrics(registerer prometheus.Registerer, cfg Config) *DispensingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "radiodose"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	withdrawals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "radiodose_ledger_withdrawals_total",
		Help:        "Ledger records committed by kind.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "radiodose_ledger_rejections_total",
		Help:        "Withdrawals refused by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	lockHold := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "radiodose_source_lock_hold_seconds",
		Help:        "Time a source lock is held for one read-compute-append.",
		Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		ConstLabels: constLabels,
	})
	safetyVerdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "radiodose_safety_verdicts_total",
		Help:        "Glucose gate verdicts attached to dose plans.",
		ConstLabels: constLabels,
	}, []string{"level"})
	pendingRequests := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "radiodose_pending_requests",
		Help:        "Patient dose requests waiting at this terminal.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		withdrawals,
		rejections,
		lockHold,
		safetyVerdicts,
		pendingRequests,
	)

	withdrawnByKind := map[string]prometheus.Counter{
		KindDose:    withdrawals.WithLabelValues(KindDose),
		KindVolume:  withdrawals.WithLabelValues(KindVolume),
		KindClosure: withdrawals.WithLabelValues(KindClosure),
	}

	return &DispensingMetrics{
		withdrawals:     withdrawals,
		rejections:      rejections,
		lockHold:        lockHold,
		safetyVerdicts:  safetyVerdicts,
		pendingRequests: pendingRequests,
		withdrawnByKind: withdrawnByKind,
	}
}

// IncWithdrawal increments the committed counter for a record kind.
func (m *DispensingMetrics) IncWithdrawal(kind string) {
	if m == nil {
		return
	}
	if counter, ok := m.withdrawnByKind[kind]; ok {
		counter.Inc()
		return
	}
	m.withdrawals.WithLabelValues(kind).Inc()
}

// IncRejection classifies and counts a refused withdrawal.
func (m *DispensingMetrics) IncRejection(err error) {
	if m == nil || err == nil {
		return
	}
	m.rejections.WithLabelValues(ClassifyWithdrawalError(err)).Inc()
}

// ObserveLockHold records how long a source lock was held.
func (m *DispensingMetrics) ObserveLockHold(duration time.Duration) {
	if m == nil || m.lockHold == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.lockHold.Observe(duration.Seconds())
}

// IncSafetyVerdict counts a gate verdict.
func (m *DispensingMetrics) IncSafetyVerdict(level string) {
	if m == nil {
		return
	}
	if level == "" {
		level = "clear"
	}
	m.safetyVerdicts.WithLabelValues(level).Inc()
}

// SetPendingRequests updates the pending queue gauge.
func (m *DispensingMetrics) SetPendingRequests(n int) {
	if m == nil {
		return
	}
	m.pendingRequests.Set(float64(n))
}

// ClassifyWithdrawalError maps withdrawal errors to low-cardinality reasons.
func ClassifyWithdrawalError(err error) string {
	switch {
	case err == nil:
		return WithdrawalReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return WithdrawalReasonDeadlineExceeded
	case errors.Is(err, dosedomain.ErrSourceBusy):
		return WithdrawalReasonSourceBusy
	case errors.Is(err, dosedomain.ErrInsufficientActivity):
		return WithdrawalReasonInsufficientActivity
	case errors.Is(err, dosedomain.ErrDepletedSource):
		return WithdrawalReasonDepletedSource
	case errors.Is(err, dosedomain.ErrInvalidInput):
		return WithdrawalReasonInvalidInput
	case errors.Is(err, dosedomain.ErrConfiguration):
		return WithdrawalReasonConfiguration
	case errors.Is(err, ledgerdomain.ErrSourceNotFound),
		errors.Is(err, ledgerdomain.ErrIsotopeNotFound),
		errors.Is(err, allocationdomain.ErrRequestNotFound):
		return WithdrawalReasonNotFound
	case errors.Is(err, allocationdomain.ErrNotSelected),
		errors.Is(err, allocationdomain.ErrNotEligible),
		errors.Is(err, allocationdomain.ErrAlreadyWithdrawn):
		return WithdrawalReasonWorkflow
	default:
		return WithdrawalReasonUnknown
	}
}
