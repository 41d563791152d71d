package allocation

import (
	"github.com/smallbiznis/radiodose/internal/allocation/service"
	"github.com/smallbiznis/radiodose/internal/config"
	"github.com/smallbiznis/radiodose/internal/dose/safety"
	"go.uber.org/fx"
)

var Module = fx.Module("allocation.queue",
	fx.Provide(
		NewGate,
		service.NewService,
	),
)

// NewGate builds the glucose gate from the configured thresholds.
func NewGate(cfg config.Config) *safety.Gate {
	return safety.NewGate(safety.Thresholds{
		CautionMgDl:  cfg.Glucose.CautionMgDl,
		CriticalMgDl: cfg.Glucose.CriticalMgDl,
	})
}
