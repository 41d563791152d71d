package ledger

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/radiodose/internal/config"
	"github.com/smallbiznis/radiodose/internal/ledger/service"
	"github.com/smallbiznis/radiodose/internal/lock"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(
		NewIDGenerator,
		lock.NewLocker,
		service.NewService,
	),
)

// NewIDGenerator returns the snowflake node for withdrawal record IDs.
func NewIDGenerator(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.TerminalNodeID)
}
