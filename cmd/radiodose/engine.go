package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/radiodose/internal/allocation"
	allocationdomain "github.com/smallbiznis/radiodose/internal/allocation/domain"
	"github.com/smallbiznis/radiodose/internal/clock"
	"github.com/smallbiznis/radiodose/internal/config"
	"github.com/smallbiznis/radiodose/internal/dose/safety"
	"github.com/smallbiznis/radiodose/internal/isotope"
	isotopedomain "github.com/smallbiznis/radiodose/internal/isotope/domain"
	"github.com/smallbiznis/radiodose/internal/ledger"
	ledgerdomain "github.com/smallbiznis/radiodose/internal/ledger/domain"
	"github.com/smallbiznis/radiodose/internal/observability"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type engine struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Catalog isotopedomain.Catalog
	Ledger  ledgerdomain.Service
	Queue   allocationdomain.Service
	Gate    *safety.Gate
}

// withEngine assembles the engine for one command and tears it down after fn
// returns.
func withEngine(ctx context.Context, fn func(context.Context, engine) error) error {
	var e engine
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		clock.Module,
		isotope.Module,
		ledger.Module,
		allocation.Module,
		fx.Invoke(func(p engine) { e = p }),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			e.Log.Warn("engine shutdown failed", zap.Error(err))
		}
	}()

	return fn(ctx, e)
}

// parseInstant reads an RFC3339 timestamp, falling back to now when empty.
func parseInstant(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, nil
}
