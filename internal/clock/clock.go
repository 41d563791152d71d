package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies "now" to callers that sit at the edge of the engine.
// The engine itself only ever receives instants as arguments.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
