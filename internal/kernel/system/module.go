package system

import (
	"context"

	"go.uber.org/fx"
)

// Module wires System's full bootstrap/shutdown into an fx.App, the same
// fx.Module/fx.Lifecycle shape the teacher's own amqp.Module uses to start
// and stop its message router.
var Module = fx.Module("actor-system",
	fx.Provide(func(settings Settings, opts []Option) (*System, error) {
		return New(settings, opts...)
	}),

	fx.Invoke(func(lc fx.Lifecycle, s *System) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				// Bootstrap already ran inside New; OnStart only marks the
				// app's own readiness gate.
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return s.Shutdown(ctx)
			},
		})
	}),
)
