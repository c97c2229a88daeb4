package cmd

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/fx"

	"github.com/actorkit/kernel/internal/adapter/clustershell"
	"github.com/actorkit/kernel/internal/adapter/pubsub"
	"github.com/actorkit/kernel/internal/config"
	"github.com/actorkit/kernel/internal/kernel/system"
	"github.com/actorkit/kernel/internal/observability/logging"
)

// ProvideLogger builds the process-wide root logger (JSON, info level), the
// same responsibility the teacher's own ProvideLogger carries in its fx
// graph. The loaded config carries no logging settings and is not read.
func ProvideLogger(loader *config.Loader) *slog.Logger {
	return logging.New(logging.Config{Level: slog.LevelInfo, JSON: true})
}

// ProvideWatermillLogger adapts the root logger for the cluster-shell
// publisher/subscriber, mirroring the teacher's ProvideWatermillLogger.
func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return logging.WatermillAdapter(logger)
}

// ProvideSettings turns the loaded, hot-reloadable config into the
// immutable system.Settings consulted at bootstrap (§4.5 step 1).
func ProvideSettings(loader *config.Loader, logger *slog.Logger) system.Settings {
	cfg := loader.Current()
	s := system.DefaultSettings(ServiceName)
	s.DefaultThroughput = cfg.MailboxThroughput
	s.DefaultBackoffBase = cfg.RestartBackoffBase
	s.DefaultBackoffCap = cfg.RestartBackoffCap
	s.ClusterShellDeadline = cfg.ClusterShellDeadline
	s.DispatcherPoolSize = cfg.DispatcherPoolSize
	s.Logger = logger
	return s
}

// ProvideOptions has no cluster dispatcher by default: clustered mode is
// opted into with the "--cluster" flag, which swaps this provider for one
// that also builds a clustershell.ClusterShell over a real AMQP publisher.
func ProvideOptions() []system.Option {
	return nil
}

func newApp(configPath string) *fx.App {
	return fx.New(
		fx.Provide(
			func() (*config.Loader, error) { return config.Load(configPath) },
			ProvideLogger,
			ProvideSettings,
			ProvideOptions,
		),
		system.Module,
	)
}

// newClusteredApp additionally wires a durable AMQP publisher through
// adapter/pubsub and adapter/clustershell, for the "--cluster" path.
func newClusteredApp(configPath, amqpURI, nodeID string) *fx.App {
	return fx.New(
		fx.Provide(
			func() (*config.Loader, error) { return config.Load(configPath) },
			ProvideLogger,
			func(logger *slog.Logger) (pubsub.Dispatcher, error) {
				pub, err := pubsub.NewDurablePublisher(amqpURI, logging.WatermillAdapter(logger))
				if err != nil {
					return nil, err
				}
				return pubsub.NewDispatcher(pub), nil
			},
			func(loader *config.Loader, logger *slog.Logger, dispatcher pubsub.Dispatcher) system.Settings {
				s := ProvideSettings(loader, logger)
				s.Clustered = true
				s.ClusterDispatcher = dispatcher
				s.NodeID = nodeID
				return s
			},
			func(dispatcher pubsub.Dispatcher, settings system.Settings) []system.Option {
				shell := clustershell.New(dispatcher, settings.NodeID, clustershell.WithDeadline(settings.ClusterShellDeadline))
				return []system.Option{system.WithClusterShell(shell)}
			},
		),
		system.Module,
	)
}
