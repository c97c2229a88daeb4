// Package logging provides the fx-injected *slog.Logger every component in
// this module logs through, plus the watermill adapter the cluster-shell
// transport needs, the same pairing cmd/fx.go wires for the teacher's own
// AMQP router.
package logging

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	otelslog "go.opentelemetry.io/contrib/bridges/otelslog"
)

// Config controls the handler chosen for the root logger.
type Config struct {
	Level      slog.Level
	JSON       bool
	OTelBridge bool // send records to the otelslog bridge instead of stdout
}

// New builds the process-wide root logger. Text output in development,
// JSON in production — following the teacher's
// own bare slog.Info/Error call sites, which make no handler assumptions.
// When cfg.OTelBridge is set, records go to the OTel Logs API instead of
// stdout, for a process that already runs a collector-backed provider.
func New(cfg Config) *slog.Logger {
	if cfg.OTelBridge {
		return slog.New(otelslog.NewHandler("actorkit-kernel"))
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// WatermillAdapter bridges the root logger into watermill's own logging
// interface, used by the cluster-shell router and publisher/subscriber.
func WatermillAdapter(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}
