// Package deadletter implements the sink that absorbs messages which can
// never be delivered to user code: sends to closed or overflowing
// mailboxes, and sends to a resolve-mismatched path, per §4.2/§4.3/§7.
package deadletter

import (
	"log/slog"
	"sync/atomic"

	"github.com/actorkit/kernel/internal/domain/address"
)

// Sink is the boundary the kernel routes undeliverable messages through.
// It is named in §6 only as an observability collaborator; this package
// gives it the minimal concrete home it needs (a counter plus a debug-
// level log line, per §7: "dropped to dead letters and logged at debug
// level").
type Sink interface {
	Route(target address.Address, message any, reason string)
	Count() int64
}

// Logging is the default Sink: logs every drop at debug level and keeps an
// approximate running total for introspection (§19).
type Logging struct {
	logger *slog.Logger
	total  atomic.Int64
}

func New(logger *slog.Logger) *Logging {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{logger: logger}
}

func (l *Logging) Route(target address.Address, message any, reason string) {
	l.total.Add(1)
	l.logger.Debug("dead letter",
		slog.String("target", target.String()),
		slog.String("reason", reason),
		slog.Any("message", message),
	)
}

func (l *Logging) Count() int64 { return l.total.Load() }
