package system

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/actorkit/kernel/internal/adapter/clustershell"
	"github.com/actorkit/kernel/internal/adapter/pubsub"
	"github.com/actorkit/kernel/internal/observability/metrics"
)

// Settings is the immutable configuration consulted during bootstrap step 1
// (§4.5: "validate settings; install crash-backtrace hook if configured").
// Once a System is constructed, Settings never changes for its lifetime.
// config.Loader re-reads its file on change, but a running System does not
// consult the loader again after bootstrap.
type Settings struct {
	Name string

	DispatcherPoolSize  int
	DispatcherQueueSize int
	DefaultThroughput   int

	DefaultBackoffBase time.Duration
	DefaultBackoffCap  time.Duration

	// ShutdownDrainTimeout bounds how long stopAll/dispatcher shutdown
	// wait before giving up, per §4.5 step 3/§5.
	ShutdownDrainTimeout time.Duration

	// Clustered enables the remote-capable wrapping named in §4.5 step 5
	// and the cluster-shell unbind step of shutdown. Kept false by default
	// since cross-node transport is a Non-goal; when true, Dispatcher is
	// exercised purely as a local boundary collaborator.
	Clustered bool
	ClusterShellDeadline time.Duration
	ClusterDispatcher    pubsub.Dispatcher
	NodeID               string

	Logger    *slog.Logger
	Recorder  *metrics.Recorder

	// CrashBacktraceHook, when non-nil, is validated with the other
	// settings in bootstrap step 1, installed into the dispatcher pool in
	// step 2, and invoked with the recovered value for any panic a
	// dispatcher worker catches outside the ordinary Failure-signal path.
	CrashBacktraceHook func(any)
}

// DefaultSettings returns a Settings populated with the same constants used
// elsewhere as package defaults (mailbox.go's defaultThroughput,
// clustershell.DefaultUnbindDeadline).
func DefaultSettings(name string) Settings {
	return Settings{
		Name:                 name,
		DispatcherPoolSize:   8,
		DispatcherQueueSize:  1024,
		DefaultThroughput:    100,
		DefaultBackoffBase:   10 * time.Millisecond,
		DefaultBackoffCap:    2 * time.Second,
		ShutdownDrainTimeout: 5 * time.Second,
		ClusterShellDeadline: clustershell.DefaultUnbindDeadline,
		Logger:               slog.Default(),
	}
}

// Validate implements §4.5 bootstrap step 1.
func (s Settings) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("system settings: name is required")
	}
	if s.DispatcherPoolSize <= 0 {
		return fmt.Errorf("system settings: dispatcher pool size must be positive")
	}
	if s.Clustered && s.ClusterDispatcher == nil {
		return fmt.Errorf("system settings: clustered systems require a cluster dispatcher")
	}
	return nil
}
