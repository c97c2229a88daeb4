// Package config loads and hot-reloads the kernel's tunables: mailbox
// throughput and default backoff. Dispatcher pool sizing is intentionally
// excluded from hot-reload (§12: "a pool's goroutines are fixed at
// bootstrap; changing N means restarting the process"). Built on
// spf13/viper + fsnotify, the stack the teacher's own go.mod already
// requires for configuration.
package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings is the live, reloadable configuration surface.
type Settings struct {
	// MailboxThroughput is the default per-activation message budget
	// (§4.2), overridable per Props.
	MailboxThroughput int `mapstructure:"mailbox_throughput"`

	// DefaultMailboxCapacity is loaded (0 meaning unbounded) but not passed
	// on to system.Settings; spawns take their capacity from Props only.
	DefaultMailboxCapacity int `mapstructure:"default_mailbox_capacity"`

	// RestartBackoffBase/Cap are copied into system.Settings'
	// DefaultBackoffBase/Cap at bootstrap; no spawn path builds a backoff
	// from them, so actors get only the backoff their Props directive names.
	RestartBackoffBase time.Duration `mapstructure:"restart_backoff_base"`
	RestartBackoffCap  time.Duration `mapstructure:"restart_backoff_cap"`

	// ClusterShellDeadline overrides clustershell.DefaultUnbindDeadline.
	ClusterShellDeadline time.Duration `mapstructure:"cluster_shell_deadline"`

	// DispatcherPoolSize sizes the default FixedThreadPool dispatcher.
	// Read once at bootstrap; later file changes to this key are ignored.
	DispatcherPoolSize int `mapstructure:"dispatcher_pool_size"`
}

func defaults() Settings {
	return Settings{
		MailboxThroughput:      100,
		DefaultMailboxCapacity: 0,
		RestartBackoffBase:     10 * time.Millisecond,
		RestartBackoffCap:      2 * time.Second,
		ClusterShellDeadline:   300 * time.Millisecond,
		DispatcherPoolSize:     8,
	}
}

// Loader owns the viper instance and the set of subscribers notified on
// hot-reload.
type Loader struct {
	v        *viper.Viper
	settings Settings
	onChange []func(Settings)
}

// Load reads path (if non-empty) plus environment overrides under the
// ACTORKIT_ prefix, and watches path for changes.
func Load(path string) (*Loader, error) {
	v := viper.New()
	v.SetEnvPrefix("ACTORKIT")
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("mailbox_throughput", d.MailboxThroughput)
	v.SetDefault("default_mailbox_capacity", d.DefaultMailboxCapacity)
	v.SetDefault("restart_backoff_base", d.RestartBackoffBase)
	v.SetDefault("restart_backoff_cap", d.RestartBackoffCap)
	v.SetDefault("cluster_shell_deadline", d.ClusterShellDeadline)
	v.SetDefault("dispatcher_pool_size", d.DispatcherPoolSize)

	l := &Loader{v: v}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&l.settings); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if path != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			prevPoolSize := l.settings.DispatcherPoolSize
			var next Settings
			if err := v.Unmarshal(&next); err != nil {
				return
			}
			next.DispatcherPoolSize = prevPoolSize
			l.settings = next
			for _, fn := range l.onChange {
				fn(next)
			}
		})
		v.WatchConfig()
	}

	return l, nil
}

// Current returns a snapshot of the live settings.
func (l *Loader) Current() Settings { return l.settings }

// OnChange registers a callback invoked after every successful hot-reload.
func (l *Loader) OnChange(fn func(Settings)) {
	l.onChange = append(l.onChange, fn)
}
