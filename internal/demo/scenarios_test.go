package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/actorkit/kernel/internal/kernel/system"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestSystem(t *testing.T) *system.System {
	t.Helper()
	settings := system.DefaultSettings(t.Name())
	settings.DispatcherPoolSize = 4
	s, err := system.New(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func TestRunPingPong(t *testing.T) {
	t.Parallel()
	s := newTestSystem(t)

	pings, pongs, err := RunPingPong(s)
	require.NoError(t, err)
	require.Equal(t, 10, pings)
	require.Equal(t, 10, pongs)
}

func TestRunDeferredStart(t *testing.T) {
	t.Parallel()
	s := newTestSystem(t)

	order, err := RunDeferredStart(s)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestRunNameCollision(t *testing.T) {
	t.Parallel()
	s := newTestSystem(t)

	successes, rejections, err := RunNameCollision(s, 8)
	require.NoError(t, err)
	require.Equal(t, 1, successes)
	require.Equal(t, 7, rejections)
}

func TestRunSupervisedRestart(t *testing.T) {
	t.Parallel()
	s := newTestSystem(t)

	failures, err := RunSupervisedRestart(s)
	require.NoError(t, err)
	require.Equal(t, 2, failures)
}

func TestRunStopCascade(t *testing.T) {
	t.Parallel()
	s := newTestSystem(t)

	parent, err := RunStopCascade(s)
	require.NoError(t, err)
	require.Eventually(t, parent.IsTerminated, time.Second, 5*time.Millisecond)
}

func TestRunDeadLetterAfterShutdown(t *testing.T) {
	t.Parallel()
	settings := system.DefaultSettings(t.Name())
	s, err := system.New(settings)
	require.NoError(t, err)

	stale, err := system.SpawnUser[Ping](s, "stale-target", system.DefaultProps(), NoopPingProducer)
	require.NoError(t, err)

	before, after, err := RunDeadLetterAfterShutdown(s, stale)
	require.NoError(t, err)
	require.Equal(t, before+1, after)
}
