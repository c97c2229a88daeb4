package dispatcher

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFixedThreadPoolRunsEveryJob(t *testing.T) {
	t.Parallel()
	p := NewFixedThreadPool(4, 16, nil, nil)
	defer p.Shutdown()

	var n atomic.Int64
	const jobs = 200
	for i := 0; i < jobs; i++ {
		require.NoError(t, p.Execute(func() { n.Add(1) }))
	}

	require.Eventually(t, func() bool { return n.Load() == jobs }, time.Second, time.Millisecond)
}

func TestFixedThreadPoolRejectsAfterShutdown(t *testing.T) {
	t.Parallel()
	p := NewFixedThreadPool(2, 4, nil, nil)
	p.Shutdown()

	err := p.Execute(func() {})
	require.ErrorIs(t, err, ErrClosed)
}

func TestFixedThreadPoolRecoversPanickingJob(t *testing.T) {
	t.Parallel()
	p := NewFixedThreadPool(2, 4, nil, nil)
	defer p.Shutdown()

	require.NoError(t, p.Execute(func() { panic("boom") }))

	var ran atomic.Bool
	require.NoError(t, p.Execute(func() { ran.Store(true) }))
	require.Eventually(t, func() bool { return ran.Load() }, time.Second, time.Millisecond)
}

func TestFixedThreadPoolInvokesCrashHookOnPanic(t *testing.T) {
	t.Parallel()
	hookCh := make(chan any, 1)
	p := NewFixedThreadPool(2, 4, nil, func(r any) { hookCh <- r })
	defer p.Shutdown()

	require.NoError(t, p.Execute(func() { panic("boom") }))

	select {
	case r := <-hookCh:
		require.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("crash hook was not invoked")
	}
}

func TestCallingThreadRunsSynchronously(t *testing.T) {
	t.Parallel()
	ct := NewCallingThread()
	defer ct.Shutdown()

	var ran bool
	require.NoError(t, ct.Execute(func() { ran = true }))
	require.True(t, ran, "Execute must run the job before returning")

	ct.Shutdown()
	require.ErrorIs(t, ct.Execute(func() {}), ErrClosed)
}

func TestExternalEventLoopPostsThroughHandle(t *testing.T) {
	t.Parallel()
	posted := make(chan func(), 1)
	loop := NewExternalEventLoop(handleFunc(func(job func()) { posted <- job }))
	defer loop.Shutdown()

	require.NoError(t, loop.Execute(func() {}))
	select {
	case <-posted:
	case <-time.After(time.Second):
		t.Fatal("job was not posted to the handle")
	}
}

type handleFunc func(job func())

func (f handleFunc) Post(job func()) { f(job) }
