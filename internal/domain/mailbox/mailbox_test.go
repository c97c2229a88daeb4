package mailbox

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/actorkit/kernel/internal/domain/signal"
)

// recordingRunner drains onto a slice under a mutex, standing in for a cell
// in tests that only care about delivery order, not behavior evaluation.
type recordingRunner struct {
	mu       sync.Mutex
	received []int
}

func (r *recordingRunner) RunSignal(signal.Signal) bool { return true }

func (r *recordingRunner) RunUser(msg int) {
	r.mu.Lock()
	r.received = append(r.received, msg)
	r.mu.Unlock()
}

func (r *recordingRunner) OnOverflow(int)   {}
func (r *recordingRunner) OnClosedUser(int) {}

func (r *recordingRunner) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.received))
	copy(out, r.received)
	return out
}

// syncDispatcher runs a job synchronously on the calling goroutine, the
// minimal double needed to make EnqueueUser's drain deterministic for a
// property test — equivalent in shape to kernel/dispatcher.CallingThread,
// reimplemented locally so this package doesn't import kernel/dispatcher.
type syncDispatcher struct{}

func (syncDispatcher) Execute(job func()) error {
	job()
	return nil
}

// TestMailboxPreservesFIFOOrderUnderRandomBatching checks the §4.2 FIFO
// invariant: however a caller batches EnqueueUser calls, messages drain in
// exactly the order they were enqueued.
func TestMailboxPreservesFIFOOrderUnderRandomBatching(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		runner := &recordingRunner{}
		mb := New[int](syncDispatcher{}, runner, 0, 0)

		n := rapid.IntRange(0, 200).Draw(t, "n")
		batchSizes := rapid.SliceOf(rapid.IntRange(1, 7)).Draw(t, "batches")

		want := make([]int, 0, n)
		i := 0
		bi := 0
		for i < n {
			batch := 1
			if len(batchSizes) > 0 {
				batch = batchSizes[bi%len(batchSizes)]
				bi++
			}
			for j := 0; j < batch && i < n; j++ {
				mb.EnqueueUser(i)
				want = append(want, i)
				i++
			}
		}

		require.Equal(t, want, runner.snapshot())
	})
}
