// Package mailbox implements the per-actor FIFO message queue and
// scheduling arbiter described in §3/§4.2: a user queue, a priority system
// queue, and a status word that guarantees at-most-one concurrent
// activation per mailbox.
package mailbox

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/actorkit/kernel/internal/domain/signal"
)

// status bits, packed into a single uint32 so the idle->scheduled
// transition is one CAS, per §4.2/§5.
const (
	statusScheduled uint32 = 1 << 0
	statusSuspended uint32 = 1 << 1
	statusClosed    uint32 = 1 << 2
)

// Dispatcher is the minimal contract a mailbox needs from its executor:
// submit a non-blocking job. Concrete variants live in kernel/dispatcher;
// this interface is here (not there) so mailbox has no dependency on
// dispatcher implementations — only the other way around.
type Dispatcher interface {
	Execute(job func()) error
}

// Runner is supplied by the owning cell: it drains the mailbox and
// applies messages/signals to the current behavior. Kept separate from
// Mailbox so the scheduling/queueing concern (this package) stays
// independent of behavior evaluation (package cell).
type Runner[M any] interface {
	// RunSignal handles one system signal. A false return means the
	// mailbox should stop scheduling further work (termination reached).
	RunSignal(sig signal.Signal) (continueRunning bool)
	// RunUser handles one user message.
	RunUser(msg M)
	// OnOverflow is called for a user message that could not be enqueued
	// because the mailbox is at capacity; it is routed to dead letters.
	OnOverflow(msg M)
	// OnClosedUser is called for a user message sent after the mailbox
	// closed; also routed to dead letters.
	OnClosedUser(msg M)
}

// Mailbox is the generic per-actor queue. M is the actor's user message
// type; system signals are always signal.Signal regardless of M.
type Mailbox[M any] struct {
	status atomic.Uint32

	sysMu sync.Mutex
	sys   []signal.Signal

	userMu   sync.Mutex
	user     []M
	capacity int // 0 means unbounded

	approxLen atomic.Int64

	dispatcher Dispatcher
	runner     Runner[M]
	throughput int
}

const defaultThroughput = 100

// New constructs a mailbox bound to the given dispatcher and runner.
// capacity <= 0 means unbounded.
func New[M any](dispatcher Dispatcher, runner Runner[M], capacity int, throughput int) *Mailbox[M] {
	if throughput <= 0 {
		throughput = defaultThroughput
	}
	return &Mailbox[M]{
		dispatcher: dispatcher,
		runner:     runner,
		capacity:   capacity,
		throughput: throughput,
	}
}

// IsClosed reports whether the mailbox has finished terminating.
func (mb *Mailbox[M]) IsClosed() bool {
	return mb.status.Load()&statusClosed != 0
}

// ApproxLen is an approximate, racy count of queued messages — suitable
// only for introspection (§19), never for correctness decisions.
func (mb *Mailbox[M]) ApproxLen() int64 { return mb.approxLen.Load() }

// EnqueueSystem appends to the priority queue and schedules the mailbox if
// it is idle. Every system message sent to an already-closed mailbox is
// dropped silently, since the actor is already gone and nothing will ever
// drain it. The Terminated notifications a terminating cell sends go to its
// watchers' mailboxes (see cell.go), not to its own.
func (mb *Mailbox[M]) EnqueueSystem(sig signal.Signal) {
	if mb.IsClosed() {
		return
	}
	mb.sysMu.Lock()
	mb.sys = append(mb.sys, sig)
	mb.sysMu.Unlock()
	mb.approxLen.Add(1)
	mb.scheduleIfIdle()
}

// EnqueueUser appends a user message to the FIFO queue, per §4.2. Returns
// false if the mailbox is closed or at capacity; the message is then routed
// to dead letters through the runner's OnClosedUser or OnOverflow.
func (mb *Mailbox[M]) EnqueueUser(msg M) bool {
	st := mb.status.Load()
	if st&statusClosed != 0 {
		mb.runner.OnClosedUser(msg)
		return false
	}

	mb.userMu.Lock()
	if mb.capacity > 0 && len(mb.user) >= mb.capacity {
		mb.userMu.Unlock()
		mb.runner.OnOverflow(msg)
		return false
	}
	mb.user = append(mb.user, msg)
	mb.userMu.Unlock()

	mb.approxLen.Add(1)
	mb.scheduleIfIdle()
	return true
}

// scheduleIfIdle performs the single CAS described in §4.2: only the
// winner of the not-scheduled -> scheduled transition hands the mailbox to
// its dispatcher.
func (mb *Mailbox[M]) scheduleIfIdle() {
	for {
		st := mb.status.Load()
		if st&statusScheduled != 0 || st&statusClosed != 0 || st&statusSuspended != 0 {
			return
		}
		if mb.status.CompareAndSwap(st, st|statusScheduled) {
			break
		}
	}
	if err := mb.dispatcher.Execute(mb.run); err != nil {
		// Dispatcher is shut down; per §7 this is absorbed, not surfaced.
		// Clear scheduled so a later (never-coming) EnqueueUser doesn't
		// believe a run is already queued, then drop straight to closed
		// so future sends dead-letter immediately. User messages already
		// queued (including the one that triggered this attempt) are
		// routed to dead letters, since no run will ever drain them.
		mb.forceClose()
		for {
			msg, ok := mb.popUser()
			if !ok {
				break
			}
			mb.runner.OnClosedUser(msg)
		}
	}
}

// run is the activation executed by a dispatcher worker: drain system
// messages first, then up to `throughput` user messages, per §4.2.
func (mb *Mailbox[M]) run() {
	// Last-resort backstop: per-message recovery below is expected to catch
	// every behavior panic, so this should never fire. If it ever does
	// (a bug in the drain loop itself, not in user code), force the
	// mailbox closed rather than leave the scheduled bit stuck forever with
	// no worker ever going to touch it again.
	defer func() {
		if r := recover(); r != nil {
			mb.forceClose()
		}
	}()

	for {
		for {
			sig, ok := mb.popSignal()
			if !ok {
				break
			}
			if !mb.runSignalRecovering(sig) {
				mb.terminate()
				return
			}
			// A restart decision suspends the mailbox for its backoff: end
			// this activation here; Resume schedules the next one. If the
			// CAS fails, Resume has already cleared suspended and this run
			// simply continues.
			if st := mb.status.Load(); st&statusSuspended != 0 &&
				mb.status.CompareAndSwap(st, st&^statusScheduled) {
				return
			}
		}

		drained := 0
		for drained < mb.throughput {
			msg, ok := mb.popUser()
			if !ok {
				break
			}
			mb.runUserRecovering(msg)
			drained++
		}

		if mb.clearScheduledUnlessNonEmpty() {
			return
		}
		// Non-empty: loop again instead of re-entering the dispatcher,
		// same "don't pay the dispatcher-submission cost for a mailbox
		// that's still hot" shape as the teacher's Cell.loop batch drain.
	}
}

// runSignalRecovering and runUserRecovering are the activation boundary
// named in §4.2/§7: a panic inside user behavior code is caught here and
// converted into a Failure system message on this same mailbox, the same
// recover-and-keep-the-consumer-alive shape as the teacher's
// amqp.Bind — never left to unwind into the dispatcher's own goroutine.
func (mb *Mailbox[M]) runSignalRecovering(sig signal.Signal) (continueRunning bool) {
	defer func() {
		if r := recover(); r != nil {
			mb.recoverPanic(r)
			continueRunning = true
		}
	}()
	return mb.runner.RunSignal(sig)
}

func (mb *Mailbox[M]) runUserRecovering(msg M) {
	defer func() {
		if r := recover(); r != nil {
			mb.recoverPanic(r)
		}
	}()
	mb.runner.RunUser(msg)
}

func (mb *Mailbox[M]) recoverPanic(r any) {
	mb.EnqueueSystem(signal.NewFailure(fmt.Errorf("panic: %v\n%s", r, debug.Stack())))
}

func (mb *Mailbox[M]) popSignal() (signal.Signal, bool) {
	mb.sysMu.Lock()
	defer mb.sysMu.Unlock()
	if len(mb.sys) == 0 {
		return signal.Signal{}, false
	}
	s := mb.sys[0]
	mb.sys = mb.sys[1:]
	mb.approxLen.Add(-1)
	return s, true
}

func (mb *Mailbox[M]) popUser() (M, bool) {
	mb.userMu.Lock()
	defer mb.userMu.Unlock()
	var zero M
	if len(mb.user) == 0 {
		return zero, false
	}
	m := mb.user[0]
	mb.user[0] = zero
	mb.user = mb.user[1:]
	mb.approxLen.Add(-1)
	return m, true
}

// clearScheduledUnlessNonEmpty clears the scheduled bit, unless messages
// arrived during the drain (in which case it stays scheduled and the
// caller should keep draining instead of losing the wakeup). Returns true
// once the activation should stop (queues empty, or mailbox closed).
func (mb *Mailbox[M]) clearScheduledUnlessNonEmpty() bool {
	mb.sysMu.Lock()
	sysEmpty := len(mb.sys) == 0
	mb.sysMu.Unlock()
	mb.userMu.Lock()
	userEmpty := len(mb.user) == 0
	mb.userMu.Unlock()

	if !sysEmpty || !userEmpty {
		return false
	}

	for {
		st := mb.status.Load()
		if st&statusClosed != 0 {
			return true
		}
		if mb.status.CompareAndSwap(st, st&^statusScheduled) {
			return true
		}
	}
}

// terminate transitions the mailbox to closed and drains remaining user
// messages to dead letters, per the §4.2 termination algorithm. System
// messages still queued behind the terminal one are not run: run() returns
// as soon as RunSignal reports false, and they stay undelivered.
func (mb *Mailbox[M]) terminate() {
	for {
		st := mb.status.Load()
		if mb.status.CompareAndSwap(st, (st|statusClosed)&^statusScheduled) {
			break
		}
	}
	for {
		msg, ok := mb.popUser()
		if !ok {
			break
		}
		mb.runner.OnClosedUser(msg)
	}
}

func (mb *Mailbox[M]) forceClose() {
	for {
		st := mb.status.Load()
		if mb.status.CompareAndSwap(st, (st|statusClosed)&^statusScheduled) {
			break
		}
	}
}

// Suspend/Resume implement the pause window a restart's backoff holds the
// mailbox in (§4.4): a suspended mailbox still accepts enqueues but will
// not be handed to the dispatcher until Resume is called.
func (mb *Mailbox[M]) Suspend() {
	for {
		st := mb.status.Load()
		if mb.status.CompareAndSwap(st, st|statusSuspended) {
			return
		}
	}
}

func (mb *Mailbox[M]) Resume() {
	for {
		st := mb.status.Load()
		if mb.status.CompareAndSwap(st, st&^statusSuspended) {
			break
		}
	}
	mb.scheduleIfIdle()
}
