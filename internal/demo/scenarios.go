// Package demo runs the literal end-to-end scenarios of §8 against a real
// System, standing in for the integration-test shell harness named as
// out-of-scope in §1: this package exercises the kernel, it does not
// implement that harness itself.
package demo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/actorkit/kernel/internal/domain/address"
	"github.com/actorkit/kernel/internal/domain/cell"
	"github.com/actorkit/kernel/internal/domain/ref"
	"github.com/actorkit/kernel/internal/domain/signal"
	"github.com/actorkit/kernel/internal/kernel/system"
)

// --- Scenario 1: ping-pong ---

type Ping struct{ N int }
type Pong struct{ N int }

// RunPingPong spawns pinger and ponger and exchanges 10 rounds, returning
// both final counters.
func RunPingPong(s *system.System) (pingerCount, pongerCount int, err error) {
	var pingerRef ref.Ref[Pong]
	var pingerN, pongerN int
	done := make(chan struct{})

	pongerProducer := func() cell.Behavior[Ping] {
		return cell.Receive(func(ctx *cell.Context[Ping], msg Ping) (cell.Behavior[Ping], error) {
			pongerN++
			pingerRef.Tell(Pong{N: msg.N})
			return cell.Same[Ping](), nil
		})
	}
	ponger, err := system.SpawnUser[Ping](s, "ponger", system.DefaultProps(), pongerProducer)
	if err != nil {
		return 0, 0, fmt.Errorf("demo: spawn ponger: %w", err)
	}

	pingerProducer := func() cell.Behavior[Pong] {
		return cell.Receive(func(ctx *cell.Context[Pong], msg Pong) (cell.Behavior[Pong], error) {
			pingerN++
			if pingerN >= 10 {
				close(done)
				return cell.Same[Pong](), nil
			}
			ponger.Tell(Ping{N: pingerN + 1})
			return cell.Same[Pong](), nil
		})
	}
	pingerRef, err = system.SpawnUser[Pong](s, "pinger", system.DefaultProps(), pingerProducer)
	if err != nil {
		return 0, 0, fmt.Errorf("demo: spawn pinger: %w", err)
	}

	ponger.Tell(Ping{N: 1})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		return pingerN, pongerN, errors.New("demo: ping-pong timed out")
	}
	return pingerN, pongerN, nil
}

// --- Scenario 2: deferred start ---

type OrderedMsg struct{ Seq int }

// RunDeferredStart spawns an actor with startImmediately=false, sends three
// messages while it is still suspended, then wakes it and confirms the
// three messages were delivered in send order only after Wake — and that a
// second Wake call is a harmless no-op, per §8 scenario 2.
func RunDeferredStart(s *system.System) (order []int, err error) {
	received := make(chan int, 3)

	props := system.DefaultProps()
	props.StartImmediately = false

	deferred, err := system.SpawnUser[OrderedMsg](s, "deferred", props, func() cell.Behavior[OrderedMsg] {
		return cell.Receive(func(ctx *cell.Context[OrderedMsg], msg OrderedMsg) (cell.Behavior[OrderedMsg], error) {
			received <- msg.Seq
			return cell.Same[OrderedMsg](), nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("demo: spawn deferred: %w", err)
	}

	deferred.Tell(OrderedMsg{Seq: 1})
	deferred.Tell(OrderedMsg{Seq: 2})
	deferred.Tell(OrderedMsg{Seq: 3})

	select {
	case seq := <-received:
		return nil, fmt.Errorf("demo: message %d delivered before wake", seq)
	case <-time.After(50 * time.Millisecond):
	}

	deferred.Wake()
	deferred.Wake() // idempotent: must not double-schedule or panic.

	for i := 0; i < 3; i++ {
		select {
		case seq := <-received:
			order = append(order, seq)
		case <-time.After(2 * time.Second):
			return order, errors.New("demo: deferred start timed out waiting for delivery")
		}
	}
	return order, nil
}

// --- Scenario 6: concurrent name collision ---

// RunNameCollision fires N concurrent SpawnUser calls at the same explicit
// name and confirms exactly one succeeds while the rest fail with
// address.ErrNameAlreadyInUse, per §8 scenario 6.
func RunNameCollision(s *system.System, attempts int) (successes int, rejections int, err error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstUnexpected error

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, spawnErr := system.SpawnUser[Ping](s, "contested", system.DefaultProps(), NoopPingProducer)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case spawnErr == nil:
				successes++
			case errors.Is(spawnErr, address.ErrNameAlreadyInUse):
				rejections++
			default:
				if firstUnexpected == nil {
					firstUnexpected = spawnErr
				}
			}
		}()
	}
	wg.Wait()

	if firstUnexpected != nil {
		return successes, rejections, fmt.Errorf("demo: unexpected spawn error: %w", firstUnexpected)
	}
	return successes, rejections, nil
}

// --- Scenario 3: supervised restart ---

type FlakyMsg struct {
	ShouldFail bool
	Result     chan string
}

// RunSupervisedRestart spawns an actor with a three-step fixed backoff,
// forces two failures, and confirms the third attempt is handled: the
// literal walk of §8's supervised-restart scenario. It returns the number
// of induced failures observed before recovery.
func RunSupervisedRestart(s *system.System) (failures int, err error) {
	var failureCount int

	props := system.DefaultProps()
	props.Directive = cell.RestartDirective(cell.FixedSequence{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond})

	flaky, err := system.SpawnUser[FlakyMsg](s, "flaky", props, func() cell.Behavior[FlakyMsg] {
		return cell.Receive(func(ctx *cell.Context[FlakyMsg], msg FlakyMsg) (cell.Behavior[FlakyMsg], error) {
			if msg.ShouldFail {
				failureCount++
				return cell.Same[FlakyMsg](), errors.New("flaky: induced failure")
			}
			msg.Result <- "ok"
			return cell.Same[FlakyMsg](), nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("demo: spawn flaky: %w", err)
	}

	flaky.Tell(FlakyMsg{ShouldFail: true})
	flaky.Tell(FlakyMsg{ShouldFail: true})

	result := make(chan string, 1)
	flaky.Tell(FlakyMsg{Result: result})

	select {
	case <-result:
	case <-time.After(2 * time.Second):
		return failureCount, errors.New("demo: supervised restart timed out waiting for recovery")
	}
	return failureCount, nil
}

// --- Scenario 4: stop cascade ---

type ParentMsg struct{}
type ChildMsg struct{}

// RunStopCascade spawns a parent with two children and stops it, returning
// the parent's ref once the stop has been issued: children always finish
// draining before the parent finalizes (§8's stop-cascade scenario).
func RunStopCascade(s *system.System) (ref.Ref[ParentMsg], error) {
	parentProducer := func() cell.Behavior[ParentMsg] {
		return cell.Receive(func(ctx *cell.Context[ParentMsg], _ ParentMsg) (cell.Behavior[ParentMsg], error) {
			return cell.Same[ParentMsg](), nil
		})
	}
	parent, err := system.SpawnUser[ParentMsg](s, "cascade-parent", system.DefaultProps(), parentProducer)
	if err != nil {
		return ref.Ref[ParentMsg]{}, fmt.Errorf("demo: spawn parent: %w", err)
	}

	parentNode, ok := s.ResolveNode(parent.Address())
	if !ok {
		return ref.Ref[ParentMsg]{}, errors.New("demo: resolve parent node failed")
	}

	childProducer := func() cell.Behavior[ChildMsg] {
		return cell.Receive(func(ctx *cell.Context[ChildMsg], _ ChildMsg) (cell.Behavior[ChildMsg], error) {
			return cell.Same[ChildMsg](), nil
		})
	}
	if _, err := system.SpawnChild[ChildMsg](s, parentNode, "child-a", system.DefaultProps(), childProducer); err != nil {
		return ref.Ref[ParentMsg]{}, fmt.Errorf("demo: spawn child-a: %w", err)
	}
	if _, err := system.SpawnChild[ChildMsg](s, parentNode, "child-b", system.DefaultProps(), childProducer); err != nil {
		return ref.Ref[ParentMsg]{}, fmt.Errorf("demo: spawn child-b: %w", err)
	}

	parentNode.EnqueueSystemRaw(signal.New(signal.Stop))
	return parent, nil
}

// NoopPingProducer backs a throwaway actor whose only purpose is to give
// RunDeadLetterAfterShutdown a live ref to go stale.
func NoopPingProducer() cell.Behavior[Ping] {
	return cell.Receive(func(ctx *cell.Context[Ping], _ Ping) (cell.Behavior[Ping], error) {
		return cell.Same[Ping](), nil
	})
}

// --- Scenario 5: dead-lettering after shutdown ---

// RunDeadLetterAfterShutdown shuts the system down, then sends on a stale
// ref, returning the dead-letter count observed before and after.
func RunDeadLetterAfterShutdown(s *system.System, stale ref.Ref[Ping]) (before, after int64, err error) {
	before = s.DeadLetters().Count()
	if err := s.Shutdown(context.Background()); err != nil {
		return before, before, err
	}
	stale.Tell(Ping{N: 1})
	after = s.DeadLetters().Count()
	return before, after, nil
}
