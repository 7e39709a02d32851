package sim

import "fmt"

// Polarity selects which edge of a single-bit signal a wait observes.
type Polarity int

const (
	// Rising selects 0 -> 1 transitions.
	Rising Polarity = iota + 1
	// Falling selects 1 -> 0 transitions.
	Falling
)

// String returns the polarity name used in diagnostics.
func (p Polarity) String() string {
	switch p {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// TaskFunc is the body of a scenario task. It runs cooperatively: the only
// way it gives up control is by calling one of the Task wait methods, and
// the only way simulated time advances for it is through those waits.
type TaskFunc func(t *Task) error

// Task is one cooperatively-scheduled scenario activity.
//
// A Task is created by Simulator.Spawn and runs on its own goroutine, but
// exactly one task (or the scheduler) executes at any moment; control is
// handed over explicitly at wait calls. Task methods must only be called
// from the task's own body.
type Task struct {
	name string
	sim  *Simulator

	resume   chan struct{}
	wakeErr  error
	err      error
	finished bool
}

// Name returns the task's name.
func (t *Task) Name() string { return t.name }

// block hands control back to the scheduler and waits to be readied again.
// It returns the error the waker attached, if any.
func (t *Task) block() error {
	t.sim.yield <- struct{}{}
	<-t.resume
	err := t.wakeErr
	t.wakeErr = nil
	return err
}

func (t *Task) closedErr() *SimError {
	return &SimError{Code: ErrCodeClosed, Message: "simulation ended", At: t.sim.Now()}
}

// WaitEdges suspends the task until count edges of the given polarity have
// occurred on sig. It is the only legal way for a protocol driver to
// advance simulated time relative to a clock.
//
// Two tasks readied by the same edge at the same instant resume in
// registration order; clients must not depend on that order.
func (t *Task) WaitEdges(sig *Signal, count uint, pol Polarity) error {
	if t.sim.closed {
		return t.closedErr()
	}
	if sig.width != 1 {
		return &SimError{
			Code:    ErrCodeMisuse,
			Message: fmt.Sprintf("edge wait on %d-bit bus", sig.width),
			Signal:  sig.name,
			At:      t.sim.Now(),
		}
	}
	if count == 0 {
		return nil
	}
	t.sim.edgeWaits[sig] = append(t.sim.edgeWaits[sig], &edgeWait{
		task:   t,
		pol:    pol,
		remain: count,
	})
	return t.block()
}

// WaitValue suspends the task until sig reads as target. If the signal
// already holds the target value, it returns without suspending.
//
// The wait is bounded by the simulator's handshake budget: an unresponsive
// circuit surfaces a HANDSHAKE_TIMEOUT kernel error rather than hanging
// until the watchdog fires.
func (t *Task) WaitValue(sig *Signal, target uint64) error {
	if t.sim.closed {
		return t.closedErr()
	}
	target &= sig.mask
	if sig.val == target {
		return nil
	}
	w := &valueWait{task: t, target: target}
	if budget := t.sim.cfg.HandshakeBudget; budget > 0 {
		w.deadline = t.sim.schedule(t.sim.Now()+budget, func() {
			if w.done {
				return
			}
			w.done = true
			t.sim.ready(t, &SimError{
				Code:    ErrCodeHandshakeTimeout,
				Message: fmt.Sprintf("signal never reached %d within %dns", target, budget),
				Signal:  sig.name,
				At:      t.sim.Now(),
			})
		})
	}
	t.sim.valueWaits[sig] = append(t.sim.valueWaits[sig], w)
	return t.block()
}

// Delay suspends the task for d nanoseconds of simulated time.
func (t *Task) Delay(d Time) error {
	if t.sim.closed {
		return t.closedErr()
	}
	t.sim.schedule(t.sim.Now()+d, func() {
		t.sim.ready(t, nil)
	})
	return t.block()
}

// edgeWait tracks a task waiting for N matching edges on one signal.
type edgeWait struct {
	task   *Task
	pol    Polarity
	remain uint
}

// valueWait tracks a task waiting for a signal to reach a target value.
type valueWait struct {
	task     *Task
	target   uint64
	deadline *timer
	done     bool
}
