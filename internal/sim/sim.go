// Package sim is a discrete-event simulation kernel for cycle-accurate
// protocol verification.
//
// The kernel provides:
//   - Named, typed signals with declared width and direction, and a
//     single-writer driver registry (signal.go)
//   - Cooperative tasks suspended on edge, value, and time waits (task.go)
//   - Edge-triggered processes for sequential circuit models (OnEdge)
//   - A free-running clock generator (clock.go)
//
// Scheduling model: single-threaded cooperative multitasking over simulated
// time. Tasks run on goroutines but exactly one executes at a time; control
// passes to the scheduler only at wait calls. Within one simulated instant a
// signal change first runs matching edge-triggered processes (which may
// cascade further changes, processed iteratively) and then readies matching
// waiters; readied tasks run only after the current task suspends.
package sim

import (
	"container/heap"
	"fmt"
)

// Config bounds a simulation run.
type Config struct {
	// HandshakeBudget is the maximum simulated time a WaitValue may pend
	// before it fails with HANDSHAKE_TIMEOUT. Zero disables the budget.
	HandshakeBudget Time

	// MaxTime is the watchdog: total simulated time after which the run
	// fails with WATCHDOG. Zero disables the watchdog.
	MaxTime Time
}

// DefaultConfig returns the budgets used by the scenario runner: 1ms of
// simulated time per handshake, 1s per repetition.
func DefaultConfig() Config {
	return Config{
		HandshakeBudget: 1_000_000,
		MaxTime:         1_000_000_000,
	}
}

// Observer receives every signal change as it is driven. Used by the
// scenario runner to record deterministic stimulus traces.
type Observer func(at Time, sig *Signal, old, new uint64)

// process is one edge-triggered block of sequential circuit logic.
type process struct {
	pol Polarity
	fn  func()
}

type change struct {
	sig      *Signal
	old, new uint64
}

// Simulator owns all signals, tasks, timers, and processes of one run.
//
// A Simulator is single-use: build it, register circuit models and claim
// driver ports, then call Run exactly once. It is not safe for concurrent
// use; the cooperative scheduling discipline is the concurrency model.
type Simulator struct {
	cfg Config
	now Time

	signals map[string]*Signal

	timers   timerQueue
	timerSeq uint64

	tasks    []*Task
	readyq   []*Task
	yield    chan struct{}
	closed   bool
	fatalErr error

	procs      map[*Signal][]process
	edgeWaits  map[*Signal][]*edgeWait
	valueWaits map[*Signal][]*valueWait

	pending     []change
	propagating bool

	observer Observer
}

// New creates an empty simulator with the given budgets.
func New(cfg Config) *Simulator {
	return &Simulator{
		cfg:        cfg,
		signals:    make(map[string]*Signal),
		yield:      make(chan struct{}),
		procs:      make(map[*Signal][]process),
		edgeWaits:  make(map[*Signal][]*edgeWait),
		valueWaits: make(map[*Signal][]*valueWait),
	}
}

// Now returns the current simulated time.
func (s *Simulator) Now() Time { return s.now }

// Observe installs the signal-change observer. Pass nil to remove it.
func (s *Simulator) Observe(o Observer) { s.observer = o }

// NewSignal declares a signal with the given name, width, and direction.
// Width must be 1..64 and names must be unique within the simulator.
func (s *Simulator) NewSignal(name string, width uint, dir Dir) (*Signal, error) {
	if width == 0 || width > 64 {
		return nil, fmt.Errorf("signal %s: width %d out of range 1..64", name, width)
	}
	if _, ok := s.signals[name]; ok {
		return nil, fmt.Errorf("signal %s: already declared", name)
	}
	mask := ^uint64(0)
	if width < 64 {
		mask = (uint64(1) << width) - 1
	}
	sig := &Signal{name: name, width: width, dir: dir, mask: mask, sim: s}
	s.signals[name] = sig
	return sig, nil
}

// Lookup returns the signal with the given name, or nil.
func (s *Simulator) Lookup(name string) *Signal { return s.signals[name] }

// OnEdge registers fn to run at every matching edge of sig. This is how
// circuit models express sequential logic: fn runs inside the propagation
// of the triggering change, before any waiting task resumes.
func (s *Simulator) OnEdge(sig *Signal, pol Polarity, fn func()) {
	s.procs[sig] = append(s.procs[sig], process{pol: pol, fn: fn})
}

// Spawn creates a task and queues it to run. The task body starts when the
// scheduler first reaches it, not at the call site.
func (s *Simulator) Spawn(name string, fn TaskFunc) *Task {
	t := &Task{name: name, sim: s, resume: make(chan struct{})}
	s.tasks = append(s.tasks, t)
	go func() {
		<-t.resume
		if s.closed {
			t.err = t.closedErr()
		} else {
			t.err = fn(t)
		}
		t.finished = true
		s.yield <- struct{}{}
	}()
	s.readyq = append(s.readyq, t)
	return t
}

// ready queues a blocked task to resume with the given wake error.
func (s *Simulator) ready(t *Task, err error) {
	t.wakeErr = err
	s.readyq = append(s.readyq, t)
}

// Run spawns the main scenario task and drives the simulation until it
// finishes, the watchdog fires, or the kernel deadlocks. It returns the
// main task's error. All other tasks (clocks included) are parked and
// released when Run returns.
func (s *Simulator) Run(name string, fn TaskFunc) error {
	if s.closed {
		return &SimError{Code: ErrCodeMisuse, Message: "simulator already ran", At: s.now}
	}
	main := s.Spawn(name, fn)

	for {
		for len(s.readyq) > 0 {
			cur := s.readyq[0]
			s.readyq = s.readyq[1:]
			cur.resume <- struct{}{}
			<-s.yield
			if cur.finished && cur == main {
				s.shutdown()
				return main.err
			}
		}

		if len(s.timers) == 0 {
			s.fatalErr = &SimError{
				Code:    ErrCodeDeadlock,
				Message: "no runnable task and no pending timer",
				At:      s.now,
			}
			s.shutdown()
			return s.fatalErr
		}

		tm := heap.Pop(&s.timers).(*timer)
		if tm.cancelled {
			continue
		}
		if s.cfg.MaxTime > 0 && tm.at > s.cfg.MaxTime {
			s.fatalErr = &SimError{
				Code:    ErrCodeWatchdog,
				Message: fmt.Sprintf("simulated time budget %dns exhausted", s.cfg.MaxTime),
				At:      s.now,
			}
			s.shutdown()
			return s.fatalErr
		}
		s.now = tm.at
		tm.fire()
	}
}

// shutdown parks the simulation: every unfinished task is resumed one last
// time with a SIM_CLOSED error so its goroutine can unwind and exit.
func (s *Simulator) shutdown() {
	s.closed = true
	for _, t := range s.tasks {
		if t.finished {
			continue
		}
		t.wakeErr = t.closedErr()
		t.resume <- struct{}{}
		<-s.yield
	}
}

// signalChanged records one value change and, unless a propagation is
// already draining, drains the cascade: processes may drive further
// signals, which append to the same queue instead of recursing.
func (s *Simulator) signalChanged(sig *Signal, old, new uint64) {
	if s.observer != nil {
		s.observer(s.now, sig, old, new)
	}
	s.pending = append(s.pending, change{sig: sig, old: old, new: new})
	if s.propagating {
		return
	}
	s.propagating = true
	for len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]
		s.fire(c)
	}
	s.propagating = false
}

// fire applies one change: edge-triggered processes first, then edge
// waiters, then value waiters.
func (s *Simulator) fire(c change) {
	var pol Polarity
	if c.sig.width == 1 {
		switch {
		case c.old == 0 && c.new == 1:
			pol = Rising
		case c.old == 1 && c.new == 0:
			pol = Falling
		}
	}

	if pol != 0 {
		for _, p := range s.procs[c.sig] {
			if p.pol == pol {
				p.fn()
			}
		}

		waits := s.edgeWaits[c.sig]
		kept := waits[:0]
		for _, w := range waits {
			if w.pol == pol {
				w.remain--
				if w.remain == 0 {
					s.ready(w.task, nil)
					continue
				}
			}
			kept = append(kept, w)
		}
		s.edgeWaits[c.sig] = kept
	}

	vwaits := s.valueWaits[c.sig]
	vkept := vwaits[:0]
	for _, w := range vwaits {
		if !w.done && c.new == w.target {
			w.done = true
			if w.deadline != nil {
				w.deadline.cancelled = true
			}
			s.ready(w.task, nil)
			continue
		}
		if !w.done {
			vkept = append(vkept, w)
		}
	}
	s.valueWaits[c.sig] = vkept
}
