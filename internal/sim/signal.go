package sim

import "fmt"

// Dir declares a signal's direction relative to the circuit under test.
type Dir int

const (
	// DirIn marks a circuit input: the bench drives it, the circuit reads it.
	DirIn Dir = iota + 1
	// DirOut marks a circuit output: the circuit drives it, the bench reads it.
	DirOut
)

// String returns the direction as it appears in pinout declarations.
func (d Dir) String() string {
	switch d {
	case DirIn:
		return "in"
	case DirOut:
		return "out"
	default:
		return fmt.Sprintf("Dir(%d)", int(d))
	}
}

// Signal is a named wire exposed by the circuit under test.
//
// A Signal carries a declared bit width and direction, checked at
// configuration time. Values wider than the declared width are masked on
// write. Any number of readers may sample a Signal at any time; writing
// requires claiming the single driver Port first (see Driver).
type Signal struct {
	name  string
	width uint
	dir   Dir
	mask  uint64

	val  uint64
	prev uint64

	owner string // driver registry entry, empty until claimed
	sim   *Simulator
}

// Name returns the signal's declared name.
func (s *Signal) Name() string { return s.name }

// Width returns the signal's declared bit width.
func (s *Signal) Width() uint { return s.width }

// Dir returns the signal's declared direction.
func (s *Signal) Dir() Dir { return s.dir }

// Get samples the signal's current value at the current simulated instant.
func (s *Signal) Get() uint64 { return s.val }

// Prev returns the signal's value before its most recent change.
func (s *Signal) Prev() uint64 { return s.prev }

// Driver claims the exclusive write handle for the signal.
//
// Exactly one owner may drive a signal for the lifetime of a simulation;
// a second claim is a DOUBLE_DRIVE kernel error. This enforces the
// single-writer-per-signal rule by construction rather than by convention.
func (s *Signal) Driver(owner string) (*Port, error) {
	if s.owner != "" {
		return nil, &SimError{
			Code:    ErrCodeDoubleDrive,
			Message: fmt.Sprintf("already driven by %q, refusing claim by %q", s.owner, owner),
			Signal:  s.name,
			At:      s.sim.Now(),
		}
	}
	s.owner = owner
	return &Port{sig: s}, nil
}

// Port is the exclusive write handle onto one Signal.
type Port struct {
	sig *Signal
}

// Signal returns the signal this port drives.
func (p *Port) Signal() *Signal { return p.sig }

// Set drives the signal to v at the current simulated instant.
//
// The value is masked to the signal's declared width. A change propagates
// immediately: edge-triggered processes run, edge and value waiters are
// readied. Readied tasks do not preempt the caller; they run after the
// current task next suspends.
func (p *Port) Set(v uint64) {
	s := p.sig
	v &= s.mask
	if v == s.val {
		return
	}
	old := s.val
	s.prev = old
	s.val = v
	s.sim.signalChanged(s, old, v)
}

// SetBit drives a single-bit signal from a bool.
func (p *Port) SetBit(b bool) {
	if b {
		p.Set(1)
	} else {
		p.Set(0)
	}
}
