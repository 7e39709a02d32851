// Package check is the scenario assertion layer: it compares observed
// signal values against protocol expectations at the current simulated
// instant and keeps the expectation ledger for one transaction.
//
// The ledger distinguishes two failure classes:
//   - A mismatch is a circuit bug: the sampled value differs from what the
//     protocol demands. It is fatal to the current scenario repetition.
//   - An unchecked expectation is a harness bug: the driver planned a
//     number of checks for the transaction and finished without performing
//     all of them. This must never be reported as a circuit failure.
package check

import (
	"fmt"

	"github.com/bitbench/bitbench/internal/sim"
)

// Kind classifies what a failed expectation was checking.
type Kind string

const (
	// KindFraming marks a data/framing bit mismatch on a serial line or a
	// decoded data register.
	KindFraming Kind = "FRAMING"

	// KindFlag marks a valid/ready/channel-select flag in the wrong state.
	KindFlag Kind = "FLAG"

	// KindLedger marks an expectation ledger violation - a harness bug,
	// not a circuit bug.
	KindLedger Kind = "LEDGER"
)

// Error is a failed expectation, carrying the literal expected and
// observed values plus enough context to locate the failing bit.
type Error struct {
	Kind   Kind
	Signal string
	Label  string
	// BitIndex is the index within the frame for per-bit checks, -1 for
	// whole-word checks.
	BitIndex int
	Want     uint64
	Got      uint64
	At       sim.Time
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindLedger {
		return fmt.Sprintf("%s: %s (t=%dns)", e.Kind, e.Label, e.At)
	}
	if e.BitIndex >= 0 {
		return fmt.Sprintf("%s: %s: signal %s bit %d: expected %#x, observed %#x (t=%dns)",
			e.Kind, e.Label, e.Signal, e.BitIndex, e.Want, e.Got, e.At)
	}
	return fmt.Sprintf("%s: %s: signal %s: expected %#x, observed %#x (t=%dns)",
		e.Kind, e.Label, e.Signal, e.Want, e.Got, e.At)
}

// Checker carries the expectation ledger for one transaction.
//
// A driver plans the transaction's check count up front, performs each
// check as it samples, and calls Done once the transaction completes.
// Checks evaluate immediately at the current simulated instant; the first
// mismatch is final.
type Checker struct {
	sim     *sim.Simulator
	label   string
	planned int
	checked int
}

// New creates a checker for one transaction. label names the transaction
// in failure reports, planned is the exact number of checks the driver
// will perform on the success path.
func New(s *sim.Simulator, label string, planned int) *Checker {
	return &Checker{sim: s, label: label, planned: planned}
}

// ExpectEqual samples sig now and compares it against want as a whole
// word.
func (c *Checker) ExpectEqual(kind Kind, sig *sim.Signal, want uint64, what string) error {
	return c.expect(kind, sig, want, what, -1)
}

// ExpectBit samples sig now and compares it against want, reporting the
// frame bit index on mismatch.
func (c *Checker) ExpectBit(kind Kind, sig *sim.Signal, bitIndex int, want uint64, what string) error {
	return c.expect(kind, sig, want, what, bitIndex)
}

func (c *Checker) expect(kind Kind, sig *sim.Signal, want uint64, what string, bitIndex int) error {
	c.checked++
	got := sig.Get()
	if got == want {
		return nil
	}
	return &Error{
		Kind:     kind,
		Signal:   sig.Name(),
		Label:    c.label + ": " + what,
		BitIndex: bitIndex,
		Want:     want,
		Got:      got,
		At:       c.sim.Now(),
	}
}

// Done closes the transaction's ledger. If the number of performed checks
// differs from the plan, the harness itself is broken and Done says so.
func (c *Checker) Done() error {
	if c.checked != c.planned {
		return &Error{
			Kind:  KindLedger,
			Label: fmt.Sprintf("%s: %d of %d planned expectations checked", c.label, c.checked, c.planned),
			At:    c.sim.Now(),
		}
	}
	return nil
}

// IsHarnessBug reports whether err is a ledger violation rather than a
// circuit failure.
func IsHarnessBug(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindLedger
}
