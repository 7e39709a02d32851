// Package driver sequences clock, reset, codec, and edge waits into
// complete protocol transactions against a circuit model: drive stimulus
// onto the input pins, sample the output pins at the protocol's edges, and
// record every comparison in the transaction's expectation ledger.
//
// Each driver method performs one scenario repetition end to end on a
// fresh simulator: clock start, reset sequence, one transaction (receive,
// transmit, or full-duplex), cooldown, ledger close. Any mismatch is fatal
// to the repetition; there is no retry.
package driver

import (
	"github.com/bitbench/bitbench/internal/sim"
)

// idleCooldown is the number of idle clock cycles driven after a UART
// frame before the repetition ends.
const idleCooldown = 5

// ResetConfig describes one synchronous reset pulse.
type ResetConfig struct {
	// ActiveLow selects the polarity of the reset line.
	ActiveLow bool
	// HoldCycles is how many rising clock edges the reset is held active.
	HoldCycles uint
	// SettleCycles is how many rising clock edges to wait after release
	// before the circuit may be stimulated.
	SettleCycles uint
}

// DefaultReset is the standard sequence: two cycles held, two cycles to
// settle.
func DefaultReset(activeLow bool) ResetConfig {
	return ResetConfig{ActiveLow: activeLow, HoldCycles: 2, SettleCycles: 2}
}

// ApplyReset drives rst to its active level, holds it for the configured
// number of clk edges, releases it, and waits out the settle interval.
// Callers must not issue protocol stimulus before ApplyReset returns.
func ApplyReset(t *sim.Task, rst *sim.Port, clk *sim.Signal, cfg ResetConfig) error {
	active, inactive := uint64(1), uint64(0)
	if cfg.ActiveLow {
		active, inactive = 0, 1
	}
	rst.Set(active)
	if err := t.WaitEdges(clk, cfg.HoldCycles, sim.Rising); err != nil {
		return err
	}
	rst.Set(inactive)
	if cfg.SettleCycles > 0 {
		return t.WaitEdges(clk, cfg.SettleCycles, sim.Rising)
	}
	return nil
}
