package driver

import (
	"github.com/bitbench/bitbench/internal/check"
	"github.com/bitbench/bitbench/internal/dut"
	"github.com/bitbench/bitbench/internal/sim"
)

// i2cResetHold matches the long power-on reset the controller needs before
// its clock dividers are stable.
const i2cResetHold = 200

// I2C exercises the bus controller's reset and idle behavior. There is no
// transfer traffic yet; see dut.I2C.
type I2C struct {
	sm *sim.Simulator
	c  *dut.I2C

	clk, rstN, mode, readReady *sim.Port
}

// NewI2C claims the bench-side pins of c.
func NewI2C(sm *sim.Simulator, c *dut.I2C) (*I2C, error) {
	d := &I2C{sm: sm, c: c}
	var err error
	if d.clk, err = c.Clk.Driver("bench"); err != nil {
		return nil, err
	}
	if d.rstN, err = c.RstN.Driver("bench"); err != nil {
		return nil, err
	}
	if d.mode, err = c.Mode.Driver("bench"); err != nil {
		return nil, err
	}
	if d.readReady, err = c.ReadReady.Driver("bench"); err != nil {
		return nil, err
	}
	return d, nil
}

// IdleHold resets the controller, then watches the bus for holdCycles
// clock cycles and checks that both lines stay released.
func (d *I2C) IdleHold(t *sim.Task, holdCycles uint) error {
	d.mode.Set(0)
	d.sm.StartClock("clk-gen", d.clk, sim.PeriodFor(d.c.ClkFreq))
	cfg := ResetConfig{ActiveLow: true, HoldCycles: i2cResetHold}
	if err := ApplyReset(t, d.rstN, d.c.Clk, cfg); err != nil {
		return err
	}
	d.readReady.Set(1)
	if err := t.WaitEdges(d.c.Clk, holdCycles, sim.Rising); err != nil {
		return err
	}
	c := check.New(d.sm, "i2c-idle", 2)
	if err := c.ExpectEqual(check.KindFlag, d.c.Scl, 1, "scl"); err != nil {
		return err
	}
	if err := c.ExpectEqual(check.KindFlag, d.c.Sda, 1, "sda"); err != nil {
		return err
	}
	return c.Done()
}
