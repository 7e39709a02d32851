package dut

import (
	"github.com/bitbench/bitbench/internal/pinout"
	"github.com/bitbench/bitbench/internal/sim"
)

// I2C is the bus controller's reset/idle shell. The transfer state machine
// is future work; today the model only holds both bus lines at their idle
// (high, pulled-up) level so the bench can exercise reset and idle-hold.
type I2C struct {
	Clk, RstN, Mode, ReadReady *sim.Signal
	Scl, Sda                   *sim.Signal

	ClkFreq uint64

	scl, sda *sim.Port
}

// NewI2C validates blk against the shell's pin expectations and parks the
// bus at idle.
func NewI2C(s *sim.Simulator, blk pinout.Block) (*I2C, error) {
	for _, req := range []struct {
		name  string
		width uint
		dir   sim.Dir
	}{
		{"clk", 1, sim.DirIn},
		{"rst_n", 1, sim.DirIn},
		{"mode", 1, sim.DirIn},
		{"read_ready", 1, sim.DirIn},
		{"scl", 1, sim.DirOut},
		{"sda", 1, sim.DirOut},
	} {
		if err := blk.Require(req.name, req.width, req.dir); err != nil {
			return nil, err
		}
	}

	freq, err := blk.Param("CLK_FREQ")
	if err != nil {
		return nil, err
	}

	signals, err := blk.Declare(s)
	if err != nil {
		return nil, err
	}

	c := &I2C{
		Clk:       signals["clk"],
		RstN:      signals["rst_n"],
		Mode:      signals["mode"],
		ReadReady: signals["read_ready"],
		Scl:       signals["scl"],
		Sda:       signals["sda"],
		ClkFreq:   uint64(freq),
	}

	if c.scl, err = c.Scl.Driver("i2c"); err != nil {
		return nil, err
	}
	if c.sda, err = c.Sda.Driver("i2c"); err != nil {
		return nil, err
	}
	c.scl.Set(1)
	c.sda.Set(1)

	s.OnEdge(c.Clk, sim.Rising, func() {
		// Idle shell: the bus stays released whatever the inputs do.
		c.scl.Set(1)
		c.sda.Set(1)
	})
	return c, nil
}
