package dut

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitbench/bitbench/internal/pinout"
	"github.com/bitbench/bitbench/internal/sim"
)

func loadBlocks(t *testing.T) map[string]pinout.Block {
	t.Helper()
	blocks, err := pinout.LoadDefault()
	require.NoError(t, err)
	return blocks
}

func TestNewUART_RejectsOddCycleRatio(t *testing.T) {
	blocks := loadBlocks(t)
	blk := blocks["uart"]
	blk.Params = map[string]int64{"CLK_FREQ": 12_000_000, "BAUD_RATE": 800_000} // ratio 15
	s := sim.New(sim.DefaultConfig())
	_, err := NewUART(s, blk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be even")
}

func TestNewUART_RejectsMissingPin(t *testing.T) {
	blocks := loadBlocks(t)
	blk := blocks["uart"]
	signals := make(map[string]pinout.SignalDecl)
	for k, v := range blk.Signals {
		if k != "tx" {
			signals[k] = v
		}
	}
	blk.Signals = signals
	s := sim.New(sim.DefaultConfig())
	_, err := NewUART(s, blk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no signal tx")
}

func TestUART_ResetState(t *testing.T) {
	blocks := loadBlocks(t)
	s := sim.New(sim.DefaultConfig())
	u, err := NewUART(s, blocks["uart"])
	require.NoError(t, err)

	clkPort, err := u.Clk.Driver("bench")
	require.NoError(t, err)
	rstPort, err := u.RstN.Driver("bench")
	require.NoError(t, err)
	rxPort, err := u.Rx.Driver("bench")
	require.NoError(t, err)
	wvPort, err := u.WriteValid.Driver("bench")
	require.NoError(t, err)

	err = s.Run("main", func(tk *sim.Task) error {
		s.StartClock("clk-gen", clkPort, sim.PeriodFor(u.ClkFreq))
		rstPort.Set(1)

		// Arbitrary pre-reset stimulus: a held-low line and a dangling
		// write request.
		rxPort.Set(0)
		wvPort.Set(1)
		if err := tk.WaitEdges(u.Clk, 3, sim.Rising); err != nil {
			return err
		}

		rstPort.Set(0)
		if err := tk.WaitEdges(u.Clk, 2, sim.Rising); err != nil {
			return err
		}
		rxPort.Set(1)
		wvPort.Set(0)
		rstPort.Set(1)
		if err := tk.WaitEdges(u.Clk, 2, sim.Rising); err != nil {
			return err
		}

		assert.Equal(t, uint64(1), u.Tx.Get(), "tx idles high after reset")
		assert.Equal(t, uint64(0), u.ReadValid.Get(), "read_valid deasserted after reset")
		assert.Equal(t, uint64(1), u.WriteReady.Get(), "write_ready asserted after reset")
		return nil
	})
	require.NoError(t, err)
}

func TestI2S_BclkDivider(t *testing.T) {
	blocks := loadBlocks(t)
	s := sim.New(sim.DefaultConfig())
	d, err := NewI2S(s, blocks["i2s"])
	require.NoError(t, err)

	mclkPort, err := d.Mclk.Driver("bench")
	require.NoError(t, err)
	rstPort, err := d.RstN.Driver("bench")
	require.NoError(t, err)

	period := sim.PeriodFor(d.MclkFreq)
	err = s.Run("main", func(tk *sim.Task) error {
		rstPort.Set(0)
		s.StartClock("mclk-gen", mclkPort, period)

		if err := tk.WaitEdges(d.Bclk, 1, sim.Rising); err != nil {
			return err
		}
		first := s.Now()
		if err := tk.WaitEdges(d.Bclk, 1, sim.Rising); err != nil {
			return err
		}
		got := s.Now() - first
		assert.Equal(t, sim.Time(d.Ratio)*period, got, "bclk period is mclk period times the divide ratio")
		return nil
	})
	require.NoError(t, err)
}

func TestI2S_LrclkPhases(t *testing.T) {
	blocks := loadBlocks(t)
	s := sim.New(sim.DefaultConfig())
	d, err := NewI2S(s, blocks["i2s"])
	require.NoError(t, err)

	mclkPort, err := d.Mclk.Driver("bench")
	require.NoError(t, err)
	rstPort, err := d.RstN.Driver("bench")
	require.NoError(t, err)

	err = s.Run("main", func(tk *sim.Task) error {
		rstPort.Set(0)
		s.StartClock("mclk-gen", mclkPort, sim.PeriodFor(d.MclkFreq))
		if err := tk.WaitEdges(d.Bclk, 2, sim.Rising); err != nil {
			return err
		}
		rstPort.Set(1)

		assert.Equal(t, uint64(1), d.RxLrclk.Get(), "rx_lrclk idles high")
		assert.Equal(t, uint64(1), d.TxLrclk.Get(), "tx_lrclk idles high")

		if err := tk.WaitEdges(d.RxLrclk, 1, sim.Falling); err != nil {
			return err
		}
		// tx_lrclk follows one bclk cell later.
		if err := tk.WaitEdges(d.TxLrclk, 1, sim.Falling); err != nil {
			return err
		}
		bclkPeriod := sim.Time(d.Ratio) * sim.PeriodFor(d.MclkFreq)
		frame := sim.Time(d.SlotWidth) * bclkPeriod

		// Next rx_lrclk toggle is one full slot after the first.
		start := s.Now()
		if err := tk.WaitEdges(d.RxLrclk, 1, sim.Rising); err != nil {
			return err
		}
		assert.Less(t, uint64(s.Now()-start), uint64(frame), "toggle within one slot")
		return nil
	})
	require.NoError(t, err)
}

func TestI2C_IdleHold(t *testing.T) {
	blocks := loadBlocks(t)
	s := sim.New(sim.DefaultConfig())
	c, err := NewI2C(s, blocks["i2c_main"])
	require.NoError(t, err)

	clkPort, err := c.Clk.Driver("bench")
	require.NoError(t, err)
	rstPort, err := c.RstN.Driver("bench")
	require.NoError(t, err)
	readyPort, err := c.ReadReady.Driver("bench")
	require.NoError(t, err)

	err = s.Run("main", func(tk *sim.Task) error {
		s.StartClock("clk-gen", clkPort, sim.PeriodFor(c.ClkFreq))
		rstPort.Set(0)
		if err := tk.WaitEdges(c.Clk, 10, sim.Rising); err != nil {
			return err
		}
		rstPort.Set(1)
		readyPort.Set(1)
		if err := tk.WaitEdges(c.Clk, 100, sim.Rising); err != nil {
			return err
		}
		assert.Equal(t, uint64(1), c.Scl.Get(), "scl released")
		assert.Equal(t, uint64(1), c.Sda.Get(), "sda released")
		return nil
	})
	require.NoError(t, err)
}
