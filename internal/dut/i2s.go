package dut

import (
	"fmt"

	"github.com/bitbench/bitbench/internal/pinout"
	"github.com/bitbench/bitbench/internal/sim"
)

// I2S is a stereo serial audio transceiver clocked from an external master
// clock.
//
// The bit clock is divided down from mclk and free-runs through reset so
// the bench can align its reset sequence to it. Frame logic counts bclk
// falling edges within a fixed 32-cycle slot: the channel-select outputs
// toggle once per slot (tx_lrclk one bclk after rx_lrclk, reflecting the
// transmit path's extra pipeline stage), the receiver shifts rx MSB-first
// through its sample window, and the transmitter updates tx on falling
// edges so the line is stable at every rising-edge sample point.
type I2S struct {
	Mclk, RstN, Bclk            *sim.Signal
	Rx, RxData, RxValid, RxLrclk *sim.Signal
	Tx, TxData, TxValid         *sim.Signal
	TxReady, TxLrclk            *sim.Signal

	MclkFreq  uint64
	Ratio     uint
	SlotWidth uint
	BitDepth  uint

	bclk, rxData, rxValid, rxLrclk *sim.Port
	tx, txReady, txLrclk           *sim.Port

	divCnt  uint
	slotCnt uint
	rxShift uint64
	rxBits  uint

	txLatched bool
	txWord    uint64
}

/// rxStart is the slot position of the receiver's first sample: one bclk
// after the transmit pipeline's first data cell, three after the slot
// boundary.
const rxStart = 4

// txStart is the slot position at which the transmitter drives its first
// data bit.
const txStart = 3

// NewI2S validates blk against the model's pin expectations, declares the
// signals, and wires the divider and frame logic to the clocks.
func NewI2S(s *sim.Simulator, blk pinout.Block) (*I2S, error) {
	for _, req := range []struct {
		name  string
		width uint
		dir   sim.Dir
	}{
		{"mclk", 1, sim.DirIn},
		{"rst_n", 1, sim.DirIn},
		{"bclk", 1, sim.DirOut},
		{"rx", 1, sim.DirIn},
		{"rx_data", 24, sim.DirOut},
		{"rx_valid", 1, sim.DirOut},
		{"rx_lrclk", 1, sim.DirOut},
		{"tx", 1, sim.DirOut},
		{"tx_data", 24, sim.DirIn},
		{"tx_valid", 1, sim.DirIn},
		{"tx_ready", 1, sim.DirOut},
		{"tx_lrclk", 1, sim.DirOut},
	} {
		if err := blk.Require(req.name, req.width, req.dir); err != nil {
			return nil, err
		}
	}

	freq, err := blk.Param("MCLK_FREQ")
	if err != nil {
		return nil, err
	}
	ratio, err := blk.Param("MCLK_BCLK_RATIO")
	if err != nil {
		return nil, err
	}
	slot, err := blk.Param("SLOT_WIDTH")
	if err != nil {
		return nil, err
	}
	depth, err := blk.Param("BIT_DEPTH")
	if err != nil {
		return nil, err
	}
	if ratio < 2 || ratio%2 != 0 {
		return nil, fmt.Errorf("i2s: MCLK_BCLK_RATIO %d must be even and >= 2", ratio)
	}
	if depth <= 0 || uint(depth)+rxStart > uint(slot) {
		return nil, fmt.Errorf("i2s: BIT_DEPTH %d does not fit a %d-cycle slot", depth, slot)
	}

	signals, err := blk.Declare(s)
	if err != nil {
		return nil, err
	}

	d := &I2S{
		Mclk:      signals["mclk"],
		RstN:      signals["rst_n"],
		Bclk:      signals["bclk"],
		Rx:        signals["rx"],
		RxData:    signals["rx_data"],
		RxValid:   signals["rx_valid"],
		RxLrclk:   signals["rx_lrclk"],
		Tx:        signals["tx"],
		TxData:    signals["tx_data"],
		TxValid:   signals["tx_valid"],
		TxReady:   signals["tx_ready"],
		TxLrclk:   signals["tx_lrclk"],
		MclkFreq:  uint64(freq),
		Ratio:     uint(ratio),
		SlotWidth: uint(slot),
		BitDepth:  uint(depth),
	}

	for _, claim := range []struct {
		port **sim.Port
		sig  *sim.Signal
	}{
		{&d.bclk, d.Bclk},
		{&d.rxData, d.RxData},
		{&d.rxValid, d.RxValid},
		{&d.rxLrclk, d.RxLrclk},
		{&d.tx, d.Tx},
		{&d.txReady, d.TxReady},
		{&d.txLrclk, d.TxLrclk},
	} {
		if *claim.port, err = claim.sig.Driver("i2s"); err != nil {
			return nil, err
		}
	}

	// Channel selects idle high so their first toggle is the falling edge
	// the bench synchronizes on.
	d.rxLrclk.Set(1)
	d.txLrclk.Set(1)
	d.txReady.Set(1)

	s.OnEdge(d.Mclk, sim.Rising, d.onMclkRise)
	s.OnEdge(d.Bclk, sim.Falling, d.onBclkFall)
	return d, nil
}

// onMclkRise divides mclk down to bclk. The divider free-runs regardless
// of reset.
func (d *I2S) onMclkRise() {
	d.divCnt++
	if d.divCnt == d.Ratio/2 {
		d.divCnt = 0
		d.bclk.SetBit(d.Bclk.Get() == 0)
	}
}

func (d *I2S) onBclkFall() {
	if d.RstN.Get() == 0 {
		d.slotCnt = 0
		d.rxBits = 0
		d.txLatched = false
		d.rxValid.Set(0)
		d.rxLrclk.Set(1)
		d.txLrclk.Set(1)
		d.txReady.Set(1)
		d.tx.Set(0)
		return
	}

	if !d.txLatched && d.TxValid.Get() == 1 && d.TxReady.Get() == 1 {
		d.txWord = d.TxData.Get()
		d.txReady.Set(0)
		d.txLatched = true
	}

	d.slotCnt++
	if d.slotCnt == d.SlotWidth {
		d.slotCnt = 0
	}
	switch d.slotCnt {
	case 0:
		d.rxLrclk.SetBit(d.RxLrclk.Get() == 0)
	case 1:
		d.txLrclk.SetBit(d.TxLrclk.Get() == 0)
	}

	// Receive path: shift rx MSB-first through the sample window.
	if d.slotCnt == rxStart {
		d.rxShift = 0
		d.rxBits = 0
		d.rxValid.Set(0)
	}
	if d.slotCnt >= rxStart && d.slotCnt < rxStart+d.BitDepth {
		d.rxShift = d.rxShift<<1 | d.Rx.Get()
		d.rxBits++
		if d.rxBits == d.BitDepth {
			d.rxData.Set(d.rxShift)
			d.rxValid.Set(1)
		}
	}

	/// Transmit path: drive the latched word MSB-first, zero-pad the rest
	// of the slot.
	if d.txLatched && d.slotCnt >= txStart && d.slotCnt < txStart+d.BitDepth {
		bit := d.BitDepth - 1 - (d.slotCnt - txStart)
		d.tx.Set((d.txWord >> bit) & 1)
	} else {
		d.tx.Set(0)
	}
}
