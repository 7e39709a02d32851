package driver

import (
	"github.com/bitbench/bitbench/internal/check"
	"github.com/bitbench/bitbench/internal/codec"
	"github.com/bitbench/bitbench/internal/dut"
	"github.com/bitbench/bitbench/internal/sim"
)

// rxSyncEdges is how many bclk falling edges after the rx_lrclk frame
// boundary the first serial bit of a slot appears on the rx line.
const rxSyncEdges = 4

// I2S drives word-aligned audio transactions against a dut.I2S. Framing is
// taken from the model's own lrclk outputs, so every sample is checked at
// its exact slot position.
type I2S struct {
	sm *sim.Simulator
	d  *dut.I2S

	mclk, rstN, rx  *sim.Port
	txData, txValid *sim.Port
}

// NewI2S claims the bench-side pins of m.
func NewI2S(sm *sim.Simulator, m *dut.I2S) (*I2S, error) {
	d := &I2S{sm: sm, d: m}
	var err error
	if d.mclk, err = m.Mclk.Driver("bench"); err != nil {
		return nil, err
	}
	if d.rstN, err = m.RstN.Driver("bench"); err != nil {
		return nil, err
	}
	if d.rx, err = m.Rx.Driver("bench"); err != nil {
		return nil, err
	}
	if d.txData, err = m.TxData.Driver("bench"); err != nil {
		return nil, err
	}
	if d.txValid, err = m.TxValid.Driver("bench"); err != nil {
		return nil, err
	}
	return d, nil
}

// begin starts the master clock and resets the codec. The reset is timed
// in bclk cycles because the serial logic never sees mclk directly.
func (d *I2S) begin(t *sim.Task) error {
	d.rx.Set(0)
	d.txValid.Set(0)
	d.sm.StartClock("mclk-gen", d.mclk, sim.PeriodFor(d.d.MclkFreq))
	cfg := ResetConfig{ActiveLow: true, HoldCycles: 2}
	return ApplyReset(t, d.rstN, d.d.Bclk, cfg)
}

// Receive shifts each payload onto the rx pin MSB first, one bit per bclk
// falling edge, and checks the deserialized word, the valid strobe, and
// the channel-select phase at the end of every slot.
func (d *I2S) Receive(t *sim.Task, payloads []uint64) error {
	if err := d.begin(t); err != nil {
		return err
	}
	depth := d.d.BitDepth
	pad := uint(d.d.SlotWidth) - depth
	c := check.New(d.sm, "i2s-receive", len(payloads)*3)

	if err := t.WaitEdges(d.d.RxLrclk, 1, sim.Falling); err != nil {
		return err
	}
	if err := t.WaitEdges(d.d.Bclk, rxSyncEdges-1, sim.Falling); err != nil {
		return err
	}
	for s, payload := range payloads {
		for _, b := range codec.I2SEncode(payload, depth) {
			d.rx.SetBit(b != 0)
			if err := t.WaitEdges(d.d.Bclk, 1, sim.Falling); err != nil {
				return err
			}
		}
		if err := c.ExpectEqual(check.KindFraming, d.d.RxData, payload, "rx_data"); err != nil {
			return err
		}
		if err := c.ExpectEqual(check.KindFlag, d.d.RxValid, 1, "rx_valid"); err != nil {
			return err
		}
		if err := c.ExpectEqual(check.KindFlag, d.d.RxLrclk, uint64(s%2), "rx_lrclk"); err != nil {
			return err
		}
		d.rx.Set(0)
		if err := t.WaitEdges(d.d.Bclk, pad, sim.Falling); err != nil {
			return err
		}
	}
	return c.Done()
}

// Transmit offers word through the tx handshake and samples the tx pin on
// every bclk rising edge of the slot's data window, for each of the given
// number of slots. The same word repeats each slot because the model
// re-latches it while tx_valid stays high.
func (d *I2S) Transmit(t *sim.Task, word uint64, slots int) error {
	if err := d.begin(t); err != nil {
		return err
	}
	depth := int(d.d.BitDepth)
	pad := uint(d.d.SlotWidth) - uint(depth)
	c := check.New(d.sm, "i2s-transmit", slots*(depth+1))
	bits := codec.I2SEncode(word, uint(depth))

	if err := t.WaitValue(d.d.TxReady, 1); err != nil {
		return err
	}
	d.txData.Set(word)
	d.txValid.Set(1)
	if err := t.WaitEdges(d.d.TxLrclk, 1, sim.Falling); err != nil {
		return err
	}
	// The first data bit lands two falling edges after the channel flip;
	// sampling on rising edges puts us mid-bit.
	if err := t.WaitEdges(d.d.Bclk, 2, sim.Rising); err != nil {
		return err
	}
	for s := 0; s < slots; s++ {
		for i := 0; i < depth; i++ {
			if err := t.WaitEdges(d.d.Bclk, 1, sim.Rising); err != nil {
				return err
			}
			if err := c.ExpectBit(check.KindFraming, d.d.Tx, i, uint64(bits[i]), "tx bit"); err != nil {
				return err
			}
		}
		if err := c.ExpectEqual(check.KindFlag, d.d.TxLrclk, uint64(s%2), "tx_lrclk"); err != nil {
			return err
		}
		if err := t.WaitEdges(d.d.Bclk, pad, sim.Rising); err != nil {
			return err
		}
	}
	return c.Done()
}

// FullDuplex runs both directions in the same slots: the tx bit is sampled
// mid-bit on the rising edge while the rx bit for the same position was
// set up ahead of the falling edge the codec samples on.
func (d *I2S) FullDuplex(t *sim.Task, rxPayloads []uint64, txWord uint64) error {
	if err := d.begin(t); err != nil {
		return err
	}
	depth := int(d.d.BitDepth)
	pad := uint(d.d.SlotWidth) - uint(depth)
	c := check.New(d.sm, "i2s-full-duplex", len(rxPayloads)*(depth+3))
	txBits := codec.I2SEncode(txWord, uint(depth))

	if err := t.WaitValue(d.d.TxReady, 1); err != nil {
		return err
	}
	d.txData.Set(txWord)
	d.txValid.Set(1)
	if err := t.WaitEdges(d.d.RxLrclk, 1, sim.Falling); err != nil {
		return err
	}
	if err := t.WaitEdges(d.d.Bclk, rxSyncEdges-1, sim.Falling); err != nil {
		return err
	}
	for s, payload := range rxPayloads {
		rxBits := codec.I2SEncode(payload, uint(depth))
		for i := 0; i < depth; i++ {
			d.rx.SetBit(rxBits[i] != 0)
			if err := t.WaitEdges(d.d.Bclk, 1, sim.Rising); err != nil {
				return err
			}
			if err := c.ExpectBit(check.KindFraming, d.d.Tx, i, uint64(txBits[i]), "tx bit"); err != nil {
				return err
			}
			if err := t.WaitEdges(d.d.Bclk, 1, sim.Falling); err != nil {
				return err
			}
		}
		if err := c.ExpectEqual(check.KindFraming, d.d.RxData, payload, "rx_data"); err != nil {
			return err
		}
		if err := c.ExpectEqual(check.KindFlag, d.d.RxValid, 1, "rx_valid"); err != nil {
			return err
		}
		if err := c.ExpectEqual(check.KindFlag, d.d.RxLrclk, uint64(s%2), "rx_lrclk"); err != nil {
			return err
		}
		d.rx.Set(0)
		if err := t.WaitEdges(d.d.Bclk, pad, sim.Falling); err != nil {
			return err
		}
	}
	return c.Done()
}
