package driver

import (
	"github.com/bitbench/bitbench/internal/check"
	"github.com/bitbench/bitbench/internal/codec"
	"github.com/bitbench/bitbench/internal/dut"
	"github.com/bitbench/bitbench/internal/sim"
)

// UART drives one serial transaction at a time against a dut.UART. It owns
// the bench side of every input pin: the clock, the reset, the serial rx
// line, and the write handshake.
type UART struct {
	sm *sim.Simulator
	u  *dut.UART

	clk, rstN, rx         *sim.Port
	writeData, writeValid *sim.Port
}

// NewUART claims the bench-side pins of u. The model must already have
// claimed its own outputs.
func NewUART(sm *sim.Simulator, u *dut.UART) (*UART, error) {
	d := &UART{sm: sm, u: u}
	var err error
	if d.clk, err = u.Clk.Driver("bench"); err != nil {
		return nil, err
	}
	if d.rstN, err = u.RstN.Driver("bench"); err != nil {
		return nil, err
	}
	if d.rx, err = u.Rx.Driver("bench"); err != nil {
		return nil, err
	}
	if d.writeData, err = u.WriteData.Driver("bench"); err != nil {
		return nil, err
	}
	if d.writeValid, err = u.WriteValid.Driver("bench"); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *UART) begin(t *sim.Task) error {
	d.rx.Set(1)
	d.writeValid.Set(0)
	d.sm.StartClock("clk-gen", d.clk, sim.PeriodFor(d.u.ClkFreq))
	return ApplyReset(t, d.rstN, d.u.Clk, DefaultReset(true))
}

// Receive serializes payload onto the rx pin one bit cell at a time and
// checks that the receiver's read_data port carries the payload once the
// final data bit has been sampled.
func (d *UART) Receive(t *sim.Task, payload uint64) error {
	if err := d.begin(t); err != nil {
		return err
	}
	k := uint(d.u.CyclesPerBit)
	c := check.New(d.sm, "uart-receive", 1)
	bits := codec.UARTEncode(payload, 8)

	// Start bit plus eight data cells, one bit per cell.
	for i := 0; i < 9; i++ {
		d.rx.SetBit(bits[i] != 0)
		if err := t.WaitEdges(d.u.Clk, k, sim.Rising); err != nil {
			return err
		}
	}
	// The receiver samples mid-cell, so the word is complete half a cell
	// before the stop cell starts.
	if err := c.ExpectEqual(check.KindFraming, d.u.ReadData, payload, "read_data"); err != nil {
		return err
	}
	d.rx.SetBit(bits[9] != 0)
	if err := t.WaitEdges(d.u.Clk, k, sim.Rising); err != nil {
		return err
	}
	if err := t.WaitEdges(d.u.Clk, idleCooldown, sim.Rising); err != nil {
		return err
	}
	return c.Done()
}

// Transmit offers payload through the write handshake and samples the tx
// pin in the middle of each of the ten bit cells, checking the full 8N1
// frame against the codec.
func (d *UART) Transmit(t *sim.Task, payload uint64) error {
	if err := d.begin(t); err != nil {
		return err
	}
	k := uint(d.u.CyclesPerBit)
	half := k / 2
	c := check.New(d.sm, "uart-transmit", 10)
	bits := codec.UARTEncode(payload, 8)

	if err := t.WaitValue(d.u.WriteReady, 1); err != nil {
		return err
	}
	d.writeData.Set(payload)
	d.writeValid.Set(1)
	if err := t.WaitEdges(d.u.Tx, 1, sim.Falling); err != nil {
		return err
	}
	if err := t.WaitEdges(d.u.Clk, half, sim.Rising); err != nil {
		return err
	}
	if err := c.ExpectBit(check.KindFraming, d.u.Tx, 0, uint64(bits[0]), "start bit"); err != nil {
		return err
	}
	for i := 1; i <= 8; i++ {
		if err := t.WaitEdges(d.u.Clk, k, sim.Rising); err != nil {
			return err
		}
		if err := c.ExpectBit(check.KindFraming, d.u.Tx, i, uint64(bits[i]), "data bit"); err != nil {
			return err
		}
	}
	if err := t.WaitEdges(d.u.Clk, half, sim.Rising); err != nil {
		return err
	}
	d.writeValid.Set(0)
	if err := t.WaitEdges(d.u.Clk, half, sim.Rising); err != nil {
		return err
	}
	if err := c.ExpectBit(check.KindFraming, d.u.Tx, 9, uint64(bits[9]), "stop bit"); err != nil {
		return err
	}
	if err := t.WaitEdges(d.u.Clk, idleCooldown, sim.Rising); err != nil {
		return err
	}
	return c.Done()
}

// FullDuplex runs a receive and a transmit concurrently, phase-locked so
// that the rx start bit lands in the same clock cycle as the write
// handshake. Each direction is checked independently.
func (d *UART) FullDuplex(t *sim.Task, rxPayload, txPayload uint64) error {
	if err := d.begin(t); err != nil {
		return err
	}
	k := uint(d.u.CyclesPerBit)
	half := k / 2
	c := check.New(d.sm, "uart-full-duplex", 11)
	rxBits := codec.UARTEncode(rxPayload, 8)
	txBits := codec.UARTEncode(txPayload, 8)

	if err := t.WaitValue(d.u.WriteReady, 1); err != nil {
		return err
	}
	d.writeData.Set(txPayload)
	d.writeValid.Set(1)
	d.rx.SetBit(rxBits[0] != 0)
	if err := t.WaitEdges(d.u.Tx, 1, sim.Falling); err != nil {
		return err
	}
	if err := t.WaitEdges(d.u.Clk, half, sim.Rising); err != nil {
		return err
	}
	if err := c.ExpectBit(check.KindFraming, d.u.Tx, 0, uint64(txBits[0]), "start bit"); err != nil {
		return err
	}
	// The rx bit flips half a cell before the tx bit is sampled, giving
	// both directions half a cell of margin.
	for i := 1; i <= 8; i++ {
		if err := t.WaitEdges(d.u.Clk, half, sim.Rising); err != nil {
			return err
		}
		d.rx.SetBit(rxBits[i] != 0)
		if err := t.WaitEdges(d.u.Clk, half, sim.Rising); err != nil {
			return err
		}
		if err := c.ExpectBit(check.KindFraming, d.u.Tx, i, uint64(txBits[i]), "tx data bit"); err != nil {
			return err
		}
	}
	if err := t.WaitEdges(d.u.Clk, half, sim.Rising); err != nil {
		return err
	}
	d.writeValid.Set(0)
	if err := c.ExpectEqual(check.KindFraming, d.u.ReadData, rxPayload, "read_data"); err != nil {
		return err
	}
	if err := t.WaitEdges(d.u.Clk, half, sim.Rising); err != nil {
		return err
	}
	if err := c.ExpectBit(check.KindFraming, d.u.Tx, 9, uint64(txBits[9]), "stop bit"); err != nil {
		return err
	}
	d.rx.Set(1)
	if err := t.WaitEdges(d.u.Clk, idleCooldown, sim.Rising); err != nil {
		return err
	}
	return c.Done()
}
