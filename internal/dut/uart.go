// Package dut holds behavioral reference models of the circuits the bench
// verifies. Each model binds to a pinout declaration at configuration time,
// claims its output drivers, and registers edge-triggered processes with
// the simulation kernel. Models are deliberately plain sequential state
// machines: the point is to give the protocol drivers real clocked logic to
// exercise, not to re-verify synthesis.
package dut

import (
	"fmt"

	"github.com/bitbench/bitbench/internal/pinout"
	"github.com/bitbench/bitbench/internal/sim"
)

// UART is an 8N1 serial transceiver with ready/valid write handshake.
//
// Receiver: detects the start bit on a rising clock edge, verifies it at
// mid-cell, then samples each data bit at the center of its bit-cell and
// pulses read_valid for one cycle once the word is assembled.
//
// Transmitter: latches write_data when write_valid meets write_ready,
// drops write_ready for the duration of the frame, and drives start, data
// (LSB-first), and stop cells of CyclesPerBit clocks each.
type UART struct {
	Clk, RstN, Rx, Tx     *sim.Signal
	ReadData, ReadValid   *sim.Signal
	WriteData, WriteValid *sim.Signal
	WriteReady            *sim.Signal

	ClkFreq      uint64
	BaudRate     uint64
	CyclesPerBit uint

	tx, readData, readValid, writeReady *sim.Port

	rxBusy  bool
	rxCnt   uint
	rxShift uint64

	txBusy  bool
	txCnt   uint
	txLatch uint64
}

// NewUART validates blk against the model's pin expectations, declares the
// signals, and wires the transceiver logic to the clock.
func NewUART(s *sim.Simulator, blk pinout.Block) (*UART, error) {
	for _, req := range []struct {
		name  string
		width uint
		dir   sim.Dir
	}{
		{"clk", 1, sim.DirIn},
		{"rst_n", 1, sim.DirIn},
		{"rx", 1, sim.DirIn},
		{"tx", 1, sim.DirOut},
		{"read_data", 8, sim.DirOut},
		{"read_valid", 1, sim.DirOut},
		{"write_data", 8, sim.DirIn},
		{"write_valid", 1, sim.DirIn},
		{"write_ready", 1, sim.DirOut},
	} {
		if err := blk.Require(req.name, req.width, req.dir); err != nil {
			return nil, err
		}
	}

	freq, err := blk.Param("CLK_FREQ")
	if err != nil {
		return nil, err
	}
	baud, err := blk.Param("BAUD_RATE")
	if err != nil {
		return nil, err
	}
	cycles := freq / baud
	if cycles < 2 || cycles%2 != 0 {
		return nil, fmt.Errorf("uart: CLK_FREQ/BAUD_RATE = %d must be even and >= 2 for mid-cell sampling", cycles)
	}

	signals, err := blk.Declare(s)
	if err != nil {
		return nil, err
	}

	u := &UART{
		Clk:          signals["clk"],
		RstN:         signals["rst_n"],
		Rx:           signals["rx"],
		Tx:           signals["tx"],
		ReadData:     signals["read_data"],
		ReadValid:    signals["read_valid"],
		WriteData:    signals["write_data"],
		WriteValid:   signals["write_valid"],
		WriteReady:   signals["write_ready"],
		ClkFreq:      uint64(freq),
		BaudRate:     uint64(baud),
		CyclesPerBit: uint(cycles),
	}

	if u.tx, err = u.Tx.Driver("uart"); err != nil {
		return nil, err
	}
	if u.readData, err = u.ReadData.Driver("uart"); err != nil {
		return nil, err
	}
	if u.readValid, err = u.ReadValid.Driver("uart"); err != nil {
		return nil, err
	}
	if u.writeReady, err = u.WriteReady.Driver("uart"); err != nil {
		return nil, err
	}

	s.OnEdge(u.Clk, sim.Rising, u.onClkRise)
	return u, nil
}

func (u *UART) onClkRise() {
	if u.RstN.Get() == 0 {
		u.rxBusy = false
		u.txBusy = false
		u.readValid.Set(0)
		u.writeReady.Set(1)
		u.tx.Set(1)
		return
	}
	u.rxTick()
	u.txTick()
}

func (u *UART) rxTick() {
	if u.ReadValid.Get() == 1 {
		u.readValid.Set(0) // one-cycle pulse
	}
	if !u.rxBusy {
		if u.Rx.Get() == 0 {
			u.rxBusy = true
			u.rxCnt = 0
			u.rxShift = 0
		}
		return
	}

	k := u.CyclesPerBit
	half := k / 2
	u.rxCnt++
	switch {
	case u.rxCnt == half:
		// Mid start-cell: a line back at idle was a glitch, not a frame.
		if u.Rx.Get() != 0 {
			u.rxBusy = false
		}
	case u.rxCnt > half && (u.rxCnt-half)%k == 0:
		bit := (u.rxCnt-half)/k - 1
		if bit < 8 {
			u.rxShift |= u.Rx.Get() << bit
			if bit == 7 {
				u.readData.Set(u.rxShift)
				u.readValid.Set(1)
			}
			return
		}
		// Mid stop-cell: frame over, back to hunting for a start bit.
		u.rxBusy = false
	}
}

func (u *UART) txTick() {
	if !u.txBusy {
		u.tx.Set(1)
		if u.WriteValid.Get() == 1 && u.WriteReady.Get() == 1 {
			u.txLatch = u.WriteData.Get()
			u.writeReady.Set(0)
			u.txBusy = true
			u.txCnt = 0
			u.tx.Set(0) // start cell begins on the latching edge
		}
		return
	}

	u.txCnt++
	cell := u.txCnt / u.CyclesPerBit
	switch {
	case cell == 0:
		u.tx.Set(0)
	case cell <= 8:
		u.tx.Set((u.txLatch >> (cell - 1)) & 1)
	case cell == 9:
		u.tx.Set(1) // stop cell
	default:
		u.txBusy = false
		u.writeReady.Set(1)
		u.tx.Set(1)
	}
}
