package dut

import (
	"github.com/bitbench/bitbench/internal/pinout"
	"github.com/bitbench/bitbench/internal/sim"
)

// UARTLoopback is the synthesis demo top: one UART with its read side
// wired back into its write side, so every received byte is transmitted
// again. Only clk, rst_n, rx, and tx are part of the top's surface; the
// handshake signals are internal wiring.
type UARTLoopback struct {
	UART *UART

	writeData, writeValid *sim.Port
}

// NewUARTLoopback builds the inner UART from its block declaration,
// validates the top's surface pins against the loopback declaration, and
// registers the echo wiring. The wiring runs one clock after the UART's
// own logic, like the registered feedback in the demo top.
func NewUARTLoopback(s *sim.Simulator, top, inner pinout.Block) (*UARTLoopback, error) {
	u, err := NewUART(s, inner)
	if err != nil {
		return nil, err
	}
	for _, req := range []struct {
		name  string
		width uint
		dir   sim.Dir
	}{
		{"clk", 1, sim.DirIn},
		{"rst_n", 1, sim.DirIn},
		{"rx", 1, sim.DirIn},
		{"tx", 1, sim.DirOut},
	} {
		if err := top.Require(req.name, req.width, req.dir); err != nil {
			return nil, err
		}
	}

	lb := &UARTLoopback{UART: u}
	if lb.writeData, err = u.WriteData.Driver("loopback"); err != nil {
		return nil, err
	}
	if lb.writeValid, err = u.WriteValid.Driver("loopback"); err != nil {
		return nil, err
	}

	// Registered after the UART process, so on the edge read_valid pulses
	// this copies the fresh value and the transmitter latches it one clock
	// later.
	s.OnEdge(u.Clk, sim.Rising, func() {
		if u.RstN.Get() == 0 {
			lb.writeValid.Set(0)
			return
		}
		lb.writeData.Set(u.ReadData.Get())
		lb.writeValid.Set(u.ReadValid.Get())
	})
	return lb, nil
}
