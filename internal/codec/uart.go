// Package codec holds the pure frame transforms of the bench: given a data
// word and a bit width, produce the ordered bit sequence that must appear on
// a serial line over time, or reassemble a sampled bit sequence back into a
// word. Codecs never suspend and never touch signals.
package codec

import "fmt"

// UART frame shape: one start bit (0), width data bits LSB-first, one stop
// bit (1). Width is 8 in every scenario shipped here but stays a parameter.
const (
	UARTStartBit = 0
	UARTStopBit  = 1
)

// UARTEncode returns the frame bit sequence for one UART transaction:
// [start] + data bits LSB-first + [stop]. Data bits above width are ignored.
func UARTEncode(data uint64, width uint) []uint8 {
	bits := make([]uint8, 0, width+2)
	bits = append(bits, UARTStartBit)
	for i := uint(0); i < width; i++ {
		bits = append(bits, uint8((data>>i)&1))
	}
	return append(bits, UARTStopBit)
}

// UARTDecode strips the framing bits from a sampled sequence and
// reassembles the payload LSB-first. The sequence must be exactly
// width+2 bits with a 0 start bit and a 1 stop bit.
func UARTDecode(bits []uint8, width uint) (uint64, error) {
	if uint(len(bits)) != width+2 {
		return 0, fmt.Errorf("uart decode: got %d bits, want %d", len(bits), width+2)
	}
	if bits[0] != UARTStartBit {
		return 0, fmt.Errorf("uart decode: start bit is %d, want %d", bits[0], UARTStartBit)
	}
	if bits[width+1] != UARTStopBit {
		return 0, fmt.Errorf("uart decode: stop bit is %d, want %d", bits[width+1], UARTStopBit)
	}
	var data uint64
	for i := uint(0); i < width; i++ {
		data |= uint64(bits[1+i]&1) << i
	}
	return data, nil
}
