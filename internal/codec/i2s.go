package codec

import "fmt"

// I2SSlotBits is the fixed slot length in bit-clock cycles per channel.
// Samples narrower than the slot are zero-padded up to this length; the
// frame boundary itself is marked by the channel-select toggle, which the
// driver owns, not the codec.
const I2SSlotBits = 32

// I2SEncode returns the sample's bit sequence MSB-first, width bits long.
// Callers pad to I2SSlotBits when driving a line.
func I2SEncode(data uint64, width uint) []uint8 {
	bits := make([]uint8, width)
	for i := uint(0); i < width; i++ {
		bits[i] = uint8((data >> (width - i - 1)) & 1)
	}
	return bits
}

// I2SDecode reassembles an MSB-first sampled bit sequence into a word.
func I2SDecode(bits []uint8, width uint) (uint64, error) {
	if uint(len(bits)) != width {
		return 0, fmt.Errorf("i2s decode: got %d bits, want %d", len(bits), width)
	}
	var data uint64
	for i := uint(0); i < width; i++ {
		data |= uint64(bits[i]&1) << (width - i - 1)
	}
	return data, nil
}

// I2SPadBits returns how many zero cycles follow a sample of the given
// width inside its slot.
func I2SPadBits(width uint) uint {
	if width > I2SSlotBits {
		return 0
	}
	return I2SSlotBits - width
}
