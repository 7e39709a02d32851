package codec

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bitString(bits []uint8) string {
	var b bytes.Buffer
	for _, bit := range bits {
		fmt.Fprintf(&b, "%d", bit)
	}
	return b.String()
}

func TestUARTEncode_Frame(t *testing.T) {
	bits := UARTEncode(0xA5, 8)
	require.Len(t, bits, 10, "start + 8 data + stop")
	assert.Equal(t, uint8(0), bits[0], "start bit")
	assert.Equal(t, uint8(1), bits[9], "stop bit")
	// 0xA5 = 1010_0101, sent LSB-first.
	assert.Equal(t, "0101001011", bitString(bits))
}

func TestUART_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for width := uint(1); width <= 16; width++ {
		max := uint64(1)<<width - 1
		values := []uint64{0, 1, max, max >> 1}
		for i := 0; i < 8; i++ {
			values = append(values, r.Uint64()&max)
		}
		for _, v := range values {
			got, err := UARTDecode(UARTEncode(v, width), width)
			require.NoError(t, err, "width %d value %#x", width, v)
			assert.Equal(t, v, got, "width %d", width)
		}
	}
}

func TestUARTDecode_BadFraming(t *testing.T) {
	tests := []struct {
		name string
		bits []uint8
	}{
		{"short", []uint8{0, 1, 1}},
		{"bad start", append([]uint8{1}, UARTEncode(0x42, 8)[1:]...)},
		{"bad stop", append(UARTEncode(0x42, 8)[:9], 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UARTDecode(tt.bits, 8)
			assert.Error(t, err)
		})
	}
}

func TestI2SEncode_MSBFirst(t *testing.T) {
	bits := I2SEncode(0x800000, 24)
	require.Len(t, bits, 24)
	assert.Equal(t, uint8(1), bits[0], "MSB first")
	for i := 1; i < 24; i++ {
		assert.Equal(t, uint8(0), bits[i])
	}
}

func TestI2S_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for width := uint(1); width <= 24; width++ {
		max := uint64(1)<<width - 1
		values := []uint64{0, 1, max, max >> 1}
		for i := 0; i < 8; i++ {
			values = append(values, r.Uint64()&max)
		}
		for _, v := range values {
			got, err := I2SDecode(I2SEncode(v, width), width)
			require.NoError(t, err, "width %d value %#x", width, v)
			assert.Equal(t, v, got, "width %d", width)
		}
	}
}

func TestI2SDecode_BadLength(t *testing.T) {
	_, err := I2SDecode([]uint8{1, 0, 1}, 24)
	assert.Error(t, err)
}

func TestI2SPadBits(t *testing.T) {
	assert.Equal(t, uint(8), I2SPadBits(24))
	assert.Equal(t, uint(0), I2SPadBits(32))
	assert.Equal(t, uint(0), I2SPadBits(40))
}

func TestUARTEncode_Golden(t *testing.T) {
	var buf bytes.Buffer
	for _, v := range []uint64{0x00, 0x0F, 0xA5, 0xFF} {
		fmt.Fprintf(&buf, "0x%02X -> %s\n", v, bitString(UARTEncode(v, 8)))
	}
	g := goldie.New(t)
	g.Assert(t, "uart_frames", buf.Bytes())
}

func TestI2SEncode_Golden(t *testing.T) {
	var buf bytes.Buffer
	for _, v := range []uint64{0x000001, 0x7FFFFF, 0x800000, 0xFFFFFF} {
		fmt.Fprintf(&buf, "0x%06X -> %s\n", v, bitString(I2SEncode(v, 24)))
	}
	g := goldie.New(t)
	g.Assert(t, "i2s_frames", buf.Bytes())
}
