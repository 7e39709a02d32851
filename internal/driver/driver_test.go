package driver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitbench/bitbench/internal/check"
	"github.com/bitbench/bitbench/internal/dut"
	"github.com/bitbench/bitbench/internal/pinout"
	"github.com/bitbench/bitbench/internal/sim"
)

func newUARTFixture(t *testing.T, cfg sim.Config) (*sim.Simulator, *dut.UART, *UART) {
	t.Helper()
	blocks, err := pinout.LoadDefault()
	require.NoError(t, err)
	sm := sim.New(cfg)
	u, err := dut.NewUART(sm, blocks["uart"])
	require.NoError(t, err)
	d, err := NewUART(sm, u)
	require.NoError(t, err)
	return sm, u, d
}

func newI2SFixture(t *testing.T) (*sim.Simulator, *dut.I2S, *I2S) {
	t.Helper()
	blocks, err := pinout.LoadDefault()
	require.NoError(t, err)
	sm := sim.New(sim.DefaultConfig())
	m, err := dut.NewI2S(sm, blocks["i2s"])
	require.NoError(t, err)
	d, err := NewI2S(sm, m)
	require.NoError(t, err)
	return sm, m, d
}

func TestUARTReceive_KnownPayload(t *testing.T) {
	sm, _, d := newUARTFixture(t, sim.DefaultConfig())
	err := sm.Run("main", func(task *sim.Task) error {
		return d.Receive(task, 0xA5)
	})
	require.NoError(t, err)
}

func TestUARTReceive_Random(t *testing.T) {
	r := rand.New(rand.NewSource(0x0a11))
	for rep := 0; rep < 10; rep++ {
		payload := r.Uint64() & 0xFF
		sm, _, d := newUARTFixture(t, sim.DefaultConfig())
		err := sm.Run("main", func(task *sim.Task) error {
			return d.Receive(task, payload)
		})
		require.NoErrorf(t, err, "repetition %d payload %#x", rep, payload)
	}
}

func TestUARTTransmit_KnownPayload(t *testing.T) {
	sm, _, d := newUARTFixture(t, sim.DefaultConfig())
	err := sm.Run("main", func(task *sim.Task) error {
		return d.Transmit(task, 0x5A)
	})
	require.NoError(t, err)
}

func TestUARTTransmit_Random(t *testing.T) {
	r := rand.New(rand.NewSource(0x0a12))
	for rep := 0; rep < 10; rep++ {
		payload := r.Uint64() & 0xFF
		sm, _, d := newUARTFixture(t, sim.DefaultConfig())
		err := sm.Run("main", func(task *sim.Task) error {
			return d.Transmit(task, payload)
		})
		require.NoErrorf(t, err, "repetition %d payload %#x", rep, payload)
	}
}

// Both directions run in the same bit cells with unrelated payloads; each
// is checked against its own codec frame.
func TestUARTFullDuplex_IndependentDirections(t *testing.T) {
	sm, _, d := newUARTFixture(t, sim.DefaultConfig())
	err := sm.Run("main", func(task *sim.Task) error {
		return d.FullDuplex(task, 0x3C, 0xC3)
	})
	require.NoError(t, err)

	r := rand.New(rand.NewSource(0x0a13))
	for rep := 0; rep < 5; rep++ {
		rxP, txP := r.Uint64()&0xFF, r.Uint64()&0xFF
		sm, _, d := newUARTFixture(t, sim.DefaultConfig())
		err := sm.Run("main", func(task *sim.Task) error {
			return d.FullDuplex(task, rxP, txP)
		})
		require.NoErrorf(t, err, "repetition %d rx %#x tx %#x", rep, rxP, txP)
	}
}

// An idle rx line must never produce a word, and tx must hold the idle
// level when nothing is offered for transmission.
func TestUARTIdleLine_NoSpuriousActivity(t *testing.T) {
	sm, u, d := newUARTFixture(t, sim.DefaultConfig())
	spurious := false
	armed := false
	sm.Observe(func(at sim.Time, sig *sim.Signal, old, new uint64) {
		if armed && sig == u.ReadValid && new == 1 {
			spurious = true
		}
	})
	err := sm.Run("main", func(task *sim.Task) error {
		if err := d.begin(task); err != nil {
			return err
		}
		armed = true
		k := uint(u.CyclesPerBit)
		if err := task.WaitEdges(u.Clk, 25*k, sim.Rising); err != nil {
			return err
		}
		c := check.New(sm, "uart-idle", 2)
		if err := c.ExpectEqual(check.KindFlag, u.Tx, 1, "idle tx"); err != nil {
			return err
		}
		if err := c.ExpectEqual(check.KindFlag, u.ReadValid, 0, "read_valid"); err != nil {
			return err
		}
		return c.Done()
	})
	require.NoError(t, err)
	assert.False(t, spurious, "read_valid pulsed on an idle line")
}

// With the model held out of reset but never reset, write_ready never
// rises, so the transmit handshake must fail with the timeout budget.
func TestUARTTransmit_HandshakeTimeout(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.HandshakeBudget = 10_000
	sm, u, d := newUARTFixture(t, cfg)
	err := sm.Run("main", func(task *sim.Task) error {
		d.rx.Set(1)
		d.rstN.Set(1)
		sm.StartClock("clk-gen", d.clk, sim.PeriodFor(u.ClkFreq))
		return task.WaitValue(u.WriteReady, 1)
	})
	require.Error(t, err)
	assert.True(t, sim.IsTimeout(err))
	var se *sim.SimError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sim.ErrCodeHandshakeTimeout, se.Code)
	assert.Equal(t, "write_ready", se.Signal)
}

func TestI2SReceive_KnownSamples(t *testing.T) {
	sm, _, d := newI2SFixture(t)
	samples := []uint64{0x000001, 0x7FFFFF, 0x800000, 0xFFFFFF}
	err := sm.Run("main", func(task *sim.Task) error {
		return d.Receive(task, samples)
	})
	require.NoError(t, err)
}

func TestI2SReceive_Random(t *testing.T) {
	r := rand.New(rand.NewSource(0x125a))
	for rep := 0; rep < 5; rep++ {
		samples := make([]uint64, 4)
		for i := range samples {
			samples[i] = r.Uint64() & 0xFFFFFF
		}
		sm, _, d := newI2SFixture(t)
		err := sm.Run("main", func(task *sim.Task) error {
			return d.Receive(task, samples)
		})
		require.NoErrorf(t, err, "repetition %d samples %#x", rep, samples)
	}
}

func TestI2STransmit_KnownWord(t *testing.T) {
	sm, _, d := newI2SFixture(t)
	err := sm.Run("main", func(task *sim.Task) error {
		return d.Transmit(task, 0xC0FFEE, 4)
	})
	require.NoError(t, err)
}

func TestI2STransmit_Random(t *testing.T) {
	r := rand.New(rand.NewSource(0x125b))
	for rep := 0; rep < 5; rep++ {
		word := r.Uint64() & 0xFFFFFF
		sm, _, d := newI2SFixture(t)
		err := sm.Run("main", func(task *sim.Task) error {
			return d.Transmit(task, word, 4)
		})
		require.NoErrorf(t, err, "repetition %d word %#x", rep, word)
	}
}

func TestI2SFullDuplex_IndependentDirections(t *testing.T) {
	sm, _, d := newI2SFixture(t)
	rxSamples := []uint64{0x123456, 0xABCDEF, 0x000000, 0xFFFFFF}
	err := sm.Run("main", func(task *sim.Task) error {
		return d.FullDuplex(task, rxSamples, 0x9A5E1C)
	})
	require.NoError(t, err)
}

func TestI2CIdleHold(t *testing.T) {
	blocks, err := pinout.LoadDefault()
	require.NoError(t, err)
	sm := sim.New(sim.DefaultConfig())
	c, err := dut.NewI2C(sm, blocks["i2c_main"])
	require.NoError(t, err)
	d, err := NewI2C(sm, c)
	require.NoError(t, err)
	err = sm.Run("main", func(task *sim.Task) error {
		return d.IdleHold(task, 500)
	})
	require.NoError(t, err)
}

func TestLoopbackStream_ReturnsToIdle(t *testing.T) {
	blocks, err := pinout.LoadDefault()
	require.NoError(t, err)
	sm := sim.New(sim.DefaultConfig())
	lb, err := dut.NewUARTLoopback(sm, blocks["uart_loopback"], blocks["uart"])
	require.NoError(t, err)
	d, err := NewLoopback(sm, lb)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(0x10b0))
	payloads := make([]uint64, 10)
	for i := range payloads {
		payloads[i] = r.Uint64() & 0xFF
	}
	err = sm.Run("main", func(task *sim.Task) error {
		return d.Stream(task, payloads)
	})
	require.NoError(t, err)
}

// A claimed pin cannot be claimed again; building a second driver over the
// same model must fail with a double-drive error.
func TestNewUART_SecondDriverRejected(t *testing.T) {
	sm, u, _ := newUARTFixture(t, sim.DefaultConfig())
	_, err := NewUART(sm, u)
	require.Error(t, err)
	var se *sim.SimError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sim.ErrCodeDoubleDrive, se.Code)
}
