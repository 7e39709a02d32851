package bench

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/bitbench/bitbench/internal/driver"
	"github.com/bitbench/bitbench/internal/dut"
	"github.com/bitbench/bitbench/internal/pinout"
	"github.com/bitbench/bitbench/internal/sim"
)

// Default stimulus sizes per protocol, matching the transaction shapes the
// drivers check.
const (
	defaultI2SSamples     = 4
	defaultLoopbackFrames = 10
	defaultI2CHoldCycles  = 1000
	uartWordMask          = 0xFF
)

// Repetition is the verdict of one scenario repetition.
type Repetition struct {
	Index int
	// Seed reproduces this repetition in isolation.
	Seed int64
	// Words is the stimulus actually driven, randomized or fixed.
	Words []uint64
	// SimTimeNs is the simulated time the repetition consumed.
	SimTimeNs uint64
	// Trace is the recorded signal-change trace, when enabled.
	Trace []byte
	Err   error
}

// Result collects one run of a scenario.
type Result struct {
	RunID     string
	Scenario  *Scenario
	StartedAt time.Time
	Reps      []Repetition
}

// Passed reports whether every executed repetition succeeded.
func (r *Result) Passed() bool {
	for i := range r.Reps {
		if r.Reps[i].Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the first failing repetition, or nil.
func (r *Result) Failed() *Repetition {
	for i := range r.Reps {
		if r.Reps[i].Err != nil {
			return &r.Reps[i]
		}
	}
	return nil
}

// Runner executes scenarios against the built-in pinout declarations.
type Runner struct {
	log    *slog.Logger
	blocks map[string]pinout.Block

	// GenerateID produces run IDs. Defaults to random UUIDs; tests install
	// a deterministic generator.
	GenerateID func() string
}

// NewRunner loads the pinout declarations. A nil logger discards output.
func NewRunner(log *slog.Logger) (*Runner, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	blocks, err := pinout.LoadDefault()
	if err != nil {
		return nil, err
	}
	return &Runner{log: log, blocks: blocks, GenerateID: uuid.NewString}, nil
}

// Run executes the scenario's repetitions, each on a fresh simulator so no
// circuit state leaks between them. The run stops at the first failing
// repetition; earlier verdicts are kept so the failing index and its seed
// are reportable.
func (r *Runner) Run(sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	res := &Result{
		RunID:     r.GenerateID(),
		Scenario:  sc,
		StartedAt: time.Now().UTC(),
	}
	r.log.Info("scenario start",
		"run_id", res.RunID, "scenario", sc.Name,
		"protocol", sc.Protocol, "direction", sc.Direction,
		"repeats", sc.Repeats, "seed", sc.Seed)
	for i := 0; i < sc.Repeats; i++ {
		rep := r.runOnce(sc, i)
		res.Reps = append(res.Reps, rep)
		if rep.Err != nil {
			r.log.Error("repetition failed",
				"scenario", sc.Name, "repetition", i, "seed", rep.Seed,
				"sim_time_ns", rep.SimTimeNs, "err", rep.Err)
			break
		}
		r.log.Debug("repetition passed",
			"scenario", sc.Name, "repetition", i, "sim_time_ns", rep.SimTimeNs)
	}
	return res, nil
}

func (r *Runner) runOnce(sc *Scenario, index int) Repetition {
	rep := Repetition{Index: index, Seed: sc.Seed + int64(index)}
	cfg := sim.DefaultConfig()
	if sc.HandshakeBudgetNs > 0 {
		cfg.HandshakeBudget = sim.Time(sc.HandshakeBudgetNs)
	}
	if sc.MaxTimeNs > 0 {
		cfg.MaxTime = sim.Time(sc.MaxTimeNs)
	}
	sm := sim.New(cfg)
	var rec *TraceRecorder
	if sc.Trace {
		rec = NewTraceRecorder()
		rec.Attach(sm)
	}
	rep.Err = r.dispatch(sm, sc, &rep)
	rep.SimTimeNs = uint64(sm.Now())
	if rec != nil {
		rep.Trace = rec.Bytes()
	}
	return rep
}

// dispatch builds the model and driver for the scenario's protocol and
// runs one transaction as the simulation's main task.
func (r *Runner) dispatch(sm *sim.Simulator, sc *Scenario, rep *Repetition) error {
	rng := rand.New(rand.NewSource(rep.Seed))
	switch sc.Protocol {
	case ProtocolUART:
		blk := overrideParams(r.blocks["uart"], sc.Params)
		u, err := dut.NewUART(sm, blk)
		if err != nil {
			return err
		}
		d, err := driver.NewUART(sm, u)
		if err != nil {
			return err
		}
		n := 1
		if sc.Direction == DirectionFullDuplex {
			n = 2
		}
		words, err := sc.draw(rng, n, uartWordMask)
		if err != nil {
			return err
		}
		rep.Words = words
		return sm.Run(sc.Name, func(t *sim.Task) error {
			switch sc.Direction {
			case DirectionTransmit:
				return d.Transmit(t, words[0])
			case DirectionFullDuplex:
				return d.FullDuplex(t, words[0], words[1])
			default:
				return d.Receive(t, words[0])
			}
		})

	case ProtocolI2S:
		blk := overrideParams(r.blocks["i2s"], sc.Params)
		m, err := dut.NewI2S(sm, blk)
		if err != nil {
			return err
		}
		d, err := driver.NewI2S(sm, m)
		if err != nil {
			return err
		}
		samples := sc.Samples
		if samples == 0 {
			samples = defaultI2SSamples
		}
		mask := uint64(1)<<m.BitDepth - 1
		n := samples
		switch sc.Direction {
		case DirectionTransmit:
			n = 1
		case DirectionFullDuplex:
			// rx samples plus the tx word
			n = samples + 1
		}
		words, err := sc.draw(rng, n, mask)
		if err != nil {
			return err
		}
		rep.Words = words
		return sm.Run(sc.Name, func(t *sim.Task) error {
			switch sc.Direction {
			case DirectionTransmit:
				return d.Transmit(t, words[0], samples)
			case DirectionFullDuplex:
				return d.FullDuplex(t, words[:samples], words[samples])
			default:
				return d.Receive(t, words)
			}
		})

	case ProtocolI2C:
		blk := overrideParams(r.blocks["i2c_main"], sc.Params)
		c, err := dut.NewI2C(sm, blk)
		if err != nil {
			return err
		}
		d, err := driver.NewI2C(sm, c)
		if err != nil {
			return err
		}
		hold := sc.HoldCycles
		if hold == 0 {
			hold = defaultI2CHoldCycles
		}
		return sm.Run(sc.Name, func(t *sim.Task) error {
			return d.IdleHold(t, hold)
		})

	case ProtocolLoopback:
		top := overrideParams(r.blocks["uart_loopback"], sc.Params)
		inner := overrideParams(r.blocks["uart"], sc.Params)
		lb, err := dut.NewUARTLoopback(sm, top, inner)
		if err != nil {
			return err
		}
		d, err := driver.NewLoopback(sm, lb)
		if err != nil {
			return err
		}
		frames := sc.Samples
		if frames == 0 {
			frames = defaultLoopbackFrames
		}
		words, err := sc.draw(rng, frames, uartWordMask)
		if err != nil {
			return err
		}
		rep.Words = words
		return sm.Run(sc.Name, func(t *sim.Task) error {
			return d.Stream(t, words)
		})
	}
	return fmt.Errorf("bench: unknown protocol %q", sc.Protocol)
}

// draw returns the repetition's stimulus words: the scenario's fixed words
// when given, otherwise n values from the seeded generator.
func (s *Scenario) draw(rng *rand.Rand, n int, mask uint64) ([]uint64, error) {
	if len(s.Words) > 0 {
		if len(s.Words) < n {
			return nil, fmt.Errorf("bench: scenario %s fixes %d words, transaction needs %d", s.Name, len(s.Words), n)
		}
		words := make([]uint64, n)
		for i := range words {
			words[i] = s.Words[i] & mask
		}
		return words, nil
	}
	words := make([]uint64, n)
	for i := range words {
		words[i] = rng.Uint64() & mask
	}
	return words, nil
}

// overrideParams returns blk with the scenario's parameter overrides
// applied to a copied parameter map.
func overrideParams(blk pinout.Block, params map[string]int64) pinout.Block {
	if len(params) == 0 {
		return blk
	}
	merged := make(map[string]int64, len(blk.Params)+len(params))
	for k, v := range blk.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	blk.Params = merged
	return blk
}
