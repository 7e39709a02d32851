package bench

import (
	"bytes"
	"fmt"

	"github.com/bitbench/bitbench/internal/sim"
)

// TraceRecorder turns a simulator's signal changes into a deterministic
// textual trace, one line per change. Clock nets toggle every half period
// and would drown the interesting transitions, so they are skipped by
// default.
type TraceRecorder struct {
	skip map[string]bool
	buf  bytes.Buffer
}

// NewTraceRecorder creates a recorder that ignores the named signals. With
// no arguments the raw clock nets clk, mclk, and bclk are skipped.
func NewTraceRecorder(skip ...string) *TraceRecorder {
	if len(skip) == 0 {
		skip = []string{"clk", "mclk", "bclk"}
	}
	r := &TraceRecorder{skip: make(map[string]bool, len(skip))}
	for _, name := range skip {
		r.skip[name] = true
	}
	return r
}

// Attach registers the recorder as the simulator's observer.
func (r *TraceRecorder) Attach(sm *sim.Simulator) {
	sm.Observe(func(at sim.Time, sig *sim.Signal, old, new uint64) {
		if r.skip[sig.Name()] {
			return
		}
		fmt.Fprintf(&r.buf, "t=%dns %s %#x -> %#x\n", at, sig.Name(), old, new)
	})
}

// Bytes returns the trace recorded so far.
func (r *TraceRecorder) Bytes() []byte { return r.buf.Bytes() }
