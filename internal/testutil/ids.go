// Package testutil provides deterministic stand-ins for the bench's
// sources of nondeterminism, so tests and golden comparisons are
// byte-stable across runs.
package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator produces sequential run IDs with a fixed prefix.
//
// The production runner uses random UUIDs; installing a FixedIDGenerator
// makes stored runs and golden output reproducible.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator. An empty prefix defaults to
// "test-run".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Next returns the next ID, starting at <prefix>-000001.
func (g *FixedIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}

// Reset restarts the sequence.
func (g *FixedIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
