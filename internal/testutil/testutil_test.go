package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_Sequence(t *testing.T) {
	g := NewFixedIDGenerator("bench")
	assert.Equal(t, "bench-000001", g.Next())
	assert.Equal(t, "bench-000002", g.Next())
	g.Reset()
	assert.Equal(t, "bench-000001", g.Next())
}

func TestFixedIDGenerator_DefaultPrefix(t *testing.T) {
	g := NewFixedIDGenerator("")
	assert.Equal(t, "test-run-000001", g.Next())
}

func TestWords_Deterministic(t *testing.T) {
	a := Words(42, 4, 0xFF)
	b := Words(42, 4, 0xFF)
	assert.Equal(t, a, b)
	for _, w := range a {
		assert.LessOrEqual(t, w, uint64(0xFF))
	}
	assert.NotEqual(t, a, Words(43, 4, 0xFF))
}
