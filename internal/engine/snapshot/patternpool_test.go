package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternPoolRoundTrip(t *testing.T) {
	var b PatternBuilder
	prog1 := []byte{OpAssertStart, OpFindLit, OpDone}
	prog2 := []byte{OpSkipAny, OpDone}
	id1 := b.AddProgram(AnchorLeft, 0, 0, 0, prog1)
	id2 := b.AddProgram(AnchorHostname, 1, 0xdead, 0xbeef, prog2)

	raw := b.Build()
	pool, ok := ParsePatternPool(raw)
	require.True(t, ok)

	e1, ok := pool.GetPattern(id1)
	require.True(t, ok)
	assert.Equal(t, AnchorLeft, e1.Anchor)
	assert.False(t, e1.HasHostHash())
	assert.Equal(t, prog1, pool.GetProgram(e1))

	e2, ok := pool.GetPattern(id2)
	require.True(t, ok)
	assert.Equal(t, AnchorHostname, e2.Anchor)
	assert.True(t, e2.HasHostHash())
	assert.Equal(t, prog2, pool.GetProgram(e2))

	_, ok = pool.GetPattern(99)
	assert.False(t, ok)
}
