package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrPoolBuilderDedupes(t *testing.T) {
	var b StrPoolBuilder
	off1 := b.Intern("example.com")
	off2 := b.Intern("example.org")
	off3 := b.Intern("example.com")
	assert.Equal(t, off1, off3)
	assert.NotEqual(t, off1, off2)

	pool := ParseStrPool(b.Build())
	s1, ok := pool.Get(off1)
	require.True(t, ok)
	assert.Equal(t, "example.com", s1)

	s2, ok := pool.Get(off2)
	require.True(t, ok)
	assert.Equal(t, "example.org", s2)
}

func TestStrPoolGetOutOfRange(t *testing.T) {
	pool := ParseStrPool([]byte{1, 2})
	_, ok := pool.Get(0)
	assert.False(t, ok)
}

func TestStrPoolGetTruncatedBody(t *testing.T) {
	var b StrPoolBuilder
	b.Intern("hello")
	raw := b.Build()
	pool := ParseStrPool(raw[:len(raw)-2])
	_, ok := pool.Get(0)
	assert.False(t, ok)
}
