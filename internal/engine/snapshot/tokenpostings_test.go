package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenPostingsRoundTrip(t *testing.T) {
	var b TokenPostingsBuilder
	offset := b.Add([]uint32{4, 9, 20})

	postings := ParseTokenPostings(b.Build())
	assert.Equal(t, []uint32{4, 9, 20}, postings.Get(offset, 3))
}

func TestTokenPostingsOutOfRange(t *testing.T) {
	postings := ParseTokenPostings([]byte{1, 2})
	assert.Nil(t, postings.Get(0, 5))
}
