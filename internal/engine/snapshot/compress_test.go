package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressSectionRoundTripSnappy(t *testing.T) {
	raw := []byte("the quick brown fox jumps over the lazy dog, repeated, the quick brown fox jumps over the lazy dog")
	compressed, err := compressSection(raw, SecFlagSnappy)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(raw))

	decompressed, err := decompressSection(compressed, SecFlagSnappy, uint32(len(raw)))
	require.NoError(t, err)
	assert.Equal(t, raw, decompressed)
}

func TestCompressSectionRoundTripLZ4(t *testing.T) {
	raw := []byte("the quick brown fox jumps over the lazy dog, repeated, the quick brown fox jumps over the lazy dog")
	compressed, err := compressSection(raw, SecFlagLZ4)
	require.NoError(t, err)

	decompressed, err := decompressSection(compressed, SecFlagLZ4, uint32(len(raw)))
	require.NoError(t, err)
	assert.Equal(t, raw, decompressed)
}

func TestCompressSectionPassthrough(t *testing.T) {
	raw := []byte("uncompressed")
	out, err := compressSection(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestCompressSectionUnknownFlag(t *testing.T) {
	_, err := compressSection([]byte("x"), 0xff)
	assert.Error(t, err)
}
