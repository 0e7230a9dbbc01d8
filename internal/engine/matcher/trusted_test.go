package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustedSiteSetAddContainsRemove(t *testing.T) {
	s := newTrustedSiteSet()
	assert.False(t, s.Contains("example.com"))

	s.Add("example.com")
	assert.True(t, s.Contains("example.com"))

	s.Remove("example.com")
	assert.False(t, s.Contains("example.com"))
}
