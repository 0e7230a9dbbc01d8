package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRewriteURLDroppingKeysDropsMatchingPairs(t *testing.T) {
	out := rewriteURLDroppingKeys("https://x.com/p?utm_source=a&y=1&utm_medium=b", map[string]bool{"utm_source": true, "utm_medium": true})
	assert.Equal(t, "https://x.com/p?y=1", out)
}

func TestRewriteURLDroppingKeysPreservesFragment(t *testing.T) {
	out := rewriteURLDroppingKeys("https://x.com/p?a=1&drop=1#frag", map[string]bool{"drop": true})
	assert.Equal(t, "https://x.com/p?a=1#frag", out)
}

func TestRewriteURLDroppingKeysNoQueryIsUnchanged(t *testing.T) {
	out := rewriteURLDroppingKeys("https://x.com/p", map[string]bool{"a": true})
	assert.Equal(t, "https://x.com/p", out)
}

func TestRewriteURLDroppingKeysDroppingEverythingRemovesQuestionMark(t *testing.T) {
	out := rewriteURLDroppingKeys("https://x.com/p?a=1", map[string]bool{"a": true})
	assert.Equal(t, "https://x.com/p", out)
}

func TestRewriteURLDroppingKeysKeyWithoutValue(t *testing.T) {
	out := rewriteURLDroppingKeys("https://x.com/p?flag&a=1", map[string]bool{"flag": true})
	assert.Equal(t, "https://x.com/p?a=1", out)
}

func TestRemoveparamCacheSeenWithinTTL(t *testing.T) {
	c := newRemoveparamCache()
	key := removeparamKey{TabID: 1, FrameID: 1, OriginalURL: "https://x.com/p?a=1"}
	now := time.Unix(1000, 0)

	assert.False(t, c.seen(key, now))
	c.mark(key, now)
	assert.True(t, c.seen(key, now.Add(5*time.Second)))
}

func TestRemoveparamCacheExpiresAfterTTL(t *testing.T) {
	c := newRemoveparamCache()
	key := removeparamKey{TabID: 1, FrameID: 1, OriginalURL: "https://x.com/p?a=1"}
	now := time.Unix(1000, 0)

	c.mark(key, now)
	assert.False(t, c.seen(key, now.Add(11*time.Second)))
}
