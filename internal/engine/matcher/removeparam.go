package matcher

import (
	"strings"
	"sync"
	"time"

	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// removeparamKey identifies one dedup-cache entry.
type removeparamKey struct {
	TabID       int64
	FrameID     int64
	OriginalURL string
}

// removeparamCache suppresses repeat rewrites of the same (tab, frame, url)
// triple for removeparamDedupTTLSeconds, so a rewritten request that
// re-enters the pipeline doesn't loop.
type removeparamCache struct {
	mu      sync.Mutex
	entries map[removeparamKey]time.Time
}

func newRemoveparamCache() *removeparamCache {
	return &removeparamCache{entries: make(map[removeparamKey]time.Time)}
}

// seen reports whether key was marked within the TTL window, purging
// expired entries it happens to walk past.
func (c *removeparamCache) seen(key removeparamKey, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.entries[key]
	if ok && now.Sub(ts) < removeparamDedupTTLSeconds*time.Second {
		return true
	}
	if ok {
		delete(c.entries, key)
	}
	return false
}

func (c *removeparamCache) mark(key removeparamKey, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = now
	for k, ts := range c.entries {
		if now.Sub(ts) >= removeparamDedupTTLSeconds*time.Second {
			delete(c.entries, k)
		}
	}
}

// removeparamActions is the subset of rule actions A2 considers: the
// active Removeparam rewrite rule and Allow rules that may except it.
var removeparamActions = map[snapshot.Action]bool{
	snapshot.ActionRemoveparam: true,
	snapshot.ActionAllow:       true,
}

// matchRemoveparam implements A2: gather removeparam candidates, collect
// the union of keys from every active (non-excepted) rule, and rewrite the
// URL's query string. Returns (rewrittenURL, true) if the URL changed.
func (m *Matcher) matchRemoveparam(ctx *RequestContext, now time.Time) (string, bool) {
	key := removeparamKey{TabID: ctx.TabID, FrameID: ctx.FrameID, OriginalURL: ctx.URL}
	if m.removeparamCache.seen(key, now) {
		return "", false
	}

	candidates := m.gatherCandidates(ctx, removeparamActions)

	exceptedOptionIDs := make(map[uint32]bool)
	for _, c := range candidates {
		if c.Action == snapshot.ActionAllow && c.OptionID != snapshot.NoOption {
			exceptedOptionIDs[c.OptionID] = true
		}
	}

	keyUnion := make(map[string]bool)
	for _, c := range candidates {
		if c.Action != snapshot.ActionRemoveparam {
			continue
		}
		if exceptedOptionIDs[c.OptionID] {
			continue
		}
		entry, ok := m.removeparamSpecs.Get(c.OptionID)
		if !ok {
			continue
		}
		if entry.Flags&snapshot.RemoveparamFlagNegate != 0 {
			continue
		}
		keysText := m.snap.GetString(entry.KeysOffset)
		for _, k := range strings.Split(keysText, ",") {
			if k != "" {
				keyUnion[k] = true
			}
		}
	}

	if len(keyUnion) == 0 {
		return "", false
	}

	rewritten := rewriteURLDroppingKeys(ctx.URL, keyUnion)
	if rewritten == ctx.URL {
		return "", false
	}
	m.removeparamCache.mark(key, now)
	return rewritten, true
}

// rewriteURLDroppingKeys parses the query string between '?' and '#',
// dropping any "key" or "key=value" pair whose key is in drop.
func rewriteURLDroppingKeys(url string, drop map[string]bool) string {
	qStart := strings.IndexByte(url, '?')
	if qStart < 0 {
		return url
	}
	rest := url[qStart+1:]
	fragment := ""
	if h := strings.IndexByte(rest, '#'); h >= 0 {
		fragment = rest[h:]
		rest = rest[:h]
	}

	pairs := strings.Split(rest, "&")
	kept := pairs[:0:0]
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		k := pair
		if eq := strings.IndexByte(pair, '='); eq >= 0 {
			k = pair[:eq]
		}
		if drop[k] {
			continue
		}
		kept = append(kept, pair)
	}

	base := url[:qStart]
	if len(kept) == 0 {
		return base + fragment
	}
	return base + "?" + strings.Join(kept, "&") + fragment
}
