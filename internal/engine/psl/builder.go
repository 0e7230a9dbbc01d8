package psl

import (
	"sort"

	"github.com/edgecomet/blockengine/internal/engine/hashutil"
	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// pslSeedLo/pslSeedHi are recorded in the built hash table's header for
// diagnostic purposes only; Lookup probes by the stored key bits, not by
// reapplying a seed, so any fixed constants are safe here.
const (
	pslSeedLo = 0x9e3779b9
	pslSeedHi = 0x85ebca6b
)

// RuleText is one parsed PSL source line's effective rule: a suffix string
// and which of the three sets it belongs to.
type RuleText struct {
	Exact     []string
	Wildcard  []string
	Exception []string
}

// ParseRules splits raw PSL source text (one rule per line, "//" comments
// and blank lines ignored) into the three rule categories: a leading "!"
// marks an exception, a leading "*." marks a wildcard (stored with the
// "*." stripped), anything else is an exact suffix.
func ParseRules(lines []string) RuleText {
	var rt RuleText
	for _, line := range lines {
		line = trimRule(line)
		if line == "" {
			continue
		}
		switch {
		case line[0] == '!':
			rt.Exception = append(rt.Exception, line[1:])
		case len(line) > 2 && line[0] == '*' && line[1] == '.':
			rt.Wildcard = append(rt.Wildcard, line[2:])
		default:
			rt.Exact = append(rt.Exact, line)
		}
	}
	return rt
}

func trimRule(line string) string {
	// strip a "// comment" suffix and surrounding whitespace
	for i := 0; i+1 < len(line); i++ {
		if line[i] == '/' && line[i+1] == '/' {
			line = line[:i]
			break
		}
	}
	start, end := 0, len(line)
	for start < end && isSpace(line[start]) {
		start++
	}
	for end > start && isSpace(line[end-1]) {
		end--
	}
	return line[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

// BuildSection encodes RuleText into the PslSets section's byte layout:
// three length-prefixed DomainHashSet blocks (exact, wildcard, exception),
// each a membership-only hash set keyed by hash_domain of the sorted,
// deduplicated rule strings.
func BuildSection(rt RuleText) []byte {
	encode := func(rules []string) []byte {
		uniq := dedupeSorted(rules)
		entries := make(map[uint64]uint32, len(uniq))
		for _, rule := range uniq {
			h := hashutil.HashDomain(rule)
			entries[h.ToU64()] = 1
		}
		return snapshot.BuildDomainHashSet(entries, pslSeedLo, pslSeedHi)
	}

	exact := encode(rt.Exact)
	wildcard := encode(rt.Wildcard)
	exception := encode(rt.Exception)

	out := make([]byte, 0, 12+len(exact)+len(wildcard)+len(exception))
	out = appendLenPrefixed(out, exact)
	out = appendLenPrefixed(out, wildcard)
	out = appendLenPrefixed(out, exception)
	return out
}

func appendLenPrefixed(dst, body []byte) []byte {
	var lenBuf [4]byte
	n := uint32(len(body))
	lenBuf[0] = byte(n)
	lenBuf[1] = byte(n >> 8)
	lenBuf[2] = byte(n >> 16)
	lenBuf[3] = byte(n >> 24)
	dst = append(dst, lenBuf[:]...)
	return append(dst, body...)
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sorted := append([]string(nil), in...)
	sort.Strings(sorted)
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
