// Package psl resolves the registrable domain (eTLD+1) of a hostname
// against a Public Suffix List loaded from a snapshot's PslSets section,
// with an LRU result cache and a fallback heuristic when no PSL data is
// available.
package psl

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/edgecomet/blockengine/internal/engine/hashutil"
	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// cacheSize is the LRU result cache's fixed entry budget.
const cacheSize = 4096

// commonTwoPartTLDs are suffixes whose registrable domain needs three
// labels, not two, when the fallback heuristic (no PSL data loaded) is in
// effect.
var commonTwoPartTLDs = map[string]bool{
	"co.uk": true, "org.uk": true, "ac.uk": true, "gov.uk": true,
	"com.au": true, "net.au": true, "org.au": true,
	"co.jp": true, "ne.jp": true, "or.jp": true,
	"co.nz": true, "co.za": true, "co.in": true,
	"com.br": true, "com.cn": true, "com.mx": true,
}

// Sets is the three PSL rule sets decoded from a PslSets section: exact
// suffixes, wildcard suffixes (the leading "*." already stripped), and
// exception rules (the leading "!" already stripped).
type Sets struct {
	Exact     snapshot.DomainHashSet
	Wildcard  snapshot.DomainHashSet
	Exception snapshot.DomainHashSet
}

// Resolver computes eTLD+1 for hostnames, backed by an optional Sets loaded
// from a snapshot and a process-wide LRU cache of prior results.
type Resolver struct {
	sets  *Sets
	cache *lru.Cache
}

// NewResolver builds a resolver. sets may be nil, in which case Resolve
// always uses the last-two/last-three-label fallback heuristic.
func NewResolver(sets *Sets) *Resolver {
	cache, err := lru.New(cacheSize)
	if err != nil {
		// lru.New only errors on a non-positive size, which cacheSize never is.
		panic(err)
	}
	return &Resolver{sets: sets, cache: cache}
}

// ParseSets decodes the three hash sets from a PslSets section's raw bytes.
// Layout: [u32 len][exact DomainHashSet][u32 len][wildcard DomainHashSet]
// [u32 len][exception DomainHashSet].
func ParseSets(data []byte) (Sets, bool) {
	readSet := func(pos int) (snapshot.DomainHashSet, int, bool) {
		if pos+4 > len(data) {
			return snapshot.DomainHashSet{}, 0, false
		}
		n := int(le32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return snapshot.DomainHashSet{}, 0, false
		}
		set, ok := snapshot.NewDomainHashSet(data[pos : pos+n])
		return set, pos + n, ok
	}

	exact, pos, ok := readSet(0)
	if !ok {
		return Sets{}, false
	}
	wildcard, pos, ok := readSet(pos)
	if !ok {
		return Sets{}, false
	}
	exception, _, ok := readSet(pos)
	if !ok {
		return Sets{}, false
	}
	return Sets{Exact: exact, Wildcard: wildcard, Exception: exception}, true
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func lookupMember(set snapshot.DomainHashSet, suffix string) bool {
	h := hashutil.HashDomain(suffix)
	_, ok := set.Lookup(h.Lo, h.Hi)
	return ok
}

// Resolve returns the registrable domain (eTLD+1) for host. host is
// lowercased internally; results are cached by the lowercased form.
func (r *Resolver) Resolve(host string) string {
	host = strings.ToLower(host)
	if v, ok := r.cache.Get(host); ok {
		return v.(string)
	}
	result := r.resolveUncached(host)
	r.cache.Add(host, result)
	return result
}

func (r *Resolver) resolveUncached(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}

	if r.sets == nil {
		return fallback(labels)
	}

	for i := 0; i < len(labels)-1; i++ {
		suffix := strings.Join(labels[i:], ".")

		if lookupMember(r.sets.Exception, suffix) {
			// Exceptions outrank wildcards: an exception rule names a
			// string that would otherwise fall under a wildcard suffix
			// but is itself a valid registrable domain, so the matched
			// suffix *is* the eTLD+1 (no extra label is prepended).
			return suffix
		}
		if lookupMember(r.sets.Exact, suffix) {
			if i == 0 {
				return suffix
			}
			return strings.Join(labels[i-1:], ".")
		}
		if i > 0 && lookupMember(r.sets.Wildcard, strings.Join(labels[i+1:], ".")) {
			return strings.Join(labels[i-1:], ".")
		}
	}

	return fallback(labels)
}

// fallback returns the last two labels, widened to three when they match a
// hard-coded common two-part TLD (e.g. "co.uk").
func fallback(labels []string) string {
	n := len(labels)
	lastTwo := strings.Join(labels[n-2:], ".")
	if n >= 3 && commonTwoPartTLDs[lastTwo] {
		return strings.Join(labels[n-3:], ".")
	}
	return lastTwo
}

// IsThirdParty reports whether site and req resolve to different eTLD+1s.
func (r *Resolver) IsThirdParty(site, req string) bool {
	return r.Resolve(site) != r.Resolve(req)
}
