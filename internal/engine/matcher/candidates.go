package matcher

import (
	"strings"

	"github.com/edgecomet/blockengine/internal/engine/hashutil"
	"github.com/edgecomet/blockengine/internal/engine/snapshot"
	"github.com/edgecomet/blockengine/internal/engine/urlscan"
)

// candidate is one rule surviving option and domain-constraint checks
// during A3 gathering, carrying everything precedence arbitration needs.
type candidate struct {
	RuleID   uint32
	Action   snapshot.Action
	Flags    uint16
	Priority int16
	OptionID uint32
}

// hostSuffixes returns every dot-suffix of host from most to least
// specific, stopping at (and including) floor. If floor is empty or never
// reached, it walks all the way to the bare TLD.
func hostSuffixes(host, floor string) []string {
	if host == "" {
		return nil
	}
	labels := strings.Split(host, ".")
	out := make([]string, 0, len(labels))
	for i := 0; i < len(labels); i++ {
		s := strings.Join(labels[i:], ".")
		out = append(out, s)
		if floor != "" && s == floor {
			break
		}
	}
	return out
}

func hashHost(host string) hashPair {
	h := hashutil.HashDomain(host)
	return hashPair{Lo: h.Lo, Hi: h.Hi}
}

// checkOptions applies the type/party/scheme mask check shared by every
// rule kind: a nonzero mask with no overlap against the request rejects.
func checkOptions(typeMask uint32, partyMask, schemeMask uint8, reqType RequestType, reqParty uint8, reqScheme uint8) bool {
	if typeMask != 0 && typeMask&reqType == 0 {
		return false
	}
	if partyMask != 0 && partyMask&reqParty == 0 {
		return false
	}
	if schemeMask != 0 && schemeMask&reqScheme == 0 {
		return false
	}
	return true
}

// checkDomainConstraint walks siteHost's suffixes, hashing each; an
// include list (if nonempty) requires at least one hash to appear in it,
// and any hash appearing in the exclude list rejects outright.
func checkDomainConstraint(pool snapshot.DomainConstraintPool, offset uint32, siteHost, siteETLD1 string) bool {
	if offset == snapshot.NoConstraint {
		return true
	}
	dc, ok := pool.Get(offset)
	if !ok {
		return false
	}
	if len(dc.Include) == 0 && len(dc.Exclude) == 0 {
		return true
	}

	suffixes := hostSuffixes(siteHost, siteETLD1)
	hashes := make([]uint64, 0, len(suffixes))
	for _, s := range suffixes {
		h := hashHost(s)
		hashes = append(hashes, uint64(h.Hi)<<32|uint64(h.Lo))
	}

	if len(dc.Exclude) > 0 {
		excludeSet := make(map[uint64]bool, len(dc.Exclude))
		for _, h := range dc.Exclude {
			excludeSet[h] = true
		}
		for _, h := range hashes {
			if excludeSet[h] {
				return false
			}
		}
	}

	if len(dc.Include) > 0 {
		includeSet := make(map[uint64]bool, len(dc.Include))
		for _, h := range dc.Include {
			includeSet[h] = true
		}
		for _, h := range hashes {
			if includeSet[h] {
				return true
			}
		}
		return false
	}

	return true
}

// requestActions is the set of rule actions A3 static filtering arbitrates
// over; CSP/header/removeparam/response-cancel actions belong to other
// phases and are filtered out here even if they share a posting list.
var requestActions = map[snapshot.Action]bool{
	snapshot.ActionAllow:             true,
	snapshot.ActionBlock:             true,
	snapshot.ActionRedirectDirective: true,
}

// responseActions is the set of rule actions the response-header phase
// arbitrates over.
var responseActions = map[snapshot.Action]bool{
	snapshot.ActionCspInject:        true,
	snapshot.ActionHeaderMatchBlock: true,
	snapshot.ActionHeaderMatchAllow: true,
}

// gatherCandidates implements A3's two candidate sources over the rules
// table: domain-set lookup keyed by the request host, and token-indexed
// lookup over the URL's tokenized text. allowed restricts which rule
// actions are considered, since domain sets and token postings are shared
// across request-phase and response-header-phase rules.
func (m *Matcher) gatherCandidates(ctx *RequestContext, allowed map[snapshot.Action]bool) []candidate {
	var out []candidate
	seen := make(map[uint32]bool)

	add := func(ruleID uint32) {
		if seen[ruleID] {
			return
		}
		seen[ruleID] = true
		if c, ok := m.checkRuleCandidate(ctx, ruleID, allowed); ok {
			out = append(out, c)
		}
	}

	for _, suffix := range hostSuffixes(ctx.RequestHost, ctx.requestETLD1) {
		h := hashHost(suffix)
		if off, ok := m.domains.Block.Lookup(h.Lo, h.Hi); ok {
			for _, id := range m.domains.DomainPostings(off) {
				add(id)
			}
		}
		if off, ok := m.domains.Allow.Lookup(h.Lo, h.Hi); ok {
			for _, id := range m.domains.DomainPostings(off) {
				add(id)
			}
		}
	}

	if entry, ok := m.rarestTokenEntry(ctx.URL); ok {
		for _, id := range m.postings.Get(entry.PostingsOffset, entry.RuleCount) {
			if seen[id] {
				continue
			}
			seen[id] = true
			if c, ok := m.matchPatternCandidate(ctx, id, allowed); ok {
				out = append(out, c)
			}
		}
	}

	return out
}

// rarestTokenEntry tokenizes url and returns the token-dict entry with the
// smallest posting-list count among the URL's tokens.
func (m *Matcher) rarestTokenEntry(url string) (snapshot.TokenEntry, bool) {
	_, afterScheme := urlscan.ExtractScheme(url)
	var buf [urlscan.MaxTokens]uint32
	tokens := urlscan.TokenizeURL(url, afterScheme, buf[:0])

	best := snapshot.TokenEntry{}
	found := false
	for _, tok := range tokens {
		entry, ok := m.tokens.Lookup(tok)
		if !ok {
			continue
		}
		if !found || entry.RuleCount < best.RuleCount {
			best = entry
			found = true
		}
	}
	return best, found
}

// checkRuleCandidate applies the option and domain-constraint checks to a
// rule referenced by a domain-set hit (no pattern execution: host-anchor
// rules have no pattern program).
func (m *Matcher) checkRuleCandidate(ctx *RequestContext, ruleID uint32, allowed map[snapshot.Action]bool) (candidate, bool) {
	action, ok := m.rules.Action(ruleID)
	if !ok || !allowed[action] {
		return candidate{}, false
	}
	typeMask, _ := m.rules.TypeMask(ruleID)
	partyMask, _ := m.rules.PartyMask(ruleID)
	schemeMask, _ := m.rules.SchemeMask(ruleID)
	if !checkOptions(typeMask, partyMask, schemeMask, ctx.Type, requestPartyMask(ctx), requestSchemeMask(ctx)) {
		return candidate{}, false
	}
	constraintOffset, _ := m.rules.ConstraintOffset(ruleID)
	if !checkDomainConstraint(m.constraints, constraintOffset, ctx.effectiveSiteHost(), ctx.siteETLD1) {
		return candidate{}, false
	}
	flags, _ := m.rules.Flags(ruleID)
	priority, _ := m.rules.Priority(ruleID)
	optionID, _ := m.rules.OptionID(ruleID)
	return candidate{RuleID: ruleID, Action: action, Flags: flags, Priority: priority, OptionID: optionID}, true
}

// matchPatternCandidate additionally executes the rule's pattern VM (if it
// has one) against the request URL.
func (m *Matcher) matchPatternCandidate(ctx *RequestContext, ruleID uint32, allowed map[snapshot.Action]bool) (candidate, bool) {
	c, ok := m.checkRuleCandidate(ctx, ruleID, allowed)
	if !ok {
		return candidate{}, false
	}
	patternID, _ := m.rules.PatternID(ruleID)
	if patternID == snapshot.NoPattern {
		return c, true
	}
	entry, ok := m.patterns.GetPattern(patternID)
	if !ok {
		return candidate{}, false
	}
	program := m.patterns.GetProgram(entry)

	_, afterScheme := urlscan.ExtractScheme(ctx.URL)
	_, hostEnd := urlscan.GetHostPosition(ctx.URL, afterScheme)

	suffixes := hostSuffixes(ctx.RequestHost, ctx.requestETLD1)
	hashes := make([]hashPair, 0, len(suffixes))
	for _, s := range suffixes {
		hashes = append(hashes, hashHost(s))
	}

	if !runPattern(entry, program, ctx.URL, hostEnd, hashes, m.resolveLiteral) {
		return candidate{}, false
	}
	return c, true
}

func (m *Matcher) resolveLiteral(offset uint32, length int) (string, bool) {
	s := m.snap.GetString(offset)
	if len(s) != length {
		return "", false
	}
	return s, true
}

func requestPartyMask(ctx *RequestContext) uint8 {
	if ctx.thirdParty {
		return snapshot.PartyThird
	}
	return snapshot.PartyFirst
}

func requestSchemeMask(ctx *RequestContext) uint8 {
	switch ctx.Scheme {
	case urlscan.SchemeHTTP:
		return snapshot.SchemeHTTP
	case urlscan.SchemeHTTPS:
		return snapshot.SchemeHTTPS
	case urlscan.SchemeWS:
		return snapshot.SchemeWS
	case urlscan.SchemeWSS:
		return snapshot.SchemeWSS
	case urlscan.SchemeData:
		return snapshot.SchemeData
	case urlscan.SchemeFTP:
		return snapshot.SchemeFTP
	default:
		return 0
	}
}
