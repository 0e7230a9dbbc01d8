package matcher

import (
	"fmt"

	"github.com/edgecomet/blockengine/internal/engine/psl"
	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// Matcher evaluates the request, response-header, and cosmetic phases
// against one loaded, immutable snapshot. A Matcher is safe for concurrent
// use: read paths take no lock on the snapshot itself, and the small
// amount of mutable runtime state (trusted sites, dynamic rules,
// removeparam dedup cache) is independently guarded.
type Matcher struct {
	snap *snapshot.Snapshot
	psl  *psl.Resolver

	rules       snapshot.RulesView
	domains     snapshot.DomainSets
	tokens      snapshot.TokenDict
	postings    snapshot.TokenPostings
	patterns    snapshot.PatternPool
	constraints snapshot.DomainConstraintPool

	redirects        snapshot.RedirectResources
	removeparamSpecs snapshot.RemoveparamSpecs
	cspSpecs         snapshot.CspSpecs
	headerSpecs      snapshot.HeaderSpecs

	responseHeaderSel snapshot.SelectorPool
	cosmeticSel       snapshot.SelectorPool
	proceduralSel     snapshot.SelectorPool
	scriptletSel      snapshot.SelectorPool

	trusted          *trustedSiteSet
	removeparamCache *removeparamCache
	dynamic          *dynamicRuleSet
}

// New builds a Matcher over a loaded snapshot. pslSets configures the
// shared eTLD+1 resolver; pass nil to fall back to the heuristic resolver.
func New(snap *snapshot.Snapshot, pslSets *psl.Sets) (*Matcher, error) {
	m := &Matcher{
		snap:             snap,
		psl:              psl.NewResolver(pslSets),
		trusted:          newTrustedSiteSet(),
		removeparamCache: newRemoveparamCache(),
		dynamic:          newDynamicRuleSet(),
	}

	rulesRaw, ok := snap.GetSection(snapshot.SectionRules)
	if !ok {
		return nil, fmt.Errorf("matcher: snapshot missing required %s section", "Rules")
	}
	rulesView, ok := snapshot.ParseRulesView(rulesRaw)
	if !ok {
		return nil, fmt.Errorf("matcher: malformed Rules section")
	}
	m.rules = rulesView

	if raw, ok := snap.GetSection(snapshot.SectionDomainSets); ok {
		if ds, ok := snapshot.ParseDomainSets(raw); ok {
			m.domains = ds
		}
	}
	if raw, ok := snap.GetSection(snapshot.SectionTokenDict); ok {
		if td, ok := snapshot.NewTokenDict(raw); ok {
			m.tokens = td
		}
	}
	if raw, ok := snap.GetSection(snapshot.SectionTokenPostings); ok {
		m.postings = snapshot.ParseTokenPostings(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionPatternPool); ok {
		if pp, ok := snapshot.ParsePatternPool(raw); ok {
			m.patterns = pp
		}
	}
	if raw, ok := snap.GetSection(snapshot.SectionDomainConstraintPool); ok {
		m.constraints = snapshot.ParseDomainConstraintPool(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionRedirectResources); ok {
		m.redirects = snapshot.ParseRedirectResources(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionRemoveparamSpecs); ok {
		m.removeparamSpecs = snapshot.ParseRemoveparamSpecs(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionCspSpecs); ok {
		m.cspSpecs = snapshot.ParseCspSpecs(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionHeaderSpecs); ok {
		m.headerSpecs = snapshot.ParseHeaderSpecs(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionResponseHeaderRules); ok {
		m.responseHeaderSel = snapshot.ParseSelectorPool(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionCosmeticRules); ok {
		m.cosmeticSel = snapshot.ParseSelectorPool(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionProceduralRules); ok {
		m.proceduralSel = snapshot.ParseSelectorPool(raw)
	}
	if raw, ok := snap.GetSection(snapshot.SectionScriptletRules); ok {
		m.scriptletSel = snapshot.ParseSelectorPool(raw)
	}

	return m, nil
}

// AddTrustedSite marks etld1 as trusted: every request whose site resolves
// to it bypasses all filtering (A0).
func (m *Matcher) AddTrustedSite(etld1 string) {
	m.trusted.Add(etld1)
}

// RemoveTrustedSite undoes AddTrustedSite.
func (m *Matcher) RemoveTrustedSite(etld1 string) {
	m.trusted.Remove(etld1)
}

// SetDynamicRules replaces the A1 dynamic rule set wholesale.
func (m *Matcher) SetDynamicRules(rules []DynamicRule) {
	m.dynamic.Replace(rules)
}

// AddDynamicRule appends one A1 dynamic rule.
func (m *Matcher) AddDynamicRule(rule DynamicRule) {
	m.dynamic.Add(rule)
}
