package matcher

import (
	"strings"

	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// ResponseHeader is one (name, value) pair from the upstream response.
type ResponseHeader struct {
	Name  string
	Value string
}

// MatchResponseHeaders runs the response-header phase: CSP injection
// collection, header-match evaluation, and response-header removal.
func (m *Matcher) MatchResponseHeaders(ctx *RequestContext, headers []ResponseHeader) ResponseHeaderResult {
	m.resolve(ctx)

	var result ResponseHeaderResult

	candidates := m.gatherCandidates(ctx, responseActions)

	if ctx.Type&snapshot.TypeDocument != 0 {
		result.CspInjections = m.collectCSP(candidates)
	}

	if cancel, ruleID := m.evaluateHeaderMatch(candidates, headers); cancel {
		result.Cancel = true
		result.RuleID = ruleID
	}

	result.RemoveHeaders = m.gatherHeaderRemovals(ctx)

	return result
}

func (m *Matcher) collectCSP(candidates []candidate) []string {
	var directives []string
	disableAll := false
	exceptionSet := make(map[string]bool)

	for _, c := range candidates {
		if c.Action != snapshot.ActionCspInject {
			continue
		}
		entry, ok := m.cspSpecs.Get(c.OptionID)
		if !ok {
			continue
		}
		directive := m.snap.GetString(entry.DirectiveOffset)
		isException := c.Flags&snapshot.FlagCspException != 0
		if isException {
			if entry.Flags&snapshot.CspFlagDisableAll != 0 || directive == "" {
				disableAll = true
				continue
			}
			exceptionSet[directive] = true
			continue
		}
		directives = append(directives, directive)
	}

	if disableAll {
		return nil
	}

	out := directives[:0:0]
	for _, d := range directives {
		if !exceptionSet[d] {
			out = append(out, d)
		}
	}
	return out
}

// evaluateHeaderMatch applies header-match candidates to the response
// headers: Important Block wins over Allow, which wins over plain Block.
func (m *Matcher) evaluateHeaderMatch(candidates []candidate, headers []ResponseHeader) (bool, uint32) {
	var importantBlock, plainBlock, allow *candidate

	for i := range candidates {
		c := &candidates[i]
		if c.Action != snapshot.ActionHeaderMatchBlock && c.Action != snapshot.ActionHeaderMatchAllow {
			continue
		}
		entry, ok := m.headerSpecs.Get(c.OptionID)
		if !ok {
			continue
		}
		if !headerSpecMatches(entry, headers, m.snap.GetString) {
			continue
		}

		switch {
		case c.Action == snapshot.ActionHeaderMatchAllow:
			if allow == nil || c.Priority > allow.Priority {
				allow = c
			}
		case c.Flags&snapshot.FlagImportant != 0:
			if importantBlock == nil || c.Priority > importantBlock.Priority {
				importantBlock = c
			}
		default:
			if plainBlock == nil || c.Priority > plainBlock.Priority {
				plainBlock = c
			}
		}
	}

	if importantBlock != nil {
		return true, importantBlock.RuleID
	}
	if allow != nil {
		return false, 0
	}
	if plainBlock != nil {
		return true, plainBlock.RuleID
	}
	return false, 0
}

func headerSpecMatches(entry snapshot.HeaderEntry, headers []ResponseHeader, getString func(uint32) string) bool {
	name := strings.ToLower(getString(entry.NameOffset))
	var value string
	hasValue := entry.ValueOffset != snapshot.NoOption
	if hasValue {
		value = strings.ToLower(getString(entry.ValueOffset))
	}
	negate := entry.Flags&snapshot.HeaderFlagNegate != 0

	found := false
	for _, h := range headers {
		if !strings.EqualFold(h.Name, name) {
			continue
		}
		if !hasValue || strings.Contains(strings.ToLower(h.Value), value) {
			found = true
			break
		}
	}

	if negate {
		return !found
	}
	return found
}

// gatherHeaderRemovals scans the response-header-rules selector section,
// applies domain constraints, and returns removals minus exceptions,
// restricted to the safety whitelist.
func (m *Matcher) gatherHeaderRemovals(ctx *RequestContext) []string {
	var removals, exceptions []string

	for _, e := range m.responseHeaderSel.All() {
		if !checkDomainConstraint(m.constraints, e.ConstraintOffset, ctx.effectiveSiteHost(), ctx.siteETLD1) {
			continue
		}
		name := strings.ToLower(m.snap.GetString(e.TextOffset))
		if !headerRemovalWhitelist[name] {
			continue
		}
		if e.Flags&snapshot.SelectorFlagException != 0 {
			exceptions = append(exceptions, name)
		} else {
			removals = append(removals, name)
		}
	}

	excluded := make(map[string]bool, len(exceptions))
	for _, e := range exceptions {
		excluded[e] = true
	}
	out := removals[:0:0]
	seen := make(map[string]bool)
	for _, r := range removals {
		if excluded[r] || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
