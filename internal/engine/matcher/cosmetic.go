package matcher

import (
	"sort"
	"strings"

	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// cosmeticExceptionActions gathers the network Allow rules that may carry
// ELEMHIDE/GENERICHIDE exception flags.
var cosmeticExceptionActions = map[snapshot.Action]bool{
	snapshot.ActionAllow: true,
}

// MatchCosmetics runs the cosmetic phase: element-hiding CSS, procedural
// selectors, and scriptlet invocations for the given context.
func (m *Matcher) MatchCosmetics(ctx *RequestContext) CosmeticResult {
	m.resolve(ctx)

	var elemhideDisabled, generichideDisabled bool
	for _, c := range m.gatherCandidates(ctx, cosmeticExceptionActions) {
		if c.Flags&snapshot.FlagElemhide != 0 {
			elemhideDisabled = true
		}
		if c.Flags&snapshot.FlagGenerichide != 0 {
			generichideDisabled = true
		}
	}

	var result CosmeticResult
	result.EnableGeneric = !generichideDisabled

	if !elemhideDisabled {
		result.CSS = m.buildCosmeticCSS(ctx, generichideDisabled)
		result.Procedural = m.buildProcedural(ctx, generichideDisabled)
	}

	result.Scriptlets = m.buildScriptlets(ctx)

	return result
}

// selectorSets partitions a selector pool's entries (subject to domain
// constraint) into specific, generic, and exception text sets.
func (m *Matcher) selectorSets(ctx *RequestContext, pool snapshot.SelectorPool) (specific, generic, exception []string) {
	for _, e := range pool.All() {
		if !checkDomainConstraint(m.constraints, e.ConstraintOffset, ctx.effectiveSiteHost(), ctx.siteETLD1) {
			continue
		}
		text := m.snap.GetString(e.TextOffset)
		switch {
		case e.Flags&snapshot.SelectorFlagException != 0:
			exception = append(exception, text)
		case e.Flags&snapshot.SelectorFlagGeneric != 0:
			generic = append(generic, text)
		default:
			specific = append(specific, text)
		}
	}
	return
}

func (m *Matcher) buildCosmeticCSS(ctx *RequestContext, generichideDisabled bool) string {
	specific, generic, exception := m.selectorSets(ctx, m.cosmeticSel)
	selectors := mergeSelectors(specific, generic, exception, generichideDisabled)
	if len(selectors) == 0 {
		return ""
	}
	return strings.Join(selectors, ",") + "{display:none !important;}"
}

func mergeSelectors(specific, generic, exception []string, generichideDisabled bool) []string {
	excluded := make(map[string]bool, len(exception))
	for _, e := range exception {
		excluded[e] = true
	}

	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if excluded[s] || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, s := range specific {
		add(s)
	}
	if !generichideDisabled {
		for _, s := range generic {
			add(s)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Matcher) buildProcedural(ctx *RequestContext, generichideDisabled bool) []ProceduralSelector {
	specific, generic, exception := m.selectorSets(ctx, m.proceduralSel)
	selectors := mergeSelectors(specific, generic, exception, generichideDisabled)

	out := make([]ProceduralSelector, 0, len(selectors))
	for _, s := range selectors {
		sel, op := splitProceduralSelector(s)
		out = append(out, ProceduralSelector{Selector: sel, Operation: op})
	}
	return out
}

// splitProceduralSelector splits "css:pseudo(args)" at the first
// recognized procedural pseudo marker, returning the CSS prefix and the
// pseudo-operation text (without the leading ':').
func splitProceduralSelector(text string) (selector, operation string) {
	for _, p := range proceduralPseudoMarkers {
		if idx := strings.Index(text, p); idx >= 0 {
			return text[:idx], text[idx+1:]
		}
	}
	return text, ""
}

var proceduralPseudoMarkers = []string{
	":has-text(", ":matches-css(", ":xpath(", ":upward(", ":remove(", ":style(",
}

// buildScriptlets gathers scriptlet invocations: specific scope only, an
// empty-body exception disables every scriptlet for this context.
func (m *Matcher) buildScriptlets(ctx *RequestContext) []ScriptletInvocation {
	var active []snapshot.SelectorEntry
	disableAll := false

	for _, e := range m.scriptletSel.All() {
		if e.Flags&snapshot.SelectorFlagGeneric != 0 {
			continue
		}
		if !checkDomainConstraint(m.constraints, e.ConstraintOffset, ctx.effectiveSiteHost(), ctx.siteETLD1) {
			continue
		}
		if e.Flags&snapshot.SelectorFlagException != 0 {
			if m.snap.GetString(e.TextOffset) == "" {
				disableAll = true
			}
			continue
		}
		active = append(active, e)
	}

	if disableAll {
		return nil
	}

	out := make([]ScriptletInvocation, 0, len(active))
	for _, e := range active {
		if len(out) >= maxScriptlets {
			break
		}
		name := m.snap.GetString(e.TextOffset)
		var args []string
		if e.ExtraOffset != snapshot.NoOption {
			joined := m.snap.GetString(e.ExtraOffset)
			args = strings.Split(joined, "\x00")
			if len(args) > maxScriptletArgs {
				args = args[:maxScriptletArgs]
			}
		}
		out = append(out, ScriptletInvocation{Name: name, Args: args})
	}
	return out
}
