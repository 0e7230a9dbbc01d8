package matcher

import "time"

// MatchRequest runs the full request pipeline: A0 trusted-site bypass, A1
// dynamic filtering, A2 removeparam, A3 static filtering. The first stage
// to produce a verdict wins.
func (m *Matcher) MatchRequest(ctx *RequestContext) Decision {
	m.resolve(ctx)

	if m.trusted.Contains(ctx.siteETLD1) {
		return Decision{Kind: DecisionAllow}
	}

	action, matched, overlyBroad := m.dynamic.evaluate(ctx.RequestHost, ctx.siteETLD1, ctx.thirdParty, ctx.Type)
	if matched {
		switch action {
		case DynamicBlock:
			return Decision{Kind: DecisionBlock, IsOverlyBroad: overlyBroad}
		case DynamicAllow:
			return Decision{Kind: DecisionAllow}
		}
		// DynamicNoop (including a demoted overly-broad Block) falls
		// through to A2/A3; the demotion marker survives on whichever
		// decision the rest of the pipeline produces.
	}

	if url, changed := m.matchRemoveparam(ctx, timeNow()); changed {
		return Decision{Kind: DecisionRemoveparam, RedirectURL: url, IsOverlyBroad: overlyBroad}
	}

	candidates := m.gatherCandidates(ctx, requestActions)
	decision := arbitrate(candidates, m.redirectResourceName)
	decision.IsOverlyBroad = decision.IsOverlyBroad || overlyBroad
	return decision
}

// timeNow is the matcher's only wall-clock read, isolated so tests can
// substitute a fixed instant via removeparamCache directly instead.
func timeNow() time.Time { return time.Now() }

func (m *Matcher) redirectResourceName(optionID uint32) (string, bool) {
	entry, ok := m.redirects.Get(optionID)
	if !ok {
		return "", false
	}
	return m.snap.GetString(entry.NameOffset), true
}
