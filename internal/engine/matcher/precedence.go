package matcher

import "github.com/edgecomet/blockengine/internal/engine/snapshot"

// arbitrate implements A3's precedence arbitration over a gathered
// candidate set, returning the winning Decision.
func arbitrate(candidates []candidate, redirectName func(optionID uint32) (string, bool)) Decision {
	var (
		importantAllow, importantBlock []candidate
		plainAllow, plainBlock         []candidate
		redirectDirectives             []candidate
	)
	exceptionOptionIDs := make(map[uint32]bool)

	for _, c := range candidates {
		switch c.Action {
		case snapshot.ActionRedirectDirective:
			redirectDirectives = append(redirectDirectives, c)
			continue
		}

		if c.Flags&snapshot.FlagRedirectRuleException != 0 {
			// A $redirect-rule exception only suppresses redirection; it
			// never behaves as a blanket allow, so it takes no further
			// part in arbitration beyond recording its option id.
			exceptionOptionIDs[c.OptionID] = true
			continue
		}

		important := c.Flags&snapshot.FlagImportant != 0
		isExcludedFromImportant := c.Flags&(snapshot.FlagElemhide|snapshot.FlagGenerichide) != 0

		switch {
		case c.Action == snapshot.ActionAllow && important && !isExcludedFromImportant:
			importantAllow = append(importantAllow, c)
		case c.Action == snapshot.ActionBlock && important:
			importantBlock = append(importantBlock, c)
		case c.Action == snapshot.ActionAllow:
			plainAllow = append(plainAllow, c)
		case c.Action == snapshot.ActionBlock:
			plainBlock = append(plainBlock, c)
		}
	}

	if best, ok := highestPriority(importantAllow); ok {
		return Decision{Kind: DecisionAllow, RuleID: best.RuleID, ListID: 0}
	}

	if best, ok := highestPriority(importantBlock); ok {
		return resolveBlockOrRedirect(best, redirectDirectives, exceptionOptionIDs, redirectName)
	}

	if len(plainAllow) > 0 && len(plainBlock) > 0 {
		best, _ := highestPriority(plainAllow)
		return Decision{Kind: DecisionAllow, RuleID: best.RuleID}
	}

	if best, ok := highestPriority(plainBlock); ok {
		return resolveBlockOrRedirect(best, redirectDirectives, exceptionOptionIDs, redirectName)
	}

	if best, ok := highestPriority(plainAllow); ok {
		return Decision{Kind: DecisionAllow, RuleID: best.RuleID}
	}

	return Decision{Kind: DecisionAllow}
}

// resolveBlockOrRedirect applies the "important rule itself carries a
// redirect option id, else a non-excepted redirect directive exists, else
// Block" rule shared by the important-block and plain-block arbitration
// steps.
func resolveBlockOrRedirect(blocker candidate, directives []candidate, exceptions map[uint32]bool, redirectName func(uint32) (string, bool)) Decision {
	if blocker.Flags&snapshot.FlagFromRedirectEq != 0 && blocker.OptionID != snapshot.NoOption {
		if name, ok := redirectName(blocker.OptionID); ok {
			return Decision{Kind: DecisionRedirect, RuleID: blocker.RuleID, RedirectURL: name}
		}
	}
	if directive, ok := firstNonExcepted(directives, exceptions); ok {
		if name, ok := redirectName(directive.OptionID); ok {
			return Decision{Kind: DecisionRedirect, RuleID: directive.RuleID, RedirectURL: name}
		}
	}
	return Decision{Kind: DecisionBlock, RuleID: blocker.RuleID}
}

func firstNonExcepted(directives []candidate, exceptions map[uint32]bool) (candidate, bool) {
	best, ok := candidate{}, false
	for _, d := range directives {
		if exceptions[d.OptionID] {
			continue
		}
		if !ok || d.Priority > best.Priority {
			best = d
			ok = true
		}
	}
	return best, ok
}

func highestPriority(cs []candidate) (candidate, bool) {
	if len(cs) == 0 {
		return candidate{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Priority > best.Priority {
			best = c
		}
	}
	return best, true
}
