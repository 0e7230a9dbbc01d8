package filterlist

import "fmt"

// badfilterKey is every matching field of a network rule except list id:
// two rules with the same key match the same traffic, so a $badfilter rule
// with this key cancels any non-badfilter rule sharing it.
func badfilterKey(r networkRule) string {
	return fmt.Sprintf("%d|%d|%d|%d|%d|%s|%v|%s|%s|%d|%v|%s|%s|%v",
		r.Action, r.Flags, r.TypeMask, r.PartyMask, r.SchemeMask,
		r.HostLiteral, patternKey(r.Pattern), domainKey(r.Domain),
		r.RedirectName, r.RemoveparamFlags, r.RemoveparamKeys,
		r.CspDirective, r.HeaderName+"\x00"+r.HeaderValue, r.HeaderNegate)
}

// dedupKey is badfilterKey plus list id, per the compiler's explicit
// optimizer-pass-2 instruction (the list-id-inclusive key is what makes
// pass 2 distinct from pass 1; see the optimizer's package-level
// discussion in the design notes for why this differs from the Rule
// type's own "equal except list id" definition).
func dedupKey(r networkRule) string {
	return fmt.Sprintf("%s|%d", badfilterKey(r), r.ListID)
}

func patternKey(p *patternSpec) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d:%s", p.Anchor, p.Raw)
}

func domainKey(d domainConstraint) string {
	return fmt.Sprintf("%v|%v", d.Include, d.Exclude)
}

// optimizeNetworkRules runs the two-pass optimizer: badfilter cancellation,
// then full dedup. Reports counts into stats.
func optimizeNetworkRules(rules []networkRule, stats *Stats) []networkRule {
	stats.RulesBeforeDedup = len(rules)

	badfilterKeys := make(map[string]bool)
	for _, r := range rules {
		if r.IsBadfilter {
			stats.BadfilterRules++
			badfilterKeys[badfilterKey(r)] = true
		}
	}

	var afterBadfilter []networkRule
	if len(badfilterKeys) > 0 {
		afterBadfilter = make([]networkRule, 0, len(rules))
		for _, r := range rules {
			if r.IsBadfilter {
				continue
			}
			if badfilterKeys[badfilterKey(r)] {
				stats.CancelledByBadfilter++
				continue
			}
			afterBadfilter = append(afterBadfilter, r)
		}
	} else {
		afterBadfilter = make([]networkRule, 0, len(rules))
		for _, r := range rules {
			if !r.IsBadfilter {
				afterBadfilter = append(afterBadfilter, r)
			}
		}
	}

	seen := make(map[string]bool, len(afterBadfilter))
	out := make([]networkRule, 0, len(afterBadfilter))
	for _, r := range afterBadfilter {
		k := dedupKey(r)
		if seen[k] {
			stats.Deduped++
			continue
		}
		seen[k] = true
		out = append(out, r)
	}

	stats.RulesAfterDedup = len(out)
	return out
}
