package filterlist

import "strings"

// cosmeticMarkers lists the selector-rule separators in the order they
// must be tried: response-header and scriptlet markers are longer and more
// specific than the plain "##"/"#@#" markers and must be matched first.
var cosmeticMarkers = []string{
	"##^responseheader(", "#@#^responseheader(",
	"##+js(", "#@#+js(",
	"#?#", "#@?#",
	"##", "#@#",
}

// splitSelectorRule splits a (possibly "@@"-prefixed, but classify already
// leaves that in place for this parser) selector-rule line into its domain
// list and body, plus whether the marker denoted an exception.
func splitSelectorRule(line string) (domains, marker, body string, isException, ok bool) {
	best := -1
	bestMarker := ""
	for _, m := range cosmeticMarkers {
		if idx := strings.Index(line, m); idx >= 0 {
			if best == -1 || idx < best {
				best = idx
				bestMarker = m
			}
		}
	}
	if best == -1 {
		return "", "", "", false, false
	}
	domains = line[:best]
	// Only the separator ("##", "#@#", "#?#", "#@?#") is consumed; the
	// "+js(" / "^responseheader(" tail of a longer marker stays on the body,
	// where the scriptlet and response-header parsers expect it.
	sepLen := strings.Index(bestMarker[1:], "#") + 2
	rest := line[best+sepLen:]
	isException = strings.Contains(bestMarker, "@")
	return domains, bestMarker, rest, isException, true
}

// parseSelectorDomains splits a cosmetic rule's comma-separated domain list
// into include/exclude entries, "~" prefix marking exclude. An empty list
// means a generic (domain-less) rule.
func parseSelectorDomains(domains string) domainConstraint {
	var d domainConstraint
	if domains == "" {
		return d
	}
	for _, entry := range strings.Split(domains, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "~") {
			d.Exclude = append(d.Exclude, strings.ToLower(entry[1:]))
		} else {
			d.Include = append(d.Include, strings.ToLower(entry))
		}
	}
	return d
}

// compileCosmeticRule parses a plain cosmetic (##/#@#) rule. Disallows
// selectors starting with '^' (pattern-rule lookalikes) or "+js(" (handled
// as a scriptlet rule by classify before reaching here, but guarded
// defensively since a selector body can still smuggle the prefix).
func compileCosmeticRule(domains, selector string, isException bool, listID uint16, line int) (selectorRule, string, bool) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return selectorRule{}, "empty cosmetic selector", false
	}
	if strings.HasPrefix(selector, "^") || strings.HasPrefix(selector, "+js(") {
		return selectorRule{}, "disallowed cosmetic selector prefix", false
	}
	d := parseSelectorDomains(domains)
	return selectorRule{
		Kind:        KindCosmetic,
		Text:        selector,
		IsException: isException,
		IsGeneric:   d.empty(),
		Domain:      d,
		ListID:      listID,
		SourceLine:  line,
	}, "", true
}

// compileProceduralRule mirrors compileCosmeticRule. classify routes a
// line here on the "#?#"/"#@?#" marker alone, so the selector is checked
// here for at least one recognized procedural pseudo-selector.
func compileProceduralRule(domains, selector string, isException bool, listID uint16, line int) (selectorRule, string, bool) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return selectorRule{}, "empty procedural selector", false
	}
	hasPseudo := false
	for _, p := range proceduralPseudos {
		if strings.Contains(selector, p) {
			hasPseudo = true
			break
		}
	}
	if !hasPseudo {
		return selectorRule{}, "procedural selector without procedural pseudo", false
	}
	d := parseSelectorDomains(domains)
	return selectorRule{
		Kind:        KindProcedural,
		Text:        selector,
		IsException: isException,
		IsGeneric:   d.empty(),
		Domain:      d,
		ListID:      listID,
		SourceLine:  line,
	}, "", true
}

// compileScriptletRule parses a "+js(name[, arg]*)" body verbatim. An
// exception with an empty body ("#@#+js()") is kept with an empty name.
func compileScriptletRule(domains, body string, isException bool, listID uint16, line int) (selectorRule, string, bool) {
	if !strings.HasPrefix(body, "+js(") || !strings.HasSuffix(body, ")") {
		return selectorRule{}, "malformed scriptlet invocation", false
	}
	inner := body[len("+js(") : len(body)-1]
	if isException && strings.TrimSpace(inner) == "" {
		d := parseSelectorDomains(domains)
		return selectorRule{Kind: KindScriptlet, IsException: true, Domain: d, ListID: listID, SourceLine: line}, "", true
	}
	parts := splitScriptletArgs(inner)
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return selectorRule{}, "empty scriptlet name", false
	}
	name := strings.TrimSpace(parts[0])
	args := make([]string, 0, len(parts)-1)
	for _, a := range parts[1:] {
		args = append(args, strings.TrimSpace(a))
	}
	d := parseSelectorDomains(domains)
	return selectorRule{
		Kind:        KindScriptlet,
		Text:        name,
		Args:        args,
		IsException: isException,
		Domain:      d,
		ListID:      listID,
		SourceLine:  line,
	}, "", true
}

// splitScriptletArgs splits a scriptlet's comma-separated argument list
// without tripping on commas inside balanced parentheses.
func splitScriptletArgs(inner string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, inner[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, inner[start:])
	return out
}

// compileResponseHeaderRule parses "^responseheader(name)".
func compileResponseHeaderRule(domains, body string, isException bool, listID uint16, line int) (selectorRule, string, bool) {
	const prefix = "^responseheader("
	if !strings.HasPrefix(body, prefix) || !strings.HasSuffix(body, ")") {
		return selectorRule{}, "malformed responseheader invocation", false
	}
	name := body[len(prefix) : len(body)-1]
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || !isHeaderNameToken(name) {
		return selectorRule{}, "invalid responseheader name", false
	}
	d := parseSelectorDomains(domains)
	return selectorRule{
		Kind:        KindResponseHeader,
		Text:        name,
		IsException: isException,
		Domain:      d,
		ListID:      listID,
		SourceLine:  line,
	}, "", true
}

func isHeaderNameToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		alnum := c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
		if !alnum && c != '-' {
			return false
		}
	}
	return true
}
