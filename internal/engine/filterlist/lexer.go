package filterlist

import "strings"

// proceduralPseudos are the cosmetic pseudo-selectors that mark a ## rule as
// procedural rather than plain CSS.
var proceduralPseudos = []string{
	":has-text(", ":matches-css(", ":xpath(", ":upward(", ":remove(", ":style(",
}

// classify dispatches a trimmed, non-empty source line to its rule kind.
// Exceptions (leading "@@") are left in place for the specific parser to
// strip; only the marker that determines kind is consumed here.
func classify(line string) Kind {
	body := line
	if strings.HasPrefix(body, "@@") {
		body = body[2:]
	}

	switch {
	case strings.HasPrefix(body, "!"), strings.HasPrefix(body, "["):
		return KindComment
	case strings.Contains(body, "##^responseheader("), strings.Contains(body, "#@#^responseheader("):
		return KindResponseHeader
	case strings.Contains(body, "##+js("), strings.Contains(body, "#@#+js("):
		return KindScriptlet
	case isProceduralCosmetic(body):
		return KindProcedural
	case strings.Contains(body, "##"), strings.Contains(body, "#@#"):
		return KindCosmetic
	case strings.HasPrefix(body, "#"):
		// a lone '#' that matched none of the cosmetic markers above
		return KindComment
	default:
		return KindNetwork
	}
}

func isProceduralCosmetic(body string) bool {
	if !strings.Contains(body, "#?#") && !strings.Contains(body, "#@?#") {
		for _, p := range proceduralPseudos {
			if strings.Contains(body, p) && (strings.Contains(body, "##") || strings.Contains(body, "#@#")) {
				return true
			}
		}
		return false
	}
	return true
}
