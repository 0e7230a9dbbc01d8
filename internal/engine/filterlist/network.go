package filterlist

import (
	"strings"

	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// typeTokens maps a filter-list request-type option name to its mask bit.
var typeTokens = map[string]uint32{
	"document":       snapshot.TypeDocument,
	"subdocument":    snapshot.TypeSubdocument,
	"script":         snapshot.TypeScript,
	"image":          snapshot.TypeImage,
	"stylesheet":     snapshot.TypeStylesheet,
	"object":         snapshot.TypeObject,
	"xmlhttprequest": snapshot.TypeXHR,
	"websocket":      snapshot.TypeWebsocket,
	"font":           snapshot.TypeFont,
	"media":          snapshot.TypeMedia,
	"ping":           snapshot.TypePing,
	"other":          snapshot.TypeOther,
	"popup":          snapshot.TypePopup,
	"genericblock":   snapshot.TypeGenericblock,
	"elemhide":       snapshot.TypeElemhide,
	"generichide":    snapshot.TypeGenerichide,
}

const allTypeMask uint32 = 1<<16 - 1

var schemeTokens = map[string]uint8{
	"http":  snapshot.SchemeHTTP,
	"https": snapshot.SchemeHTTPS,
	"ws":    snapshot.SchemeWS,
	"wss":   snapshot.SchemeWSS,
	"data":  snapshot.SchemeData,
	"ftp":   snapshot.SchemeFTP,
}

const allSchemeMask uint8 = 1<<6 - 1

// parsedOptions is the intermediate decoding of a network rule's `$`
// option list, before mask finalization and action refinement.
type parsedOptions struct {
	Flags uint16

	typeInclude, typeExclude     uint32
	partyInclude, partyExclude   uint8
	schemeInclude, schemeExclude uint8
	sawTypeToken, sawPartyToken, sawSchemeToken bool

	Domain domainConstraint

	HasRedirect     bool
	RedirectRule    bool // true for redirect-rule=, false for redirect=
	RedirectName    string

	HasCsp   bool
	CspValue string

	HasHeader    bool
	HeaderName   string
	HeaderValue  string
	HeaderNegate bool

	HasRemoveparam  bool
	RemoveparamKeys []string

	IsBadfilter bool
}

// parseNetworkOptions parses the comma-separated option list following the
// first '$' in a network rule. Returns ok=false if any option is
// unrecognized, rejecting the whole rule.
func parseNetworkOptions(raw string) (parsedOptions, bool) {
	var p parsedOptions
	if raw == "" {
		return p, true
	}
	for _, opt := range splitOptions(raw) {
		if opt == "" {
			continue
		}
		negate := false
		name := opt
		value := ""
		if idx := strings.IndexByte(opt, '='); idx >= 0 {
			name = opt[:idx]
			value = opt[idx+1:]
		}
		if strings.HasPrefix(name, "~") {
			negate = true
			name = name[1:]
		}

		switch name {
		case "important":
			p.Flags |= snapshot.FlagImportant
		case "match-case":
			p.Flags |= snapshot.FlagMatchCase
		case "badfilter":
			p.IsBadfilter = true
		case "elemhide":
			p.Flags |= snapshot.FlagElemhide
		case "generichide":
			p.Flags |= snapshot.FlagGenerichide
		case "domain":
			if !parseDomainList(value, &p.Domain) {
				return parsedOptions{}, false
			}
		case "redirect":
			p.HasRedirect = true
			p.RedirectRule = false
			p.RedirectName = value
		case "redirect-rule":
			p.HasRedirect = true
			p.RedirectRule = true
			p.RedirectName = value
		case "csp":
			p.HasCsp = true
			p.CspValue = value
		case "header":
			p.HasHeader = true
			if !parseHeaderOption(value, &p) {
				return parsedOptions{}, false
			}
		case "removeparam":
			p.HasRemoveparam = true
			p.RemoveparamKeys = splitPipe(value)
		case "third-party", "3p":
			p.sawPartyToken = true
			if negate {
				p.partyExclude |= snapshot.PartyThird
			} else {
				p.partyInclude |= snapshot.PartyThird
			}
		case "first-party", "1p":
			p.sawPartyToken = true
			if negate {
				p.partyExclude |= snapshot.PartyFirst
			} else {
				p.partyInclude |= snapshot.PartyFirst
			}
		default:
			if bit, ok := typeTokens[name]; ok {
				p.sawTypeToken = true
				if negate {
					p.typeExclude |= bit
				} else {
					p.typeInclude |= bit
				}
				continue
			}
			if bit, ok := schemeTokens[name]; ok {
				p.sawSchemeToken = true
				if negate {
					p.schemeExclude |= bit
				} else {
					p.schemeInclude |= bit
				}
				continue
			}
			return parsedOptions{}, false
		}
	}
	return p, true
}

// splitOptions splits a comma-separated option list, respecting that
// domain=a|b and removeparam lists never themselves contain a comma in
// well-formed filter-list text.
func splitOptions(raw string) []string {
	return strings.Split(raw, ",")
}

func splitPipe(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDomainList parses a pipe-separated domain=<list> value into include
// and exclude entries, "~" prefix marking exclude.
func parseDomainList(value string, d *domainConstraint) bool {
	if value == "" {
		return false
	}
	for _, entry := range strings.Split(value, "|") {
		if entry == "" {
			return false
		}
		if strings.HasPrefix(entry, "~") {
			d.Exclude = append(d.Exclude, strings.ToLower(entry[1:]))
		} else {
			d.Include = append(d.Include, strings.ToLower(entry))
		}
	}
	return true
}

// parseHeaderOption parses header=<name>[:<value>|~<value>].
func parseHeaderOption(value string, p *parsedOptions) bool {
	if value == "" {
		return false
	}
	name := value
	rest := ""
	if idx := strings.IndexByte(value, ':'); idx >= 0 {
		name = value[:idx]
		rest = value[idx+1:]
	}
	if name == "" {
		return false
	}
	p.HeaderName = strings.ToLower(name)
	if rest == "" {
		return true
	}
	if strings.HasPrefix(rest, "~") {
		p.HeaderNegate = true
		p.HeaderValue = rest[1:]
	} else {
		p.HeaderValue = rest
	}
	return true
}

// finalizeMask32 applies excludes to includes (or to ALL when includes are
// empty), then collapses an ALL result to zero ("no constraint").
func finalizeMask32(include, exclude uint32, saw bool, all uint32) uint32 {
	if !saw {
		return 0
	}
	base := include
	if base == 0 {
		base = all
	}
	mask := base &^ exclude
	if mask == all {
		return 0
	}
	return mask
}

func finalizeMask8(include, exclude uint8, saw bool, all uint8) uint8 {
	if !saw {
		return 0
	}
	base := include
	if base == 0 {
		base = all
	}
	mask := base &^ exclude
	if mask == all {
		return 0
	}
	return mask
}

// maskEmptyAfterFinalize reports whether finalization produced an impossible
// constraint: every requested type (or party, or scheme) was excluded,
// leaving nothing a request could match.
func maskEmptyAfterFinalize(include, exclude uint32, saw bool, all uint32) bool {
	if !saw {
		return false
	}
	base := include
	if base == 0 {
		base = all
	}
	return base&^exclude == 0
}

func maskEmptyAfterFinalize8(include, exclude uint8, saw bool, all uint8) bool {
	if !saw {
		return false
	}
	base := include
	if base == 0 {
		base = all
	}
	return base&^exclude == 0
}
