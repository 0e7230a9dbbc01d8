package psl

// defaultRules is a small embedded subset of the public suffix list: enough
// ICANN top-level and second-level entries to resolve eTLD+1 correctly in
// tests and to bootstrap a compile before an operator supplies a full
// replacement through Options.PublicSuffixRules. It is not a complete
// mirror of publicsuffix.org's list.
var defaultRules = []string{
	"com", "net", "org", "edu", "gov", "mil", "int", "info", "biz", "io", "dev", "app",

	"*.uk",
	"co.uk", "org.uk", "net.uk", "ac.uk", "gov.uk", "ltd.uk", "plc.uk", "me.uk",

	"com.au", "net.au", "org.au", "edu.au", "gov.au", "asn.au", "id.au",
	"co.jp", "ne.jp", "or.jp", "ac.jp", "ad.jp", "go.jp",
	"co.nz", "net.nz", "org.nz", "govt.nz", "ac.nz",
	"co.za", "org.za", "web.za", "gov.za",
	"co.in", "net.in", "org.in", "gen.in", "firm.in", "ind.in",
	"com.br", "net.br", "org.br", "gov.br",
	"com.cn", "net.cn", "org.cn", "gov.cn",
	"com.mx", "net.mx", "org.mx", "gob.mx",

	"*.ck", "!www.ck",
	"*.kawasaki.jp", "!city.kawasaki.jp",

	"github.io", "herokuapp.com", "vercel.app", "netlify.app", "pages.dev",
}

// DefaultSets returns the compiled Sets built from the embedded default
// rule list, the same way the compiler builds a PslSets section body.
func DefaultSets() Sets {
	raw := DefaultSection()
	sets, ok := ParseSets(raw)
	if !ok {
		// BuildSection/ParseSets round-trip on well-formed rule text; a
		// failure here means defaultRules itself is malformed.
		panic("psl: default rule set failed to round-trip")
	}
	return sets
}

// DefaultSection returns the PslSets section bytes built from the embedded
// default rule list, for a compiler that has not been given an override
// through Options.PublicSuffixRules.
func DefaultSection() []byte {
	return BuildSection(ParseRules(defaultRules))
}
