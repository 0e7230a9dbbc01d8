// Package filterlist compiles Adblock Plus / uBlock Origin filter-list text
// into the snapshot binary format consumed by the matcher.
package filterlist

import "github.com/edgecomet/blockengine/internal/engine/snapshot"

// Kind classifies a source line before its specific parser runs.
type Kind uint8

const (
	KindComment Kind = iota
	KindNetwork
	KindCosmetic
	KindProcedural
	KindScriptlet
	KindResponseHeader
)

// domainConstraint is the intermediate, string-based form of a rule's
// domain scoping; each entry is hashed as a full domain
// (hashutil.HashDomain) during emission.
type domainConstraint struct {
	Include []string
	Exclude []string
}

func (d domainConstraint) empty() bool {
	return len(d.Include) == 0 && len(d.Exclude) == 0
}

// patternSpec is the intermediate, unparsed-to-bytecode form of a network
// rule's URL pattern, absent for host-anchor rules.
type patternSpec struct {
	Raw    string
	Anchor snapshot.AnchorKind
}

// networkRule is one parsed, not-yet-optimized network rule.
type networkRule struct {
	Action     snapshot.Action
	Flags      uint16
	TypeMask   uint32
	PartyMask  uint8
	SchemeMask uint8

	HostLiteral string // set for host-anchor rules; DomainSets key
	Pattern     *patternSpec

	Domain domainConstraint

	// option payload, exactly one set depending on Action
	RedirectName     string
	RemoveparamKeys  []string
	RemoveparamFlags uint32
	CspDirective     string
	HeaderName       string
	HeaderValue      string
	HeaderNegate     bool

	ListID      uint16
	IsBadfilter bool
	SourceLine  int
}

// selectorRule is the shared intermediate form for cosmetic, procedural,
// scriptlet, and response-header rules.
type selectorRule struct {
	Kind        Kind
	Text        string   // CSS selector / scriptlet name / header name
	Args        []string // scriptlet args; unset for the other kinds
	IsException bool
	IsGeneric   bool // cosmetic only: no domain part
	Domain      domainConstraint
	ListID      uint16
	SourceLine  int
}

// Stats reports the compiler's run across a whole list set: how many lines
// were seen, how many rules compiled, and a breakdown of why rejected lines
// were skipped. Counted rather than silently dropped so curation tooling
// outside this core can report a skip ratio without the core ever
// panicking on adversarial input.
type Stats struct {
	TotalLines      int
	Compiled        int
	Skipped         int
	SkippedByReason map[string]int

	RulesBeforeDedup     int
	RulesAfterDedup      int
	Deduped              int
	BadfilterRules       int
	CancelledByBadfilter int

	// ContentHashes carries each input list's xxhash64 content fingerprint,
	// keyed by list id, purely so a caller can detect whether a list's raw
	// text changed since the last compile before paying for a full
	// recompile. Never consulted by any matching or compiling logic.
	ContentHashes map[uint16]uint64
}

func (s *Stats) skip(reason string) {
	s.Skipped++
	if s.SkippedByReason == nil {
		s.SkippedByReason = make(map[string]int)
	}
	s.SkippedByReason[reason]++
}
