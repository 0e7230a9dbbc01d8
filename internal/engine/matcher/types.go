// Package matcher implements the hot-path request, response-header, and
// cosmetic matching phases over a loaded snapshot.
package matcher

import (
	"github.com/edgecomet/blockengine/internal/engine/urlscan"
)

// RequestType enumerates the resource kinds a request context may carry,
// aliased onto the rule table's 16-bit type mask bits.
type RequestType = uint32

// RequestContext is the ephemeral, per-call input to every match phase.
type RequestContext struct {
	URL        string
	RequestHost string
	SiteHost    string // initiator host; empty for top-level navigations
	Type        RequestType
	Scheme      urlscan.Scheme

	TabID     int64
	FrameID   int64
	RequestID int64

	// resolved lazily by Matcher.resolve and cached for the call
	requestETLD1 string
	siteETLD1    string
	thirdParty   bool
	resolved     bool
}

// DecisionKind is the outcome of match_request.
type DecisionKind uint8

const (
	DecisionAllow DecisionKind = iota
	DecisionBlock
	DecisionRedirect
	DecisionRemoveparam
)

// Decision is the result of match_request.
type Decision struct {
	Kind        DecisionKind
	RuleID      uint32
	ListID      uint16
	RedirectURL string

	// IsOverlyBroad marks a dynamic-rule Block demoted to Noop because it
	// was a fully wildcarded main-document rule (see A1 in SPEC_FULL.md).
	IsOverlyBroad bool
}

// ResponseHeaderResult is the result of match_response_headers.
type ResponseHeaderResult struct {
	Cancel         bool
	RuleID         uint32
	ListID         uint16
	CspInjections  []string
	RemoveHeaders  []string
}

// CosmeticResult is the result of match_cosmetics.
type CosmeticResult struct {
	CSS           string
	EnableGeneric bool
	Scriptlets    []ScriptletInvocation
	Procedural    []ProceduralSelector
}

// ScriptletInvocation is one (name, args) pair selected for a context.
type ScriptletInvocation struct {
	Name string
	Args []string
}

// ProceduralSelector is one structured selector-plus-operation pair parsed
// from procedural pseudo syntax, e.g. "div.ad:has-text(buy now)" splits
// into Selector "div.ad" and Operation "has-text(buy now)".
type ProceduralSelector struct {
	Selector  string
	Operation string
}

// headerRemovalWhitelist is the only response headers a response-header
// removal rule may remove.
var headerRemovalWhitelist = map[string]bool{
	"location":   true,
	"refresh":    true,
	"report-to":  true,
	"set-cookie": true,
}

// removeparamDedupTTLSeconds bounds how long a (tab, frame, url) removeparam
// rewrite is remembered to suppress redirect loops.
const removeparamDedupTTLSeconds = 10

const responseCancelRuleID = ^uint32(0)

// maxScriptlets and maxScriptletArgs bound match_cosmetics output, per
// SPEC_FULL.md's "upper bound on count and args" note.
const (
	maxScriptlets    = 64
	maxScriptletArgs = 16
)
