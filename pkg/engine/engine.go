// Package engine is the public entry point for this lineage's filter-list
// compiler and matcher: it wires a loaded snapshot into a ready-to-query
// Engine, instrumenting every decision with metrics and (optionally) an
// analytics sink, and exposes the mutation surface described in
// SPEC_FULL.md's distributed runtime-state model.
package engine

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/blockengine/internal/engine/analytics"
	"github.com/edgecomet/blockengine/internal/engine/matcher"
	"github.com/edgecomet/blockengine/internal/engine/psl"
	"github.com/edgecomet/blockengine/internal/engine/runtimestate"
	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// Re-exported so callers never need to import the internal matcher
// package directly to use this surface.
type (
	RequestContext       = matcher.RequestContext
	Decision             = matcher.Decision
	DecisionKind         = matcher.DecisionKind
	ResponseHeader       = matcher.ResponseHeader
	ResponseHeaderResult = matcher.ResponseHeaderResult
	CosmeticResult       = matcher.CosmeticResult
	DynamicRule          = matcher.DynamicRule
	DynamicAction        = matcher.DynamicAction
)

const (
	DecisionAllow       = matcher.DecisionAllow
	DecisionBlock       = matcher.DecisionBlock
	DecisionRedirect    = matcher.DecisionRedirect
	DecisionRemoveparam = matcher.DecisionRemoveparam
)

// Metrics is the subset of internal/common/metrics.Metrics this package
// calls; kept narrow so tests can pass their own implementation without
// pulling in prometheus. Leave Config.Metrics nil to disable metrics: a
// nil *metrics.Metrics stored in the interface is not treated as absent,
// and its methods are then called on the nil pointer.
type Metrics interface {
	RecordDecision(kind string)
	RecordCandidateCount(n int)
	RecordMatchDuration(operation string, d time.Duration)
}

// Config configures an Engine. All fields are optional except the
// snapshot passed to New; a zero Config yields an Engine with no metrics,
// no analytics, and no distributed runtime-state replication.
type Config struct {
	Metrics      Metrics
	Analytics    analytics.Sink
	RuntimeStore runtimestate.Store
	Logger       *zap.Logger
}

// Engine is the thin, instrumented wrapper around one loaded snapshot's
// Matcher. The hot match path (MatchRequest/MatchResponseHeaders/
// MatchCosmetics) never touches Analytics or RuntimeStore directly:
// decision logging/analytics happens at the call boundary here, same as
// SPEC_FULL.md §7 requires, and runtime-state replication is driven by a
// background Watch goroutine started from Run.
type Engine struct {
	matcher      *matcher.Matcher
	metrics      Metrics
	analytics    analytics.Sink
	runtimeStore runtimestate.Store
	logger       *zap.Logger
	buildID      uint32
}

// New loads the matcher for snap, resolving its PSL section (falling back
// to the bundled default public-suffix dataset if the snapshot carries
// none) and applying cfg.
func New(snap *snapshot.Snapshot, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pslSets := psl.DefaultSets()
	if data, ok := snap.GetSection(snapshot.SectionPslSets); ok {
		if parsed, ok := psl.ParseSets(data); ok {
			pslSets = parsed
		} else {
			logger.Warn("snapshot PslSets section present but malformed, falling back to default PSL")
		}
	}

	m, err := matcher.New(snap, &pslSets)
	if err != nil {
		return nil, err
	}

	sink := cfg.Analytics
	if sink == nil {
		sink = analytics.NoopSink{}
	}

	return &Engine{
		matcher:      m,
		metrics:      cfg.Metrics,
		analytics:    sink,
		runtimeStore: cfg.RuntimeStore,
		logger:       logger,
		buildID:      snap.BuildID(),
	}, nil
}

// Run replicates runtime-state mutations from cfg.RuntimeStore into this
// Engine's matcher until ctx is cancelled. It is a no-op (returns nil
// immediately) when no RuntimeStore was configured. Intended to run in
// its own goroutine for the lifetime of the process.
func (e *Engine) Run(ctx context.Context) error {
	if e.runtimeStore == nil {
		return nil
	}
	return e.runtimeStore.Watch(ctx, e.matcher)
}

// MatchRequest evaluates a request, recording match duration/decision
// metrics and a decision-event if the outcome is decisive (Block,
// Redirect, or Removeparam).
func (e *Engine) MatchRequest(ctx *RequestContext) Decision {
	start := time.Now()
	decision := e.matcher.MatchRequest(ctx)

	if e.metrics != nil {
		e.metrics.RecordMatchDuration("match_request", time.Since(start))
		e.metrics.RecordDecision(decisionKindLabel(decision.Kind))
	}
	if decision.Kind != DecisionAllow {
		e.analytics.Record(e.newEvent(decision.RuleID, decision.ListID, "match_request", ctx))
	}
	return decision
}

// MatchResponseHeaders evaluates response headers against header,
// response-header, and CSP rules.
func (e *Engine) MatchResponseHeaders(ctx *RequestContext, headers []ResponseHeader) ResponseHeaderResult {
	start := time.Now()
	result := e.matcher.MatchResponseHeaders(ctx, headers)

	if e.metrics != nil {
		e.metrics.RecordMatchDuration("match_response_headers", time.Since(start))
		if result.Cancel {
			e.metrics.RecordDecision("block")
		}
	}
	if result.Cancel {
		e.analytics.Record(e.newEvent(result.RuleID, result.ListID, "match_response_headers", ctx))
	}
	return result
}

// MatchCosmetics resolves the cosmetic CSS, generic-hide flag, scriptlet,
// and procedural-selector payload for ctx. Cosmetic decisions carry no
// single attributable rule id, so they are counted but never produce an
// analytics event.
func (e *Engine) MatchCosmetics(ctx *RequestContext) CosmeticResult {
	start := time.Now()
	result := e.matcher.MatchCosmetics(ctx)

	if e.metrics != nil {
		e.metrics.RecordMatchDuration("match_cosmetics", time.Since(start))
		e.metrics.RecordDecision("cosmetics")
	}
	return result
}

// AddTrustedSite marks etld1 as trusted (bypasses all blocking rules for
// requests with that site as their top-level or initiator site). When a
// RuntimeStore is configured the mutation is persisted and replicated to
// every other process sharing it; otherwise it only updates this process.
func (e *Engine) AddTrustedSite(ctx context.Context, etld1 string) error {
	if e.runtimeStore != nil {
		return e.runtimeStore.AddTrustedSite(ctx, etld1)
	}
	e.matcher.AddTrustedSite(etld1)
	return nil
}

// RemoveTrustedSite undoes AddTrustedSite.
func (e *Engine) RemoveTrustedSite(ctx context.Context, etld1 string) error {
	if e.runtimeStore != nil {
		return e.runtimeStore.RemoveTrustedSite(ctx, etld1)
	}
	e.matcher.RemoveTrustedSite(etld1)
	return nil
}

// AddDynamicRule appends a dynamic (non-compiled) rule, replicated the
// same way as AddTrustedSite when a RuntimeStore is configured.
func (e *Engine) AddDynamicRule(ctx context.Context, rule DynamicRule) error {
	if e.runtimeStore != nil {
		return e.runtimeStore.AddDynamicRule(ctx, rule)
	}
	e.matcher.AddDynamicRule(rule)
	return nil
}

// ReplaceDynamicRules replaces the full dynamic rule set wholesale.
func (e *Engine) ReplaceDynamicRules(ctx context.Context, rules []DynamicRule) error {
	if e.runtimeStore != nil {
		return e.runtimeStore.ReplaceDynamicRules(ctx, rules)
	}
	e.matcher.SetDynamicRules(rules)
	return nil
}

// Close flushes and closes the configured analytics sink.
func (e *Engine) Close() error {
	return e.analytics.Close()
}

func (e *Engine) newEvent(ruleID uint32, listID uint16, kind string, ctx *RequestContext) analytics.Event {
	event := analytics.NewEvent(time.Now())
	event.RuleID = ruleID
	event.ListID = uint32(listID)
	event.BuildID = e.buildID
	event.Kind = kind
	if ctx != nil {
		event.TabID = formatID(ctx.TabID)
		event.FrameID = formatID(ctx.FrameID)
		event.RequestID = formatID(ctx.RequestID)
	}
	return event
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func decisionKindLabel(kind DecisionKind) string {
	switch kind {
	case DecisionBlock:
		return "block"
	case DecisionRedirect:
		return "redirect"
	case DecisionRemoveparam:
		return "removeparam"
	default:
		return "allow"
	}
}
