// Package runtimestate implements the distributed runtime-state store
// described for multi-process deployments: several matcher processes
// behind a load balancer, all sharing one compiled snapshot, need a way
// for add_trusted_site/remove_trusted_site and dynamic-rule mutations made
// against one process to reach every other process without a restart.
//
// The hot match path never touches a Store. A Store only ever pushes
// mutations into a Sink (satisfied structurally by *matcher.Matcher) that
// keeps its own process-local state current in the background.
package runtimestate

import (
	"context"

	"github.com/edgecomet/blockengine/internal/engine/matcher"
)

// Sink receives runtime-state mutations. *matcher.Matcher satisfies this
// interface without any adapter: its AddTrustedSite/RemoveTrustedSite/
// SetDynamicRules/AddDynamicRule methods already have these signatures.
type Sink interface {
	AddTrustedSite(etld1 string)
	RemoveTrustedSite(etld1 string)
	SetDynamicRules(rules []matcher.DynamicRule)
	AddDynamicRule(rule matcher.DynamicRule)
}

// State is the full runtime-state snapshot a Store converges its sinks
// towards: the trusted-site set and the dynamic rule list.
type State struct {
	TrustedSites []string               `json:"trusted_sites"`
	DynamicRules []matcher.DynamicRule `json:"dynamic_rules"`
}

// Store is the mutation and replication surface for runtime state shared
// across matcher processes. Mutation methods both persist the change and
// (for implementations that support it) broadcast it to every other
// Watch-ing process. Watch applies the current state to sink immediately,
// then keeps sink converged as further mutations arrive, until ctx is
// cancelled.
type Store interface {
	AddTrustedSite(ctx context.Context, etld1 string) error
	RemoveTrustedSite(ctx context.Context, etld1 string) error
	ReplaceDynamicRules(ctx context.Context, rules []matcher.DynamicRule) error
	AddDynamicRule(ctx context.Context, rule matcher.DynamicRule) error

	Watch(ctx context.Context, sink Sink) error
}

func cloneState(s State) State {
	out := State{
		TrustedSites: make([]string, len(s.TrustedSites)),
		DynamicRules: make([]matcher.DynamicRule, len(s.DynamicRules)),
	}
	copy(out.TrustedSites, s.TrustedSites)
	copy(out.DynamicRules, s.DynamicRules)
	return out
}

// diffTrustedSites applies the site-set difference between old and new to
// sink via individual Add/RemoveTrustedSite calls, since Sink exposes no
// "replace the whole set" method (unlike dynamic rules, the A0 trusted-site
// set has no equivalent of SetDynamicRules).
func diffTrustedSites(sink Sink, old, new []string) {
	oldSet := make(map[string]bool, len(old))
	for _, s := range old {
		oldSet[s] = true
	}
	newSet := make(map[string]bool, len(new))
	for _, s := range new {
		newSet[s] = true
		if !oldSet[s] {
			sink.AddTrustedSite(s)
		}
	}
	for _, s := range old {
		if !newSet[s] {
			sink.RemoveTrustedSite(s)
		}
	}
}
