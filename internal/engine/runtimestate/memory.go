package runtimestate

import (
	"context"
	"sync"

	"github.com/edgecomet/blockengine/internal/engine/matcher"
)

// MemoryStore is the default, single-process Store: it matches the core
// model exactly (no replication needed because there is only ever one
// matcher instance), but still goes through the Store interface so a
// deployment can switch to RedisStore without touching caller code.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	sinks []Sink
}

// NewMemoryStore builds an empty in-memory runtime-state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AddTrustedSite(_ context.Context, etld1 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.TrustedSites {
		if existing == etld1 {
			return nil
		}
	}
	s.state.TrustedSites = append(s.state.TrustedSites, etld1)
	for _, sink := range s.sinks {
		sink.AddTrustedSite(etld1)
	}
	return nil
}

func (s *MemoryStore) RemoveTrustedSite(_ context.Context, etld1 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.state.TrustedSites[:0]
	for _, existing := range s.state.TrustedSites {
		if existing != etld1 {
			kept = append(kept, existing)
		}
	}
	s.state.TrustedSites = kept
	for _, sink := range s.sinks {
		sink.RemoveTrustedSite(etld1)
	}
	return nil
}

func (s *MemoryStore) ReplaceDynamicRules(_ context.Context, rules []matcher.DynamicRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DynamicRules = append([]matcher.DynamicRule(nil), rules...)
	for _, sink := range s.sinks {
		sink.SetDynamicRules(rules)
	}
	return nil
}

func (s *MemoryStore) AddDynamicRule(_ context.Context, rule matcher.DynamicRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DynamicRules = append(s.state.DynamicRules, rule)
	for _, sink := range s.sinks {
		sink.AddDynamicRule(rule)
	}
	return nil
}

// Watch applies the current state to sink, registers it for future live
// mutations, then blocks until ctx is cancelled (matching RedisStore's
// blocking Watch, so callers can treat the two implementations the same
// way: run Watch in its own goroutine).
func (s *MemoryStore) Watch(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	current := cloneState(s.state)
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()

	sink.SetDynamicRules(current.DynamicRules)
	for _, site := range current.TrustedSites {
		sink.AddTrustedSite(site)
	}

	<-ctx.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.sinks {
		if existing == sink {
			s.sinks = append(s.sinks[:i], s.sinks[i+1:]...)
			break
		}
	}
	return ctx.Err()
}
