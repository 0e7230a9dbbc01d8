package runtimestate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecomet/blockengine/internal/engine/matcher"
)

type fakeSink struct {
	trusted map[string]bool
	rules   []matcher.DynamicRule
}

func newFakeSink() *fakeSink {
	return &fakeSink{trusted: make(map[string]bool)}
}

func (f *fakeSink) AddTrustedSite(etld1 string)    { f.trusted[etld1] = true }
func (f *fakeSink) RemoveTrustedSite(etld1 string) { delete(f.trusted, etld1) }
func (f *fakeSink) SetDynamicRules(rules []matcher.DynamicRule) {
	f.rules = append([]matcher.DynamicRule(nil), rules...)
}
func (f *fakeSink) AddDynamicRule(rule matcher.DynamicRule) { f.rules = append(f.rules, rule) }

func newMiniredisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRedisStore(rdb, zap.NewNop(), RedisConfig{})
}

func TestRedisStoreWatchSeesMutationsMadeBeforeWatchStarts(t *testing.T) {
	store := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddTrustedSite(ctx, "example.com"))
	require.NoError(t, store.AddDynamicRule(ctx, matcher.DynamicRule{
		SitePattern: "*", TargetPattern: "ads.example.com", TypePattern: "*",
		Action: matcher.DynamicBlock,
	}))

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := newFakeSink()
	done := make(chan error, 1)
	go func() { done <- store.Watch(watchCtx, sink) }()

	require.Eventually(t, func() bool {
		return sink.trusted["example.com"] && len(sink.rules) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRedisStoreWatchConvergesOnLiveMutations(t *testing.T) {
	store := newMiniredisStore(t)
	ctx := context.Background()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := newFakeSink()
	go store.Watch(watchCtx, sink)

	require.Eventually(t, func() bool { return len(sink.trusted) == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.AddTrustedSite(ctx, "site-a.com"))
	require.Eventually(t, func() bool { return sink.trusted["site-a.com"] }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.AddTrustedSite(ctx, "site-b.com"))
	require.Eventually(t, func() bool { return sink.trusted["site-b.com"] }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.RemoveTrustedSite(ctx, "site-a.com"))
	require.Eventually(t, func() bool {
		return !sink.trusted["site-a.com"] && sink.trusted["site-b.com"]
	}, time.Second, 5*time.Millisecond)
}

func TestRedisStoreReplaceDynamicRulesPropagatesWholesale(t *testing.T) {
	store := newMiniredisStore(t)
	ctx := context.Background()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sink := newFakeSink()
	go store.Watch(watchCtx, sink)

	rules := []matcher.DynamicRule{
		{SitePattern: "*", TargetPattern: "*", TypePattern: "document", Action: matcher.DynamicAllow},
		{SitePattern: "*", TargetPattern: "tracker.com", TypePattern: "*", Action: matcher.DynamicBlock},
	}
	require.NoError(t, store.ReplaceDynamicRules(ctx, rules))

	require.Eventually(t, func() bool { return len(sink.rules) == 2 }, time.Second, 5*time.Millisecond)
}

func TestRedisStoreWatchCancelReturnsContextError(t *testing.T) {
	store := newMiniredisStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	sink := newFakeSink()

	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx, sink) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after context cancellation")
	}
}
