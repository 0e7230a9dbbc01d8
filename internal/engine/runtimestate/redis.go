package runtimestate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edgecomet/blockengine/internal/engine/matcher"
)

// RedisConfig configures a RedisStore: where the authoritative state lives
// (StateKey, a single JSON document) and which pub/sub Channel carries
// change notifications to every other watching process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	StateKey string
	Channel  string
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.StateKey == "" {
		c.StateKey = "blockengine:runtimestate"
	}
	if c.Channel == "" {
		c.Channel = "blockengine:runtimestate:updates"
	}
	return c
}

// RedisStore replicates trusted-site and dynamic-rule mutations across
// matcher processes sharing one compiled snapshot: a mutation call writes
// the full State document back to a single Redis key, then publishes a
// notification on a pub/sub channel so every other process's Watch call
// re-fetches and converges. Grounded on this lineage's redis.Client wrapper
// (wrapped errors, zap logging on every Redis call) but built directly on
// *redis.Client rather than that wrapper, since the wrapper exposes no
// Subscribe/Publish surface for this pub/sub use.
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
	cfg    RedisConfig
}

// NewRedisStore opens a RedisStore against an already-constructed
// *redis.Client (a miniredis-backed client in tests, a real cluster in
// production).
func NewRedisStore(rdb *redis.Client, logger *zap.Logger, cfg RedisConfig) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, logger: logger, cfg: cfg.withDefaults()}
}

func (s *RedisStore) readState(ctx context.Context) (State, error) {
	raw, err := s.rdb.Get(ctx, s.cfg.StateKey).Result()
	if err == redis.Nil {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("runtimestate: redis get %q: %w", s.cfg.StateKey, err)
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, fmt.Errorf("runtimestate: decode state: %w", err)
	}
	return st, nil
}

// writeAndPublish persists the new state and notifies other processes.
// Mutations are last-writer-wins: the dynamic-rule and trusted-site
// mutation rate this store exists for is operator-driven (a handful of
// changes a day), not a hot path, so the single GET-modify-SET round trip
// here is not guarded by a distributed lock.
func (s *RedisStore) writeAndPublish(ctx context.Context, st State) error {
	encoded, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("runtimestate: encode state: %w", err)
	}
	if err := s.rdb.Set(ctx, s.cfg.StateKey, encoded, 0).Err(); err != nil {
		s.logger.Error("runtimestate: redis set failed", zap.String("key", s.cfg.StateKey), zap.Error(err))
		return fmt.Errorf("runtimestate: redis set %q: %w", s.cfg.StateKey, err)
	}
	if err := s.rdb.Publish(ctx, s.cfg.Channel, encoded).Err(); err != nil {
		s.logger.Error("runtimestate: redis publish failed", zap.String("channel", s.cfg.Channel), zap.Error(err))
		return fmt.Errorf("runtimestate: redis publish %q: %w", s.cfg.Channel, err)
	}
	return nil
}

func (s *RedisStore) AddTrustedSite(ctx context.Context, etld1 string) error {
	st, err := s.readState(ctx)
	if err != nil {
		return err
	}
	for _, existing := range st.TrustedSites {
		if existing == etld1 {
			return nil
		}
	}
	st.TrustedSites = append(st.TrustedSites, etld1)
	return s.writeAndPublish(ctx, st)
}

func (s *RedisStore) RemoveTrustedSite(ctx context.Context, etld1 string) error {
	st, err := s.readState(ctx)
	if err != nil {
		return err
	}
	kept := st.TrustedSites[:0]
	for _, existing := range st.TrustedSites {
		if existing != etld1 {
			kept = append(kept, existing)
		}
	}
	st.TrustedSites = kept
	return s.writeAndPublish(ctx, st)
}

func (s *RedisStore) ReplaceDynamicRules(ctx context.Context, rules []matcher.DynamicRule) error {
	st, err := s.readState(ctx)
	if err != nil {
		return err
	}
	st.DynamicRules = append([]matcher.DynamicRule(nil), rules...)
	return s.writeAndPublish(ctx, st)
}

func (s *RedisStore) AddDynamicRule(ctx context.Context, rule matcher.DynamicRule) error {
	st, err := s.readState(ctx)
	if err != nil {
		return err
	}
	st.DynamicRules = append(st.DynamicRules, rule)
	return s.writeAndPublish(ctx, st)
}

// Watch subscribes to the update channel, applies the current
// Redis-resident state to sink, then converges sink to each newly published
// state until ctx is cancelled or the subscription fails. The subscription
// is confirmed before the state is read, so a mutation published in
// between is still delivered.
func (s *RedisStore) Watch(ctx context.Context, sink Sink) error {
	pubsub := s.rdb.Subscribe(ctx, s.cfg.Channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("runtimestate: subscribe to %q: %w", s.cfg.Channel, err)
	}

	current, err := s.readState(ctx)
	if err != nil {
		return err
	}
	sink.SetDynamicRules(current.DynamicRules)
	for _, site := range current.TrustedSites {
		sink.AddTrustedSite(site)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("runtimestate: subscription to %q closed", s.cfg.Channel)
			}
			var next State
			if err := json.Unmarshal([]byte(msg.Payload), &next); err != nil {
				s.logger.Warn("runtimestate: dropping malformed update", zap.Error(err))
				continue
			}
			diffTrustedSites(sink, current.TrustedSites, next.TrustedSites)
			sink.SetDynamicRules(next.DynamicRules)
			current = next
		}
	}
}
