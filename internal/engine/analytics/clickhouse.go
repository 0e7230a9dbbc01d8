package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Conn is the subset of clickhouse-go's driver.Conn a ClickHouseSink
// depends on. Narrowing to just what's used (rather than depending on the
// full driver.Conn interface directly) keeps this package testable without
// a real server: a fake satisfying these two methods is enough.
type Conn interface {
	PrepareBatch(ctx context.Context, query string) (Batch, error)
	Close() error
}

// Batch is the subset of driver.Batch a flush needs.
type Batch interface {
	Append(v ...interface{}) error
	Send() error
}

// driverConnAdapter adapts a real driver.Conn to Conn: driver.Conn's
// PrepareBatch returns the full driver.Batch, which already satisfies our
// narrower Batch interface, so the wrapping method is a pure pass-through.
type driverConnAdapter struct{ conn driver.Conn }

func (a driverConnAdapter) PrepareBatch(ctx context.Context, query string) (Batch, error) {
	return a.conn.PrepareBatch(ctx, query)
}

func (a driverConnAdapter) Close() error { return a.conn.Close() }

// ClickHouseConfig configures the batching behavior of a ClickHouseSink, on
// top of the Conn the caller opened.
type ClickHouseConfig struct {
	Table         string
	BatchSize     int
	FlushInterval time.Duration
}

func (c ClickHouseConfig) withDefaults() ClickHouseConfig {
	if c.Table == "" {
		c.Table = "decision_events"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	return c
}

// ClickHouseSink batches decision events in memory and inserts them into
// ClickHouse either when BatchSize events have accumulated or every
// FlushInterval, whichever comes first. Grounded on this lineage's
// ticker-driven background-loop shape (internal/cachedaemon's scheduler)
// adapted from a queue-draining poll to a buffer-draining flush.
type ClickHouseSink struct {
	conn   Conn
	logger *zap.Logger
	cfg    ClickHouseConfig

	mu      sync.Mutex
	pending []Event

	flushNow chan struct{}
	stop     chan struct{}
	done     chan struct{}
}

// NewClickHouseSink starts the background flush loop over an
// already-opened ClickHouse connection (conn is expected to already point
// at a database with cfg.Table present; this sink issues no DDL).
func NewClickHouseSink(conn Conn, logger *zap.Logger, cfg ClickHouseConfig) *ClickHouseSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ClickHouseSink{
		conn:     conn,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		flushNow: make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *ClickHouseSink) Record(e Event) {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	full := len(s.pending) >= s.cfg.BatchSize
	s.mu.Unlock()

	if full {
		select {
		case s.flushNow <- struct{}{}:
		default:
		}
	}
}

func (s *ClickHouseSink) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.flushNow:
			s.flush()
		case <-s.stop:
			s.flush()
			return
		}
	}
}

func (s *ClickHouseSink) flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	ctx := context.Background()
	b, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.cfg.Table))
	if err != nil {
		s.logger.Error("analytics: prepare batch failed", zap.Error(err), zap.Int("dropped", len(batch)))
		return
	}
	for _, e := range batch {
		if err := b.Append(e.ID, e.Timestamp, e.RuleID, e.ListID, e.Kind, e.BuildID, e.TabID, e.FrameID, e.RequestID); err != nil {
			s.logger.Error("analytics: append to batch failed", zap.Error(err))
			return
		}
	}
	if err := b.Send(); err != nil {
		s.logger.Error("analytics: batch send failed", zap.Error(err), zap.Int("dropped", len(batch)))
	}
}

// Close stops the background flush loop after draining any pending events.
func (s *ClickHouseSink) Close() error {
	close(s.stop)
	<-s.done
	return s.conn.Close()
}

// OpenConn dials a ClickHouse server for use with NewClickHouseSink.
func OpenConn(addr, database, username, password string) (Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, err
	}
	return driverConnAdapter{conn: conn}, nil
}

var _ Sink = (*ClickHouseSink)(nil)
