package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEventStampsIDAndTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewEvent(now)
	assert.Equal(t, now, e.Timestamp)
	assert.NotEqual(t, e.ID.String(), "")
}

func TestNewEventIDsAreUnique(t *testing.T) {
	a := NewEvent(time.Now())
	b := NewEvent(time.Now())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNoopSinkDiscardsWithoutError(t *testing.T) {
	var s NoopSink
	s.Record(Event{RuleID: 1})
	assert.NoError(t, s.Close())
}
