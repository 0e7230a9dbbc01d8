// Package analytics records decision events for after-the-fact rule
// attribution: which rule and list produced a decisive Allow/Block/
// Redirect/Removeparam, and when. It is invoked outside the hot match
// path, from the same thin wrapper that does decision logging — nothing
// here ever runs inside match_request/match_response_headers/
// match_cosmetics themselves.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Event is one decision event: a decisive verdict plus enough context to
// attribute it to a specific rule, list, and request in hindsight.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time

	RuleID  uint32
	ListID  uint32
	Kind    string
	BuildID uint32

	TabID     string
	FrameID   string
	RequestID string
}

// Sink accepts decision events. Record must not block the caller for long;
// implementations that talk to a remote store batch internally rather than
// flushing synchronously per call.
type Sink interface {
	Record(e Event)
	Close() error
}

// NewEvent stamps an Event's ID and Timestamp; callers fill in the rest.
// now is a parameter rather than time.Now() so tests can supply a fixed
// clock.
func NewEvent(now time.Time) Event {
	return Event{ID: uuid.New(), Timestamp: now}
}
