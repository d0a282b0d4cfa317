// Package events - durable records of zone activity.
//
// The monitor hands each Event to a Logger. Loggers append to storage and
// return an error on failure; callers decide whether a failure matters. The
// frame loop never stops because of one.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what happened.
type Kind string

const (
	// EnteredZone is recorded when motion appears inside the zone.
	EnteredZone Kind = "entered_zone"
	// Reset is recorded when the background model is reinitialized.
	Reset Kind = "reset"
	// Visit is recorded when the zone empties after being occupied for at
	// least the configured minimum usage time.
	Visit Kind = "visit"
)

// Event is one timestamped record.
type Event struct {
	ID   uuid.UUID
	Time time.Time
	Kind Kind
	// Regions is the number of in-zone regions on the triggering frame.
	Regions int
	// Duration is the occupancy time of a Visit.
	Duration time.Duration
}

// New returns an event of the given kind stamped with t and a fresh ID.
func New(kind Kind, t time.Time) Event {
	return Event{
		ID:   uuid.New(),
		Time: t,
		Kind: kind,
	}
}

// String formats the event as one log line, without the trailing newline.
//
//	2006-01-02 15:04:05 <id> <kind> regions=<n> [duration=<d>]
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s regions=%d", e.Time.Format(time.DateTime), e.ID, e.Kind, e.Regions)
	if e.Duration > 0 {
		fmt.Fprintf(&b, " duration=%s", e.Duration.Round(time.Millisecond))
	}
	return b.String()
}

// Logger records events.
type Logger interface {
	Log(e Event) error
}

// Closer is a Logger holding resources.
type Closer interface {
	Logger
	Close() error
}

// Discard drops every event.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(Event) error { return nil }
