package ledger

import (
	"context"
	"slices"
	"sync"
	"time"
)

// EventKind names the typed notification emitted by a mutating transition.
type EventKind string

const (
	EventSaleCreated                EventKind = "sale_created"
	EventSaleStatusChanged          EventKind = "sale_status_changed"
	EventSaleOwnershipTransferred   EventKind = "sale_ownership_transferred"
	EventContributedEncrypted       EventKind = "contributed_encrypted"
	EventSaleFinalized              EventKind = "sale_finalized"
	EventAllocationClaimedEncrypted EventKind = "allocation_claimed_encrypted"
)

// Valid returns true if the event kind is recognized.
func (k EventKind) Valid() bool {
	switch k {
	case EventSaleCreated, EventSaleStatusChanged, EventSaleOwnershipTransferred,
		EventContributedEncrypted, EventSaleFinalized, EventAllocationClaimedEncrypted:
		return true
	}
	return false
}

// Event is one entry of the append-only notification log. Every successful
// mutating transition produces exactly one event carrying the literal call
// arguments and resulting identifiers. Fields not applicable to a kind are
// left empty.
type Event struct {
	// Seq is the strictly increasing log sequence number, starting at 1.
	Seq uint64 `json:"seq"`

	// ID is a unique identifier for the event.
	ID string `json:"id"`

	Kind EventKind `json:"kind"`

	// Time is the registry clock reading when the transition was admitted.
	Time time.Time `json:"time"`

	SaleID SaleID `json:"sale_id"`

	// Actor is the hex principal that performed the transition.
	Actor string `json:"actor,omitempty"`

	// Payload carries the opaque contribution, summary, or allocation bytes.
	Payload Payload `json:"payload,omitempty"`

	// Sale creation arguments.
	TokenRef Payload    `json:"token_ref,omitempty"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`

	// Active carries the new pause flag for status changes.
	Active *bool `json:"active,omitempty"`

	// NewOwner carries the hex principal for ownership transfers.
	NewOwner string `json:"new_owner,omitempty"`
}

type subscriber struct {
	ctx context.Context
	ch  chan Event
}

// eventLog is the in-process append-only event store with fan-out to
// context-scoped subscribers.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	subs   []subscriber
}

func newEventLog() *eventLog {
	return &eventLog{
		events: make([]Event, 0),
		subs:   make([]subscriber, 0),
	}
}

// append records the event and notifies subscribers. Slow subscribers are
// skipped rather than blocking the transition; cancelled ones are dropped.
func (l *eventLog) append(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ev)

	toRemove := []int{}
	for i, sub := range l.subs {
		select {
		case <-sub.ctx.Done():
			close(sub.ch)
			toRemove = append(toRemove, i)
		case sub.ch <- ev:
		default:
			// Skip if channel is full
		}
	}

	slices.Reverse(toRemove)
	for _, i := range toRemove {
		l.subs = slices.Delete(l.subs, i, i+1)
	}
}

// since returns a copy of all events with Seq > seq.
func (l *eventLog) since(seq uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := len(l.events)
	for i, ev := range l.events {
		if ev.Seq > seq {
			start = i
			break
		}
	}

	out := make([]Event, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}

// subscribe registers a channel that receives every event appended after
// the call, until ctx is cancelled.
func (l *eventLog) subscribe(ctx context.Context) <-chan Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 64)
	l.subs = append(l.subs, subscriber{ctx, ch})
	return ch
}
