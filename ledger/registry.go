package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CabinBranis/fhe-ido-launchpad/identity"
)

// Journal persists the event log. Append is invoked inside the transition
// lock after validation and before the in-memory mutation is applied; an
// append error rejects the whole transition, keeping state and journal in
// lockstep.
type Journal interface {
	Append(Event) error
}

// Config configures a Registry. Zero values fall back to the system clock,
// no journal, and the default logger.
type Config struct {
	Clock   Clock
	Journal Journal
	Log     *slog.Logger
}

type positionKey struct {
	sale        SaleID
	participant string
}

// Registry is the authoritative sale and position store. All transitions are
// serialized under one lock: each call runs to completion against a
// consistent snapshot with no interleaving.
type Registry struct {
	clock   Clock
	journal Journal
	log     *slog.Logger

	mu        sync.RWMutex
	nextID    SaleID
	lastSeq   uint64
	sales     map[SaleID]*Sale
	positions map[positionKey]*Position
	events    *eventLog
}

// NewRegistry creates an empty registry.
func NewRegistry(config Config) *Registry {
	clock := config.Clock
	if clock == nil {
		clock = SystemClock()
	}
	log := config.Log
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		clock:     clock,
		journal:   config.Journal,
		log:       log,
		sales:     make(map[SaleID]*Sale),
		positions: make(map[positionKey]*Position),
		events:    newEventLog(),
	}
}

// CreateSale registers a new sale window owned by the caller. The window
// must satisfy end > start and end strictly in the future. Returns the new
// sale's id, unique and never reused.
func (r *Registry) CreateSale(caller identity.Principal, tokenRef Payload, start, end time.Time) (SaleID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if !end.After(start) || !end.After(now) {
		return 0, ErrInvalidWindow
	}

	id := r.nextID
	startCopy, endCopy := start, end
	ev := r.newEvent(EventSaleCreated, id, now)
	ev.Actor = caller.String()
	ev.TokenRef = NewPayload(tokenRef)
	ev.Start = &startCopy
	ev.End = &endCopy

	if err := r.commit(ev); err != nil {
		return 0, err
	}

	r.nextID++
	r.sales[id] = &Sale{
		ID:       id,
		Owner:    caller.String(),
		TokenRef: NewPayload(tokenRef),
		Start:    start,
		End:      end,
		Active:   true,
	}

	r.log.Info("sale created",
		"sale_id", id,
		"owner", caller.String(),
		"token_ref", tokenRef.Digest(),
		"start", start,
		"end", end,
	)
	return id, nil
}

// SetSaleActive overwrites the sale's pause flag. Owner only. The flag is
// set unconditionally, even on finalized sales; tightening this would change
// observable semantics.
func (r *Registry) SetSaleActive(caller identity.Principal, id SaleID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.sales[id]
	if !ok || sale.Owner != caller.String() {
		return ErrNotAuthorized
	}

	activeCopy := active
	ev := r.newEvent(EventSaleStatusChanged, id, r.clock.Now())
	ev.Actor = caller.String()
	ev.Active = &activeCopy

	if err := r.commit(ev); err != nil {
		return err
	}

	sale.Active = active

	r.log.Info("sale status changed", "sale_id", id, "active", active)
	return nil
}

// TransferSaleOwnership hands the sale to a new owner. Owner only; the null
// principal is rejected.
func (r *Registry) TransferSaleOwnership(caller identity.Principal, id SaleID, newOwner identity.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.sales[id]
	if !ok || sale.Owner != caller.String() {
		return ErrNotAuthorized
	}
	if newOwner.IsZero() {
		return ErrZeroIdentity
	}

	ev := r.newEvent(EventSaleOwnershipTransferred, id, r.clock.Now())
	ev.Actor = caller.String()
	ev.NewOwner = newOwner.String()

	if err := r.commit(ev); err != nil {
		return err
	}

	sale.Owner = newOwner.String()

	r.log.Info("sale ownership transferred", "sale_id", id, "new_owner", newOwner.String())
	return nil
}

// ContributeEncrypted records the caller's opaque contribution payload.
// Admitted only while the sale exists, is active, and the current time lies
// within [start, end). The caller's position is created lazily; repeat
// contributions overwrite the stored payload (last write wins).
func (r *Registry) ContributeEncrypted(caller identity.Principal, id SaleID, payload Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	sale, ok := r.sales[id]
	if !ok || !sale.Active || !sale.windowContains(now) {
		return ErrSaleNotActive
	}

	ev := r.newEvent(EventContributedEncrypted, id, now)
	ev.Actor = caller.String()
	ev.Payload = NewPayload(payload)

	if err := r.commit(ev); err != nil {
		return err
	}

	r.applyContribution(sale, caller.String(), payload, now)

	r.log.Info("encrypted contribution recorded",
		"sale_id", id,
		"participant", caller.String(),
		"payload", payload.Digest(),
		"contributors", sale.ContributorCount,
		"contributions", sale.ContributionCount,
	)
	return nil
}

// applyContribution mutates position and counters. Shared by the live path
// and Replay so both derive counts identically.
func (r *Registry) applyContribution(sale *Sale, participant string, payload Payload, now time.Time) {
	key := positionKey{sale.ID, participant}
	pos, ok := r.positions[key]
	if !ok {
		pos = &Position{SaleID: sale.ID, Participant: participant}
		r.positions[key] = pos
	}

	if !pos.Contributed {
		pos.Contributed = true
		sale.ContributorCount++
	}

	pos.Contribution = NewPayload(payload)
	pos.LastUpdate = now
	sale.ContributionCount++
}

// FinalizeSale closes the sale to contributions and enables claims. Owner
// only, exactly once, and only after the window has ended. The summary is an
// opaque commitment the ledger neither validates nor interprets.
func (r *Registry) FinalizeSale(caller identity.Principal, id SaleID, summary Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.sales[id]
	if !ok || sale.Owner != caller.String() {
		return ErrNotAuthorized
	}
	if sale.Finalized {
		return ErrAlreadyFinalized
	}
	now := r.clock.Now()
	if now.Before(sale.End) {
		return ErrNotEnded
	}

	ev := r.newEvent(EventSaleFinalized, id, now)
	ev.Actor = caller.String()
	ev.Payload = NewPayload(summary)

	if err := r.commit(ev); err != nil {
		return err
	}

	sale.Finalized = true
	sale.Active = false

	r.log.Info("sale finalized", "sale_id", id, "summary", summary.Digest())
	return nil
}

// ClaimAllocationEncrypted redeems the caller's allocation, exactly once,
// after the sale is finalized. The allocation payload is supplied by the
// caller and re-emitted verbatim; computing it is the external layer's job.
func (r *Registry) ClaimAllocationEncrypted(caller identity.Principal, id SaleID, allocation Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.sales[id]
	if !ok || !sale.Finalized {
		return ErrNotFinalized
	}

	pos, ok := r.positions[positionKey{id, caller.String()}]
	if !ok {
		return ErrNoContribution
	}
	if pos.AllocationClaimed {
		return ErrAlreadyClaimed
	}

	ev := r.newEvent(EventAllocationClaimedEncrypted, id, r.clock.Now())
	ev.Actor = caller.String()
	ev.Payload = NewPayload(allocation)

	if err := r.commit(ev); err != nil {
		return err
	}

	pos.AllocationClaimed = true

	r.log.Info("allocation claimed",
		"sale_id", id,
		"participant", caller.String(),
		"allocation", allocation.Digest(),
	)
	return nil
}

// IsActive reports whether the sale currently admits contributions:
// active and within [start, end). Unknown sales are not active.
func (r *Registry) IsActive(id SaleID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sale, ok := r.sales[id]
	return ok && sale.Active && sale.windowContains(r.clock.Now())
}

// Aggregates returns the sale's counter snapshot.
func (r *Registry) Aggregates(id SaleID) (Aggregates, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sale, ok := r.sales[id]
	if !ok {
		return Aggregates{}, ErrSaleNotFound
	}
	return Aggregates{
		ContributorCount:  sale.ContributorCount,
		ContributionCount: sale.ContributionCount,
		Finalized:         sale.Finalized,
	}, nil
}

// Sale returns a copy of the sale record.
func (r *Registry) Sale(id SaleID) (Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sale, ok := r.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return *sale, nil
}

// Sales returns copies of all sale records, ordered by id.
func (r *Registry) Sales() []Sale {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sale, 0, len(r.sales))
	for _, sale := range r.sales {
		out = append(out, *sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Position returns a copy of the participant's position for the sale.
func (r *Registry) Position(id SaleID, participant identity.Principal) (Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.sales[id]; !ok {
		return Position{}, ErrSaleNotFound
	}
	pos, ok := r.positions[positionKey{id, participant.String()}]
	if !ok {
		return Position{}, ErrNoContribution
	}
	return *pos, nil
}

// Positions returns copies of all positions recorded for the sale, ordered
// by participant.
func (r *Registry) Positions(id SaleID) ([]Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.sales[id]; !ok {
		return nil, ErrSaleNotFound
	}
	out := make([]Position, 0)
	for key, pos := range r.positions {
		if key.sale == id {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Participant < out[j].Participant })
	return out, nil
}

// Events returns a copy of all logged events with Seq > since.
func (r *Registry) Events(since uint64) []Event {
	return r.events.since(since)
}

// Subscribe returns a channel receiving every event emitted after the call,
// until ctx is cancelled. Slow consumers miss events rather than blocking
// transitions.
func (r *Registry) Subscribe(ctx context.Context) <-chan Event {
	return r.events.subscribe(ctx)
}

// Replay rebuilds registry state from a previously journaled event log.
// Events are applied in order without re-journaling. Must be called before
// the registry serves traffic.
func (r *Registry) Replay(events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range events {
		if err := r.apply(ev); err != nil {
			return fmt.Errorf("replaying event %d (%s): %w", ev.Seq, ev.Kind, err)
		}
		r.lastSeq = ev.Seq
		r.events.append(ev)
	}

	r.log.Info("event log replayed", "events", len(events), "sales", len(r.sales))
	return nil
}

// apply mutates state for one replayed event.
func (r *Registry) apply(ev Event) error {
	switch ev.Kind {
	case EventSaleCreated:
		if ev.Start == nil || ev.End == nil {
			return fmt.Errorf("sale created event missing window")
		}
		r.sales[ev.SaleID] = &Sale{
			ID:       ev.SaleID,
			Owner:    ev.Actor,
			TokenRef: NewPayload(ev.TokenRef),
			Start:    *ev.Start,
			End:      *ev.End,
			Active:   true,
		}
		if ev.SaleID >= r.nextID {
			r.nextID = ev.SaleID + 1
		}
		return nil

	case EventSaleStatusChanged:
		sale, ok := r.sales[ev.SaleID]
		if !ok {
			return ErrSaleNotFound
		}
		if ev.Active == nil {
			return fmt.Errorf("status change event missing flag")
		}
		sale.Active = *ev.Active
		return nil

	case EventSaleOwnershipTransferred:
		sale, ok := r.sales[ev.SaleID]
		if !ok {
			return ErrSaleNotFound
		}
		sale.Owner = ev.NewOwner
		return nil

	case EventContributedEncrypted:
		sale, ok := r.sales[ev.SaleID]
		if !ok {
			return ErrSaleNotFound
		}
		r.applyContribution(sale, ev.Actor, ev.Payload, ev.Time)
		return nil

	case EventSaleFinalized:
		sale, ok := r.sales[ev.SaleID]
		if !ok {
			return ErrSaleNotFound
		}
		sale.Finalized = true
		sale.Active = false
		return nil

	case EventAllocationClaimedEncrypted:
		pos, ok := r.positions[positionKey{ev.SaleID, ev.Actor}]
		if !ok {
			return ErrNoContribution
		}
		pos.AllocationClaimed = true
		return nil
	}

	return fmt.Errorf("unknown event kind %q", ev.Kind)
}

// newEvent builds the next event envelope. Caller holds the write lock.
func (r *Registry) newEvent(kind EventKind, id SaleID, now time.Time) Event {
	return Event{
		Seq:    r.lastSeq + 1,
		ID:     uuid.NewString(),
		Kind:   kind,
		Time:   now,
		SaleID: id,
	}
}

// commit journals the event and, on success, publishes it. Caller holds the
// write lock and must only mutate state after commit returns nil.
func (r *Registry) commit(ev Event) error {
	if r.journal != nil {
		if err := r.journal.Append(ev); err != nil {
			return fmt.Errorf("journaling event: %w", err)
		}
	}
	r.lastSeq = ev.Seq
	r.events.append(ev)
	return nil
}
