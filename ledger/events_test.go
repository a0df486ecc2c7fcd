package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvents_OnePerMutation(t *testing.T) {
	registry, clock := newTestRegistry(t)
	owner := newTestPrincipal(t)
	next := newTestPrincipal(t)
	alice := newTestPrincipal(t)

	id := createTestSale(t, registry, owner)
	require.NoError(t, registry.SetSaleActive(owner, id, false))
	require.NoError(t, registry.SetSaleActive(owner, id, true))
	clock.Set(time.Unix(150, 0))
	require.NoError(t, registry.ContributeEncrypted(alice, id, NewPayload([]byte{0x01})))
	require.NoError(t, registry.TransferSaleOwnership(owner, id, next))
	clock.Set(time.Unix(250, 0))
	require.NoError(t, registry.FinalizeSale(next, id, NewPayload([]byte{0xAA})))
	require.NoError(t, registry.ClaimAllocationEncrypted(alice, id, NewPayload([]byte{0xBB})))

	events := registry.Events(0)
	require.Len(t, events, 7)

	wantKinds := []EventKind{
		EventSaleCreated,
		EventSaleStatusChanged,
		EventSaleStatusChanged,
		EventContributedEncrypted,
		EventSaleOwnershipTransferred,
		EventSaleFinalized,
		EventAllocationClaimedEncrypted,
	}
	for i, ev := range events {
		require.Equal(t, wantKinds[i], ev.Kind)
		require.Equal(t, uint64(i+1), ev.Seq)
		require.NotEmpty(t, ev.ID)
		require.True(t, ev.Kind.Valid())
	}

	// Queries and denied transitions never log.
	_, _ = registry.Aggregates(id)
	require.ErrorIs(t, registry.ContributeEncrypted(alice, id, nil), ErrSaleNotActive)
	require.Len(t, registry.Events(0), 7)
}

func TestEvents_CarryTransitionArguments(t *testing.T) {
	registry, clock := newTestRegistry(t)
	owner := newTestPrincipal(t)
	alice := newTestPrincipal(t)
	id := createTestSale(t, registry, owner)

	clock.Set(time.Unix(150, 0))
	require.NoError(t, registry.ContributeEncrypted(alice, id, NewPayload([]byte{0x01, 0x02})))

	events := registry.Events(0)
	require.Len(t, events, 2)

	created := events[0]
	require.Equal(t, owner.String(), created.Actor)
	require.Equal(t, Payload([]byte{0xF0}), created.TokenRef)
	require.NotNil(t, created.Start)
	require.Equal(t, time.Unix(100, 0), *created.Start)
	require.NotNil(t, created.End)
	require.Equal(t, time.Unix(200, 0), *created.End)

	contributed := events[1]
	require.Equal(t, alice.String(), contributed.Actor)
	require.Equal(t, id, contributed.SaleID)
	require.Equal(t, Payload([]byte{0x01, 0x02}), contributed.Payload)
	require.Equal(t, time.Unix(150, 0), contributed.Time)
}

func TestEvents_Since(t *testing.T) {
	registry, _ := newTestRegistry(t)
	owner := newTestPrincipal(t)
	id := createTestSale(t, registry, owner)
	require.NoError(t, registry.SetSaleActive(owner, id, false))
	require.NoError(t, registry.SetSaleActive(owner, id, true))

	require.Len(t, registry.Events(0), 3)
	require.Len(t, registry.Events(1), 2)
	require.Len(t, registry.Events(3), 0)
	require.Len(t, registry.Events(99), 0)

	tail := registry.Events(2)
	require.Len(t, tail, 1)
	require.Equal(t, uint64(3), tail[0].Seq)
}

func TestSubscribe_DeliversSubsequentEvents(t *testing.T) {
	registry, _ := newTestRegistry(t)
	owner := newTestPrincipal(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := registry.Subscribe(ctx)

	id := createTestSale(t, registry, owner)
	require.NoError(t, registry.SetSaleActive(owner, id, false))

	select {
	case ev := <-ch:
		require.Equal(t, EventSaleCreated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	select {
	case ev := <-ch:
		require.Equal(t, EventSaleStatusChanged, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	// After cancellation the channel is closed on the next append.
	cancel()
	createTestSale(t, registry, owner)
	createTestSale(t, registry, owner)
	for range ch {
	}
}

func TestReplay_RebuildsState(t *testing.T) {
	source, clock := newTestRegistry(t)
	owner := newTestPrincipal(t)
	next := newTestPrincipal(t)
	alice := newTestPrincipal(t)
	bob := newTestPrincipal(t)

	id := createTestSale(t, source, owner)
	clock.Set(time.Unix(150, 0))
	require.NoError(t, source.ContributeEncrypted(alice, id, NewPayload([]byte{0x01})))
	require.NoError(t, source.ContributeEncrypted(alice, id, NewPayload([]byte{0x02})))
	require.NoError(t, source.ContributeEncrypted(bob, id, NewPayload([]byte{0x03})))
	require.NoError(t, source.TransferSaleOwnership(owner, id, next))
	clock.Set(time.Unix(250, 0))
	require.NoError(t, source.FinalizeSale(next, id, NewPayload([]byte{0xAA})))
	require.NoError(t, source.ClaimAllocationEncrypted(alice, id, NewPayload([]byte{0xBB})))

	restored := NewRegistry(Config{Clock: clock})
	require.NoError(t, restored.Replay(source.Events(0)))

	require.Equal(t, source.Sales(), restored.Sales())

	sourcePositions, err := source.Positions(id)
	require.NoError(t, err)
	restoredPositions, err := restored.Positions(id)
	require.NoError(t, err)
	require.Equal(t, sourcePositions, restoredPositions)

	require.Equal(t, source.Events(0), restored.Events(0))

	// The restored registry continues where the source left off: ids and
	// sequence numbers do not fork.
	newID, err := restored.CreateSale(owner, nil, time.Unix(300, 0), time.Unix(400, 0))
	require.NoError(t, err)
	require.Equal(t, id+1, newID)

	events := restored.Events(0)
	require.Equal(t, uint64(len(events)), events[len(events)-1].Seq)

	// Latches survive replay.
	require.ErrorIs(t, restored.ClaimAllocationEncrypted(alice, id, nil), ErrAlreadyClaimed)
	require.ErrorIs(t, restored.FinalizeSale(next, id, nil), ErrAlreadyFinalized)
	require.NoError(t, restored.ClaimAllocationEncrypted(bob, id, NewPayload([]byte{0xCC})))
}

func TestReplay_RejectsMalformedLog(t *testing.T) {
	registry, _ := newTestRegistry(t)

	err := registry.Replay([]Event{{Seq: 1, Kind: EventContributedEncrypted, SaleID: 7}})
	require.Error(t, err)

	err = registry.Replay([]Event{{Seq: 1, Kind: EventKind("bogus")}})
	require.Error(t, err)
}

func TestPayload_Digest(t *testing.T) {
	require.Len(t, Payload(nil).Digest(), 64)

	a := NewPayload([]byte{0x01}).Digest()
	b := NewPayload([]byte{0x02}).Digest()
	require.NotEqual(t, a, b)
	require.Equal(t, a, NewPayload([]byte{0x01}).Digest())
}
