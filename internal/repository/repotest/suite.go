// Package repotest holds the behavioural contract every storage adapter
// must satisfy, runnable from each adapter's tests.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

// Factory returns a started, empty adapter. It registers its own cleanup.
type Factory func(t *testing.T) dg.Adapter

// Run executes the adapter contract against fresh adapters from newAdapter.
func Run(t *testing.T, newAdapter Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, a dg.Adapter)
	}{
		{"CreateDerivesIDFromMessage", testCreateDerivesID},
		{"CreateRejectsEmptyMessageID", testCreateRejectsEmptyMessageID},
		{"CreateDuplicateMessage", testCreateDuplicate},
		{"FetchFilterAndLimit", testFetchFilterAndLimit},
		{"UpdateEmitsPairs", testUpdateEmitsPairs},
		{"UpdateWithoutMatch", testUpdateWithoutMatch},
		{"DeleteCascadesEntries", testDeleteCascades},
		{"EntryUniqueness", testEntryUniqueness},
		{"EntryRequiresGiveaway", testEntryRequiresGiveaway},
		{"EntryIDsOrderedByCreation", testEntryIDsOrdered},
		{"UpdateAndDeleteEntries", testUpdateAndDeleteEntries},
		{"FieldsRoundTrip", testFieldsRoundTrip},
		{"FilterOnEmptyValue", testFilterOnEmptyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newAdapter(t))
		})
	}
}

// Recorder collects adapter change events.
type Recorder struct {
	mu     sync.Mutex
	events []dg.ChangeEvent
}

// Record subscribes a new recorder to a.
func Record(t *testing.T, a dg.Adapter) *Recorder {
	r := &Recorder{}
	t.Cleanup(a.Subscribe(r.add))
	return r
}

func (r *Recorder) add(e dg.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Kinds returns the kinds recorded so far, in order.
func (r *Recorder) Kinds() []dg.ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]dg.ChangeKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []dg.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dg.ChangeEvent(nil), r.events...)
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// NewGiveaway builds an unsaved active giveaway in the given guild.
func NewGiveaway(guildID string) dg.Giveaway {
	now := time.Now().UTC()
	return dg.Giveaway{
		GuildID:     guildID,
		ChannelID:   gofakeit.Numerify("##################"),
		MessageID:   gofakeit.Numerify("##################"),
		Name:        gofakeit.ProductName(),
		WinnerCount: 1,
		CreatedAt:   now,
		DueDate:     now.Add(time.Hour),
	}
}

func create(t *testing.T, a dg.Adapter, g dg.Giveaway) dg.Giveaway {
	t.Helper()
	created, err := a.CreateGiveaway(context.Background(), g)
	require.NoError(t, err)
	return created
}

func enter(t *testing.T, a dg.Adapter, giveawayID, userID string) dg.Entry {
	t.Helper()
	e, err := a.CreateEntry(context.Background(), dg.Entry{GiveawayID: giveawayID, UserID: userID})
	require.NoError(t, err)
	return e
}

func testCreateDerivesID(t *testing.T, a dg.Adapter) {
	rec := Record(t, a)
	g := NewGiveaway("g1")
	g.ID = "ignored"

	created := create(t, a, g)
	assert.Equal(t, g.MessageID, created.ID)

	got, err := a.FetchGiveaways(context.Background(), dg.GiveawayByID(created.ID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, created.Name, got[0].Name)
	assert.Equal(t, []dg.ChangeKind{dg.GiveawayCreated}, rec.Kinds())
}

func testCreateRejectsEmptyMessageID(t *testing.T, a dg.Adapter) {
	g := NewGiveaway("g1")
	g.MessageID = ""

	_, err := a.CreateGiveaway(context.Background(), g)
	assert.True(t, apperrors.IsValidation(err), "got %v", err)
}

func testCreateDuplicate(t *testing.T, a dg.Adapter) {
	g := create(t, a, NewGiveaway("g1"))

	_, err := a.CreateGiveaway(context.Background(), g)
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
}

func testFetchFilterAndLimit(t *testing.T, a dg.Adapter) {
	ctx := context.Background()
	active := create(t, a, NewGiveaway("g1"))
	ended := create(t, a, NewGiveaway("g1"))
	create(t, a, NewGiveaway("g2"))

	_, err := a.UpdateGiveaways(ctx, dg.GiveawayByID(ended.ID), dg.GiveawayPatch{Ended: dg.Ptr(true)})
	require.NoError(t, err)

	got, err := a.FetchGiveaways(ctx, dg.GiveawayQuery{Filter: dg.GiveawayFilter{GuildID: dg.Ptr("g1"), Ended: dg.Ptr(false)}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)

	all, err := a.FetchGiveaways(ctx, dg.GiveawayQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := a.FetchGiveaways(ctx, dg.GiveawayQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func testUpdateEmitsPairs(t *testing.T, a dg.Adapter) {
	ctx := context.Background()
	first := create(t, a, NewGiveaway("g1"))
	create(t, a, NewGiveaway("g1"))
	rec := Record(t, a)

	updated, err := a.UpdateGiveaways(ctx,
		dg.GiveawayQuery{Filter: dg.GiveawayFilter{GuildID: dg.Ptr("g1")}},
		dg.GiveawayPatch{Paused: dg.Ptr(true), Remaining: dg.Ptr(42 * time.Second)},
	)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, g := range updated {
		assert.True(t, g.Paused)
		assert.Equal(t, 42*time.Second, g.Remaining)
	}

	events := rec.Events()
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, dg.GiveawayUpdated, e.Kind)
		require.NotNil(t, e.PreviousGiveaway)
		assert.False(t, e.PreviousGiveaway.Paused)
		assert.True(t, e.Giveaway.Paused)
		assert.Equal(t, e.PreviousGiveaway.ID, e.Giveaway.ID)
	}

	got, err := a.FetchGiveaways(ctx, dg.GiveawayByID(first.ID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Paused)
}

func testUpdateWithoutMatch(t *testing.T, a dg.Adapter) {
	rec := Record(t, a)

	updated, err := a.UpdateGiveaways(context.Background(), dg.GiveawayByID("missing"), dg.GiveawayPatch{Ended: dg.Ptr(true)})
	require.NoError(t, err)
	assert.Empty(t, updated)

	deleted, err := a.DeleteGiveaways(context.Background(), dg.GiveawayByID("missing"))
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.Empty(t, rec.Kinds())
}

func testDeleteCascades(t *testing.T, a dg.Adapter) {
	ctx := context.Background()
	target := create(t, a, NewGiveaway("g1"))
	other := create(t, a, NewGiveaway("g1"))
	for _, user := range []string{"u1", "u2", "u3"} {
		enter(t, a, target.ID, user)
	}
	survivor := enter(t, a, other.ID, "u1")
	rec := Record(t, a)

	deleted, err := a.DeleteGiveaways(ctx, dg.GiveawayByID(target.ID))
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, target.ID, deleted[0].ID)

	assert.Equal(t, []dg.ChangeKind{dg.EntryDeleted, dg.EntryDeleted, dg.EntryDeleted, dg.GiveawayDeleted}, rec.Kinds())
	for _, e := range rec.Events()[:3] {
		assert.Equal(t, target.ID, e.Entry.GiveawayID)
	}

	left, err := a.FetchEntries(ctx, dg.EntryQuery{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, survivor.ID, left[0].ID)

	gone, err := a.FetchGiveaways(ctx, dg.GiveawayByID(target.ID))
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func testEntryUniqueness(t *testing.T, a dg.Adapter) {
	ctx := context.Background()
	first := create(t, a, NewGiveaway("g1"))
	second := create(t, a, NewGiveaway("g1"))

	enter(t, a, first.ID, "u1")
	_, err := a.CreateEntry(ctx, dg.Entry{GiveawayID: first.ID, UserID: "u1"})
	assert.True(t, apperrors.IsConflict(err), "got %v", err)

	enter(t, a, second.ID, "u1")
	entries, err := a.FetchEntries(ctx, dg.EntryQuery{Filter: dg.EntryFilter{UserID: dg.Ptr("u1")}})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func testEntryRequiresGiveaway(t *testing.T, a dg.Adapter) {
	_, err := a.CreateEntry(context.Background(), dg.Entry{GiveawayID: "nope", UserID: "u1"})
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func testEntryIDsOrdered(t *testing.T, a dg.Adapter) {
	g := create(t, a, NewGiveaway("g1"))
	rec := Record(t, a)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, enter(t, a, g.ID, gofakeit.UUID()).ID)
	}
	for i := 1; i < len(ids); i++ {
		assert.Equal(t, 1, dg.CompareIDs(ids[i], ids[i-1]), "ids %s, %s", ids[i-1], ids[i])
	}
	at, ok := dg.IDTime(ids[0])
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, time.Minute)
	assert.Len(t, rec.Kinds(), 5)
}

func testUpdateAndDeleteEntries(t *testing.T, a dg.Adapter) {
	ctx := context.Background()
	g := create(t, a, NewGiveaway("g1"))
	e1 := enter(t, a, g.ID, "u1")
	enter(t, a, g.ID, "u2")
	rec := Record(t, a)

	updated, err := a.UpdateEntries(ctx, dg.EntryByID(e1.ID), dg.EntryPatch{Chance: dg.Ptr(3)})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 3, updated[0].Chance)

	deleted, err := a.DeleteEntries(ctx, dg.EntryQuery{Filter: dg.EntryFilter{GiveawayID: &g.ID, UserID: dg.Ptr("u2")}})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "u2", deleted[0].UserID)

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, dg.EntryUpdated, events[0].Kind)
	assert.Equal(t, 1, events[0].PreviousEntry.Chance)
	assert.Equal(t, 3, events[0].Entry.Chance)
	assert.Equal(t, dg.EntryDeleted, events[1].Kind)

	left, err := a.FetchEntries(ctx, dg.EntriesOf(g.ID))
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, 3, left[0].Chance)
}

func testFieldsRoundTrip(t *testing.T, a dg.Adapter) {
	ctx := context.Background()
	g := NewGiveaway("g1")
	g.HostID = "host"
	g.Description = "two keys"
	g.WinnerCount = 3
	g.RiggedUserIDs = []string{"r1", "r2"}
	created := create(t, a, g)

	due := time.Now().Add(2 * time.Hour)
	_, err := a.UpdateGiveaways(ctx, dg.GiveawayByID(created.ID), dg.GiveawayPatch{
		Ended:          dg.Ptr(true),
		DueDate:        &due,
		WinnerEntryIDs: &[]string{"e1", "e2"},
	})
	require.NoError(t, err)

	got, err := a.FetchGiveaways(ctx, dg.GiveawayByID(created.ID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, "host", r.HostID)
	assert.Equal(t, "two keys", r.Description)
	assert.Equal(t, 3, r.WinnerCount)
	assert.Equal(t, []string{"r1", "r2"}, r.RiggedUserIDs)
	assert.Equal(t, []string{"e1", "e2"}, r.WinnerEntryIDs)
	assert.True(t, r.Ended)
	assert.WithinDuration(t, due, r.DueDate, time.Millisecond)
	assert.WithinDuration(t, g.CreatedAt, r.CreatedAt, time.Millisecond)
}

func testFilterOnEmptyValue(t *testing.T, a dg.Adapter) {
	ctx := context.Background()
	noHost := create(t, a, NewGiveaway("g1"))
	hosted := NewGiveaway("g1")
	hosted.HostID = "host"
	hosted = create(t, a, hosted)

	tests := []struct {
		name   string
		hostID string
		want   string
	}{
		{"empty host", "", noHost.ID},
		{"set host", "host", hosted.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.FetchGiveaways(ctx, dg.GiveawayQuery{Filter: dg.GiveawayFilter{HostID: dg.Ptr(tt.hostID)}})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].ID)
		})
	}

	// Patching the host away must keep the record reachable by the empty filter.
	_, err := a.UpdateGiveaways(ctx, dg.GiveawayByID(hosted.ID), dg.GiveawayPatch{HostID: dg.Ptr("")})
	require.NoError(t, err)
	got, err := a.FetchGiveaways(ctx, dg.GiveawayQuery{Filter: dg.GiveawayFilter{HostID: dg.Ptr("")}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
