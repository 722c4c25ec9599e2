package giveaway

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

func entriesFor(userIDs ...string) []dg.Entry {
	gen := dg.NewIDGenerator()
	out := make([]dg.Entry, len(userIDs))
	for i, id := range userIDs {
		out[i] = dg.Entry{ID: gen.Next(), GiveawayID: "g", UserID: id, Chance: 1}
	}
	return out
}

func users(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func TestSelectWinnersRiggedPrecedence(t *testing.T) {
	pool := users("u", 10)
	entries := entriesFor(pool...)

	for trial := 0; trial < 1000; trial++ {
		winners, err := SelectWinners(SelectionInput{
			Entries:       entries,
			RiggedUserIDs: []string{"A", "B"},
			WinnerCount:   3,
		})
		require.NoError(t, err)
		require.Len(t, winners, 3)
		assert.Contains(t, winners, "A")
		assert.Contains(t, winners, "B")
		assert.Contains(t, pool, winners[2])
	}
}

func TestSelectWinners(t *testing.T) {
	tests := []struct {
		name     string
		in       SelectionInput
		wantLen  int
		want     []string
		excluded []string
	}{
		{
			name:    "fewer entries than winners",
			in:      SelectionInput{Entries: entriesFor("a", "b"), WinnerCount: 5},
			wantLen: 2,
			want:    []string{"a", "b"},
		},
		{
			name:    "no entries",
			in:      SelectionInput{WinnerCount: 3},
			wantLen: 0,
		},
		{
			name:     "ignored users never win",
			in:       SelectionInput{Entries: entriesFor("a", "b", "c"), WinnerCount: 3, IgnoredUserIDs: []string{"b"}},
			wantLen:  2,
			excluded: []string{"b"},
		},
		{
			name:     "ignored rigged users are not seeded",
			in:       SelectionInput{Entries: entriesFor("a"), RiggedUserIDs: []string{"r"}, WinnerCount: 1, IgnoredUserIDs: []string{"r"}},
			wantLen:  1,
			want:     []string{"a"},
			excluded: []string{"r"},
		},
		{
			name:    "rigged users beyond the count all win",
			in:      SelectionInput{Entries: entriesFor("a", "b"), RiggedUserIDs: []string{"r1", "r2", "r3"}, WinnerCount: 2},
			wantLen: 3,
			want:    []string{"r1", "r2", "r3"},
		},
		{
			name:    "rigged outside the count",
			in:      SelectionInput{Entries: entriesFor("a", "b", "c"), RiggedUserIDs: []string{"r"}, WinnerCount: 2, RiggedOutsideCount: true},
			wantLen: 3,
			want:    []string{"r"},
		},
		{
			name:     "rigging ignored",
			in:       SelectionInput{Entries: entriesFor("a"), RiggedUserIDs: []string{"r"}, WinnerCount: 1, IgnoreRigging: true},
			wantLen:  1,
			want:     []string{"a"},
			excluded: []string{"r"},
		},
		{
			name:    "rigged entrant is not drawn twice",
			in:      SelectionInput{Entries: entriesFor("r", "a"), RiggedUserIDs: []string{"r"}, WinnerCount: 2},
			wantLen: 2,
			want:    []string{"r", "a"},
		},
		{
			name:    "duplicate entries of one user count once",
			in:      SelectionInput{Entries: entriesFor("a", "a", "a"), WinnerCount: 3},
			wantLen: 1,
			want:    []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winners, err := SelectWinners(tt.in)
			require.NoError(t, err)
			assert.Len(t, winners, tt.wantLen)
			for _, id := range tt.want {
				assert.Contains(t, winners, id)
			}
			for _, id := range tt.excluded {
				assert.NotContains(t, winners, id)
			}
		})
	}
}

func TestArrangeWinnersOrdersNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []dg.Entry{
		{ID: idAt(base), UserID: "old"},
		{ID: idAt(base.Add(time.Minute)), UserID: "mid"},
		{ID: idAt(base.Add(2 * time.Minute)), UserID: "new"},
	}

	selected, ids := arrangeWinners(entries, []string{"old", "ghost", "new", "mid", "new"})

	assert.Equal(t, []string{"new", "mid", "old", "ghost"}, ids)
	require.Len(t, selected, 3)
	assert.Equal(t, "new", selected[0].UserID)
	assert.Equal(t, "old", selected[2].UserID)
}

func TestArrangeWinnersSameMillisecond(t *testing.T) {
	base := (time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli() - dg.Epoch) << 22
	entries := []dg.Entry{
		{ID: fmt.Sprintf("%d", base), UserID: "first"},
		{ID: fmt.Sprintf("%d", base+1), UserID: "second"},
		{ID: fmt.Sprintf("%d", base+2), UserID: "third"},
	}

	for _, order := range [][]string{
		{"first", "second", "third"},
		{"third", "first", "second"},
		{"second", "third", "first"},
	} {
		_, ids := arrangeWinners(entries, order)
		assert.Equal(t, []string{"third", "second", "first"}, ids, "input %v", order)
	}
}

func TestArrangeWinnersEmpty(t *testing.T) {
	selected, ids := arrangeWinners(nil, nil)
	assert.Empty(t, selected)
	assert.NotNil(t, ids)
}

func idAt(t time.Time) string {
	return fmt.Sprintf("%d", (t.UnixMilli()-dg.Epoch)<<22)
}
