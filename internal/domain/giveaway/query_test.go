package giveaway

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestGiveawayFilterMatch(t *testing.T) {
	g := Giveaway{ID: "1", GuildID: "g1", ChannelID: "c1", MessageID: "1", Name: "Nitro", WinnerCount: 2}

	tests := []struct {
		name   string
		filter GiveawayFilter
		want   bool
	}{
		{name: "empty filter", filter: GiveawayFilter{}, want: true},
		{name: "guild and not ended", filter: GiveawayFilter{GuildID: Ptr("g1"), Ended: Ptr(false)}, want: true},
		{name: "other guild", filter: GiveawayFilter{GuildID: Ptr("g2")}, want: false},
		{name: "ended mismatch", filter: GiveawayFilter{GuildID: Ptr("g1"), Ended: Ptr(true)}, want: false},
		{name: "winner count", filter: GiveawayFilter{WinnerCount: Ptr(2)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(g))
		})
	}
}

func TestGiveawayPatchApply(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 123456789, time.UTC)
	g := Giveaway{ID: "1", MessageID: "1", Name: "Old", WinnerEntryIDs: []string{}}

	winners := []string{"e1"}
	got := GiveawayPatch{
		Name:           Ptr("New"),
		Ended:          Ptr(true),
		DueDate:        &due,
		WinnerEntryIDs: &winners,
		Remaining:      Ptr(1500*time.Millisecond + 300*time.Microsecond),
	}.Apply(g)

	want := Giveaway{
		ID:             "1",
		MessageID:      "1",
		Name:           "New",
		Ended:          true,
		DueDate:        due.Truncate(time.Millisecond),
		WinnerEntryIDs: []string{"e1"},
		Remaining:      1500 * time.Millisecond,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Apply mismatch (-want +got):\n%s", diff)
	}

	winners[0] = "mutated"
	assert.Equal(t, "e1", got.WinnerEntryIDs[0])
	assert.True(t, GiveawayPatch{}.IsZero())
	assert.Equal(t, "Old", g.Name)
}

func TestNormalize(t *testing.T) {
	g := Normalize(Giveaway{MessageID: "42", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 999, time.Local)})

	assert.Equal(t, "42", g.ID)
	assert.Equal(t, 1, g.WinnerCount)
	assert.NotNil(t, g.WinnerEntryIDs)
	assert.Equal(t, time.UTC, g.CreatedAt.Location())

	e := NormalizeEntry(Entry{GiveawayID: "42", UserID: "u"})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 1, e.Chance)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestStateAndLimit(t *testing.T) {
	assert.Equal(t, StateActive, Giveaway{}.State())
	assert.Equal(t, StatePaused, Giveaway{Paused: true}.State())
	assert.Equal(t, StateEnded, Giveaway{Paused: true, Ended: true}.State())
	assert.Equal(t, []int{1, 2}, Limit([]int{1, 2, 3}, 2))
	assert.Equal(t, []int{1, 2, 3}, Limit([]int{1, 2, 3}, 0))
}
