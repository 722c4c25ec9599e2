package giveaway

import (
	"slices"
	"time"
)

// Ptr returns a pointer to v. Handy for building filters and patches.
func Ptr[T any](v T) *T {
	return &v
}

// GiveawayFilter is a conjunctive equality predicate; nil fields match anything.
type GiveawayFilter struct {
	ID          *string
	GuildID     *string
	ChannelID   *string
	MessageID   *string
	HostID      *string
	Name        *string
	WinnerCount *int
	Paused      *bool
	Ended       *bool
}

// Match reports whether g satisfies every set field of f.
func (f GiveawayFilter) Match(g Giveaway) bool {
	return eq(f.ID, g.ID) &&
		eq(f.GuildID, g.GuildID) &&
		eq(f.ChannelID, g.ChannelID) &&
		eq(f.MessageID, g.MessageID) &&
		eq(f.HostID, g.HostID) &&
		eq(f.Name, g.Name) &&
		eq(f.WinnerCount, g.WinnerCount) &&
		eq(f.Paused, g.Paused) &&
		eq(f.Ended, g.Ended)
}

// GiveawayQuery selects giveaways. Limit <= 0 means no limit.
type GiveawayQuery struct {
	Filter GiveawayFilter
	Limit  int
}

// GiveawayByID selects the single giveaway with the given id.
func GiveawayByID(id string) GiveawayQuery {
	return GiveawayQuery{Filter: GiveawayFilter{ID: &id}, Limit: 1}
}

// EntryFilter is a conjunctive equality predicate over entries.
type EntryFilter struct {
	ID         *string
	GiveawayID *string
	UserID     *string
	Chance     *int
}

func (f EntryFilter) Match(e Entry) bool {
	return eq(f.ID, e.ID) &&
		eq(f.GiveawayID, e.GiveawayID) &&
		eq(f.UserID, e.UserID) &&
		eq(f.Chance, e.Chance)
}

// EntryQuery selects entries. Limit <= 0 means no limit.
type EntryQuery struct {
	Filter EntryFilter
	Limit  int
}

// EntriesOf selects every entry of a giveaway.
func EntriesOf(giveawayID string) EntryQuery {
	return EntryQuery{Filter: EntryFilter{GiveawayID: &giveawayID}}
}

// EntryByID selects the single entry with the given id.
func EntryByID(id string) EntryQuery {
	return EntryQuery{Filter: EntryFilter{ID: &id}, Limit: 1}
}

// GiveawayPatch is a partial update; nil fields are left untouched.
// Identity and location fields are not patchable.
type GiveawayPatch struct {
	HostID         *string
	Name           *string
	Description    *string
	WinnerCount    *int
	Paused         *bool
	Remaining      *time.Duration
	Ended          *bool
	DueDate        *time.Time
	RiggedUserIDs  *[]string
	WinnerEntryIDs *[]string
}

// IsZero reports whether the patch changes nothing.
func (p GiveawayPatch) IsZero() bool {
	return p == GiveawayPatch{}
}

// Apply returns a copy of g with the patch applied.
func (p GiveawayPatch) Apply(g Giveaway) Giveaway {
	set(&g.HostID, p.HostID)
	set(&g.Name, p.Name)
	set(&g.Description, p.Description)
	set(&g.WinnerCount, p.WinnerCount)
	set(&g.Paused, p.Paused)
	set(&g.Ended, p.Ended)
	if p.Remaining != nil {
		g.Remaining = p.Remaining.Truncate(time.Millisecond)
	}
	if p.DueDate != nil {
		g.DueDate = truncate(*p.DueDate)
	}
	if p.RiggedUserIDs != nil {
		g.RiggedUserIDs = slices.Clone(*p.RiggedUserIDs)
	}
	if p.WinnerEntryIDs != nil {
		g.WinnerEntryIDs = slices.Clone(*p.WinnerEntryIDs)
		if g.WinnerEntryIDs == nil {
			g.WinnerEntryIDs = []string{}
		}
	}
	return g
}

// EntryPatch is a partial entry update.
type EntryPatch struct {
	Chance *int
}

func (p EntryPatch) IsZero() bool {
	return p.Chance == nil
}

func (p EntryPatch) Apply(e Entry) Entry {
	set(&e.Chance, p.Chance)
	return e
}

func eq[T comparable](want *T, got T) bool {
	return want == nil || *want == got
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Limit truncates items to n when n > 0.
func Limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
