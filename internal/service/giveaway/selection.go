package giveaway

import (
	"slices"
	"time"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/utils/random"
)

// SelectOptions overrides winner selection for one call. The zero value
// uses the giveaway's winner count, honours rigging and counts rigged users
// toward the winner count.
type SelectOptions struct {
	WinnerCount        int
	IgnoredUserIDs     []string
	IgnoreRigging      bool
	RiggedOutsideCount bool
}

// SelectionInput is everything a Selector may base its decision on.
type SelectionInput struct {
	Entries            []dg.Entry
	RiggedUserIDs      []string
	WinnerCount        int
	IgnoredUserIDs     []string
	IgnoreRigging      bool
	RiggedOutsideCount bool
}

// Selector returns the winning user ids. Duplicates are dropped and the
// result is re-ordered by the manager.
type Selector func(in SelectionInput) ([]string, error)

// SelectWinners is the default Selector. Rigged users win first, then the
// remaining slots are drawn uniformly without replacement from the users
// that entered, one draw per user regardless of entry count.
func SelectWinners(in SelectionInput) ([]string, error) {
	ignored := toSet(in.IgnoredUserIDs)
	rigged := toSet(in.RiggedUserIDs)
	honourRigging := !in.IgnoreRigging

	var winners []string
	chosen := make(map[string]struct{})
	if honourRigging {
		for _, id := range in.RiggedUserIDs {
			if _, skip := ignored[id]; skip {
				continue
			}
			if _, dup := chosen[id]; dup {
				continue
			}
			chosen[id] = struct{}{}
			winners = append(winners, id)
		}
	}

	var pool []string
	pooled := make(map[string]struct{})
	for _, e := range in.Entries {
		if _, skip := ignored[e.UserID]; skip {
			continue
		}
		if _, isRigged := rigged[e.UserID]; isRigged && honourRigging {
			continue
		}
		if _, dup := pooled[e.UserID]; dup {
			continue
		}
		pooled[e.UserID] = struct{}{}
		pool = append(pool, e.UserID)
	}

	remaining := in.WinnerCount
	if honourRigging && !in.RiggedOutsideCount {
		remaining -= len(winners)
	}
	drawn, err := random.Sample(pool, remaining)
	if err != nil {
		return nil, err
	}
	return append(winners, drawn...), nil
}

// arrangeWinners dedupes winner ids, pairs them with their entries and
// orders both by entry creation time, newest first. Winners without an
// entry sort last in their selection order.
func arrangeWinners(entries []dg.Entry, winnerIDs []string) ([]dg.Entry, []string) {
	byUser := make(map[string]dg.Entry, len(entries))
	for _, e := range entries {
		if cur, ok := byUser[e.UserID]; !ok || entryTime(e).After(entryTime(cur)) {
			byUser[e.UserID] = e
		}
	}

	type winner struct {
		userID string
		entry  *dg.Entry
		order  int
	}
	seen := make(map[string]struct{}, len(winnerIDs))
	ws := make([]winner, 0, len(winnerIDs))
	for i, id := range winnerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		w := winner{userID: id, order: i}
		if e, ok := byUser[id]; ok {
			w.entry = &e
		}
		ws = append(ws, w)
	}

	slices.SortStableFunc(ws, func(a, b winner) int {
		switch {
		case a.entry != nil && b.entry != nil:
			if c := entryTime(*b.entry).Compare(entryTime(*a.entry)); c != 0 {
				return c
			}
			// Same millisecond: the sequence bits of the id decide.
			return dg.CompareIDs(b.entry.ID, a.entry.ID)
		case a.entry != nil:
			return -1
		case b.entry != nil:
			return 1
		default:
			return a.order - b.order
		}
	})

	selected := make([]dg.Entry, 0, len(ws))
	ids := make([]string, 0, len(ws))
	for _, w := range ws {
		if w.entry != nil {
			selected = append(selected, *w.entry)
		}
		ids = append(ids, w.userID)
	}
	return selected, ids
}

// entryTime reads the creation time encoded in the entry id, falling back
// to the stored timestamp for ids that carry none.
func entryTime(e dg.Entry) time.Time {
	if t, ok := dg.IDTime(e.ID); ok {
		return t
	}
	return e.CreatedAt
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
