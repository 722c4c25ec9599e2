package giveaway

import "context"

// ChangeKind enumerates adapter change events.
type ChangeKind int

const (
	GiveawayCreated ChangeKind = iota + 1
	GiveawayUpdated
	GiveawayDeleted
	EntryCreated
	EntryUpdated
	EntryDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case GiveawayCreated:
		return "giveaway_created"
	case GiveawayUpdated:
		return "giveaway_updated"
	case GiveawayDeleted:
		return "giveaway_deleted"
	case EntryCreated:
		return "entry_created"
	case EntryUpdated:
		return "entry_updated"
	case EntryDeleted:
		return "entry_deleted"
	default:
		return "unknown"
	}
}

// ChangeEvent describes one persisted change. Previous* fields are set
// only for updates.
type ChangeEvent struct {
	Kind             ChangeKind
	Giveaway         *Giveaway
	PreviousGiveaway *Giveaway
	Entry            *Entry
	PreviousEntry    *Entry
}

// Adapter persists giveaways and entries.
//
// Implementations must be safe for concurrent use, derive giveaway ids from
// message ids, keep (GiveawayID, UserID) unique among entries and cascade
// giveaway deletion to entries. Every change is published to subscribers
// before the mutating call returns; on cascade delete the entry events
// precede the event of their giveaway. Update and delete calls that match
// nothing return an empty slice and no error.
type Adapter interface {
	Start(ctx context.Context) error
	Close() error
	Subscribe(fn func(ChangeEvent)) (unsubscribe func())

	FetchGiveaways(ctx context.Context, q GiveawayQuery) ([]Giveaway, error)
	UpdateGiveaways(ctx context.Context, q GiveawayQuery, patch GiveawayPatch) ([]Giveaway, error)
	DeleteGiveaways(ctx context.Context, q GiveawayQuery) ([]Giveaway, error)
	CreateGiveaway(ctx context.Context, g Giveaway) (Giveaway, error)

	FetchEntries(ctx context.Context, q EntryQuery) ([]Entry, error)
	UpdateEntries(ctx context.Context, q EntryQuery, patch EntryPatch) ([]Entry, error)
	DeleteEntries(ctx context.Context, q EntryQuery) ([]Entry, error)
	CreateEntry(ctx context.Context, e Entry) (Entry, error)
}
