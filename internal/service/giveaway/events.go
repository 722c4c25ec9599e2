package giveaway

import dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"

// EventKind enumerates manager events.
type EventKind int

const (
	EventGiveawayCreate EventKind = iota + 1
	EventGiveawayPause
	EventGiveawayResume
	EventGiveawayEnd
	EventGiveawayReroll
	EventGiveawayDelete
	// EventEntryAdd and EventEntryRemove come from the toggle flow.
	EventEntryAdd
	EventEntryRemove
	// EventEntryCreate, EventEntryUpdate and EventEntryDelete are forwarded
	// from the storage adapter.
	EventEntryCreate
	EventEntryUpdate
	EventEntryDelete
	EventError
)

var eventNames = map[EventKind]string{
	EventGiveawayCreate: "giveaway_create",
	EventGiveawayPause:  "giveaway_pause",
	EventGiveawayResume: "giveaway_resume",
	EventGiveawayEnd:    "giveaway_end",
	EventGiveawayReroll: "giveaway_reroll",
	EventGiveawayDelete: "giveaway_delete",
	EventEntryAdd:       "entry_add",
	EventEntryRemove:    "entry_remove",
	EventEntryCreate:    "entry_create",
	EventEntryUpdate:    "entry_update",
	EventEntryDelete:    "entry_delete",
	EventError:          "error",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is published on the manager's event stream.
type Event struct {
	Kind          EventKind
	Giveaway      *dg.Giveaway
	Entry         *dg.Entry
	PreviousEntry *dg.Entry
	// Entries carries the selection context of end and reroll events.
	Entries *EntriesData
	Err     error
}

// EntriesData is the outcome of a winner selection.
type EntriesData struct {
	AllEntries      []dg.Entry `json:"all_entries"`
	RiggedUserIDs   []string   `json:"rigged_user_ids"`
	SelectedEntries []dg.Entry `json:"selected_entries"`
	WinnerUserIDs   []string   `json:"winner_user_ids"`
}
