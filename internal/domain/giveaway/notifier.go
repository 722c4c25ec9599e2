package giveaway

import "github.com/thenorthsolution/djs-utils/internal/common/events"

// Notifier implements the subscription half of Adapter. Adapters embed it.
type Notifier struct {
	bus events.Bus[ChangeEvent]
}

func (n *Notifier) Subscribe(fn func(ChangeEvent)) (unsubscribe func()) {
	return n.bus.Subscribe(fn)
}

func (n *Notifier) GiveawaysCreated(gs ...Giveaway) {
	for i := range gs {
		n.bus.Publish(ChangeEvent{Kind: GiveawayCreated, Giveaway: &gs[i]})
	}
}

// GiveawaysUpdated publishes one event per pair; before and after must be parallel.
func (n *Notifier) GiveawaysUpdated(before, after []Giveaway) {
	for i := range after {
		n.bus.Publish(ChangeEvent{Kind: GiveawayUpdated, Giveaway: &after[i], PreviousGiveaway: &before[i]})
	}
}

// GiveawaysDeleted publishes the cascaded entry deletions of each giveaway
// followed by the giveaway itself.
func (n *Notifier) GiveawaysDeleted(gs []Giveaway, entries []Entry) {
	for i := range gs {
		for j := range entries {
			if entries[j].GiveawayID == gs[i].ID {
				n.bus.Publish(ChangeEvent{Kind: EntryDeleted, Entry: &entries[j]})
			}
		}
		n.bus.Publish(ChangeEvent{Kind: GiveawayDeleted, Giveaway: &gs[i]})
	}
}

func (n *Notifier) EntriesCreated(es ...Entry) {
	for i := range es {
		n.bus.Publish(ChangeEvent{Kind: EntryCreated, Entry: &es[i]})
	}
}

func (n *Notifier) EntriesUpdated(before, after []Entry) {
	for i := range after {
		n.bus.Publish(ChangeEvent{Kind: EntryUpdated, Entry: &after[i], PreviousEntry: &before[i]})
	}
}

func (n *Notifier) EntriesDeleted(es []Entry) {
	for i := range es {
		n.bus.Publish(ChangeEvent{Kind: EntryDeleted, Entry: &es[i]})
	}
}
