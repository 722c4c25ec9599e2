// Package codec maps domain records to their JSON document form.
package codec

import (
	"time"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

// Giveaway is the stored JSON form of a giveaway. Timestamps serialize as
// ISO-8601 strings and Remaining as milliseconds.
type Giveaway struct {
	ID             string    `json:"id"`
	GuildID        string    `json:"guildId"`
	ChannelID      string    `json:"channelId"`
	MessageID      string    `json:"messageId"`
	HostID         string    `json:"hostId,omitempty"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	WinnerCount    int       `json:"winnerCount"`
	CreatedAt      time.Time `json:"createdAt"`
	Paused         bool      `json:"paused"`
	Remaining      int64     `json:"remaining,omitempty"`
	Ended          bool      `json:"ended"`
	DueDate        time.Time `json:"dueDate"`
	RiggedUsersID  []string  `json:"riggedUsersId,omitempty"`
	WinnersEntryID []string  `json:"winnersEntryId"`
}

// Entry is the stored JSON form of an entry.
type Entry struct {
	ID         string    `json:"id"`
	GiveawayID string    `json:"giveawayId"`
	UserID     string    `json:"userId"`
	Chance     int       `json:"chance"`
	CreatedAt  time.Time `json:"createdAt"`
}

func FromGiveaway(g dg.Giveaway) Giveaway {
	winners := g.WinnerEntryIDs
	if winners == nil {
		winners = []string{}
	}
	return Giveaway{
		ID:             g.ID,
		GuildID:        g.GuildID,
		ChannelID:      g.ChannelID,
		MessageID:      g.MessageID,
		HostID:         g.HostID,
		Name:           g.Name,
		Description:    g.Description,
		WinnerCount:    g.WinnerCount,
		CreatedAt:      g.CreatedAt.UTC(),
		Paused:         g.Paused,
		Remaining:      g.Remaining.Milliseconds(),
		Ended:          g.Ended,
		DueDate:        g.DueDate.UTC(),
		RiggedUsersID:  g.RiggedUserIDs,
		WinnersEntryID: winners,
	}
}

func (r Giveaway) Domain() dg.Giveaway {
	winners := r.WinnersEntryID
	if winners == nil {
		winners = []string{}
	}
	return dg.Giveaway{
		ID:             r.ID,
		GuildID:        r.GuildID,
		ChannelID:      r.ChannelID,
		MessageID:      r.MessageID,
		HostID:         r.HostID,
		Name:           r.Name,
		Description:    r.Description,
		WinnerCount:    r.WinnerCount,
		CreatedAt:      r.CreatedAt.UTC(),
		Paused:         r.Paused,
		Remaining:      time.Duration(r.Remaining) * time.Millisecond,
		Ended:          r.Ended,
		DueDate:        r.DueDate.UTC(),
		RiggedUserIDs:  r.RiggedUsersID,
		WinnerEntryIDs: winners,
	}
}

func FromEntry(e dg.Entry) Entry {
	return Entry{
		ID:         e.ID,
		GiveawayID: e.GiveawayID,
		UserID:     e.UserID,
		Chance:     e.Chance,
		CreatedAt:  e.CreatedAt.UTC(),
	}
}

func (r Entry) Domain() dg.Entry {
	return dg.Entry{
		ID:         r.ID,
		GiveawayID: r.GiveawayID,
		UserID:     r.UserID,
		Chance:     r.Chance,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}
