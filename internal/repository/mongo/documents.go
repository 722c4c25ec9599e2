package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

type giveawayDocument struct {
	ID             string    `bson:"_id"`
	GuildID        string    `bson:"guildId"`
	ChannelID      string    `bson:"channelId"`
	MessageID      string    `bson:"messageId"`
	HostID         string    `bson:"hostId,omitempty"`
	Name           string    `bson:"name"`
	Description    string    `bson:"description,omitempty"`
	WinnerCount    int       `bson:"winnerCount"`
	CreatedAt      time.Time `bson:"createdAt"`
	Paused         bool      `bson:"paused"`
	Remaining      int64     `bson:"remaining,omitempty"`
	Ended          bool      `bson:"ended"`
	DueDate        time.Time `bson:"dueDate"`
	RiggedUsersID  []string  `bson:"riggedUsersId,omitempty"`
	WinnersEntryID []string  `bson:"winnersEntryId"`
}

type entryDocument struct {
	ID         string    `bson:"_id"`
	GiveawayID string    `bson:"giveawayId"`
	UserID     string    `bson:"userId"`
	Chance     int       `bson:"chance"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func fromGiveaway(g dg.Giveaway) giveawayDocument {
	return giveawayDocument{
		ID:             g.ID,
		GuildID:        g.GuildID,
		ChannelID:      g.ChannelID,
		MessageID:      g.MessageID,
		HostID:         g.HostID,
		Name:           g.Name,
		Description:    g.Description,
		WinnerCount:    g.WinnerCount,
		CreatedAt:      g.CreatedAt,
		Paused:         g.Paused,
		Remaining:      g.Remaining.Milliseconds(),
		Ended:          g.Ended,
		DueDate:        g.DueDate,
		RiggedUsersID:  g.RiggedUserIDs,
		WinnersEntryID: g.WinnerEntryIDs,
	}
}

func (d giveawayDocument) domain() dg.Giveaway {
	winners := d.WinnersEntryID
	if winners == nil {
		winners = []string{}
	}
	return dg.Giveaway{
		ID:             d.ID,
		GuildID:        d.GuildID,
		ChannelID:      d.ChannelID,
		MessageID:      d.MessageID,
		HostID:         d.HostID,
		Name:           d.Name,
		Description:    d.Description,
		WinnerCount:    d.WinnerCount,
		CreatedAt:      d.CreatedAt.UTC(),
		Paused:         d.Paused,
		Remaining:      time.Duration(d.Remaining) * time.Millisecond,
		Ended:          d.Ended,
		DueDate:        d.DueDate.UTC(),
		RiggedUserIDs:  d.RiggedUsersID,
		WinnerEntryIDs: winners,
	}
}

func fromEntry(e dg.Entry) entryDocument {
	return entryDocument{ID: e.ID, GiveawayID: e.GiveawayID, UserID: e.UserID, Chance: e.Chance, CreatedAt: e.CreatedAt}
}

func (d entryDocument) domain() dg.Entry {
	return dg.Entry{ID: d.ID, GiveawayID: d.GiveawayID, UserID: d.UserID, Chance: d.Chance, CreatedAt: d.CreatedAt.UTC()}
}

func giveawayFilter(f dg.GiveawayFilter) bson.D {
	filter := bson.D{}
	add := func(key string, v any) { filter = append(filter, bson.E{Key: key, Value: v}) }
	if f.ID != nil {
		add("_id", *f.ID)
	}
	if f.GuildID != nil {
		add("guildId", *f.GuildID)
	}
	if f.ChannelID != nil {
		add("channelId", *f.ChannelID)
	}
	if f.MessageID != nil {
		add("messageId", *f.MessageID)
	}
	if f.HostID != nil {
		add("hostId", optionalString(*f.HostID))
	}
	if f.Name != nil {
		add("name", *f.Name)
	}
	if f.WinnerCount != nil {
		add("winnerCount", *f.WinnerCount)
	}
	if f.Paused != nil {
		add("paused", *f.Paused)
	}
	if f.Ended != nil {
		add("ended", *f.Ended)
	}
	return filter
}

// optionalString matches an omitempty field. An empty value also matches
// documents where the field is absent.
func optionalString(v string) any {
	if v == "" {
		return bson.M{"$in": bson.A{"", nil}}
	}
	return v
}

func entryFilter(f dg.EntryFilter) bson.D {
	filter := bson.D{}
	if f.ID != nil {
		filter = append(filter, bson.E{Key: "_id", Value: *f.ID})
	}
	if f.GiveawayID != nil {
		filter = append(filter, bson.E{Key: "giveawayId", Value: *f.GiveawayID})
	}
	if f.UserID != nil {
		filter = append(filter, bson.E{Key: "userId", Value: *f.UserID})
	}
	if f.Chance != nil {
		filter = append(filter, bson.E{Key: "chance", Value: *f.Chance})
	}
	return filter
}

// giveawaySet renders a patch as a $set document. Remaining is unset
// rather than stored as zero.
func giveawaySet(p dg.GiveawayPatch) bson.D {
	set := bson.D{}
	unset := bson.D{}
	add := func(key string, v any) { set = append(set, bson.E{Key: key, Value: v}) }
	if p.HostID != nil {
		add("hostId", *p.HostID)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.WinnerCount != nil {
		add("winnerCount", *p.WinnerCount)
	}
	if p.Paused != nil {
		add("paused", *p.Paused)
	}
	if p.Remaining != nil {
		if ms := p.Remaining.Milliseconds(); ms > 0 {
			add("remaining", ms)
		} else {
			unset = append(unset, bson.E{Key: "remaining", Value: ""})
		}
	}
	if p.Ended != nil {
		add("ended", *p.Ended)
	}
	if p.DueDate != nil {
		add("dueDate", p.DueDate.UTC().Truncate(time.Millisecond))
	}
	if p.RiggedUserIDs != nil {
		add("riggedUsersId", *p.RiggedUserIDs)
	}
	if p.WinnerEntryIDs != nil {
		winners := *p.WinnerEntryIDs
		if winners == nil {
			winners = []string{}
		}
		add("winnersEntryId", winners)
	}

	update := bson.D{}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}
