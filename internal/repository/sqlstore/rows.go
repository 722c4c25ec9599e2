package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

const giveawayColumns = `"id", "guildId", "channelId", "messageId", "hostId", "name", "description", "winnerCount", "createdAt", "paused", "remaining", "ended", "dueDate", "riggedUsersId", "winnersEntryId"`

const entryColumns = `"id", "giveawayId", "userId", "chance", "createdAt"`

type giveawayRow struct {
	ID             string         `db:"id"`
	GuildID        string         `db:"guildId"`
	ChannelID      string         `db:"channelId"`
	MessageID      string         `db:"messageId"`
	HostID         sql.NullString `db:"hostId"`
	Name           string         `db:"name"`
	Description    sql.NullString `db:"description"`
	WinnerCount    int            `db:"winnerCount"`
	CreatedAt      string         `db:"createdAt"`
	Paused         string         `db:"paused"`
	Remaining      sql.NullInt64  `db:"remaining"`
	Ended          string         `db:"ended"`
	DueDate        string         `db:"dueDate"`
	RiggedUsersID  sql.NullString `db:"riggedUsersId"`
	WinnersEntryID string         `db:"winnersEntryId"`
}

type entryRow struct {
	ID         string `db:"id"`
	GiveawayID string `db:"giveawayId"`
	UserID     string `db:"userId"`
	Chance     int    `db:"chance"`
	CreatedAt  string `db:"createdAt"`
}

func (r giveawayRow) domain() (dg.Giveaway, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return dg.Giveaway{}, err
	}
	dueDate, err := parseTime(r.DueDate)
	if err != nil {
		return dg.Giveaway{}, err
	}
	winners, err := decodeList(r.WinnersEntryID)
	if err != nil {
		return dg.Giveaway{}, err
	}
	if winners == nil {
		winners = []string{}
	}
	var rigged []string
	if r.RiggedUsersID.Valid {
		if rigged, err = decodeList(r.RiggedUsersID.String); err != nil {
			return dg.Giveaway{}, err
		}
	}
	return dg.Giveaway{
		ID:             r.ID,
		GuildID:        r.GuildID,
		ChannelID:      r.ChannelID,
		MessageID:      r.MessageID,
		HostID:         r.HostID.String,
		Name:           r.Name,
		Description:    r.Description.String,
		WinnerCount:    r.WinnerCount,
		CreatedAt:      createdAt,
		Paused:         r.Paused == "true",
		Remaining:      time.Duration(r.Remaining.Int64) * time.Millisecond,
		Ended:          r.Ended == "true",
		DueDate:        dueDate,
		RiggedUserIDs:  rigged,
		WinnerEntryIDs: winners,
	}, nil
}

// giveawayValues returns the insert values in giveawayColumns order.
func giveawayValues(g dg.Giveaway) ([]any, error) {
	winners, err := encodeList(g.WinnerEntryIDs)
	if err != nil {
		return nil, err
	}
	rigged := sql.NullString{}
	if g.RiggedUserIDs != nil {
		s, err := encodeList(g.RiggedUserIDs)
		if err != nil {
			return nil, err
		}
		rigged = sql.NullString{String: s, Valid: true}
	}
	return []any{
		g.ID, g.GuildID, g.ChannelID, g.MessageID,
		nullString(g.HostID), g.Name, nullString(g.Description), g.WinnerCount,
		formatTime(g.CreatedAt), boolToken(g.Paused), nullRemaining(g.Remaining),
		boolToken(g.Ended), formatTime(g.DueDate), rigged, winners,
	}, nil
}

func (r entryRow) domain() (dg.Entry, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return dg.Entry{}, err
	}
	return dg.Entry{
		ID:         r.ID,
		GiveawayID: r.GiveawayID,
		UserID:     r.UserID,
		Chance:     r.Chance,
		CreatedAt:  createdAt,
	}, nil
}

type clause struct {
	column string
	value  any
	// nullable columns store "" as NULL and compare through COALESCE.
	nullable bool
}

func giveawayClauses(f dg.GiveawayFilter) []clause {
	var cs []clause
	add := func(column string, v any) { cs = append(cs, clause{column: column, value: v}) }
	if f.ID != nil {
		add("id", *f.ID)
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
		cs = append(cs, clause{column: "hostId", value: *f.HostID, nullable: true})
	}
	if f.Name != nil {
		add("name", *f.Name)
	}
	if f.WinnerCount != nil {
		add("winnerCount", *f.WinnerCount)
	}
	if f.Paused != nil {
		add("paused", boolToken(*f.Paused))
	}
	if f.Ended != nil {
		add("ended", boolToken(*f.Ended))
	}
	return cs
}

func entryClauses(f dg.EntryFilter) []clause {
	var cs []clause
	if f.ID != nil {
		cs = append(cs, clause{column: "id", value: *f.ID})
	}
	if f.GiveawayID != nil {
		cs = append(cs, clause{column: "giveawayId", value: *f.GiveawayID})
	}
	if f.UserID != nil {
		cs = append(cs, clause{column: "userId", value: *f.UserID})
	}
	if f.Chance != nil {
		cs = append(cs, clause{column: "chance", value: *f.Chance})
	}
	return cs
}

func giveawayAssignments(p dg.GiveawayPatch) ([]clause, error) {
	var cs []clause
	add := func(column string, v any) { cs = append(cs, clause{column: column, value: v}) }
	if p.HostID != nil {
		add("hostId", nullString(*p.HostID))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Description != nil {
		add("description", nullString(*p.Description))
	}
	if p.WinnerCount != nil {
		add("winnerCount", *p.WinnerCount)
	}
	if p.Paused != nil {
		add("paused", boolToken(*p.Paused))
	}
	if p.Remaining != nil {
		add("remaining", nullRemaining(*p.Remaining))
	}
	if p.Ended != nil {
		add("ended", boolToken(*p.Ended))
	}
	if p.DueDate != nil {
		add("dueDate", formatTime(*p.DueDate))
	}
	if p.RiggedUserIDs != nil {
		s, err := encodeList(*p.RiggedUserIDs)
		if err != nil {
			return nil, err
		}
		add("riggedUsersId", s)
	}
	if p.WinnerEntryIDs != nil {
		s, err := encodeList(*p.WinnerEntryIDs)
		if err != nil {
			return nil, err
		}
		add("winnersEntryId", s)
	}
	return cs, nil
}

// where renders a conjunctive WHERE clause with ? placeholders.
func where(cs []clause) (string, []any) {
	if len(cs) == 0 {
		return "", nil
	}
	parts := make([]string, len(cs))
	args := make([]any, len(cs))
	for i, c := range cs {
		if c.nullable {
			parts[i] = "COALESCE(" + quote(c.column) + ", '') = ?"
		} else {
			parts[i] = quote(c.column) + " = ?"
		}
		args[i] = c.value
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func assignments(cs []clause) (string, []any) {
	parts := make([]string, len(cs))
	args := make([]any, len(cs))
	for i, c := range cs {
		parts[i] = quote(c.column) + " = ?"
		args[i] = c.value
	}
	return strings.Join(parts, ", "), args
}

func limit(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", n)
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func boolToken(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullRemaining(d time.Duration) sql.NullInt64 {
	return sql.NullInt64{Int64: d.Milliseconds(), Valid: d > 0}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func encodeList(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	return string(raw), err
}

func decodeList(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("decode list %q: %w", s, err)
	}
	return ids, nil
}
