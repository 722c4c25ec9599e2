package sqlstore

import "fmt"

// Tables names the two tables the adapter owns.
type Tables struct {
	Giveaways string
	Entries   string
}

// DefaultTables returns the canonical table names.
func DefaultTables() Tables {
	return Tables{Giveaways: "Giveaways", Entries: "GiveawayEntries"}
}

func (t Tables) withDefaults() Tables {
	d := DefaultTables()
	if t.Giveaways == "" {
		t.Giveaways = d.Giveaways
	}
	if t.Entries == "" {
		t.Entries = d.Entries
	}
	return t
}

// schema returns DDL valid for both SQLite and PostgreSQL. Booleans are
// "true"/"false" tokens, lists are JSON text and timestamps ISO-8601 text.
func (t Tables) schema() []string {
	g, e := quote(t.Giveaways), quote(t.Entries)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"id" TEXT NOT NULL PRIMARY KEY,
	"guildId" TEXT NOT NULL,
	"channelId" TEXT NOT NULL,
	"messageId" TEXT NOT NULL,
	"hostId" TEXT,
	"name" TEXT NOT NULL,
	"description" TEXT,
	"winnerCount" INTEGER NOT NULL DEFAULT 1,
	"createdAt" TEXT NOT NULL,
	"paused" TEXT NOT NULL DEFAULT 'false',
	"remaining" BIGINT,
	"ended" TEXT NOT NULL DEFAULT 'false',
	"dueDate" TEXT NOT NULL,
	"riggedUsersId" TEXT,
	"winnersEntryId" TEXT NOT NULL DEFAULT '[]'
)`, g),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ("messageId")`, quote(t.Giveaways+"_messageId_key"), g),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"id" TEXT NOT NULL PRIMARY KEY,
	"giveawayId" TEXT NOT NULL REFERENCES %s ("id") ON DELETE CASCADE ON UPDATE CASCADE,
	"userId" TEXT NOT NULL,
	"chance" INTEGER NOT NULL DEFAULT 1,
	"createdAt" TEXT NOT NULL
)`, e, g),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ("giveawayId", "userId")`, quote(t.Entries+"_giveawayId_userId_key"), e),
	}
}
