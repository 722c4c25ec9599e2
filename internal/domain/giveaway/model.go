package giveaway

import "time"

// State is the lifecycle state of a stored giveaway.
type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
	StateEnded  State = "ended"
)

// Giveaway is a scheduled prize drawing tied to one announcement message.
// ID always equals MessageID.
type Giveaway struct {
	ID          string `json:"id"`
	GuildID     string `json:"guild_id"`
	ChannelID   string `json:"channel_id"`
	MessageID   string `json:"message_id"`
	HostID      string `json:"host_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	WinnerCount int    `json:"winner_count"`

	CreatedAt time.Time `json:"created_at"`
	Paused    bool      `json:"paused"`
	// Remaining is the time left at pause. Only meaningful while Paused.
	Remaining time.Duration `json:"-"`
	Ended     bool          `json:"ended"`
	// DueDate is stale while Paused; it holds the end time once Ended.
	DueDate time.Time `json:"due_date"`

	RiggedUserIDs  []string `json:"rigged_user_ids,omitempty"`
	WinnerEntryIDs []string `json:"winner_entry_ids"`
}

// State derives the lifecycle state. Ended takes precedence over Paused.
func (g Giveaway) State() State {
	switch {
	case g.Ended:
		return StateEnded
	case g.Paused:
		return StatePaused
	default:
		return StateActive
	}
}

// Active reports whether the giveaway is neither paused nor ended.
func (g Giveaway) Active() bool {
	return g.State() == StateActive
}

// Entry is a single user's participation in a giveaway.
type Entry struct {
	ID         string    `json:"id"`
	GiveawayID string    `json:"giveaway_id"`
	UserID     string    `json:"user_id"`
	Chance     int       `json:"chance"`
	CreatedAt  time.Time `json:"created_at"`
}

// Normalize prepares a giveaway for persistence: the id is derived from
// the message id and timestamps are stored as UTC with millisecond precision.
func Normalize(g Giveaway) Giveaway {
	g.ID = g.MessageID
	g.CreatedAt = truncate(g.CreatedAt)
	g.DueDate = truncate(g.DueDate)
	g.Remaining = g.Remaining.Truncate(time.Millisecond)
	if g.WinnerCount == 0 {
		g.WinnerCount = 1
	}
	if g.WinnerEntryIDs == nil {
		g.WinnerEntryIDs = []string{}
	}
	return g
}

// NormalizeEntry fills defaults for a new entry. A missing id is generated.
func NormalizeEntry(e Entry) Entry {
	if e.ID == "" {
		e.ID = NewEntryID()
	}
	if e.Chance == 0 {
		e.Chance = 1
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = truncate(e.CreatedAt)
	return e
}

func truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Millisecond)
}
