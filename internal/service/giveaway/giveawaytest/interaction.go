package giveawaytest

import (
	"context"
	"sync"

	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

// Interaction is a scripted component interaction.
type Interaction struct {
	DeferErr error
	ReplyErr error

	customID  string
	userID    string
	guildID   string
	messageID string

	mu           sync.Mutex
	acknowledged bool
	deferred     int
	replies      []string
}

var _ giveaway.Interaction = (*Interaction)(nil)

func NewInteraction(customID, userID, guildID, messageID string) *Interaction {
	return &Interaction{customID: customID, userID: userID, guildID: guildID, messageID: messageID}
}

func (i *Interaction) CustomID() string  { return i.customID }
func (i *Interaction) UserID() string    { return i.userID }
func (i *Interaction) GuildID() string   { return i.guildID }
func (i *Interaction) MessageID() string { return i.messageID }

func (i *Interaction) Acknowledged() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.acknowledged
}

func (i *Interaction) Defer(ctx context.Context) error {
	if i.DeferErr != nil {
		return i.DeferErr
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.acknowledged = true
	i.deferred++
	return nil
}

func (i *Interaction) EditReply(ctx context.Context, content string) error {
	if i.ReplyErr != nil {
		return i.ReplyErr
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.replies = append(i.replies, content)
	return nil
}

// Deferred returns how many times the interaction was deferred.
func (i *Interaction) Deferred() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deferred
}

// Replies returns the reply contents in order.
func (i *Interaction) Replies() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.replies...)
}

// LastReply returns the most recent reply content.
func (i *Interaction) LastReply() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.replies) == 0 {
		return ""
	}
	return i.replies[len(i.replies)-1]
}
