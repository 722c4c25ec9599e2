package giveaway

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownResource is returned by a Client when the requested guild,
// channel or message does not exist. Any other error is a transport failure.
var ErrUnknownResource = errors.New("unknown resource")

// Client is the slice of the chat platform the manager depends on.
type Client interface {
	// Ready reports whether the client is connected and able to serve requests.
	Ready() bool

	FetchGuild(ctx context.Context, guildID string) (Guild, error)
	FetchChannel(ctx context.Context, channelID string) (Channel, error)
	FetchMessage(ctx context.Context, channelID, messageID string) (MessageRef, error)

	SendMessage(ctx context.Context, channelID string, msg Message) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, msg Message) error
	DeleteMessage(ctx context.Context, ref MessageRef) error

	// Subscribe delivers upstream notifications to l until unsubscribe is called.
	Subscribe(l Listener) (unsubscribe func())
}

// Listener receives upstream notifications from a Client.
type Listener interface {
	GuildDelete(ctx context.Context, guildID string)
	ChannelDelete(ctx context.Context, channelID string)
	MessageDelete(ctx context.Context, channelID, messageID string)
	MessageDeleteBulk(ctx context.Context, channelID string, messageIDs []string)
	InteractionCreate(ctx context.Context, it Interaction)
}

// Interaction is a component interaction delivered by the platform.
type Interaction interface {
	CustomID() string
	UserID() string
	GuildID() string
	MessageID() string
	// Acknowledged reports whether a deferral or reply was already sent.
	Acknowledged() bool
	// Defer acknowledges the interaction with an ephemeral pending reply.
	Defer(ctx context.Context) error
	// EditReply replaces the deferred reply content.
	EditReply(ctx context.Context, content string) error
}

type Guild struct {
	ID   string
	Name string
}

type Channel struct {
	ID      string
	GuildID string
	// TextBased reports whether messages can be posted to the channel.
	TextBased bool
}

// MessageRef locates a message.
type MessageRef struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// Message is a platform-neutral rendering of an announcement.
type Message struct {
	Content string
	Embeds  []Embed
	Buttons []Button
}

type Embed struct {
	Author      string
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// ButtonStyle mirrors the platform button styles.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
	Disabled bool
}
