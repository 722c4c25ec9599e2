// Package giveawaytest provides in-memory fakes of the messaging client.
package giveawaytest

import (
	"context"
	"sync"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

// Client is an in-memory giveaway.Client. The optional hooks run before the
// corresponding call and fail it when they return an error.
type Client struct {
	SendHook   func(channelID string, msg giveaway.Message) error
	EditHook   func(ref giveaway.MessageRef, msg giveaway.Message) error
	DeleteHook func(ref giveaway.MessageRef) error
	FetchHook  func(channelID, messageID string) error

	ids *dg.IDGenerator

	mu        sync.Mutex
	ready     bool
	guilds    map[string]giveaway.Guild
	channels  map[string]giveaway.Channel
	messages  map[string]giveaway.Message
	edits     int
	listeners map[int]giveaway.Listener
	nextSub   int
}

var _ giveaway.Client = (*Client)(nil)

// NewClient returns a ready client without guilds.
func NewClient() *Client {
	return &Client{
		ids:       dg.NewIDGenerator(),
		ready:     true,
		guilds:    make(map[string]giveaway.Guild),
		channels:  make(map[string]giveaway.Channel),
		messages:  make(map[string]giveaway.Message),
		listeners: make(map[int]giveaway.Listener),
	}
}

func (c *Client) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Client) AddGuild(name string) giveaway.Guild {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := giveaway.Guild{ID: c.ids.Next(), Name: name}
	c.guilds[g.ID] = g
	return g
}

func (c *Client) AddChannel(guildID string, textBased bool) giveaway.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := giveaway.Channel{ID: c.ids.Next(), GuildID: guildID, TextBased: textBased}
	c.channels[ch.ID] = ch
	return ch
}

// RemoveGuild forgets a guild silently, without notifying listeners.
func (c *Client) RemoveGuild(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guilds, guildID)
}

// RemoveMessage forgets a message silently, without notifying listeners.
func (c *Client) RemoveMessage(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.messages, messageID)
}

// Message returns the latest content of a message.
func (c *Client) Message(messageID string) (giveaway.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.messages[messageID]
	return msg, ok
}

// MessageCount returns how many messages exist.
func (c *Client) MessageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Edits returns how many edits succeeded.
func (c *Client) Edits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edits
}

// Notify calls fn with every subscribed listener.
func (c *Client) Notify(fn func(l giveaway.Listener)) {
	c.mu.Lock()
	ls := make([]giveaway.Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		ls = append(ls, l)
	}
	c.mu.Unlock()

	for _, l := range ls {
		fn(l)
	}
}

// Listeners returns the number of subscribed listeners.
func (c *Client) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *Client) FetchGuild(ctx context.Context, guildID string) (giveaway.Guild, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.guilds[guildID]
	if !ok {
		return giveaway.Guild{}, giveaway.ErrUnknownResource
	}
	return g, nil
}

func (c *Client) FetchChannel(ctx context.Context, channelID string) (giveaway.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return giveaway.Channel{}, giveaway.ErrUnknownResource
	}
	if _, ok := c.guilds[ch.GuildID]; !ok {
		return giveaway.Channel{}, giveaway.ErrUnknownResource
	}
	return ch, nil
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (giveaway.MessageRef, error) {
	if c.FetchHook != nil {
		if err := c.FetchHook(channelID, messageID); err != nil {
			return giveaway.MessageRef{}, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return giveaway.MessageRef{}, giveaway.ErrUnknownResource
	}
	if _, ok := c.messages[messageID]; !ok {
		return giveaway.MessageRef{}, giveaway.ErrUnknownResource
	}
	return giveaway.MessageRef{GuildID: ch.GuildID, ChannelID: channelID, MessageID: messageID}, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg giveaway.Message) (giveaway.MessageRef, error) {
	if c.SendHook != nil {
		if err := c.SendHook(channelID, msg); err != nil {
			return giveaway.MessageRef{}, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return giveaway.MessageRef{}, giveaway.ErrUnknownResource
	}
	ref := giveaway.MessageRef{GuildID: ch.GuildID, ChannelID: channelID, MessageID: c.ids.Next()}
	c.messages[ref.MessageID] = msg
	return ref, nil
}

func (c *Client) EditMessage(ctx context.Context, ref giveaway.MessageRef, msg giveaway.Message) error {
	if c.EditHook != nil {
		if err := c.EditHook(ref, msg); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.messages[ref.MessageID]; !ok {
		return giveaway.ErrUnknownResource
	}
	c.messages[ref.MessageID] = msg
	c.edits++
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, ref giveaway.MessageRef) error {
	if c.DeleteHook != nil {
		if err := c.DeleteHook(ref); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.messages[ref.MessageID]; !ok {
		return giveaway.ErrUnknownResource
	}
	delete(c.messages, ref.MessageID)
	return nil
}

func (c *Client) Subscribe(l giveaway.Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}
