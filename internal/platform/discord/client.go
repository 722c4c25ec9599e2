package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

// eventTimeout bounds the handling of one gateway event.
const eventTimeout = 30 * time.Second

// Client adapts a discordgo session to giveaway.Client.
type Client struct {
	session *discordgo.Session
	ready   atomic.Bool
	log     zerolog.Logger
}

// New prepares a bot session. Call Open to connect.
func New(token string, log zerolog.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	c := &Client{session: s, log: log.With().Str("component", "discord").Logger()}
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		c.ready.Store(true)
		c.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord session ready")
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		c.ready.Store(true)
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		c.ready.Store(false)
		c.log.Warn().Msg("Discord session disconnected")
	})
	return c, nil
}

// Open connects to the gateway and waits until the session is ready or ctx
// is done.
func (c *Client) Open(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for !c.ready.Load() {
		select {
		case <-ctx.Done():
			_ = c.session.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (c *Client) Close() error {
	c.ready.Store(false)
	return c.session.Close()
}

func (c *Client) Ready() bool {
	return c.ready.Load()
}

func (c *Client) FetchGuild(ctx context.Context, guildID string) (giveaway.Guild, error) {
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return giveaway.Guild{}, mapError(err)
	}
	return giveaway.Guild{ID: g.ID, Name: g.Name}, nil
}

func (c *Client) FetchChannel(ctx context.Context, channelID string) (giveaway.Channel, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return giveaway.Channel{}, mapError(err)
	}
	return giveaway.Channel{ID: ch.ID, GuildID: ch.GuildID, TextBased: isTextBased(ch.Type)}, nil
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (giveaway.MessageRef, error) {
	m, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return giveaway.MessageRef{}, mapError(err)
	}
	return giveaway.MessageRef{GuildID: m.GuildID, ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg giveaway.Message) (giveaway.MessageRef, error) {
	m, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return giveaway.MessageRef{}, mapError(err)
	}
	guildID := m.GuildID
	if guildID == "" {
		if ch, err := c.session.State.Channel(channelID); err == nil {
			guildID = ch.GuildID
		}
	}
	return giveaway.MessageRef{GuildID: guildID, ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

func (c *Client) EditMessage(ctx context.Context, ref giveaway.MessageRef, msg giveaway.Message) error {
	_, err := c.session.ChannelMessageEditComplex(toMessageEdit(ref, msg), discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) DeleteMessage(ctx context.Context, ref giveaway.MessageRef) error {
	return mapError(c.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)))
}

// Subscribe forwards gateway events to l.
func (c *Client) Subscribe(l giveaway.Listener) func() {
	removers := []func(){
		c.session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildDelete) {
			// An unavailable guild is an outage, not a removal.
			if e.Guild == nil || e.Unavailable {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			l.GuildDelete(ctx, e.ID)
		}),
		c.session.AddHandler(func(_ *discordgo.Session, e *discordgo.ChannelDelete) {
			if e.Channel == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			l.ChannelDelete(ctx, e.ID)
		}),
		c.session.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageDelete) {
			if e.Message == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			l.MessageDelete(ctx, e.ChannelID, e.ID)
		}),
		c.session.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageDeleteBulk) {
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			l.MessageDeleteBulk(ctx, e.ChannelID, e.Messages)
		}),
		c.session.AddHandler(func(s *discordgo.Session, e *discordgo.InteractionCreate) {
			if e.Interaction == nil || e.Type != discordgo.InteractionMessageComponent {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			l.InteractionCreate(ctx, newInteraction(s, e.Interaction))
		}),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

// mapError turns a 404 into giveaway.ErrUnknownResource.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", giveaway.ErrUnknownResource, err)
	}
	return err
}

func isTextBased(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildVoice,
		discordgo.ChannelTypeGuildStageVoice,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	default:
		return false
	}
}
