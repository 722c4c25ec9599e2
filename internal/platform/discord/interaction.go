package discord

import (
	"context"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// interaction implements giveaway.Interaction for a message component.
type interaction struct {
	session *discordgo.Session
	i       *discordgo.Interaction
	acked   atomic.Bool
}

func newInteraction(s *discordgo.Session, i *discordgo.Interaction) *interaction {
	return &interaction{session: s, i: i}
}

func (it *interaction) CustomID() string {
	return it.i.MessageComponentData().CustomID
}

func (it *interaction) UserID() string {
	if it.i.Member != nil && it.i.Member.User != nil {
		return it.i.Member.User.ID
	}
	if it.i.User != nil {
		return it.i.User.ID
	}
	return ""
}

func (it *interaction) GuildID() string {
	return it.i.GuildID
}

func (it *interaction) MessageID() string {
	if it.i.Message == nil {
		return ""
	}
	return it.i.Message.ID
}

func (it *interaction) Acknowledged() bool {
	return it.acked.Load()
}

func (it *interaction) Defer(ctx context.Context) error {
	err := it.session.InteractionRespond(it.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err)
	}
	it.acked.Store(true)
	return nil
}

func (it *interaction) EditReply(ctx context.Context, content string) error {
	_, err := it.session.InteractionResponseEdit(it.i, &discordgo.WebhookEdit{Content: &content}, discordgo.WithContext(ctx))
	return mapError(err)
}
