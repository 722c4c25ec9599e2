package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
)

func toMessageSend(msg giveaway.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Buttons),
	}
}

func toMessageEdit(ref giveaway.MessageRef, msg giveaway.Message) *discordgo.MessageEdit {
	edit := discordgo.NewMessageEdit(ref.ChannelID, ref.MessageID).
		SetContent(msg.Content).
		SetEmbeds(toEmbeds(msg.Embeds))
	components := toComponents(msg.Buttons)
	edit.Components = &components
	return edit
}

func toEmbeds(embeds []giveaway.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.Author != "" {
			me.Author = &discordgo.MessageEmbedAuthor{Name: e.Author}
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if !e.Timestamp.IsZero() {
			me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, me)
	}
	return out
}

// toComponents lays buttons out in rows of five.
func toComponents(buttons []giveaway.Button) []discordgo.MessageComponent {
	const perRow = 5

	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += perRow {
		end := min(start+perRow, len(buttons))
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			btn := discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				Disabled: b.Disabled,
			}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			row.Components = append(row.Components, btn)
		}
		rows = append(rows, row)
	}
	if rows == nil {
		rows = []discordgo.MessageComponent{}
	}
	return rows
}

func buttonStyle(s giveaway.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case giveaway.ButtonSecondary:
		return discordgo.SecondaryButton
	case giveaway.ButtonSuccess:
		return discordgo.SuccessButton
	case giveaway.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}
