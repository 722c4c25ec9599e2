package giveaway

import (
	"fmt"
	"strings"
	"time"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

// DefaultJoinButtonID is the custom id of the join button.
const DefaultJoinButtonID = "giveaway-join"

const (
	colorActive = 0x5865F2
	colorPaused = 0xFEE75C
	colorEnded  = 0x2C2F33
)

// RenderContext is the state an announcement is rendered from.
type RenderContext struct {
	Giveaway   dg.Giveaway
	EntryCount int
	// WinnerUserIDs is set once the giveaway has ended.
	WinnerUserIDs []string
	JoinButtonID  string
}

// EmbedRenderer builds the announcement embed.
type EmbedRenderer func(rc RenderContext) Embed

// ButtonRenderer builds the join button. The manager always overrides the
// custom id and disables the button unless the giveaway is active.
type ButtonRenderer func(rc RenderContext) Button

func DefaultEmbed(rc RenderContext) Embed {
	g := rc.Giveaway
	embed := Embed{
		Author:      "🎉 Giveaway",
		Title:       g.Name,
		Description: g.Description,
	}

	switch g.State() {
	case dg.StateEnded:
		embed.Color = colorEnded
		embed.Footer = "Ended"
		embed.Timestamp = g.DueDate
		embed.Fields = append(embed.Fields, EmbedField{Name: "Ended", Value: timestamp(g.DueDate, 'R'), Inline: true})
	case dg.StatePaused:
		embed.Color = colorPaused
		embed.Footer = "Paused"
		embed.Fields = append(embed.Fields, EmbedField{Name: "Paused", Value: "Time left: " + formatRemaining(g.Remaining), Inline: true})
	default:
		embed.Color = colorActive
		embed.Footer = "Active"
		embed.Timestamp = g.DueDate
		embed.Fields = append(embed.Fields, EmbedField{
			Name:   "Ends",
			Value:  fmt.Sprintf("%s (%s)", timestamp(g.DueDate, 'R'), timestamp(g.DueDate, 'f')),
			Inline: true,
		})
	}

	entries := "**No entries**"
	if rc.EntryCount > 0 {
		entries = fmt.Sprintf("**%d**", rc.EntryCount)
	}
	embed.Fields = append(embed.Fields, EmbedField{Name: "Entries", Value: entries, Inline: true})

	if g.HostID != "" {
		embed.Fields = append(embed.Fields, EmbedField{Name: "Host", Value: mention(g.HostID), Inline: true})
	}
	if g.Ended {
		winners := "**No winners**"
		if len(rc.WinnerUserIDs) > 0 {
			winners = mentions(rc.WinnerUserIDs)
		}
		embed.Fields = append(embed.Fields, EmbedField{Name: "Winners", Value: winners})
	}
	return embed
}

func DefaultButton(rc RenderContext) Button {
	return Button{
		CustomID: rc.JoinButtonID,
		Label:    "Join",
		Emoji:    "🎉",
		Style:    ButtonPrimary,
	}
}

// EndContent is the message content announcing the winners.
func EndContent(winnerUserIDs []string) string {
	if len(winnerUserIDs) == 0 {
		return "There is no winner for this giveaway"
	}
	return fmt.Sprintf("🎉 %s won the giveaway!", mentions(winnerUserIDs))
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

// mentions joins user mentions as "a, b and c".
func mentions(userIDs []string) string {
	ms := make([]string, len(userIDs))
	for i, id := range userIDs {
		ms[i] = mention(id)
	}
	if len(ms) == 1 {
		return ms[0]
	}
	return strings.Join(ms[:len(ms)-1], ", ") + " and " + ms[len(ms)-1]
}

func timestamp(t time.Time, style rune) string {
	return fmt.Sprintf("<t:%d:%c>", t.Unix(), style)
}

func formatRemaining(d time.Duration) string {
	if d < time.Second {
		return "less than a second"
	}
	return d.Round(time.Second).String()
}
