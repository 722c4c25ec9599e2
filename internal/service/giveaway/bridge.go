package giveaway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

const (
	replyNotFound     = "❌ Unable to find giveaway from this message"
	replyToggleFailed = "❌ Unable to add/remove entry"
	replyRateLimited  = "❌ You are doing that too fast"
	replyEntryAdded   = "🎉 Successfully added new entry!"
	replyEntryRemoved = "🎉 Successfully removed current entry!"
)

// Listener returns the bridge that reacts to upstream notifications. The
// manager subscribes it to its client on Start; other sources of the same
// notifications may call it directly.
func (m *Manager) Listener() Listener {
	return bridge{m: m}
}

type bridge struct {
	m *Manager
}

func (b bridge) GuildDelete(ctx context.Context, guildID string) {
	b.deleteWhere(ctx, dg.GiveawayFilter{GuildID: &guildID})
}

func (b bridge) ChannelDelete(ctx context.Context, channelID string) {
	b.deleteWhere(ctx, dg.GiveawayFilter{ChannelID: &channelID})
}

func (b bridge) MessageDelete(ctx context.Context, channelID, messageID string) {
	b.deleteWhere(ctx, dg.GiveawayFilter{ChannelID: &channelID, MessageID: &messageID})
}

func (b bridge) MessageDeleteBulk(ctx context.Context, channelID string, messageIDs []string) {
	for _, id := range messageIDs {
		b.MessageDelete(ctx, channelID, id)
	}
}

func (b bridge) deleteWhere(ctx context.Context, filter dg.GiveawayFilter) {
	if !b.m.Ready() {
		return
	}
	if _, err := b.m.deleteWhere(ctx, filter); err != nil {
		b.m.log.Error().Err(err).Msg("Failed to delete giveaways of removed resource")
		b.m.emitError(err)
	}
}

// InteractionCreate handles presses of the join button.
func (b bridge) InteractionCreate(ctx context.Context, it Interaction) {
	m := b.m
	if !m.Ready() || it.CustomID() != m.joinButtonID {
		return
	}

	l := m.log.With().
		Str("correlation_id", uuid.NewString()).
		Str("user_id", it.UserID()).
		Str("message_id", it.MessageID()).
		Logger()

	if !it.Acknowledged() {
		if err := it.Defer(ctx); err != nil {
			l.Warn().Err(err).Msg("Failed to defer interaction")
			m.emitError(apperrors.NewMessagingError("defer interaction", err))
			return
		}
	}
	if m.beforeInteraction != nil && !m.beforeInteraction(ctx, it) {
		return
	}

	reply := func(content string) {
		if err := it.EditReply(ctx, content); err != nil {
			l.Warn().Err(err).Msg("Failed to reply to interaction")
			m.emitError(apperrors.NewMessagingError("reply to interaction", err))
		}
	}

	if !m.limiters.Allow(it.UserID()) {
		l.Debug().Msg("Interaction rate limited")
		reply(replyRateLimited)
		return
	}

	gs, err := m.adapter.FetchGiveaways(ctx, dg.GiveawayQuery{
		Filter: dg.GiveawayFilter{MessageID: dg.Ptr(it.MessageID())},
		Limit:  1,
	})
	if err != nil {
		l.Error().Err(err).Msg("Failed to look up giveaway")
		m.emitError(err)
		reply(replyNotFound)
		return
	}
	if len(gs) == 0 {
		reply(replyNotFound)
		return
	}

	entry, err := m.ToggleUserEntry(ctx, gs[0].ID, it.UserID(), true)
	if err != nil {
		l.Error().Err(err).Str("giveaway_id", gs[0].ID).Msg("Failed to toggle entry")
		m.emitError(err)
		reply(replyToggleFailed)
		return
	}
	if entry != nil {
		reply(replyEntryAdded)
	} else {
		reply(replyEntryRemoved)
	}
}

// userLimiters keeps one token bucket per user.
type userLimiters struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// maxTrackedUsers bounds the limiter map; it is reset when exceeded.
const maxTrackedUsers = 10000

func newUserLimiters(limit rate.Limit, burst int) *userLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &userLimiters{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether userID may act now. A zero limit allows everything.
func (u *userLimiters) Allow(userID string) bool {
	if u.limit == 0 || u.limit == rate.Inf {
		return true
	}

	u.mu.Lock()
	l, ok := u.limiters[userID]
	if !ok {
		if len(u.limiters) >= maxTrackedUsers {
			u.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(u.limit, u.burst)
		u.limiters[userID] = l
	}
	u.mu.Unlock()

	return l.Allow()
}
