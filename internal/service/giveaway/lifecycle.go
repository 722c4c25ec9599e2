package giveaway

import (
	"context"
	"errors"
	"slices"
	"time"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	"github.com/thenorthsolution/djs-utils/internal/common/validation"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

// CreateOptions describes a new giveaway. Exactly one of Duration and
// EndsAt must be set.
type CreateOptions struct {
	ChannelID     string   `json:"channel_id"`
	HostID        string   `json:"host_id,omitempty"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	WinnerCount   int      `json:"winner_count,omitempty"`
	RiggedUserIDs []string `json:"rigged_user_ids,omitempty"`

	Duration time.Duration `json:"-"`
	EndsAt   time.Time     `json:"ends_at,omitempty"`
}

func (o CreateOptions) validate(now time.Time) error {
	checks := []struct {
		field string
		err   error
	}{
		{"channel_id", validation.ValidateSnowflake(o.ChannelID, "channel_id")},
		{"name", validation.ValidateName(o.Name)},
		{"description", validation.ValidateDescription(o.Description)},
		{"winner_count", validation.ValidateWinnerCount(o.WinnerCount)},
		{"rigged_user_ids", validation.ValidateSnowflakes(o.RiggedUserIDs, "rigged_user_ids")},
		{"ends_at", validation.ValidateSchedule(o.Duration, o.EndsAt, now)},
	}
	if o.HostID != "" {
		checks = append(checks, struct {
			field string
			err   error
		}{"host_id", validation.ValidateSnowflake(o.HostID, "host_id")})
	}
	for _, c := range checks {
		if c.err != nil {
			return apperrors.NewValidationError(c.field, c.err.Error())
		}
	}
	return nil
}

// RerollOptions overrides the selection of a reroll.
type RerollOptions struct {
	WinnerCount    int      `json:"winner_count,omitempty"`
	IgnoredUserIDs []string `json:"ignored_user_ids,omitempty"`
}

// CreateGiveaway posts the announcement, stores the giveaway and arms its
// end timer. When the record cannot be stored the announcement is removed
// again.
func (m *Manager) CreateGiveaway(ctx context.Context, opts CreateOptions) (dg.Giveaway, error) {
	if err := m.checkReady(); err != nil {
		return dg.Giveaway{}, err
	}

	now := m.now()
	if err := opts.validate(now); err != nil {
		return dg.Giveaway{}, err
	}
	dueDate := opts.EndsAt
	if opts.Duration > 0 {
		dueDate = now.Add(opts.Duration)
	}

	channel, err := m.client.FetchChannel(ctx, opts.ChannelID)
	if err != nil {
		if errors.Is(err, ErrUnknownResource) {
			return dg.Giveaway{}, apperrors.NewNotFoundError("channel", opts.ChannelID)
		}
		return dg.Giveaway{}, apperrors.NewMessagingError("fetch channel", err)
	}
	if !channel.TextBased {
		return dg.Giveaway{}, apperrors.NewValidationError("channel_id", "channel is not text based")
	}

	g := dg.Normalize(dg.Giveaway{
		GuildID:       channel.GuildID,
		ChannelID:     channel.ID,
		HostID:        opts.HostID,
		Name:          opts.Name,
		Description:   opts.Description,
		WinnerCount:   opts.WinnerCount,
		CreatedAt:     now,
		Remaining:     dueDate.Sub(now),
		DueDate:       dueDate,
		RiggedUserIDs: slices.Clone(opts.RiggedUserIDs),
	})

	ref, err := m.client.SendMessage(ctx, channel.ID, m.message(g, nil))
	if err != nil {
		return dg.Giveaway{}, apperrors.NewMessagingError("send message", err)
	}
	g.MessageID = ref.MessageID
	if ref.GuildID != "" {
		g.GuildID = ref.GuildID
	}

	created, err := m.adapter.CreateGiveaway(ctx, g)
	if err != nil {
		if delErr := m.client.DeleteMessage(ctx, ref); delErr != nil {
			m.log.Warn().Err(delErr).Str("message_id", ref.MessageID).Msg("Failed to remove announcement of unsaved giveaway")
			m.emitError(apperrors.NewMessagingError("delete message", delErr))
		}
		return dg.Giveaway{}, err
	}

	m.arm(created)
	m.emit(Event{Kind: EventGiveawayCreate, Giveaway: &created})
	m.log.Info().
		Str("giveaway_id", created.ID).
		Str("guild_id", created.GuildID).
		Time("due_date", created.DueDate).
		Msg("Giveaway created")
	return created, nil
}

// PauseGiveaway stops the clock of an active giveaway. Pausing a paused
// giveaway returns it unchanged.
func (m *Manager) PauseGiveaway(ctx context.Context, id string) (dg.Giveaway, error) {
	if err := m.checkReady(); err != nil {
		return dg.Giveaway{}, err
	}

	g, err := m.fetchGiveaway(ctx, id)
	if err != nil {
		return dg.Giveaway{}, err
	}
	if g.Ended {
		return g, apperrors.NewInvalidStateError(id, "has ended")
	}
	if g.Paused {
		return g, nil
	}

	m.timers.Cancel(id)
	remaining := g.DueDate.Sub(m.now())
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}

	paused, err := m.updateGiveaway(ctx, id, dg.GiveawayPatch{
		Paused:    dg.Ptr(true),
		Remaining: &remaining,
	})
	if err != nil {
		if !apperrors.IsNotFound(err) {
			m.arm(g)
		}
		return dg.Giveaway{}, err
	}

	m.emit(Event{Kind: EventGiveawayPause, Giveaway: &paused})
	m.log.Info().Str("giveaway_id", id).Dur("remaining", remaining).Msg("Giveaway paused")
	return paused, m.refreshMessage(ctx, paused)
}

// ResumeGiveaway restarts the clock of a paused giveaway with the time it
// had left. Resuming a giveaway that is not paused returns it unchanged.
func (m *Manager) ResumeGiveaway(ctx context.Context, id string) (dg.Giveaway, error) {
	if err := m.checkReady(); err != nil {
		return dg.Giveaway{}, err
	}

	g, err := m.fetchGiveaway(ctx, id)
	if err != nil {
		return dg.Giveaway{}, err
	}
	if g.Ended {
		return g, apperrors.NewInvalidStateError(id, "has ended")
	}
	if !g.Paused || g.Remaining <= 0 {
		return g, nil
	}

	dueDate := m.now().Add(g.Remaining)
	resumed, err := m.updateGiveaway(ctx, id, dg.GiveawayPatch{
		Paused:    dg.Ptr(false),
		Remaining: dg.Ptr(time.Duration(0)),
		DueDate:   &dueDate,
	})
	if err != nil {
		return dg.Giveaway{}, err
	}

	m.arm(resumed)
	m.emit(Event{Kind: EventGiveawayResume, Giveaway: &resumed})
	m.log.Info().Str("giveaway_id", id).Time("due_date", resumed.DueDate).Msg("Giveaway resumed")
	return resumed, m.refreshMessage(ctx, resumed)
}

// EndGiveaway draws the winners, marks the giveaway ended and announces the
// result. With cancel set no winner is drawn. Ending an ended giveaway
// returns the recorded winners. A giveaway whose announcement is gone is
// deleted and reported as not found.
func (m *Manager) EndGiveaway(ctx context.Context, id string, cancel bool) (EntriesData, error) {
	if err := m.checkReady(); err != nil {
		return EntriesData{}, err
	}

	m.timers.Cancel(id)
	g, err := m.fetchGiveaway(ctx, id)
	if err != nil {
		return EntriesData{}, err
	}
	entries, err := m.adapter.FetchEntries(ctx, dg.EntriesOf(id))
	if err != nil {
		return EntriesData{}, err
	}
	if g.Ended {
		return recordedWinners(g, entries), nil
	}

	ref, err := m.locateMessage(ctx, g)
	if err != nil {
		if apperrors.IsNotFound(err) {
			if _, delErr := m.deleteWhere(ctx, dg.GiveawayFilter{ID: &id}); delErr != nil {
				m.log.Warn().Err(delErr).Str("giveaway_id", id).Msg("Failed to delete orphaned giveaway")
			}
		}
		return EntriesData{}, err
	}

	data := EntriesData{
		AllEntries:      entries,
		RiggedUserIDs:   slices.Clone(g.RiggedUserIDs),
		SelectedEntries: []dg.Entry{},
		WinnerUserIDs:   []string{},
	}
	if !cancel {
		if data, err = m.selectEntries(ctx, g, entries, SelectOptions{}, true); err != nil {
			return EntriesData{}, err
		}
	}

	ended, err := m.updateGiveaway(ctx, id, dg.GiveawayPatch{
		Ended:          dg.Ptr(true),
		Paused:         dg.Ptr(false),
		Remaining:      dg.Ptr(time.Duration(0)),
		DueDate:        dg.Ptr(m.now()),
		WinnerEntryIDs: dg.Ptr(entryIDs(data.SelectedEntries)),
	})
	if err != nil {
		return EntriesData{}, err
	}

	m.emit(Event{Kind: EventGiveawayEnd, Giveaway: &ended, Entries: &data})
	m.log.Info().
		Str("giveaway_id", id).
		Bool("cancelled", cancel).
		Strs("winners", data.WinnerUserIDs).
		Msg("Giveaway ended")

	if err := m.client.EditMessage(ctx, ref, m.message(ended, data.AllEntries)); err != nil {
		return data, clientError("edit message", id, err)
	}
	return data, nil
}

// RerollGiveaway draws new winners for an ended giveaway.
func (m *Manager) RerollGiveaway(ctx context.Context, id string, opts RerollOptions) (EntriesData, error) {
	if err := m.checkReady(); err != nil {
		return EntriesData{}, err
	}

	g, err := m.fetchGiveaway(ctx, id)
	if err != nil {
		return EntriesData{}, err
	}
	if !g.Ended {
		return EntriesData{}, apperrors.NewInvalidStateError(id, "has not ended")
	}
	ref, err := m.locateMessage(ctx, g)
	if err != nil {
		return EntriesData{}, err
	}
	entries, err := m.adapter.FetchEntries(ctx, dg.EntriesOf(id))
	if err != nil {
		return EntriesData{}, err
	}

	data, err := m.selectEntries(ctx, g, entries, SelectOptions{
		WinnerCount:    opts.WinnerCount,
		IgnoredUserIDs: opts.IgnoredUserIDs,
	}, true)
	if err != nil {
		return EntriesData{}, err
	}

	rerolled, err := m.updateGiveaway(ctx, id, dg.GiveawayPatch{
		WinnerEntryIDs: dg.Ptr(entryIDs(data.SelectedEntries)),
	})
	if err != nil {
		return EntriesData{}, err
	}

	m.emit(Event{Kind: EventGiveawayReroll, Giveaway: &rerolled, Entries: &data})
	m.log.Info().Str("giveaway_id", id).Strs("winners", data.WinnerUserIDs).Msg("Giveaway rerolled")

	if err := m.client.EditMessage(ctx, ref, m.message(rerolled, data.AllEntries)); err != nil {
		return data, clientError("edit message", id, err)
	}
	return data, nil
}

// DeleteGiveaway removes a giveaway with its entries and optionally its
// announcement. A missing announcement is not an error.
func (m *Manager) DeleteGiveaway(ctx context.Context, id string, deleteMessage bool) (dg.Giveaway, error) {
	if err := m.checkReady(); err != nil {
		return dg.Giveaway{}, err
	}

	deleted, err := m.deleteWhere(ctx, dg.GiveawayFilter{ID: &id})
	if err != nil {
		return dg.Giveaway{}, err
	}
	if len(deleted) == 0 {
		m.timers.Cancel(id)
		return dg.Giveaway{}, apperrors.NewGiveawayNotFoundError(id)
	}
	g := deleted[0]

	if !deleteMessage {
		return g, nil
	}
	ref, err := m.locateMessage(ctx, g)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return g, nil
		}
		return g, err
	}
	if err := m.client.DeleteMessage(ctx, ref); err != nil && !errors.Is(err, ErrUnknownResource) {
		return g, apperrors.NewMessagingError("delete message", err)
	}
	return g, nil
}

// deleteWhere deletes the matching giveaways, cancels their timers and
// emits a delete event for each.
func (m *Manager) deleteWhere(ctx context.Context, filter dg.GiveawayFilter) ([]dg.Giveaway, error) {
	deleted, err := m.adapter.DeleteGiveaways(ctx, dg.GiveawayQuery{Filter: filter})
	if err != nil {
		return nil, err
	}
	for i := range deleted {
		g := deleted[i]
		m.timers.Cancel(g.ID)
		m.emit(Event{Kind: EventGiveawayDelete, Giveaway: &g})
		m.log.Info().Str("giveaway_id", g.ID).Msg("Giveaway deleted")
	}
	return deleted, nil
}

// ToggleUserEntry adds an entry for userID, or removes it when one exists.
// It returns the new entry, or nil after a removal. The storage change is
// kept even when the announcement can no longer be updated.
func (m *Manager) ToggleUserEntry(ctx context.Context, giveawayID, userID string, updateMessage bool) (*dg.Entry, error) {
	if err := m.checkReady(); err != nil {
		return nil, err
	}

	g, err := m.fetchGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if g.Ended {
		return nil, apperrors.NewInvalidStateError(giveawayID, "has ended")
	}

	existing, err := m.adapter.FetchEntries(ctx, dg.EntryQuery{
		Filter: dg.EntryFilter{GiveawayID: &giveawayID, UserID: &userID},
	})
	if err != nil {
		return nil, err
	}

	var entry *dg.Entry
	if len(existing) > 0 {
		removed, err := m.adapter.DeleteEntries(ctx, dg.EntryByID(existing[0].ID))
		if err != nil {
			return nil, err
		}
		if len(removed) > 0 {
			m.emit(Event{Kind: EventEntryRemove, Giveaway: &g, Entry: &removed[0]})
		}
	} else {
		created, err := m.adapter.CreateEntry(ctx, dg.Entry{GiveawayID: giveawayID, UserID: userID})
		if err != nil {
			return nil, err
		}
		entry = &created
		m.emit(Event{Kind: EventEntryAdd, Giveaway: &g, Entry: entry})
	}

	if updateMessage {
		current, err := m.fetchGiveaway(ctx, giveawayID)
		if err != nil {
			return entry, err
		}
		if err := m.refreshMessage(ctx, current); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// SelectGiveawayEntries previews a winner selection without storing it.
func (m *Manager) SelectGiveawayEntries(ctx context.Context, id string, opts SelectOptions) (EntriesData, error) {
	if err := m.checkReady(); err != nil {
		return EntriesData{}, err
	}

	g, err := m.fetchGiveaway(ctx, id)
	if err != nil {
		return EntriesData{}, err
	}
	entries, err := m.adapter.FetchEntries(ctx, dg.EntriesOf(id))
	if err != nil {
		return EntriesData{}, err
	}
	return m.selectEntries(ctx, g, entries, opts, false)
}

// selectEntries runs the selector. With materialize set, winners without an
// entry get one so that every winner is backed by an entry id.
func (m *Manager) selectEntries(ctx context.Context, g dg.Giveaway, entries []dg.Entry, opts SelectOptions, materialize bool) (EntriesData, error) {
	count := opts.WinnerCount
	if count <= 0 {
		count = g.WinnerCount
	}

	winnerIDs, err := m.selector(SelectionInput{
		Entries:            entries,
		RiggedUserIDs:      g.RiggedUserIDs,
		WinnerCount:        count,
		IgnoredUserIDs:     opts.IgnoredUserIDs,
		IgnoreRigging:      opts.IgnoreRigging,
		RiggedOutsideCount: opts.RiggedOutsideCount,
	})
	if err != nil {
		return EntriesData{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "winner selection failed")
	}

	selected, userIDs := arrangeWinners(entries, winnerIDs)
	if materialize && len(selected) < len(userIDs) {
		entered := make(map[string]struct{}, len(selected))
		for _, e := range selected {
			entered[e.UserID] = struct{}{}
		}
		for _, userID := range userIDs {
			if _, ok := entered[userID]; ok {
				continue
			}
			created, err := m.adapter.CreateEntry(ctx, dg.Entry{GiveawayID: g.ID, UserID: userID})
			if err != nil {
				return EntriesData{}, err
			}
			entries = append(entries, created)
		}
		selected, userIDs = arrangeWinners(entries, userIDs)
	}

	return EntriesData{
		AllEntries:      entries,
		RiggedUserIDs:   slices.Clone(g.RiggedUserIDs),
		SelectedEntries: selected,
		WinnerUserIDs:   userIDs,
	}, nil
}

// Clean deletes every giveaway whose announcement no longer exists and
// returns them. A nil list checks all stored giveaways. Failures on single
// giveaways are reported as error events and do not stop the pass.
func (m *Manager) Clean(ctx context.Context, giveaways []dg.Giveaway) ([]dg.Giveaway, error) {
	if err := m.checkReady(); err != nil {
		return nil, err
	}

	if giveaways == nil {
		all, err := m.adapter.FetchGiveaways(ctx, dg.GiveawayQuery{})
		if err != nil {
			return nil, err
		}
		giveaways = all
	}

	cleaned := []dg.Giveaway{}
	for _, g := range giveaways {
		if ctx.Err() != nil {
			return cleaned, ctx.Err()
		}
		_, err := m.locateMessage(ctx, g)
		if err == nil {
			continue
		}
		if !apperrors.IsNotFound(err) {
			m.emitError(err)
			continue
		}
		deleted, err := m.deleteWhere(ctx, dg.GiveawayFilter{ID: dg.Ptr(g.ID)})
		if err != nil {
			m.emitError(err)
			continue
		}
		cleaned = append(cleaned, deleted...)
	}

	m.log.Info().Int("checked", len(giveaways)).Int("cleaned", len(cleaned)).Msg("Giveaway cleanup finished")
	return cleaned, nil
}

// FetchGiveaway returns one giveaway by id.
func (m *Manager) FetchGiveaway(ctx context.Context, id string) (dg.Giveaway, error) {
	if err := m.checkReady(); err != nil {
		return dg.Giveaway{}, err
	}
	return m.fetchGiveaway(ctx, id)
}

func (m *Manager) FetchGiveaways(ctx context.Context, q dg.GiveawayQuery) ([]dg.Giveaway, error) {
	if err := m.checkReady(); err != nil {
		return nil, err
	}
	return m.adapter.FetchGiveaways(ctx, q)
}

// FetchEntries returns the entries of a giveaway.
func (m *Manager) FetchEntries(ctx context.Context, giveawayID string) ([]dg.Entry, error) {
	if err := m.checkReady(); err != nil {
		return nil, err
	}
	if _, err := m.fetchGiveaway(ctx, giveawayID); err != nil {
		return nil, err
	}
	return m.adapter.FetchEntries(ctx, dg.EntriesOf(giveawayID))
}

// recordedWinners rebuilds the selection stored on an ended giveaway.
func recordedWinners(g dg.Giveaway, entries []dg.Entry) EntriesData {
	byID := make(map[string]dg.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	data := EntriesData{
		AllEntries:      entries,
		RiggedUserIDs:   slices.Clone(g.RiggedUserIDs),
		SelectedEntries: []dg.Entry{},
		WinnerUserIDs:   []string{},
	}
	for _, id := range g.WinnerEntryIDs {
		if e, ok := byID[id]; ok {
			data.SelectedEntries = append(data.SelectedEntries, e)
			data.WinnerUserIDs = append(data.WinnerUserIDs, e.UserID)
		}
	}
	return data
}

func entryIDs(entries []dg.Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
