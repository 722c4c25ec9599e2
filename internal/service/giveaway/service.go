package giveaway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	apperrors "github.com/thenorthsolution/djs-utils/internal/common/errors"
	"github.com/thenorthsolution/djs-utils/internal/common/events"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

// Options configures a Manager. Adapter and Client are required.
type Options struct {
	Adapter dg.Adapter
	Client  Client

	JoinButtonID string
	RenderEmbed  EmbedRenderer
	RenderButton ButtonRenderer
	// BeforeInteraction may veto a join interaction by returning false.
	// The hook is responsible for replying in that case.
	BeforeInteraction func(ctx context.Context, it Interaction) bool
	Selector          Selector
	Logger            *zerolog.Logger

	// MaxTimerDelay caps a single timer delay; zero means MaxTimerDelay.
	MaxTimerDelay time.Duration
	// InteractionRate limits join presses per user; zero disables limiting.
	InteractionRate  rate.Limit
	InteractionBurst int

	// EndRetryDelay is the first back-off after a scheduled end fails on a
	// messaging or storage error; it doubles per attempt up to
	// maxEndRetryDelay. Zero means DefaultEndRetryDelay.
	EndRetryDelay time.Duration
	// EndRetries bounds the re-armed attempts. Zero means
	// DefaultEndRetries; negative disables retrying.
	EndRetries int
}

const (
	DefaultEndRetryDelay = 30 * time.Second
	DefaultEndRetries    = 5
	maxEndRetryDelay     = 10 * time.Minute
)

// Manager owns the giveaway lifecycle: it is the only writer to the
// adapter, keeps one end timer per active giveaway and renders the
// announcement messages.
type Manager struct {
	adapter dg.Adapter
	client  Client

	joinButtonID      string
	renderEmbed       EmbedRenderer
	renderButton      ButtonRenderer
	beforeInteraction func(ctx context.Context, it Interaction) bool
	selector          Selector
	log               zerolog.Logger
	now               func() time.Time
	endRetryDelay     time.Duration
	endRetries        int

	events   events.Bus[Event]
	timers   *timerRegistry
	limiters *userLimiters

	// lifecycle serialises Start and Stop.
	lifecycle sync.Mutex

	mu          sync.Mutex
	ready       bool
	runCtx      context.Context
	cancel      context.CancelFunc
	unsubscribe []func()
	wg          sync.WaitGroup
}

func New(opts Options) (*Manager, error) {
	if opts.Adapter == nil {
		return nil, errors.New("giveaway manager: adapter is required")
	}
	if opts.Client == nil {
		return nil, errors.New("giveaway manager: client is required")
	}

	m := &Manager{
		adapter:           opts.Adapter,
		client:            opts.Client,
		joinButtonID:      opts.JoinButtonID,
		renderEmbed:       opts.RenderEmbed,
		renderButton:      opts.RenderButton,
		beforeInteraction: opts.BeforeInteraction,
		selector:          opts.Selector,
		now:               time.Now,
		endRetryDelay:     opts.EndRetryDelay,
		endRetries:        opts.EndRetries,
		timers:            newTimerRegistry(opts.MaxTimerDelay),
		limiters:          newUserLimiters(opts.InteractionRate, opts.InteractionBurst),
	}
	if m.joinButtonID == "" {
		m.joinButtonID = DefaultJoinButtonID
	}
	if m.renderEmbed == nil {
		m.renderEmbed = DefaultEmbed
	}
	if m.renderButton == nil {
		m.renderButton = DefaultButton
	}
	if m.selector == nil {
		m.selector = SelectWinners
	}
	if m.endRetryDelay <= 0 {
		m.endRetryDelay = DefaultEndRetryDelay
	}
	switch {
	case m.endRetries == 0:
		m.endRetries = DefaultEndRetries
	case m.endRetries < 0:
		m.endRetries = 0
	}
	if opts.Logger != nil {
		m.log = opts.Logger.With().Str("component", "giveaway_manager").Logger()
	} else {
		m.log = log.Logger.With().Str("component", "giveaway_manager").Logger()
	}
	return m, nil
}

// Start connects the manager to its adapter and client and arms the end
// timers of every active giveaway. Calling Start on a started manager is a
// no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.Ready() {
		return nil
	}
	if !m.client.Ready() {
		return apperrors.NewNotReadyError("messaging client")
	}
	if err := m.adapter.Start(ctx); err != nil {
		return fmt.Errorf("start adapter: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	unsubAdapter := m.adapter.Subscribe(m.forwardChange)
	unsubClient := m.client.Subscribe(m.Listener())

	m.mu.Lock()
	m.ready = true
	m.runCtx = runCtx
	m.cancel = cancel
	m.unsubscribe = []func(){unsubAdapter, unsubClient}
	m.mu.Unlock()

	active, err := m.adapter.FetchGiveaways(ctx, dg.GiveawayQuery{
		Filter: dg.GiveawayFilter{Ended: dg.Ptr(false), Paused: dg.Ptr(false)},
	})
	if err != nil {
		m.stop()
		return fmt.Errorf("load active giveaways: %w", err)
	}
	for _, g := range active {
		m.arm(g)
	}

	m.log.Info().Int("active", len(active)).Msg("Giveaway manager started")
	return nil
}

// Stop cancels every pending timer without firing it, detaches from the
// adapter and client and waits for timer-driven work in flight.
func (m *Manager) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stop()
}

func (m *Manager) stop() {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return
	}
	m.ready = false
	cancel := m.cancel
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	cancelled := m.timers.CancelAll()
	for _, unsub := range unsubscribe {
		unsub()
	}
	cancel()
	m.wg.Wait()

	m.log.Info().Int("cancelled_timers", cancelled).Msg("Giveaway manager stopped")
}

// Ready reports whether the manager has been started.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Subscribe registers fn on the manager event stream. Events are delivered
// synchronously on the goroutine that produced them.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.events.Subscribe(fn)
}

// Pending returns the scheduled end of an armed giveaway.
func (m *Manager) Pending(giveawayID string) (time.Time, bool) {
	return m.timers.Pending(giveawayID)
}

func (m *Manager) checkReady() error {
	if !m.Ready() {
		return apperrors.NewNotReadyError("giveaway manager")
	}
	return nil
}

func (m *Manager) emit(e Event) {
	m.events.Publish(e)
}

func (m *Manager) emitError(err error) {
	m.events.Publish(Event{Kind: EventError, Err: err})
}

// forwardChange re-emits adapter entry changes on the manager stream.
func (m *Manager) forwardChange(ce dg.ChangeEvent) {
	var kind EventKind
	switch ce.Kind {
	case dg.EntryCreated:
		kind = EventEntryCreate
	case dg.EntryUpdated:
		kind = EventEntryUpdate
	case dg.EntryDeleted:
		kind = EventEntryDelete
	default:
		return
	}
	m.emit(Event{Kind: kind, Entry: ce.Entry, PreviousEntry: ce.PreviousEntry})
}

// goBackground runs fn on its own goroutine with the manager's lifetime
// context. It refuses work once the manager is stopped.
func (m *Manager) goBackground(fn func(ctx context.Context)) bool {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return false
	}
	ctx := m.runCtx
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		fn(ctx)
	}()
	return true
}

// arm schedules the end of an active giveaway. An overdue giveaway is
// ended right away.
func (m *Manager) arm(g dg.Giveaway) {
	if m.timers.Schedule(g.ID, g.DueDate, m.onDue) {
		m.log.Debug().
			Str("giveaway_id", g.ID).
			Time("due_date", g.DueDate).
			Msg("End timer armed")
		return
	}
	m.onDue(g.ID)
}

func (m *Manager) onDue(giveawayID string) {
	m.endScheduled(giveawayID, 0)
}

// endScheduled ends a due giveaway in the background. attempt counts the
// retries that led here.
func (m *Manager) endScheduled(giveawayID string, attempt int) {
	m.goBackground(func(ctx context.Context) {
		l := m.log.With().
			Str("giveaway_id", giveawayID).
			Str("correlation_id", uuid.NewString()).
			Int("attempt", attempt).
			Logger()
		l.Debug().Msg("End timer fired")

		if _, err := m.EndGiveaway(ctx, giveawayID, false); err != nil {
			l.Error().Err(err).Msg("Scheduled end failed")
			m.emitError(err)
			m.retryEnd(ctx, l, giveawayID, attempt, err)
		}
	})
}

// retryEnd re-arms a failed scheduled end with exponential back-off. Only
// messaging and storage failures are retried; a missing giveaway or
// message is final.
func (m *Manager) retryEnd(ctx context.Context, l zerolog.Logger, giveawayID string, attempt int, err error) {
	if !apperrors.IsMessaging(err) && !apperrors.IsStorage(err) {
		return
	}
	if attempt >= m.endRetries {
		l.Warn().Msg("Giving up on scheduled end until next start")
		return
	}
	if ctx.Err() != nil || !m.Ready() {
		return
	}

	delay := endRetryBackoff(m.endRetryDelay, attempt)
	m.timers.Schedule(giveawayID, m.now().Add(delay), func(id string) {
		m.endScheduled(id, attempt+1)
	})
	l.Warn().Dur("retry_in", delay).Msg("Scheduled end re-armed")
}

func endRetryBackoff(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt && delay < maxEndRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxEndRetryDelay)
}

func (m *Manager) fetchGiveaway(ctx context.Context, id string) (dg.Giveaway, error) {
	gs, err := m.adapter.FetchGiveaways(ctx, dg.GiveawayByID(id))
	if err != nil {
		return dg.Giveaway{}, err
	}
	if len(gs) == 0 {
		return dg.Giveaway{}, apperrors.NewGiveawayNotFoundError(id)
	}
	return gs[0], nil
}

// updateGiveaway patches one giveaway. A record deleted concurrently
// surfaces as not found.
func (m *Manager) updateGiveaway(ctx context.Context, id string, patch dg.GiveawayPatch) (dg.Giveaway, error) {
	updated, err := m.adapter.UpdateGiveaways(ctx, dg.GiveawayByID(id), patch)
	if err != nil {
		return dg.Giveaway{}, err
	}
	if len(updated) == 0 {
		return dg.Giveaway{}, apperrors.NewGiveawayNotFoundError(id)
	}
	return updated[0], nil
}

// locateMessage resolves the announcement message of g through its guild
// and channel.
func (m *Manager) locateMessage(ctx context.Context, g dg.Giveaway) (MessageRef, error) {
	guild, err := m.client.FetchGuild(ctx, g.GuildID)
	if err != nil {
		return MessageRef{}, clientError("fetch guild", g.ID, err)
	}
	channel, err := m.client.FetchChannel(ctx, g.ChannelID)
	if err != nil {
		return MessageRef{}, clientError("fetch channel", g.ID, err)
	}
	if !channel.TextBased || channel.GuildID != guild.ID {
		return MessageRef{}, apperrors.NewMessageNotFoundError(g.ID)
	}
	ref, err := m.client.FetchMessage(ctx, g.ChannelID, g.MessageID)
	if err != nil {
		return MessageRef{}, clientError("fetch message", g.ID, err)
	}
	return ref, nil
}

func clientError(op, giveawayID string, err error) error {
	if errors.Is(err, ErrUnknownResource) {
		return apperrors.NewMessageNotFoundError(giveawayID).WithDetail("operation", op)
	}
	return apperrors.NewMessagingError(op, err)
}

// message renders the announcement of g.
func (m *Manager) message(g dg.Giveaway, entries []dg.Entry) Message {
	rc := RenderContext{
		Giveaway:      g,
		EntryCount:    len(entries),
		WinnerUserIDs: winnerUserIDs(entries, g.WinnerEntryIDs),
		JoinButtonID:  m.joinButtonID,
	}

	button := m.renderButton(rc)
	button.CustomID = m.joinButtonID
	if !g.Active() {
		button.Disabled = true
	}

	msg := Message{
		Embeds:  []Embed{m.renderEmbed(rc)},
		Buttons: []Button{button},
	}
	if g.Ended {
		msg.Content = EndContent(rc.WinnerUserIDs)
	}
	return msg
}

// refreshMessage re-renders the announcement of g from storage.
func (m *Manager) refreshMessage(ctx context.Context, g dg.Giveaway) error {
	ref, err := m.locateMessage(ctx, g)
	if err != nil {
		return err
	}
	entries, err := m.adapter.FetchEntries(ctx, dg.EntriesOf(g.ID))
	if err != nil {
		return err
	}
	if err := m.client.EditMessage(ctx, ref, m.message(g, entries)); err != nil {
		return clientError("edit message", g.ID, err)
	}
	return nil
}

// winnerUserIDs maps winner entry ids to user ids, keeping their order.
func winnerUserIDs(entries []dg.Entry, winnerEntryIDs []string) []string {
	if len(winnerEntryIDs) == 0 {
		return nil
	}
	byID := make(map[string]string, len(entries))
	for _, e := range entries {
		byID[e.ID] = e.UserID
	}
	ids := make([]string, 0, len(winnerEntryIDs))
	for _, id := range winnerEntryIDs {
		if userID, ok := byID[id]; ok {
			ids = append(ids, userID)
		}
	}
	return ids
}
