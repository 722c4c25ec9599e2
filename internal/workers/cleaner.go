package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
)

// CleanService removes giveaways whose announcement is gone.
type CleanService interface {
	Clean(ctx context.Context, giveaways []dg.Giveaway) ([]dg.Giveaway, error)
}

// Cleaner runs CleanService on a cron schedule.
type Cleaner struct {
	svc      CleanService
	schedule string
	cron     *cron.Cron
	log      zerolog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewCleaner validates schedule, which accepts standard five-field
// expressions and descriptors such as "@every 30m".
func NewCleaner(svc CleanService, schedule string, log zerolog.Logger) (*Cleaner, error) {
	w := &Cleaner{
		svc:      svc,
		schedule: schedule,
		cron:     cron.New(),
		log:      log.With().Str("component", "cleaner").Logger(),
		ctx:      context.Background(),
	}
	if _, err := w.cron.AddFunc(schedule, w.tick); err != nil {
		return nil, fmt.Errorf("invalid clean schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start runs the schedule until Stop. Runs use ctx.
func (w *Cleaner) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	w.log.Info().Str("schedule", w.schedule).Msg("Starting clean worker")
	w.cron.Start()
}

// Stop halts the schedule and waits for a run in progress.
func (w *Cleaner) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info().Msg("Clean worker stopped")
}

// RunOnce cleans every stored giveaway and returns how many were removed.
func (w *Cleaner) RunOnce(ctx context.Context) (int, error) {
	cleaned, err := w.svc.Clean(ctx, nil)
	if err != nil {
		return 0, err
	}
	if len(cleaned) > 0 {
		w.log.Info().Int("count", len(cleaned)).Msg("Removed orphaned giveaways")
	}
	return len(cleaned), nil
}

func (w *Cleaner) tick() {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()

	if _, err := w.RunOnce(ctx); err != nil {
		w.log.Error().Err(err).Msg("Clean run failed")
	}
}
