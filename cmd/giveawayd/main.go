package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/thenorthsolution/djs-utils/internal/common/config"
	"github.com/thenorthsolution/djs-utils/internal/common/logger"
	dg "github.com/thenorthsolution/djs-utils/internal/domain/giveaway"
	apihttp "github.com/thenorthsolution/djs-utils/internal/http"
	"github.com/thenorthsolution/djs-utils/internal/metrics"
	"github.com/thenorthsolution/djs-utils/internal/platform/discord"
	platformredis "github.com/thenorthsolution/djs-utils/internal/platform/redis"
	"github.com/thenorthsolution/djs-utils/internal/repository"
	"github.com/thenorthsolution/djs-utils/internal/service/giveaway"
	"github.com/thenorthsolution/djs-utils/internal/workers"
)

func main() {
	app := &cli.App{
		Name:  "giveawayd",
		Usage: "Discord giveaway manager",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the manager, workers and admin API",
				Action: serve,
			},
			{
				Name:   "clean",
				Usage:  "remove giveaways whose announcement message is gone and exit",
				Action: clean,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("giveawayd failed")
	}
}

// core holds the started core shared by every command.
type core struct {
	cfg     *config.Config
	adapter dg.Adapter
	discord *discord.Client
	manager *giveaway.Manager
	metrics *metrics.Collector
}

func (r *core) Close() {
	r.manager.Stop()
	if err := r.discord.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close discord session")
	}
	if err := r.adapter.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close storage")
	}
}

func bootstrap(ctx context.Context) (*core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.ServiceName, cfg.Debug)
	logger.Info().Str("storage", cfg.Storage.Driver).Bool("debug", cfg.Debug).Msg("Starting giveaway service")

	adapter, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	dc, err := discord.New(cfg.Discord.Token, logger.Component("discord"))
	if err != nil {
		_ = adapter.Close()
		return nil, err
	}
	if err := dc.Open(ctx); err != nil {
		_ = adapter.Close()
		return nil, err
	}

	managerLog := logger.Component("giveaways")
	manager, err := giveaway.New(giveaway.Options{
		Adapter:          adapter,
		Client:           dc,
		JoinButtonID:     cfg.Discord.JoinButtonID,
		Logger:           &managerLog,
		InteractionRate:  rate.Limit(cfg.Discord.InteractionRate),
		InteractionBurst: cfg.Discord.InteractionBurst,
	})
	if err != nil {
		_ = dc.Close()
		_ = adapter.Close()
		return nil, err
	}

	collector := metrics.New(prometheus.DefaultRegisterer)
	manager.Subscribe(collector.Observe)

	r := &core{cfg: cfg, adapter: adapter, discord: dc, manager: manager, metrics: collector}
	if err := manager.Start(ctx); err != nil {
		r.Close()
		return nil, fmt.Errorf("start manager: %w", err)
	}
	return r, nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer r.Close()
	cfg := r.cfg

	cleaner, err := workers.NewCleaner(r.manager, cfg.Workers.CleanSchedule, logger.Component("workers"))
	if err != nil {
		return err
	}
	cleaner.Start(ctx)
	defer cleaner.Stop()

	if cfg.Workers.EventStreamEnabled {
		rdb, err := platformredis.Open(ctx, platformredis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("open event stream: %w", err)
		}
		defer rdb.Close()

		bridge := workers.NewStreamBridge(rdb, cfg.Workers.EventStreamKey, cfg.Workers.EventStreamGroup, r.manager.Listener(), logger.Component("workers"))
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := bridge.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Stream bridge stopped")
			}
		}()
		defer func() { <-done }()
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := apihttp.NewRouter(apihttp.RouterConfig{
		Service:            r.manager,
		AdminToken:         cfg.HTTP.AdminToken,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Metrics:            metrics.Handler(prometheus.DefaultGatherer),
	})
	if cfg.HTTP.AdminToken == "" {
		logger.Warn().Msg("ADMIN_TOKEN is empty; the admin API rejects every request")
	}

	err = apihttp.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ShutdownTimeout).Run(ctx)
	logger.Info().Msg("Server exited")
	return err
}

func clean(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	cleaner, err := workers.NewCleaner(r.manager, r.cfg.Workers.CleanSchedule, logger.Component("workers"))
	if err != nil {
		return err
	}
	n, err := cleaner.RunOnce(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int("count", n).Msg("Clean finished")
	return nil
}
