// Package app wires configuration into service handles and runs one pipeline cycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"JobsScanner/internal/config"
	"JobsScanner/internal/infrastructure/download"
	"JobsScanner/internal/infrastructure/fetcher"
	"JobsScanner/internal/infrastructure/parser"
	"JobsScanner/internal/infrastructure/shortener"
	"JobsScanner/internal/infrastructure/storage"
	"JobsScanner/internal/infrastructure/telegram"
	"JobsScanner/internal/logging"
	"JobsScanner/internal/metrics"
	"JobsScanner/internal/usecase"
)

const (
	closeTimeout = 10 * time.Second
	pushTimeout  = 10 * time.Second
)

// Application owns the service handles for one process lifetime.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    storage.Store
	metrics  *metrics.Recorder
	pipeline *usecase.Pipeline
}

// New connects the checkpoint store and builds the pipeline. A store that cannot be
// reached is a startup failure.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(ctx, cfg.Store.URI, cfg.Store.Database, cfg.Store.Collection, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}

	rec := metrics.New()

	pages := fetcher.New(fetcher.Config{
		MaxAttempts:    cfg.Fetch.MaxAttempts,
		AttemptTimeout: cfg.Fetch.AttemptTimeout,
		BackoffBase:    cfg.Fetch.BackoffBase,
		BackoffMax:     cfg.Fetch.BackoffMax,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		UserAgent:      cfg.Source.UserAgent,
	}, baseLogger.With("component", "fetcher"), rec)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      parser.NewDiscoverer(pages, cfg.Source.IndexURL, baseLogger.With("component", "discoverer")),
		Extractor:   parser.NewExtractor(pages, baseLogger.With("component", "extractor")),
		Store:       store,
		Attachments: download.NewAttachmentFetcher(pages, baseLogger.With("component", "download")),
		Shortener: shortener.NewTinyURL(shortener.Config{
			Endpoint: cfg.Shortener.Endpoint,
			Pause:    cfg.Shortener.Pause,
			Timeout:  cfg.Shortener.Timeout,
		}, baseLogger.With("component", "shortener"), rec),
		Notifier: telegram.NewNotifier(telegram.Config{
			APIURL:   cfg.Notifications.Telegram.APIURL,
			BotToken: cfg.Notifications.Telegram.BotToken,
			ChatID:   cfg.Notifications.Telegram.ChatID,
			Timeout:  cfg.Notifications.Telegram.Timeout,
		}),
		Metrics: rec,
		Logger:  baseLogger.With("component", "pipeline"),
		Config: usecase.PipelineConfig{
			ItemTimeout:       cfg.Pipeline.ItemTimeout,
			AttachmentTimeout: cfg.Pipeline.AttachmentTimeout,
			AttachmentWorkers: cfg.Pipeline.AttachmentWorkers,
			PacingDelay:       cfg.Pipeline.PacingDelay,
			DownloadDir:       cfg.Pipeline.DownloadDir,
		},
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		metrics:  rec,
		pipeline: pipeline,
	}, nil
}

// Run performs a single discovery-and-delivery cycle.
func (a *Application) Run(ctx context.Context) error {
	log := a.logger.With("run_id", uuid.NewString())
	started := time.Now()
	log.Info("run started", "index", a.cfg.Source.IndexURL)

	summary, err := a.pipeline.Run(ctx)

	log.Info("run finished",
		"discovered", summary.Discovered,
		"skipped", summary.Skipped,
		"checkpointed", summary.Checkpointed,
		"abandoned", summary.Abandoned,
		"duration", time.Since(started).String(),
	)

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if pushErr := a.metrics.Push(pushCtx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); pushErr != nil {
		log.Warn("metrics push failed", "error", pushErr)
	}

	return err
}

// Close releases the checkpoint store connection.
func (a *Application) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return a.store.Close(ctx)
}
