// Package usecase runs the discovery-to-delivery cycle over the driven ports.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/metrics"
	"JobsScanner/internal/ports"
)

// Abandon stages reported in logs and metrics.
const (
	stageExtract = "extract"
	stageWorkdir = "workdir"
	stageTimeout = "timeout"
	stageNotify  = "notify"
)

const (
	defaultItemTimeout       = 5 * time.Minute
	defaultAttachmentTimeout = 90 * time.Second
)

type itemOutcome int

const (
	outcomeAbandoned itemOutcome = iota
	outcomeCheckpointed
	outcomeSkipped
)

// PipelineConfig tunes a single run.
type PipelineConfig struct {
	ItemTimeout       time.Duration
	AttachmentTimeout time.Duration
	AttachmentWorkers int
	PacingDelay       time.Duration
	DownloadDir       string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source      ports.ListingSource
	Extractor   ports.ListingExtractor
	Store       ports.CheckpointStore
	Attachments ports.AttachmentFetcher
	Shortener   ports.Shortener
	Notifier    ports.Notifier
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	Config      PipelineConfig
}

// RunSummary counts item outcomes for one run.
type RunSummary struct {
	Discovered   int
	Skipped      int
	Checkpointed int
	Abandoned    int
}

// Pipeline implements the listing ingestion and delivery workflow.
type Pipeline struct {
	source      ports.ListingSource
	extractor   ports.ListingExtractor
	store       ports.CheckpointStore
	attachments ports.AttachmentFetcher
	shortener   ports.Shortener
	notifier    ports.Notifier
	metrics     *metrics.Recorder
	logger      *slog.Logger
	cfg         PipelineConfig
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = defaultItemTimeout
	}
	if cfg.AttachmentTimeout <= 0 {
		cfg.AttachmentTimeout = defaultAttachmentTimeout
	}
	if cfg.AttachmentWorkers <= 0 {
		cfg.AttachmentWorkers = 1
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = os.TempDir()
	}

	return &Pipeline{
		source:      deps.Source,
		extractor:   deps.Extractor,
		store:       deps.Store,
		attachments: deps.Attachments,
		shortener:   deps.Shortener,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      logger,
		cfg:         cfg,
		sleep:       sleepContext,
	}
}

// Run executes one discovery cycle. Per-item failures are logged and counted; only
// checkpoint store failures and cancellation end the run with an error.
func (p *Pipeline) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary
	if p.source == nil || p.store == nil {
		return summary, errors.New("pipeline: source and store are required")
	}

	urls, err := p.source.Discover(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		p.logger.Error("discovery failed", "error", err)
		return summary, nil
	}
	summary.Discovered = len(urls)
	p.metrics.Discovered(len(urls))

	pending, err := p.filterNew(ctx, urls, &summary)
	if err != nil {
		return summary, err
	}
	p.logger.Info("discovery complete", "discovered", len(urls), "pending", len(pending))

	for _, url := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := p.processItem(ctx, url)
		if err != nil {
			return summary, err
		}
		switch outcome {
		case outcomeSkipped:
			summary.Skipped++
			p.metrics.Skipped()
			continue
		case outcomeCheckpointed:
			summary.Checkpointed++
		default:
			summary.Abandoned++
		}

		if err := p.sleep(ctx, p.cfg.PacingDelay); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (p *Pipeline) filterNew(ctx context.Context, urls []string, summary *RunSummary) ([]string, error) {
	pending := make([]string, 0, len(urls))
	for _, url := range urls {
		seen, err := p.store.Exists(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", url, err)
		}
		if seen {
			summary.Skipped++
			p.metrics.Skipped()
			continue
		}
		pending = append(pending, url)
	}
	return pending, nil
}

// processItem drives one listing to Checkpointed or Abandoned, or skips it when another
// run checkpointed it after filtering. A non-nil error means the run must stop.
func (p *Pipeline) processItem(ctx context.Context, url string) (itemOutcome, error) {
	log := p.logger.With("url", url)

	seen, err := p.store.Exists(ctx, url)
	if err != nil {
		return outcomeAbandoned, fmt.Errorf("recheck %s: %w", url, err)
	}
	if seen {
		log.Info("listing already checkpointed")
		return outcomeSkipped, nil
	}

	itemCtx, cancel := context.WithTimeout(ctx, p.cfg.ItemTimeout)
	defer cancel()

	listing, err := p.extractor.Extract(itemCtx, url)
	if err != nil {
		return outcomeAbandoned, p.abandon(ctx, log, stageFor(itemCtx, stageExtract), err)
	}
	log = log.With("title", listing.Title)
	log.Info("listing extracted", "links", len(listing.Links))

	if err := os.MkdirAll(p.cfg.DownloadDir, 0o755); err != nil {
		return outcomeAbandoned, p.abandon(ctx, log, stageWorkdir, err)
	}
	workdir, err := os.MkdirTemp(p.cfg.DownloadDir, "listing-*")
	if err != nil {
		return outcomeAbandoned, p.abandon(ctx, log, stageWorkdir, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workdir); rmErr != nil {
			log.Warn("remove working directory", "dir", workdir, "error", rmErr)
		}
	}()

	links := listing.OrderedLinks()
	shortened := make(chan map[domain.LinkRole]string, 1)
	go func() {
		shortened <- p.shortenLinks(itemCtx, links)
	}()
	attachments := p.fetchAttachments(itemCtx, links, workdir)
	short := <-shortened

	if itemCtx.Err() != nil {
		return outcomeAbandoned, p.abandon(ctx, log, stageTimeout, itemCtx.Err())
	}

	msg := Compose(listing.Title, links, short, attachments)
	if err := p.notifier.Notify(itemCtx, msg); err != nil {
		p.metrics.Notification("failed")
		return outcomeAbandoned, p.abandon(ctx, log, stageFor(itemCtx, stageNotify), err)
	}
	p.metrics.Notification("ok")

	// Delivered: the checkpoint must not share the item deadline.
	if err := p.store.RecordProcessed(ctx, url, listing.Title); err != nil {
		return outcomeAbandoned, fmt.Errorf("checkpoint %s: %w", url, err)
	}
	p.metrics.Checkpointed()
	log.Info("listing delivered", "attachment", msg.HasAttachment())
	return outcomeCheckpointed, nil
}

// abandon logs the failure and returns the parent's error if the run itself was canceled.
func (p *Pipeline) abandon(ctx context.Context, log *slog.Logger, stage string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.metrics.Abandoned(stage)
	log.Warn("listing abandoned", "stage", stage, "error", err)
	return nil
}

func stageFor(itemCtx context.Context, stage string) string {
	if errors.Is(itemCtx.Err(), context.DeadlineExceeded) {
		return stageTimeout
	}
	return stage
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
