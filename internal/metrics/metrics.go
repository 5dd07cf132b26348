// Package metrics records per-run pipeline counters and exports them to a Pushgateway.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "jobs_scanner"

// Recorder owns a private registry so that a batch run pushes only its own series.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry           *prometheus.Registry
	discovered         prometheus.Counter
	skipped            prometheus.Counter
	checkpointed       prometheus.Counter
	abandoned          *prometheus.CounterVec
	attachments        *prometheus.CounterVec
	fetchAttempts      *prometheus.CounterVec
	shortenerFallbacks prometheus.Counter
	notifications      *prometheus.CounterVec
}

// New registers all pipeline collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		discovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_discovered_total",
			Help:      "Listing URLs found on the index page.",
		}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_skipped_total",
			Help:      "Listings skipped because a checkpoint already exists.",
		}),
		checkpointed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_checkpointed_total",
			Help:      "Listings delivered and checkpointed.",
		}),
		abandoned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_abandoned_total",
			Help:      "Listings abandoned, by the stage that failed.",
		}, []string{"stage"}),
		attachments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_total",
			Help:      "Attachment downloads by result.",
		}, []string{"result"}),
		fetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "HTTP fetch attempts by outcome.",
		}, []string{"outcome"}),
		shortenerFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shortener_fallbacks_total",
			Help:      "Links kept in long form because shortening failed.",
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by result.",
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry for tests and exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Discovered adds the number of listing URLs found on the index page.
func (r *Recorder) Discovered(n int) {
	if r != nil {
		r.discovered.Add(float64(n))
	}
}

// Skipped counts a listing that already had a checkpoint.
func (r *Recorder) Skipped() {
	if r != nil {
		r.skipped.Inc()
	}
}

// Checkpointed counts a listing that was delivered and recorded.
func (r *Recorder) Checkpointed() {
	if r != nil {
		r.checkpointed.Inc()
	}
}

// Abandoned counts a listing dropped at stage.
func (r *Recorder) Abandoned(stage string) {
	if r != nil {
		r.abandoned.WithLabelValues(stage).Inc()
	}
}

// Attachment counts one attachment download by result (ok, timeout, empty, failed).
func (r *Recorder) Attachment(result string) {
	if r != nil {
		r.attachments.WithLabelValues(result).Inc()
	}
}

// FetchAttempt counts one HTTP attempt by outcome.
func (r *Recorder) FetchAttempt(outcome string) {
	if r != nil {
		r.fetchAttempts.WithLabelValues(outcome).Inc()
	}
}

// ShortenerFallback counts a link kept in long form.
func (r *Recorder) ShortenerFallback() {
	if r != nil {
		r.shortenerFallbacks.Inc()
	}
}

// Notification counts one delivery by result.
func (r *Recorder) Notification(result string) {
	if r != nil {
		r.notifications.WithLabelValues(result).Inc()
	}
}

// Push sends the collected series to a Pushgateway under the given job name.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if r == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
