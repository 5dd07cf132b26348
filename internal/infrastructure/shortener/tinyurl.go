package shortener

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"JobsScanner/internal/metrics"
	"JobsScanner/internal/ports"
)

// Config describes the shortening endpoint and pacing.
type Config struct {
	Endpoint string
	Pause    time.Duration
	Timeout  time.Duration
}

// TinyURL shortens links with the TinyURL plain-text API. Failures fall back to the
// original URL.
type TinyURL struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

var _ ports.Shortener = (*TinyURL)(nil)

// NewTinyURL builds a shortener that waits cfg.Pause before every call, the first included.
func NewTinyURL(cfg Config, log *slog.Logger, rec *metrics.Recorder) *TinyURL {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	limit := rate.Inf
	if cfg.Pause > 0 {
		limit = rate.Every(cfg.Pause)
	}
	limiter := rate.NewLimiter(limit, 1)
	limiter.Reserve()

	return &TinyURL{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  limiter,
		logger:   log,
		metrics:  rec,
	}
}

// Shorten never fails; on any error it returns longURL unchanged.
func (s *TinyURL) Shorten(ctx context.Context, longURL string) string {
	if err := s.limiter.Wait(ctx); err != nil {
		return s.fallback(longURL, fmt.Errorf("pause: %w", err))
	}

	short, err := s.shorten(ctx, longURL)
	if err != nil {
		return s.fallback(longURL, err)
	}
	return short
}

func (s *TinyURL) shorten(ctx context.Context, longURL string) (string, error) {
	endpoint, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", longURL)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortener error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	short := strings.TrimSpace(string(payload))
	parsed, err := url.Parse(short)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("unexpected shortener response %q", short)
	}
	return short, nil
}

func (s *TinyURL) fallback(longURL string, err error) string {
	s.metrics.ShortenerFallback()
	s.logger.Warn("url shortening failed, keeping original", "url", longURL, "error", err)
	return longURL
}
