// Package fetcher is the single network access point for page and attachment downloads.
package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/metrics"
)

const (
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 30 * time.Second
	defaultBackoffBase    = time.Second
	defaultBackoffMax     = 30 * time.Second
	defaultMaxBodyBytes   = 50 << 20
)

// Config tunes retries and limits.
type Config struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	MaxBodyBytes   int64
	UserAgent      string
}

// Request overrides per-call behaviour; zero values fall back to Config.
type Request struct {
	URL            string
	SkipVerify     bool
	MaxAttempts    int
	AttemptTimeout time.Duration
}

// Response is a fully read 2xx response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the declared Content-Type header.
func (r *Response) ContentType() string {
	if r == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

// FetchError is returned once a URL could not be fetched. It unwraps to one of the
// domain taxonomy errors.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher issues GET requests with per-attempt timeouts, exponential backoff and a
// single unverified retry on certificate validation failures.
type Fetcher struct {
	cfg      Config
	secure   *http.Client
	insecure *http.Client
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

// New builds a Fetcher with a verifying and a non-verifying client.
func New(cfg Config, logger *slog.Logger, rec *metrics.Recorder) *Fetcher {
	return NewWithClients(cfg, newClient(false), newClient(true), logger, rec)
}

// NewWithClients wires explicit clients; timeouts are applied per attempt through the context.
func NewWithClients(cfg Config, secure, insecure *http.Client, logger *slog.Logger, rec *metrics.Recorder) *Fetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		cfg:      cfg,
		secure:   secure,
		insecure: insecure,
		logger:   logger,
		metrics:  rec,
	}
}

func newClient(skipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit downgrade path
	}
	return &http.Client{Transport: transport}
}

// Get fetches url with the configured defaults.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	return f.Do(ctx, Request{URL: url})
}

// Do runs the retry loop for a single request.
func (f *Fetcher) Do(ctx context.Context, req Request) (*Response, error) {
	attempts := req.MaxAttempts
	if attempts <= 0 {
		attempts = f.cfg.MaxAttempts
	}
	timeout := req.AttemptTimeout
	if timeout <= 0 {
		timeout = f.cfg.AttemptTimeout
	}
	client := f.secure
	if req.SkipVerify {
		client = f.insecure
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := f.attempt(ctx, client, req.URL, timeout)
		if err == nil {
			f.metrics.FetchAttempt("ok")
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrTransportSecurity) && !req.SkipVerify {
			f.metrics.FetchAttempt("tls")
			return f.unverifiedRetry(ctx, req.URL, timeout, attempt, err)
		}
		if !errors.Is(err, domain.ErrTransientNetwork) {
			f.metrics.FetchAttempt("permanent")
			return nil, &FetchError{URL: req.URL, Attempts: attempt, Err: err}
		}
		f.metrics.FetchAttempt("transient")

		if attempt == attempts {
			break
		}
		delay := f.backoff(attempt)
		f.logger.Debug("retrying fetch", "url", req.URL, "attempt", attempt, "delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			return nil, &FetchError{URL: req.URL, Attempts: attempt, Err: err}
		}
	}

	return nil, &FetchError{URL: req.URL, Attempts: attempts, Err: lastErr}
}

// unverifiedRetry performs the one permitted attempt with certificate checks disabled.
func (f *Fetcher) unverifiedRetry(ctx context.Context, url string, timeout time.Duration, attempt int, cause error) (*Response, error) {
	f.logger.Warn("certificate verification failed, retrying once without verification",
		"url", url, "error", cause)

	resp, err := f.attempt(ctx, f.insecure, url, timeout)
	if err != nil {
		f.metrics.FetchAttempt("permanent")
		return nil, &FetchError{
			URL:      url,
			Attempts: attempt + 1,
			Err:      fmt.Errorf("%w: unverified retry: %w", domain.ErrTransportSecurity, err),
		}
	}
	f.metrics.FetchAttempt("ok")
	return resp, nil
}

func (f *Fetcher) attempt(ctx context.Context, client *http.Client, url string, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrPermanentFetch, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: status %s", domain.ErrTransientNetwork, resp.Status)
		}
		return nil, fmt.Errorf("%w: status %s", domain.ErrPermanentFetch, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrPermanentFetch, f.cfg.MaxBodyBytes)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:        finalURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= f.cfg.BackoffMax {
			return f.cfg.BackoffMax
		}
	}
	return delay
}

// classifyTransportError maps a client error onto the taxonomy. Cancellation of the
// caller's context is returned as-is so the retry loop stops.
func classifyTransportError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if isCertificateError(err) {
		return fmt.Errorf("%w: %v", domain.ErrTransportSecurity, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
}

func isCertificateError(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func isRetryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
