package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/webtest/pkg/config"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

// maxBodySize caps how much of a response body is kept in memory
const maxBodySize = 32 << 20

// Response is a fully read HTTP response; Body is already decoded per Content-Encoding
type Response struct {
	StatusCode int
	Status     string // Status line without the protocol, e.g. "404 Not Found"
	Header     http.Header
	Body       []byte
	RawBody    []byte // Body as received on the wire
}

// Reason returns the reason phrase of the status line
func (r *Response) Reason() string {
	if len(r.Status) > 4 {
		return r.Status[4:]
	}
	return http.StatusText(r.StatusCode)
}

// Fetcher handles making HTTP requests with configured retry logic, using an underlying http.Client
type Fetcher struct {
	client            *http.Client
	maxAttempts       int
	initialRetryDelay time.Duration
	maxRetryDelay     time.Duration
	log               *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Fetcher{
		client:            client,
		maxAttempts:       attempts,
		initialRetryDelay: cfg.InitialRetryDelay,
		maxRetryDelay:     cfg.MaxRetryDelay,
		log:               log,
	}
}

// Do performs a single attempt and reads the whole response
func (f *Fetcher) Do(ctx context.Context, req *http.Request) (*Response, error) {
	resp, err := f.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		RawBody:    raw,
		Body:       raw,
	}
	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" && len(raw) > 0 {
		decoded, err := DecodeContent(encoding, raw)
		if err != nil {
			return out, err
		}
		out.Body = decoded
	}
	return out, nil
}

// FetchWithRetry performs an HTTP request associated with the provided context
// Transport errors are retried with exponential backoff and jitter up to the configured attempts
// Any HTTP status is a response and is returned as is; the caller decides what it means
func (f *Fetcher) FetchWithRetry(ctx context.Context, req *http.Request) (*Response, error) {
	var lastErr error

	reqLog := f.log.WithField("url", req.URL.String())

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		// --- Context Check ---
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("context cancelled (%v) during retry backoff after error: %w", err, lastErr)
			}
			return nil, fmt.Errorf("context cancelled before first attempt: %w", err)
		}

		// --- Exponential Backoff Delay ---
		if attempt > 0 {
			finalDelay := f.backoff(attempt)
			reqLog.WithFields(logrus.Fields{"attempt": attempt + 1, "max_attempts": f.maxAttempts, "delay": finalDelay}).Warn("Retrying request...")

			select {
			case <-time.After(finalDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled (%v) during retry delay after error: %w", ctx.Err(), lastErr)
			}
		}

		resp, err := f.Do(ctx, req)
		if err == nil {
			reqLog.WithFields(logrus.Fields{"status_code": resp.StatusCode, "attempt": attempt + 1}).Debug("Fetched")
			return resp, nil
		}
		lastErr = err

		// Context cancellation and undecodable bodies are not transient
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, utils.ErrDecoding) {
			return resp, err
		}

		reqLog.WithField("attempt", attempt+1).Debugf("Network error: %v", err)
	}

	reqLog.Warnf("All %d fetch attempts failed. Last error: %v", f.maxAttempts, lastErr)
	return nil, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

// backoff computes initial * 2^(attempt-1), capped by the max delay, with +/- 10% jitter
func (f *Fetcher) backoff(attempt int) time.Duration {
	backoff := float64(f.initialRetryDelay) * math.Pow(2, float64(attempt-1))
	delay := time.Duration(backoff)
	if delay <= 0 || delay > f.maxRetryDelay {
		delay = f.maxRetryDelay
	}

	var jitter time.Duration
	if delay/5 > 0 {
		jitter = time.Duration(rand.Int63n(int64(delay)/5)) - (delay / 10)
	}
	finalDelay := delay + jitter
	if finalDelay < 0 {
		finalDelay = 0
	}
	return finalDelay
}
