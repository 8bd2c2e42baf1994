package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/draftdesk/feedpipe/app/database"
)

// Fetcher retrieves and parses feeds with bounded retries. It never
// returns an error: callers get a FetchResult and branch on Success.
type Fetcher struct {
	client     *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
	maxRetries int
}

func NewFetcher(client *http.Client, parser *Parser, userAgent string, timeout time.Duration, maxRetries int) *Fetcher {
	return &Fetcher{
		client:     client,
		parser:     parser,
		userAgent:  userAgent,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) FetchResult {
	start := time.Now()
	resolved := f.resolveRedirects(ctx, url)

	var lastErr error
	lastStatus := database.FetchStatusError
	retries := 0

	for attempt := 0; ; attempt++ {
		parsed, status, err := f.attempt(ctx, resolved)
		if err == nil {
			return FetchResult{
				Success:    true,
				Feed:       parsed,
				Status:     database.FetchStatusSuccess,
				Duration:   time.Since(start),
				RetryCount: retries,
			}
		}

		lastErr = err
		lastStatus = status

		if attempt >= f.maxRetries {
			break
		}

		delay := RetryDelay(attempt, Jitter())
		slog.Debug("Fetch attempt failed, retrying", "url", resolved, "attempt", attempt, "delay", delay.String(), "error", err)

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = f.maxRetries
		case <-time.After(delay):
			retries++
			continue
		}
		break
	}

	return FetchResult{
		Success:    false,
		Status:     lastStatus,
		Error:      lastErr.Error(),
		Duration:   time.Since(start),
		RetryCount: retries,
	}
}

// resolveRedirects probes the URL with a HEAD request and returns the
// final location. Any failure falls back to the original URL unchanged;
// resolution is an optimization, never fatal.
func (f *Fetcher) resolveRedirects(ctx context.Context, url string) string {
	probeCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, url, nil)
	if err != nil {
		return url
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Debug("Redirect probe failed, using original URL", "url", url, "error", err)
		return url
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return url
}

func (f *Fetcher) attempt(ctx context.Context, url string) (*ParsedFeed, database.FetchStatus, error) {
	data, err := f.retrieve(ctx, url)
	if err != nil {
		if isTimeout(err) {
			return nil, database.FetchStatusTimeout, err
		}
		return nil, database.FetchStatusError, err
	}

	parsed, err := f.parser.Run(data)
	if err != nil {
		return nil, database.FetchStatusParsingError, err
	}

	return parsed, database.FetchStatusSuccess, nil
}

func (f *Fetcher) retrieve(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	return data, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
