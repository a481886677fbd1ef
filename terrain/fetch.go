package terrain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultFetchTimeout bounds one download of a remote table
	DefaultFetchTimeout = 30 * time.Second

	// DefaultFetchAttempts is how many times a remote table is requested
	DefaultFetchAttempts = 3

	// DefaultRetryDelay is the wait before the second attempt; it doubles
	// after every further failure
	DefaultRetryDelay = time.Second

	// DefaultTableLimit caps a remote table at the size /reconstruct accepts
	DefaultTableLimit int64 = 64 << 20
)

// ErrTableTooLarge is returned when a remote table exceeds its size limit.
// A cut-off CSV still parses, so the download is refused instead.
var ErrTableTooLarge = errors.New("remote table exceeds size limit")

// FetchOption configures FetchSamples
type FetchOption func(*tableSource)

// WithRequestTimeout bounds each download
func WithRequestTimeout(d time.Duration) FetchOption {
	return func(s *tableSource) { s.timeout = d }
}

// WithAttempts sets how many times the table is requested
func WithAttempts(n int) FetchOption {
	return func(s *tableSource) { s.attempts = n }
}

// WithRetryDelay sets the first wait between attempts
func WithRetryDelay(d time.Duration) FetchOption {
	return func(s *tableSource) { s.delay = d }
}

// WithTableLimit sets the largest accepted table in bytes
func WithTableLimit(n int64) FetchOption {
	return func(s *tableSource) { s.limit = n }
}

// WithHTTPClient replaces the client built from the request timeout
func WithHTTPClient(client *http.Client) FetchOption {
	return func(s *tableSource) { s.client = client }
}

// IsRemote reports whether input names an http or https URL
func IsRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// tableSource is a sample table served over HTTP
type tableSource struct {
	url      string
	client   *http.Client
	timeout  time.Duration
	attempts int
	delay    time.Duration
	limit    int64
}

func newTableSource(url string, opts []FetchOption) *tableSource {
	s := &tableSource{
		url:      url,
		timeout:  DefaultFetchTimeout,
		attempts: DefaultFetchAttempts,
		delay:    DefaultRetryDelay,
		limit:    DefaultTableLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.attempts < 1 {
		s.attempts = 1
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}
	return s
}

// finalError marks a failure that another attempt would repeat
type finalError struct{ err error }

func (e finalError) Error() string { return e.err.Error() }
func (e finalError) Unwrap() error { return e.err }

// FetchSamples downloads a CSV table and reads it like a local file.
// Network failures, 5xx and 429 responses are retried. Client errors,
// oversized tables and tables that do not parse fail at once.
func FetchSamples(ctx context.Context, url string, lattice Lattice, opts ...FetchOption) (*SampleSet, error) {
	if url == "" {
		return nil, errors.New("fetch samples: URL is empty")
	}
	src := newTableSource(url, opts)

	var lastErr error
	for attempt := 1; attempt <= src.attempts; attempt++ {
		if attempt > 1 {
			if err := src.wait(ctx, attempt); err != nil {
				return nil, fmt.Errorf("fetch samples: %w", err)
			}
		}

		set, err := src.load(ctx, lattice)
		if err == nil {
			return set, nil
		}
		var final finalError
		if errors.As(err, &final) {
			return nil, fmt.Errorf("fetch samples: %w", final.err)
		}
		lastErr = err
		log.Printf("Fetching %s failed (attempt %d/%d): %v", url, attempt, src.attempts, err)
	}
	return nil, fmt.Errorf("fetch samples: all %d attempts failed: %w", src.attempts, lastErr)
}

// wait sleeps before the given attempt, doubling the delay each time
func (s *tableSource) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(s.delay << (attempt - 2))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// load makes one request and parses the table
func (s *tableSource) load(ctx context.Context, lattice Lattice) (*SampleSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, finalError{fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", s.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("GET %s: status %d", s.url, resp.StatusCode)
	default:
		return nil, finalError{fmt.Errorf("GET %s: status %d", s.url, resp.StatusCode)}
	}

	// One byte past the limit tells a full table from an oversized one
	table, err := io.ReadAll(io.LimitReader(resp.Body, s.limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading table from %s: %w", s.url, err)
	}
	if int64(len(table)) > s.limit {
		return nil, finalError{fmt.Errorf("%w: %s is larger than %d bytes", ErrTableTooLarge, s.url, s.limit)}
	}

	set, err := ReadSamples(bytes.NewReader(table), lattice)
	if err != nil {
		return nil, finalError{err}
	}
	return set, nil
}
