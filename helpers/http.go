package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"sjsage522/pricetracker/logger"
	perrors "sjsage522/pricetracker/pkg/errors"
)

// HTTP header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com.br/",
		"https://www.bing.com/",
	}
)

const maxBodyBytes = 8 << 20

// FetchOptions configures the resilient fetcher
type FetchOptions struct {
	// Timeout bounds a single attempt
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after the first one
	MaxRetries int
	// BaseDelay is multiplied by 2^attempt between attempts
	BaseDelay time.Duration
	// UserAgent overrides the rotating browser user agents
	UserAgent string
}

// Page is the decoded content of a fetched url
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Attempts   int
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher retrieves pages with a per-attempt timeout, bounded retries and
// exponential backoff
type Fetcher struct {
	client *http.Client
	opts   FetchOptions
	sleep  SleepFunc
}

// NewFetcher creates a fetcher using its own http client
func NewFetcher(opts FetchOptions) *Fetcher {
	return NewFetcherWithClient(&http.Client{}, opts)
}

// NewFetcherWithClient creates a fetcher around an existing client
func NewFetcherWithClient(client *http.Client, opts FetchOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Fetcher{
		client: client,
		opts:   opts,
		sleep:  SleepContext,
	}
}

// SetSleep replaces the function used to wait between attempts
func (f *Fetcher) SetSleep(sleep SleepFunc) {
	f.sleep = sleep
}

// Fetch retrieves url. 404 and 410 are returned immediately, 5xx, 429 and
// network failures are retried. After the last attempt the last error is
// returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	log := logger.ForFetcher()

	var lastErr error
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		page, err := f.fetchOnce(ctx, url)
		if err == nil {
			page.Attempts = attempt + 1
			return page, nil
		}
		lastErr = err

		var se *perrors.ScrapeError
		if !errors.As(err, &se) || !se.IsRetryable() || attempt == f.opts.MaxRetries || ctx.Err() != nil {
			break
		}

		delay := f.opts.BaseDelay * time.Duration(1<<attempt)
		log.Debug().
			Str("url", url).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(err).
			Msg("Retrying fetch")

		if err := f.sleep(ctx, delay); err != nil {
			break
		}
	}

	return nil, lastErr
}

// fetchOnce performs a single attempt
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*Page, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, perrors.NewNetwork(url, fmt.Errorf("failed to create request: %w", err))
	}
	f.setBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, perrors.NewNetwork(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, perrors.NewFetch(url, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, perrors.NewNetwork(url, fmt.Errorf("failed to read response body: %w", err))
	}

	body, err := toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, perrors.NewNetwork(url, err)
	}

	return &Page{URL: url, StatusCode: resp.StatusCode, Body: body}, nil
}

// setBrowserHeaders sets browser-like identification and pt-BR accept headers
func (f *Fetcher) setBrowserHeaders(req *http.Request) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	ua := f.opts.UserAgent
	if ua == "" {
		ua = userAgents[rnd.Intn(len(userAgents))]
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")
}

// toUTF8 converts the body to UTF-8 based on the Content-Type header and content
func toUTF8(bodyBytes []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return bodyBytes, nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.Bytes(), nil
}

// SleepContext waits for d unless ctx is cancelled first
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
