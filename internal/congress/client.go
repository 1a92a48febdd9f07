// Package congress implements the upstream Congress.gov API client:
// request construction, authentication, and outcome classification
// for single page fetches. Retry policy lives with the traversal
// engine, not here.
package congress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"congressd/internal/config"
	"congressd/internal/logger"
	"congressd/internal/models"
	"congressd/pkg/dates"
)

// maxResponseBytes bounds how much of a list response is read.
const maxResponseBytes = 8 << 20

// dateTimeLayout is the upstream fromDateTime/toDateTime format.
const dateTimeLayout = "2006-01-02T15:04:05Z"

// Client errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrMalformedResponse    = errors.New("malformed response body")
	ErrAuthRejected         = errors.New("API key rejected by upstream")
)

// Page is one decoded page of a paginated list response.
type Page struct {
	Records    []map[string]any
	Count      int
	Next       string
	StatusCode int
	RetryAfter time.Duration
}

// HasMore reports whether the upstream signalled further pages.
func (p *Page) HasMore() bool {
	return p.Next != ""
}

// Client manages HTTP communication with the upstream API. One
// http.Client is kept per family so the configured (connect, read)
// timeout pairs apply.
type Client struct {
	baseURL string
	apiKey  string
	cfg     *config.Config
	log     *logger.Logger

	mu      sync.Mutex
	clients map[models.Family]*http.Client
}

// NewClient creates an API client. The key comes from the environment
// via config.APIKey.
func NewClient(cfg *config.Config, apiKey string, log *logger.Logger) *Client {
	return &Client{
		baseURL: trimTrailingSlash(cfg.API.BaseURL),
		apiKey:  apiKey,
		cfg:     cfg,
		log:     log,
		clients: make(map[models.Family]*http.Client),
	}
}

// httpClient returns the family's HTTP client, building it on first use.
func (c *Client) httpClient(family models.Family) *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[family]; ok {
		return client
	}

	tc := c.cfg.TimeoutFor(family)
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: tc.Connect(),
		}).DialContext,
		MaxIdleConnsPerHost: 4,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   tc.Read(),
	}
	c.clients[family] = client

	return client
}

// FetchPage requests one page of the family's list endpoint for the
// given window. It returns the decoded page together with an outcome
// tag; err carries detail for non-ok outcomes.
func (c *Client) FetchPage(ctx context.Context, family models.Family, from, to time.Time, offset, limit int) (*Page, models.Outcome, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, EndpointPath(family))

	// The window is a pair of calendar dates, both inclusive: the
	// request spans the first day's midnight through the last day's
	// final second.
	params := url.Values{}
	params.Set("fromDateTime", dates.StartOfDay(from).Format(dateTimeLayout))
	params.Set("toDateTime", dates.EndOfDay(to).Format(dateTimeLayout))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "updateDate asc")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, models.OutcomePermanent, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.log.Debug("fetching page", "family", family, "offset", offset, "limit", limit)

	resp, err := c.httpClient(family).Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err), fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		page, err := decodePage(family, resp.Body)
		if err != nil {
			return nil, models.OutcomePermanent, err
		}

		page.StatusCode = resp.StatusCode

		return page, models.OutcomeOK, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		drain(resp.Body)

		page := &Page{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}

		return page, models.OutcomeRateLimited, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		drain(resp.Body)

		return nil, models.OutcomePermanent, fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)

	case resp.StatusCode >= 500:
		drain(resp.Body)

		return nil, models.OutcomeTransient, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)

	default:
		drain(resp.Body)

		return nil, models.OutcomePermanent, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}
}

// Probe issues a one-record request for a family, used by health
// checks to verify connectivity and authentication.
func (c *Client) Probe(ctx context.Context, family models.Family) error {
	now := time.Now().UTC()

	_, outcome, err := c.FetchPage(ctx, family, now.AddDate(0, 0, -1), now, 0, 1)
	if outcome != models.OutcomeOK {
		return err
	}

	return nil
}

// decodePage parses a list response incrementally and pulls out the
// family's record array plus pagination hints.
func decodePage(family models.Family, body io.Reader) (*Page, error) {
	var raw map[string]json.RawMessage

	dec := json.NewDecoder(io.LimitReader(body, maxResponseBytes))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	page := &Page{}

	if msg, ok := raw[ListKey(family)]; ok {
		if err := json.Unmarshal(msg, &page.Records); err != nil {
			// Some list keys nest a map rather than an array.
			var nested map[string]any
			if err := json.Unmarshal(msg, &nested); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, ListKey(family), err)
			}

			page.Records = []map[string]any{nested}
		}
	}

	if msg, ok := raw["pagination"]; ok {
		var pagination struct {
			Count int    `json:"count"`
			Next  string `json:"next"`
		}

		if err := json.Unmarshal(msg, &pagination); err != nil {
			return nil, fmt.Errorf("%w: pagination: %v", ErrMalformedResponse, err)
		}

		page.Count = pagination.Count
		page.Next = pagination.Next
	}

	return page, nil
}

// classifyTransportError maps a transport failure to an outcome tag.
func classifyTransportError(ctx context.Context, err error) models.Outcome {
	if ctx.Err() != nil {
		return models.OutcomeCancelled
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.OutcomeTimeout
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.OutcomeTimeout
	}

	return models.OutcomeTransient
}

// parseRetryAfter reads a Retry-After header in either seconds or
// HTTP-date form.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return 0
}

func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}

	return s
}
