package congress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"congressd/internal/config"
	"congressd/internal/logger"
	"congressd/internal/models"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL: baseURL,
			RateLimit: config.RateLimitConfig{
				RequestsPerSecond: 100,
			},
		},
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(testConfig(server.URL), "test-key", logger.NewLogger("error"))

	return client, server
}

func fetchWindow() (time.Time, time.Time) {
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

	return from, to
}

func TestFetchPage_OK(t *testing.T) {
	var gotPath, gotKey, gotQuery string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		gotQuery = r.URL.RawQuery

		fmt.Fprint(w, `{
			"bills": [
				{"congress": 118, "type": "HR", "number": "1234"},
				{"congress": 118, "type": "S", "number": "99"}
			],
			"pagination": {"count": 400, "next": "https://example.com/next"}
		}`)
	}))

	from, to := fetchWindow()

	page, outcome, err := client.FetchPage(context.Background(), models.FamilyBill, from, to, 0, 250)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if outcome != models.OutcomeOK {
		t.Errorf("Expected ok outcome, got %s", outcome)
	}

	if gotPath != "/bill" {
		t.Errorf("Expected path /bill, got %s", gotPath)
	}

	if gotKey != "test-key" {
		t.Errorf("Expected API key header, got '%s'", gotKey)
	}

	for _, fragment := range []string{"offset=0", "limit=250", "fromDateTime=2024-03-01T00%3A00%3A00Z", "toDateTime=2024-03-07T23%3A59%3A59Z"} {
		if !strings.Contains(gotQuery, fragment) {
			t.Errorf("Query missing %q: %s", fragment, gotQuery)
		}
	}

	if len(page.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(page.Records))
	}

	if page.Count != 400 || !page.HasMore() {
		t.Errorf("Pagination wrong: count=%d next=%q", page.Count, page.Next)
	}
}

func TestFetchPage_SingleDayWindowSpansFullDay(t *testing.T) {
	var gotFrom, gotTo, gotSort string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("fromDateTime")
		gotTo = r.URL.Query().Get("toDateTime")
		gotSort = r.URL.Query().Get("sort")

		fmt.Fprint(w, `{"bills": [], "pagination": {"count": 0, "next": ""}}`)
	}))

	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	if _, _, err := client.FetchPage(context.Background(), models.FamilyBill, day, day, 0, 250); err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	// Both bounds are inclusive: a one-day window covers the whole day,
	// not the empty [midnight, midnight] instant.
	if gotFrom != "2024-03-01T00:00:00Z" {
		t.Errorf("Expected fromDateTime at midnight, got %s", gotFrom)
	}

	if gotTo != "2024-03-01T23:59:59Z" {
		t.Errorf("Expected toDateTime at the last second of the day, got %s", gotTo)
	}

	if gotSort != "updateDate asc" {
		t.Errorf("Expected sort 'updateDate asc', got %q", gotSort)
	}
}

func TestFetchPage_RateLimited(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	from, to := fetchWindow()

	page, outcome, err := client.FetchPage(context.Background(), models.FamilyBill, from, to, 0, 250)
	if outcome != models.OutcomeRateLimited {
		t.Fatalf("Expected rate_limited outcome, got %s (%v)", outcome, err)
	}

	if page.RetryAfter != 7*time.Second {
		t.Errorf("Expected 7s Retry-After, got %v", page.RetryAfter)
	}
}

func TestFetchPage_AuthRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		from, to := fetchWindow()

		_, outcome, err := client.FetchPage(context.Background(), models.FamilyBill, from, to, 0, 250)
		if outcome != models.OutcomePermanent {
			t.Errorf("Status %d: expected permanent outcome, got %s", status, outcome)
		}

		if !errors.Is(err, ErrAuthRejected) {
			t.Errorf("Status %d: expected ErrAuthRejected, got %v", status, err)
		}
	}
}

func TestFetchPage_ServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	from, to := fetchWindow()

	_, outcome, _ := client.FetchPage(context.Background(), models.FamilyBill, from, to, 0, 250)
	if outcome != models.OutcomeTransient {
		t.Errorf("Expected transient outcome for 503, got %s", outcome)
	}
}

func TestFetchPage_ClientError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	from, to := fetchWindow()

	_, outcome, _ := client.FetchPage(context.Background(), models.FamilyBill, from, to, 0, 250)
	if outcome != models.OutcomePermanent {
		t.Errorf("Expected permanent outcome for 404, got %s", outcome)
	}
}

func TestFetchPage_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bills": [not json`)
	}))

	from, to := fetchWindow()

	_, outcome, err := client.FetchPage(context.Background(), models.FamilyBill, from, to, 0, 250)
	if outcome != models.OutcomePermanent {
		t.Errorf("Expected permanent outcome, got %s", outcome)
	}

	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestFetchPage_Cancelled(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	from, to := fetchWindow()

	_, outcome, _ := client.FetchPage(ctx, models.FamilyBill, from, to, 0, 250)
	if outcome != models.OutcomeCancelled {
		t.Errorf("Expected cancelled outcome, got %s", outcome)
	}
}

func TestListKey_KnownAndFallback(t *testing.T) {
	if ListKey(models.FamilyBill) != "bills" {
		t.Errorf("Expected 'bills', got %s", ListKey(models.FamilyBill))
	}

	if ListKey(models.FamilyRecord) != "results" {
		t.Errorf("Expected 'results', got %s", ListKey(models.FamilyRecord))
	}

	if ListKey(models.Family("made-up")) != "results" {
		t.Errorf("Expected fallback 'results' for unknown family")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("12"); got != 12*time.Second {
		t.Errorf("Expected 12s, got %v", got)
	}

	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("Expected 0 for empty header, got %v", got)
	}

	httpDate := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(httpDate); got < 20*time.Second || got > 31*time.Second {
		t.Errorf("Expected roughly 30s for HTTP date, got %v", got)
	}
}
