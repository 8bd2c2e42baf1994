package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/draftdesk/feedpipe/app/database"
)

func newTestFetcher(client *http.Client, maxRetries int) *Fetcher {
	return NewFetcher(client, NewParser(), "feedpipe-test", 5*time.Second, maxRetries)
}

func TestFetcherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.Client(), 0)
	result := fetcher.Fetch(context.Background(), server.URL)

	if !result.Success {
		t.Fatalf("Fetch() failed: %s", result.Error)
	}
	if result.Status != database.FetchStatusSuccess {
		t.Errorf("Status = %q, want success", result.Status)
	}
	if result.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", result.RetryCount)
	}
	if len(result.Feed.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(result.Feed.Items))
	}
}

func TestFetcherHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.Client(), 0)
	result := fetcher.Fetch(context.Background(), server.URL)

	if result.Success {
		t.Fatal("Fetch() succeeded on HTTP 500")
	}
	if result.Status != database.FetchStatusError {
		t.Errorf("Status = %q, want error", result.Status)
	}
	if result.Error == "" {
		t.Error("Error message is empty")
	}
}

func TestFetcherRetriesThenGivesUp(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			attempts++
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.Client(), 1)
	result := fetcher.Fetch(context.Background(), server.URL)

	if result.Success {
		t.Fatal("Fetch() succeeded on persistent HTTP 503")
	}
	if attempts != 2 {
		t.Errorf("server saw %d GET attempts, want 2", attempts)
	}
	if result.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", result.RetryCount)
	}
}

func TestFetcherRecoversOnRetry(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			return
		}
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.Client(), 2)
	result := fetcher.Fetch(context.Background(), server.URL)

	if !result.Success {
		t.Fatalf("Fetch() failed: %s", result.Error)
	}
	if result.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", result.RetryCount)
	}
}

func TestFetcherParsingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.Client(), 0)
	result := fetcher.Fetch(context.Background(), server.URL)

	if result.Success {
		t.Fatal("Fetch() succeeded on unparseable body")
	}
	if result.Status != database.FetchStatusParsingError {
		t.Errorf("Status = %q, want parsing_error", result.Status)
	}
}

func TestFetcherFollowsRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer target.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusMovedPermanently)
	}))
	defer redirecting.Close()

	fetcher := newTestFetcher(redirecting.Client(), 0)
	result := fetcher.Fetch(context.Background(), redirecting.URL)

	if !result.Success {
		t.Fatalf("Fetch() through redirect failed: %s", result.Error)
	}
	if result.Feed.Metadata.Title != "Example Feed" {
		t.Errorf("Metadata.Title = %q", result.Feed.Metadata.Title)
	}
}
