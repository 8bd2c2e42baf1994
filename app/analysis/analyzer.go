package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/draftdesk/feedpipe/app/database"
)

// Analyzer is the semantic analysis collaborator. The queue treats it
// as an opaque call that may fail.
type Analyzer interface {
	Analyze(ctx context.Context, item *database.Item) error
}

// HTTPAnalyzer posts items to an external analysis service.
type HTTPAnalyzer struct {
	client *http.Client
	url    string
}

func NewHTTPAnalyzer(client *http.Client, url string) *HTTPAnalyzer {
	return &HTTPAnalyzer{client: client, url: url}
}

type analyzeRequest struct {
	FeedItemID  string `json:"feed_item_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, item *database.Item) error {
	payload, err := json.Marshal(analyzeRequest{
		FeedItemID:  item.ID,
		Title:       item.Title,
		Content:     item.Content,
		Description: item.Description,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analyze request failed: HTTP %d", resp.StatusCode)
	}

	return nil
}

// NoopAnalyzer completes every job without doing work. Used when no
// analysis service is configured.
type NoopAnalyzer struct{}

func (NoopAnalyzer) Analyze(ctx context.Context, item *database.Item) error {
	slog.Debug("No analysis service configured, skipping", "item_id", item.ID)
	return nil
}
