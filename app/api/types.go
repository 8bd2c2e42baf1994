package api

import (
	"context"

	"github.com/draftdesk/feedpipe/app/analysis"
	"github.com/draftdesk/feedpipe/app/database"
	"github.com/draftdesk/feedpipe/app/feed"
	"github.com/draftdesk/feedpipe/app/scheduler"
)

// FeedScheduler is the scheduler surface the API depends on.
type FeedScheduler interface {
	ProcessFeedNow(ctx context.Context, feedID string) (*feed.ProcessResult, error)
	Stats() scheduler.Stats
}

// AnalysisQueue is the job queue surface the API depends on.
type AnalysisQueue interface {
	JobStatus(id string) *analysis.Job
	Status() analysis.QueueStatus
}

type Handler struct {
	feedRepo  database.FeedRepository
	itemRepo  database.ItemRepository
	scheduler FeedScheduler
	queue     AnalysisQueue
}

type createFeedRequest struct {
	UserID         string          `json:"user_id" binding:"required"`
	URL            string          `json:"url" binding:"required"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Cadence        string          `json:"cadence"`
	KeywordFilters []string        `json:"keyword_filters"`
	ContentFilters map[string]bool `json:"content_filters"`
	ExtractContent bool            `json:"extract_content"`
}

type updateFeedActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
