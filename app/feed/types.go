package feed

import (
	"time"

	"github.com/draftdesk/feedpipe/app/database"
)

type Metadata struct {
	Title       string
	Link        string
	Description string
}

// Item is a parsed feed entry normalized to the shape the pipeline
// works with. Fingerprint is always present; GUID only when the source
// supplies one.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	Author      string
	PublishedAt *time.Time
	Categories  []string
	Fingerprint string
}

type ParsedFeed struct {
	Metadata Metadata
	Items    []Item
}

// FetchResult is the value returned by the fetcher. Failures are data,
// not errors: callers branch on Success.
type FetchResult struct {
	Success    bool
	Feed       *ParsedFeed
	Status     database.FetchStatus
	Error      string
	Duration   time.Duration
	RetryCount int
}

type ProcessResult struct {
	FeedID         string
	Success        bool
	ItemsProcessed int
	ItemsFiltered  int
	NewItems       int
	Duration       time.Duration
	Error          string
}

type ProcessOptions struct {
	ApplyKeywordFilters bool
	ApplyContentFilters bool
	MaxItemsPerFeed     int
}

func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		ApplyKeywordFilters: true,
		ApplyContentFilters: true,
		MaxItemsPerFeed:     50,
	}
}
