package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/draftdesk/feedpipe/app/analysis"
	"github.com/draftdesk/feedpipe/app/database"
)

const wordsPerMinute = 200

// Processor orchestrates one feed run: fetch, filter, dedup, persist,
// enqueue for analysis. It never returns an error; every failure is
// folded into the ProcessResult.
type Processor struct {
	fetcher   *Fetcher
	filterer  *Filterer
	dedup     *Deduplicator
	health    *HealthTracker
	extractor *ContentExtractor
	feeds     database.FeedRepository
	items     database.ItemRepository
	queue     analysis.Enqueuer
	options   ProcessOptions
}

func NewProcessor(fetcher *Fetcher, filterer *Filterer, dedup *Deduplicator,
	health *HealthTracker, extractor *ContentExtractor, feeds database.FeedRepository,
	items database.ItemRepository, queue analysis.Enqueuer, options ProcessOptions) *Processor {
	return &Processor{
		fetcher:   fetcher,
		filterer:  filterer,
		dedup:     dedup,
		health:    health,
		extractor: extractor,
		feeds:     feeds,
		items:     items,
		queue:     queue,
		options:   options,
	}
}

func (p *Processor) Process(ctx context.Context, f database.Feed) ProcessResult {
	return p.ProcessWithOptions(ctx, f, p.options)
}

func (p *Processor) ProcessWithOptions(ctx context.Context, f database.Feed, opts ProcessOptions) ProcessResult {
	start := time.Now()
	result := ProcessResult{FeedID: f.ID}

	fetched := p.fetcher.Fetch(ctx, f.URL)
	if !fetched.Success {
		if err := p.health.RecordFailure(&f, fetched.Status, fetched.Error); err != nil {
			slog.Warn("Failed to record fetch failure", "feed_id", f.ID, "error", err)
		}
		result.Error = fetched.Error
		result.Duration = time.Since(start)

		slog.Warn("Feed fetch failed",
			"feed_id", f.ID,
			"url", f.URL,
			"status", string(fetched.Status),
			"retries", fetched.RetryCount,
			"error", fetched.Error)
		return result
	}

	if err := p.health.RecordSuccess(&f); err != nil {
		slog.Warn("Failed to record fetch success", "feed_id", f.ID, "error", err)
	}

	if err := p.feeds.UpdateFeedMetadata(f.ID, fetched.Feed.Metadata.Title, fetched.Feed.Metadata.Description); err != nil {
		slog.Warn("Failed to update feed metadata", "feed_id", f.ID, "error", err)
	}

	maxItems := opts.MaxItemsPerFeed
	if maxItems <= 0 {
		maxItems = 50
	}

	items := fetched.Feed.Items
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	for _, item := range items {
		result.ItemsProcessed++

		if !p.passes(item, f, opts) {
			result.ItemsFiltered++
			continue
		}

		isDup, err := p.dedup.IsDuplicate(ctx, f.ID, item)
		if err != nil {
			slog.Warn("Duplicate check failed, skipping item", "feed_id", f.ID, "link", item.Link, "error", err)
			continue
		}
		if isDup {
			continue
		}

		itemID, err := p.storeItem(ctx, f, item)
		if err != nil {
			slog.Warn("Failed to store item", "feed_id", f.ID, "link", item.Link, "error", err)
			continue
		}

		result.NewItems++
		p.dedup.Remember(ctx, f.ID, item)

		// Enqueue is best-effort: a full queue must never abort the
		// rest of the batch or fail the run.
		if _, err := p.queue.Enqueue(itemID, analysis.PriorityNormal); err != nil {
			slog.Warn("Failed to enqueue analysis job", "feed_id", f.ID, "item_id", itemID, "error", err)
		}
	}

	result.Success = true
	result.Duration = time.Since(start)

	slog.Info("Feed processed",
		"feed_id", f.ID,
		"processed", result.ItemsProcessed,
		"filtered", result.ItemsFiltered,
		"new", result.NewItems,
		"duration", result.Duration.String())

	return result
}

func (p *Processor) passes(item Item, f database.Feed, opts ProcessOptions) bool {
	keywords := []string(f.KeywordFilters)
	if !opts.ApplyKeywordFilters {
		keywords = nil
	}

	contentFilters := map[string]bool(f.ContentFilters)
	if !opts.ApplyContentFilters {
		contentFilters = nil
	}

	return p.filterer.Passes(item, keywords, contentFilters)
}

func (p *Processor) storeItem(ctx context.Context, f database.Feed, item Item) (string, error) {
	content := item.Content
	if content == "" && f.ExtractContent && item.Link != "" {
		extracted, err := p.extractor.Extract(ctx, item.Link)
		if err != nil {
			slog.Debug("Content extraction failed", "feed_id", f.ID, "link", item.Link, "error", err)
		} else {
			content = extracted
		}
	}

	words := countWords(content)
	if words == 0 {
		words = countWords(item.Description)
	}

	dbItem := &database.Item{
		FeedID:      f.ID,
		GUID:        item.GUID,
		Fingerprint: item.Fingerprint,
		Title:       item.Title,
		Description: item.Description,
		Content:     content,
		Link:        item.Link,
		Author:      item.Author,
		PublishedAt: item.PublishedAt,
		Categories:  item.Categories,
		WordCount:   words,
		ReadingTime: readingTime(words),
	}

	id, err := p.items.StoreItem(dbItem)
	if err != nil {
		return "", fmt.Errorf("failed to store item: %w", err)
	}
	return id, nil
}

// countWords counts words in text after stripping markup tags.
func countWords(text string) int {
	return len(strings.Fields(stripTags(text)))
}

// readingTime estimates minutes at 200 wpm, rounded up.
func readingTime(words int) int {
	if words == 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
