package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/draftdesk/feedpipe/app/database"
	"github.com/draftdesk/feedpipe/app/feed"
)

const runTimeout = 5 * time.Minute

// Processor runs one feed end to end. Implemented by feed.Processor.
type Processor interface {
	Process(ctx context.Context, f database.Feed) feed.ProcessResult
}

// entry pairs a feed snapshot with its computed next-run time. Due-ness
// is a predicate (now >= nextRun), never stored state.
type entry struct {
	feed    database.Feed
	nextRun time.Time
	running bool
}

type Stats struct {
	TotalFeeds   int        `json:"total_feeds"`
	ActiveFeeds  int        `json:"active_feeds"`
	DueFeeds     int        `json:"due_feeds"`
	RunningFeeds int        `json:"running_feeds"`
	LastFetchAt  *time.Time `json:"last_fetch_at,omitempty"`
}

// Scheduler owns the set of scheduled feeds and dispatches due ones to
// the processor under a global concurrency cap. The entry map is a
// derived cache, rebuilt from the feed table on every tick; the feed
// table stays the single source of truth for membership and cadence.
type Scheduler struct {
	feeds         database.FeedRepository
	processor     Processor
	interval      time.Duration
	maxConcurrent int

	mu      sync.Mutex
	entries map[string]*entry
	running int
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(feeds database.FeedRepository, processor Processor, interval time.Duration, maxConcurrent int) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	return &Scheduler{
		feeds:         feeds,
		processor:     processor,
		interval:      interval,
		maxConcurrent: maxConcurrent,
		entries:       make(map[string]*entry),
	}
}

// Start begins the periodic check and runs one immediately. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.check()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.check()
			}
		}
	}()

	slog.Info("Scheduler started", "interval", s.interval.String(), "max_concurrent", s.maxConcurrent)
}

// Stop halts future dispatch. In-flight runs finish; Stop waits for
// them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	slog.Info("Scheduler stopped")
}

// check reconciles the entry set with the feed table and dispatches due
// feeds, oldest-due first, up to the concurrency cap.
func (s *Scheduler) check() {
	feeds, err := s.feeds.GetActiveFeeds()
	if err != nil {
		slog.Error("Failed to load active feeds", "error", err)
		return
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[string]bool, len(feeds))
	for _, f := range feeds {
		active[f.ID] = true
		if e, ok := s.entries[f.ID]; ok {
			e.feed = f
		} else {
			// Newly active feeds are eligible immediately.
			s.entries[f.ID] = &entry{feed: f, nextRun: now}
		}
	}

	for id, e := range s.entries {
		if !active[id] && !e.running {
			delete(s.entries, id)
		}
	}

	var due []*entry
	for _, e := range s.entries {
		if !e.running && !e.nextRun.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].nextRun.Before(due[j].nextRun)
	})

	slots := s.maxConcurrent - s.running
	for i := 0; i < len(due) && i < slots; i++ {
		s.dispatchLocked(due[i])
	}
}

func (s *Scheduler) dispatchLocked(e *entry) {
	e.running = true
	s.running++

	f := e.feed
	s.wg.Add(1)
	go s.runFeed(f)
}

func (s *Scheduler) runFeed(f database.Feed) {
	defer s.wg.Done()
	defer func() {
		// A panicking processor must never leave the feed stuck or
		// stall the other feeds.
		if r := recover(); r != nil {
			slog.Error("Feed processing panicked", "feed_id", f.ID, "panic", r)
		}
		s.finish(f.ID)
	}()

	// Not derived from s.ctx: Stop lets in-flight runs complete.
	runCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	s.processor.Process(runCtx, f)
}

// finish marks the feed not-running and advances its next run from its
// cadence, whatever the outcome of the run.
func (s *Scheduler) finish(feedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running--
	e, ok := s.entries[feedID]
	if !ok {
		return
	}
	e.running = false
	e.nextRun = time.Now().UTC().Add(e.feed.Cadence.Interval())
}

// ProcessFeedNow triggers a feed out-of-band, bypassing cadence. The
// feed must be active; returns nil for inactive or missing feeds.
func (s *Scheduler) ProcessFeedNow(ctx context.Context, feedID string) (*feed.ProcessResult, error) {
	f, err := s.feeds.GetFeed(feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	if f == nil || !f.Active {
		return nil, nil
	}

	s.mu.Lock()
	e, ok := s.entries[f.ID]
	if !ok {
		e = &entry{feed: *f, nextRun: time.Now().UTC()}
		s.entries[f.ID] = e
	} else {
		e.feed = *f
	}
	if e.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("feed is already being processed")
	}
	e.running = true
	s.running++
	s.mu.Unlock()

	defer s.finish(f.ID)

	result := s.processor.Process(ctx, *f)
	return &result, nil
}

// Stats is a read-only snapshot for status display. TotalFeeds comes
// from the feed table; the entry map only holds active feeds.
func (s *Scheduler) Stats() Stats {
	total, err := s.feeds.GetFeedCount()
	if err != nil {
		slog.Warn("Failed to count feeds", "error", err)
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalFeeds:   total,
		ActiveFeeds:  len(s.entries),
		RunningFeeds: s.running,
	}

	for _, e := range s.entries {
		if !e.running && !e.nextRun.After(now) {
			stats.DueFeeds++
		}
		if e.feed.LastFetchedAt != nil {
			if stats.LastFetchAt == nil || e.feed.LastFetchedAt.After(*stats.LastFetchAt) {
				stats.LastFetchAt = e.feed.LastFetchedAt
			}
		}
	}

	return stats
}
