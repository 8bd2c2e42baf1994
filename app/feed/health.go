package feed

import (
	"fmt"
	"time"

	"github.com/draftdesk/feedpipe/app/database"
)

const healthStep = 0.1

// NextScore returns the health score after an outcome, clamped to [0, 1].
func NextScore(score float64, success bool) float64 {
	if success {
		score += healthStep
	} else {
		score -= healthStep
	}

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// HealthTracker maintains the per-feed reliability score and fetch
// status fields. It observes every fetch outcome; the score has no
// feedback effect on scheduling cadence.
type HealthTracker struct {
	feeds database.FeedRepository
}

func NewHealthTracker(feeds database.FeedRepository) *HealthTracker {
	return &HealthTracker{feeds: feeds}
}

// RecordSuccess updates the feed snapshot in place and persists the
// outcome: score +0.1 clamped, failure counter reset, error cleared.
func (t *HealthTracker) RecordSuccess(f *database.Feed) error {
	f.HealthScore = NextScore(f.HealthScore, true)
	f.ConsecutiveFailures = 0
	status := database.FetchStatusSuccess
	f.LastFetchStatus = &status
	f.LastFetchError = ""
	now := time.Now().UTC()
	f.LastFetchedAt = &now

	return t.persist(f)
}

// RecordFailure updates the feed snapshot in place and persists the
// outcome: score -0.1 clamped, failure counter incremented, status and
// error message recorded.
func (t *HealthTracker) RecordFailure(f *database.Feed, status database.FetchStatus, message string) error {
	f.HealthScore = NextScore(f.HealthScore, false)
	f.ConsecutiveFailures++
	f.LastFetchStatus = &status
	f.LastFetchError = message
	now := time.Now().UTC()
	f.LastFetchedAt = &now

	return t.persist(f)
}

func (t *HealthTracker) persist(f *database.Feed) error {
	outcome := database.FetchOutcome{
		Status:              *f.LastFetchStatus,
		Error:               f.LastFetchError,
		ConsecutiveFailures: f.ConsecutiveFailures,
		HealthScore:         f.HealthScore,
		FetchedAt:           *f.LastFetchedAt,
	}

	if err := t.feeds.UpdateFetchOutcome(f.ID, outcome); err != nil {
		return fmt.Errorf("failed to record fetch outcome: %w", err)
	}
	return nil
}
