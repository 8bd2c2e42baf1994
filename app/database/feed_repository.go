package database

import (
	"database/sql"
	"fmt"
)

var _ FeedRepository = (*FeedRepo)(nil)

// FeedRepo handles database operations for feeds
type FeedRepo struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

const feedColumns = `id, user_id, url, COALESCE(title, '') AS title,
	COALESCE(description, '') AS description, COALESCE(category, '') AS category,
	active, cadence, keyword_filters, content_filters, extract_content,
	last_fetched_at, last_fetch_status, COALESCE(last_fetch_error, '') AS last_fetch_error,
	consecutive_failures, health_score, created_at, updated_at`

func (r *FeedRepo) GetFeed(id string) (*Feed, error) {
	var feed Feed
	err := r.db.Get(&feed, `SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return &feed, nil
}

func (r *FeedRepo) GetFeedByURL(userID, url string) (*Feed, error) {
	var feed Feed
	err := r.db.Get(&feed, `SELECT `+feedColumns+` FROM feeds WHERE user_id = $1 AND url = $2`, userID, url)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}
	return &feed, nil
}

func (r *FeedRepo) GetActiveFeeds() ([]Feed, error) {
	var feeds []Feed
	err := r.db.Select(&feeds, `SELECT `+feedColumns+` FROM feeds WHERE active = true ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active feeds: %w", err)
	}
	return feeds, nil
}

func (r *FeedRepo) GetFeedCount() (int, error) {
	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM feeds`); err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

func (r *FeedRepo) GetActiveFeedCount() (int, error) {
	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM feeds WHERE active = true`); err != nil {
		return 0, fmt.Errorf("failed to get active feed count: %w", err)
	}
	return count, nil
}

func (r *FeedRepo) CreateFeed(feed *Feed) (string, error) {
	if feed.ContentFilters == nil {
		feed.ContentFilters = BoolMap{}
	}

	var id string
	err := r.db.QueryRow(`
		INSERT INTO feeds (user_id, url, title, description, category, active, cadence,
			keyword_filters, content_filters, extract_content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, feed.UserID, feed.URL, feed.Title, feed.Description, feed.Category, feed.Active,
		ParseCadence(string(feed.Cadence)), feed.KeywordFilters, feed.ContentFilters,
		feed.ExtractContent).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create feed: %w", err)
	}
	return id, nil
}

// UpsertFeed registers a feed definition, keyed by (user_id, url).
// Returns the database id and whether an existing feed was updated.
func (r *FeedRepo) UpsertFeed(feed *Feed) (string, bool, error) {
	existing, err := r.GetFeedByURL(feed.UserID, feed.URL)
	if err != nil {
		return "", false, fmt.Errorf("failed to check existing feed: %w", err)
	}

	if existing == nil {
		id, err := r.CreateFeed(feed)
		return id, false, err
	}

	if feed.ContentFilters == nil {
		feed.ContentFilters = BoolMap{}
	}

	_, err = r.db.Exec(`
		UPDATE feeds
		SET title = $2, description = $3, category = $4, active = $5, cadence = $6,
			keyword_filters = $7, content_filters = $8, extract_content = $9, updated_at = NOW()
		WHERE id = $1
	`, existing.ID, feed.Title, feed.Description, feed.Category, feed.Active,
		ParseCadence(string(feed.Cadence)), feed.KeywordFilters, feed.ContentFilters,
		feed.ExtractContent)
	if err != nil {
		return "", false, fmt.Errorf("failed to update feed: %w", err)
	}

	return existing.ID, true, nil
}

// UpdateFeedMetadata fills in title and description supplied by the
// source, without overwriting user-provided values.
func (r *FeedRepo) UpdateFeedMetadata(id, title, description string) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET title = CASE WHEN COALESCE(title, '') = '' THEN $2 ELSE title END,
			description = CASE WHEN COALESCE(description, '') = '' THEN $3 ELSE description END,
			updated_at = NOW()
		WHERE id = $1
	`, id, title, description)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}
	return nil
}

func (r *FeedRepo) UpdateFetchOutcome(id string, outcome FetchOutcome) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_fetch_status = $2, last_fetch_error = $3, consecutive_failures = $4,
			health_score = $5, last_fetched_at = $6, updated_at = NOW()
		WHERE id = $1
	`, id, string(outcome.Status), outcome.Error, outcome.ConsecutiveFailures,
		outcome.HealthScore, outcome.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to update fetch outcome: %w", err)
	}
	return nil
}

func (r *FeedRepo) SetFeedActive(id string, active bool) error {
	_, err := r.db.Exec(`UPDATE feeds SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set feed active status: %w", err)
	}
	return nil
}

// DeleteFeed removes a feed; its items cascade.
func (r *FeedRepo) DeleteFeed(id string) error {
	_, err := r.db.Exec(`DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	return nil
}
