package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Cadence is how often a feed is due for re-polling.
type Cadence string

const (
	CadenceManual Cadence = "manual"
	CadenceHourly Cadence = "hourly"
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// ParseCadence returns the cadence for s, defaulting to daily for
// unknown or empty values.
func ParseCadence(s string) Cadence {
	switch Cadence(s) {
	case CadenceManual, CadenceHourly, CadenceDaily, CadenceWeekly:
		return Cadence(s)
	default:
		return CadenceDaily
	}
}

// Interval returns the time between scheduled runs. Manual feeds are
// never auto-dispatched; a one-year placeholder keeps them far in the
// future while remaining triggerable out-of-band.
func (c Cadence) Interval() time.Duration {
	switch c {
	case CadenceHourly:
		return time.Hour
	case CadenceWeekly:
		return 7 * 24 * time.Hour
	case CadenceManual:
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// FetchStatus is the outcome of the most recent fetch attempt.
type FetchStatus string

const (
	FetchStatusSuccess      FetchStatus = "success"
	FetchStatusError        FetchStatus = "error"
	FetchStatusTimeout      FetchStatus = "timeout"
	FetchStatusParsingError FetchStatus = "parsing_error"
)

// BoolMap is a string-to-bool map stored as jsonb.
type BoolMap map[string]bool

func (m BoolMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bool map: %w", err)
	}
	return string(data), nil
}

func (m *BoolMap) Scan(src interface{}) error {
	if src == nil {
		*m = BoolMap{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for bool map: %T", src)
	}

	return json.Unmarshal(data, m)
}

// Feed is a configured external content source.
type Feed struct {
	ID                  string         `db:"id"`
	UserID              string         `db:"user_id"`
	URL                 string         `db:"url"`
	Title               string         `db:"title"`
	Description         string         `db:"description"`
	Category            string         `db:"category"`
	Active              bool           `db:"active"`
	Cadence             Cadence        `db:"cadence"`
	KeywordFilters      pq.StringArray `db:"keyword_filters"`
	ContentFilters      BoolMap        `db:"content_filters"`
	ExtractContent      bool           `db:"extract_content"`
	LastFetchedAt       *time.Time     `db:"last_fetched_at"`
	LastFetchStatus     *FetchStatus   `db:"last_fetch_status"`
	LastFetchError      string         `db:"last_fetch_error"`
	ConsecutiveFailures int            `db:"consecutive_failures"`
	HealthScore         float64        `db:"health_score"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

// Item is one piece of content discovered from a feed. Items are
// written once on first sighting and never mutated.
type Item struct {
	ID          string         `db:"id"`
	FeedID      string         `db:"feed_id"`
	GUID        string         `db:"guid"`
	Fingerprint string         `db:"fingerprint"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Content     string         `db:"content"`
	Link        string         `db:"link"`
	Author      string         `db:"author"`
	PublishedAt *time.Time     `db:"published_at"`
	Categories  pq.StringArray `db:"categories"`
	WordCount   int            `db:"word_count"`
	ReadingTime int            `db:"reading_time"`
	CreatedAt   time.Time      `db:"created_at"`
}
