package database

import "time"

// FetchOutcome carries the health and status fields written back to a
// feed after every fetch attempt.
type FetchOutcome struct {
	Status              FetchStatus
	Error               string
	ConsecutiveFailures int
	HealthScore         float64
	FetchedAt           time.Time
}

type FeedRepository interface {
	GetFeed(id string) (*Feed, error)
	GetFeedByURL(userID, url string) (*Feed, error)
	GetActiveFeeds() ([]Feed, error)
	GetFeedCount() (int, error)
	GetActiveFeedCount() (int, error)

	CreateFeed(feed *Feed) (string, error)
	UpsertFeed(feed *Feed) (string, bool, error)
	UpdateFeedMetadata(id, title, description string) error
	UpdateFetchOutcome(id string, outcome FetchOutcome) error
	SetFeedActive(id string, active bool) error
	DeleteFeed(id string) error
}

type ItemRepository interface {
	GetItem(id string) (*Item, error)
	GetRecentItems(feedID string, limit int) ([]Item, error)
	GetItemCount(feedID string) (int, error)

	ExistsByGUID(guid string) (bool, error)
	ExistsByFingerprint(feedID, fingerprint string) (bool, error)
	StoreItem(item *Item) (string, error)
}
