package feed

import (
	"github.com/draftdesk/feedpipe/app/analysis"
	"github.com/draftdesk/feedpipe/app/database"
)

type mockFeedRepository struct {
	updateFetchOutcomeFunc func(id string, outcome database.FetchOutcome) error
	updateFeedMetadataFunc func(id, title, description string) error

	outcomes []database.FetchOutcome
}

func (m *mockFeedRepository) GetFeed(id string) (*database.Feed, error)       { return nil, nil }
func (m *mockFeedRepository) GetFeedByURL(_, _ string) (*database.Feed, error) { return nil, nil }
func (m *mockFeedRepository) GetActiveFeeds() ([]database.Feed, error)        { return nil, nil }
func (m *mockFeedRepository) GetFeedCount() (int, error)                      { return 0, nil }
func (m *mockFeedRepository) GetActiveFeedCount() (int, error)                { return 0, nil }
func (m *mockFeedRepository) CreateFeed(_ *database.Feed) (string, error)     { return "", nil }
func (m *mockFeedRepository) UpsertFeed(_ *database.Feed) (string, bool, error) {
	return "", false, nil
}
func (m *mockFeedRepository) SetFeedActive(_ string, _ bool) error { return nil }
func (m *mockFeedRepository) DeleteFeed(_ string) error            { return nil }

func (m *mockFeedRepository) UpdateFeedMetadata(id, title, description string) error {
	if m.updateFeedMetadataFunc != nil {
		return m.updateFeedMetadataFunc(id, title, description)
	}
	return nil
}

func (m *mockFeedRepository) UpdateFetchOutcome(id string, outcome database.FetchOutcome) error {
	m.outcomes = append(m.outcomes, outcome)
	if m.updateFetchOutcomeFunc != nil {
		return m.updateFetchOutcomeFunc(id, outcome)
	}
	return nil
}

type mockItemRepository struct {
	existsByGUIDFunc        func(guid string) (bool, error)
	existsByFingerprintFunc func(feedID, fingerprint string) (bool, error)
	storeItemFunc           func(item *database.Item) (string, error)

	stored []*database.Item
}

func (m *mockItemRepository) GetItem(_ string) (*database.Item, error) { return nil, nil }
func (m *mockItemRepository) GetRecentItems(_ string, _ int) ([]database.Item, error) {
	return nil, nil
}
func (m *mockItemRepository) GetItemCount(_ string) (int, error) { return 0, nil }

func (m *mockItemRepository) ExistsByGUID(guid string) (bool, error) {
	if m.existsByGUIDFunc != nil {
		return m.existsByGUIDFunc(guid)
	}
	return false, nil
}

func (m *mockItemRepository) ExistsByFingerprint(feedID, fingerprint string) (bool, error) {
	if m.existsByFingerprintFunc != nil {
		return m.existsByFingerprintFunc(feedID, fingerprint)
	}
	return false, nil
}

func (m *mockItemRepository) StoreItem(item *database.Item) (string, error) {
	m.stored = append(m.stored, item)
	if m.storeItemFunc != nil {
		return m.storeItemFunc(item)
	}
	return "item-" + item.Fingerprint, nil
}

type mockEnqueuer struct {
	enqueueFunc func(itemID string, priority analysis.Priority) (string, error)

	enqueued   []string
	priorities []analysis.Priority
}

func (m *mockEnqueuer) Enqueue(itemID string, priority analysis.Priority) (string, error) {
	m.enqueued = append(m.enqueued, itemID)
	m.priorities = append(m.priorities, priority)
	if m.enqueueFunc != nil {
		return m.enqueueFunc(itemID, priority)
	}
	return "job-" + itemID, nil
}
