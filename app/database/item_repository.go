package database

import (
	"database/sql"
	"fmt"
)

var _ ItemRepository = (*ItemRepo)(nil)

// ItemRepo handles database operations for feed items
type ItemRepo struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

const itemColumns = `id, feed_id, COALESCE(guid, '') AS guid, fingerprint,
	COALESCE(title, '') AS title, COALESCE(description, '') AS description,
	COALESCE(content, '') AS content, COALESCE(link, '') AS link,
	COALESCE(author, '') AS author, published_at, categories,
	word_count, reading_time, created_at`

func (r *ItemRepo) GetItem(id string) (*Item, error) {
	var item Item
	err := r.db.Get(&item, `SELECT `+itemColumns+` FROM feed_items WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (r *ItemRepo) GetRecentItems(feedID string, limit int) ([]Item, error) {
	var items []Item
	err := r.db.Select(&items, `
		SELECT `+itemColumns+` FROM feed_items
		WHERE feed_id = $1
		ORDER BY published_at DESC NULLS LAST, created_at DESC
		LIMIT $2
	`, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent items: %w", err)
	}
	return items, nil
}

func (r *ItemRepo) GetItemCount(feedID string) (int, error) {
	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM feed_items WHERE feed_id = $1`, feedID); err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

// ExistsByGUID checks for a stored item with the given guid across all
// feeds. Cross-feed suppression is intentional: mirrored sources reuse
// each other's GUIDs.
func (r *ItemRepo) ExistsByGUID(guid string) (bool, error) {
	if guid == "" {
		return false, nil
	}

	var id string
	err := r.db.Get(&id, `SELECT id FROM feed_items WHERE guid = $1 LIMIT 1`, guid)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check guid: %w", err)
	}
	return true, nil
}

func (r *ItemRepo) ExistsByFingerprint(feedID, fingerprint string) (bool, error) {
	var id string
	err := r.db.Get(&id, `SELECT id FROM feed_items WHERE feed_id = $1 AND fingerprint = $2 LIMIT 1`, feedID, fingerprint)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return true, nil
}

func (r *ItemRepo) StoreItem(item *Item) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO feed_items (feed_id, guid, fingerprint, title, description, content,
			link, author, published_at, categories, word_count, reading_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, item.FeedID, item.GUID, item.Fingerprint, item.Title, item.Description, item.Content,
		item.Link, item.Author, item.PublishedAt, item.Categories, item.WordCount,
		item.ReadingTime).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to store item: %w", err)
	}
	return id, nil
}
