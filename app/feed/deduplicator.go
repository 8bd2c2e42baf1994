package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draftdesk/feedpipe/app/cache"
	"github.com/draftdesk/feedpipe/app/database"
)

// Deduplicator decides whether a parsed item has already been stored.
// The GUID check is global across feeds; the fingerprint fallback is
// scoped to the owning feed. An optional cache fronts the database
// lookups and degrades silently on error.
type Deduplicator struct {
	items database.ItemRepository
	cache *cache.DedupCache
}

func NewDeduplicator(items database.ItemRepository, dedupCache *cache.DedupCache) *Deduplicator {
	return &Deduplicator{
		items: items,
		cache: dedupCache,
	}
}

func (d *Deduplicator) IsDuplicate(ctx context.Context, feedID string, item Item) (bool, error) {
	if item.GUID != "" {
		if d.cachedGUID(ctx, item.GUID) {
			return true, nil
		}
		exists, err := d.items.ExistsByGUID(item.GUID)
		if err != nil {
			return false, fmt.Errorf("failed to check guid: %w", err)
		}
		if exists {
			return true, nil
		}
	}

	if d.cachedFingerprint(ctx, feedID, item.Fingerprint) {
		return true, nil
	}

	exists, err := d.items.ExistsByFingerprint(feedID, item.Fingerprint)
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return exists, nil
}

// Remember primes the cache after an item is stored. Best-effort.
func (d *Deduplicator) Remember(ctx context.Context, feedID string, item Item) {
	if d.cache == nil {
		return
	}

	if err := d.cache.MarkGUID(ctx, item.GUID); err != nil {
		slog.Debug("Failed to cache guid", "error", err)
	}
	if err := d.cache.MarkFingerprint(ctx, feedID, item.Fingerprint); err != nil {
		slog.Debug("Failed to cache fingerprint", "error", err)
	}
}

func (d *Deduplicator) cachedGUID(ctx context.Context, guid string) bool {
	if d.cache == nil {
		return false
	}
	seen, err := d.cache.SeenGUID(ctx, guid)
	if err != nil {
		slog.Debug("Dedup cache lookup failed", "error", err)
		return false
	}
	return seen
}

func (d *Deduplicator) cachedFingerprint(ctx context.Context, feedID, fingerprint string) bool {
	if d.cache == nil {
		return false
	}
	seen, err := d.cache.SeenFingerprint(ctx, feedID, fingerprint)
	if err != nil {
		slog.Debug("Dedup cache lookup failed", "error", err)
		return false
	}
	return seen
}
