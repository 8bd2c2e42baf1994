package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/draftdesk/feedpipe/app/database"
)

const (
	maxKeywordFilters     = 50
	maxKeywordFilterChars = 100
)

func NewHandler(feedRepo database.FeedRepository, itemRepo database.ItemRepository,
	feedScheduler FeedScheduler, queue AnalysisQueue) *Handler {
	return &Handler{
		feedRepo:  feedRepo,
		itemRepo:  itemRepo,
		scheduler: feedScheduler,
		queue:     queue,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"scheduler": h.scheduler.Stats(),
		"queue":     h.queue.Status(),
	}

	if total, err := h.feedRepo.GetFeedCount(); err == nil {
		stats["total_feeds"] = total
	}
	if active, err := h.feedRepo.GetActiveFeedCount(); err == nil {
		stats["active_feeds"] = active
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.GetActiveFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]gin.H, 0, len(feeds))
	for i := range feeds {
		response = append(response, feedInfo(&feeds[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": response,
		"total": len(response),
	})
}

func (h *Handler) APICreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.KeywordFilters) > maxKeywordFilters {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many keyword filters"})
		return
	}
	for _, keyword := range req.KeywordFilters {
		if len(keyword) > maxKeywordFilterChars {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Keyword filter too long"})
			return
		}
	}

	existing, err := h.feedRepo.GetFeedByURL(req.UserID, req.URL)
	if err != nil {
		slog.Error("Database error", "operation", "check_feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Feed already exists", "id": existing.ID})
		return
	}

	newFeed := &database.Feed{
		UserID:         req.UserID,
		URL:            req.URL,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Active:         true,
		Cadence:        database.ParseCadence(req.Cadence),
		KeywordFilters: req.KeywordFilters,
		ContentFilters: req.ContentFilters,
		ExtractContent: req.ExtractContent,
		HealthScore:    1.0,
	}

	id, err := h.feedRepo.CreateFeed(newFeed)
	if err != nil {
		slog.Error("Database error", "operation", "create_feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create feed"})
		return
	}

	slog.Info("Feed created", "feed_id", id, "url", req.URL, "user_id", req.UserID)

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	id := c.Param("id")

	f, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	details := feedInfo(f)
	details["keyword_filters"] = []string(f.KeywordFilters)
	details["content_filters"] = map[string]bool(f.ContentFilters)
	details["extract_content"] = f.ExtractContent
	details["created_at"] = f.CreatedAt
	details["updated_at"] = f.UpdatedAt

	if count, err := h.itemRepo.GetItemCount(f.ID); err == nil {
		details["item_count"] = count
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIUpdateFeedActive(c *gin.Context) {
	id := c.Param("id")

	var req updateFeedActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	f, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	if err := h.feedRepo.SetFeedActive(id, *req.Active); err != nil {
		slog.Error("Database error", "operation", "set_feed_active", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "active": *req.Active})
}

func (h *Handler) APIDeleteFeed(c *gin.Context) {
	id := c.Param("id")

	f, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	if err := h.feedRepo.DeleteFeed(id); err != nil {
		slog.Error("Database error", "operation", "delete_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete feed"})
		return
	}

	slog.Info("Feed deleted", "feed_id", id)

	c.Status(http.StatusNoContent)
}

// APIProcessFeed triggers an out-of-band run, bypassing cadence.
func (h *Handler) APIProcessFeed(c *gin.Context) {
	id := c.Param("id")

	result, err := h.scheduler.ProcessFeedNow(c.Request.Context(), id)
	if err != nil {
		slog.Warn("Manual feed processing rejected", "feed_id", id, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found or inactive"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feed_id":         result.FeedID,
		"success":         result.Success,
		"items_processed": result.ItemsProcessed,
		"items_filtered":  result.ItemsFiltered,
		"new_items":       result.NewItems,
		"duration":        result.Duration.String(),
		"error":           result.Error,
	})
}

func (h *Handler) APIGetJob(c *gin.Context) {
	job := h.queue.JobStatus(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) APIGetQueue(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Status())
}

func feedInfo(f *database.Feed) gin.H {
	info := gin.H{
		"id":                   f.ID,
		"user_id":              f.UserID,
		"url":                  f.URL,
		"title":                f.Title,
		"category":             f.Category,
		"active":               f.Active,
		"cadence":              string(f.Cadence),
		"health_score":         f.HealthScore,
		"consecutive_failures": f.ConsecutiveFailures,
		"last_fetch_error":     f.LastFetchError,
	}

	if f.LastFetchedAt != nil {
		info["last_fetched_at"] = f.LastFetchedAt
	}
	if f.LastFetchStatus != nil {
		info["last_fetch_status"] = string(*f.LastFetchStatus)
	}

	return info
}
