package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"delay-risk-api/models"
	"delay-risk-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type FactsHandler struct {
	db    *gorm.DB
	cache *services.CacheService
}

func NewFactsHandler(db *gorm.DB, cache *services.CacheService) *FactsHandler {
	return &FactsHandler{db: db, cache: cache}
}

// List serves aggregated station facts, newest first, cursor-paginated on
// bucket_start.
func (h *FactsHandler) List(c *gin.Context) {
	p := ParsePagination(c)

	bucketSizeStr := c.DefaultQuery("bucket_size", "60")
	bucketSize, err := strconv.Atoi(bucketSizeStr)
	if err != nil || (bucketSize != models.BucketSize60 && bucketSize != models.BucketSize300) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket_size parameter, must be 60 or 300"})
		return
	}

	lineID := c.Query("line_id")
	stopID := c.Query("stop_id")
	beforeStr := ""
	if p.Before != nil {
		beforeStr = p.Before.Format(time.RFC3339Nano)
	}
	cacheKey := fmt.Sprintf("facts:%d:%s:%s:%d:%s", bucketSize, lineID, stopID, p.Limit, beforeStr)

	var cached CursorResponse
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := h.db.Model(&models.StationMinuteFact{}).
		Where("bucket_size_seconds = ?", bucketSize).
		Order("bucket_start DESC").
		Limit(p.Limit + 1)

	if p.Before != nil {
		query = query.Where("bucket_start < ?", *p.Before)
	}
	if lineID != "" {
		query = query.Where("line_id = ?", lineID)
	}
	if stopID != "" {
		query = query.Where("stop_id = ?", stopID)
	}

	var rows []models.StationMinuteFact
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	hasMore := len(rows) > p.Limit
	if hasMore {
		rows = rows[:p.Limit]
	}

	var nextCursor string
	if hasMore && len(rows) > 0 {
		nextCursor = rows[len(rows)-1].BucketStart.Format(time.RFC3339Nano)
	}

	resp := CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore}
	go h.cache.Set(context.Background(), cacheKey, resp, 5*time.Second)

	c.JSON(http.StatusOK, resp)
}
