package handlers

import (
	"net/http"
	"time"

	"delay-risk-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DecisionsHandler struct {
	db *gorm.DB
}

func NewDecisionsHandler(db *gorm.DB) *DecisionsHandler {
	return &DecisionsHandler{db: db}
}

// List serves the retrain decision log, newest first, cursor-paginated on
// decided_at. Not cached: the log changes at most weekly and operators
// reading it want the current truth.
func (h *DecisionsHandler) List(c *gin.Context) {
	p := ParsePagination(c)

	query := h.db.Model(&models.RetrainDecision{}).
		Order("decided_at DESC").
		Limit(p.Limit + 1)

	if p.Before != nil {
		query = query.Where("decided_at < ?", *p.Before)
	}
	if promoted := c.Query("promoted"); promoted != "" {
		query = query.Where("promoted = ?", promoted == "true")
	}

	var rows []models.RetrainDecision
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
		nextCursor = rows[len(rows)-1].DecidedAt.Format(time.RFC3339Nano)
	}

	c.JSON(http.StatusOK, CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore})
}
