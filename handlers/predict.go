package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"delay-risk-api/features"
	"delay-risk-api/services"

	"github.com/gin-gonic/gin"
)

type PredictHandler struct {
	computer *features.Computer
	model    *services.ModelService
	cache    *services.CacheService
}

func NewPredictHandler(computer *features.Computer, model *services.ModelService, cache *services.CacheService) *PredictHandler {
	return &PredictHandler{computer: computer, model: model, cache: cache}
}

type PredictRequest struct {
	LineID string `json:"line_id" binding:"required"`
	StopID string `json:"stop_id" binding:"required"`
}

type PredictResponse struct {
	LineID          string             `json:"line_id"`
	StopID          string             `json:"stop_id"`
	AsOf            time.Time          `json:"as_of"`
	RiskLabel       int                `json:"risk_label"`
	RiskProbability float64            `json:"risk_probability"`
	Features        map[string]float64 `json:"features"`
}

func (h *PredictHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "line_id and stop_id are required"})
		return
	}

	model, ok := h.model.Current()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no production model loaded"})
		return
	}

	cacheKey := fmt.Sprintf("predict:%s:%s", req.LineID, req.StopID)
	var cached PredictResponse
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Features != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	vector, asOf, err := h.computer.Compute(c.Request.Context(), req.LineID, req.StopID)
	if errors.Is(err, features.ErrNoData) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("no data for line_id=%s, stop_id=%s", req.LineID, req.StopID),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feature computation failed"})
		return
	}

	probability := model.PredictProba(features.Ordered(vector))
	label := 0
	if probability > 0.5 {
		label = 1
	}

	resp := PredictResponse{
		LineID:          req.LineID,
		StopID:          req.StopID,
		AsOf:            asOf,
		RiskLabel:       label,
		RiskProbability: probability,
		Features:        vector,
	}
	go h.cache.Set(context.Background(), cacheKey, resp, 5*time.Second)

	c.JSON(http.StatusOK, resp)
}
