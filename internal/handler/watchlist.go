package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"levelwatch/internal/models"
	"levelwatch/internal/repository"
	"levelwatch/internal/service"
)

// WatchlistHandler is the ingest boundary with the extraction pipeline plus a
// read surface over the tracked instruments.
type WatchlistHandler struct {
	Sync   *service.WatchlistSyncService
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *WatchlistHandler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.POST("/watchlist/:category/replace", h.replace)
	v1.GET("/instruments", h.listInstruments)
}

type replaceRequest struct {
	SourceID    string                       `json:"source_id"`
	Instruments []service.IncomingInstrument `json:"instruments" binding:"required"`
}

func (h *WatchlistHandler) replace(c *gin.Context) {
	category := models.Category(strings.ToLower(strings.TrimSpace(c.Param("category"))))
	if !category.Valid() {
		Error(c, http.StatusBadRequest, "unknown category", nil)
		return
	}
	var req replaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" {
		sourceID = uuid.NewString()
	}

	result, err := h.Sync.Replace(c.Request.Context(), category, sourceID, req.Instruments)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("watchlist replace failed",
				zap.String("category", string(category)), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "replace failed", nil)
		return
	}
	Ok(c, result, nil)
}

func (h *WatchlistHandler) listInstruments(c *gin.Context) {
	params := repository.ListInstrumentsParams{}
	if raw := strings.ToLower(strings.TrimSpace(c.Query("category"))); raw != "" {
		category := models.Category(raw)
		if !category.Valid() {
			Error(c, http.StatusBadRequest, "unknown category", nil)
			return
		}
		params.Category = &category
	}
	params.ActiveOnly = c.Query("active") == "true"

	items, err := h.Repo.ListInstruments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, "list failed", nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
