package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"levelwatch/internal/models"
	"levelwatch/internal/repository"
	"levelwatch/internal/service"
)

// RunHandler exposes manual run triggering and run/alert history. The cron
// scheduler is the normal driver; the trigger endpoint exists for operators.
type RunHandler struct {
	Runs   *service.PriceRunService
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *RunHandler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.POST("/runs/:session", h.trigger)
	v1.GET("/runs", h.listRunStates)
	v1.GET("/alerts", h.listAlerts)
}

func (h *RunHandler) trigger(c *gin.Context) {
	session := models.Session(strings.ToUpper(strings.TrimSpace(c.Param("session"))))
	if !session.Valid() {
		Error(c, http.StatusBadRequest, "session must be AM or PM", nil)
		return
	}
	report, err := h.Runs.Execute(c.Request.Context(), session)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("manual run failed", zap.String("session", string(session)), zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{
		"session": report.Session,
		"checked": report.Checked,
		"updated": report.Updated,
		"errors":  report.Errors,
		"alerts":  len(report.Alerts),
	}, nil)
}

func (h *RunHandler) listRunStates(c *gin.Context) {
	items, err := h.Repo.ListRunStates(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, "list failed", nil)
		return
	}
	Ok(c, items, nil)
}

func (h *RunHandler) listAlerts(c *gin.Context) {
	params := repository.ListAlertEventsParams{}
	if raw := strings.TrimSpace(c.Query("ticker")); raw != "" {
		params.Ticker = &raw
	}
	if raw := strings.ToLower(strings.TrimSpace(c.Query("category"))); raw != "" {
		category := models.Category(raw)
		if !category.Valid() {
			Error(c, http.StatusBadRequest, "unknown category", nil)
			return
		}
		params.Category = &category
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("session"))); raw != "" {
		session := models.Session(raw)
		if !session.Valid() {
			Error(c, http.StatusBadRequest, "session must be AM or PM", nil)
			return
		}
		params.Session = &session
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "since must be RFC3339", nil)
			return
		}
		params.Since = &since
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			params.Limit = limit
		}
	}

	items, err := h.Repo.ListAlertEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, "list failed", nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
