package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"proudprofit/internal/auth"
	"proudprofit/internal/dispatch"
	"proudprofit/internal/queue"
	"proudprofit/internal/repository"
)

type NotificationHandler struct {
	Repo       repository.Repository
	Queue      *queue.Queue
	Dispatcher *dispatch.Dispatcher
}

func (h *NotificationHandler) Register(r gin.IRoutes) {
	r.GET("/api/v1/notifications", h.list)
	r.POST("/api/v1/notifications/:id/retry", h.retry)
}

// RegisterAdmin mounts the operational endpoints; the router wraps them
// in the admin-role middleware.
func (h *NotificationHandler) RegisterAdmin(r gin.IRoutes) {
	r.POST("/api/v1/admin/queue/process", h.forceProcess)
	r.GET("/api/v1/admin/queue/stats", h.stats)
	r.GET("/api/v1/admin/timing/decisions", h.decisions)
}

// @Summary List my notification history
// @Tags notifications
// @Param status query string false "filter by status"
// @Param channel query string false "filter by channel"
// @Success 200 {object} map[string]any
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) list(c *gin.Context) {
	userID := auth.UserID(c)
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	params := repository.ListIntentsParams{
		Limit:  limit,
		Offset: offset,
		UserID: &userID,
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		params.Status = &status
	}
	if channel := strings.TrimSpace(c.Query("channel")); channel != "" {
		params.Channel = &channel
	}

	items, err := h.Repo.ListIntents(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	total, err := h.Repo.CountIntents(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Retry a failed notification
// @Tags notifications
// @Param id path int true "notification id"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/v1/notifications/{id}/retry [post]
func (h *NotificationHandler) retry(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	intent, err := h.Repo.GetIntentByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if intent == nil || intent.UserID != auth.UserID(c) {
		Error(c, http.StatusNotFound, "not found", nil)
		return
	}
	updated, err := h.Dispatcher.Retry(c.Request.Context(), id, time.Now().UTC())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, updated, nil)
}

// @Summary Force one queue processing pass
// @Tags admin
// @Success 200 {object} map[string]any
// @Router /api/v1/admin/queue/process [post]
func (h *NotificationHandler) forceProcess(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	result, err := h.Dispatcher.ProcessDue(c.Request.Context(), time.Now().UTC(), limit)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, result, nil)
}

// @Summary Queue depth by status
// @Tags admin
// @Success 200 {object} map[string]any
// @Router /api/v1/admin/queue/stats [get]
func (h *NotificationHandler) stats(c *gin.Context) {
	counts, err := h.Queue.Stats(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, counts, nil)
}

// @Summary Browse the smart-timing decision log
// @Tags admin
// @Param user_id query int false "filter by user"
// @Param ticker query string false "filter by ticker"
// @Success 200 {object} map[string]any
// @Router /api/v1/admin/timing/decisions [get]
func (h *NotificationHandler) decisions(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)

	params := repository.ListTimingDecisionsParams{Limit: limit, Offset: offset}
	if uid := intQuery(c, "user_id", 0); uid > 0 {
		u := uint64(uid)
		params.UserID = &u
	}
	if ticker := strings.ToUpper(strings.TrimSpace(c.Query("ticker"))); ticker != "" {
		params.Ticker = &ticker
	}
	if since := strings.TrimSpace(c.Query("since")); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			Error(c, http.StatusBadRequest, "since must be RFC3339", nil)
			return
		}
		parsed = parsed.UTC()
		params.Since = &parsed
	}

	items, err := h.Repo.ListTimingDecisions(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	total, err := h.Repo.CountTimingDecisions(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
