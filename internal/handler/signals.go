package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"proudprofit/internal/repository"
	"proudprofit/internal/signal"
)

type SignalHandler struct {
	Signals *signal.Service
}

func (h *SignalHandler) Register(r gin.IRoutes) {
	r.GET("/api/v1/signals", h.list)
	r.GET("/api/v1/signals/:id", h.get)
}

// RegisterAdmin mounts manual signal entry and soft-deactivation.
func (h *SignalHandler) RegisterAdmin(r gin.IRoutes) {
	r.POST("/api/v1/signals", h.create)
	r.DELETE("/api/v1/signals/:id", h.deactivate)
}

// @Summary List signals
// @Tags signals
// @Param ticker query string false "filter by ticker"
// @Param source query string false "filter by source"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /api/v1/signals [get]
func (h *SignalHandler) list(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Query("ticker")))
	source := strings.TrimSpace(c.Query("source"))
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	var sinceTime *time.Time
	if since := strings.TrimSpace(c.Query("since")); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			Error(c, http.StatusBadRequest, "since must be RFC3339", nil)
			return
		}
		parsed = parsed.UTC()
		sinceTime = &parsed
	}

	params := repository.ListSignalsParams{
		Limit:      limit,
		Offset:     offset,
		Since:      sinceTime,
		ActiveOnly: c.Query("active") == "true",
		OrderBy:    "created_at",
	}
	if ticker != "" {
		params.Ticker = &ticker
	}
	if source != "" {
		params.Source = &source
	}

	items, total, err := h.Signals.List(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get one signal
// @Tags signals
// @Param id path int true "signal id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/v1/signals/{id} [get]
func (h *SignalHandler) get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	item, err := h.Signals.Get(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

type createSignalRequest struct {
	Ticker    string          `json:"ticker" binding:"required"`
	Action    string          `json:"action" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Timeframe string          `json:"timeframe"`
	Strategy  string          `json:"strategy"`
	Message   string          `json:"message"`
	Timestamp *time.Time      `json:"timestamp"`
}

// @Summary Create a signal manually
// @Tags signals
// @Accept json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/v1/signals [post]
func (h *SignalHandler) create(c *gin.Context) {
	var req createSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	stored, err := h.Signals.Store(c.Request.Context(), signal.Ingest{
		Ticker:    req.Ticker,
		Action:    req.Action,
		Price:     req.Price,
		Timeframe: req.Timeframe,
		Strategy:  req.Strategy,
		Message:   req.Message,
		Source:    "manual",
		Timestamp: req.Timestamp,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, stored, nil)
}

// @Summary Deactivate a signal
// @Tags signals
// @Param id path int true "signal id"
// @Success 200 {object} map[string]any
// @Router /api/v1/signals/{id} [delete]
func (h *SignalHandler) deactivate(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.Signals.Deactivate(c.Request.Context(), id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"id": id, "is_active": false}, nil)
}
