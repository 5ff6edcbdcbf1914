package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"proudprofit/internal/apperr"
	"proudprofit/internal/signal"
)

// WebhookHandler ingests TradingView-style alert payloads. The endpoint
// is unauthenticated apart from the shared token so alert platforms can
// call it directly.
type WebhookHandler struct {
	Signals *signal.Service
	// Token guards the endpoint; empty disables the check.
	Token string
}

func (h *WebhookHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/webhook/tradingview", h.ingest)
}

type webhookPayload struct {
	Ticker    string          `json:"ticker"`
	Action    string          `json:"action"`
	Price     decimal.Decimal `json:"price"`
	Timeframe string          `json:"timeframe"`
	Strategy  string          `json:"strategy"`
	Message   string          `json:"message"`
	// TradingView sends "time"; "timestamp" is accepted as an alias.
	Time      *time.Time `json:"time"`
	Timestamp *time.Time `json:"timestamp"`
}

func (p *webhookPayload) signalTime() *time.Time {
	if p.Time != nil {
		return p.Time
	}
	return p.Timestamp
}

// @Summary Ingest a trading signal webhook
// @Tags webhook
// @Accept json
// @Param token query string false "shared webhook token"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Router /api/v1/webhook/tradingview [post]
func (h *WebhookHandler) ingest(c *gin.Context) {
	if h.Token != "" {
		token := c.Query("token")
		if token == "" {
			token = c.GetHeader("X-Webhook-Token")
		}
		if token != h.Token {
			Error(c, http.StatusUnauthorized, "invalid webhook token", nil)
			return
		}
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		Error(c, http.StatusBadRequest, "unreadable body", nil)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		Error(c, http.StatusBadRequest, "malformed json", nil)
		return
	}

	stored, err := h.Signals.Store(c.Request.Context(), signal.Ingest{
		Ticker:    payload.Ticker,
		Action:    payload.Action,
		Price:     payload.Price,
		Timeframe: payload.Timeframe,
		Strategy:  payload.Strategy,
		Message:   payload.Message,
		Source:    "webhook",
		Timestamp: payload.signalTime(),
		Raw:       raw,
	})
	if err != nil {
		if apperr.IsValidation(err) {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"signal_id": stored.ID}, nil)
}
