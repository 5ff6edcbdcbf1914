package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"proudprofit/internal/auth"
	"proudprofit/internal/models"
	"proudprofit/internal/repository"
	"proudprofit/internal/timing"
)

type TimingHandler struct {
	Repo repository.Repository
	Gate *timing.Service
}

func (h *TimingHandler) Register(r gin.IRoutes) {
	r.GET("/api/v1/timing/preferences", h.listPreferences)
	r.PUT("/api/v1/timing/preferences", h.putPreference)
	r.POST("/api/v1/timing/decide", h.decide)
}

// @Summary List my smart-timing preferences
// @Tags timing
// @Success 200 {object} map[string]any
// @Router /api/v1/timing/preferences [get]
func (h *TimingHandler) listPreferences(c *gin.Context) {
	items, err := h.Repo.ListTimingPreferences(c.Request.Context(), auth.UserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	if len(items) == 0 {
		items = []models.TimingPreference{timing.DefaultPreference(auth.UserID(c))}
	}
	Ok(c, items, nil)
}

type timingPreferenceRequest struct {
	TickerSymbol           string   `json:"ticker_symbol"`
	Enabled                *bool    `json:"enabled"`
	QuietHoursStart        *int     `json:"quiet_hours_start"`
	QuietHoursEnd          *int     `json:"quiet_hours_end"`
	Timezone               *string  `json:"timezone"`
	MaxHourlyNotifications *int     `json:"max_hourly_notifications"`
	VolatilityThreshold    *float64 `json:"volatility_threshold"`
	HighVolatilityPause    *bool    `json:"high_volatility_pause"`
	SignalFrequency        *string  `json:"signal_frequency"`
}

// @Summary Create or replace a smart-timing preference
// @Tags timing
// @Accept json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/v1/timing/preferences [put]
func (h *TimingHandler) putPreference(c *gin.Context) {
	var req timingPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	userID := auth.UserID(c)
	pref := timing.DefaultPreference(userID)
	pref.TickerSymbol = strings.ToUpper(strings.TrimSpace(req.TickerSymbol))
	pref.Enabled = true

	if req.Enabled != nil {
		pref.Enabled = *req.Enabled
	}
	if req.QuietHoursStart != nil {
		if *req.QuietHoursStart < 0 || *req.QuietHoursStart > 23 {
			Error(c, http.StatusBadRequest, "quiet_hours_start must be 0-23", nil)
			return
		}
		pref.QuietHoursStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		if *req.QuietHoursEnd < 0 || *req.QuietHoursEnd > 23 {
			Error(c, http.StatusBadRequest, "quiet_hours_end must be 0-23", nil)
			return
		}
		pref.QuietHoursEnd = *req.QuietHoursEnd
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			Error(c, http.StatusBadRequest, "unknown timezone", nil)
			return
		}
		pref.Timezone = *req.Timezone
	}
	if req.MaxHourlyNotifications != nil {
		if *req.MaxHourlyNotifications < 0 {
			Error(c, http.StatusBadRequest, "max_hourly_notifications must be >= 0", nil)
			return
		}
		pref.MaxHourlyNotifications = *req.MaxHourlyNotifications
	}
	if req.VolatilityThreshold != nil {
		pref.VolatilityThreshold = *req.VolatilityThreshold
	}
	if req.HighVolatilityPause != nil {
		pref.HighVolatilityPause = *req.HighVolatilityPause
	}
	if req.SignalFrequency != nil {
		switch *req.SignalFrequency {
		case models.FrequencyLow, models.FrequencyMedium, models.FrequencyHigh:
			pref.SignalFrequency = *req.SignalFrequency
		default:
			Error(c, http.StatusBadRequest, "signal_frequency must be low, medium, or high", nil)
			return
		}
	}

	if err := h.Repo.UpsertTimingPreference(c.Request.Context(), &pref); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, pref, nil)
}

type decideRequest struct {
	Ticker     string  `json:"ticker" binding:"required"`
	SignalType string  `json:"signal_type"`
	Urgency    string  `json:"urgency"`
	Volatility float64 `json:"volatility"`
	Minor      bool    `json:"minor"`
}

// @Summary Evaluate the smart-timing gate without enqueuing anything
// @Tags timing
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/timing/decide [post]
func (h *TimingHandler) decide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	now := time.Now().UTC()
	decision, err := h.Gate.Evaluate(c.Request.Context(), timing.Request{
		UserID:     auth.UserID(c),
		Ticker:     strings.ToUpper(strings.TrimSpace(req.Ticker)),
		SignalType: req.SignalType,
		Urgency:    req.Urgency,
		Market:     timing.Conditions{Volatility: req.Volatility},
		Minor:      req.Minor,
	}, now)
	if err != nil {
		Fail(c, err)
		return
	}

	out := gin.H{
		"shouldSend":   decision.ShouldSend,
		"reason":       decision.Reason,
		"delaySeconds": decision.DelaySeconds,
	}
	if !decision.ShouldSend && !decision.PermanentDrop {
		out["suggestedSendTime"] = now.Add(time.Duration(decision.DelaySeconds) * time.Second).Format(time.RFC3339)
	}
	Ok(c, out, nil)
}
