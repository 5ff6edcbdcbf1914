package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"proudprofit/internal/auth"
	"proudprofit/internal/models"
	"proudprofit/internal/repository"
)

// AlertHandler owns the alert-rule CRUD surface. Ownership comes from the
// token: a caller only ever sees and edits their own rules.
type AlertHandler struct {
	Repo repository.Repository
}

func (h *AlertHandler) Register(r gin.IRoutes) {
	r.GET("/api/v1/alerts", h.list)
	r.POST("/api/v1/alerts", h.create)
	r.PATCH("/api/v1/alerts/:id", h.update)
	r.DELETE("/api/v1/alerts/:id", h.remove)
}

// @Summary List my alert rules
// @Tags alerts
// @Param ticker query string false "filter by ticker"
// @Param active query bool false "only active rules"
// @Success 200 {object} map[string]any
// @Router /api/v1/alerts [get]
func (h *AlertHandler) list(c *gin.Context) {
	userID := auth.UserID(c)
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)

	params := repository.ListAlertRulesParams{
		Limit:      limit,
		Offset:     offset,
		UserID:     &userID,
		ActiveOnly: c.Query("active") == "true",
	}
	if ticker := strings.ToUpper(strings.TrimSpace(c.Query("ticker"))); ticker != "" {
		params.Ticker = &ticker
	}

	items, err := h.Repo.ListAlertRules(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	total, err := h.Repo.CountAlertRules(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type alertRuleRequest struct {
	Ticker      string          `json:"ticker" binding:"required"`
	Condition   string          `json:"condition" binding:"required"`
	TargetValue decimal.Decimal `json:"target_value"`
	OneShot     *bool           `json:"one_shot"`
}

// @Summary Create an alert rule
// @Tags alerts
// @Accept json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/v1/alerts [post]
func (h *AlertHandler) create(c *gin.Context) {
	var req alertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	condition := strings.ToLower(strings.TrimSpace(req.Condition))
	if !models.ValidCondition(condition) {
		Error(c, http.StatusBadRequest, "unsupported condition", nil)
		return
	}
	rule := models.AlertRule{
		UserID:      auth.UserID(c),
		Ticker:      strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Condition:   condition,
		TargetValue: req.TargetValue,
		IsActive:    true,
		OneShot:     true,
	}
	if req.OneShot != nil {
		rule.OneShot = *req.OneShot
	}
	if err := h.Repo.InsertAlertRule(c.Request.Context(), &rule); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rule, nil)
}

type alertRuleUpdateRequest struct {
	Condition   *string          `json:"condition"`
	TargetValue *decimal.Decimal `json:"target_value"`
	IsActive    *bool            `json:"is_active"`
	OneShot     *bool            `json:"one_shot"`
}

// @Summary Update an alert rule
// @Tags alerts
// @Accept json
// @Param id path int true "rule id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/v1/alerts/{id} [patch]
func (h *AlertHandler) update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req alertRuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	updates := map[string]any{}
	if req.Condition != nil {
		condition := strings.ToLower(strings.TrimSpace(*req.Condition))
		if !models.ValidCondition(condition) {
			Error(c, http.StatusBadRequest, "unsupported condition", nil)
			return
		}
		updates["condition"] = condition
	}
	if req.TargetValue != nil {
		updates["target_value"] = *req.TargetValue
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.OneShot != nil {
		updates["one_shot"] = *req.OneShot
	}
	if len(updates) == 0 {
		Error(c, http.StatusBadRequest, "no fields to update", nil)
		return
	}

	if err := h.Repo.UpdateAlertRule(c.Request.Context(), id, auth.UserID(c), updates); err != nil {
		Fail(c, err)
		return
	}
	rule, err := h.Repo.GetAlertRuleByID(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rule, nil)
}

// @Summary Delete an alert rule
// @Tags alerts
// @Param id path int true "rule id"
// @Success 200 {object} map[string]any
// @Router /api/v1/alerts/{id} [delete]
func (h *AlertHandler) remove(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.Repo.DeleteAlertRule(c.Request.Context(), id, auth.UserID(c)); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"id": id}, nil)
}
