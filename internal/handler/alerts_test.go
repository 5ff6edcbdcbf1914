package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"proudprofit/internal/models"
	"proudprofit/internal/repository"
)

type alertRepoStub struct {
	repository.Repository
	rules []models.AlertRule
	total int64
}

func (s *alertRepoStub) ListAlertRules(_ context.Context, params repository.ListAlertRulesParams) ([]models.AlertRule, error) {
	end := params.Limit
	if end > len(s.rules) {
		end = len(s.rules)
	}
	return s.rules[:end], nil
}

func (s *alertRepoStub) CountAlertRules(_ context.Context, _ repository.ListAlertRulesParams) (int64, error) {
	return s.total, nil
}

func TestAlertList_MetaUsesTotalCount(t *testing.T) {
	rules := make([]models.AlertRule, 5)
	for i := range rules {
		rules[i] = models.AlertRule{
			ID:          uint64(i + 1),
			UserID:      7,
			Ticker:      "BTCUSDT",
			Condition:   models.ConditionPriceAbove,
			TargetValue: decimal.NewFromInt(60000),
			IsActive:    true,
		}
	}
	repo := &alertRepoStub{rules: rules, total: 5}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	(&AlertHandler{Repo: repo}).Register(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?limit=2", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Meta map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if total, _ := resp.Meta["total"].(float64); total != 5 {
		t.Fatalf("meta.total=%v want=5", resp.Meta["total"])
	}
	if hasNext, _ := resp.Meta["has_next"].(bool); !hasNext {
		t.Fatalf("meta.has_next=%v want=true", resp.Meta["has_next"])
	}
}
