package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"proudprofit/internal/models"
	"proudprofit/internal/repository"
)

type decisionRepoStub struct {
	repository.Repository
	decisions []models.TimingDecision
	total     int64
}

func (s *decisionRepoStub) ListTimingDecisions(_ context.Context, params repository.ListTimingDecisionsParams) ([]models.TimingDecision, error) {
	end := params.Limit
	if end > len(s.decisions) {
		end = len(s.decisions)
	}
	return s.decisions[:end], nil
}

func (s *decisionRepoStub) CountTimingDecisions(_ context.Context, _ repository.ListTimingDecisionsParams) (int64, error) {
	return s.total, nil
}

func TestDecisionList_MetaUsesTotalCount(t *testing.T) {
	decisions := make([]models.TimingDecision, 3)
	for i := range decisions {
		decisions[i] = models.TimingDecision{ID: uint64(i + 1), UserID: 7, Ticker: "BTCUSDT"}
	}
	repo := &decisionRepoStub{decisions: decisions, total: 12}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	(&NotificationHandler{Repo: repo}).RegisterAdmin(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/timing/decisions?limit=3", nil)
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
	if total, _ := resp.Meta["total"].(float64); total != 12 {
		t.Fatalf("meta.total=%v want=12", resp.Meta["total"])
	}
	if hasNext, _ := resp.Meta["has_next"].(bool); !hasNext {
		t.Fatalf("meta.has_next=%v want=true", resp.Meta["has_next"])
	}
}
