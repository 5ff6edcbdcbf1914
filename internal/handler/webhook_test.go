package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"proudprofit/internal/models"
	"proudprofit/internal/repository"
	"proudprofit/internal/signal"
)

// signalRepoStub captures inserted signals; the embedded interface covers
// the methods the webhook path never touches.
type signalRepoStub struct {
	repository.Repository
	inserted []models.Signal
}

func (s *signalRepoStub) InsertSignal(_ context.Context, item *models.Signal) error {
	item.ID = uint64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, *item)
	return nil
}

func newWebhookEngine(repo *signalRepoStub, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := &WebhookHandler{Signals: &signal.Service{Repo: repo}, Token: token}
	h.Register(engine)
	return engine
}

func postWebhook(t *testing.T, engine *gin.Engine, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_TimeFieldSetsSignalTimestamp(t *testing.T) {
	repo := &signalRepoStub{}
	engine := newWebhookEngine(repo, "")

	body := `{"ticker":"btcusdt","action":"BUY","price":65000,"time":"2026-01-02T03:04:05Z"}`
	rec := postWebhook(t, engine, "/api/v1/webhook/tradingview", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", rec.Code, rec.Body.String())
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted=%d want=1", len(repo.inserted))
	}
	got := repo.inserted[0]
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !got.Timestamp.Equal(want) {
		t.Fatalf("timestamp=%v want=%v", got.Timestamp, want)
	}
	if got.Ticker != "BTCUSDT" || got.Action != "buy" {
		t.Fatalf("ticker=%q action=%q want=BTCUSDT buy", got.Ticker, got.Action)
	}
}

func TestWebhook_TimestampAliasStillAccepted(t *testing.T) {
	repo := &signalRepoStub{}
	engine := newWebhookEngine(repo, "")

	body := `{"ticker":"ETHUSDT","action":"sell","price":3200,"timestamp":"2026-03-04T05:06:07Z"}`
	rec := postWebhook(t, engine, "/api/v1/webhook/tradingview", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", rec.Code, rec.Body.String())
	}
	want := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if !repo.inserted[0].Timestamp.Equal(want) {
		t.Fatalf("timestamp=%v want=%v", repo.inserted[0].Timestamp, want)
	}
}

func TestWebhook_InvalidTokenRejected(t *testing.T) {
	repo := &signalRepoStub{}
	engine := newWebhookEngine(repo, "s3cret")

	body := `{"ticker":"BTCUSDT","action":"buy","price":65000}`
	rec := postWebhook(t, engine, "/api/v1/webhook/tradingview?token=wrong", body)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want=401", rec.Code)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("inserted=%d want=0", len(repo.inserted))
	}
}
