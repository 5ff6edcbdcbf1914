// Package signal persists incoming trading signals. The store is
// append-only: corrections are new signals, deactivation is soft.
package signal

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"proudprofit/internal/apperr"
	"proudprofit/internal/metrics"
	"proudprofit/internal/models"
	"proudprofit/internal/repository"
)

// Ingest is a validated, normalized candidate signal.
type Ingest struct {
	Ticker    string
	Action    string
	Price     decimal.Decimal
	Timeframe string
	Strategy  string
	Message   string
	Source    string
	Timestamp *time.Time
	Raw       []byte
}

// Sink receives every stored signal. The alert pipeline and the realtime
// broadcaster both hang off this.
type Sink interface {
	SignalStored(ctx context.Context, sig models.Signal)
}

type Service struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Sinks  []Sink
}

// Store validates and persists one signal, then hands it to the sinks.
// Required fields are ticker, action, and a positive price; the ticker is
// uppercased, the action lowercased, and a missing timestamp defaults to
// ingestion time.
func (s *Service) Store(ctx context.Context, in Ingest) (*models.Signal, error) {
	ticker := strings.ToUpper(strings.TrimSpace(in.Ticker))
	if ticker == "" {
		metrics.SignalsRejected.Inc()
		return nil, apperr.Validation("ticker", "required")
	}
	action := strings.ToLower(strings.TrimSpace(in.Action))
	switch action {
	case models.ActionBuy, models.ActionSell, models.ActionHold:
	case "":
		metrics.SignalsRejected.Inc()
		return nil, apperr.Validation("action", "required")
	default:
		metrics.SignalsRejected.Inc()
		return nil, apperr.Validation("action", "must be buy, sell or hold")
	}
	if !in.Price.IsPositive() {
		metrics.SignalsRejected.Inc()
		return nil, apperr.Validation("price", "must be a positive number")
	}

	ts := time.Now().UTC()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = "webhook"
	}

	item := &models.Signal{
		Ticker:    ticker,
		Action:    action,
		Price:     in.Price,
		Timeframe: strings.TrimSpace(in.Timeframe),
		Strategy:  strings.TrimSpace(in.Strategy),
		Message:   strings.TrimSpace(in.Message),
		Source:    source,
		Timestamp: ts,
		IsActive:  true,
	}
	if len(in.Raw) > 0 {
		item.Payload = datatypes.JSON(in.Raw)
	}

	if err := s.Repo.InsertSignal(ctx, item); err != nil {
		return nil, err
	}
	metrics.SignalsIngested.WithLabelValues(source).Inc()
	if s.Logger != nil {
		s.Logger.Info("signal stored",
			zap.Uint64("id", item.ID),
			zap.String("ticker", item.Ticker),
			zap.String("action", item.Action),
			zap.String("source", item.Source),
		)
	}

	for _, sink := range s.Sinks {
		sink.SignalStored(ctx, *item)
	}
	return item, nil
}

// Deactivate soft-deletes a signal. Idempotent: already-inactive and
// unknown ids are not errors.
func (s *Service) Deactivate(ctx context.Context, id uint64) error {
	return s.Repo.DeactivateSignal(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uint64) (*models.Signal, error) {
	item, err := s.Repo.GetSignalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.ErrNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, params repository.ListSignalsParams) ([]models.Signal, int64, error) {
	items, err := s.Repo.ListSignals(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountSignals(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
