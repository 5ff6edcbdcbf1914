package timing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"proudprofit/internal/metrics"
	"proudprofit/internal/models"
)

// Store is the persistence slice the gate service needs.
type Store interface {
	GetTimingPreference(ctx context.Context, userID uint64, ticker string) (*models.TimingPreference, error)
	InsertTimingDecision(ctx context.Context, item *models.TimingDecision) error
	CountRecentUserNotifications(ctx context.Context, userID uint64, since time.Time) (int64, error)
}

// Service resolves a user's effective preference, applies Decide, and
// appends every outcome to the decision audit log.
type Service struct {
	Repo   Store
	Logger *zap.Logger
}

// Request is one gate evaluation for a concrete user and signal.
type Request struct {
	UserID     uint64
	Ticker     string
	SignalType string
	Urgency    string
	Market     Conditions
	Minor      bool
}

// Evaluate loads the per-ticker preference (global fallback, then
// defaults), counts the trailing-hour notifications, and decides. The
// decision row is written regardless of outcome; a failed audit write is
// logged but does not change the decision.
func (s *Service) Evaluate(ctx context.Context, req Request, now time.Time) (Decision, error) {
	prefs, err := s.resolvePrefs(ctx, req.UserID, req.Ticker)
	if err != nil {
		return Decision{}, err
	}

	recent, err := s.Repo.CountRecentUserNotifications(ctx, req.UserID, now.Add(-time.Hour))
	if err != nil {
		return Decision{}, err
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = UrgencyNormal
	}

	decision := Decide(Input{
		Prefs:       prefs,
		RecentCount: int(recent),
		Now:         now,
		Urgency:     urgency,
		Market:      req.Market,
		MinorSignal: req.Minor,
	})
	metrics.GateDecisions.WithLabelValues(decisionOutcome(decision)).Inc()

	if err := s.Repo.InsertTimingDecision(ctx, &models.TimingDecision{
		UserID:       req.UserID,
		Ticker:       req.Ticker,
		SignalType:   req.SignalType,
		ShouldSend:   decision.ShouldSend,
		Reason:       decision.Reason,
		DelaySeconds: decision.DelaySeconds,
		Urgency:      urgency,
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("timing decision audit write failed",
			zap.Uint64("user_id", req.UserID),
			zap.String("ticker", req.Ticker),
			zap.Error(err),
		)
	}

	return decision, nil
}

// resolvePrefs prefers the per-ticker row, then the user's global row
// (empty ticker), then built-in defaults.
func (s *Service) resolvePrefs(ctx context.Context, userID uint64, ticker string) (models.TimingPreference, error) {
	if ticker != "" {
		prefs, err := s.Repo.GetTimingPreference(ctx, userID, ticker)
		if err != nil {
			return models.TimingPreference{}, err
		}
		if prefs != nil {
			return *prefs, nil
		}
	}
	prefs, err := s.Repo.GetTimingPreference(ctx, userID, "")
	if err != nil {
		return models.TimingPreference{}, err
	}
	if prefs != nil {
		return *prefs, nil
	}
	return DefaultPreference(userID), nil
}

// DefaultPreference is used for users who never configured smart timing.
// Gating stays off so new users are never surprised by held notifications.
func DefaultPreference(userID uint64) models.TimingPreference {
	return models.TimingPreference{
		UserID:                 userID,
		Enabled:                false,
		QuietHoursStart:        22,
		QuietHoursEnd:          8,
		Timezone:               "UTC",
		MaxHourlyNotifications: 10,
		VolatilityThreshold:    0.1,
		SignalFrequency:        models.FrequencyMedium,
	}
}

func decisionOutcome(d Decision) string {
	switch {
	case d.ShouldSend:
		return "send"
	case d.PermanentDrop:
		return "drop"
	default:
		return "defer"
	}
}
