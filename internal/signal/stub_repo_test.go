package signal

import (
	"context"
	"time"

	"proudprofit/internal/models"
	"proudprofit/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It implements the full interface but only the signal subset is exercised here.
type stubRepo struct {
	signals     []models.Signal
	deactivated []uint64
	insertErr   error
}

var _ repository.Repository = (*stubRepo)(nil)

func (s *stubRepo) InsertSignal(_ context.Context, item *models.Signal) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	item.ID = uint64(len(s.signals) + 1)
	s.signals = append(s.signals, *item)
	return nil
}

func (s *stubRepo) GetSignalByID(_ context.Context, id uint64) (*models.Signal, error) {
	for _, sig := range s.signals {
		if sig.ID == id {
			out := sig
			return &out, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListSignals(_ context.Context, _ repository.ListSignalsParams) ([]models.Signal, error) {
	return s.signals, nil
}

func (s *stubRepo) CountSignals(_ context.Context, _ repository.ListSignalsParams) (int64, error) {
	return int64(len(s.signals)), nil
}

func (s *stubRepo) DeactivateSignal(_ context.Context, id uint64) error {
	s.deactivated = append(s.deactivated, id)
	return nil
}

func (s *stubRepo) InsertAlertRule(_ context.Context, _ *models.AlertRule) error { return nil }
func (s *stubRepo) GetAlertRuleByID(_ context.Context, _ uint64) (*models.AlertRule, error) {
	return nil, nil
}
func (s *stubRepo) ListAlertRules(_ context.Context, _ repository.ListAlertRulesParams) ([]models.AlertRule, error) {
	return nil, nil
}
func (s *stubRepo) CountAlertRules(_ context.Context, _ repository.ListAlertRulesParams) (int64, error) {
	return 0, nil
}
func (s *stubRepo) ListActiveRulesByTicker(_ context.Context, _ string) ([]models.AlertRule, error) {
	return nil, nil
}
func (s *stubRepo) UpdateAlertRule(_ context.Context, _ uint64, _ uint64, _ map[string]any) error {
	return nil
}
func (s *stubRepo) DeleteAlertRule(_ context.Context, _ uint64, _ uint64) error { return nil }
func (s *stubRepo) ClaimOneShotRule(_ context.Context, _ uint64, _ time.Time) (bool, error) {
	return false, nil
}
func (s *stubRepo) TouchRuleTriggered(_ context.Context, _ uint64, _ time.Time) error { return nil }

func (s *stubRepo) UpsertTimingPreference(_ context.Context, _ *models.TimingPreference) error {
	return nil
}
func (s *stubRepo) GetTimingPreference(_ context.Context, _ uint64, _ string) (*models.TimingPreference, error) {
	return nil, nil
}
func (s *stubRepo) ListTimingPreferences(_ context.Context, _ uint64) ([]models.TimingPreference, error) {
	return nil, nil
}
func (s *stubRepo) InsertTimingDecision(_ context.Context, _ *models.TimingDecision) error {
	return nil
}
func (s *stubRepo) ListTimingDecisions(_ context.Context, _ repository.ListTimingDecisionsParams) ([]models.TimingDecision, error) {
	return nil, nil
}
func (s *stubRepo) CountTimingDecisions(_ context.Context, _ repository.ListTimingDecisionsParams) (int64, error) {
	return 0, nil
}
func (s *stubRepo) DeleteTimingDecisionsBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) EnqueueIntent(_ context.Context, _ *models.NotificationIntent) error { return nil }
func (s *stubRepo) GetIntentByID(_ context.Context, _ uint64) (*models.NotificationIntent, error) {
	return nil, nil
}
func (s *stubRepo) ListIntents(_ context.Context, _ repository.ListIntentsParams) ([]models.NotificationIntent, error) {
	return nil, nil
}
func (s *stubRepo) CountIntents(_ context.Context, _ repository.ListIntentsParams) (int64, error) {
	return 0, nil
}
func (s *stubRepo) ListDueIntents(_ context.Context, _ time.Time, _ int) ([]models.NotificationIntent, error) {
	return nil, nil
}
func (s *stubRepo) ClaimIntent(_ context.Context, _ uint64, _ time.Time) (bool, error) {
	return false, nil
}
func (s *stubRepo) MarkIntentSent(_ context.Context, _ uint64, _ time.Time) error { return nil }
func (s *stubRepo) DeferIntent(_ context.Context, _ uint64, _ int, _ time.Time, _ string) error {
	return nil
}
func (s *stubRepo) FailIntent(_ context.Context, _ uint64, _ int, _ string) error { return nil }
func (s *stubRepo) RetryFailedIntent(_ context.Context, _ uint64, _ time.Time) (bool, error) {
	return false, nil
}
func (s *stubRepo) ReleaseStaleClaims(_ context.Context, _ time.Time) (int64, error) { return 0, nil }
func (s *stubRepo) CountIntentsByStatus(_ context.Context) (map[string]int64, error) {
	return nil, nil
}
func (s *stubRepo) CountRecentUserNotifications(_ context.Context, _ uint64, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetUserProfile(_ context.Context, _ uint64) (*models.UserProfile, error) {
	return nil, nil
}
func (s *stubRepo) UpsertUserProfile(_ context.Context, _ *models.UserProfile) error { return nil }
