package repository

import (
	"context"
	"time"

	"proudprofit/internal/models"
)

// Repository is the persistence surface for the dispatch pipeline. All
// state transitions on notification intents are conditional on the row's
// current status; callers learn about lost races via a false "claimed"
// return, never via unconditional overwrites.
type Repository interface {
	// Signals (append-only, soft-deactivation).
	InsertSignal(ctx context.Context, item *models.Signal) error
	GetSignalByID(ctx context.Context, id uint64) (*models.Signal, error)
	ListSignals(ctx context.Context, params ListSignalsParams) ([]models.Signal, error)
	CountSignals(ctx context.Context, params ListSignalsParams) (int64, error)
	DeactivateSignal(ctx context.Context, id uint64) error

	// Alert rules.
	InsertAlertRule(ctx context.Context, item *models.AlertRule) error
	GetAlertRuleByID(ctx context.Context, id uint64) (*models.AlertRule, error)
	ListAlertRules(ctx context.Context, params ListAlertRulesParams) ([]models.AlertRule, error)
	CountAlertRules(ctx context.Context, params ListAlertRulesParams) (int64, error)
	ListActiveRulesByTicker(ctx context.Context, ticker string) ([]models.AlertRule, error)
	UpdateAlertRule(ctx context.Context, id uint64, userID uint64, updates map[string]any) error
	DeleteAlertRule(ctx context.Context, id uint64, userID uint64) error
	// ClaimOneShotRule deactivates a one-shot rule if and only if it is
	// still active. Returns false when a concurrent trigger won the race.
	ClaimOneShotRule(ctx context.Context, id uint64, now time.Time) (bool, error)
	TouchRuleTriggered(ctx context.Context, id uint64, now time.Time) error

	// Smart-timing preferences and decision audit log.
	UpsertTimingPreference(ctx context.Context, item *models.TimingPreference) error
	GetTimingPreference(ctx context.Context, userID uint64, ticker string) (*models.TimingPreference, error)
	ListTimingPreferences(ctx context.Context, userID uint64) ([]models.TimingPreference, error)
	InsertTimingDecision(ctx context.Context, item *models.TimingDecision) error
	ListTimingDecisions(ctx context.Context, params ListTimingDecisionsParams) ([]models.TimingDecision, error)
	CountTimingDecisions(ctx context.Context, params ListTimingDecisionsParams) (int64, error)
	DeleteTimingDecisionsBefore(ctx context.Context, before time.Time) (int64, error)

	// Notification queue.
	EnqueueIntent(ctx context.Context, item *models.NotificationIntent) error
	GetIntentByID(ctx context.Context, id uint64) (*models.NotificationIntent, error)
	ListIntents(ctx context.Context, params ListIntentsParams) ([]models.NotificationIntent, error)
	CountIntents(ctx context.Context, params ListIntentsParams) (int64, error)
	ListDueIntents(ctx context.Context, now time.Time, limit int) ([]models.NotificationIntent, error)
	ClaimIntent(ctx context.Context, id uint64, now time.Time) (bool, error)
	MarkIntentSent(ctx context.Context, id uint64, now time.Time) error
	DeferIntent(ctx context.Context, id uint64, attempts int, visibleAfter time.Time, lastError string) error
	FailIntent(ctx context.Context, id uint64, attempts int, lastError string) error
	RetryFailedIntent(ctx context.Context, id uint64, now time.Time) (bool, error)
	ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error)
	CountIntentsByStatus(ctx context.Context) (map[string]int64, error)
	// CountRecentUserNotifications backs the hourly frequency cap: intents
	// enqueued for the user inside the window that were not dropped.
	CountRecentUserNotifications(ctx context.Context, userID uint64, since time.Time) (int64, error)

	// User delivery profiles.
	GetUserProfile(ctx context.Context, userID uint64) (*models.UserProfile, error)
	UpsertUserProfile(ctx context.Context, item *models.UserProfile) error
}

type ListSignalsParams struct {
	Limit      int
	Offset     int
	Ticker     *string
	Source     *string
	Since      *time.Time
	ActiveOnly bool
	OrderBy    string
	Asc        *bool
}

type ListAlertRulesParams struct {
	Limit      int
	Offset     int
	UserID     *uint64
	Ticker     *string
	ActiveOnly bool
}

type ListTimingDecisionsParams struct {
	Limit  int
	Offset int
	UserID *uint64
	Ticker *string
	Since  *time.Time
}

type ListIntentsParams struct {
	Limit   int
	Offset  int
	UserID  *uint64
	Status  *string
	Channel *string
	Since   *time.Time
}
