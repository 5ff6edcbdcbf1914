package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"proudprofit/internal/models"
	"proudprofit/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Signals ----------------------------------------------------------------

func (s *Store) InsertSignal(ctx context.Context, item *models.Signal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSignalByID(ctx context.Context, id uint64) (*models.Signal, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Signal
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) listSignalsQuery(ctx context.Context, params repository.ListSignalsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Signal{})
	if params.Ticker != nil && strings.TrimSpace(*params.Ticker) != "" {
		query = query.Where("ticker = ?", strings.ToUpper(strings.TrimSpace(*params.Ticker)))
	}
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("timestamp >= ?", *params.Since)
	}
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	return query
}

func (s *Store) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.listSignalsQuery(ctx, params), params.OrderBy, params.Asc, "timestamp")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Signal
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSignals(ctx context.Context, params repository.ListSignalsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.listSignalsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeactivateSignal is idempotent: deactivating an already-inactive or
// missing signal is not an error.
func (s *Store) DeactivateSignal(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// --- Alert rules ------------------------------------------------------------

func (s *Store) InsertAlertRule(ctx context.Context, item *models.AlertRule) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAlertRuleByID(ctx context.Context, id uint64) (*models.AlertRule, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.AlertRule
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) listAlertRulesQuery(ctx context.Context, params repository.ListAlertRulesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.AlertRule{})
	if params.UserID != nil && *params.UserID > 0 {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Ticker != nil && strings.TrimSpace(*params.Ticker) != "" {
		query = query.Where("ticker = ?", strings.ToUpper(strings.TrimSpace(*params.Ticker)))
	}
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	return query
}

func (s *Store) ListAlertRules(ctx context.Context, params repository.ListAlertRulesParams) ([]models.AlertRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.listAlertRulesQuery(ctx, params)
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.AlertRule
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAlertRules(ctx context.Context, params repository.ListAlertRulesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.listAlertRulesQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListActiveRulesByTicker(ctx context.Context, ticker string) ([]models.AlertRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, nil
	}
	var items []models.AlertRule
	err := s.db.WithContext(ctx).
		Model(&models.AlertRule{}).
		Where("ticker = ?", ticker).
		Where("is_active = ?", true).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateAlertRule(ctx context.Context, id uint64, userID uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.AlertRule{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) DeleteAlertRule(ctx context.Context, id uint64, userID uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.AlertRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClaimOneShotRule flips is_active under a status guard so that two
// concurrent price updates cannot both trigger the same rule.
func (s *Store) ClaimOneShotRule(ctx context.Context, id uint64, now time.Time) (bool, error) {
	if s == nil || s.db == nil || id == 0 {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.AlertRule{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":         false,
			"last_triggered_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) TouchRuleTriggered(ctx context.Context, id uint64, now time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.AlertRule{}).
		Where("id = ?", id).
		Update("last_triggered_at", now).Error
}

// --- Smart timing -----------------------------------------------------------

func (s *Store) UpsertTimingPreference(ctx context.Context, item *models.TimingPreference) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "ticker_symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled",
			"quiet_hours_start",
			"quiet_hours_end",
			"timezone",
			"max_hourly_notifications",
			"volatility_threshold",
			"high_volatility_pause",
			"signal_frequency",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetTimingPreference(ctx context.Context, userID uint64, ticker string) (*models.TimingPreference, error) {
	if s == nil || s.db == nil || userID == 0 {
		return nil, nil
	}
	var item models.TimingPreference
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND ticker_symbol = ?", userID, strings.ToUpper(strings.TrimSpace(ticker))).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTimingPreferences(ctx context.Context, userID uint64) ([]models.TimingPreference, error) {
	if s == nil || s.db == nil || userID == 0 {
		return nil, nil
	}
	var items []models.TimingPreference
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("ticker_symbol asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertTimingDecision(ctx context.Context, item *models.TimingDecision) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) listTimingDecisionsQuery(ctx context.Context, params repository.ListTimingDecisionsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.TimingDecision{})
	if params.UserID != nil && *params.UserID > 0 {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Ticker != nil && strings.TrimSpace(*params.Ticker) != "" {
		query = query.Where("ticker = ?", strings.ToUpper(strings.TrimSpace(*params.Ticker)))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) ListTimingDecisions(ctx context.Context, params repository.ListTimingDecisionsParams) ([]models.TimingDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.listTimingDecisionsQuery(ctx, params)
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.TimingDecision
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTimingDecisions(ctx context.Context, params repository.ListTimingDecisionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.listTimingDecisionsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) DeleteTimingDecisionsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.TimingDecision{})
	return res.RowsAffected, res.Error
}

// --- Notification queue -----------------------------------------------------

func (s *Store) EnqueueIntent(ctx context.Context, item *models.NotificationIntent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetIntentByID(ctx context.Context, id uint64) (*models.NotificationIntent, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.NotificationIntent
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) listIntentsQuery(ctx context.Context, params repository.ListIntentsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.NotificationIntent{})
	if params.UserID != nil && *params.UserID > 0 {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Channel != nil && strings.TrimSpace(*params.Channel) != "" {
		query = query.Where("channel = ?", strings.TrimSpace(*params.Channel))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) ListIntents(ctx context.Context, params repository.ListIntentsParams) ([]models.NotificationIntent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.NotificationIntent
	err := s.listIntentsQuery(ctx, params).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountIntents(ctx context.Context, params repository.ListIntentsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.listIntentsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListDueIntents(ctx context.Context, now time.Time, limit int) ([]models.NotificationIntent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.NotificationIntent
	err := s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Where("status IN ?", []string{models.IntentPending, models.IntentDeferred}).
		Where("visible_after <= ?", now).
		Order("priority desc, visible_after asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ClaimIntent moves a due row to processing only if it is still claimable.
// A false return means another dispatcher won; the caller skips the row.
func (s *Store) ClaimIntent(ctx context.Context, id uint64, now time.Time) (bool, error) {
	if s == nil || s.db == nil || id == 0 {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Where("id = ? AND status IN ?", id, []string{models.IntentPending, models.IntentDeferred}).
		Updates(map[string]any{
			"status":     models.IntentProcessing,
			"claimed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) MarkIntentSent(ctx context.Context, id uint64, now time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Where("id = ? AND status = ?", id, models.IntentProcessing).
		Updates(map[string]any{
			"status":     models.IntentSent,
			"sent_at":    now,
			"last_error": nil,
		}).Error
}

func (s *Store) DeferIntent(ctx context.Context, id uint64, attempts int, visibleAfter time.Time, lastError string) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Where("id = ? AND status = ?", id, models.IntentProcessing).
		Updates(map[string]any{
			"status":        models.IntentDeferred,
			"attempts":      attempts,
			"visible_after": visibleAfter,
			"claimed_at":    nil,
			"last_error":    lastError,
		}).Error
}

func (s *Store) FailIntent(ctx context.Context, id uint64, attempts int, lastError string) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Where("id = ? AND status = ?", id, models.IntentProcessing).
		Updates(map[string]any{
			"status":     models.IntentFailed,
			"attempts":   attempts,
			"claimed_at": nil,
			"last_error": lastError,
		}).Error
}

// RetryFailedIntent is the only path out of the failed terminal state.
// Attempts move forward, never back to zero.
func (s *Store) RetryFailedIntent(ctx context.Context, id uint64, now time.Time) (bool, error) {
	if s == nil || s.db == nil || id == 0 {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Where("id = ? AND status = ?", id, models.IntentFailed).
		Updates(map[string]any{
			"status":        models.IntentPending,
			"attempts":      gorm.Expr("attempts + 1"),
			"priority":      models.PriorityHigh,
			"visible_after": now,
			"claimed_at":    nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseStaleClaims returns crashed-dispatcher rows to pending once their
// claim is older than the visibility timeout.
func (s *Store) ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error) {
	if s == nil || s.db == nil || claimedBefore.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Where("status = ? AND claimed_at IS NOT NULL AND claimed_at < ?", models.IntentProcessing, claimedBefore).
		Updates(map[string]any{
			"status":     models.IntentPending,
			"claimed_at": nil,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) CountIntentsByStatus(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (s *Store) CountRecentUserNotifications(ctx context.Context, userID uint64, since time.Time) (int64, error) {
	if s == nil || s.db == nil || userID == 0 {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.NotificationIntent{}).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since).
		Where("status <> ?", models.IntentFailed).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// --- User profiles ----------------------------------------------------------

func (s *Store) GetUserProfile(ctx context.Context, userID uint64) (*models.UserProfile, error) {
	if s == nil || s.db == nil || userID == 0 {
		return nil, nil
	}
	var item models.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertUserProfile(ctx context.Context, item *models.UserProfile) error {
	if s == nil || s.db == nil || item == nil || item.UserID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"phone",
			"telegram_chat_id",
			"push_token",
			"email_enabled",
			"sms_enabled",
			"telegram_enabled",
			"app_enabled",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
