// Package queue is the durable record of notification intents: rows in
// notification_queue with forward-only status transitions and a
// conditional-claim dequeue.
package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"proudprofit/internal/metrics"
	"proudprofit/internal/models"
	"proudprofit/internal/timing"
)

// Store is the persistence slice the queue needs.
type Store interface {
	EnqueueIntent(ctx context.Context, item *models.NotificationIntent) error
	ListDueIntents(ctx context.Context, now time.Time, limit int) ([]models.NotificationIntent, error)
	ClaimIntent(ctx context.Context, id uint64, now time.Time) (bool, error)
	ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error)
	CountIntentsByStatus(ctx context.Context) (map[string]int64, error)
}

type Queue struct {
	Repo   Store
	Logger *zap.Logger
	// DefaultMaxAttempts is stamped on rows whose candidate carries no
	// explicit budget. Zero falls back to 3.
	DefaultMaxAttempts int
}

// Candidate is an intent the gate has ruled on but that has no queue row yet.
type Candidate struct {
	UserID      uint64
	SignalID    *uint64
	RuleID      *uint64
	Channel     string
	Title       string
	Message     string
	MaxAttempts int
}

// Enqueue writes the intent a gate decision calls for. Send-now becomes a
// pending row visible immediately; a delayed decision becomes a deferred
// row visible after the delay; a permanent drop writes nothing and
// returns nil (the decision log already recorded it).
func (q *Queue) Enqueue(ctx context.Context, c Candidate, d timing.Decision, now time.Time) (*models.NotificationIntent, error) {
	if !d.ShouldSend && d.PermanentDrop {
		return nil, nil
	}

	item := &models.NotificationIntent{
		UserID:       c.UserID,
		SignalID:     c.SignalID,
		RuleID:       c.RuleID,
		Channel:      c.Channel,
		Title:        c.Title,
		Message:      c.Message,
		Status:       models.IntentPending,
		MaxAttempts:  c.MaxAttempts,
		VisibleAfter: now,
	}
	if item.MaxAttempts <= 0 {
		item.MaxAttempts = q.DefaultMaxAttempts
	}
	if item.MaxAttempts <= 0 {
		item.MaxAttempts = 3
	}
	if !d.ShouldSend {
		item.Status = models.IntentDeferred
		item.VisibleAfter = now.Add(time.Duration(d.DelaySeconds) * time.Second)
	}

	if err := q.Repo.EnqueueIntent(ctx, item); err != nil {
		return nil, err
	}
	if q.Logger != nil {
		q.Logger.Debug("intent enqueued",
			zap.Uint64("id", item.ID),
			zap.Uint64("user_id", item.UserID),
			zap.String("channel", item.Channel),
			zap.String("status", item.Status),
			zap.Time("visible_after", item.VisibleAfter),
		)
	}
	return item, nil
}

// DequeueDue returns up to limit due intents that this caller now owns.
// Each row is claimed with a conditional transition; rows lost to a
// concurrent dispatcher are silently skipped.
func (q *Queue) DequeueDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationIntent, error) {
	due, err := q.Repo.ListDueIntents(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	claimed := make([]models.NotificationIntent, 0, len(due))
	for _, item := range due {
		ok, err := q.Repo.ClaimIntent(ctx, item.ID, now)
		if err != nil {
			return claimed, err
		}
		if !ok {
			continue
		}
		item.Status = models.IntentProcessing
		claimedAt := now
		item.ClaimedAt = &claimedAt
		claimed = append(claimed, item)
	}
	return claimed, nil
}

// ReleaseStale returns rows stuck in processing (a dispatcher died
// mid-batch) to pending once the claim timeout has passed.
func (q *Queue) ReleaseStale(ctx context.Context, now time.Time, claimTimeout time.Duration) (int64, error) {
	n, err := q.Repo.ReleaseStaleClaims(ctx, now.Add(-claimTimeout))
	if err != nil {
		return 0, err
	}
	if n > 0 && q.Logger != nil {
		q.Logger.Warn("released stale queue claims", zap.Int64("count", n))
	}
	return n, nil
}

// Stats refreshes the queue depth gauges and returns counts by status.
func (q *Queue) Stats(ctx context.Context) (map[string]int64, error) {
	counts, err := q.Repo.CountIntentsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, status := range []string{
		models.IntentPending,
		models.IntentDeferred,
		models.IntentProcessing,
		models.IntentSent,
		models.IntentFailed,
	} {
		metrics.QueueDepth.WithLabelValues(status).Set(float64(counts[status]))
	}
	return counts, nil
}
