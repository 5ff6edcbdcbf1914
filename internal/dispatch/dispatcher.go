// Package dispatch drains due notification intents and attempts channel
// delivery with capped exponential retry.
package dispatch

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"proudprofit/internal/apperr"
	"proudprofit/internal/config"
	"proudprofit/internal/metrics"
	"proudprofit/internal/models"
	"proudprofit/internal/queue"
)

// Store is the persistence slice the dispatcher needs.
type Store interface {
	GetUserProfile(ctx context.Context, userID uint64) (*models.UserProfile, error)
	GetIntentByID(ctx context.Context, id uint64) (*models.NotificationIntent, error)
	MarkIntentSent(ctx context.Context, id uint64, now time.Time) error
	DeferIntent(ctx context.Context, id uint64, attempts int, visibleAfter time.Time, lastError string) error
	FailIntent(ctx context.Context, id uint64, attempts int, lastError string) error
	RetryFailedIntent(ctx context.Context, id uint64, now time.Time) (bool, error)
}

// BatchResult summarizes one poll run.
type BatchResult struct {
	Claimed  int `json:"claimed"`
	Sent     int `json:"sent"`
	Deferred int `json:"deferred"`
	Failed   int `json:"failed"`
}

type Dispatcher struct {
	Repo    Store
	Queue   *queue.Queue
	Senders map[string]Sender
	Logger  *zap.Logger

	MaxAttempts int
	Backoff     *backoff.Backoff

	breakers map[string]*gobreaker.CircuitBreaker
}

func New(repo Store, q *queue.Queue, senders []Sender, cfg config.DispatchConfig, logger *zap.Logger) *Dispatcher {
	byChannel := make(map[string]Sender, len(senders))
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(senders))
	maxFail := cfg.BreakerMaxFail
	if maxFail == 0 {
		maxFail = 5
	}
	cooloff := cfg.BreakerCooloff
	if cooloff <= 0 {
		cooloff = time.Minute
	}
	for _, s := range senders {
		if s == nil {
			continue
		}
		byChannel[s.Channel()] = s
		breakers[s.Channel()] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "channel_" + s.Channel(),
			Timeout: cooloff,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFail
			},
		})
	}
	base := cfg.BackoffBase
	if base <= 0 {
		base = 30 * time.Second
	}
	cap := cfg.BackoffCap
	if cap <= 0 {
		cap = 30 * time.Minute
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Dispatcher{
		Repo:        repo,
		Queue:       q,
		Senders:     byChannel,
		Logger:      logger,
		MaxAttempts: maxAttempts,
		Backoff:     &backoff.Backoff{Min: base, Max: cap, Factor: 2},
		breakers:    breakers,
	}
}

// ProcessDue claims and delivers up to limit due intents. One failing
// intent never stops the rest of the batch; its outcome lands on its own
// row.
func (d *Dispatcher) ProcessDue(ctx context.Context, now time.Time, limit int) (BatchResult, error) {
	items, err := d.Queue.DequeueDue(ctx, now, limit)
	if err != nil {
		return BatchResult{}, err
	}
	result := BatchResult{Claimed: len(items)}
	for _, item := range items {
		switch d.Deliver(ctx, item, now) {
		case models.IntentSent:
			result.Sent++
		case models.IntentDeferred:
			result.Deferred++
		case models.IntentFailed:
			result.Failed++
		}
	}
	if d.Logger != nil && result.Claimed > 0 {
		d.Logger.Info("dispatch batch done",
			zap.Int("claimed", result.Claimed),
			zap.Int("sent", result.Sent),
			zap.Int("deferred", result.Deferred),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// Deliver attempts one claimed intent and returns the status it ended
// in. Missing channel configuration fails permanently; transport errors
// re-defer with backoff until attempts run out.
func (d *Dispatcher) Deliver(ctx context.Context, intent models.NotificationIntent, now time.Time) string {
	sender, ok := d.Senders[intent.Channel]
	if !ok {
		return d.fail(ctx, intent, "channel not configured")
	}

	profile, err := d.Repo.GetUserProfile(ctx, intent.UserID)
	if err != nil {
		return d.deferOrFail(ctx, intent, now, err.Error())
	}

	err = d.send(ctx, sender, profile, intent)
	if err == nil {
		if err := d.Repo.MarkIntentSent(ctx, intent.ID, now); err != nil && d.Logger != nil {
			d.Logger.Error("mark sent failed", zap.Uint64("intent_id", intent.ID), zap.Error(err))
		}
		metrics.DeliveriesTotal.WithLabelValues(intent.Channel, "sent").Inc()
		return models.IntentSent
	}
	if apperr.IsConfiguration(err) {
		return d.fail(ctx, intent, err.Error())
	}
	return d.deferOrFail(ctx, intent, now, err.Error())
}

// send runs the channel call through its circuit breaker. An open
// breaker is a transient failure: the intent backs off like any other
// provider outage. Configuration gaps are the user's state, not
// provider health, so they bypass the breaker's failure accounting.
func (d *Dispatcher) send(ctx context.Context, sender Sender, profile *models.UserProfile, intent models.NotificationIntent) error {
	cb := d.breakers[intent.Channel]
	if cb == nil {
		return sender.Send(ctx, profile, intent)
	}
	var configErr error
	_, err := cb.Execute(func() (any, error) {
		err := sender.Send(ctx, profile, intent)
		if apperr.IsConfiguration(err) {
			configErr = err
			return nil, nil
		}
		return nil, err
	})
	if configErr != nil {
		return configErr
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperr.Transient(err)
	}
	return err
}

func (d *Dispatcher) deferOrFail(ctx context.Context, intent models.NotificationIntent, now time.Time, lastError string) string {
	attempts := intent.Attempts + 1
	if attempts >= d.maxAttemptsFor(intent) {
		if err := d.Repo.FailIntent(ctx, intent.ID, attempts, lastError); err != nil && d.Logger != nil {
			d.Logger.Error("fail transition failed", zap.Uint64("intent_id", intent.ID), zap.Error(err))
		}
		metrics.DeliveriesTotal.WithLabelValues(intent.Channel, "failed").Inc()
		if d.Logger != nil {
			d.Logger.Warn("intent failed permanently",
				zap.Uint64("intent_id", intent.ID),
				zap.Int("attempts", attempts),
				zap.String("last_error", lastError),
			)
		}
		return models.IntentFailed
	}
	visibleAfter := now.Add(d.Backoff.ForAttempt(float64(attempts)))
	if err := d.Repo.DeferIntent(ctx, intent.ID, attempts, visibleAfter, lastError); err != nil && d.Logger != nil {
		d.Logger.Error("defer transition failed", zap.Uint64("intent_id", intent.ID), zap.Error(err))
	}
	metrics.DeliveriesTotal.WithLabelValues(intent.Channel, "deferred").Inc()
	return models.IntentDeferred
}

func (d *Dispatcher) fail(ctx context.Context, intent models.NotificationIntent, lastError string) string {
	if err := d.Repo.FailIntent(ctx, intent.ID, intent.Attempts, lastError); err != nil && d.Logger != nil {
		d.Logger.Error("fail transition failed", zap.Uint64("intent_id", intent.ID), zap.Error(err))
	}
	metrics.DeliveriesTotal.WithLabelValues(intent.Channel, "failed").Inc()
	return models.IntentFailed
}

func (d *Dispatcher) maxAttemptsFor(intent models.NotificationIntent) int {
	if intent.MaxAttempts > 0 {
		return intent.MaxAttempts
	}
	return d.MaxAttempts
}

// Retry resurrects a failed intent: attempts move forward and the row
// re-enters the queue at high priority. Sent intents are rejected; a
// lost race surfaces as ErrConflict and the caller treats it as a no-op.
func (d *Dispatcher) Retry(ctx context.Context, id uint64, now time.Time) (*models.NotificationIntent, error) {
	intent, err := d.Repo.GetIntentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, apperr.ErrNotFound
	}
	if intent.Status == models.IntentSent {
		// Conflict, not validation: the row exists but its state forbids
		// the transition.
		return nil, apperr.ErrConflict
	}
	if intent.Status != models.IntentFailed {
		return nil, apperr.Validation("status", "only failed notifications can be retried")
	}
	ok, err := d.Repo.RetryFailedIntent(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrConflict
	}
	return d.Repo.GetIntentByID(ctx, id)
}
