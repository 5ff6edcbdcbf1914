// Package alert matches stored signals and price ticks against user
// alert rules and turns each trigger into a gated notification intent.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"proudprofit/internal/market"
	"proudprofit/internal/metrics"
	"proudprofit/internal/models"
	"proudprofit/internal/queue"
	"proudprofit/internal/timing"
)

// Store is the persistence slice the matcher needs.
type Store interface {
	ListActiveRulesByTicker(ctx context.Context, ticker string) ([]models.AlertRule, error)
	ClaimOneShotRule(ctx context.Context, id uint64, now time.Time) (bool, error)
	TouchRuleTriggered(ctx context.Context, id uint64, now time.Time) error
	GetUserProfile(ctx context.Context, userID uint64) (*models.UserProfile, error)
}

// Gate decides send-now / delay / suppress for one candidate.
type Gate interface {
	Evaluate(ctx context.Context, req timing.Request, now time.Time) (timing.Decision, error)
}

// Enqueuer writes the queue row a decision calls for.
type Enqueuer interface {
	Enqueue(ctx context.Context, c queue.Candidate, d timing.Decision, now time.Time) (*models.NotificationIntent, error)
}

// VolatilityProvider supplies the gate's market conditions. May be nil
// when no feed is running.
type VolatilityProvider interface {
	Volatility(symbol string) float64
}

type Matcher struct {
	Repo       Store
	Gate       Gate
	Queue      Enqueuer
	Volatility VolatilityProvider
	Logger     *zap.Logger
}

// SignalStored is the webhook path: every active rule on the signal's
// ticker fires, condition-agnostic; the upstream signal already asserts
// the event happened. Implements signal.Sink.
func (m *Matcher) SignalStored(ctx context.Context, sig models.Signal) {
	rules, err := m.Repo.ListActiveRulesByTicker(ctx, sig.Ticker)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("rule match failed", zap.String("ticker", sig.Ticker), zap.Error(err))
		}
		return
	}
	now := time.Now().UTC()
	for _, rule := range rules {
		m.trigger(ctx, rule, trigger{
			path:       "signal",
			signalID:   &sig.ID,
			signalType: sig.Strategy,
			urgency:    classifyUrgency(sig),
			minor:      classifyMinor(sig),
			title:      fmt.Sprintf("%s %s signal", sig.Ticker, sig.Action),
			message:    composeSignalMessage(sig),
		}, now)
	}
}

// HandleTick is the market-data-sync path: condition-aware evaluation of
// price-threshold rules against the live feed. Boundaries are inclusive;
// a price exactly at the target fires.
func (m *Matcher) HandleTick(ctx context.Context, tick market.Tick) {
	rules, err := m.Repo.ListActiveRulesByTicker(ctx, tick.Symbol)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("rule match failed", zap.String("ticker", tick.Symbol), zap.Error(err))
		}
		return
	}
	now := time.Now().UTC()
	for _, rule := range rules {
		if !Triggered(rule, tick.Price, tick.ChangePct) {
			continue
		}
		m.trigger(ctx, rule, trigger{
			path:       "tick",
			signalType: rule.Condition,
			urgency:    timing.UrgencyNormal,
			title:      fmt.Sprintf("%s price alert", tick.Symbol),
			message: fmt.Sprintf("%s hit %s (%s target %s)",
				tick.Symbol, tick.Price.StringFixed(2), rule.Condition, rule.TargetValue.StringFixed(2)),
		}, now)
	}
}

// Triggered evaluates a rule condition against the current price and
// window change. Above-conditions use >=, below-conditions use <=.
func Triggered(rule models.AlertRule, price decimal.Decimal, changePct float64) bool {
	switch rule.Condition {
	case models.ConditionPriceAbove:
		return price.Cmp(rule.TargetValue) >= 0
	case models.ConditionPriceBelow:
		return price.Cmp(rule.TargetValue) <= 0
	case models.ConditionChangeAbove:
		return decimal.NewFromFloat(changePct).Cmp(rule.TargetValue) >= 0
	case models.ConditionChangeBelow:
		return decimal.NewFromFloat(changePct).Cmp(rule.TargetValue) <= 0
	}
	return false
}

type trigger struct {
	path       string
	signalID   *uint64
	signalType string
	urgency    string
	minor      bool
	title      string
	message    string
}

// trigger claims the rule, gates the candidate, and enqueues the result.
// A one-shot rule is deactivated in the same conditional update that
// claims it, so a concurrent duplicate trigger finds it already taken
// and produces nothing.
func (m *Matcher) trigger(ctx context.Context, rule models.AlertRule, t trigger, now time.Time) {
	if rule.OneShot {
		claimed, err := m.Repo.ClaimOneShotRule(ctx, rule.ID, now)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("one-shot claim failed", zap.Uint64("rule_id", rule.ID), zap.Error(err))
			}
			return
		}
		if !claimed {
			// Lost the race to a concurrent trigger; not an error.
			return
		}
	} else if err := m.Repo.TouchRuleTriggered(ctx, rule.ID, now); err != nil && m.Logger != nil {
		m.Logger.Warn("rule touch failed", zap.Uint64("rule_id", rule.ID), zap.Error(err))
	}
	metrics.RulesTriggered.WithLabelValues(t.path).Inc()

	vol := 0.0
	if m.Volatility != nil {
		vol = m.Volatility.Volatility(rule.Ticker)
	}
	decision, err := m.Gate.Evaluate(ctx, timing.Request{
		UserID:     rule.UserID,
		Ticker:     rule.Ticker,
		SignalType: t.signalType,
		Urgency:    t.urgency,
		Market:     timing.Conditions{Volatility: vol},
		Minor:      t.minor,
	}, now)
	if err != nil {
		// Gate failures suppress; never send on ambiguous state.
		if m.Logger != nil {
			m.Logger.Warn("gate evaluation failed, suppressing",
				zap.Uint64("rule_id", rule.ID),
				zap.Uint64("user_id", rule.UserID),
				zap.Error(err),
			)
		}
		return
	}

	channel := m.resolveChannel(ctx, rule.UserID)
	intent, err := m.Queue.Enqueue(ctx, queue.Candidate{
		UserID:   rule.UserID,
		SignalID: t.signalID,
		RuleID:   &rule.ID,
		Channel:  channel,
		Title:    t.title,
		Message:  t.message,
	}, decision, now)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("enqueue failed", zap.Uint64("rule_id", rule.ID), zap.Error(err))
		}
		return
	}
	if intent != nil && m.Logger != nil {
		m.Logger.Info("rule triggered",
			zap.Uint64("rule_id", rule.ID),
			zap.Uint64("user_id", rule.UserID),
			zap.String("path", t.path),
			zap.String("channel", channel),
			zap.String("status", intent.Status),
			zap.String("reason", decision.Reason),
		)
	}
}

// resolveChannel picks the user's primary enabled channel. Users without
// a profile still get the in-app channel; the dispatcher treats a truly
// unconfigured channel as a permanent failure later.
func (m *Matcher) resolveChannel(ctx context.Context, userID uint64) string {
	profile, err := m.Repo.GetUserProfile(ctx, userID)
	if err != nil || profile == nil {
		return models.ChannelApp
	}
	switch {
	case profile.TelegramEnabled && profile.TelegramChatID != nil:
		return models.ChannelTelegram
	case profile.EmailEnabled && profile.Email != nil:
		return models.ChannelEmail
	case profile.SMSEnabled && profile.Phone != nil:
		return models.ChannelSMS
	default:
		return models.ChannelApp
	}
}

func composeSignalMessage(sig models.Signal) string {
	if sig.Message != "" {
		return sig.Message
	}
	return fmt.Sprintf("%s %s at %s", sig.Ticker, sig.Action, sig.Price.StringFixed(2))
}
