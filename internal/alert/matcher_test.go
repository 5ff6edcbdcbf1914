package alert

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"proudprofit/internal/market"
	"proudprofit/internal/models"
	"proudprofit/internal/queue"
	"proudprofit/internal/timing"
)

type stubStore struct {
	rules     []models.AlertRule
	profile   *models.UserProfile
	claimed   map[uint64]bool
	touched   []uint64
	claimFail bool
}

func (s *stubStore) ListActiveRulesByTicker(_ context.Context, ticker string) ([]models.AlertRule, error) {
	out := make([]models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Ticker == ticker && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) ClaimOneShotRule(_ context.Context, id uint64, _ time.Time) (bool, error) {
	if s.claimed == nil {
		s.claimed = map[uint64]bool{}
	}
	if s.claimFail || s.claimed[id] {
		return false, nil
	}
	s.claimed[id] = true
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules[i].IsActive = false
		}
	}
	return true, nil
}

func (s *stubStore) TouchRuleTriggered(_ context.Context, id uint64, _ time.Time) error {
	s.touched = append(s.touched, id)
	return nil
}

func (s *stubStore) GetUserProfile(_ context.Context, _ uint64) (*models.UserProfile, error) {
	return s.profile, nil
}

type stubGate struct {
	decision timing.Decision
	calls    int
}

func (g *stubGate) Evaluate(_ context.Context, _ timing.Request, _ time.Time) (timing.Decision, error) {
	g.calls++
	return g.decision, nil
}

type stubQueue struct {
	candidates []queue.Candidate
	decisions  []timing.Decision
}

func (q *stubQueue) Enqueue(_ context.Context, c queue.Candidate, d timing.Decision, now time.Time) (*models.NotificationIntent, error) {
	q.candidates = append(q.candidates, c)
	q.decisions = append(q.decisions, d)
	if !d.ShouldSend && d.PermanentDrop {
		return nil, nil
	}
	return &models.NotificationIntent{ID: uint64(len(q.candidates)), UserID: c.UserID, Channel: c.Channel, Status: models.IntentPending}, nil
}

func oneShotRule(id uint64, condition string, target int64) models.AlertRule {
	return models.AlertRule{
		ID:          id,
		UserID:      7,
		Ticker:      "BTCUSDT",
		Condition:   condition,
		TargetValue: decimal.NewFromInt(target),
		IsActive:    true,
		OneShot:     true,
	}
}

func TestTriggered_InclusiveBoundaries(t *testing.T) {
	cases := []struct {
		condition string
		target    int64
		price     int64
		want      bool
	}{
		{models.ConditionPriceAbove, 50000, 50000, true},
		{models.ConditionPriceAbove, 50000, 50001, true},
		{models.ConditionPriceAbove, 50000, 49999, false},
		{models.ConditionPriceBelow, 50000, 50000, true},
		{models.ConditionPriceBelow, 50000, 49999, true},
		{models.ConditionPriceBelow, 50000, 50001, false},
	}
	for _, tc := range cases {
		rule := oneShotRule(1, tc.condition, tc.target)
		got := Triggered(rule, decimal.NewFromInt(tc.price), 0)
		if got != tc.want {
			t.Fatalf("%s target=%d price=%d triggered=%v want=%v", tc.condition, tc.target, tc.price, got, tc.want)
		}
	}
}

func TestTriggered_ChangeConditions(t *testing.T) {
	above := oneShotRule(1, models.ConditionChangeAbove, 5)
	if !Triggered(above, decimal.NewFromInt(100), 5.0) {
		t.Fatalf("change_above at exactly 5%% should trigger")
	}
	if Triggered(above, decimal.NewFromInt(100), 4.9) {
		t.Fatalf("change_above below target should not trigger")
	}
	below := oneShotRule(2, models.ConditionChangeBelow, -5)
	if !Triggered(below, decimal.NewFromInt(100), -5.0) {
		t.Fatalf("change_below at exactly -5%% should trigger")
	}
	if Triggered(below, decimal.NewFromInt(100), -4.9) {
		t.Fatalf("change_below above target should not trigger")
	}
}

func TestHandleTick_OneShotFiresOnce(t *testing.T) {
	store := &stubStore{rules: []models.AlertRule{oneShotRule(1, models.ConditionPriceAbove, 50000)}}
	gate := &stubGate{decision: timing.Decision{ShouldSend: true, Reason: "ok to send"}}
	q := &stubQueue{}
	m := &Matcher{Repo: store, Gate: gate, Queue: q}

	tick := market.Tick{Symbol: "BTCUSDT", Price: decimal.NewFromInt(50001), At: time.Now().UTC()}
	m.HandleTick(context.Background(), tick)
	m.HandleTick(context.Background(), tick)

	if len(q.candidates) != 1 {
		t.Fatalf("enqueued=%d want=1 (one-shot must fire at most once)", len(q.candidates))
	}
	if store.rules[0].IsActive {
		t.Fatalf("rule still active after one-shot trigger")
	}
}

func TestHandleTick_LostClaimProducesNothing(t *testing.T) {
	store := &stubStore{
		rules:     []models.AlertRule{oneShotRule(1, models.ConditionPriceAbove, 50000)},
		claimFail: true,
	}
	gate := &stubGate{decision: timing.Decision{ShouldSend: true}}
	q := &stubQueue{}
	m := &Matcher{Repo: store, Gate: gate, Queue: q}

	m.HandleTick(context.Background(), market.Tick{Symbol: "BTCUSDT", Price: decimal.NewFromInt(60000)})

	if gate.calls != 0 {
		t.Fatalf("gate calls=%d want=0 after lost claim", gate.calls)
	}
	if len(q.candidates) != 0 {
		t.Fatalf("enqueued=%d want=0 after lost claim", len(q.candidates))
	}
}

func TestHandleTick_RepeatingRuleKeepsFiring(t *testing.T) {
	rule := oneShotRule(1, models.ConditionPriceAbove, 50000)
	rule.OneShot = false
	store := &stubStore{rules: []models.AlertRule{rule}}
	gate := &stubGate{decision: timing.Decision{ShouldSend: true}}
	q := &stubQueue{}
	m := &Matcher{Repo: store, Gate: gate, Queue: q}

	tick := market.Tick{Symbol: "BTCUSDT", Price: decimal.NewFromInt(50001)}
	m.HandleTick(context.Background(), tick)
	m.HandleTick(context.Background(), tick)

	if len(q.candidates) != 2 {
		t.Fatalf("enqueued=%d want=2 for repeating rule", len(q.candidates))
	}
	if len(store.touched) != 2 {
		t.Fatalf("touched=%d want=2", len(store.touched))
	}
}

func TestHandleTick_BelowTargetNoTrigger(t *testing.T) {
	store := &stubStore{rules: []models.AlertRule{oneShotRule(1, models.ConditionPriceAbove, 50000)}}
	gate := &stubGate{decision: timing.Decision{ShouldSend: true}}
	q := &stubQueue{}
	m := &Matcher{Repo: store, Gate: gate, Queue: q}

	m.HandleTick(context.Background(), market.Tick{Symbol: "BTCUSDT", Price: decimal.NewFromInt(49999)})

	if len(q.candidates) != 0 {
		t.Fatalf("enqueued=%d want=0", len(q.candidates))
	}
	if !store.rules[0].IsActive {
		t.Fatalf("rule deactivated without a trigger")
	}
}

func TestSignalStored_FiresAllActiveRulesConditionAgnostic(t *testing.T) {
	// The webhook path trusts the upstream signal: a price_below rule fires
	// on a buy signal too.
	store := &stubStore{rules: []models.AlertRule{
		oneShotRule(1, models.ConditionPriceAbove, 99999999),
		oneShotRule(2, models.ConditionPriceBelow, 1),
	}}
	gate := &stubGate{decision: timing.Decision{ShouldSend: true}}
	q := &stubQueue{}
	m := &Matcher{Repo: store, Gate: gate, Queue: q}

	sig := models.Signal{ID: 10, Ticker: "BTCUSDT", Action: "buy", Price: decimal.NewFromInt(50000)}
	m.SignalStored(context.Background(), sig)

	if len(q.candidates) != 2 {
		t.Fatalf("enqueued=%d want=2", len(q.candidates))
	}
	for _, c := range q.candidates {
		if c.SignalID == nil || *c.SignalID != sig.ID {
			t.Fatalf("candidate signal_id=%v want=%d", c.SignalID, sig.ID)
		}
	}
}

func TestSignalStored_PermanentDropWritesNoIntent(t *testing.T) {
	store := &stubStore{rules: []models.AlertRule{oneShotRule(1, models.ConditionPriceAbove, 1)}}
	gate := &stubGate{decision: timing.Decision{ShouldSend: false, PermanentDrop: true, Reason: "minor signal dropped"}}
	q := &stubQueue{}
	m := &Matcher{Repo: store, Gate: gate, Queue: q}

	m.SignalStored(context.Background(), models.Signal{ID: 1, Ticker: "BTCUSDT", Action: "hold", Price: decimal.NewFromInt(50000)})

	// The candidate reaches the queue, which declines to write a row.
	if len(q.decisions) != 1 || !q.decisions[0].PermanentDrop {
		t.Fatalf("decisions=%v want one permanent drop", q.decisions)
	}
}

func TestResolveChannel_Priority(t *testing.T) {
	email := "a@b.c"
	phone := "+123"
	chat := int64(42)

	cases := []struct {
		name    string
		profile *models.UserProfile
		want    string
	}{
		{"no profile", nil, models.ChannelApp},
		{"telegram first", &models.UserProfile{TelegramEnabled: true, TelegramChatID: &chat, EmailEnabled: true, Email: &email}, models.ChannelTelegram},
		{"email next", &models.UserProfile{EmailEnabled: true, Email: &email, SMSEnabled: true, Phone: &phone}, models.ChannelEmail},
		{"sms next", &models.UserProfile{SMSEnabled: true, Phone: &phone}, models.ChannelSMS},
		{"telegram enabled without chat id falls through", &models.UserProfile{TelegramEnabled: true}, models.ChannelApp},
		{"app fallback", &models.UserProfile{}, models.ChannelApp},
	}
	for _, tc := range cases {
		m := &Matcher{Repo: &stubStore{profile: tc.profile}}
		got := m.resolveChannel(context.Background(), 7)
		if got != tc.want {
			t.Fatalf("%s: channel=%s want=%s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyUrgency(t *testing.T) {
	critical := models.Signal{Ticker: "BTCUSDT", Action: "sell", Message: "liquidation cascade risk"}
	if got := classifyUrgency(critical); got != timing.UrgencyCritical {
		t.Fatalf("urgency=%s want=critical", got)
	}
	high := models.Signal{Ticker: "BTCUSDT", Action: "buy", Timeframe: "1d"}
	if got := classifyUrgency(high); got != timing.UrgencyHigh {
		t.Fatalf("urgency=%s want=high", got)
	}
	normal := models.Signal{Ticker: "BTCUSDT", Action: "buy", Timeframe: "15m"}
	if got := classifyUrgency(normal); got != timing.UrgencyNormal {
		t.Fatalf("urgency=%s want=normal", got)
	}
}

func TestClassifyMinor(t *testing.T) {
	if !classifyMinor(models.Signal{Action: "hold"}) {
		t.Fatalf("hold signals are minor")
	}
	if !classifyMinor(models.Signal{Action: "buy", Timeframe: "1m"}) {
		t.Fatalf("1m timeframe is minor")
	}
	if classifyMinor(models.Signal{Action: "buy", Timeframe: "4h"}) {
		t.Fatalf("4h buy is not minor")
	}
}
