package queue

import (
	"context"
	"testing"
	"time"

	"proudprofit/internal/models"
	"proudprofit/internal/timing"
)

type stubQueueStore struct {
	inserted []models.NotificationIntent
	due      []models.NotificationIntent
	// claimable controls which ids a ClaimIntent call wins.
	claimable map[uint64]bool
	released  int64
	counts    map[string]int64
}

func (s *stubQueueStore) EnqueueIntent(_ context.Context, item *models.NotificationIntent) error {
	item.ID = uint64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, *item)
	return nil
}

func (s *stubQueueStore) ListDueIntents(_ context.Context, _ time.Time, limit int) ([]models.NotificationIntent, error) {
	if limit > 0 && len(s.due) > limit {
		return s.due[:limit], nil
	}
	return s.due, nil
}

func (s *stubQueueStore) ClaimIntent(_ context.Context, id uint64, _ time.Time) (bool, error) {
	return s.claimable[id], nil
}

func (s *stubQueueStore) ReleaseStaleClaims(_ context.Context, _ time.Time) (int64, error) {
	return s.released, nil
}

func (s *stubQueueStore) CountIntentsByStatus(_ context.Context) (map[string]int64, error) {
	return s.counts, nil
}

func TestEnqueue_SendNowIsPendingAndVisible(t *testing.T) {
	store := &stubQueueStore{}
	q := &Queue{Repo: store}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	item, err := q.Enqueue(context.Background(), Candidate{
		UserID:  7,
		Channel: models.ChannelEmail,
		Title:   "BTCUSDT buy signal",
	}, timing.Decision{ShouldSend: true, Reason: "ok to send"}, now)
	if err != nil {
		t.Fatalf("enqueue err=%v", err)
	}
	if item.Status != models.IntentPending {
		t.Fatalf("status=%s want=pending", item.Status)
	}
	if !item.VisibleAfter.Equal(now) {
		t.Fatalf("visibleAfter=%v want=%v", item.VisibleAfter, now)
	}
	if item.MaxAttempts != 3 {
		t.Fatalf("maxAttempts=%d want=3 default", item.MaxAttempts)
	}
}

func TestEnqueue_ConfiguredDefaultMaxAttemptsApplies(t *testing.T) {
	store := &stubQueueStore{}
	q := &Queue{Repo: store, DefaultMaxAttempts: 5}

	item, err := q.Enqueue(context.Background(), Candidate{UserID: 7, Channel: models.ChannelEmail},
		timing.Decision{ShouldSend: true, Reason: "ok to send"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("enqueue err=%v", err)
	}
	if item.MaxAttempts != 5 {
		t.Fatalf("maxAttempts=%d want=5 configured default", item.MaxAttempts)
	}

	item, err = q.Enqueue(context.Background(), Candidate{UserID: 7, Channel: models.ChannelEmail, MaxAttempts: 2},
		timing.Decision{ShouldSend: true, Reason: "ok to send"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("enqueue err=%v", err)
	}
	if item.MaxAttempts != 2 {
		t.Fatalf("maxAttempts=%d want=2 explicit budget wins", item.MaxAttempts)
	}
}

func TestEnqueue_DelayedIsDeferredUntilDelayElapses(t *testing.T) {
	store := &stubQueueStore{}
	q := &Queue{Repo: store}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	item, err := q.Enqueue(context.Background(), Candidate{UserID: 7, Channel: models.ChannelApp},
		timing.Decision{ShouldSend: false, Reason: "quiet hours", DelaySeconds: 1800}, now)
	if err != nil {
		t.Fatalf("enqueue err=%v", err)
	}
	if item.Status != models.IntentDeferred {
		t.Fatalf("status=%s want=deferred", item.Status)
	}
	want := now.Add(30 * time.Minute)
	if !item.VisibleAfter.Equal(want) {
		t.Fatalf("visibleAfter=%v want=%v", item.VisibleAfter, want)
	}
}

func TestEnqueue_PermanentDropWritesNothing(t *testing.T) {
	store := &stubQueueStore{}
	q := &Queue{Repo: store}

	item, err := q.Enqueue(context.Background(), Candidate{UserID: 7, Channel: models.ChannelApp},
		timing.Decision{ShouldSend: false, PermanentDrop: true, Reason: "minor signal dropped"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("enqueue err=%v", err)
	}
	if item != nil {
		t.Fatalf("item=%+v want=nil for a permanent drop", item)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("inserted=%d want=0", len(store.inserted))
	}
}

func TestDequeueDue_SkipsLostClaims(t *testing.T) {
	store := &stubQueueStore{
		due: []models.NotificationIntent{
			{ID: 1, Status: models.IntentPending},
			{ID: 2, Status: models.IntentPending},
			{ID: 3, Status: models.IntentDeferred},
		},
		claimable: map[uint64]bool{1: true, 3: true},
	}
	q := &Queue{Repo: store}
	now := time.Now().UTC()

	claimed, err := q.DequeueDue(context.Background(), now, 10)
	if err != nil {
		t.Fatalf("dequeue err=%v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed=%d want=2", len(claimed))
	}
	for _, item := range claimed {
		if item.Status != models.IntentProcessing {
			t.Fatalf("id=%d status=%s want=processing", item.ID, item.Status)
		}
		if item.ClaimedAt == nil || !item.ClaimedAt.Equal(now) {
			t.Fatalf("id=%d claimedAt=%v want=%v", item.ID, item.ClaimedAt, now)
		}
	}
	if claimed[0].ID != 1 || claimed[1].ID != 3 {
		t.Fatalf("claimed ids=%d,%d want=1,3", claimed[0].ID, claimed[1].ID)
	}
}

func TestDequeueDue_HonorsLimit(t *testing.T) {
	store := &stubQueueStore{
		due: []models.NotificationIntent{
			{ID: 1}, {ID: 2}, {ID: 3},
		},
		claimable: map[uint64]bool{1: true, 2: true, 3: true},
	}
	q := &Queue{Repo: store}

	claimed, err := q.DequeueDue(context.Background(), time.Now().UTC(), 2)
	if err != nil {
		t.Fatalf("dequeue err=%v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed=%d want=2", len(claimed))
	}
}

func TestReleaseStale_PassesCutoff(t *testing.T) {
	store := &stubQueueStore{released: 4}
	q := &Queue{Repo: store}

	n, err := q.ReleaseStale(context.Background(), time.Now().UTC(), 5*time.Minute)
	if err != nil {
		t.Fatalf("release err=%v", err)
	}
	if n != 4 {
		t.Fatalf("released=%d want=4", n)
	}
}

func TestStats_ReturnsCounts(t *testing.T) {
	store := &stubQueueStore{counts: map[string]int64{
		models.IntentPending: 5,
		models.IntentFailed:  2,
	}}
	q := &Queue{Repo: store}

	counts, err := q.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats err=%v", err)
	}
	if counts[models.IntentPending] != 5 || counts[models.IntentFailed] != 2 {
		t.Fatalf("counts=%v want pending=5 failed=2", counts)
	}
}
