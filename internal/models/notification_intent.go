package models

import "time"

// NotificationIntent is one queued, retryable delivery to one user on one
// channel. Status moves forward only, except the manual retry path which
// resurrects a failed intent back to pending.
type NotificationIntent struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement"`
	UserID   uint64  `gorm:"not null;index"`
	SignalID *uint64 `gorm:"index"`
	RuleID   *uint64 `gorm:"index"`

	Channel string `gorm:"type:varchar(20);not null;index"`
	Title   string `gorm:"type:varchar(200);not null"`
	Message string `gorm:"type:text;not null"`

	Status   string `gorm:"type:varchar(20);not null;default:'pending';index:idx_intents_due,priority:1"`
	Priority int    `gorm:"not null;default:0"`

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:3"`

	VisibleAfter time.Time  `gorm:"type:timestamptz;not null;index:idx_intents_due,priority:2"`
	ClaimedAt    *time.Time `gorm:"type:timestamptz"`
	SentAt       *time.Time `gorm:"type:timestamptz"`
	LastError    *string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (NotificationIntent) TableName() string {
	return "notification_queue"
}

const (
	IntentPending    = "pending"
	IntentDeferred   = "deferred"
	IntentProcessing = "processing"
	IntentSent       = "sent"
	IntentFailed     = "failed"
)

const (
	ChannelApp      = "app"
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelTelegram = "telegram"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 10
)

// Terminal reports whether the intent has reached a final state.
func (n *NotificationIntent) Terminal() bool {
	return n.Status == IntentSent || n.Status == IntentFailed
}
