package models

import "time"

// TimingDecision is one append-only audit row for a smart-timing gate
// decision. Rows are never read back to influence future decisions; they
// exist for analytics consumers.
type TimingDecision struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     uint64 `gorm:"not null;index"`
	Ticker     string `gorm:"type:varchar(20);not null;index"`
	SignalType string `gorm:"type:varchar(50)"`

	ShouldSend   bool   `gorm:"not null"`
	Reason       string `gorm:"type:varchar(200);not null"`
	DelaySeconds int    `gorm:"not null;default:0"`
	Urgency      string `gorm:"type:varchar(20);not null;default:'normal'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (TimingDecision) TableName() string {
	return "smart_timing_decisions"
}
