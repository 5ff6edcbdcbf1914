package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRule is a user-owned condition that, when satisfied, should produce
// a notification. A one-shot rule deactivates itself on first trigger and
// never fires again.
type AlertRule struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`
	Ticker string `gorm:"type:varchar(20);not null;index"`

	Condition   string          `gorm:"type:varchar(20);not null"`
	TargetValue decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	IsActive bool `gorm:"not null;default:true;index"`
	OneShot  bool `gorm:"not null;default:true"`

	LastTriggeredAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (AlertRule) TableName() string {
	return "alert_rules"
}

const (
	ConditionPriceAbove  = "price_above"
	ConditionPriceBelow  = "price_below"
	ConditionChangeAbove = "change_above"
	ConditionChangeBelow = "change_below"
)

// ValidCondition reports whether c is one of the supported rule conditions.
func ValidCondition(c string) bool {
	switch c {
	case ConditionPriceAbove, ConditionPriceBelow, ConditionChangeAbove, ConditionChangeBelow:
		return true
	}
	return false
}
