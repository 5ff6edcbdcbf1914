package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Signal is a timestamped trading event for a ticker, produced by webhook
// ingestion or manual admin entry. Immutable after creation except IsActive.
type Signal struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Ticker string `gorm:"type:varchar(20);not null;index"`
	Action string `gorm:"type:varchar(10);not null"`

	Price     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Timeframe string          `gorm:"type:varchar(20)"`
	Strategy  string          `gorm:"type:varchar(50)"`
	Message   string          `gorm:"type:text"`
	Source    string          `gorm:"type:varchar(50);not null;index"`

	// Raw webhook body as received, kept for audit and replay.
	Payload datatypes.JSON `gorm:"type:jsonb"`

	Timestamp time.Time `gorm:"type:timestamptz;not null;index"`
	IsActive  bool      `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Signal) TableName() string {
	return "signals"
}

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)
