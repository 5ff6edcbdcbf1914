package models

import "time"

// TimingPreference holds a user's smart-timing settings for one ticker.
// A row with an empty TickerSymbol is the user's global fallback.
type TimingPreference struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	UserID       uint64 `gorm:"not null;uniqueIndex:idx_timing_pref_user_ticker"`
	TickerSymbol string `gorm:"type:varchar(20);not null;default:'';uniqueIndex:idx_timing_pref_user_ticker"`

	Enabled bool `gorm:"not null;default:true"`

	// Quiet hours are local hours [start, end) in Timezone; start > end
	// means the window wraps midnight.
	QuietHoursStart int    `gorm:"not null;default:22"`
	QuietHoursEnd   int    `gorm:"not null;default:8"`
	Timezone        string `gorm:"type:varchar(50);not null;default:'UTC'"`

	MaxHourlyNotifications int     `gorm:"not null;default:10"`
	VolatilityThreshold    float64 `gorm:"not null;default:0.1"`
	HighVolatilityPause    bool    `gorm:"not null;default:false"`
	SignalFrequency        string  `gorm:"type:varchar(10);not null;default:'medium'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TimingPreference) TableName() string {
	return "smart_timing_preferences"
}

const (
	FrequencyLow    = "low"
	FrequencyMedium = "medium"
	FrequencyHigh   = "high"
)
