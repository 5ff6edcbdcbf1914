package models

import "time"

// UserProfile carries the delivery destinations and channel switches the
// dispatcher needs. Account management lives in a separate service; this
// table is a read-mostly projection of it.
type UserProfile struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;uniqueIndex"`

	Email          *string `gorm:"type:varchar(200)"`
	Phone          *string `gorm:"type:varchar(30)"`
	TelegramChatID *int64
	PushToken      *string `gorm:"type:varchar(300)"`

	EmailEnabled    bool `gorm:"not null;default:true"`
	SMSEnabled      bool `gorm:"column:sms_enabled;not null;default:false"`
	TelegramEnabled bool `gorm:"not null;default:false"`
	AppEnabled      bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
