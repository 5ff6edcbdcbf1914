package db

import (
	"proudprofit/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Signal{},
		&models.AlertRule{},
		&models.TimingPreference{},
		&models.NotificationIntent{},
		&models.TimingDecision{},
		&models.UserProfile{},
	)
}
