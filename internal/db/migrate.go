package db

import (
	"levelwatch/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Instrument{},
		&models.AlertEvent{},
		&models.RunState{},
	)
}
