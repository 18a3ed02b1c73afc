package models

import (
	"time"

	"gorm.io/datatypes"
)

// RunState tracks the outcome of the most recent price run per session scope
// ("price_run:am" / "price_run:pm").
type RunState struct {
	Scope         string         `gorm:"primaryKey;type:text"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (RunState) TableName() string {
	return "run_states"
}

func RunScope(session Session) string {
	if session == SessionPM {
		return "price_run:pm"
	}
	return "price_run:am"
}
