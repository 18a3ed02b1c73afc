package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertEvent is the persisted record of a fired alert, append-only. The live
// event handed to notifiers is alert.Event; this row exists so the HTTP
// surface can list alert history.
type AlertEvent struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement"`
	Ticker    string          `gorm:"type:varchar(32);not null;index"`
	Category  Category        `gorm:"type:varchar(20);not null;index"`
	Session   Session         `gorm:"type:varchar(2);not null"`
	AlertType string          `gorm:"type:varchar(10);not null;index"`
	Price     decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Threshold decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Sentiment Sentiment       `gorm:"type:varchar(10);not null"`
	CreatedAt time.Time       `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (AlertEvent) TableName() string {
	return "alert_events"
}
