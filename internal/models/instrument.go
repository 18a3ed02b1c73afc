package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Category string

const (
	CategoryDaily         Category = "daily"
	CategoryEtfs          Category = "etfs"
	CategoryIdeas         Category = "ideas"
	CategoryDigitalAssets Category = "digitalassets"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryDaily, CategoryEtfs, CategoryIdeas, CategoryDigitalAssets:
		return true
	}
	return false
}

type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
	SentimentUnset   Sentiment = ""
)

type Session string

const (
	SessionAM Session = "AM"
	SessionPM Session = "PM"
)

func (s Session) Valid() bool {
	return s == SessionAM || s == SessionPM
}

// Instrument is one tracked ticker within one category. Ticker plus category
// form the natural key; the same ticker may exist in two categories with
// different thresholds.
type Instrument struct {
	ID       uint64   `gorm:"primaryKey;autoIncrement"`
	Ticker   string   `gorm:"type:varchar(32);not null;uniqueIndex:uq_instruments_ticker_category"`
	Category Category `gorm:"type:varchar(20);not null;uniqueIndex:uq_instruments_ticker_category;index"`
	NameHint *string  `gorm:"type:text"`

	Sentiment     Sentiment        `gorm:"type:varchar(10)"`
	BuyThreshold  *decimal.Decimal `gorm:"type:numeric(20,6)"`
	SellThreshold *decimal.Decimal `gorm:"type:numeric(20,6)"`

	// Per-session price slots; only a price run for that session writes them.
	AMPrice         *decimal.Decimal `gorm:"column:am_price;type:numeric(20,6)"`
	PMPrice         *decimal.Decimal `gorm:"column:pm_price;type:numeric(20,6)"`
	LastPriceUpdate *time.Time       `gorm:"type:timestamptz"`

	// Broker-contract resolution cache, opaque to everything but the contract
	// package. Immutable once set for the lifetime of the row.
	ResolvedContract datatypes.JSON `gorm:"type:jsonb"`
	ContractResolved bool           `gorm:"not null;default:false"`

	SourceID string `gorm:"type:varchar(64);not null;index"`
	IsActive bool   `gorm:"not null;default:true"`

	// Stamped when an alert fires. Nothing reads it yet; it is the hook a
	// future re-alert suppression policy would use.
	LastAlertSent *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Instrument) TableName() string {
	return "watchlist_instruments"
}

// CurrentPrice returns the freshest session price: PM strictly overrides AM
// within the trading day. Nil when neither session has run.
func (i *Instrument) CurrentPrice() *decimal.Decimal {
	if i.PMPrice != nil {
		return i.PMPrice
	}
	return i.AMPrice
}

// SessionPrice returns the slot for the given session.
func (i *Instrument) SessionPrice(session Session) *decimal.Decimal {
	if session == SessionPM {
		return i.PMPrice
	}
	return i.AMPrice
}

// SetSessionPrice writes the slot for the given session and stamps
// LastPriceUpdate.
func (i *Instrument) SetSessionPrice(session Session, price decimal.Decimal, at time.Time) {
	if session == SessionPM {
		i.PMPrice = &price
	} else {
		i.AMPrice = &price
	}
	i.LastPriceUpdate = &at
}

// AlertEligible reports whether the instrument can fire any alert at all:
// active, priced, directional sentiment, and at least one threshold set.
func (i *Instrument) AlertEligible() bool {
	if !i.IsActive || i.CurrentPrice() == nil {
		return false
	}
	if i.Sentiment != SentimentBullish && i.Sentiment != SentimentBearish {
		return false
	}
	return i.BuyThreshold != nil || i.SellThreshold != nil
}
