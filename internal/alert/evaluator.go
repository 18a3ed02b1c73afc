// Package alert decides whether an instrument's session price has crossed a
// newsletter threshold. Threshold fields are generic; their trading meaning
// is supplied entirely by sentiment at evaluation time. For a bullish
// instrument buy_threshold is support (BUY on a dip) and sell_threshold is
// resistance (SELL on a rally); for a bearish instrument the same two fields
// mean SHORT the rally and COVER at support. Swapping this mapping silently
// inverts trading signals.
package alert

import (
	"github.com/shopspring/decimal"

	"levelwatch/internal/models"
)

type Type string

const (
	TypeBuy   Type = "BUY"
	TypeSell  Type = "SELL"
	TypeShort Type = "SHORT"
	TypeCover Type = "COVER"
)

// Event is one fired alert, handed to the notifier in run order.
type Event struct {
	Ticker    string
	Category  models.Category
	Session   models.Session
	Type      Type
	Price     decimal.Decimal
	Threshold decimal.Decimal
	Sentiment models.Sentiment
}

// Evaluate computes the alerts an instrument fires for the given session,
// purely from its current fields. It keeps no history: re-evaluating
// unchanged state re-fires the same alerts. Inverted thresholds can fire
// both events of a branch; that is not suppressed.
func Evaluate(inst models.Instrument, session models.Session) []Event {
	if !inst.IsActive {
		return nil
	}
	price := inst.SessionPrice(session)
	if price == nil {
		return nil
	}
	if inst.Sentiment != models.SentimentBullish && inst.Sentiment != models.SentimentBearish {
		return nil
	}

	fire := func(t Type, threshold decimal.Decimal) Event {
		return Event{
			Ticker:    inst.Ticker,
			Category:  inst.Category,
			Session:   session,
			Type:      t,
			Price:     *price,
			Threshold: threshold,
			Sentiment: inst.Sentiment,
		}
	}

	var events []Event
	if inst.Sentiment == models.SentimentBullish {
		if inst.BuyThreshold != nil && price.Cmp(*inst.BuyThreshold) <= 0 {
			events = append(events, fire(TypeBuy, *inst.BuyThreshold))
		}
		if inst.SellThreshold != nil && price.Cmp(*inst.SellThreshold) >= 0 {
			events = append(events, fire(TypeSell, *inst.SellThreshold))
		}
		return events
	}

	if inst.SellThreshold != nil && price.Cmp(*inst.SellThreshold) >= 0 {
		events = append(events, fire(TypeShort, *inst.SellThreshold))
	}
	if inst.BuyThreshold != nil && price.Cmp(*inst.BuyThreshold) <= 0 {
		events = append(events, fire(TypeCover, *inst.BuyThreshold))
	}
	return events
}
