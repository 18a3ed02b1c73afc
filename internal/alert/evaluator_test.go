package alert

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"levelwatch/internal/models"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func instrument(sentiment models.Sentiment, buy, sell, price *decimal.Decimal) models.Instrument {
	return models.Instrument{
		Ticker:        "AAPL",
		Category:      models.CategoryDaily,
		Sentiment:     sentiment,
		BuyThreshold:  buy,
		SellThreshold: sell,
		AMPrice:       price,
		IsActive:      true,
	}
}

func types(events []Event) []Type {
	if len(events) == 0 {
		return nil
	}
	out := make([]Type, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestEvaluateAsymmetry(t *testing.T) {
	tests := []struct {
		name      string
		sentiment models.Sentiment
		price     string
		want      []Type
	}{
		{"bullish at support fires buy", models.SentimentBullish, "100", []Type{TypeBuy}},
		{"bullish below support fires buy", models.SentimentBullish, "95", []Type{TypeBuy}},
		{"bullish at resistance fires sell", models.SentimentBullish, "120", []Type{TypeSell}},
		{"bullish between thresholds is quiet", models.SentimentBullish, "110", nil},
		{"bearish at resistance fires short", models.SentimentBearish, "120", []Type{TypeShort}},
		{"bearish at support fires cover", models.SentimentBearish, "100", []Type{TypeCover}},
		{"bearish between thresholds is quiet", models.SentimentBearish, "110", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := instrument(tt.sentiment, dec("100"), dec("120"), dec(tt.price))
			got := types(Evaluate(inst, models.SessionAM))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateNeutralNeverFires(t *testing.T) {
	for _, sentiment := range []models.Sentiment{models.SentimentNeutral, models.SentimentUnset} {
		inst := instrument(sentiment, dec("100"), dec("120"), dec("50"))
		if events := Evaluate(inst, models.SessionAM); len(events) != 0 {
			t.Fatalf("sentiment %q fired %v", sentiment, types(events))
		}
	}
}

func TestEvaluateInactiveNeverFires(t *testing.T) {
	inst := instrument(models.SentimentBullish, dec("100"), dec("120"), dec("50"))
	inst.IsActive = false
	if events := Evaluate(inst, models.SessionAM); len(events) != 0 {
		t.Fatalf("inactive instrument fired %v", types(events))
	}
}

func TestEvaluateMissingPriceNeverFires(t *testing.T) {
	inst := instrument(models.SentimentBullish, dec("100"), dec("120"), nil)
	if events := Evaluate(inst, models.SessionAM); len(events) != 0 {
		t.Fatalf("unpriced instrument fired %v", types(events))
	}
}

func TestEvaluateMissingThresholdSkipsBranch(t *testing.T) {
	inst := instrument(models.SentimentBullish, nil, dec("120"), dec("50"))
	if got := types(Evaluate(inst, models.SessionAM)); got != nil {
		t.Fatalf("price 50 with no buy threshold fired %v", got)
	}
	inst = instrument(models.SentimentBullish, nil, dec("120"), dec("130"))
	if got := types(Evaluate(inst, models.SessionAM)); !reflect.DeepEqual(got, []Type{TypeSell}) {
		t.Fatalf("got %v, want [SELL]", got)
	}
}

func TestEvaluateCrossedThresholdsFireBoth(t *testing.T) {
	// Inverted levels: buy above sell. Both legs trip and neither suppresses
	// the other.
	inst := instrument(models.SentimentBullish, dec("120"), dec("100"), dec("110"))
	got := types(Evaluate(inst, models.SessionAM))
	if !reflect.DeepEqual(got, []Type{TypeBuy, TypeSell}) {
		t.Fatalf("got %v, want [BUY SELL]", got)
	}
}

func TestEvaluateUsesSessionSlot(t *testing.T) {
	inst := instrument(models.SentimentBullish, dec("100"), dec("120"), dec("110"))
	pm := decimal.RequireFromString("99")
	inst.PMPrice = &pm
	got := types(Evaluate(inst, models.SessionPM))
	if !reflect.DeepEqual(got, []Type{TypeBuy}) {
		t.Fatalf("pm evaluation got %v, want [BUY]", got)
	}
	// AM slot untouched by the PM evaluation.
	if got := types(Evaluate(inst, models.SessionAM)); got != nil {
		t.Fatalf("am evaluation got %v, want none", got)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	inst := instrument(models.SentimentBearish, dec("100"), dec("120"), dec("125"))
	first := Evaluate(inst, models.SessionAM)
	second := Evaluate(inst, models.SessionAM)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("evaluate not idempotent: %v vs %v", first, second)
	}
	if len(first) != 1 || first[0].Type != TypeShort {
		t.Fatalf("got %v, want single SHORT", types(first))
	}
	if !first[0].Threshold.Equal(decimal.RequireFromString("120")) {
		t.Fatalf("event threshold = %s, want 120", first[0].Threshold)
	}
	if !first[0].Price.Equal(decimal.RequireFromString("125")) {
		t.Fatalf("event price = %s, want 125", first[0].Price)
	}
}
