package notifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"levelwatch/internal/alert"
)

// Notifier consumes the ordered alert list of one run. Formatting and
// delivery stay behind this boundary; the engine only hands events over.
type Notifier interface {
	Notify(ctx context.Context, events []alert.Event) error
}

// Log writes alerts to the structured log. Default when no delivery channel
// is configured.
type Log struct {
	Logger *zap.Logger
}

func (n *Log) Notify(_ context.Context, events []alert.Event) error {
	if n == nil || n.Logger == nil {
		return nil
	}
	for _, ev := range events {
		n.Logger.Info("alert",
			zap.String("type", string(ev.Type)),
			zap.String("ticker", ev.Ticker),
			zap.String("category", string(ev.Category)),
			zap.String("session", string(ev.Session)),
			zap.String("price", ev.Price.String()),
			zap.String("threshold", ev.Threshold.String()),
			zap.String("sentiment", string(ev.Sentiment)))
	}
	return nil
}

// FormatEvent renders one alert as a single human-readable line, shared by
// the delivery channels.
func FormatEvent(ev alert.Event) string {
	return fmt.Sprintf("%s %s [%s/%s] price %s crossed %s (%s)",
		ev.Type, ev.Ticker, ev.Category, ev.Session,
		ev.Price.StringFixed(2), ev.Threshold.StringFixed(2), ev.Sentiment)
}

func formatBatch(events []alert.Event) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, FormatEvent(ev))
	}
	return strings.Join(lines, "\n")
}
