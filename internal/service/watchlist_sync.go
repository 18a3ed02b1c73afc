package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"levelwatch/internal/models"
	"levelwatch/internal/repository"
)

// IncomingInstrument is one row of an extraction batch. The extraction
// pipeline has already validated it; this service only normalizes.
type IncomingInstrument struct {
	Ticker        string           `json:"ticker"`
	NameHint      *string          `json:"name_hint,omitempty"`
	Sentiment     models.Sentiment `json:"sentiment,omitempty"`
	BuyThreshold  *decimal.Decimal `json:"buy_threshold,omitempty"`
	SellThreshold *decimal.Decimal `json:"sell_threshold,omitempty"`
}

type ReplaceResult struct {
	Category models.Category `json:"category"`
	SourceID string          `json:"source_id"`
	Created  int             `json:"created"`
	Deleted  int             `json:"deleted"`
}

// WatchlistSyncService reconciles a category against the newest extraction
// batch: full delete-then-insert keyed by source id, never a field merge. A
// ticker absent from the new batch disappears; thresholds are wholly
// replaced. Delete and inserts share one transaction, so a failure leaves the
// old category contents untouched.
type WatchlistSyncService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *WatchlistSyncService) Replace(ctx context.Context, category models.Category, sourceID string, rows []IncomingInstrument) (ReplaceResult, error) {
	result := ReplaceResult{Category: category, SourceID: sourceID}
	if !category.Valid() {
		return result, fmt.Errorf("invalid category: %s", category)
	}
	if strings.TrimSpace(sourceID) == "" {
		return result, fmt.Errorf("source id is required")
	}

	items := make([]models.Instrument, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		ticker := strings.ToUpper(strings.TrimSpace(row.Ticker))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		items = append(items, models.Instrument{
			Ticker:        ticker,
			Category:      category,
			NameHint:      row.NameHint,
			Sentiment:     normalizeSentiment(row.Sentiment),
			BuyThreshold:  positiveOrNil(row.BuyThreshold),
			SellThreshold: positiveOrNil(row.SellThreshold),
			SourceID:      sourceID,
			IsActive:      true,
		})
	}

	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		deleted, err := s.Repo.DeleteCategoryTx(tx, category)
		if err != nil {
			return err
		}
		result.Deleted = int(deleted)
		if err := s.Repo.InsertInstrumentsTx(tx, items); err != nil {
			return err
		}
		result.Created = len(items)
		return nil
	})
	if err != nil {
		return ReplaceResult{Category: category, SourceID: sourceID}, err
	}

	if s.Logger != nil {
		s.Logger.Info("watchlist category replaced",
			zap.String("category", string(category)),
			zap.String("source_id", sourceID),
			zap.Int("created", result.Created),
			zap.Int("deleted", result.Deleted))
	}
	return result, nil
}

func normalizeSentiment(s models.Sentiment) models.Sentiment {
	switch models.Sentiment(strings.ToLower(string(s))) {
	case models.SentimentBullish:
		return models.SentimentBullish
	case models.SentimentBearish:
		return models.SentimentBearish
	case models.SentimentNeutral:
		return models.SentimentNeutral
	default:
		return models.SentimentUnset
	}
}

func positiveOrNil(d *decimal.Decimal) *decimal.Decimal {
	if d == nil || d.Sign() <= 0 {
		return nil
	}
	return d
}
