package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"levelwatch/internal/models"
)

type ListInstrumentsParams struct {
	Category   *models.Category
	ActiveOnly bool
	Limit      int
	Offset     int
}

type ListAlertEventsParams struct {
	Ticker   *string
	Category *models.Category
	Session  *models.Session
	Since    *time.Time
	Limit    int
	Offset   int
}

// Repository is the persistence surface of the engine. Methods taking a
// *gorm.DB run inside a caller-owned transaction (InTx); everything else
// commits on its own.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	ListActiveInstruments(ctx context.Context) ([]models.Instrument, error)
	ListInstruments(ctx context.Context, params ListInstrumentsParams) ([]models.Instrument, error)
	GetInstrument(ctx context.Context, ticker string, category models.Category) (*models.Instrument, error)

	// SaveResolvedContract commits one contract-cache blob immediately,
	// outside any run batch.
	SaveResolvedContract(ctx context.Context, instrumentID uint64, blob datatypes.JSON) error

	// SaveSessionPrices is the single batch commit of a price run: session
	// slot, last_price_update, and last_alert_sent for every updated row, in
	// one transaction.
	SaveSessionPrices(ctx context.Context, session models.Session, instruments []models.Instrument) error

	// Category replace.
	DeleteCategoryTx(tx *gorm.DB, category models.Category) (int64, error)
	InsertInstrumentsTx(tx *gorm.DB, items []models.Instrument) error

	// Alert history.
	InsertAlertEvents(ctx context.Context, items []models.AlertEvent) error
	ListAlertEvents(ctx context.Context, params ListAlertEventsParams) ([]models.AlertEvent, error)

	// Run reports.
	GetRunState(ctx context.Context, scope string) (*models.RunState, error)
	SaveRunState(ctx context.Context, state *models.RunState) error
	ListRunStates(ctx context.Context) ([]models.RunState, error)
}
