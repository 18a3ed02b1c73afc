package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"levelwatch/internal/models"
	"levelwatch/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Instruments ------------------------------------------------------------

func (s *Store) ListActiveInstruments(ctx context.Context) ([]models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Instrument
	if err := s.db.WithContext(ctx).
		Model(&models.Instrument{}).
		Where("is_active = ?", true).
		Order("category asc, ticker asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListInstruments(ctx context.Context, params repository.ListInstrumentsParams) ([]models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Instrument{})
	if params.Category != nil && *params.Category != "" {
		query = query.Where("category = ?", *params.Category)
	}
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.Instrument
	if err := query.Order("category asc, ticker asc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetInstrument(ctx context.Context, ticker string, category models.Category) (*models.Instrument, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	var item models.Instrument
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND category = ?", ticker, category).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveResolvedContract(ctx context.Context, instrumentID uint64, blob datatypes.JSON) error {
	if s == nil || s.db == nil || instrumentID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Instrument{}).
		Where("id = ?", instrumentID).
		Updates(map[string]any{
			"resolved_contract": blob,
			"contract_resolved": true,
		}).Error
}

func (s *Store) SaveSessionPrices(ctx context.Context, session models.Session, instruments []models.Instrument) error {
	if s == nil || s.db == nil || len(instruments) == 0 {
		return nil
	}
	priceColumn := "am_price"
	if session == models.SessionPM {
		priceColumn = "pm_price"
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range instruments {
			inst := &instruments[i]
			if inst.ID == 0 {
				continue
			}
			updates := map[string]any{
				priceColumn:         inst.SessionPrice(session),
				"last_price_update": inst.LastPriceUpdate,
				"last_alert_sent":   inst.LastAlertSent,
			}
			if err := tx.Model(&models.Instrument{}).
				Where("id = ?", inst.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Category replace -------------------------------------------------------

func (s *Store) DeleteCategoryTx(tx *gorm.DB, category models.Category) (int64, error) {
	if tx == nil {
		return 0, nil
	}
	res := tx.Where("category = ?", category).Delete(&models.Instrument{})
	return res.RowsAffected, res.Error
}

func (s *Store) InsertInstrumentsTx(tx *gorm.DB, items []models.Instrument) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.CreateInBatches(items, 200).Error
}

// --- Alert history ----------------------------------------------------------

func (s *Store) InsertAlertEvents(ctx context.Context, items []models.AlertEvent) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (s *Store) ListAlertEvents(ctx context.Context, params repository.ListAlertEventsParams) ([]models.AlertEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AlertEvent{})
	if params.Ticker != nil && strings.TrimSpace(*params.Ticker) != "" {
		query = query.Where("ticker = ?", strings.ToUpper(strings.TrimSpace(*params.Ticker)))
	}
	if params.Category != nil && *params.Category != "" {
		query = query.Where("category = ?", *params.Category)
	}
	if params.Session != nil && *params.Session != "" {
		query = query.Where("session = ?", *params.Session)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.AlertEvent
	if err := query.Order("created_at desc, id desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Run reports ------------------------------------------------------------

func (s *Store) GetRunState(ctx context.Context, scope string) (*models.RunState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.RunState
	err := s.db.WithContext(ctx).Where("scope = ?", scope).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveRunState(ctx context.Context, state *models.RunState) error {
	if s == nil || s.db == nil || state == nil || state.Scope == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		UpdateAll: true,
	}).Create(state).Error
}

func (s *Store) ListRunStates(ctx context.Context) ([]models.RunState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.RunState
	if err := s.db.WithContext(ctx).
		Model(&models.RunState{}).
		Order("scope asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
