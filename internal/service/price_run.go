package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"levelwatch/internal/fetcher"
	"levelwatch/internal/models"
	"levelwatch/internal/notifier"
)

// PriceRunner is the slice of the fetcher this service needs.
type PriceRunner interface {
	Run(ctx context.Context, session models.Session) (fetcher.Report, error)
}

// RunStore persists run bookkeeping.
type RunStore interface {
	SaveRunState(ctx context.Context, state *models.RunState) error
	InsertAlertEvents(ctx context.Context, items []models.AlertEvent) error
}

type runStats struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
	Alerts  int `json:"alerts"`
}

// PriceRunService wraps a fetcher run with the surrounding bookkeeping: run
// state per session scope, persisted alert history, and notifier dispatch in
// run order.
type PriceRunService struct {
	Runner   PriceRunner
	Repo     RunStore
	Notifier notifier.Notifier
	Logger   *zap.Logger
}

func (s *PriceRunService) Execute(ctx context.Context, session models.Session) (fetcher.Report, error) {
	attemptAt := time.Now().UTC()
	report, runErr := s.Runner.Run(ctx, session)

	state := &models.RunState{
		Scope:         models.RunScope(session),
		LastAttemptAt: &attemptAt,
	}
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	} else {
		state.LastSuccessAt = &attemptAt
		if raw, err := json.Marshal(runStats{
			Checked: report.Checked,
			Updated: report.Updated,
			Errors:  report.Errors,
			Alerts:  len(report.Alerts),
		}); err == nil {
			state.StatsJSON = raw
		}
	}
	if err := s.Repo.SaveRunState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("save run state failed", zap.String("scope", state.Scope), zap.Error(err))
	}
	if runErr != nil {
		return report, runErr
	}

	if len(report.Alerts) > 0 {
		records := make([]models.AlertEvent, 0, len(report.Alerts))
		for _, ev := range report.Alerts {
			records = append(records, models.AlertEvent{
				Ticker:    ev.Ticker,
				Category:  ev.Category,
				Session:   ev.Session,
				AlertType: string(ev.Type),
				Price:     ev.Price,
				Threshold: ev.Threshold,
				Sentiment: ev.Sentiment,
			})
		}
		if err := s.Repo.InsertAlertEvents(ctx, records); err != nil && s.Logger != nil {
			s.Logger.Warn("persist alert events failed", zap.Error(err))
		}
		if s.Notifier != nil {
			if err := s.Notifier.Notify(ctx, report.Alerts); err != nil && s.Logger != nil {
				s.Logger.Warn("notify failed", zap.Error(err))
			}
		}
	}
	return report, nil
}
