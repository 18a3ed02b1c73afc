// Package fetcher drives the per-session price run: one gateway connection,
// a strictly sequential pass over the active watchlist, and a single batch
// commit of every price mutation at the end.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"levelwatch/internal/alert"
	"levelwatch/internal/contract"
	"levelwatch/internal/gateway"
	"levelwatch/internal/models"
)

// ErrNoPrice marks a snapshot whose whole fallback chain came up empty.
var ErrNoPrice = errors.New("no usable price")

// Store is the slice of persistence a run needs: the watchlist up front, one
// batch commit at the end.
type Store interface {
	ListActiveInstruments(ctx context.Context) ([]models.Instrument, error)
	SaveSessionPrices(ctx context.Context, session models.Session, instruments []models.Instrument) error
}

// Report aggregates one run. Per-instrument failures are counted, never
// raised; only connection and commit failures error the run itself.
type Report struct {
	Session models.Session
	Checked int
	Updated int
	Errors  int
	Alerts  []alert.Event
}

type Runner struct {
	Repo     Store
	Gateway  gateway.Dialer
	Resolver *contract.Resolver
	Logger   *zap.Logger

	// SnapshotWait is how long a subscription gets to populate before the
	// quote is read. The gateway pushes asynchronously, so the wait is a
	// bounded sleep, not an event.
	SnapshotWait time.Duration

	// Pace rate-limits the loop between instruments as outbound courtesy to
	// the gateway.
	Pace *rate.Limiter
}

// Run executes one session price run. The run owns its gateway connection
// exclusively: dialed up front (fatal on failure), released on every exit
// path. Instruments are processed in watchlist order; a failing instrument is
// logged, counted, and skipped.
func (r *Runner) Run(ctx context.Context, session models.Session) (Report, error) {
	report := Report{Session: session}

	conn, err := r.Gateway.Dial(ctx)
	if err != nil {
		return report, fmt.Errorf("gateway connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := conn.Close(closeCtx); cerr != nil && r.Logger != nil {
			r.Logger.Warn("gateway close failed", zap.Error(cerr))
		}
	}()

	instruments, err := r.Repo.ListActiveInstruments(ctx)
	if err != nil {
		return report, err
	}

	updated := make([]models.Instrument, 0, len(instruments))
	for i := range instruments {
		inst := &instruments[i]
		report.Checked++
		if err := r.fetchOne(ctx, conn, inst, session, &report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Errors++
			if r.Logger != nil {
				r.Logger.Warn("instrument skipped",
					zap.String("ticker", inst.Ticker),
					zap.String("category", string(inst.Category)),
					zap.Error(err))
			}
		} else {
			report.Updated++
			updated = append(updated, *inst)
		}
		if r.Pace != nil && i < len(instruments)-1 {
			if err := r.Pace.Wait(ctx); err != nil {
				return report, err
			}
		}
	}

	if err := r.Repo.SaveSessionPrices(ctx, session, updated); err != nil {
		return report, fmt.Errorf("commit price run: %w", err)
	}

	if r.Logger != nil {
		r.Logger.Info("price run finished",
			zap.String("session", string(session)),
			zap.Int("checked", report.Checked),
			zap.Int("updated", report.Updated),
			zap.Int("errors", report.Errors),
			zap.Int("alerts", len(report.Alerts)))
	}
	return report, nil
}

func (r *Runner) fetchOne(ctx context.Context, conn gateway.Conn, inst *models.Instrument, session models.Session, report *Report) error {
	desc, err := r.Resolver.Resolve(ctx, conn, inst)
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(ctx, desc)
	if err != nil {
		return err
	}
	defer func() {
		// Never accumulate open subscriptions across the loop.
		if uerr := conn.Unsubscribe(ctx, sub); uerr != nil && r.Logger != nil {
			r.Logger.Warn("unsubscribe failed", zap.String("ticker", inst.Ticker), zap.Error(uerr))
		}
	}()

	wait := r.SnapshotWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}

	quote := conn.Quote(sub)
	price, ok := ReducePrice(quote)
	if !ok {
		return fmt.Errorf("%s: %w", inst.Ticker, ErrNoPrice)
	}

	inst.SetSessionPrice(session, decimal.NewFromFloat(price), time.Now().UTC())

	events := alert.Evaluate(*inst, session)
	if len(events) > 0 {
		now := time.Now().UTC()
		inst.LastAlertSent = &now
		report.Alerts = append(report.Alerts, events...)
	}
	return nil
}

// ReducePrice collapses a snapshot to one usable price: last trade, else
// close, else bid/ask midpoint, each step guarded by present/not-NaN/positive.
func ReducePrice(q gateway.Quote) (float64, bool) {
	if gateway.ValidPrice(q.Last) {
		return q.Last, true
	}
	if gateway.ValidPrice(q.Close) {
		return q.Close, true
	}
	if gateway.ValidPrice(q.Bid) && gateway.ValidPrice(q.Ask) {
		return (q.Bid + q.Ask) / 2, true
	}
	return 0, false
}
