package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"levelwatch/internal/alert"
	"levelwatch/internal/contract"
	"levelwatch/internal/gateway"
	"levelwatch/internal/models"
)

type fakeStore struct {
	instruments []models.Instrument
	listErr     error

	savedSession models.Session
	saved        []models.Instrument
	saveErr      error
}

func (s *fakeStore) ListActiveInstruments(context.Context) ([]models.Instrument, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.instruments, nil
}

func (s *fakeStore) SaveSessionPrices(_ context.Context, session models.Session, instruments []models.Instrument) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.savedSession = session
	s.saved = instruments
	return nil
}

type fakeConn struct {
	quotes      map[string]gateway.Quote // by symbol
	failResolve map[string]bool

	subs     map[gateway.SubID]string
	nextID   gateway.SubID
	unsubbed int
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		quotes:      map[string]gateway.Quote{},
		failResolve: map[string]bool{},
		subs:        map[gateway.SubID]string{},
	}
}

func (c *fakeConn) ResolveContract(_ context.Context, skeleton contract.Descriptor) (contract.Descriptor, error) {
	if c.failResolve[skeleton.Symbol] {
		return contract.Descriptor{}, fmt.Errorf("no security definition for %s", skeleton.Symbol)
	}
	resolved := skeleton
	resolved.ConID = int64(len(skeleton.Symbol)) * 1000
	return resolved, nil
}

func (c *fakeConn) Subscribe(_ context.Context, desc contract.Descriptor) (gateway.SubID, error) {
	c.nextID++
	c.subs[c.nextID] = desc.Symbol
	return c.nextID, nil
}

func (c *fakeConn) Quote(id gateway.SubID) gateway.Quote {
	symbol, ok := c.subs[id]
	if !ok {
		return gateway.EmptyQuote()
	}
	q, ok := c.quotes[symbol]
	if !ok {
		return gateway.EmptyQuote()
	}
	return q
}

func (c *fakeConn) Unsubscribe(_ context.Context, id gateway.SubID) error {
	delete(c.subs, id)
	c.unsubbed++
	return nil
}

func (c *fakeConn) Close(context.Context) error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(context.Context) (gateway.Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func lastQuote(last float64) gateway.Quote {
	q := gateway.EmptyQuote()
	q.Last = last
	return q
}

func watchRow(id uint64, ticker string, sentiment models.Sentiment, buy, sell string) models.Instrument {
	inst := models.Instrument{
		ID:        id,
		Ticker:    ticker,
		Category:  models.CategoryDaily,
		Sentiment: sentiment,
		IsActive:  true,
	}
	if buy != "" {
		d := decimal.RequireFromString(buy)
		inst.BuyThreshold = &d
	}
	if sell != "" {
		d := decimal.RequireFromString(sell)
		inst.SellThreshold = &d
	}
	return inst
}

func newRunner(store *fakeStore, dialer *fakeDialer) *Runner {
	return &Runner{
		Repo:         store,
		Gateway:      dialer,
		Resolver:     &contract.Resolver{},
		SnapshotWait: time.Millisecond,
	}
}

func TestRunResilience(t *testing.T) {
	conn := newFakeConn()
	conn.failResolve["T3"] = true
	for i, ticker := range []string{"T1", "T2", "T3", "T4", "T5"} {
		conn.quotes[ticker] = lastQuote(float64(10 * (i + 1)))
	}
	store := &fakeStore{}
	for i, ticker := range []string{"T1", "T2", "T3", "T4", "T5"} {
		store.instruments = append(store.instruments,
			watchRow(uint64(i+1), ticker, models.SentimentBullish, "25", "45"))
	}

	report, err := newRunner(store, &fakeDialer{conn: conn}).Run(context.Background(), models.SessionAM)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Checked != 5 || report.Updated != 4 || report.Errors != 1 {
		t.Fatalf("report = checked %d updated %d errors %d", report.Checked, report.Updated, report.Errors)
	}
	if len(store.saved) != 4 {
		t.Fatalf("committed %d rows, want 4", len(store.saved))
	}
	for _, inst := range store.saved {
		if inst.Ticker == "T3" {
			t.Fatalf("failed instrument committed")
		}
		if inst.AMPrice == nil || inst.LastPriceUpdate == nil {
			t.Fatalf("%s committed without price/update stamp", inst.Ticker)
		}
	}
	// T1 at 10 <= buy 25 fires BUY; T2 at 20 fires BUY; T5 at 50 >= sell 45
	// fires SELL; T4 at 40 is quiet.
	if len(report.Alerts) != 3 {
		t.Fatalf("alerts = %v", report.Alerts)
	}
	if conn.unsubbed != 4 {
		t.Fatalf("unsubscribed %d times, want 4", conn.unsubbed)
	}
	if !conn.closed {
		t.Fatalf("gateway connection not closed")
	}
}

func TestRunConnectionFailureIsFatal(t *testing.T) {
	store := &fakeStore{instruments: []models.Instrument{watchRow(1, "AAPL", models.SentimentBullish, "100", "")}}
	_, err := newRunner(store, &fakeDialer{err: errors.New("refused")}).Run(context.Background(), models.SessionAM)
	if err == nil {
		t.Fatalf("dial failure must fail the run")
	}
	if store.saved != nil {
		t.Fatalf("nothing may commit after a failed dial")
	}
}

func TestRunCommitFailurePropagates(t *testing.T) {
	conn := newFakeConn()
	conn.quotes["AAPL"] = lastQuote(90)
	store := &fakeStore{
		instruments: []models.Instrument{watchRow(1, "AAPL", models.SentimentBullish, "100", "")},
		saveErr:     errors.New("deadlock"),
	}
	_, err := newRunner(store, &fakeDialer{conn: conn}).Run(context.Background(), models.SessionAM)
	if err == nil {
		t.Fatalf("commit failure must fail the run")
	}
	if !conn.closed {
		t.Fatalf("connection must close on every exit path")
	}
}

func TestRunWritesSessionSlot(t *testing.T) {
	conn := newFakeConn()
	conn.quotes["AAPL"] = lastQuote(101.5)
	store := &fakeStore{instruments: []models.Instrument{watchRow(1, "AAPL", models.SentimentNeutral, "", "")}}

	report, err := newRunner(store, &fakeDialer{conn: conn}).Run(context.Background(), models.SessionPM)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.savedSession != models.SessionPM {
		t.Fatalf("saved session = %s", store.savedSession)
	}
	inst := store.saved[0]
	if inst.PMPrice == nil || !inst.PMPrice.Equal(decimal.NewFromFloat(101.5)) {
		t.Fatalf("pm price = %v", inst.PMPrice)
	}
	if inst.AMPrice != nil {
		t.Fatalf("am slot touched by pm run")
	}
	// Neutral sentiment: priced but silent.
	if len(report.Alerts) != 0 {
		t.Fatalf("neutral instrument alerted: %v", report.Alerts)
	}
}

func TestRunStampsLastAlertSent(t *testing.T) {
	conn := newFakeConn()
	conn.quotes["AAPL"] = lastQuote(90)
	store := &fakeStore{instruments: []models.Instrument{watchRow(1, "AAPL", models.SentimentBullish, "100", "")}}

	report, err := newRunner(store, &fakeDialer{conn: conn}).Run(context.Background(), models.SessionAM)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Alerts) != 1 || report.Alerts[0].Type != alert.TypeBuy {
		t.Fatalf("alerts = %v", report.Alerts)
	}
	if store.saved[0].LastAlertSent == nil {
		t.Fatalf("last_alert_sent not stamped")
	}
}

func TestRunNoUsablePriceCountsAsError(t *testing.T) {
	conn := newFakeConn()
	conn.quotes["AAPL"] = gateway.EmptyQuote()
	store := &fakeStore{instruments: []models.Instrument{watchRow(1, "AAPL", models.SentimentBullish, "100", "")}}

	report, err := newRunner(store, &fakeDialer{conn: conn}).Run(context.Background(), models.SessionAM)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Errors != 1 || report.Updated != 0 {
		t.Fatalf("report = %+v", report)
	}
	if conn.unsubbed != 1 {
		t.Fatalf("subscription leaked on the no-price path")
	}
}

func TestReducePrice(t *testing.T) {
	mk := func(last, close, bid, ask float64) gateway.Quote {
		q := gateway.EmptyQuote()
		q.Last, q.Close, q.Bid, q.Ask = last, close, bid, ask
		return q
	}
	nan := gateway.EmptyQuote().Last

	tests := []struct {
		name   string
		quote  gateway.Quote
		want   float64
		wantOK bool
	}{
		{"last wins over everything", mk(101, 99, 100, 102), 101, true},
		{"invalid last falls to close", mk(nan, 99, 100, 102), 99, true},
		{"zero last falls to close", mk(0, 99, 100, 102), 99, true},
		{"negative last falls to close", mk(-1, 99, 100, 102), 99, true},
		{"no last or close uses midpoint", mk(nan, nan, 100, 102), 101, true},
		{"midpoint needs both sides", mk(nan, nan, 100, nan), 0, false},
		{"midpoint rejects zero side", mk(nan, nan, 0, 102), 0, false},
		{"nothing usable", mk(nan, nan, nan, nan), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReducePrice(tt.quote)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ReducePrice = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
