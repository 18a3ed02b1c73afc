package gateway

import (
	"context"
	"math"
	"time"

	"levelwatch/internal/contract"
)

// Quote is the current snapshot state of one subscription. The gateway pushes
// fields as they arrive; anything not yet received stays NaN.
type Quote struct {
	Last      float64
	Close     float64
	Bid       float64
	Ask       float64
	Volume    float64
	Timestamp time.Time
}

// EmptyQuote returns a quote with every price field absent.
func EmptyQuote() Quote {
	nan := math.NaN()
	return Quote{Last: nan, Close: nan, Bid: nan, Ask: nan, Volume: nan}
}

// ValidPrice reports whether a pushed field is usable: present, not NaN,
// strictly positive.
func ValidPrice(v float64) bool {
	return !math.IsNaN(v) && v > 0
}

// SubID identifies one snapshot subscription on a connection.
type SubID int64

// Conn is a live market-data gateway connection. A price run owns exactly one
// Conn for its whole duration.
type Conn interface {
	// ResolveContract completes an unresolved skeleton into a fully-qualified
	// descriptor, or errors when the gateway has no match.
	ResolveContract(ctx context.Context, skeleton contract.Descriptor) (contract.Descriptor, error)

	// Subscribe opens a snapshot subscription. The quote populates
	// asynchronously; callers wait a bounded interval before reading.
	Subscribe(ctx context.Context, desc contract.Descriptor) (SubID, error)

	// Quote reads the current snapshot state for a subscription.
	Quote(id SubID) Quote

	// Unsubscribe releases a snapshot subscription.
	Unsubscribe(ctx context.Context, id SubID) error

	Close(ctx context.Context) error
}

// Dialer opens gateway connections. A dial failure is fatal to the run that
// requested it.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
