package contract

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"levelwatch/internal/asset"
	"levelwatch/internal/models"
)

// ErrNoMatch is returned (wrapped in ResolutionError) when the gateway finds
// no contract for a skeleton.
var ErrNoMatch = errors.New("no contract match")

// ResolutionError marks a per-instrument resolution failure. Callers skip the
// instrument for the run; the batch continues.
type ResolutionError struct {
	Ticker string
	Kind   asset.Kind
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s (%s): %v", e.Ticker, e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Gateway is the slice of the market-data connection the resolver needs.
type Gateway interface {
	ResolveContract(ctx context.Context, skeleton Descriptor) (Descriptor, error)
}

// Store persists the resolution cache. Contract blobs commit individually,
// outside the run's price batch, so an interrupted run keeps the resolutions
// it already paid for.
type Store interface {
	SaveResolvedContract(ctx context.Context, instrumentID uint64, blob datatypes.JSON) error
}

// Resolver turns an instrument into a fully-qualified gateway descriptor,
// cache-first: a cached resolution is never revalidated against the gateway.
type Resolver struct {
	Store  Store
	Logger *zap.Logger
}

func (r *Resolver) Resolve(ctx context.Context, gw Gateway, inst *models.Instrument) (Descriptor, error) {
	if inst.ContractResolved && len(inst.ResolvedContract) > 0 {
		d, err := FromBlob(inst.ResolvedContract)
		if err == nil {
			return d, nil
		}
		// Corrupt cache: fall through and resolve fresh.
		if r.Logger != nil {
			r.Logger.Warn("cached contract blob unreadable, re-resolving",
				zap.String("ticker", inst.Ticker), zap.Error(err))
		}
	}

	hint := ""
	if inst.NameHint != nil {
		hint = *inst.NameHint
	}
	kind := asset.Classify(inst.Ticker, hint, string(inst.Category))
	skeleton := Skeleton(inst.Ticker, kind)

	resolved, err := gw.ResolveContract(ctx, skeleton)
	if err != nil {
		return Descriptor{}, &ResolutionError{Ticker: inst.Ticker, Kind: kind, Err: err}
	}
	if !resolved.Resolved() {
		return Descriptor{}, &ResolutionError{Ticker: inst.Ticker, Kind: kind, Err: ErrNoMatch}
	}

	blob, err := resolved.Blob()
	if err != nil {
		return Descriptor{}, &ResolutionError{Ticker: inst.Ticker, Kind: kind, Err: err}
	}
	if r.Store != nil {
		if err := r.Store.SaveResolvedContract(ctx, inst.ID, blob); err != nil {
			return Descriptor{}, &ResolutionError{Ticker: inst.Ticker, Kind: kind, Err: err}
		}
	}
	inst.ResolvedContract = blob
	inst.ContractResolved = true
	return resolved, nil
}
