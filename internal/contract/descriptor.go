package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"levelwatch/internal/asset"
)

// Kind-specific venue defaults used when building an unresolved skeleton.
const (
	ExchangeSmart   = "SMART"
	ExchangeFutures = "CME"
	ExchangeIndex   = "CBOE"
	ExchangeForex   = "IDEALPRO"
	ExchangeCrypto  = "PAXOS"

	CurrencyUSD = "USD"
)

// Descriptor is a broker-addressable identification of an instrument: a
// kind-tagged variant where the optional fields only apply to some kinds
// (PrimaryExchange for listed equities, ContractMonth for futures). A
// descriptor with ConID zero is an unresolved skeleton; the gateway completes
// it into a fully-qualified contract.
type Descriptor struct {
	Kind     asset.Kind `json:"kind"`
	Symbol   string     `json:"symbol"`
	Exchange string     `json:"exchange"`
	Currency string     `json:"currency"`

	PrimaryExchange string `json:"primary_exchange,omitempty"`
	ContractMonth   string `json:"contract_month,omitempty"`
	LocalSymbol     string `json:"local_symbol,omitempty"`
	ConID           int64  `json:"con_id,omitempty"`
}

// Resolved reports whether the gateway has assigned a contract id.
func (d Descriptor) Resolved() bool {
	return d.ConID != 0
}

// Skeleton builds an unresolved descriptor from a ticker and its kind,
// applying per-kind exchange and currency defaults. The gateway is expected
// to disambiguate it into a fully-qualified descriptor.
func Skeleton(ticker string, kind asset.Kind) Descriptor {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	switch kind {
	case asset.KindEtf:
		return Descriptor{Kind: kind, Symbol: symbol, Exchange: ExchangeSmart, Currency: CurrencyUSD}
	case asset.KindFuture:
		symbol = strings.TrimSuffix(symbol, asset.FuturesSuffix)
		return Descriptor{Kind: kind, Symbol: symbol, Exchange: ExchangeFutures, Currency: CurrencyUSD}
	case asset.KindIndex:
		symbol = strings.TrimLeft(symbol, "^$")
		return Descriptor{Kind: kind, Symbol: symbol, Exchange: ExchangeIndex, Currency: CurrencyUSD}
	case asset.KindForex:
		base, quote := symbol, CurrencyUSD
		if len(symbol) == 6 {
			base, quote = symbol[:3], symbol[3:]
		}
		return Descriptor{Kind: kind, Symbol: base, Exchange: ExchangeForex, Currency: quote}
	case asset.KindCrypto:
		base := asset.NormalizeCryptoSymbol(symbol)
		if len(base) > 3 && strings.HasSuffix(base, "USD") {
			base = base[:len(base)-3]
		}
		return Descriptor{Kind: kind, Symbol: base, Exchange: ExchangeCrypto, Currency: CurrencyUSD}
	default:
		return Descriptor{Kind: asset.KindStock, Symbol: symbol, Exchange: ExchangeSmart, Currency: CurrencyUSD}
	}
}

// Blob serializes the descriptor for the instrument-row cache. The encoding
// keeps every field needed to rebuild an equivalent gateway request: kind,
// symbol, venue, currency, contract id, and the contract month for futures.
func (d Descriptor) Blob() (datatypes.JSON, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// FromBlob deserializes a cached descriptor blob.
func FromBlob(blob datatypes.JSON) (Descriptor, error) {
	if len(blob) == 0 {
		return Descriptor{}, fmt.Errorf("empty contract blob")
	}
	var d Descriptor
	if err := json.Unmarshal(blob, &d); err != nil {
		return Descriptor{}, fmt.Errorf("decode contract blob: %w", err)
	}
	if d.Kind == "" || d.Symbol == "" {
		return Descriptor{}, fmt.Errorf("contract blob missing kind or symbol")
	}
	return d, nil
}
