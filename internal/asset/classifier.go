package asset

import "strings"

// Kind is the broad instrument class used to pick contract defaults.
type Kind string

const (
	KindStock  Kind = "stock"
	KindEtf    Kind = "etf"
	KindCrypto Kind = "crypto"
	KindFuture Kind = "future"
	KindIndex  Kind = "index"
	KindForex  Kind = "forex"
)

const (
	categoryEtfs          = "etfs"
	categoryDigitalAssets = "digitalassets"
)

// cryptoEquities are exchange-listed equities (miners, treasuries, ETPs) that
// newsletters file under the digital-assets section but that trade as stock.
var cryptoEquities = map[string]bool{
	"COIN": true,
	"MSTR": true,
	"MARA": true,
	"RIOT": true,
	"CLSK": true,
	"HUT":  true,
	"BITF": true,
	"GLXY": true,
	"CORZ": true,
	"WULF": true,
	"IREN": true,
	"BTBT": true,
	"HIVE": true,
	"BTDR": true,
}

// cryptoNames maps newsletter-friendly names to exchange base symbols.
var cryptoNames = map[string]string{
	"BITCOIN":   "BTC",
	"ETHEREUM":  "ETH",
	"ETHER":     "ETH",
	"SOLANA":    "SOL",
	"CARDANO":   "ADA",
	"RIPPLE":    "XRP",
	"DOGECOIN":  "DOGE",
	"LITECOIN":  "LTC",
	"POLKADOT":  "DOT",
	"AVALANCHE": "AVAX",
	"CHAINLINK": "LINK",
	"POLYGON":   "MATIC",
}

var cryptoSymbols = func() map[string]bool {
	out := make(map[string]bool, len(cryptoNames))
	for _, sym := range cryptoNames {
		out[sym] = true
	}
	return out
}()

var futuresSymbols = map[string]bool{
	"ES":  true,
	"NQ":  true,
	"YM":  true,
	"RTY": true,
	"CL":  true,
	"NG":  true,
	"GC":  true,
	"SI":  true,
	"HG":  true,
	"ZB":  true,
	"ZN":  true,
	"ZC":  true,
	"ZS":  true,
	"ZW":  true,
}

const FuturesSuffix = "=F"

var indexMarkers = []string{"^", "$"}

// Classify maps a ticker plus hints to an instrument Kind. It is total: any
// input falls through to KindStock. Rule order matters; category-driven
// disambiguation runs before the generic USD-suffix crypto checks so that
// crypto-adjacent equities stay stock.
func Classify(ticker, nameHint, category string) Kind {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	hint := strings.ToUpper(strings.TrimSpace(nameHint))
	cat := strings.ToLower(strings.TrimSpace(category))

	if cat == categoryDigitalAssets {
		if cryptoEquities[symbol] {
			return KindStock
		}
		if cryptoSymbols[symbol] || cryptoNames[symbol] != "" {
			return KindCrypto
		}
	}
	if cat == categoryEtfs {
		return KindEtf
	}
	if strings.HasSuffix(symbol, FuturesSuffix) || futuresSymbols[symbol] {
		return KindFuture
	}
	for _, marker := range indexMarkers {
		if strings.HasPrefix(symbol, marker) {
			return KindIndex
		}
	}
	if strings.Contains(hint, "INDEX") {
		return KindIndex
	}
	if len(symbol) == 6 && strings.HasSuffix(symbol, "USD") {
		return KindForex
	}
	if strings.HasSuffix(symbol, "USD") || strings.Contains(hint, "CRYPTO") || cryptoNames[symbol] != "" {
		return KindCrypto
	}
	return KindStock
}

// NormalizeCryptoSymbol translates a friendly crypto name ("BITCOIN") to its
// exchange base symbol ("BTC"). Unknown symbols pass through uppercased.
func NormalizeCryptoSymbol(ticker string) string {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if base, ok := cryptoNames[symbol]; ok {
		return base
	}
	return symbol
}
