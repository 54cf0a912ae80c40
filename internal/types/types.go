// Package types defines asset and amount primitives for Steem-family chains.
//
// Balances on these chains travel over the wire either as formatted strings
// ("16759.930 STEEM") or, on appbase nodes, as NAI objects
// ({"amount":"2015429","precision":3,"nai":"@@000000021"}). Both forms decode
// into Amount, which carries the numeric value together with the asset's
// symbol and decimal precision.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Chain identifies a Steem-family network. Asset tables differ per chain.
type Chain string

// Supported chains.
const (
	ChainSteem Chain = "steem"
	ChainHive  Chain = "hive"
	ChainGolos Chain = "golos"
	ChainBlurt Chain = "blurt"
)

var (
	// ErrBadAmount is returned for balance strings that are not
	// "<value> <SYMBOL>".
	ErrBadAmount = errors.New("malformed amount string")

	// ErrUnknownChain is returned when a chain has no asset table.
	ErrUnknownChain = errors.New("unknown chain")
)

// Asset describes a chain asset: its ticker symbol, the number of decimal
// places amounts of it carry, and its appbase NAI identifier (empty for
// chains that never adopted NAIs).
type Asset struct {
	Symbol    string
	Precision int
	NAI       string
}

// Per-chain asset tables. VESTS-style assets use 6 decimal places, liquid
// and debt assets use 3, on every fork.
var knownAssets = map[Chain][]Asset{
	ChainSteem: {
		{Symbol: "STEEM", Precision: 3, NAI: "@@000000021"},
		{Symbol: "SBD", Precision: 3, NAI: "@@000000013"},
		{Symbol: "VESTS", Precision: 6, NAI: "@@000000037"},
	},
	ChainHive: {
		{Symbol: "HIVE", Precision: 3, NAI: "@@000000021"},
		{Symbol: "HBD", Precision: 3, NAI: "@@000000013"},
		{Symbol: "VESTS", Precision: 6, NAI: "@@000000037"},
	},
	ChainGolos: {
		{Symbol: "GOLOS", Precision: 3},
		{Symbol: "GBG", Precision: 3},
		{Symbol: "GESTS", Precision: 6},
	},
	ChainBlurt: {
		{Symbol: "BLURT", Precision: 3, NAI: "@@000000021"},
		{Symbol: "VESTS", Precision: 6, NAI: "@@000000037"},
	},
}

// AssetBySymbol looks up a known asset by ticker symbol.
func AssetBySymbol(chain Chain, symbol string) (Asset, bool) {
	for _, a := range knownAssets[chain] {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return Asset{}, false
}

// AssetByNAI looks up a known asset by its appbase NAI identifier.
func AssetByNAI(chain Chain, nai string) (Asset, bool) {
	for _, a := range knownAssets[chain] {
		if a.NAI != "" && a.NAI == nai {
			return a, true
		}
	}
	return Asset{}, false
}

// Amount is a parsed balance: a decimal value plus the asset it denominates.
type Amount struct {
	Value decimal.Decimal
	Asset Asset
}

// Symbol returns the asset ticker symbol.
func (a Amount) Symbol() string { return a.Asset.Symbol }

// Precision returns the number of decimal places the amount carries.
func (a Amount) Precision() int { return a.Asset.Precision }

// String renders the amount in wire format, with exactly Precision fraction
// digits: "16759.930 STEEM".
func (a Amount) String() string {
	return a.Value.StringFixed(int32(a.Asset.Precision)) + " " + a.Asset.Symbol
}

// ParseAmount parses a "<value> <SYMBOL>" balance string. For assets known to
// the chain the table precision is authoritative; unknown symbols infer the
// precision from the fraction digits present in the string.
func ParseAmount(chain Chain, s string) (Amount, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Amount{}, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}

	value, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrBadAmount, s, err)
	}

	asset, ok := AssetBySymbol(chain, fields[1])
	if !ok {
		asset = Asset{Symbol: fields[1], Precision: fractionDigits(fields[0])}
	}
	return Amount{Value: value, Asset: asset}, nil
}

// ParseNAIAmount parses an appbase NAI balance object's fields. The raw
// integer amount is scaled down by the precision: {"amount":"2015429",
// "precision":3,"nai":"@@000000021"} is 2015.429 of the NAI's asset.
func ParseNAIAmount(chain Chain, amount string, precision int, nai string) (Amount, error) {
	if precision < 0 {
		return Amount{}, fmt.Errorf("%w: negative precision %d", ErrBadAmount, precision)
	}

	raw, err := decimal.NewFromString(amount)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrBadAmount, amount, err)
	}

	asset, ok := AssetByNAI(chain, nai)
	if !ok {
		asset = Asset{Symbol: nai, Precision: precision, NAI: nai}
	}
	return Amount{Value: raw.Shift(int32(-precision)), Asset: asset}, nil
}

// fractionDigits counts digits after the decimal point.
func fractionDigits(value string) int {
	if i := strings.IndexByte(value, '.'); i >= 0 {
		return len(value) - i - 1
	}
	return 0
}
