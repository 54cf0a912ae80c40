package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in        string
		chain     Chain
		value     string
		symbol    string
		precision int
	}{
		{"16759.930 STEEM", ChainSteem, "16759.930", "STEEM", 3},
		{"78.068 SBD", ChainSteem, "78.068", "SBD", 3},
		{"277045077.603020 VESTS", ChainSteem, "277045077.603020", "VESTS", 6},
		{"2015.429 HIVE", ChainHive, "2015.429", "HIVE", 3},
		{"118.305 HBD", ChainHive, "118.305", "HBD", 3},
		{"12.345 GOLOS", ChainGolos, "12.345", "GOLOS", 3},
	}

	for _, tt := range tests {
		amt, err := ParseAmount(tt.chain, tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.symbol, amt.Symbol())
		require.Equal(t, tt.precision, amt.Precision())

		want, err := decimal.NewFromString(tt.value)
		require.NoError(t, err)
		require.True(t, amt.Value.Equal(want), "value %s != %s", amt.Value, want)
		require.Equal(t, tt.in, amt.String())
	}
}

func TestParseAmountUnknownSymbol(t *testing.T) {
	// Precision for unknown assets is inferred from the fraction digits.
	amt, err := ParseAmount(ChainSteem, "1.2345 WEIRD")
	require.NoError(t, err)
	require.Equal(t, "WEIRD", amt.Symbol())
	require.Equal(t, 4, amt.Precision())

	amt, err = ParseAmount(ChainSteem, "42 WEIRD")
	require.NoError(t, err)
	require.Equal(t, 0, amt.Precision())
}

func TestParseAmountMalformed(t *testing.T) {
	for _, in := range []string{"", "123.456", "123.456 STEEM extra", "abc STEEM"} {
		_, err := ParseAmount(ChainSteem, in)
		require.ErrorIs(t, err, ErrBadAmount, "input %q", in)
	}
}

func TestParseNAIAmount(t *testing.T) {
	amt, err := ParseNAIAmount(ChainHive, "2015429", 3, "@@000000021")
	require.NoError(t, err)
	require.Equal(t, "HIVE", amt.Symbol())
	require.Equal(t, "2015.429 HIVE", amt.String())

	amt, err = ParseNAIAmount(ChainSteem, "298703985582487", 6, "@@000000037")
	require.NoError(t, err)
	require.Equal(t, "VESTS", amt.Symbol())
	require.Equal(t, "298703985.582487 VESTS", amt.String())
}

func TestParseNAIAmountUnknownNAI(t *testing.T) {
	amt, err := ParseNAIAmount(ChainSteem, "1000", 2, "@@000000099")
	require.NoError(t, err)
	require.Equal(t, "@@000000099", amt.Symbol())
	require.Equal(t, 2, amt.Precision())
	require.True(t, amt.Value.Equal(decimal.RequireFromString("10.00")))
}

func TestAssetLookup(t *testing.T) {
	a, ok := AssetBySymbol(ChainHive, "HBD")
	require.True(t, ok)
	require.Equal(t, "@@000000013", a.NAI)

	_, ok = AssetBySymbol(ChainHive, "GBG")
	require.False(t, ok)

	a, ok = AssetByNAI(ChainBlurt, "@@000000021")
	require.True(t, ok)
	require.Equal(t, "BLURT", a.Symbol)

	// GOLOS predates NAIs entirely.
	_, ok = AssetByNAI(ChainGolos, "@@000000021")
	require.False(t, ok)
}
