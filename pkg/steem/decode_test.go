package steem

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hivebridge/steemrpc/internal/types"
)

func TestDecodeBlockNull(t *testing.T) {
	_, err := decodeBlock(99, json.RawMessage(`null`))
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)

	_, err = decodeBlock(99, nil)
	require.ErrorAs(t, err, &decErr)
}

func TestDecodeBlockFields(t *testing.T) {
	raw := json.RawMessage(`{
		"previous": "04c4b3ff1d2f",
		"timestamp": "2021-04-08T03:01:15",
		"witness": "gtg",
		"transaction_merkle_root": "deadbeef",
		"extensions": [],
		"witness_signature": "1f6aa1",
		"transactions": [{
			"ref_block_num": 46079,
			"ref_block_prefix": 3461120,
			"expiration": "2021-04-08T03:11:12",
			"operations": [["vote", {"voter": "someguy123", "weight": 10000}]],
			"extensions": [],
			"signatures": ["20debf"]
		}],
		"block_id": "04c4b4001d2f",
		"signing_key": "STM4tzr1w",
		"transaction_ids": ["a7b2"]
	}`)

	b, err := decodeBlock(80000000, raw)
	require.NoError(t, err)

	require.Equal(t, uint64(80000000), b.Number)
	require.Equal(t, "gtg", b.Witness)
	require.Equal(t, time.Date(2021, 4, 8, 3, 1, 15, 0, time.UTC), b.Timestamp)
	require.Equal(t, []string{"a7b2"}, b.TransactionIDs)

	require.Len(t, b.Transactions, 1)
	tx := b.Transactions[0]
	require.Equal(t, uint32(46079), tx.RefBlockNum)
	require.Len(t, tx.Operations, 1)
	require.Equal(t, "vote", tx.Operations[0].Type)
	require.Contains(t, string(tx.Operations[0].Value), "someguy123")

	// extensions was not consumed, so it lands in Extra.
	require.Contains(t, b.Extra, "extensions")
	require.NotContains(t, b.Extra, "witness")
}

func TestOperationBothEncodings(t *testing.T) {
	var legacy Operation
	require.NoError(t, json.Unmarshal([]byte(`["vote", {"voter": "a"}]`), &legacy))
	require.Equal(t, "vote", legacy.Type)

	var appbase Operation
	require.NoError(t, json.Unmarshal([]byte(`{"type": "vote_operation", "value": {"voter": "a"}}`), &appbase))
	require.Equal(t, "vote_operation", appbase.Type)
	require.JSONEq(t, string(legacy.Value), string(appbase.Value))

	var bad Operation
	require.Error(t, json.Unmarshal([]byte(`["vote"]`), &bad))
}

func TestDecodeAmountBothForms(t *testing.T) {
	amt, err := decodeAmount(types.ChainSteem, json.RawMessage(`"16759.930 STEEM"`))
	require.NoError(t, err)
	require.Equal(t, "16759.930 STEEM", amt.String())
	require.Equal(t, 3, amt.Precision())

	amt, err = decodeAmount(types.ChainHive, json.RawMessage(`{"amount":"2015429","precision":3,"nai":"@@000000021"}`))
	require.NoError(t, err)
	require.Equal(t, "2015.429 HIVE", amt.String())

	_, err = decodeAmount(types.ChainHive, json.RawMessage(`42`))
	require.Error(t, err)
}

func TestDecodeAccountBadField(t *testing.T) {
	_, err := decodeAccount(types.ChainHive, json.RawMessage(`{"name": "x", "balance": "not an amount"}`))
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	require.Equal(t, "account.balance", decErr.Shape)
}
