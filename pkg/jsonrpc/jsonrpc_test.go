package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeAppbase(t *testing.T) {
	req := Encode(Call{API: "condenser_api", Method: "get_block", Params: []any{123}}, 7, true)

	require.Equal(t, "condenser_api.get_block", req.Method)
	require.Equal(t, uint64(7), req.ID)
	require.Equal(t, Version, req.JSONRPC)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"jsonrpc":"2.0","id":7,"method":"condenser_api.get_block","params":[123]}`,
		string(body))
}

func TestEncodeLegacy(t *testing.T) {
	req := Encode(Call{API: "database_api", Method: "get_block", Params: []any{123}}, 3, false)

	require.Equal(t, "call", req.Method)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"jsonrpc":"2.0","id":3,"method":"call","params":["database_api","get_block",[123]]}`,
		string(body))
}

func TestEncodeNilParams(t *testing.T) {
	// nil params travel as an empty array, never null.
	body, err := json.Marshal(Encode(Call{API: "condenser_api", Method: "get_config"}, 1, true))
	require.NoError(t, err)
	require.JSONEq(t,
		`{"jsonrpc":"2.0","id":1,"method":"condenser_api.get_config","params":[]}`,
		string(body))

	body, err = json.Marshal(Encode(Call{API: "database_api", Method: "get_config"}, 1, false))
	require.NoError(t, err)
	require.JSONEq(t,
		`{"jsonrpc":"2.0","id":1,"method":"call","params":["database_api","get_config",[]]}`,
		string(body))
}

func TestEncodePreDottedMethod(t *testing.T) {
	// Calls with no API pass the method through untouched in both dialects.
	for _, appbase := range []bool{true, false} {
		req := Encode(Call{Method: "condenser_api.get_block", Params: []any{5}}, 2, appbase)
		require.Equal(t, "condenser_api.get_block", req.Method)
	}
}

func TestEncodeObjectParams(t *testing.T) {
	params := map[string]any{"accounts": []string{"someguy123"}}
	body, err := json.Marshal(Encode(Call{API: "database_api", Method: "find_accounts", Params: params}, 9, true))
	require.NoError(t, err)
	require.JSONEq(t,
		`{"jsonrpc":"2.0","id":9,"method":"database_api.find_accounts","params":{"accounts":["someguy123"]}}`,
		string(body))
}

func TestEncodeBatchIDs(t *testing.T) {
	calls := []Call{
		{API: "condenser_api", Method: "get_block", Params: []any{100}},
		{API: "condenser_api", Method: "get_block", Params: []any{101}},
		{API: "condenser_api", Method: "get_block", Params: []any{102}},
	}

	reqs := EncodeBatch(calls, 40, true)
	require.Len(t, reqs, 3)
	for i, req := range reqs {
		require.Equal(t, uint64(40+i), req.ID)
	}
}

func TestCorrelateReordered(t *testing.T) {
	reqs := EncodeBatch([]Call{
		{API: "a", Method: "m", Params: []any{1}},
		{API: "a", Method: "m", Params: []any{2}},
		{API: "a", Method: "m", Params: []any{3}},
	}, 1, true)

	resps := []Response{
		{JSONRPC: Version, ID: 3, Result: json.RawMessage(`"three"`)},
		{JSONRPC: Version, ID: 1, Result: json.RawMessage(`"one"`)},
		{JSONRPC: Version, ID: 2, Result: json.RawMessage(`"two"`)},
	}

	ordered, err := Correlate(reqs, resps)
	require.NoError(t, err)
	require.Equal(t, json.RawMessage(`"one"`), ordered[0].Result)
	require.Equal(t, json.RawMessage(`"two"`), ordered[1].Result)
	require.Equal(t, json.RawMessage(`"three"`), ordered[2].Result)
}

func TestCorrelateMissingResponse(t *testing.T) {
	reqs := EncodeBatch(make([]Call, 5), 1, true)

	// Drop the response for id 3.
	var resps []Response
	for id := uint64(1); id <= 5; id++ {
		if id == 3 {
			continue
		}
		resps = append(resps, Response{ID: id})
	}

	_, err := Correlate(reqs, resps)
	require.ErrorIs(t, err, ErrMissingResponse)
}

func TestCorrelateUnknownID(t *testing.T) {
	reqs := EncodeBatch(make([]Call, 2), 1, true)
	resps := []Response{{ID: 1}, {ID: 99}}

	_, err := Correlate(reqs, resps)
	require.ErrorIs(t, err, ErrUnknownID)
}

func TestCorrelateDuplicateID(t *testing.T) {
	reqs := EncodeBatch(make([]Call, 2), 1, true)
	resps := []Response{{ID: 1}, {ID: 1}}

	_, err := Correlate(reqs, resps)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestResponseErr(t *testing.T) {
	r := &Response{Error: &Error{Code: -32000, Message: "boom"}}
	require.EqualError(t, r.Err(), "rpc error -32000: boom")

	r = &Response{Result: json.RawMessage(`1`)}
	require.NoError(t, r.Err())
}
