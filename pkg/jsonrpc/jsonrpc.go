// Package jsonrpc implements the JSON-RPC 2.0 wire encoding spoken by
// Steem-family nodes.
//
// Two dialects exist. Appbase nodes (Steem ≥0.19.4, Hive, Blurt) take
// namespaced methods like "condenser_api.get_block". Older forks (GOLOS,
// pre-appbase Steem) expose a single generic "call" method whose params are
// positional: [api, method, params]. Encode produces either form from the
// same logical Call.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version stamped on every request.
const Version = "2.0"

// Call is one logical RPC invocation, independent of dialect. Params may be
// a slice or a map depending on the target method's convention; nil means no
// arguments.
type Call struct {
	API    string
	Method string
	Params any
}

// Request is a single wire-level JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Response is a single wire-level JSON-RPC 2.0 response. Error and Result
// are mutually exclusive.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Err returns the node-reported error, or nil.
func (r *Response) Err() error {
	if r.Error != nil {
		return r.Error
	}
	return nil
}

// Error is a JSON-RPC error object as reported by a node.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
