package steem

import (
	"fmt"

	"github.com/hivebridge/steemrpc/pkg/jsonrpc"
)

// RPCError is a JSON-RPC error object reported by a node for one call. It is
// never retried: the node answered, it just answered with an application
// error.
type RPCError = jsonrpc.Error

// ConfigError reports an unknown option key or a value of the wrong shape.
type ConfigError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config option %q: %s", e.Key, e.Reason)
}

// DispatchError is returned when a request could not be completed: either
// every retry across the rotating node pool failed, or a node violated the
// batch protocol (id correlation). Err holds the last underlying failure and
// Node the last node tried.
type DispatchError struct {
	Node     string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed after %d attempt(s), last node %s: %v",
		e.Attempts, e.Node, e.Err)
}

// Unwrap returns the last underlying failure.
func (e *DispatchError) Unwrap() error { return e.Err }

// DecodeError is returned when a node's result cannot be decoded into the
// requested shape. Like RPCError it is terminal: retrying would replay the
// same malformed data.
type DecodeError struct {
	Shape string
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Shape, e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *DecodeError) Unwrap() error { return e.Err }
