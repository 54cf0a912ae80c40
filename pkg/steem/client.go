// Package steem is an asynchronous JSON-RPC query client for Steem-family
// chains (Steem, Hive, GOLOS, Blurt).
//
// A Client owns a rotating pool of RPC nodes, batches concurrent calls into
// JSON-RPC batch arrays, retries transport failures across the pool, and
// decodes results into typed domain records. Application-level errors from a
// node (RPCError) and malformed results (DecodeError) are terminal and never
// retried.
package steem

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hivebridge/steemrpc/internal/types"
	"github.com/hivebridge/steemrpc/pkg/nodepool"
)

// BlockStore is a local archive the client reads through before asking a
// node, and writes fetched blocks into. Implemented by blockstore.Store.
type BlockStore interface {
	Get(num uint64) ([]byte, error)
	Put(num uint64, raw []byte) error
	Has(num uint64) bool
}

// AccountStore is a local cache of raw account records keyed by name.
// Implemented by accountstore.Store.
type AccountStore interface {
	Get(name string, maxAge time.Duration) ([]byte, error)
	Put(name string, raw []byte) error
}

// Client is a query client for one chain. All methods are safe for
// concurrent use.
type Client struct {
	mu        sync.RWMutex
	opts      Options
	pool      *nodepool.Pool
	transport Transport
	log       zerolog.Logger

	ids   atomic.Uint64
	cache *memoryCache

	blocks   BlockStore
	accounts AccountStore
}

// Option mutates client construction.
type Option func(*Client)

// WithNodes overrides the chain's default node list.
func WithNodes(urls ...string) Option {
	return func(c *Client) { c.opts.RPCNodes = urls }
}

// WithTransport substitutes the HTTP layer.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithMaxRetry sets how many retries follow a failed first attempt.
func WithMaxRetry(n int) Option {
	return func(c *Client) { c.opts.MaxRetry = n }
}

// WithRetryDelay sets the flat pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.opts.RetryDelay = d }
}

// WithBatchSize caps calls per JSON-RPC batch array.
func WithBatchSize(n int) Option {
	return func(c *Client) { c.opts.BatchSize = n }
}

// WithTimeout bounds each HTTP round-trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.opts.Timeout = d }
}

// WithAppbase toggles the modern dotted-method dialect. It is on by
// default; pass false for forks still on the legacy "call" convention.
func WithAppbase(enabled bool) Option {
	return func(c *Client) { c.opts.LegacyDialect = !enabled }
}

// WithHeaders sets extra HTTP headers sent on every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) { c.opts.Headers = h }
}

// WithBlockStore attaches a local block archive for read-through fetches.
func WithBlockStore(s BlockStore) Option {
	return func(c *Client) { c.blocks = s }
}

// WithAccountStore attaches a local account cache.
func WithAccountStore(s AccountStore) Option {
	return func(c *Client) { c.accounts = s }
}

// New builds a client for the named chain ("steem", "hive", "golos",
// "blurt").
func New(chain types.Chain, opts ...Option) (*Client, error) {
	if _, ok := defaultNodes[chain]; !ok {
		return nil, types.ErrUnknownChain
	}
	c := &Client{
		opts:  Options{Chain: chain},
		log:   zerolog.Nop(),
		cache: newMemoryCache(),
	}
	for _, o := range opts {
		o(c)
	}
	c.opts = c.opts.WithDefaults()

	pool, err := nodepool.New(c.opts.RPCNodes)
	if err != nil {
		return nil, err
	}
	c.pool = pool

	if c.transport == nil {
		c.transport = NewHTTPTransport(c.opts.Timeout)
	}
	return c, nil
}

// Chain returns the chain this client talks to.
func (c *Client) Chain() types.Chain {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts.Chain
}

// ConfigSet updates one option by key at runtime. Setting "rpc_nodes" also
// replaces the live pool and resets its cursor.
func (c *Client) ConfigSet(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.opts.Set(key, value); err != nil {
		return err
	}
	if key == OptRPCNodes {
		return c.pool.SetNodes(c.opts.RPCNodes)
	}
	return nil
}

// ConfigGet reads one option by key.
func (c *Client) ConfigGet(key string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts.Get(key)
}

// Nodes reports the pool's node states, in rotation order.
func (c *Client) Nodes() []nodepool.NodeInfo {
	return c.pool.Status()
}

// options snapshots the settings under the read lock so a concurrent
// ConfigSet cannot tear a request's view of them.
func (c *Client) options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// nextID hands out a unique JSON-RPC request id.
func (c *Client) nextID() uint64 {
	return c.ids.Add(1)
}

// nextIDs reserves n consecutive ids and returns the first.
func (c *Client) nextIDs(n int) uint64 {
	return c.ids.Add(uint64(n)) - uint64(n) + 1
}
