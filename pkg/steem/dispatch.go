package steem

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hivebridge/steemrpc/pkg/jsonrpc"
)

// Dispatch sends every call and returns one response per call, in call
// order. A single call travels as a plain JSON-RPC request; multiple calls
// are chunked into batch arrays of at most batch_size and the chunks are
// sent concurrently. Either every call gets its response or Dispatch fails
// as a whole; there are no partial results.
//
// A JSON-RPC error object inside a response is data here, not a dispatch
// failure. Callers (or the decode layer) turn it into an RPCError.
func (c *Client) Dispatch(ctx context.Context, calls []jsonrpc.Call) ([]jsonrpc.Response, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	opts := c.options()

	if len(calls) == 1 {
		reqs := []jsonrpc.Request{jsonrpc.Encode(calls[0], c.nextID(), !opts.LegacyDialect)}
		return c.send(ctx, opts, reqs, false)
	}

	chunks := chunkCalls(calls, opts.BatchSize)
	results := make([][]jsonrpc.Response, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		reqs := jsonrpc.EncodeBatch(chunk, c.nextIDs(len(chunk)), !opts.LegacyDialect)
		g.Go(func() error {
			resps, err := c.send(gctx, opts, reqs, true)
			if err != nil {
				return err
			}
			results[i] = resps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]jsonrpc.Response, 0, len(calls))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// send posts one request or batch with retry across the node pool. Each
// attempt snapshots the pool's current node; a failure marks the node and
// advances the cursor before the next attempt. Id-correlation violations
// fail immediately without retry.
func (c *Client) send(ctx context.Context, opts Options, reqs []jsonrpc.Request, batch bool) ([]jsonrpc.Response, error) {
	var body []byte
	var err error
	if batch {
		body, err = json.Marshal(reqs)
	} else {
		body, err = json.Marshal(reqs[0])
	}
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	attempts := 0
	var lastNode string
	var lastErr error

	for attempt := 0; attempt <= opts.MaxRetry; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}

		node := c.pool.Current()
		lastNode = node
		attempts++

		resps, failure := c.post(ctx, opts, node, body, reqs, batch)
		if failure == nil {
			c.pool.MarkSuccess(node)
			ordered, err := jsonrpc.Correlate(reqs, resps)
			if err != nil {
				// The node answered but broke the id contract. Retrying
				// would trust the same broken node pool with the same
				// malformed framing, so give up now.
				return nil, &DispatchError{Node: node, Attempts: attempts, Err: err}
			}
			return ordered, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = failure
		c.pool.MarkFailure(node, failure)
		next := c.pool.Advance()
		c.log.Warn().
			Str("node", node).
			Str("next", next).
			Int("attempt", attempt+1).
			Err(failure).
			Msg("rpc attempt failed, rotating node")
	}

	return nil, &DispatchError{Node: lastNode, Attempts: attempts, Err: lastErr}
}

// post performs one attempt and classifies transport-level failures. A
// non-200 status, an unparseable body, or a batch answered with a non-array
// all count as node failures eligible for retry.
func (c *Client) post(ctx context.Context, opts Options, node string, body []byte, reqs []jsonrpc.Request, batch bool) ([]jsonrpc.Response, error) {
	status, respBody, err := c.transport.Post(ctx, node, body, opts.Headers)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("http status %d", status)
	}

	if batch {
		var resps []jsonrpc.Response
		if err := json.Unmarshal(respBody, &resps); err != nil {
			return nil, fmt.Errorf("malformed batch response: %w", err)
		}
		return resps, nil
	}

	var resp jsonrpc.Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return []jsonrpc.Response{resp}, nil
}

func chunkCalls(calls []jsonrpc.Call, size int) [][]jsonrpc.Call {
	if size < 1 {
		size = 1
	}
	var chunks [][]jsonrpc.Call
	for start := 0; start < len(calls); start += size {
		end := start + size
		if end > len(calls) {
			end = len(calls)
		}
		chunks = append(chunks, calls[start:end])
	}
	return chunks
}
