package steem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hivebridge/steemrpc/pkg/jsonrpc"
)

// advancingChain serves props with a head that moves forward on every
// lookup, simulating new blocks arriving.
type advancingChain struct {
	mu   sync.Mutex
	head uint64
	step uint64
}

func (a *advancingChain) handle(req wireRequest) (any, *jsonrpc.Error) {
	switch req.Method {
	case "condenser_api.get_dynamic_global_properties":
		a.mu.Lock()
		head := a.head
		a.head += a.step
		a.mu.Unlock()
		return map[string]any{"head_block_number": head}, nil
	case "condenser_api.get_block":
		return blockHandler(req)
	default:
		return nil, &jsonrpc.Error{Code: -32601, Message: "unknown method"}
	}
}

func TestStreamBlocksBackfillAndEnd(t *testing.T) {
	chain := &advancingChain{head: 100, step: 2}
	node := newMockNode(t, chain.handle)
	c := testClient(t, WithNodes(node.URL()))

	end := uint64(106)
	stream, err := c.StreamBlocks(context.Background(), StreamOptions{
		Behind:       5,
		EndAfter:     &end,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	var got []uint64
	for b := range stream.Blocks() {
		got = append(got, b.Number)
	}
	require.NoError(t, stream.Err())

	// Backfill starts 5 behind head 100, then the stream follows the head
	// up to EndAfter, in order with no gaps.
	require.Equal(t, uint64(96), got[0])
	require.Equal(t, uint64(106), got[len(got)-1])
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1]+1, got[i])
	}
}

func TestStreamBlocksStop(t *testing.T) {
	chain := &advancingChain{head: 50, step: 0}
	node := newMockNode(t, chain.handle)
	c := testClient(t, WithNodes(node.URL()))

	stream, err := c.StreamBlocks(context.Background(), StreamOptions{
		Behind:       3,
		PollInterval: time.Hour,
		ChannelSize:  1,
	})
	require.NoError(t, err)

	// Drain the backfill, then stop while the stream waits on the head.
	<-stream.Blocks()
	stream.Stop()
	for range stream.Blocks() {
	}
	require.NoError(t, stream.Err())
}

func TestStreamBlocksPropagatesFailure(t *testing.T) {
	chain := &advancingChain{head: 10, step: 1}
	node := newMockNode(t, chain.handle)
	c := testClient(t, WithNodes(node.URL()), WithMaxRetry(0))

	stream, err := c.StreamBlocks(context.Background(), StreamOptions{
		Behind:       2,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	// Kill the node mid-stream; the channel closes and Err reports why.
	node.mu.Lock()
	node.failStatus = 500
	node.mu.Unlock()

	for range stream.Blocks() {
	}
	require.Error(t, stream.Err())
}
