package steem

import (
	"context"
	"sync"
	"time"
)

// Chains mint one block every 3 seconds, so polling any faster just burns
// node quota.
const defaultPollInterval = 3 * time.Second

// StreamOptions controls StreamBlocks.
type StreamOptions struct {
	// Behind backfills this many blocks before the head at start.
	Behind uint64

	// EndAfter stops the stream after this block number, when set.
	EndAfter *uint64

	// PollInterval is how often the head is re-checked once caught up.
	PollInterval time.Duration

	// ChannelSize is the block channel's buffer.
	ChannelSize int
}

// BlockStream is a live feed of blocks in strictly ascending order.
type BlockStream struct {
	blocks chan *Block
	cancel context.CancelFunc

	mu  sync.Mutex
	err error

	done chan struct{}
}

// Blocks returns the channel the stream delivers on. It is closed when the
// stream ends, either by Stop, context cancellation, EndAfter, or a fetch
// failure (see Err).
func (s *BlockStream) Blocks() <-chan *Block { return s.blocks }

// Stop ends the stream. Safe to call more than once.
func (s *BlockStream) Stop() { s.cancel() }

// Err reports why the stream ended. It is nil until the channel closes, and
// nil afterwards for a clean stop.
func (s *BlockStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *BlockStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// StreamBlocks follows the chain head, optionally backfilling opts.Behind
// blocks first. Each block is delivered exactly once, in order, with no
// gaps.
func (c *Client) StreamBlocks(ctx context.Context, opts StreamOptions) (*BlockStream, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ChannelSize <= 0 {
		opts.ChannelSize = 64
	}

	head, err := c.HeadBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	next := head + 1
	if opts.Behind > 0 {
		if opts.Behind >= head {
			next = 1
		} else {
			next = head - opts.Behind + 1
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &BlockStream{
		blocks: make(chan *Block, opts.ChannelSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go c.streamLoop(sctx, s, next, head, opts)
	return s, nil
}

func (c *Client) streamLoop(ctx context.Context, s *BlockStream, next, head uint64, opts StreamOptions) {
	defer close(s.done)
	defer close(s.blocks)
	defer s.cancel()

	deliver := func(b *Block) bool {
		select {
		case s.blocks <- b:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		if opts.EndAfter != nil && next > *opts.EndAfter {
			return
		}

		if next > head {
			select {
			case <-ctx.Done():
				return
			case <-time.After(opts.PollInterval):
			}
			newHead, err := c.HeadBlockNumber(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.fail(err)
				}
				return
			}
			head = newHead
			continue
		}

		last := head
		if opts.EndAfter != nil && *opts.EndAfter < last {
			last = *opts.EndAfter
		}
		// Cap the catch-up stride so one dispatch never balloons.
		if last-next >= 100 {
			last = next + 99
		}

		blocks, err := c.GetBlocks(ctx, int64(next), int64(last)+1)
		if err != nil {
			if ctx.Err() == nil {
				s.fail(err)
			}
			return
		}
		for _, b := range blocks {
			if !deliver(b) {
				return
			}
		}
		next = last + 1
	}
}
