// Package nodepool manages the ordered list of RPC node URLs a client
// rotates through on failure.
//
// The pool keeps a current-node cursor. Callers snapshot the current node
// with Current before each attempt and advance the cursor with Advance when
// an attempt fails; advancing wraps around at the end of the list. A
// concurrently in-flight request keeps the node it already snapshotted —
// rotation only affects which node later attempts pick.
package nodepool

import (
	"errors"
	"sync"
	"time"
)

// ErrNoNodes is returned when a pool would be left without any node.
var ErrNoNodes = errors.New("node pool is empty")

// node tracks one endpoint and its failure bookkeeping.
type node struct {
	url         string
	failures    int
	lastError   error
	lastSuccess time.Time
}

// Pool is a rotating set of RPC node URLs.
type Pool struct {
	mu     sync.RWMutex
	nodes  []*node
	cursor int
}

// New creates a pool from the given URLs. Empty URLs are skipped; an empty
// result fails fast with ErrNoNodes.
func New(urls []string) (*Pool, error) {
	p := &Pool{}
	if err := p.SetNodes(urls); err != nil {
		return nil, err
	}
	return p, nil
}

// SetNodes replaces the node list and resets the cursor to the first node.
func (p *Pool) SetNodes(urls []string) error {
	nodes := make([]*node, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		nodes = append(nodes, &node{url: u})
	}
	if len(nodes) == 0 {
		return ErrNoNodes
	}

	p.mu.Lock()
	p.nodes = nodes
	p.cursor = 0
	p.mu.Unlock()
	return nil
}

// Current returns the node at the cursor.
func (p *Pool) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nodes[p.cursor].url
}

// Advance moves the cursor to the next node, wrapping around at the end of
// the list, and returns the new current node.
func (p *Pool) Advance() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = (p.cursor + 1) % len(p.nodes)
	return p.nodes[p.cursor].url
}

// MarkFailure records a failed attempt against a node.
func (p *Pool) MarkFailure(url string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.nodes {
		if n.url == url {
			n.failures++
			n.lastError = err
			return
		}
	}
}

// MarkSuccess records a successful attempt against a node and clears its
// last error.
func (p *Pool) MarkSuccess(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.nodes {
		if n.url == url {
			n.lastSuccess = time.Now()
			n.lastError = nil
			return
		}
	}
}

// Len returns the number of nodes in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes)
}

// Cursor returns the current cursor position.
func (p *Pool) Cursor() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cursor
}

// URLs returns the node URLs in pool order.
func (p *Pool) URLs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	urls := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		urls[i] = n.url
	}
	return urls
}

// NodeInfo is a point-in-time snapshot of one node's state.
type NodeInfo struct {
	URL         string
	Current     bool
	Failures    int
	LastError   error
	LastSuccess time.Time
}

// Status returns a snapshot of every node's state, in pool order.
func (p *Pool) Status() []NodeInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	infos := make([]NodeInfo, len(p.nodes))
	for i, n := range p.nodes {
		infos[i] = NodeInfo{
			URL:         n.url,
			Current:     i == p.cursor,
			Failures:    n.failures,
			LastError:   n.lastError,
			LastSuccess: n.lastSuccess,
		}
	}
	return infos
}
