package jsonrpc

import (
	"errors"
	"fmt"
)

// Correlation errors. Any of these indicates a protocol violation by the
// node: batch responses must carry exactly the ids that were sent.
var (
	// ErrUnknownID is returned when a response id matches no request.
	ErrUnknownID = errors.New("response id matches no request")

	// ErrDuplicateID is returned when two responses share an id.
	ErrDuplicateID = errors.New("duplicate response id")

	// ErrMissingResponse is returned when a request got no response.
	ErrMissingResponse = errors.New("no response for request id")
)

// Correlate matches batch responses back to their requests by id and returns
// them in request order. JSON-RPC servers are free to reorder batch
// responses, so array position means nothing.
func Correlate(reqs []Request, resps []Response) ([]Response, error) {
	wanted := make(map[uint64]int, len(reqs))
	for i, req := range reqs {
		wanted[req.ID] = i
	}

	ordered := make([]Response, len(reqs))
	seen := make(map[uint64]bool, len(resps))
	for _, r := range resps {
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true

		i, ok := wanted[r.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownID, r.ID)
		}
		ordered[i] = r
	}

	for _, req := range reqs {
		if !seen[req.ID] {
			return nil, fmt.Errorf("%w: %d", ErrMissingResponse, req.ID)
		}
	}
	return ordered, nil
}
