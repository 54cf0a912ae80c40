package jsonrpc

// Encode builds the wire request for one logical call in the given dialect.
//
// Appbase joins api and method into a dotted method string and passes params
// through unchanged (array or object, per the target method's convention).
// The legacy dialect wraps everything in the generic "call" method with
// positional [api, method, params]. A Call with an empty API is sent with
// its method as-is in both dialects; that is how raw json_call requests with
// pre-dotted methods travel.
func Encode(c Call, id uint64, appbase bool) Request {
	params := c.Params
	if params == nil {
		params = []any{}
	}

	if c.API == "" {
		return Request{JSONRPC: Version, ID: id, Method: c.Method, Params: params}
	}

	if appbase {
		return Request{
			JSONRPC: Version,
			ID:      id,
			Method:  c.API + "." + c.Method,
			Params:  params,
		}
	}

	return Request{
		JSONRPC: Version,
		ID:      id,
		Method:  "call",
		Params:  []any{c.API, c.Method, params},
	}
}

// EncodeBatch encodes calls with sequential ids starting at firstID.
// Ids within a batch are unique and monotonic; they are the only reliable
// way to map batch responses back to requests.
func EncodeBatch(calls []Call, firstID uint64, appbase bool) []Request {
	reqs := make([]Request, len(calls))
	for i, c := range calls {
		reqs[i] = Encode(c, firstID+uint64(i), appbase)
	}
	return reqs
}
