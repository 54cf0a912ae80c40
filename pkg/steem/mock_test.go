package steem

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/hivebridge/steemrpc/pkg/jsonrpc"
)

// wireRequest mirrors the request envelope with raw params so handlers can
// decode them as they like.
type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type wireResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      uint64         `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *jsonrpc.Error `json:"error,omitempty"`
}

// mockNode is a scriptable JSON-RPC endpoint that understands both single
// requests and batch arrays.
type mockNode struct {
	t *testing.T

	mu           sync.Mutex
	requests     int
	batchSizes   []int
	failStatus   int
	failFor      int
	reverseBatch bool
	dropID       uint64
	dupID        uint64
	rawBody      string

	handle func(req wireRequest) (any, *jsonrpc.Error)

	srv *httptest.Server
}

func newMockNode(t *testing.T, handle func(req wireRequest) (any, *jsonrpc.Error)) *mockNode {
	m := &mockNode{t: t, handle: handle}
	m.srv = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *mockNode) URL() string { return m.srv.URL }

func (m *mockNode) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *mockNode) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batchSizes...)
}

func (m *mockNode) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		m.t.Errorf("read request body: %v", err)
		w.WriteHeader(500)
		return
	}

	m.mu.Lock()
	m.requests++
	failing := m.failStatus != 0 && (m.failFor == 0 || m.requests <= m.failFor)
	raw := m.rawBody
	m.mu.Unlock()

	if failing {
		w.WriteHeader(m.failStatus)
		return
	}
	if raw != "" {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, raw)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		var reqs []wireRequest
		if err := json.Unmarshal(body, &reqs); err != nil {
			m.t.Errorf("unmarshal batch: %v", err)
			w.WriteHeader(500)
			return
		}
		m.mu.Lock()
		m.batchSizes = append(m.batchSizes, len(reqs))
		m.mu.Unlock()

		resps := make([]wireResponse, 0, len(reqs))
		for _, req := range reqs {
			if req.ID == m.dropID && m.dropID != 0 {
				continue
			}
			resps = append(resps, m.respond(req))
			if req.ID == m.dupID && m.dupID != 0 {
				resps = append(resps, m.respond(req))
			}
		}
		if m.reverseBatch {
			for i, j := 0, len(resps)-1; i < j; i, j = i+1, j-1 {
				resps[i], resps[j] = resps[j], resps[i]
			}
		}
		json.NewEncoder(w).Encode(resps)
		return
	}

	var req wireRequest
	if err := json.Unmarshal(body, &req); err != nil {
		m.t.Errorf("unmarshal request: %v", err)
		w.WriteHeader(500)
		return
	}
	json.NewEncoder(w).Encode(m.respond(req))
}

func (m *mockNode) respond(req wireRequest) wireResponse {
	result, rpcErr := m.handle(req)
	return wireResponse{
		JSONRPC: jsonrpc.Version,
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	}
}

// echoHandler answers every call with its own id, so tests can verify
// ordering without caring about payloads.
func echoHandler(req wireRequest) (any, *jsonrpc.Error) {
	return map[string]any{"method": req.Method, "id": req.ID}, nil
}

// blockHandler answers condenser_api.get_block with a minimal block whose
// witness encodes the requested number.
func blockHandler(req wireRequest) (any, *jsonrpc.Error) {
	var params []uint64
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 1 {
		return nil, &jsonrpc.Error{Code: -32602, Message: "bad params"}
	}
	return testBlockJSON(params[0]), nil
}

func testBlockJSON(num uint64) map[string]any {
	return map[string]any{
		"block_id":                "00bc614e00000000000000000000000000000000",
		"previous":                "00bc614d00000000000000000000000000000000",
		"timestamp":               "2021-04-08T03:01:15",
		"witness":                 blockWitness(num),
		"signing_key":             "STM4tzr1wjmuov9ftXR6QNv7qDWsbShMBPQpuwatZsfSc4LatBTKz",
		"transaction_merkle_root": "0000000000000000000000000000000000000000",
		"witness_signature":       "1f6aa1c6311c",
		"transactions":            []any{},
		"transaction_ids":         []any{},
	}
}

func blockWitness(num uint64) string {
	return "witness-" + strconv.FormatUint(num, 10)
}
