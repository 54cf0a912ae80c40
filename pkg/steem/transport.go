package steem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// maxResponseBytes caps how much of a node's reply is read. Full blocks with
// every operation expanded stay well under this.
const maxResponseBytes = 64 << 20

// Transport performs one HTTP POST against a node. It exists so tests can
// substitute failing or scripted transports without a listener.
type Transport interface {
	Post(ctx context.Context, url string, body []byte, headers map[string]string) (status int, resp []byte, err error)
}

// HTTPTransport is the production Transport. The zero value is not usable;
// call NewHTTPTransport.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a Transport with connection reuse tuned for
// hammering a small set of RPC endpoints.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
				// Compression is negotiated manually so zstd can be
				// offered alongside gzip.
				DisableCompression: true,
			},
		},
	}
}

// Post sends body to url and returns the status code and decompressed
// response bytes.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "zstd, gzip")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = io.LimitReader(resp.Body, maxResponseBytes)
	switch resp.Header.Get("Content-Encoding") {
	case "zstd":
		dec, err := zstd.NewReader(reader)
		if err != nil {
			return resp.StatusCode, nil, fmt.Errorf("zstd response: %w", err)
		}
		defer dec.Close()
		reader = dec
	case "gzip":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return resp.StatusCode, nil, fmt.Errorf("gzip response: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}
