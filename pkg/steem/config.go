package steem

import (
	"fmt"
	"time"

	"github.com/hivebridge/steemrpc/internal/types"
)

// Option keys accepted by Options.Set / Client.ConfigSet. The set is closed:
// unknown keys fail with ConfigError.
const (
	OptRPCNodes   = "rpc_nodes"
	OptUseAppbase = "use_appbase"
	OptHeaders    = "headers"
	OptMaxRetry   = "max_retry"
	OptRetryDelay = "retry_delay"
	OptBatchSize  = "batch_size"
	OptTimeout    = "timeout"
)

// Default node lists per chain. All endpoints speak HTTPS JSON-RPC.
var defaultNodes = map[types.Chain][]string{
	types.ChainHive: {
		"https://hived.privex.io",
		"https://api.deathwing.me",
		"https://anyx.io",
		"https://rpc.ausbit.dev",
		"https://techcoderx.com",
		"https://api.openhive.network",
	},
	types.ChainSteem: {
		"https://api.steemit.com",
	},
	types.ChainBlurt: {
		"https://blurtd.privex.io",
		"https://rpc.blurt.world",
	},
	types.ChainGolos: {
		"https://api.golos.id",
	},
}

// Default option values.
const (
	DefaultMaxRetry   = 10
	DefaultRetryDelay = 2 * time.Second
	DefaultBatchSize  = 40
	DefaultTimeout    = 10 * time.Second
)

// Options holds every per-client setting. One Options value is owned by each
// Client; there is no process-global configuration.
type Options struct {
	// Chain selects default nodes, the asset table and the key prefix.
	Chain types.Chain

	// RPCNodes is the ordered node pool.
	RPCNodes []string

	// LegacyDialect switches to the pre-appbase "call" convention. The zero
	// value speaks the modern dotted-method dialect, so a fresh Options is
	// appbase by default.
	LegacyDialect bool

	// Headers are sent with every HTTP request.
	Headers map[string]string

	// MaxRetry is how many times a failed request is retried (after the
	// initial attempt) before DispatchError, counted across the whole
	// request, not per node.
	MaxRetry int

	// RetryDelay is the flat pause between attempts.
	RetryDelay time.Duration

	// BatchSize caps the number of calls in one JSON-RPC batch array.
	BatchSize int

	// Timeout bounds each HTTP round-trip.
	Timeout time.Duration
}

// DefaultOptions returns the option set for a chain.
func DefaultOptions(chain types.Chain) Options {
	return Options{
		Chain:      chain,
		RPCNodes:   append([]string(nil), defaultNodes[chain]...),
		Headers:    map[string]string{"content-type": "application/json"},
		MaxRetry:   DefaultMaxRetry,
		RetryDelay: DefaultRetryDelay,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultTimeout,
	}
}

// WithDefaults fills unset fields from the chain's defaults.
func (o Options) WithDefaults() Options {
	if o.Chain == "" {
		o.Chain = types.ChainHive
	}
	d := DefaultOptions(o.Chain)
	if len(o.RPCNodes) == 0 {
		o.RPCNodes = d.RPCNodes
	}
	if o.Headers == nil {
		o.Headers = d.Headers
	}
	if o.MaxRetry == 0 {
		o.MaxRetry = d.MaxRetry
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.BatchSize == 0 {
		o.BatchSize = d.BatchSize
	}
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// Set updates one option by key. Values are coerced leniently where the
// original wire formats are ambiguous (retry_delay in seconds as a number,
// or as a time.Duration).
func (o *Options) Set(key string, value any) error {
	switch key {
	case OptRPCNodes:
		nodes, err := toStringSlice(value)
		if err != nil {
			return &ConfigError{Key: key, Reason: err.Error()}
		}
		o.RPCNodes = nodes
	case OptUseAppbase:
		b, ok := value.(bool)
		if !ok {
			return &ConfigError{Key: key, Reason: fmt.Sprintf("want bool, got %T", value)}
		}
		o.LegacyDialect = !b
	case OptHeaders:
		h, err := toStringMap(value)
		if err != nil {
			return &ConfigError{Key: key, Reason: err.Error()}
		}
		o.Headers = h
	case OptMaxRetry:
		n, err := toInt(value)
		if err != nil || n < 0 {
			return &ConfigError{Key: key, Reason: "want integer >= 0"}
		}
		o.MaxRetry = n
	case OptRetryDelay:
		d, err := toDuration(value)
		if err != nil || d < 0 {
			return &ConfigError{Key: key, Reason: "want duration or seconds >= 0"}
		}
		o.RetryDelay = d
	case OptBatchSize:
		n, err := toInt(value)
		if err != nil || n < 1 {
			return &ConfigError{Key: key, Reason: "want integer >= 1"}
		}
		o.BatchSize = n
	case OptTimeout:
		d, err := toDuration(value)
		if err != nil || d <= 0 {
			return &ConfigError{Key: key, Reason: "want duration or seconds > 0"}
		}
		o.Timeout = d
	default:
		return &ConfigError{Key: key, Reason: "unknown option"}
	}
	return nil
}

// Get reads one option by key.
func (o *Options) Get(key string) (any, error) {
	switch key {
	case OptRPCNodes:
		return append([]string(nil), o.RPCNodes...), nil
	case OptUseAppbase:
		return !o.LegacyDialect, nil
	case OptHeaders:
		h := make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			h[k] = v
		}
		return h, nil
	case OptMaxRetry:
		return o.MaxRetry, nil
	case OptRetryDelay:
		return o.RetryDelay, nil
	case OptBatchSize:
		return o.BatchSize, nil
	case OptTimeout:
		return o.Timeout, nil
	default:
		return nil, &ConfigError{Key: key, Reason: "unknown option"}
	}
}

func toStringSlice(v any) ([]string, error) {
	switch s := v.(type) {
	case []string:
		if len(s) == 0 {
			return nil, fmt.Errorf("want non-empty []string")
		}
		return append([]string(nil), s...), nil
	case string:
		if s == "" {
			return nil, fmt.Errorf("want non-empty []string")
		}
		return []string{s}, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("want []string, got %T element", e)
			}
			out = append(out, str)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("want non-empty []string")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want []string, got %T", v)
	}
}

func toStringMap(v any) (map[string]string, error) {
	switch m := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, e := range m {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("want map[string]string, got %T value", e)
			}
			out[k] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want map[string]string, got %T", v)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}

// toDuration accepts a time.Duration, or a bare number interpreted as
// seconds.
func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case int:
		return time.Duration(d) * time.Second, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("want duration, got %T", v)
	}
}
