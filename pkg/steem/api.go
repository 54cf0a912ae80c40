package steem

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hivebridge/steemrpc/internal/types"
	"github.com/hivebridge/steemrpc/pkg/jsonrpc"
)

// JSONCall sends one raw JSON-RPC call and returns its result bytes. The
// method is passed through as-is, so dotted appbase methods work directly.
func (c *Client) JSONCall(ctx context.Context, method string, params any) (json.RawMessage, error) {
	resps, err := c.Dispatch(ctx, []jsonrpc.Call{{Method: method, Params: params}})
	if err != nil {
		return nil, err
	}
	return unwrap(&resps[0])
}

// APICall sends one call addressed by API and method, encoded per the
// client's dialect.
func (c *Client) APICall(ctx context.Context, api, method string, params any) (json.RawMessage, error) {
	resps, err := c.Dispatch(ctx, []jsonrpc.Call{{API: api, Method: method, Params: params}})
	if err != nil {
		return nil, err
	}
	return unwrap(&resps[0])
}

// queryAPI is the namespace database-style queries live under: condenser_api
// on appbase nodes, database_api on legacy forks (which predate
// condenser_api entirely).
func queryAPI(opts Options) string {
	if opts.LegacyDialect {
		return "database_api"
	}
	return "condenser_api"
}

// GetAccounts fetches accounts by name. Names the chain does not know are
// omitted from the result, not errors. Results are cached briefly; attach an
// AccountStore for a persistent cache. The returned map is the caller's to
// mutate.
func (c *Client) GetAccounts(ctx context.Context, names ...string) (map[string]*Account, error) {
	if len(names) == 0 {
		return map[string]*Account{}, nil
	}
	opts := c.options()

	cacheKey := accountsCacheKey(names)
	if v, ok := c.cache.get(cacheKey); ok {
		return copyAccounts(v.(map[string]*Account)), nil
	}

	out := make(map[string]*Account, len(names))
	missing := names
	if c.accounts != nil {
		missing = missing[:0:0]
		for _, name := range names {
			raw, err := c.accounts.Get(name, accountCacheTTL)
			if err != nil || raw == nil {
				missing = append(missing, name)
				continue
			}
			acct, err := decodeAccount(opts.Chain, raw)
			if err != nil {
				missing = append(missing, name)
				continue
			}
			out[name] = acct
		}
	}

	if len(missing) > 0 {
		rawAccounts, err := c.fetchAccounts(ctx, opts, missing)
		if err != nil {
			return nil, err
		}
		for _, raw := range rawAccounts {
			acct, err := decodeAccount(opts.Chain, raw)
			if err != nil {
				return nil, err
			}
			out[acct.Name] = acct
			if c.accounts != nil {
				if err := c.accounts.Put(acct.Name, raw); err != nil {
					c.log.Warn().Str("account", acct.Name).Err(err).Msg("account store write failed")
				}
			}
		}
	}

	c.cache.set(cacheKey, out, accountCacheTTL)
	return copyAccounts(out), nil
}

// copyAccounts keeps cached maps out of callers' hands.
func copyAccounts(m map[string]*Account) map[string]*Account {
	out := make(map[string]*Account, len(m))
	for name, acct := range m {
		out[name] = acct
	}
	return out
}

func (c *Client) fetchAccounts(ctx context.Context, opts Options, names []string) ([]json.RawMessage, error) {
	if !opts.LegacyDialect {
		result, err := c.APICall(ctx, "database_api", "find_accounts",
			map[string]any{"accounts": names})
		if err != nil {
			return nil, err
		}
		var wrapper struct {
			Accounts []json.RawMessage `json:"accounts"`
		}
		if err := json.Unmarshal(result, &wrapper); err != nil {
			return nil, &DecodeError{Shape: "find_accounts", Err: err}
		}
		return wrapper.Accounts, nil
	}

	result, err := c.APICall(ctx, "database_api", "get_accounts", []any{names})
	if err != nil {
		return nil, err
	}
	var accounts []json.RawMessage
	if err := json.Unmarshal(result, &accounts); err != nil {
		return nil, &DecodeError{Shape: "get_accounts", Err: err}
	}
	return accounts, nil
}

// GetBalances returns one account's balances keyed by wire field name
// ("balance", "vesting_shares", ...).
func (c *Client) GetBalances(ctx context.Context, name string) (map[string]types.Amount, error) {
	accounts, err := c.GetAccounts(ctx, name)
	if err != nil {
		return nil, err
	}
	acct, ok := accounts[name]
	if !ok {
		return nil, fmt.Errorf("account %q not found", name)
	}
	return acct.Balances, nil
}

// GetBlock fetches one block by number, reading through the attached
// BlockStore when present.
func (c *Client) GetBlock(ctx context.Context, num uint64) (*Block, error) {
	if c.blocks != nil {
		if raw, err := c.blocks.Get(num); err == nil && raw != nil {
			return decodeBlock(num, raw)
		}
	}

	result, err := c.APICall(ctx, queryAPI(c.options()), "get_block", []any{num})
	if err != nil {
		return nil, err
	}
	block, err := decodeBlock(num, result)
	if err != nil {
		return nil, err
	}
	if c.blocks != nil {
		if err := c.blocks.Put(num, result); err != nil {
			c.log.Warn().Uint64("block", num).Err(err).Msg("block store write failed")
		}
	}
	return block, nil
}

// GetBlocks fetches the half-open block range [start, end) as one batched
// dispatch, one call per block number. Non-positive bounds are relative to
// the head block: start -100, end 0 covers the hundred blocks before head.
func (c *Client) GetBlocks(ctx context.Context, start, end int64) ([]*Block, error) {
	opts := c.options()
	first, last, err := c.resolveRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	nums := make([]uint64, 0, last-first)
	calls := make([]jsonrpc.Call, 0, last-first)
	blocks := make([]*Block, last-first)
	for num := first; num < last; num++ {
		if c.blocks != nil {
			if raw, err := c.blocks.Get(num); err == nil && raw != nil {
				block, err := decodeBlock(num, raw)
				if err == nil {
					blocks[num-first] = block
					continue
				}
			}
		}
		nums = append(nums, num)
		calls = append(calls, jsonrpc.Call{
			API:    queryAPI(opts),
			Method: "get_block",
			Params: []any{num},
		})
	}

	if len(calls) > 0 {
		resps, err := c.Dispatch(ctx, calls)
		if err != nil {
			return nil, err
		}
		for i := range resps {
			result, err := unwrap(&resps[i])
			if err != nil {
				return nil, err
			}
			block, err := decodeBlock(nums[i], result)
			if err != nil {
				return nil, err
			}
			blocks[nums[i]-first] = block
			if c.blocks != nil {
				if err := c.blocks.Put(nums[i], result); err != nil {
					c.log.Warn().Uint64("block", nums[i]).Err(err).Msg("block store write failed")
				}
			}
		}
	}
	return blocks, nil
}

// resolveRange turns possibly head-relative bounds into an absolute
// half-open [first, last) range.
func (c *Client) resolveRange(ctx context.Context, start, end int64) (uint64, uint64, error) {
	if start > 0 && end > 0 {
		if end <= start {
			return 0, 0, fmt.Errorf("empty block range [%d, %d)", start, end)
		}
		return uint64(start), uint64(end), nil
	}

	head, err := c.HeadBlockNumber(ctx)
	if err != nil {
		return 0, 0, err
	}
	first, last := start, end
	if first <= 0 {
		first += int64(head)
	}
	if last <= 0 {
		last += int64(head)
	}
	if first < 1 || last <= first {
		return 0, 0, fmt.Errorf("block range [%d, %d) resolves to [%d, %d)", start, end, first, last)
	}
	return uint64(first), uint64(last), nil
}

// GetProps fetches the chain's dynamic global properties.
func (c *Client) GetProps(ctx context.Context) (map[string]json.RawMessage, error) {
	result, err := c.APICall(ctx, queryAPI(c.options()), "get_dynamic_global_properties", []any{})
	if err != nil {
		return nil, err
	}
	var props map[string]json.RawMessage
	if err := json.Unmarshal(result, &props); err != nil {
		return nil, &DecodeError{Shape: "dynamic_global_properties", Err: err}
	}
	return props, nil
}

// HeadBlockNumber returns the chain's current head block number.
func (c *Client) HeadBlockNumber(ctx context.Context) (uint64, error) {
	props, err := c.GetProps(ctx)
	if err != nil {
		return 0, err
	}
	raw, ok := props["head_block_number"]
	if !ok {
		return 0, &DecodeError{Shape: "dynamic_global_properties", Err: fmt.Errorf("missing head_block_number")}
	}
	var head uint64
	if err := json.Unmarshal(raw, &head); err != nil {
		return 0, &DecodeError{Shape: "head_block_number", Err: err}
	}
	return head, nil
}

// GetNodeConfig fetches the node's compile-time configuration. The result is
// cached since it only changes on hardforks.
func (c *Client) GetNodeConfig(ctx context.Context) (map[string]json.RawMessage, error) {
	if v, ok := c.cache.get("node_config"); ok {
		return v.(map[string]json.RawMessage), nil
	}

	result, err := c.APICall(ctx, queryAPI(c.options()), "get_config", []any{})
	if err != nil {
		return nil, err
	}
	var cfg map[string]json.RawMessage
	if err := json.Unmarshal(result, &cfg); err != nil {
		return nil, &DecodeError{Shape: "get_config", Err: err}
	}
	c.cache.set("node_config", cfg, configCacheTTL)
	return cfg, nil
}

// ChainID returns the chain id, discovered from the node config key ending
// in "_CHAIN_ID" (the constant's name differs per fork).
func (c *Client) ChainID(ctx context.Context) (string, error) {
	if v, ok := c.cache.get("chain_id"); ok {
		return v.(string), nil
	}

	cfg, err := c.GetNodeConfig(ctx)
	if err != nil {
		return "", err
	}
	for key, raw := range cfg {
		if !strings.HasSuffix(key, "_CHAIN_ID") {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", &DecodeError{Shape: key, Err: err}
		}
		c.cache.set("chain_id", id, chainIDCacheTTL)
		return id, nil
	}
	return "", &DecodeError{Shape: "get_config", Err: fmt.Errorf("no *_CHAIN_ID key in node config")}
}

// HistoryEntry is one entry of an account's operation history.
type HistoryEntry struct {
	Index uint64
	Op    json.RawMessage
}

// UnmarshalJSON decodes the wire pair [index, {...}].
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("history entry has %d elements", len(pair))
	}
	idx, err := strconv.ParseUint(strings.TrimSpace(string(pair[0])), 10, 64)
	if err != nil {
		return fmt.Errorf("history index: %w", err)
	}
	h.Index = idx
	h.Op = pair[1]
	return nil
}

// AccountHistory fetches up to limit history entries for an account, ending
// at entry start (-1 for the most recent).
func (c *Client) AccountHistory(ctx context.Context, account string, start int64, limit uint32) ([]HistoryEntry, error) {
	result, err := c.APICall(ctx, queryAPI(c.options()), "get_account_history",
		[]any{account, start, limit})
	if err != nil {
		return nil, err
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(result, &entries); err != nil {
		return nil, &DecodeError{Shape: "account_history", Err: err}
	}
	return entries, nil
}
