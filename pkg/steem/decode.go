package steem

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hivebridge/steemrpc/internal/types"
	"github.com/hivebridge/steemrpc/pkg/jsonrpc"
)

// Account is a decoded chain account. Fields the decoder does not model are
// preserved verbatim in Extra, keyed by their wire name.
type Account struct {
	Name            string
	ID              uint64
	Created         time.Time
	MemoKey         string
	RecoveryAccount string
	WitnessVotes    []string
	JSONMetadata    string
	Owner           json.RawMessage
	Posting         json.RawMessage
	Balances        map[string]types.Amount
	Extra           map[string]json.RawMessage
}

// Block is a decoded chain block. Operations inside transactions keep their
// raw payloads; unmodelled fields land in Extra.
type Block struct {
	Number                uint64
	BlockID               string
	Previous              string
	Timestamp             time.Time
	Witness               string
	SigningKey            string
	TransactionMerkleRoot string
	WitnessSignature      string
	TransactionIDs        []string
	Transactions          []Transaction
	Extra                 map[string]json.RawMessage
}

// Transaction is one transaction inside a block.
type Transaction struct {
	RefBlockNum    uint32          `json:"ref_block_num"`
	RefBlockPrefix uint64          `json:"ref_block_prefix"`
	Expiration     chainTime       `json:"expiration"`
	Operations     []Operation     `json:"operations"`
	Extensions     json.RawMessage `json:"extensions"`
	Signatures     []string        `json:"signatures"`
}

// Operation is one operation inside a transaction. On the wire it is either
// a ["name", {...}] pair (legacy) or a {"type": "name_operation", "value":
// {...}} object (appbase); both decode into the same shape.
type Operation struct {
	Type  string
	Value json.RawMessage
}

// UnmarshalJSON accepts both operation encodings.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("operation pair has %d elements", len(pair))
		}
		if err := json.Unmarshal(pair[0], &op.Type); err != nil {
			return fmt.Errorf("operation name: %w", err)
		}
		op.Value = pair[1]
		return nil
	}

	var obj struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("operation: %w", err)
	}
	op.Type = obj.Type
	op.Value = obj.Value
	return nil
}

// chainTime parses the chain's bare ISO-8601 timestamps, which carry no zone
// suffix and are always UTC.
type chainTime struct {
	time.Time
}

const chainTimeLayout = "2006-01-02T15:04:05"

func (t *chainTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(chainTimeLayout, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

// unwrap extracts a response's result, promoting a node-reported error
// object to *RPCError.
func unwrap(resp *jsonrpc.Response) (json.RawMessage, error) {
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// accountBalanceFields maps wire field names holding balances. Hive renames
// the debt asset fields, so both spellings are listed.
var accountBalanceFields = []string{
	"balance",
	"savings_balance",
	"sbd_balance",
	"savings_sbd_balance",
	"hbd_balance",
	"savings_hbd_balance",
	"vesting_shares",
	"reward_steem_balance",
	"reward_sbd_balance",
	"reward_hive_balance",
	"reward_hbd_balance",
	"reward_vesting_balance",
}

// decodeAccount maps one raw account object into an Account.
func decodeAccount(chain types.Chain, raw json.RawMessage) (*Account, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Shape: "account", Err: err}
	}

	acct := &Account{
		Balances: map[string]types.Amount{},
		Extra:    map[string]json.RawMessage{},
	}

	consume := func(key string, dst any) error {
		v, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if err := json.Unmarshal(v, dst); err != nil {
			return &DecodeError{Shape: "account." + key, Err: err}
		}
		return nil
	}

	var created chainTime
	if err := consume("name", &acct.Name); err != nil {
		return nil, err
	}
	if err := consume("id", &acct.ID); err != nil {
		return nil, err
	}
	if err := consume("created", &created); err != nil {
		return nil, err
	}
	acct.Created = created.Time
	if err := consume("memo_key", &acct.MemoKey); err != nil {
		return nil, err
	}
	if err := consume("recovery_account", &acct.RecoveryAccount); err != nil {
		return nil, err
	}
	if err := consume("witness_votes", &acct.WitnessVotes); err != nil {
		return nil, err
	}
	if err := consume("json_metadata", &acct.JSONMetadata); err != nil {
		return nil, err
	}
	if v, ok := fields["owner"]; ok {
		acct.Owner = v
		delete(fields, "owner")
	}
	if v, ok := fields["posting"]; ok {
		acct.Posting = v
		delete(fields, "posting")
	}

	for _, key := range accountBalanceFields {
		v, ok := fields[key]
		if !ok {
			continue
		}
		delete(fields, key)
		amt, err := decodeAmount(chain, v)
		if err != nil {
			return nil, &DecodeError{Shape: "account." + key, Err: err}
		}
		acct.Balances[key] = amt
	}

	acct.Extra = fields
	return acct, nil
}

// decodeAmount accepts both balance encodings: the legacy string form
// ("16759.930 STEEM") and the appbase object form
// ({"amount":"...","precision":3,"nai":"@@000000021"}).
func decodeAmount(chain types.Chain, raw json.RawMessage) (types.Amount, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return types.ParseAmount(chain, s)
	}

	var obj struct {
		Amount    string `json:"amount"`
		Precision int    `json:"precision"`
		NAI       string `json:"nai"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return types.Amount{}, err
	}
	return types.ParseNAIAmount(chain, obj.Amount, obj.Precision, obj.NAI)
}

// decodeBlock maps one raw block object into a Block. The number is taken
// from the request context since legacy block objects do not carry it.
func decodeBlock(num uint64, raw json.RawMessage) (*Block, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, &DecodeError{Shape: "block", Err: fmt.Errorf("node returned null for block %d", num)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Shape: "block", Err: err}
	}

	b := &Block{Number: num}

	consume := func(key string, dst any) error {
		v, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if err := json.Unmarshal(v, dst); err != nil {
			return &DecodeError{Shape: "block." + key, Err: err}
		}
		return nil
	}

	var ts chainTime
	if err := consume("block_id", &b.BlockID); err != nil {
		return nil, err
	}
	if err := consume("previous", &b.Previous); err != nil {
		return nil, err
	}
	if err := consume("timestamp", &ts); err != nil {
		return nil, err
	}
	b.Timestamp = ts.Time
	if err := consume("witness", &b.Witness); err != nil {
		return nil, err
	}
	if err := consume("signing_key", &b.SigningKey); err != nil {
		return nil, err
	}
	if err := consume("transaction_merkle_root", &b.TransactionMerkleRoot); err != nil {
		return nil, err
	}
	if err := consume("witness_signature", &b.WitnessSignature); err != nil {
		return nil, err
	}
	if err := consume("transaction_ids", &b.TransactionIDs); err != nil {
		return nil, err
	}
	if err := consume("transactions", &b.Transactions); err != nil {
		return nil, err
	}

	b.Extra = fields
	return b, nil
}
