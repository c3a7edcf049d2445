package hive

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

// transactionExpiry is how far out a built transaction's expiration field
// is set; graphene nodes reject transactions expired by the time they
// arrive, and 60 seconds comfortably covers broadcast latency.
const transactionExpiry = 60 * time.Second

// AccountClient wraps a node Client with the creator account's signing key
// and chain id, exposing the operations the orchestrator needs.
type AccountClient struct {
	rpc       *Client
	chainID   []byte
	creator   string
	activeKey *btcec.PrivateKey
}

func NewAccountClient(rpc *Client, chainIDHex, creator string, activeKeyWIF *btcec.PrivateKey) (*AccountClient, error) {
	chainID, err := hex.DecodeString(chainIDHex)
	if err != nil {
		return nil, fmt.Errorf("hive: decode chain id: %w", err)
	}
	return &AccountClient{rpc: rpc, chainID: chainID, creator: creator, activeKey: activeKeyWIF}, nil
}

type dynamicGlobalProperties struct {
	HeadBlockNumber uint32 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
}

func (c *AccountClient) headBlock(ctx context.Context) (dynamicGlobalProperties, error) {
	var props dynamicGlobalProperties
	raw, err := c.rpc.Call(ctx, "condenser_api.get_dynamic_global_properties", []interface{}{})
	if err != nil {
		return props, err
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return props, fmt.Errorf("hive: decode dynamic global properties: %w", err)
	}
	return props, nil
}

// AccountExists reports whether name is already a registered Hive account,
// used by the orchestrator's external-creation reconciliation loop.
func (c *AccountClient) AccountExists(ctx context.Context, name string) (bool, error) {
	raw, err := c.rpc.Call(ctx, "condenser_api.get_accounts", []interface{}{[]string{name}})
	if err != nil {
		return false, err
	}
	var accounts []json.RawMessage
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return false, fmt.Errorf("hive: decode accounts response: %w", err)
	}
	return len(accounts) > 0, nil
}

type rcAccount struct {
	RCManabar struct {
		CurrentMana string `json:"current_mana"`
	} `json:"rc_manabar"`
	MaxRC string `json:"max_rc"`
}

type rcAccountsResponse struct {
	RCAccounts []rcAccount `json:"rc_accounts"`
}

// ResourceCredits returns the creator's current resource credit balance via
// rc_api, the Hive resource-credit query.
func (c *AccountClient) ResourceCredits(ctx context.Context) (int64, error) {
	raw, err := c.rpc.Call(ctx, "rc_api.find_rc_accounts", map[string]interface{}{"accounts": []string{c.creator}})
	if err != nil {
		return 0, err
	}
	var resp rcAccountsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("hive: decode rc accounts response: %w", err)
	}
	if len(resp.RCAccounts) == 0 {
		return 0, gatewayerr.New(gatewayerr.NotFound, "creator account not found in rc_api", nil)
	}
	var mana int64
	if _, err := fmt.Sscanf(resp.RCAccounts[0].RCManabar.CurrentMana, "%d", &mana); err != nil {
		return 0, fmt.Errorf("hive: parse current_mana: %w", err)
	}
	return mana, nil
}

type accountACT struct {
	PendingClaimedAccounts int `json:"pending_claimed_accounts"`
}

// PendingClaimedAccounts returns how many unredeemed ACTs the creator
// currently holds.
func (c *AccountClient) PendingClaimedAccounts(ctx context.Context) (int, error) {
	raw, err := c.rpc.Call(ctx, "condenser_api.get_accounts", []interface{}{[]string{c.creator}})
	if err != nil {
		return 0, err
	}
	var accounts []accountACT
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return 0, fmt.Errorf("hive: decode account response: %w", err)
	}
	if len(accounts) == 0 {
		return 0, gatewayerr.New(gatewayerr.NotFound, "creator account not found", nil)
	}
	return accounts[0].PendingClaimedAccounts, nil
}

func toKeySet(k models.PublicKeys) keySet {
	return keySet{owner: k.Owner, active: k.Active, posting: k.Posting, memo: k.Memo}
}

func (c *AccountClient) buildAndBroadcast(ctx context.Context, op operation) (string, error) {
	head, err := c.headBlock(ctx)
	if err != nil {
		return "", err
	}
	refNum, refPrefix, err := refBlockFields(head.HeadBlockNumber, head.HeadBlockID)
	if err != nil {
		return "", fmt.Errorf("hive: derive reference block fields: %w", err)
	}

	tx := transaction{
		refBlockNum:    refNum,
		refBlockPrefix: refPrefix,
		expiration:     time.Now().Add(transactionExpiry),
		operations:     []operation{op},
	}
	sig := tx.sign(c.chainID, c.activeKey)

	trx := map[string]interface{}{
		"ref_block_num":    tx.refBlockNum,
		"ref_block_prefix": tx.refBlockPrefix,
		"expiration":       tx.expiration.UTC().Format("2006-01-02T15:04:05"),
		"operations":       opsToJSON(op),
		"extensions":       []interface{}{},
		"signatures":       []string{sig},
	}

	raw, err := c.rpc.Call(ctx, "condenser_api.broadcast_transaction_synchronous", []interface{}{trx})
	if err != nil {
		return "", gatewayerr.New(gatewayerr.ExternalUnavailable, "hive broadcast failed", err)
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("hive: decode broadcast response: %w", err)
	}
	return resp.ID, nil
}

// ClaimAccount spends RC to mint one ACT for the creator.
func (c *AccountClient) ClaimAccount(ctx context.Context) (string, error) {
	return c.buildAndBroadcast(ctx, claimAccountOp{creator: c.creator})
}

// CreateClaimedAccount redeems one of the creator's pending ACTs to mint
// newName with the four caller-supplied authorities.
func (c *AccountClient) CreateClaimedAccount(ctx context.Context, newName string, keys models.PublicKeys) (string, error) {
	return c.buildAndBroadcast(ctx, createClaimedAccountOp{
		creator: c.creator,
		newName: newName,
		keys:    toKeySet(keys),
	})
}

// CreateAccountWithFee pays the 3 HIVE delegation fee to mint newName.
func (c *AccountClient) CreateAccountWithFee(ctx context.Context, newName string, keys models.PublicKeys, feeHive float64) (string, error) {
	return c.buildAndBroadcast(ctx, accountCreateOp{
		feeAmount: int64(feeHive*1000 + 0.5),
		creator:   c.creator,
		newName:   newName,
		keys:      toKeySet(keys),
	})
}

// opsToJSON renders a single operation into condenser_api's
// [opName, opBody] wire shape. Only the operation variants this gateway
// broadcasts are handled.
func opsToJSON(op operation) []interface{} {
	switch o := op.(type) {
	case claimAccountOp:
		return []interface{}{[2]interface{}{"claim_account", map[string]interface{}{
			"creator":   o.creator,
			"fee":       "0.000 HIVE",
			"extensions": []interface{}{},
		}}}
	case createClaimedAccountOp:
		return []interface{}{[2]interface{}{"create_claimed_account", map[string]interface{}{
			"creator":        o.creator,
			"new_account_name": o.newName,
			"owner":          authorityJSON(o.keys.owner),
			"active":         authorityJSON(o.keys.active),
			"posting":        authorityJSON(o.keys.posting),
			"memo_key":       o.keys.memo,
			"json_metadata":  "",
			"extensions":     []interface{}{},
		}}}
	case accountCreateOp:
		return []interface{}{[2]interface{}{"account_create", map[string]interface{}{
			"fee":              fmt.Sprintf("%.3f HIVE", float64(o.feeAmount)/1000),
			"creator":          o.creator,
			"new_account_name": o.newName,
			"owner":            authorityJSON(o.keys.owner),
			"active":           authorityJSON(o.keys.active),
			"posting":          authorityJSON(o.keys.posting),
			"memo_key":         o.keys.memo,
			"json_metadata":    "",
		}}}
	default:
		return nil
	}
}

func authorityJSON(key string) map[string]interface{} {
	return map[string]interface{}{
		"weight_threshold": 1,
		"account_auths":    []interface{}{},
		"key_auths":        [][2]interface{}{{key, 1}},
	}
}
