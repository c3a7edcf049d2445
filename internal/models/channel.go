package models

import (
	"regexp"
	"time"
)

// ChannelStatus is the lifecycle state of a PaymentChannel. Transitions are
// monotonic along pending -> confirming -> confirmed -> completed, except
// Expired which may pre-empt any non-terminal status on a Pending channel
// past its Expires time. Terminal() reports Completed, Failed, Expired, and
// Consolidated as terminal; a Completed channel can still move on to
// Consolidated.
type ChannelStatus string

const (
	StatusPending      ChannelStatus = "pending"
	StatusConfirming   ChannelStatus = "confirming"
	StatusConfirmed    ChannelStatus = "confirmed"
	StatusCompleted    ChannelStatus = "completed"
	StatusFailed       ChannelStatus = "failed"
	StatusExpired      ChannelStatus = "expired"
	StatusConsolidated ChannelStatus = "consolidated"
)

func (s ChannelStatus) Terminal() bool {
	switch s {
	case StatusFailed, StatusExpired, StatusConsolidated, StatusCompleted:
		return true
	default:
		return false
	}
}

// ChannelTTL is the duration a pending channel may remain unpaid before the
// expiry sweep reclaims it: expires = created + 24h.
const ChannelTTL = 24 * time.Hour

// AddressCooldown is the minimum time a terminal channel's deposit address
// must sit idle before the vault will recycle it for a new channel.
const AddressCooldown = 7 * 24 * time.Hour

// PublicKeys are the four Hive public keys a caller must supply to name an
// account's authorities at creation time.
type PublicKeys struct {
	Owner   string `json:"owner"`
	Active  string `json:"active"`
	Posting string `json:"posting"`
	Memo    string `json:"memo"`
}

// PaymentChannel is a single attempt by one user to purchase exactly one
// Hive account via one cryptocurrency. See spec §3 for the invariants this
// type's repository must uphold.
type PaymentChannel struct {
	ChannelID      string
	Username       string
	Crypto         Crypto
	DepositAddress string
	AmountCrypto   string // fixed-point string, Crypto's native decimals
	AmountUSD      string // fixed-point string, 2 decimals
	Memo           string
	Status         ChannelStatus
	Confirmations  int
	TxHash         string
	PublicKeys     PublicKeys
	Created        time.Time
	Confirmed      *time.Time
	AccountCreated *time.Time
	Expires        time.Time
	HiveTxID       string
}

// StatusView is the derived, read-only projection returned by
// GET /payment/status/:channelId — it never mutates storage.
type StatusView struct {
	ChannelID         string        `json:"channelId"`
	Status            ChannelStatus `json:"status"`
	Message           string        `json:"message"`
	ProgressPercent   int           `json:"progressPercent"`
	Confirmations     int           `json:"confirmations"`
	RequiredConfirms  int           `json:"requiredConfirmations"`
	TxHash            string        `json:"txHash,omitempty"`
	DepositAddress    string        `json:"depositAddress"`
	AmountCrypto      string        `json:"amountCrypto"`
	ExpiresAt         time.Time     `json:"expiresAt"`
}

var (
	usernamePattern  = regexp.MustCompile(`^(?:[a-z][a-z0-9-]{1,}[a-z0-9])(?:\.[a-z][a-z0-9-]{1,}[a-z0-9])*$`)
	pubKeyPattern    = regexp.MustCompile(`^(STM|TST)[A-Za-z0-9]{50,60}$`)
	channelIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)
	txHashPattern    = regexp.MustCompile(`^[0-9a-f]{32,128}$`)
)

// ValidUsername enforces the length and shape rules from spec §6 on top of
// the dotted-label regex (3-16 total characters, lowercase).
func ValidUsername(u string) bool {
	if len(u) < 3 || len(u) > 16 {
		return false
	}
	return usernamePattern.MatchString(u)
}

func ValidPublicKey(k string) bool {
	return pubKeyPattern.MatchString(k)
}

func (p PublicKeys) Valid() bool {
	return ValidPublicKey(p.Owner) && ValidPublicKey(p.Active) &&
		ValidPublicKey(p.Posting) && ValidPublicKey(p.Memo)
}

func ValidChannelID(id string) bool {
	return channelIDPattern.MatchString(id)
}

func ValidTxHash(h string) bool {
	return txHashPattern.MatchString(h)
}
