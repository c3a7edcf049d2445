package models

import "time"

// PaymentConfirmation is upserted on every sighting of a transaction for a
// channel; (ChannelID, TxHash) is unique.
type PaymentConfirmation struct {
	ChannelID      string
	TxHash         string
	BlockHeight    int64
	Confirmations  int
	AmountReceived string
	DetectedAt     time.Time
	ProcessedAt    *time.Time
}

// CryptoAddress is a vault-issued, per-(crypto, derivationIndex) deposit
// address. ReusableAfter is nil until the owning channel reaches a terminal
// status, at which point it is set to terminal-time + AddressCooldown.
type CryptoAddress struct {
	Crypto               Crypto
	DerivationIndex       uint32
	Address              string
	PublicKey            string
	EncryptedPrivateKey  []byte
	DerivationPath       string
	AddressType          string
	ChannelID            string
	ReusableAfter        *time.Time
}

type CreationMethod string

const (
	MethodACT        CreationMethod = "ACT"
	MethodDelegation CreationMethod = "DELEGATION"
)

type AttemptStatus string

const (
	AttemptAttempting AttemptStatus = "attempting"
	AttemptSuccess    AttemptStatus = "success"
	AttemptFailed     AttemptStatus = "failed"
)

// HiveCreationAttempt records one orchestrator attempt to create a channel's
// named account. Multiple rows per channel are expected across retries.
type HiveCreationAttempt struct {
	ID            int64
	ChannelID     string
	Method        CreationMethod
	ACTUsed       bool
	CreationFee   string
	TxID          string
	AttemptCount  int
	Status        AttemptStatus
	ErrorMessage  string
	CreatedAt     time.Time
}

// ACTBalance is the creator account's Account Creation Token inventory,
// tracked per creator account name.
type ACTBalance struct {
	CreatorAccount  string
	ACTBalance      int
	ResourceCredits int64
	LastClaimTime   time.Time
	LastRCCheck     time.Time
}

type RCCost struct {
	OperationType string
	APITimestamp  time.Time
	RCNeeded      int64
	HPNeeded      float64
}

// CryptoRate is the per-currency line item inside a PricingSnapshot.
type CryptoRate struct {
	Crypto                 Crypto
	Price                  float64
	AmountNeeded           string
	TransferFee            string
	TotalAmount            string
	NetworkFeeSurchargeUSD float64
	FinalCostUSD           float64
}

type PricingSnapshot struct {
	ID            int64
	HivePriceUSD  float64
	BaseCostUSD   float64
	FinalCostUSD  float64
	CryptoRates   map[Crypto]CryptoRate
	TransferCosts map[Crypto]string
	Fallback      bool
	CreatedAt     time.Time
}

type ConsolidationPriority string

const (
	PriorityLow    ConsolidationPriority = "low"
	PriorityMedium ConsolidationPriority = "medium"
	PriorityHigh   ConsolidationPriority = "high"
)

type ConsolidationTransaction struct {
	TxID                string
	Crypto              Crypto
	DestinationAddress  string
	Priority            ConsolidationPriority
	SourceChannelIDs    []string
	GrossAmount         string
	EstimatedFee        string
	NetAmount           string
	PrimaryTxHash       string
	AdditionalTxHashes  []string
	CreatedAt           time.Time
}

type NotificationPriority string

const (
	PriorityNotifyNormal NotificationPriority = "normal"
	PriorityNotifyHigh   NotificationPriority = "high"
)

type Notification struct {
	ID        int64
	Username  string
	Type      string
	Title     string
	Message   string
	Data      map[string]interface{}
	Priority  NotificationPriority
	TTL       time.Duration
	CreatedAt time.Time
	ReadAt    *time.Time
}
