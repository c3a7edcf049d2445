// Package orchestrator manages the creator account's ACT inventory and
// turns confirmed payment channels into created Hive accounts. Grounded on
// internal/services/wallet/service.go's shape: one struct holding every
// collaborator, state mutated only through explicit methods, no package
// level globals — the same "singleton service object" pattern spec §9's
// design note calls for applied to ACT inventory instead of wallet
// metadata.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

const (
	targetACTBalance  = 8
	rcSafetyMultiplier = 3.0
	rcReserveMultiplier = 2.0
	maxClaimsPerRun   = 5
	claimSpacing      = 5 * time.Second
	delegationFeeHive = 3.0

	mainLoopInterval   = 30 * time.Second
	claimLoopInterval  = 15 * time.Minute
	healthCheckInterval = 24 * time.Hour

	healthyClaimsRemaining       = 10
	needsAttentionClaimsRemaining = 3
)

// ChannelStore is the persistence surface the orchestrator needs.
type ChannelStore interface {
	ActiveChannelsByStatus(ctx context.Context, statuses ...models.ChannelStatus) ([]*models.PaymentChannel, error)
	MarkAccountCreated(ctx context.Context, channelID, hiveTxID string) error
	UpdateStatus(ctx context.Context, channelID string, status models.ChannelStatus, confirmations int, txHash string) error
}

// AttemptStore records one HiveCreationAttempt row per creation attempt.
type AttemptStore interface {
	Create(ctx context.Context, a *models.HiveCreationAttempt) error
	UpdateStatus(ctx context.Context, id int64, status models.AttemptStatus, txID, errMsg string) error
}

// ACTStore persists the creator account's ACT/RC inventory snapshot.
type ACTStore interface {
	Get(ctx context.Context, creatorAccount string) (*models.ACTBalance, error)
	Upsert(ctx context.Context, b *models.ACTBalance) error
}

// RCCostOracle supplies the RC budget for claim_account_operation.
type RCCostOracle interface {
	ClaimAccountFloor(ctx context.Context) int64
}

// HiveClient is the creator-account broadcast surface the orchestrator
// drives; implemented by internal/hive.AccountClient.
type HiveClient interface {
	AccountExists(ctx context.Context, name string) (bool, error)
	ResourceCredits(ctx context.Context) (int64, error)
	PendingClaimedAccounts(ctx context.Context) (int, error)
	ClaimAccount(ctx context.Context) (string, error)
	CreateClaimedAccount(ctx context.Context, newName string, keys models.PublicKeys) (string, error)
	CreateAccountWithFee(ctx context.Context, newName string, keys models.PublicKeys, feeHive float64) (string, error)
}

// Notifier is the narrow surface internal/notify exposes to the
// orchestrator.
type Notifier interface {
	Notify(ctx context.Context, username, kind, title, message string, data map[string]interface{}, priority models.NotificationPriority, ttl time.Duration) error
	PublishStatusChange(channelID string, status models.ChannelStatus, txHash string)
}

// HealthState is the daily ACT/RC health check's reported state.
type HealthState string

const (
	HealthHealthy        HealthState = "HEALTHY"
	HealthNeedsAttention HealthState = "NEEDS_ATTENTION"
	HealthCritical       HealthState = "CRITICAL"
)

// Health is the daily health check's report.
type Health struct {
	ClaimsRemaining  int64
	DaysSustainable  float64
	State            HealthState
}

type Orchestrator struct {
	creatorAccount string
	channels       ChannelStore
	attempts       AttemptStore
	act            ACTStore
	rc             RCCostOracle
	hive           HiveClient
	notifier       Notifier
	logger         *zap.Logger

	wake chan string
}

func New(creatorAccount string, channels ChannelStore, attempts AttemptStore, act ACTStore, rc RCCostOracle, hiveClient HiveClient, notifier Notifier, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		creatorAccount: creatorAccount,
		channels:       channels,
		attempts:       attempts,
		act:            act,
		rc:             rc,
		hive:           hiveClient,
		notifier:       notifier,
		logger:         logger,
		wake:           make(chan string, 64),
	}
}

// WakeForChannel lets the monitor prod the orchestrator into acting on one
// channel immediately instead of waiting for the 30-second backstop loop.
// Non-blocking: a full wake buffer just means the backstop loop picks it
// up on its next tick.
func (o *Orchestrator) WakeForChannel(channelID string) {
	select {
	case o.wake <- channelID:
	default:
	}
}

// Run starts the main backstop loop, the proactive claim loop, and the
// daily health check, returning when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	go o.mainLoop(ctx)
	go o.claimLoop(ctx)
	go o.healthCheckLoop(ctx)
}

func (o *Orchestrator) mainLoop(ctx context.Context) {
	ticker := time.NewTicker(mainLoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case channelID := <-o.wake:
			o.processOneByID(ctx, channelID)
		case <-ticker.C:
			o.processConfirmedChannels(ctx)
			o.reconcileExternalCreations(ctx)
		}
	}
}

func (o *Orchestrator) processOneByID(ctx context.Context, channelID string) {
	channels, err := o.channels.ActiveChannelsByStatus(ctx, models.StatusConfirmed)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("wake: failed to load confirmed channels", zap.Error(err))
		}
		return
	}
	for _, c := range channels {
		if c.ChannelID == channelID {
			o.createAccount(ctx, c)
			return
		}
	}
}

// processConfirmedChannels is the 30-second backstop: every confirmed
// channel not yet an account gets one creation attempt per tick.
func (o *Orchestrator) processConfirmedChannels(ctx context.Context) {
	channels, err := o.channels.ActiveChannelsByStatus(ctx, models.StatusConfirmed)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("main loop: failed to load confirmed channels", zap.Error(err))
		}
		return
	}
	for _, c := range channels {
		o.createAccount(ctx, c)
	}
}

// reconcileExternalCreations marks channels completed whose username was
// minted on a path outside this gateway (e.g. a third party claimed it
// while a deposit was in flight).
func (o *Orchestrator) reconcileExternalCreations(ctx context.Context) {
	channels, err := o.channels.ActiveChannelsByStatus(ctx, models.StatusPending, models.StatusConfirming, models.StatusConfirmed)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("reconcile: failed to load active channels", zap.Error(err))
		}
		return
	}
	for _, c := range channels {
		exists, err := o.hive.AccountExists(ctx, c.Username)
		if err != nil || !exists {
			continue
		}
		if err := o.channels.MarkAccountCreated(ctx, c.ChannelID, ""); err != nil {
			if o.logger != nil {
				o.logger.Warn("reconcile: failed to mark externally created channel", zap.String("channel_id", c.ChannelID), zap.Error(err))
			}
			continue
		}
		if o.notifier != nil {
			o.notifier.PublishStatusChange(c.ChannelID, models.StatusCompleted, c.TxHash)
		}
	}
}

// createAccount implements spec §4.6's creation policy: prefer an ACT,
// opportunistically claim one if the inventory is empty, and fall back to
// the 3 HIVE delegation fee when claiming is not viable. Exactly one
// HiveCreationAttempt row is written per attempt.
func (o *Orchestrator) createAccount(ctx context.Context, c *models.PaymentChannel) {
	balance, err := o.act.Get(ctx, o.creatorAccount)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("create account: failed to load ACT balance", zap.String("channel_id", c.ChannelID), zap.Error(err))
		}
		return
	}

	method := models.MethodACT
	actAvailable := balance.ACTBalance > 0
	if !actAvailable {
		if o.tryOpportunisticClaim(ctx, balance) {
			actAvailable = true
		} else {
			method = models.MethodDelegation
		}
	}

	attempt := &models.HiveCreationAttempt{
		ChannelID:    c.ChannelID,
		Method:       method,
		ACTUsed:      actAvailable,
		AttemptCount: 1,
		Status:       models.AttemptAttempting,
	}
	if method == models.MethodDelegation {
		attempt.CreationFee = "3.000 HIVE"
	}
	if err := o.attempts.Create(ctx, attempt); err != nil {
		if o.logger != nil {
			o.logger.Warn("create account: failed to record attempt", zap.String("channel_id", c.ChannelID), zap.Error(err))
		}
		return
	}

	var txID string
	if actAvailable {
		txID, err = o.hive.CreateClaimedAccount(ctx, c.Username, c.PublicKeys)
	} else {
		txID, err = o.hive.CreateAccountWithFee(ctx, c.Username, c.PublicKeys, delegationFeeHive)
	}

	if err != nil {
		_ = o.attempts.UpdateStatus(ctx, attempt.ID, models.AttemptFailed, "", err.Error())
		if o.logger != nil {
			o.logger.Warn("hive account creation broadcast failed, retrying next tick",
				zap.String("channel_id", c.ChannelID), zap.Error(err))
		}
		return
	}

	if actAvailable {
		balance.ACTBalance--
		_ = o.act.Upsert(ctx, balance)
	}
	_ = o.attempts.UpdateStatus(ctx, attempt.ID, models.AttemptSuccess, txID, "")
	if err := o.channels.MarkAccountCreated(ctx, c.ChannelID, txID); err != nil && o.logger != nil {
		o.logger.Warn("create account: failed to mark channel completed", zap.String("channel_id", c.ChannelID), zap.Error(err))
	}

	if o.notifier != nil {
		_ = o.notifier.Notify(ctx, c.Username, "account_created", "Your Hive account is ready",
			"@"+c.Username+" has been created on the Hive blockchain.",
			map[string]interface{}{"channelId": c.ChannelID, "hiveTxId": txID},
			models.PriorityNotifyHigh, 7*24*time.Hour)
		o.notifier.PublishStatusChange(c.ChannelID, models.StatusCompleted, c.TxHash)
	}
}

// tryOpportunisticClaim attempts a single ACT claim when the inventory is
// empty and RC allows it, per spec §4.6. Returns true if a token was
// successfully claimed.
func (o *Orchestrator) tryOpportunisticClaim(ctx context.Context, balance *models.ACTBalance) bool {
	claimCost := o.rc.ClaimAccountFloor(ctx)
	rc, err := o.hive.ResourceCredits(ctx)
	if err != nil || rc < claimCost {
		return false
	}
	if _, err := o.hive.ClaimAccount(ctx); err != nil {
		if o.logger != nil {
			o.logger.Warn("opportunistic ACT claim failed, falling back to delegation", zap.Error(err))
		}
		return false
	}
	balance.ACTBalance++
	balance.LastClaimTime = time.Now()
	_ = o.act.Upsert(ctx, balance)
	return true
}

// claimLoop is the 15-minute proactive claim cycle: top up the ACT
// inventory toward targetACTBalance whenever resource credits clear the
// safety-buffer trigger.
func (o *Orchestrator) claimLoop(ctx context.Context) {
	ticker := time.NewTicker(claimLoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.proactiveClaim(ctx)
		}
	}
}

func (o *Orchestrator) proactiveClaim(ctx context.Context) {
	balance, err := o.act.Get(ctx, o.creatorAccount)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("proactive claim: failed to load ACT balance", zap.Error(err))
		}
		return
	}
	if balance.ACTBalance >= targetACTBalance {
		return
	}
	o.runClaimBatch(ctx, balance, maxClaimsPerRun)
}

// runClaimBatch executes up to capPerRun claims, 5 seconds apart,
// re-checking resource credits between each and stopping once the
// claimCost*rcReserveMultiplier safety reserve would be breached.
func (o *Orchestrator) runClaimBatch(ctx context.Context, balance *models.ACTBalance, capPerRun int) int {
	claimCost := o.rc.ClaimAccountFloor(ctx)
	if claimCost <= 0 {
		return 0
	}

	claimed := 0
	for claimed < capPerRun {
		rc, err := o.hive.ResourceCredits(ctx)
		if err != nil {
			if o.logger != nil {
				o.logger.Warn("claim batch: failed to read resource credits", zap.Error(err))
			}
			break
		}

		trigger := int64(rcSafetyMultiplier * float64(claimCost))
		reserve := int64(rcReserveMultiplier * float64(claimCost))
		if rc < trigger || rc-claimCost < reserve {
			break
		}

		if _, err := o.hive.ClaimAccount(ctx); err != nil {
			if o.logger != nil {
				o.logger.Warn("claim batch: claim failed, stopping batch", zap.Error(err))
			}
			break
		}
		balance.ACTBalance++
		balance.LastClaimTime = time.Now()
		balance.ResourceCredits = rc - claimCost
		balance.LastRCCheck = time.Now()
		_ = o.act.Upsert(ctx, balance)
		claimed++

		if claimed < capPerRun {
			select {
			case <-ctx.Done():
				return claimed
			case <-time.After(claimSpacing):
			}
		}
	}
	return claimed
}

// healthCheckLoop reports ACT/RC sustainability once a day and triggers an
// aggressive claim run when the state degrades.
func (o *Orchestrator) healthCheckLoop(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runHealthCheck(ctx)
		}
	}
}

// ProcessPending runs one off-schedule pass of the main loop's work,
// exported for the admin API's POST /admin/process-pending to force a
// retry without waiting for the 30-second backstop tick.
func (o *Orchestrator) ProcessPending(ctx context.Context) {
	o.processConfirmedChannels(ctx)
	o.reconcileExternalCreations(ctx)
}

// ClaimAct runs one proactive claim batch on demand, exported for the admin
// API's POST /admin/claim-act.
func (o *Orchestrator) ClaimAct(ctx context.Context) (int, error) {
	balance, err := o.act.Get(ctx, o.creatorAccount)
	if err != nil {
		return 0, err
	}
	return o.runClaimBatch(ctx, balance, maxClaimsPerRun), nil
}

// ACTStatus returns the creator account's current ACT/RC inventory snapshot
// for the admin API's GET /admin/act-status.
func (o *Orchestrator) ACTStatus(ctx context.Context) (*models.ACTBalance, error) {
	return o.act.Get(ctx, o.creatorAccount)
}

// ManualCreateAccount bypasses the payment-channel pipeline entirely for the
// admin API's POST /admin/manual-create-account: the same ACT-or-delegation
// policy createAccount uses, but with no channel row to update since the
// caller is not paying through this gateway.
func (o *Orchestrator) ManualCreateAccount(ctx context.Context, username string, keys models.PublicKeys) (txID string, method models.CreationMethod, err error) {
	balance, err := o.act.Get(ctx, o.creatorAccount)
	if err != nil {
		return "", "", err
	}

	method = models.MethodACT
	actAvailable := balance.ACTBalance > 0
	if !actAvailable {
		if o.tryOpportunisticClaim(ctx, balance) {
			actAvailable = true
		} else {
			method = models.MethodDelegation
		}
	}

	if actAvailable {
		txID, err = o.hive.CreateClaimedAccount(ctx, username, keys)
	} else {
		txID, err = o.hive.CreateAccountWithFee(ctx, username, keys, delegationFeeHive)
	}
	if err != nil {
		return "", method, err
	}

	if actAvailable {
		balance.ACTBalance--
		_ = o.act.Upsert(ctx, balance)
	}
	return txID, method, nil
}

// RunHealthCheck computes the current sustainability report; exported so
// the admin API can serve it on demand as well as on the daily schedule.
func (o *Orchestrator) RunHealthCheck(ctx context.Context) (Health, error) {
	claimCost := o.rc.ClaimAccountFloor(ctx)
	rc, err := o.hive.ResourceCredits(ctx)
	if err != nil {
		return Health{}, gatewayerr.New(gatewayerr.ExternalUnavailable, "failed to read resource credits for health check", err)
	}
	if claimCost <= 0 {
		return Health{}, gatewayerr.New(gatewayerr.Internal, "no claim_account RC cost available", nil)
	}

	claimsRemaining := rc / claimCost
	daysSustainable := float64(claimsRemaining) / 5.0

	state := HealthCritical
	switch {
	case claimsRemaining >= healthyClaimsRemaining:
		state = HealthHealthy
	case claimsRemaining >= needsAttentionClaimsRemaining:
		state = HealthNeedsAttention
	}

	return Health{ClaimsRemaining: claimsRemaining, DaysSustainable: daysSustainable, State: state}, nil
}

func (o *Orchestrator) runHealthCheck(ctx context.Context) {
	health, err := o.RunHealthCheck(ctx)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("daily health check failed", zap.Error(err))
		}
		return
	}
	if o.logger != nil {
		o.logger.Info("act/rc health check", zap.String("state", string(health.State)),
			zap.Int64("claims_remaining", health.ClaimsRemaining), zap.Float64("days_sustainable", health.DaysSustainable))
	}
	if health.State != HealthNeedsAttention {
		return
	}
	balance, err := o.act.Get(ctx, o.creatorAccount)
	if err != nil {
		return
	}
	o.runClaimBatch(ctx, balance, maxClaimsPerRun)
}
