// Command gateway runs the Hive account-creation payment gateway: the HTTP
// API, every chain poller, the account-creation orchestrator, and the
// pricing/RC-cost oracles, all in one process. Wiring follows the teacher
// toolkit's single-binary, explicitly-constructed-collaborators style (no
// DI container, no global state) seen across internal/services/wallet and
// internal/app; the graceful-shutdown shape promotes golang.org/x/sync's
// errgroup from an indirect dependency inherited through the teacher's
// go.mod into one this binary actually imports.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hiveonboard/gateway/internal/chainkind"
	bitcoinkind "github.com/hiveonboard/gateway/internal/chainkind/bitcoin"
	ethereumkind "github.com/hiveonboard/gateway/internal/chainkind/ethereum"
	solanakind "github.com/hiveonboard/gateway/internal/chainkind/solana"
	"github.com/hiveonboard/gateway/internal/channel"
	"github.com/hiveonboard/gateway/internal/config"
	"github.com/hiveonboard/gateway/internal/consolidation"
	"github.com/hiveonboard/gateway/internal/hive"
	"github.com/hiveonboard/gateway/internal/hiveauth"
	"github.com/hiveonboard/gateway/internal/httpapi"
	"github.com/hiveonboard/gateway/internal/models"
	"github.com/hiveonboard/gateway/internal/monitor"
	"github.com/hiveonboard/gateway/internal/notify"
	"github.com/hiveonboard/gateway/internal/orchestrator"
	"github.com/hiveonboard/gateway/internal/pricing"
	"github.com/hiveonboard/gateway/internal/rccost"
	"github.com/hiveonboard/gateway/internal/store"
	"github.com/hiveonboard/gateway/internal/vault"
)

// hiveMainnetChainID is the well-known graphene chain id broadcast
// transactions must sign against; Hive has used this value since launch.
const hiveMainnetChainID = "beeab0de00000000000000000000000000000000000000000000000000000000"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(os.Args) > 1 && os.Args[1] == "seed-phrase" {
		if err := runSeedPhrase(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(logger); err != nil {
		logger.Fatal("gateway exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	registry, ethAdapters := buildChainRegistry(cfg, logger)
	btcAdapter := registry.mustGet(models.BTC).(*bitcoinkind.Adapter)
	solAdapter := registry.mustGet(models.SOL).(*solanakind.Adapter)

	v := vault.New(cfg.MasterSeed, cfg.EncryptionKey, db.Addresses(), logger)

	rpcClient, err := hive.NewClient(cfg.HiveNodes)
	if err != nil {
		return fmt.Errorf("construct hive rpc client: %w", err)
	}
	activeKey, err := hive.DecodeActiveKey(cfg.CreatorActiveKey)
	if err != nil {
		return fmt.Errorf("decode creator active key: %w", err)
	}
	accountClient, err := hive.NewAccountClient(rpcClient, hiveMainnetChainID, cfg.CreatorAccount, activeKey)
	if err != nil {
		return fmt.Errorf("construct hive account client: %w", err)
	}

	hub := notify.NewHub(logger)
	notifyBus := notify.New(db.Notifications(), hub, logger)

	ethFeeSources := []ethereumkind.GasPriceSource{
		ethereumkind.EtherscanGasOracleSource(ethAdapters[models.ETH]),
		ethereumkind.EthGasStationSource(ethAdapters[models.ETH]),
	}
	if cfg.AlchemyAPIKey != "" {
		ethFeeSources = append(ethFeeSources, ethereumkind.AlchemyGasPriceSource(cfg.AlchemyAPIKey))
	}
	ethFeeEstimator := ethereumkind.NewFeeEstimator(logger, ethFeeSources...)

	pricingOracle := pricing.New(db.Pricing(), cfg.HiveNodes, ethFeeEstimator, models.MonitoringEnabled, logger)
	rcOracle := rccost.New(db.RCCost(), cfg.RCCostBeaconURL, logger)

	channelEngine := channel.New(db.Channels(), registry.Registry, v, pricingOracle, nil, logger)

	orch := orchestrator.New(cfg.CreatorAccount, db.Channels(), db.Attempts(), db.ACT(), rcOracle, accountClient, notifyBus, logger)

	mon := monitor.New(registry.Registry, db.Channels(), db.Confirmations(), notifyBus, orch, logger)

	// channelEngine needs the monitor as its Verifier for the manual
	// verify-transaction path; both depend on each other through narrow
	// interfaces, so the engine is rebuilt once the monitor exists.
	channelEngine = channel.New(db.Channels(), registry.Registry, v, pricingOracle, mon, logger)

	consolidationExecutor := consolidation.New(db.Channels(), db.Addresses(), v, db.Consolidation(),
		btcAdapter, ethAdapters, solAdapter, logger)

	server := &httpapi.Server{
		Channels:      channelEngine,
		Pricing:       pricingOracle,
		RCCosts:       rcOracle,
		Orchestrator:  orch,
		Consolidation: consolidationExecutor,
		Hub:           hub,
		Admin:         hiveauth.AdminAccount{Username: cfg.AdminAccount, PublicKey: cfg.AdminPublicKey},
		Logger:        logger,
	}
	router := httpapi.NewRouter(server, cfg.CORSOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rcOracle.Refresh(ctx); err != nil {
		logger.Warn("initial rc cost oracle refresh failed", zap.Error(err))
	}
	if _, err := pricingOracle.Refresh(ctx); err != nil {
		logger.Warn("initial pricing refresh failed", zap.Error(err))
	}

	go mon.Run(ctx)
	orch.Run(ctx)
	go runSweepLoop(ctx, channelEngine, logger)
	go runOracleLoops(ctx, pricingOracle, rcOracle, logger)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gateway http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

const (
	expirySweepInterval = 30 * time.Second
)

// runSweepLoop expires pending channels past their deadline, the other half
// of the global 30-second sweep alongside the monitor's own deposit sweep.
func runSweepLoop(ctx context.Context, engine *channel.Engine, logger *zap.Logger) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := engine.SweepExpired(ctx)
			if err != nil {
				logger.Warn("expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired pending channels", zap.Int("count", n))
			}
		}
	}
}

// runOracleLoops refreshes the pricing and RC-cost oracles on their
// schedules from spec §5 (1h and 3h respectively).
func runOracleLoops(ctx context.Context, p *pricing.Oracle, rc *rccost.Oracle, logger *zap.Logger) {
	pricingTicker := time.NewTicker(time.Hour)
	rcTicker := time.NewTicker(rccost.RefreshInterval)
	defer pricingTicker.Stop()
	defer rcTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-pricingTicker.C:
			if _, err := p.Refresh(ctx); err != nil {
				logger.Warn("scheduled pricing refresh failed", zap.Error(err))
			}
		case <-rcTicker.C:
			if err := rc.Refresh(ctx); err != nil {
				logger.Warn("scheduled rc cost refresh failed", zap.Error(err))
			}
		}
	}
}

// chainRegistry bundles chainkind.Registry with direct adapter handles the
// rest of main needs for consolidation and pricing, since Registry's
// CryptoKind-typed accessors would otherwise force a type assertion at
// every call site.
type chainRegistry struct {
	*chainkind.Registry
	byCrypto map[models.Crypto]chainkind.CryptoKind
}

func (r *chainRegistry) mustGet(c models.Crypto) chainkind.CryptoKind {
	k, ok := r.byCrypto[c]
	if !ok {
		panic(fmt.Sprintf("gateway: %s not registered", c))
	}
	return k
}

func buildChainRegistry(cfg *config.Config, logger *zap.Logger) (*chainRegistry, map[models.Crypto]*ethereumkind.Adapter) {
	reg := chainkind.NewRegistry()
	byCrypto := make(map[models.Crypto]chainkind.CryptoKind, len(models.MonitoringEnabled))

	register := func(k chainkind.CryptoKind) {
		reg.Register(k)
		byCrypto[k.ID()] = k
	}

	btc := bitcoinkind.New(cfg.BlockstreamBaseURL, cfg.BlockCypherToken)
	register(btc)

	ethAdapters := make(map[models.Crypto]*ethereumkind.Adapter, 3)

	eth := ethereumkind.New(models.ETH, "https://api.etherscan.io/api", cfg.EtherscanAPIKey, 15*time.Second, 1)
	register(eth)
	ethAdapters[models.ETH] = eth

	bnb := ethereumkind.New(models.BNB, "https://api.bscscan.com/api", cfg.BscScanAPIKey, 3*time.Second, 56)
	register(bnb)
	ethAdapters[models.BNB] = bnb

	matic := ethereumkind.New(models.MATIC, "https://api.polygonscan.com/api", cfg.PolygonScanAPIKey, 2*time.Second, 137)
	register(matic)
	ethAdapters[models.MATIC] = matic

	sol := solanakind.New(cfg.SolanaRPCURL)
	register(sol)

	return &chainRegistry{Registry: reg, byCrypto: byCrypto}, ethAdapters
}
