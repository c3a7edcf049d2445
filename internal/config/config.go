// Package config loads the gateway's environment-driven configuration once
// at startup, in the style of the teacher toolkit's internal/app.AppConfig:
// a single struct, explicit validation, no hot-reload.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Config is the fully-validated process configuration. The gateway server
// reads its environment only through this package; cmd/gatewayctl, a
// separate operator tool, reads its own variables with os.Getenv.
type Config struct {
	EncryptionKey []byte // 32 bytes, from CRYPTO_ENCRYPTION_KEY
	MasterSeed    []byte // 32 bytes, from CRYPTO_MASTER_SEED

	CreatorAccount    string
	CreatorActiveKey  string
	HiveNodes         []string

	AdminAccount   string
	AdminPublicKey string

	RCCostBeaconURL string

	DatabaseURL string
	CORSOrigins []string

	BlockstreamBaseURL string
	BlockCypherToken   string
	EtherscanAPIKey    string
	BscScanAPIKey      string
	PolygonScanAPIKey  string
	SolanaRPCURL       string
	AlchemyAPIKey      string

	HTTPAddr string
}

var dummyPlaceholders = []string{
	"", "CHANGEME", "YOUR_API_KEY", "YOUR_API_KEY_HERE", "xxx", "placeholder",
	"dummy", "test", "0000000000000000000000000000000000000000000000000000000000000000",
}

func isDummy(v string) bool {
	lower := strings.ToLower(strings.TrimSpace(v))
	for _, d := range dummyPlaceholders {
		if lower == strings.ToLower(d) {
			return true
		}
	}
	return false
}

// Load reads and validates every environment variable named in spec §6.
// It fails closed: any dummy placeholder or malformed hex key aborts
// startup rather than running with a value that would silently break
// encryption or signing later.
func Load() (*Config, error) {
	cfg := &Config{}

	var err error
	cfg.EncryptionKey, err = requireHexKey("CRYPTO_ENCRYPTION_KEY", 32)
	if err != nil {
		return nil, err
	}
	cfg.MasterSeed, err = requireHexKey("CRYPTO_MASTER_SEED", 32)
	if err != nil {
		return nil, err
	}

	cfg.CreatorAccount, err = requireNonDummy("HIVE_CREATOR_ACCOUNT")
	if err != nil {
		return nil, err
	}
	cfg.CreatorActiveKey, err = requireNonDummy("HIVE_CREATOR_ACTIVE_KEY")
	if err != nil {
		return nil, err
	}
	cfg.HiveNodes = splitNonEmpty(envOrDefault("HIVE_NODES", "https://api.hive.blog,https://api.deathwing.me"))

	cfg.AdminAccount, err = requireNonDummy("ADMIN_HIVE_ACCOUNT")
	if err != nil {
		return nil, err
	}
	cfg.AdminPublicKey, err = requireNonDummy("ADMIN_PUBLIC_KEY")
	if err != nil {
		return nil, err
	}

	cfg.RCCostBeaconURL = envOrDefault("RC_COST_BEACON_URL", "https://beacon.peakd.com/api/rc/cost")

	cfg.DatabaseURL, err = requireNonDummy("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.CORSOrigins = splitNonEmpty(os.Getenv("CORS_ALLOWED_ORIGINS"))

	cfg.BlockstreamBaseURL = envOrDefault("BLOCKSTREAM_BASE_URL", "https://blockstream.info/api")
	cfg.BlockCypherToken = os.Getenv("BLOCKCYPHER_TOKEN")
	cfg.EtherscanAPIKey, err = requireNonDummy("ETHERSCAN_API_KEY")
	if err != nil {
		return nil, err
	}
	cfg.BscScanAPIKey, err = requireNonDummy("BSCSCAN_API_KEY")
	if err != nil {
		return nil, err
	}
	cfg.PolygonScanAPIKey, err = requireNonDummy("POLYGONSCAN_API_KEY")
	if err != nil {
		return nil, err
	}
	cfg.SolanaRPCURL = envOrDefault("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	cfg.AlchemyAPIKey = os.Getenv("ALCHEMY_API_KEY") // optional third gas-price fallback for ETH

	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", ":8080")

	return cfg, nil
}

func requireHexKey(name string, wantBytes int) ([]byte, error) {
	raw := os.Getenv(name)
	if isDummy(raw) {
		return nil, fmt.Errorf("config: %s is unset or a placeholder value", name)
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s is not valid hex: %w", name, err)
	}
	if len(decoded) != wantBytes {
		return nil, fmt.Errorf("config: %s must decode to %d bytes, got %d", name, wantBytes, len(decoded))
	}
	return decoded, nil
}

func requireNonDummy(name string) (string, error) {
	v := os.Getenv(name)
	if isDummy(v) {
		return "", fmt.Errorf("config: %s is unset or a placeholder value", name)
	}
	return v, nil
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
