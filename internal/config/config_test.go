package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CRYPTO_ENCRYPTION_KEY", "0000000000000000000000000000000000000000000000000000000000000001")
	t.Setenv("CRYPTO_MASTER_SEED", "0000000000000000000000000000000000000000000000000000000000000002")
	t.Setenv("HIVE_CREATOR_ACCOUNT", "gateway-creator")
	t.Setenv("HIVE_CREATOR_ACTIVE_KEY", "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn")
	t.Setenv("ADMIN_HIVE_ACCOUNT", "gateway-admin")
	t.Setenv("ADMIN_PUBLIC_KEY", "STM8GC13pAJbT6WCCjQGzFXrkTJhNRdzSD6qrG7K1XyjtXTzY6s46")
	t.Setenv("DATABASE_URL", "postgres://localhost/gateway")
	t.Setenv("ETHERSCAN_API_KEY", "abc123")
	t.Setenv("BSCSCAN_API_KEY", "abc123")
	t.Setenv("POLYGONSCAN_API_KEY", "abc123")
}

func TestLoadSucceedsWithAllRequiredVars(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gateway-creator", cfg.CreatorAccount)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://blockstream.info/api", cfg.BlockstreamBaseURL)
	assert.Empty(t, cfg.AlchemyAPIKey)
}

func TestLoadAppliesOverridesAndOptionalFields(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("HIVE_NODES", "https://api.hive.blog, https://anyx.io")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ALCHEMY_API_KEY", "alch-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://api.hive.blog", "https://anyx.io"}, cfg.HiveNodes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "alch-key", cfg.AlchemyAPIKey)
}

func TestLoadRejectsMissingRequiredVar(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HIVE_CREATOR_ACCOUNT", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsDummyPlaceholder(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ETHERSCAN_API_KEY", "YOUR_API_KEY")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadHexKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CRYPTO_ENCRYPTION_KEY", "not-hex")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsWrongLengthHexKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CRYPTO_ENCRYPTION_KEY", "0001")

	_, err := Load()
	assert.Error(t, err)
}
