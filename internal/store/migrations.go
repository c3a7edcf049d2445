package store

const schema = `
CREATE TABLE IF NOT EXISTS payment_channels (
	channel_id       TEXT PRIMARY KEY,
	username         TEXT NOT NULL,
	crypto           TEXT NOT NULL,
	deposit_address  TEXT NOT NULL,
	amount_crypto    TEXT NOT NULL,
	amount_usd       DOUBLE PRECISION NOT NULL,
	memo             TEXT,
	status           TEXT NOT NULL DEFAULT 'pending',
	confirmations    INTEGER NOT NULL DEFAULT 0,
	tx_hash          TEXT,
	owner_key        TEXT NOT NULL,
	active_key       TEXT NOT NULL,
	posting_key      TEXT NOT NULL,
	memo_key         TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	confirmed_at     TIMESTAMPTZ,
	account_created_at TIMESTAMPTZ,
	expires_at       TIMESTAMPTZ NOT NULL,
	hive_tx_id       TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_channels_username_nonterminal
	ON payment_channels(username)
	WHERE status NOT IN ('completed', 'failed', 'expired', 'consolidated');

CREATE INDEX IF NOT EXISTS idx_channels_status ON payment_channels(status);
CREATE INDEX IF NOT EXISTS idx_channels_expires ON payment_channels(expires_at);
CREATE INDEX IF NOT EXISTS idx_channels_deposit_address ON payment_channels(crypto, deposit_address);

CREATE TABLE IF NOT EXISTS payment_confirmations (
	channel_id      TEXT NOT NULL REFERENCES payment_channels(channel_id) ON DELETE CASCADE,
	tx_hash         TEXT NOT NULL,
	block_height    BIGINT NOT NULL DEFAULT 0,
	confirmations   INTEGER NOT NULL DEFAULT 0,
	amount_received TEXT NOT NULL,
	detected_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	processed_at    TIMESTAMPTZ,
	PRIMARY KEY (channel_id, tx_hash)
);

CREATE TABLE IF NOT EXISTS crypto_addresses (
	crypto               TEXT NOT NULL,
	derivation_index     BIGINT NOT NULL,
	address              TEXT NOT NULL,
	public_key           TEXT NOT NULL,
	encrypted_private_key BYTEA NOT NULL,
	derivation_path      TEXT NOT NULL,
	address_type         TEXT NOT NULL,
	channel_id           TEXT REFERENCES payment_channels(channel_id) ON DELETE CASCADE,
	reusable_after       TIMESTAMPTZ,
	PRIMARY KEY (crypto, derivation_index)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_address ON crypto_addresses(crypto, address);
CREATE INDEX IF NOT EXISTS idx_addresses_reusable ON crypto_addresses(crypto, reusable_after);

CREATE TABLE IF NOT EXISTS hive_creation_attempts (
	id             BIGSERIAL PRIMARY KEY,
	channel_id     TEXT NOT NULL REFERENCES payment_channels(channel_id) ON DELETE CASCADE,
	method         TEXT NOT NULL,
	act_used       BOOLEAN NOT NULL DEFAULT false,
	creation_fee   TEXT,
	tx_id          TEXT,
	attempt_count  INTEGER NOT NULL DEFAULT 1,
	status         TEXT NOT NULL,
	error_message  TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_attempts_channel ON hive_creation_attempts(channel_id);

CREATE TABLE IF NOT EXISTS act_balances (
	creator_account  TEXT PRIMARY KEY,
	act_balance      INTEGER NOT NULL DEFAULT 0,
	resource_credits BIGINT NOT NULL DEFAULT 0,
	last_claim_time  TIMESTAMPTZ,
	last_rc_check    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS rc_costs (
	operation_type TEXT NOT NULL,
	api_timestamp  TIMESTAMPTZ NOT NULL,
	rc_needed      BIGINT NOT NULL,
	hp_needed      DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (operation_type, api_timestamp)
);

CREATE INDEX IF NOT EXISTS idx_rc_costs_type_time ON rc_costs(operation_type, api_timestamp DESC);

CREATE TABLE IF NOT EXISTS pricing_snapshots (
	id              BIGSERIAL PRIMARY KEY,
	hive_price_usd  DOUBLE PRECISION NOT NULL,
	base_cost_usd   DOUBLE PRECISION NOT NULL,
	final_cost_usd  DOUBLE PRECISION NOT NULL,
	crypto_rates    JSONB NOT NULL,
	transfer_costs  JSONB NOT NULL,
	fallback        BOOLEAN NOT NULL DEFAULT false,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pricing_created ON pricing_snapshots(created_at DESC);

CREATE TABLE IF NOT EXISTS consolidation_transactions (
	tx_id                TEXT PRIMARY KEY,
	crypto               TEXT NOT NULL,
	destination_address  TEXT NOT NULL,
	priority             TEXT NOT NULL,
	source_channel_ids   TEXT[] NOT NULL,
	gross_amount         TEXT NOT NULL,
	estimated_fee        TEXT NOT NULL,
	net_amount           TEXT NOT NULL,
	primary_tx_hash      TEXT,
	additional_tx_hashes TEXT[],
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notifications (
	id         BIGSERIAL PRIMARY KEY,
	username   TEXT NOT NULL,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	data       JSONB,
	priority   TEXT NOT NULL DEFAULT 'normal',
	ttl_seconds BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	read_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_notifications_username ON notifications(username, read_at);
`
