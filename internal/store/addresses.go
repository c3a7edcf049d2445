package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

// AddressStore implements vault.AddressStore.
type AddressStore struct{ db *sql.DB }

func (s *AddressStore) NextDerivationIndex(ctx context.Context, crypto models.Crypto) (uint32, error) {
	var next sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(derivation_index) + 1 FROM crypto_addresses WHERE crypto = $1`,
		string(crypto)).Scan(&next)
	if err != nil {
		return 0, gatewayerr.New(gatewayerr.Internal, "query next derivation index", err)
	}
	if !next.Valid {
		return 0, nil
	}
	return uint32(next.Int64), nil
}

// FindReusable returns a cooled-down address for crypto, if one is free.
// The caller (vault) is responsible for immediately re-assigning it to a
// new channel_id so it is not handed out twice.
func (s *AddressStore) FindReusable(ctx context.Context, crypto models.Crypto, now time.Time) (*models.CryptoAddress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT crypto, derivation_index, address, public_key, encrypted_private_key,
		       derivation_path, address_type, channel_id, reusable_after
		FROM crypto_addresses
		WHERE crypto = $1 AND reusable_after IS NOT NULL AND reusable_after <= $2
		ORDER BY reusable_after ASC LIMIT 1`, string(crypto), now)
	addr, err := scanAddress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query reusable address", err)
	}
	return addr, nil
}

func (s *AddressStore) Save(ctx context.Context, addr *models.CryptoAddress) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crypto_addresses
			(crypto, derivation_index, address, public_key, encrypted_private_key,
			 derivation_path, address_type, channel_id, reusable_after)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (crypto, derivation_index) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			reusable_after = EXCLUDED.reusable_after`,
		string(addr.Crypto), addr.DerivationIndex, addr.Address, addr.PublicKey,
		addr.EncryptedPrivateKey, addr.DerivationPath, addr.AddressType,
		nullableString(addr.ChannelID), addr.ReusableAfter)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "save crypto address", err)
	}
	return nil
}

func (s *AddressStore) MarkReusable(ctx context.Context, address string, reusableAfter time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE crypto_addresses SET reusable_after = $2 WHERE address = $1`, address, reusableAfter)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "mark address reusable", err)
	}
	return nil
}

func (s *AddressStore) ByAddress(ctx context.Context, crypto models.Crypto, address string) (*models.CryptoAddress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT crypto, derivation_index, address, public_key, encrypted_private_key,
		       derivation_path, address_type, channel_id, reusable_after
		FROM crypto_addresses WHERE crypto = $1 AND address = $2`, string(crypto), address)
	addr, err := scanAddress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query address", err)
	}
	return addr, nil
}

// ByChannel lists every address consolidation needs to sweep for a
// completed or confirmed channel (normally exactly one).
func (s *AddressStore) ByChannel(ctx context.Context, channelID string) ([]*models.CryptoAddress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT crypto, derivation_index, address, public_key, encrypted_private_key,
		       derivation_path, address_type, channel_id, reusable_after
		FROM crypto_addresses WHERE channel_id = $1`, channelID)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query addresses by channel", err)
	}
	defer rows.Close()

	var out []*models.CryptoAddress
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, gatewayerr.New(gatewayerr.Internal, "scan address", err)
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

func scanAddress(row rowScanner) (*models.CryptoAddress, error) {
	var a models.CryptoAddress
	var crypto string
	var channelID sql.NullString
	var reusableAfter sql.NullTime

	err := row.Scan(&crypto, &a.DerivationIndex, &a.Address, &a.PublicKey, &a.EncryptedPrivateKey,
		&a.DerivationPath, &a.AddressType, &channelID, &reusableAfter)
	if err != nil {
		return nil, err
	}
	a.Crypto = models.Crypto(crypto)
	a.ChannelID = channelID.String
	if reusableAfter.Valid {
		t := reusableAfter.Time
		a.ReusableAfter = &t
	}
	return &a, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
