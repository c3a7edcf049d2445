// Package store is the Postgres persistence layer, grounded on the
// storage.go shape of the Klingon node (New/initSchema/runMigrations,
// one exec per schema statement) and on withObsrvr's lib/pq usage for
// Postgres rather than SQLite. Every repository below is a thin
// *sql.DB wrapper with hand-written SQL, matching both grounding
// sources' preference for explicit queries over an ORM.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the shared connection pool; every repository type holds that
// pool's *sql.DB.
type DB struct {
	conn *sql.DB
}

// Open connects to databaseURL and verifies connectivity before returning.
func Open(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

func (d *DB) Close() error { return d.conn.Close() }

// Migrate applies the schema. Every statement is idempotent
// (CREATE TABLE/INDEX IF NOT EXISTS) so this is safe to call on every
// startup, matching the teacher's initSchema-on-every-New convention.
func (d *DB) Migrate() error {
	if _, err := d.conn.Exec(schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// Channels returns the payment channel repository.
func (d *DB) Channels() *ChannelStore { return &ChannelStore{db: d.conn} }

// Addresses returns the address vault repository.
func (d *DB) Addresses() *AddressStore { return &AddressStore{db: d.conn} }

// Confirmations returns the payment confirmation repository.
func (d *DB) Confirmations() *ConfirmationStore { return &ConfirmationStore{db: d.conn} }

// Attempts returns the Hive account creation attempt repository.
func (d *DB) Attempts() *AttemptStore { return &AttemptStore{db: d.conn} }

// ACT returns the ACT balance repository.
func (d *DB) ACT() *ACTStore { return &ACTStore{db: d.conn} }

// RCCost returns the resource credit cost repository.
func (d *DB) RCCost() *RCCostStore { return &RCCostStore{db: d.conn} }

// Pricing returns the pricing snapshot repository.
func (d *DB) Pricing() *PricingStore { return &PricingStore{db: d.conn} }

// Consolidation returns the consolidation transaction repository.
func (d *DB) Consolidation() *ConsolidationStore { return &ConsolidationStore{db: d.conn} }

// Notifications returns the notification repository.
func (d *DB) Notifications() *NotificationStore { return &NotificationStore{db: d.conn} }
