// Package ledger is the local store of bank payments received through the
// Banco Estado channels (BEX, CVE, INT) and of payment import batches. It
// wraps a SQLite database under ~/.payops.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a database connection. If path is empty, ~/.payops/ledger.db
// is used.
func Open(path string) (*DB, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir := filepath.Join(home, ".payops")
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create .payops directory: %w", err)
		}
		path = filepath.Join(dir, "ledger.db")
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// migrate creates the database schema.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL,
		reference TEXT NOT NULL,
		payer_name TEXT NOT NULL DEFAULT '',
		amount REAL NOT NULL,
		payment_date TEXT NOT NULL,
		accounting_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reconciliation_status TEXT NOT NULL DEFAULT 'pending',
		odoo_invoice_id INTEGER,
		odoo_payment_id INTEGER,
		last_reconciliation_attempt DATETIME,
		reconciled_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_payments_payment_date ON payments(payment_date);
	CREATE INDEX IF NOT EXISTS idx_payments_accounting_date ON payments(accounting_date);

	CREATE TABLE IF NOT EXISTS import_batches (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS import_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		reservation TEXT NOT NULL,
		ok INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (batch_id) REFERENCES import_batches(id) ON DELETE CASCADE
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}
