package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates the schema. Every statement is idempotent so Migrate is
// safe to run on every startup.
func (db *DB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			type TEXT NOT NULL,
			date TEXT NOT NULL,
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			fees TEXT NOT NULL DEFAULT '0',
			tax TEXT NOT NULL DEFAULT '0',
			total_amount TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user
			ON transactions(user_id, ticker, date)`,
		`CREATE TABLE IF NOT EXISTS securities (
			ticker TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			exchange TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			last_updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS allocation_targets (
			user_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			target_pct TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, ticker)
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			total_value TEXT NOT NULL,
			cost_basis TEXT NOT NULL,
			position_count INTEGER NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
