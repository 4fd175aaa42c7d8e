// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open connects to the database and verifies the connection.
// dbType selects the driver: "sqlite" (modernc) or "postgres" (lib/pq).
func Open(dbType, url string) (*sql.DB, error) {
	var driver string
	switch dbType {
	case TypeSQLite:
		driver = "sqlite"
	case TypePostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbType == TypeSQLite {
		// ":memory:" databases live on a single connection
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(time.Hour)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Timestamps are fixed-width UTC text so the same schema runs on SQLite and PostgreSQL
const schema = `
-- Channel estimate scale
CREATE TABLE IF NOT EXISTS channel_config (
    channel TEXT PRIMARY KEY,
    scale TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- One record per channel per day
CREATE TABLE IF NOT EXISTS session_record (
    channel TEXT NOT NULL,
    session_date TEXT NOT NULL,
    channel_name TEXT NOT NULL,
    start_time TEXT,
    end_time TEXT,
    PRIMARY KEY (channel, session_date)
);

-- Agreed estimates per ticket
CREATE TABLE IF NOT EXISTS session_estimate (
    channel TEXT NOT NULL,
    session_date TEXT NOT NULL,
    ticket TEXT NOT NULL,
    estimate TEXT NOT NULL,
    recorded_at TEXT NOT NULL,
    PRIMARY KEY (channel, session_date, ticket)
);

CREATE INDEX IF NOT EXISTS idx_session_estimate_record ON session_estimate(channel, session_date);
`
