// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

Open selects the driver from the configured database type:

  - sqlite: modernc.org/sqlite (pure Go, used by tests with ":memory:")
  - postgres: github.com/lib/pq

Open pings before returning:

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - channel_config: estimate scale chosen for each channel (written by setup)
  - session_record: start and end time of each channel's session per day
  - session_estimate: agreed estimate per ticket per channel per day

# Relationships

	session_record 1──* session_estimate (by channel, session_date)

Estimates are keyed independently of the record row, so a round revealed
before any deal that day still lands in the day's report.
*/
package db
