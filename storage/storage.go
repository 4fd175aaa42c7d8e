// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package storage persists channel configuration and daily session records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

// Estimate is the agreed token for one ticket
type Estimate struct {
	Ticket   string
	Estimate string
}

// Record is one channel's session for one day.
// StartTime is zero when the day was ended without a deal.
type Record struct {
	Channel     string
	ChannelName string
	Date        string
	StartTime   time.Time
	EndTime     time.Time
	Estimates   []Estimate
}

// SQLStore implements the config and record stores on database/sql.
// Every call is bounded by timeout.
type SQLStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLStore(db *sql.DB, timeout time.Duration) *SQLStore {
	return &SQLStore{db: db, timeout: timeout}
}

func (s *SQLStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// GetScale returns the scale configured for channel, or ErrNotFound
func (s *SQLStore) GetScale(ctx context.Context, channel string) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var scale string
	err := s.db.QueryRowContext(ctx, `
		SELECT scale FROM channel_config WHERE channel = $1
	`, channel).Scan(&scale)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query channel config: %w", err)
	}
	return scale, nil
}

// SetScale upserts the channel's scale
func (s *SQLStore) SetScale(ctx context.Context, channel, scale string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channel_config (channel, scale, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel) DO UPDATE SET scale = excluded.scale, updated_at = excluded.updated_at
	`, channel, scale, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save channel config: %w", err)
	}
	return nil
}

// OpenSession creates the day's record. An existing start time is kept.
func (s *SQLStore) OpenSession(ctx context.Context, channel, channelName, date string, start time.Time) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_record (channel, session_date, channel_name, start_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel, session_date)
		DO UPDATE SET start_time = COALESCE(session_record.start_time, excluded.start_time)
	`, channel, date, channelName, formatTime(start))
	if err != nil {
		return fmt.Errorf("failed to open session record: %w", err)
	}
	return nil
}

// RecordEstimate stores the agreed estimate for ticket, replacing an earlier one from the same day
func (s *SQLStore) RecordEstimate(ctx context.Context, channel, date, ticket, estimate string, at time.Time) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_estimate (channel, session_date, ticket, estimate, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel, session_date, ticket)
		DO UPDATE SET estimate = excluded.estimate, recorded_at = excluded.recorded_at
	`, channel, date, ticket, estimate, formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to record estimate: %w", err)
	}
	return nil
}

// CloseSession sets the day's end time, creating the record if needed, and returns it
func (s *SQLStore) CloseSession(ctx context.Context, channel, channelName, date string, end time.Time) (Record, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_record (channel, session_date, channel_name, end_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel, session_date) DO UPDATE SET end_time = excluded.end_time
	`, channel, date, channelName, formatTime(end))
	if err != nil {
		return Record{}, fmt.Errorf("failed to close session record: %w", err)
	}

	rec := Record{Channel: channel, Date: date}
	var startTime, endTime sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT channel_name, start_time, end_time FROM session_record
		WHERE channel = $1 AND session_date = $2
	`, channel, date).Scan(&rec.ChannelName, &startTime, &endTime)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read session record: %w", err)
	}

	if rec.StartTime, err = parseTime(startTime); err != nil {
		return Record{}, err
	}
	if rec.EndTime, err = parseTime(endTime); err != nil {
		return Record{}, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT ticket, estimate FROM session_estimate
		WHERE channel = $1 AND session_date = $2
		ORDER BY recorded_at, ticket
	`, channel, date)
	if err != nil {
		return Record{}, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Estimate
		if err := rows.Scan(&e.Ticket, &e.Estimate); err != nil {
			return Record{}, fmt.Errorf("failed to scan estimate: %w", err)
		}
		rec.Estimates = append(rec.Estimates, e)
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to iterate estimates: %w", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rec, nil
}

// timeLayout is fixed width so stored times sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", v.String, err)
	}
	return t, nil
}
