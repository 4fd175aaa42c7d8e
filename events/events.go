// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package events publishes a stream of round activity for downstream consumers.
package events

import (
	"context"
	"time"
)

// Event types
const (
	TypeDealt    = "round.dealt"
	TypeVoted    = "round.voted"
	TypeRevealed = "round.revealed"
	TypeEnded    = "session.ended"
)

type Event struct {
	Type      string    `json:"type"`
	Team      string    `json:"team"`
	Channel   string    `json:"channel"`
	Ticket    string    `json:"ticket,omitempty"`
	VoterID   string    `json:"voter_id,omitempty"`
	Token     string    `json:"token,omitempty"`
	Revote    bool      `json:"revote,omitempty"`
	Unanimous bool      `json:"unanimous,omitempty"`
	Voters    int       `json:"voters,omitempty"`
	Estimates int       `json:"estimates,omitempty"`
	At        time.Time `json:"at"`
}

// Key groups a channel's events onto one partition
func (e Event) Key() string {
	return e.Team + "/" + e.Channel
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
