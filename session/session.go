// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
)

var ErrNoSession = errors.New("no active session")

// Key identifies the round of one channel in one team
type Key struct {
	Team    string `json:"team"`
	Channel string `json:"channel"`
}

type Vote struct {
	VoterID string `json:"voter_id"`
	Name    string `json:"name"`
	Token   string `json:"token"`
}

// Session is one estimation round. Votes keep the order of each voter's first vote.
type Session struct {
	Ticket string `json:"ticket"`
	Votes  []Vote `json:"votes"`
}

// Upsert records v, replacing any earlier vote by the same voter.
// It returns true when this is the voter's first vote in the round.
func (s *Session) Upsert(v Vote) bool {
	for i := range s.Votes {
		if s.Votes[i].VoterID == v.VoterID {
			s.Votes[i] = v
			return false
		}
	}
	s.Votes = append(s.Votes, v)
	return true
}

// Clone returns a deep copy
func (s Session) Clone() Session {
	votes := make([]Vote, len(s.Votes))
	copy(votes, s.Votes)
	return Session{Ticket: s.Ticket, Votes: votes}
}

// Store owns the active session of every (team, channel) key.
// Returned sessions are copies; mutating them does not affect the store.
type Store interface {
	// Deal starts a round for ticket, discarding any unfinished round
	Deal(ctx context.Context, key Key, ticket string) error
	// Vote upserts v and reports whether it was the voter's first vote
	Vote(ctx context.Context, key Key, v Vote) (bool, error)
	// Get returns the active session
	Get(ctx context.Context, key Key) (Session, error)
	// Take returns the active session and removes it
	Take(ctx context.Context, key Key) (Session, error)
}
