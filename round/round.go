// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package round

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/danielhkuo/pokerbot/consensus"
	"github.com/danielhkuo/pokerbot/events"
	"github.com/danielhkuo/pokerbot/scales"
	"github.com/danielhkuo/pokerbot/session"
	"github.com/danielhkuo/pokerbot/storage"
)

// dateLayout keys session records by calendar day
const dateLayout = "2006-01-02"

type ConfigStore interface {
	// GetScale returns storage.ErrNotFound for unconfigured channels
	GetScale(ctx context.Context, channel string) (string, error)
	SetScale(ctx context.Context, channel, scale string) error
}

type RecordStore interface {
	OpenSession(ctx context.Context, channel, channelName, date string, start time.Time) error
	RecordEstimate(ctx context.Context, channel, date, ticket, estimate string, at time.Time) error
	CloseSession(ctx context.Context, channel, channelName, date string, end time.Time) (storage.Record, error)
}

// Channel identifies where a command was issued
type Channel struct {
	Team string
	ID   string
	Name string
}

func (ch Channel) key() session.Key {
	return session.Key{Team: ch.Team, Channel: ch.ID}
}

type Voter struct {
	ID   string
	Name string
}

type DealResult struct {
	Ticket string // display form
	Scale  scales.Scale
}

type VoteResult struct {
	Token string
	First bool
}

type TallyResult struct {
	// Voters are display names in lexicographic order
	Voters []string
}

type RevealResult struct {
	Ticket  string // display form
	Outcome consensus.Outcome
	Scale   scales.Scale
}

// Controller runs the estimation round of every channel
type Controller struct {
	sessions  session.Store
	config    ConfigStore
	records   RecordStore
	registry  *scales.Registry
	publisher events.Publisher
	now       func() time.Time
}

type Option func(*Controller)

// WithPublisher sends round events to p
func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(sessions session.Store, config ConfigStore, records RecordStore, registry *scales.Registry, opts ...Option) *Controller {
	c := &Controller{
		sessions:  sessions,
		config:    config,
		records:   records,
		registry:  registry,
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeTicket converts a ticket to its stored form
func NormalizeTicket(ticket string) string {
	return strings.ReplaceAll(ticket, "-", "_")
}

// DisplayTicket converts a stored ticket back for display
func DisplayTicket(ticket string) string {
	return strings.ReplaceAll(ticket, "_", "-")
}

// Setup chooses the channel's estimate scale
func (c *Controller) Setup(ctx context.Context, ch Channel, scaleID string) (scales.Scale, error) {
	if scaleID == "" {
		return scales.Scale{}, newError(CodeMissingScale, "setup without scale", map[string]string{
			"choices": strings.Join(c.registry.IDs(), ", "),
		})
	}

	scale, err := c.registry.Lookup(scaleID)
	if err != nil {
		return scales.Scale{}, newError(CodeInvalidScale, "unknown scale "+scaleID, map[string]string{
			"choices": c.registry.Choices(),
		})
	}

	if err := c.config.SetScale(ctx, ch.ID, scale.ID); err != nil {
		return scales.Scale{}, storeFailure("save channel scale", err)
	}

	slog.Info("channel configured", "channel", ch.ID, "scale", scale.ID)
	return scale, nil
}

// Deal starts a round for ticketArg, discarding any unfinished round in the channel
func (c *Controller) Deal(ctx context.Context, ch Channel, ticketArg string) (DealResult, error) {
	scale, err := c.scaleFor(ctx, ch)
	if err != nil {
		return DealResult{}, err
	}

	if ticketArg == "" {
		return DealResult{}, newError(CodeMissingTicket, "deal without ticket", nil)
	}
	ticket := NormalizeTicket(ticketArg)

	now := c.now()
	if err := c.records.OpenSession(ctx, ch.ID, ch.Name, now.Format(dateLayout), now); err != nil {
		return DealResult{}, storeFailure("open session record", err)
	}

	if err := c.sessions.Deal(ctx, ch.key(), ticket); err != nil {
		return DealResult{}, storeFailure("start round", err)
	}

	slog.Info("round dealt", "team", ch.Team, "channel", ch.ID, "ticket", ticket)
	c.publish(ctx, events.Event{Type: events.TypeDealt, Team: ch.Team, Channel: ch.ID, Ticket: ticket, At: now})

	return DealResult{Ticket: DisplayTicket(ticket), Scale: scale}, nil
}

// Vote records the voter's token, replacing an earlier vote in the same round
func (c *Controller) Vote(ctx context.Context, ch Channel, voter Voter, token string) (VoteResult, error) {
	if _, err := c.active(ctx, ch); err != nil {
		return VoteResult{}, err
	}

	if token == "" {
		return VoteResult{}, newError(CodeMissingVote, "vote without token", nil)
	}

	scale, err := c.scaleFor(ctx, ch)
	if err != nil {
		return VoteResult{}, err
	}
	if !scale.Valid(token) {
		return VoteResult{}, newError(CodeInvalidVote, "token "+token+" not on scale "+scale.ID, map[string]string{
			"valid": strings.Join(scale.Tokens, ", "),
		})
	}

	first, err := c.sessions.Vote(ctx, ch.key(), session.Vote{VoterID: voter.ID, Name: voter.Name, Token: token})
	if errors.Is(err, session.ErrNoSession) {
		// Revealed between the check and the vote
		return VoteResult{}, newError(CodeNoActiveSession, "round ended before vote", nil)
	}
	if err != nil {
		return VoteResult{}, storeFailure("record vote", err)
	}

	slog.Info("vote recorded", "team", ch.Team, "channel", ch.ID, "voter", voter.ID, "first", first)
	c.publish(ctx, events.Event{
		Type: events.TypeVoted, Team: ch.Team, Channel: ch.ID,
		VoterID: voter.ID, Token: token, Revote: !first, At: c.now(),
	})

	return VoteResult{Token: token, First: first}, nil
}

// Tally lists who has voted without disclosing any token
func (c *Controller) Tally(ctx context.Context, ch Channel) (TallyResult, error) {
	s, err := c.active(ctx, ch)
	if err != nil {
		return TallyResult{}, err
	}

	names := make([]string, 0, len(s.Votes))
	for _, v := range s.Votes {
		names = append(names, v.Name)
	}
	sort.Strings(names)

	return TallyResult{Voters: names}, nil
}

// Reveal ends the round and reports whether everyone agreed.
// The round is cleared whatever the outcome; a unanimous estimate is recorded.
func (c *Controller) Reveal(ctx context.Context, ch Channel) (RevealResult, error) {
	if _, err := c.active(ctx, ch); err != nil {
		return RevealResult{}, err
	}

	scale, err := c.scaleFor(ctx, ch)
	if err != nil {
		return RevealResult{}, err
	}

	s, err := c.sessions.Take(ctx, ch.key())
	if errors.Is(err, session.ErrNoSession) {
		return RevealResult{}, newError(CodeNoActiveSession, "round already revealed", nil)
	}
	if err != nil {
		return RevealResult{}, storeFailure("take round", err)
	}

	outcome := consensus.Evaluate(s.Votes)
	now := c.now()

	if outcome.Unanimous {
		if err := c.records.RecordEstimate(ctx, ch.ID, now.Format(dateLayout), s.Ticket, outcome.Token(), now); err != nil {
			return RevealResult{}, storeFailure("record estimate", err)
		}
	}

	slog.Info("round revealed", "team", ch.Team, "channel", ch.ID, "ticket", s.Ticket,
		"voters", len(s.Votes), "unanimous", outcome.Unanimous)
	c.publish(ctx, events.Event{
		Type: events.TypeRevealed, Team: ch.Team, Channel: ch.ID, Ticket: s.Ticket,
		Token: outcome.Token(), Unanimous: outcome.Unanimous, Voters: len(s.Votes), At: now,
	})

	return RevealResult{Ticket: DisplayTicket(s.Ticket), Outcome: outcome, Scale: scale}, nil
}

// End closes the channel's session for today and returns the day's record.
// Rounds in progress are not touched.
func (c *Controller) End(ctx context.Context, ch Channel) (storage.Record, error) {
	now := c.now()
	rec, err := c.records.CloseSession(ctx, ch.ID, ch.Name, now.Format(dateLayout), now)
	if err != nil {
		return storage.Record{}, storeFailure("close session record", err)
	}

	slog.Info("session ended", "channel", ch.ID, "date", rec.Date, "estimates", len(rec.Estimates))
	c.publish(ctx, events.Event{Type: events.TypeEnded, Team: ch.Team, Channel: ch.ID, Estimates: len(rec.Estimates), At: now})

	return rec, nil
}

// active returns the channel's current round
func (c *Controller) active(ctx context.Context, ch Channel) (session.Session, error) {
	s, err := c.sessions.Get(ctx, ch.key())
	if errors.Is(err, session.ErrNoSession) {
		return session.Session{}, newError(CodeNoActiveSession, "no round in channel", nil)
	}
	if err != nil {
		return session.Session{}, storeFailure("load round", err)
	}
	return s, nil
}

// scaleFor returns the scale configured for the channel
func (c *Controller) scaleFor(ctx context.Context, ch Channel) (scales.Scale, error) {
	id, err := c.config.GetScale(ctx, ch.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return scales.Scale{}, newError(CodeChannelNotConfigured, "channel "+ch.ID+" has no scale", nil)
	}
	if err != nil {
		return scales.Scale{}, storeFailure("load channel scale", err)
	}

	scale, err := c.registry.Lookup(id)
	if err != nil {
		// A scale removed from the registry counts as unconfigured
		return scales.Scale{}, newError(CodeChannelNotConfigured, "channel "+ch.ID+" has unknown scale "+id, nil)
	}
	return scale, nil
}

func (c *Controller) publish(ctx context.Context, e events.Event) {
	if err := c.publisher.Publish(ctx, e); err != nil {
		slog.Warn("failed to publish round event", "type", e.Type, "error", err)
	}
}
