// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package round

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/pokerbot/events"
	"github.com/danielhkuo/pokerbot/scales"
	"github.com/danielhkuo/pokerbot/session"
	"github.com/danielhkuo/pokerbot/storage"
	"github.com/danielhkuo/pokerbot/testutil"
)

var testChannel = Channel{Team: "T1", ID: "C1", Name: "planning"}

var (
	alice = Voter{ID: "U1", Name: "alice"}
	bob   = Voter{ID: "U2", Name: "bob"}
	carol = Voter{ID: "U3", Name: "carol"}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctrl      *Controller
	sessions  *session.MemoryStore
	store     *storage.SQLStore
	publisher *recordingPublisher
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		sessions:  session.NewMemoryStore(),
		store:     storage.NewSQLStore(db, time.Second),
		publisher: &recordingPublisher{},
		now:       time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC),
	}
	f.ctrl = NewController(f.sessions, f.store, f.store, scales.NewRegistry("https://img.test/"),
		WithPublisher(f.publisher),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

// dealt returns a fixture with the Fibonacci scale configured and PROJ-1 dealt
func dealt(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.ctrl.Setup(ctx, testChannel, "f"); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if _, err := f.ctrl.Deal(ctx, testChannel, "PROJ-1"); err != nil {
		t.Fatalf("Deal failed: %v", err)
	}
	return f
}

func assertCode(t *testing.T, err error, code Code) {
	t.Helper()
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("Expected *round.Error with code %s, got %v", code, err)
	}
	if rerr.Code != code {
		t.Fatalf("Expected code %s, got %s (%v)", code, rerr.Code, err)
	}
}

func TestSetup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scale, err := f.ctrl.Setup(ctx, testChannel, "f")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if scale.Name != "Fibonnaci Scale" {
		t.Errorf("Expected Fibonnaci Scale, got %s", scale.Name)
	}
	if scale.Composite != "https://img.test/fcomposite.png" {
		t.Errorf("Unexpected composite asset %s", scale.Composite)
	}

	got, _ := f.store.GetScale(ctx, testChannel.ID)
	if got != "f" {
		t.Errorf("Expected stored scale f, got %q", got)
	}
}

func TestSetupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.Setup(ctx, testChannel, "")
	assertCode(t, err, CodeMissingScale)

	_, err = f.ctrl.Setup(ctx, testChannel, "x")
	assertCode(t, err, CodeInvalidScale)
	if !errors.Is(err, ErrInvalidScale) {
		t.Error("errors.Is should match by code")
	}

	var rerr *Error
	errors.As(err, &rerr)
	if rerr.Metadata["choices"] != "f, s, t or e" {
		t.Errorf("Unexpected choices %q", rerr.Metadata["choices"])
	}

	if _, err := f.store.GetScale(ctx, testChannel.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("failed setup must not store a scale")
	}
}

func TestSetupKeepsRound(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()
	f.ctrl.Vote(ctx, testChannel, alice, "5")

	if _, err := f.ctrl.Setup(ctx, testChannel, "s"); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	res, err := f.ctrl.Tally(ctx, testChannel)
	if err != nil || len(res.Voters) != 1 {
		t.Errorf("setup must not disturb the round: %+v, %v", res, err)
	}
}

func TestDealRequiresSetup(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.Deal(context.Background(), testChannel, "PROJ-1")
	assertCode(t, err, CodeChannelNotConfigured)

	if _, err := f.sessions.Get(context.Background(), testChannel.key()); !errors.Is(err, session.ErrNoSession) {
		t.Error("failed deal must not create a round")
	}
}

func TestDealRequiresTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Setup(ctx, testChannel, "f")

	_, err := f.ctrl.Deal(ctx, testChannel, "")
	assertCode(t, err, CodeMissingTicket)
}

func TestDeal(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()

	s, err := f.sessions.Get(ctx, testChannel.key())
	if err != nil {
		t.Fatalf("Expected active round: %v", err)
	}
	if s.Ticket != "PROJ_1" {
		t.Errorf("Expected normalized ticket PROJ_1, got %s", s.Ticket)
	}

	res, err := f.ctrl.Deal(ctx, testChannel, "PROJ-2")
	if err != nil {
		t.Fatalf("second Deal failed: %v", err)
	}
	if res.Ticket != "PROJ-2" {
		t.Errorf("Expected display ticket PROJ-2, got %s", res.Ticket)
	}
	if res.Scale.ID != "f" {
		t.Errorf("Expected scale f, got %s", res.Scale.ID)
	}
}

func TestDealTwiceDiscardsVotes(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()

	f.ctrl.Vote(ctx, testChannel, alice, "5")
	f.ctrl.Vote(ctx, testChannel, bob, "8")
	f.ctrl.Deal(ctx, testChannel, "PROJ-1")

	res, err := f.ctrl.Tally(ctx, testChannel)
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	if len(res.Voters) != 0 {
		t.Errorf("Expected no voters after redeal, got %v", res.Voters)
	}
}

func TestDealOpensRecordOncePerDay(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()

	dayStart := f.now
	f.now = f.now.Add(time.Hour)
	f.ctrl.Deal(ctx, testChannel, "PROJ-2")

	rec, err := f.ctrl.End(ctx, testChannel)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if !rec.StartTime.Equal(dayStart) {
		t.Errorf("Expected start time of first deal %v, got %v", dayStart, rec.StartTime)
	}
}

func TestVote(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()

	res, err := f.ctrl.Vote(ctx, testChannel, alice, "5")
	if err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if !res.First || res.Token != "5" {
		t.Errorf("Expected first vote for 5, got %+v", res)
	}

	res, err = f.ctrl.Vote(ctx, testChannel, alice, "5")
	if err != nil {
		t.Fatalf("Revote failed: %v", err)
	}
	if res.First {
		t.Error("Expected revote to not be first")
	}
}

func TestVoteKeepsLatestToken(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()

	for _, token := range []string{"1", "3", "8", "13", "5"} {
		if _, err := f.ctrl.Vote(ctx, testChannel, alice, token); err != nil {
			t.Fatalf("Vote %s failed: %v", token, err)
		}
	}
	f.ctrl.Vote(ctx, testChannel, bob, "5")

	s, _ := f.sessions.Get(ctx, testChannel.key())
	if len(s.Votes) != 2 {
		t.Fatalf("Expected 2 votes, got %d", len(s.Votes))
	}
	if s.Votes[0].Token != "5" {
		t.Errorf("Expected alice's latest token 5, got %s", s.Votes[0].Token)
	}
}

func TestVoteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Setup(ctx, testChannel, "t")

	_, err := f.ctrl.Vote(ctx, testChannel, alice, "m")
	assertCode(t, err, CodeNoActiveSession)

	f.ctrl.Deal(ctx, testChannel, "PROJ-1")

	_, err = f.ctrl.Vote(ctx, testChannel, alice, "")
	assertCode(t, err, CodeMissingVote)

	_, err = f.ctrl.Vote(ctx, testChannel, alice, "5")
	assertCode(t, err, CodeInvalidVote)

	var rerr *Error
	errors.As(err, &rerr)
	if rerr.Metadata["valid"] != "s, m, l, xl, ?" {
		t.Errorf("Expected valid tokens in scale order, got %q", rerr.Metadata["valid"])
	}

	res, _ := f.ctrl.Tally(ctx, testChannel)
	if len(res.Voters) != 0 {
		t.Error("rejected votes must not be recorded")
	}
}

func TestTally(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()

	res, err := f.ctrl.Tally(ctx, testChannel)
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	if len(res.Voters) != 0 {
		t.Errorf("Expected no voters, got %v", res.Voters)
	}

	f.ctrl.Vote(ctx, testChannel, carol, "8")
	f.ctrl.Vote(ctx, testChannel, alice, "5")
	f.ctrl.Vote(ctx, testChannel, bob, "13")

	res, _ = f.ctrl.Tally(ctx, testChannel)
	want := []string{"alice", "bob", "carol"}
	if !reflect.DeepEqual(res.Voters, want) {
		t.Errorf("Expected %v, got %v", want, res.Voters)
	}
}

func TestTallyWithoutRound(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.Tally(context.Background(), testChannel)
	assertCode(t, err, CodeNoActiveSession)
}

func TestRevealUnanimous(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()

	f.ctrl.Vote(ctx, testChannel, alice, "5")
	f.ctrl.Vote(ctx, testChannel, bob, "5")

	res, err := f.ctrl.Reveal(ctx, testChannel)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if !res.Outcome.Unanimous || res.Outcome.Token() != "5" {
		t.Errorf("Expected unanimous 5, got %+v", res.Outcome)
	}
	if res.Ticket != "PROJ-1" {
		t.Errorf("Expected display ticket PROJ-1, got %s", res.Ticket)
	}

	_, err = f.ctrl.Tally(ctx, testChannel)
	assertCode(t, err, CodeNoActiveSession)
	_, err = f.ctrl.Reveal(ctx, testChannel)
	assertCode(t, err, CodeNoActiveSession)

	rec, _ := f.ctrl.End(ctx, testChannel)
	if len(rec.Estimates) != 1 || rec.Estimates[0] != (storage.Estimate{Ticket: "PROJ_1", Estimate: "5"}) {
		t.Errorf("Expected PROJ_1=5 recorded, got %+v", rec.Estimates)
	}
}

func TestRevealSplit(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()

	f.ctrl.Vote(ctx, testChannel, alice, "5")
	f.ctrl.Vote(ctx, testChannel, bob, "8")
	f.ctrl.Vote(ctx, testChannel, carol, "5")

	res, err := f.ctrl.Reveal(ctx, testChannel)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if res.Outcome.Unanimous {
		t.Fatal("Expected split outcome")
	}
	if len(res.Outcome.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %+v", res.Outcome.Groups)
	}
	if g := res.Outcome.Groups[0]; g.Token != "5" || !reflect.DeepEqual(g.Voters, []string{"alice", "carol"}) {
		t.Errorf("Unexpected first group %+v", g)
	}
	if g := res.Outcome.Groups[1]; g.Token != "8" || !reflect.DeepEqual(g.Voters, []string{"bob"}) {
		t.Errorf("Unexpected second group %+v", g)
	}

	// The round is cleared even without agreement
	_, err = f.ctrl.Tally(ctx, testChannel)
	assertCode(t, err, CodeNoActiveSession)

	rec, _ := f.ctrl.End(ctx, testChannel)
	if len(rec.Estimates) != 0 {
		t.Errorf("split rounds must not be recorded, got %+v", rec.Estimates)
	}
}

func TestRevealWithoutVotes(t *testing.T) {
	f := dealt(t)
	res, err := f.ctrl.Reveal(context.Background(), testChannel)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if res.Outcome.Unanimous || len(res.Outcome.Groups) != 0 {
		t.Errorf("Expected empty split outcome, got %+v", res.Outcome)
	}
}

func TestEndLeavesRoundAlone(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()
	f.ctrl.Vote(ctx, testChannel, alice, "3")

	if _, err := f.ctrl.End(ctx, testChannel); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	res, err := f.ctrl.Tally(ctx, testChannel)
	if err != nil || len(res.Voters) != 1 {
		t.Errorf("end must not touch the round: %+v, %v", res, err)
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()
	other := Channel{Team: "T1", ID: "C2", Name: "other"}

	f.ctrl.Setup(ctx, other, "t")
	f.ctrl.Deal(ctx, other, "OPS-9")
	f.ctrl.Vote(ctx, other, alice, "xl")
	f.ctrl.Vote(ctx, testChannel, alice, "5")

	res, err := f.ctrl.Reveal(ctx, other)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if res.Outcome.Token() != "xl" {
		t.Errorf("Expected xl in other channel, got %q", res.Outcome.Token())
	}

	tally, err := f.ctrl.Tally(ctx, testChannel)
	if err != nil || len(tally.Voters) != 1 {
		t.Errorf("first channel should still have its round: %+v, %v", tally, err)
	}
}

func TestEventsPublished(t *testing.T) {
	f := dealt(t)
	ctx := context.Background()
	f.ctrl.Vote(ctx, testChannel, alice, "5")
	f.ctrl.Vote(ctx, testChannel, alice, "8")
	f.ctrl.Reveal(ctx, testChannel)
	f.ctrl.End(ctx, testChannel)

	want := []string{events.TypeDealt, events.TypeVoted, events.TypeVoted, events.TypeRevealed, events.TypeEnded}
	if got := f.publisher.types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected events %v, got %v", want, got)
	}
	if !f.publisher.events[2].Revote {
		t.Error("second vote should be flagged as a revote")
	}
	if e := f.publisher.events[3]; e.Voters != 1 || !e.Unanimous {
		t.Errorf("reveal event should count 1 unanimous voter, got %+v", e)
	}
	if e := f.publisher.events[4]; e.Estimates != 1 || e.Voters != 0 {
		t.Errorf("end event should count 1 estimate and no voters, got %+v", e)
	}
}

type failingConfig struct{ err error }

func (f failingConfig) GetScale(context.Context, string) (string, error) { return "", f.err }
func (f failingConfig) SetScale(context.Context, string, string) error   { return f.err }

func TestStoreFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	records := storage.NewSQLStore(db, time.Second)

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		{"broken", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewController(session.NewMemoryStore(), failingConfig{tt.err}, records, scales.NewRegistry(""))

			_, err := ctrl.Deal(context.Background(), testChannel, "PROJ-1")
			assertCode(t, err, CodeStoreFailure)

			var rerr *Error
			errors.As(err, &rerr)
			if rerr.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", rerr.Retryable, tt.retryable)
			}
			if !errors.Is(err, tt.err) {
				t.Error("cause should be reachable through Unwrap")
			}
			if rerr.Code.Kind() != KindCollaborator {
				t.Error("store failures are collaborator failures")
			}
		})
	}
}

// TestConcurrentVotesAcrossChannels exercises the controller under parallel commands
func TestConcurrentVotesAcrossChannels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	channels := make([]Channel, 4)
	for i := range channels {
		channels[i] = Channel{Team: "T1", ID: fmt.Sprintf("C%d", i), Name: fmt.Sprintf("chan-%d", i)}
		f.ctrl.Setup(ctx, channels[i], "f")
		f.ctrl.Deal(ctx, channels[i], "PROJ-1")
	}

	numVoters := 10
	var wg sync.WaitGroup
	for _, ch := range channels {
		for v := 0; v < numVoters; v++ {
			wg.Add(1)
			go func(ch Channel, v int) {
				defer wg.Done()
				voter := Voter{ID: fmt.Sprintf("U%d", v), Name: fmt.Sprintf("user%02d", v)}
				if _, err := f.ctrl.Vote(ctx, ch, voter, "3"); err != nil {
					t.Errorf("vote failed: %v", err)
				}
			}(ch, v)
		}
	}
	wg.Wait()

	for _, ch := range channels {
		res, err := f.ctrl.Tally(ctx, ch)
		if err != nil {
			t.Fatalf("Tally failed: %v", err)
		}
		if len(res.Voters) != numVoters {
			t.Errorf("%s: expected %d voters, got %d", ch.ID, numVoters, len(res.Voters))
		}
	}
}

func TestTicketForms(t *testing.T) {
	if got := NormalizeTicket("PROJ-12-a"); got != "PROJ_12_a" {
		t.Errorf("NormalizeTicket = %s", got)
	}
	if got := DisplayTicket("PROJ_12"); got != "PROJ-12" {
		t.Errorf("DisplayTicket = %s", got)
	}
	if strings.Contains(DisplayTicket(NormalizeTicket("A-1")), "_") {
		t.Error("round trip should restore hyphens")
	}
}
