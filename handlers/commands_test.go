// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/pokerbot/models"
	"github.com/danielhkuo/pokerbot/notify"
	"github.com/danielhkuo/pokerbot/round"
	"github.com/danielhkuo/pokerbot/scales"
	"github.com/danielhkuo/pokerbot/session"
	"github.com/danielhkuo/pokerbot/storage"
	"github.com/danielhkuo/pokerbot/testutil"
)

type harness struct {
	t        *testing.T
	handler  *CommandHandler
	notifier *notify.Notifier
	callback *testutil.CallbackRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { db.Close() })

	cfg := testutil.GetTestConfig()
	store := storage.NewSQLStore(db, cfg.StoreTimeout)
	ctrl := round.NewController(session.NewMemoryStore(), store, store, scales.NewRegistry(cfg.ImageLocation))
	notifier := notify.New(nil, cfg.BroadcastTimeout)

	return &harness{
		t:        t,
		handler:  NewCommandHandler(ctrl, cfg, notifier),
		notifier: notifier,
		callback: testutil.NewCallbackRecorder(t),
	}
}

// run sends text as the given user and decodes the direct response
func (h *harness) run(userID, userName, text string) models.Message {
	h.t.Helper()

	cmd := testutil.Command(text)
	cmd.UserID = userID
	cmd.UserName = userName
	cmd.ResponseURL = h.callback.URL

	w := httptest.NewRecorder()
	h.handler.HandleCommand(w, testutil.MakeCommandRequest(cmd))
	testutil.AssertStatus(h.t, w, http.StatusOK)

	var msg models.Message
	testutil.AssertJSON(h.t, w, &msg)
	return msg
}

// broadcasts waits for pending sends and returns everything posted so far
func (h *harness) broadcasts() []models.Message {
	h.notifier.Wait()
	return h.callback.Messages()
}

func assertText(t *testing.T, msg models.Message, responseType, text string) {
	t.Helper()
	if msg.ResponseType != responseType {
		t.Errorf("Expected response_type %q, got %q (text %q)", responseType, msg.ResponseType, msg.Text)
	}
	if msg.Text != text {
		t.Errorf("Expected text %q, got %q", text, msg.Text)
	}
}

func TestSetupCommand(t *testing.T) {
	h := newHarness(t)

	msg := h.run("U1", "alice", "setup f")
	assertText(t, msg, models.ResponseInChannel, "*Channel Estimation size set to Fibonnaci Scale*")
	if len(msg.Attachments) != 1 || msg.Attachments[0].ImageURL != "https://img.test/fcomposite.png" {
		t.Errorf("Expected composite scale image, got %+v", msg.Attachments)
	}

	msg = h.run("U1", "alice", "setup x")
	if msg.ResponseType != models.ResponseEphemeral || !strings.Contains(msg.Text, "f, s, t or e") {
		t.Errorf("Expected private list of choices, got %+v", msg)
	}

	msg = h.run("U1", "alice", "setup")
	if msg.ResponseType != models.ResponseEphemeral || !strings.Contains(msg.Text, "You must enter a size format") {
		t.Errorf("Expected private missing size message, got %+v", msg)
	}
}

func TestDealWithoutSetup(t *testing.T) {
	h := newHarness(t)

	msg := h.run("U1", "alice", "deal PROJ-1")
	assertText(t, msg, models.ResponseEphemeral, "Setup channel for size configuration first. ex: /pokerbot setup <size>.")

	msg = h.run("U1", "alice", "tally")
	assertText(t, msg, models.ResponseEphemeral, "The poker planning game hasn't started yet.")
}

func TestVoteAndRevote(t *testing.T) {
	h := newHarness(t)
	h.run("U1", "alice", "setup f")

	msg := h.run("U1", "alice", "deal PROJ-1")
	assertText(t, msg, models.ResponseInChannel, "*The planning poker game has started* for PROJ-1.")

	msg = h.run("U1", "alice", "vote 5")
	assertText(t, msg, models.ResponseEphemeral, "You voted *5*.")

	msg = h.run("U1", "alice", "vote 3")
	assertText(t, msg, models.ResponseEphemeral, "You changed your vote to *3*.")

	got := h.broadcasts()
	if len(got) != 1 {
		t.Fatalf("Expected exactly one broadcast, got %d: %+v", len(got), got)
	}
	assertText(t, got[0], models.ResponseInChannel, "alice voted")
	if strings.Contains(got[0].Text, "5") || strings.Contains(got[0].Text, "3") {
		t.Errorf("Broadcast must not reveal the token: %q", got[0].Text)
	}
}

func TestInvalidVote(t *testing.T) {
	h := newHarness(t)
	h.run("U1", "alice", "setup t")
	h.run("U1", "alice", "deal PROJ-1")

	msg := h.run("U1", "alice", "vote 5")
	if msg.ResponseType != models.ResponseEphemeral || !strings.Contains(msg.Text, "s, m, l, xl, ?") {
		t.Errorf("Expected private list of valid sizes, got %+v", msg)
	}

	msg = h.run("U1", "alice", "vote")
	assertText(t, msg, models.ResponseEphemeral, "Your vote was not counted. You didn't enter a size.")

	msg = h.run("U1", "alice", "tally")
	assertText(t, msg, models.ResponseInChannel, "No one has voted yet.")

	if got := h.broadcasts(); len(got) != 0 {
		t.Errorf("Rejected votes must not broadcast, got %+v", got)
	}
}

func TestUnanimousReveal(t *testing.T) {
	h := newHarness(t)
	h.run("U1", "alice", "setup f")
	h.run("U1", "alice", "deal PROJ-1")
	h.run("U1", "alice", "vote 5")
	h.run("U2", "bob", "vote 5")

	msg := h.run("U2", "bob", "tally")
	assertText(t, msg, models.ResponseInChannel, "alice and bob have voted.")

	msg = h.run("U1", "alice", "reveal")
	assertText(t, msg, models.ResponseInChannel, "*Congratulations!*\n_PROJ-1_: 5")
	if len(msg.Attachments) != 1 || msg.Attachments[0].ImageURL != "https://img.test/5.png" {
		t.Errorf("Expected winning card image, got %+v", msg.Attachments)
	}

	msg = h.run("U1", "alice", "reveal")
	assertText(t, msg, models.ResponseEphemeral, "The poker planning game hasn't started yet.")

	msg = h.run("U1", "alice", "end")
	if msg.ResponseType != models.ResponseInChannel || len(msg.Attachments) != 2 {
		t.Fatalf("Expected session info plus one estimate, got %+v", msg)
	}
	if msg.Attachments[1].Text != "*PROJ-1*: 5" {
		t.Errorf("Expected recorded estimate, got %q", msg.Attachments[1].Text)
	}
}

func TestSplitReveal(t *testing.T) {
	h := newHarness(t)
	h.run("U1", "alice", "setup f")
	h.run("U1", "alice", "deal PROJ-1")
	h.run("U1", "alice", "vote 5")
	h.run("U2", "bob", "vote ?")
	h.run("U3", "carol", "vote 5")

	msg := h.run("U1", "alice", "reveal")
	assertText(t, msg, models.ResponseInChannel, "*No winner yet.* Discuss and continue voting.")
	if len(msg.Attachments) != 2 {
		t.Fatalf("Expected one attachment per token, got %+v", msg.Attachments)
	}
	if msg.Attachments[0].Text != "alice, carol" || msg.Attachments[1].Text != "bob" {
		t.Errorf("Unexpected groups %+v", msg.Attachments)
	}

	// A split is not recorded
	msg = h.run("U1", "alice", "end")
	if len(msg.Attachments) != 1 {
		t.Errorf("Expected no estimates after a split, got %+v", msg.Attachments)
	}

	if got := h.broadcasts(); len(got) != 3 {
		t.Errorf("Expected one broadcast per voter, got %d", len(got))
	}
}

func TestRedealDiscardsVotes(t *testing.T) {
	h := newHarness(t)
	h.run("U1", "alice", "setup s")
	h.run("U1", "alice", "deal PROJ-1")
	h.run("U1", "alice", "vote 3")
	h.run("U1", "alice", "deal PROJ-2")

	msg := h.run("U1", "alice", "tally")
	assertText(t, msg, models.ResponseInChannel, "No one has voted yet.")
}

func TestHelpAndUnknown(t *testing.T) {
	h := newHarness(t)

	testCases := []struct {
		text     string
		contains string
	}{
		{"", "Type */pokerbot help* for pokerbot commands."},
		{"   ", "Type */pokerbot help* for pokerbot commands."},
		{"help", "/pokerbot deal <JIRA Ticket ID>"},
		{"shuffle", "Invalid command. Type */pokerbot help*"},
	}

	for _, tc := range testCases {
		msg := h.run("U1", "alice", tc.text)
		if msg.ResponseType != models.ResponseEphemeral {
			t.Errorf("%q: expected private reply, got %q", tc.text, msg.ResponseType)
		}
		if !strings.Contains(msg.Text, tc.contains) {
			t.Errorf("%q: expected %q in %q", tc.text, tc.contains, msg.Text)
		}
	}
}

func TestBroadcastFailureDoesNotAffectVote(t *testing.T) {
	h := newHarness(t)
	h.run("U1", "alice", "setup f")
	h.run("U1", "alice", "deal PROJ-1")

	// Nothing listens here
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	h.callback.URL = dead.URL

	start := time.Now()
	msg := h.run("U1", "alice", "vote 8")
	assertText(t, msg, models.ResponseEphemeral, "You voted *8*.")
	h.notifier.Wait()

	if time.Since(start) > 5*time.Second {
		t.Error("vote took too long with a dead callback")
	}

	msg = h.run("U1", "alice", "tally")
	assertText(t, msg, models.ResponseInChannel, "alice has voted.")
}
