// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/pokerbot/cliparse"
	"github.com/danielhkuo/pokerbot/db"
	"github.com/danielhkuo/pokerbot/models"
)

// TestToken is the Slack verification token accepted by GetTestConfig
const TestToken = "test-token"

// SetupTestDB creates a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:             3318,
		DatabaseURL:      ":memory:",
		DatabaseType:     db.TypeSQLite,
		SlackTokens:      []string{TestToken},
		CommandName:      "/pokerbot",
		ImageLocation:    "https://img.test/",
		SessionTTL:       time.Hour,
		StoreTimeout:     2 * time.Second,
		BroadcastTimeout: 2 * time.Second,
	}
}

// Command returns a slash command from user alice in channel C1 of team T1
func Command(text string) models.Command {
	return models.Command{
		Token:       TestToken,
		TeamID:      "T1",
		TeamDomain:  "acme",
		ChannelID:   "C1",
		ChannelName: "planning",
		UserID:      "U1",
		UserName:    "alice",
		Command:     "/pokerbot",
		Text:        text,
	}
}

// MakeCommandRequest encodes cmd as the form Slack posts for a slash command
func MakeCommandRequest(cmd models.Command) *http.Request {
	form := url.Values{}
	form.Set("token", cmd.Token)
	form.Set("team_id", cmd.TeamID)
	form.Set("team_domain", cmd.TeamDomain)
	form.Set("channel_id", cmd.ChannelID)
	form.Set("channel_name", cmd.ChannelName)
	form.Set("user_id", cmd.UserID)
	form.Set("user_name", cmd.UserName)
	form.Set("command", cmd.Command)
	if cmd.Text != "" {
		form.Set("text", cmd.Text)
	}
	form.Set("response_url", cmd.ResponseURL)

	req := httptest.NewRequest("POST", "/slack/commands", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// CallbackRecorder is a fake Slack response_url endpoint
type CallbackRecorder struct {
	URL    string
	mu     sync.Mutex
	posted []models.Message
	server *httptest.Server
}

// NewCallbackRecorder starts a server that records every posted message.
// The server is closed when the test ends.
func NewCallbackRecorder(t *testing.T) *CallbackRecorder {
	t.Helper()

	rec := &CallbackRecorder{}
	rec.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg models.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		rec.mu.Lock()
		rec.posted = append(rec.posted, msg)
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	rec.URL = rec.server.URL
	t.Cleanup(rec.server.Close)

	return rec
}

// Messages returns a copy of the messages received so far
func (c *CallbackRecorder) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.posted))
	copy(out, c.posted)
	return out
}
