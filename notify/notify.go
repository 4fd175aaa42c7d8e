// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package notify posts delayed messages to Slack response URLs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/danielhkuo/pokerbot/models"
)

// Notifier sends best-effort broadcasts in the background.
// Send never blocks the caller and failures are only logged.
type Notifier struct {
	client  *http.Client
	timeout time.Duration
	wg      sync.WaitGroup
}

func New(client *http.Client, timeout time.Duration) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Notifier{client: client, timeout: timeout}
}

// Send posts msg to url on a detached goroutine
func (n *Notifier) Send(url string, msg models.Message) {
	if url == "" {
		slog.Warn("broadcast skipped, no response url")
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := n.bound()
		defer cancel()

		if err := n.post(ctx, url, msg); err != nil {
			slog.Error("failed to send delayed message", "error", err)
		}
	}()
}

// bound applies the send timeout; zero or less leaves the send to the client's own timeout
func (n *Notifier) bound() (context.Context, context.CancelFunc) {
	if n.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), n.timeout)
}

// Wait blocks until every pending broadcast has finished
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) post(ctx context.Context, url string, msg models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not send delayed message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("delayed message rejected with status %d", resp.StatusCode)
	}
	return nil
}
