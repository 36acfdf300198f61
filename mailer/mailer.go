// Package mailer is the boundary to the external transactional mail service.
// Delivery is always best effort: callers log failures and move on.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is one transactional email.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers a message through the external mail service.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPSender posts messages to the mail service's JSON endpoint.
type HTTPSender struct {
	url    string
	client *http.Client
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail service returned %d", resp.StatusCode)
	}
	return nil
}

// NopSender discards every message. Used in tests and when no mail service
// is configured.
type NopSender struct{}

func (NopSender) Send(context.Context, Message) error { return nil }
