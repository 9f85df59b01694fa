// notification/sender.go
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// Sender delivers one notification to one notification URI
type Sender interface {
	Send(ctx context.Context, uri string, notification *model.Notification) error
}

// HTTPSender POSTs the notification as JSON
type HTTPSender struct {
	client *http.Client
}

func NewHTTPSender(timeout time.Duration) *HTTPSender {
	return &HTTPSender{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSender) Send(ctx context.Context, uri string, notification *model.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("invalid notification URI %q: %w", uri, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-M2M-Origin", notification.Creator)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification target returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// RedisSender publishes the notification on the channel named by a
// redis://<channel> URI
type RedisSender struct {
	client *redis.Client
}

func NewRedisSender(client *redis.Client) *RedisSender {
	return &RedisSender{client: client}
}

func (s *RedisSender) Send(ctx context.Context, uri string, notification *model.Notification) error {
	channel := strings.TrimPrefix(uri, "redis://")
	if channel == "" {
		return fmt.Errorf("notification URI %q names no channel", uri)
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return s.client.Publish(ctx, channel, payload).Err()
}

// MultiSender routes by URI scheme
type MultiSender struct {
	senders map[string]Sender
}

func NewMultiSender() *MultiSender {
	return &MultiSender{senders: make(map[string]Sender)}
}

// Register routes every URI with one of the given schemes to sender
func (m *MultiSender) Register(sender Sender, schemes ...string) *MultiSender {
	for _, scheme := range schemes {
		m.senders[strings.ToLower(scheme)] = sender
	}
	return m
}

func (m *MultiSender) Send(ctx context.Context, uri string, notification *model.Notification) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid notification URI %q: %w", uri, err)
	}
	sender, ok := m.senders[strings.ToLower(parsed.Scheme)]
	if !ok {
		return fmt.Errorf("no sender for scheme %q", parsed.Scheme)
	}
	return sender.Send(ctx, uri, notification)
}
