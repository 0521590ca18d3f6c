// Package channel implements the delivery surfaces reminders are
// rendered on. The real surfaces live outside this process; each
// channel posts the reminder payload to a configured UI endpoint.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sipwell/agent/internal/domain"
)

const defaultDispatchTimeout = 10 * time.Second

// WebhookChannel dispatches a reminder to a UI surface over HTTP.
// Any transport error or non-2xx status means the channel is
// unavailable for this attempt.
type WebhookChannel struct {
	kind   domain.ChannelKind
	url    string
	client *http.Client
}

func NewNotificationChannel(url string) *WebhookChannel {
	return newWebhookChannel(domain.ChannelNotification, url)
}

func NewOverlayChannel(url string) *WebhookChannel {
	return newWebhookChannel(domain.ChannelOverlay, url)
}

func newWebhookChannel(kind domain.ChannelKind, url string) *WebhookChannel {
	return &WebhookChannel{
		kind:   kind,
		url:    url,
		client: &http.Client{Timeout: defaultDispatchTimeout},
	}
}

func (c *WebhookChannel) SetTimeout(d time.Duration) {
	c.client.Timeout = d
}

func (c *WebhookChannel) Kind() domain.ChannelKind {
	return c.kind
}

func (c *WebhookChannel) Show(ctx context.Context, msg domain.ReminderMessage) error {
	if c.url == "" {
		return domain.NewSystemIntegrationError(string(c.kind), "channel-unconfigured", fmt.Errorf("%s channel has no endpoint", c.kind))
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewSystemIntegrationError(string(c.kind), "channel-unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewSystemIntegrationError(string(c.kind), "channel-rejected",
			fmt.Errorf("%s surface returned status %d", c.kind, resp.StatusCode))
	}
	return nil
}
