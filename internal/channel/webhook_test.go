package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sipwell/agent/internal/domain"
)

func testMessage() domain.ReminderMessage {
	return domain.ReminderMessage{
		RecordID:   uuid.New(),
		Title:      "Time to hydrate",
		Body:       "Take a sip of water.",
		Disruption: domain.DisruptionNormal,
	}
}

func TestWebhookChannel_PostsReminderPayload(t *testing.T) {
	var got domain.ReminderMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	msg := testMessage()
	c := NewNotificationChannel(srv.URL)
	if err := c.Show(context.Background(), msg); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if got.RecordID != msg.RecordID || got.Title != msg.Title {
		t.Fatalf("surface received %+v, want %+v", got, msg)
	}
}

func TestWebhookChannel_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOverlayChannel(srv.URL)
	err := c.Show(context.Background(), testMessage())

	var derr *domain.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected a classified error, got %v", err)
	}
	if derr.Kind != domain.KindSystemIntegration || derr.Code != "channel-rejected" {
		t.Fatalf("got %s/%s, want system-integration/channel-rejected", derr.Kind, derr.Code)
	}
}

func TestWebhookChannel_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewNotificationChannel(srv.URL)
	err := c.Show(context.Background(), testMessage())

	var derr *domain.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected a classified error, got %v", err)
	}
	if derr.Code != "channel-unreachable" {
		t.Fatalf("got code %s, want channel-unreachable", derr.Code)
	}
}

func TestWebhookChannel_Unconfigured(t *testing.T) {
	c := NewOverlayChannel("")
	err := c.Show(context.Background(), testMessage())

	var derr *domain.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected a classified error, got %v", err)
	}
	if derr.Code != "channel-unconfigured" {
		t.Fatalf("got code %s, want channel-unconfigured", derr.Code)
	}
}
