package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/shuchurin/internal/webhook"
)

func samplePayload() webhook.SessionWebhookPayload {
	return webhook.SessionWebhookPayload{
		SchemaVersion:    webhook.SessionWebhookSchemaVersion,
		SessionID:        "sess-1",
		UserID:           "user-1",
		StartAt:          "2026-03-14T09:00:00+09:00",
		EndAt:            "2026-03-14T10:00:00+09:00",
		TotalSeconds:     3600,
		FocusedSeconds:   3000,
		UnfocusedSeconds: 600,
	}
}

func TestSendSessionFinalized_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendSessionFinalized(context.Background(), samplePayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendSessionFinalized_Success(t *testing.T) {
	var got webhook.SessionWebhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendSessionFinalized(context.Background(), samplePayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.SessionID != "sess-1" || got.UserID != "user-1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.SchemaVersion != webhook.SessionWebhookSchemaVersion {
		t.Fatalf("unexpected schema version %d", got.SchemaVersion)
	}
	if got.FocusedSeconds != 3000 {
		t.Fatalf("unexpected focused seconds %v", got.FocusedSeconds)
	}
}

func TestSendSessionFinalized_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.SendSessionFinalized(context.Background(), samplePayload()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
