package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotifyDeliversEvent(t *testing.T) {
	received := make(chan NotifyEvent, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		var event NotifyEvent
		if err := json.Unmarshal(body, &event); err != nil {
			t.Errorf("decode body: %v", err)
		}
		received <- event
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewNotifier(server.URL)
	if !notifier.Enabled() {
		t.Fatal("notifier should be enabled")
	}

	errCh := notifier.Notify(context.Background(), NotifyEvent{
		Event:     "knowledge_base_updated",
		Documents: []string{"faq.md"},
		Chunks:    4,
	})
	if err := <-errCh; err != nil {
		t.Fatalf("Notify: %v", err)
	}

	event := <-received
	if event.Event != "knowledge_base_updated" || event.Chunks != 4 {
		t.Fatalf("event = %+v", event)
	}
	if len(event.Documents) != 1 || event.Documents[0] != "faq.md" {
		t.Errorf("documents = %v", event.Documents)
	}
}

func TestNotifyReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	errCh := NewNotifier(server.URL).Notify(context.Background(), NotifyEvent{Event: "knowledge_base_updated"})
	if err := <-errCh; err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestNotifyReportsUnreachableWebhook(t *testing.T) {
	errCh := NewNotifier("http://127.0.0.1:1/refresh").Notify(context.Background(), NotifyEvent{Event: "knowledge_base_updated"})

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected connection error")
		}
	case <-time.After(15 * time.Second):
		t.Fatal("notify did not complete")
	}
}

func TestNotifyDisabledWithoutURL(t *testing.T) {
	notifier := NewNotifier("")
	if notifier.Enabled() {
		t.Fatal("notifier should be disabled")
	}

	// Disabled delivery still resolves the channel immediately.
	errCh := notifier.Notify(context.Background(), NotifyEvent{Event: "knowledge_base_updated"})
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Notify: %v", err)
		}
	default:
		t.Fatal("expected buffered result")
	}
}
