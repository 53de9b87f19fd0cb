package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func TestBuildSlackPayload(t *testing.T) {
	batch := Batch{
		Units: []Unit{{
			Fallback: "Upcoming CW battle vs. ENEMY",
			Title:    ":RDDT: RDDT vs. ENEMY :fire:",
			Text:     "body",
			Level:    LevelDanger,
			ThumbURL: "http://example.com/emblem.png",
		}},
		Text:      "<!channel>",
		Username:  "battle-bot",
		IconEmoji: "rddt",
		Channel:   "#clanwars",
	}

	payload := BuildSlackPayload(batch)

	if payload.IconEmoji != ":rddt:" {
		t.Errorf("Expected icon emoji wrapped in colons, got %q", payload.IconEmoji)
	}
	if payload.Text != "<!channel>" || payload.Username != "battle-bot" || payload.Channel != "#clanwars" {
		t.Errorf("Unexpected message metadata: %+v", payload)
	}
	if len(payload.Attachments) != 1 {
		t.Fatalf("Expected 1 attachment, got %d", len(payload.Attachments))
	}
	a := payload.Attachments[0]
	if a.Color != "danger" {
		t.Errorf("Expected color danger, got %q", a.Color)
	}
	if len(a.MarkdownIn) != 1 || a.MarkdownIn[0] != "text" {
		t.Errorf("Expected markdown in text, got %v", a.MarkdownIn)
	}
	if a.Fields == nil {
		t.Error("Expected empty fields list rather than null")
	}
}

func TestSlackNotifier_SendBatch(t *testing.T) {
	var received SlackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	notifier, err := NewSlackNotifier(server.URL, nopLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resultChan, err := notifier.SendBatch(context.Background(), Batch{Units: []Unit{{Title: "t"}}, IconEmoji: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := <-resultChan

	if !result.Success {
		t.Fatalf("Expected success, got error: %v", result.Error)
	}
	if result.ID == "" || result.Notifier != "slack" {
		t.Errorf("Expected result id and notifier name, got %+v", result)
	}
	if len(received.Attachments) != 1 || received.Attachments[0].Title != "t" {
		t.Errorf("Unexpected payload received: %+v", received)
	}
}

func TestSlackNotifier_SendBatch_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid_payload"))
	}))
	defer server.Close()

	notifier, _ := NewSlackNotifier(server.URL, nopLogger())
	resultChan, err := notifier.SendBatch(context.Background(), Batch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := <-resultChan
	if result.Success || result.Error == nil {
		t.Errorf("Expected failure for rejected webhook, got %+v", result)
	}
}

func TestNewSlackNotifier_EmptyURL(t *testing.T) {
	if _, err := NewSlackNotifier("", nopLogger()); err == nil {
		t.Error("Expected error for empty webhook URL")
	}
}
