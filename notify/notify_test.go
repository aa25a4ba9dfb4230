package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldops/punch-engine/notify"
)

func TestDedupTokens(t *testing.T) {
	got := notify.DedupTokens([]string{"a", "b", "a", "", "c", "b"})
	want := []string{"a", "b", "c"}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestLogDispatcher_CountsUniqueTokens(t *testing.T) {
	sent, err := notify.LogDispatcher{}.Send(context.Background(), notify.Notification{
		Title:  "Teste",
		Body:   "corpo",
		Tokens: []string{"a", "a", "b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 2 {
		t.Errorf("expected 2 sent, got %d", sent)
	}
}

func TestLogDispatcher_EmptyTokens_NoOp(t *testing.T) {
	sent, err := notify.LogDispatcher{}.Send(context.Background(), notify.Notification{Title: "x"})
	if err != nil || sent != 0 {
		t.Errorf("expected 0/nil, got %d/%v", sent, err)
	}
}

func TestHTTPDispatcher_PostsMulticastPayload(t *testing.T) {
	// GIVEN: A webhook capturing the request body
	// WHEN: Sending a notification with duplicate tokens
	// THEN: One POST with deduped tokens and the data payload intact

	var received notify.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := notify.NewHTTPDispatcher(srv.URL)
	sent, err := d.Send(context.Background(), notify.Notification{
		Title:  "Fim de Expediente 🛑",
		Body:   "corpo",
		Data:   map[string]string{"action": "overtime_confirm"},
		Tokens: []string{"a", "a", "b"},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 2 {
		t.Errorf("expected 2 sent, got %d", sent)
	}
	if len(received.Tokens) != 2 {
		t.Errorf("expected deduped tokens on the wire, got %v", received.Tokens)
	}
	if received.Data["action"] != "overtime_confirm" {
		t.Errorf("expected data payload preserved, got %v", received.Data)
	}
}

func TestHTTPDispatcher_NonSuccessStatus_IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := notify.NewHTTPDispatcher(srv.URL)
	sent, err := d.Send(context.Background(), notify.Notification{
		Title:  "x",
		Tokens: []string{"a"},
	})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if sent != 0 {
		t.Errorf("expected 0 sent, got %d", sent)
	}
}

func TestHTTPDispatcher_EmptyTokens_SkipsRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	d := notify.NewHTTPDispatcher(srv.URL)
	sent, err := d.Send(context.Background(), notify.Notification{Title: "x"})
	if err != nil || sent != 0 {
		t.Errorf("expected 0/nil, got %d/%v", sent, err)
	}
	if calls != 0 {
		t.Errorf("expected no HTTP call, got %d", calls)
	}
}
