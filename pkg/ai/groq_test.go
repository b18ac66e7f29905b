package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/johnquangdev/playcoach/pkg/config"
)

func newTestGroq(t *testing.T, handler http.HandlerFunc) *GroqClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	g := NewGroqClient(&config.GroqConfig{
		APIKey:     "test-key",
		BaseURL:    ts.URL,
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	}, nil)
	g.retryDelay = time.Millisecond
	return g
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     "cmpl-1",
		"object": "chat.completion",
		"choices": []map[string]interface{}{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func TestGroqComplete_Success(t *testing.T) {
	g := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		if body["model"] != "test-model" {
			t.Errorf("unexpected model %v", body["model"])
		}
		writeCompletion(w, `{"ok":true}`)
	})

	got, err := g.Complete(context.Background(), ChatRequest{System: "sys", User: "hi", JSONMode: true})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestGroqComplete_RetriesServerErrors(t *testing.T) {
	var calls int32
	g := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"service unavailable"}}`))
			return
		}
		writeCompletion(w, "done")
	})

	got, err := g.Complete(context.Background(), ChatRequest{User: "hi"})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "done" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}

func TestGroqComplete_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	g := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	})

	if _, err := g.Complete(context.Background(), ChatRequest{User: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}
