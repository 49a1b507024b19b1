package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientConfigured(t *testing.T) {
	if NewClient("", "", "m").Configured() {
		t.Error("client without credentials reports configured")
	}
	if !NewClient("http://localhost", "key", "m").Configured() {
		t.Error("client with credentials reports unconfigured")
	}
}

func TestClientSummarize(t *testing.T) {
	var gotReq chatRequest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"narrative"}}]}`))
	}))
	defer backend.Close()

	c := NewClient(backend.URL, "key", "test-model")
	text, err := c.Summarize(context.Background(), map[string]interface{}{"resourceType": "Bundle"})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if text != "narrative" {
		t.Errorf("text = %q", text)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "Bundle") {
		t.Errorf("user message does not carry the bundle: %q", gotReq.Messages[1].Content)
	}
}

func TestClientSummarize_NoChoices(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer backend.Close()

	c := NewClient(backend.URL, "key", "m")
	if _, err := c.Summarize(context.Background(), map[string]interface{}{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestClientSummarize_Unconfigured(t *testing.T) {
	c := NewClient("", "", "")
	if _, err := c.Summarize(context.Background(), map[string]interface{}{}); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}
