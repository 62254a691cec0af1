package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedParsesVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["input"] != "total sales by region" {
			t.Fatalf("input = %v", payload["input"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}

	vector, err := embedder.Embed(context.Background(), "total sales by region")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("vector length = %d", len(vector))
	}
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	embedder, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: "http://localhost", APIKey: "key-1"})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	if _, err := embedder.Embed(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestEmbedSurfacesUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	if _, err := embedder.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}
