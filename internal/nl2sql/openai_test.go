package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripMarkdownSQL(t *testing.T) {
	got := stripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
}

func TestBuildChatPayloadIncludesExamples(t *testing.T) {
	payload := buildChatPayload("gpt-5", 0.1, Request{
		Question: "total sales by region",
		Examples: []Example{{Question: "total sales", SQL: "SELECT SUM(amount) FROM sales"}},
	})

	messages, ok := payload["messages"].([]map[string]string)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %#v", payload["messages"])
	}
	user := messages[1]["content"]
	if !strings.Contains(user, "Q: total sales") {
		t.Fatalf("user prompt missing example question: %s", user)
	}
	if !strings.Contains(user, "SELECT SUM(amount) FROM sales") {
		t.Fatalf("user prompt missing example sql: %s", user)
	}
	if !strings.Contains(user, "total sales by region") {
		t.Fatalf("user prompt missing question: %s", user)
	}
}

func TestTranslateParsesCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "```sql\nSELECT region, SUM(amount) FROM sales GROUP BY region\n```"}},
			},
		})
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	result, err := translator.Translate(context.Background(), Request{Question: "total sales by region"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if !strings.HasPrefix(result.SQL, "SELECT region") {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Model != "gpt-5" {
		t.Fatalf("Model = %q", result.Model)
	}
}

func TestTranslateSurfacesUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	if _, err := translator.Translate(context.Background(), Request{Question: "anything"}); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}
