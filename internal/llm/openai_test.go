package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeOpenAI serves canned SSE deltas on the chat completions endpoint
func fakeOpenAI(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for i, delta := range deltas {
			fmt.Fprintf(w, "data: {\"id\":\"chunk-%d\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", i, delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestOpenAI(t *testing.T, baseURL string) *OpenAIProvider {
	t.Helper()
	provider, err := NewOpenAIProvider(Config{
		APIKey:         "test-key",
		BaseURL:        baseURL + "/v1",
		Model:          "test-model",
		MaxInputTokens: 1024,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return provider
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{})
	if err == nil {
		t.Fatal("Expected error for missing API key")
	}

	// A custom base URL implies a local server that may not need a key
	if _, err := NewOpenAIProvider(Config{BaseURL: "http://localhost:8080/v1"}); err != nil {
		t.Errorf("Expected no error with base URL, got %v", err)
	}
}

func TestOpenAIAnalyzeStreaming(t *testing.T) {
	server := fakeOpenAI(t, []string{`{"occupation": `, `"nurse"}`})
	defer server.Close()

	provider := newTestOpenAI(t, server.URL)

	var chunks []Chunk
	resp, err := provider.Analyze(context.Background(), AnalyzeRequest{Text: "I work as a nurse"}, func(c Chunk) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if resp.Response["occupation"] != "nurse" {
		t.Errorf("Expected parsed response, got %v", resp.Response)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].IsComplete || !chunks[1].IsComplete {
		t.Error("Expected completion only on the final chunk")
	}
}

func TestOpenAIRephraseThinkSplit(t *testing.T) {
	server := fakeOpenAI(t, []string{"weighing options", "</think>", "A neutral version."})
	defer server.Close()

	provider := newTestOpenAI(t, server.URL)

	resp, err := provider.Rephrase(context.Background(), RephraseRequest{
		Text:       "I am 24 years old",
		Attributes: []string{"age"},
	}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if resp.MainContent != "weighing options</think>" {
		t.Errorf("Expected main content up to think tag, got %q", resp.MainContent)
	}
	if resp.Summary != "A neutral version." {
		t.Errorf("Expected summary after think tag, got %q", resp.Summary)
	}
}

func TestOpenAIAnalyzeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	provider := newTestOpenAI(t, server.URL)

	_, err := provider.Analyze(context.Background(), AnalyzeRequest{Text: "hello"}, nil)
	if err == nil {
		t.Fatal("Expected error from API failure")
	}
	if !strings.Contains(err.Error(), "OpenAI API error") {
		t.Errorf("Expected wrapped API error, got %v", err)
	}
}
