package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewEncoder(w).Encode(chatResponse("ready")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientChatExplicitCompletionsPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(chatResponse("ok"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/v1/chat/completions", Model: "demo"})
	if _, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Text: "hello"}},
	}); err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
}

func TestClientChatEncodesImageAndTools(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
			Tools []struct {
				Type     string `json:"type"`
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tools"`
			ToolChoice  string  `json:"tool_choice"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(payload.Messages) != 2 {
			t.Fatalf("expected system + user messages, got %d", len(payload.Messages))
		}
		if payload.Messages[0].Role != "system" {
			t.Fatalf("expected system message first, got %q", payload.Messages[0].Role)
		}
		var parts []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL struct {
				URL string `json:"url"`
			} `json:"image_url"`
		}
		if err := json.Unmarshal(payload.Messages[1].Content, &parts); err != nil {
			t.Fatalf("expected multimodal content array: %v", err)
		}
		if len(parts) != 2 || parts[0].Type != "text" || parts[1].Type != "image_url" {
			t.Fatalf("unexpected content parts: %+v", parts)
		}
		if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
			t.Fatalf("expected data URL, got %q", parts[1].ImageURL.URL)
		}
		if len(payload.Tools) != 1 || payload.Tools[0].Type != "function" || payload.Tools[0].Function.Name != "computer_click" {
			t.Fatalf("unexpected tools: %+v", payload.Tools)
		}
		if payload.ToolChoice != "auto" {
			t.Fatalf("expected tool_choice auto, got %q", payload.ToolChoice)
		}
		if payload.Temperature != 0.2 {
			t.Fatalf("expected temperature 0.2, got %v", payload.Temperature)
		}
		if payload.MaxTokens != 4096 {
			t.Fatalf("expected max_tokens 4096, got %d", payload.MaxTokens)
		}
		_ = json.NewEncoder(w).Encode(chatResponse("done"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "demo-model"})
	result, err := client.Chat(context.Background(), ChatRequest{
		System: "You control a browser.",
		Messages: []Message{{
			Role:  "user",
			Text:  "What should happen next?",
			Image: []byte{0x89, 0x50, 0x4e, 0x47},
		}},
		Tools: []Tool{{
			Name:        "computer_click",
			Description: "Click an element",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"elementDescription": map[string]any{"type": "string"},
				},
			},
		}},
		Temperature: 0.2,
		MaxTokens:   4096,
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if result.Content != "done" {
		t.Fatalf("unexpected content %q", result.Content)
	}
}

func TestClientChatParsesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{
								"type": "function",
								"id":   "call_1",
								"function": map[string]any{
									"name":      "browser_navigate",
									"arguments": `{"url":"https://example.com"}`,
								},
							},
						},
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "demo-model"})
	result, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Text: "navigate"}},
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.Name != "browser_navigate" || call.ID != "call_1" {
		t.Fatalf("unexpected tool call %+v", call)
	}
	var args struct {
		URL string `json:"url"`
	}
	if err := DecodeToolJSON(call.Arguments, &args); err != nil {
		t.Fatalf("decode arguments: %v", err)
	}
	if args.URL != "https://example.com" {
		t.Fatalf("unexpected url %q", args.URL)
	}
	if result.FinishReason != "tool_calls" {
		t.Fatalf("unexpected finish reason %q", result.FinishReason)
	}
}

func TestClientChatDeltaContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "",
					"delta": map[string]any{
						"content": "COORDINATES: 640,360",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "demo-model"})
	result, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Text: "locate"}},
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if result.Content != "COORDINATES: 640,360" {
		t.Fatalf("unexpected content %q", result.Content)
	}
}

func TestClientChatLegacyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"text":          "NOT_FOUND",
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "demo-model"})
	result, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Text: "locate"}},
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if result.Content != "NOT_FOUND" {
		t.Fatalf("unexpected content %q", result.Content)
	}
}

func TestClientChatEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message": map[string]any{
						"content": "",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(
		Config{BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Text: "hello"}},
	})
	if err == nil {
		t.Fatal("expected chat to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse("recovered"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	result, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Text: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if result.Content != "recovered" {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = "finally"
		}
		_ = json.NewEncoder(w).Encode(chatResponse(content))
	}))
	defer server.Close()

	client := NewClient(
		Config{BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	result, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Text: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if result.Content != "finally" {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDecodeToolJSONCodeFence(t *testing.T) {
	var parsed struct {
		Quality string `json:"quality"`
	}
	payload := "```json\n{\"quality\":\"best\"}\n```"
	if err := DecodeToolJSON(payload, &parsed); err != nil {
		t.Fatalf("DecodeToolJSON returned error: %v", err)
	}
	if parsed.Quality != "best" {
		t.Fatalf("unexpected quality %q", parsed.Quality)
	}
}
