package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"reel/internal/services/llm"
)

func chatResponse(t *testing.T, w http.ResponseWriter, message map[string]any) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{
				"finish_reason": "stop",
				"message":       message,
			},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestModelSetDecideParsesSummaryAndActions(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
		Tools []json.RawMessage `json:"tools"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		chatResponse(t, w, map[string]any{
			"content": "The consent dialog is blocking the page.\n<int_summary>Dismissed the consent dialog</int_summary>",
			"tool_calls": []any{
				map[string]any{
					"type": "function",
					"id":   "call_1",
					"function": map[string]any{
						"name":      "computer_click",
						"arguments": `{"elementDescription":"Accept all button"}`,
					},
				},
				map[string]any{
					"type": "function",
					"id":   "call_2",
					"function": map[string]any{
						"name":      "wait",
						"arguments": `{"seconds":2}`,
					},
				},
			},
		})
	}))
	defer server.Close()

	client := llm.NewClient(llm.Config{BaseURL: server.URL, Model: "decision-model"})
	models := NewModels(client, client, 1280, 720)

	decision, err := models.Decide(context.Background(), DecisionRequest{
		Objective:  "Recover a playable media URL",
		Screenshot: []byte("fake-png"),
		History:    "---\n\nINTERACTION HISTORY:\n",
	})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if decision.Summary != "Dismissed the consent dialog" {
		t.Fatalf("unexpected summary %q", decision.Summary)
	}
	if len(decision.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(decision.Actions))
	}
	if click, ok := decision.Actions[0].(ClickAction); !ok || click.Element != "Accept all button" {
		t.Fatalf("unexpected first action %#v", decision.Actions[0])
	}
	if wait, ok := decision.Actions[1].(WaitAction); !ok || wait.Seconds != 2 {
		t.Fatalf("unexpected second action %#v", decision.Actions[1])
	}

	// System prompt plus two user messages, the first carrying the image.
	if len(captured.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Fatalf("first message role = %q, want system", captured.Messages[0].Role)
	}
	var parts []map[string]any
	if err := json.Unmarshal(captured.Messages[1].Content, &parts); err != nil {
		t.Fatalf("objective message should be multimodal parts: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %d", len(parts))
	}
	if len(captured.Tools) != 6 {
		t.Fatalf("expected 6 tool schemas in request, got %d", len(captured.Tools))
	}
}

func TestModelSetDecideRejectsMalformedToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatResponse(t, w, map[string]any{
			"content": "<int_summary>Navigating</int_summary>",
			"tool_calls": []any{
				map[string]any{
					"type": "function",
					"id":   "call_1",
					"function": map[string]any{
						"name":      "browser_navigate",
						"arguments": `{}`,
					},
				},
			},
		})
	}))
	defer server.Close()

	client := llm.NewClient(llm.Config{BaseURL: server.URL, Model: "decision-model"})
	models := NewModels(client, client, 1280, 720)

	if _, err := models.Decide(context.Background(), DecisionRequest{Objective: "x"}); err == nil {
		t.Fatal("expected error for tool call without url")
	}
}

func TestModelSetResolveCoordinates(t *testing.T) {
	cases := []struct {
		name      string
		reply     string
		wantX     int
		wantY     int
		wantFound bool
		wantErr   bool
	}{
		{"hit", "COORDINATES: 450,300", 450, 300, true, false},
		{"hit with spaces", "The button is here.\nCOORDINATES: 12 , 34", 12, 34, true, false},
		{"not found", "COORDINATES: NOT_FOUND", 0, 0, false, false},
		{"out of bounds", "COORDINATES: 1900,300", 0, 0, false, false},
		{"garbage", "it is near the top right corner", 0, 0, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				chatResponse(t, w, map[string]any{"content": tc.reply})
			}))
			defer server.Close()

			client := llm.NewClient(llm.Config{BaseURL: server.URL, Model: "resolver-model"})
			models := NewModels(client, client, 1280, 720)

			x, y, found, err := models.ResolveCoordinates(context.Background(), "Accept button", []byte("fake-png"))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected resolver error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveCoordinates returned error: %v", err)
			}
			if found != tc.wantFound || x != tc.wantX || y != tc.wantY {
				t.Fatalf("got (%d, %d, %v), want (%d, %d, %v)", x, y, found, tc.wantX, tc.wantY, tc.wantFound)
			}
		})
	}
}

func TestParseCoordinates(t *testing.T) {
	x, y, found, err := parseCoordinates("COORDINATES: 640,360")
	if err != nil || !found || x != 640 || y != 360 {
		t.Fatalf("got (%d, %d, %v, %v)", x, y, found, err)
	}

	_, _, found, err = parseCoordinates("COORDINATES: NOT_FOUND")
	if err != nil || found {
		t.Fatalf("NOT_FOUND should be a clean miss, got found=%v err=%v", found, err)
	}

	if _, _, _, err := parseCoordinates("somewhere in the middle"); err == nil {
		t.Fatal("expected error for reply outside the contract")
	}
}

func TestExtractSummary(t *testing.T) {
	content := "Let me think about this.\n<int_summary>Clicked the play button</int_summary>\ntrailing"
	if got := extractSummary(content); got != "Clicked the play button" {
		t.Fatalf("unexpected summary %q", got)
	}

	// Models that skip the tag protocol fall back to the first line.
	if got := extractSummary("Opened the video page\nsecond line"); got != "Opened the video page" {
		t.Fatalf("unexpected fallback summary %q", got)
	}

	if got := extractSummary("   \n  "); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
}
