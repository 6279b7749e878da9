package agent

import (
	"errors"
	"fmt"

	"reel/internal/services/llm"
)

const (
	toolNavigate = "browser_navigate"
	toolClick    = "computer_click"
	toolType     = "computer_type"
	toolExtract  = "extract_video_url"
	toolWait     = "wait"
	toolComplete = "complete_task"
)

// Action is one decoded tool invocation from the decision model. The
// concrete type selects the dispatch path in the loop.
type Action interface {
	tool() string
}

// NavigateAction loads a URL in the live browser session.
type NavigateAction struct {
	URL string
}

// ClickAction clicks a UI element described in natural language. The
// coordinate resolver turns the description into pixels.
type ClickAction struct {
	Element string
}

// TypeAction replaces the content of the focused input field.
type TypeAction struct {
	Text       string
	PressEnter bool
}

// WaitAction suspends the loop for the given number of seconds.
type WaitAction struct {
	Seconds float64
}

// ExtractAction recovers a playable media URL from the current session.
type ExtractAction struct {
	Quality string
}

// CompleteAction ends the loop with the model's verbatim report.
type CompleteAction struct {
	Success  bool
	MediaURL string
	Info     map[string]any
	Message  string
}

func (NavigateAction) tool() string { return toolNavigate }
func (ClickAction) tool() string    { return toolClick }
func (TypeAction) tool() string     { return toolType }
func (WaitAction) tool() string     { return toolWait }
func (ExtractAction) tool() string  { return toolExtract }
func (CompleteAction) tool() string { return toolComplete }

// parseToolCall decodes a model tool invocation into its typed action.
// Unknown tools and malformed arguments are decision-level failures.
func parseToolCall(call llm.ToolInvocation) (Action, error) {
	switch call.Name {
	case toolNavigate:
		var args struct {
			URL string `json:"url"`
		}
		if err := decodeArguments(call.Arguments, &args); err != nil {
			return nil, err
		}
		if args.URL == "" {
			return nil, errors.New("missing url argument")
		}
		return NavigateAction{URL: args.URL}, nil

	case toolClick:
		var args struct {
			Element string `json:"elementDescription"`
		}
		if err := decodeArguments(call.Arguments, &args); err != nil {
			return nil, err
		}
		if args.Element == "" {
			return nil, errors.New("missing elementDescription argument")
		}
		return ClickAction{Element: args.Element}, nil

	case toolType:
		var args struct {
			Text       string `json:"text"`
			PressEnter bool   `json:"pressEnter"`
		}
		if err := decodeArguments(call.Arguments, &args); err != nil {
			return nil, err
		}
		if args.Text == "" {
			return nil, errors.New("missing text argument")
		}
		return TypeAction{Text: args.Text, PressEnter: args.PressEnter}, nil

	case toolWait:
		var args struct {
			Seconds float64 `json:"seconds"`
		}
		if err := decodeArguments(call.Arguments, &args); err != nil {
			return nil, err
		}
		return WaitAction{Seconds: args.Seconds}, nil

	case toolExtract:
		var args struct {
			Quality string `json:"quality"`
		}
		// Arguments are optional for extraction.
		if call.Arguments != "" {
			if err := decodeArguments(call.Arguments, &args); err != nil {
				return nil, err
			}
		}
		if args.Quality == "" {
			args.Quality = "best"
		}
		return ExtractAction{Quality: args.Quality}, nil

	case toolComplete:
		var args struct {
			Success *bool          `json:"success"`
			URL     string         `json:"video_url"`
			Info    map[string]any `json:"video_info"`
			Message string         `json:"error_message"`
		}
		if err := decodeArguments(call.Arguments, &args); err != nil {
			return nil, err
		}
		if args.Success == nil {
			return nil, errors.New("missing success argument")
		}
		return CompleteAction{
			Success:  *args.Success,
			MediaURL: args.URL,
			Info:     args.Info,
			Message:  args.Message,
		}, nil
	}
	return nil, fmt.Errorf("unknown tool %q", call.Name)
}

func decodeArguments(raw string, target any) error {
	if err := llm.DecodeToolJSON(raw, target); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// toolSchemas declares the agent's tool vocabulary for the decision model.
func toolSchemas() []llm.Tool {
	return []llm.Tool{
		{
			Name:        toolNavigate,
			Description: "Navigate to a URL in the browser",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "The URL to navigate to",
					},
				},
				"required": []string{"url"},
			},
		},
		{
			Name:        toolClick,
			Description: "Click on a UI element described in natural language",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"elementDescription": map[string]any{
						"type":        "string",
						"description": "Natural language description of the UI element to click",
					},
				},
				"required": []string{"elementDescription"},
			},
		},
		{
			Name:        toolType,
			Description: "Type text into the currently focused input field",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{
						"type":        "string",
						"description": "Text to type",
					},
					"pressEnter": map[string]any{
						"type":        "boolean",
						"description": "Whether to press Enter after typing",
					},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        toolExtract,
			Description: "Extract the playable media URL from the current page",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"quality": map[string]any{
						"type":        "string",
						"description": "Preferred media quality (e.g. 'best', 'worst', '720p')",
					},
				},
			},
		},
		{
			Name:        toolWait,
			Description: "Wait for a specified number of seconds",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"seconds": map[string]any{
						"type":        "number",
						"description": "Number of seconds to wait",
					},
				},
				"required": []string{"seconds"},
			},
		},
		{
			Name:        toolComplete,
			Description: "Finish the task and report the extracted media information",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"success": map[string]any{
						"type":        "boolean",
						"description": "Whether the task was completed successfully",
					},
					"video_url": map[string]any{
						"type":        "string",
						"description": "The extracted media URL",
					},
					"video_info": map[string]any{
						"type":        "object",
						"description": "Media metadata",
					},
					"error_message": map[string]any{
						"type":        "string",
						"description": "Error message if the task failed",
					},
				},
				"required": []string{"success"},
			},
		},
	}
}
