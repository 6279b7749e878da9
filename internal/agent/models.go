package agent

import (
	"context"
	"fmt"

	"reel/internal/services/llm"
)

const (
	decisionTemperature = 0.2
	decisionMaxTokens   = 4096
	resolverTemperature = 0.1
	resolverMaxTokens   = 100
)

// DecisionRequest carries everything the decision model sees for one
// iteration: the objective, the current screen, and the full transcript.
type DecisionRequest struct {
	Objective  string
	Screenshot []byte
	History    string
}

// Decision is the model's reply: a step summary plus zero or more actions
// to execute in order.
type Decision struct {
	Summary string
	Actions []Action
}

// Models is the reasoning capability the loop depends on. One
// implementation pairs a tool-calling decision model with a vision
// grounding model for coordinates.
type Models interface {
	Decide(ctx context.Context, req DecisionRequest) (*Decision, error)
	ResolveCoordinates(ctx context.Context, element string, screenshot []byte) (x, y int, found bool, err error)
}

type modelSet struct {
	decision *llm.Client
	resolver *llm.Client
	maxX     int
	maxY     int
}

// NewModels wires the decision and resolver clients into a Models
// implementation bound to the session's display size.
func NewModels(decision, resolver *llm.Client, displayWidth, displayHeight int) Models {
	return &modelSet{
		decision: decision,
		resolver: resolver,
		maxX:     displayWidth,
		maxY:     displayHeight,
	}
}

func (m *modelSet) Decide(ctx context.Context, req DecisionRequest) (*Decision, error) {
	result, err := m.decision.Chat(ctx, llm.ChatRequest{
		System: decisionSystemPrompt,
		Messages: []llm.Message{
			{
				Role:  "user",
				Text:  "Objective: " + req.Objective,
				Image: req.Screenshot,
			},
			{
				Role: "user",
				Text: "Your previous steps:\n<interaction_history>\n" + req.History + "\n</interaction_history>",
			},
		},
		Tools:       toolSchemas(),
		Temperature: decisionTemperature,
		MaxTokens:   decisionMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	decision := &Decision{Summary: extractSummary(result.Content)}
	for _, call := range result.ToolCalls {
		action, err := parseToolCall(call)
		if err != nil {
			return nil, fmt.Errorf("tool call %s: %w", call.Name, err)
		}
		decision.Actions = append(decision.Actions, action)
	}
	return decision, nil
}

func (m *modelSet) ResolveCoordinates(ctx context.Context, element string, screenshot []byte) (int, int, bool, error) {
	result, err := m.resolver.Chat(ctx, llm.ChatRequest{
		System: fmt.Sprintf(resolverPromptFormat, element),
		Messages: []llm.Message{
			{
				Role:  "user",
				Text:  "Find: " + element,
				Image: screenshot,
			},
		},
		Temperature: resolverTemperature,
		MaxTokens:   resolverMaxTokens,
	})
	if err != nil {
		return 0, 0, false, err
	}

	x, y, found, err := parseCoordinates(result.Content)
	if err != nil || !found {
		return 0, 0, false, err
	}
	// Off-screen coordinates count as a miss, not a click target.
	if x < 0 || x > m.maxX || y < 0 || y > m.maxY {
		return 0, 0, false, nil
	}
	return x, y, true, nil
}
