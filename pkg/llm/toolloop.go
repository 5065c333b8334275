package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const DefaultMaxToolRounds = 6

// RunToolLoop drives a completer until it answers without tool calls or the
// round budget is spent. Tool results are appended as tool turns keyed by
// call id, in the order the model requested them. A failing tool aborts the
// run with that error.
func RunToolLoop(ctx context.Context, c Completer, turns []Turn, tools ToolSet, maxRounds int) (*RunResult, error) {
	if c == nil {
		return nil, errors.New("llm completer is required")
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}

	var specs []ToolSpec
	if tools != nil {
		specs = tools.Specs()
	}

	history := make([]Turn, len(turns), len(turns)+maxRounds*2)
	copy(history, turns)

	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Last round is answer-only.
		roundSpecs := specs
		if round == maxRounds-1 {
			roundSpecs = nil
		}

		reply, err := c.Complete(ctx, history, roundSpecs)
		if err != nil {
			return nil, err
		}
		reply.Role = RoleAssistant
		history = append(history, *reply)

		if len(reply.ToolCalls) == 0 {
			return &RunResult{Output: ContentString(*reply), Turns: history}, nil
		}
		if tools == nil {
			return nil, fmt.Errorf("model requested tool %q but no tools are bound", reply.ToolCalls[0].Name)
		}

		for _, call := range reply.ToolCalls {
			result, err := tools.Call(ctx, call.Name, call.Arguments)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", call.Name, err)
			}
			encoded, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("tool %s: encode result: %w", call.Name, err)
			}
			history = append(history, Turn{
				Role:       RoleTool,
				Content:    string(encoded),
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	return &RunResult{Turns: history}, nil
}
