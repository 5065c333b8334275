package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-mail-workspace-be/pkg/llm"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

type Client struct {
	apiKey     string
	baseURL    string
	opts       llm.Options
	httpClient *http.Client
}

// Request Payload Structure (OpenAI Compatible)
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   *string        `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewClient(apiKey, baseURL string, options ...llm.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		opts:       llm.ApplyOptions(llm.Options{MaxTokens: 1200}, options...),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Provider() string {
	return llm.ProviderGroq
}

func (c *Client) Invoke(ctx context.Context, turns []llm.Turn, tools llm.ToolSet) (*llm.RunResult, error) {
	return llm.RunToolLoop(ctx, c, turns, tools, c.opts.MaxRounds)
}

func (c *Client) Complete(ctx context.Context, turns []llm.Turn, tools []llm.ToolSpec) (*llm.Turn, error) {
	reqBody := chatRequest{
		Model:       c.opts.Model,
		Messages:    toMessages(turns),
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}
	for _, t := range tools {
		reqBody.Tools = append(reqBody.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read groq response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &llm.ProviderError{Provider: llm.ProviderGroq, StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode groq response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("groq api returned error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("empty choices from groq api")
	}

	msg := chatResp.Choices[0].Message
	out := &llm.Turn{Role: llm.RoleAssistant, Content: ""}
	if msg.Content != nil {
		out.Content = *msg.Content
	}
	for _, tc := range msg.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

func toMessages(turns []llm.Turn) []chatMessage {
	messages := make([]chatMessage, 0, len(turns))
	for _, t := range turns {
		m := chatMessage{
			Role:       t.Role,
			Content:    llm.ContentString(t),
			ToolCallID: t.ToolCallID,
		}
		if t.Role == llm.RoleTool {
			m.Name = t.Name
		}
		for _, call := range t.ToolCalls {
			tc := chatToolCall{ID: call.ID, Type: "function"}
			tc.Function.Name = call.Name
			tc.Function.Arguments = string(call.Arguments)
			m.ToolCalls = append(m.ToolCalls, tc)
		}
		messages = append(messages, m)
	}
	return messages
}
