package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Turn is a single entry of a model conversation in a provider-agnostic format.
// Content is usually a string, but adapters may surface block lists
// ([]interface{} of strings or {"text": ...} maps) or a single {"text": ...} object.
type Turn struct {
	Role       string
	Content    interface{}
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolCall is a model request to invoke a named tool with JSON arguments.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolSpec describes a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON schema object
}

// ToolSet is the set of tools bound to one run.
type ToolSet interface {
	Specs() []ToolSpec
	Call(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error)
}

// RunResult is the final state of a tool-calling run.
type RunResult struct {
	Output string // aggregated final answer, may be empty
	Turns  []Turn
}

// MemoryMessage is one prior conversation turn handed to the model as history.
type MemoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	MaxRounds   int
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithMaxRounds(n int) Option {
	return func(o *Options) {
		o.MaxRounds = n
	}
}

// ApplyOptions folds opts over the defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, o := range opts {
		o(&defaults)
	}
	return defaults
}

// ChatClient runs a tool-calling conversation against one provider.
type ChatClient interface {
	Provider() string
	Invoke(ctx context.Context, turns []Turn, tools ToolSet) (*RunResult, error)
}

// Completer performs a single model round trip. Provider adapters implement it
// and reuse RunToolLoop for the multi-round behaviour.
type Completer interface {
	Complete(ctx context.Context, turns []Turn, tools []ToolSpec) (*Turn, error)
}

// ConfigurationError reports a missing or invalid provider setting.
type ConfigurationError struct {
	Provider string
	Key      string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured: missing %s", e.Provider, e.Key)
}

// ProviderError is a non-success response from an upstream model API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// ContentString returns the plain string content of a turn, or "" when the
// content is structured.
func ContentString(t Turn) string {
	if s, ok := t.Content.(string); ok {
		return s
	}
	return ""
}
