package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-mail-workspace-be/pkg/llm"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	roleUser  = "user"
	roleModel = "model"
)

type Client struct {
	apiKey     string
	baseURL    string
	opts       llm.Options
	httpClient *http.Client
}

type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

type content struct {
	Role  string  `json:"role,omitempty"`
	Parts []*part `json:"parts"`
}

type functionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []*content       `json:"contents"`
	Tools             []tool           `json:"tools,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

func NewClient(apiKey, baseURL string, options ...llm.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		opts:       llm.ApplyOptions(llm.Options{MaxTokens: 1200}, options...),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Provider() string {
	return llm.ProviderGemini
}

func (c *Client) Invoke(ctx context.Context, turns []llm.Turn, tools llm.ToolSet) (*llm.RunResult, error) {
	return llm.RunToolLoop(ctx, c, turns, tools, c.opts.MaxRounds)
}

func (c *Client) Complete(ctx context.Context, turns []llm.Turn, tools []llm.ToolSpec) (*llm.Turn, error) {
	payload := buildRequest(turns, tools, c.opts)
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.opts.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadJson))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, &llm.ProviderError{Provider: llm.ProviderGemini, StatusCode: res.StatusCode, Body: string(resBody)}
	}

	var geminiRes generateResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(geminiRes.Candidates) == 0 || geminiRes.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty candidates from gemini api")
	}

	out := &llm.Turn{Role: llm.RoleAssistant}
	var text strings.Builder
	for i, p := range geminiRes.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			args := p.FunctionCall.Args
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			// Gemini has no call ids; index keeps them unique within a reply.
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        fmt.Sprintf("%s-%d", p.FunctionCall.Name, i),
				Name:      p.FunctionCall.Name,
				Arguments: args,
			})
			continue
		}
		text.WriteString(p.Text)
	}
	out.Content = text.String()
	return out, nil
}

func buildRequest(turns []llm.Turn, tools []llm.ToolSpec, opts llm.Options) generateRequest {
	req := generateRequest{
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}

	var system []string
	// Responses to one model turn's calls must share a single content.
	var responses *content
	for _, t := range turns {
		if t.Role != llm.RoleTool {
			responses = nil
		}
		switch t.Role {
		case llm.RoleSystem:
			system = append(system, llm.ContentString(t))
		case llm.RoleTool:
			if responses == nil {
				responses = &content{Role: roleUser}
				req.Contents = append(req.Contents, responses)
			}
			responses.Parts = append(responses.Parts, &part{FunctionResponse: &functionResponse{
				Name:     t.Name,
				Response: map[string]interface{}{"result": decodeToolResult(llm.ContentString(t))},
			}})
		case llm.RoleAssistant:
			c := &content{Role: roleModel}
			if s := llm.ContentString(t); s != "" {
				c.Parts = append(c.Parts, &part{Text: s})
			}
			for _, call := range t.ToolCalls {
				c.Parts = append(c.Parts, &part{FunctionCall: &functionCall{Name: call.Name, Args: call.Arguments}})
			}
			if len(c.Parts) == 0 {
				c.Parts = append(c.Parts, &part{Text: ""})
			}
			req.Contents = append(req.Contents, c)
		default:
			req.Contents = append(req.Contents, &content{
				Role:  roleUser,
				Parts: []*part{{Text: llm.ContentString(t)}},
			})
		}
	}

	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: []*part{{Text: strings.Join(system, "\n\n")}}}
	}

	if len(tools) > 0 {
		decls := make([]functionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, functionDeclaration{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
		}
		req.Tools = []tool{{FunctionDeclarations: decls}}
	}
	return req
}

func decodeToolResult(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
