package searchagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-mail-workspace-be/internal/constant"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrSearchFailed is returned when both the primary and the fallback provider failed.
var ErrSearchFailed = errors.New("AI search failed")

// ClientBuilder creates a provider client for one run.
type ClientBuilder interface {
	BuildClient(provider string) (llm.ChatClient, error)
}

type Config struct {
	DefaultProvider string
	Tools           ToolConfig
}

type Agent struct {
	clients ClientBuilder
	mail    MailService
	cfg     Config
	log     logger.ILogger
	now     func() time.Time
}

func NewAgent(clients ClientBuilder, mail MailService, cfg Config, log logger.ILogger) *Agent {
	if cfg.DefaultProvider != llm.ProviderGroq {
		cfg.DefaultProvider = llm.ProviderGemini
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Agent{
		clients: clients,
		mail:    mail,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// ResolveProvider maps a model selector to the provider tried first. An
// explicit provider name pins it.
func ResolveProvider(selector, defaultProvider string) (provider string, pinned bool) {
	switch selector {
	case llm.ProviderGroq, llm.ProviderGemini:
		return selector, true
	}
	if defaultProvider == llm.ProviderGroq {
		return llm.ProviderGroq, false
	}
	return llm.ProviderGemini, false
}

func otherProvider(provider string) string {
	if provider == llm.ProviderGroq {
		return llm.ProviderGemini
	}
	return llm.ProviderGroq
}

// Search runs the tool-calling agent for one chat turn. A pinned provider's
// error is returned unchanged; otherwise one fallback attempt is made and a
// second failure becomes ErrSearchFailed.
func (a *Agent) Search(ctx context.Context, turn ChatTurnContext) (*ChatResponse, error) {
	ctx, span := otel.Tracer("searchagent").Start(ctx, "searchagent.search")
	defer span.End()

	primary, pinned := ResolveProvider(turn.ModelSelector, a.cfg.DefaultProvider)
	span.SetAttributes(attribute.String("provider.primary", primary), attribute.Bool("provider.pinned", pinned))

	res, err := a.invoke(ctx, primary, turn)
	if err == nil {
		span.SetAttributes(attribute.String("provider.used", primary))
		return res, nil
	}

	a.log.Error("SEARCH_AGENT", "Primary provider failed", map[string]interface{}{
		"provider": primary,
		"pinned":   pinned,
		"error":    err.Error(),
	})
	if pinned {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	fallback := otherProvider(primary)
	agentFallbacksTotal.Inc()
	res, fallbackErr := a.invoke(ctx, fallback, turn)
	if fallbackErr != nil {
		a.log.Error("SEARCH_AGENT", "Fallback provider failed", map[string]interface{}{
			"provider": fallback,
			"error":    fallbackErr.Error(),
		})
		span.RecordError(fallbackErr)
		span.SetStatus(codes.Error, ErrSearchFailed.Error())
		return nil, ErrSearchFailed
	}

	span.SetAttributes(attribute.String("provider.used", fallback))
	return res, nil
}

func (a *Agent) invoke(ctx context.Context, provider string, turn ChatTurnContext) (res *ChatResponse, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		agentRunsTotal.WithLabelValues(provider, status).Inc()
		agentRunDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}()

	run := NewRunContext()
	tools := NewSearchTools(turn.UserID, turn.UI, a.mail, run, a.cfg.Tools, a.log)

	client, err := a.clients.BuildClient(provider)
	if err != nil {
		return nil, err
	}

	userTurn, err := a.buildUserTurn(turn)
	if err != nil {
		return nil, err
	}

	result, err := client.Invoke(ctx, []llm.Turn{
		{Role: llm.RoleSystem, Content: constant.SearchAgentSystemPromptXML},
		{Role: llm.RoleUser, Content: userTurn},
	}, &countingTools{inner: tools})
	if err != nil {
		return nil, fmt.Errorf("%s invoke: %w", provider, err)
	}

	parsed := ParseStructured(ExtractText(result))
	resp := BuildResponse(provider, parsed, run)

	a.log.Info("SEARCH_AGENT", "Search run completed", map[string]interface{}{
		"provider":        provider,
		"tools_called":    run.Log.ToolsCalled,
		"queries_used":    run.Log.QueriesUsed,
		"candidate_count": resp.Trace.CandidateCount,
		"final_count":     resp.Trace.FinalCount,
	})
	return resp, nil
}

func (a *Agent) buildUserTurn(turn ChatTurnContext) (string, error) {
	memory := turn.Memory
	if memory == nil {
		memory = []llm.MemoryMessage{}
	}
	memoryJSON, err := json.Marshal(memory)
	if err != nil {
		return "", fmt.Errorf("encode memory: %w", err)
	}

	ui := turn.UI
	if ui.CurrentFilters == nil {
		ui.CurrentFilters = map[string]interface{}{}
	}
	contextJSON, err := json.Marshal(ui)
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}

	loc := time.UTC
	if ui.Timezone != nil {
		if l, err := time.LoadLocation(*ui.Timezone); err == nil {
			loc = l
		}
	}
	now := a.now().In(loc).Format("Monday, 02 Jan 2006 15:04 MST")

	return fmt.Sprintf(constant.SearchAgentUserTurnTemplate, turn.Message, memoryJSON, contextJSON, now), nil
}

// countingTools records per-tool outcome metrics around a ToolSet.
type countingTools struct {
	inner llm.ToolSet
}

func (c *countingTools) Specs() []llm.ToolSpec {
	return c.inner.Specs()
}

func (c *countingTools) Call(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	out, err := c.inner.Call(ctx, name, arguments)
	status := "success"
	if err != nil {
		status = "error"
	}
	toolCallsTotal.WithLabelValues(name, status).Inc()
	return out, err
}
