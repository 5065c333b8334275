package searchagent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/llm"
	"ai-mail-workspace-be/pkg/mailbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMail struct {
	items     []mailbox.ListItem
	detail    *mailbox.Detail
	err       error
	searches  []string
	pageSizes []int
	mailboxes []string
	details   []string
}

func (f *fakeMail) Search(_ context.Context, _ string, mailboxName, query string, pageSize int) ([]mailbox.ListItem, error) {
	f.searches = append(f.searches, query)
	f.pageSizes = append(f.pageSizes, pageSize)
	f.mailboxes = append(f.mailboxes, mailboxName)
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeMail) GetDetail(_ context.Context, _ string, id string) (*mailbox.Detail, error) {
	f.details = append(f.details, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

// scriptedClient calls the listed tools in order, then answers with reply.
type scriptedClient struct {
	provider string
	calls    []llm.ToolCall
	reply    string
	err      error
	turns    []llm.Turn
}

func (s *scriptedClient) Provider() string { return s.provider }

func (s *scriptedClient) Invoke(ctx context.Context, turns []llm.Turn, tools llm.ToolSet) (*llm.RunResult, error) {
	s.turns = turns
	if s.err != nil {
		return nil, s.err
	}
	for _, c := range s.calls {
		if _, err := tools.Call(ctx, c.Name, c.Arguments); err != nil {
			return nil, err
		}
	}
	return &llm.RunResult{Turns: append(turns, llm.Turn{Role: llm.RoleAssistant, Content: s.reply})}, nil
}

type fakeBuilder struct {
	clients map[string]*scriptedClient
	errs    map[string]error
	built   []string
}

func (f *fakeBuilder) BuildClient(provider string) (llm.ChatClient, error) {
	f.built = append(f.built, provider)
	if err := f.errs[provider]; err != nil {
		return nil, err
	}
	c, ok := f.clients[provider]
	if !ok {
		return nil, errors.New("no client scripted for " + provider)
	}
	return c, nil
}

func newTestAgent(b ClientBuilder, mail MailService, defaultProvider string) *Agent {
	a := NewAgent(b, mail, Config{DefaultProvider: defaultProvider}, logger.NewNopLogger())
	a.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return a
}

func threeMessages() []mailbox.ListItem {
	return []mailbox.ListItem{
		{ID: "msg_1", Sender: "a@test", Subject: "One"},
		{ID: "msg_2", Sender: "b@test", Subject: "Two"},
		{ID: "msg_3", Sender: "c@test", Subject: "Three"},
	}
}

func searchCall(args string) llm.ToolCall {
	return llm.ToolCall{ID: "1", Name: DefaultSearchToolName, Arguments: json.RawMessage(args)}
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		selector, def string
		want          string
		pinned        bool
	}{
		{selector: "groq", def: "gemini", want: "groq", pinned: true},
		{selector: "gemini", def: "groq", want: "gemini", pinned: true},
		{selector: "auto", def: "groq", want: "groq", pinned: false},
		{selector: "auto", def: "gemini", want: "gemini", pinned: false},
		{selector: "gpt-5", def: "", want: "gemini", pinned: false},
	}

	for _, tt := range tests {
		t.Run(tt.selector+"/"+tt.def, func(t *testing.T) {
			got, pinned := ResolveProvider(tt.selector, tt.def)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pinned, pinned)
		})
	}
}

func TestSearchSmalltalk(t *testing.T) {
	gemini := &scriptedClient{provider: "gemini", reply: `{"assistant_message":"Hello! How can I help with your mail?","ui_actions":[{"type":"CLEAR_AI_RESULTS","payload":{}}],"result_ids":[]}`}
	mail := &fakeMail{}
	a := newTestAgent(&fakeBuilder{clients: map[string]*scriptedClient{"gemini": gemini}}, mail, "gemini")

	resp, err := a.Search(context.Background(), ChatTurnContext{UserID: "u1", Message: "hi", ModelSelector: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help with your mail?", resp.AssistantMessage)
	assert.Equal(t, []UIAction{{Type: ActionClearAIResults, Payload: map[string]interface{}{}}}, resp.UIActions)
	assert.Empty(t, resp.Results)
	assert.Empty(t, mail.searches)
}

func TestSearchHallucinatedIDsFallBackToRegistry(t *testing.T) {
	gemini := &scriptedClient{
		provider: "gemini",
		calls:    []llm.ToolCall{searchCall(`{"query":"from:bank","top_k":500,"mailbox":"archive"}`)},
		reply:    "```json\n{\"assistant_message\":\"Here\",\"result_ids\":[\"msg_999\"]}\n```",
	}
	mail := &fakeMail{items: threeMessages()}
	a := newTestAgent(&fakeBuilder{clients: map[string]*scriptedClient{"gemini": gemini}}, mail, "gemini")

	resp, err := a.Search(context.Background(), ChatTurnContext{UserID: "u1", Message: "bank mails", ModelSelector: "auto"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "msg_1", resp.Results[0].ID)
	assert.Equal(t, []int{DefaultTopKMax}, mail.pageSizes)
	assert.Equal(t, []string{mailbox.Inbox}, mail.mailboxes)
	assert.Equal(t, Trace{ProviderUsed: "gemini", ToolsCalled: []string{DefaultSearchToolName}, CandidateCount: 3, FinalCount: 3}, resp.Trace)
}

func TestSearchPinnedProviderMissingCredential(t *testing.T) {
	cfgErr := &llm.ConfigurationError{Provider: "groq", Key: "GROQ_API_KEY"}
	b := &fakeBuilder{
		clients: map[string]*scriptedClient{"gemini": {provider: "gemini", reply: "{}"}},
		errs:    map[string]error{"groq": cfgErr},
	}
	a := newTestAgent(b, &fakeMail{}, "gemini")

	_, err := a.Search(context.Background(), ChatTurnContext{UserID: "u1", Message: "x", ModelSelector: "groq"})
	var got *llm.ConfigurationError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, []string{"groq"}, b.built)
}

func TestSearchPinnedProviderFailurePropagates(t *testing.T) {
	boom := errors.New("quota exceeded")
	b := &fakeBuilder{clients: map[string]*scriptedClient{
		"gemini": {provider: "gemini", err: boom},
		"groq":   {provider: "groq", reply: "{}"},
	}}
	a := newTestAgent(b, &fakeMail{}, "groq")

	_, err := a.Search(context.Background(), ChatTurnContext{UserID: "u1", Message: "x", ModelSelector: "gemini"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"gemini"}, b.built)
}

func TestSearchAutoFallsBackToOtherProvider(t *testing.T) {
	b := &fakeBuilder{clients: map[string]*scriptedClient{
		"gemini": {provider: "gemini", err: errors.New("503 from upstream")},
		"groq": {
			provider: "groq",
			calls:    []llm.ToolCall{searchCall(`{"query":"newer_than:7d"}`)},
			reply:    `{"assistant_message":"Last week","result_ids":["msg_2"]}`,
		},
	}}
	mail := &fakeMail{items: threeMessages()}
	a := newTestAgent(b, mail, "gemini")

	resp, err := a.Search(context.Background(), ChatTurnContext{UserID: "u1", Message: "last week", ModelSelector: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "groq", resp.Trace.ProviderUsed)
	assert.Equal(t, []string{"gemini", "groq"}, b.built)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "msg_2", resp.Results[0].ID)
	assert.Equal(t, []int{DefaultTopK}, mail.pageSizes)
}

func TestSearchBothProvidersFail(t *testing.T) {
	b := &fakeBuilder{clients: map[string]*scriptedClient{
		"gemini": {provider: "gemini", err: errors.New("gemini down: secret detail")},
		"groq":   {provider: "groq", err: errors.New("groq down")},
	}}
	a := newTestAgent(b, &fakeMail{}, "groq")

	_, err := a.Search(context.Background(), ChatTurnContext{UserID: "u1", Message: "x"})
	assert.Equal(t, ErrSearchFailed, err)
	assert.Equal(t, "AI search failed", err.Error())
	assert.Equal(t, []string{"groq", "gemini"}, b.built)
}

func TestSearchToolErrorTriggersFallback(t *testing.T) {
	mailErr := &mailbox.UpstreamError{Op: "search messages", StatusCode: 500, Message: "backend"}
	b := &fakeBuilder{clients: map[string]*scriptedClient{
		"gemini": {provider: "gemini", calls: []llm.ToolCall{searchCall(`{"query":"x"}`)}},
		"groq":   {provider: "groq", reply: `{"assistant_message":"ok"}`},
	}}
	a := newTestAgent(b, &fakeMail{err: mailErr}, "gemini")

	resp, err := a.Search(context.Background(), ChatTurnContext{UserID: "u1", Message: "x"})
	require.NoError(t, err)
	assert.Equal(t, "groq", resp.Trace.ProviderUsed)
	assert.Empty(t, resp.Trace.ToolsCalled)
}

func TestSearchUserTurnCarriesContext(t *testing.T) {
	gemini := &scriptedClient{provider: "gemini", reply: "{}"}
	a := newTestAgent(&fakeBuilder{clients: map[string]*scriptedClient{"gemini": gemini}}, &fakeMail{}, "gemini")
	selected := "msg_7"
	tz := "Asia/Jakarta"

	_, err := a.Search(context.Background(), ChatTurnContext{
		UserID:  "u1",
		Message: "summarize this",
		Memory:  []llm.MemoryMessage{{Role: "user", Content: "earlier"}},
		UI:      UIContext{ActiveMailbox: "inbox", SelectedMailID: &selected, Timezone: &tz},
	})
	require.NoError(t, err)
	require.Len(t, gemini.turns, 2)
	assert.Equal(t, llm.RoleSystem, gemini.turns[0].Role)

	user := gemini.turns[1].Content.(string)
	assert.True(t, strings.HasPrefix(user, "User query: summarize this\n"))
	assert.Contains(t, user, `Conversation history JSON: [{"role":"user","content":"earlier"}]`)
	assert.Contains(t, user, `"selectedMailId":"msg_7"`)
	assert.Contains(t, user, `"currentFilters":{}`)
	assert.Contains(t, user, "Tuesday, 10 Mar 2026 16:00")
}

func TestSearchWithoutLoggerAndQuotedTopK(t *testing.T) {
	groq := &scriptedClient{
		provider: "groq",
		calls:    []llm.ToolCall{searchCall(`{"query":"from:bob","top_k":"2"}`)},
		reply:    `{"assistant_message":"Two from Bob","result_ids":["msg_1","msg_2"]}`,
	}
	mail := &fakeMail{items: threeMessages()[:2]}
	a := NewAgent(&fakeBuilder{clients: map[string]*scriptedClient{"groq": groq}}, mail, Config{}, nil)

	var resp *ChatResponse
	require.NotPanics(t, func() {
		var err error
		resp, err = a.Search(context.Background(), ChatTurnContext{UserID: "u1", Message: "bob", ModelSelector: "groq"})
		require.NoError(t, err)
	})
	assert.Equal(t, []int{2}, mail.pageSizes)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, "groq", resp.Trace.ProviderUsed)
}
