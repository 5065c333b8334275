package chatstream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/mailbox"
	"ai-mail-workspace-be/pkg/searchagent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
	failOn string
}

func (r *recorder) Send(_ context.Context, ev Event) error {
	if r.failOn != "" && ev.Type == r.failOn {
		return errors.New("connection reset")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// decoded re-reads an event the way a browser client would see it.
func decoded(t *testing.T, ev Event) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type fakeRunner struct {
	out    *Output
	err    error
	inputs []Input
}

func (f *fakeRunner) Chat(_ context.Context, _ string, in Input) (*Output, error) {
	f.inputs = append(f.inputs, in)
	return f.out, f.err
}

func newSession(r Runner, rec *recorder) *Session {
	s := NewSession(r, rec, logger.NewNopLogger())
	s.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func lastWeekOutput() *Output {
	results := []mailbox.ListItem{
		{ID: "msg_1", Sender: "a@test", Subject: "Standup notes"},
		{ID: "msg_2", Sender: "b@test", Subject: "Invoice"},
	}
	return &Output{
		ConversationID: "0b3d3c36-8f55-4f40-9a55-0b8f3f1e2a11",
		ChatResponse: searchagent.ChatResponse{
			AssistantMessage: "I found two emails from last week for you.",
			UIActions: []searchagent.UIAction{
				{Type: searchagent.ActionApplyFilters, Payload: map[string]interface{}{"newer_than": "7d"}},
				{Type: searchagent.ActionShowSearchResults, Payload: map[string]interface{}{"result_ids": []string{"msg_1", "msg_2"}}},
			},
			Results: results,
			Trace:   searchagent.Trace{ProviderUsed: "gemini", ToolsCalled: []string{"search_candidates"}, CandidateCount: 2, FinalCount: 2},
		},
	}
}

func TestHandleChatRequestEventOrder(t *testing.T) {
	rec := &recorder{}
	runner := &fakeRunner{out: lastWeekOutput()}
	s := newSession(runner, rec)

	s.HandleChatRequest(context.Background(), "u1", json.RawMessage(`{
		"chatId":"c1","message":"  show me emails from last week ","model":"auto",
		"context":{"activeMailbox":"inbox","currentFilters":{}}
	}`))

	assert.Equal(t, []string{
		EventChatStart,
		EventChatDelta, EventChatDelta, EventChatDelta,
		EventChatAction, EventChatAction,
		EventChatCompleted,
	}, rec.types())

	require.Len(t, runner.inputs, 1)
	assert.Equal(t, "show me emails from last week", runner.inputs[0].Message)
	assert.Equal(t, "auto", runner.inputs[0].Model)

	start := decoded(t, rec.events[0])
	assert.Equal(t, "c1-start", start["eventId"])
	assert.Equal(t, map[string]interface{}{"chatId": "c1", "userMessage": "show me emails from last week", "model": "auto"}, start["payload"])

	var text string
	for _, ev := range rec.events[1:4] {
		assert.Regexp(t, `^c1-delta-\d+\.\d+$`, ev.EventID)
		text += ev.Payload.(deltaPayload).Delta
	}
	assert.Equal(t, "I found two emails from last week for you.", text)

	completed := decoded(t, rec.events[6])
	assert.Equal(t, "c1-completed", completed["eventId"])
	final := completed["payload"].(map[string]interface{})
	assert.Equal(t, "c1", final["chatId"])
	assert.Equal(t, "0b3d3c36-8f55-4f40-9a55-0b8f3f1e2a11", final["conversationId"])
	assert.Equal(t, "I found two emails from last week for you.", final["assistantMessage"])
	assert.Contains(t, final, "trace")

	for _, ev := range rec.events[4:6] {
		action := decoded(t, ev)
		assert.Regexp(t, `^c1-action-`, action["eventId"])
		assert.Equal(t, final["results"], action["payload"].(map[string]interface{})["results"])
	}
}

func TestHandleChatRequestInvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `"hello"`},
		{name: "missing chat id", payload: `{"message":"hi"}`},
		{name: "missing message", payload: `{"chatId":"c1"}`},
		{name: "message wrong type", payload: `{"chatId":"c1","message":42}`},
		{name: "unknown model", payload: `{"chatId":"c1","message":"hi","model":"gpt"}`},
		{name: "unknown mailbox", payload: `{"chatId":"c1","message":"hi","context":{"activeMailbox":"trash"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			runner := &fakeRunner{out: lastWeekOutput()}
			newSession(runner, rec).HandleChatRequest(context.Background(), "u1", json.RawMessage(tt.payload))

			require.Len(t, rec.events, 1)
			ev := decoded(t, rec.events[0])
			assert.Equal(t, EventChatError, ev["type"])
			assert.Equal(t, "chat-error", ev["eventId"])
			assert.Equal(t, map[string]interface{}{"chatId": nil, "message": "Invalid chat request payload"}, ev["payload"])
			assert.Empty(t, runner.inputs)
		})
	}
}

func TestHandleChatRequestEmptyMessage(t *testing.T) {
	rec := &recorder{}
	runner := &fakeRunner{out: lastWeekOutput()}
	newSession(runner, rec).HandleChatRequest(context.Background(), "u1", json.RawMessage(`{"chatId":"c9","message":"   "}`))

	require.Len(t, rec.events, 1)
	ev := decoded(t, rec.events[0])
	assert.Equal(t, "c9-error", ev["eventId"])
	assert.Equal(t, map[string]interface{}{"chatId": "c9", "message": "Message cannot be empty"}, ev["payload"])
	assert.Empty(t, runner.inputs)
}

func TestHandleChatRequestRunnerFailure(t *testing.T) {
	rec := &recorder{}
	runner := &fakeRunner{err: searchagent.ErrSearchFailed}
	newSession(runner, rec).HandleChatRequest(context.Background(), "u1", json.RawMessage(`{"chatId":"c2","message":"find invoices"}`))

	assert.Equal(t, []string{EventChatStart, EventChatError}, rec.types())
	ev := decoded(t, rec.events[1])
	assert.Equal(t, "c2-error", ev["eventId"])
	assert.Equal(t, map[string]interface{}{"chatId": "c2", "message": "AI chat failed"}, ev["payload"])
}

type panickingRunner struct{}

func (panickingRunner) Chat(context.Context, string, Input) (*Output, error) {
	var adapters map[string]int
	adapters["search"]++
	return nil, nil
}

func TestHandleChatRequestRunnerPanic(t *testing.T) {
	rec := &recorder{}
	s := newSession(panickingRunner{}, rec)

	require.NotPanics(t, func() {
		s.HandleChatRequest(context.Background(), "u1", json.RawMessage(`{"chatId":"c9","message":"find invoices"}`))
	})
	assert.Equal(t, []string{EventChatStart, EventChatError}, rec.types())
	ev := decoded(t, rec.events[1])
	assert.Equal(t, map[string]interface{}{"chatId": "c9", "message": "AI chat failed"}, ev["payload"])

	// the session keeps serving later requests
	s.runner = &fakeRunner{out: lastWeekOutput()}
	s.HandleChatRequest(context.Background(), "u1", json.RawMessage(`{"chatId":"c10","message":"again"}`))
	assert.Equal(t, EventChatCompleted, rec.events[len(rec.events)-1].Type)
}

func TestNewSessionNilLogger(t *testing.T) {
	rec := &recorder{}
	s := NewSession(&fakeRunner{err: errors.New("boom")}, rec, nil)

	require.NotPanics(t, func() {
		s.HandleChatRequest(context.Background(), "u1", json.RawMessage(`{"chatId":"c11","message":"hi"}`))
		s.HandleChatRequest(context.Background(), "u1", json.RawMessage(`{}`))
	})
	assert.Equal(t, []string{EventChatStart, EventChatError, EventChatError}, rec.types())
}

func TestHandleChatRequestSendFailures(t *testing.T) {
	t.Run("failed delta degrades to error", func(t *testing.T) {
		rec := &recorder{failOn: EventChatDelta}
		newSession(&fakeRunner{out: lastWeekOutput()}, rec).HandleChatRequest(context.Background(), "u1", json.RawMessage(`{"chatId":"c3","message":"hi"}`))
		assert.Equal(t, []string{EventChatStart, EventChatError}, rec.types())
	})

	t.Run("failed error emission is swallowed", func(t *testing.T) {
		rec := &recorder{failOn: EventChatError}
		assert.NotPanics(t, func() {
			newSession(&fakeRunner{err: errors.New("boom")}, rec).HandleChatRequest(context.Background(), "u1", json.RawMessage(`{"chatId":"c4","message":"hi"}`))
		})
		assert.Equal(t, []string{EventChatStart}, rec.types())
	})
}

func TestHandleChatRequestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	newSession(&fakeRunner{err: context.Canceled}, rec).HandleChatRequest(ctx, "u1", json.RawMessage(`{"chatId":"c5","message":"hi"}`))
	assert.Equal(t, []string{EventChatStart}, rec.types())
}

func TestHandleChatRequestDefaults(t *testing.T) {
	rec := &recorder{}
	runner := &fakeRunner{out: &Output{ChatResponse: searchagent.ChatResponse{
		UIActions: []searchagent.UIAction{{Type: searchagent.ActionClearAIResults, Payload: map[string]interface{}{}}},
	}}}
	newSession(runner, rec).HandleChatRequest(context.Background(), "u1", json.RawMessage(`{"chatId":"c6","message":"hi"}`))

	require.Len(t, runner.inputs, 1)
	in := runner.inputs[0]
	assert.Equal(t, "auto", in.Model)
	assert.Equal(t, mailbox.Inbox, in.UI.ActiveMailbox)
	assert.Equal(t, map[string]interface{}{}, in.UI.CurrentFilters)

	assert.Equal(t, []string{EventChatStart, EventChatDelta, EventChatAction, EventChatCompleted}, rec.types())
	assert.Equal(t, "", rec.events[1].Payload.(deltaPayload).Delta)
	action := decoded(t, rec.events[2])
	assert.Equal(t, []interface{}{}, action["payload"].(map[string]interface{})["results"])
}

func TestChunkMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: []string{""}},
		{name: "whitespace only", in: "   ", want: []string{"   "}},
		{name: "single group", in: "one two three", want: []string{"one two three"}},
		{name: "exact group", in: "a b c d", want: []string{"a b c d"}},
		{name: "nine words", in: "a b c d e f g h i", want: []string{"a b c d ", "e f g h ", "i"}},
		{name: "collapses spacing", in: " a\tb\n c  d e ", want: []string{"a b c d ", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkMessage(tt.in))
		})
	}
}
