package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ai-mail-workspace-be/internal/dto"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/chatstream"
	"ai-mail-workspace-be/pkg/llm"
	"ai-mail-workspace-be/pkg/mailbox"
	"ai-mail-workspace-be/pkg/searchagent"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	turns []searchagent.ChatTurnContext
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, turn searchagent.ChatTurnContext) (*searchagent.ChatResponse, error) {
	f.turns = append(f.turns, turn)
	if f.err != nil {
		return nil, f.err
	}
	return &searchagent.ChatResponse{
		AssistantMessage: "Found one: " + turn.Message,
		UIActions: []searchagent.UIAction{
			{Type: "SHOW_SEARCH_RESULTS", Payload: map[string]interface{}{"result_ids": []string{"m1"}}},
		},
		Results: []mailbox.ListItem{{ID: "m1"}},
		Trace:   searchagent.Trace{ProviderUsed: "gemini", ToolsCalled: []string{"search_candidates"}, CandidateCount: 3, FinalCount: 1},
	}, nil
}

type recordingPublisher struct {
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return p.err
}

func chatInput(message string, conversationID *string) chatstream.Input {
	return chatstream.Request{ChatID: "c1", Message: &message, ConversationID: conversationID}.ToInput()
}

func TestChatRecordsTurnsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	searcher := &fakeSearcher{}
	publisher := &recordingPublisher{}
	svc := NewAIChatService(searcher, newTestMemoryService(store), publisher, 0, logger.NewNopLogger())
	userID := uuid.New()

	first, err := svc.Chat(ctx, userID.String(), chatInput("invoices", nil))
	require.NoError(t, err)
	assert.Equal(t, "Found one: invoices", first.AssistantMessage)
	require.NotEmpty(t, first.ConversationID)
	assert.Empty(t, searcher.turns[0].Memory)
	assert.Equal(t, "auto", searcher.turns[0].ModelSelector)
	assert.Equal(t, "inbox", searcher.turns[0].UI.ActiveMailbox)

	second, err := svc.Chat(ctx, userID.String(), chatInput("only unread", &first.ConversationID))
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, []llm.MemoryMessage{
		{Role: RoleUser, Content: "invoices"},
		{Role: RoleAssistant, Content: "Found one: invoices"},
	}, searcher.turns[1].Memory)

	require.Len(t, store.messages, 4)
	assert.JSONEq(t,
		`{"items":[{"type":"SHOW_SEARCH_RESULTS","payload":{"result_ids":["m1"]}}]}`,
		string(store.messages[1].UIActions))
	assert.Nil(t, store.messages[0].UIActions)

	require.Len(t, publisher.payloads, 2)
	var event dto.ChatCompletedMessage
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, first.ConversationID, event.ConversationID.String())
	assert.Equal(t, "gemini", event.ProviderUsed)
	assert.Equal(t, 1, event.FinalCount)
}

func TestChatFailureKeepsHistoryClean(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	searcher := &fakeSearcher{err: searchagent.ErrSearchFailed}
	publisher := &recordingPublisher{}
	svc := NewAIChatService(searcher, newTestMemoryService(store), publisher, 0, logger.NewNopLogger())

	_, err := svc.Chat(ctx, uuid.NewString(), chatInput("anything", nil))
	assert.ErrorIs(t, err, searchagent.ErrSearchFailed)
	assert.Empty(t, store.messages)
	assert.Empty(t, publisher.payloads)
}

func TestChatPublishFailureIsIgnored(t *testing.T) {
	store := newMemStore()
	publisher := &recordingPublisher{err: errors.New("bus closed")}
	svc := NewAIChatService(&fakeSearcher{}, newTestMemoryService(store), publisher, 0, logger.NewNopLogger())

	out, err := svc.Chat(context.Background(), uuid.NewString(), chatInput("hello", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, out.ConversationID)
	assert.Len(t, store.messages, 2)
}

func TestChatRejectsUnknownUser(t *testing.T) {
	svc := NewAIChatService(&fakeSearcher{}, newTestMemoryService(newMemStore()), nil, 0, logger.NewNopLogger())
	_, err := svc.Chat(context.Background(), "not-a-uuid", chatInput("hello", nil))
	assert.Equal(t, 401, appErrCode(t, err))
}

func TestGetConversationMessages(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewAIChatService(&fakeSearcher{}, newTestMemoryService(store), nil, 0, logger.NewNopLogger())
	userID := uuid.NewString()

	out, err := svc.Chat(ctx, userID, chatInput("receipts", nil))
	require.NoError(t, err)

	res, err := svc.GetConversationMessages(ctx, userID, out.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, out.ConversationID, res.ConversationID.String())
	require.Len(t, res.Messages, 2)
	assert.Equal(t, RoleUser, res.Messages[0].Role)
	assert.Equal(t, RoleAssistant, res.Messages[1].Role)
	assert.NotEmpty(t, res.Messages[1].Trace)

	_, err = svc.GetConversationMessages(ctx, uuid.NewString(), out.ConversationID)
	assert.Equal(t, 404, appErrCode(t, err))
}
