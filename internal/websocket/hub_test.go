package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/chatstream"
	"ai-mail-workspace-be/pkg/mailbox"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFrame(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.send:
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func registered(h *Hub, c *Client) {
	h.register <- c
}

func TestHubDeliversMailUpdatedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA := NewHub(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.NewNopLogger())
	hubB := NewHub(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.NewNopLogger())
	go hubA.Run(ctx)
	go hubB.Run(ctx)

	local := newClient(hubA, nil, "u1")
	remote := newClient(hubB, nil, "u1")
	other := newClient(hubB, nil, "u2")
	registered(hubA, local)
	registered(hubB, remote)
	registered(hubB, other)

	require.Eventually(t, func() bool {
		return hubA.ConnectedClients("u1") == 1 && hubB.ConnectedClients("u1") == 1 &&
			mr.PubSubNumSub(ClusterChannel)[ClusterChannel] == 2
	}, 2*time.Second, 10*time.Millisecond)

	hubA.NotifyMailUpdated("u1", mailbox.ReadState{OK: true, ID: "msg_1", Unread: false})

	for _, c := range []*Client{local, remote} {
		frame := readFrame(t, c)
		assert.Equal(t, chatstream.EventMailUpdated, frame["type"])
		assert.Equal(t, map[string]interface{}{"ok": true, "id": "msg_1", "unread": false}, frame["payload"])
	}

	// The origin instance must not deliver its own redis echo a second time.
	select {
	case <-local.send:
		t.Fatal("duplicate frame on origin instance")
	case <-other.send:
		t.Fatal("frame delivered to another user")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHubUnregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	c := newClient(hub, nil, "u1")
	registered(hub, c)
	require.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 1 }, time.Second, 10*time.Millisecond)

	hub.unregister <- c
	require.Eventually(t, func() bool { return hub.ConnectedClients("u1") == 0 }, time.Second, 10*time.Millisecond)

	c.close()
	assert.False(t, c.enqueue([]byte(`{}`)))
	assert.ErrorIs(t, c.Send(ctx, chatstream.ReadyEvent()), errClientClosed)
}

func TestClientDispatch(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	ctx := context.Background()

	tests := []struct {
		name  string
		frame string
	}{
		{name: "not json", frame: `hello`},
		{name: "unknown type", frame: `{"type":"ping"}`},
		{name: "missing type", frame: `{"payload":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(hub, nil, "u1")
			c.dispatch(ctx, []byte(tt.frame))

			frame := readFrame(t, c)
			assert.Equal(t, chatstream.EventChatError, frame["type"])
			assert.Equal(t, "chat-invalid-event", frame["eventId"])
			assert.Equal(t, "", frame["ts"])
			assert.Equal(t, map[string]interface{}{"chatId": nil, "message": "Invalid websocket chat event"}, frame["payload"])
			assert.Empty(t, c.chats)
		})
	}

	t.Run("chat request is queued", func(t *testing.T) {
		c := newClient(hub, nil, "u1")
		c.dispatch(ctx, []byte(`{"type":"chat_request","payload":{"chatId":"c1","message":"hi"}}`))

		require.Len(t, c.chats, 1)
		assert.JSONEq(t, `{"chatId":"c1","message":"hi"}`, string(<-c.chats))
		assert.Empty(t, c.send)
	})
}

func TestHubStoppedDoesNotBlockClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, logger.NewNopLogger())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := newClient(hub, nil, "u1")
	require.True(t, hub.Register(c))
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	returned := make(chan bool, 1)
	go func() {
		hub.Unregister(c)
		returned <- hub.Register(newClient(hub, nil, "u2"))
	}()

	select {
	case ok := <-returned:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("unregister blocked after hub shutdown")
	}
}
