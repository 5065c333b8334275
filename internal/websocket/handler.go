package websocket

import (
	"context"

	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/pkg/chatstream"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs an authenticated connection until the peer goes away: it
// registers the client, greets it with system.ready and streams chat runs
// back on the same socket.
func ServeWs(hub *Hub, c *websocket.Conn, userID string, runner chatstream.Runner, log logger.ILogger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newClient(hub, c, userID)
	session := chatstream.NewSession(runner, client, log)
	if !client.Hub.Register(client) {
		log.Warn("WS", "Hub stopped, refusing connection", map[string]interface{}{"user_id": userID})
		c.Close()
		return
	}

	go client.writePump()
	go client.chatWorker(ctx, session)

	if err := client.Send(ctx, chatstream.ReadyEvent()); err != nil {
		log.Warn("WS", "Failed to send ready event", map[string]interface{}{"user_id": userID, "error": err.Error()})
	}

	client.readPump(ctx)
}
