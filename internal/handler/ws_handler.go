package handler

import (
	"ai-mail-workspace-be/internal/dto"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/internal/pkg/wsticket"
	internalWS "ai-mail-workspace-be/internal/websocket"
	"ai-mail-workspace-be/pkg/chatstream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	closeUnauthorized = 4401

	msgMissingWsToken = "Missing websocket token"
)

type WsHandler struct {
	hub           *internalWS.Hub
	tickets       *wsticket.Issuer
	runner        chatstream.Runner
	sessionSecret string
	logger        logger.ILogger
}

func NewWsHandler(hub *internalWS.Hub, tickets *wsticket.Issuer, runner chatstream.Runner, sessionSecret string, log logger.ILogger) *WsHandler {
	return &WsHandler{
		hub:           hub,
		tickets:       tickets,
		runner:        runner,
		sessionSecret: sessionSecret,
		logger:        log,
	}
}

// IssueToken hands the signed-in caller a short-lived websocket ticket.
func (h *WsHandler) IssueToken(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals(serverutils.LocalsUserID).(string)
	sessionToken, _ := ctx.Locals(serverutils.LocalsSessionToken).(string)

	token, err := h.tickets.Issue(userID, sessionToken)
	if err != nil {
		return serverutils.ErrInternal("Failed to issue websocket token", err)
	}
	return ctx.JSON(dto.WsTokenResponse{Token: token})
}

// authenticate resolves the user behind a ticket. The session the ticket was
// issued for must still be valid and belong to the same user.
func (h *WsHandler) authenticate(ticket string) (string, error) {
	claims, err := h.tickets.Verify(ticket)
	if err != nil {
		return "", err
	}
	userID, err := serverutils.ParseSessionToken(h.sessionSecret, claims.SessionToken)
	if err != nil || userID != claims.UserID {
		return "", wsticket.ErrInvalidTicket
	}
	return userID, nil
}

// ServeWs upgrades /ws/events. Authentication failures are reported with a
// 4401 close frame after the upgrade so browsers can read the reason.
func (h *WsHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	ticket := c.Query("token")

	return websocket.New(func(conn *websocket.Conn) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("WS", "WebSocket session crashed", map[string]interface{}{"panic": r})
				closeWith(conn, websocket.CloseInternalServerErr, "Internal server error")
			}
		}()

		if ticket == "" {
			closeWith(conn, closeUnauthorized, msgMissingWsToken)
			return
		}
		userID, err := h.authenticate(ticket)
		if err != nil {
			h.logger.Warn("WS", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
			closeWith(conn, closeUnauthorized, "Unauthorized")
			return
		}

		h.logger.Info("WS", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID, h.runner, h.logger)
		h.logger.Info("WS", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = conn.Close()
}
