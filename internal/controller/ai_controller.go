package controller

import (
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/internal/service"
	"ai-mail-workspace-be/pkg/chatstream"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type IAIController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Chat(ctx *fiber.Ctx) error
	ConversationMessages(ctx *fiber.Ctx) error
}

type aiController struct {
	service  service.IAIChatService
	validate *validator.Validate
}

func NewAIController(service service.IAIChatService) IAIController {
	return &aiController{service: service, validate: validator.New()}
}

func (c *aiController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/ai", auth)
	h.Post("/chat", c.Chat)
	h.Get("/conversations/:id/messages", c.ConversationMessages)
}

// chatRequest is the REST body; it shares the websocket payload shape
// without the chat id.
type chatRequest struct {
	Message        *string                   `json:"message" validate:"required"`
	Model          string                    `json:"model" validate:"omitempty,oneof=auto gemini groq"`
	ConversationID *string                   `json:"conversationId"`
	Context        chatstream.RequestContext `json:"context"`
}

func (c *aiController) Chat(ctx *fiber.Ctx) error {
	var body chatRequest
	if err := ctx.BodyParser(&body); err != nil {
		return serverutils.ErrBadRequest("Invalid request body")
	}
	if err := c.validate.Struct(body); err != nil {
		return serverutils.ErrBadRequest("Invalid chat request payload")
	}

	in := chatstream.Request{
		Message:        body.Message,
		Model:          body.Model,
		ConversationID: body.ConversationID,
		Context:        body.Context,
	}.ToInput()
	if in.Message == "" {
		return serverutils.ErrBadRequest("Message cannot be empty")
	}

	out, err := c.service.Chat(ctx.UserContext(), userIDFrom(ctx), in)
	if err != nil {
		return err
	}
	return ctx.JSON(out)
}

func (c *aiController) ConversationMessages(ctx *fiber.Ctx) error {
	res, err := c.service.GetConversationMessages(ctx.UserContext(), userIDFrom(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
