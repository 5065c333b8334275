package controller

import (
	"ai-mail-workspace-be/internal/dto"
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/internal/service"
	"ai-mail-workspace-be/pkg/mailbox"

	"github.com/gofiber/fiber/v2"
)

type IMailController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Inbox(ctx *fiber.Ctx) error
	Sent(ctx *fiber.Ctx) error
	Detail(ctx *fiber.Ctx) error
	MarkRead(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
}

type mailController struct {
	service service.IMailService
}

func NewMailController(service service.IMailService) IMailController {
	return &mailController{service: service}
}

func (c *mailController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/mail", auth)
	h.Get("/inbox", c.Inbox)
	h.Get("/sent", c.Sent)
	h.Post("/send", c.Send)
	h.Get("/:id", c.Detail)
	h.Post("/:id/read", c.MarkRead)
}

func (c *mailController) Inbox(ctx *fiber.Ctx) error {
	return c.list(ctx, mailbox.Inbox)
}

func (c *mailController) Sent(ctx *fiber.Ctx) error {
	return c.list(ctx, mailbox.Sent)
}

func (c *mailController) list(ctx *fiber.Ctx, mailboxName string) error {
	req := dto.ListMailRequest{PageSize: service.DefaultMailPageSize}
	if err := ctx.QueryParser(&req); err != nil {
		return serverutils.ErrBadRequest("Invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	page, err := c.service.ListMailbox(ctx.UserContext(), userIDFrom(ctx), mailboxName, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(page)
}

func (c *mailController) Detail(ctx *fiber.Ctx) error {
	detail, err := c.service.GetDetail(ctx.UserContext(), userIDFrom(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(detail)
}

func (c *mailController) MarkRead(ctx *fiber.Ctx) error {
	state, err := c.service.MarkRead(ctx.UserContext(), userIDFrom(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(state)
}

func (c *mailController) Send(ctx *fiber.Ctx) error {
	var req dto.SendMailRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.ErrBadRequest("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Send(ctx.UserContext(), userIDFrom(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func userIDFrom(ctx *fiber.Ctx) string {
	userID, _ := ctx.Locals(serverutils.LocalsUserID).(string)
	return userID
}
