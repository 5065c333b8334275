package controller

import (
	"ai-mail-workspace-be/internal/dto"
	"ai-mail-workspace-be/internal/pkg/serverutils"
	"ai-mail-workspace-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GoogleStart(ctx *fiber.Ctx) error
	GoogleCallback(ctx *fiber.Ctx) error
	Me(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
}

func NewAuthController(service service.IAuthService) IAuthController {
	return &authController{service: service}
}

func (c *authController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/auth")
	h.Get("/google/start", c.GoogleStart)
	h.Post("/google/callback", c.GoogleCallback)
	h.Get("/me", auth, c.Me)
	h.Post("/logout", auth, c.Logout)
}

func (c *authController) GoogleStart(ctx *fiber.Ctx) error {
	res, err := c.service.GoogleStart()
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *authController) GoogleCallback(ctx *fiber.Ctx) error {
	var req dto.GoogleCallbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.ErrBadRequest("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.UserAgent == nil {
		ua := ctx.Get(fiber.HeaderUserAgent)
		req.UserAgent = &ua
	}
	if req.IPAddress == nil {
		ip := ctx.IP()
		req.IPAddress = &ip
	}

	res, err := c.service.GoogleCallback(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals(serverutils.LocalsUserID).(string)
	user, err := c.service.GetCurrentUser(ctx.UserContext(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(dto.MeResponse{Authenticated: true, User: *user})
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals(serverutils.LocalsUserID).(string)
	if err := c.service.Logout(ctx.UserContext(), userID); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"ok": true})
}
