package serverutils

import (
	"errors"

	"ai-mail-workspace-be/pkg/llm"
	"ai-mail-workspace-be/pkg/mailbox"
	"ai-mail-workspace-be/pkg/searchagent"

	"github.com/gofiber/fiber/v2"
)

// AppError is an error with a caller-facing status and message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ErrBadRequest(message string) *AppError {
	return &AppError{Code: fiber.StatusBadRequest, Message: message}
}

func ErrUnauthorized(message string) *AppError {
	return &AppError{Code: fiber.StatusUnauthorized, Message: message}
}

func ErrNotFound(message string) *AppError {
	return &AppError{Code: fiber.StatusNotFound, Message: message}
}

func ErrInternal(message string, err error) *AppError {
	return &AppError{Code: fiber.StatusInternalServerError, Message: message, Err: err}
}

// StatusFor maps an error returned by a handler to the status code and
// message shown to the caller. Unknown errors never leak their text.
func StatusFor(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var cfgErr *llm.ConfigurationError
	if errors.As(err, &cfgErr) {
		return fiber.StatusInternalServerError, cfgErr.Error()
	}

	var upstreamErr *mailbox.UpstreamError
	if errors.As(err, &upstreamErr) {
		return fiber.StatusBadGateway, upstreamErr.Message
	}

	var providerErr *llm.ProviderError
	if errors.As(err, &providerErr) {
		return fiber.StatusBadGateway, "AI provider request failed"
	}

	if errors.Is(err, searchagent.ErrSearchFailed) {
		return fiber.StatusInternalServerError, searchagent.ErrSearchFailed.Error()
	}

	return fiber.StatusInternalServerError, "Internal server error"
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		code, message := StatusFor(err)
		return c.Status(code).JSON(ErrorResponse(code, message))
	}
}
