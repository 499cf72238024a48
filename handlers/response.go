package handlers

import (
	"context"
	"errors"

	"mock-assessment-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func okMessage(c *fiber.Ctx, msg string, data any) error {
	body := fiber.Map{"success": true, "message": msg}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(body)
}

func fail(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   fiber.Map{"code": code, "message": msg},
	})
}

// respondError maps service errors onto the envelope. Anything unrecognised is
// logged and reported without detail.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var (
		verr  *services.ValidationError
		coded *services.CodedError
	)
	switch {
	case errors.Is(err, errInvalidJSON):
		return fail(c, fiber.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body")
	case errors.As(err, &verr):
		return fail(c, fiber.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
	case errors.Is(err, services.ErrStorageDisabled):
		return fail(c, fiber.StatusServiceUnavailable, "STORAGE_DISABLED", "Object storage is not configured")
	case errors.As(err, &coded) && errors.Is(err, services.ErrNotFound):
		return fail(c, fiber.StatusNotFound, coded.Code, coded.Message)
	case errors.As(err, &coded) && errors.Is(err, services.ErrConflict):
		return fail(c, fiber.StatusConflict, coded.Code, coded.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return fail(c, fiber.StatusGatewayTimeout, "TIMEOUT", "The request timed out")
	}

	action, _ := c.Locals(ActionLocal).(string)
	h.Log.Error("action failed", zap.String("action", action), zap.Error(err))
	return fail(c, fiber.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An error occurred")
}

// ErrorHandler is the fiber.Config ErrorHandler: errors escaping handlers and
// middleware (routing misses, recovered panics) still get the envelope.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := "INTERNAL_SERVER_ERROR"
			switch fe.Code {
			case fiber.StatusNotFound:
				code = "NOT_FOUND"
			case fiber.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			case fiber.StatusUnauthorized:
				code = "UNAUTHORIZED"
			case fiber.StatusRequestEntityTooLarge:
				code = "PAYLOAD_TOO_LARGE"
			}
			return fail(c, fe.Code, code, fe.Message)
		}
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An error occurred")
	}
}

// SetupHealthRoutes mounts liveness, unauthenticated.
func SetupHealthRoutes(router fiber.Router) {
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
