package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/cloudapi"
	"github.com/matheus3301/wpp-inbox/internal/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func logRequests(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = statusFor(err)
			}
		}
		logger.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)),
			zap.Any("request_id", c.Locals("requestid")),
		)
		return err
	}
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(errorBody{Error: err.Error()})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, backend.ErrNotReady):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, backend.ErrUnsupported):
		return fiber.StatusNotImplemented
	case errors.Is(err, cloudapi.ErrBadSignature):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
