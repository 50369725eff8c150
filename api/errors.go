package api

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/meh/pkg/service"
	"github.com/papercomputeco/meh/pkg/storage"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.IsAny(err, storage.ErrInvalidPath, storage.ErrInvalidArgument, service.ErrUnknownPolicy):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrWriteDenied):
		return fiber.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case errors.IsAny(err, service.ErrAmbiguousRef, service.ErrNotActive):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders errors returned by handlers. Server errors are
// logged and their detail withheld from the client.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)
		resp := ErrorResponse{
			Error: err.Error(),
			Hint:  errors.FlattenHints(err),
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
			resp = ErrorResponse{Error: "internal error"}
		}

		return c.Status(code).JSON(resp)
	}
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}
