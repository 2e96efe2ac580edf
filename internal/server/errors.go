package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sant0-9/surasura/internal/errors"
)

var validate = validator.New()

// validateRequest checks validator tags and reports failures as
// ErrInvalidRequest.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.Mark(errors.Newf("field %s failed %q", fe.Field(), fe.Tag()), errors.ErrInvalidRequest)
	}
	return errors.Mark(err, errors.ErrInvalidRequest)
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.IsInputError(err):
		return fiber.StatusBadRequest
	case errors.IsAny(err, errors.ErrNotAnalyzed, errors.ErrAlreadyAnalyzed):
		return fiber.StatusConflict
	case errors.Is(err, errors.ErrCompletionFailed):
		return fiber.StatusBadGateway
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler maps error kinds to status codes and writes {"error": ...}.
func errorHandler(logger *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)
		msg := errors.Message(err)
		if code >= fiber.StatusInternalServerError {
			logger.Errorw("Request failed", "path", c.Path(), "status", code, "error", err)
			if code == fiber.StatusInternalServerError {
				msg = "internal error"
			}
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
