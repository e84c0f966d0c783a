package serverutils

import (
	"errors"

	"scanguard-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// ErrorHandlerMiddleware maps the engine's error taxonomy onto HTTP codes.
// Quota denials never reach here: they are values, not errors.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var authErr *entity.AuthenticationError
		var valErr *entity.ValidationError
		var storageErr *entity.TransientStorageError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &authErr):
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, authErr.Error()))
		case errors.As(err, &valErr):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, valErr.Error()))
		case errors.As(err, &storageErr):
			// Retryable: the caller (or the provider) is expected to retry.
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse(fiber.StatusServiceUnavailable, "temporarily unavailable, retry"))
		case errors.As(err, &fiberErr):
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
	}
}
