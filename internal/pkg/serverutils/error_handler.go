package serverutils

import (
	"errors"

	"companion-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors returned by handlers into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

// FiberErrorHandler is installed as fiber.Config.ErrorHandler for errors raised outside the middleware chain.
func FiberErrorHandler(ctx *fiber.Ctx, err error) error {
	return WriteError(ctx, err)
}

func WriteError(ctx *fiber.Ctx, err error) error {
	var appErr *apperror.Error
	var validationErrs validator.ValidationErrors
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &appErr):
		status := appErr.Status()
		message := appErr.Message
		if status == fiber.StatusInternalServerError {
			message = "internal server error"
		}
		return ctx.Status(status).JSON(ErrorResponseWithBody(status, message, &ErrorBody{Kind: string(appErr.Kind)}))
	case errors.As(err, &validationErrs):
		message, fields := describeValidationErrors(validationErrs)
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponseWithBody(fiber.StatusBadRequest, message, &ErrorBody{
			Kind:   string(apperror.KindValidation),
			Fields: fields,
		}))
	case errors.As(err, &fiberErr):
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
	}
}
