package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// HTTPError lets controllers attach a status to a service error without the
// services knowing about HTTP.
type HTTPError struct {
	Code int
	Err  error
}

func (e *HTTPError) Error() string { return e.Err.Error() }
func (e *HTTPError) Unwrap() error { return e.Err }

func NewHTTPError(code int, err error) *HTTPError {
	return &HTTPError{Code: code, Err: err}
}

// ErrorHandlerMiddleware renders errors returned by handlers as BaseResponse
// bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var (
			httpErr       *HTTPError
			fiberErr      *fiber.Error
			validationErr *ValidationError
		)
		switch {
		case errors.As(err, &validationErr):
			return ctx.Status(fiber.StatusBadRequest).JSON(BaseResponse[map[string]string]{
				Code:    fiber.StatusBadRequest,
				Message: validationErr.Error(),
				Data:    validationErr.Fields,
			})
		case errors.As(err, &httpErr):
			return ctx.Status(httpErr.Code).JSON(ErrorResponse(httpErr.Code, httpErr.Error()))
		case errors.As(err, &fiberErr):
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
		}
	}
}
