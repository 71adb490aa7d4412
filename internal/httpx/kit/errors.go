package kit

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"configtree/internal/logx"
	"configtree/internal/model"
	"configtree/internal/session"
)

var kitLogger = logx.GetScope("httpx")

// APIError is a structured application error with code and message.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(httpStatus int, code, msg string, details any) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Message: msg, Details: details}
}

// Common helpers
func BadRequest(msg string, details any) error {
	return NewAPIError(http.StatusBadRequest, "E_INVALID_PARAM", msg, details)
}
func NotFound(msg string) error { return NewAPIError(http.StatusNotFound, "E_NOT_FOUND", msg, nil) }
func NotLoaded(msg string) error {
	return NewAPIError(http.StatusConflict, "E_NOT_LOADED", msg, nil)
}
func Validation(msg string, errs []model.ValidationError) error {
	return NewAPIError(http.StatusUnprocessableEntity, "E_VALIDATION", msg, errs)
}
func Unauthorized(msg string) error {
	return NewAPIError(http.StatusUnauthorized, "E_UNAUTHORIZED", msg, nil)
}
func InternalError(msg string, details any) error {
	return NewAPIError(http.StatusInternalServerError, "E_INTERNAL", msg, details)
}

// FromSession maps editing session errors onto API errors. Anything it does
// not recognise is returned unchanged and ends up as E_INTERNAL.
func FromSession(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrSessionNotFound):
		return NotFound("session not found")
	case errors.Is(err, session.ErrNotFound):
		return NotFound(err.Error())
	case errors.Is(err, session.ErrNotLoaded), errors.Is(err, session.ErrNoTarget):
		return NotLoaded(err.Error())
	case errors.Is(err, session.ErrInvalidPath), errors.Is(err, model.ErrInvalidRow),
		errors.Is(err, model.ErrEmptyDocument), errors.Is(err, model.ErrInvalidDocument):
		return BadRequest(err.Error(), nil)
	}
	return err
}

// ErrorHandler returns a Fiber error handler that emits unified error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"code":       httpStatusToCode(fe.Code),
				"message":    fe.Message,
				"request_id": RequestID(c),
			})
		}

		var ae *APIError
		if errors.As(err, &ae) {
			return c.Status(ae.HTTPStatus).JSON(fiber.Map{
				"code":       ae.Code,
				"message":    ae.Message,
				"details":    ae.Details,
				"request_id": RequestID(c),
			})
		}

		kitLogger.Sugar().Errorw("unhandled error", "path", c.Path(), "err", err, "request_id", RequestID(c))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"code":       "E_INTERNAL",
			"message":    "Internal Server Error",
			"request_id": RequestID(c),
		})
	}
}

func httpStatusToCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "E_INVALID_PARAM"
	case http.StatusNotFound:
		return "E_NOT_FOUND"
	case http.StatusUnauthorized:
		return "E_UNAUTHORIZED"
	case http.StatusForbidden:
		return "E_FORBIDDEN"
	case http.StatusConflict:
		return "E_NOT_LOADED"
	case http.StatusTooManyRequests:
		return "E_RATE_LIMITED"
	default:
		if status >= 500 {
			return "E_INTERNAL"
		}
		return "E_UNKNOWN"
	}
}
