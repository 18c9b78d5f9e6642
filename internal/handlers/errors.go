package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Machine-readable error kinds returned to clients alongside the human
// message.
const (
	KindUnauthorized      = "unauthorized"
	KindConflict          = "conflict"
	KindNotFound          = "not_found"
	KindInvalidArgument   = "invalid_argument"
	KindInsufficientStock = "insufficient_stock"
	KindExpired           = "expired"
	KindBanned            = "banned"
	KindTooManyAttempts   = "too_many_attempts"
	KindIncorrectCode     = "incorrect_code"
	KindServerError       = "server_error"
)

// APIError is the error type handlers return for expected failures.
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, kind, message string) *APIError {
	return &APIError{Status: status, Kind: kind, Message: message}
}

// ErrorHandler renders every error escaping a handler as a JSON envelope
// with a stable kind discriminator. Unexpected errors are logged and
// reported as server_error without leaking internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Status).JSON(fiber.Map{"success": false, "error": apiErr})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"error":   &APIError{Kind: kindFromStatus(fiberErr.Code), Message: fiberErr.Message},
		})
	}

	log.Printf("unhandled error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   &APIError{Kind: KindServerError, Message: "server error"},
	})
}

func kindFromStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return KindUnauthorized
	case fiber.StatusForbidden:
		return KindBanned
	case fiber.StatusNotFound:
		return KindNotFound
	case fiber.StatusConflict:
		return KindConflict
	case fiber.StatusBadRequest:
		return KindInvalidArgument
	default:
		return KindServerError
	}
}
