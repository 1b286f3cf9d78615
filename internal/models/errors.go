// Package models contains data structures for the application's domain models.
package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// AppError is a typed application error carrying the taxonomy code and the
// HTTP status it maps to at the boundary.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  fiber.StatusBadRequest,
	}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Status:  fiber.StatusNotFound,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  fiber.StatusForbidden,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  fiber.StatusUnauthorized,
	}
}

// NewInvalidHierarchyError reports an attempt to grow the comment tree past
// two levels (a reply to a reply).
func NewInvalidHierarchyError(message string) *AppError {
	return &AppError{
		Code:    "INVALID_HIERARCHY",
		Message: message,
		Status:  fiber.StatusBadRequest,
	}
}

// NewConsistencyError reports a back-reference update that failed after the
// primary write. It must never be swallowed; the boundary renders it as 500.
func NewConsistencyError(message string, err error) *AppError {
	return &AppError{
		Code:    "CONSISTENCY_ERROR",
		Message: message,
		Status:  fiber.StatusInternalServerError,
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Status:  fiber.StatusInternalServerError,
		Err:     err,
	}
}

// ErrorEnvelope is the wire shape of every error response.
type ErrorEnvelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// SuccessEnvelope is the wire shape of every success response.
type SuccessEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithError writes the standardized error envelope. Internal storage
// detail never reaches the client: anything that is not an AppError renders
// as a generic 500 and the wrapped error is left to the structured logger.
func RespondWithError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	var appErr *AppError
	if errors.As(err, &appErr) {
		status = appErr.Status
		message = appErr.Message
	}

	return c.Status(status).JSON(ErrorEnvelope{
		Success:    false,
		Message:    message,
		StatusCode: status,
	})
}

// RespondWithData writes the standardized success envelope.
func RespondWithData(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(SuccessEnvelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}
