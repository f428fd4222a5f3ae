package types

import "fmt"

// AppError is the service-level error carried up to the route layer,
// where Status selects the HTTP response code.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s [status: %d]", e.Code, e.Message, e.Status)
}

// NewAppError creates an AppError without details.
func NewAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// Permission failures stay generic so a caller cannot tell a forbidden
// resource from a missing one.
func ErrPermissionDenied() *AppError {
	return NewAppError("PERMISSION_DENIED", "You do not have permission to perform this action", 403)
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError("UNAUTHORIZED", message, 401)
}

func ErrNotFound(message string) *AppError {
	return NewAppError("NOT_FOUND", message, 404)
}

func ErrValidation(message string, details map[string]interface{}) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, Status: 400, Details: details}
}

func ErrConflict(message string) *AppError {
	return NewAppError("CONFLICT", message, 409)
}

func ErrInternal(message string) *AppError {
	return NewAppError("INTERNAL_ERROR", message, 500)
}
