package types

import "fmt"

// AppError is a typed domain error carrying an API error code, the HTTP
// status it should surface as, and a user-facing message. Handlers own the
// translation to JSON; services only construct and return these.
type AppError struct {
	Code    string `json:"error"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError creates a new AppError
func NewAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Status: status, Message: message}
}
