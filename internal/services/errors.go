package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized              = errors.New("could not validate credentials")
	ErrInvalidCredentials        = errors.New("incorrect username or password")
	ErrUsernameAlreadyRegistered = errors.New("username already registered")
	ErrInsufficientPayment       = errors.New("payment amount does not cover the receipt total")
	ErrReceiptNotFound           = errors.New("receipt not found")
	ErrUserNotFound              = errors.New("user not found")
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
