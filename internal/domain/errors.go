package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	// ErrNoPassword means the account was created through an OAuth
	// provider and carries no password hash. Callers must surface it
	// with the same wording as ErrInvalidCredentials so account type
	// cannot be probed through the login form.
	ErrNoPassword       = errors.New("no_password")
	ErrEmailNotVerified = errors.New("email_not_verified")
	ErrTokenInvalid     = errors.New("token_invalid")
	ErrTokenExpired     = errors.New("token_expired")
	ErrWrongPassword    = errors.New("wrong_password")
	ErrValidation       = errors.New("validation")
	ErrEmailDelivery    = errors.New("email_delivery")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}
