// Package apperrors defines the error taxonomy surfaced by the usecase layer.
// Validation and authorization failures are terminal and never retried;
// transient platform failures never appear here, they end up on Publication
// records instead.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError carries a structured detail list (4xx-equivalent).
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, "; "))
}

func NewValidation(message string, details ...string) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

// AuthorizationError means the caller does not own the referenced entity.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func NewAuthorization(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// NotFoundError means a referenced Content/Account/Job is absent.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
