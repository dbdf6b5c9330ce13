package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/question-bank-service/internal/validator"
)

// Sentinel errors returned by services. Handlers map these to HTTP statuses.
var (
	ErrQuestionNotFound  = errors.New("question not found")
	ErrHierarchyNotFound = errors.New("hierarchy item not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidSortKey    = errors.New("invalid sort key")
	ErrInvalidFormat     = errors.New("unsupported format")
	ErrEmptyBatch        = errors.New("empty id list")
)

// ValidationErrors is re-exported so handlers can branch on it without
// importing the validator package.
type ValidationErrors = validator.ValidationErrors

// NewValidationError builds a single-field validation failure
func NewValidationError(field, message string) ValidationErrors {
	return ValidationErrors{{
		Field:   field,
		Message: message,
		Rule:    "business_logic",
	}}
}

// PermissionError describes a denied operation
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// NewPermissionError builds a permission error
func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsPermissionError reports whether err is a permission failure
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidationError reports whether err carries validation failures
func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}
