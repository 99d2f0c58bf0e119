// Package shared contains common domain types, errors and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNegativeValue = errors.New("value cannot be negative")
	ErrInvalidFormat = errors.New("invalid format")

	// State errors
	ErrStateConflict    = errors.New("operation conflicts with current state")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Resource errors
	ErrResourceExhausted = errors.New("resource limit exhausted")

	// Persistence errors
	ErrPersistence = errors.New("persistence failure")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "player", "quest", "deadline"
	Op      string // Operation that failed, e.g., "Start", "Award"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Player domain errors
var (
	ErrPlayerNotFound  = NewDomainError("player", "Find", ErrNotFound, "player not found")
	ErrInvalidUserID   = NewDomainError("player", "Validate", ErrInvalidID, "invalid user ID")
	ErrNegativeXP      = NewDomainError("player", "AddXP", ErrNegativeValue, "XP amount cannot be negative")
	ErrQuestInProgress = NewDomainError("player", "StartQuest", ErrStateConflict, "another quest is already active")
)

// Quest/quiz domain errors
var (
	ErrQuestNotFound       = NewDomainError("quest", "Find", ErrNotFound, "quest not found")
	ErrQuestCompleted      = NewDomainError("quest", "Start", ErrAlreadyProcessed, "quest already completed")
	ErrQuestWrongModule    = NewDomainError("quest", "Start", ErrInvalidInput, "quest belongs to another module")
	ErrQuizNotFound        = NewDomainError("quest", "Start", ErrNotFound, "quiz not found")
	ErrNoActiveQuizSession = NewDomainError("quest", "Answer", ErrStateConflict, "no active quiz session")
	ErrQuizIndexMismatch   = NewDomainError("quest", "Answer", ErrStateConflict, "question index out of sequence")
	ErrNoPendingHomework   = NewDomainError("quest", "Review", ErrStateConflict, "no homework pending review")
	ErrReviewQuestMismatch = NewDomainError("quest", "Review", ErrStateConflict, "pending homework is for another quest")
)

// Deadline domain errors
var (
	ErrDeadlineExpired     = NewDomainError("deadline", "Check", ErrExpired, "module deadline expired")
	ErrExtensionsExhausted = NewDomainError("deadline", "Extend", ErrResourceExhausted, "deadline extension limit reached")
)

// Badge domain errors
var (
	ErrBadgeNotFound = NewDomainError("badge", "Award", ErrNotFound, "badge not found in catalog")
)

// Catalog domain errors
var (
	ErrModuleNotFound = NewDomainError("catalog", "Module", ErrNotFound, "module not found")
	ErrCatalogInvalid = NewDomainError("catalog", "Validate", ErrInvalidFormat, "catalog content is inconsistent")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error rejects the input itself.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrNotFound)
}

// IsStateConflict checks if the error is a conflict with current state.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrExpired)
}

// IsResourceExhausted checks if the error is a resource cap being hit.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}

// IsPersistence checks if the error came from the persistence layer.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
