package shared

import (
	"errors"
	"fmt"
)

// Error codes surfaced to API clients
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidState      = "INVALID_STATE"
	CodePersistence       = "PERSISTENCE_ERROR"
	CodeInconsistentState = "INCONSISTENT_STATE"
	CodeSubscriberLagged  = "SUBSCRIBER_LAGGED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// PersistenceError wraps a failure reported by the backing store.
type PersistenceError struct {
	Op     string
	Entity string
	Err    error
}

// NewPersistenceError wraps err as a persistence failure of op on entity
func NewPersistenceError(op, entity string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Entity: entity, Err: err}
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying store error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Code returns the stable error code
func (e *PersistenceError) Code() string {
	return CodePersistence
}

// InconsistentStateError reports that a row which was just written could not be read back.
type InconsistentStateError struct {
	Entity string
	ID     uint32
}

// Error implements the error interface
func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent state: %s %d missing after insert", e.Entity, e.ID)
}

// Code returns the stable error code
func (e *InconsistentStateError) Code() string {
	return CodeInconsistentState
}

// ErrorCode extracts the stable code of a domain-level error, or "" when err
// carries none.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
