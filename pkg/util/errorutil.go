package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewInvalidTransition rejects a status pair absent from the transition table.
func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError("INVALID_TRANSITION", message, http.StatusUnprocessableEntity, details)
}

// NewAssignmentNotFound signals a ticket without a current assignment.
func NewAssignmentNotFound(ticketID string) error {
	return NewDomainError("ASSIGNMENT_NOT_FOUND", "no current assignment for ticket",
		http.StatusNotFound, map[string]any{"ticket_id": ticketID})
}

// NewNoAgentAvailable signals an empty auto-assignment pool.
func NewNoAgentAvailable() error {
	return NewDomainError("NO_AGENT_AVAILABLE", "no available agent for automatic assignment",
		http.StatusConflict, nil)
}

// NewNotEscalatable rejects escalation from an ineligible ticket state.
func NewNotEscalatable(message string, details map[string]any) error {
	return NewDomainError("NOT_ESCALATABLE", message, http.StatusUnprocessableEntity, details)
}

// NewAlreadyEscalated rejects re-escalation of an escalated ticket.
func NewAlreadyEscalated(ticketID string) error {
	return NewDomainError("ALREADY_ESCALATED", "ticket already escalated",
		http.StatusConflict, map[string]any{"ticket_id": ticketID})
}

// NewTransportError wraps a network/backend failure. This is the only
// category the caller may retry, and retry is never automatic.
func NewTransportError(err error) error {
	return &DomainError{
		Code:       "TRANSPORT_ERROR",
		Message:    "upstream transport failure",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	de := ToDomainError(err)
	return de != nil && de.Code == code
}
