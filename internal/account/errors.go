// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"errors"
	"net/http"
)

// Messages returned to callers. Internal error text never reaches them.
const (
	MsgMissingCredentials = "Must provide email & password"
	MsgRegisterFailed     = "Could not register user"
	MsgLoginAfterRegister = "Could not log in after registration"
	MsgValidEmailRequired = "Valid email address required"
	MsgPasswordRequired   = "Password required"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by a UserStore when the email is already registered.
var ErrEmailTaken = &StatusError{Status: http.StatusConflict, Message: "Email address already registered"}

// StatusCoder is implemented by errors that choose their own response status.
// The error's message must be safe to show to callers.
type StatusCoder interface {
	error
	StatusCode() int
}

// StatusError is a StatusCoder with a fixed status and public message.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() int { return e.Status }

// FieldErrors maps an input field name to its validation message.
type FieldErrors map[string]string

// WorkflowError is the uniform failure returned by the orchestrators.
// Message and Fields are safe to show to callers; the cause is not.
type WorkflowError struct {
	StatusCode int
	Message    string
	Fields     FieldErrors
	cause      error
}

func (e *WorkflowError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *WorkflowError) Unwrap() error { return e.cause }

// NewWorkflowError returns a WorkflowError with a public status and message.
func NewWorkflowError(status int, msg string, cause error) *WorkflowError {
	return &WorkflowError{StatusCode: status, Message: msg, cause: cause}
}

func validationError(msg string, fields FieldErrors) *WorkflowError {
	return &WorkflowError{StatusCode: http.StatusBadRequest, Message: msg, Fields: fields}
}

func serverError(msg string, cause error) *WorkflowError {
	return &WorkflowError{StatusCode: http.StatusInternalServerError, Message: msg, cause: cause}
}

// dependencyError maps a collaborator failure to a WorkflowError, honoring a
// status carried by the collaborator's error.
func dependencyError(fallback string, cause error) *WorkflowError {
	var sc StatusCoder
	if errors.As(cause, &sc) {
		return &WorkflowError{StatusCode: sc.StatusCode(), Message: sc.Error(), cause: cause}
	}
	return serverError(fallback, cause)
}

// AsWorkflowError reports whether err is, or wraps, a WorkflowError.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}
