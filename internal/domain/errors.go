package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionExpired     = errors.New("session expired")
	ErrEmailTaken         = errors.New("email already registered")

	ErrNonPositiveCount = errors.New("papers count must be a positive integer")
	ErrIdentityMismatch = errors.New("user does not match the authenticated identity")
	ErrUnknownDevice    = errors.New("device does not exist")
	ErrStorageFailure   = errors.New("submission could not be stored")
)

// AuthError is a login or session failure. It is never retried.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "auth: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// SubmissionError is a mutate-time validation or storage failure.
// Err carries the cause so storage kinds stay visible to errors.Is.
type SubmissionError struct {
	Reason error
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return "submission: " + e.Reason.Error()
	}
	return fmt.Sprintf("submission: %v: %v", e.Reason, e.Err)
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// IsValidation reports whether the submission was rejected before any write.
func (e *SubmissionError) IsValidation() bool {
	return e.Err == nil
}
