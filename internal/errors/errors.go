package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the quote service
var (
	// Input errors
	ErrValidation = errors.New("validation failed")
	ErrCSRF       = errors.New("invalid csrf token")

	// Identity errors
	ErrAuthentication  = errors.New("authentication failed")
	ErrSessionNotFound = errors.New("session not found")
	ErrTokenExpired    = errors.New("token expired")

	// Collaborator errors
	ErrUpstreamService = errors.New("upstream service error")
	ErrConfiguration   = errors.New("configuration error")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// GenericMessage is shown to users when an error carries no safe message of its own.
const GenericMessage = "Sorry, there is a problem with the service. Please try again later."

// Problem pairs an error kind with a message that is safe to show in the browser.
// The underlying cause is kept for logging only.
type Problem struct {
	Kind    error
	Message string
	Err     error
}

func NewProblem(kind error, message string, cause error) *Problem {
	return &Problem{Kind: kind, Message: message, Err: cause}
}

func (p *Problem) Error() string {
	if p.Err == nil {
		return fmt.Sprintf("%v: %s", p.Kind, p.Message)
	}
	return fmt.Sprintf("%v: %s: %v", p.Kind, p.Message, p.Err)
}

func (p *Problem) Unwrap() []error {
	if p.Err == nil {
		return []error{p.Kind}
	}
	return []error{p.Kind, p.Err}
}

// UserMessage returns the browser-safe message carried by err, or GenericMessage.
func UserMessage(err error) string {
	var p *Problem
	if errors.As(err, &p) && p.Message != "" {
		return p.Message
	}
	return GenericMessage
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
