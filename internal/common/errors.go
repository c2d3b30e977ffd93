// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Common application errors.
var (
	// ErrNotFound is wrapped by document store failures that mean "no such path".
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingToken means neither a static nor a refreshable token is configured.
	ErrMissingToken = errors.New("no access token available")
)

// AuthError represents a missing or invalid credential.
type AuthError struct {
	Err     error
	Message string
	Status  int
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an AuthError that is reported as 401.
func NewAuthError(message string) error {
	return &AuthError{Message: message, Status: http.StatusUnauthorized}
}

// NewMissingTokenError reports that no document store token is configured.
// It is a server side problem and is reported as 500.
func NewMissingTokenError() error {
	return &AuthError{
		Err:     ErrMissingToken,
		Message: "Configuration Error: No valid Dropbox Token found. Please set DROPBOX_ACCESS_TOKEN or (DROPBOX_REFRESH_TOKEN + APP_KEY + APP_SECRET).",
		Status:  http.StatusInternalServerError,
	}
}

// ConfigError represents unusable caller supplied input, reported as 400.
type ConfigError struct {
	Err     error
	Message string
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError.
func NewConfigError(message string, err error) error {
	return &ConfigError{Message: message, Err: err}
}

// UpstreamError represents a failure reported by the remote document store.
type UpstreamError struct {
	Err     error
	Message string
	Status  int
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StatusCode maps an error to the HTTP status it should be reported with.
func StatusCode(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		if authErr.Status != 0 {
			return authErr.Status
		}
		return http.StatusUnauthorized
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) && upErr.Status >= 400 && upErr.Status < 600 {
		return upErr.Status
	}

	return http.StatusInternalServerError
}

// UserMessage returns the message that is safe to show to the caller.
// Typed errors carry their own message; anything else is prefixed.
func UserMessage(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Message
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Message
	}
	return fmt.Sprintf("Worker Error: %v", err)
}
