// Package kverrors is the shared error taxonomy used across the client: a
// UsageError for caller misuse and a ServerError for backend-reported
// failures, each carrying enough information for the retry subsystem to
// classify it without string-matching a generic error value.
package kverrors

import (
	"strings"

	"github.com/kvfluent/client-go/pkg/kv"
)

// UsageError represents a caller mistake that a retry can never fix, such
// as an invalid stream capacity, an absolute TTL deadline that has already
// passed, reading past the end of a stream, or a metric
// that cannot be merged. Expression and behavior errors use their own types
// (pkg/expr's TypeError, ScopeError and IllFormedConditionalError;
// pkg/behavior's ConfigurationError and CycleError).
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// NewUsageError builds a UsageError with the given message.
func NewUsageError(message string) *UsageError {
	return &UsageError{Message: message}
}

// ServerError represents a failure reported by the backend cluster itself.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// NewServerError builds a ServerError with the given code and message.
func NewServerError(code, message string) *ServerError {
	return &ServerError{Code: code, Message: message}
}

// IsRetriable reports whether the error is transient, a cluster
// reconfiguration artifact, or a write conflict -- the three shapes of
// ServerError the retry subsystem (pkg/exec) will re-attempt.
func (e *ServerError) IsRetriable() bool {
	return e.IsTransient() || e.IsClusterError() || e.IsConflict()
}

// IsTransient reports whether the error looks like a transient/timeout
// condition rather than a durable failure.
func (e *ServerError) IsTransient() bool {
	code := strings.ToLower(e.Code)
	msg := strings.ToLower(e.Message)
	return strings.Contains(code, "transient") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "temporarily")
}

// IsClusterError reports whether the error reflects a stale view of cluster
// topology (wrong node, node not master, partition rebalance in flight).
func (e *ServerError) IsClusterError() bool {
	code := strings.ToLower(e.Code)
	msg := strings.ToLower(e.Message)
	return strings.Contains(code, "not_master") ||
		strings.Contains(code, "cluster_key_mismatch") ||
		strings.Contains(msg, "not master") ||
		strings.Contains(msg, "cluster key mismatch")
}

// IsConflict reports whether the error is a generation/version conflict --
// retriable only for retryable-kind writes, never for non-retryable ones
// (the caller's own precondition, not a transient cluster state).
func (e *ServerError) IsConflict() bool {
	code := strings.ToLower(e.Code)
	msg := strings.ToLower(e.Message)
	return strings.Contains(code, "generation") ||
		strings.Contains(msg, "generation error") ||
		strings.Contains(msg, "conflict")
}

// KeyError pairs a per-key outcome error with the key it belongs to,
// letting a consumer of a multi-key AsyncRecordStream recover which
// request the outcome is for without widening the stream's Next()
// signature. Unwrap exposes the underlying cause for errors.As/errors.Is.
type KeyError struct {
	Key kv.Key
	Err error
}

func (e *KeyError) Error() string {
	return e.Key.String() + ": " + e.Err.Error()
}

func (e *KeyError) Unwrap() error { return e.Err }

// NewKeyError wraps err with the key it occurred for.
func NewKeyError(key kv.Key, err error) *KeyError {
	return &KeyError{Key: key, Err: err}
}

// AsRetriable reports whether err -- of whatever concrete type -- should be
// retried under the given retryable-write allowance. UsageError is never
// retriable; a ServerError is retriable per IsRetriable, with conflicts
// additionally gated by allowRetryableConflict (true only for
// WRITE_RETRYABLE-kind operations).
func AsRetriable(err error, allowRetryableConflict bool) bool {
	se, ok := err.(*ServerError)
	if !ok {
		return false
	}
	if se.IsConflict() && !se.IsTransient() && !se.IsClusterError() {
		return allowRetryableConflict
	}
	return se.IsRetriable()
}
