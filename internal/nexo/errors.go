package nexo

// errors.go defines the closed error taxonomy used across the terminal
// messaging pipeline. Every failure that crosses a pipeline boundary is
// translated into exactly one of these kinds; raw transport or codec
// errors never leak past the boundary untyped.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// ErrorCode classifies a pipeline failure.
type ErrorCode string

const (
	// ErrCodeCannotConnect is used when the network connection to the
	// terminal could not be established or was lost mid-exchange.
	ErrCodeCannotConnect ErrorCode = "cannot_connect"

	// ErrCodeUntrustedServer is used when certificate trust evaluation
	// failed all tiers (system trust, pinned match, fallback policy).
	ErrCodeUntrustedServer ErrorCode = "untrusted_server"

	// ErrCodeEncoding is used when the plaintext envelope could not be
	// produced, e.g. the canonical form contains non-ASCII content.
	ErrCodeEncoding ErrorCode = "encoding_failure"

	// ErrCodeSecurity is used when the integrity check failed or the
	// key identifier / key version / crypto version did not match the
	// credential during protect or unprotect.
	ErrCodeSecurity ErrorCode = "security_failure"

	// ErrCodeDecoding is used when a typed response could not be
	// reconstructed from wire bytes. The error retains the offending
	// field and type when they are known.
	ErrCodeDecoding ErrorCode = "decoding_failure"

	// ErrCodeUnknown is the catch-all for unclassified failures. The
	// original detail is always preserved for diagnosis.
	ErrCodeUnknown ErrorCode = "unknown"
)

// TerminalError is the structured error returned by the pipeline.
type TerminalError struct {
	// code is the taxonomy kind
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error

	// valueType and field describe where decoding failed (decoding errors only)
	valueType string
	field     string
}

func (e *TerminalError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *TerminalError) Code() ErrorCode { return e.code }
func (e *TerminalError) Unwrap() error   { return e.wrapped }

// Field returns the wire field that failed to decode, if known.
func (e *TerminalError) Field() string { return e.field }

// ValueType returns the Go type that failed to decode, if known.
func (e *TerminalError) ValueType() string { return e.valueType }

// CodeOf extracts the taxonomy code from err, or ErrCodeUnknown if err
// is not a TerminalError.
func CodeOf(err error) ErrorCode {
	var terr *TerminalError
	if errors.As(err, &terr) {
		return terr.code
	}
	return ErrCodeUnknown
}

// NewConnectError creates a connection establishment error.
func NewConnectError(msg string) error {
	return &TerminalError{code: ErrCodeCannotConnect, message: msg}
}

// WrapConnectError wraps an existing error as a connection error.
func WrapConnectError(err error, msg string) error {
	return &TerminalError{code: ErrCodeCannotConnect, message: msg, wrapped: err}
}

// NewUntrustedServerError creates a trust evaluation error.
// Use this when the presented certificate chain was rejected by all
// trust tiers.
func NewUntrustedServerError(msg string) error {
	return &TerminalError{code: ErrCodeUntrustedServer, message: msg}
}

// WrapUntrustedServerError wraps an existing error as a trust evaluation error.
func WrapUntrustedServerError(err error, msg string) error {
	return &TerminalError{code: ErrCodeUntrustedServer, message: msg, wrapped: err}
}

// NewEncodingError creates an encoding error.
// Use this when the plaintext envelope cannot be produced, e.g. the
// serialized form contains characters outside 7-bit ASCII.
func NewEncodingError(msg string) error {
	return &TerminalError{code: ErrCodeEncoding, message: msg}
}

// WrapEncodingError wraps an existing error as an encoding error.
func WrapEncodingError(err error, msg string) error {
	return &TerminalError{code: ErrCodeEncoding, message: msg, wrapped: err}
}

// NewSecurityError creates a message security error.
// Use this for integrity tag mismatches and key identifier, key version
// or crypto version mismatches during protect/unprotect.
func NewSecurityError(msg string) error {
	return &TerminalError{code: ErrCodeSecurity, message: msg}
}

// WrapSecurityError wraps an existing error as a message security error.
func WrapSecurityError(err error, msg string) error {
	return &TerminalError{code: ErrCodeSecurity, message: msg, wrapped: err}
}

// NewDecodingError creates a decoding error carrying the offending type
// and field when known. Pass empty strings when they are not.
func NewDecodingError(valueType, field, msg string) error {
	return &TerminalError{code: ErrCodeDecoding, message: msg, valueType: valueType, field: field}
}

// WrapDecodingError wraps an existing error as a decoding error. If err
// is a *json.UnmarshalTypeError the offending field and type are retained.
func WrapDecodingError(err error, msg string) error {
	terr := &TerminalError{code: ErrCodeDecoding, message: msg, wrapped: err}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		terr.valueType = typeErr.Type.String()
		terr.field = typeErr.Field
	}
	return terr
}

// NewUnknownError creates a catch-all error for unclassified failures.
func NewUnknownError(msg string) error {
	return &TerminalError{code: ErrCodeUnknown, message: msg}
}

// WrapUnknownError wraps an existing error as an unclassified failure,
// preserving the original detail for diagnosis.
func WrapUnknownError(err error, msg string) error {
	return &TerminalError{code: ErrCodeUnknown, message: msg, wrapped: err}
}

// Translate maps an arbitrary failure onto the closed taxonomy.
//
// TerminalError values pass through unchanged so a failure classified at
// an inner boundary keeps its kind. Network-level errors become
// cannot_connect, JSON decode errors become decoding_failure, and
// anything else becomes unknown with the original error preserved.
func Translate(err error, msg string) error {
	if err == nil {
		return nil
	}

	var terr *TerminalError
	if errors.As(err, &terr) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return WrapConnectError(err, msg)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapConnectError(err, msg)
	}

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
		return WrapDecodingError(err, msg)
	}

	return WrapUnknownError(err, msg)
}
