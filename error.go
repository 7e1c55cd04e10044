package devalue

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes carried by [DecodeError].
const (
	CodeIncorrectValueKind = "incorrect_value_kind"
	CodeMissingField       = "missing_field"
	CodeUnknownKey         = "unknown_key"
	CodeUnexpected         = "unexpected"
)

// ErrorBuilder constructs and merges the errors produced during a decode.
//
// Every method receives the error accumulated so far (nil when none) and the
// location of the new problem, and returns the merged error together with an
// abort flag: false means the problem is recorded and decoding keeps scanning
// to surface further problems, true means decoding stops immediately. The
// decode algorithm always respects that decision and never overrides it, so a
// strict builder fails fast while a lenient one reports every problem of the
// input in a single pass.
//
// The location is borrowed; an implementation that stores it must take an
// owned copy via [ValuePointerRef.ToOwned].
type ErrorBuilder interface {
	// IncorrectValueKind records a value whose kind is not in the accepted set.
	IncorrectValueKind(prev error, actual ValueKind, accepted []ValueKind, location *ValuePointerRef) (error, bool)

	// MissingField records a declared field that is absent from a map and has
	// no default.
	MissingField(prev error, field string, location *ValuePointerRef) (error, bool)

	// UnknownKey records a map key that matches no declared field. known lists
	// the declared field names.
	UnknownKey(prev error, key string, known []string, location *ValuePointerRef) (error, bool)

	// Unexpected records a problem outside the other categories, e.g. an
	// integer overflow or a sequence of the wrong length.
	Unexpected(prev error, msg string, location *ValuePointerRef) (error, bool)

	// Merge folds the error of a completed sub-decode (possibly a foreign
	// error type) into the running error.
	Merge(prev error, sub error, location *ValuePointerRef) (error, bool)
}

// DecodeError is a single realized decode problem.
type DecodeError struct {
	// Code is one of the Code* constants.
	Code string

	// Message is a human readable description of the problem.
	Message string

	// Pointer is the location of the offending value.
	Pointer ValuePointer

	// Actual and Accepted are set for incorrect_value_kind errors.
	Actual   ValueKind
	Accepted []ValueKind

	// Key is the offending map key or field name, when there is one.
	Key string

	// Cause is the underlying error, when the problem wraps one.
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Pointer.String() == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s at %s: %s", e.Code, e.Pointer, e.Message)
}

// Location returns the path at which the error occurred.
func (e *DecodeError) Location() *ValuePointer {
	return &e.Pointer
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// DecodeErrors collects multiple decode problems from a single pass.
type DecodeErrors []*DecodeError

// Error summarizes the first few problems.
func (es DecodeErrors) Error() string {
	if len(es) == 0 {
		return ""
	}

	const maxShown = 3

	shown := len(es)
	if shown > maxShown {
		shown = maxShown
	}

	var sb strings.Builder
	for idx := range shown {
		if idx > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(es[idx].Error())
	}

	if len(es) > shown {
		fmt.Fprintf(&sb, "; ... (total %d)", len(es))
	}

	return sb.String()
}

// Location returns the path of the first recorded problem.
func (es DecodeErrors) Location() *ValuePointer {
	if len(es) == 0 {
		return nil
	}

	return es[0].Location()
}

// LocationOf returns the location attached to a realized decode error, or nil
// if err carries none.
func LocationOf(err error) *ValuePointer {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Location()
	}

	var des DecodeErrors
	if errors.As(err, &des) {
		return des.Location()
	}

	var located interface{ Location() *ValuePointer }
	if errors.As(err, &located) {
		return located.Location()
	}

	return nil
}

func incorrectKindMessage(actual ValueKind, accepted []ValueKind) string {
	names := make([]string, len(accepted))
	for idx, kind := range accepted {
		names[idx] = kind.String()
	}

	return fmt.Sprintf("expected %s, got %s", strings.Join(names, " or "), actual)
}

// AbortOnError is an [ErrorBuilder] where the first problem wins: every
// constructor realizes a single [*DecodeError] and aborts the decode.
type AbortOnError struct{}

var _ ErrorBuilder = AbortOnError{}

func (AbortOnError) IncorrectValueKind(_ error, actual ValueKind, accepted []ValueKind, location *ValuePointerRef) (error, bool) {
	return &DecodeError{
		Code:     CodeIncorrectValueKind,
		Message:  incorrectKindMessage(actual, accepted),
		Pointer:  location.ToOwned(),
		Actual:   actual,
		Accepted: accepted,
	}, true
}

func (AbortOnError) MissingField(_ error, field string, location *ValuePointerRef) (error, bool) {
	return &DecodeError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing field %q", field),
		Pointer: location.ToOwned(),
		Key:     field,
	}, true
}

func (AbortOnError) UnknownKey(_ error, key string, known []string, location *ValuePointerRef) (error, bool) {
	return &DecodeError{
		Code:    CodeUnknownKey,
		Message: fmt.Sprintf("unknown key %q, expected one of %s", key, strings.Join(known, ", ")),
		Pointer: location.ToOwned(),
		Key:     key,
	}, true
}

func (AbortOnError) Unexpected(_ error, msg string, location *ValuePointerRef) (error, bool) {
	return &DecodeError{
		Code:    CodeUnexpected,
		Message: msg,
		Pointer: location.ToOwned(),
	}, true
}

func (AbortOnError) Merge(_ error, sub error, location *ValuePointerRef) (error, bool) {
	var de *DecodeError
	if errors.As(sub, &de) {
		return de, true
	}

	return &DecodeError{
		Code:    CodeUnexpected,
		Message: sub.Error(),
		Pointer: location.ToOwned(),
		Cause:   sub,
	}, true
}

// CollectErrors is an [ErrorBuilder] that never aborts: every problem is
// appended to a [DecodeErrors] list so one pass reports everything at once.
type CollectErrors struct{}

var _ ErrorBuilder = CollectErrors{}

func appendError(prev error, e *DecodeError) DecodeErrors {
	if prev == nil {
		return DecodeErrors{e}
	}

	var des DecodeErrors
	if errors.As(prev, &des) {
		return append(des, e)
	}

	var de *DecodeError
	if errors.As(prev, &de) {
		return DecodeErrors{de, e}
	}

	return DecodeErrors{{Code: CodeUnexpected, Message: prev.Error(), Cause: prev}, e}
}

func (CollectErrors) IncorrectValueKind(prev error, actual ValueKind, accepted []ValueKind, location *ValuePointerRef) (error, bool) {
	return appendError(prev, &DecodeError{
		Code:     CodeIncorrectValueKind,
		Message:  incorrectKindMessage(actual, accepted),
		Pointer:  location.ToOwned(),
		Actual:   actual,
		Accepted: accepted,
	}), false
}

func (CollectErrors) MissingField(prev error, field string, location *ValuePointerRef) (error, bool) {
	return appendError(prev, &DecodeError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing field %q", field),
		Pointer: location.ToOwned(),
		Key:     field,
	}), false
}

func (CollectErrors) UnknownKey(prev error, key string, known []string, location *ValuePointerRef) (error, bool) {
	return appendError(prev, &DecodeError{
		Code:    CodeUnknownKey,
		Message: fmt.Sprintf("unknown key %q, expected one of %s", key, strings.Join(known, ", ")),
		Pointer: location.ToOwned(),
		Key:     key,
	}), false
}

func (CollectErrors) Unexpected(prev error, msg string, location *ValuePointerRef) (error, bool) {
	return appendError(prev, &DecodeError{
		Code:    CodeUnexpected,
		Message: msg,
		Pointer: location.ToOwned(),
	}), false
}

func (CollectErrors) Merge(prev error, sub error, location *ValuePointerRef) (error, bool) {
	if sub == nil {
		return prev, false
	}

	var des DecodeErrors
	if errors.As(sub, &des) {
		merged := prev
		for _, de := range des {
			merged = appendError(merged, de)
		}
		return merged, false
	}

	var de *DecodeError
	if errors.As(sub, &de) {
		return appendError(prev, de), false
	}

	return appendError(prev, &DecodeError{
		Code:    CodeUnexpected,
		Message: sub.Error(),
		Pointer: location.ToOwned(),
		Cause:   sub,
	}), false
}
