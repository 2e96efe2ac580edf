// Package errors provides error handling for surasura.
//
// This package re-exports github.com/cockroachdb/errors and defines the
// error taxonomy shared by every stage of a diagnosis:
//
//	// Wrap with context
//	if err := fetch(); err != nil {
//	    return errors.Wrap(err, "fetch source")
//	}
//
//	// Tag a failure with a sentinel, keeping the original message
//	return errors.Mark(err, errors.ErrCompletionFailed)
//
//	// Check errors
//	if errors.Is(err, errors.ErrEmptyDocument) {
//	    // show "no text found"
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Diagnosis error taxonomy. Boundaries Mark their failures with one of these
// so callers can branch with Is while the underlying message survives.
var (
	// ErrEmptyDocument: every page of a PDF yielded only whitespace.
	ErrEmptyDocument = New("document contains no extractable text")

	// ErrUnreadableSource: the file or URL could not be read or parsed.
	ErrUnreadableSource = New("source could not be read")

	// ErrCompletionFailed: the model call failed for any reason.
	ErrCompletionFailed = New("completion failed")

	// ErrMalformedOutput: model output looked like a table but was not one.
	ErrMalformedOutput = New("malformed model output")

	// ErrMissingCredential: fatal at startup, never per request.
	ErrMissingCredential = New("model credential missing")

	ErrEmptyComment    = New("comment is empty")
	ErrNotAnalyzed     = New("document has not been analyzed yet")
	ErrAlreadyAnalyzed = New("document was already analyzed")
	ErrNotFound        = New("not found")
	ErrInvalidRequest  = New("invalid request")
)

// IsInputError reports whether err is the user's fault rather than ours or
// the model's: a bad source, an empty comment or a malformed request.
func IsInputError(err error) bool {
	return err != nil && IsAny(err,
		ErrEmptyDocument,
		ErrUnreadableSource,
		ErrEmptyComment,
		ErrInvalidRequest,
	)
}

// Message returns the error text followed by any hints, one per line.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if hints := FlattenHints(err); hints != "" {
		msg += "\n" + hints
	}
	return msg
}
