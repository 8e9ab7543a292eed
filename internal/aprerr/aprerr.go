// Package aprerr classifies errors raised anywhere in the repair loop
// into the fixed set of kinds the engine and CLI need to branch on.
package aprerr

import "errors"

// Kind is one of the error kinds the repair loop distinguishes.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidParam means a caller passed a malformed or forbidden
	// parameter (e.g. a verifier flag the adapter injects itself).
	KindInvalidParam
	// KindVerifierTimeout means the verifier subprocess was killed
	// after exceeding its timeout budget.
	KindVerifierTimeout
	// KindVerifierCrashed means the verifier subprocess terminated via
	// a signal (e.g. SIGSEGV) rather than a normal exit.
	KindVerifierCrashed
	// KindSourceCodeParseError means the verifier output indicated a
	// parse/compile error rather than a verification result.
	KindSourceCodeParseError
	// KindTokenLimitExceeded means a chat call could not fit within
	// the model's token budget even after one compress-and-retry.
	KindTokenLimitExceeded
	// KindLLMTransportError means the underlying ChatModel call failed
	// (network, auth, rate limit, provider error).
	KindLLMTransportError
	// KindIntegrityError means on-disk content diverged from the
	// in-memory Solution unexpectedly.
	KindIntegrityError
	// KindPartialPatchError means `patch` applied some hunks but not
	// all (exit code 1).
	KindPartialPatchError
	// KindDiffError means the external diff/patch tool failed fatally
	// (exit code 2).
	KindDiffError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParam:
		return "InvalidParam"
	case KindVerifierTimeout:
		return "VerifierTimeout"
	case KindVerifierCrashed:
		return "VerifierCrashed"
	case KindSourceCodeParseError:
		return "SourceCodeParseError"
	case KindTokenLimitExceeded:
		return "TokenLimitExceeded"
	case KindLLMTransportError:
		return "LLMTransportError"
	case KindIntegrityError:
		return "IntegrityError"
	case KindPartialPatchError:
		return "PartialPatchError"
	case KindDiffError:
		return "DiffError"
	default:
		return "Unknown"
	}
}

// CategorizedError is an error that knows which Kind it belongs to.
type CategorizedError interface {
	error
	Kind() Kind
}

// Error is the concrete CategorizedError implementation used
// throughout the repair loop.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap creates an Error of the given kind that wraps an underlying
// cause, preserving it for errors.Is/errors.As and %w formatting.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

// As reports whether err (or any error it wraps) is a CategorizedError,
// returning it if so.
func As(err error) (CategorizedError, bool) {
	var catErr CategorizedError
	if err == nil {
		return nil, false
	}
	if errors.As(err, &catErr) {
		return catErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is categorized, or KindUnknown
// otherwise.
func KindOf(err error) Kind {
	if catErr, ok := As(err); ok {
		return catErr.Kind()
	}
	return KindUnknown
}
