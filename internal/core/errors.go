package core

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks a request that is missing required input.  Errors
// matching it carry a message fit for the caller.
var ErrInvalidInput = errors.New("invalid input")

type inputError string

func (e inputError) Error() string { return string(e) }

func (e inputError) Is(target error) bool { return target == ErrInvalidInput }

func invalidInput(msg string) error { return inputError(msg) }

// Kind classifies a Failure for status-code mapping.
type Kind int

const (
	KindStore Kind = iota + 1
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindStore:
		return "store"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Failure is what the services return for anything that went wrong beyond
// validation and not-found: database trouble (KindStore) or a failing LLM or
// registry call (KindUpstream).
type Failure struct {
	Kind Kind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func storeFailure(op string, err error) error {
	return &Failure{Kind: KindStore, Op: op, Err: err}
}

func upstreamFailure(op string, err error) error {
	return &Failure{Kind: KindUpstream, Op: op, Err: err}
}

// ExtractionError reports model output that could not be turned into a JSON
// object.  Raw holds the sanitized text as received.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return "failed to parse AI response: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }
