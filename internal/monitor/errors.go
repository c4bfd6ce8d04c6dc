package monitor

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Kind classifies a failed check.
type Kind string

const (
	KindFetchFailure        Kind = "FETCH_FAILURE"
	KindSectionNotFound     Kind = "SECTION_NOT_FOUND"
	KindEmptyExtraction     Kind = "EMPTY_EXTRACTION"
	KindNotificationFailure Kind = "NOTIFICATION_FAILURE"
	KindUnclassified        Kind = "UNCLASSIFIED"
)

// Recoverable reports whether the next check can simply run on schedule. Anything
// unclassified (a broken state store, a bug) calls for backing off first.
func (k Kind) Recoverable() bool {
	switch k {
	case KindFetchFailure, KindSectionNotFound, KindEmptyExtraction, KindNotificationFailure:
		return true
	}
	return false
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
	Stack   []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StackTrace() []byte {
	return e.Stack
}

func (e *Error) Recoverable() bool {
	return e.Kind.Recoverable()
}

func newError(kind Kind, message string, err error) *Error {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// KindOf returns the kind of the first *Error in err's chain, KindUnclassified if
// there is none.
func KindOf(err error) Kind {
	var monitorErr *Error
	if errors.As(err, &monitorErr) {
		return monitorErr.Kind
	}
	return KindUnclassified
}
