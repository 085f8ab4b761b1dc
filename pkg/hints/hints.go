// Package hints marks errors that end a command without being failures.
//
// A declined overwrite prompt or a format that cannot be produced stops the
// compress command, but the process should still exit cleanly and the user
// only needs a notice. Producers label such errors with New, Wrap or Abort;
// the entry point checks IsHint and logs them, with ReasonOf, instead of
// failing. Consumers never need the producer's sentinel errors.
package hints

import (
	"errors"
	"fmt"
)

// Reason says why a command stopped without producing output.
type Reason int

const (
	// Unspecified is the reason of hints created by New and Wrap.
	Unspecified Reason = iota
	// Declined means the user, or a -no policy, answered no.
	Declined
	// Unsupported means the requested format cannot be written.
	Unsupported
)

var reasonToString = map[Reason]string{
	Unspecified: "unspecified",
	Declined:    "declined",
	Unsupported: "unsupported",
}

func (r Reason) String() string {
	if str, ok := reasonToString[r]; ok {
		return str
	}
	return fmt.Sprintf("unknown_reason(%d)", r)
}

type hint struct {
	err    error
	reason Reason
}

func (h *hint) Error() string {
	if h == nil || h.err == nil {
		return "unknown hint"
	}
	return h.err.Error()
}

func (h *hint) IsHint() bool  { return true }
func (h *hint) Unwrap() error { return h.err }

// New returns a hint with the given message.
func New(msg string) error {
	return &hint{err: errors.New(msg)}
}

// Wrap labels err as a hint. Wrap(nil) is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &hint{err: err}
}

// Abort returns a hint with the given message that records why the command
// stopped.
func Abort(reason Reason, msg string) error {
	return &hint{err: errors.New(msg), reason: reason}
}

// ReasonOf returns the reason of the first hint in err's chain, or
// Unspecified if there is none.
func ReasonOf(err error) Reason {
	var h *hint
	if errors.As(err, &h) {
		return h.reason
	}
	return Unspecified
}

// IsHint reports whether any error in err's chain is a hint.
func IsHint(err error) bool {
	var h interface{ IsHint() bool }
	return errors.As(err, &h) && h.IsHint()
}

// Is reports whether err is a hint whose chain contains target.
func Is(err, target error) bool {
	return IsHint(err) && errors.Is(err, target)
}
