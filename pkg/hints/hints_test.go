package hints_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/paulschiretz/pgl-press/pkg/hints"
)

var errDeclined = errors.New("overwrite declined")

func TestWrapAndNew(t *testing.T) {
	if hints.Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	h := hints.New("compression aborted by user")
	if h == nil {
		t.Fatal("New should return a non-nil error")
	}
	if h.Error() != "compression aborted by user" {
		t.Errorf("unexpected message %q", h.Error())
	}

	w := hints.Wrap(errDeclined)
	if w.Error() != errDeclined.Error() {
		t.Errorf("Wrap should keep the message, got %q", w.Error())
	}
	if errors.Unwrap(w) != errDeclined {
		t.Error("Unwrap should return the wrapped error")
	}
}

func TestIsHint(t *testing.T) {
	hinted := hints.Wrap(errDeclined)

	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"Nil", nil, false},
		{"Plain Error", errDeclined, false},
		{"Wrapped Plain Error", fmt.Errorf("compress: %w", errDeclined), false},
		{"Hint", hinted, true},
		{"Hint From Message", hints.New("rar is not supported"), true},
		{"Hint Wrapped Once", fmt.Errorf("compress: %w", hinted), true},
		{"Hint Wrapped Twice", fmt.Errorf("cmd: %w", fmt.Errorf("compress: %w", hinted)), true},
		{"Hint Joined", errors.Join(errors.New("cleanup failed"), hinted), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := hints.IsHint(tc.err); got != tc.expected {
				t.Errorf("IsHint() = %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestIs(t *testing.T) {
	hinted := fmt.Errorf("compress: %w", hints.Wrap(errDeclined))

	if !hints.Is(hinted, errDeclined) {
		t.Error("expected hinted error to match its cause")
	}
	if hints.Is(errDeclined, errDeclined) {
		t.Error("a plain error is not a hint")
	}
	if hints.Is(hinted, errors.New("other")) {
		t.Error("unrelated target should not match")
	}
}

func TestAbortAndReasonOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected hints.Reason
	}{
		{"Nil", nil, hints.Unspecified},
		{"Plain Error", errDeclined, hints.Unspecified},
		{"New", hints.New("stopped"), hints.Unspecified},
		{"Declined", hints.Abort(hints.Declined, "out.zip exists"), hints.Declined},
		{"Unsupported Wrapped", fmt.Errorf("compress: %w", hints.Abort(hints.Unsupported, "rar")), hints.Unsupported},
		{"Joined", errors.Join(errors.New("cleanup failed"), hints.Abort(hints.Declined, "no")), hints.Declined},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := hints.ReasonOf(tc.err); got != tc.expected {
				t.Errorf("ReasonOf() = %s, want %s", got, tc.expected)
			}
		})
	}

	h := hints.Abort(hints.Unsupported, "rar archives cannot be created")
	if !hints.IsHint(h) || h.Error() != "rar archives cannot be created" {
		t.Errorf("unexpected abort hint: %v", h)
	}
	if hints.Reason(42).String() != "unknown_reason(42)" {
		t.Errorf("unexpected string for unknown reason: %s", hints.Reason(42))
	}
}
