package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Level is an optional compression level. The zero value means "use the
// codec's own default".
type Level struct {
	value int
	set   bool
}

// Default is the unset level.
var Default = Level{}

// NewLevel returns an explicit level. Out-of-range values are accepted here
// and clamped per codec when an encoder is built.
func NewLevel(n int) Level {
	return Level{value: n, set: true}
}

// Value returns the requested level and whether one was set.
func (l Level) Value() (int, bool) {
	return l.value, l.set
}

// IsSet reports whether an explicit level was requested.
func (l Level) IsSet() bool {
	return l.set
}

func (l Level) String() string {
	if !l.set {
		return "default"
	}
	return strconv.Itoa(l.value)
}

// ParseLevel parses a level from a flag or config value.
// An empty string or "default" yields the unset level.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "default") {
		return Default, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Default, fmt.Errorf("invalid compression level: %q. Must be an integer or 'default'", s)
	}
	return NewLevel(n), nil
}

// MarshalJSON implements the json.Marshaler interface. An unset level is null.
func (l Level) MarshalJSON() ([]byte, error) {
	if !l.set {
		return []byte("null"), nil
	}
	return json.Marshal(l.value)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// It accepts null, a number, or a numeric string.
func (l *Level) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = Default
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*l = NewLevel(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("compression level should be a number or null, got %s", data)
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
