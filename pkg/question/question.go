// Package question asks the user for confirmation before destructive or
// expensive steps.
package question

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/paulschiretz/pgl-press/pkg/plog"
	"github.com/paulschiretz/pgl-press/pkg/util"
)

// ErrNotInteractive is returned by Ask when there is no terminal to ask on.
var ErrNotInteractive = errors.New("no interactive terminal available")

// Policy decides whether the user is asked or a fixed answer is used.
type Policy string

const (
	Ask       Policy = "ask"
	AlwaysYes Policy = "yes"
	AlwaysNo  Policy = "no"
)

var policyToString = map[Policy]string{
	Ask:       "ask",
	AlwaysYes: "yes",
	AlwaysNo:  "no",
}

var stringToPolicy map[string]Policy

func init() {
	stringToPolicy = util.InvertMap(policyToString)
}

func (p Policy) String() string {
	if str, ok := policyToString[p]; ok {
		return str
	}
	return string(Ask)
}

// ParsePolicy parses a policy name. An empty string yields Ask.
func ParsePolicy(s string) (Policy, error) {
	if s == "" {
		return Ask, nil
	}
	if p, ok := stringToPolicy[strings.ToLower(s)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("invalid question policy: %q. Must be 'ask', 'yes', or 'no'", s)
}

// MarshalJSON implements the json.Marshaler interface.
func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("question policy should be a string, got %s", data)
	}
	policy, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = policy
	return nil
}

// Action is what the user is being asked to allow.
type Action int

const (
	// Compression asks to continue a compression with a costly side effect.
	Compression Action = iota
	// Overwrite asks to replace an existing file.
	Overwrite
)

func (a Action) prompt(path string) string {
	switch a {
	case Overwrite:
		return fmt.Sprintf("Do you want to overwrite %q?", path)
	default:
		return fmt.Sprintf("Do you want to continue compressing to %q?", path)
	}
}

// Asker prompts on an input/output pair. It is safe for concurrent use;
// prompts are serialized.
type Asker struct {
	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	interactive func() bool
}

// New returns an Asker reading answers from in and writing prompts to out.
// If in is an *os.File it must be a terminal; any other reader is treated
// as scripted input and always read.
func New(in io.Reader, out io.Writer) *Asker {
	return &Asker{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: func() bool { return IsInteractive(in) },
	}
}

// NewTerminal returns an Asker on stdin, prompting on stderr so prompts do
// not mix with data written to stdout.
func NewTerminal() *Asker {
	return New(os.Stdin, os.Stderr)
}

// IsInteractive reports whether answers can be read from in. CI
// environments are never interactive.
func IsInteractive(in io.Reader) bool {
	if os.Getenv("CI") != "" {
		return false
	}
	f, ok := in.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

// Ask prints prompt with a "[Y/n]" or "[y/N]" suffix and reads one answer.
// An empty answer selects defaultYes; end of input counts as no.
func (a *Asker) Ask(prompt string, defaultYes bool) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.interactive() {
		return false, ErrNotInteractive
	}

	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	if _, err := fmt.Fprintf(a.out, "%s %s: ", prompt, suffix); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		return false, nil
	}

	response := strings.ToLower(strings.TrimSpace(line))
	if response == "" {
		return defaultYes, nil
	}
	return response == "y" || response == "yes", nil
}

// Continue applies policy to action on path. With Ask and no terminal it
// answers no and tells the user how to proceed unattended.
func (a *Asker) Continue(path string, policy Policy, action Action) (bool, error) {
	switch policy {
	case AlwaysYes:
		return true, nil
	case AlwaysNo:
		return false, nil
	}

	ok, err := a.Ask(action.prompt(path), true)
	if errors.Is(err, ErrNotInteractive) {
		plog.Warn("Cannot ask for confirmation without a terminal, assuming no", "path", path, "hint", "pass -yes to proceed unattended")
		return false, nil
	}
	return ok, err
}
