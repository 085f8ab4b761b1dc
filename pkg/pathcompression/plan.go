package pathcompression

import (
	"github.com/paulschiretz/pgl-press/pkg/archive"
	"github.com/paulschiretz/pgl-press/pkg/codec"
	"github.com/paulschiretz/pgl-press/pkg/question"
)

type Plan struct {
	// Level applies to every codec in the sequence, clamped per codec.
	Level          codec.Level
	QuestionPolicy question.Policy
	Visibility     archive.Visibility

	// Global Flags
	Quiet   bool
	Metrics bool
}
