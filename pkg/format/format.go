// Package format defines the archive and codec tokens that make up a chained
// output extension such as ".tar.gz.zst", and the rules for how they nest.
package format

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulschiretz/pgl-press/pkg/util"
)

// Format identifies one archive or compression scheme in a chained extension.
type Format string

const (
	Tar      Format = "tar"
	Zip      Format = "zip"
	Rar      Format = "rar"
	SevenZip Format = "7z"
	Gzip     Format = "gzip"
	Bzip     Format = "bzip"
	Lz4      Format = "lz4"
	Lzma     Format = "lzma"
	Snappy   Format = "snappy"
	Zstd     Format = "zstd"
	Brotli   Format = "brotli"
)

var (
	// ErrEmptySequence is returned when a format sequence has no tokens.
	ErrEmptySequence = errors.New("empty format sequence")
	// ErrArchiveNotInnermost is returned when an archive token is used as a wrapping layer.
	ErrArchiveNotInnermost = errors.New("archive format may only be the innermost format")
)

var formatToString = map[Format]string{
	Tar:      "tar",
	Zip:      "zip",
	Rar:      "rar",
	SevenZip: "7z",
	Gzip:     "gzip",
	Bzip:     "bzip",
	Lz4:      "lz4",
	Lzma:     "lzma",
	Snappy:   "snappy",
	Zstd:     "zstd",
	Brotli:   "brotli",
}

var stringToFormat map[string]Format

func init() {
	stringToFormat = util.InvertMap(formatToString)
}

func (f Format) String() string {
	if str, ok := formatToString[f]; ok {
		return str
	}
	return fmt.Sprintf("unknown_format(%s)", string(f))
}

// ParseFormat parses a token name such as "gzip" or "7z".
func ParseFormat(s string) (Format, error) {
	if f, ok := stringToFormat[s]; ok {
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %q", s)
}

// IsArchive reports whether f serializes a file tree rather than a byte stream.
// Archive formats can only ever be the innermost element of a sequence.
func (f Format) IsArchive() bool {
	switch f {
	case Tar, Zip, Rar, SevenZip:
		return true
	}
	return false
}

// Validate checks that seq is non-empty, every token is known, and archive
// tokens only appear at index 0.
func Validate(seq []Format) error {
	if len(seq) == 0 {
		return ErrEmptySequence
	}
	for i, f := range seq {
		if _, ok := formatToString[f]; !ok {
			return fmt.Errorf("invalid format at position %d: %q", i, string(f))
		}
		if i > 0 && f.IsArchive() {
			return fmt.Errorf("%w: %s at position %d", ErrArchiveNotInnermost, f, i)
		}
	}
	return nil
}

// Split validates seq and returns its innermost token together with the
// remaining wrapping layers, ordered innermost to outermost.
func Split(seq []Format) (first Format, rest []Format, err error) {
	if err := Validate(seq); err != nil {
		return "", nil, err
	}
	return seq[0], seq[1:], nil
}

// MarshalJSON implements the json.Marshaler interface for Format.
func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Format.
func (f *Format) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("format should be a string, got %s", data)
	}
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
