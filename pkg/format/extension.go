package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownExtension is returned when a path does not end in a known extension.
var ErrUnknownExtension = errors.New("unknown compression extension")

// extensionToFormats maps a single lower-case extension (without the dot) to
// the tokens it stands for, innermost first. Shorthands expand to tar + codec.
var extensionToFormats = map[string][]Format{
	"tar":   {Tar},
	"zip":   {Zip},
	"rar":   {Rar},
	"7z":    {SevenZip},
	"gz":    {Gzip},
	"bz":    {Bzip},
	"bz2":   {Bzip},
	"lz4":   {Lz4},
	"xz":    {Lzma},
	"lzma":  {Lzma},
	"sz":    {Snappy},
	"zst":   {Zstd},
	"br":    {Brotli},
	"tgz":   {Tar, Gzip},
	"tbz":   {Tar, Bzip},
	"tbz2":  {Tar, Bzip},
	"tlz4":  {Tar, Lz4},
	"txz":   {Tar, Lzma},
	"tlzma": {Tar, Lzma},
	"tsz":   {Tar, Snappy},
	"tzst":  {Tar, Zstd},
}

// FromPath derives the format sequence from the trailing extensions of path,
// innermost first. "out.tar.gz.zst" yields [tar gzip zstd]; "notes.txt.gz"
// yields [gzip] because scanning stops at the first unknown extension.
func FromPath(path string) ([]Format, error) {
	parts := strings.Split(filepath.Base(path), ".")
	// parts[0] is the stem and never an extension, even for "gz" or ".gz".
	var reversed [][]Format
	for i := len(parts) - 1; i >= 1; i-- {
		formats, ok := extensionToFormats[strings.ToLower(parts[i])]
		if !ok {
			break
		}
		reversed = append(reversed, formats)
	}
	if len(reversed) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, path)
	}

	var seq []Format
	for i := len(reversed) - 1; i >= 0; i-- {
		seq = append(seq, reversed[i]...)
	}
	if err := Validate(seq); err != nil {
		return nil, fmt.Errorf("invalid extension chain in %q: %w", path, err)
	}
	return seq, nil
}

// Extension returns the canonical file extension (with leading dot) for f.
func (f Format) Extension() string {
	switch f {
	case Gzip:
		return ".gz"
	case Bzip:
		return ".bz2"
	case Lzma:
		return ".xz"
	case Snappy:
		return ".sz"
	case Zstd:
		return ".zst"
	case Brotli:
		return ".br"
	}
	if _, ok := formatToString[f]; ok {
		return "." + string(f)
	}
	return ""
}
