package codec

import (
	"github.com/paulschiretz/pgl-press/pkg/format"
)

// Zstd levels follow the reference zstd numbering. The encoder maps them onto
// its own speed tiers with zstd.EncoderLevelFromZstd.
const (
	zstdMinLevel     = 1
	zstdMaxLevel     = 22
	zstdDefaultLevel = 3
)

// Range is the valid level domain of a codec and the level used when none
// is requested.
type Range struct {
	Min     int
	Max     int
	Default int
}

// Clamp moves n into [Min, Max].
func (r Range) Clamp(n int) int {
	return max(r.Min, min(n, r.Max))
}

// Resolve returns the effective level for a requested Level.
func (r Range) Resolve(l Level) int {
	if n, ok := l.Value(); ok {
		return r.Clamp(n)
	}
	return r.Default
}

// gzip defaults to 3 instead of the deflate default of 6.
var levelRanges = map[format.Format]Range{
	format.Gzip:   {Min: 0, Max: 9, Default: 3},
	format.Bzip:   {Min: 1, Max: 9, Default: 6},
	format.Lzma:   {Min: 0, Max: 9, Default: 6},
	format.Snappy: {Min: 0, Max: 9, Default: 3},
	format.Zstd:   {Min: zstdMinLevel, Max: zstdMaxLevel, Default: zstdDefaultLevel},
	format.Brotli: {Min: 0, Max: 11, Default: 6},
}

// LevelRange returns the level domain of f. The boolean is false for
// formats without an adjustable level (lz4 and the archive formats).
func LevelRange(f format.Format) (Range, bool) {
	r, ok := levelRanges[f]
	return r, ok
}

// Effective returns the level an encoder for f is built with. Formats
// without a level domain report the requested value unchanged, or 0.
func Effective(f format.Format, l Level) int {
	if r, ok := LevelRange(f); ok {
		return r.Resolve(l)
	}
	n, _ := l.Value()
	return n
}
