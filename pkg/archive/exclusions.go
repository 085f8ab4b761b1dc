package archive

import (
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-press/pkg/plog"
)

type exclusionMatchType int

const (
	literalMatch exclusionMatchType = iota
	prefixMatch
	suffixMatch
	globMatch
)

// exclusionSet holds the categorized exclusion patterns for efficient matching.
type exclusionSet struct {
	// literals are exact matches against the full entry name.
	literals map[string]struct{}
	// basenameLiterals are exact basename matches (e.g., "node_modules").
	basenameLiterals map[string]struct{}
	// nonLiterals need wildcard, prefix or suffix logic.
	nonLiterals []exclusion
}

type exclusion struct {
	pattern       string
	cleanPattern  string
	matchType     exclusionMatchType
	matchBasename bool
	// dirPrefix marks "build/" and "build/*": a prefix that must end at a path separator.
	dirPrefix bool
}

// makeExclusionSet analyzes and categorizes patterns so matching stays cheap
// on large trees. A pattern without a "/" is matched against the basename,
// like .gitignore does.
func makeExclusionSet(patterns []string) exclusionSet {
	set := exclusionSet{
		literals:         make(map[string]struct{}),
		basenameLiterals: make(map[string]struct{}),
		nonLiterals:      make([]exclusion, 0, len(patterns)),
	}

	shouldMatchBasename := func(p string) bool { return !strings.Contains(p, "/") }

	for _, p := range patterns {
		p = normalizeExclusionPattern(p)
		if p == "" {
			continue
		}
		switch {
		case strings.ContainsAny(p, "*?[]"):
			switch {
			case strings.HasSuffix(p, "/*"):
				// "build/*" excludes everything below build/.
				set.nonLiterals = append(set.nonLiterals, exclusion{
					pattern: p, cleanPattern: strings.TrimSuffix(p, "/*"), matchType: prefixMatch, dirPrefix: true,
				})
			case strings.HasSuffix(p, "*") && !strings.ContainsAny(p[:len(p)-1], "*?[]"):
				// "~*" or "temp_*"
				set.nonLiterals = append(set.nonLiterals, exclusion{
					pattern: p, cleanPattern: strings.TrimSuffix(p, "*"), matchType: prefixMatch, matchBasename: shouldMatchBasename(p),
				})
			case strings.HasPrefix(p, "*") && !strings.ContainsAny(p[1:], "*?[]"):
				// "*.log"
				set.nonLiterals = append(set.nonLiterals, exclusion{
					pattern: p, cleanPattern: p[1:], matchType: suffixMatch, matchBasename: shouldMatchBasename(p),
				})
			default:
				set.nonLiterals = append(set.nonLiterals, exclusion{
					pattern: p, cleanPattern: p, matchType: globMatch, matchBasename: shouldMatchBasename(p),
				})
			}
		case strings.HasSuffix(p, "/"):
			// "build/" is a full-path directory prefix.
			set.nonLiterals = append(set.nonLiterals, exclusion{
				pattern: p, cleanPattern: strings.TrimSuffix(p, "/"), matchType: prefixMatch, dirPrefix: true,
			})
		case shouldMatchBasename(p):
			set.basenameLiterals[p] = struct{}{}
		default:
			set.literals[p] = struct{}{}
		}
	}
	return set
}

func (es *exclusionSet) empty() bool {
	return len(es.literals) == 0 && len(es.basenameLiterals) == 0 && len(es.nonLiterals) == 0
}

// matches checks if an entry name (slash separated) matches any pattern.
func (es *exclusionSet) matches(name string) bool {
	normalizedPath := normalizeExclusionPattern(name)
	normalizedBasename := normalizeExclusionPattern(filepath.Base(name))

	if _, ok := es.literals[normalizedPath]; ok {
		return true
	}
	if _, ok := es.basenameLiterals[normalizedBasename]; ok {
		return true
	}

	for _, p := range es.nonLiterals {
		pathToCheck := normalizedPath
		if p.matchBasename {
			pathToCheck = normalizedBasename
		}

		switch p.matchType {
		case prefixMatch:
			if !strings.HasPrefix(pathToCheck, p.cleanPattern) {
				continue
			}
			// Directory prefixes must not match "build-tools" for "build/".
			if p.dirPrefix && pathToCheck != p.cleanPattern && !strings.HasPrefix(pathToCheck, p.cleanPattern+"/") {
				continue
			}
			return true
		case suffixMatch:
			if strings.HasSuffix(pathToCheck, p.cleanPattern) {
				return true
			}
		case globMatch:
			match, err := filepath.Match(p.cleanPattern, pathToCheck)
			if err != nil {
				plog.Warn("Invalid exclusion pattern", "pattern", p.cleanPattern, "error", err)
				continue
			}
			if match {
				return true
			}
		}
	}
	return false
}

// normalizeExclusionPattern converts a path or pattern into a standardized,
// case-insensitive key format (forward slashes, lowercase).
func normalizeExclusionPattern(p string) string {
	return strings.ToLower(filepath.ToSlash(p))
}
