package util

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestWithUserWritePermission(t *testing.T) {
	testCases := []struct {
		name     string
		input    os.FileMode
		expected os.FileMode
	}{
		{
			name:     "Read-only permission",
			input:    0444, // r--r--r--
			expected: 0644, // rw-r--r--
		},
		{
			name:     "Already has write permission",
			input:    0755, // rwxr-xr-x
			expected: 0755, // rwxr-xr-x (should not change)
		},
		{
			name:     "No permissions",
			input:    0000, // ---------
			expected: 0200, // -w-------
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := WithUserWritePermission(tc.input)
			if result != tc.expected {
				t.Errorf("expected permission %o, but got %o", tc.expected, result)
			}
		})
	}
}

func TestIsHidden(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{".git", true},
		{"dir/.env", true},
		{"visible.txt", false},
		{"dir/.hidden/file.txt", false}, // Only the base name counts.
		{".", false},
		{"..", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			if got := IsHidden(tc.path); got != tc.expected {
				t.Errorf("IsHidden(%q) = %v, want %v", tc.path, got, tc.expected)
			}
		})
	}
}

func TestSamePath(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	if !SamePath("a/../b.txt", "b.txt") {
		t.Error("expected cleaned relative paths to match")
	}
	if !SamePath(filepath.Join(wd, "b.txt"), "b.txt") {
		t.Error("expected absolute and relative forms of the same path to match")
	}
	if SamePath("a.txt", "b.txt") {
		t.Error("expected different paths not to match")
	}
}

func TestInvertMap(t *testing.T) {
	inv := InvertMap(map[int]string{1: "one", 2: "two"})
	if inv["one"] != 1 || inv["two"] != 2 || len(inv) != 2 {
		t.Errorf("unexpected inverted map: %v", inv)
	}
}

func TestMergeAndDeduplicate(t *testing.T) {
	testCases := []struct {
		name     string
		inputs   [][]string
		expected []string
	}{
		{"No Input", nil, nil},
		{"Single Slice", [][]string{{"a", "b"}}, []string{"a", "b"}},
		{"Keeps First Occurrence Order", [][]string{{"*.tmp", "Thumbs.db"}, {"*.log", "*.tmp"}}, []string{"*.tmp", "Thumbs.db", "*.log"}},
		{"Duplicates Within One Slice", [][]string{{"x", "x", "y"}}, []string{"x", "y"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := MergeAndDeduplicate(tc.inputs...)
			if !slices.Equal(got, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}
