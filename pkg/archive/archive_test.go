package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/paulschiretz/pgl-press/pkg/codec"
	"github.com/paulschiretz/pgl-press/pkg/pathcompressionmetrics"
)

// createTestTree builds:
//
//	<tmp>/proj/.hidden
//	<tmp>/proj/a.txt
//	<tmp>/proj/debug.log
//	<tmp>/proj/link -> a.txt (when symlinks are available)
//	<tmp>/proj/sub/b.txt
func createTestTree(t *testing.T) (root string, hasLink bool) {
	t.Helper()
	tmp := t.TempDir()
	root = filepath.Join(tmp, "proj")

	files := map[string]string{
		".hidden":   "h",
		"a.txt":     "alpha",
		"debug.log": "noise",
		"sub/b.txt": "beta",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	hasLink = os.Symlink("a.txt", filepath.Join(root, "link")) == nil
	return root, hasLink
}

type archivedEntry struct {
	name    string
	content string
	link    string
}

func readTarEntries(t *testing.T, r io.Reader) []archivedEntry {
	t.Helper()
	var out []archivedEntry
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read tar: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("failed to read tar entry %s: %v", hdr.Name, err)
		}
		out = append(out, archivedEntry{name: hdr.Name, content: string(data), link: hdr.Linkname})
	}
	return out
}

func readZipEntries(t *testing.T, data []byte) []archivedEntry {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to open zip: %v", err)
	}
	var out []archivedEntry
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open zip entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read zip entry %s: %v", f.Name, err)
		}
		e := archivedEntry{name: f.Name}
		if f.Mode()&os.ModeSymlink != 0 {
			e.link = string(content)
		} else {
			e.content = string(content)
		}
		out = append(out, e)
	}
	return out
}

func entryNames(entries []archivedEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

func expectedNames(hasLink bool, extra ...string) []string {
	names := []string{"proj/", "proj/a.txt", "proj/debug.log"}
	if hasLink {
		names = append(names, "proj/link")
	}
	names = append(names, "proj/sub/", "proj/sub/b.txt")
	return append(names, extra...)
}

func TestBuildTar(t *testing.T) {
	root, hasLink := createTestTree(t)
	metrics := &pathcompressionmetrics.CompressionMetrics{}

	var buf bytes.Buffer
	err := BuildTar(context.Background(), []string{root}, "", &buf, Options{Quiet: true, Metrics: metrics})
	if err != nil {
		t.Fatalf("BuildTar failed: %v", err)
	}

	entries := readTarEntries(t, &buf)
	if got, want := entryNames(entries), expectedNames(hasLink); !slices.Equal(got, want) {
		t.Fatalf("unexpected entries:\n got: %v\nwant: %v", got, want)
	}
	for _, e := range entries {
		switch e.name {
		case "proj/a.txt":
			if e.content != "alpha" {
				t.Errorf("expected a.txt content 'alpha', got %q", e.content)
			}
		case "proj/sub/b.txt":
			if e.content != "beta" {
				t.Errorf("expected b.txt content 'beta', got %q", e.content)
			}
		case "proj/link":
			if e.link != "a.txt" {
				t.Errorf("expected link target 'a.txt', got %q", e.link)
			}
		}
	}

	if got := metrics.EntriesSkipped.Load(); got != 1 {
		t.Errorf("expected 1 skipped (hidden) entry, got %d", got)
	}
	if got := metrics.EntriesProcessed.Load(); got != int64(len(entries)) {
		t.Errorf("expected %d processed entries, got %d", len(entries), got)
	}
}

func TestBuildZip_MatchesTarEntries(t *testing.T) {
	root, _ := createTestTree(t)

	var tarBuf, zipBuf bytes.Buffer
	opts := Options{Quiet: true, Level: codec.NewLevel(42)}
	if err := BuildTar(context.Background(), []string{root}, "", &tarBuf, opts); err != nil {
		t.Fatalf("BuildTar failed: %v", err)
	}
	if err := BuildZip(context.Background(), []string{root}, "", &zipBuf, opts); err != nil {
		t.Fatalf("BuildZip failed: %v", err)
	}

	tarEntries := readTarEntries(t, &tarBuf)
	zipEntries := readZipEntries(t, zipBuf.Bytes())
	if !slices.Equal(tarEntries, zipEntries) {
		t.Errorf("zip and tar entries differ:\n tar: %v\n zip: %v", tarEntries, zipEntries)
	}
}

func TestBuildTar_Visibility(t *testing.T) {
	testCases := []struct {
		name       string
		visibility Visibility
		wantIn     []string
		wantOut    []string
	}{
		{
			name:       "Hidden Included",
			visibility: Visibility{ReadHidden: true},
			wantIn:     []string{"proj/.hidden", "proj/a.txt"},
		},
		{
			name:       "Suffix Exclusion",
			visibility: Visibility{Exclude: []string{"*.log"}},
			wantIn:     []string{"proj/a.txt"},
			wantOut:    []string{"proj/debug.log", "proj/.hidden"},
		},
		{
			name:       "Directory Exclusion",
			visibility: Visibility{Exclude: []string{"sub/"}},
			wantIn:     []string{"proj/a.txt"},
			wantOut:    []string{"proj/sub/", "proj/sub/b.txt"},
		},
		{
			name:       "Basename Literal Exclusion",
			visibility: Visibility{Exclude: []string{"B.TXT"}},
			wantIn:     []string{"proj/sub/"},
			wantOut:    []string{"proj/sub/b.txt"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root, _ := createTestTree(t)
			var buf bytes.Buffer
			if err := BuildTar(context.Background(), []string{root}, "", &buf, Options{Quiet: true, Visibility: tc.visibility}); err != nil {
				t.Fatalf("BuildTar failed: %v", err)
			}
			names := entryNames(readTarEntries(t, &buf))
			for _, n := range tc.wantIn {
				if !slices.Contains(names, n) {
					t.Errorf("expected %s in archive, got %v", n, names)
				}
			}
			for _, n := range tc.wantOut {
				if slices.Contains(names, n) {
					t.Errorf("expected %s to be excluded, got %v", n, names)
				}
			}
		})
	}
}

func TestBuildTar_ExplicitInputsAlwaysIncluded(t *testing.T) {
	root, _ := createTestTree(t)
	files := []string{filepath.Join(root, ".hidden"), filepath.Join(root, "debug.log")}

	var buf bytes.Buffer
	opts := Options{Quiet: true, Visibility: Visibility{Exclude: []string{"*.log"}}}
	if err := BuildTar(context.Background(), files, "", &buf, opts); err != nil {
		t.Fatalf("BuildTar failed: %v", err)
	}
	names := entryNames(readTarEntries(t, &buf))
	if want := []string{".hidden", "debug.log"}; !slices.Equal(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestBuildTar_SkipsOutputInsideInput(t *testing.T) {
	root, hasLink := createTestTree(t)
	outputPath := filepath.Join(root, "zz-out.tar")
	out, err := os.Create(outputPath)
	if err != nil {
		t.Fatalf("failed to create output: %v", err)
	}
	defer out.Close()

	if err := BuildTar(context.Background(), []string{root}, outputPath, out, Options{Quiet: true}); err != nil {
		t.Fatalf("BuildTar failed: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("failed to close output: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	names := entryNames(readTarEntries(t, bytes.NewReader(data)))
	if want := expectedNames(hasLink); !slices.Equal(names, want) {
		t.Errorf("unexpected entries:\n got: %v\nwant: %v", names, want)
	}
}

func TestBuildTar_Errors(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		err := BuildTar(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, "", io.Discard, Options{Quiet: true})
		if err == nil {
			t.Error("expected error for a missing input")
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		root, _ := createTestTree(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := BuildZip(ctx, []string{root}, "", io.Discard, Options{Quiet: true})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestExclusionSet(t *testing.T) {
	set := makeExclusionSet([]string{"node_modules", "*.tmp", "~*", "build/", "docs/config.json", "logs/*", "a?c.txt", "docs/draft_*"})

	testCases := []struct {
		name string
		want bool
	}{
		{"node_modules", true},
		{"web/node_modules", true},
		{"cache.TMP", true},
		{"dir/~lock", true},
		{"build", true},
		{"build/out.o", true},
		{"build-tools/x", false},
		{"docs/config.json", true},
		{"other/docs/config.json", false},
		{"logs/today.txt", true},
		{"logsx/today.txt", false},
		{"abc.txt", true},
		{"docs/draft_1.md", true},
		{"docs/final.md", false},
		{"main.go", false},
	}
	for _, tc := range testCases {
		if got := set.matches(tc.name); got != tc.want {
			t.Errorf("matches(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}

	empty := makeExclusionSet(nil)
	if !empty.empty() {
		t.Error("expected empty set for no patterns")
	}
}
