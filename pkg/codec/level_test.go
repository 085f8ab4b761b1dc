package codec

import (
	"encoding/json"
	"testing"

	"github.com/paulschiretz/pgl-press/pkg/format"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "", want: Default},
		{in: "default", want: Default},
		{in: " 7 ", want: NewLevel(7)},
		{in: "-3", want: NewLevel(-3)},
		{in: "fast", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLevel_JSON(t *testing.T) {
	var cfg struct {
		Level Level `json:"level"`
	}

	if err := json.Unmarshal([]byte(`{"level": null}`), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Level.IsSet() {
		t.Error("expected null to yield the default level")
	}

	if err := json.Unmarshal([]byte(`{"level": 19}`), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := cfg.Level.Value(); !ok || n != 19 {
		t.Errorf("expected level 19, got %v", cfg.Level)
	}

	if err := json.Unmarshal([]byte(`{"level": "4"}`), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := cfg.Level.Value(); n != 4 {
		t.Errorf("expected level 4, got %v", cfg.Level)
	}

	if err := json.Unmarshal([]byte(`{"level": true}`), &cfg); err == nil {
		t.Error("expected error for boolean level")
	}

	data, err := json.Marshal(NewLevel(5))
	if err != nil || string(data) != "5" {
		t.Errorf("Marshal(5) = %s, %v", data, err)
	}
	data, err = json.Marshal(Default)
	if err != nil || string(data) != "null" {
		t.Errorf("Marshal(default) = %s, %v", data, err)
	}
}

func TestEffective(t *testing.T) {
	testCases := []struct {
		name   string
		format format.Format
		level  Level
		want   int
	}{
		{"Gzip Default", format.Gzip, Default, 3},
		{"Gzip Too High", format.Gzip, NewLevel(12), 9},
		{"Gzip Too Low", format.Gzip, NewLevel(-4), 0},
		{"Bzip Zero Clamps To One", format.Bzip, NewLevel(0), 1},
		{"Bzip Default", format.Bzip, Default, 6},
		{"Lzma Default", format.Lzma, Default, 6},
		{"Lzma Too High", format.Lzma, NewLevel(10), 9},
		{"Snappy Too High", format.Snappy, NewLevel(42), 9},
		{"Zstd 25 Clamps To 22", format.Zstd, NewLevel(25), 22},
		{"Zstd Zero Clamps To One", format.Zstd, NewLevel(0), 1},
		{"Zstd Default", format.Zstd, Default, 3},
		{"Brotli Too High", format.Brotli, NewLevel(20), 11},
		{"Lz4 Unbounded", format.Lz4, NewLevel(25), 25},
		{"Lz4 Default", format.Lz4, Default, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Effective(tc.format, tc.level); got != tc.want {
				t.Errorf("Effective(%s, %v) = %d, want %d", tc.format, tc.level, got, tc.want)
			}
		})
	}
}

func TestClamp_IdempotentAndMonotonic(t *testing.T) {
	for f, r := range levelRanges {
		prev := r.Clamp(-1000)
		for n := -50; n <= 50; n++ {
			c := r.Clamp(n)
			if r.Clamp(c) != c {
				t.Errorf("%s: Clamp not idempotent at %d", f, n)
			}
			if c < prev {
				t.Errorf("%s: Clamp not monotonic at %d (%d < %d)", f, n, c, prev)
			}
			if n < r.Min && c != r.Clamp(r.Min) {
				t.Errorf("%s: %d below range should equal the minimum", f, n)
			}
			if n > r.Max && c != r.Clamp(r.Max) {
				t.Errorf("%s: %d above range should equal the maximum", f, n)
			}
			prev = c
		}
		if r.Default < r.Min || r.Default > r.Max {
			t.Errorf("%s: default %d outside [%d, %d]", f, r.Default, r.Min, r.Max)
		}
	}
}

func TestLevelRange_ArchiveAndLz4HaveNone(t *testing.T) {
	for _, f := range []format.Format{format.Lz4, format.Tar, format.Zip, format.Rar, format.SevenZip} {
		if _, ok := LevelRange(f); ok {
			t.Errorf("expected no level range for %s", f)
		}
	}
}
