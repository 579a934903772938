package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSweepRenderCache(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []struct {
		path string
		data string
	}{
		{filepath.Join("dot", "aaaa.svg"), "<svg>aaaa</svg>"},
		{filepath.Join("dot", "aaaa.svg.expires"), "1234567890"},
		{filepath.Join("neato", "bbbb.svg"), "<svg>bb</svg>"},
		{"notes.txt", "not a cache entry"},
	} {
		path := filepath.Join(dir, f.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(f.data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	renders, reclaimed, err := sweepRenderCache(dir)
	if err != nil {
		t.Fatalf("sweepRenderCache: %v", err)
	}
	if renders != 2 {
		t.Errorf("renders = %d, want 2", renders)
	}
	if want := int64(len("<svg>aaaa</svg>") + len("<svg>bb</svg>")); reclaimed != want {
		t.Errorf("reclaimed = %d, want %d", reclaimed, want)
	}

	// Artifacts and sidecars are gone, unrelated files are untouched.
	if _, err := os.Stat(filepath.Join(dir, "dot")); !os.IsNotExist(err) {
		t.Error("expected empty layout directory to be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("unrelated file should survive the sweep: %v", err)
	}
}

func TestSweepRenderCacheMissingDir(t *testing.T) {
	renders, reclaimed, err := sweepRenderCache(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("sweepRenderCache: %v", err)
	}
	if renders != 0 || reclaimed != 0 {
		t.Errorf("expected nothing swept, got %d renders / %d bytes", renders, reclaimed)
	}
}

func TestHumanBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tc := range cases {
		if got := humanBytes(tc.in); got != tc.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
