package meta

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// writeFakeProbe creates an executable that mimics `mediainfo --Output=JSON <file>`
func writeFakeProbe(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake probe needs a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-mediainfo")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write fake probe: %v", err)
	}
	return path
}

func jsonProbe(t *testing.T, output string) string {
	t.Helper()
	return writeFakeProbe(t, `[ "$1" = "--Output=JSON" ] || exit 3
cat <<'EOF'
`+output+`
EOF`)
}

func TestExtractSingleFile(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, filepath.Join(dir, "Book.m4b"), []byte("audio"))
	createTestFile(t, filepath.Join(dir, "cover.jpg"), []byte("img"))

	extractor := New(&Config{Binary: jsonProbe(t, sampleMediaInfoJSON)})
	q := extractor.Extract(context.Background(), dir, "B000TEST")

	if q.ExternalID != "B000TEST" {
		t.Errorf("Expected external ID B000TEST, got %q", q.ExternalID)
	}
	if q.ContainerFormat != "m4b" {
		t.Errorf("Expected format m4b (from extension, not probe), got %q", q.ContainerFormat)
	}
	if q.BitrateKbps != 127 {
		t.Errorf("Expected 127 kbps (127999 bps integer-divided), got %d", q.BitrateKbps)
	}
	if q.SampleRateHz != 44100 {
		t.Errorf("Expected 44100 Hz, got %d", q.SampleRateHz)
	}
	if q.DurationSec != 36000 {
		t.Errorf("Expected 36000 s (rounded down), got %d", q.DurationSec)
	}
	if !q.HasChapterMarkers {
		t.Error("Expected chapter markers")
	}
	if !q.IsStereo {
		t.Error("Expected stereo")
	}
	if q.LanguageCode != "en" {
		t.Errorf("Expected language en, got %q", q.LanguageCode)
	}
	if q.SourcePath != filepath.Join(dir, "Book.m4b") {
		t.Errorf("Unexpected source path %q", q.SourcePath)
	}
}

func TestExtractMonoWithoutChannels(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, filepath.Join(dir, "Book.mp3"), []byte("audio"))

	output := `{"media":{"track":[
		{"@type":"General","Duration":"3600.9","OverallBitRate":"64000"},
		{"@type":"Audio","SamplingRate":"22050"}
	]}}`

	q := New(&Config{Binary: jsonProbe(t, output)}).Extract(context.Background(), dir, "X")

	if q.IsStereo {
		t.Error("Missing channel count must default to mono")
	}
	if q.BitrateKbps != 64 {
		t.Errorf("Expected General OverallBitRate fallback of 64 kbps, got %d", q.BitrateKbps)
	}
	if q.DurationSec != 3600 {
		t.Errorf("Expected 3600 s, got %d", q.DurationSec)
	}
	if q.HasChapterMarkers {
		t.Error("Expected no chapter markers")
	}
}

func TestExtractMultiFileShortCircuits(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, filepath.Join(dir, "Part 1.m4b"), []byte("a"))
	createTestFile(t, filepath.Join(dir, "Part 2.m4b"), []byte("b"))

	// Probe available or not, a multi-file folder is never measured
	for _, binary := range []string{jsonProbe(t, sampleMediaInfoJSON), "/nonexistent/mediainfo"} {
		q := New(&Config{Binary: binary}).Extract(context.Background(), dir, "B000TEST")

		if q.ContainerFormat != "" || q.BitrateKbps != 0 || q.SampleRateHz != 0 || q.DurationSec != 0 {
			t.Errorf("Expected minimal record for multi-file folder, got %+v", q)
		}
		if q.ExternalID != "B000TEST" || q.SourcePath != dir {
			t.Errorf("Expected identity and folder path, got %+v", q)
		}
	}
}

func TestExtractEmptyFolder(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, filepath.Join(dir, "cover.jpg"), []byte("img"))

	q := New(&Config{Binary: jsonProbe(t, sampleMediaInfoJSON)}).Extract(context.Background(), dir, "B000TEST")

	if q.ContainerFormat != "" {
		t.Errorf("Expected no format for folder without audio, got %q", q.ContainerFormat)
	}
}

func TestExtractDegradesToFormatOnly(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, filepath.Join(dir, "Book.opus"), []byte("audio"))

	tests := []struct {
		name   string
		binary func(t *testing.T) string
	}{
		{
			name:   "missing binary",
			binary: func(t *testing.T) string { return filepath.Join(t.TempDir(), "no-such-probe") },
		},
		{
			name:   "non-zero exit",
			binary: func(t *testing.T) string { return writeFakeProbe(t, `echo "boom" >&2; exit 1`) },
		},
		{
			name:   "unparsable output",
			binary: func(t *testing.T) string { return writeFakeProbe(t, `echo "General / Audio"`) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(&Config{Binary: tt.binary(t)}).Extract(context.Background(), dir, "X")

			if q.ContainerFormat != "opus" {
				t.Errorf("Expected format opus, got %q", q.ContainerFormat)
			}
			if q.BitrateKbps != 0 || q.SampleRateHz != 0 || q.DurationSec != 0 || q.IsStereo || q.HasChapterMarkers {
				t.Errorf("Expected only container format, got %+v", q)
			}
		})
	}
}

func TestExtractTimeout(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, filepath.Join(dir, "Book.m4a"), []byte("audio"))

	binary := writeFakeProbe(t, "exec sleep 10")
	extractor := New(&Config{Binary: binary, Timeout: 200 * time.Millisecond})

	start := time.Now()
	q := extractor.Extract(context.Background(), dir, "X")
	elapsed := time.Since(start)

	if elapsed > 5*time.Second {
		t.Errorf("Extract did not honor timeout, took %v", elapsed)
	}
	if q.ContainerFormat != "m4a" || q.BitrateKbps != 0 {
		t.Errorf("Expected format-only record after timeout, got %+v", q)
	}
}

func TestNewCapsTimeout(t *testing.T) {
	e := New(&Config{Binary: "/bin/true", Timeout: time.Hour})
	if e.timeout != MaxProbeTimeout {
		t.Errorf("Expected timeout capped at %v, got %v", MaxProbeTimeout, e.timeout)
	}

	e = New(&Config{Binary: "/bin/true"})
	if e.timeout != MaxProbeTimeout {
		t.Errorf("Expected default timeout %v, got %v", MaxProbeTimeout, e.timeout)
	}
}
