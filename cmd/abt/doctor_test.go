package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/franz/audiobook-trumper/internal/store"
)

func TestCheckProbe_Missing(t *testing.T) {
	result := checkProbe(filepath.Join(t.TempDir(), "no-such-mediainfo"))

	// A missing probe degrades comparison; it is never fatal
	if result.error {
		t.Errorf("missing probe should warn, not error: %s", result.message)
	}
	if !result.warning {
		t.Error("expected warning for missing probe")
	}
}

func TestCheckProbe_FakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script probe")
	}

	script := filepath.Join(t.TempDir(), "mediainfo")
	body := "#!/bin/sh\necho 'MediaInfo Command line,'\necho 'MediaInfoLib - v23.04'\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("failed to write fake probe: %v", err)
	}

	result := checkProbe(script)

	if result.error || result.warning {
		t.Fatalf("fake probe check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "version 23.04") {
		t.Errorf("expected version in message, got %q", result.message)
	}
}

func TestProbeVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"MediaInfo Command line,\nMediaInfoLib - v24.06\n", "version 24.06"},
		{"something else", "version unknown"},
		{"", "version unknown"},
	}

	for _, tt := range tests {
		if got := probeVersion(tt.output); got != tt.want {
			t.Errorf("probeVersion(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}
	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("non-existent database check should not error: %s", result.message)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("doctor should not create the database")
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := db.InsertDecision(&store.DecisionRecord{
		RunID:        "run",
		ExternalID:   "B001",
		ExistingPath: "/lib/a",
		IncomingPath: "/in/a",
		Decision:     "keep_existing",
	}); err != nil {
		t.Fatalf("failed to insert decision: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("database check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "1 decisions") {
		t.Errorf("expected decision count in message, got %q", result.message)
	}
}

func TestCheckDatabase_Empty(t *testing.T) {
	result := checkDatabase("")

	if !result.warning {
		t.Error("expected warning for empty database path")
	}
}

func TestCheckDatabase_Directory(t *testing.T) {
	result := checkDatabase(t.TempDir())

	if !result.error {
		t.Error("expected error when database path is a directory")
	}
}

func TestCheckArchiveRoot(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(filePath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"writable", tmpDir, false},
		{"not yet created", filepath.Join(tmpDir, "archive"), false},
		{"file", filePath, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkArchiveRoot(tt.path)
			if result.error != tt.wantError {
				t.Errorf("error = %v, want %v (%s)", result.error, tt.wantError, result.message)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "archive")); !os.IsNotExist(err) {
		t.Error("doctor should not create the archive root")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ".abt_write_test")); !os.IsNotExist(err) {
		t.Error("write test file left behind")
	}
}

func TestCheckSameFilesystem(t *testing.T) {
	tmpDir := t.TempDir()
	library := filepath.Join(tmpDir, "library")
	if err := os.Mkdir(library, 0755); err != nil {
		t.Fatalf("failed to create library: %v", err)
	}

	result := checkSameFilesystem(library, filepath.Join(tmpDir, "archive"))

	if result.error || result.warning {
		t.Errorf("sibling directories should share a filesystem: %s", result.message)
	}
}

func TestCheckNetwork_Local(t *testing.T) {
	result := checkNetwork(t.TempDir(), "test")

	if result.error {
		t.Errorf("network check should never error: %s", result.message)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := checkDiskSpace(t.TempDir(), "test")

	if result.error {
		t.Errorf("disk space check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "available") {
		t.Errorf("expected disk space info, got %q", result.message)
	}
}

func TestCheckDiskSpace_NonExistent(t *testing.T) {
	result := checkDiskSpace("/nonexistent/path", "test")

	if !result.warning {
		t.Error("expected warning for non-existent path")
	}
}
