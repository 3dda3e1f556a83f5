package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/audiobook-trumper/internal/meta"
	"github.com/franz/audiobook-trumper/internal/store"
	"github.com/franz/audiobook-trumper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure abt can operate correctly.

This command checks:
- The mediainfo probe (without it only container formats are compared)
- SQLite version and ledger integrity
- Preferences in the config file
- Archive root writability and free space
- Archive root and library root on the same filesystem
- Network mounts, where renames may be slow or non-atomic`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().String("library", "", "library root to check (default: library_root from config)")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== abt doctor ===")

	results := []checkResult{
		checkProbe(viper.GetString("probe.binary")),
		checkSQLite(),
		checkDatabase(viper.GetString("db")),
	}

	prefs, err := loadPreferences()
	if err != nil {
		results = append(results, checkResult{name: "Preferences", error: true, message: err.Error()})
	} else {
		results = append(results, checkResult{name: "Preferences", message: fmt.Sprintf("%s policy", prefs.Aggressiveness)})
	}

	libraryRoot, _ := cmd.Flags().GetString("library")
	if libraryRoot == "" {
		libraryRoot = viper.GetString("library_root")
	}

	if prefs != nil && prefs.ArchiveRoot != "" {
		results = append(results, checkArchiveRoot(prefs.ArchiveRoot))
		results = append(results, checkNetwork(prefs.ArchiveRoot, "archive root"))
		results = append(results, checkDiskSpace(prefs.ArchiveRoot, "archive root"))
		if libraryRoot != "" {
			results = append(results, checkSameFilesystem(libraryRoot, prefs.ArchiveRoot))
		}
	} else {
		results = append(results, checkResult{
			name:    "Archive root",
			warning: true,
			message: "trump.archive_root not set (required for --archive and restore)",
		})
	}

	if libraryRoot != "" {
		results = append(results, checkNetwork(libraryRoot, "library root"))
	}

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	if hasErrors {
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before archiving.")
	} else {
		util.SuccessLog("All checks passed.")
	}

	return nil
}

// checkProbe verifies the mediainfo binary runs. A missing probe only
// warns: comparison still works on container formats.
func checkProbe(configured string) checkResult {
	binary := meta.ResolveProbeBinary(configured)
	if binary == "" {
		return checkResult{
			name:    "mediainfo",
			warning: true,
			message: "not found in PATH (comparison limited to container format)",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "--Version").CombinedOutput()
	if err != nil {
		return checkResult{
			name:    "mediainfo",
			warning: true,
			message: fmt.Sprintf("%s not executable: %v", binary, err),
		}
	}

	return checkResult{
		name:    "mediainfo",
		message: fmt.Sprintf("%s (%s)", probeVersion(string(output)), binary),
	}
}

// probeVersion pulls "v23.04" out of "MediaInfoLib - v23.04"
func probeVersion(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if i := strings.LastIndex(line, " - v"); i >= 0 {
			return "version " + strings.TrimSpace(line[i+4:])
		}
	}
	return "version unknown"
}

func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies the ledger opens and passes an integrity check
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Ledger",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Ledger",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Ledger",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Ledger",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Ledger",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Ledger",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	decisions, _ := db.ListDecisions("", 0)

	return checkResult{
		name:    "Ledger",
		message: fmt.Sprintf("%s (%s, %d decisions)", dbPath, humanize.Bytes(uint64(info.Size())), len(decisions)),
	}
}

// checkArchiveRoot verifies the archive root is a writable directory.
// A missing root is fine: the first archive creates it.
func checkArchiveRoot(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Archive root",
				message: fmt.Sprintf("%s (will be created on first archive)", path),
			}
		}
		return checkResult{
			name:    "Archive root",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Archive root",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".abt_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Archive root",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Archive root",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkSameFilesystem verifies archiving can use a plain rename
func checkSameFilesystem(libraryRoot, archiveRoot string) checkResult {
	same, err := util.IsSameFilesystem(libraryRoot, archiveRoot)
	if err != nil {
		return checkResult{
			name:    "Same filesystem",
			warning: true,
			message: fmt.Sprintf("cannot determine: %v", err),
		}
	}
	if !same {
		return checkResult{
			name:    "Same filesystem",
			error:   true,
			message: fmt.Sprintf("%s and %s are on different filesystems; archiving will refuse to move", libraryRoot, archiveRoot),
		}
	}
	return checkResult{name: "Same filesystem", message: "library and archive root share a device"}
}

func checkNetwork(path, label string) checkResult {
	name := fmt.Sprintf("Network (%s)", label)

	info, err := util.DetectNetworkFilesystem(path)
	if err != nil {
		return checkResult{
			name:    name,
			warning: true,
			message: fmt.Sprintf("cannot determine: %v", err),
		}
	}
	if info.IsNetwork {
		return checkResult{
			name:    name,
			warning: true,
			message: fmt.Sprintf("%s is on %s (mounted at %s); renames may be slow", path, info.Protocol, info.MountPath),
		}
	}
	return checkResult{name: name, message: "local"}
}

// checkDiskSpace reports free space on the volume holding path
func checkDiskSpace(path string, label string) checkResult {
	name := fmt.Sprintf("Disk space (%s)", label)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    name,
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)

	// Archiving renames in place, so only the sidecars need room
	warning := availBytes < 100*1024*1024
	msg := fmt.Sprintf("%s available of %s", humanize.Bytes(availBytes), humanize.Bytes(totalBytes))
	if warning {
		msg += " (low space!)"
	}

	return checkResult{
		name:    name,
		warning: warning,
		message: msg,
	}
}
