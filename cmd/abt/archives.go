package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/audiobook-trumper/internal/archive"
	"github.com/franz/audiobook-trumper/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "List archived folders, newest first",
	Long: `List every folder under the archive root that carries a provenance
sidecar. Folders without a readable sidecar are skipped with a warning.

The path shown is what 'abt restore' takes.`,
	Args: cobra.NoArgs,
	RunE: runArchives,
}

func init() {
	rootCmd.AddCommand(archivesCmd)

	archivesCmd.Flags().String("id", "", "only show archives of this external identifier")
	archivesCmd.Flags().Bool("sizes", false, "show folder sizes (walks every archive)")
}

func runArchives(cmd *cobra.Command, args []string) error {
	externalID, _ := cmd.Flags().GetString("id")
	showSizes, _ := cmd.Flags().GetBool("sizes")

	prefs, err := loadPreferences()
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	if strings.TrimSpace(prefs.ArchiveRoot) == "" {
		return archive.ErrMissingArchiveRoot
	}

	records, err := archive.Discover(prefs.ArchiveRoot, externalID)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		util.InfoLog("No archives found under %s", prefs.ArchiveRoot)
		return nil
	}

	var sizes []int64
	if showSizes {
		sizes = measureArchives(records)
	}

	width := util.GetTerminalWidth()

	for i, rec := range records {
		line := fmt.Sprintf("%-14s %-16s %s", rec.ExternalID(), humanize.Time(rec.ArchivedAt.Time), rec.Decision)
		if showSizes {
			line += "  " + humanize.Bytes(uint64(sizes[i]))
		}
		fmt.Println(line)
		fmt.Printf("  %s\n", fitWidth(rec.Path, width-2))
		if rec.Reason != "" {
			fmt.Printf("  %s\n", fitWidth(rec.Reason, width-2))
		}
	}

	util.InfoLog("%d archive(s)", len(records))
	return nil
}

// measureArchives sizes every archive, with a progress bar on a terminal
func measureArchives(records []*archive.Record) []int64 {
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Measuring"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	sizes := make([]int64, len(records))
	for i, rec := range records {
		sizes[i] = folderSize(rec.Path)
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return sizes
}

// folderSize sums regular file sizes, ignoring unreadable entries
func folderSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

// fitWidth shortens s from the middle to fit a terminal line
func fitWidth(s string, width int) string {
	runes := []rune(s)
	if width < 20 || len(runes) <= width {
		return s
	}
	keep := (width - 3) / 2
	return string(runes[:keep]) + "..." + string(runes[len(runes)-keep:])
}
