package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/franz/audiobook-trumper/internal/meta"
	"github.com/franz/audiobook-trumper/internal/store"
	"github.com/franz/audiobook-trumper/internal/trump"
	"github.com/franz/audiobook-trumper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <folder>",
	Short: "Show the measured quality and tags of a book folder",
	Long: `Show what a comparison would see for one folder: the audio files it
holds, the quality record extracted from its single audio file, the
own-tags found in its name, and the embedded tags for reference.

Tags are informational only and never influence a decision.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("id", "", "external identifier to stamp on the record")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	externalID, _ := cmd.Flags().GetString("id")

	folder, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	info, err := os.Stat(folder)
	if err != nil {
		return fmt.Errorf("folder %s: %w", folder, util.ErrNotFound)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", folder, util.ErrNotFound)
	}

	logger := openEventLogger(store.NewRunID())
	defer logger.Close()

	files := meta.AudioFiles(folder)
	fmt.Printf("Folder:      %s\n", folder)
	fmt.Printf("Audio files: %d\n", len(files))
	for _, f := range files {
		fmt.Printf("  %s\n", filepath.Base(f))
	}
	if tags := trump.FolderTags(folder); len(tags) > 0 {
		fmt.Printf("Name tags:   %v\n", tags)
	}

	if len(files) != 1 {
		fmt.Println("Not comparable: a comparison needs exactly one audio file")
		return nil
	}

	extractor := meta.New(&meta.Config{
		Binary:  viper.GetString("probe.binary"),
		Timeout: viper.GetDuration("probe.timeout"),
		Logger:  logger,
	})
	q := extractor.Extract(ctx, folder, externalID)

	fmt.Println()
	if probe := extractor.Binary(); probe != "" {
		fmt.Printf("Probe:       %s\n", probe)
	} else {
		fmt.Println("Probe:       unavailable (container format only)")
	}
	fmt.Printf("Quality:     %s\n", describeQuality(q))
	fmt.Printf("  tier:      %d\n", trump.FormatTier(q.ContainerFormat))
	if q.Abridged != nil {
		fmt.Printf("  abridged:  %t\n", *q.Abridged)
	}

	tags, err := meta.ReadTags(files[0])
	if err != nil {
		util.DebugLog("No tags for %s: %v", files[0], err)
		return nil
	}

	fmt.Println()
	fmt.Printf("Tags (%s):\n", tags.FileType)
	printTag("title", tags.Title)
	printTag("album", tags.Album)
	printTag("artist", tags.Artist)
	printTag("composer", tags.Composer)
	if tags.Year > 0 {
		printTag("year", fmt.Sprint(tags.Year))
	}
	printTag("comment", tags.Comment)
	return nil
}

func printTag(name, value string) {
	if value != "" {
		fmt.Printf("  %-9s %s\n", name+":", value)
	}
}
