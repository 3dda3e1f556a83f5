package meta

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AudioExtensions are the extensions counted as audio files in a book folder
var AudioExtensions = []string{
	".m4b",
	".m4a",
	".mp3",
	".flac",
	".ogg",
	".opus",
	".wav",
	".aac",
}

var audioExtSet = func() map[string]bool {
	m := make(map[string]bool, len(AudioExtensions))
	for _, ext := range AudioExtensions {
		m[ext] = true
	}
	return m
}()

// IsAudioFile reports whether name has one of the audio extensions
func IsAudioFile(name string) bool {
	return audioExtSet[strings.ToLower(filepath.Ext(name))]
}

// AudioFiles lists the audio files directly inside folder, sorted by name.
// Subdirectories are not descended into. A missing or unreadable folder
// yields no files.
func AudioFiles(folder string) []string {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsAudioFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(folder, entry.Name()))
	}

	sort.Strings(files)
	return files
}

// IsMultiFile reports whether folder holds more than one audio file.
// Multi-file (per-disc or per-track) layouts are never compared for quality.
func IsMultiFile(folder string) bool {
	return len(AudioFiles(folder)) > 1
}

// FormatFromPath returns the lower-case extension of path without the dot
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
