package trump

import "strings"

// formatTiers ranks containers for spoken-word audio. Chaptered AAC wins,
// lossless FLAC deliberately sits below the lossy formats.
var formatTiers = map[string]int{
	"m4b":  5,
	"m4a":  4,
	"opus": 3,
	"mp3":  2,
	"flac": 1,
}

// FormatTier returns the tier of a container format, 0 when unknown
func FormatTier(format string) int {
	return formatTiers[normalizeFormat(format)]
}

func normalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// formatLabel renders a format for reasons
func formatLabel(format string) string {
	if f := normalizeFormat(format); f != "" {
		return f
	}
	return "unknown"
}
