package meta

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// Tags holds the descriptive tags of an audio file, for display only.
// Tags never influence a quality decision.
type Tags struct {
	FileType string
	Title    string
	Album    string
	Artist   string
	Composer string
	Year     int
	Comment  string
}

// ReadTags reads embedded tags with dhowden/tag
func ReadTags(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	return &Tags{
		FileType: string(m.FileType()),
		Title:    m.Title(),
		Album:    m.Album(),
		Artist:   m.Artist(),
		Composer: m.Composer(),
		Year:     m.Year(),
		Comment:  m.Comment(),
	}, nil
}
