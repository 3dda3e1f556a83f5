package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/franz/audiobook-trumper/internal/util"
)

// DefaultProbeBinary is looked up in PATH when no binary is configured
const DefaultProbeBinary = "mediainfo"

// MediaInfoReport is the `--Output=JSON` document produced by MediaInfo
type MediaInfoReport struct {
	Media struct {
		Ref    string           `json:"@ref"`
		Tracks []MediaInfoTrack `json:"track"`
	} `json:"media"`
}

// FlexNumber can unmarshal both JSON numbers and numeric strings.
// MediaInfo reports every value as a string ("128000", "36000.123");
// empty or unparsable values decode as zero.
type FlexNumber struct {
	Value float64
}

// UnmarshalJSON implements custom unmarshaling for FlexNumber
func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		n.Value = num
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	n.Value = parseLeadingNumber(str)
	return nil
}

// Int returns the value rounded down, or 0 when negative or not finite
func (n FlexNumber) Int() int {
	if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) || n.Value < 0 {
		return 0
	}
	return int(math.Floor(n.Value))
}

// parseLeadingNumber parses values like "2", "2 / 1" or "44100" and returns 0 otherwise
func parseLeadingNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// MediaInfoTrack is one entry of media.track. Only the fields the
// quality comparison consumes are decoded.
type MediaInfoTrack struct {
	Type           string     `json:"@type"`
	Format         string     `json:"Format"`
	Duration       FlexNumber `json:"Duration"`
	BitRate        FlexNumber `json:"BitRate"`
	OverallBitRate FlexNumber `json:"OverallBitRate"`
	SamplingRate   FlexNumber `json:"SamplingRate"`
	Channels       FlexNumber `json:"Channels"`
	MenuCount      FlexNumber `json:"MenuCount"`
	Language       string     `json:"Language"`

	// ChapterEntries counts chapter entries on a Menu track, whether they
	// are nested under "extra" or emitted as top-level "_HH_MM_SS_mmm" keys.
	ChapterEntries int `json:"-"`
}

// UnmarshalJSON decodes the known fields and counts chapter entries
func (t *MediaInfoTrack) UnmarshalJSON(data []byte) error {
	type plain MediaInfoTrack
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*t = MediaInfoTrack(decoded)

	if !strings.EqualFold(t.Type, "Menu") {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	count := countChapterKeys(raw)
	if extra, ok := raw["extra"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(extra, &nested); err == nil {
			count += countChapterKeys(nested)
		}
	}
	t.ChapterEntries = count
	return nil
}

// countChapterKeys counts MediaInfo chapter timestamp keys such as "_00_12_31_500"
func countChapterKeys(fields map[string]json.RawMessage) int {
	count := 0
	for key := range fields {
		if strings.HasPrefix(key, "_") && len(key) > 1 && key[1] >= '0' && key[1] <= '9' {
			count++
		}
	}
	return count
}

// Track returns the first track of the given type, or nil
func (r *MediaInfoReport) Track(trackType string) *MediaInfoTrack {
	for i := range r.Media.Tracks {
		if strings.EqualFold(r.Media.Tracks[i].Type, trackType) {
			return &r.Media.Tracks[i]
		}
	}
	return nil
}

// HasChapters reports whether a Menu track with at least one entry is present,
// or General's MenuCount says there is one.
func (r *MediaInfoReport) HasChapters() bool {
	if menu := r.Track("Menu"); menu != nil && menu.ChapterEntries > 0 {
		return true
	}
	if general := r.Track("General"); general != nil {
		return general.MenuCount.Int() >= 1
	}
	return false
}

// ParseMediaInfo decodes MediaInfo JSON output
func ParseMediaInfo(data []byte) (*MediaInfoReport, error) {
	var report MediaInfoReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse mediainfo output: %w", err)
	}
	if len(report.Media.Tracks) == 0 {
		return nil, errors.New("mediainfo output has no tracks")
	}
	return &report, nil
}

// RunMediaInfo executes the probe binary against one file and parses its JSON.
// The context bounds the run; a deadline kills the process.
func RunMediaInfo(ctx context.Context, binary, path string) (*MediaInfoReport, error) {
	if binary == "" {
		return nil, fmt.Errorf("mediainfo binary: %w", util.ErrNotFound)
	}

	cmd := exec.CommandContext(ctx, binary, "--Output=JSON", path)
	// Don't let a grandchild holding stdout open outlive the deadline
	cmd.WaitDelay = time.Second
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("mediainfo timed out: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("mediainfo failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("mediainfo execution failed: %w", err)
	}

	return ParseMediaInfo(output)
}

// ResolveProbeBinary returns the configured binary, or the PATH location of
// mediainfo. An empty result means no probe is available.
func ResolveProbeBinary(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	path, err := exec.LookPath(DefaultProbeBinary)
	if err != nil {
		return ""
	}
	return path
}
