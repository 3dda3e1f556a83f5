package trump

import (
	"fmt"
	"strings"

	"github.com/franz/audiobook-trumper/internal/util"
)

// Aggressiveness tunes how readily a replacement is accepted
type Aggressiveness string

const (
	Conservative Aggressiveness = "conservative"
	Balanced     Aggressiveness = "balanced"
	Aggressive   Aggressiveness = "aggressive"
)

// ParseAggressiveness parses an aggressiveness level, empty meaning balanced
func ParseAggressiveness(s string) (Aggressiveness, error) {
	switch a := Aggressiveness(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return Balanced, nil
	case Conservative, Balanced, Aggressive:
		return a, nil
	}
	return "", fmt.Errorf("unknown aggressiveness %q: %w", s, util.ErrInvalidConfig)
}

// Preferences is the comparison and archiving policy
type Preferences struct {
	Aggressiveness         Aggressiveness
	MinBitrateIncreaseKbps int
	PreferChapters         bool
	PreferStereo           bool
	MinDurationRatio       float64
	MaxDurationRatio       float64

	// ArchiveRoot is only required for archiving
	ArchiveRoot   string
	ArchiveByYear bool

	// AutoReplaceTags force a replacement when the incoming folder name carries one
	AutoReplaceTags []string

	// CanonicalEdition is read and reported but does not influence decisions
	CanonicalEdition string
}

// DefaultPreferences returns the balanced default policy
func DefaultPreferences() *Preferences {
	return &Preferences{
		Aggressiveness:         Balanced,
		MinBitrateIncreaseKbps: 64,
		PreferChapters:         true,
		PreferStereo:           true,
		MinDurationRatio:       0.9,
		MaxDurationRatio:       1.25,
	}
}

// Validate checks the policy for values the engine cannot work with
func (p *Preferences) Validate() error {
	if _, err := ParseAggressiveness(string(p.Aggressiveness)); err != nil {
		return err
	}
	if p.MinBitrateIncreaseKbps < 0 {
		return fmt.Errorf("min_bitrate_increase_kbps must be >= 0, got %d: %w",
			p.MinBitrateIncreaseKbps, util.ErrInvalidConfig)
	}
	if p.MinDurationRatio <= 0 || p.MaxDurationRatio <= 0 {
		return fmt.Errorf("duration ratios must be positive, got %g/%g: %w",
			p.MinDurationRatio, p.MaxDurationRatio, util.ErrInvalidConfig)
	}
	if p.MinDurationRatio > p.MaxDurationRatio {
		return fmt.Errorf("min_duration_ratio %g exceeds max_duration_ratio %g: %w",
			p.MinDurationRatio, p.MaxDurationRatio, util.ErrInvalidConfig)
	}
	return nil
}

// PolicySnapshot is the subset of Preferences recorded with every archive
type PolicySnapshot struct {
	Aggressiveness         Aggressiveness `json:"aggressiveness"`
	MinBitrateIncreaseKbps int            `json:"min_bitrate_increase_kbps"`
	PreferChapters         bool           `json:"prefer_chapters"`
	PreferStereo           bool           `json:"prefer_stereo"`
	MinDurationRatio       float64        `json:"min_duration_ratio"`
	MaxDurationRatio       float64        `json:"max_duration_ratio"`
	AutoReplaceTags        []string       `json:"auto_replace_tags,omitempty"`
}

// Snapshot captures the decision-relevant fields
func (p *Preferences) Snapshot() PolicySnapshot {
	var tags []string
	if len(p.AutoReplaceTags) > 0 {
		tags = append([]string(nil), p.AutoReplaceTags...)
	}
	return PolicySnapshot{
		Aggressiveness:         p.Aggressiveness,
		MinBitrateIncreaseKbps: p.MinBitrateIncreaseKbps,
		PreferChapters:         p.PreferChapters,
		PreferStereo:           p.PreferStereo,
		MinDurationRatio:       p.MinDurationRatio,
		MaxDurationRatio:       p.MaxDurationRatio,
		AutoReplaceTags:        tags,
	}
}
