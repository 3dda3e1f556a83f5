package trump

import (
	"fmt"
	"strings"

	"github.com/franz/audiobook-trumper/internal/util"
)

// Decision is the terminal outcome of a comparison
type Decision string

const (
	KeepExisting   Decision = "keep_existing"
	KeepBoth       Decision = "keep_both"
	ReplaceWithNew Decision = "replace_with_new"
	RejectNew      Decision = "reject_new"
)

// ParseDecision parses one of the four decision names
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case KeepExisting, KeepBoth, ReplaceWithNew, RejectNew:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q: %w", s, util.ErrInvalidConfig)
}

// Stage names the guard that produced a verdict
type Stage string

const (
	StageIdentity   Stage = "identity"
	StageMultiFile  Stage = "multi_file"
	StageOwnTag     Stage = "own_tag"
	StageDuration   Stage = "duration"
	StageFormat     Stage = "format"
	StageBitrate    Stage = "bitrate"
	StageSampleRate Stage = "sample_rate"
	StageTiebreak   Stage = "tiebreak"
	StageDefault    Stage = "default"
)

// Verdict is a decision with its human-readable reason
type Verdict struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
	Stage    Stage    `json:"stage"`
}

func (v Verdict) String() string {
	return fmt.Sprintf("%s (%s)", v.Decision, v.Reason)
}
