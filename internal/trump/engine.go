package trump

import (
	"fmt"
	"strings"

	"github.com/franz/audiobook-trumper/internal/meta"
)

// Decide compares an existing copy with an incoming one. Stages run in a
// fixed order and the first one that fires wins; when none fires the
// existing copy is kept. incomingFolder is only used for own-tag matching.
func Decide(existing, incoming meta.Quality, incomingFolder string, prefs *Preferences) Verdict {
	if prefs == nil {
		prefs = DefaultPreferences()
	}

	stages := []func() (Verdict, bool){
		func() (Verdict, bool) { return checkIdentity(existing, incoming) },
		func() (Verdict, bool) { return checkOwnTag(incomingFolder, prefs) },
		func() (Verdict, bool) { return checkDuration(existing, incoming, prefs) },
		func() (Verdict, bool) { return checkFormat(existing, incoming) },
		func() (Verdict, bool) { return checkBitrate(existing, incoming, prefs) },
		func() (Verdict, bool) { return checkSampleRate(existing, incoming) },
		func() (Verdict, bool) { return checkTiebreak(existing, incoming, prefs) },
	}

	for _, stage := range stages {
		if v, ok := stage(); ok {
			return v
		}
	}

	return Verdict{
		Decision: KeepExisting,
		Reason:   "no quality improvement detected",
		Stage:    StageDefault,
	}
}

func checkIdentity(existing, incoming meta.Quality) (Verdict, bool) {
	if existing.ExternalID != incoming.ExternalID {
		return Verdict{KeepBoth, "different identity, not comparable", StageIdentity}, true
	}

	if existing.LanguageCode != "" && incoming.LanguageCode != "" &&
		!strings.EqualFold(existing.LanguageCode, incoming.LanguageCode) {
		reason := fmt.Sprintf("language mismatch: %s vs %s", existing.LanguageCode, incoming.LanguageCode)
		return Verdict{KeepBoth, reason, StageIdentity}, true
	}

	if existing.Abridged != nil && incoming.Abridged != nil && *existing.Abridged != *incoming.Abridged {
		return Verdict{KeepBoth, "abridged mismatch", StageIdentity}, true
	}

	return Verdict{}, false
}

// checkOwnTag skips every later stage, duration sanity included
func checkOwnTag(incomingFolder string, prefs *Preferences) (Verdict, bool) {
	tag, ok := matchAutoReplaceTag(incomingFolder, prefs.AutoReplaceTags)
	if !ok {
		return Verdict{}, false
	}
	return Verdict{ReplaceWithNew, "own-tag match: " + tag, StageOwnTag}, true
}

// checkDuration never produces a win, only a rejection or a keep-both
func checkDuration(existing, incoming meta.Quality, prefs *Preferences) (Verdict, bool) {
	if existing.DurationSec <= 0 || incoming.DurationSec <= 0 {
		return Verdict{}, false
	}

	ratio := float64(incoming.DurationSec) / float64(existing.DurationSec)
	switch {
	case ratio < prefs.MinDurationRatio:
		reason := fmt.Sprintf("incoming significantly shorter, possibly truncated (ratio %.2f)", ratio)
		return Verdict{RejectNew, reason, StageDuration}, true
	case ratio > prefs.MaxDurationRatio:
		reason := fmt.Sprintf("incoming longer, different edition? (ratio %.2f)", ratio)
		return Verdict{KeepBoth, reason, StageDuration}, true
	}
	return Verdict{}, false
}

func checkFormat(existing, incoming meta.Quality) (Verdict, bool) {
	from, to := FormatTier(existing.ContainerFormat), FormatTier(incoming.ContainerFormat)
	labels := fmt.Sprintf("%s -> %s", formatLabel(existing.ContainerFormat), formatLabel(incoming.ContainerFormat))

	switch {
	case to > from:
		return Verdict{ReplaceWithNew, "format upgrade: " + labels, StageFormat}, true
	case to < from:
		return Verdict{RejectNew, "format downgrade: " + labels, StageFormat}, true
	}
	return Verdict{}, false
}

// checkBitrate ignores differences below the configured threshold
func checkBitrate(existing, incoming meta.Quality, prefs *Preferences) (Verdict, bool) {
	if existing.BitrateKbps <= 0 || incoming.BitrateKbps <= 0 {
		return Verdict{}, false
	}

	delta := incoming.BitrateKbps - existing.BitrateKbps
	switch {
	case delta >= prefs.MinBitrateIncreaseKbps:
		reason := fmt.Sprintf("bitrate upgrade: %d -> %d kbps", existing.BitrateKbps, incoming.BitrateKbps)
		return Verdict{ReplaceWithNew, reason, StageBitrate}, true
	case delta <= -prefs.MinBitrateIncreaseKbps:
		reason := fmt.Sprintf("bitrate downgrade: %d -> %d kbps", existing.BitrateKbps, incoming.BitrateKbps)
		return Verdict{RejectNew, reason, StageBitrate}, true
	}
	return Verdict{}, false
}

// checkSampleRate only ever upgrades; a lower incoming rate is not decisive
func checkSampleRate(existing, incoming meta.Quality) (Verdict, bool) {
	if existing.SampleRateHz <= 0 || incoming.SampleRateHz <= existing.SampleRateHz {
		return Verdict{}, false
	}
	reason := fmt.Sprintf("sample rate upgrade: %d -> %d Hz", existing.SampleRateHz, incoming.SampleRateHz)
	return Verdict{ReplaceWithNew, reason, StageSampleRate}, true
}

func checkTiebreak(existing, incoming meta.Quality, prefs *Preferences) (Verdict, bool) {
	if prefs.PreferChapters && incoming.HasChapterMarkers && !existing.HasChapterMarkers {
		return Verdict{ReplaceWithNew, "chapter markers added", StageTiebreak}, true
	}
	if prefs.PreferStereo && incoming.IsStereo && !existing.IsStereo {
		return Verdict{ReplaceWithNew, "stereo upgrade", StageTiebreak}, true
	}
	return Verdict{}, false
}
