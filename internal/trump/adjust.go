package trump

import "github.com/franz/audiobook-trumper/internal/meta"

// Adjust applies the aggressiveness policy to a verdict.
//
// Conservative only lets a replacement through when it was won on container
// format or forced by an own tag; wins from bitrate, sample rate or the
// tiebreakers keep the existing copy. Note that an own-tag win survives even
// though its reason never says "format upgrade": a preferred tag always wins.
// Balanced and Aggressive pass the verdict through unchanged.
func Adjust(v Verdict, prefs *Preferences) Verdict {
	if prefs == nil {
		prefs = DefaultPreferences()
	}

	switch prefs.Aggressiveness {
	case Conservative:
		if v.Decision != ReplaceWithNew {
			return v
		}
		switch v.Stage {
		case StageBitrate, StageSampleRate, StageTiebreak:
			return Verdict{
				Decision: KeepExisting,
				Reason:   "conservative: kept existing (" + v.Reason + ")",
				Stage:    v.Stage,
			}
		}
		return v
	case Aggressive:
		// TODO: promote KeepExisting on any measurable improvement once the
		// threshold for "measurable" is agreed on
		return v
	default:
		return v
	}
}

// Evaluate runs Decide and then Adjust
func Evaluate(existing, incoming meta.Quality, incomingFolder string, prefs *Preferences) Verdict {
	return Adjust(Decide(existing, incoming, incomingFolder, prefs), prefs)
}
