package meta

// Quality is a snapshot of one audio file's measurable quality, keyed by
// the external identifier of the work it belongs to.
//
// Zero values mean "unknown": an empty ContainerFormat ranks lowest, and a
// zero bitrate, sample rate or duration is never compared.
type Quality struct {
	ExternalID        string `json:"external_id"`
	ContainerFormat   string `json:"container_format,omitempty"`
	BitrateKbps       int    `json:"bitrate_kbps,omitempty"`
	SampleRateHz      int    `json:"sample_rate_hz,omitempty"`
	DurationSec       int    `json:"duration_sec,omitempty"`
	HasChapterMarkers bool   `json:"has_chapter_markers"`
	IsStereo          bool   `json:"is_stereo"`
	LanguageCode      string `json:"language_code,omitempty"`
	Abridged          *bool  `json:"abridged,omitempty"`
	SourcePath        string `json:"source_path,omitempty"`
}

// minimalQuality returns the record used when a folder cannot be measured
func minimalQuality(externalID, sourcePath string) Quality {
	return Quality{
		ExternalID: externalID,
		SourcePath: sourcePath,
	}
}

// Bool returns a pointer to b, for filling optional fields like Abridged
func Bool(b bool) *bool {
	return &b
}
