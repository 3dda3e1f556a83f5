package meta

import (
	"context"
	"time"

	"github.com/franz/audiobook-trumper/internal/report"
	"github.com/franz/audiobook-trumper/internal/util"
)

// MaxProbeTimeout bounds a single probe run
const MaxProbeTimeout = 30 * time.Second

// Extractor produces Quality records for book folders
type Extractor struct {
	binary  string
	timeout time.Duration
	logger  *report.EventLogger
}

// Config holds extractor configuration
type Config struct {
	Binary  string        // Probe binary; empty = look up mediainfo in PATH
	Timeout time.Duration // Per-probe timeout; 0 or >30s = 30s
	Logger  *report.EventLogger
}

// New creates a new Extractor
func New(cfg *Config) *Extractor {
	if cfg == nil {
		cfg = &Config{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 || timeout > MaxProbeTimeout {
		timeout = MaxProbeTimeout
	}

	binary := ResolveProbeBinary(cfg.Binary)
	if binary == "" {
		util.WarnLog("mediainfo not found in PATH - quality comparison limited to container format")
	}

	return &Extractor{
		binary:  binary,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// Binary returns the resolved probe binary ("" if unavailable)
func (e *Extractor) Binary() string {
	return e.binary
}

// Extract measures the single audio file in folder.
//
// It never fails: multi-file and empty folders yield a record carrying only
// the identity, and probe failures yield a record carrying only the container
// format, so missing data can never look like an improvement.
func (e *Extractor) Extract(ctx context.Context, folder, externalID string) Quality {
	files := AudioFiles(folder)

	switch {
	case len(files) > 1:
		util.DebugLog("Multi-file layout, not measured: %s (%d audio files)", folder, len(files))
		e.logger.LogExtract(externalID, folder, "", "multi_file")
		return minimalQuality(externalID, folder)
	case len(files) == 0:
		util.WarnLog("No audio files in %s", folder)
		e.logger.LogExtract(externalID, folder, "", "no_audio")
		return minimalQuality(externalID, folder)
	}

	file := files[0]
	q := Quality{
		ExternalID:      externalID,
		ContainerFormat: FormatFromPath(file),
		SourcePath:      file,
	}

	if e.binary == "" {
		e.logger.LogExtract(externalID, file, q.ContainerFormat, "probe_unavailable")
		return q
	}

	probeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	info, err := RunMediaInfo(probeCtx, e.binary, file)
	if err != nil {
		util.WarnLog("Probe failed for %s, using container format only: %v", file, err)
		e.logger.LogExtract(externalID, file, q.ContainerFormat, "probe_failed: "+err.Error())
		return q
	}

	applyMediaInfo(&q, info)

	util.DebugLog("Measured %s: %s %dkbps %dHz %ds chapters=%t stereo=%t",
		file, q.ContainerFormat, q.BitrateKbps, q.SampleRateHz, q.DurationSec, q.HasChapterMarkers, q.IsStereo)
	e.logger.LogExtract(externalID, file, q.ContainerFormat, "")

	return q
}

// applyMediaInfo copies the measured fields from a probe report onto q.
// The container format stays as derived from the file extension.
func applyMediaInfo(q *Quality, info *MediaInfoReport) {
	general := info.Track("General")
	audio := info.Track("Audio")

	if audio != nil {
		q.BitrateKbps = audio.BitRate.Int() / 1000
		q.SampleRateHz = audio.SamplingRate.Int()
		q.DurationSec = audio.Duration.Int()
		q.IsStereo = audio.Channels.Int() >= 2
		q.LanguageCode = audio.Language
	}

	if general != nil {
		if q.BitrateKbps == 0 {
			q.BitrateKbps = general.OverallBitRate.Int() / 1000
		}
		if d := general.Duration.Int(); d > 0 {
			q.DurationSec = d
		}
	}

	q.HasChapterMarkers = info.HasChapters()
}
