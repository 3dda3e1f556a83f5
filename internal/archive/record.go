package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/franz/audiobook-trumper/internal/meta"
	"github.com/franz/audiobook-trumper/internal/trump"
)

const (
	// SidecarName is the provenance file written inside every archived folder
	SidecarName = ".trump_archive.json"

	// SchemaVersion is the sidecar version written by this build.
	// Version 1 sidecars have no original_path.
	SchemaVersion = 2

	// TimestampLayout names the per-archive directory
	TimestampLayout = "2006-01-02T15-04-05"
)

// Timestamp is a second-precision time that also reads the timezone-less
// ISO 8601 values found in older sidecars
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	TimestampLayout,
}

// MarshalJSON writes RFC 3339 at second precision
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Truncate(time.Second).Format(time.RFC3339))
}

// UnmarshalJSON accepts RFC 3339 and local ISO 8601 forms
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// Record is the sidecar describing why and from where a folder was archived.
// It is written once at archive time and removed on restore.
type Record struct {
	SchemaVersion      int                  `json:"schema_version"`
	ArchivedAt         Timestamp            `json:"archived_at"`
	Decision           trump.Decision       `json:"decision"`
	Reason             string               `json:"reason"`
	OriginalFolderName string               `json:"original_folder_name"`
	OriginalPath       string               `json:"original_path,omitempty"`
	ExistingMeta       meta.Quality         `json:"existing_meta"`
	IncomingMeta       meta.Quality         `json:"incoming_meta"`
	PolicySnapshot     trump.PolicySnapshot `json:"policy_snapshot"`

	// Path is the archived folder the record was read from
	Path string `json:"-"`
}

// ExternalID returns the identity the archive belongs to
func (r *Record) ExternalID() string {
	if r.ExistingMeta.ExternalID != "" {
		return r.ExistingMeta.ExternalID
	}
	return r.IncomingMeta.ExternalID
}

// ReadRecord reads and parses the sidecar inside folder. Unknown fields are
// ignored and missing optional fields fall back to what the folder shows.
func ReadRecord(folder string) (*Record, error) {
	path := filepath.Join(folder, SidecarName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no sidecar in %s: %w", folder, ErrInvalidArchive)
		}
		return nil, fmt.Errorf("failed to read sidecar %s: %v: %w", path, err, ErrInvalidArchive)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar %s: %v: %w", path, err, ErrInvalidArchive)
	}

	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = 1
	}
	if strings.TrimSpace(rec.OriginalFolderName) == "" {
		rec.OriginalFolderName = filepath.Base(folder)
	}
	rec.Path = folder

	return &rec, nil
}

// WriteRecord writes the sidecar into folder. The file is fsynced and
// renamed into place, so readers never see a partial sidecar.
func WriteRecord(folder string, rec *Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}

	pending, err := renameio.NewPendingFile(filepath.Join(folder, SidecarName), renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("failed to create pending sidecar: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace sidecar: %w", err)
	}
	return nil
}
