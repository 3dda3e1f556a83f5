package archive

import "errors"

var (
	// ErrMissingArchiveRoot indicates archiving was requested without an archive root
	ErrMissingArchiveRoot = errors.New("archive root not configured")

	// ErrInvalidArchive indicates a folder without a readable sidecar
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrDestinationExists indicates the move target is already taken
	ErrDestinationExists = errors.New("destination already exists")

	// ErrSourceMissing indicates the folder to move is gone or not a directory
	ErrSourceMissing = errors.New("source folder missing")

	// ErrCrossDevice indicates source and destination are on different
	// filesystems, where a rename cannot be atomic
	ErrCrossDevice = errors.New("source and destination on different filesystems")
)
