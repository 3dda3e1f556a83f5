package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventExtract  EventType = "extract"
	EventDecision EventType = "decision"
	EventSkip     EventType = "skip"
	EventArchive  EventType = "archive"
	EventRestore  EventType = "restore"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event is one line of the audit log
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	Level      EventLevel        `json:"level"`
	Event      EventType         `json:"event"`
	RunID      string            `json:"run_id,omitempty"`
	ExternalID string            `json:"external_id,omitempty"`
	SrcPath    string            `json:"src_path,omitempty"`
	DestPath   string            `json:"dest_path,omitempty"`
	Decision   string            `json:"decision,omitempty"`
	Stage      string            `json:"stage,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	DryRun     bool              `json:"dry_run,omitempty"`
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level.
// runID is stamped on every event so a log can be joined with ledger rows.
func NewEventLogger(outputDir, runID string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogExtract logs a quality extraction. problem is empty on a full measurement
// and names the degradation otherwise.
func (l *EventLogger) LogExtract(externalID, srcPath, format, problem string) error {
	level := LevelDebug
	if problem != "" {
		level = LevelWarning
	}

	return l.Log(&Event{
		Level:      level,
		Event:      EventExtract,
		ExternalID: externalID,
		SrcPath:    srcPath,
		Reason:     problem,
		Extra: map[string]string{
			"container_format": format,
		},
	})
}

// LogDecision logs the outcome of a comparison
func (l *EventLogger) LogDecision(externalID, existingPath, incomingPath, decision, stage, reason string) error {
	event := EventDecision
	if stage == "multi_file" {
		event = EventSkip
	}

	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      event,
		ExternalID: externalID,
		SrcPath:    existingPath,
		DestPath:   incomingPath,
		Decision:   decision,
		Stage:      stage,
		Reason:     reason,
	})
}

// LogArchive logs a folder moved (or planned to move) into the archive
func (l *EventLogger) LogArchive(externalID, srcPath, destPath, decision, reason string, dryRun bool, err error) error {
	return l.Log(moveEvent(EventArchive, externalID, srcPath, destPath, decision, reason, dryRun, err))
}

// LogRestore logs a folder moved (or planned to move) back into the library
func (l *EventLogger) LogRestore(externalID, srcPath, destPath string, dryRun bool, err error) error {
	return l.Log(moveEvent(EventRestore, externalID, srcPath, destPath, "", "", dryRun, err))
}

func moveEvent(kind EventType, externalID, srcPath, destPath, decision, reason string, dryRun bool, err error) *Event {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return &Event{
		Level:      level,
		Event:      kind,
		ExternalID: externalID,
		SrcPath:    srcPath,
		DestPath:   destPath,
		Decision:   decision,
		Reason:     reason,
		DryRun:     dryRun,
		Error:      errMsg,
	}
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, srcPath string, err error) error {
	return l.Log(&Event{
		Level:   LevelError,
		Event:   event,
		SrcPath: srcPath,
		Error:   err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
