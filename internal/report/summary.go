package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/audiobook-trumper/internal/store"
)

// SummaryReport aggregates the ledger for a human-readable overview
type SummaryReport struct {
	GeneratedAt time.Time

	// Decision statistics
	Decisions   int
	ByOutcome   map[string]int
	ByStage     map[string]int
	RecentTrump []DecisionLine

	// Archive statistics
	Archived      int
	Restored      int
	DryRunActions int
	Failures      []ActionLine

	// Metadata
	ExternalID   string
	DatabasePath string
	EventLogPath string
}

// DecisionLine is one decision rendered in the report
type DecisionLine struct {
	ExternalID   string
	Decision     string
	Stage        string
	Reason       string
	IncomingPath string
	DecidedAt    time.Time
}

// ActionLine is one failed archive or restore
type ActionLine struct {
	ExternalID string
	Action     string
	SourcePath string
	Error      string
	CreatedAt  time.Time
}

// GenerateSummaryReport builds a report from the ledger. An empty externalID
// covers every identity; limit bounds how many rows are read per table.
func GenerateSummaryReport(db *store.Store, externalID string, limit int) (*SummaryReport, error) {
	decisions, err := db.ListDecisions(externalID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load decisions: %w", err)
	}
	actions, err := db.ListArchiveActions(externalID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive actions: %w", err)
	}

	report := &SummaryReport{
		GeneratedAt: time.Now(),
		ExternalID:  externalID,
		ByOutcome:   make(map[string]int),
		ByStage:     make(map[string]int),
	}

	for _, d := range decisions {
		report.Decisions++
		report.ByOutcome[d.Decision]++
		if d.Stage != "" {
			report.ByStage[d.Stage]++
		}
		if d.Decision == "replace_with_new" && len(report.RecentTrump) < 20 {
			report.RecentTrump = append(report.RecentTrump, DecisionLine{
				ExternalID:   d.ExternalID,
				Decision:     d.Decision,
				Stage:        d.Stage,
				Reason:       d.Reason,
				IncomingPath: d.IncomingPath,
				DecidedAt:    d.DecidedAt,
			})
		}
	}

	for _, a := range actions {
		if a.DryRun {
			report.DryRunActions++
			continue
		}
		if a.Error != "" {
			report.Failures = append(report.Failures, ActionLine{
				ExternalID: a.ExternalID,
				Action:     a.Action,
				SourcePath: a.SourcePath,
				Error:      a.Error,
				CreatedAt:  a.CreatedAt,
			})
			continue
		}
		switch a.Action {
		case store.ActionArchive:
			report.Archived++
		case store.ActionRestore:
			report.Restored++
		}
	}

	return report, nil
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Audiobook Trumper - Ledger Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if report.ExternalID != "" {
		md.WriteString(fmt.Sprintf("**Identity:** `%s`\n\n", report.ExternalID))
	}
	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	md.WriteString("## Decisions\n\n")
	md.WriteString("| Outcome | Count |\n")
	md.WriteString("|---------|-------|\n")
	for _, key := range sortedKeys(report.ByOutcome) {
		md.WriteString(fmt.Sprintf("| %s | %d |\n", key, report.ByOutcome[key]))
	}
	md.WriteString(fmt.Sprintf("| **total** | %d |\n\n", report.Decisions))

	if len(report.ByStage) > 0 {
		md.WriteString("### By stage\n\n")
		md.WriteString("| Stage | Count |\n")
		md.WriteString("|-------|-------|\n")
		for _, key := range sortedKeys(report.ByStage) {
			md.WriteString(fmt.Sprintf("| %s | %d |\n", key, report.ByStage[key]))
		}
		md.WriteString("\n")
	}

	if report.Archived > 0 || report.Restored > 0 || report.DryRunActions > 0 {
		md.WriteString("## Archive\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Archived | %d |\n", report.Archived))
		md.WriteString(fmt.Sprintf("| Restored | %d |\n", report.Restored))
		if report.DryRunActions > 0 {
			md.WriteString(fmt.Sprintf("| Dry runs | %d |\n", report.DryRunActions))
		}
		md.WriteString("\n")
	}

	if len(report.RecentTrump) > 0 {
		md.WriteString("## Recent replacements\n\n")
		for _, line := range report.RecentTrump {
			md.WriteString(fmt.Sprintf("- **%s** (%s) %s: %s\n", line.ExternalID, humanize.Time(line.DecidedAt), line.Stage, line.Reason))
			md.WriteString(fmt.Sprintf("  - `%s`\n", truncatePath(line.IncomingPath, 80)))
		}
		md.WriteString("\n")
	}

	if len(report.Failures) > 0 {
		md.WriteString("## Failures\n\n")
		md.WriteString("| Identity | Action | Source | Error |\n")
		md.WriteString("|----------|--------|--------|-------|\n")
		for _, f := range report.Failures {
			md.WriteString(fmt.Sprintf("| %s | %s | `%s` | %s |\n",
				f.ExternalID, f.Action, truncatePath(f.SourcePath, 40), f.Error))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by abt*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncatePath truncates a file path to a maximum length
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Keep the start and the end
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
