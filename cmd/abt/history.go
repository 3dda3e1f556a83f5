package main

import (
	"fmt"

	"github.com/franz/audiobook-trumper/internal/report"
	"github.com/franz/audiobook-trumper/internal/store"
	"github.com/franz/audiobook-trumper/internal/trump"
	"github.com/franz/audiobook-trumper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded decisions and archive actions",
	Long: `Show the newest rows of the ledger: comparison decisions first, then
archive and restore actions.

Use --report to also write a Markdown summary of the ledger.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("id", "", "only show rows for this external identifier")
	historyCmd.Flags().Int("limit", 20, "maximum rows per section (0 = all)")
	historyCmd.Flags().String("report", "", "write a Markdown summary to this path")
	historyCmd.Flags().String("decision", "", "only show decisions with this outcome (e.g. replace_with_new)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	externalID, _ := cmd.Flags().GetString("id")
	limit, _ := cmd.Flags().GetInt("limit")
	reportPath, _ := cmd.Flags().GetString("report")
	outcome, _ := cmd.Flags().GetString("decision")

	var only trump.Decision
	if outcome != "" {
		d, err := trump.ParseDecision(outcome)
		if err != nil {
			return err
		}
		only = d
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	decisions, err := db.ListDecisions(externalID, limit)
	if err != nil {
		return err
	}
	actions, err := db.ListArchiveActions(externalID, limit)
	if err != nil {
		return err
	}

	decisions = filterDecisions(decisions, only)

	fmt.Printf("Decisions (%d)\n", len(decisions))
	for _, d := range decisions {
		fmt.Printf("  %s  %-12s %-16s %-11s %s\n",
			d.DecidedAt.Local().Format("2006-01-02 15:04:05"), d.ExternalID, d.Decision, d.Stage, d.Reason)
	}

	fmt.Printf("\nArchive actions (%d)\n", len(actions))
	for _, a := range actions {
		status := "ok"
		switch {
		case a.Error != "":
			status = "failed: " + a.Error
		case a.DryRun:
			status = "dry-run"
		}
		fmt.Printf("  %s  %-12s %-8s %s\n",
			a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.ExternalID, a.Action, status)
		fmt.Printf("    %s -> %s\n", a.SourcePath, orDash(a.DestPath))
	}

	if reportPath == "" {
		return nil
	}

	summary, err := report.GenerateSummaryReport(db, externalID, 0)
	if err != nil {
		return err
	}
	summary.DatabasePath = viper.GetString("db")

	if err := report.WriteMarkdownReport(summary, reportPath); err != nil {
		return err
	}
	util.SuccessLog("Report written to %s", reportPath)
	return nil
}

// filterDecisions keeps rows with the given outcome; empty keeps all
func filterDecisions(rows []*store.DecisionRecord, only trump.Decision) []*store.DecisionRecord {
	if only == "" {
		return rows
	}
	var kept []*store.DecisionRecord
	for _, r := range rows {
		if trump.Decision(r.Decision) == only {
			kept = append(kept, r)
		}
	}
	return kept
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
