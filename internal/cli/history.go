package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/StockPulse/internal/analysis"
	"github.com/dyike/StockPulse/internal/storage"
	"github.com/dyike/StockPulse/internal/storage/sqlite"
)

func newHistoryCmd(state *rootState) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past analyses",
	}

	var (
		ticker string
		limit  int
		cursor int64
		files  bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if files {
				cfg := state.config()
				return listResultFiles(out, NewResultsManager(cfg.ResultsDir))
			}
			store, err := openHistory(state)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.ListAnalyses(cmd.Context(), ticker, cursor, limit)
			if err != nil {
				return err
			}
			printHistory(out, rows, limit)
			return nil
		},
	}
	listCmd.Flags().StringVar(&ticker, "ticker", "", "Only show analyses of this symbol")
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show")
	listCmd.Flags().Int64Var(&cursor, "before", 0, "Show rows older than this row number")
	listCmd.Flags().BoolVar(&files, "files", false, "List exported report files instead")

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one recorded analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(state)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.GetAnalysis(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no analysis with id %s", args[0])
			}
			if asJSON {
				_, err := io.WriteString(cmd.OutOrStdout(), rec.ReportJSON+"\n")
				return err
			}
			var report analysis.Report
			if err := json.Unmarshal([]byte(rec.ReportJSON), &report); err != nil {
				return fmt.Errorf("decode stored report: %w", err)
			}
			state.displayFor(cmd).DisplayReport(report)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored report JSON")

	historyCmd.AddCommand(listCmd, showCmd)
	return historyCmd
}

func openHistory(state *rootState) (*sqlite.Store, error) {
	cfg := state.config()
	store, err := storage.OpenHistory(&cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func printHistory(w io.Writer, rows []sqlite.AnalysisWithMeta, limit int) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No analyses recorded yet.")
		return
	}
	fmt.Fprintf(w, "%-6s %-8s %-28s %-9s %-20s %s\n", "ROW", "TICKER", "COMPANY", "STATUS", "FINISHED", "ID")
	for _, r := range rows {
		fmt.Fprintf(w, "%-6d %-8s %-28s %-9s %-20s %s\n",
			r.RowID, r.Ticker, truncateString(r.CompanyName, 28), r.Status,
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"), r.ID)
	}
	if limit > 0 && len(rows) == limit {
		fmt.Fprintf(w, "\nOlder rows: --before %d\n", rows[len(rows)-1].RowID)
	}
}

func listResultFiles(w io.Writer, rm *ResultsManager) error {
	results, err := rm.ListResults()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No exported reports.")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(w, "%-8s %-16s %6d bytes  %s\n", r.Symbol, r.Date, r.FileSize, r.FilePath)
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return strings.TrimSpace(string(runes[:maxLen-3])) + "..."
}
