package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/goblin-king/internal/config"
	"github.com/jwebster45206/goblin-king/internal/results"
)

func openResults() (*results.SQLiteStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return results.Open(cfg.ResultsDB)
}

func newListCmd() *cobra.Command {
	var (
		evalName string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored evaluation reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openResults()
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.List(cmd.Context(), evalName, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEVAL\tENGINE\tMODEL\tRULES\tITEMS\tMEAN\tCREATED")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%.3f\t%s\n",
					s.ID, s.EvalName, s.Engine, s.Model, orNone(s.RuleInjection), s.Items, s.Mean,
					s.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&evalName, "eval_name", "", "only list this evaluation")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of reports")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		outDir string
		pdf    bool
	)
	cmd := &cobra.Command{
		Use:   "export <report id>",
		Short: "Write a stored report to JSON and optionally PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid report id: %w", err)
			}
			store, err := openResults()
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := writeReport(report, outDir, pdf); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported report %s to %s\n", report.ID, outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "results", "directory for report files")
	cmd.Flags().BoolVar(&pdf, "pdf", false, "also write a PDF report")
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
