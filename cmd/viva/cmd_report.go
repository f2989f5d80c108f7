package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/viva/internal/report"
	"github.com/user/viva/internal/state"
	"github.com/user/viva/pkg/llm"
	"github.com/user/viva/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportGenerateCmd, reportListCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Manage session reports",
}

var reportGenerateCmd = &cobra.Command{
	Use:   "generate <session-id>",
	Short: "Generate (or regenerate) the report for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		events := state.NewEventLog(cfg.DataDir)
		reports := state.NewReportStore(cfg.DataDir)

		provider := openai.New(&llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		budget, err := report.NewBudget(cfg.LLM.Model, cfg.LLM.MaxPromptTokens)
		if err != nil {
			slog.Warn("token budget disabled", "error", err)
			budget = nil
		}
		synth := report.NewSynthesizer(provider, cfg.LLM.APIKey, cfg.Exam.Topic, budget)
		generator := report.NewGenerator(events, reports, synth, nil)

		result, err := generator.Generate(context.Background(), args[0], nil, nil)
		if err != nil {
			return fmt.Errorf("generate report: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Report generated for session %s\n", result.SessionID)
		fmt.Fprintf(os.Stdout, "  Mastery:    %s (confidence %.2f)\n",
			result.Report.MasteryLevel, result.Report.Confidence)
		fmt.Fprintf(os.Stdout, "  Transcript: %d lines\n", len(result.Transcript))
		fmt.Fprintf(os.Stdout, "  Summary:    %s\n", result.Report.Summary)
		return nil
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all generated reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		reports := state.NewReportStore(cfg.DataDir)

		summaries, err := reports.ListSummaries(context.Background())
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		if len(summaries) == 0 {
			fmt.Println("No reports found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tMASTERY\tGENERATED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				s.SessionID,
				s.MasteryLevel,
				s.GeneratedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}
