package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/viva/internal/state"
	"github.com/user/viva/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionClearCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage exam sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions with event logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		events := state.NewEventLog(cfg.DataDir)
		reports := state.NewReportStore(cfg.DataDir)

		ctx := context.Background()
		sessions, err := events.Sessions(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEVENTS\tREPORT\tLAST ACTIVITY")
		for _, id := range sessions {
			count, err := events.Count(ctx, string(id))
			if err != nil {
				count = 0
			}
			hasReport := "no"
			if _, err := reports.Get(ctx, string(id)); err == nil {
				hasReport = "yes"
			}
			lastActivity := "-"
			if last, err := events.LastActivity(ctx, string(id)); err == nil {
				lastActivity = last.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", id, count, hasReport, lastActivity)
		}
		return w.Flush()
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <id|all>",
	Short: "Delete a session's event log, or all of them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		eventsDir := filepath.Join(cfg.DataDir, "events")

		if args[0] == "all" {
			if err := os.RemoveAll(eventsDir); err != nil {
				return fmt.Errorf("remove events directory: %w", err)
			}
			fmt.Println("All sessions cleared.")
			return nil
		}

		// Sanitizing strips path separators, so the resulting path cannot
		// escape the events directory.
		safeID, err := types.SanitizeSessionID(args[0])
		if err != nil {
			return fmt.Errorf("invalid session ID: %s", args[0])
		}
		logPath := filepath.Join(eventsDir, string(safeID)+".jsonl")
		if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("session not found: %s", safeID)
		}
		if err := os.Remove(logPath); err != nil {
			return fmt.Errorf("remove event log: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %s cleared.\n", safeID)
		return nil
	},
}
