package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/publicartatlas/artimport/internal/checkpoint"
	"github.com/publicartatlas/artimport/internal/model"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect resumable import sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpointed sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("sessions"); err != nil {
			return err
		}
		cs, err := checkpoint.NewFileStore(cfg.Import.CheckpointDir)
		if err != nil {
			return err
		}
		sessions, err := cs.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(os.Stderr, "No sessions found.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Session", "Input", "Processed", "Total", "Updated"})
		for _, s := range sessions {
			t.AppendRow(table.Row{
				s.SessionID,
				s.InputPath,
				s.Processed(),
				s.Total,
				s.UpdatedAt.Format(time.RFC3339),
			})
		}
		t.Render()
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show per-item status for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sessions"); err != nil {
			return err
		}
		cs, err := checkpoint.NewFileStore(cfg.Import.CheckpointDir)
		if err != nil {
			return err
		}
		state, err := cs.Load(args[0])
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Ref", "Status", "Outcome", "Error"})
		for _, it := range state.Items {
			t.AppendRow(table.Row{it.Index, it.SourceRef, it.Status, it.Outcome, it.Error})
		}
		t.Render()

		counts := state.Counts()
		fmt.Printf("\n%d/%d processed (%d succeeded, %d failed, %d skipped)\n",
			state.Processed(), state.Total,
			counts[model.ItemSucceeded], counts[model.ItemFailed], counts[model.ItemSkipped])
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sessions"); err != nil {
			return err
		}
		cs, err := checkpoint.NewFileStore(cfg.Import.CheckpointDir)
		if err != nil {
			return err
		}
		return cs.Delete(args[0])
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
