package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/procwatch/internal/discover"
	"github.com/psantana5/procwatch/internal/observe"
)

var snapshotJSON bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [name]",
	Short: "List running processes with the watched name",
	Long: `Scans the process table once and prints every process with the given name,
or with monitor_settings.process_name when no name is given.

Example:
  procwatch snapshot
  procwatch snapshot worker.exe --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Output as JSON")
}

type snapshotRow struct {
	PID       int32     `json:"pid"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Age       string    `json:"age"`
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	name := processName
	if len(args) == 1 {
		name = args[0]
	}
	if name == "" {
		s, _, err := loadSettings()
		if err != nil {
			return err
		}
		name = s.ProcessName
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap := discover.NewScanner(nil).Snapshot(ctx, name)
	rows := snapshotRows(snap, time.Now())

	if snapshotJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	writeSnapshotTable(cmd.OutOrStdout(), name, rows)
	return nil
}

func snapshotRows(snap discover.Snapshot, now time.Time) []snapshotRow {
	rows := make([]snapshotRow, 0, len(snap))
	for _, pid := range snap.PIDs() {
		p := snap[pid]
		age := "-"
		if !p.CreateTime.IsZero() {
			age = observe.FormatDuration(now.Sub(p.CreateTime))
		}
		rows = append(rows, snapshotRow{
			PID:       pid,
			Name:      p.Name,
			StartTime: p.CreateTime,
			Age:       age,
		})
	}
	return rows
}

func writeSnapshotTable(w io.Writer, name string, rows []snapshotRow) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No running process named %s\n", name)
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("PID", "Name", "Started", "Age")
	for _, r := range rows {
		table.Append(
			fmt.Sprintf("%d", r.PID),
			r.Name,
			r.StartTime.Format("2006-01-02 15:04:05"),
			r.Age,
		)
	}
	table.Render()
	fmt.Fprintf(w, "\nTotal: %d\n", len(rows))
}
