package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/services"
)

// InspectRunCmd creates the inspectRun command
func InspectRunCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspectRun <run_id>",
		Short: "Show one run with its full decision log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			app.Logger.Debug("inspectRun command", zap.String("run_id", runID))

			detail, err := services.InspectRun(app.Ctx, app.Store, app.Logger, runID)
			if err != nil {
				return err
			}

			run := detail.Run
			fmt.Printf("\nRun %s\n\n", run.ID)
			fmt.Printf("Window:   %s\n", run.Window.Key())
			fmt.Printf("Status:   %s\n", run.Status)
			fmt.Printf("Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
			if run.FinishedAt != nil {
				fmt.Printf("Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("Placed:   %d\n", run.PlacedCount)
			fmt.Printf("Bumped:   %d\n", run.BumpedCount)
			fmt.Printf("Rejected: %d\n", run.RejectedCount)
			if run.Error != "" {
				fmt.Printf("Error:    %s\n", run.Error)
			}
			fmt.Println()

			if len(detail.Log) == 0 {
				fmt.Println("No decisions recorded for this run.")
				return nil
			}

			fmt.Printf("Decision log (%d entries):\n\n", len(detail.Log))
			for _, entry := range detail.Log {
				line := fmt.Sprintf("  %3d. %-9s %s", entry.Seq, entry.Action, entry.EventRef)
				if entry.EmployeeID != "" {
					line += fmt.Sprintf(" → %s", entry.EmployeeID)
				}
				if !entry.StartAt.IsZero() {
					line += fmt.Sprintf(" at %s", entry.StartAt.Format("2006-01-02 15:04"))
				}
				if entry.Detail != "" {
					line += fmt.Sprintf(" (%s)", entry.Detail)
				}
				fmt.Println(line)
			}
			fmt.Println()

			return nil
		},
	}
}
