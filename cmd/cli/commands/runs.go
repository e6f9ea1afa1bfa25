package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/model"
	"github.com/mfleming/demoroster/pkg/core/services"
)

// RunsCmd creates the runs command
func RunsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent scheduling runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			app.Logger.Debug("runs command", zap.Int("limit", limit))

			runs, err := services.ListRuns(app.Ctx, app.Store, app.Logger, limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("\nNo scheduling runs recorded yet.")
				return nil
			}

			fmt.Printf("\nFound %d runs:\n\n", len(runs))
			for _, run := range runs {
				statusMarker := "✅"
				switch run.Status {
				case model.RunFailed:
					statusMarker = "❌"
				case model.RunRunning:
					statusMarker = "⏳"
				}
				fmt.Printf("  %s %s  %s  %s  placed=%d bumped=%d rejected=%d\n",
					statusMarker,
					run.StartedAt.Format("2006-01-02 15:04"),
					run.ID,
					run.Window.Key(),
					run.PlacedCount,
					run.BumpedCount,
					run.RejectedCount)
				if run.Error != "" {
					fmt.Printf("      error: %s\n", run.Error)
				}
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "Maximum number of runs to show (0 shows all)")

	return cmd
}
