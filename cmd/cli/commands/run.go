package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/model"
	"github.com/mfleming/demoroster/pkg/core/services"
)

// RunCmd creates the run command
func RunCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <from> <to>",
		Short: "Run the scheduler over a date window",
		Long:  "Assign employees to every unscheduled event whose due date falls inside [from, to), bumping lower-priority work where needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse("2006-01-02", args[0])
			if err != nil {
				return fmt.Errorf("from must be formatted as YYYY-MM-DD: %w", err)
			}
			to, err := time.Parse("2006-01-02", args[1])
			if err != nil {
				return fmt.Errorf("to must be formatted as YYYY-MM-DD: %w", err)
			}
			if !from.Before(to) {
				return fmt.Errorf("from must be before to")
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			window := model.NewDateRange(from, to)
			app.Logger.Debug("run command",
				zap.String("window", window.Key()),
				zap.Bool("dry_run", dryRun))

			params, err := services.ScheduleParams(app.Cfg, window, app.Logger)
			if err != nil {
				return err
			}

			result, err := services.RunScheduler(
				app.Ctx,
				app.Store,
				app.Submitter,
				app.Logger,
				window,
				services.RunOptions{Params: params, DryRun: dryRun},
			)
			if err != nil {
				return fmt.Errorf("scheduling run failed: %w", err)
			}

			// Display header
			fmt.Printf("\n🗓  Scheduling Run Results\n\n")
			fmt.Printf("Run ID: %s\n", result.RunID)
			fmt.Printf("Window: %s\n", result.Window.Key())
			if dryRun {
				fmt.Printf("Mode:   🧪 DRY RUN (not saved)\n")
			} else {
				fmt.Printf("Mode:   ✅ COMMITTED\n")
			}
			fmt.Println()

			if len(result.Placed) > 0 {
				fmt.Printf("Placed %d events:\n", len(result.Placed))
				for _, a := range result.Placed {
					fmt.Printf("  ✓ %s → %s at %s\n",
						a.EventRef,
						a.EmployeeID,
						a.StartAt.Format("2006-01-02 15:04"))
				}
				fmt.Println()
			}

			if len(result.Bumped) > 0 {
				fmt.Printf("⚠️  Bumped %d assignments:\n", len(result.Bumped))
				for _, b := range result.Bumped {
					target := "unplaced"
					if b.To != nil {
						target = b.To.Format("2006-01-02 15:04")
					}
					fmt.Printf("  • %s (%s) displaced by %s: %s → %s\n",
						b.EventRef,
						b.EmployeeID,
						b.DisplacedBy,
						b.From.Format("2006-01-02 15:04"),
						target)
				}
				fmt.Println()
			}

			if len(result.Rejected) > 0 {
				fmt.Printf("❌ Rejected %d events:\n", len(result.Rejected))
				for _, r := range result.Rejected {
					fmt.Printf("  ✗ %s: %v\n", r.EventRef, r.Reasons)
				}
				fmt.Println()
			}

			if len(result.SubmissionFailures) > 0 {
				fmt.Printf("⚠️  Failed to submit %d assignments to the calendar:\n", len(result.SubmissionFailures))
				for _, f := range result.SubmissionFailures {
					fmt.Printf("  ✗ %s: %s\n", f.EventRef, f.Reason)
				}
				fmt.Println()
			}

			if len(result.Placed) == 0 && len(result.Rejected) == 0 {
				fmt.Println("Nothing to schedule - no unscheduled events due in this window.")
			} else if dryRun {
				fmt.Println("💡 This was a dry run. Use without --dry-run to commit assignments.")
			}

			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Run without saving assignments to the database")

	return cmd
}
