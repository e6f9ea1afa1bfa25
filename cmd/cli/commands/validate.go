package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/model"
	"github.com/mfleming/demoroster/pkg/core/services"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <event_ref> <employee_id> <start_at>",
		Short: "Check an employee against every placement constraint for an event",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventRef := args[0]
			employeeID := args[1]
			startAt, err := time.Parse("2006-01-02T15:04", args[2])
			if err != nil {
				return fmt.Errorf("start_at must be formatted as YYYY-MM-DDTHH:MM: %w", err)
			}

			app.Logger.Debug("validate command",
				zap.String("event_ref", eventRef),
				zap.String("employee_id", employeeID),
				zap.Time("start_at", startAt))

			result, err := services.ValidateCandidate(app.Ctx, app.Store, app.Logger, eventRef, employeeID, startAt)
			if err != nil {
				return err
			}

			fmt.Printf("\nValidation for %s on %s at %s:\n\n",
				employeeID, eventRef, startAt.Format("2006-01-02 15:04"))

			if len(result.Violations) == 0 {
				fmt.Println("✅ No violations - placement is clean.")
				return nil
			}

			for _, v := range result.Violations {
				marker := "⚠️ "
				if v.Severity == model.SeverityHard {
					marker = "❌"
				}
				fmt.Printf("  %s [%s] %s: %s\n", marker, v.Severity, v.Kind, v.Detail)
			}
			fmt.Println()

			if result.OK() {
				fmt.Println("✅ Placement is allowed (soft findings only).")
			} else {
				fmt.Println("❌ Placement is blocked by hard violations.")
			}

			return nil
		},
	}
}
