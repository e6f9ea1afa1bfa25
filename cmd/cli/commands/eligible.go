package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/services"
)

// EligibleCmd creates the eligible command
func EligibleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "eligible <event_ref> <start_at>",
		Short: "List employees who could work an event at the given start time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventRef := args[0]
			startAt, err := time.Parse("2006-01-02T15:04", args[1])
			if err != nil {
				return fmt.Errorf("start_at must be formatted as YYYY-MM-DDTHH:MM: %w", err)
			}

			app.Logger.Debug("eligible command",
				zap.String("event_ref", eventRef),
				zap.Time("start_at", startAt))

			candidates, err := services.EligibleEmployees(app.Ctx, app.Store, app.Logger, eventRef, startAt)
			if err != nil {
				return err
			}

			if len(candidates) == 0 {
				fmt.Printf("\nNo eligible employees for %s at %s.\n",
					eventRef, startAt.Format("2006-01-02 15:04"))
				return nil
			}

			fmt.Printf("\nFound %d eligible employees for %s at %s:\n\n",
				len(candidates), eventRef, startAt.Format("2006-01-02 15:04"))
			for _, c := range candidates {
				fmt.Printf("  ✓ %s (%s) - %s", c.Employee.Name, c.Employee.ID, c.Employee.Tier)
				if soft := c.Result.Violations; len(soft) > 0 {
					fmt.Printf(" ⚠️  %d soft finding(s)", len(soft))
				}
				fmt.Println()
				for _, v := range c.Result.Violations {
					fmt.Printf("      • %s: %s\n", v.Kind, v.Detail)
				}
			}
			fmt.Println()

			return nil
		},
	}
}
