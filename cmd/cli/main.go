package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/cmd/cli/commands"
	"github.com/mfleming/demoroster/internal/config"
	"github.com/mfleming/demoroster/pkg/clients/calendarclient"
	"github.com/mfleming/demoroster/pkg/postgres"
	"github.com/mfleming/demoroster/pkg/utils"
	"github.com/mfleming/demoroster/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "demoroster",
		Short: "Demo Roster CLI - Schedule employees onto demo events",
		Long:  `A CLI tool for running the demo event scheduler, checking candidate placements, and inspecting past runs.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output on the console")

	// Add all commands
	rootCmd.AddCommand(commands.RunCmd(app))
	rootCmd.AddCommand(commands.ValidateCmd(app))
	rootCmd.AddCommand(commands.EligibleCmd(app))
	rootCmd.AddCommand(commands.RunsCmd(app))
	rootCmd.AddCommand(commands.InspectRunCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up the logger, config, database, and calendar submitter
func initApp() error {
	var err error
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	app.Logger.Info("Connecting to database")
	app.Store, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	app.Logger.Info("Running database migrations")
	if err := app.Store.RunMigrations(app.Ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.Logger.Debug("Database ready")

	// Calendar submission is optional. Without it, committed assignments
	// stay in the pending sync state.
	if app.Cfg.SubmitToCalendar {
		app.Logger.Info("Loading OAuth client configuration")
		app.OAuthCfg, err = config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return fmt.Errorf("failed to load OAuth client config: %w", err)
		}

		oauthConfig, err := utils.GetOAuthConfig(app.OAuthCfg)
		if err != nil {
			return fmt.Errorf("failed to get oauth config: %w", err)
		}

		token, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, env)
		if err != nil {
			return fmt.Errorf("failed to get oauth token: %w", err)
		}

		app.Logger.Info("Initializing calendar client", zap.String("calendar_id", app.Cfg.CalendarID))
		app.Submitter, err = calendarclient.NewClient(app.Ctx, app.OAuthCfg, token, app.Cfg.CalendarID)
		if err != nil {
			return fmt.Errorf("failed to create calendar client: %w", err)
		}
		app.Logger.Debug("Calendar client initialized successfully")
	} else {
		app.Logger.Info("Calendar submission disabled")
	}

	app.Logger.Info("Application initialized successfully")

	return nil
}
