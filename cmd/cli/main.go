package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/rotasolve/cmd/cli/commands"
	"github.com/jakechorley/rotasolve/internal/config"
	"github.com/jakechorley/rotasolve/pkg/core/services"
	"github.com/jakechorley/rotasolve/pkg/postgres"
	"github.com/jakechorley/rotasolve/pkg/utils/logging"
)

var (
	env string
	app *commands.AppContext
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rotasolve",
		Short: "Rotasolve CLI - Solve and manage volunteer schedules",
		Long:  `A CLI tool for solving volunteer schedules under coverage, availability and fairness constraints.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.Jobs != nil {
					app.Jobs.Wait()
				}
				if app.Logger != nil {
					app.Logger.Sync()
				}
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.SolveCmd(appRef()))
	rootCmd.AddCommand(commands.ValidateCmd(appRef()))
	rootCmd.AddCommand(commands.DiffCmd(appRef()))
	rootCmd.AddCommand(commands.LockCmd(appRef()))
	rootCmd.AddCommand(commands.UnlockCmd(appRef()))
	rootCmd.AddCommand(commands.EditCmd(appRef()))
	rootCmd.AddCommand(commands.CommitCmd(appRef()))
	rootCmd.AddCommand(commands.StatusCmd(appRef()))
	rootCmd.AddCommand(commands.JobsCmd(appRef()))
	rootCmd.AddCommand(commands.HistoryCmd(appRef()))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// appRef returns the shared app context, creating the shell up front so
// command constructors can capture it before initApp fills it in
func appRef() *commands.AppContext {
	if app == nil {
		app = &commands.AppContext{}
	}
	return app
}

// initApp sets up logger, config, database, and services
func initApp() error {
	var err error
	a := appRef()

	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a.Ctx = ctx

	// Initialize logger
	a.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	a.Logger.Info("Loading configuration")
	a.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.Logger.Debug("Configuration loaded successfully")

	// Connect to the database and apply pending migrations
	a.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(ctx, a.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.Logger.Info("Database initialized successfully")

	a.Snapshots = database
	a.Solutions = database

	// Wire the services around the shared single-flight locks
	locks := services.NewOrgLocks()

	solver := &services.SolveService{
		Snapshots:      a.Snapshots,
		Solutions:      a.Solutions,
		Logger:         a.Logger,
		DefaultWeights: a.Cfg.Solver.Weights,
		DefaultBudget:  a.Cfg.TimeBudget(),
	}

	a.Jobs = services.NewJobManager(solver, locks, a.Logger, a.Cfg.LeaseTTL())
	a.Edits = &services.EditService{
		Snapshots: a.Snapshots,
		Solutions: a.Solutions,
		Locks:     locks,
		Logger:    a.Logger,
		Weights:   a.Cfg.Solver.Weights,
	}
	a.Validator = &services.ValidateService{
		Snapshots: a.Snapshots,
		Solutions: a.Solutions,
	}

	return nil
}
