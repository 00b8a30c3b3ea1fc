package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/calebmorton/dutyroster/internal/config"
	"github.com/calebmorton/dutyroster/pkg/core/scheduler"
	"github.com/calebmorton/dutyroster/pkg/core/services"
	"github.com/calebmorton/dutyroster/pkg/db"
	"github.com/calebmorton/dutyroster/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zap.Logger
	ctx      context.Context
}

var (
	env string
	app *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Duty Roster CLI - Manage daily duty schedules",
		Long:  `A CLI tool for generating duty rosters, applying overrides, and managing swaps and comp time.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.logger != nil {
					app.logger.Sync()
				}
				if app.database != nil {
					app.database.Close()
				}
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateScheduleCmd())
	rootCmd.AddCommand(applyOverrideCmd())
	rootCmd.AddCommand(proposeSwapCmd())
	rootCmd.AddCommand(resolveSwapCmd())
	rootCmd.AddCommand(useCompTimeCmd())
	rootCmd.AddCommand(listWorkersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, and database
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	// Load .env if present; real environment variables win
	_ = godotenv.Load()

	// Initialize logger
	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.logger.Info("Loading configuration")
	app.cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	databaseURL := app.cfg.DatabaseURL
	if fromEnv := os.Getenv("DATABASE_URL"); fromEnv != "" {
		databaseURL = fromEnv
	}

	// Connect to the database
	app.logger.Info("Connecting to database")
	app.database, err = db.New(app.ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.logger.Info("Database initialized successfully")

	return nil
}

// Command definitions

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the scheduling tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.database.Migrate(app.ctx); err != nil {
				return err
			}
			fmt.Println("\n✓ Schema applied successfully!")
			return nil
		},
	}
}

func generateScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generateSchedule <horizon_start>",
		Short: "Fill every duty slot from the given start date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			horizonStart := args[0]
			seed, _ := cmd.Flags().GetInt64("seed")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			forceCommit, _ := cmd.Flags().GetBool("force-commit")
			regenerate, _ := cmd.Flags().GetBool("regenerate")

			result, err := services.GenerateSchedule(
				app.ctx,
				app.database,
				app.cfg,
				app.logger,
				horizonStart,
				seed,
				dryRun,
				forceCommit,
				regenerate,
			)
			if err != nil {
				return err
			}

			// Display results
			fmt.Printf("\n✓ Generation completed: %s\n\n", result.Status)
			fmt.Printf("Horizon:     %s (%d days)\n", result.HorizonStart, result.HorizonDays)
			fmt.Printf("Committed:   %d assignments\n", len(result.Committed))
			fmt.Printf("Superseded:  %d assignments\n", len(result.Superseded))
			fmt.Printf("Saved:       %t\n\n", result.Saved)

			if len(result.Unfilled) > 0 {
				fmt.Printf("⚠️  %d slots could not be filled:\n", len(result.Unfilled))
				for _, gap := range result.Unfilled {
					fmt.Printf("  ✗ %s %s slot %d: %s\n", gap.Date, gap.TypeID, gap.Slot, gap.Reason)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "Seed for the weighted-random equity selection")
	cmd.Flags().Bool("dry-run", false, "Run without saving to database")
	cmd.Flags().Bool("force-commit", false, "Save even when slots are left unfilled")
	cmd.Flags().Bool("regenerate", false, "Supersede and refill prior rule-engine assignments in the horizon")

	return cmd
}

func applyOverrideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "applyOverride <date> <type_id> <slot> <worker_id>",
		Short: "Pin a worker to a slot, bypassing rule evaluation",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("slot must be a number: %w", err)
			}

			result, err := services.ApplyOverride(app.ctx, app.database, app.cfg, app.logger,
				args[0], args[1], slot, args[3])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Override applied!\n\n")
			fmt.Printf("Assignment: %s %s slot %d -> %s\n",
				result.Assignment.Date, result.Assignment.AssignmentTypeID,
				result.Assignment.Slot, result.Assignment.WorkerID)
			if result.Replaced != nil {
				fmt.Printf("Replaced:   %s (superseded)\n", result.Replaced.WorkerID)
			}
			fmt.Println()

			return nil
		},
	}
}

func proposeSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposeSwap <date> <type_id> <slot> <requesting_worker_id> [target_worker_id]",
		Short: "Open a pending swap or release request for a committed assignment",
		Args:  cobra.RangeArgs(4, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("slot must be a number: %w", err)
			}
			release, _ := cmd.Flags().GetBool("release")

			var targetWorkerID string
			if len(args) > 4 {
				targetWorkerID = args[4]
			}
			if !release && targetWorkerID == "" {
				return fmt.Errorf("target_worker_id is required unless --release is set")
			}

			req, err := services.ProposeSwap(app.ctx, app.database, app.cfg, app.logger,
				args[0], args[1], slot, args[3], targetWorkerID, release)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Swap request opened!\n\n")
			fmt.Printf("Swap ID: %s\n", req.ID)
			if req.Release {
				fmt.Printf("Release: %s gives up %s %s slot %d\n\n",
					req.RequestingWorkerID, req.Date, req.AssignmentTypeID, req.Slot)
			} else {
				fmt.Printf("Swap:    %s -> %s on %s %s slot %d\n\n",
					req.RequestingWorkerID, req.TargetWorkerID, req.Date, req.AssignmentTypeID, req.Slot)
			}

			return nil
		},
	}

	cmd.Flags().Bool("release", false, "Release the slot back through rule evaluation instead of naming a target")

	return cmd
}

func resolveSwapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolveSwap <swap_id> <approve|reject|cancel>",
		Short: "Drive a pending swap request to a terminal state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var decision scheduler.SwapDecision
			switch args[1] {
			case "approve":
				decision = scheduler.DecisionApprove
			case "reject":
				decision = scheduler.DecisionReject
			case "cancel":
				decision = scheduler.DecisionCancel
			default:
				return fmt.Errorf("decision must be approve, reject, or cancel, got %q", args[1])
			}

			result, err := services.ResolveSwap(app.ctx, app.database, app.cfg, app.logger,
				args[0], decision)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Swap %s: %s\n\n", result.Request.ID, result.Request.State)
			for _, a := range result.Updated {
				marker := "✓"
				if a.Superseded {
					marker = "✗"
				}
				fmt.Printf("  %s %s %s slot %d -> %s\n", marker, a.Date, a.AssignmentTypeID, a.Slot, a.WorkerID)
			}
			if result.Unfilled != nil {
				fmt.Printf("  ⚠️  slot left unfilled: %s\n", result.Unfilled.Reason)
			}
			fmt.Println()

			return nil
		},
	}
}

func useCompTimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "useCompTime <worker_id> <date> <hours>",
		Short: "Debit earned comp time for a worker",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("hours must be a number: %w", err)
			}

			result, err := services.UseCompTime(app.ctx, app.database, app.logger,
				args[0], args[1], hours)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Comp time debited!\n\n")
			fmt.Printf("Worker:    %s\n", result.Entry.WorkerID)
			fmt.Printf("Used:      %d hours on %s\n", result.Entry.UsedHours, result.Entry.Date)
			fmt.Printf("Remaining: %d hours\n\n", result.RemainingBalance)

			return nil
		},
	}
}

func listWorkersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listWorkers",
		Short: "List all workers on the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, err := app.database.GetWorkers(app.ctx)
			if err != nil {
				return fmt.Errorf("failed to list workers: %w", err)
			}

			app.logger.Info("Workers fetched successfully", zap.Int("count", len(workers)))

			fmt.Printf("\nFound %d workers:\n\n", len(workers))
			for _, w := range workers {
				status := "active"
				if !w.IsActive {
					status = "inactive"
				}
				seniority := ""
				if w.IsSenior {
					seniority = " [senior]"
				}
				fmt.Printf("- %s %s (%s) - %s%s - eligible: %v\n",
					w.FirstName,
					w.LastName,
					w.ID,
					status,
					seniority,
					w.EligibleTypes,
				)
			}

			return nil
		},
	}
}
