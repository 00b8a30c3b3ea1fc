package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/calebmorton/dutyroster/internal/config"
	"github.com/calebmorton/dutyroster/pkg/core/model"
	"github.com/calebmorton/dutyroster/pkg/core/scheduler"
	"github.com/calebmorton/dutyroster/pkg/db"
)

// SnapshotStore covers the read queries every scheduling service needs: the
// roster, leave, committed assignments, equity counts, and comp time balances
// for a date range.
type SnapshotStore interface {
	GetWorkers(ctx context.Context) ([]model.Worker, error)
	GetLeaveRecords(ctx context.Context, start, end string) ([]model.LeaveRecord, error)
	GetAssignments(ctx context.Context, start, end string) ([]model.Assignment, error)
	GetEquitySnapshots(ctx context.Context, year int) ([]model.EquitySnapshot, error)
	GetCompTimeBalances(ctx context.Context) ([]model.CompTimeBalance, error)
}

// GenerateScheduleStore defines the database operations needed for a
// generation run.
type GenerateScheduleStore interface {
	SnapshotStore
	CommitRun(ctx context.Context, m db.RunMutation) error
}

// GenerateScheduleResult contains the generation results.
type GenerateScheduleResult struct {
	Status         scheduler.RunStatus
	HorizonStart   string
	HorizonDays    int
	Committed      []model.Assignment
	Superseded     []model.Assignment
	Unfilled       []scheduler.UnfilledSlot
	EquityDeltas   []scheduler.EquityDelta
	CompTimeDeltas []scheduler.CompTimeDelta
	Saved          bool
}

// snapshots bundles the five read queries one scheduling session needs.
type snapshots struct {
	workers     []model.Worker
	leave       []model.LeaveRecord
	assignments []model.Assignment
	equity      []model.EquitySnapshot
	balances    []model.CompTimeBalance
}

// GenerateSchedule fills every slot over the horizon and persists the result.
// If dryRun is true, nothing is saved to the database.
// If forceCommit is true, a run with gaps is saved anyway.
// If regenerate is true, prior rule-engine assignments in the horizon are
// superseded and refilled; manual overrides survive.
func GenerateSchedule(
	ctx context.Context,
	database GenerateScheduleStore,
	cfg *config.Config,
	logger *zap.Logger,
	horizonStart string,
	seed int64,
	dryRun bool,
	forceCommit bool,
	regenerate bool,
) (*GenerateScheduleResult, error) {
	horizonDays := cfg.HorizonDays
	if horizonDays == 0 {
		horizonDays = config.DefaultHorizonDays
	}
	horizonEnd, err := horizonEndDate(horizonStart, horizonDays)
	if err != nil {
		return nil, err
	}

	logger.Debug("Starting generateSchedule",
		zap.String("horizon_start", horizonStart),
		zap.Int("horizon_days", horizonDays),
		zap.Int64("seed", seed),
		zap.Bool("dry_run", dryRun),
		zap.Bool("force_commit", forceCommit),
		zap.Bool("regenerate", regenerate))

	// Step 1: DB queries - fetch the five snapshots concurrently
	snaps, err := loadSnapshots(ctx, database, horizonStart, horizonEnd)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded snapshots",
		zap.Int("workers", len(snaps.workers)),
		zap.Int("leave_records", len(snaps.leave)),
		zap.Int("assignments", len(snaps.assignments)),
		zap.Int("equity_snapshots", len(snaps.equity)),
		zap.Int("comp_time_balances", len(snaps.balances)))

	if len(snaps.workers) == 0 {
		return nil, fmt.Errorf("no workers found - please load the roster first")
	}

	// Step 2: Build the scheduling session
	session, err := buildSession(cfg, snaps, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduling session: %w", err)
	}

	// Step 3: Run the generation algorithm
	logger.Info("Running schedule generation")
	outcome, err := session.Generate(horizonStart, horizonDays, regenerate)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	logger.Info("Generation completed",
		zap.String("status", string(outcome.Status)),
		zap.Int("committed", len(outcome.Committed)),
		zap.Int("superseded", len(outcome.Superseded)),
		zap.Int("unfilled", len(outcome.Unfilled)))

	for _, gap := range outcome.Unfilled {
		logger.Warn("Unfilled slot",
			zap.String("date", gap.Date),
			zap.String("type", gap.TypeID),
			zap.Int("slot", gap.Slot),
			zap.String("reason", gap.Reason))
	}

	// Step 4: Determine if we should save the run
	clean := outcome.Status == scheduler.RunCompleted
	shouldSave := !dryRun && (clean || forceCommit)

	if shouldSave {
		logger.Info("Saving run to database",
			zap.Bool("clean", clean),
			zap.Bool("forced", forceCommit && !clean))
		mutation := db.RunMutation{
			Assignments:     toModelAssignments(outcome.Committed),
			SupersededIDs:   supersededIDs(outcome.Superseded),
			EquityDeltas:    aggregateEquityDeltas(outcome.EquityDeltas),
			CompTimeEntries: toCompTimeEntries(outcome.CompTimeDeltas),
		}
		if err := database.CommitRun(ctx, mutation); err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		logger.Info("Run saved", zap.Int("assignments", len(mutation.Assignments)))
	} else if dryRun {
		logger.Info("Dry run mode - schedule not saved")
	} else {
		logger.Warn("Run completed with gaps - not saving (use forceCommit to save anyway)")
	}

	return &GenerateScheduleResult{
		Status:         outcome.Status,
		HorizonStart:   horizonStart,
		HorizonDays:    horizonDays,
		Committed:      toModelAssignments(outcome.Committed),
		Superseded:     toModelAssignments(outcome.Superseded),
		Unfilled:       outcome.Unfilled,
		EquityDeltas:   outcome.EquityDeltas,
		CompTimeDeltas: outcome.CompTimeDeltas,
		Saved:          shouldSave,
	}, nil
}

// loadSnapshots runs the five read queries concurrently. Equity snapshots are
// fetched for every calendar year the range touches, since counts reset at
// year boundaries.
func loadSnapshots(ctx context.Context, database SnapshotStore, start, end string) (*snapshots, error) {
	startYear, err := yearOfDate(start)
	if err != nil {
		return nil, err
	}
	endYear, err := yearOfDate(end)
	if err != nil {
		return nil, err
	}

	snaps := &snapshots{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snaps.workers, err = database.GetWorkers(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch workers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snaps.leave, err = database.GetLeaveRecords(gctx, start, end)
		if err != nil {
			return fmt.Errorf("failed to fetch leave records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snaps.assignments, err = database.GetAssignments(gctx, start, end)
		if err != nil {
			return fmt.Errorf("failed to fetch assignments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		for year := startYear; year <= endYear; year++ {
			yearSnapshots, err := database.GetEquitySnapshots(gctx, year)
			if err != nil {
				return fmt.Errorf("failed to fetch equity snapshots for %d: %w", year, err)
			}
			snaps.equity = append(snaps.equity, yearSnapshots...)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snaps.balances, err = database.GetCompTimeBalances(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch comp time balances: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// buildSession converts the snapshots and configured assignment types into an
// engine session.
func buildSession(cfg *config.Config, snaps *snapshots, seed int64) (*scheduler.Scheduler, error) {
	types, err := buildAssignmentTypes(cfg.AssignmentTypes)
	if err != nil {
		return nil, err
	}

	return scheduler.New(scheduler.Config{
		Roster:           toSchedulerWorkers(snaps.workers),
		Types:            types,
		Leave:            toSchedulerLeave(snaps.leave),
		Existing:         toSchedulerAssignments(snaps.assignments),
		PriorEquity:      toSchedulerEquity(snaps.equity),
		CompTimeBalances: toSchedulerBalances(snaps.balances),
		Seed:             seed,
		EquitySmoothing:  cfg.Equity.Smoothing,
	})
}

func horizonEndDate(start string, days int) (string, error) {
	day, err := time.Parse(dateLayout, start)
	if err != nil {
		return "", fmt.Errorf("malformed horizon start %q: %w", start, err)
	}
	if days < 1 {
		return "", fmt.Errorf("horizon must cover at least one day, got %d", days)
	}
	return day.AddDate(0, 0, days-1).Format(dateLayout), nil
}

func yearOfDate(date string) (int, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("malformed date %q: %w", date, err)
	}
	return day.Year(), nil
}
