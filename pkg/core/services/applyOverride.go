package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/calebmorton/dutyroster/internal/config"
	"github.com/calebmorton/dutyroster/pkg/core/model"
	"github.com/calebmorton/dutyroster/pkg/core/scheduler"
	"github.com/calebmorton/dutyroster/pkg/db"
)

// ApplyOverrideStore defines the database operations needed for a manual
// override.
type ApplyOverrideStore interface {
	SnapshotStore
	CommitRun(ctx context.Context, m db.RunMutation) error
}

// ApplyOverrideResult contains the override outcome: the new assignment and,
// when the slot was already held, the superseded record.
type ApplyOverrideResult struct {
	Assignment model.Assignment
	Replaced   *model.Assignment
}

// ApplyOverride pins a worker to a slot, bypassing rule evaluation. The
// engine's double-booking check still applies, and the equity and comp time
// effects persist alongside the assignment.
func ApplyOverride(
	ctx context.Context,
	database ApplyOverrideStore,
	cfg *config.Config,
	logger *zap.Logger,
	date, typeID string,
	slot int,
	workerID string,
) (*ApplyOverrideResult, error) {
	logger.Debug("Starting applyOverride",
		zap.String("date", date),
		zap.String("type", typeID),
		zap.Int("slot", slot),
		zap.String("worker", workerID))

	// Step 1: DB queries - fetch snapshots for the override date
	snaps, err := loadSnapshots(ctx, database, date, date)
	if err != nil {
		return nil, err
	}

	// Step 2: Build the scheduling session
	session, err := buildSession(cfg, snaps, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduling session: %w", err)
	}

	// Step 3: Apply the override
	outcome, err := session.ApplyOverride(date, typeID, slot, workerID)
	if err != nil {
		return nil, err
	}

	logger.Info("Override applied",
		zap.String("assignment_id", outcome.Assignment.ID),
		zap.Bool("replaced_existing", outcome.Replaced != nil))

	// Step 4: Persist the assignment and its bookkeeping atomically
	mutation := db.RunMutation{
		Assignments:     toModelAssignments([]scheduler.Assignment{outcome.Assignment}),
		EquityDeltas:    aggregateEquityDeltas(outcome.EquityDeltas),
		CompTimeEntries: toCompTimeEntries(outcome.CompTimeDeltas),
	}
	if outcome.Replaced != nil {
		mutation.SupersededIDs = []string{outcome.Replaced.ID}
	}
	if err := database.CommitRun(ctx, mutation); err != nil {
		return nil, fmt.Errorf("failed to save override: %w", err)
	}

	result := &ApplyOverrideResult{Assignment: mutation.Assignments[0]}
	if outcome.Replaced != nil {
		replaced := toModelAssignments([]scheduler.Assignment{*outcome.Replaced})[0]
		result.Replaced = &replaced
	}
	return result, nil
}
