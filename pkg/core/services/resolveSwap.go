package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/calebmorton/dutyroster/internal/config"
	"github.com/calebmorton/dutyroster/pkg/core/model"
	"github.com/calebmorton/dutyroster/pkg/core/scheduler"
	"github.com/calebmorton/dutyroster/pkg/db"
)

// ResolveSwapStore defines the database operations needed for resolving a
// swap request.
type ResolveSwapStore interface {
	SnapshotStore
	GetSwapRequest(ctx context.Context, id string) (model.SwapRequest, error)
	ResolveSwapRequest(ctx context.Context, req model.SwapRequest, m db.RunMutation) error
}

// ResolveSwapResult contains the terminal request plus everything approval
// changed: updated assignment rows and, for a release nobody could cover, the
// reported gap.
type ResolveSwapResult struct {
	Request  model.SwapRequest
	Updated  []model.Assignment
	Unfilled *scheduler.UnfilledSlot
}

// ResolveSwap drives a pending swap request to approved, rejected, or
// cancelled. Approval reassigns the slot and rebalances equity and comp time
// in the same database transaction as the state change.
func ResolveSwap(
	ctx context.Context,
	database ResolveSwapStore,
	cfg *config.Config,
	logger *zap.Logger,
	swapID string,
	decision scheduler.SwapDecision,
) (*ResolveSwapResult, error) {
	logger.Debug("Starting resolveSwap",
		zap.String("swap_id", swapID),
		zap.String("decision", string(decision)))

	// Step 1: DB query - fetch the persisted request
	record, err := database.GetSwapRequest(ctx, swapID)
	if err != nil {
		return nil, err
	}

	// Step 2: DB queries - fetch snapshots for the swap date
	snaps, err := loadSnapshots(ctx, database, record.Date, record.Date)
	if err != nil {
		return nil, err
	}

	// Step 3: Build the session and seed the persisted request into it
	session, err := buildSession(cfg, snaps, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduling session: %w", err)
	}
	session.RegisterSwap(toSchedulerSwapRequest(record))

	// Step 4: Resolve
	outcome, err := session.ResolveSwap(swapID, decision)
	if err != nil {
		return nil, err
	}

	logger.Info("Swap resolved",
		zap.String("swap_id", swapID),
		zap.String("state", string(outcome.Request.State)),
		zap.Int("updated_assignments", len(outcome.Updated)))

	if outcome.Unfilled != nil {
		logger.Warn("Released slot could not be refilled",
			zap.String("date", outcome.Unfilled.Date),
			zap.String("type", outcome.Unfilled.TypeID),
			zap.Int("slot", outcome.Unfilled.Slot),
			zap.String("reason", outcome.Unfilled.Reason))
	}

	// Step 5: Persist the terminal state and any assignment changes atomically
	resolvedAt := time.Now().UTC()
	terminal := toModelSwapRequest(outcome.Request, record.CreatedAt, &resolvedAt)

	mutation := runMutationForSwap(outcome)
	if err := database.ResolveSwapRequest(ctx, terminal, mutation); err != nil {
		return nil, fmt.Errorf("failed to save swap resolution: %w", err)
	}

	return &ResolveSwapResult{
		Request:  terminal,
		Updated:  toModelAssignments(outcome.Updated),
		Unfilled: outcome.Unfilled,
	}, nil
}

// runMutationForSwap splits the engine's updated rows into superseded ids and
// fresh inserts.
func runMutationForSwap(outcome *scheduler.SwapResult) db.RunMutation {
	var mutation db.RunMutation
	for _, a := range outcome.Updated {
		if a.Superseded {
			mutation.SupersededIDs = append(mutation.SupersededIDs, a.ID)
			continue
		}
		mutation.Assignments = append(mutation.Assignments, toModelAssignments([]scheduler.Assignment{a})...)
	}
	mutation.EquityDeltas = aggregateEquityDeltas(outcome.EquityDeltas)
	mutation.CompTimeEntries = toCompTimeEntries(outcome.CompTimeDeltas)
	return mutation
}
