package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/calebmorton/dutyroster/internal/config"
	"github.com/calebmorton/dutyroster/pkg/core/model"
)

// ProposeSwapStore defines the database operations needed for proposing a
// swap.
type ProposeSwapStore interface {
	SnapshotStore
	InsertSwapRequest(ctx context.Context, req model.SwapRequest) error
}

// ProposeSwap opens a pending request to hand a committed assignment to the
// target worker, or to release it back through rule evaluation when release
// is set. Validation runs against current state; the request itself mutates
// nothing until resolved.
func ProposeSwap(
	ctx context.Context,
	database ProposeSwapStore,
	cfg *config.Config,
	logger *zap.Logger,
	date, typeID string,
	slot int,
	requestingWorkerID, targetWorkerID string,
	release bool,
) (*model.SwapRequest, error) {
	logger.Debug("Starting proposeSwap",
		zap.String("date", date),
		zap.String("type", typeID),
		zap.Int("slot", slot),
		zap.String("requesting_worker", requestingWorkerID),
		zap.String("target_worker", targetWorkerID),
		zap.Bool("release", release))

	// Step 1: DB queries - fetch snapshots for the swap date
	snaps, err := loadSnapshots(ctx, database, date, date)
	if err != nil {
		return nil, err
	}

	// Step 2: Build the scheduling session
	session, err := buildSession(cfg, snaps, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduling session: %w", err)
	}

	// Step 3: Validate and open the request
	req, err := session.ProposeSwap(date, typeID, slot, requestingWorkerID, targetWorkerID, release)
	if err != nil {
		return nil, err
	}

	// Step 4: Persist the pending request
	record := toModelSwapRequest(req, time.Now().UTC(), nil)
	if err := database.InsertSwapRequest(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save swap request: %w", err)
	}

	logger.Info("Swap request opened", zap.String("swap_id", record.ID))
	return &record, nil
}
