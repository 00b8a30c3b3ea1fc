package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/calebmorton/dutyroster/pkg/core/model"
	"github.com/calebmorton/dutyroster/pkg/core/scheduler"
	"github.com/calebmorton/dutyroster/pkg/db"
)

// UseCompTimeStore defines the database operations needed for debiting comp
// time.
type UseCompTimeStore interface {
	GetWorkers(ctx context.Context) ([]model.Worker, error)
	GetCompTimeBalances(ctx context.Context) ([]model.CompTimeBalance, error)
	CommitRun(ctx context.Context, m db.RunMutation) error
}

// UseCompTimeResult contains the persisted debit and the remaining balance.
type UseCompTimeResult struct {
	Entry            model.CompTimeEntry
	RemainingBalance int
}

// UseCompTime debits earned comp time for a worker. An overdraft is rejected
// atomically: either the full debit persists or nothing does.
func UseCompTime(
	ctx context.Context,
	database UseCompTimeStore,
	logger *zap.Logger,
	workerID, date string,
	hours int,
) (*UseCompTimeResult, error) {
	logger.Debug("Starting useCompTime",
		zap.String("worker", workerID),
		zap.String("date", date),
		zap.Int("hours", hours))

	// Step 1: DB queries - roster and current balances
	workers, err := database.GetWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workers: %w", err)
	}
	if !rosterContains(workers, workerID) {
		return nil, fmt.Errorf("unknown worker %q", workerID)
	}

	balances, err := database.GetCompTimeBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comp time balances: %w", err)
	}

	// Step 2: Check and debit through the ledger
	ledger := scheduler.NewCompTimeLedger(toSchedulerBalances(balances))
	delta, err := ledger.Use(workerID, date, hours)
	if err != nil {
		return nil, err
	}

	// Step 3: Persist the debit
	entries := toCompTimeEntries([]scheduler.CompTimeDelta{delta})
	if err := database.CommitRun(ctx, db.RunMutation{CompTimeEntries: entries}); err != nil {
		return nil, fmt.Errorf("failed to save comp time debit: %w", err)
	}

	remaining := ledger.Balance(workerID)
	logger.Info("Comp time debited",
		zap.String("worker", workerID),
		zap.Int("hours", hours),
		zap.Int("remaining", remaining))

	return &UseCompTimeResult{
		Entry:            entries[0],
		RemainingBalance: remaining,
	}, nil
}

func rosterContains(workers []model.Worker, workerID string) bool {
	for _, w := range workers {
		if w.ID == workerID {
			return true
		}
	}
	return false
}
