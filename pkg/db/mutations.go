package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/calebmorton/dutyroster/pkg/core/model"
)

// RunMutation bundles everything one engine operation produced so it persists
// as a single transaction: the assignment commit and its bookkeeping are
// never individually visible.
type RunMutation struct {
	Assignments     []model.Assignment
	SupersededIDs   []string
	EquityDeltas    []model.EquitySnapshot // Count carries the delta, not an absolute
	CompTimeEntries []model.CompTimeEntry
}

// CommitRun applies a run mutation atomically.
func (db *DB) CommitRun(ctx context.Context, m RunMutation) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := applyRunMutation(ctx, tx, m); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run mutation: %w", err)
	}
	return nil
}

func applyRunMutation(ctx context.Context, tx pgx.Tx, m RunMutation) error {
	for _, id := range m.SupersededIDs {
		if _, err := tx.Exec(ctx, `UPDATE assignments SET superseded = TRUE WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to supersede assignment %s: %w", id, err)
		}
	}

	for _, a := range m.Assignments {
		_, err := tx.Exec(ctx, `
			INSERT INTO assignments (id, date, assignment_type_id, slot, worker_id, source, superseded, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.Date, a.AssignmentTypeID, a.Slot, a.WorkerID, a.Source, a.Superseded, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert assignment %s: %w", a.ID, err)
		}
	}

	for _, d := range m.EquityDeltas {
		_, err := tx.Exec(ctx, `
			INSERT INTO equity_snapshots (worker_id, assignment_type_id, year, count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (worker_id, assignment_type_id, year)
			DO UPDATE SET count = equity_snapshots.count + EXCLUDED.count`,
			d.WorkerID, d.AssignmentTypeID, d.Year, d.Count)
		if err != nil {
			return fmt.Errorf("failed to apply equity delta for %s/%s: %w", d.WorkerID, d.AssignmentTypeID, err)
		}
	}

	for _, e := range m.CompTimeEntries {
		_, err := tx.Exec(ctx, `
			INSERT INTO comp_time_entries (id, worker_id, date, earned_hours, used_hours, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.WorkerID, e.Date, e.EarnedHours, e.UsedHours, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert comp time entry %s: %w", e.ID, err)
		}
	}

	return nil
}

// InsertSwapRequest persists a newly proposed swap.
func (db *DB) InsertSwapRequest(ctx context.Context, req model.SwapRequest) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO swap_requests (id, requesting_worker_id, date, assignment_type_id, slot, target_worker_id, release, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.RequestingWorkerID, req.Date, req.AssignmentTypeID, req.Slot,
		req.TargetWorkerID, req.Release, req.State, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert swap request: %w", err)
	}
	return nil
}

// GetSwapRequest fetches one swap request by id.
func (db *DB) GetSwapRequest(ctx context.Context, id string) (model.SwapRequest, error) {
	var req model.SwapRequest
	err := db.pool.QueryRow(ctx, `
		SELECT id, requesting_worker_id, date::text, assignment_type_id, slot, target_worker_id, release, state, created_at, resolved_at
		FROM swap_requests
		WHERE id = $1`, id).
		Scan(&req.ID, &req.RequestingWorkerID, &req.Date, &req.AssignmentTypeID, &req.Slot,
			&req.TargetWorkerID, &req.Release, &req.State, &req.CreatedAt, &req.ResolvedAt)
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("failed to fetch swap request %s: %w", id, err)
	}
	return req, nil
}

// ResolveSwapRequest stores the terminal state of a swap and, when approval
// touched assignments, applies the run mutation in the same transaction.
func (db *DB) ResolveSwapRequest(ctx context.Context, req model.SwapRequest, m RunMutation) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE swap_requests SET state = $2, resolved_at = $3 WHERE id = $1`,
		req.ID, req.State, req.ResolvedAt); err != nil {
		return fmt.Errorf("failed to update swap request %s: %w", req.ID, err)
	}

	if err := applyRunMutation(ctx, tx, m); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit swap resolution: %w", err)
	}
	return nil
}
