package db

import (
	"context"
	"fmt"

	"github.com/calebmorton/dutyroster/pkg/core/model"
)

// GetWorkers returns the full worker roster snapshot, including inactive
// workers; the engine filters on the IsActive flag itself.
func (db *DB) GetWorkers(ctx context.Context) ([]model.Worker, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, first_name, last_name, is_senior, is_active, start_date::text, eligible_types
		FROM workers
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []model.Worker
	for rows.Next() {
		var w model.Worker
		if err := rows.Scan(&w.ID, &w.FirstName, &w.LastName, &w.IsSenior, &w.IsActive, &w.StartDate, &w.EligibleTypes); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// GetLeaveRecords returns approved leave overlapping the date range.
func (db *DB) GetLeaveRecords(ctx context.Context, start, end string) ([]model.LeaveRecord, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, worker_id, category, start_date::text, end_date::text, hours_per_day, is_protected
		FROM leave_records
		WHERE start_date <= $2 AND end_date >= $1
		ORDER BY worker_id, start_date`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave records: %w", err)
	}
	defer rows.Close()

	var records []model.LeaveRecord
	for rows.Next() {
		var r model.LeaveRecord
		if err := rows.Scan(&r.ID, &r.WorkerID, &r.Category, &r.StartDate, &r.EndDate, &r.HoursPerDay, &r.IsProtected); err != nil {
			return nil, fmt.Errorf("failed to scan leave record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetAssignments returns every assignment row in the date range, superseded
// rows included, so the caller sees the full audit trail.
func (db *DB) GetAssignments(ctx context.Context, start, end string) ([]model.Assignment, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, date::text, assignment_type_id, slot, worker_id, source, superseded, created_at
		FROM assignments
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, assignment_type_id, slot`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.Date, &a.AssignmentTypeID, &a.Slot, &a.WorkerID, &a.Source, &a.Superseded, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// GetEquitySnapshots returns the year-to-date counts for the given year.
func (db *DB) GetEquitySnapshots(ctx context.Context, year int) ([]model.EquitySnapshot, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT worker_id, assignment_type_id, year, count
		FROM equity_snapshots
		WHERE year = $1`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.EquitySnapshot
	for rows.Next() {
		var s model.EquitySnapshot
		if err := rows.Scan(&s.WorkerID, &s.AssignmentTypeID, &s.Year, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan equity snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// GetCompTimeBalances returns each worker's running comp time balance.
func (db *DB) GetCompTimeBalances(ctx context.Context) ([]model.CompTimeBalance, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT worker_id, COALESCE(SUM(earned_hours - used_hours), 0)
		FROM comp_time_entries
		GROUP BY worker_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query comp time balances: %w", err)
	}
	defer rows.Close()

	var balances []model.CompTimeBalance
	for rows.Next() {
		var b model.CompTimeBalance
		if err := rows.Scan(&b.WorkerID, &b.BalanceHours); err != nil {
			return nil, fmt.Errorf("failed to scan comp time balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
