package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/calebmorton/dutyroster/internal/config"
	"github.com/calebmorton/dutyroster/pkg/core/model"
	"github.com/calebmorton/dutyroster/pkg/core/scheduler"
)

const dateLayout = "2006-01-02"

// buildAssignmentTypes converts configured assignment types into engine
// types, compiling each comp time rrule into a date-matching closure.
func buildAssignmentTypes(configured []config.AssignmentTypeConfig) ([]scheduler.AssignmentType, error) {
	types := make([]scheduler.AssignmentType, 0, len(configured))

	for _, tc := range configured {
		at := scheduler.AssignmentType{
			ID:             tc.ID,
			Category:       tc.Category,
			RequiresSenior: tc.RequiresSenior,
			SlotsPerDay:    tc.SlotsPerDay,
			Priority:       tc.Priority,
			CompTimeHours:  tc.CompTimeHours,
		}

		if tc.CompTimeRRule != "" {
			qualifies, err := compileDateRule(tc.CompTimeRRule)
			if err != nil {
				return nil, fmt.Errorf("invalid compTimeRRule for %q: %w", tc.ID, err)
			}
			at.CompTimeQualifies = qualifies
		}

		for _, rc := range tc.Rules {
			at.Rules = append(at.Rules, scheduler.Rule{
				Kind:          scheduler.RuleKind(rc.Kind),
				Priority:      rc.Priority,
				WorkerID:      rc.WorkerID,
				WorkerIDs:     rc.WorkerIDs,
				EffectiveFrom: rc.EffectiveFrom,
				EffectiveTo:   rc.EffectiveTo,
			})
		}

		types = append(types, at)
	}

	return types, nil
}

// compileDateRule parses an RRule string into a predicate over ISO dates.
func compileDateRule(rruleStr string) (func(date string) bool, error) {
	rule, err := rrule.StrToRRule(rruleStr)
	if err != nil {
		return nil, err
	}

	return func(date string) bool {
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			return false
		}
		// Anchor the rule just before the date and scan a small window around
		// it; recurrence patterns here are weekly-scale.
		searchStart := day.AddDate(0, 0, -7)
		rule.DTStart(searchStart)
		for _, occurrence := range rule.Between(searchStart, day.AddDate(0, 0, 1), true) {
			if occurrence.Format(dateLayout) == date {
				return true
			}
		}
		return false
	}, nil
}

// Converters between the store records and the engine's snapshot types.

func toSchedulerWorkers(workers []model.Worker) []scheduler.Worker {
	result := make([]scheduler.Worker, len(workers))
	for i, w := range workers {
		eligible := make(map[string]bool, len(w.EligibleTypes))
		for _, t := range w.EligibleTypes {
			eligible[t] = true
		}
		result[i] = scheduler.Worker{
			ID:            w.ID,
			IsSenior:      w.IsSenior,
			IsActive:      w.IsActive,
			StartDate:     w.StartDate,
			EligibleTypes: eligible,
		}
	}
	return result
}

func toSchedulerLeave(records []model.LeaveRecord) []scheduler.LeaveRecord {
	result := make([]scheduler.LeaveRecord, len(records))
	for i, r := range records {
		result[i] = scheduler.LeaveRecord{
			WorkerID:    r.WorkerID,
			StartDate:   r.StartDate,
			EndDate:     r.EndDate,
			HoursPerDay: r.HoursPerDay,
		}
	}
	return result
}

func toSchedulerAssignments(assignments []model.Assignment) []scheduler.Assignment {
	result := make([]scheduler.Assignment, len(assignments))
	for i, a := range assignments {
		result[i] = scheduler.Assignment{
			ID:         a.ID,
			Date:       a.Date,
			TypeID:     a.AssignmentTypeID,
			Slot:       a.Slot,
			WorkerID:   a.WorkerID,
			Source:     scheduler.AssignmentSource(a.Source),
			Superseded: a.Superseded,
			CreatedAt:  a.CreatedAt,
		}
	}
	return result
}

func toSchedulerEquity(snapshots []model.EquitySnapshot) []scheduler.EquitySnapshot {
	result := make([]scheduler.EquitySnapshot, len(snapshots))
	for i, s := range snapshots {
		result[i] = scheduler.EquitySnapshot{
			WorkerID: s.WorkerID,
			TypeID:   s.AssignmentTypeID,
			Year:     s.Year,
			Count:    s.Count,
		}
	}
	return result
}

func toSchedulerBalances(balances []model.CompTimeBalance) []scheduler.CompTimeBalance {
	result := make([]scheduler.CompTimeBalance, len(balances))
	for i, b := range balances {
		result[i] = scheduler.CompTimeBalance{WorkerID: b.WorkerID, BalanceHours: b.BalanceHours}
	}
	return result
}

func toModelAssignments(assignments []scheduler.Assignment) []model.Assignment {
	result := make([]model.Assignment, len(assignments))
	for i, a := range assignments {
		result[i] = model.Assignment{
			ID:               a.ID,
			Date:             a.Date,
			AssignmentTypeID: a.TypeID,
			Slot:             a.Slot,
			WorkerID:         a.WorkerID,
			Source:           string(a.Source),
			Superseded:       a.Superseded,
			CreatedAt:        a.CreatedAt,
		}
	}
	return result
}

// aggregateEquityDeltas folds a run's delta log into per-key sums for the
// store's additive upsert.
func aggregateEquityDeltas(deltas []scheduler.EquityDelta) []model.EquitySnapshot {
	type key struct {
		worker string
		typeID string
		year   int
	}
	sums := make(map[key]int)
	var order []key
	for _, d := range deltas {
		k := key{d.WorkerID, d.TypeID, d.Year}
		if _, seen := sums[k]; !seen {
			order = append(order, k)
		}
		sums[k] += d.Delta
	}

	result := make([]model.EquitySnapshot, 0, len(order))
	for _, k := range order {
		if sums[k] == 0 {
			continue
		}
		result = append(result, model.EquitySnapshot{
			WorkerID:         k.worker,
			AssignmentTypeID: k.typeID,
			Year:             k.year,
			Count:            sums[k],
		})
	}
	return result
}

func toCompTimeEntries(deltas []scheduler.CompTimeDelta) []model.CompTimeEntry {
	result := make([]model.CompTimeEntry, len(deltas))
	now := time.Now().UTC()
	for i, d := range deltas {
		result[i] = model.CompTimeEntry{
			ID:          uuid.New().String(),
			WorkerID:    d.WorkerID,
			Date:        d.Date,
			EarnedHours: d.EarnedHours,
			UsedHours:   d.UsedHours,
			CreatedAt:   now,
		}
	}
	return result
}

func toSchedulerSwapRequest(req model.SwapRequest) scheduler.SwapRequest {
	return scheduler.SwapRequest{
		ID:                 req.ID,
		RequestingWorkerID: req.RequestingWorkerID,
		Date:               req.Date,
		TypeID:             req.AssignmentTypeID,
		Slot:               req.Slot,
		TargetWorkerID:     req.TargetWorkerID,
		Release:            req.Release,
		State:              scheduler.SwapState(req.State),
	}
}

func toModelSwapRequest(req scheduler.SwapRequest, createdAt time.Time, resolvedAt *time.Time) model.SwapRequest {
	return model.SwapRequest{
		ID:                 req.ID,
		RequestingWorkerID: req.RequestingWorkerID,
		Date:               req.Date,
		AssignmentTypeID:   req.TypeID,
		Slot:               req.Slot,
		TargetWorkerID:     req.TargetWorkerID,
		Release:            req.Release,
		State:              string(req.State),
		CreatedAt:          createdAt,
		ResolvedAt:         resolvedAt,
	}
}

func supersededIDs(assignments []scheduler.Assignment) []string {
	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
	}
	return ids
}
