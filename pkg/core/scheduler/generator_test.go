package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseTypes is a small but representative configuration: a senior-only
// evening duty, a two-slot front desk, and a weekend-credited remote duty.
func baseTypes() []AssignmentType {
	return []AssignmentType{
		{ID: "evening", Category: "Evening", RequiresSenior: true, SlotsPerDay: 1, Priority: 1},
		{ID: "frontDesk", Category: "FrontDeskAM", SlotsPerDay: 2, Priority: 2},
		{ID: "remote", Category: "Remote", SlotsPerDay: 1, Priority: 3, CompTimeHours: 8},
	}
}

func baseRoster() []Worker {
	return []Worker{
		newTestWorker("w1", true, "evening", "frontDesk", "remote"),
		newTestWorker("w2", true, "evening", "frontDesk", "remote"),
		newTestWorker("w3", false, "frontDesk", "remote"),
		newTestWorker("w4", false, "frontDesk", "remote"),
		newTestWorker("w5", false, "frontDesk", "remote"),
		newTestWorker("w6", false, "frontDesk", "remote"),
	}
}

func mustScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestGenerate_InvariantsHold(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 7})

	result, err := s.Generate("2024-03-04", 7, false)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.Status)
	assert.Empty(t, result.Unfilled)

	// Uniqueness: no two assignments share (date, type, slot).
	seenSlots := make(map[slotKey]bool)
	// No double-booking: no worker twice on one date.
	seenWorkerDates := make(map[[2]string]bool)

	for _, a := range result.Committed {
		key := slotKey{a.Date, a.TypeID, a.Slot}
		assert.False(t, seenSlots[key], "duplicate slot %v", key)
		seenSlots[key] = true

		wd := [2]string{a.WorkerID, a.Date}
		assert.False(t, seenWorkerDates[wd], "worker %s double-booked on %s", a.WorkerID, a.Date)
		seenWorkerDates[wd] = true
	}

	// Every committed slot of every type is covered: 7 days x (1 + 2 + 1).
	assert.Len(t, result.Committed, 7*4)
}

func TestGenerate_EquityDeltaSumMatchesCommits(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 3})

	result, err := s.Generate("2024-03-04", 14, false)
	require.NoError(t, err)

	type wt struct {
		worker string
		typeID string
	}
	commitCounts := make(map[wt]int)
	for _, a := range result.Committed {
		commitCounts[wt{a.WorkerID, a.TypeID}]++
	}
	deltaSums := make(map[wt]int)
	for _, d := range result.EquityDeltas {
		deltaSums[wt{d.WorkerID, d.TypeID}] += d.Delta
	}

	assert.Equal(t, commitCounts, deltaSums)
	for key, sum := range deltaSums {
		assert.Equal(t, sum, s.EquityCount(key.worker, key.typeID, 2024))
	}
}

func TestGenerate_SeniorTypeAlwaysGetsSenior(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 11})

	result, err := s.Generate("2024-03-04", 21, false)
	require.NoError(t, err)

	seniors := map[string]bool{"w1": true, "w2": true}
	for _, a := range result.Committed {
		if a.TypeID == "evening" {
			assert.True(t, seniors[a.WorkerID], "evening slot on %s went to non-senior %s", a.Date, a.WorkerID)
		}
	}
}

func TestGenerate_SeniorRestrictionBeatsEquityWeight(t *testing.T) {
	// The junior worker has the lower evening count, but seniority is a
	// restriction applied before equity selection.
	senior := newTestWorker("senior", true, "evening")
	junior := newTestWorker("junior", false, "evening")
	prior := []EquitySnapshot{
		{WorkerID: "senior", TypeID: "evening", Year: 2024, Count: 9},
		{WorkerID: "junior", TypeID: "evening", Year: 2024, Count: 0},
	}
	types := []AssignmentType{{ID: "evening", RequiresSenior: true, SlotsPerDay: 1, Priority: 1}}

	s := mustScheduler(t, Config{Roster: []Worker{senior, junior}, Types: types, PriorEquity: prior, Seed: 1})
	result, err := s.Generate("2024-03-04", 1, false)
	require.NoError(t, err)

	require.Len(t, result.Committed, 1)
	assert.Equal(t, "senior", result.Committed[0].WorkerID)
}

func TestGenerate_GapReportedWhenNoTierHasCandidates(t *testing.T) {
	// Nobody is eligible for the processing center.
	types := append(baseTypes(), AssignmentType{ID: "processing", Category: "ProcessingCenter", SlotsPerDay: 1, Priority: 4})

	s := mustScheduler(t, Config{Roster: baseRoster(), Types: types, Seed: 5})
	result, err := s.Generate("2024-03-04", 2, false)
	require.NoError(t, err)

	assert.Equal(t, RunCompletedWithGaps, result.Status)
	require.Len(t, result.Unfilled, 2)
	for _, gap := range result.Unfilled {
		assert.Equal(t, "processing", gap.TypeID)
		assert.NotEmpty(t, gap.Reason)
	}
}

func TestGenerate_PermanentOnLeaveStillFills(t *testing.T) {
	types := []AssignmentType{{
		ID:          "priorityA",
		Category:    "PriorityA",
		SlotsPerDay: 1,
		Priority:    1,
		Rules:       []Rule{{Kind: RulePermanent, Priority: 0, WorkerID: "w3"}},
	}}
	roster := []Worker{
		newTestWorker("w3", false, "priorityA"),
		newTestWorker("w4", false, "priorityA"),
	}
	leave := []LeaveRecord{{WorkerID: "w3", StartDate: "2024-03-04", EndDate: "2024-03-04", HoursPerDay: 8}}

	s := mustScheduler(t, Config{Roster: roster, Types: types, Leave: leave, Seed: 2})
	result, err := s.Generate("2024-03-04", 1, false)
	require.NoError(t, err)

	// The slot falls through to the general pool; it must not appear as a gap.
	assert.Empty(t, result.Unfilled)
	require.Len(t, result.Committed, 1)
	assert.Equal(t, "w4", result.Committed[0].WorkerID)
}

func TestGenerate_IdenticalSeedsReproduceIdenticalRosters(t *testing.T) {
	run := func() []Assignment {
		s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 99})
		result, err := s.Generate("2024-03-04", 28, false)
		require.NoError(t, err)
		return result.Committed
	}

	first := run()
	second := run()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Date, second[i].Date)
		assert.Equal(t, first[i].TypeID, second[i].TypeID)
		assert.Equal(t, first[i].Slot, second[i].Slot)
		assert.Equal(t, first[i].WorkerID, second[i].WorkerID)
	}
}

func TestGenerate_RerunOverCommittedRangeIsIdempotent(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 4})

	first, err := s.Generate("2024-03-04", 7, false)
	require.NoError(t, err)
	require.NotEmpty(t, first.Committed)

	second, err := s.Generate("2024-03-04", 7, false)
	require.NoError(t, err)
	assert.Empty(t, second.Committed)
	assert.Empty(t, second.EquityDeltas)
}

func TestGenerate_RegenerateReversesBeforeRefilling(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Deterministic: true})

	first, err := s.Generate("2024-03-09", 2, false) // a weekend, so comp time moves too
	require.NoError(t, err)

	countsAfterFirst := make(map[string]int)
	for _, w := range baseRoster() {
		countsAfterFirst[w.ID] = s.EquityCount(w.ID, "remote", 2024)
	}

	second, err := s.Generate("2024-03-09", 2, true)
	require.NoError(t, err)

	// Every first-run assignment was superseded and refilled.
	assert.Len(t, second.Superseded, len(first.Committed))
	assert.Len(t, second.Committed, len(first.Committed))

	// Deterministic selection over identical state lands on the same workers,
	// so the equity bookkeeping round-trips exactly.
	for _, w := range baseRoster() {
		assert.Equal(t, countsAfterFirst[w.ID], s.EquityCount(w.ID, "remote", 2024))
	}

	// The audit trail keeps superseded rows rather than deleting them.
	for _, a := range second.Superseded {
		assert.True(t, a.Superseded)
	}
}

func TestGenerate_ManualOverrideSurvivesRegeneration(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 8})

	_, err := s.Generate("2024-03-04", 1, false)
	require.NoError(t, err)

	// Free w6 from whatever it holds so the override cannot double-book.
	override, err := s.ApplyOverride("2024-03-05", "remote", 0, "w6")
	require.NoError(t, err)

	result, err := s.Generate("2024-03-04", 2, true)
	require.NoError(t, err)

	kept, ok := s.ActiveAssignment("2024-03-05", "remote", 0)
	require.True(t, ok)
	assert.Equal(t, override.Assignment.ID, kept.ID)
	assert.Equal(t, SourceManualOverride, kept.Source)

	for _, a := range result.Superseded {
		assert.NotEqual(t, override.Assignment.ID, a.ID)
	}
}

func TestGenerate_WeekendCommitsAccrueCompTime(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 6})

	// 2024-03-09 is a Saturday; only the remote type carries comp time.
	result, err := s.Generate("2024-03-09", 1, false)
	require.NoError(t, err)

	var remoteWorker string
	for _, a := range result.Committed {
		if a.TypeID == "remote" {
			remoteWorker = a.WorkerID
		}
	}
	require.NotEmpty(t, remoteWorker)

	require.Len(t, result.CompTimeDeltas, 1)
	assert.Equal(t, remoteWorker, result.CompTimeDeltas[0].WorkerID)
	assert.Equal(t, 8, result.CompTimeDeltas[0].EarnedHours)
	assert.Equal(t, 8, s.CompTimeBalance(remoteWorker))
}

func TestGenerate_WeekdayCommitsDoNotAccrue(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 6})

	result, err := s.Generate("2024-03-04", 1, false) // Monday
	require.NoError(t, err)
	assert.Empty(t, result.CompTimeDeltas)
}

func TestNew_SeniorTypeWithoutSeniorsFailsFast(t *testing.T) {
	roster := []Worker{newTestWorker("junior", false, "evening")}
	types := []AssignmentType{{ID: "evening", RequiresSenior: true, SlotsPerDay: 1}}

	_, err := New(Config{Roster: roster, Types: types})
	require.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNew_MalformedRulesFailFast(t *testing.T) {
	roster := baseRoster()

	cases := []struct {
		name string
		rule Rule
	}{
		{"permanent without worker", Rule{Kind: RulePermanent}},
		{"empty preferred list", Rule{Kind: RulePreferredList}},
		{"unknown kind", Rule{Kind: RuleKind("lottery")}},
		{"bad effective date", Rule{Kind: RuleGeneralPool, EffectiveFrom: "03/04/2024"}},
		{"inverted window", Rule{Kind: RuleGeneralPool, EffectiveFrom: "2024-06-30", EffectiveTo: "2024-06-01"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			types := []AssignmentType{{ID: "frontDesk", SlotsPerDay: 1, Rules: []Rule{tc.rule}}}
			_, err := New(Config{Roster: roster, Types: types})
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestApplyOverride_RejectsDoubleBooking(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes(), Seed: 12})

	_, err := s.Generate("2024-03-04", 1, false)
	require.NoError(t, err)

	// Every roster worker with a 2024-03-04 assignment is double-booked for
	// any other slot that day.
	busy, ok := s.ActiveAssignment("2024-03-04", "evening", 0)
	require.True(t, ok)

	_, err = s.ApplyOverride("2024-03-04", "frontDesk", 0, busy.WorkerID)
	assert.ErrorIs(t, err, ErrInvalidOverride)
}

func TestApplyOverride_ReplacesAndRebalances(t *testing.T) {
	// Seniors eligible only for evening, so the losing senior is guaranteed
	// free for the override.
	roster := []Worker{
		newTestWorker("w1", true, "evening"),
		newTestWorker("w2", true, "evening"),
		newTestWorker("w3", false, "frontDesk", "remote"),
		newTestWorker("w4", false, "frontDesk", "remote"),
		newTestWorker("w5", false, "frontDesk", "remote"),
	}
	s := mustScheduler(t, Config{Roster: roster, Types: baseTypes(), Seed: 12})

	_, err := s.Generate("2024-03-04", 1, false)
	require.NoError(t, err)

	prev, ok := s.ActiveAssignment("2024-03-04", "evening", 0)
	require.True(t, ok)

	replacement := "w1"
	if prev.WorkerID == "w1" {
		replacement = "w2"
	}

	result, err := s.ApplyOverride("2024-03-04", "evening", 0, replacement)
	require.NoError(t, err)

	assert.Equal(t, SourceManualOverride, result.Assignment.Source)
	require.NotNil(t, result.Replaced)
	assert.Equal(t, prev.ID, result.Replaced.ID)

	// Matched -1/+1 pair keeps the sum invariant.
	sum := 0
	for _, d := range result.EquityDeltas {
		sum += d.Delta
	}
	assert.Equal(t, 0, sum)
	assert.Equal(t, 0, s.EquityCount(prev.WorkerID, "evening", 2024))
	assert.Equal(t, 1, s.EquityCount(replacement, "evening", 2024))
}

func TestApplyOverride_UnknownSlotRejected(t *testing.T) {
	s := mustScheduler(t, Config{Roster: baseRoster(), Types: baseTypes()})

	_, err := s.ApplyOverride("2024-03-04", "evening", 5, "w1")
	assert.ErrorIs(t, err, ErrInvalidOverride)

	_, err = s.ApplyOverride("2024-03-04", "nope", 0, "w1")
	assert.ErrorIs(t, err, ErrInvalidOverride)
}
