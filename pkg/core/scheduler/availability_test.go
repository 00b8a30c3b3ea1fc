package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newTestWorker builds an active worker eligible for the given types.
// Shared across the package's test files.
func newTestWorker(id string, senior bool, typeIDs ...string) Worker {
	eligible := make(map[string]bool, len(typeIDs))
	for _, t := range typeIDs {
		eligible[t] = true
	}
	return Worker{
		ID:            id,
		IsSenior:      senior,
		IsActive:      true,
		StartDate:     "2020-01-01",
		EligibleTypes: eligible,
	}
}

func TestAvailability_InactiveWorker(t *testing.T) {
	w := newTestWorker("w1", false, "evening")
	w.IsActive = false

	r := NewAvailabilityResolver([]Worker{w}, nil, nil)
	assert.False(t, r.IsAvailable("w1", "2024-03-04"))
}

func TestAvailability_UnknownWorker(t *testing.T) {
	r := NewAvailabilityResolver(nil, nil, nil)
	assert.False(t, r.IsAvailable("nobody", "2024-03-04"))
}

func TestAvailability_FullDayLeaveBlocks(t *testing.T) {
	w := newTestWorker("w1", false, "evening")
	leave := []LeaveRecord{{WorkerID: "w1", StartDate: "2024-03-04", EndDate: "2024-03-06", HoursPerDay: 8}}

	r := NewAvailabilityResolver([]Worker{w}, leave, nil)

	assert.False(t, r.IsAvailable("w1", "2024-03-04"))
	assert.False(t, r.IsAvailable("w1", "2024-03-06"))
	assert.True(t, r.IsAvailable("w1", "2024-03-07"))
}

func TestAvailability_HalfDayLeaveBlocks(t *testing.T) {
	w := newTestWorker("w1", false, "evening")
	leave := []LeaveRecord{{WorkerID: "w1", StartDate: "2024-03-04", EndDate: "2024-03-04", HoursPerDay: 4}}

	r := NewAvailabilityResolver([]Worker{w}, leave, nil)

	// Four or more hours of approved leave make the day unavailable.
	assert.False(t, r.IsAvailable("w1", "2024-03-04"))
}

func TestAvailability_ExistingAssignmentBlocks(t *testing.T) {
	w := newTestWorker("w1", false, "evening")
	existing := []Assignment{{ID: "a1", Date: "2024-03-04", TypeID: "evening", Slot: 0, WorkerID: "w1"}}

	r := NewAvailabilityResolver([]Worker{w}, nil, existing)

	assert.False(t, r.IsAvailable("w1", "2024-03-04"))
	assert.True(t, r.IsAvailable("w1", "2024-03-05"))
}

func TestAvailability_SupersededAssignmentDoesNotBlock(t *testing.T) {
	w := newTestWorker("w1", false, "evening")
	existing := []Assignment{{ID: "a1", Date: "2024-03-04", TypeID: "evening", Slot: 0, WorkerID: "w1", Superseded: true}}

	r := NewAvailabilityResolver([]Worker{w}, nil, existing)
	assert.True(t, r.IsAvailable("w1", "2024-03-04"))
}

func TestAvailability_OccupyReleaseRoundTrip(t *testing.T) {
	w := newTestWorker("w1", false, "evening")
	r := NewAvailabilityResolver([]Worker{w}, nil, nil)

	r.Occupy("w1", "2024-03-04")
	assert.False(t, r.IsAvailable("w1", "2024-03-04"))
	assert.True(t, r.IsAssigned("w1", "2024-03-04"))

	r.Release("w1", "2024-03-04")
	assert.True(t, r.IsAvailable("w1", "2024-03-04"))
	assert.False(t, r.IsAssigned("w1", "2024-03-04"))
}

func TestAvailability_RepeatedQueriesAreIdempotent(t *testing.T) {
	w := newTestWorker("w1", false, "evening")
	leave := []LeaveRecord{{WorkerID: "w1", StartDate: "2024-03-04", EndDate: "2024-03-04", HoursPerDay: 8}}
	r := NewAvailabilityResolver([]Worker{w}, leave, nil)

	for i := 0; i < 5; i++ {
		assert.False(t, r.IsAvailable("w1", "2024-03-04"))
		assert.True(t, r.IsAvailable("w1", "2024-03-05"))
	}
}
