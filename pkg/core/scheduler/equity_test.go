package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquity_PriorSnapshotsSeedCounts(t *testing.T) {
	workers := []Worker{newTestWorker("w1", false, "remote")}
	prior := []EquitySnapshot{{WorkerID: "w1", TypeID: "remote", Year: 2024, Count: 7}}

	tracker := NewEquityTracker(workers, prior, 1.0, nil)

	assert.Equal(t, 7, tracker.Count("w1", "remote", 2024))
	assert.Equal(t, 0, tracker.Count("w1", "remote", 2023))
}

func TestEquity_LeastLoadedPicksLowerCount(t *testing.T) {
	workers := []Worker{
		newTestWorker("w1", false, "remote"),
		newTestWorker("w2", false, "remote"),
	}
	prior := []EquitySnapshot{
		{WorkerID: "w1", TypeID: "remote", Year: 2024, Count: 5},
		{WorkerID: "w2", TypeID: "remote", Year: 2024, Count: 2},
	}
	tracker := NewEquityTracker(workers, prior, 1.0, nil)

	winner, err := tracker.Select(workers, "remote", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "w2", winner)
}

func TestEquity_LeastLoadedTieBreaksByCandidateOrder(t *testing.T) {
	workers := []Worker{
		newTestWorker("w2", false, "remote"),
		newTestWorker("w1", false, "remote"),
	}
	tracker := NewEquityTracker(workers, nil, 1.0, nil)

	winner, err := tracker.Select(workers, "remote", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "w2", winner)
}

func TestEquity_ProRatingPenalizesNewHires(t *testing.T) {
	veteran := newTestWorker("veteran", false, "remote")
	newHire := newTestWorker("newhire", false, "remote")
	newHire.StartDate = "2024-05-01"

	prior := []EquitySnapshot{
		{WorkerID: "veteran", TypeID: "remote", Year: 2024, Count: 3},
		{WorkerID: "newhire", TypeID: "remote", Year: 2024, Count: 3},
	}
	tracker := NewEquityTracker([]Worker{veteran, newHire}, prior, 1.0, nil)

	// Equal raw counts, but the new hire earned theirs over a much shorter
	// service window, so their pro-rated load is higher.
	winner, err := tracker.Select([]Worker{newHire, veteran}, "remote", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "veteran", winner)
}

func TestEquity_SeededSelectionIsReproducible(t *testing.T) {
	workers := []Worker{
		newTestWorker("w1", false, "remote"),
		newTestWorker("w2", false, "remote"),
		newTestWorker("w3", false, "remote"),
	}

	pick := func(seed int64) []string {
		tracker := NewEquityTracker(workers, nil, 1.0, rand.New(rand.NewSource(seed)))
		var picks []string
		for i := 0; i < 20; i++ {
			winner, err := tracker.Select(workers, "remote", "2024-06-01")
			require.NoError(t, err)
			tracker.Record(winner, "remote", "2024-06-01")
			picks = append(picks, winner)
		}
		return picks
	}

	assert.Equal(t, pick(42), pick(42))
}

func TestEquity_SingleCandidateSkipsTheDraw(t *testing.T) {
	w := newTestWorker("w1", false, "remote")
	tracker := NewEquityTracker([]Worker{w}, nil, 1.0, rand.New(rand.NewSource(1)))

	winner, err := tracker.Select([]Worker{w}, "remote", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "w1", winner)
}

func TestEquity_SelectWithNoCandidatesFails(t *testing.T) {
	tracker := NewEquityTracker(nil, nil, 1.0, nil)
	_, err := tracker.Select(nil, "remote", "2024-06-01")
	assert.Error(t, err)
}

func TestEquity_RecordReverseRoundTrip(t *testing.T) {
	w := newTestWorker("w1", false, "remote")
	tracker := NewEquityTracker([]Worker{w}, nil, 1.0, nil)

	tracker.Record("w1", "remote", "2024-06-01")
	assert.Equal(t, 1, tracker.Count("w1", "remote", 2024))

	_, err := tracker.Reverse("w1", "remote", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 0, tracker.Count("w1", "remote", 2024))

	// The log keeps both movements as a matched pair.
	deltas := tracker.Deltas()
	require.Len(t, deltas, 2)
	assert.Equal(t, +1, deltas[0].Delta)
	assert.Equal(t, -1, deltas[1].Delta)
}

func TestEquity_ReverseWithoutPriorCountFails(t *testing.T) {
	w := newTestWorker("w1", false, "remote")
	tracker := NewEquityTracker([]Worker{w}, nil, 1.0, nil)

	_, err := tracker.Reverse("w1", "remote", "2024-06-01")
	assert.ErrorIs(t, err, ErrInconsistentEquity)
	assert.Empty(t, tracker.Deltas())
}

func TestEquity_DeltaSumMatchesCount(t *testing.T) {
	w := newTestWorker("w1", false, "remote")
	tracker := NewEquityTracker([]Worker{w}, nil, 1.0, nil)

	tracker.Record("w1", "remote", "2024-06-01")
	tracker.Record("w1", "remote", "2024-06-02")
	_, err := tracker.Reverse("w1", "remote", "2024-06-01")
	require.NoError(t, err)
	tracker.Record("w1", "remote", "2024-06-03")

	sum := 0
	for _, d := range tracker.Deltas() {
		sum += d.Delta
	}
	assert.Equal(t, tracker.Count("w1", "remote", 2024), sum)
}
