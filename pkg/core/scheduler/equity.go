package scheduler

import (
	"math/rand"
)

type equityKey struct {
	WorkerID string
	TypeID   string
	Year     int
}

// EquityTracker maintains year-to-date assignment counts per worker per type
// and selects winners so workload spreads evenly over time. Selection is
// weighted-random with weight inversely proportional to the worker's
// pro-rated year-to-date load; with a nil random source it degrades to
// deterministic least-loaded.
type EquityTracker struct {
	workers map[string]Worker
	counts  map[equityKey]int
	deltas  []EquityDelta

	// smoothing scales how strongly the load score suppresses selection
	// weight. Higher values converge to balance faster.
	smoothing float64

	rng *rand.Rand
}

// NewEquityTracker seeds the tracker with prior year-to-date counts so
// fairness carries across scheduling runs.
func NewEquityTracker(workers []Worker, prior []EquitySnapshot, smoothing float64, rng *rand.Rand) *EquityTracker {
	if smoothing <= 0 {
		smoothing = 1.0
	}
	t := &EquityTracker{
		workers:   make(map[string]Worker, len(workers)),
		counts:    make(map[equityKey]int, len(prior)),
		smoothing: smoothing,
		rng:       rng,
	}
	for _, w := range workers {
		t.workers[w.ID] = w
	}
	for _, s := range prior {
		t.counts[equityKey{s.WorkerID, s.TypeID, s.Year}] = s.Count
	}
	return t
}

// Count returns the current year-to-date count for (worker, type, year).
func (t *EquityTracker) Count(workerID, typeID string, year int) int {
	return t.counts[equityKey{workerID, typeID, year}]
}

// Deltas returns every increment and decrement recorded so far, in order.
func (t *EquityTracker) Deltas() []EquityDelta {
	return t.deltas
}

// score is the fairness score: year-to-date count normalized by the days the
// worker has been in service this year. New hires pro-rate to their shorter
// window so their low raw counts do not read as underworked.
func (t *EquityTracker) score(workerID, typeID, asOfDate string) float64 {
	year := yearOf(asOfDate)
	count := t.Count(workerID, typeID, year)

	yearStart := asOfDate[:4] + "-01-01"
	serviceStart := yearStart
	if w, ok := t.workers[workerID]; ok && w.StartDate > yearStart {
		serviceStart = w.StartDate
	}
	eligibleDays := daysInclusive(serviceStart, asOfDate)

	return float64(count) / float64(eligibleDays)
}

// Select picks a winner from the candidates for the assignment type as of the
// given date. Candidate order is preserved as the deterministic tie-break:
// with a nil random source the least-loaded earliest candidate wins; with a
// seeded source identical inputs reproduce identical picks.
func (t *EquityTracker) Select(candidates []Worker, typeID, asOfDate string) (string, error) {
	if len(candidates) == 0 {
		return "", newValidationError(typeID, "select called with no candidates")
	}
	if len(candidates) == 1 {
		return candidates[0].ID, nil
	}

	if t.rng == nil {
		return t.selectLeastLoaded(candidates, typeID, asOfDate), nil
	}

	// Weighted random draw: lower load, higher weight. The +1 keeps weights
	// finite for zero-count workers and bounds any single weight at 1.
	weights := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		// Scale the score by a year of days so early-year counts still
		// separate the weights meaningfully.
		load := t.score(c.ID, typeID, asOfDate) * 365.0
		weights[i] = 1.0 / (1.0 + t.smoothing*load)
		total += weights[i]
	}

	draw := t.rng.Float64() * total
	for i, w := range weights {
		draw -= w
		if draw < 0 {
			return candidates[i].ID, nil
		}
	}
	return candidates[len(candidates)-1].ID, nil
}

func (t *EquityTracker) selectLeastLoaded(candidates []Worker, typeID, asOfDate string) string {
	best := candidates[0].ID
	bestScore := t.score(best, typeID, asOfDate)
	for _, c := range candidates[1:] {
		s := t.score(c.ID, typeID, asOfDate)
		if s < bestScore {
			best = c.ID
			bestScore = s
		}
	}
	return best
}

// Record increments the year-to-date count for a committed assignment and
// logs the matching +1 delta.
func (t *EquityTracker) Record(workerID, typeID, date string) EquityDelta {
	year := yearOf(date)
	t.counts[equityKey{workerID, typeID, year}]++
	d := EquityDelta{WorkerID: workerID, TypeID: typeID, Year: year, Date: date, Delta: +1}
	t.deltas = append(t.deltas, d)
	return d
}

// Reverse decrements the count when an assignment is superseded. A reversal
// with no matching prior count means the run's bookkeeping is corrupted, so
// it fails with ErrInconsistentEquity instead of going negative.
func (t *EquityTracker) Reverse(workerID, typeID, date string) (EquityDelta, error) {
	year := yearOf(date)
	key := equityKey{workerID, typeID, year}
	if t.counts[key] <= 0 {
		return EquityDelta{}, ErrInconsistentEquity
	}
	t.counts[key]--
	d := EquityDelta{WorkerID: workerID, TypeID: typeID, Year: year, Date: date, Delta: -1}
	t.deltas = append(t.deltas, d)
	return d, nil
}
