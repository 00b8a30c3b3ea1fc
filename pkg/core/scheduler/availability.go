package scheduler

// AvailabilityResolver answers whether a worker can be assigned on a date.
// It is built once per run from the leave and assignment snapshots and then
// kept current as the run commits and supersedes assignments.
type AvailabilityResolver struct {
	workers map[string]Worker

	// leaveHours maps workerID -> date -> approved leave hours that day.
	leaveHours map[string]map[string]int

	// assigned maps workerID -> date -> number of live assignments that day.
	// A count (not a bool) so supersede/commit pairs stay balanced.
	assigned map[string]map[string]int
}

// NewAvailabilityResolver indexes the run snapshot. Superseded assignments do
// not block availability.
func NewAvailabilityResolver(workers []Worker, leave []LeaveRecord, existing []Assignment) *AvailabilityResolver {
	r := &AvailabilityResolver{
		workers:    make(map[string]Worker, len(workers)),
		leaveHours: make(map[string]map[string]int),
		assigned:   make(map[string]map[string]int),
	}

	for _, w := range workers {
		r.workers[w.ID] = w
	}

	for _, rec := range leave {
		start, err := parseDate(rec.StartDate)
		if err != nil {
			continue
		}
		end, err := parseDate(rec.EndDate)
		if err != nil {
			continue
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			date := d.Format(dateLayout)
			if r.leaveHours[rec.WorkerID] == nil {
				r.leaveHours[rec.WorkerID] = make(map[string]int)
			}
			r.leaveHours[rec.WorkerID][date] += rec.HoursPerDay
		}
	}

	for _, a := range existing {
		if a.Superseded || a.WorkerID == "" {
			continue
		}
		r.Occupy(a.WorkerID, a.Date)
	}

	return r
}

// IsAvailable reports whether the worker can take an assignment on the date.
// A worker is unavailable if inactive, on approved leave for four or more
// hours, or already assigned that day. Pure lookup, no side effects.
func (r *AvailabilityResolver) IsAvailable(workerID, date string) bool {
	w, ok := r.workers[workerID]
	if !ok || !w.IsActive {
		return false
	}
	if r.leaveHours[workerID][date] >= 4 {
		return false
	}
	return r.assigned[workerID][date] == 0
}

// IsAssigned reports whether the worker already holds a live assignment on
// the date, ignoring leave and active status.
func (r *AvailabilityResolver) IsAssigned(workerID, date string) bool {
	return r.assigned[workerID][date] > 0
}

// Occupy marks the worker as assigned on the date.
func (r *AvailabilityResolver) Occupy(workerID, date string) {
	if r.assigned[workerID] == nil {
		r.assigned[workerID] = make(map[string]int)
	}
	r.assigned[workerID][date]++
}

// Release reverses a prior Occupy when an assignment is superseded.
func (r *AvailabilityResolver) Release(workerID, date string) {
	if r.assigned[workerID] != nil && r.assigned[workerID][date] > 0 {
		r.assigned[workerID][date]--
	}
}
