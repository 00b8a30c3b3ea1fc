package scheduler

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Config carries the pre-fetched snapshots and knobs for one scheduling
// session. The engine performs no I/O: persistence of the emitted records is
// the calling layer's concern.
type Config struct {
	Roster []Worker
	Types  []AssignmentType
	Leave  []LeaveRecord

	// Existing holds already-committed assignments. PriorEquity must account
	// for every non-superseded record in it, or later reversals will fail
	// the equity consistency check.
	Existing         []Assignment
	PriorEquity      []EquitySnapshot
	CompTimeBalances []CompTimeBalance
	PendingSwaps     []SwapRequest

	// Seed drives the weighted-random equity selection. Identical seeds with
	// identical snapshots reproduce identical rosters.
	Seed int64

	// Deterministic switches selection to least-loaded, ignoring Seed.
	Deterministic bool

	// EquitySmoothing scales how strongly load suppresses selection weight.
	// Zero means the default.
	EquitySmoothing float64
}

// Scheduler holds the mutable state of one scheduling session: availability,
// equity, comp time, and the assignment set. All mutations flow through
// commit/supersede so the bookkeeping invariants hold after every operation.
type Scheduler struct {
	types     map[string]AssignmentType
	typeOrder []AssignmentType
	roster    map[string]Worker

	avail  *AvailabilityResolver
	equity *EquityTracker
	comp   *CompTimeLedger
	rules  *RuleEngine

	active     map[slotKey]*Assignment
	committed  []Assignment
	superseded []Assignment

	swaps map[string]*SwapRequest

	status RunStatus
}

// New validates the configuration and builds a session. Structural problems
// (malformed rules, a senior-required type with no senior workers) fail here,
// before any commit, so a run never applies a partial rule set.
func New(cfg Config) (*Scheduler, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if !cfg.Deterministic {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	s := &Scheduler{
		types:  make(map[string]AssignmentType, len(cfg.Types)),
		roster: make(map[string]Worker, len(cfg.Roster)),
		avail:  NewAvailabilityResolver(cfg.Roster, cfg.Leave, cfg.Existing),
		equity: NewEquityTracker(cfg.Roster, cfg.PriorEquity, cfg.EquitySmoothing, rng),
		comp:   NewCompTimeLedger(cfg.CompTimeBalances),
		active: make(map[slotKey]*Assignment),
		swaps:  make(map[string]*SwapRequest),
		status: RunNotStarted,
	}
	s.rules = NewRuleEngine(cfg.Roster, s.avail)

	for _, w := range cfg.Roster {
		s.roster[w.ID] = w
	}
	for _, at := range cfg.Types {
		s.types[at.ID] = at
		s.typeOrder = append(s.typeOrder, at)
	}
	sort.SliceStable(s.typeOrder, func(i, j int) bool {
		if s.typeOrder[i].Priority != s.typeOrder[j].Priority {
			return s.typeOrder[i].Priority < s.typeOrder[j].Priority
		}
		return s.typeOrder[i].ID < s.typeOrder[j].ID
	})

	for i := range cfg.Existing {
		a := cfg.Existing[i]
		if a.Superseded {
			continue
		}
		s.active[slotKey{a.Date, a.TypeID, a.Slot}] = &a
	}
	for i := range cfg.PendingSwaps {
		req := cfg.PendingSwaps[i]
		s.swaps[req.ID] = &req
	}

	return s, nil
}

func validateConfig(cfg Config) error {
	seenTypes := make(map[string]bool)
	for _, at := range cfg.Types {
		if at.ID == "" {
			return newValidationError("assignment type", "missing id")
		}
		if seenTypes[at.ID] {
			return newValidationError(at.ID, "duplicate assignment type id")
		}
		seenTypes[at.ID] = true
		if at.SlotsPerDay < 1 {
			return newValidationError(at.ID, "slotsPerDay must be at least 1, got %d", at.SlotsPerDay)
		}

		for i, r := range at.Rules {
			switch r.Kind {
			case RulePermanent:
				if r.WorkerID == "" {
					return newValidationError(at.ID, "permanent rule %d names no worker", i)
				}
			case RulePreferredList:
				if len(r.WorkerIDs) == 0 {
					return newValidationError(at.ID, "preferred list rule %d is empty", i)
				}
			case RuleSeniorRequired, RuleGeneralPool:
			default:
				return newValidationError(at.ID, "rule %d has unknown kind %q", i, r.Kind)
			}
			for _, d := range []string{r.EffectiveFrom, r.EffectiveTo} {
				if d == "" {
					continue
				}
				if _, err := parseDate(d); err != nil {
					return newValidationError(at.ID, "rule %d has malformed effective date %q", i, d)
				}
			}
			if r.EffectiveFrom != "" && r.EffectiveTo != "" && r.EffectiveFrom > r.EffectiveTo {
				return newValidationError(at.ID, "rule %d effective range is inverted", i)
			}
		}

		if at.RequiresSenior && !rosterHasSeniorFor(cfg.Roster, at.ID) {
			return newValidationError(at.ID, "requires a senior worker but none is active and eligible")
		}
	}

	for _, w := range cfg.Roster {
		if w.StartDate != "" {
			if _, err := parseDate(w.StartDate); err != nil {
				return newValidationError("worker "+w.ID, "malformed start date %q", w.StartDate)
			}
		}
	}

	return nil
}

func rosterHasSeniorFor(roster []Worker, typeID string) bool {
	for _, w := range roster {
		if w.IsActive && w.IsSenior && w.EligibleFor(typeID) {
			return true
		}
	}
	return false
}

// GenerateResult is the complete report of one generation run. It always
// distinguishes successful assignments from gaps; there is no bare
// success/failure boolean.
type GenerateResult struct {
	Status         RunStatus
	Committed      []Assignment
	Superseded     []Assignment
	Unfilled       []UnfilledSlot
	EquityDeltas   []EquityDelta
	CompTimeDeltas []CompTimeDelta
}

// Generate fills every slot of every assignment type for each date in the
// horizon, in a fixed deterministic order: date, then type priority, then
// slot index. Later decisions depend on equity and availability mutated by
// earlier ones, so this order is part of the algorithm, not a detail.
//
// Already-committed slots are skipped, making a re-run over the same range
// idempotent. With regenerate set, prior rule-engine assignments in the range
// are superseded and their equity and comp time deltas reversed before
// refilling; manual overrides survive regeneration.
func (s *Scheduler) Generate(horizonStart string, horizonDays int, regenerate bool) (*GenerateResult, error) {
	if _, err := parseDate(horizonStart); err != nil {
		return nil, fmt.Errorf("malformed horizon start %q: %w", horizonStart, err)
	}
	if horizonDays < 1 {
		return nil, fmt.Errorf("horizon must cover at least one day, got %d", horizonDays)
	}

	s.status = RunInProgress
	equityMark := len(s.equity.deltas)
	compMark := len(s.comp.deltas)
	committedMark := len(s.committed)
	supersededMark := len(s.superseded)

	var unfilled []UnfilledSlot

	for day := 0; day < horizonDays; day++ {
		date := addDays(horizonStart, day)

		for _, at := range s.typeOrder {
			for slot := 0; slot < at.SlotsPerDay; slot++ {
				key := slotKey{date, at.ID, slot}

				if existing, ok := s.active[key]; ok {
					if !regenerate || existing.Source == SourceManualOverride {
						continue
					}
					if err := s.supersede(existing); err != nil {
						return nil, fmt.Errorf("reversing %s/%s slot %d: %w", date, at.ID, slot, err)
					}
				}

				cs := s.rules.RestrictCandidates(at, date, slot)
				if cs.IsEmpty() {
					unfilled = append(unfilled, UnfilledSlot{
						Date:   date,
						TypeID: at.ID,
						Slot:   slot,
						Reason: gapReason(cs),
					})
					continue
				}

				winner, err := s.equity.Select(cs.Workers, at.ID, date)
				if err != nil {
					return nil, fmt.Errorf("selecting for %s/%s slot %d: %w", date, at.ID, slot, err)
				}

				s.commit(date, at, slot, winner, SourceRuleEngine)
			}
		}
	}

	s.status = RunCompleted
	if len(unfilled) > 0 {
		s.status = RunCompletedWithGaps
	}

	return &GenerateResult{
		Status:         s.status,
		Committed:      append([]Assignment(nil), s.committed[committedMark:]...),
		Superseded:     append([]Assignment(nil), s.superseded[supersededMark:]...),
		Unfilled:       unfilled,
		EquityDeltas:   append([]EquityDelta(nil), s.equity.deltas[equityMark:]...),
		CompTimeDeltas: append([]CompTimeDelta(nil), s.comp.deltas[compMark:]...),
	}, nil
}

// commit creates the assignment and applies the equity and comp time effects
// as one logical transaction: nothing in here can fail, so the assignment is
// never visible without its bookkeeping.
func (s *Scheduler) commit(date string, at AssignmentType, slot int, workerID string, source AssignmentSource) Assignment {
	a := Assignment{
		ID:        uuid.New().String(),
		Date:      date,
		TypeID:    at.ID,
		Slot:      slot,
		WorkerID:  workerID,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	s.active[slotKey{date, at.ID, slot}] = &a
	s.committed = append(s.committed, a)
	s.avail.Occupy(workerID, date)
	s.equity.Record(workerID, at.ID, date)
	if at.qualifiesForCompTime(date) {
		s.comp.Accrue(workerID, date, at.CompTimeHours)
	}
	return a
}

// supersede marks an assignment replaced and reverses its equity and comp
// time effects. A reversal that cannot find its matching prior delta aborts
// with ErrInconsistentEquity rather than proceeding on corrupted state.
func (s *Scheduler) supersede(a *Assignment) error {
	at, ok := s.types[a.TypeID]
	if !ok {
		return fmt.Errorf("assignment %s references unknown type %q: %w", a.ID, a.TypeID, ErrInconsistentEquity)
	}

	if _, err := s.equity.Reverse(a.WorkerID, a.TypeID, a.Date); err != nil {
		return fmt.Errorf("assignment %s: %w", a.ID, err)
	}
	if at.qualifiesForCompTime(a.Date) {
		if _, err := s.comp.ReverseAccrual(a.WorkerID, a.Date, at.CompTimeHours); err != nil {
			return fmt.Errorf("assignment %s comp time: %w", a.ID, err)
		}
	}

	s.avail.Release(a.WorkerID, a.Date)
	a.Superseded = true
	s.superseded = append(s.superseded, *a)
	delete(s.active, slotKey{a.Date, a.TypeID, a.Slot})
	return nil
}

// OverrideResult reports a manual override: the new assignment plus every
// delta it produced, including reversals of whatever it replaced.
type OverrideResult struct {
	Assignment     Assignment
	Replaced       *Assignment
	EquityDeltas   []EquityDelta
	CompTimeDeltas []CompTimeDelta
}

// ApplyOverride commits a worker to a slot bypassing rule evaluation. The
// double-booking check still applies, and equity and comp time update as if
// the worker had been selected normally so downstream fairness math stays
// consistent. Rejections mutate nothing.
func (s *Scheduler) ApplyOverride(date, typeID string, slot int, workerID string) (*OverrideResult, error) {
	at, ok := s.types[typeID]
	if !ok {
		return nil, fmt.Errorf("unknown assignment type %q: %w", typeID, ErrInvalidOverride)
	}
	if slot < 0 || slot >= at.SlotsPerDay {
		return nil, fmt.Errorf("slot %d out of range for %s: %w", slot, typeID, ErrInvalidOverride)
	}
	w, ok := s.roster[workerID]
	if !ok || !w.IsActive {
		return nil, fmt.Errorf("worker %q is not active on the roster: %w", workerID, ErrInvalidOverride)
	}
	if _, err := parseDate(date); err != nil {
		return nil, fmt.Errorf("malformed date %q: %w", date, ErrInvalidOverride)
	}

	key := slotKey{date, typeID, slot}
	existing := s.active[key]

	// Double-booking check. The worker may already hold the very slot being
	// overridden; anything else on the date rejects the override.
	if existing != nil && existing.WorkerID == workerID {
		return nil, fmt.Errorf("worker %s already holds this slot: %w", workerID, ErrInvalidOverride)
	}
	if s.avail.IsAssigned(workerID, date) {
		return nil, fmt.Errorf("worker %s is already assigned on %s: %w", workerID, date, ErrInvalidOverride)
	}

	equityMark := len(s.equity.deltas)
	compMark := len(s.comp.deltas)

	var replaced *Assignment
	if existing != nil {
		if err := s.supersede(existing); err != nil {
			return nil, err
		}
		replaced = &s.superseded[len(s.superseded)-1]
	}

	a := s.commit(date, at, slot, workerID, SourceManualOverride)

	return &OverrideResult{
		Assignment:     a,
		Replaced:       replaced,
		EquityDeltas:   append([]EquityDelta(nil), s.equity.deltas[equityMark:]...),
		CompTimeDeltas: append([]CompTimeDelta(nil), s.comp.deltas[compMark:]...),
	}, nil
}

// Status returns the lifecycle state of the most recent generation run.
func (s *Scheduler) Status() RunStatus {
	return s.status
}

// ActiveAssignment returns the live assignment for a slot, if any.
func (s *Scheduler) ActiveAssignment(date, typeID string, slot int) (Assignment, bool) {
	a, ok := s.active[slotKey{date, typeID, slot}]
	if !ok {
		return Assignment{}, false
	}
	return *a, true
}

// EquityCount exposes the tracker's year-to-date count for inspection.
func (s *Scheduler) EquityCount(workerID, typeID string, year int) int {
	return s.equity.Count(workerID, typeID, year)
}

// CompTimeBalance exposes the ledger balance for inspection.
func (s *Scheduler) CompTimeBalance(workerID string) int {
	return s.comp.Balance(workerID)
}

// UseCompTime debits comp time for the worker dated today. Rejected requests
// mutate nothing.
func (s *Scheduler) UseCompTime(workerID, date string, hours int) (CompTimeDelta, error) {
	if _, ok := s.roster[workerID]; !ok {
		return CompTimeDelta{}, fmt.Errorf("unknown worker %q: %w", workerID, ErrInsufficientCompTime)
	}
	return s.comp.Use(workerID, date, hours)
}
