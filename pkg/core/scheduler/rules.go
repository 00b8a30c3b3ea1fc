package scheduler

import (
	"fmt"
	"sort"
)

// CandidateSet is the outcome of tier evaluation for one slot: the available
// workers the winning tier produced, in the tier's preference order.
type CandidateSet struct {
	Workers []Worker

	// Tier names the rule kind that produced the candidates. Empty when no
	// tier had any.
	Tier RuleKind

	// TiersTried lists every tier evaluated, for the gap report.
	TiersTried []RuleKind
}

// IsEmpty reports whether no tier produced a candidate.
func (cs CandidateSet) IsEmpty() bool {
	return len(cs.Workers) == 0
}

// RuleEngine reduces the full roster to the candidate set for one slot by
// walking the assignment type's rule hierarchy. Tiers are evaluated by
// ascending priority (ties by insertion order) as a sequence of restriction
// functions; the first non-empty restriction wins and an empty one falls
// through to the next.
type RuleEngine struct {
	roster []Worker
	avail  *AvailabilityResolver
}

// NewRuleEngine builds an engine over the run's roster snapshot. The roster
// is copied and sorted by worker ID so general-pool evaluation order is
// deterministic regardless of snapshot order.
func NewRuleEngine(roster []Worker, avail *AvailabilityResolver) *RuleEngine {
	sorted := make([]Worker, len(roster))
	copy(sorted, roster)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &RuleEngine{roster: sorted, avail: avail}
}

// restriction is one tier: given the slot context it returns the workers it
// allows, or nil to fall through.
type restriction struct {
	kind  RuleKind
	apply func(at AssignmentType, date string) []Worker
}

// RestrictCandidates evaluates the rule hierarchy for one slot and returns
// the winning tier's candidates. Workers must always pass the base filter:
// active, eligible for the type, available on the date, and senior when the
// type requires it. The senior requirement is part of the base filter so no
// tier can commit a non-senior worker to a senior-required type.
func (e *RuleEngine) RestrictCandidates(at AssignmentType, date string, slot int) CandidateSet {
	_ = slot // all slots of a type share one hierarchy

	tiers := e.buildTiers(at, date)

	cs := CandidateSet{}
	for _, tier := range tiers {
		cs.TiersTried = append(cs.TiersTried, tier.kind)
		workers := tier.apply(at, date)
		if len(workers) > 0 {
			cs.Workers = workers
			cs.Tier = tier.kind
			return cs
		}
	}
	return cs
}

// buildTiers orders the type's configured rules by priority and appends the
// implicit general pool so a slot is never left unfilled while any eligible
// worker remains.
func (e *RuleEngine) buildTiers(at AssignmentType, date string) []restriction {
	rules := make([]Rule, 0, len(at.Rules))
	for _, r := range at.Rules {
		if r.InEffect(date) {
			rules = append(rules, r)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })

	tiers := make([]restriction, 0, len(rules)+1)
	hasGeneralPool := false
	for _, r := range rules {
		if r.Kind == RuleGeneralPool {
			hasGeneralPool = true
		}
		tiers = append(tiers, e.tierFor(r))
	}
	if !hasGeneralPool {
		tiers = append(tiers, restriction{kind: RuleGeneralPool, apply: e.generalPool})
	}
	return tiers
}

func (e *RuleEngine) tierFor(r Rule) restriction {
	switch r.Kind {
	case RulePermanent:
		return restriction{kind: RulePermanent, apply: func(at AssignmentType, date string) []Worker {
			w, ok := e.lookup(r.WorkerID)
			if !ok || !e.passesBase(w, at, date) {
				return nil
			}
			return []Worker{w}
		}}
	case RulePreferredList:
		return restriction{kind: RulePreferredList, apply: func(at AssignmentType, date string) []Worker {
			var listed []Worker
			for _, id := range r.WorkerIDs {
				w, ok := e.lookup(id)
				if ok && e.passesBase(w, at, date) {
					listed = append(listed, w)
				}
			}
			return listed
		}}
	case RuleSeniorRequired:
		return restriction{kind: RuleSeniorRequired, apply: func(at AssignmentType, date string) []Worker {
			var seniors []Worker
			for _, w := range e.roster {
				if w.IsSenior && e.passesBase(w, at, date) {
					seniors = append(seniors, w)
				}
			}
			return seniors
		}}
	default:
		return restriction{kind: RuleGeneralPool, apply: e.generalPool}
	}
}

func (e *RuleEngine) generalPool(at AssignmentType, date string) []Worker {
	var pool []Worker
	for _, w := range e.roster {
		if e.passesBase(w, at, date) {
			pool = append(pool, w)
		}
	}
	return pool
}

func (e *RuleEngine) passesBase(w Worker, at AssignmentType, date string) bool {
	if !w.IsActive || !w.EligibleFor(at.ID) {
		return false
	}
	if at.RequiresSenior && !w.IsSenior {
		return false
	}
	return e.avail.IsAvailable(w.ID, date)
}

func (e *RuleEngine) lookup(workerID string) (Worker, bool) {
	for _, w := range e.roster {
		if w.ID == workerID {
			return w, true
		}
	}
	return Worker{}, false
}

// gapReason summarizes the failed tier walk for the gap report.
func gapReason(cs CandidateSet) string {
	return fmt.Sprintf("no candidates in any tier (tried %v)", cs.TiersTried)
}
