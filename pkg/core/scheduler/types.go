package scheduler

import (
	"strconv"
	"time"
)

// dateLayout is the wire format for all dates handled by the engine.
const dateLayout = "2006-01-02"

// Worker is the engine's read snapshot of a worker. The worker directory owns
// the full record; the engine only needs flags and eligibilities.
type Worker struct {
	ID        string
	IsSenior  bool
	IsActive  bool
	StartDate string // first day of service, used to pro-rate equity

	// EligibleTypes maps assignment type IDs this worker may be given.
	EligibleTypes map[string]bool
}

// EligibleFor returns true if the worker may take the given assignment type.
func (w Worker) EligibleFor(typeID string) bool {
	return w.EligibleTypes[typeID]
}

// RuleKind identifies one tier of the rule hierarchy.
type RuleKind string

const (
	RulePermanent      RuleKind = "permanent"
	RulePreferredList  RuleKind = "preferredList"
	RuleSeniorRequired RuleKind = "seniorRequired"
	RuleGeneralPool    RuleKind = "generalPool"
)

// Rule is one entry in an assignment type's ordered hierarchy. Lower Priority
// evaluates first; ties break by insertion order.
type Rule struct {
	Kind     RuleKind
	Priority int

	// WorkerID names the forced worker for permanent rules.
	WorkerID string

	// WorkerIDs is the ordered preference list for preferredList rules.
	WorkerIDs []string

	// EffectiveFrom/EffectiveTo bound the rule to a date range (inclusive).
	// Empty means unbounded on that side.
	EffectiveFrom string
	EffectiveTo   string
}

// InEffect reports whether the rule applies on the given date. ISO dates
// compare correctly as strings.
func (r Rule) InEffect(date string) bool {
	if r.EffectiveFrom != "" && date < r.EffectiveFrom {
		return false
	}
	if r.EffectiveTo != "" && date > r.EffectiveTo {
		return false
	}
	return true
}

// AssignmentType describes one duty category to fill each day.
type AssignmentType struct {
	ID             string
	Category       string
	RequiresSenior bool
	SlotsPerDay    int

	// Priority orders types within a day during generation. Lower fills first.
	Priority int

	// CompTimeHours is credited when an assignment on a qualifying date
	// commits. Zero disables comp time for this type.
	CompTimeHours int

	// CompTimeQualifies reports whether assignments on the date earn comp
	// time. Nil with CompTimeHours > 0 means weekend days qualify.
	CompTimeQualifies func(date string) bool

	Rules []Rule
}

func (at AssignmentType) qualifiesForCompTime(date string) bool {
	if at.CompTimeHours <= 0 {
		return false
	}
	if at.CompTimeQualifies != nil {
		return at.CompTimeQualifies(date)
	}
	return isWeekend(date)
}

// AssignmentSource records which path committed an assignment.
type AssignmentSource string

const (
	SourceRuleEngine     AssignmentSource = "ruleEngine"
	SourceManualOverride AssignmentSource = "manualOverride"
	SourceSwap           AssignmentSource = "swap"
)

// Assignment is one committed slot. Superseded records stay in place for the
// audit trail; only non-superseded records count toward any invariant.
type Assignment struct {
	ID         string
	Date       string
	TypeID     string
	Slot       int
	WorkerID   string
	Source     AssignmentSource
	Superseded bool
	CreatedAt  time.Time
}

// slotKey is the uniqueness key for committed assignments.
type slotKey struct {
	Date   string
	TypeID string
	Slot   int
}

// LeaveRecord is an approved absence. Overlapping approved records for the
// same worker are disallowed upstream; the engine trusts the snapshot.
type LeaveRecord struct {
	WorkerID    string
	StartDate   string
	EndDate     string
	HoursPerDay int // 4 (half day) or 8 (full day)
}

// EquitySnapshot is the year-to-date assignment count carried between runs.
type EquitySnapshot struct {
	WorkerID string
	TypeID   string
	Year     int
	Count    int
}

// EquityDelta is one bookkeeping increment or decrement emitted by a run.
type EquityDelta struct {
	WorkerID string
	TypeID   string
	Year     int
	Date     string
	Delta    int // +1 or -1
}

// CompTimeBalance seeds the ledger with a worker's running balance.
type CompTimeBalance struct {
	WorkerID     string
	BalanceHours int
}

// CompTimeDelta is one ledger movement emitted by a run.
type CompTimeDelta struct {
	WorkerID    string
	Date        string
	EarnedHours int // negative when an accrual is reversed
	UsedHours   int
}

/// UnfilledSlot is one gap report entry: no rule tier produced a candidate.
type UnfilledSlot struct {
	Date   string
	TypeID string
	Slot   int
	Reason string
}

// RunStatus tracks a generation run's lifecycle.
type RunStatus string

const (
	RunNotStarted        RunStatus = "notStarted"
	RunInProgress        RunStatus = "inProgress"
	RunCompleted         RunStatus = "completed"
	RunCompletedWithGaps RunStatus = "completedWithGaps"
)

// SwapState tracks a swap request's lifecycle. All states but Pending are
// terminal.
type SwapState string

const (
	SwapPending   SwapState = "pending"
	SwapApproved  SwapState = "approved"
	SwapRejected  SwapState = "rejected"
	SwapCancelled SwapState = "cancelled"
)

// IsTerminal reports whether the state permits no further transitions.
func (s SwapState) IsTerminal() bool {
	return s == SwapApproved || s == SwapRejected || s == SwapCancelled
}

// SwapDecision is the reviewer's verdict on a pending swap request.
type SwapDecision string

const (
	DecisionApprove SwapDecision = "approve"
	DecisionReject  SwapDecision = "reject"
	DecisionCancel  SwapDecision = "cancel"
)

// SwapRequest asks to hand a committed assignment to another worker, or to
// release it back through rule evaluation when Release is set.
type SwapRequest struct {
	ID                 string
	RequestingWorkerID string
	Date               string
	TypeID             string
	Slot               int
	TargetWorkerID     string
	Release            bool
	State              SwapState
}

// Date helpers. Dates are validated at scheduler construction, so the
// helpers below assume well-formed input.

func parseDate(date string) (time.Time, error) {
	return time.Parse(dateLayout, date)
}

func addDays(date string, n int) string {
	t, _ := time.Parse(dateLayout, date)
	return t.AddDate(0, 0, n).Format(dateLayout)
}

func yearOf(date string) int {
	y, _ := strconv.Atoi(date[:4])
	return y
}

func isWeekend(date string) bool {
	t, _ := time.Parse(dateLayout, date)
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// daysInclusive counts the days from start to end, both included. Returns at
// least 1 for any end >= start.
func daysInclusive(start, end string) int {
	s, _ := time.Parse(dateLayout, start)
	e, _ := time.Parse(dateLayout, end)
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}
