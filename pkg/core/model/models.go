package model

import "time"

// AssignmentCategory is the fixed set of duty categories.
type AssignmentCategory string

const (
	CategoryPriorityA        AssignmentCategory = "PriorityA"
	CategoryPriorityB        AssignmentCategory = "PriorityB"
	CategoryProcessingCenter AssignmentCategory = "ProcessingCenter"
	CategoryEvening          AssignmentCategory = "Evening"
	CategoryRemote           AssignmentCategory = "Remote"
	CategoryFrontDeskAM      AssignmentCategory = "FrontDeskAM"
	CategoryFrontDeskPM      AssignmentCategory = "FrontDeskPM"
)

func (c AssignmentCategory) IsValid() bool {
	switch c {
	case CategoryPriorityA, CategoryPriorityB, CategoryProcessingCenter,
		CategoryEvening, CategoryRemote, CategoryFrontDeskAM, CategoryFrontDeskPM:
		return true
	}
	return false
}

// LeaveCategory classifies an approved absence.
type LeaveCategory string

const (
	LeaveVacation      LeaveCategory = "Vacation"
	LeaveSick          LeaveCategory = "Sick"
	LeavePersonal      LeaveCategory = "Personal"
	LeaveWellness      LeaveCategory = "Wellness"
	LeaveCompTimeUsage LeaveCategory = "CompTimeUsage"
	LeaveProtectedFMLA LeaveCategory = "ProtectedFMLA"
)

func (c LeaveCategory) IsValid() bool {
	switch c {
	case LeaveVacation, LeaveSick, LeavePersonal, LeaveWellness,
		LeaveCompTimeUsage, LeaveProtectedFMLA:
		return true
	}
	return false
}

// Worker is the read snapshot provided by the worker directory. The
// scheduling core never mutates it.
type Worker struct {
	ID        string
	FirstName string
	LastName  string
	IsSenior  bool
	IsActive  bool
	StartDate string // Date format

	// EligibleTypes lists assignment type IDs this worker may take.
	EligibleTypes []string
}

// LeaveRecord is an approved absence owned by the leave collaborator.
type LeaveRecord struct {
	ID          string
	WorkerID    string
	Category    LeaveCategory
	StartDate   string
	EndDate     string
	HoursPerDay int // 4 (half day) or 8 (full day)
	IsProtected bool
}

// Assignment is one committed duty slot. Superseded rows are kept for the
// audit trail and never deleted.
type Assignment struct {
	ID               string
	Date             string
	AssignmentTypeID string
	Slot             int
	WorkerID         string // empty = unfilled
	Source           string
	Superseded       bool
	CreatedAt        time.Time
}

// EquitySnapshot is the persisted year-to-date count per worker per type.
type EquitySnapshot struct {
	WorkerID         string
	AssignmentTypeID string
	Year             int
	Count            int
}

// CompTimeEntry is one comp time ledger movement.
type CompTimeEntry struct {
	ID          string
	WorkerID    string
	Date        string
	EarnedHours int
	UsedHours   int
	CreatedAt   time.Time
}

// CompTimeBalance is a worker's running comp time balance.
type CompTimeBalance struct {
	WorkerID     string
	BalanceHours int
}

// SwapRequest is a persisted request to hand an assignment to another worker
// or release it back through rule evaluation.
type SwapRequest struct {
	ID                 string
	RequestingWorkerID string
	Date               string
	AssignmentTypeID   string
	Slot               int
	TargetWorkerID     string // empty when Release is set
	Release            bool
	State              string // pending | approved | rejected | cancelled
	CreatedAt          time.Time
	ResolvedAt         *time.Time
}
