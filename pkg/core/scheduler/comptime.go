package scheduler

// CompTimeLedger tracks compensatory time credit per worker. Qualifying
// assignments accrue hours; usage requests debit them. The running balance
// never goes negative: a usage that would overdraw is rejected without
// mutating anything.
type CompTimeLedger struct {
	balances map[string]int
	deltas   []CompTimeDelta
}

// NewCompTimeLedger seeds the ledger with balances carried in from prior
// runs.
func NewCompTimeLedger(prior []CompTimeBalance) *CompTimeLedger {
	l := &CompTimeLedger{balances: make(map[string]int, len(prior))}
	for _, b := range prior {
		l.balances[b.WorkerID] = b.BalanceHours
	}
	return l
}

// Balance returns the worker's current running balance in hours.
func (l *CompTimeLedger) Balance(workerID string) int {
	return l.balances[workerID]
}

// Deltas returns every ledger movement recorded so far, in order.
func (l *CompTimeLedger) Deltas() []CompTimeDelta {
	return l.deltas
}

// Accrue credits hours earned by a qualifying assignment.
func (l *CompTimeLedger) Accrue(workerID, date string, hours int) CompTimeDelta {
	l.balances[workerID] += hours
	d := CompTimeDelta{WorkerID: workerID, Date: date, EarnedHours: hours}
	l.deltas = append(l.deltas, d)
	return d
}

// ReverseAccrual takes back hours credited for an assignment that was later
// superseded. If the worker has already spent the credit the ledger cannot
// reconcile and the caller must abort.
func (l *CompTimeLedger) ReverseAccrual(workerID, date string, hours int) (CompTimeDelta, error) {
	if l.balances[workerID] < hours {
		return CompTimeDelta{}, ErrInconsistentEquity
	}
	l.balances[workerID] -= hours
	d := CompTimeDelta{WorkerID: workerID, Date: date, EarnedHours: -hours}
	l.deltas = append(l.deltas, d)
	return d, nil
}

// Use debits hours for a comp time usage request. Atomic check-then-act: a
// request that would drive the balance negative is rejected with
// ErrInsufficientCompTime and no state changes.
func (l *CompTimeLedger) Use(workerID, date string, hours int) (CompTimeDelta, error) {
	if hours <= 0 {
		return CompTimeDelta{}, ErrInsufficientCompTime
	}
	if l.balances[workerID] < hours {
		return CompTimeDelta{}, ErrInsufficientCompTime
	}
	l.balances[workerID] -= hours
	d := CompTimeDelta{WorkerID: workerID, Date: date, UsedHours: hours}
	l.deltas = append(l.deltas, d)
	return d, nil
}
