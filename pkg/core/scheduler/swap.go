package scheduler

import (
	"fmt"

	"github.com/google/uuid"
)

// SwapResult reports a resolved swap: the request's final state, the
// assignment records it touched, and the matched bookkeeping deltas.
type SwapResult struct {
	Request        SwapRequest
	Updated        []Assignment
	EquityDeltas   []EquityDelta
	CompTimeDeltas []CompTimeDelta

	// Unfilled is set when a release could not be refilled by any rule tier.
	Unfilled *UnfilledSlot
}

// ProposeSwap opens a pending request to hand the named committed assignment
// to the target worker, or to release it back through rule evaluation when
// release is set.
func (s *Scheduler) ProposeSwap(date, typeID string, slot int, requestingWorkerID, targetWorkerID string, release bool) (SwapRequest, error) {
	a, ok := s.active[slotKey{date, typeID, slot}]
	if !ok {
		return SwapRequest{}, fmt.Errorf("no committed assignment at %s/%s slot %d", date, typeID, slot)
	}
	if a.WorkerID != requestingWorkerID {
		return SwapRequest{}, fmt.Errorf("assignment at %s/%s slot %d belongs to %s, not %s", date, typeID, slot, a.WorkerID, requestingWorkerID)
	}
	if !release {
		if _, ok := s.roster[targetWorkerID]; !ok {
			return SwapRequest{}, fmt.Errorf("unknown target worker %q", targetWorkerID)
		}
		if targetWorkerID == requestingWorkerID {
			return SwapRequest{}, fmt.Errorf("cannot swap an assignment with its own holder")
		}
	}

	req := SwapRequest{
		ID:                 uuid.New().String(),
		RequestingWorkerID: requestingWorkerID,
		Date:               date,
		TypeID:             typeID,
		Slot:               slot,
		TargetWorkerID:     targetWorkerID,
		Release:            release,
		State:              SwapPending,
	}
	s.swaps[req.ID] = &req
	return req, nil
}

// RegisterSwap seeds a previously persisted pending request into the session
// so it can be resolved.
func (s *Scheduler) RegisterSwap(req SwapRequest) {
	r := req
	s.swaps[r.ID] = &r
}

// ResolveSwap drives a pending request to a terminal state. Reject and cancel
// only transition the request. Approval updates the affected assignment rows
// and applies equity deltas as matched pairs, so the sum invariant holds
// after the mutation; comp-time-qualifying work moves its credit with it.
func (s *Scheduler) ResolveSwap(swapID string, decision SwapDecision) (*SwapResult, error) {
	req, ok := s.swaps[swapID]
	if !ok {
		return nil, fmt.Errorf("unknown swap request %q", swapID)
	}
	if req.State.IsTerminal() {
		return nil, fmt.Errorf("swap %s already %s: %w", swapID, req.State, ErrSwapNotPending)
	}

	switch decision {
	case DecisionReject:
		req.State = SwapRejected
		return &SwapResult{Request: *req}, nil
	case DecisionCancel:
		req.State = SwapCancelled
		return &SwapResult{Request: *req}, nil
	case DecisionApprove:
		return s.approveSwap(req)
	default:
		return nil, fmt.Errorf("unknown swap decision %q", decision)
	}
}

func (s *Scheduler) approveSwap(req *SwapRequest) (*SwapResult, error) {
	key := slotKey{req.Date, req.TypeID, req.Slot}
	current, ok := s.active[key]
	if !ok || current.WorkerID != req.RequestingWorkerID {
		return nil, fmt.Errorf("assignment for swap %s no longer held by %s: %w", req.ID, req.RequestingWorkerID, ErrInconsistentEquity)
	}
	at := s.types[req.TypeID]

	if !req.Release {
		target, ok := s.roster[req.TargetWorkerID]
		if !ok || !target.IsActive {
			return nil, fmt.Errorf("target worker %q is not active: %w", req.TargetWorkerID, ErrInvalidOverride)
		}
		if s.avail.IsAssigned(req.TargetWorkerID, req.Date) {
			return nil, fmt.Errorf("target worker %s is already assigned on %s: %w", req.TargetWorkerID, req.Date, ErrInvalidOverride)
		}
	}

	equityMark := len(s.equity.deltas)
	compMark := len(s.comp.deltas)

	if err := s.supersede(current); err != nil {
		return nil, err
	}
	replaced := s.superseded[len(s.superseded)-1]

	result := &SwapResult{Updated: []Assignment{replaced}}

	if req.Release {
		// Refill through the normal tiers. An unfillable release is reported,
		// not a failure: the slot joins the gap report.
		cs := s.rules.RestrictCandidates(at, req.Date, req.Slot)
		if cs.IsEmpty() {
			result.Unfilled = &UnfilledSlot{
				Date:   req.Date,
				TypeID: req.TypeID,
				Slot:   req.Slot,
				Reason: gapReason(cs),
			}
		} else {
			winner, err := s.equity.Select(cs.Workers, at.ID, req.Date)
			if err != nil {
				return nil, err
			}
			refill := s.commit(req.Date, at, req.Slot, winner, SourceRuleEngine)
			result.Updated = append(result.Updated, refill)
		}
	} else {
		replacement := s.commit(req.Date, at, req.Slot, req.TargetWorkerID, SourceSwap)
		result.Updated = append(result.Updated, replacement)
	}

	req.State = SwapApproved
	result.Request = *req
	result.EquityDeltas = append([]EquityDelta(nil), s.equity.deltas[equityMark:]...)
	result.CompTimeDeltas = append([]CompTimeDelta(nil), s.comp.deltas[compMark:]...)
	return result, nil
}
