package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// SideDecision describes the mutation of one approval side.
// Expected is the status the store must still hold for the update to apply.
type SideDecision struct {
	Side      entity.Side
	Expected  entity.ApprovalStatus
	Status    entity.ApprovalStatus
	DecidedBy string
	DecidedAt time.Time
	Comment   string
}

// Apply returns approvals with the decision applied to its side
func (d SideDecision) Apply(a entity.Approvals) entity.Approvals {
	at := d.DecidedAt
	side := entity.SideApproval{Status: d.Status, DecidedBy: d.DecidedBy, DecidedAt: &at, Comment: d.Comment}
	if d.Side == entity.SideHost {
		a.Host = side
	} else {
		a.Lender = side
	}
	return a
}

// DecideSide computes a host or lender decision on a dual-approved record.
// Sides are independent: the lender may decide whatever the host status is.
// A side that already left pending yields a ConflictError.
func DecideSide(ctx context.Context, approvals entity.Approvals, side entity.Side, decision entity.Decision, actorID, comment string, now time.Time) (SideDecision, error) {
	const op = "decide_side"

	if side != entity.SideHost && side != entity.SideLender {
		return SideDecision{}, apperror.Validation(op, "unknown side %q", side)
	}
	trigger, err := decisionTrigger(op, decision)
	if err != nil {
		return SideDecision{}, err
	}

	current := approvals.Get(side).Status
	if !current.IsValid() {
		return SideDecision{}, apperror.Validation(op, "invalid %s status %q", side, current)
	}

	m := NewSideMachine(FromApproval(current))
	if err := m.Fire(ctx, trigger); err != nil {
		return SideDecision{}, conflict(op, err, "%s side already %s", side, current)
	}

	return SideDecision{
		Side:      side,
		Expected:  current,
		Status:    entity.ApprovalStatus(m.State()),
		DecidedBy: actorID,
		DecidedAt: now,
		Comment:   comment,
	}, nil
}

// ProposalDecision describes the validation of a schedule proposal
type ProposalDecision struct {
	Expected    entity.ProposalStatus
	Status      entity.ProposalStatus
	ValidatedBy string
	ValidatedAt time.Time
	Comment     string
	Event       entity.ScheduleEvent
}

// DecideProposal approves or rejects a proposed slot
func DecideProposal(ctx context.Context, p *entity.ScheduleProposal, decision entity.Decision, actorID, comment string, now time.Time) (ProposalDecision, error) {
	const op = "decide_proposal"

	trigger, err := decisionTrigger(op, decision)
	if err != nil {
		return ProposalDecision{}, err
	}

	m := NewProposalMachine(FromProposal(p.Status))
	if err := m.Fire(ctx, trigger); err != nil {
		return ProposalDecision{}, conflict(op, err, "proposal already %s", p.Status)
	}

	status := entity.ProposalStatus(m.State())
	kind := entity.ScheduleEventApproved
	if status == entity.ProposalRejected {
		kind = entity.ScheduleEventRejected
	}

	return ProposalDecision{
		Expected:    p.Status,
		Status:      status,
		ValidatedBy: actorID,
		ValidatedAt: now,
		Comment:     comment,
		Event:       entity.ScheduleEvent{Kind: kind, ActorID: actorID, At: now, Comment: comment},
	}, nil
}

// ClosureSignature describes one signature on a monthly closure
type ClosureSignature struct {
	Role       entity.Role
	Expected   entity.ClosureStatus
	Status     entity.ClosureStatus
	Signatures entity.Signatures
	ClosedAt   *time.Time
}

// Closes returns true when the signature completes the chain
func (s ClosureSignature) Closes() bool {
	return s.Status == entity.ClosureClosed
}

// ClosureStatusFromFlags derives the closure status from the three flags.
// Flags must be set in order; a later flag without its predecessor is invalid.
func ClosureStatusFromFlags(s entity.Signatures) (entity.ClosureStatus, error) {
	switch {
	case s.Host && !s.Staff, s.Lender && !s.Host:
		return "", apperror.Validation("closure_status", "inconsistent signatures staff=%t host=%t lender=%t", s.Staff, s.Host, s.Lender)
	case s.Lender:
		return entity.ClosureClosed, nil
	case s.Host:
		return entity.ClosureAwaitingLender, nil
	case s.Staff:
		return entity.ClosureAwaitingHost, nil
	}
	return entity.ClosureAwaitingStaff, nil
}

// Sign computes the signature of role on the closure. Signing out of order
// or twice yields a ConflictError; flags are only ever set, never cleared.
func Sign(ctx context.Context, c *entity.MonthlyClosure, role entity.Role, now time.Time) (ClosureSignature, error) {
	const op = "sign_closure"

	current, err := ClosureStatusFromFlags(c.Signatures)
	if err != nil {
		return ClosureSignature{}, err
	}

	flags := c.Signatures
	var trigger Trigger
	switch role {
	case entity.RoleStaff:
		trigger, flags.Staff = TriggerSignStaff, true
	case entity.RoleHost:
		trigger, flags.Host = TriggerSignHost, true
	case entity.RoleLender:
		trigger, flags.Lender = TriggerSignLender, true
	default:
		return ClosureSignature{}, apperror.Validation(op, "role %q does not sign closures", role)
	}

	m := NewClosureMachine(FromClosure(current))
	if err := m.Fire(ctx, trigger); err != nil {
		return ClosureSignature{}, conflict(op, err, "cannot %s while %s", trigger, current)
	}

	next, err := ClosureStatusFromFlags(flags)
	if err != nil {
		return ClosureSignature{}, err
	}

	sig := ClosureSignature{
		Role:       role,
		Expected:   current,
		Status:     next,
		Signatures: flags,
	}
	if next == entity.ClosureClosed {
		at := now
		sig.ClosedAt = &at
	}
	return sig, nil
}

func decisionTrigger(op string, d entity.Decision) (Trigger, error) {
	switch d {
	case entity.DecisionApprove:
		return TriggerApprove, nil
	case entity.DecisionReject:
		return TriggerReject, nil
	}
	return "", apperror.Validation(op, "unknown decision %q", d)
}

func conflict(op string, err error, format string, args ...interface{}) error {
	if errors.Is(err, ErrInvalidTransition) {
		e := apperror.Conflict(op, format, args...)
		e.Err = err
		return e
	}
	return err
}
