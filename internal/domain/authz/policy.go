// Package authz decides which role may invoke which transition on which entity type.
package authz

import (
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// Action names a transition or operation on an entity type
type Action string

const (
	ActionView          Action = "view"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionApproveHost   Action = "approve_host"
	ActionRejectHost    Action = "reject_host"
	ActionApproveLender Action = "approve_lender"
	ActionRejectLender  Action = "reject_lender"
	ActionSubmit        Action = "submit"
	ActionDecideHost    Action = "decide_host"
	ActionDecideLender  Action = "decide_lender"
	ActionOpen          Action = "open"
	ActionSignStaff     Action = "sign_staff"
	ActionSignHost      Action = "sign_host"
	ActionSignLender    Action = "sign_lender"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// SideAction returns the dual-approval action for a decision on a side
func SideAction(side entity.Side, d entity.Decision) Action {
	switch {
	case side == entity.SideHost && d == entity.DecisionApprove:
		return ActionApproveHost
	case side == entity.SideHost:
		return ActionRejectHost
	case d == entity.DecisionApprove:
		return ActionApproveLender
	default:
		return ActionRejectLender
	}
}

// DecideAction returns the weekly report decision action for a side
func DecideAction(side entity.Side) Action {
	if side == entity.SideHost {
		return ActionDecideHost
	}
	return ActionDecideLender
}

// SignAction returns the closure signature action for a role
func SignAction(role entity.Role) Action {
	switch role {
	case entity.RoleStaff:
		return ActionSignStaff
	case entity.RoleHost:
		return ActionSignHost
	case entity.RoleLender:
		return ActionSignLender
	}
	return ""
}

type rule struct {
	entityType entity.Type
	action     Action
}

// Policy is an immutable role table. Anything not listed is denied.
type Policy struct {
	table map[rule]map[entity.Role]bool
}

var (
	readers   = []entity.Role{entity.RoleStaff, entity.RoleHost, entity.RoleLender, entity.RoleAccounting}
	approvers = []entity.Type{entity.TypeTimeEntry, entity.TypeExpense}

	// DefaultProposalCreators are the roles allowed to propose a schedule slot
	DefaultProposalCreators = []entity.Role{entity.RoleHost, entity.RoleLender}
)

// NewPolicy builds the role table. proposalCreators varies by deployment;
// an empty list falls back to DefaultProposalCreators.
func NewPolicy(proposalCreators []entity.Role) *Policy {
	if len(proposalCreators) == 0 {
		proposalCreators = DefaultProposalCreators
	}

	p := &Policy{table: make(map[rule]map[entity.Role]bool)}

	for _, t := range []entity.Type{
		entity.TypeScheduleProposal, entity.TypeTimeEntry, entity.TypeExpense,
		entity.TypeWeeklyReport, entity.TypeMonthlyClosure,
	} {
		p.allow(t, ActionView, readers...)
	}

	p.allow(entity.TypeScheduleProposal, ActionCreate, proposalCreators...)
	p.allow(entity.TypeScheduleProposal, ActionApprove, entity.RoleLender)
	p.allow(entity.TypeScheduleProposal, ActionReject, entity.RoleLender)

	for _, t := range approvers {
		p.allow(t, ActionCreate, entity.RoleStaff, entity.RoleLender)
		p.allow(t, ActionDelete, entity.RoleStaff, entity.RoleLender)
		p.allow(t, ActionApproveHost, entity.RoleHost)
		p.allow(t, ActionRejectHost, entity.RoleHost)
		p.allow(t, ActionApproveLender, entity.RoleLender)
		p.allow(t, ActionRejectLender, entity.RoleLender)
	}

	p.allow(entity.TypeWeeklyReport, ActionSubmit, entity.RoleStaff)
	p.allow(entity.TypeWeeklyReport, ActionUpdate, entity.RoleStaff)
	p.allow(entity.TypeWeeklyReport, ActionDelete, entity.RoleStaff)
	p.allow(entity.TypeWeeklyReport, ActionDecideHost, entity.RoleHost)
	p.allow(entity.TypeWeeklyReport, ActionDecideLender, entity.RoleLender)

	p.allow(entity.TypeMonthlyClosure, ActionOpen, entity.RoleStaff, entity.RoleHost, entity.RoleLender)
	p.allow(entity.TypeMonthlyClosure, ActionSignStaff, entity.RoleStaff)
	p.allow(entity.TypeMonthlyClosure, ActionSignHost, entity.RoleHost)
	p.allow(entity.TypeMonthlyClosure, ActionSignLender, entity.RoleLender)

	// The lender administers the site directory and the document register
	p.allow(entity.TypeSite, ActionView, readers...)
	p.allow(entity.TypeSite, ActionCreate, entity.RoleLender)
	p.allow(entity.TypeSite, ActionUpdate, entity.RoleLender)
	p.allow(entity.TypeSite, ActionDelete, entity.RoleLender)
	p.allow(entity.TypeDocument, ActionView, readers...)
	p.allow(entity.TypeDocument, ActionCreate, entity.RoleLender)
	p.allow(entity.TypeDocument, ActionDelete, entity.RoleLender)

	return p
}

func (p *Policy) allow(t entity.Type, a Action, roles ...entity.Role) {
	key := rule{entityType: t, action: a}
	if p.table[key] == nil {
		p.table[key] = make(map[entity.Role]bool)
	}
	for _, r := range roles {
		p.table[key][r] = true
	}
}

// CanTransition reports whether the role may perform the action on the entity type
func (p *Policy) CanTransition(t entity.Type, a Action, role entity.Role) bool {
	roles, ok := p.table[rule{entityType: t, action: a}]
	if !ok {
		return false
	}
	return roles[role]
}

// Require returns an AuthorizationError unless the actor's role is permitted
func (p *Policy) Require(op string, actor entity.Actor, t entity.Type, a Action) error {
	if actor.ID == "" {
		return apperror.Authorization(op, "missing actor identity")
	}
	if !p.CanTransition(t, a, actor.Role) {
		return apperror.Authorization(op, "role %q may not %s %s", actor.Role, a, t)
	}
	return nil
}

// RequireOwner restricts staff actors to records they own.
// Approving and read-only roles act across staff members.
func RequireOwner(op string, actor entity.Actor, staffID string) error {
	if actor.Role == entity.RoleStaff && !actor.Is(staffID) {
		return apperror.Authorization(op, "staff may only act on their own records")
	}
	return nil
}

var defaultPolicy = NewPolicy(nil)

// CanTransition checks the default role table
func CanTransition(t entity.Type, a Action, role entity.Role) bool {
	return defaultPolicy.CanTransition(t, a, role)
}
