package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name       string
		entityType entity.Type
		action     Action
		role       entity.Role
		want       bool
	}{
		{"host approves host side", entity.TypeTimeEntry, ActionApproveHost, entity.RoleHost, true},
		{"lender cannot approve host side", entity.TypeTimeEntry, ActionApproveHost, entity.RoleLender, false},
		{"lender approves lender side", entity.TypeExpense, ActionApproveLender, entity.RoleLender, true},
		{"staff cannot approve", entity.TypeExpense, ActionApproveLender, entity.RoleStaff, false},
		{"staff declares time", entity.TypeTimeEntry, ActionCreate, entity.RoleStaff, true},
		{"host cannot declare time", entity.TypeTimeEntry, ActionCreate, entity.RoleHost, false},
		{"lender proposes schedule", entity.TypeScheduleProposal, ActionCreate, entity.RoleLender, true},
		{"host proposes schedule", entity.TypeScheduleProposal, ActionCreate, entity.RoleHost, true},
		{"staff cannot propose schedule", entity.TypeScheduleProposal, ActionCreate, entity.RoleStaff, false},
		{"only lender validates schedule", entity.TypeScheduleProposal, ActionApprove, entity.RoleHost, false},
		{"staff submits report", entity.TypeWeeklyReport, ActionSubmit, entity.RoleStaff, true},
		{"host decides host side", entity.TypeWeeklyReport, ActionDecideHost, entity.RoleHost, true},
		{"host cannot decide lender side", entity.TypeWeeklyReport, ActionDecideLender, entity.RoleHost, false},
		{"staff signs closure", entity.TypeMonthlyClosure, ActionSignStaff, entity.RoleStaff, true},
		{"staff cannot sign for host", entity.TypeMonthlyClosure, ActionSignHost, entity.RoleStaff, false},
		{"accounting reads", entity.TypeMonthlyClosure, ActionView, entity.RoleAccounting, true},
		{"accounting cannot sign", entity.TypeMonthlyClosure, ActionSignLender, entity.RoleAccounting, false},
		{"lender adds site", entity.TypeSite, ActionCreate, entity.RoleLender, true},
		{"host cannot edit site", entity.TypeSite, ActionUpdate, entity.RoleHost, false},
		{"staff reads sites", entity.TypeSite, ActionView, entity.RoleStaff, true},
		{"lender registers document", entity.TypeDocument, ActionCreate, entity.RoleLender, true},
		{"staff cannot register document", entity.TypeDocument, ActionCreate, entity.RoleStaff, false},
		{"accounting cannot delete document", entity.TypeDocument, ActionDelete, entity.RoleAccounting, false},
		{"unknown role", entity.TypeTimeEntry, ActionApproveHost, entity.Role("admin"), false},
		{"unknown action", entity.TypeTimeEntry, Action("archive"), entity.RoleLender, false},
		{"unknown entity", entity.Type("payslip"), ActionView, entity.RoleLender, false},
		{"action on wrong entity", entity.TypeMonthlyClosure, ActionApproveHost, entity.RoleHost, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.entityType, tt.action, tt.role))
		})
	}
}

func TestNewPolicy_ProposalCreators(t *testing.T) {
	p := NewPolicy([]entity.Role{entity.RoleLender})

	assert.True(t, p.CanTransition(entity.TypeScheduleProposal, ActionCreate, entity.RoleLender))
	assert.False(t, p.CanTransition(entity.TypeScheduleProposal, ActionCreate, entity.RoleHost))
}

func TestPolicy_Require(t *testing.T) {
	p := NewPolicy(nil)

	err := p.Require("sign", entity.Actor{ID: "u1", Role: entity.RoleHost}, entity.TypeMonthlyClosure, ActionSignStaff)
	require.Error(t, err)
	assert.True(t, apperror.IsAuthorization(err))

	err = p.Require("sign", entity.Actor{Role: entity.RoleStaff}, entity.TypeMonthlyClosure, ActionSignStaff)
	assert.True(t, apperror.IsAuthorization(err))

	assert.NoError(t, p.Require("sign", entity.Actor{ID: "u1", Role: entity.RoleStaff}, entity.TypeMonthlyClosure, ActionSignStaff))
}

func TestRequireOwner(t *testing.T) {
	staff := entity.Actor{ID: "staff-a", Role: entity.RoleStaff}

	assert.NoError(t, RequireOwner("op", staff, "staff-a"))
	assert.True(t, apperror.IsAuthorization(RequireOwner("op", staff, "staff-b")))
	assert.NoError(t, RequireOwner("op", entity.Actor{ID: "h", Role: entity.RoleHost}, "staff-b"))
}

func TestActionHelpers(t *testing.T) {
	assert.Equal(t, ActionApproveHost, SideAction(entity.SideHost, entity.DecisionApprove))
	assert.Equal(t, ActionRejectHost, SideAction(entity.SideHost, entity.DecisionReject))
	assert.Equal(t, ActionApproveLender, SideAction(entity.SideLender, entity.DecisionApprove))
	assert.Equal(t, ActionRejectLender, SideAction(entity.SideLender, entity.DecisionReject))
	assert.Equal(t, ActionDecideHost, DecideAction(entity.SideHost))
	assert.Equal(t, ActionDecideLender, DecideAction(entity.SideLender))
	assert.Equal(t, ActionSignHost, SignAction(entity.RoleHost))
	assert.Equal(t, Action(""), SignAction(entity.RoleAccounting))
}
