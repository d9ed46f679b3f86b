package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

var now = time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)

func TestDecideSide(t *testing.T) {
	ctx := context.Background()
	a := entity.PendingApprovals()

	d, err := DecideSide(ctx, a, entity.SideHost, entity.DecisionApprove, "host-1", "ok", now)
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalPending, d.Expected)
	assert.Equal(t, entity.ApprovalApproved, d.Status)

	a = d.Apply(a)
	assert.Equal(t, entity.ApprovalApproved, a.Host.Status)
	assert.Equal(t, "host-1", a.Host.DecidedBy)
	require.NotNil(t, a.Host.DecidedAt)
	assert.Equal(t, now, *a.Host.DecidedAt)
	assert.Equal(t, entity.ApprovalPending, a.Lender.Status)
}

func TestDecideSide_RedecideIsConflict(t *testing.T) {
	ctx := context.Background()

	for _, status := range []entity.ApprovalStatus{entity.ApprovalApproved, entity.ApprovalRejected} {
		for _, decision := range []entity.Decision{entity.DecisionApprove, entity.DecisionReject} {
			a := entity.PendingApprovals()
			a.Lender.Status = status

			_, err := DecideSide(ctx, a, entity.SideLender, decision, "lender-1", "", now)
			require.Error(t, err)
			assert.True(t, apperror.IsConflict(err), "status=%s decision=%s", status, decision)
		}
	}
}

func TestDecideSide_LenderIndependentOfHost(t *testing.T) {
	ctx := context.Background()

	for _, host := range []entity.ApprovalStatus{entity.ApprovalPending, entity.ApprovalRejected, entity.ApprovalApproved} {
		a := entity.PendingApprovals()
		a.Host.Status = host

		d, err := DecideSide(ctx, a, entity.SideLender, entity.DecisionApprove, "lender-1", "", now)
		require.NoError(t, err, "host=%s", host)
		assert.Equal(t, entity.ApprovalApproved, d.Apply(a).Authoritative())
	}
}

func TestDecideSide_InvalidInput(t *testing.T) {
	ctx := context.Background()

	_, err := DecideSide(ctx, entity.PendingApprovals(), entity.Side("school"), entity.DecisionApprove, "x", "", now)
	assert.True(t, apperror.IsValidation(err))

	_, err = DecideSide(ctx, entity.PendingApprovals(), entity.SideHost, entity.Decision("maybe"), "x", "", now)
	assert.True(t, apperror.IsValidation(err))
}

func TestDecideProposal(t *testing.T) {
	ctx := context.Background()
	p := &entity.ScheduleProposal{Status: entity.ProposalProposed}

	d, err := DecideProposal(ctx, p, entity.DecisionReject, "lender-1", "conflicts with training", now)
	require.NoError(t, err)
	assert.Equal(t, entity.ProposalProposed, d.Expected)
	assert.Equal(t, entity.ProposalRejected, d.Status)
	assert.Equal(t, entity.ScheduleEventRejected, d.Event.Kind)
	assert.Equal(t, "conflicts with training", d.Event.Comment)

	p.Status = entity.ProposalApproved
	_, err = DecideProposal(ctx, p, entity.DecisionReject, "lender-1", "", now)
	assert.True(t, apperror.IsConflict(err))
}

func TestClosureStatusFromFlags(t *testing.T) {
	tests := []struct {
		flags   entity.Signatures
		want    entity.ClosureStatus
		wantErr bool
	}{
		{entity.Signatures{}, entity.ClosureAwaitingStaff, false},
		{entity.Signatures{Staff: true}, entity.ClosureAwaitingHost, false},
		{entity.Signatures{Staff: true, Host: true}, entity.ClosureAwaitingLender, false},
		{entity.Signatures{Staff: true, Host: true, Lender: true}, entity.ClosureClosed, false},
		{entity.Signatures{Host: true}, "", true},
		{entity.Signatures{Lender: true}, "", true},
		{entity.Signatures{Staff: true, Lender: true}, "", true},
	}

	for _, tt := range tests {
		got, err := ClosureStatusFromFlags(tt.flags)
		if tt.wantErr {
			assert.True(t, apperror.IsValidation(err), "%+v", tt.flags)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%+v", tt.flags)
	}
}

func TestSign_Scenario(t *testing.T) {
	ctx := context.Background()
	c := &entity.MonthlyClosure{Status: entity.ClosureAwaitingStaff}

	apply := func(s ClosureSignature) {
		c.Signatures, c.Status, c.ClosedAt = s.Signatures, s.Status, s.ClosedAt
	}

	s, err := Sign(ctx, c, entity.RoleStaff, now)
	require.NoError(t, err)
	assert.Equal(t, entity.ClosureAwaitingHost, s.Status)
	assert.Nil(t, s.ClosedAt)
	apply(s)

	_, err = Sign(ctx, c, entity.RoleLender, now)
	assert.True(t, apperror.IsConflict(err))

	s, err = Sign(ctx, c, entity.RoleHost, now)
	require.NoError(t, err)
	assert.Equal(t, entity.ClosureAwaitingLender, s.Status)
	apply(s)

	s, err = Sign(ctx, c, entity.RoleLender, now)
	require.NoError(t, err)
	assert.True(t, s.Closes())
	require.NotNil(t, s.ClosedAt)
	assert.Equal(t, now, *s.ClosedAt)
	apply(s)

	assert.Equal(t, entity.Signatures{Staff: true, Host: true, Lender: true}, c.Signatures)
}

func TestSign_HostBeforeStaffIsConflict(t *testing.T) {
	c := &entity.MonthlyClosure{Status: entity.ClosureAwaitingStaff}

	_, err := Sign(context.Background(), c, entity.RoleHost, now)
	assert.True(t, apperror.IsConflict(err))
	assert.False(t, c.Signatures.Host)
}

func TestSign_TwiceIsConflict(t *testing.T) {
	c := &entity.MonthlyClosure{Signatures: entity.Signatures{Staff: true}}

	_, err := Sign(context.Background(), c, entity.RoleStaff, now)
	assert.True(t, apperror.IsConflict(err))
}

func TestSign_FlagsNeverCleared(t *testing.T) {
	c := &entity.MonthlyClosure{Signatures: entity.Signatures{Staff: true, Host: true}}

	s, err := Sign(context.Background(), c, entity.RoleLender, now)
	require.NoError(t, err)
	assert.True(t, s.Signatures.Staff)
	assert.True(t, s.Signatures.Host)
	assert.True(t, s.Signatures.Lender)
}

func TestSign_NonSigningRole(t *testing.T) {
	_, err := Sign(context.Background(), &entity.MonthlyClosure{}, entity.RoleAccounting, now)
	assert.True(t, apperror.IsValidation(err))
}
