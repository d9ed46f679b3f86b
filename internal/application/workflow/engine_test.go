package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/application/workflow"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/repository"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/shared-staff/internal/testutil"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type env struct {
	ctx      context.Context
	engine   workflow.Engine
	schedule service.ScheduleService
	approval service.ApprovalService
	weekly   service.WeeklyReportService
	closure  service.ClosureService

	staff, other, host, lender, accounting entity.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := testutil.NewDB(t)
	log := zap.NewNop()
	profiles := repository.NewProfileRepository(db.DB, log)
	proposals := repository.NewScheduleProposalRepository(db.DB, log)
	entries := repository.NewTimeEntryRepository(db.DB, log)
	expenses := repository.NewExpenseRepository(db.DB, log)
	reports := repository.NewWeeklyReportRepository(db.DB, log)
	alerts := repository.NewAlertRepository(db.DB, log)
	closures := repository.NewClosureRepository(db.DB, log)
	sites := repository.NewSiteRepository(db.DB, log)
	audit := repository.NewAuditRepository(db.DB, log)
	tx := sqlite.NewDB(db.DB, log)
	policy := authz.NewPolicy(nil)

	e := &env{
		ctx:      context.Background(),
		engine:   workflow.NewEngine(proposals, entries, expenses, reports, closures, workflow.WithPolicy(policy), workflow.WithLogger(nopLogger{})),
		schedule: service.NewScheduleService(proposals, profiles, sites, audit, nil, tx, policy, nil, service.UTCClock, nopLogger{}),
		approval: service.NewApprovalService(entries, expenses, proposals, sites, audit, tx, policy, nil, service.UTCClock, nopLogger{}),
		weekly:   service.NewWeeklyReportService(reports, alerts, audit, tx, policy, nil, service.UTCClock, nopLogger{}),
		closure: service.NewClosureService(closures, reports, profiles, service.NewMonthLoader(entries, expenses, reports),
			nil, nil, audit, tx, policy, nil, service.UTCClock, nopLogger{}),
	}

	actor := func(email string, role entity.Role) entity.Actor {
		p := &entity.Profile{Email: email, Role: role}
		require.NoError(t, profiles.Create(e.ctx, p))
		return entity.Actor{ID: p.ID, Role: role, Email: email}
	}
	e.staff = actor("anna@example.org", entity.RoleStaff)
	e.other = actor("paul@example.org", entity.RoleStaff)
	e.host = actor("host@example.org", entity.RoleHost)
	e.lender = actor("lender@example.org", entity.RoleLender)
	e.accounting = actor("compta@example.org", entity.RoleAccounting)
	require.NoError(t, sites.Create(e.ctx, &entity.Site{ID: "school-1", Name: "École Jules Ferry"}))
	return e
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *env) declare(t *testing.T, date time.Time, start, end entity.TimeOfDay) *entity.TimeEntry {
	t.Helper()
	entry, err := e.approval.DeclareTime(e.ctx, e.staff, service.DeclareTimeInput{Date: date, StartTime: start, EndTime: end})
	require.NoError(t, err)
	return entry
}

func TestEngine_MonthSummaryScenario(t *testing.T) {
	e := newEnv(t)
	march := entity.Month{Year: 2024, Month: time.March}

	plan, err := e.schedule.Propose(e.ctx, e.host, service.ProposeInput{
		StaffID: e.staff.ID, Date: day(time.March, 4), StartTime: "09:00", EndTime: "17:00", SiteID: "school-1",
	})
	require.NoError(t, err)
	_, err = e.schedule.Decide(e.ctx, e.lender, plan.ID, entity.DecisionApprove, "")
	require.NoError(t, err)

	worked := e.declare(t, day(time.March, 4), "08:30", "18:00")
	assert.InDelta(t, 1.5, worked.Variance, 1e-9)
	_, err = e.approval.DecideTimeEntry(e.ctx, e.host, worked.ID, entity.SideHost, entity.DecisionApprove, "")
	require.NoError(t, err)
	_, err = e.approval.DecideTimeEntry(e.ctx, e.lender, worked.ID, entity.SideLender, entity.DecisionApprove, "")
	require.NoError(t, err)

	// only host-approved, not counted
	hostOnly := e.declare(t, day(time.March, 5), "09:00", "12:00")
	_, err = e.approval.DecideTimeEntry(e.ctx, e.host, hostOnly.ID, entity.SideHost, entity.DecisionApprove, "")
	require.NoError(t, err)

	// approved but in April, not counted
	april := e.declare(t, day(time.April, 1), "09:00", "12:00")
	_, err = e.approval.DecideTimeEntry(e.ctx, e.lender, april.ID, entity.SideLender, entity.DecisionApprove, "")
	require.NoError(t, err)

	x, err := e.approval.DeclareExpense(e.ctx, e.staff, service.DeclareExpenseInput{
		Date: day(time.March, 6), Category: "travel", Amount: decimal.NewFromInt(100),
		Allocation: entity.AllocationMixed, Ratio: decimal.RequireFromString("0.3"),
	})
	require.NoError(t, err)
	_, err = e.approval.DecideExpense(e.ctx, e.lender, x.ID, entity.SideLender, entity.DecisionApprove, "")
	require.NoError(t, err)

	_, err = e.weekly.Submit(e.ctx, e.staff, service.SubmitReportInput{
		WeekStart: day(time.February, 26),
		ReportContent: service.ReportContent{
			HostHours: 12, LenderHours: 8,
		},
	})
	require.NoError(t, err)

	summary, err := e.engine.MonthSummary(e.ctx, e.staff, "", march)
	require.NoError(t, err)
	assert.Equal(t, e.staff.ID, summary.StaffID)
	assert.InDelta(t, 9.5, summary.Totals.Hours, 1e-9)
	assert.Equal(t, 1, summary.Totals.TimeEntries)
	assert.True(t, summary.Totals.Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.Totals.LenderAmount.Equal(decimal.NewFromInt(30)))
	assert.True(t, summary.Totals.HostAmount.Equal(decimal.NewFromInt(70)))
	assert.Len(t, summary.WeeklyReports, 1, "the straddling week intersects March")
	assert.Equal(t, 12.0, summary.ReportHours.Host)
	assert.Nil(t, summary.Closure)

	c, err := e.closure.GetOrCreate(e.ctx, e.staff, "", march)
	require.NoError(t, err)
	summary, err = e.engine.MonthSummary(e.ctx, e.accounting, e.staff.ID, march)
	require.NoError(t, err)
	require.NotNil(t, summary.Closure)
	assert.Equal(t, c.ID, summary.Closure.ID)

	_, err = e.engine.MonthSummary(e.ctx, e.other, e.staff.ID, march)
	assert.True(t, apperror.IsAuthorization(err))
	_, err = e.engine.MonthSummary(e.ctx, e.host, "", march)
	assert.True(t, apperror.IsValidation(err))
}

func TestEngine_PendingTimeEntries(t *testing.T) {
	e := newEnv(t)

	a := e.declare(t, day(time.March, 4), "09:00", "17:00")
	b := e.declare(t, day(time.March, 5), "09:00", "17:00")

	_, err := e.approval.DecideTimeEntry(e.ctx, e.lender, a.ID, entity.SideLender, entity.DecisionApprove, "")
	require.NoError(t, err)

	host, err := e.engine.Pending(e.ctx, e.host, entity.TypeTimeEntry)
	require.NoError(t, err)
	assert.Equal(t, 2, host.Count(), "the lender decision does not hide the entry from the host")

	lender, err := e.engine.Pending(e.ctx, e.lender, entity.TypeTimeEntry)
	require.NoError(t, err)
	require.Len(t, lender.TimeEntries, 1)
	assert.Equal(t, b.ID, lender.TimeEntries[0].ID)

	for _, actor := range []entity.Actor{e.staff, e.accounting} {
		items, err := e.engine.Pending(e.ctx, actor, entity.TypeTimeEntry)
		require.NoError(t, err)
		assert.Zero(t, items.Count(), actor.Role)
	}

	_, err = e.engine.Pending(e.ctx, e.host, entity.Type("payslip"))
	assert.True(t, apperror.IsValidation(err))
	_, err = e.engine.Pending(e.ctx, entity.Actor{ID: "x", Role: "guest"}, entity.TypeTimeEntry)
	assert.True(t, apperror.IsAuthorization(err))
}

func TestEngine_PendingWeeklyReportsAndProposals(t *testing.T) {
	e := newEnv(t)

	_, err := e.weekly.Submit(e.ctx, e.staff, service.SubmitReportInput{WeekStart: day(time.March, 25)})
	require.NoError(t, err)

	_, err = e.schedule.Propose(e.ctx, e.host, service.ProposeInput{
		StaffID: e.staff.ID, Date: day(time.April, 2), StartTime: "09:00", EndTime: "12:00",
	})
	require.NoError(t, err)

	host, err := e.engine.Pending(e.ctx, e.host, entity.TypeWeeklyReport)
	require.NoError(t, err)
	assert.Len(t, host.WeeklyReports, 1)

	proposals, err := e.engine.Pending(e.ctx, e.lender, entity.TypeScheduleProposal)
	require.NoError(t, err)
	assert.Len(t, proposals.Proposals, 1)
	proposals, err = e.engine.Pending(e.ctx, e.host, entity.TypeScheduleProposal)
	require.NoError(t, err)
	assert.Zero(t, proposals.Count(), "only the validating role sees proposals awaiting")

	// closing March locks the report and removes it from the pending view
	c, err := e.closure.GetOrCreate(e.ctx, e.host, e.staff.ID, entity.Month{Year: 2024, Month: time.March})
	require.NoError(t, err)
	for _, actor := range []entity.Actor{e.staff, e.host, e.lender} {
		_, err = e.closure.Sign(e.ctx, actor, c.ID)
		require.NoError(t, err)
	}

	host, err = e.engine.Pending(e.ctx, e.host, entity.TypeWeeklyReport)
	require.NoError(t, err)
	assert.Zero(t, host.Count())
}

func TestEngine_ClosuresAwaiting(t *testing.T) {
	e := newEnv(t)
	march := entity.Month{Year: 2024, Month: time.March}

	mine, err := e.closure.GetOrCreate(e.ctx, e.host, e.staff.ID, march)
	require.NoError(t, err)
	_, err = e.closure.GetOrCreate(e.ctx, e.host, e.other.ID, march)
	require.NoError(t, err)

	staff, err := e.engine.ClosuresAwaiting(e.ctx, e.staff)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, mine.ID, staff[0].ID)

	host, err := e.engine.ClosuresAwaiting(e.ctx, e.host)
	require.NoError(t, err)
	assert.Empty(t, host)

	_, err = e.closure.Sign(e.ctx, e.staff, mine.ID)
	require.NoError(t, err)

	pending, err := e.engine.Pending(e.ctx, e.host, entity.TypeMonthlyClosure)
	require.NoError(t, err)
	require.Len(t, pending.Closures, 1)
	assert.Equal(t, entity.ClosureAwaitingHost, pending.Closures[0].Status)

	accounting, err := e.engine.ClosuresAwaiting(e.ctx, e.accounting)
	require.NoError(t, err)
	assert.Empty(t, accounting)
}
