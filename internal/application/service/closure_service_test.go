package service_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
)

var march2024 = entity.Month{Year: 2024, Month: time.March}

func TestClosureService_SignatureChain(t *testing.T) {
	f := newFixture(t)

	c, err := f.closure.GetOrCreate(f.ctx, f.staff, "", march2024)
	require.NoError(t, err)
	assert.Equal(t, entity.ClosureAwaitingStaff, c.Status)
	assert.Equal(t, f.staff.ID, c.StaffID)

	again, err := f.closure.GetOrCreate(f.ctx, f.host, f.staff.ID, march2024)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID, "one closure per staff and month")

	_, err = f.closure.Sign(f.ctx, f.lender, c.ID)
	assert.True(t, apperror.IsConflict(err), "lender cannot sign before staff")
	_, err = f.closure.Sign(f.ctx, f.host, c.ID)
	assert.True(t, apperror.IsConflict(err), "host cannot sign before staff")

	c, err = f.closure.Sign(f.ctx, f.staff, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ClosureAwaitingHost, c.Status)

	_, err = f.closure.Sign(f.ctx, f.staff, c.ID)
	assert.True(t, apperror.IsConflict(err), "flags are write-once")
	_, err = f.closure.Sign(f.ctx, f.lender, c.ID)
	assert.True(t, apperror.IsConflict(err), "lender signs after host")

	c, err = f.closure.Sign(f.ctx, f.host, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ClosureAwaitingLender, c.Status)

	c, err = f.closure.Sign(f.ctx, f.lender, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ClosureClosed, c.Status)
	assert.Equal(t, entity.Signatures{Staff: true, Host: true, Lender: true}, c.Signatures)
	require.NotNil(t, c.ClosedAt)

	_, err = f.closure.Sign(f.ctx, f.lender, c.ID)
	assert.True(t, apperror.IsConflict(err))

	assert.Len(t, f.pub.OfType(event.TypeClosureSigned), 3)
	closed := f.pub.OfType(event.TypeClosureClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, "2024-03", closed[0].GetPayloadString(event.KeyMonth))
	assert.Equal(t, c.ReportRef, closed[0].GetPayloadString(event.KeyReportRef))
}

func TestClosureService_Authorization(t *testing.T) {
	f := newFixture(t)

	_, err := f.closure.GetOrCreate(f.ctx, f.staff, f.otherStaff.ID, march2024)
	assert.True(t, apperror.IsAuthorization(err))
	_, err = f.closure.GetOrCreate(f.ctx, f.accounting, f.staff.ID, march2024)
	assert.True(t, apperror.IsAuthorization(err))
	_, err = f.closure.GetOrCreate(f.ctx, f.host, f.staff.ID, entity.Month{})
	assert.True(t, apperror.IsValidation(err))

	c, err := f.closure.GetOrCreate(f.ctx, f.host, f.staff.ID, march2024)
	require.NoError(t, err)

	_, err = f.closure.Sign(f.ctx, f.accounting, c.ID)
	assert.True(t, apperror.IsAuthorization(err))
	_, err = f.closure.Sign(f.ctx, f.otherStaff, c.ID)
	assert.True(t, apperror.IsAuthorization(err))
	_, err = f.closure.Get(f.ctx, f.otherStaff, c.ID)
	assert.True(t, apperror.IsAuthorization(err))
	_, err = f.closure.Sign(f.ctx, f.staff, "missing")
	assert.True(t, apperror.IsNotFound(err))

	_, _, err = f.closure.Report(f.ctx, f.staff, c.ID)
	assert.True(t, apperror.IsConflict(err), "report exists only once closed")

	list, err := f.closure.List(f.ctx, f.otherStaff, port.ClosureFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.closure.List(f.ctx, f.accounting, port.ClosureFilter{Status: entity.ClosureAwaitingStaff})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func (f *fixture) close(t *testing.T, staffID string, month entity.Month) *entity.MonthlyClosure {
	t.Helper()
	c, err := f.closure.GetOrCreate(f.ctx, f.host, staffID, month)
	require.NoError(t, err)
	for _, actor := range []entity.Actor{f.staff, f.host, f.lender} {
		c, err = f.closure.Sign(f.ctx, actor, c.ID)
		require.NoError(t, err)
	}
	return c
}

func TestClosureService_LocksIntersectingReports(t *testing.T) {
	f := newFixture(t)

	straddling := f.submit(t, day(2024, time.February, 26))
	inside := f.submit(t, day(2024, time.March, 25))
	april := f.submit(t, day(2024, time.April, 1))

	f.close(t, f.staff.ID, march2024)

	for _, id := range []string{straddling.ID, inside.ID} {
		rep, err := f.weekly.Get(f.ctx, f.staff, id)
		require.NoError(t, err)
		assert.True(t, rep.Locked)

		_, err = f.weekly.Decide(f.ctx, f.host, id, entity.SideHost, entity.DecisionApprove, "")
		assert.True(t, apperror.IsConflict(err), "locked report cannot be decided")
		_, err = f.weekly.Update(f.ctx, f.staff, id, content())
		assert.True(t, apperror.IsConflict(err))
	}

	rep, err := f.weekly.Get(f.ctx, f.staff, april.ID)
	require.NoError(t, err)
	assert.False(t, rep.Locked)
}

func TestClosureService_Report(t *testing.T) {
	f := newFixture(t)

	e, err := f.approval.DeclareTime(f.ctx, f.staff, service.DeclareTimeInput{
		Date: day(2024, time.March, 4), StartTime: "08:30", EndTime: "18:00",
	})
	require.NoError(t, err)
	_, err = f.approval.DecideTimeEntry(f.ctx, f.lender, e.ID, entity.SideLender, entity.DecisionApprove, "")
	require.NoError(t, err)

	c := f.close(t, f.staff.ID, march2024)
	assert.Equal(t, "closures/2024-03/"+f.staff.ID+".xlsx", c.ReportRef)
	assert.True(t, f.storage.Exists(f.ctx, c.ReportRef))

	stored, err := f.closure.Get(f.ctx, f.staff, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ReportRef, stored.ReportRef)

	data, name, err := f.closure.Report(f.ctx, f.accounting, c.ID)
	require.NoError(t, err)
	assert.Equal(t, f.staff.ID+".xlsx", name)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	assert.Contains(t, book.GetSheetList(), "Summary")

	// a lost file is produced again on download
	require.NoError(t, f.storage.Delete(f.ctx, c.ReportRef))
	data, _, err = f.closure.Report(f.ctx, f.staff, c.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.True(t, f.storage.Exists(f.ctx, c.ReportRef))
}
