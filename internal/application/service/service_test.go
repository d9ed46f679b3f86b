package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
	"github.com/garyjia/shared-staff/internal/infrastructure/export"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/repository"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/shared-staff/internal/infrastructure/storage"
	"github.com/garyjia/shared-staff/internal/testutil"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) OfType(t event.Type) []*event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*event.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx context.Context

	profiles  port.ProfileRepository
	sites     port.SiteRepository
	documents port.DocumentRepository
	proposals port.ScheduleProposalRepository
	entries   port.TimeEntryRepository
	expenses  port.ExpenseRepository
	reports   port.WeeklyReportRepository
	alerts    port.AlertRepository
	closures  port.ClosureRepository
	storage   port.FileStorage
	pub       *recordingPublisher

	schedule service.ScheduleService
	approval service.ApprovalService
	weekly   service.WeeklyReportService
	closure  service.ClosureService
	audit    service.AuditService
	profile  service.ProfileService
	site     service.SiteService
	document service.DocumentService

	staff      entity.Actor
	otherStaff entity.Actor
	host       entity.Actor
	lender     entity.Actor
	accounting entity.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	log := zap.NewNop()
	f := &fixture{
		ctx:       context.Background(),
		profiles:  repository.NewProfileRepository(db.DB, log),
		sites:     repository.NewSiteRepository(db.DB, log),
		documents: repository.NewDocumentRepository(db.DB, log),
		proposals: repository.NewScheduleProposalRepository(db.DB, log),
		entries:   repository.NewTimeEntryRepository(db.DB, log),
		expenses:  repository.NewExpenseRepository(db.DB, log),
		reports:   repository.NewWeeklyReportRepository(db.DB, log),
		alerts:    repository.NewAlertRepository(db.DB, log),
		closures:  repository.NewClosureRepository(db.DB, log),
		storage:   storage.NewLocalFileStorage(t.TempDir(), log),
		pub:       &recordingPublisher{},
	}

	auditRepo := repository.NewAuditRepository(db.DB, log)
	tx := sqlite.NewDB(db.DB, log)
	policy := authz.NewPolicy(nil)
	clock := func() time.Time { return time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC) }

	f.schedule = service.NewScheduleService(f.proposals, f.profiles, f.sites, auditRepo, export.NewCalendarExporter(time.UTC), tx, policy, f.pub, clock, nopLogger{})
	f.approval = service.NewApprovalService(f.entries, f.expenses, f.proposals, f.sites, auditRepo, tx, policy, f.pub, clock, nopLogger{})
	f.weekly = service.NewWeeklyReportService(f.reports, f.alerts, auditRepo, tx, policy, f.pub, clock, nopLogger{})
	loader := service.NewMonthLoader(f.entries, f.expenses, f.reports)
	f.closure = service.NewClosureService(f.closures, f.reports, f.profiles, loader, export.NewWorkbookGenerator(log), f.storage, auditRepo, tx, policy, f.pub, clock, nopLogger{})
	f.audit = service.NewAuditService(auditRepo, nopLogger{})
	f.profile = service.NewProfileService(f.profiles, f.sites, auditRepo, tx, clock, nopLogger{})
	f.site = service.NewSiteService(f.sites, auditRepo, tx, policy, clock, nopLogger{})
	f.document = service.NewDocumentService(f.documents, f.profiles, f.storage, auditRepo, tx, policy, clock, nopLogger{})

	f.staff = f.newActor(t, "anna@example.org", "Anna", "Martin", entity.RoleStaff)
	f.otherStaff = f.newActor(t, "paul@example.org", "Paul", "Bernard", entity.RoleStaff)
	f.host = f.newActor(t, "host@example.org", "Hélène", "Petit", entity.RoleHost)
	f.lender = f.newActor(t, "lender@example.org", "Luc", "Moreau", entity.RoleLender)
	f.accounting = f.newActor(t, "compta@example.org", "Claire", "Roux", entity.RoleAccounting)
	require.NoError(t, f.sites.Create(f.ctx, &entity.Site{ID: "school-1", Name: "École Jules Ferry"}))
	return f
}

func (f *fixture) newActor(t *testing.T, email, first, last string, role entity.Role) entity.Actor {
	t.Helper()
	p := &entity.Profile{Email: email, FirstName: first, LastName: last, Role: role}
	require.NoError(t, f.profiles.Create(f.ctx, p))
	return entity.Actor{ID: p.ID, Role: role, Email: email}
}

// approvedPlan proposes and approves a slot for the fixture's staff member
func (f *fixture) approvedPlan(t *testing.T, date time.Time, start, end entity.TimeOfDay) *entity.ScheduleProposal {
	t.Helper()
	p, err := f.schedule.Propose(f.ctx, f.host, service.ProposeInput{
		StaffID:   f.staff.ID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		SiteID:    "school-1",
	})
	require.NoError(t, err)
	p, err = f.schedule.Decide(f.ctx, f.lender, p.ID, entity.DecisionApprove, "")
	require.NoError(t, err)
	return p
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
