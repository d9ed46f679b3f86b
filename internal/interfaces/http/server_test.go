package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/application/workflow"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/infrastructure/export"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/repository"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/shared-staff/internal/infrastructure/storage"
	"github.com/garyjia/shared-staff/internal/testutil"
	"github.com/garyjia/shared-staff/pkg/utils"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiEnv struct {
	t      *testing.T
	server *Server
	tokens *TokenAuthority

	staff, host, lender, accounting entity.Actor
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db := testutil.NewDB(t)
	log := zap.NewNop()
	kv := utils.NewKVLogger(log)

	profiles := repository.NewProfileRepository(db.DB, log)
	proposals := repository.NewScheduleProposalRepository(db.DB, log)
	entries := repository.NewTimeEntryRepository(db.DB, log)
	expenses := repository.NewExpenseRepository(db.DB, log)
	reports := repository.NewWeeklyReportRepository(db.DB, log)
	alerts := repository.NewAlertRepository(db.DB, log)
	closures := repository.NewClosureRepository(db.DB, log)
	sites := repository.NewSiteRepository(db.DB, log)
	documents := repository.NewDocumentRepository(db.DB, log)
	auditRepo := repository.NewAuditRepository(db.DB, log)
	tx := sqlite.NewDB(db.DB, log)
	policy := authz.NewPolicy(nil)
	files := storage.NewLocalFileStorage(t.TempDir(), log)

	services := Services{
		Schedule: service.NewScheduleService(proposals, profiles, sites, auditRepo, export.NewCalendarExporter(time.UTC), tx, policy, nil, service.UTCClock, kv),
		Approval: service.NewApprovalService(entries, expenses, proposals, sites, auditRepo, tx, policy, nil, service.UTCClock, kv),
		Weekly:   service.NewWeeklyReportService(reports, alerts, auditRepo, tx, policy, nil, service.UTCClock, kv),
		Closure: service.NewClosureService(closures, reports, profiles, service.NewMonthLoader(entries, expenses, reports),
			export.NewWorkbookGenerator(log), files, auditRepo, tx, policy, nil, service.UTCClock, kv),
		Audit:    service.NewAuditService(auditRepo, kv),
		Profile:  service.NewProfileService(profiles, sites, auditRepo, tx, service.UTCClock, kv),
		Site:     service.NewSiteService(sites, auditRepo, tx, policy, service.UTCClock, kv),
		Document: service.NewDocumentService(documents, profiles, files, auditRepo, tx, policy, service.UTCClock, kv),
		Engine:   workflow.NewEngine(proposals, entries, expenses, reports, closures, workflow.WithPolicy(policy), workflow.WithLogger(kv)),
	}

	cfg := DefaultServerConfig()
	cfg.Mode = "test"
	tokens := NewTokenAuthority(testSecret, "shared-staff")
	e := &apiEnv{t: t, server: NewServer(cfg, services, tokens, db.DB, kv), tokens: tokens}

	actor := func(email, first string, role entity.Role) entity.Actor {
		p := &entity.Profile{Email: email, FirstName: first, LastName: "Test", Role: role}
		require.NoError(t, profiles.Create(context.Background(), p))
		return entity.Actor{ID: p.ID, Role: role, Email: email}
	}
	e.staff = actor("anna@example.org", "Anna", entity.RoleStaff)
	e.host = actor("host@example.org", "Hélène", entity.RoleHost)
	e.lender = actor("lender@example.org", "Luc", entity.RoleLender)
	e.accounting = actor("compta@example.org", "Claire", entity.RoleAccounting)
	require.NoError(t, sites.Create(context.Background(), &entity.Site{ID: "school-1", Name: "École Jules Ferry"}))
	return e
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *apiEnv) do(actor *entity.Actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := e.tokens.Issue(*actor, time.Hour)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

// decode checks the status and unmarshals the data payload into out
func (e *apiEnv) decode(rec *httptest.ResponseRecorder, status int, out interface{}) envelope {
	e.t.Helper()
	require.Equal(e.t, status, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env))
	if out != nil {
		require.NoError(e.t, json.Unmarshal(env.Data, out))
	}
	return env
}

func TestHealthCheck(t *testing.T) {
	e := newAPIEnv(t)

	var health HealthResponse
	env := e.decode(e.do(nil, http.MethodGet, "/health", nil), http.StatusOK, &health)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Database)
}

func TestAuthentication(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(nil, http.MethodGet, "/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	foreign, err := NewTokenAuthority(testSecret, "someone-else").Issue(e.staff, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	rec = httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "issuer must match")

	expired, err := e.tokens.Issue(e.staff, -time.Minute)
	require.NoError(t, err)
	_, err = e.tokens.Verify(expired)
	assert.Error(t, err)

	var me entity.Actor
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/me", nil), http.StatusOK, &me)
	assert.Equal(t, e.staff, me)
}

func TestTimeEntryFlow(t *testing.T) {
	e := newAPIEnv(t)

	var proposal entity.ScheduleProposal
	e.decode(e.do(&e.host, http.MethodPost, "/api/v1/proposals", ProposalRequest{
		StaffID: e.staff.ID, Date: "2024-03-04", StartTime: "09:00", EndTime: "17:00", SiteID: "school-1",
	}), http.StatusCreated, &proposal)
	assert.Equal(t, entity.ProposalProposed, proposal.Status)

	e.decode(e.do(&e.host, http.MethodPost, "/api/v1/proposals/"+proposal.ID+"/decision", DecisionRequest{Decision: "approve"}), http.StatusForbidden, nil)
	e.decode(e.do(&e.lender, http.MethodPost, "/api/v1/proposals/"+proposal.ID+"/decision", DecisionRequest{Decision: "approve"}), http.StatusOK, &proposal)
	assert.Equal(t, entity.ProposalApproved, proposal.Status)

	var entry entity.TimeEntry
	e.decode(e.do(&e.staff, http.MethodPost, "/api/v1/time-entries", TimeEntryRequest{
		Date: "2024-03-04", StartTime: "08:30", EndTime: "18:00",
	}), http.StatusCreated, &entry)
	assert.InDelta(t, 1.5, entry.Variance, 1e-9)

	path := "/api/v1/time-entries/" + entry.ID + "/decision"
	e.decode(e.do(&e.staff, http.MethodPost, path, DecisionRequest{Decision: "approve", Side: "host"}), http.StatusForbidden, nil)
	e.decode(e.do(&e.host, http.MethodPost, path, DecisionRequest{Decision: "approve"}), http.StatusOK, &entry)
	assert.Equal(t, entity.ApprovalApproved, entry.Approvals.Host.Status)
	e.decode(e.do(&e.host, http.MethodPost, path, DecisionRequest{Decision: "reject"}), http.StatusConflict, nil)
	e.decode(e.do(&e.lender, http.MethodPost, path, DecisionRequest{Decision: "approve"}), http.StatusOK, &entry)

	var summary workflow.MonthSummary
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/summary/2024-03", nil), http.StatusOK, &summary)
	assert.InDelta(t, 9.5, summary.Totals.Hours, 1e-9)
	e.decode(e.do(&e.accounting, http.MethodGet, "/api/v1/summary/2024-03?staff_id="+e.staff.ID, nil), http.StatusOK, &summary)
	assert.Equal(t, e.staff.ID, summary.StaffID)
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/summary/march", nil), http.StatusBadRequest, nil)

	rec := e.do(&e.staff, http.MethodGet, "/api/v1/staff/me/calendar.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeCalendar, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")

	var entries []*entity.TimeEntry
	e.decode(e.do(&e.host, http.MethodGet, "/api/v1/time-entries?from=2024-03-01&to=2024-03-31", nil), http.StatusOK, &entries)
	assert.Len(t, entries, 1)
}

func TestRequestValidation(t *testing.T) {
	e := newAPIEnv(t)

	tests := []struct {
		name   string
		actor  *entity.Actor
		method string
		path   string
		body   interface{}
		status int
		msg    string
	}{
		{"bad start time", &e.staff, http.MethodPost, "/api/v1/time-entries",
			TimeEntryRequest{Date: "2024-03-04", StartTime: "8h", EndTime: "12:00"},
			http.StatusBadRequest, "field 'start_time' must be a time HH:MM"},
		{"end before start", &e.staff, http.MethodPost, "/api/v1/time-entries",
			TimeEntryRequest{Date: "2024-03-04", StartTime: "12:00", EndTime: "09:00"},
			http.StatusBadRequest, ""},
		{"bad allocation", &e.staff, http.MethodPost, "/api/v1/expenses",
			map[string]interface{}{"date": "2024-03-04", "category": "meal", "amount": "12.50", "allocation": "both"},
			http.StatusBadRequest, "field 'allocation' must be one of [lender host mixed]"},
		{"bad month", &e.staff, http.MethodPost, "/api/v1/closures",
			ClosureRequest{Month: "2024-3"}, http.StatusBadRequest, "field 'month' must be a month YYYY-MM"},
		{"unknown pending type", &e.host, http.MethodGet, "/api/v1/pending/payslip", nil, http.StatusBadRequest, ""},
		{"missing proposal", &e.lender, http.MethodGet, "/api/v1/proposals/missing", nil, http.StatusNotFound, ""},
		{"staff reads audit", &e.staff, http.MethodGet, "/api/v1/audit", nil, http.StatusForbidden, ""},
		{"empty body", &e.staff, http.MethodPost, "/api/v1/weekly-reports", nil, http.StatusBadRequest, "request body is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := e.decode(e.do(tt.actor, tt.method, tt.path, tt.body), tt.status, nil)
			assert.False(t, env.Success)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, env.Error)
			}
		})
	}
}

func TestExpenseVentilation(t *testing.T) {
	e := newAPIEnv(t)

	var x entity.Expense
	e.decode(e.do(&e.staff, http.MethodPost, "/api/v1/expenses", map[string]interface{}{
		"date": "2024-03-06", "category": "travel", "amount": "100", "allocation": "mixed", "ratio": "0.3",
	}), http.StatusCreated, &x)
	assert.True(t, x.LenderShare.Equal(decimal.NewFromInt(30)), x.LenderShare.String())
	assert.True(t, x.HostShare.Equal(decimal.NewFromInt(70)), x.HostShare.String())

	rec := e.do(&e.staff, http.MethodDelete, "/api/v1/expenses/"+x.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/expenses/"+x.ID, nil), http.StatusNotFound, nil)
}

func TestWeeklyReportAndClosureFlow(t *testing.T) {
	e := newAPIEnv(t)

	var rep entity.WeeklyReport
	e.decode(e.do(&e.staff, http.MethodPost, "/api/v1/weekly-reports", WeeklyReportRequest{
		WeekStart: "2024-03-04",
		ReportContentRequest: ReportContentRequest{
			HostContent: "Ateliers lecture", HostHours: 20, LenderHours: 15,
		},
	}), http.StatusCreated, &rep)
	assert.Equal(t, "2024-03-10", rep.WeekEnd.Format(entity.DateLayout))

	var pending workflow.PendingItems
	e.decode(e.do(&e.host, http.MethodGet, "/api/v1/pending/weekly_report", nil), http.StatusOK, &pending)
	assert.Len(t, pending.WeeklyReports, 1)

	var alerts []*entity.ConsistencyAlert
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/weekly-reports/"+rep.ID+"/alerts", nil), http.StatusOK, &alerts)
	assert.Empty(t, alerts)

	var closure entity.MonthlyClosure
	e.decode(e.do(&e.staff, http.MethodPost, "/api/v1/closures", ClosureRequest{Month: "2024-03"}), http.StatusOK, &closure)
	assert.Equal(t, entity.ClosureAwaitingStaff, closure.Status)

	sign := "/api/v1/closures/" + closure.ID + "/sign"
	e.decode(e.do(&e.lender, http.MethodPost, sign, nil), http.StatusConflict, nil)
	e.decode(e.do(&e.accounting, http.MethodPost, sign, nil), http.StatusForbidden, nil)
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/closures/"+closure.ID+"/report", nil), http.StatusConflict, nil)

	for _, actor := range []*entity.Actor{&e.staff, &e.host, &e.lender} {
		e.decode(e.do(actor, http.MethodPost, sign, nil), http.StatusOK, &closure)
	}
	assert.Equal(t, entity.ClosureClosed, closure.Status)

	rec := e.do(&e.accounting, http.MethodGet, "/api/v1/closures/"+closure.ID+"/report", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.xlsx"`))
	assert.NotZero(t, rec.Body.Len())

	e.decode(e.do(&e.staff, http.MethodPut, "/api/v1/weekly-reports/"+rep.ID, ReportContentRequest{HostHours: 1}), http.StatusConflict, nil)

	var closures []*entity.MonthlyClosure
	e.decode(e.do(&e.accounting, http.MethodGet, "/api/v1/closures?status=closed&month=2024-03", nil), http.StatusOK, &closures)
	assert.Len(t, closures, 1)
}

func TestProfilesAndAudit(t *testing.T) {
	e := newAPIEnv(t)

	var p entity.Profile
	e.decode(e.do(&e.lender, http.MethodPost, "/api/v1/profiles", ProfileRequest{
		Email: "nina@example.org", FirstName: "Nina", Role: "staff",
	}), http.StatusCreated, &p)
	assert.Equal(t, entity.RoleStaff, p.Role)

	e.decode(e.do(&e.lender, http.MethodPost, "/api/v1/profiles", ProfileRequest{
		Email: "nina@example.org", Role: "staff",
	}), http.StatusConflict, nil)
	e.decode(e.do(&e.host, http.MethodPost, "/api/v1/profiles", ProfileRequest{
		Email: "zoe@example.org", Role: "staff",
	}), http.StatusForbidden, nil)

	var me entity.Profile
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/profiles/me", nil), http.StatusOK, &me)
	assert.Equal(t, "anna@example.org", me.Email)

	var staff []*entity.Profile
	e.decode(e.do(&e.host, http.MethodGet, "/api/v1/profiles?role=staff", nil), http.StatusOK, &staff)
	assert.Len(t, staff, 2)

	var entries []*entity.AuditEntry
	e.decode(e.do(&e.accounting, http.MethodGet, "/api/v1/audit?table=profiles", nil), http.StatusOK, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, p.ID, entries[0].RecordID)
}

func TestSitesFlow(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(&e.host, http.MethodPost, "/api/v1/sites", SiteRequest{Name: "Collège Camus"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(&e.lender, http.MethodPost, "/api/v1/sites", SiteRequest{Name: "Collège Camus", ContactEmail: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var site entity.Site
	e.decode(e.do(&e.lender, http.MethodPost, "/api/v1/sites", SiteRequest{Name: "Collège Camus"}), http.StatusCreated, &site)
	assert.NotEmpty(t, site.ID)

	var sites []entity.Site
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/sites", nil), http.StatusOK, &sites)
	assert.Len(t, sites, 2)

	e.decode(e.do(&e.lender, http.MethodPut, "/api/v1/sites/"+site.ID, SiteRequest{Name: "Collège Albert Camus"}), http.StatusOK, &site)
	assert.Equal(t, "Collège Albert Camus", site.Name)

	// a proposal on an unknown site is rejected, on a known one accepted
	proposal := ProposalRequest{StaffID: e.staff.ID, Date: "2024-03-04", StartTime: "09:00", EndTime: "17:00", SiteID: "school-404"}
	rec = e.do(&e.host, http.MethodPost, "/api/v1/proposals", proposal)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	proposal.SiteID = site.ID
	e.decode(e.do(&e.host, http.MethodPost, "/api/v1/proposals", proposal), http.StatusCreated, nil)

	rec = e.do(&e.lender, http.MethodDelete, "/api/v1/sites/"+site.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "referenced by the proposal")
	rec = e.do(&e.lender, http.MethodDelete, "/api/v1/sites/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var unused entity.Site
	e.decode(e.do(&e.lender, http.MethodPost, "/api/v1/sites", SiteRequest{Name: "Lycée Hugo"}), http.StatusCreated, &unused)
	rec = e.do(&e.lender, http.MethodDelete, "/api/v1/sites/"+unused.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(&e.staff, http.MethodGet, "/api/v1/sites/"+unused.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentsFlow(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(&e.staff, http.MethodPost, "/api/v1/documents", DocumentRequest{Type: "report", URL: "https://files.example.org/r.pdf"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(&e.lender, http.MethodPost, "/api/v1/documents", DocumentRequest{Type: "memo", URL: "https://files.example.org/r.pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var linked entity.Document
	e.decode(e.do(&e.lender, http.MethodPost, "/api/v1/documents", DocumentRequest{
		Type: "contract", Title: "Convention", StaffID: e.staff.ID, URL: "https://files.example.org/convention.pdf",
	}), http.StatusCreated, &linked)
	assert.False(t, linked.HasContent())

	// multipart upload
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("type", "closure"))
	require.NoError(t, form.WriteField("staff_id", e.staff.ID))
	require.NoError(t, form.WriteField("month", "2024-03"))
	part, err := form.CreateFormFile("file", "cloture-2024-03.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 signed"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	token, err := e.tokens.Issue(e.lender, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)

	var uploaded entity.Document
	e.decode(rec, http.StatusCreated, &uploaded)
	assert.True(t, uploaded.HasContent())
	require.NotNil(t, uploaded.Month)
	assert.Equal(t, "2024-03", uploaded.Month.String())

	var list []entity.Document
	e.decode(e.do(&e.staff, http.MethodGet, "/api/v1/documents?type=closure&month=2024-03", nil), http.StatusOK, &list)
	require.Len(t, list, 1)
	assert.Equal(t, uploaded.ID, list[0].ID)
	rec = e.do(&e.staff, http.MethodGet, "/api/v1/documents?month=march", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(&e.staff, http.MethodGet, "/api/v1/documents/"+uploaded.ID+"/file", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "%PDF-1.4 signed", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cloture-2024-03.pdf")

	rec = e.do(&e.staff, http.MethodGet, "/api/v1/documents/"+linked.ID+"/file", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(&e.host, http.MethodDelete, "/api/v1/documents/"+uploaded.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(&e.lender, http.MethodDelete, "/api/v1/documents/"+uploaded.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(&e.staff, http.MethodGet, "/api/v1/documents/"+uploaded.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
	assert.Equal(t, http.StatusRequestTimeout, statusFor(context.Canceled))
}
