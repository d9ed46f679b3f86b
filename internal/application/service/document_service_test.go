package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

func TestDocumentService_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	march := entity.Month{Year: 2024, Month: time.March}

	tests := []struct {
		name  string
		actor entity.Actor
		in    service.RegisterDocumentInput
		check func(error) bool
	}{
		{"staff may not register", f.staff,
			service.RegisterDocumentInput{Type: entity.DocumentReport, URL: "https://files.example.org/r.pdf"}, apperror.IsAuthorization},
		{"unknown type", f.lender,
			service.RegisterDocumentInput{Type: "memo", URL: "https://files.example.org/r.pdf"}, apperror.IsValidation},
		{"neither url nor file", f.lender,
			service.RegisterDocumentInput{Type: entity.DocumentReport}, apperror.IsValidation},
		{"both url and file", f.lender,
			service.RegisterDocumentInput{Type: entity.DocumentReport, URL: "https://files.example.org/r.pdf", Content: []byte("x")}, apperror.IsValidation},
		{"malformed url", f.lender,
			service.RegisterDocumentInput{Type: entity.DocumentReport, URL: "not a url"}, apperror.IsValidation},
		{"unknown staff member", f.lender,
			service.RegisterDocumentInput{Type: entity.DocumentContract, StaffID: "missing", URL: "https://files.example.org/c.pdf"}, apperror.IsValidation},
		{"document for a non-staff profile", f.lender,
			service.RegisterDocumentInput{Type: entity.DocumentContract, StaffID: f.host.ID, URL: "https://files.example.org/c.pdf", Month: &march}, apperror.IsValidation},
		{"oversized file", f.lender,
			service.RegisterDocumentInput{Type: entity.DocumentReceipt, Content: make([]byte, service.MaxDocumentSize+1)}, apperror.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.document.Register(f.ctx, tt.actor, tt.in)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}

	list, err := f.document.List(f.ctx, f.lender, port.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "rejected documents leave no row")
}

func TestDocumentService_UploadAndVisibility(t *testing.T) {
	f := newFixture(t)
	march := entity.Month{Year: 2024, Month: time.March}

	closure, err := f.document.Register(f.ctx, f.lender, service.RegisterDocumentInput{
		Type:        entity.DocumentClosure,
		StaffID:     f.staff.ID,
		Month:       &march,
		Content:     []byte("%PDF-1.4 closure"),
		FileName:    `C:\scans\clôture mars.pdf`,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "documents/"+closure.ID+"/cl_ture_mars.pdf", closure.StorageRef)
	assert.Equal(t, "cl_ture_mars.pdf", closure.Title)
	assert.Equal(t, int64(16), closure.Size)
	assert.True(t, f.storage.Exists(f.ctx, closure.StorageRef))

	handbook, err := f.document.Register(f.ctx, f.lender, service.RegisterDocumentInput{
		Type:  entity.DocumentOther,
		Title: "Livret d'accueil",
		URL:   "https://files.example.org/livret.pdf",
	})
	require.NoError(t, err)

	paulContract, err := f.document.Register(f.ctx, f.lender, service.RegisterDocumentInput{
		Type:    entity.DocumentContract,
		StaffID: f.otherStaff.ID,
		URL:     "https://files.example.org/paul.pdf",
	})
	require.NoError(t, err)

	// staff see their own documents and the general ones
	own, err := f.document.List(f.ctx, f.staff, port.DocumentFilter{StaffID: f.otherStaff.ID})
	require.NoError(t, err)
	ids := []string{}
	for _, d := range own {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []string{closure.ID, handbook.ID}, ids)

	_, err = f.document.Get(f.ctx, f.staff, paulContract.ID)
	assert.True(t, apperror.IsAuthorization(err))
	_, err = f.document.Get(f.ctx, f.staff, handbook.ID)
	assert.NoError(t, err)

	all, err := f.document.List(f.ctx, f.host, port.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	closures, err := f.document.List(f.ctx, f.accounting, port.DocumentFilter{Type: entity.DocumentClosure, Month: march})
	require.NoError(t, err)
	require.Len(t, closures, 1)
	assert.Equal(t, closure.ID, closures[0].ID)

	doc, content, err := f.document.Content(f.ctx, f.staff, closure.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 closure", string(content))
	assert.Equal(t, "cl_ture_mars.pdf", doc.FileName())

	_, _, err = f.document.Content(f.ctx, f.staff, handbook.ID)
	assert.True(t, apperror.IsNotFound(err), "linked documents have no stored file")
	_, _, err = f.document.Content(f.ctx, f.otherStaff, closure.ID)
	assert.True(t, apperror.IsAuthorization(err))
}

func TestDocumentService_Delete(t *testing.T) {
	f := newFixture(t)

	d, err := f.document.Register(f.ctx, f.lender, service.RegisterDocumentInput{
		Type:     entity.DocumentReceipt,
		StaffID:  f.staff.ID,
		Content:  []byte("receipt"),
		FileName: "receipt.png",
	})
	require.NoError(t, err)

	assert.True(t, apperror.IsAuthorization(f.document.Delete(f.ctx, f.host, d.ID)))

	require.NoError(t, f.document.Delete(f.ctx, f.lender, d.ID))
	assert.False(t, f.storage.Exists(f.ctx, d.StorageRef), "the stored file goes with the entry")
	_, err = f.document.Get(f.ctx, f.lender, d.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.True(t, apperror.IsNotFound(f.document.Delete(f.ctx, f.lender, d.ID)))

	entries, err := f.audit.List(f.ctx, f.lender, port.AuditFilter{Table: "documents", RecordID: d.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	actions := []string{entries[0].Action, entries[1].Action}
	assert.ElementsMatch(t, []string{"create", "delete"}, actions)
}
