package entity

import (
	"strings"
	"time"
)

// DocumentType classifies a registered document
type DocumentType string

const (
	DocumentContract  DocumentType = "contract"
	DocumentAmendment DocumentType = "amendment"
	DocumentClosure   DocumentType = "closure"
	DocumentReceipt   DocumentType = "receipt"
	DocumentReport    DocumentType = "report"
	DocumentOther     DocumentType = "other"
)

// IsValid returns true if the document type is known
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentContract, DocumentAmendment, DocumentClosure, DocumentReceipt, DocumentReport, DocumentOther:
		return true
	}
	return false
}

// Document is an entry of the document register. It points either at an
// external URL or at content held in file storage under StorageRef.
// A document without StaffID concerns every staff member.
type Document struct {
	ID          string       `json:"id"`
	Type        DocumentType `json:"type"`
	Title       string       `json:"title"`
	StaffID     string       `json:"staff_id,omitempty"`
	Month       *Month       `json:"month,omitempty"`
	URL         string       `json:"url,omitempty"`
	StorageRef  string       `json:"storage_ref,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	Size        int64        `json:"size,omitempty"`
	UploadedBy  string       `json:"uploaded_by"`
	UploadedAt  time.Time    `json:"uploaded_at"`
}

// FileName returns the base name of the stored file
func (d *Document) FileName() string {
	if i := strings.LastIndex(d.StorageRef, "/"); i >= 0 {
		return d.StorageRef[i+1:]
	}
	return d.StorageRef
}

// HasContent returns true when the document content is held in file storage
func (d *Document) HasContent() bool {
	return d.StorageRef != ""
}
