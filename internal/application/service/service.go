// Package service implements the workflow use cases on top of the persistence ports.
// Every mutation runs in one transaction together with its audit entry.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/shared-staff/internal/application/dispatcher"
	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/derive"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Clock returns the current time
type Clock func() time.Time

// UTCClock is the default Clock
func UTCClock() time.Time {
	return time.Now().UTC()
}

// Audit actions
const (
	auditCreate = "create"
	auditUpdate = "update"
	auditDelete = "delete"
)

// auditor appends audit entries inside the caller's transaction
type auditor struct {
	repo port.AuditRepository
	now  Clock
}

func (a auditor) record(ctx context.Context, actor entity.Actor, t entity.Type, id, action string, before, after interface{}) error {
	entry := &entity.AuditEntry{
		ActorID:  actor.ID,
		Table:    t.Table(),
		RecordID: id,
		Action:   action,
		Before:   snapshot(before),
		After:    snapshot(after),
		At:       a.now(),
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// snapshot renders a record for the audit log; nil stays empty
func snapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// publish dispatches an event if a publisher is configured
func publish(ctx context.Context, p dispatcher.Publisher, evt *event.Event) {
	if p == nil {
		return
	}
	p.DispatchAsync(ctx, evt)
}

// ownStaffID resolves the staff member a record is declared for.
// Staff actors always act for themselves.
func ownStaffID(actor entity.Actor, staffID string) string {
	if actor.Role == entity.RoleStaff && staffID == "" {
		return actor.ID
	}
	return staffID
}

// normalizeInterval checks start < end and returns the zero-padded times
// stored by the repositories
func normalizeInterval(start, end entity.TimeOfDay) (derive.Interval, error) {
	if _, err := derive.DurationHours(start, end); err != nil {
		return derive.Interval{}, err
	}
	s, err := start.Normalize()
	if err != nil {
		return derive.Interval{}, apperror.Validation("interval", "%v", err)
	}
	e, err := end.Normalize()
	if err != nil {
		return derive.Interval{}, apperror.Validation("interval", "%v", err)
	}
	return derive.Interval{Start: s, End: e}, nil
}

// requireDate rejects a missing calendar date
func requireDate(op, field string, t time.Time) error {
	if t.IsZero() {
		return apperror.Validation(op, "%s is required", field)
	}
	return nil
}

// requireSite rejects a site_id naming no site of the directory.
// An empty site_id leaves the record unassigned.
func requireSite(ctx context.Context, op string, sites port.SiteRepository, siteID string) error {
	if siteID == "" {
		return nil
	}
	if _, err := sites.GetByID(ctx, siteID); err != nil {
		if apperror.IsNotFound(err) {
			return apperror.Validation(op, "unknown site %q", siteID)
		}
		return err
	}
	return nil
}
