package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/shared-staff/internal/application/dispatcher"
	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
)

// NotificationHandler turns workflow events into notifications.
// Recipients are resolved through the profile directory.
type NotificationHandler struct {
	profiles port.ProfileRepository
	notifier port.Notifier
	logger   Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(profiles port.ProfileRepository, notifier port.Notifier, logger Logger) *NotificationHandler {
	return &NotificationHandler{
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
	}
}

// Register subscribes the handler to the events it notifies about
func (h *NotificationHandler) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeReportSubmitted, "notify_report_submitted", h.OnReportSubmitted)
	d.SubscribeNamed(event.TypeReportDecided, "notify_report_decided", h.OnReportDecided)
	d.SubscribeNamed(event.TypeWeeklyReminder, "notify_weekly_reminder", h.OnWeeklyReminder)
	d.SubscribeNamed(event.TypeClosureClosed, "notify_closure_closed", h.OnClosureClosed)
}

// OnReportSubmitted notifies every host and lender
func (h *NotificationHandler) OnReportSubmitted(ctx context.Context, evt *event.Event) error {
	params, err := h.weekParams(ctx, evt)
	if err != nil {
		return err
	}

	recipients, err := h.byRoles(ctx, entity.RoleHost, entity.RoleLender)
	if err != nil {
		return err
	}
	return h.send(ctx, evt, recipients, port.TemplateReportSubmitted, params)
}

// OnReportDecided notifies the staff member of one side's decision
func (h *NotificationHandler) OnReportDecided(ctx context.Context, evt *event.Event) error {
	params, err := h.weekParams(ctx, evt)
	if err != nil {
		return err
	}

	template := port.TemplateReportApproved
	if entity.Decision(evt.GetPayloadString(event.KeyDecision)) == entity.DecisionReject {
		template = port.TemplateReportRejected
		params[port.ParamComment] = evt.GetPayloadString(event.KeyComment)
	}

	decidedBy, err := h.profile(ctx, evt.ActorID)
	if err != nil {
		return err
	}
	params[port.ParamDecidedBy] = displayName(decidedBy, evt.ActorID)

	staff, err := h.profile(ctx, evt.StaffID)
	if err != nil {
		return err
	}
	return h.send(ctx, evt, emails(staff), template, params)
}

// OnWeeklyReminder reminds the staff member to submit the week's report
func (h *NotificationHandler) OnWeeklyReminder(ctx context.Context, evt *event.Event) error {
	params, err := h.weekParams(ctx, evt)
	if err != nil {
		return err
	}

	staff, err := h.profile(ctx, evt.StaffID)
	if err != nil {
		return err
	}
	return h.send(ctx, evt, emails(staff), port.TemplateWeeklyReminder, params)
}

// OnClosureClosed notifies the staff member, hosts and lenders
func (h *NotificationHandler) OnClosureClosed(ctx context.Context, evt *event.Event) error {
	staff, err := h.profile(ctx, evt.StaffID)
	if err != nil {
		return err
	}

	params := map[string]interface{}{
		port.ParamStaffName: displayName(staff, evt.StaffID),
		port.ParamMonth:     evt.GetPayloadString(event.KeyMonth),
		port.ParamReportRef: evt.GetPayloadString(event.KeyReportRef),
	}

	recipients, err := h.byRoles(ctx, entity.RoleHost, entity.RoleLender)
	if err != nil {
		return err
	}
	recipients = append(emails(staff), recipients...)
	return h.send(ctx, evt, recipients, port.TemplateClosureClosed, params)
}

// weekParams builds the staff name and week bounds shared by report templates
func (h *NotificationHandler) weekParams(ctx context.Context, evt *event.Event) (map[string]interface{}, error) {
	week := evt.GetPayloadString(event.KeyWeek)
	start, err := time.Parse(entity.DateLayout, week)
	if err != nil {
		return nil, fmt.Errorf("event %s: invalid week_start %q: %w", evt.ID, week, err)
	}

	staff, err := h.profile(ctx, evt.StaffID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		port.ParamStaffName: displayName(staff, evt.StaffID),
		port.ParamWeekStart: start.Format(entity.DateLayout),
		port.ParamWeekEnd:   entity.WeekEndFor(start).Format(entity.DateLayout),
	}, nil
}

// profile returns the profile or nil when the directory has no entry
func (h *NotificationHandler) profile(ctx context.Context, id string) (*entity.Profile, error) {
	if id == "" {
		return nil, nil
	}
	p, err := h.profiles.GetByID(ctx, id)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return p, err
}

func (h *NotificationHandler) byRoles(ctx context.Context, roles ...entity.Role) ([]string, error) {
	var out []string
	for _, role := range roles {
		profiles, err := h.profiles.List(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("list %s profiles: %w", role, err)
		}
		for _, p := range profiles {
			out = append(out, emails(p)...)
		}
	}
	return out, nil
}

// send notifies each distinct recipient; failures do not stop the others
func (h *NotificationHandler) send(ctx context.Context, evt *event.Event, recipients []string, template string, params map[string]interface{}) error {
	if len(recipients) == 0 {
		h.logger.Info("No recipient for notification", "event_id", evt.ID, "template", template)
		return nil
	}

	seen := make(map[string]bool, len(recipients))
	var errs []error
	for _, to := range recipients {
		if seen[to] {
			continue
		}
		seen[to] = true

		if err := h.notifier.Notify(ctx, to, template, params); err != nil {
			h.logger.Error("Failed to send notification", "error", err, "recipient", to, "template", template, "event_id", evt.ID)
			errs = append(errs, err)
			continue
		}
		h.logger.Info("Notification sent", "recipient", to, "template", template, "channel", h.notifier.Channel())
	}
	return errors.Join(errs...)
}

func emails(p *entity.Profile) []string {
	if p == nil || p.Email == "" {
		return nil
	}
	return []string{p.Email}
}

func displayName(p *entity.Profile, fallback string) string {
	if p == nil {
		return fallback
	}
	if name := p.FullName(); name != "" {
		return name
	}
	return p.Email
}
