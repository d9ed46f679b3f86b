package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/garyjia/shared-staff/internal/domain/entity"
)

const calendarProductID = "-//shared-staff//schedule//EN"

// CalendarExporter implements port.CalendarExporter with iCalendar (RFC 5545)
type CalendarExporter struct {
	location *time.Location
	now      func() time.Time
}

// NewCalendarExporter creates an exporter placing slot times in loc
func NewCalendarExporter(loc *time.Location) *CalendarExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarExporter{location: loc, now: time.Now}
}

// ContentType returns the MIME type of exported documents
func (c *CalendarExporter) ContentType() string {
	return "text/calendar; charset=utf-8"
}

// Export writes one VEVENT per slot; event UIDs are stable across exports
func (c *CalendarExporter) Export(staff *entity.Profile, slots []*entity.ScheduleProposal) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	if staff != nil {
		cal.SetXWRCalName("Schedule " + staff.FullName())
	}

	stamp := c.now().UTC()
	for _, slot := range slots {
		start, err := c.wallClock(slot.Date, slot.StartTime)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}
		end, err := c.wallClock(slot.Date, slot.EndTime)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}

		ev := cal.AddEvent(slot.ID + "@shared-staff")
		ev.SetDtStampTime(stamp)
		ev.SetCreatedTime(slot.CreatedAt)
		ev.SetModifiedAt(slot.UpdatedAt)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary("Shared staff schedule")
		if slot.SiteID != "" {
			ev.SetLocation(slot.SiteID)
		}
		if slot.Comment != "" {
			ev.SetDescription(slot.Comment)
		}
		if staff != nil && staff.Email != "" {
			ev.AddAttendee("mailto:"+staff.Email, ics.WithCN(staff.FullName()))
		}
	}

	return []byte(cal.Serialize()), nil
}

// wallClock places a time of day on a date in the exporter's location
func (c *CalendarExporter) wallClock(date time.Time, t entity.TimeOfDay) (time.Time, error) {
	v, err := t.Parse()
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), v.Hour(), v.Minute(), v.Second(), 0, c.location), nil
}
