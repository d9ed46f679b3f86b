package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"report submitted", TypeReportSubmitted, true},
		{"report decided", TypeReportDecided, true},
		{"closure closed", TypeClosureClosed, true},
		{"weekly reminder", TypeWeeklyReminder, true},
		{"unknown type", Type("unknown.type"), false},
		{"empty string", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "report.decided", TypeReportDecided.String())
	assert.Equal(t, "reminder.weekly", TypeWeeklyReminder.String())
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(TypeReportDecided, "report-1", "staff-1", "host-1", map[string]interface{}{
		KeyDecision: "approve",
	})

	require.NotNil(t, e)
	assert.NotEmpty(t, e.ID)
	assert.NotEmpty(t, e.CorrelationID)
	assert.Equal(t, TypeReportDecided, e.Type)
	assert.Equal(t, "report-1", e.EntityID)
	assert.Equal(t, "staff-1", e.StaffID)
	assert.Equal(t, "host-1", e.ActorID)
	assert.Equal(t, "approve", e.GetPayloadString(KeyDecision))
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Second)
}

func TestNewEventWithCorrelation(t *testing.T) {
	first := NewEvent(TypeClosureSigned, "c-1", "staff-1", "lender-1", nil)
	second := NewEventWithCorrelation(TypeClosureClosed, "c-1", "staff-1", "lender-1", nil, first.CorrelationID)

	assert.Equal(t, first.CorrelationID, second.CorrelationID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeReportSubmitted, "r-1", "s-1", "s-1", map[string]interface{}{"key1": "value1"})
	modified := original.WithPayload("key2", "value2")

	_, exists := original.Payload["key2"]
	assert.False(t, exists, "original event should not be modified")
	assert.Equal(t, "value1", modified.GetPayloadString("key1"))
	assert.Equal(t, "value2", modified.GetPayloadString("key2"))
	assert.Equal(t, original.ID, modified.ID)
	assert.Equal(t, original.EntityID, modified.EntityID)
}

func TestEvent_PayloadAccessors(t *testing.T) {
	e := NewEvent(TypeReportSubmitted, "r-1", "s-1", "s-1", map[string]interface{}{
		"hours":  7.5,
		"count":  3,
		"locked": true,
		"name":   "x",
	})

	assert.Equal(t, 7.5, e.GetPayloadFloat("hours"))
	assert.Equal(t, 3.0, e.GetPayloadFloat("count"))
	assert.Equal(t, 0.0, e.GetPayloadFloat("name"))
	assert.True(t, e.GetPayloadBool("locked"))
	assert.False(t, e.GetPayloadBool("name"))
	assert.Equal(t, "", e.GetPayloadString("count"))
	assert.Equal(t, "", e.GetPayloadString("missing"))
}
