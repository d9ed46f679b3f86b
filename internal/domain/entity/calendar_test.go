package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2024, m.Year)
	assert.Equal(t, time.March, m.Month)
	assert.Equal(t, "2024-03", m.String())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), m.Start())
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), m.End())

	_, err = ParseMonth("2024-13")
	assert.Error(t, err)
	_, err = ParseMonth("March")
	assert.Error(t, err)
}

func TestMonth_DecemberRollsOver(t *testing.T) {
	m := Month{Year: 2023, Month: time.December}
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), m.End())
}

func TestMonth_ContainsAndIntersects(t *testing.T) {
	m := Month{Year: 2024, Month: time.March}

	assert.True(t, m.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, m.Contains(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, m.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, m.Contains(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))

	// week of 2024-02-26 .. 2024-03-03 overlaps March
	assert.True(t, m.Intersects(time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)))
	// week of 2024-04-01 .. 2024-04-07 does not
	assert.False(t, m.Intersects(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC)))
}

func TestMonth_JSON(t *testing.T) {
	b, err := json.Marshal(Month{Year: 2024, Month: time.March})
	require.NoError(t, err)
	assert.Equal(t, `"2024-03"`, string(b))

	var m Month
	require.NoError(t, json.Unmarshal([]byte(`"2025-11"`), &m))
	assert.Equal(t, Month{Year: 2025, Month: time.November}, m)
}

func TestWeekEndFor(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), WeekEndFor(start))
}

func TestWeekStartOf(t *testing.T) {
	tests := []struct {
		day  int
		want int
	}{
		{4, 4},  // Monday
		{6, 4},  // Wednesday
		{10, 4}, // Sunday
		{11, 11},
	}
	for _, tt := range tests {
		got := WeekStartOf(time.Date(2024, 3, tt.day, 15, 0, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2024, 3, tt.want, 0, 0, 0, 0, time.UTC), got, "day %d", tt.day)
	}
}

func TestTimeOfDay_Parse(t *testing.T) {
	v, err := TimeOfDay("09:30").Parse()
	require.NoError(t, err)
	assert.Equal(t, 9, v.Hour())
	assert.Equal(t, 30, v.Minute())

	v, err = TimeOfDay("17:00:15").Parse()
	require.NoError(t, err)
	assert.Equal(t, 15, v.Second())

	_, err = TimeOfDay("9h30").Parse()
	assert.Error(t, err)
	_, err = TimeOfDay("25:00").Parse()
	assert.Error(t, err)
}

func TestScheduleHistory_AppendDoesNotAlias(t *testing.T) {
	h := NewScheduleHistory(ScheduleEvent{Kind: ScheduleEventProposed, ActorID: "u1"})
	h2 := h.Append(ScheduleEvent{Kind: ScheduleEventApproved, ActorID: "u2"})
	h3 := h.Append(ScheduleEvent{Kind: ScheduleEventRejected, ActorID: "u3"})

	assert.Equal(t, 1, h.Len())
	require.Equal(t, 2, h2.Len())
	require.Equal(t, 2, h3.Len())
	assert.Equal(t, ScheduleEventApproved, h2.Events()[1].Kind)
	assert.Equal(t, ScheduleEventRejected, h3.Events()[1].Kind)

	events := h2.Events()
	events[0].ActorID = "mutated"
	assert.Equal(t, "u1", h2.Events()[0].ActorID)
}

func TestApprovals(t *testing.T) {
	a := PendingApprovals()
	assert.True(t, a.FullyPending())
	assert.Equal(t, ApprovalPending, a.Authoritative())

	a.Lender.Status = ApprovalApproved
	assert.False(t, a.FullyPending())
	assert.Equal(t, ApprovalApproved, a.Authoritative())
	assert.Equal(t, ApprovalPending, a.Get(SideHost).Status)

	// the host side never overrides the lender decision
	a.Host.Status = ApprovalRejected
	assert.Equal(t, ApprovalApproved, a.Authoritative())
	a = PendingApprovals()
	a.Host.Status = ApprovalApproved
	assert.Equal(t, ApprovalPending, a.Authoritative())
}

func TestSideForRole(t *testing.T) {
	side, ok := SideForRole(RoleHost)
	assert.True(t, ok)
	assert.Equal(t, SideHost, side)

	side, ok = SideForRole(RoleLender)
	assert.True(t, ok)
	assert.Equal(t, SideLender, side)

	_, ok = SideForRole(RoleStaff)
	assert.False(t, ok)
}

func TestTimeOfDay_Normalize(t *testing.T) {
	v, err := TimeOfDay("9:05").Normalize()
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay("09:05"), v)

	v, err = TimeOfDay("17:00:00").Normalize()
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay("17:00"), v)

	v, err = TimeOfDay("17:00:30").Normalize()
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay("17:00:30"), v)
}
