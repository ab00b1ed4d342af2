package schedule

import (
	"testing"
	"time"

	"patient-management/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestGenerate_EmptyDay(t *testing.T) {
	slots := Generate(nil, mustDate(t, "2024-01-01"))

	require.Len(t, slots, 16)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "09:30", slots[1].Time)
	assert.Equal(t, "16:30", slots[15].Time)
	for _, s := range slots {
		assert.True(t, s.Available, s.Time)
		assert.Nil(t, s.AppointmentID, s.Time)
	}
}

func TestGenerate_ConflictMarksOnlyThatSlot(t *testing.T) {
	day := mustDate(t, "2024-01-01")
	existing := []entity.Appointment{
		{ID: 42, AppointmentDate: day, AppointmentTime: "09:00"},
	}

	slots := Generate(existing, day)
	require.Len(t, slots, 16)

	assert.False(t, slots[0].Available)
	require.NotNil(t, slots[0].AppointmentID)
	assert.Equal(t, 42, *slots[0].AppointmentID)
	for _, s := range slots[1:] {
		assert.True(t, s.Available, s.Time)
	}
}

func TestGenerate_IgnoresOtherDatesAndOffGridTimes(t *testing.T) {
	day := mustDate(t, "2024-01-01")
	existing := []entity.Appointment{
		{ID: 1, AppointmentDate: mustDate(t, "2024-01-02"), AppointmentTime: "10:00"},
		{ID: 2, AppointmentDate: day, AppointmentTime: "10:15"},
		{ID: 3, AppointmentDate: day, AppointmentTime: "bogus"},
		{ID: 4, AppointmentDate: day, AppointmentTime: "17:00"},
	}

	for _, s := range Generate(existing, day) {
		assert.True(t, s.Available, s.Time)
	}
}

func TestGenerate_SameTimeIdReferencesThatDate(t *testing.T) {
	day := mustDate(t, "2024-03-05")
	existing := []entity.Appointment{
		{ID: 7, AppointmentDate: mustDate(t, "2024-03-04"), AppointmentTime: "11:00"},
		{ID: 8, AppointmentDate: day, AppointmentTime: "11:00"},
	}

	slots := Generate(existing, day)
	slot := slots[4]
	require.Equal(t, "11:00", slot.Time)
	require.NotNil(t, slot.AppointmentID)
	assert.Equal(t, 8, *slot.AppointmentID)
}

func TestGenerate_Options(t *testing.T) {
	day := mustDate(t, "2024-01-01")

	slots := Generate(nil, day, WithWindow(8*time.Hour, 10*time.Hour), WithWidth(15*time.Minute))
	require.Len(t, slots, 8)
	assert.Equal(t, "08:00", slots[0].Time)
	assert.Equal(t, "09:45", slots[7].Time)

	assert.Empty(t, Generate(nil, day, WithWidth(0)))
	assert.Empty(t, Generate(nil, day, WithWindow(10*time.Hour, 9*time.Hour)))
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"09:00", 9 * time.Hour, false},
		{"16:30", 16*time.Hour + 30*time.Minute, false},
		{"00:05", 5 * time.Minute, false},
		{"24:00", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, FormatClock(got))
		})
	}
}

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2024-13-01")
	assert.ErrorIs(t, err, ErrInvalidDate)

	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())
}

func TestIsSlotTime(t *testing.T) {
	assert.True(t, IsSlotTime("09:00"))
	assert.True(t, IsSlotTime("16:30"))
	assert.False(t, IsSlotTime("17:00"))
	assert.False(t, IsSlotTime("08:30"))
	assert.False(t, IsSlotTime("10:15"))
	assert.False(t, IsSlotTime("noon"))
}
