package schedule

import (
	"errors"
	"fmt"
	"time"

	"patient-management/internal/domain/entity"
)

// Default scheduling day: 09:00 to 17:00, half-open, in 30 minute slots.
const (
	DefaultStart = 9 * time.Hour
	DefaultEnd   = 17 * time.Hour
	DefaultWidth = 30 * time.Minute
)

const clockLayout = "15:04"

var (
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidClock = errors.New("invalid time, expected HH:MM")
)

type options struct {
	start time.Duration
	end   time.Duration
	width time.Duration
}

type Option func(*options)

// WithWindow sets the scheduling day as offsets from midnight.
func WithWindow(start, end time.Duration) Option {
	return func(o *options) {
		o.start = start
		o.end = end
	}
}

func WithWidth(width time.Duration) Option {
	return func(o *options) {
		o.width = width
	}
}

// Generate builds the slots of date from scratch. A slot is unavailable when an
// appointment on the same calendar date starts exactly at the slot time; the slot then
// carries that appointment's id. Appointments on other dates or with an unreadable
// time are ignored.
func Generate(existing []entity.Appointment, date time.Time, opts ...Option) []entity.TimeSlot {
	o := options{start: DefaultStart, end: DefaultEnd, width: DefaultWidth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.width <= 0 || o.end <= o.start {
		return []entity.TimeSlot{}
	}

	booked := make(map[time.Duration]int, len(existing))
	for i := range existing {
		appt := &existing[i]
		if !appt.OnDate(date) {
			continue
		}
		at, err := ParseClock(appt.AppointmentTime)
		if err != nil {
			continue
		}
		if _, taken := booked[at]; !taken {
			booked[at] = appt.ID
		}
	}

	slots := make([]entity.TimeSlot, 0, int((o.end-o.start)/o.width)+1)
	for at := o.start; at < o.end; at += o.width {
		slot := entity.TimeSlot{Time: FormatClock(at), Available: true}
		if id, taken := booked[at]; taken {
			slot.Available = false
			slot.AppointmentID = &id
		}
		slots = append(slots, slot)
	}
	return slots
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return date, nil
}

// ParseClock parses HH:MM into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// FormatClock renders an offset from midnight as HH:MM.
func FormatClock(d time.Duration) string {
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// IsSlotTime reports whether clock falls on a slot boundary of the default day.
func IsSlotTime(clock string, opts ...Option) bool {
	o := options{start: DefaultStart, end: DefaultEnd, width: DefaultWidth}
	for _, opt := range opts {
		opt(&o)
	}
	at, err := ParseClock(clock)
	if err != nil || o.width <= 0 {
		return false
	}
	return at >= o.start && at < o.end && (at-o.start)%o.width == 0
}
