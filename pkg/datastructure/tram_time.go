package datastructure

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// TramTime minutes after the start of the service day. values >= 24:00 are next day.
type TramTime int32

func NewTramTime(hour, minute int) TramTime {
	return TramTime(hour*minutesPerHour + minute)
}

func NextDayTramTime(hour, minute int) TramTime {
	return NewTramTime(hour, minute) + minutesPerDay
}

// ParseTramTime parses HH:MM, hours may exceed 23 for next day times.
func ParseTramTime(s string) (TramTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, errors.Newf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid minute in %q", s)
	}
	if hour < 0 || hour >= 48 || minute < 0 || minute >= minutesPerHour {
		return 0, errors.Newf("time %q out of range", s)
	}
	return NewTramTime(hour, minute), nil
}

func (t TramTime) Hour() int {
	return int(t) / minutesPerHour
}

func (t TramTime) Minute() int {
	return int(t) % minutesPerHour
}

func (t TramTime) IsNextDay() bool {
	return int(t) >= minutesPerDay
}

func (t TramTime) Plus(d time.Duration) TramTime {
	return t + TramTime(d/time.Minute)
}

// Between duration from t to other, negative when other is earlier.
func (t TramTime) Between(other TramTime) time.Duration {
	return time.Duration(other-t) * time.Minute
}

func (t TramTime) IsBefore(other TramTime) bool {
	return t < other
}

func (t TramTime) IsAfter(other TramTime) bool {
	return t > other
}

func (t TramTime) String() string {
	if t.IsNextDay() {
		next := t - minutesPerDay
		return fmt.Sprintf("%02d:%02d+24", next.Hour(), next.Minute())
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TramTime) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())), nil
}

func (t *TramTime) UnmarshalText(text []byte) error {
	parsed, err := ParseTramTime(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DateRange inclusive on both ends. the zero value means unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDate(start), End: TruncateDate(end)}
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) Contains(date time.Time) bool {
	date = TruncateDate(date)
	if !r.Start.IsZero() && date.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && date.After(r.End) {
		return false
	}
	return true
}

func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
