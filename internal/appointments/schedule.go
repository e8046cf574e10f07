package appointments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/healthylife-gp-assistant/internal/surgery"
)

// ClockTime is a time of day with minute precision, stored as minutes since midnight.
type ClockTime int

// ParseClock parses "HH:MM" (a single-digit hour is tolerated).
func ParseClock(raw string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, raw)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add moves the clock forward by d, truncated to whole minutes.
func (c ClockTime) Add(d time.Duration) ClockTime {
	return c + ClockTime(d/time.Minute)
}

// Schedule describes the daily opening window, the lunch gap and the slot cadence.
type Schedule struct {
	Open              ClockTime
	Close             ClockTime
	LunchStart        ClockTime
	LunchEnd          ClockTime
	AppointmentLength time.Duration
	NoteLength        time.Duration
}

// Interval is the distance between consecutive slot starts.
func (s Schedule) Interval() time.Duration {
	return s.AppointmentLength + s.NoteLength
}

// Validate rejects schedules that would emit no slots or loop forever.
func (s Schedule) Validate() error {
	if s.Interval() < time.Minute {
		return errors.New("appointments: slot interval must be at least one minute")
	}
	if !(s.Open <= s.LunchStart && s.LunchStart <= s.LunchEnd && s.LunchEnd <= s.Close) {
		return fmt.Errorf("appointments: schedule windows out of order (%s-%s lunch %s-%s)", s.Open, s.Close, s.LunchStart, s.LunchEnd)
	}
	return nil
}

// ScheduleFromPolicy converts the surgery policy into a Schedule.
func ScheduleFromPolicy(p surgery.Policy) (Schedule, error) {
	var s Schedule
	var err error
	if s.Open, err = ParseClock(p.Open); err != nil {
		return Schedule{}, err
	}
	if s.Close, err = ParseClock(p.Close); err != nil {
		return Schedule{}, err
	}
	if s.LunchStart, err = ParseClock(p.LunchStart); err != nil {
		return Schedule{}, err
	}
	if s.LunchEnd, err = ParseClock(p.LunchEnd); err != nil {
		return Schedule{}, err
	}
	s.AppointmentLength = time.Duration(p.AppointmentMinutes) * time.Minute
	s.NoteLength = time.Duration(p.NoteMinutes) * time.Minute
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// DefaultSchedule is the schedule derived from surgery.DefaultPolicy.
func DefaultSchedule() Schedule {
	s, err := ScheduleFromPolicy(surgery.DefaultPolicy())
	if err != nil {
		panic(err)
	}
	return s
}

// Starts enumerates every slot start: the morning window up to lunch, then the afternoon window.
// A start is emitted only if the whole interval fits before its window closes.
func (s Schedule) Starts() []ClockTime {
	step := s.Interval()
	if step < time.Minute {
		return nil
	}
	var out []ClockTime
	for _, w := range [][2]ClockTime{{s.Open, s.LunchStart}, {s.LunchEnd, s.Close}} {
		for t := w[0]; t.Add(step) <= w[1]; t = t.Add(step) {
			out = append(out, t)
		}
	}
	return out
}

// IsSlotStart reports whether c is one of the schedule's slot starts.
func (s Schedule) IsSlotStart(c ClockTime) bool {
	for _, start := range s.Starts() {
		if start == c {
			return true
		}
	}
	return false
}
