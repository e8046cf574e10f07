package appointments

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate validates an ISO calendar date and returns it in canonical form.
func ParseDate(raw string) (string, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, raw)
	}
	return d.Format(dateLayout), nil
}

// GenerateSlots lists every slot for the practitioner on date, marking those already booked.
// It is pure: the result depends only on its arguments.
func GenerateSlots(s Schedule, date, practitionerID string, existing []Appointment) ([]Slot, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	booked := make(map[ClockTime]bool)
	for _, a := range existing {
		if a.GPID != practitionerID || a.Date != day {
			continue
		}
		start, err := ParseClock(a.StartTime)
		if err != nil {
			continue
		}
		booked[start] = true
	}

	starts := s.Starts()
	slots := make([]Slot, 0, len(starts))
	for _, t := range starts {
		slots = append(slots, Slot{Time: t.String(), Available: !booked[t]})
	}
	return slots, nil
}

// AvailableTimes keeps only the free slot times, preserving order.
func AvailableTimes(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			out = append(out, s.Time)
		}
	}
	return out
}
