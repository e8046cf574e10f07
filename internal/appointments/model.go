package appointments

import (
	"fmt"
	"strings"
)

// Kind is how the consultation takes place.
type Kind string

const (
	KindTelephone  Kind = "TELEPHONE"
	KindFaceToFace Kind = "FACE_TO_FACE"
)

// Kinds lists every appointment kind in display order.
func Kinds() []Kind {
	return []Kind{KindTelephone, KindFaceToFace}
}

// ParseKind accepts the canonical names plus loose spellings such as "face-to-face" or "Telephone".
func ParseKind(raw string) (Kind, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch Kind(normalized) {
	case KindTelephone, "PHONE":
		return KindTelephone, nil
	case KindFaceToFace, "IN_PERSON":
		return KindFaceToFace, nil
	}
	return "", fmt.Errorf("%w: unknown appointment type %q", ErrInvalidInput, raw)
}

// Appointment is a booked consultation. Records are immutable once stored.
type Appointment struct {
	ID          string `json:"id"`
	GPID        string `json:"gpId"`
	PatientName string `json:"patientName"`
	Date        string `json:"date"`      // YYYY-MM-DD
	StartTime   string `json:"startTime"` // HH:MM
	Type        Kind   `json:"type"`
}

// SameSlot reports whether two appointments occupy the same practitioner, date and start time.
func (a Appointment) SameSlot(other Appointment) bool {
	return a.GPID == other.GPID && a.Date == other.Date && a.StartTime == other.StartTime
}

// Slot is a candidate start time on a given day, computed on demand.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

func hasSlotClash(existing []Appointment, appt Appointment) bool {
	for _, a := range existing {
		if a.SameSlot(appt) {
			return true
		}
	}
	return false
}

func withoutID(existing []Appointment, id string) ([]Appointment, bool) {
	out := make([]Appointment, 0, len(existing))
	for _, a := range existing {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out, len(out) != len(existing)
}
