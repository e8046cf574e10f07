package surgery

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPractitionerNotFound is returned when no practitioner matches a name.
	ErrPractitionerNotFound = errors.New("surgery: practitioner not found")

	// ErrAmbiguousPractitioner is returned by strict resolution when several practitioners match.
	ErrAmbiguousPractitioner = errors.New("surgery: practitioner name is ambiguous")
)

// Practitioner is a GP working at the surgery.
type Practitioner struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// ShortName drops the first name: "Dr. Sarah Smith" becomes "Dr. Smith".
func (p Practitioner) ShortName() string {
	fields := strings.Fields(p.Name)
	if len(fields) < 3 {
		return p.Name
	}
	return fields[0] + " " + fields[len(fields)-1]
}

// Directory is the fixed, ordered list of practitioners.
type Directory struct {
	practitioners []Practitioner
}

// NewDirectory copies the given practitioners; list order is the canonical tie-break order.
func NewDirectory(practitioners []Practitioner) *Directory {
	list := make([]Practitioner, len(practitioners))
	copy(list, practitioners)
	return &Directory{practitioners: list}
}

// DefaultDirectory returns the three GPs of HealthyLife surgery.
func DefaultDirectory() *Directory {
	return NewDirectory([]Practitioner{
		{ID: "gp1", Name: "Dr. Sarah Smith", Specialty: "General Practice & Pediatrics"},
		{ID: "gp2", Name: "Dr. James Jones", Specialty: "Internal Medicine & Geriatrics"},
		{ID: "gp3", Name: "Dr. Emily Taylor", Specialty: "Women Health & Family Medicine"},
	})
}

// All returns the practitioners in canonical order.
func (d *Directory) All() []Practitioner {
	out := make([]Practitioner, len(d.practitioners))
	copy(out, d.practitioners)
	return out
}

// ByID looks a practitioner up by identifier.
func (d *Directory) ByID(id string) (Practitioner, bool) {
	for _, p := range d.practitioners {
		if p.ID == id {
			return p, true
		}
	}
	return Practitioner{}, false
}

// Matches returns every practitioner whose display name contains name, ignoring case.
// A blank name matches nothing.
func (d *Directory) Matches(name string) []Practitioner {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	var out []Practitioner
	for _, p := range d.practitioners {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

// Resolve returns the first match in canonical order.
func (d *Directory) Resolve(name string) (Practitioner, error) {
	matches := d.Matches(name)
	if len(matches) == 0 {
		return Practitioner{}, fmt.Errorf("%w: %q", ErrPractitionerNotFound, name)
	}
	return matches[0], nil
}

// ResolveStrict is Resolve but refuses to pick between several matches.
func (d *Directory) ResolveStrict(name string) (Practitioner, error) {
	matches := d.Matches(name)
	switch len(matches) {
	case 0:
		return Practitioner{}, fmt.Errorf("%w: %q", ErrPractitionerNotFound, name)
	case 1:
		return matches[0], nil
	}
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, p.Name)
	}
	return Practitioner{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousPractitioner, name, strings.Join(names, ", "))
}

// Choices renders the short names as an English list, e.g. "Dr. Smith, Dr. Jones, or Dr. Taylor".
func (d *Directory) Choices() string {
	names := make([]string, 0, len(d.practitioners))
	for _, p := range d.practitioners {
		names = append(names, p.ShortName())
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " or " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
}
