package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/healthylife-gp-assistant/internal/appointments"
	"github.com/wolfman30/healthylife-gp-assistant/internal/surgery"
)

// BuildSystemPrompt renders the assistant's standing instruction from the surgery
// policy, its practitioners and the slot schedule.
func BuildSystemPrompt(policy surgery.Policy, directory *surgery.Directory, schedule appointments.Schedule) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the AI Medical Assistant for %s.\n\n", policy.Name)

	b.WriteString("General Info:\n")
	practitioners := directory.All()
	names := make([]string, 0, len(practitioners))
	for _, p := range practitioners {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.Specialty))
	}
	fmt.Fprintf(&b, "- We have %d GPs: %s.\n", len(practitioners), strings.Join(names, ", "))
	fmt.Fprintf(&b, "- Hours: %s, %s to %s.\n", policy.OpeningDays, schedule.Open, schedule.Close)
	fmt.Fprintf(&b, "- Lunch Break: %s to %s (No appointments).\n", schedule.LunchStart, schedule.LunchEnd)
	fmt.Fprintf(&b, "- Intervals: %d-minute appointments with a %d-minute note-taking gap (a new start time every %d minutes).\n",
		int(schedule.AppointmentLength.Minutes()), int(schedule.NoteLength.Minutes()), int(schedule.Interval().Minutes()))

	kinds := make([]string, 0, len(appointments.Kinds()))
	for _, k := range appointments.Kinds() {
		kinds = append(kinds, string(k))
	}
	fmt.Fprintf(&b, "- Appointments can be %s.\n", strings.Join(kinds, " or "))
	b.WriteString("- Dates are YYYY-MM-DD and times are HH:mm (24-hour).\n\n")

	b.WriteString("Surgery Rules:\n")
	fmt.Fprintf(&b, "- Dos: %s\n", strings.Join(policy.Dos, ", "))
	fmt.Fprintf(&b, "- Don'ts: %s\n", strings.Join(policy.Donts, ", "))
	fmt.Fprintf(&b, "- On the day: %s\n\n", policy.Expectations)

	b.WriteString(`Process:
1. If the user wants to book, first ask for the GP preference and date.
2. Use list_available_slots to show them what is free.
3. Once they pick a time, ask for their full name and appointment type (Telephone or Face-to-Face).
4. Confirm booking using book_appointment.
5. If they want to cancel, use list_user_appointments to show them what they have, then call cancel_appointment with the ID.

`)
	b.WriteString("Always be empathetic, polite, and professional. If they ask about medical advice, " +
		"politely remind them you are an administrative assistant and they should speak with a GP.")

	return b.String()
}
