package surgery

// Policy is the static surgery information shared by the system instruction and the sidebar.
type Policy struct {
	Name               string   `json:"name"`
	OpeningDays        string   `json:"openingDays"`
	Open               string   `json:"open"`
	Close              string   `json:"close"`
	LunchStart         string   `json:"lunchStart"`
	LunchEnd           string   `json:"lunchEnd"`
	AppointmentMinutes int      `json:"appointmentMinutes"`
	NoteMinutes        int      `json:"noteMinutes"`
	Dos                []string `json:"dos"`
	Donts              []string `json:"donts"`
	Expectations       string   `json:"expectations"`
	Greeting           string   `json:"greeting"`
	FailureApology     string   `json:"-"`
	EmptyReplyFallback string   `json:"-"`
}

// SlotIntervalMinutes is the gap between consecutive appointment start times.
func (p Policy) SlotIntervalMinutes() int {
	return p.AppointmentMinutes + p.NoteMinutes
}

// DefaultPolicy returns the HealthyLife GP surgery policy.
func DefaultPolicy() Policy {
	return Policy{
		Name:               "HealthyLife GP Surgery",
		OpeningDays:        "Mon-Fri",
		Open:               "08:00",
		Close:              "17:00",
		LunchStart:         "13:00",
		LunchEnd:           "14:00",
		AppointmentMinutes: 15,
		NoteMinutes:        5,
		Dos: []string{
			"Arrive 5 minutes before your face-to-face appointment.",
			"Be ready to answer your phone 5 minutes before a telephone consultation.",
			"Have a list of your current medications ready.",
			"Provide at least 24 hours notice for cancellations.",
		},
		Donts: []string{
			"Do not bring multiple people to the surgery unless necessary.",
			"Do not ignore the phone for telephone appointments (they may show as private numbers).",
			"Do not book multiple slots for the same person on the same day without authorization.",
		},
		Expectations: "Upon arrival, check in at the reception or use the self-service kiosk. " +
			"For telephone appointments, the doctor will call you as close to your time as possible, " +
			"though medical emergencies may cause slight delays.",
		Greeting: "Hello! I'm the HealthyLife GP Surgery Assistant. How can I help you today? " +
			"You can book an appointment, check availability, or ask about our surgery policies.",
		FailureApology:     "I'm sorry, I encountered an error. Please try again or call the surgery directly.",
		EmptyReplyFallback: "I've processed your request.",
	}
}
