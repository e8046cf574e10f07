package tools

import (
	"fmt"

	"github.com/wolfman30/healthylife-gp-assistant/internal/appointments"
	"github.com/wolfman30/healthylife-gp-assistant/internal/llm"
)

// Tool names understood by the dispatcher.
const (
	ToolListAvailableSlots   = "list_available_slots"
	ToolBookAppointment      = "book_appointment"
	ToolCancelAppointment    = "cancel_appointment"
	ToolListUserAppointments = "list_user_appointments"
)

// Definitions returns the four tool schemas offered to the model.
func (d *Dispatcher) Definitions() []llm.ToolDefinition {
	gpDescription := fmt.Sprintf("Name of the GP (%s)", d.directory.Choices())

	kinds := make([]string, 0, len(appointments.Kinds()))
	for _, k := range appointments.Kinds() {
		kinds = append(kinds, string(k))
	}

	return []llm.ToolDefinition{
		{
			Name: ToolListAvailableSlots,
			Description: fmt.Sprintf("Get available %d-minute appointment slots for a specific GP and date.",
				int(d.schedule.AppointmentLength.Minutes())),
			Parameters: &llm.Schema{
				Type: llm.TypeObject,
				Properties: map[string]*llm.Schema{
					"date":   {Type: llm.TypeString, Description: "Date in YYYY-MM-DD format"},
					"gpName": {Type: llm.TypeString, Description: gpDescription},
				},
				Required: []string{"date", "gpName"},
			},
		},
		{
			Name:        ToolBookAppointment,
			Description: "Book an appointment for a patient.",
			Parameters: &llm.Schema{
				Type: llm.TypeObject,
				Properties: map[string]*llm.Schema{
					"date":        {Type: llm.TypeString, Description: "Date in YYYY-MM-DD format"},
					"startTime":   {Type: llm.TypeString, Description: "Start time in HH:mm format (e.g. 08:20)"},
					"gpName":      {Type: llm.TypeString, Description: gpDescription},
					"patientName": {Type: llm.TypeString, Description: "The full name of the patient"},
					"type":        {Type: llm.TypeString, Description: "Type of appointment", Enum: kinds},
				},
				Required: []string{"date", "startTime", "gpName", "patientName", "type"},
			},
		},
		{
			Name:        ToolCancelAppointment,
			Description: "Cancel an existing appointment by its ID.",
			Parameters: &llm.Schema{
				Type: llm.TypeObject,
				Properties: map[string]*llm.Schema{
					"appointmentId": {Type: llm.TypeString, Description: "The unique ID of the appointment"},
				},
				Required: []string{"appointmentId"},
			},
		},
		{
			Name:        ToolListUserAppointments,
			Description: "List all currently booked appointments to see details or find IDs for cancellation.",
			Parameters:  &llm.Schema{Type: llm.TypeObject},
		},
	}
}
