package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/healthylife-gp-assistant/internal/appointments"
	"github.com/wolfman30/healthylife-gp-assistant/internal/llm"
	"github.com/wolfman30/healthylife-gp-assistant/internal/observability/metrics"
	"github.com/wolfman30/healthylife-gp-assistant/internal/surgery"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

const (
	statusSuccess = "Success"
	statusFailed  = "Failed"

	msgBooked      = "Appointment booked successfully!"
	msgSlotTaken   = "That slot is no longer available."
	msgCancelled   = "Appointment cancelled."
	msgNotFound    = "Appointment not found."
	msgUnknownTool = "Unknown function"
	unknownGPName  = "Unknown"
)

// Outcome labels used in logs and metrics.
const (
	outcomeSuccess      = "success"
	outcomeInvalidInput = "invalid_input"
	outcomeGPNotFound   = "gp_not_found"
	outcomeGPAmbiguous  = "gp_ambiguous"
	outcomeCollision    = "collision"
	outcomeNotFound     = "not_found"
	outcomeUnknownTool  = "unknown_tool"
	outcomeError        = "error"
)

// AppointmentView is an appointment enriched with the practitioner's display name.
type AppointmentView struct {
	appointments.Appointment
	GPName string `json:"gpName"`
}

// Dispatcher executes model tool calls against the appointment store.
//
// Domain outcomes (unknown GP, malformed arguments, collisions, missing
// appointments, unknown tools) are returned as payloads carrying an "error"
// field. Only store failures are returned as Go errors.
type Dispatcher struct {
	store     appointments.Store
	directory *surgery.Directory
	schedule  appointments.Schedule
	ids       appointments.IDGenerator
	logger    *logging.Logger
	metrics   *metrics.AssistantMetrics
	strictGP  bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(gen appointments.IDGenerator) Option {
	return func(d *Dispatcher) {
		if gen != nil {
			d.ids = gen
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *metrics.AssistantMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithStrictGPResolution makes a GP name that matches several practitioners an
// error payload instead of picking the first match.
func WithStrictGPResolution(strict bool) Option {
	return func(d *Dispatcher) {
		d.strictGP = strict
	}
}

// NewDispatcher wires a dispatcher over store, directory and schedule.
func NewDispatcher(store appointments.Store, directory *surgery.Directory, schedule appointments.Schedule, opts ...Option) *Dispatcher {
	if store == nil {
		panic("tools: appointment store cannot be nil")
	}
	if directory == nil {
		directory = surgery.DefaultDirectory()
	}
	d := &Dispatcher{
		store:     store,
		directory: directory,
		schedule:  schedule,
		ids:       appointments.UUIDGenerator{},
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one tool call and returns the payload to feed back to the model.
func (d *Dispatcher) Dispatch(ctx context.Context, call llm.ToolCall) (map[string]any, error) {
	var (
		payload map[string]any
		outcome string
		err     error
	)
	switch call.Name {
	case ToolListAvailableSlots:
		payload, outcome, err = d.listAvailableSlots(ctx, call.Args)
	case ToolBookAppointment:
		payload, outcome, err = d.bookAppointment(ctx, call.Args)
	case ToolCancelAppointment:
		payload, outcome, err = d.cancelAppointment(ctx, call.Args)
	case ToolListUserAppointments:
		payload, outcome, err = d.listUserAppointments(ctx)
	default:
		payload, outcome = map[string]any{"error": msgUnknownTool}, outcomeUnknownTool
	}

	if err != nil {
		d.metrics.ObserveToolCall(call.Name, outcomeError)
		d.logger.Error("tool dispatch failed", "tool", call.Name, "call_id", call.ID, "error", err)
		return nil, err
	}

	d.metrics.ObserveToolCall(call.Name, outcome)
	d.logger.Info("tool dispatched", "tool", call.Name, "call_id", call.ID, "outcome", outcome)

	normalized, err := normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("tools: encode %s result: %w", call.Name, err)
	}
	return normalized, nil
}

// Appointments lists every stored appointment with its GP name attached.
func (d *Dispatcher) Appointments(ctx context.Context) ([]AppointmentView, error) {
	list, err := d.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("tools: list appointments: %w", err)
	}
	views := make([]AppointmentView, 0, len(list))
	for _, a := range list {
		name := unknownGPName
		if p, ok := d.directory.ByID(a.GPID); ok {
			name = p.Name
		}
		views = append(views, AppointmentView{Appointment: a, GPName: name})
	}
	return views, nil
}

func (d *Dispatcher) listAvailableSlots(ctx context.Context, args map[string]any) (map[string]any, string, error) {
	gp, failure, outcome := d.resolve(args)
	if failure != nil {
		return failure, outcome, nil
	}
	date, err := appointments.ParseDate(stringArg(args, "date"))
	if err != nil {
		return map[string]any{"error": invalidDateMessage(args)}, outcomeInvalidInput, nil
	}

	existing, err := d.store.List(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("tools: list appointments: %w", err)
	}
	slots, err := appointments.GenerateSlots(d.schedule, date, gp.ID, existing)
	if err != nil {
		return map[string]any{"error": invalidDateMessage(args)}, outcomeInvalidInput, nil
	}

	available := appointments.AvailableTimes(slots)
	message := fmt.Sprintf("Available slots for %s on %s: %s", gp.Name, date, strings.Join(available, ", "))
	if len(available) == 0 {
		message = fmt.Sprintf("There are no available slots for %s on %s.", gp.Name, date)
	}
	return map[string]any{"slots": available, "message": message}, outcomeSuccess, nil
}

func (d *Dispatcher) bookAppointment(ctx context.Context, args map[string]any) (map[string]any, string, error) {
	gp, failure, outcome := d.resolve(args)
	if failure != nil {
		return failure, outcome, nil
	}

	date, err := appointments.ParseDate(stringArg(args, "date"))
	if err != nil {
		return failed(invalidDateMessage(args)), outcomeInvalidInput, nil
	}
	start, err := appointments.ParseClock(stringArg(args, "startTime"))
	if err != nil {
		return failed(fmt.Sprintf("Invalid start time %q. Use HH:mm, for example 08:20.", stringArg(args, "startTime"))), outcomeInvalidInput, nil
	}
	if !d.schedule.IsSlotStart(start) {
		return failed(fmt.Sprintf("%s is not a bookable start time. Use list_available_slots to see valid times.", start)), outcomeInvalidInput, nil
	}
	kind, err := appointments.ParseKind(stringArg(args, "type"))
	if err != nil {
		return failed(fmt.Sprintf("Invalid appointment type %q. Use TELEPHONE or FACE_TO_FACE.", stringArg(args, "type"))), outcomeInvalidInput, nil
	}
	patient := strings.TrimSpace(stringArg(args, "patientName"))
	if patient == "" {
		return failed("The patient's full name is required."), outcomeInvalidInput, nil
	}

	existing, err := d.store.List(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("tools: list appointments: %w", err)
	}
	id, err := appointments.UniqueID(d.ids, existing)
	if err != nil {
		return nil, "", fmt.Errorf("tools: %w", err)
	}

	appt := appointments.Appointment{
		ID:          id,
		GPID:        gp.ID,
		PatientName: patient,
		Date:        date,
		StartTime:   start.String(),
		Type:        kind,
	}
	if err := d.store.Create(ctx, appt); err != nil {
		if errors.Is(err, appointments.ErrCollision) {
			return failed(msgSlotTaken), outcomeCollision, nil
		}
		return nil, "", fmt.Errorf("tools: create appointment: %w", err)
	}

	return map[string]any{
		"status":      statusSuccess,
		"message":     msgBooked,
		"appointment": AppointmentView{Appointment: appt, GPName: gp.Name},
	}, outcomeSuccess, nil
}

func (d *Dispatcher) cancelAppointment(ctx context.Context, args map[string]any) (map[string]any, string, error) {
	id := strings.TrimSpace(stringArg(args, "appointmentId"))
	if id == "" {
		return failed("An appointment ID is required."), outcomeInvalidInput, nil
	}
	if err := d.store.Cancel(ctx, id); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			return failed(msgNotFound), outcomeNotFound, nil
		}
		return nil, "", fmt.Errorf("tools: cancel appointment: %w", err)
	}
	return map[string]any{"status": statusSuccess, "message": msgCancelled}, outcomeSuccess, nil
}

func (d *Dispatcher) listUserAppointments(ctx context.Context) (map[string]any, string, error) {
	views, err := d.Appointments(ctx)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"appointments": views}, outcomeSuccess, nil
}

// resolve finds the requested GP. On failure it returns the payload and outcome to report.
func (d *Dispatcher) resolve(args map[string]any) (surgery.Practitioner, map[string]any, string) {
	name := stringArg(args, "gpName")
	if !d.strictGP {
		gp, err := d.directory.Resolve(name)
		if err != nil {
			return surgery.Practitioner{}, d.gpNotFound(), outcomeGPNotFound
		}
		return gp, nil, ""
	}

	gp, err := d.directory.ResolveStrict(name)
	switch {
	case err == nil:
		return gp, nil, ""
	case errors.Is(err, surgery.ErrAmbiguousPractitioner):
		return surgery.Practitioner{}, d.gpAmbiguous(name), outcomeGPAmbiguous
	default:
		return surgery.Practitioner{}, d.gpNotFound(), outcomeGPNotFound
	}
}

func (d *Dispatcher) gpNotFound() map[string]any {
	return map[string]any{"error": fmt.Sprintf("GP not found. Please choose between %s.", d.directory.Choices())}
}

func (d *Dispatcher) gpAmbiguous(name string) map[string]any {
	matches := d.directory.Matches(name)
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, p.Name)
	}
	return map[string]any{"error": fmt.Sprintf("%q matches more than one GP (%s). Ask which one the patient means.", name, strings.Join(names, ", "))}
}

func failed(message string) map[string]any {
	return map[string]any{"status": statusFailed, "message": message, "error": message}
}

func invalidDateMessage(args map[string]any) string {
	return fmt.Sprintf("Invalid date %q. Use YYYY-MM-DD.", stringArg(args, "date"))
}

// stringArg reads a string argument; models occasionally send numbers for free-text fields.
func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// normalize converts a payload into plain JSON values (maps, slices, strings, numbers)
// so every provider can serialize it.
func normalize(payload map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
