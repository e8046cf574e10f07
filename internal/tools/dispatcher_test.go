package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/healthylife-gp-assistant/internal/appointments"
	"github.com/wolfman30/healthylife-gp-assistant/internal/llm"
	"github.com/wolfman30/healthylife-gp-assistant/internal/observability/metrics"
	"github.com/wolfman30/healthylife-gp-assistant/internal/surgery"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

func sequentialIDs() appointments.IDGenerator {
	n := 0
	return appointments.IDGeneratorFunc(func() string {
		n++
		return fmt.Sprintf("appt-%d", n)
	})
}

func newTestDispatcher(t *testing.T, store appointments.Store) *Dispatcher {
	t.Helper()
	return NewDispatcher(store, surgery.DefaultDirectory(), appointments.DefaultSchedule(),
		WithIDGenerator(sequentialIDs()),
		WithLogger(logging.Discard()),
	)
}

func call(name string, args map[string]any) llm.ToolCall {
	return llm.ToolCall{ID: "call-1", Name: name, Args: args}
}

func stringList(t *testing.T, v any) []string {
	t.Helper()
	raw, ok := v.([]any)
	require.True(t, ok, "expected a JSON array, got %T", v)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		require.True(t, ok)
		out = append(out, s)
	}
	return out
}

func allSlotTimes() []string {
	var out []string
	for _, c := range appointments.DefaultSchedule().Starts() {
		out = append(out, c.String())
	}
	return out
}

func bookJaneDoe(start string) llm.ToolCall {
	return call(ToolBookAppointment, map[string]any{
		"date":        "2024-06-10",
		"startTime":   start,
		"gpName":      "Smith",
		"patientName": "Jane Doe",
		"type":        "FACE_TO_FACE",
	})
}

func TestListAvailableSlots_ResolvesSmithAndReturnsFullDay(t *testing.T) {
	d := newTestDispatcher(t, appointments.NewMemoryStore())

	payload, err := d.Dispatch(context.Background(), call(ToolListAvailableSlots, map[string]any{
		"date":   "2024-06-10",
		"gpName": "Smith",
	}))
	require.NoError(t, err)
	assert.NotContains(t, payload, "error")

	slots := stringList(t, payload["slots"])
	assert.Equal(t, allSlotTimes(), slots)
	assert.Equal(t, "08:00", slots[0])
	assert.Contains(t, payload["message"], "Dr. Sarah Smith on 2024-06-10")
}

func TestListAvailableSlots_AfterBookingOnlyThatSlotIsTaken(t *testing.T) {
	d := newTestDispatcher(t, appointments.NewMemoryStore())
	ctx := context.Background()

	booked, err := d.Dispatch(ctx, bookJaneDoe("08:00"))
	require.NoError(t, err)
	assert.Equal(t, "Success", booked["status"])

	payload, err := d.Dispatch(ctx, call(ToolListAvailableSlots, map[string]any{"date": "2024-06-10", "gpName": "Smith"}))
	require.NoError(t, err)

	want := allSlotTimes()[1:]
	assert.Equal(t, want, stringList(t, payload["slots"]))

	// Other practitioners and dates are unaffected.
	other, err := d.Dispatch(ctx, call(ToolListAvailableSlots, map[string]any{"date": "2024-06-10", "gpName": "Jones"}))
	require.NoError(t, err)
	assert.Equal(t, allSlotTimes(), stringList(t, other["slots"]))

	nextDay, err := d.Dispatch(ctx, call(ToolListAvailableSlots, map[string]any{"date": "2024-06-11", "gpName": "Smith"}))
	require.NoError(t, err)
	assert.Equal(t, allSlotTimes(), stringList(t, nextDay["slots"]))
}

func TestListAvailableSlots_Errors(t *testing.T) {
	d := newTestDispatcher(t, appointments.NewMemoryStore())
	ctx := context.Background()

	payload, err := d.Dispatch(ctx, call(ToolListAvailableSlots, map[string]any{"date": "2024-06-10", "gpName": "Dr. Who"}))
	require.NoError(t, err)
	assert.Equal(t, "GP not found. Please choose between Dr. Smith, Dr. Jones, or Dr. Taylor.", payload["error"])

	payload, err = d.Dispatch(ctx, call(ToolListAvailableSlots, map[string]any{"date": "10/06/2024", "gpName": "Smith"}))
	require.NoError(t, err)
	assert.Contains(t, payload["error"], "YYYY-MM-DD")
	assert.NotContains(t, payload, "slots")
}

func TestBookAppointment_CollisionLeavesOneRecord(t *testing.T) {
	store := appointments.NewMemoryStore()
	d := newTestDispatcher(t, store)
	ctx := context.Background()

	first, err := d.Dispatch(ctx, bookJaneDoe("08:20"))
	require.NoError(t, err)
	assert.Equal(t, "Success", first["status"])
	assert.Equal(t, "Appointment booked successfully!", first["message"])

	second, err := d.Dispatch(ctx, call(ToolBookAppointment, map[string]any{
		"date":        "2024-06-10",
		"startTime":   "08:20",
		"gpName":      "Sarah",
		"patientName": "John Roe",
		"type":        "TELEPHONE",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Failed", second["status"])
	assert.Equal(t, "That slot is no longer available.", second["message"])
	assert.Equal(t, "That slot is no longer available.", second["error"])

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Jane Doe", list[0].PatientName)
}

func TestBookAppointment_RoundTrip(t *testing.T) {
	store := appointments.NewMemoryStore()
	d := newTestDispatcher(t, store)
	ctx := context.Background()

	prior, err := d.Dispatch(ctx, bookJaneDoe("09:00"))
	require.NoError(t, err)
	priorID := prior["appointment"].(map[string]any)["id"]

	booked, err := d.Dispatch(ctx, call(ToolBookAppointment, map[string]any{
		"date":        "2024-06-10",
		"startTime":   "14:20",
		"gpName":      "taylor",
		"patientName": "Mary Major",
		"type":        "TELEPHONE",
	}))
	require.NoError(t, err)
	appt := booked["appointment"].(map[string]any)
	assert.NotEqual(t, priorID, appt["id"])
	assert.Equal(t, "Dr. Emily Taylor", appt["gpName"])

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, appointments.Appointment{
		ID:          appt["id"].(string),
		GPID:        "gp3",
		PatientName: "Mary Major",
		Date:        "2024-06-10",
		StartTime:   "14:20",
		Type:        appointments.KindTelephone,
	}, list[1])
}

func TestBookAppointment_NormalizesInput(t *testing.T) {
	store := appointments.NewMemoryStore()
	d := newTestDispatcher(t, store)

	payload, err := d.Dispatch(context.Background(), call(ToolBookAppointment, map[string]any{
		"date":        " 2024-06-10 ",
		"startTime":   "8:40",
		"gpName":      "JONES",
		"patientName": "  Jane Doe ",
		"type":        "face-to-face",
	}))
	require.NoError(t, err)
	require.Equal(t, "Success", payload["status"])

	list, _ := store.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, "08:40", list[0].StartTime)
	assert.Equal(t, "2024-06-10", list[0].Date)
	assert.Equal(t, "Jane Doe", list[0].PatientName)
	assert.Equal(t, appointments.KindFaceToFace, list[0].Type)
	assert.Equal(t, "gp2", list[0].GPID)
}

func TestBookAppointment_RejectsInvalidInput(t *testing.T) {
	base := map[string]any{
		"date":        "2024-06-10",
		"startTime":   "08:00",
		"gpName":      "Smith",
		"patientName": "Jane Doe",
		"type":        "TELEPHONE",
	}
	cases := map[string]struct {
		key, value string
		wantError  string
	}{
		"bad date":    {"date", "2024-13-40", "Invalid date"},
		"bad time":    {"startTime", "noon", "Invalid start time"},
		"off grid":    {"startTime", "08:10", "not a bookable start time"},
		"lunch":       {"startTime", "13:00", "not a bookable start time"},
		"after close": {"startTime", "17:00", "not a bookable start time"},
		"bad type":    {"type", "VIDEO", "Invalid appointment type"},
		"blank name":  {"patientName", "   ", "full name is required"},
		"unknown gp":  {"gpName", "Dr. House", "GP not found"},
		"blank gp":    {"gpName", "", "GP not found"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := appointments.NewMemoryStore()
			d := newTestDispatcher(t, store)

			args := make(map[string]any, len(base))
			for k, v := range base {
				args[k] = v
			}
			args[tc.key] = tc.value

			payload, err := d.Dispatch(context.Background(), call(ToolBookAppointment, args))
			require.NoError(t, err)
			assert.Contains(t, payload["error"], tc.wantError)
			assert.NotEqual(t, "Success", payload["status"])

			list, _ := store.List(context.Background())
			assert.Empty(t, list)
		})
	}
}

func TestCancelAppointment(t *testing.T) {
	store := appointments.NewMemoryStore()
	d := newTestDispatcher(t, store)
	ctx := context.Background()

	missing, err := d.Dispatch(ctx, call(ToolCancelAppointment, map[string]any{"appointmentId": "made-up"}))
	require.NoError(t, err)
	assert.Equal(t, "Failed", missing["status"])
	assert.Equal(t, "Appointment not found.", missing["message"])
	list, _ := store.List(ctx)
	assert.Empty(t, list)

	booked, err := d.Dispatch(ctx, bookJaneDoe("10:00"))
	require.NoError(t, err)
	id := booked["appointment"].(map[string]any)["id"]

	cancelled, err := d.Dispatch(ctx, call(ToolCancelAppointment, map[string]any{"appointmentId": id}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "Success", "message": "Appointment cancelled."}, cancelled)
	list, _ = store.List(ctx)
	assert.Empty(t, list)

	blank, err := d.Dispatch(ctx, call(ToolCancelAppointment, nil))
	require.NoError(t, err)
	assert.Equal(t, "Failed", blank["status"])
}

func TestListUserAppointments_AddsGPNames(t *testing.T) {
	store := appointments.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, appointments.Appointment{
		ID: "a1", GPID: "gp1", PatientName: "Jane Doe", Date: "2024-06-10", StartTime: "08:00", Type: appointments.KindFaceToFace,
	}))
	require.NoError(t, store.Create(ctx, appointments.Appointment{
		ID: "a2", GPID: "gp9", PatientName: "John Roe", Date: "2024-06-10", StartTime: "08:00", Type: appointments.KindTelephone,
	}))
	d := newTestDispatcher(t, store)

	payload, err := d.Dispatch(ctx, call(ToolListUserAppointments, map[string]any{}))
	require.NoError(t, err)

	items := payload["appointments"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "a1", first["id"])
	assert.Equal(t, "gp1", first["gpId"])
	assert.Equal(t, "FACE_TO_FACE", first["type"])
	assert.Equal(t, "Dr. Sarah Smith", first["gpName"])
	assert.Equal(t, "Unknown", items[1].(map[string]any)["gpName"])
}

func TestListUserAppointments_EmptyStoreIsEmptyArray(t *testing.T) {
	d := newTestDispatcher(t, appointments.NewMemoryStore())
	payload, err := d.Dispatch(context.Background(), call(ToolListUserAppointments, nil))
	require.NoError(t, err)
	assert.Equal(t, []any{}, payload["appointments"])
}

func TestUnknownFunction(t *testing.T) {
	d := newTestDispatcher(t, appointments.NewMemoryStore())
	payload, err := d.Dispatch(context.Background(), call("reschedule_appointment", nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"error": "Unknown function"}, payload)
}

type brokenStore struct{ err error }

func (s brokenStore) List(ctx context.Context) ([]appointments.Appointment, error) {
	return nil, s.err
}

func (s brokenStore) Create(ctx context.Context, a appointments.Appointment) error {
	return s.err
}

func (s brokenStore) Cancel(ctx context.Context, id string) error {
	return s.err
}

func TestDispatch_StoreFailureIsAnError(t *testing.T) {
	boom := errors.New("redis: connection refused")
	d := newTestDispatcher(t, brokenStore{err: boom})
	ctx := context.Background()

	for _, c := range []llm.ToolCall{
		call(ToolListAvailableSlots, map[string]any{"date": "2024-06-10", "gpName": "Smith"}),
		bookJaneDoe("08:00"),
		call(ToolCancelAppointment, map[string]any{"appointmentId": "a1"}),
		call(ToolListUserAppointments, nil),
	} {
		payload, err := d.Dispatch(ctx, c)
		assert.Nil(t, payload, c.Name)
		assert.True(t, errors.Is(err, boom), c.Name)
	}
}

func TestDispatch_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAssistantMetrics(reg)
	d := NewDispatcher(appointments.NewMemoryStore(), nil, appointments.DefaultSchedule(), WithMetrics(m), WithLogger(logging.Discard()))
	ctx := context.Background()

	_, _ = d.Dispatch(ctx, bookJaneDoe("08:00"))
	_, _ = d.Dispatch(ctx, bookJaneDoe("08:00"))
	_, _ = d.Dispatch(ctx, call("nope", nil))

	// Three distinct (tool, outcome) series.
	count, err := testutil.GatherAndCount(reg, "healthylife_assistant_tool_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDefinitions(t *testing.T) {
	d := newTestDispatcher(t, appointments.NewMemoryStore())
	defs := d.Definitions()
	require.Len(t, defs, 4)

	byName := map[string]llm.ToolDefinition{}
	for _, def := range defs {
		byName[def.Name] = def
	}

	book := byName[ToolBookAppointment]
	assert.ElementsMatch(t, []string{"date", "startTime", "gpName", "patientName", "type"}, book.Parameters.Required)
	assert.Equal(t, []string{"TELEPHONE", "FACE_TO_FACE"}, book.Parameters.Properties["type"].Enum)
	assert.Contains(t, book.Parameters.Properties["gpName"].Description, "Dr. Smith, Dr. Jones, or Dr. Taylor")

	assert.Equal(t, []string{"date", "gpName"}, byName[ToolListAvailableSlots].Parameters.Required)
	assert.Equal(t, []string{"appointmentId"}, byName[ToolCancelAppointment].Parameters.Required)
	assert.Empty(t, byName[ToolListUserAppointments].Parameters.Required)
	assert.Contains(t, byName[ToolListAvailableSlots].Description, "15-minute")
}

func TestStrictGPResolution_ReportsAmbiguousNames(t *testing.T) {
	store := appointments.NewMemoryStore()
	d := NewDispatcher(store, surgery.DefaultDirectory(), appointments.DefaultSchedule(),
		WithIDGenerator(sequentialIDs()),
		WithLogger(logging.Discard()),
		WithStrictGPResolution(true),
	)
	ctx := context.Background()

	payload, err := d.Dispatch(ctx, call(ToolListAvailableSlots, map[string]any{"date": "2024-06-10", "gpName": "Dr."}))
	require.NoError(t, err)
	assert.NotContains(t, payload, "slots")
	assert.Contains(t, payload["error"], "Dr. Sarah Smith")
	assert.Contains(t, payload["error"], "Dr. Emily Taylor")

	booked, err := d.Dispatch(ctx, call(ToolBookAppointment, map[string]any{
		"date": "2024-06-10", "startTime": "08:00", "gpName": "Dr.", "patientName": "Jane Doe", "type": "TELEPHONE",
	}))
	require.NoError(t, err)
	assert.Contains(t, booked["error"], "more than one GP")
	list, _ := store.List(ctx)
	assert.Empty(t, list)

	missing, err := d.Dispatch(ctx, call(ToolListAvailableSlots, map[string]any{"date": "2024-06-10", "gpName": "House"}))
	require.NoError(t, err)
	assert.Contains(t, missing["error"], "GP not found")

	unique, err := d.Dispatch(ctx, bookJaneDoe("08:00"))
	require.NoError(t, err)
	assert.Equal(t, "Success", unique["status"])
}

func TestLenientGPResolution_PicksFirstMatch(t *testing.T) {
	d := newTestDispatcher(t, appointments.NewMemoryStore())

	payload, err := d.Dispatch(context.Background(), call(ToolListAvailableSlots, map[string]any{"date": "2024-06-10", "gpName": "Dr."}))
	require.NoError(t, err)
	assert.NotContains(t, payload, "error")
	assert.Contains(t, payload["message"], "Dr. Sarah Smith")
}
