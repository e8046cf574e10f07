package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wolfman30/healthylife-gp-assistant/internal/surgery"
	"github.com/wolfman30/healthylife-gp-assistant/internal/tools"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

// AppointmentLister returns the booked appointments with GP names attached.
type AppointmentLister interface {
	Appointments(ctx context.Context) ([]tools.AppointmentView, error)
}

// SidebarHandler serves the read-only data shown next to the chat: bookings,
// practitioners and surgery rules.
type SidebarHandler struct {
	appointments AppointmentLister
	directory    *surgery.Directory
	policy       surgery.Policy
	logger       *logging.Logger
}

func NewSidebarHandler(appointments AppointmentLister, directory *surgery.Directory, policy surgery.Policy, logger *logging.Logger) *SidebarHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if directory == nil {
		directory = surgery.DefaultDirectory()
	}
	return &SidebarHandler{
		appointments: appointments,
		directory:    directory,
		policy:       policy,
		logger:       logger,
	}
}

// HealthCheck returns a simple health check response.
func (h *SidebarHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListAppointments handles GET /api/appointments.
func (h *SidebarHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	views, err := h.appointments.Appointments(r.Context())
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		http.Error(w, "Failed to load appointments", http.StatusInternalServerError)
		return
	}
	if views == nil {
		views = []tools.AppointmentView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": views})
}

// ListPractitioners handles GET /api/practitioners.
func (h *SidebarHandler) ListPractitioners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"practitioners": h.directory.All()})
}

// SurgeryInfo handles GET /api/surgery.
func (h *SidebarHandler) SurgeryInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		surgery.Policy
		SlotIntervalMinutes int `json:"slotIntervalMinutes"`
	}{h.policy, h.policy.SlotIntervalMinutes()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
