package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/calendar-booking-agent/internal/audit"
	"github.com/wolfman30/calendar-booking-agent/internal/bookings"
	"github.com/wolfman30/calendar-booking-agent/internal/calendar"
	"github.com/wolfman30/calendar-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/calendar-booking-agent/internal/session"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// Service is the dialogue surface used by the HTTP and websocket handlers.
type Service interface {
	ProcessMessage(ctx context.Context, sessionID, message string) (*ChatResponse, error)
	ConfirmBooking(ctx context.Context, sessionID string, slotIndex int, attendees []string) (calendar.BookingResult, error)
	Session(ctx context.Context, sessionID string) (*session.Session, error)
}

// Handler wires HTTP requests to the orchestrator.
type Handler struct {
	service Service
	logger  *logging.Logger
	now     func() time.Time
}

// NewHandler creates an agent handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger, now: time.Now}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.ProcessMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.logger.Error("failed to process message", "error", err, "session_id", req.SessionID)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// ConfirmBooking handles POST /confirm-booking.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SlotIndex == nil {
		h.logger.Error("failed to decode confirm request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.ConfirmBooking(r.Context(), req.SessionID, *req.SlotIndex, req.Attendees)
	if err != nil {
		h.logger.Error("failed to confirm booking", "error", err, "session_id", req.SessionID)
		http.Error(w, "Failed to confirm booking", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}, h.logger)
}

// BookingInvite handles GET /sessions/{sessionID}/booking.ics.
func (h *Handler) BookingInvite(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.service.Session(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) || (err == nil && sess.LastBooking == nil) {
		http.Error(w, "No booking for session", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	meetingType := ""
	if sess.LastExtracted != nil {
		meetingType = sess.LastExtracted.Type
	}
	invite, err := calendar.EncodeICS(sess.LastBooking, eventDescription(meetingType), h.now())
	if err != nil {
		h.logger.Error("failed to encode invite", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to build invite", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="booking.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(invite)
}

// BookingLister reads the booking ledger.
type BookingLister interface {
	ListRecent(ctx context.Context, limit int) ([]bookings.Record, error)
}

// AuditQuerier reads the audit trail.
type AuditQuerier interface {
	QueryEvents(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

// AdminHandler exposes operator read endpoints under /admin.
type AdminHandler struct {
	service  Service
	bookings BookingLister
	audit    AuditQuerier
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

func NewAdminHandler(service Service, bookingLister BookingLister, auditQuerier AuditQuerier, gatherer prometheus.Gatherer, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{service: service, bookings: bookingLister, audit: auditQuerier, gatherer: gatherer, logger: logger}
}

// GetSession handles GET /admin/sessions/{sessionID}.
func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.service.Session(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sess, h.logger)
}

// ListBookings handles GET /admin/bookings?limit=N.
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	if h.bookings == nil {
		writeJSON(w, http.StatusOK, map[string]any{"bookings": []bookings.Record{}}, h.logger)
		return
	}
	records, err := h.bookings.ListRecent(r.Context(), queryLimit(r))
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		http.Error(w, "Failed to list bookings", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []bookings.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": records}, h.logger)
}

// ListAudit handles GET /admin/audit?session_id=&limit=.
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	events := []audit.Event{}
	if h.audit != nil {
		found, err := h.audit.QueryEvents(r.Context(), audit.Filter{
			SessionID: r.URL.Query().Get("session_id"),
			EventType: audit.EventType(r.URL.Query().Get("event_type")),
			Limit:     queryLimit(r),
		})
		if err != nil {
			h.logger.Error("failed to query audit events", "error", err)
			http.Error(w, "Failed to query audit events", http.StatusInternalServerError)
			return
		}
		events = append(events, found...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events}, h.logger)
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.TakeSnapshot(h.gatherer), h.logger)
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *logging.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to write JSON response", "error", err)
	}
}
