package agent

import "github.com/wolfman30/calendar-booking-agent/internal/calendar"

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatResponse is returned for every processed message.
type ChatResponse struct {
	Response       string          `json:"response"`
	AvailableSlots []calendar.Slot `json:"available_slots"`
	SessionID      string          `json:"session_id"`
	Intent         Intent          `json:"intent"`
	ExtractedInfo  ExtractedInfo   `json:"extracted_info"`
}

// ConfirmRequest is the POST /confirm-booking body.
type ConfirmRequest struct {
	SessionID string   `json:"session_id"`
	SlotIndex *int     `json:"slot_index"`
	Attendees []string `json:"attendees,omitempty"`
}
