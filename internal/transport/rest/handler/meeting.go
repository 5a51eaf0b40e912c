package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"meethub/internal/service"
)

// MeetingHandler handles the meeting CRUD endpoints
type MeetingHandler struct {
	meetingSvc *service.MeetingService
}

func NewMeetingHandler(meetingSvc *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{
		meetingSvc: meetingSvc,
	}
}

// Create handles POST /api/meetings: issues a fresh meeting id. The
// record itself appears when the first participant joins.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"meetingId": h.meetingSvc.NewMeetingID(),
	})
}

// Get handles GET /api/meetings/{meetingId}
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	meetingID := mux.Vars(r)["meetingId"]

	meeting, err := h.meetingSvc.GetMeeting(r.Context(), meetingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch meeting")
		return
	}
	if meeting == nil {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
