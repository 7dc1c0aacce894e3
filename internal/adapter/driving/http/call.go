package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/rs/zerolog/log"
)

type callSnapshotDTO struct {
	SessionID     string `json:"sessionId,omitempty"`
	State         string `json:"state"`
	Error         string `json:"error,omitempty"`
	AgentSpeaking bool   `json:"agentSpeaking"`
}

func toCallSnapshotDTO(s domain.CallSnapshot) callSnapshotDTO {
	dto := callSnapshotDTO{
		State:         string(s.State),
		Error:         s.Error,
		AgentSpeaking: s.AgentSpeaking,
	}
	if !s.SessionID.IsZero() {
		dto.SessionID = s.SessionID.String()
	}
	return dto
}

func (h *Handler) GetCall(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCallSnapshotDTO(h.CallService.Snapshot()))
}

func (h *Handler) StartCall(w http.ResponseWriter, r *http.Request) {
	h.callAction(w, r, http.StatusOK, h.CallService.Start)
}

// AnswerCall accepts the call and negotiates in the background; progress is
// pushed over /ws.
func (h *Handler) AnswerCall(w http.ResponseWriter, r *http.Request) {
	h.callAction(w, r, http.StatusAccepted, h.CallService.AnswerAsync)
}

func (h *Handler) DeclineCall(w http.ResponseWriter, r *http.Request) {
	h.callAction(w, r, http.StatusOK, h.CallService.Decline)
}

func (h *Handler) EndCall(w http.ResponseWriter, r *http.Request) {
	h.callAction(w, r, http.StatusOK, h.CallService.End)
}

func (h *Handler) callAction(w http.ResponseWriter, r *http.Request, status int, action func(context.Context) error) {
	if err := action(r.Context()); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Call action failed")
		writeError(w, http.StatusInternalServerError, "Call action failed")
		return
	}
	writeJSON(w, status, toCallSnapshotDTO(h.CallService.Snapshot()))
}
