package http

import (
	"errors"
	"net/http"

	"github.com/Wyydra/callsim/internal/adapter/driven/realtime/openai"
	"github.com/rs/zerolog/log"
)

type sessionRequestDTO struct {
	Voice        string `json:"voice"`
	Instructions string `json:"instructions"`
}

type clientSecretDTO struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

type sessionResponseDTO struct {
	ClientSecret clientSecretDTO `json:"client_secret"`
}

// CreateSession mints an ephemeral credential for one realtime negotiation.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cred, err := h.Minter.MintSession(r.Context(), req.Voice, req.Instructions)
	if err != nil {
		var upstream *openai.UpstreamError
		switch {
		case errors.Is(err, openai.ErrNoAPIKey):
			log.Error().Msg("Session requested but no API key is configured")
			writeError(w, http.StatusInternalServerError, "API key not configured")
		case errors.As(err, &upstream):
			log.Warn().Int("status", upstream.StatusCode).Msg("Session minting rejected upstream")
			writeError(w, upstream.StatusCode, "Failed to create session")
		default:
			log.Error().Err(err).Msg("Session minting failed")
			writeError(w, http.StatusInternalServerError, "Failed to create session")
		}
		return
	}

	resp := sessionResponseDTO{ClientSecret: clientSecretDTO{Value: cred.Value}}
	if !cred.ExpiresAt.IsZero() {
		resp.ClientSecret.ExpiresAt = cred.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}
