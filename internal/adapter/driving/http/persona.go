package http

import (
	"errors"
	"net/http"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/rs/zerolog/log"
)

type personaDTO struct {
	AgentName              string  `json:"agentName"`
	DonorName              string  `json:"donorName"`
	CurrentAmount          float64 `json:"currentAmount"`
	TargetAmount           float64 `json:"targetAmount"`
	DonationHistory        string  `json:"donationHistory"`
	ContactTone            string  `json:"contactTone"`
	AdditionalInstructions string  `json:"additionalInstructions"`
	Language               string  `json:"language,omitempty"`
	SystemPrompt           string  `json:"systemPrompt"`
	ManualOverride         bool    `json:"manualOverride"`
}

func toPersonaDTO(p domain.PersonaConfig) personaDTO {
	return personaDTO{
		AgentName:              p.AgentName,
		DonorName:              p.DonorName,
		CurrentAmount:          p.CurrentAmount,
		TargetAmount:           p.TargetAmount,
		DonationHistory:        p.DonationHistory,
		ContactTone:            string(p.ContactTone),
		AdditionalInstructions: p.AdditionalInstructions,
		Language:               string(p.Language),
		SystemPrompt:           p.SystemPrompt,
		ManualOverride:         p.ManualOverride,
	}
}

// Absent fields leave the stored value untouched.
type personaUpdateDTO struct {
	AgentName              *string  `json:"agentName"`
	DonorName              *string  `json:"donorName"`
	CurrentAmount          *float64 `json:"currentAmount"`
	TargetAmount           *float64 `json:"targetAmount"`
	DonationHistory        *string  `json:"donationHistory"`
	ContactTone            *string  `json:"contactTone"`
	AdditionalInstructions *string  `json:"additionalInstructions"`
	Language               *string  `json:"language"`
	SystemPrompt           *string  `json:"systemPrompt"`
}

func (d personaUpdateDTO) toDomain() domain.PersonaUpdate {
	u := domain.PersonaUpdate{
		AgentName:              d.AgentName,
		DonorName:              d.DonorName,
		CurrentAmount:          d.CurrentAmount,
		TargetAmount:           d.TargetAmount,
		DonationHistory:        d.DonationHistory,
		AdditionalInstructions: d.AdditionalInstructions,
		SystemPrompt:           d.SystemPrompt,
	}
	if d.ContactTone != nil {
		tone := domain.ContactTone(*d.ContactTone)
		u.ContactTone = &tone
	}
	if d.Language != nil {
		lang := domain.Language(*d.Language)
		u.Language = &lang
	}
	return u
}

func (h *Handler) GetPersona(w http.ResponseWriter, r *http.Request) {
	p, err := h.PersonaService.Persona(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load persona")
		writeError(w, http.StatusInternalServerError, "Failed to load config")
		return
	}
	writeJSON(w, http.StatusOK, toPersonaDTO(p))
}

func (h *Handler) UpdatePersona(w http.ResponseWriter, r *http.Request) {
	var req personaUpdateDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, err := h.PersonaService.Update(r.Context(), req.toDomain())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPersona) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to update persona")
		writeError(w, http.StatusInternalServerError, "Failed to update config")
		return
	}
	writeJSON(w, http.StatusOK, toPersonaDTO(p))
}

func (h *Handler) RegeneratePersona(w http.ResponseWriter, r *http.Request) {
	p, err := h.PersonaService.Regenerate(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to regenerate prompt")
		writeError(w, http.StatusInternalServerError, "Failed to regenerate prompt")
		return
	}
	writeJSON(w, http.StatusOK, toPersonaDTO(p))
}
