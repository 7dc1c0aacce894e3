package http

import (
	"encoding/json"
	"net/http"

	"github.com/Wyydra/callsim/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/callsim/internal/core/port"
	"github.com/Wyydra/callsim/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	CallService    *service.CallService
	PersonaService *service.PersonaService
	Minter         port.SessionMinter
	Hub            *ws.Hub
	StaticDir      string
}

func NewHandler(callService *service.CallService, personaService *service.PersonaService, minter port.SessionMinter, hub *ws.Hub, staticDir string) *Handler {
	return &Handler{
		CallService:    callService,
		PersonaService: personaService,
		Minter:         minter,
		Hub:            hub,
		StaticDir:      staticDir,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.CreateSession)

		r.Get("/config/get", h.GetPersona)
		r.Post("/config/update", h.UpdatePersona)
		r.Post("/config/regenerate", h.RegeneratePersona)

		r.Get("/call", h.GetCall)
		r.Post("/call/start", h.StartCall)
		r.Post("/call/answer", h.AnswerCall)
		r.Post("/call/decline", h.DeclineCall)
		r.Post("/call/end", h.EndCall)
	})

	r.Get("/ws", h.ServeWS)

	if h.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(h.StaticDir)))
	}

	return r
}

type errorDTO struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorDTO{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
