package service

import (
	"context"
	"fmt"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/Wyydra/callsim/internal/core/port"
	"github.com/rs/zerolog/log"
)

// PersonaService is the configuration collaborator: it owns the stored
// persona and its prompt regeneration rules.
type PersonaService struct {
	repo port.PersonaRepository
}

func NewPersonaService(repo port.PersonaRepository) *PersonaService {
	return &PersonaService{repo: repo}
}

// Persona returns the stored persona, falling back to the defaults, with a
// system prompt guaranteed to be present.
func (s *PersonaService) Persona(ctx context.Context) (domain.PersonaConfig, error) {
	p, ok, err := s.repo.Get(ctx)
	if err != nil {
		return domain.PersonaConfig{}, fmt.Errorf("load persona: %w", err)
	}
	if !ok {
		return domain.DefaultPersona(), nil
	}
	return domain.ResolvePersona(p), nil
}

func (s *PersonaService) Update(ctx context.Context, u domain.PersonaUpdate) (domain.PersonaConfig, error) {
	cur, err := s.Persona(ctx)
	if err != nil {
		return domain.PersonaConfig{}, err
	}

	next := u.Apply(cur)
	if err := next.Validate(); err != nil {
		return domain.PersonaConfig{}, fmt.Errorf("%w: %w", domain.ErrInvalidPersona, err)
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return domain.PersonaConfig{}, fmt.Errorf("save persona: %w", err)
	}

	log.Info().
		Str("agent", next.AgentName).
		Bool("manual_override", next.ManualOverride).
		Msg("Persona updated")
	return next, nil
}

// Regenerate drops a manual prompt override and stores the derived prompt.
func (s *PersonaService) Regenerate(ctx context.Context) (domain.PersonaConfig, error) {
	cur, err := s.Persona(ctx)
	if err != nil {
		return domain.PersonaConfig{}, err
	}

	next := cur.Regenerate()
	if err := s.repo.Save(ctx, next); err != nil {
		return domain.PersonaConfig{}, fmt.Errorf("save persona: %w", err)
	}
	return next, nil
}
