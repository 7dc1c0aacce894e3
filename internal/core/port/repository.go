package port

import (
	"context"

	"github.com/Wyydra/callsim/internal/core/domain"
)

type PersonaRepository interface {
	Get(ctx context.Context) (domain.PersonaConfig, bool, error)
	Save(ctx context.Context, p domain.PersonaConfig) error
}

// PersonaProvider hands the current persona to a starting call.
type PersonaProvider interface {
	Persona(ctx context.Context) (domain.PersonaConfig, error)
}
