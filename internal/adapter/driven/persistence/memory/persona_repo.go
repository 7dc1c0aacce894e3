package memory

import (
	"context"
	"sync"

	"github.com/Wyydra/callsim/internal/core/domain"
)

// PersonaRepository keeps the single persona configuration for the process
// lifetime.
type PersonaRepository struct {
	mu      sync.Mutex
	persona domain.PersonaConfig
	stored  bool
}

func NewPersonaRepository() *PersonaRepository {
	return &PersonaRepository{}
}

func (r *PersonaRepository) Get(ctx context.Context) (domain.PersonaConfig, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persona, r.stored, nil
}

func (r *PersonaRepository) Save(ctx context.Context, p domain.PersonaConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persona = p
	r.stored = true
	return nil
}
