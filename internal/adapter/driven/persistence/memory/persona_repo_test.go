package memory

import (
	"context"
	"testing"

	"github.com/Wyydra/callsim/internal/core/domain"
)

func TestPersonaRepository_SaveGet(t *testing.T) {
	repo := NewPersonaRepository()
	ctx := context.Background()

	if _, ok, err := repo.Get(ctx); err != nil || ok {
		t.Fatalf("empty repo: ok=%v err=%v", ok, err)
	}

	p := domain.DefaultPersona()
	p.AgentName = "Lena"
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := repo.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got != p {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}
