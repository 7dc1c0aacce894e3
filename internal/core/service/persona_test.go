package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Wyydra/callsim/internal/core/domain"
)

func TestPersonaService_DefaultsWhenEmpty(t *testing.T) {
	svc := NewPersonaService(&memoryPersonaRepo{})

	got, err := svc.Persona(context.Background())
	if err != nil {
		t.Fatalf("Persona: %v", err)
	}
	if got != domain.DefaultPersona() {
		t.Fatalf("got %+v, want defaults", got)
	}
}

func TestPersonaService_ResolvesStoredBlankPrompt(t *testing.T) {
	stored := domain.DefaultPersona()
	stored.DonorName = "Erika Musterfrau"
	stored.SystemPrompt = ""
	svc := NewPersonaService(&memoryPersonaRepo{stored: &stored})

	got, err := svc.Persona(context.Background())
	if err != nil {
		t.Fatalf("Persona: %v", err)
	}
	if !strings.Contains(got.SystemPrompt, "Erika Musterfrau") {
		t.Fatalf("prompt not generated:\n%s", got.SystemPrompt)
	}
}

func TestPersonaService_UpdateAndRegenerate(t *testing.T) {
	repo := &memoryPersonaRepo{}
	svc := NewPersonaService(repo)
	ctx := context.Background()

	tone := domain.ToneFormal
	got, err := svc.Update(ctx, domain.PersonaUpdate{ContactTone: &tone})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !strings.Contains(got.SystemPrompt, "förmlich") {
		t.Fatalf("prompt not regenerated for tone:\n%s", got.SystemPrompt)
	}

	custom := "Eigener Prompt"
	if _, err := svc.Update(ctx, domain.PersonaUpdate{SystemPrompt: &custom}); err != nil {
		t.Fatalf("Update prompt: %v", err)
	}
	name := "Jonas"
	got, err = svc.Update(ctx, domain.PersonaUpdate{AgentName: &name})
	if err != nil {
		t.Fatalf("Update name: %v", err)
	}
	if got.SystemPrompt != custom || !got.ManualOverride {
		t.Fatalf("override lost: %+v", got)
	}

	got, err = svc.Regenerate(ctx)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if got.ManualOverride || !strings.Contains(got.SystemPrompt, "Jonas") {
		t.Fatalf("regenerate: %+v", got)
	}

	stored, ok, _ := repo.Get(ctx)
	if !ok || stored != got {
		t.Fatalf("stored=%+v, want %+v", stored, got)
	}
}

func TestPersonaService_UpdateRejectsInvalid(t *testing.T) {
	repo := &memoryPersonaRepo{}
	svc := NewPersonaService(repo)

	empty := ""
	_, err := svc.Update(context.Background(), domain.PersonaUpdate{DonorName: &empty})
	if !errors.Is(err, domain.ErrInvalidPersona) {
		t.Fatalf("err=%v, want ErrInvalidPersona", err)
	}
	if repo.stored != nil {
		t.Fatal("invalid persona saved")
	}
}

func TestPersonaService_RepositoryError(t *testing.T) {
	svc := NewPersonaService(&memoryPersonaRepo{getErr: errStoreDown})

	if _, err := svc.Persona(context.Background()); !errors.Is(err, errStoreDown) {
		t.Fatalf("err=%v, want errStoreDown", err)
	}
}
