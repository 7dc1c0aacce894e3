package domain

import (
	"strings"
	"testing"
)

func TestGenerateSystemPrompt_DefaultPersonaMentionsParties(t *testing.T) {
	p := PersonaConfig{
		AgentName:       "Sarah",
		DonorName:       "Max Mustermann",
		CurrentAmount:   20,
		TargetAmount:    35,
		DonationHistory: "2 Jahre",
		ContactTone:     ToneFriendly,
	}

	got := GenerateSystemPrompt(p)
	for _, want := range []string{"Sarah", "Max Mustermann", "20", "35", "2 Jahre"} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "{") {
		t.Fatalf("prompt has unreplaced placeholder:\n%s", got)
	}
}

func TestGenerateSystemPrompt_Deterministic(t *testing.T) {
	p := DefaultPersona()
	p.AdditionalInstructions = "Erwähne das Sommerfest."

	first := GenerateSystemPrompt(p)
	for i := 0; i < 10; i++ {
		if got := GenerateSystemPrompt(p); got != first {
			t.Fatalf("run %d differs:\n%s\n---\n%s", i, got, first)
		}
	}
}

func TestGenerateSystemPrompt_IgnoresPromptFields(t *testing.T) {
	p := DefaultPersona()
	q := p
	q.SystemPrompt = "hand edited"
	q.ManualOverride = true

	if GenerateSystemPrompt(p) != GenerateSystemPrompt(q) {
		t.Fatal("prompt depends on SystemPrompt/ManualOverride")
	}
}

func TestGenerateSystemPrompt_LanguageSelectsDisjointTemplates(t *testing.T) {
	base := DefaultPersona()

	absent := GenerateSystemPrompt(base)
	base.Language = LanguageGerman
	german := GenerateSystemPrompt(base)
	base.Language = LanguageEnglish
	english := GenerateSystemPrompt(base)

	if absent != german {
		t.Fatal("absent language must select the German template")
	}
	if english == german {
		t.Fatal("EN and DE rendered identically")
	}

	germanLines := strings.Split(german, "\n")
	for _, line := range germanLines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(english, line) {
			t.Fatalf("line shared between templates: %q", line)
		}
	}
	if !strings.Contains(english, "Speak English only.") {
		t.Fatalf("english prompt missing language rule:\n%s", english)
	}
	if !strings.Contains(german, "Sprich ausschließlich Deutsch.") {
		t.Fatalf("german prompt missing language rule:\n%s", german)
	}
}

func TestGenerateSystemPrompt_ToneAndAdditional(t *testing.T) {
	tests := []struct {
		name string
		tone ContactTone
		want string
	}{
		{name: "formal", tone: ToneFormal, want: "förmlich"},
		{name: "casual", tone: ToneCasual, want: "duzen"},
		{name: "friendly", tone: ToneFriendly, want: "herzlich und freundlich"},
		{name: "unknown falls back to friendly", tone: ContactTone("Grumpy"), want: "herzlich und freundlich"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPersona()
			p.ContactTone = tt.tone
			if got := GenerateSystemPrompt(p); !strings.Contains(got, tt.want) {
				t.Fatalf("prompt missing %q:\n%s", tt.want, got)
			}
		})
	}

	p := DefaultPersona()
	if strings.Contains(GenerateSystemPrompt(p), "Zusätzliche Anweisungen") {
		t.Fatal("blank additional instructions rendered")
	}
	p.AdditionalInstructions = "  Nenne das Projekt Wasserwacht.  "
	if got := GenerateSystemPrompt(p); !strings.Contains(got, "Zusätzliche Anweisungen: Nenne das Projekt Wasserwacht.") {
		t.Fatalf("additional instructions missing:\n%s", got)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := formatAmount(20); got != "20" {
		t.Fatalf("formatAmount(20)=%q", got)
	}
	if got := formatAmount(12.5); got != "12.5" {
		t.Fatalf("formatAmount(12.5)=%q", got)
	}
}
