package domain

import (
	"errors"
	"strings"
)

type ContactTone string

const (
	ToneFormal   ContactTone = "Formal"
	ToneCasual   ContactTone = "Casual"
	ToneFriendly ContactTone = "Friendly"
)

func (t ContactTone) Valid() bool {
	switch t {
	case ToneFormal, ToneCasual, ToneFriendly:
		return true
	}
	return false
}

type Language string

const (
	LanguageGerman  Language = "DE"
	LanguageEnglish Language = "EN"
)

// PersonaConfig describes the simulated agent, its counterparty and tone.
// SystemPrompt is derived from the other fields unless ManualOverride is set.
type PersonaConfig struct {
	AgentName              string
	DonorName              string
	CurrentAmount          float64
	TargetAmount           float64
	DonationHistory        string
	ContactTone            ContactTone
	AdditionalInstructions string
	Language               Language
	SystemPrompt           string
	ManualOverride         bool
}

func DefaultPersona() PersonaConfig {
	p := PersonaConfig{
		AgentName:       "Sarah",
		DonorName:       "Max Mustermann",
		CurrentAmount:   20,
		TargetAmount:    35,
		DonationHistory: "2 Jahre",
		ContactTone:     ToneFriendly,
	}
	p.SystemPrompt = GenerateSystemPrompt(p)
	return p
}

func (p PersonaConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(p.AgentName) == "" {
		errs = append(errs, errors.New("agent name is required"))
	}
	if strings.TrimSpace(p.DonorName) == "" {
		errs = append(errs, errors.New("donor name is required"))
	}
	if !p.ContactTone.Valid() {
		errs = append(errs, errors.New("contact tone must be Formal, Casual or Friendly"))
	}
	if p.CurrentAmount < 0 || p.TargetAmount < 0 {
		errs = append(errs, errors.New("amounts must not be negative"))
	}
	switch p.Language {
	case "", LanguageGerman, LanguageEnglish:
	default:
		errs = append(errs, errors.New("language must be DE or EN"))
	}
	return errors.Join(errs...)
}

// ResolvePersona fills a blank system prompt from the structured fields.
func ResolvePersona(p PersonaConfig) PersonaConfig {
	if strings.TrimSpace(p.SystemPrompt) == "" {
		p.SystemPrompt = GenerateSystemPrompt(p)
	}
	return p
}

// PersonaUpdate is a partial change from the configuration editor. Nil fields
// are left untouched.
type PersonaUpdate struct {
	AgentName              *string
	DonorName              *string
	CurrentAmount          *float64
	TargetAmount           *float64
	DonationHistory        *string
	ContactTone            *ContactTone
	AdditionalInstructions *string
	Language               *Language
	SystemPrompt           *string
}

// Apply merges u into p. An explicit SystemPrompt switches the persona to
// manual override; otherwise any structured change regenerates the prompt
// unless the override is already set.
func (u PersonaUpdate) Apply(p PersonaConfig) PersonaConfig {
	changed := false
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
			changed = true
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
			changed = true
		}
	}

	setString(&p.AgentName, u.AgentName)
	setString(&p.DonorName, u.DonorName)
	setFloat(&p.CurrentAmount, u.CurrentAmount)
	setFloat(&p.TargetAmount, u.TargetAmount)
	setString(&p.DonationHistory, u.DonationHistory)
	setString(&p.AdditionalInstructions, u.AdditionalInstructions)
	if u.ContactTone != nil {
		p.ContactTone = *u.ContactTone
		changed = true
	}
	if u.Language != nil {
		p.Language = *u.Language
		changed = true
	}

	if u.SystemPrompt != nil {
		p.SystemPrompt = *u.SystemPrompt
		p.ManualOverride = true
		return p
	}
	if changed && !p.ManualOverride {
		p.SystemPrompt = GenerateSystemPrompt(p)
	}
	return p
}

// Regenerate drops a manual override and derives the prompt again.
func (p PersonaConfig) Regenerate() PersonaConfig {
	p.ManualOverride = false
	p.SystemPrompt = GenerateSystemPrompt(p)
	return p
}
