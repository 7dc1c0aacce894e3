package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Wyydra/callsim/internal/core/domain"
)

var ErrNoAPIKey = errors.New("realtime API key not configured")

type transcriptionDTO struct {
	Model string `json:"model"`
}

type turnDetectionDTO struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

type sessionRequestDTO struct {
	Model                   string           `json:"model"`
	Voice                   string           `json:"voice"`
	Instructions            string           `json:"instructions"`
	Modalities              []string         `json:"modalities"`
	InputAudioTranscription transcriptionDTO `json:"input_audio_transcription"`
	TurnDetection           turnDetectionDTO `json:"turn_detection"`
}

type MinterConfig struct {
	APIKey          string
	SessionsURL     string
	Model           string
	Voice           string
	TranscribeModel string
	HTTPClient      *http.Client
}

// SessionMinter creates realtime sessions with the server API key and hands
// back the session's ephemeral client secret.
type SessionMinter struct {
	apiKey          string
	url             string
	model           string
	voice           string
	transcribeModel string
	http            *http.Client
}

func NewSessionMinter(cfg MinterConfig) *SessionMinter {
	m := &SessionMinter{
		apiKey:          cfg.APIKey,
		url:             cfg.SessionsURL,
		model:           cfg.Model,
		voice:           cfg.Voice,
		transcribeModel: cfg.TranscribeModel,
		http:            defaultHTTPClient(cfg.HTTPClient),
	}
	if m.url == "" {
		m.url = DefaultSessionsURL
	}
	if m.model == "" {
		m.model = DefaultModel
	}
	if m.voice == "" {
		m.voice = DefaultVoice
	}
	if m.transcribeModel == "" {
		m.transcribeModel = DefaultTranscribeModel
	}
	return m
}

func (m *SessionMinter) MintSession(ctx context.Context, voice, instructions string) (domain.Credential, error) {
	if m.apiKey == "" {
		return domain.Credential{}, ErrNoAPIKey
	}
	if voice == "" {
		voice = m.voice
	}

	body, err := json.Marshal(sessionRequestDTO{
		Model:                   m.model,
		Voice:                   voice,
		Instructions:            instructions,
		Modalities:              []string{"audio", "text"},
		InputAudioTranscription: transcriptionDTO{Model: m.transcribeModel},
		TurnDetection: turnDetectionDTO{
			Type:              "server_vad",
			Threshold:         0.6,
			PrefixPaddingMS:   400,
			SilenceDurationMS: 1200,
		},
	})
	if err != nil {
		return domain.Credential{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return domain.Credential{}, err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("create realtime session: %w", err)
	}
	defer resp.Body.Close()

	if !success(resp) {
		return domain.Credential{}, newUpstreamError(resp)
	}
	return decodeCredential(resp.Body)
}
