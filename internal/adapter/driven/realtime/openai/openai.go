// Package openai talks to the hosted realtime voice service: it mints
// ephemeral session credentials and exchanges session descriptions.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Wyydra/callsim/internal/core/domain"
)

const (
	DefaultSessionsURL     = "https://api.openai.com/v1/realtime/sessions"
	DefaultRealtimeURL     = "https://api.openai.com/v1/realtime"
	DefaultModel           = "gpt-4o-realtime-preview"
	DefaultVoice           = "coral"
	DefaultTranscribeModel = "gpt-4o-mini-transcribe"

	maxResponseBytes = 1 << 20
)

type clientSecretDTO struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

type sessionResponseDTO struct {
	ClientSecret *clientSecretDTO `json:"client_secret"`
}

// UpstreamError is a non-success response from a service endpoint.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned %s", e.Status)
	}
	return fmt.Sprintf("upstream returned %s: %s", e.Status, e.Body)
}

func newUpstreamError(resp *http.Response) *UpstreamError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &UpstreamError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func success(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func decodeCredential(r io.Reader) (domain.Credential, error) {
	var dto sessionResponseDTO
	if err := json.NewDecoder(io.LimitReader(r, maxResponseBytes)).Decode(&dto); err != nil {
		return domain.Credential{}, fmt.Errorf("decode session response: %w", err)
	}
	if dto.ClientSecret == nil || dto.ClientSecret.Value == "" {
		return domain.Credential{}, errors.New("session response has no client secret")
	}

	cred := domain.Credential{Value: dto.ClientSecret.Value}
	if dto.ClientSecret.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(dto.ClientSecret.ExpiresAt, 0)
	}
	return cred, nil
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 10 * time.Second}
}
