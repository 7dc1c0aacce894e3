package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/Wyydra/callsim/internal/core/port"
)

type credentialRequestDTO struct {
	Voice        string `json:"voice"`
	Instructions string `json:"instructions"`
}

// CredentialClient fetches ephemeral credentials from a credential service
// over HTTP.
type CredentialClient struct {
	url  string
	http *http.Client
}

func NewCredentialClient(url string, httpClient *http.Client) *CredentialClient {
	return &CredentialClient{url: url, http: defaultHTTPClient(httpClient)}
}

func (c *CredentialClient) IssueCredential(ctx context.Context, voice, instructions string) (domain.Credential, error) {
	body, err := json.Marshal(credentialRequestDTO{Voice: voice, Instructions: instructions})
	if err != nil {
		return domain.Credential{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Credential{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("request credential: %w", err)
	}
	defer resp.Body.Close()

	if !success(resp) {
		return domain.Credential{}, newUpstreamError(resp)
	}
	return decodeCredential(resp.Body)
}

// MinterIssuer issues credentials in-process from a SessionMinter, for
// deployments where the negotiator and the credential endpoint share a
// process.
type MinterIssuer struct {
	minter port.SessionMinter
}

func NewMinterIssuer(minter port.SessionMinter) *MinterIssuer {
	return &MinterIssuer{minter: minter}
}

func (i *MinterIssuer) IssueCredential(ctx context.Context, voice, instructions string) (domain.Credential, error) {
	return i.minter.MintSession(ctx, voice, instructions)
}
