package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Wyydra/callsim/internal/core/domain"
)

// SDPClient posts a local offer to the realtime negotiation endpoint,
// authenticated with the session's ephemeral credential.
type SDPClient struct {
	url   string
	model string
	http  *http.Client
}

func NewSDPClient(endpoint, model string, httpClient *http.Client) *SDPClient {
	if endpoint == "" {
		endpoint = DefaultRealtimeURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &SDPClient{url: endpoint, model: model, http: defaultHTTPClient(httpClient)}
}

func (c *SDPClient) ExchangeSDP(ctx context.Context, cred domain.Credential, offer domain.Signal) (domain.Signal, error) {
	if !cred.Valid() {
		return domain.Signal{}, errors.New("missing ephemeral credential")
	}
	if offer.Type != domain.SignalOffer || offer.Payload == "" {
		return domain.Signal{}, errors.New("local description is not an offer")
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("parse realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", c.model)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(offer.Payload))
	if err != nil {
		return domain.Signal{}, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.Value)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("post offer: %w", err)
	}
	defer resp.Body.Close()

	if !success(resp) {
		return domain.Signal{}, newUpstreamError(resp)
	}

	answer, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Signal{}, fmt.Errorf("read answer: %w", err)
	}
	if strings.TrimSpace(string(answer)) == "" {
		return domain.Signal{}, errors.New("empty answer from negotiation endpoint")
	}
	return domain.NewSignal(domain.SignalAnswer, string(answer)), nil
}
