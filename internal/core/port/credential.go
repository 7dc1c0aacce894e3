package port

import (
	"context"

	"github.com/Wyydra/callsim/internal/core/domain"
)

// CredentialIssuer obtains the ephemeral credential for one realtime session.
type CredentialIssuer interface {
	IssueCredential(ctx context.Context, voice, instructions string) (domain.Credential, error)
}

// SessionMinter creates realtime sessions upstream using the server API key.
type SessionMinter interface {
	MintSession(ctx context.Context, voice, instructions string) (domain.Credential, error)
}

// SDPExchanger submits a local offer to the voice service and returns its
// answer.
type SDPExchanger interface {
	ExchangeSDP(ctx context.Context, cred domain.Credential, offer domain.Signal) (domain.Signal, error)
}
