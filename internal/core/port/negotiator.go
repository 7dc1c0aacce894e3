package port

import (
	"context"

	"github.com/Wyydra/callsim/internal/core/domain"
)

// Callbacks is the capability set a Negotiator pushes asynchronous session
// events to. Implementations must not block.
type Callbacks interface {
	OnConnectionEstablished()
	OnAgentSpeaking()
	OnAgentFinished()
	OnUserTranscript(text string)
	OnError(err *domain.CallError)
}

// Negotiator turns a persona into a live audio session with the voice
// service.
type Negotiator interface {
	// Connect runs the handshake. Any failure has already been delivered to
	// Callbacks.OnError when Connect returns it; the return value is only
	// informational.
	Connect(ctx context.Context) error
	// Disconnect releases every resource. Safe to call any number of times,
	// concurrently with Connect and from inside a callback.
	Disconnect()
}

type NegotiatorFactory func(persona domain.PersonaConfig, cb Callbacks) Negotiator
