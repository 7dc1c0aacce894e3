package port

import (
	"context"

	"github.com/Wyydra/callsim/internal/core/domain"
)

// CallGateway pushes call events to UI clients. Publish must not block.
type CallGateway interface {
	Publish(ctx context.Context, ev domain.CallEvent) error
}
