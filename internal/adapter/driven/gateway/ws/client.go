package ws

import "github.com/Wyydra/callsim/internal/core/domain"

type Client interface {
	ID() string
	SendEvent(ev domain.CallEvent) error
	Close() error
}
