package domain

import (
	"github.com/google/uuid"
)

// SessionID identifies one call attempt, from answer to teardown.
type SessionID uuid.UUID

// ClientID identifies a UI client subscribed to call events.
type ClientID uuid.UUID

func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func NewClientID() ClientID {
	return ClientID(uuid.New())
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

func (id SessionID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id ClientID) String() string {
	return uuid.UUID(id).String()
}
