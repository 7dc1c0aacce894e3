package domain

import "time"

// Credential is an ephemeral bearer token that authorizes exactly one
// realtime negotiation. It must never be logged or persisted.
type Credential struct {
	Value     string
	ExpiresAt time.Time
}

func (c Credential) Valid() bool {
	return c.Value != ""
}

func (c Credential) String() string {
	return "Credential(redacted)"
}

func (c Credential) GoString() string {
	return c.String()
}
