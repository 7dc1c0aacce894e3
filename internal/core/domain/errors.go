package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorCredential  ErrorKind = "credential"
	ErrorMedia       ErrorKind = "media"
	ErrorNegotiation ErrorKind = "negotiation"
	ErrorTransport   ErrorKind = "transport"
	ErrorProtocol    ErrorKind = "protocol"
	ErrorConfig      ErrorKind = "config"
)

// Localized messages shown to the user. The simulator is German-facing.
const (
	MessageCredential  = "Sitzung konnte nicht erstellt werden"
	MessageMedia       = "Mikrofonzugriff fehlgeschlagen"
	MessageNegotiation = "SDP-Austausch fehlgeschlagen"
	MessageTransport   = "Verbindung unterbrochen"
	MessageProtocol    = "Ein Fehler ist aufgetreten"
	MessageConfig      = "Konfiguration konnte nicht geladen werden"
	MessageGeneric     = "Verbindung fehlgeschlagen"
)

var (
	ErrInvalidTransition = errors.New("invalid call state transition")
	ErrAlreadyConnected  = errors.New("negotiator already connected")
	ErrInvalidPersona    = errors.New("invalid persona")
)

// CallError is the single error shape surfaced for a failed call attempt.
type CallError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewCallError(kind ErrorKind, err error) *CallError {
	return &CallError{Kind: kind, Message: kind.Message(), Err: err}
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func (k ErrorKind) Message() string {
	switch k {
	case ErrorCredential:
		return MessageCredential
	case ErrorMedia:
		return MessageMedia
	case ErrorNegotiation:
		return MessageNegotiation
	case ErrorTransport:
		return MessageTransport
	case ErrorProtocol:
		return MessageProtocol
	case ErrorConfig:
		return MessageConfig
	default:
		return MessageGeneric
	}
}

// AsCallError returns err unchanged if it already is a CallError, otherwise
// wraps it with the given kind.
func AsCallError(err error, kind ErrorKind) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}
	return NewCallError(kind, err)
}
