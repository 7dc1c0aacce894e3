package domain

type SignalType string

const (
	SignalOffer  SignalType = "offer"
	SignalAnswer SignalType = "answer"
)

// Signal carries one session description of the offer/answer exchange.
type Signal struct {
	Type    SignalType
	Payload string
}

func NewSignal(t SignalType, payload string) Signal {
	return Signal{
		Type:    t,
		Payload: payload,
	}
}
