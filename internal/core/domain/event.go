package domain

import (
	"encoding/json"
	"fmt"
)

// Control channel message types sent by the voice service.
const (
	ControlSessionCreated      = "session.created"
	ControlAudioDelta          = "response.audio.delta"
	ControlAudioDone           = "response.audio.done"
	ControlOutputAudioDelta    = "response.output_audio.delta"
	ControlOutputAudioDone     = "response.output_audio.done"
	ControlTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	ControlError               = "error"
)

type ControlKind int

const (
	ControlUnknown ControlKind = iota
	ControlKindSessionCreated
	ControlKindAgentSpeaking
	ControlKindAgentFinished
	ControlKindUserTranscript
	ControlKindError
)

// ControlEvent is a decoded control channel message.
type ControlEvent struct {
	Type       string
	Kind       ControlKind
	Transcript string
	Message    string
}

type controlMessageDTO struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func ParseControlEvent(data []byte) (ControlEvent, error) {
	var dto controlMessageDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return ControlEvent{}, fmt.Errorf("decode control message: %w", err)
	}

	ev := ControlEvent{Type: dto.Type}
	switch dto.Type {
	case ControlSessionCreated:
		ev.Kind = ControlKindSessionCreated
	case ControlAudioDelta, ControlOutputAudioDelta:
		ev.Kind = ControlKindAgentSpeaking
	case ControlAudioDone, ControlOutputAudioDone:
		ev.Kind = ControlKindAgentFinished
	case ControlTranscriptCompleted:
		ev.Kind = ControlKindUserTranscript
		ev.Transcript = dto.Transcript
	case ControlError:
		ev.Kind = ControlKindError
		ev.Message = MessageProtocol
		if dto.Error != nil && dto.Error.Message != "" {
			ev.Message = dto.Error.Message
		}
	default:
		ev.Kind = ControlUnknown
	}
	return ev, nil
}
