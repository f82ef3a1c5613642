package speech

import "context"

// Voice is one synthesis voice offered by a device.
type Voice struct {
	Name         string `json:"name"`
	Locale       string `json:"locale"`
	Default      bool   `json:"default,omitempty"`
	LocalService bool   `json:"local_service,omitempty"`
}

type RecognitionEventType string

const (
	RecognitionStarted RecognitionEventType = "started"
	RecognitionResult  RecognitionEventType = "result"
	RecognitionFailed  RecognitionEventType = "error"
	RecognitionEnded   RecognitionEventType = "ended"
)

// RecognitionEvent is reported by an engine for one recognition session.
type RecognitionEvent struct {
	SessionID  string
	Type       RecognitionEventType
	Text       string
	Final      bool
	Confidence float64
	Err        *RecognitionError
}

type RecognitionRequest struct {
	SessionID      string
	Locale         string
	Continuous     bool
	InterimResults bool
}

// RecognitionEngine is a platform or cloud speech-to-text engine. Start must
// not block for the lifetime of the session; events arrive through emit.
type RecognitionEngine interface {
	Available() bool
	Start(ctx context.Context, req RecognitionRequest, emit func(RecognitionEvent)) error
	Stop(sessionID string) error
}

type SynthesisEventType string

const (
	SynthesisStarted SynthesisEventType = "started"
	SynthesisEnded   SynthesisEventType = "ended"
	SynthesisFailed  SynthesisEventType = "error"
)

type SynthesisEvent struct {
	UtteranceID string
	Type        SynthesisEventType
	Err         error
}

type SynthesisRequest struct {
	UtteranceID string
	Text        string
	Locale      string
	Voice       string
	Rate        float64
	Pitch       float64
}

// SynthesisEngine plays utterances on a device. The engine is owned by one
// SynthesisController.
type SynthesisEngine interface {
	Voices(ctx context.Context) ([]Voice, error)
	Speak(ctx context.Context, req SynthesisRequest, emit func(SynthesisEvent)) error
	Cancel(utteranceID string) error
}

// AudioSource streams raw microphone audio captured on a device to a cloud
// recognition engine.
type AudioSource interface {
	OpenAudio(ctx context.Context, sessionID, locale string) (<-chan []byte, error)
	CloseAudio(sessionID string)
}
