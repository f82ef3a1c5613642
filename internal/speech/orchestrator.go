package speech

import (
	"context"

	"github.com/rs/zerolog"

	"horse.fit/parley/internal/language"
)

// Orchestrator binds recognition and synthesis on one device to language codes.
type Orchestrator struct {
	languages   *language.Registry
	recognition *RecognitionController
	synthesis   *SynthesisController
	log         zerolog.Logger
}

func NewOrchestrator(languages *language.Registry, recognition *RecognitionController, synthesis *SynthesisController, log zerolog.Logger) *Orchestrator {
	if languages == nil {
		languages = language.Builtin()
	}
	return &Orchestrator{
		languages:   languages,
		recognition: recognition,
		synthesis:   synthesis,
		log:         log,
	}
}

// StartRecognition reports false when the device cannot recognize speech.
func (o *Orchestrator) StartRecognition(ctx context.Context, code string, onPartial, onFinal func(string), onError func(*RecognitionError)) bool {
	return o.StartRecognitionWithHandlers(ctx, code, RecognitionHandlers{
		OnPartial: onPartial,
		OnFinal:   onFinal,
		OnError:   onError,
	})
}

func (o *Orchestrator) StartRecognitionWithHandlers(ctx context.Context, code string, handlers RecognitionHandlers) bool {
	if o.recognition == nil {
		return false
	}
	profile := o.languages.Lookup(code)
	if err := o.recognition.Start(ctx, profile, handlers); err != nil {
		o.log.Info().Err(err).Str("language", profile.Code).Msg("speech recognition unavailable")
		return false
	}
	o.log.Debug().Str("language", profile.Code).Str("locale", profile.RecognitionLocale).Msg("speech recognition started")
	return true
}

func (o *Orchestrator) StopRecognition() {
	if o.recognition != nil {
		o.recognition.Stop()
	}
}

func (o *Orchestrator) RecognitionState() RecognitionState {
	if o.recognition == nil {
		return StateIdle
	}
	return o.recognition.State()
}

// Speak resolves the language profile and hands the utterance to the
// synthesis controller. Without a synthesis engine the result is Failed.
func (o *Orchestrator) Speak(ctx context.Context, text, code string, onComplete func()) <-chan SpeakResult {
	if o.synthesis == nil {
		result := make(chan SpeakResult, 1)
		result <- SpeakResult{State: UtteranceFailed, Err: ErrSynthesisUnavailable}
		close(result)
		if onComplete != nil {
			onComplete()
		}
		return result
	}
	return o.synthesis.Speak(ctx, text, o.languages.Lookup(code), onComplete)
}

func (o *Orchestrator) CancelSpeech() {
	if o.synthesis != nil {
		o.synthesis.Cancel()
	}
}

// Close stops recognition and silences any utterance in flight.
func (o *Orchestrator) Close() {
	o.StopRecognition()
	o.CancelSpeech()
}
