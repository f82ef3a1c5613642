package speech

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/parley/internal/language"
)

func newTestSynthesis(engine SynthesisEngine, clock *manualClock) *SynthesisController {
	return NewSynthesisController(engine, SynthesisOptions{
		Scheduler: clock,
		Logger:    zerolog.Nop(),
	})
}

func receive(t *testing.T, results <-chan SpeakResult) SpeakResult {
	t.Helper()
	select {
	case result := <-results:
		return result
	case <-time.After(time.Second):
		t.Fatalf("speak result was not resolved")
		return SpeakResult{}
	}
}

func pending(results <-chan SpeakResult) bool {
	select {
	case <-results:
		return false
	default:
		return true
	}
}

func TestSpeakTwiceCompletesOnlySecond(t *testing.T) {
	t.Parallel()

	engine := newFakeSynthesizer(Voice{Name: "Google US English", Locale: "en-US"})
	controller := newTestSynthesis(engine, &manualClock{})
	english := language.Builtin().English()

	var firstDone, secondDone atomic.Int32
	first := controller.Speak(context.Background(), "Tell me about yourself", english, func() { firstDone.Add(1) })
	second := controller.Speak(context.Background(), "Why this role?", english, func() { secondDone.Add(1) })

	speaks := engine.Speaks()
	if len(speaks) != 2 {
		t.Fatalf("expected two engine calls, got %d", len(speaks))
	}
	engine.Emit(SynthesisEvent{UtteranceID: speaks[0].UtteranceID, Type: SynthesisEnded})
	engine.Emit(SynthesisEvent{UtteranceID: speaks[1].UtteranceID, Type: SynthesisStarted})
	engine.Emit(SynthesisEvent{UtteranceID: speaks[1].UtteranceID, Type: SynthesisEnded})

	if got := receive(t, first); got.State != UtteranceSuperseded {
		t.Fatalf("expected first utterance superseded, got %s", got.State)
	}
	if got := receive(t, second); got.State != UtteranceCompleted || got.Err != nil {
		t.Fatalf("expected second utterance completed, got %+v", got)
	}
	if firstDone.Load() != 0 || secondDone.Load() != 1 {
		t.Fatalf("unexpected completions: first=%d second=%d", firstDone.Load(), secondDone.Load())
	}
	if cancels := engine.Cancels(); len(cancels) != 1 || cancels[0] != speaks[0].UtteranceID {
		t.Fatalf("expected first utterance to be cancelled at the engine, got %v", cancels)
	}
}

func TestSpeakWatchdogForcesCompletion(t *testing.T) {
	t.Parallel()

	engine := newFakeSynthesizer()
	clock := &manualClock{}
	controller := newTestSynthesis(engine, clock)

	var done atomic.Int32
	results := controller.Speak(context.Background(), "hello", language.Builtin().English(), func() { done.Add(1) })

	clock.Advance(59 * time.Second)
	if !pending(results) {
		t.Fatalf("expected utterance to still be pending before the watchdog")
	}

	clock.Advance(time.Second)
	got := receive(t, results)
	if got.State != UtteranceTimedOut || got.Err != nil {
		t.Fatalf("expected soft timeout, got %+v", got)
	}
	if done.Load() != 1 {
		t.Fatalf("expected onComplete to fire on timeout")
	}
	if len(engine.Cancels()) != 1 {
		t.Fatalf("expected engine cancel on timeout")
	}

	// A late end event from the engine is ignored.
	engine.Emit(SynthesisEvent{UtteranceID: got.UtteranceID, Type: SynthesisEnded})
	if done.Load() != 1 {
		t.Fatalf("expected late event to be dropped")
	}
}

func TestSpeakEngineErrorFails(t *testing.T) {
	t.Parallel()

	engine := newFakeSynthesizer()
	engine.speakErr = errEngineBroken
	controller := newTestSynthesis(engine, &manualClock{})

	var done atomic.Int32
	got := receive(t, controller.Speak(context.Background(), "hello", language.Builtin().English(), func() { done.Add(1) }))
	if got.State != UtteranceFailed || !errors.Is(got.Err, errEngineBroken) {
		t.Fatalf("expected failed utterance, got %+v", got)
	}
	if done.Load() != 1 {
		t.Fatalf("expected onComplete to fire on failure")
	}
	if _, _, ok := controller.Current(); ok {
		t.Fatalf("expected no utterance in flight")
	}
}

func TestSpeakEmptyTextCompletesImmediately(t *testing.T) {
	t.Parallel()

	engine := newFakeSynthesizer()
	controller := newTestSynthesis(engine, &manualClock{})

	var done atomic.Int32
	got := receive(t, controller.Speak(context.Background(), "   ", language.Builtin().English(), func() { done.Add(1) }))
	if got.State != UtteranceCompleted {
		t.Fatalf("expected completed, got %s", got.State)
	}
	if done.Load() != 1 || len(engine.Speaks()) != 0 {
		t.Fatalf("expected no engine call and one completion")
	}
}

func TestSpeakUsesGroupProsodyAndVoice(t *testing.T) {
	t.Parallel()

	engine := newFakeSynthesizer(
		Voice{Name: "Samantha", Locale: "en-US"},
		Voice{Name: "Google हिन्दी", Locale: "hi-IN"},
		Voice{Name: "Thomas", Locale: "fr-FR"},
	)
	controller := newTestSynthesis(engine, &manualClock{})

	controller.Speak(context.Background(), "नमस्ते", language.Builtin().Lookup("hi"), nil)
	controller.Speak(context.Background(), "bonjour", language.Builtin().Lookup("fr"), nil)

	speaks := engine.Speaks()
	if speaks[0].Rate != 0.65 || speaks[0].Pitch != 1.1 || speaks[0].Voice != "Google हिन्दी" || speaks[0].Locale != "hi-IN" {
		t.Fatalf("unexpected hindi request: %+v", speaks[0])
	}
	if speaks[1].Rate != 0.85 || speaks[1].Pitch != 1.0 || speaks[1].Voice != "Thomas" {
		t.Fatalf("unexpected french request: %+v", speaks[1])
	}
}

func TestCancelSupersedesCurrentUtterance(t *testing.T) {
	t.Parallel()

	engine := newFakeSynthesizer()
	controller := newTestSynthesis(engine, &manualClock{})

	var done atomic.Int32
	results := controller.Speak(context.Background(), "hello", language.Builtin().English(), func() { done.Add(1) })
	controller.Cancel()
	controller.Cancel()

	if got := receive(t, results); got.State != UtteranceSuperseded {
		t.Fatalf("expected superseded, got %s", got.State)
	}
	if done.Load() != 0 {
		t.Fatalf("superseded utterances must not call onComplete")
	}
	if len(engine.Cancels()) != 1 {
		t.Fatalf("expected one engine cancel, got %v", engine.Cancels())
	}
}
