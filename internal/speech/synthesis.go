package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/parley/internal/language"
)

const DefaultSynthesisWatchdog = 60 * time.Second

type UtteranceState int

const (
	UtteranceQueued UtteranceState = iota
	UtteranceSpeaking
	UtteranceCompleted
	UtteranceFailed
	UtteranceTimedOut
	UtteranceSuperseded
)

func (s UtteranceState) String() string {
	switch s {
	case UtteranceQueued:
		return "queued"
	case UtteranceSpeaking:
		return "speaking"
	case UtteranceCompleted:
		return "completed"
	case UtteranceFailed:
		return "failed"
	case UtteranceTimedOut:
		return "timed_out"
	case UtteranceSuperseded:
		return "superseded"
	default:
		return fmt.Sprintf("utterance(%d)", int(s))
	}
}

func (s UtteranceState) finished() bool {
	return s >= UtteranceCompleted
}

// SpeakResult resolves once per Speak call.
type SpeakResult struct {
	UtteranceID string
	State       UtteranceState
	Voice       string
	Err         error
}

type SynthesisOptions struct {
	Scheduler Scheduler
	Watchdog  time.Duration
	Logger    zerolog.Logger
	NewID     func() string
}

type utterance struct {
	id         string
	state      UtteranceState
	voice      string
	onComplete func()
	result     chan SpeakResult
	watchdog   Timer
}

// SynthesisController owns one synthesis engine. A new utterance always
// supersedes the one in flight.
type SynthesisController struct {
	engine   SynthesisEngine
	sched    Scheduler
	log      zerolog.Logger
	watchdog time.Duration
	newID    func() string

	mu      sync.Mutex
	current *utterance
}

func NewSynthesisController(engine SynthesisEngine, opts SynthesisOptions) *SynthesisController {
	c := &SynthesisController{
		engine:   engine,
		sched:    opts.Scheduler,
		log:      opts.Logger,
		watchdog: opts.Watchdog,
		newID:    opts.NewID,
	}
	if c.sched == nil {
		c.sched = RealScheduler()
	}
	if c.watchdog <= 0 {
		c.watchdog = DefaultSynthesisWatchdog
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Speak plays text in profile's language. onComplete runs when the utterance
// completes, fails or times out, but not when it is superseded.
func (c *SynthesisController) Speak(ctx context.Context, text string, profile language.Profile, onComplete func()) <-chan SpeakResult {
	if ctx == nil {
		ctx = context.Background()
	}
	result := make(chan SpeakResult, 1)
	id := c.newID()

	text = strings.TrimSpace(text)
	if text == "" {
		result <- SpeakResult{UtteranceID: id, State: UtteranceCompleted}
		close(result)
		if onComplete != nil {
			onComplete()
		}
		return result
	}

	voice := c.resolveVoice(ctx, profile)
	rate, pitch := Prosody(profile.Group)
	req := SynthesisRequest{
		UtteranceID: id,
		Text:        text,
		Locale:      profile.SynthesisLocale,
		Voice:       voice.Name,
		Rate:        rate,
		Pitch:       pitch,
	}
	u := &utterance{
		id:         id,
		state:      UtteranceQueued,
		voice:      voice.Name,
		onComplete: onComplete,
		result:     result,
	}

	c.mu.Lock()
	var fx effects
	if previous := c.current; previous != nil {
		c.finishLocked(previous, UtteranceSuperseded, nil, &fx)
		fx.add(func() { c.cancelEngine(previous.id) })
	}
	c.current = u
	u.watchdog = c.sched.AfterFunc(c.watchdog, func() { c.watchdogFired(u) })
	fx.add(func() {
		if err := c.engine.Speak(ctx, req, c.handleEvent); err != nil {
			c.handleEvent(SynthesisEvent{UtteranceID: id, Type: SynthesisFailed, Err: err})
		}
	})
	c.mu.Unlock()

	fx.run()
	return result
}

// Cancel supersedes the utterance in flight, if any.
func (c *SynthesisController) Cancel() {
	c.mu.Lock()
	previous := c.current
	if previous == nil {
		c.mu.Unlock()
		return
	}
	var fx effects
	c.finishLocked(previous, UtteranceSuperseded, nil, &fx)
	fx.add(func() { c.cancelEngine(previous.id) })
	c.mu.Unlock()

	fx.run()
}

// Current returns the id and state of the utterance in flight.
func (c *SynthesisController) Current() (string, UtteranceState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return "", 0, false
	}
	return c.current.id, c.current.state, true
}

func (c *SynthesisController) handleEvent(ev SynthesisEvent) {
	c.mu.Lock()
	u := c.current
	if u == nil || u.id != ev.UtteranceID {
		c.mu.Unlock()
		c.log.Debug().Str("utterance_id", ev.UtteranceID).Str("event", string(ev.Type)).Msg("dropping stale synthesis event")
		return
	}

	var fx effects
	switch ev.Type {
	case SynthesisStarted:
		u.state = UtteranceSpeaking
	case SynthesisEnded:
		c.finishLocked(u, UtteranceCompleted, nil, &fx)
	case SynthesisFailed:
		err := ev.Err
		if err == nil {
			err = fmt.Errorf("synthesis failed")
		}
		c.log.Debug().Err(err).Str("utterance_id", u.id).Msg("synthesis failed")
		c.finishLocked(u, UtteranceFailed, err, &fx)
	}
	c.mu.Unlock()

	fx.run()
}

func (c *SynthesisController) watchdogFired(u *utterance) {
	c.mu.Lock()
	if c.current != u || u.state.finished() {
		c.mu.Unlock()
		return
	}
	var fx effects
	c.log.Warn().Str("utterance_id", u.id).Dur("watchdog", c.watchdog).Msg("synthesis never finished, forcing completion")
	c.finishLocked(u, UtteranceTimedOut, nil, &fx)
	fx.add(func() { c.cancelEngine(u.id) })
	c.mu.Unlock()

	fx.run()
}

func (c *SynthesisController) finishLocked(u *utterance, state UtteranceState, err error, fx *effects) {
	if u.state.finished() {
		return
	}
	u.state = state
	if u.watchdog != nil {
		u.watchdog.Stop()
		u.watchdog = nil
	}
	if c.current == u {
		c.current = nil
	}

	u.result <- SpeakResult{UtteranceID: u.id, State: state, Voice: u.voice, Err: err}
	close(u.result)

	if state != UtteranceSuperseded && u.onComplete != nil {
		fx.add(u.onComplete)
	}
}

func (c *SynthesisController) resolveVoice(ctx context.Context, profile language.Profile) Voice {
	voices, err := c.engine.Voices(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("list synthesis voices")
		return Voice{Locale: profile.SynthesisLocale}
	}
	voice, ok := SelectVoice(profile, voices)
	if !ok {
		return Voice{Locale: profile.SynthesisLocale}
	}
	return voice
}

func (c *SynthesisController) cancelEngine(utteranceID string) {
	if err := c.engine.Cancel(utteranceID); err != nil {
		c.log.Debug().Err(err).Str("utterance_id", utteranceID).Msg("cancel synthesis")
	}
}
