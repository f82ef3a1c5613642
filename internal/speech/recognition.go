package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/parley/internal/language"
)

const (
	DefaultIdleTimeout  = 5 * time.Second
	DefaultMaxRetries   = 3
	DefaultBaseBackoff  = time.Second
	DefaultMaxBackoff   = 10 * time.Second
	// DefaultStartTimeout bounds how long the engine may take to confirm a start.
	DefaultStartTimeout = 15 * time.Second
)

type RecognitionState int

const (
	StateIdle RecognitionState = iota
	StateStarting
	StateListening
	StateStopping
	StateRetrying
	StateError
)

func (s RecognitionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	case StateRetrying:
		return "retrying"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type trigger int

const (
	triggerStart trigger = iota
	triggerEngineStarted
	triggerFragment
	triggerTransientError
	triggerTerminalError
	triggerExhausted
	triggerRetryFired
	triggerIdleTimeout
	triggerEngineEnded
	triggerStop
	triggerStopped
)

var recognitionTransitions = map[RecognitionState]map[trigger]RecognitionState{
	StateIdle: {
		triggerStart: StateStarting,
	},
	StateStarting: {
		triggerStart:          StateStarting,
		triggerEngineStarted:  StateListening,
		triggerFragment:       StateListening,
		triggerTransientError: StateRetrying,
		triggerTerminalError:  StateError,
		triggerExhausted:      StateError,
		triggerStop:           StateStopping,
	},
	StateListening: {
		triggerStart:          StateStarting,
		triggerFragment:       StateListening,
		triggerIdleTimeout:    StateStarting,
		triggerEngineEnded:    StateStarting,
		triggerTransientError: StateRetrying,
		triggerTerminalError:  StateError,
		triggerExhausted:      StateError,
		triggerStop:           StateStopping,
	},
	StateRetrying: {
		triggerStart:      StateStarting,
		triggerRetryFired: StateStarting,
		triggerStop:       StateStopping,
	},
	StateStopping: {
		triggerStopped: StateIdle,
	},
	StateError: {
		triggerStart: StateStarting,
		triggerStop:  StateStopping,
	},
}

// RecognitionHandlers receive session output. Handlers run outside the
// controller lock and may call back into the controller.
type RecognitionHandlers struct {
	OnPartial func(text string)
	OnFinal   func(text string)
	OnError   func(err *RecognitionError)
	OnState   func(state RecognitionState)
}

type RecognitionOptions struct {
	Scheduler    Scheduler
	IdleTimeout  time.Duration
	StartTimeout time.Duration
	MaxRetries   int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	Logger       zerolog.Logger
	NewID        func() string
}

// RecognitionController owns one recognition engine and keeps at most one
// session listening on it.
type RecognitionController struct {
	engine       RecognitionEngine
	sched        Scheduler
	log          zerolog.Logger
	idleTimeout  time.Duration
	startTimeout time.Duration
	maxRetries   int
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	newID        func() string

	mu        sync.Mutex
	state     RecognitionState
	ctx       context.Context
	profile   language.Profile
	handlers  RecognitionHandlers
	sessionID string
	retries   int
	epoch     uint64
	timer     Timer
}

func NewRecognitionController(engine RecognitionEngine, opts RecognitionOptions) *RecognitionController {
	c := &RecognitionController{
		engine:       engine,
		sched:        opts.Scheduler,
		log:          opts.Logger,
		idleTimeout:  opts.IdleTimeout,
		startTimeout: opts.StartTimeout,
		maxRetries:   opts.MaxRetries,
		baseBackoff:  opts.BaseBackoff,
		maxBackoff:   opts.MaxBackoff,
		newID:        opts.NewID,
		state:        StateIdle,
	}
	if c.sched == nil {
		c.sched = RealScheduler()
	}
	if c.idleTimeout <= 0 {
		c.idleTimeout = DefaultIdleTimeout
	}
	if c.startTimeout <= 0 {
		c.startTimeout = DefaultStartTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if c.maxRetries == 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = DefaultBaseBackoff
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = DefaultMaxBackoff
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

func (c *RecognitionController) State() RecognitionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Retries is the number of automatic restarts spent in the current session.
func (c *RecognitionController) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

// Start begins continuous recognition in profile's locale. A session that is
// already running is stopped first.
func (c *RecognitionController) Start(ctx context.Context, profile language.Profile, handlers RecognitionHandlers) error {
	if c.engine == nil || !c.engine.Available() {
		return ErrUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	var fx effects
	c.cancelTimerLocked()
	if previous := c.sessionID; previous != "" {
		fx.add(func() { c.stopEngine(previous) })
	}
	c.ctx = ctx
	c.profile = profile
	c.handlers = handlers
	c.retries = 0
	c.fireLocked(triggerStart, &fx)
	c.launchLocked(&fx)
	c.mu.Unlock()

	fx.run()
	return nil
}

// Stop ends the session and cancels pending timers. It always leaves the
// controller Idle.
func (c *RecognitionController) Stop() {
	c.mu.Lock()
	c.cancelTimerLocked()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}

	var fx effects
	previous := c.sessionID
	c.sessionID = ""
	c.fireLocked(triggerStop, &fx)
	if previous != "" {
		fx.add(func() { c.stopEngine(previous) })
	}
	c.fireLocked(triggerStopped, &fx)
	c.mu.Unlock()

	fx.run()
}

func (c *RecognitionController) handleEvent(ev RecognitionEvent) {
	c.mu.Lock()
	if ev.SessionID == "" || ev.SessionID != c.sessionID {
		c.mu.Unlock()
		c.log.Debug().Str("session_id", ev.SessionID).Str("event", string(ev.Type)).Msg("dropping stale recognition event")
		return
	}

	var fx effects
	switch ev.Type {
	case RecognitionStarted:
		if c.fireLocked(triggerEngineStarted, &fx) {
			c.armIdleLocked()
		}
	case RecognitionResult:
		if c.fireLocked(triggerFragment, &fx) {
			c.retries = 0
			c.armIdleLocked()
			text := ev.Text
			if ev.Final {
				if onFinal := c.handlers.OnFinal; onFinal != nil {
					fx.add(func() { onFinal(text) })
				}
			} else if onPartial := c.handlers.OnPartial; onPartial != nil {
				fx.add(func() { onPartial(text) })
			}
		}
	case RecognitionFailed:
		rerr := ev.Err
		if rerr == nil {
			rerr = NewRecognitionError(CodeUnknown, "")
		}
		c.handleErrorLocked(rerr, &fx)
	case RecognitionEnded:
		switch c.state {
		case StateListening:
			// The platform ended a continuous session on its own.
			c.cancelTimerLocked()
			c.fireLocked(triggerEngineEnded, &fx)
			c.launchLocked(&fx)
		case StateStarting:
			c.handleErrorLocked(NewRecognitionError(CodeAborted, "engine ended before listening"), &fx)
		}
	}
	c.mu.Unlock()

	fx.run()
}

func (c *RecognitionController) handleErrorLocked(rerr *RecognitionError, fx *effects) {
	c.cancelTimerLocked()
	previous := c.sessionID
	c.sessionID = ""
	if previous != "" {
		fx.add(func() { c.stopEngine(previous) })
	}

	if rerr.Transient && c.retries < c.maxRetries {
		if !c.fireLocked(triggerTransientError, fx) {
			return
		}
		delay := c.backoff(c.retries)
		c.retries++
		c.log.Debug().
			Str("code", rerr.Code).
			Int("attempt", c.retries).
			Dur("delay", delay).
			Msg("recognition retry scheduled")
		c.epoch++
		epoch := c.epoch
		c.timer = c.sched.AfterFunc(delay, func() { c.retryFired(epoch) })
		return
	}

	trig := triggerTerminalError
	surfaced := *rerr
	surfaced.Terminal = true
	if rerr.Transient {
		trig = triggerExhausted
		surfaced.Message = fmt.Sprintf("%s after %d attempts", rerr.Message, c.retries)
	}
	if !c.fireLocked(trig, fx) {
		return
	}
	c.log.Warn().
		Str("code", surfaced.Code).
		Str("category", string(surfaced.Category)).
		Str("detail", surfaced.Detail).
		Msg("speech recognition stopped")
	if onError := c.handlers.OnError; onError != nil {
		fx.add(func() { onError(&surfaced) })
	}
}

func (c *RecognitionController) retryFired(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != StateRetrying {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	var fx effects
	c.fireLocked(triggerRetryFired, &fx)
	c.launchLocked(&fx)
	c.mu.Unlock()

	fx.run()
}

// startFired treats an engine that never confirmed the start as a transient
// failure, so the session retries instead of staying in Starting.
func (c *RecognitionController) startFired(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != StateStarting {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	var fx effects
	c.log.Debug().Str("session_id", c.sessionID).Msg("recognition engine did not confirm start")
	c.handleErrorLocked(NewRecognitionError(CodeNetwork, "engine did not confirm start"), &fx)
	c.mu.Unlock()

	fx.run()
}

func (c *RecognitionController) idleFired(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != StateListening {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	var fx effects
	previous := c.sessionID
	c.sessionID = ""
	if previous != "" {
		fx.add(func() { c.stopEngine(previous) })
	}
	c.log.Debug().Str("session_id", previous).Msg("recognition idle, restarting engine")
	c.fireLocked(triggerIdleTimeout, &fx)
	c.launchLocked(&fx)
	c.mu.Unlock()

	fx.run()
}

// launchLocked starts a fresh engine session. Each session gets its own id so
// events from replaced sessions are discarded.
func (c *RecognitionController) launchLocked(fx *effects) {
	id := c.newID()
	c.sessionID = id
	ctx := c.ctx
	req := RecognitionRequest{
		SessionID:      id,
		Locale:         c.profile.RecognitionLocale,
		Continuous:     true,
		InterimResults: true,
	}
	emit := func(ev RecognitionEvent) {
		ev.SessionID = id
		c.handleEvent(ev)
	}
	c.cancelTimerLocked()
	epoch := c.epoch
	c.timer = c.sched.AfterFunc(c.startTimeout, func() { c.startFired(epoch) })
	fx.add(func() {
		if err := c.engine.Start(ctx, req, emit); err != nil {
			emit(RecognitionEvent{Type: RecognitionFailed, Err: AsRecognitionError(err)})
		}
	})
}

func (c *RecognitionController) armIdleLocked() {
	c.cancelTimerLocked()
	epoch := c.epoch
	c.timer = c.sched.AfterFunc(c.idleTimeout, func() { c.idleFired(epoch) })
}

func (c *RecognitionController) cancelTimerLocked() {
	c.epoch++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *RecognitionController) fireLocked(t trigger, fx *effects) bool {
	next, ok := recognitionTransitions[c.state][t]
	if !ok {
		return false
	}
	previous := c.state
	c.state = next
	if next != previous {
		if onState := c.handlers.OnState; onState != nil {
			fx.add(func() { onState(next) })
		}
	}
	return true
}

func (c *RecognitionController) stopEngine(sessionID string) {
	if err := c.engine.Stop(sessionID); err != nil {
		c.log.Debug().Err(err).Str("session_id", sessionID).Msg("stop recognition engine")
	}
}

// backoff is min(base * 2^retry, max).
func (c *RecognitionController) backoff(retry int) time.Duration {
	delay := c.baseBackoff
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay >= c.maxBackoff {
			return c.maxBackoff
		}
	}
	if delay > c.maxBackoff {
		return c.maxBackoff
	}
	return delay
}
