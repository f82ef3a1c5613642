package speech

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// manualClock is a Scheduler driven by Advance.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
	delays []time.Duration
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance fires due timers in order, outside the clock lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		pending := make([]*manualTimer, 0, len(c.timers))
		for _, t := range c.timers {
			if !t.fired && !t.stopped && t.at <= target {
				pending = append(pending, t)
			}
		}
		if len(pending) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(pending, func(i, j int) bool { return pending[i].at < pending[j].at })
		next := pending[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

func (c *manualClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			count++
		}
	}
	return count
}

type fakeRecognizer struct {
	mu        sync.Mutex
	available bool
	starts    []RecognitionRequest
	stops     []string
	emitters  map[string]func(RecognitionEvent)
	onStart   func(attempt int, req RecognitionRequest, emit func(RecognitionEvent))
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{available: true, emitters: map[string]func(RecognitionEvent){}}
}

func (f *fakeRecognizer) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeRecognizer) Start(_ context.Context, req RecognitionRequest, emit func(RecognitionEvent)) error {
	f.mu.Lock()
	f.starts = append(f.starts, req)
	f.emitters[req.SessionID] = emit
	attempt := len(f.starts)
	onStart := f.onStart
	f.mu.Unlock()

	if onStart != nil {
		onStart(attempt, req, emit)
	}
	return nil
}

func (f *fakeRecognizer) Stop(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, sessionID)
	return nil
}

func (f *fakeRecognizer) Starts() []RecognitionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecognitionRequest(nil), f.starts...)
}

func (f *fakeRecognizer) Stops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stops...)
}

// Emit delivers ev on the emitter of the given session.
func (f *fakeRecognizer) Emit(sessionID string, ev RecognitionEvent) {
	f.mu.Lock()
	emit := f.emitters[sessionID]
	f.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}

func (f *fakeRecognizer) Latest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.starts) == 0 {
		return ""
	}
	return f.starts[len(f.starts)-1].SessionID
}

type fakeSynthesizer struct {
	mu        sync.Mutex
	voices    []Voice
	voicesErr error
	speakErr  error
	speaks    []SynthesisRequest
	cancels   []string
	emitters  map[string]func(SynthesisEvent)
}

func newFakeSynthesizer(voices ...Voice) *fakeSynthesizer {
	return &fakeSynthesizer{voices: voices, emitters: map[string]func(SynthesisEvent){}}
}

func (f *fakeSynthesizer) Voices(context.Context) ([]Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voicesErr != nil {
		return nil, f.voicesErr
	}
	return append([]Voice(nil), f.voices...), nil
}

func (f *fakeSynthesizer) Speak(_ context.Context, req SynthesisRequest, emit func(SynthesisEvent)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speaks = append(f.speaks, req)
	f.emitters[req.UtteranceID] = emit
	return f.speakErr
}

func (f *fakeSynthesizer) Cancel(utteranceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, utteranceID)
	return nil
}

func (f *fakeSynthesizer) Speaks() []SynthesisRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SynthesisRequest(nil), f.speaks...)
}

func (f *fakeSynthesizer) Cancels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancels...)
}

func (f *fakeSynthesizer) Emit(ev SynthesisEvent) {
	f.mu.Lock()
	emit := f.emitters[ev.UtteranceID]
	f.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}

var errEngineBroken = errors.New("engine broken")
