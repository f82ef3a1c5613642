package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"horse.fit/parley/internal/payloadschema"
	"horse.fit/parley/internal/speech"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer, sized for audio chunks.
	maxMessageSize = 512 * 1024

	sendBuffer  = 256
	audioBuffer = 64

	// How long Voices waits for the device hello.
	helloWait = 2 * time.Second
)

// Message types exchanged with the device.
const (
	TypeHello  = "hello"
	TypeVoices = "voices"
	TypeError  = "error"

	TypeRecognitionStart   = "engine.recognition.start"
	TypeRecognitionStop    = "engine.recognition.stop"
	TypeRecognitionStarted = "engine.recognition.started"
	TypeRecognitionResult  = "engine.recognition.result"
	TypeRecognitionError   = "engine.recognition.error"
	TypeRecognitionEnded   = "engine.recognition.ended"

	TypeSynthesisSpeak   = "engine.synthesis.speak"
	TypeSynthesisCancel  = "engine.synthesis.cancel"
	TypeSynthesisStarted = "engine.synthesis.started"
	TypeSynthesisEnded   = "engine.synthesis.ended"
	TypeSynthesisError   = "engine.synthesis.error"

	TypeAudioStart = "audio.start"
	TypeAudioStop  = "audio.stop"
)

var ErrClosed = errors.New("device connection closed")

// ControlHandler receives application messages (recognition.start, speak,
// translate, ...) sent by the device. It runs on the read loop and must not
// block.
type ControlHandler interface {
	HandleControl(ctx context.Context, msg *payloadschema.DeviceMessage)
}

type ControlFunc func(ctx context.Context, msg *payloadschema.DeviceMessage)

func (f ControlFunc) HandleControl(ctx context.Context, msg *payloadschema.DeviceMessage) {
	f(ctx, msg)
}

type frame struct {
	messageType int
	payload     []byte
}

// Conn is one browser device on the bridge. It implements
// speech.RecognitionEngine, speech.SynthesisEngine and speech.AudioSource.
type Conn struct {
	ws   *websocket.Conn
	log  zerolog.Logger
	send chan frame
	done chan struct{}

	closeOnce sync.Once
	helloOnce sync.Once
	ready     chan struct{}

	mu           sync.Mutex
	control      ControlHandler
	capabilities payloadschema.DeviceCapabilities
	voices       []speech.Voice
	recognizers  map[string]func(speech.RecognitionEvent)
	synthesizers map[string]func(speech.SynthesisEvent)
	audioSession string
	audio        chan []byte
}

// NewUpgrader accepts connections from the given origins. An empty list or
// "*" accepts any origin.
func NewUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || len(origins) == 0 {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Accept upgrades an HTTP request to a device connection.
func Accept(w http.ResponseWriter, r *http.Request, origins []string, log zerolog.Logger) (*Conn, error) {
	upgrader := NewUpgrader(origins)
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade device connection: %w", err)
	}
	return NewConn(ws, log), nil
}

func NewConn(ws *websocket.Conn, log zerolog.Logger) *Conn {
	return &Conn{
		ws:           ws,
		log:          log,
		send:         make(chan frame, sendBuffer),
		done:         make(chan struct{}),
		ready:        make(chan struct{}),
		recognizers:  make(map[string]func(speech.RecognitionEvent)),
		synthesizers: make(map[string]func(speech.SynthesisEvent)),
	}
}

func (c *Conn) SetControlHandler(handler ControlHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.control = handler
}

// Run pumps the connection until the device disconnects or ctx is done.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.shutdown()

	go c.writePump()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("device connection closed unexpectedly")
				return err
			}
			return nil
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.handleAudio(data)
		case websocket.TextMessage:
			c.handleText(ctx, data)
		}
	}
}

// Close stops the write pump, which closes the socket.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Send queues one message for the device.
func (c *Conn) Send(msg payloadschema.DeviceMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal device message: %w", err)
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- frame{messageType: websocket.TextMessage, payload: payload}:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return fmt.Errorf("device send buffer full, dropping %s", msg.Type)
	}
}

func (c *Conn) Capabilities() payloadschema.DeviceCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capabilities
}

// Available reports whether the device announced a recognition engine.
func (c *Conn) Available() bool {
	return c.Capabilities().Recognition
}

func (c *Conn) Start(_ context.Context, req speech.RecognitionRequest, emit func(speech.RecognitionEvent)) error {
	c.mu.Lock()
	c.recognizers[req.SessionID] = emit
	c.mu.Unlock()

	err := c.Send(payloadschema.DeviceMessage{
		Type:      TypeRecognitionStart,
		SessionID: req.SessionID,
		Locale:    req.Locale,
	})
	if err != nil {
		c.mu.Lock()
		delete(c.recognizers, req.SessionID)
		c.mu.Unlock()
		return speech.NewRecognitionError(speech.CodeNetwork, err.Error())
	}
	return nil
}

func (c *Conn) Stop(sessionID string) error {
	c.mu.Lock()
	delete(c.recognizers, sessionID)
	c.mu.Unlock()
	return c.Send(payloadschema.DeviceMessage{Type: TypeRecognitionStop, SessionID: sessionID})
}

// Voices returns the device voices, waiting briefly for the hello message.
func (c *Conn) Voices(ctx context.Context) ([]speech.Voice, error) {
	timer := time.NewTimer(helloWait)
	defer timer.Stop()
	select {
	case <-c.ready:
	case <-timer.C:
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]speech.Voice(nil), c.voices...), nil
}

func (c *Conn) Speak(_ context.Context, req speech.SynthesisRequest, emit func(speech.SynthesisEvent)) error {
	c.mu.Lock()
	c.synthesizers[req.UtteranceID] = emit
	c.mu.Unlock()

	err := c.Send(payloadschema.DeviceMessage{
		Type:        TypeSynthesisSpeak,
		UtteranceID: req.UtteranceID,
		Text:        req.Text,
		Locale:      req.Locale,
		Voice:       req.Voice,
		Rate:        req.Rate,
		Pitch:       req.Pitch,
	})
	if err != nil {
		c.mu.Lock()
		delete(c.synthesizers, req.UtteranceID)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Conn) Cancel(utteranceID string) error {
	c.mu.Lock()
	delete(c.synthesizers, utteranceID)
	c.mu.Unlock()
	return c.Send(payloadschema.DeviceMessage{Type: TypeSynthesisCancel, UtteranceID: utteranceID})
}

// OpenAudio asks the device to stream microphone audio as binary frames.
// Only one audio session is open at a time.
func (c *Conn) OpenAudio(_ context.Context, sessionID, locale string) (<-chan []byte, error) {
	c.mu.Lock()
	if c.audio != nil {
		close(c.audio)
	}
	chunks := make(chan []byte, audioBuffer)
	c.audio = chunks
	c.audioSession = sessionID
	c.mu.Unlock()

	if err := c.Send(payloadschema.DeviceMessage{Type: TypeAudioStart, SessionID: sessionID, Locale: locale}); err != nil {
		c.CloseAudio(sessionID)
		return nil, err
	}
	return chunks, nil
}

func (c *Conn) CloseAudio(sessionID string) {
	c.mu.Lock()
	if c.audioSession != sessionID || c.audio == nil {
		c.mu.Unlock()
		return
	}
	close(c.audio)
	c.audio = nil
	c.audioSession = ""
	c.mu.Unlock()

	_ = c.Send(payloadschema.DeviceMessage{Type: TypeAudioStop, SessionID: sessionID})
}

func (c *Conn) handleAudio(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audio == nil {
		return
	}
	chunk := append([]byte(nil), data...)
	select {
	case c.audio <- chunk:
	default:
		c.log.Debug().Str("session_id", c.audioSession).Msg("audio buffer full, dropping chunk")
	}
}

func (c *Conn) handleText(ctx context.Context, data []byte) {
	msg, err := payloadschema.ValidateDeviceMessage(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("invalid device message")
		_ = c.Send(payloadschema.DeviceMessage{Type: TypeError, Detail: err.Error()})
		return
	}

	switch msg.Type {
	case TypeHello:
		c.mu.Lock()
		if msg.Capabilities != nil {
			c.capabilities = *msg.Capabilities
		}
		c.voices = toVoices(msg.Voices)
		c.mu.Unlock()
		c.helloOnce.Do(func() { close(c.ready) })
		c.log.Info().
			Bool("recognition", msg.Capabilities != nil && msg.Capabilities.Recognition).
			Bool("synthesis", msg.Capabilities != nil && msg.Capabilities.Synthesis).
			Int("voices", len(msg.Voices)).
			Msg("device connected")
	case TypeVoices:
		c.mu.Lock()
		c.voices = toVoices(msg.Voices)
		c.mu.Unlock()
	case TypeRecognitionStarted, TypeRecognitionResult, TypeRecognitionError, TypeRecognitionEnded:
		c.dispatchRecognition(msg)
	case TypeSynthesisStarted, TypeSynthesisEnded, TypeSynthesisError:
		c.dispatchSynthesis(msg)
	default:
		c.mu.Lock()
		control := c.control
		c.mu.Unlock()
		if control == nil {
			_ = c.Send(payloadschema.DeviceMessage{Type: TypeError, RequestID: msg.RequestID, Detail: "unsupported message type " + msg.Type})
			return
		}
		control.HandleControl(ctx, msg)
	}
}

func (c *Conn) dispatchRecognition(msg *payloadschema.DeviceMessage) {
	c.mu.Lock()
	emit := c.recognizers[msg.SessionID]
	if msg.Type == TypeRecognitionEnded {
		delete(c.recognizers, msg.SessionID)
	}
	c.mu.Unlock()
	if emit == nil {
		c.log.Debug().Str("session_id", msg.SessionID).Str("type", msg.Type).Msg("no recognizer for session")
		return
	}

	ev := speech.RecognitionEvent{SessionID: msg.SessionID}
	switch msg.Type {
	case TypeRecognitionStarted:
		ev.Type = speech.RecognitionStarted
	case TypeRecognitionResult:
		ev.Type = speech.RecognitionResult
		ev.Text = msg.Text
		ev.Final = msg.Final
		ev.Confidence = msg.Confidence
	case TypeRecognitionError:
		ev.Type = speech.RecognitionFailed
		ev.Err = speech.NewRecognitionError(msg.Code, msg.Detail)
	case TypeRecognitionEnded:
		ev.Type = speech.RecognitionEnded
	}
	emit(ev)
}

func (c *Conn) dispatchSynthesis(msg *payloadschema.DeviceMessage) {
	c.mu.Lock()
	emit := c.synthesizers[msg.UtteranceID]
	if msg.Type != TypeSynthesisStarted {
		delete(c.synthesizers, msg.UtteranceID)
	}
	c.mu.Unlock()
	if emit == nil {
		return
	}

	ev := speech.SynthesisEvent{UtteranceID: msg.UtteranceID}
	switch msg.Type {
	case TypeSynthesisStarted:
		ev.Type = speech.SynthesisStarted
	case TypeSynthesisEnded:
		ev.Type = speech.SynthesisEnded
	case TypeSynthesisError:
		ev.Type = speech.SynthesisFailed
		detail := strings.TrimSpace(msg.Detail)
		if detail == "" {
			detail = msg.Code
		}
		ev.Err = fmt.Errorf("device synthesis error: %s", detail)
	}
	emit(ev)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case out := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(out.messageType, out.payload); err != nil {
				c.log.Debug().Err(err).Msg("write device message")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Conn) shutdown() {
	c.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audio != nil {
		close(c.audio)
		c.audio = nil
		c.audioSession = ""
	}
	c.recognizers = make(map[string]func(speech.RecognitionEvent))
	c.synthesizers = make(map[string]func(speech.SynthesisEvent))
}

func toVoices(in []payloadschema.DeviceVoice) []speech.Voice {
	out := make([]speech.Voice, 0, len(in))
	for _, voice := range in {
		out = append(out, speech.Voice{
			Name:         voice.Name,
			Locale:       voice.Lang,
			Default:      voice.Default,
			LocalService: voice.LocalService,
		})
	}
	return out
}
