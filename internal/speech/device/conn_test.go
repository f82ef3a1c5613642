package device

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"horse.fit/parley/internal/payloadschema"
	"horse.fit/parley/internal/speech"
)

func startBridge(t *testing.T, control ControlHandler) (*Conn, *websocket.Conn) {
	t.Helper()

	accepted := make(chan *Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Accept(w, r, nil, zerolog.Nop())
		if err != nil {
			t.Errorf("Accept() error = %v", err)
			return
		}
		if control != nil {
			conn.SetControlHandler(control)
		}
		accepted <- conn
		_ = conn.Run(context.Background())
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial bridge: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	select {
	case conn := <-accepted:
		return conn, client
	case <-time.After(3 * time.Second):
		t.Fatalf("bridge connection was not accepted")
		return nil, nil
	}
}

func readMessage(t *testing.T, client *websocket.Conn) payloadschema.DeviceMessage {
	t.Helper()
	_ = client.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg payloadschema.DeviceMessage
	if err := client.ReadJSON(&msg); err != nil {
		t.Fatalf("read device message: %v", err)
	}
	return msg
}

func sendHello(t *testing.T, client *websocket.Conn) {
	t.Helper()
	hello := map[string]any{
		"type":         "hello",
		"capabilities": map[string]bool{"recognition": true, "synthesis": true},
		"voices": []map[string]any{
			{"name": "Google हिन्दी", "lang": "hi-IN"},
			{"name": "Samantha", "lang": "en-US", "default": true},
		},
	}
	if err := client.WriteJSON(hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}
}

func TestHelloAnnouncesCapabilitiesAndVoices(t *testing.T) {
	t.Parallel()

	conn, client := startBridge(t, nil)
	if conn.Available() {
		t.Fatalf("expected recognition to be unavailable before hello")
	}
	sendHello(t, client)

	voices, err := conn.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices() error = %v", err)
	}
	if len(voices) != 2 || voices[0].Locale != "hi-IN" || !voices[1].Default {
		t.Fatalf("unexpected voices: %+v", voices)
	}
	if !conn.Available() {
		t.Fatalf("expected recognition to be available after hello")
	}
}

func TestRecognitionRoundTrip(t *testing.T) {
	t.Parallel()

	conn, client := startBridge(t, nil)
	sendHello(t, client)

	events := make(chan speech.RecognitionEvent, 4)
	err := conn.Start(context.Background(), speech.RecognitionRequest{SessionID: "s1", Locale: "hi-IN"}, func(ev speech.RecognitionEvent) {
		events <- ev
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cmd := readMessage(t, client)
	if cmd.Type != TypeRecognitionStart || cmd.SessionID != "s1" || cmd.Locale != "hi-IN" {
		t.Fatalf("unexpected start command: %+v", cmd)
	}

	_ = client.WriteJSON(map[string]any{"type": TypeRecognitionResult, "session_id": "s1", "text": "नमस्ते", "final": true, "confidence": 0.9})
	_ = client.WriteJSON(map[string]any{"type": TypeRecognitionError, "session_id": "s1", "code": "not-allowed"})
	_ = client.WriteJSON(map[string]any{"type": TypeRecognitionResult, "session_id": "other", "text": "ignored"})

	first := waitEvent(t, events)
	if first.Type != speech.RecognitionResult || !first.Final || first.Text != "नमस्ते" || first.Confidence != 0.9 {
		t.Fatalf("unexpected result event: %+v", first)
	}
	second := waitEvent(t, events)
	if second.Type != speech.RecognitionFailed || second.Err == nil || second.Err.Category != speech.CategoryPermission {
		t.Fatalf("unexpected error event: %+v", second)
	}

	if err := conn.Stop("s1"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if stop := readMessage(t, client); stop.Type != TypeRecognitionStop || stop.SessionID != "s1" {
		t.Fatalf("unexpected stop command: %+v", stop)
	}
}

func waitEvent(t *testing.T, events <-chan speech.RecognitionEvent) speech.RecognitionEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("no recognition event received")
		return speech.RecognitionEvent{}
	}
}

func TestSynthesisRoundTrip(t *testing.T) {
	t.Parallel()

	conn, client := startBridge(t, nil)
	sendHello(t, client)

	events := make(chan speech.SynthesisEvent, 2)
	err := conn.Speak(context.Background(), speech.SynthesisRequest{
		UtteranceID: "u1",
		Text:        "hello",
		Locale:      "en-US",
		Voice:       "Samantha",
		Rate:        0.85,
		Pitch:       1,
	}, func(ev speech.SynthesisEvent) { events <- ev })
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	cmd := readMessage(t, client)
	if cmd.Type != TypeSynthesisSpeak || cmd.UtteranceID != "u1" || cmd.Voice != "Samantha" || cmd.Rate != 0.85 {
		t.Fatalf("unexpected speak command: %+v", cmd)
	}

	_ = client.WriteJSON(map[string]any{"type": TypeSynthesisEnded, "utterance_id": "u1"})
	select {
	case ev := <-events:
		if ev.Type != speech.SynthesisEnded || ev.UtteranceID != "u1" {
			t.Fatalf("unexpected synthesis event: %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no synthesis event received")
	}
}

func TestInvalidFrameIsAnsweredWithError(t *testing.T) {
	t.Parallel()

	_, client := startBridge(t, nil)
	if err := client.WriteMessage(websocket.TextMessage, []byte(`{"type":"engine.recognition.result","text":"no session"}`)); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	reply := readMessage(t, client)
	if reply.Type != TypeError || !strings.Contains(reply.Detail, "schema validation failed") {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestAudioFramesReachOpenSession(t *testing.T) {
	t.Parallel()

	conn, client := startBridge(t, nil)
	chunks, err := conn.OpenAudio(context.Background(), "s9", "en-US")
	if err != nil {
		t.Fatalf("OpenAudio() error = %v", err)
	}
	if cmd := readMessage(t, client); cmd.Type != TypeAudioStart || cmd.SessionID != "s9" {
		t.Fatalf("unexpected audio command: %+v", cmd)
	}

	if err := client.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	select {
	case chunk := <-chunks:
		if len(chunk) != 4 || chunk[3] != 4 {
			t.Fatalf("unexpected chunk: %v", chunk)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("audio chunk was not forwarded")
	}

	conn.CloseAudio("s9")
	if _, open := <-chunks; open {
		t.Fatalf("expected audio channel to be closed")
	}
	if cmd := readMessage(t, client); cmd.Type != TypeAudioStop {
		t.Fatalf("unexpected audio command: %+v", cmd)
	}
}

func TestControlMessagesReachHandler(t *testing.T) {
	t.Parallel()

	received := make(chan *payloadschema.DeviceMessage, 1)
	_, client := startBridge(t, ControlFunc(func(_ context.Context, msg *payloadschema.DeviceMessage) {
		received <- msg
	}))

	_ = client.WriteJSON(map[string]any{"type": "translate", "request_id": "r1", "text": "hello", "target": "es"})
	select {
	case msg := <-received:
		if msg.Type != "translate" || msg.RequestID != "r1" || msg.Target != "es" {
			t.Fatalf("unexpected control message: %+v", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("control message was not dispatched")
	}
}

func TestUpgraderChecksOrigin(t *testing.T) {
	t.Parallel()

	upgrader := NewUpgrader([]string{"https://app.example.com"})
	allowed := httptest.NewRequest(http.MethodGet, "/", nil)
	allowed.Header.Set("Origin", "https://app.example.com")
	denied := httptest.NewRequest(http.MethodGet, "/", nil)
	denied.Header.Set("Origin", "https://evil.example.com")

	if !upgrader.CheckOrigin(allowed) {
		t.Fatalf("expected configured origin to be allowed")
	}
	if upgrader.CheckOrigin(denied) {
		t.Fatalf("expected unknown origin to be rejected")
	}
}
