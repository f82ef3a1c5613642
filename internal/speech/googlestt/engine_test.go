package googlestt

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"horse.fit/parley/internal/speech"
)

type fakeStream struct {
	grpc.ClientStream

	mu        sync.Mutex
	sent      []*speechpb.StreamingRecognizeRequest
	closed    bool
	responses chan *speechpb.StreamingRecognizeResponse
	recvErr   chan error
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		responses: make(chan *speechpb.StreamingRecognizeResponse, 4),
		recvErr:   make(chan error, 1),
	}
}

func (s *fakeStream) Send(req *speechpb.StreamingRecognizeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	return nil
}

func (s *fakeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	select {
	case resp := <-s.responses:
		return resp, nil
	case err := <-s.recvErr:
		return nil, err
	}
}

func (s *fakeStream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) Sent() []*speechpb.StreamingRecognizeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*speechpb.StreamingRecognizeRequest(nil), s.sent...)
}

type fakeAudio struct {
	mu     sync.Mutex
	chunks chan []byte
	opened []string
	closed []string
}

func (a *fakeAudio) OpenAudio(_ context.Context, sessionID, _ string) (<-chan []byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opened = append(a.opened, sessionID)
	return a.chunks, nil
}

func (a *fakeAudio) CloseAudio(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = append(a.closed, sessionID)
}

func TestEngineStreamsAudioAndEmitsResults(t *testing.T) {
	t.Parallel()

	stream := newFakeStream()
	audio := &fakeAudio{chunks: make(chan []byte, 2)}
	engine := newEngine(func(context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
		return stream, nil
	}, audio, speechpb.RecognitionConfig_LINEAR16, 0, zerolog.Nop())

	events := make(chan speech.RecognitionEvent, 8)
	err := engine.Start(context.Background(), speech.RecognitionRequest{
		SessionID:      "s1",
		Locale:         "hi-IN",
		Continuous:     true,
		InterimResults: true,
	}, func(ev speech.RecognitionEvent) { events <- ev })
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if ev := nextEvent(t, events); ev.Type != speech.RecognitionStarted {
		t.Fatalf("expected started event, got %+v", ev)
	}

	config := stream.Sent()[0].GetStreamingConfig()
	if config == nil || config.GetConfig().GetLanguageCode() != "hi-IN" || !config.GetInterimResults() || config.GetSingleUtterance() {
		t.Fatalf("unexpected streaming config: %+v", config)
	}
	if config.GetConfig().GetSampleRateHertz() != DefaultSampleRate {
		t.Fatalf("unexpected sample rate: %d", config.GetConfig().GetSampleRateHertz())
	}

	audio.chunks <- []byte{1, 2, 3}
	deadline := time.Now().Add(3 * time.Second)
	for len(stream.Sent()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sent := stream.Sent(); len(sent) < 2 || len(sent[1].GetAudioContent()) != 3 {
		t.Fatalf("expected audio chunk to be forwarded, got %d requests", len(sent))
	}

	stream.responses <- &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal:      true,
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " नमस्ते ", Confidence: 0.8}},
		}},
	}
	ev := nextEvent(t, events)
	if ev.Type != speech.RecognitionResult || !ev.Final || ev.Text != "नमस्ते" {
		t.Fatalf("unexpected result event: %+v", ev)
	}

	stream.recvErr <- io.EOF
	if ev := nextEvent(t, events); ev.Type != speech.RecognitionEnded {
		t.Fatalf("expected ended event, got %+v", ev)
	}

	_ = engine.Stop("s1")
	if len(audio.closed) != 1 || audio.closed[0] != "s1" {
		t.Fatalf("expected audio to be closed, got %v", audio.closed)
	}
}

func TestEngineStartErrorIsClassified(t *testing.T) {
	t.Parallel()

	engine := newEngine(func(context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
		return nil, status.Error(codes.PermissionDenied, "no credentials")
	}, &fakeAudio{}, speechpb.RecognitionConfig_LINEAR16, 16000, zerolog.Nop())

	err := engine.Start(context.Background(), speech.RecognitionRequest{SessionID: "s1"}, func(speech.RecognitionEvent) {})
	var rerr *speech.RecognitionError
	if !errors.As(err, &rerr) || rerr.Code != speech.CodeNotAllowed || rerr.Transient {
		t.Fatalf("unexpected start error: %v", err)
	}
}

func TestStreamEndMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantOK   bool
		wantType speech.RecognitionEventType
		wantCode string
	}{
		{name: "eof", err: io.EOF, wantOK: true, wantType: speech.RecognitionEnded},
		{name: "out of range", err: status.Error(codes.OutOfRange, "max duration"), wantOK: true, wantType: speech.RecognitionEnded},
		{name: "canceled", err: status.Error(codes.Canceled, "bye")},
		{name: "context canceled", err: context.Canceled},
		{name: "permission", err: status.Error(codes.PermissionDenied, "x"), wantOK: true, wantType: speech.RecognitionFailed, wantCode: speech.CodeNotAllowed},
		{name: "unauthenticated", err: status.Error(codes.Unauthenticated, "x"), wantOK: true, wantType: speech.RecognitionFailed, wantCode: speech.CodeNotAllowed},
		{name: "invalid argument", err: status.Error(codes.InvalidArgument, "x"), wantOK: true, wantType: speech.RecognitionFailed, wantCode: speech.CodeLanguageNotSupported},
		{name: "unavailable", err: status.Error(codes.Unavailable, "x"), wantOK: true, wantType: speech.RecognitionFailed, wantCode: speech.CodeNetwork},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "x"), wantOK: true, wantType: speech.RecognitionFailed, wantCode: speech.CodeNetwork},
		{name: "exhausted", err: status.Error(codes.ResourceExhausted, "x"), wantOK: true, wantType: speech.RecognitionFailed, wantCode: speech.CodeNetwork},
		{name: "internal", err: status.Error(codes.Internal, "x"), wantOK: true, wantType: speech.RecognitionFailed, wantCode: speech.CodeNetwork},
		{name: "plain error", err: errors.New("x"), wantOK: true, wantType: speech.RecognitionFailed, wantCode: speech.CodeUnknown},
	}

	for _, tc := range tests {
		ev, ok := streamEnd("s1", tc.err)
		if ok != tc.wantOK {
			t.Fatalf("%s: ok = %t, want %t", tc.name, ok, tc.wantOK)
		}
		if !ok {
			continue
		}
		if ev.Type != tc.wantType {
			t.Fatalf("%s: type = %s, want %s", tc.name, ev.Type, tc.wantType)
		}
		if tc.wantCode != "" && (ev.Err == nil || ev.Err.Code != tc.wantCode) {
			t.Fatalf("%s: unexpected error %+v", tc.name, ev.Err)
		}
	}
}

func TestAudioEncoding(t *testing.T) {
	t.Parallel()

	if got, err := audioEncoding("webm_opus"); err != nil || got != speechpb.RecognitionConfig_WEBM_OPUS {
		t.Fatalf("audioEncoding(webm_opus) = %v, %v", got, err)
	}
	if got, err := audioEncoding(""); err != nil || got != speechpb.RecognitionConfig_LINEAR16 {
		t.Fatalf("audioEncoding(\"\") = %v, %v", got, err)
	}
	if _, err := audioEncoding("mp3"); err == nil {
		t.Fatalf("expected mp3 to be rejected")
	}
}

func nextEvent(t *testing.T, events <-chan speech.RecognitionEvent) speech.RecognitionEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("no recognition event received")
		return speech.RecognitionEvent{}
	}
}
