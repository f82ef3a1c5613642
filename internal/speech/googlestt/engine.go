package googlestt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"horse.fit/parley/internal/speech"
)

const DefaultSampleRate = 16000

type Config struct {
	Encoding   string
	SampleRate int
}

type streamFunc func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error)

// Engine recognizes device audio with Google Cloud Speech-to-Text streaming.
type Engine struct {
	client     *gspeech.Client
	newStream  streamFunc
	audio      speech.AudioSource
	encoding   speechpb.RecognitionConfig_AudioEncoding
	sampleRate int32
	log        zerolog.Logger

	mu       sync.Mutex
	sessions map[string]context.CancelFunc
}

// New creates a client with application default credentials.
func New(ctx context.Context, cfg Config, audio speech.AudioSource, log zerolog.Logger) (*Engine, error) {
	encoding, err := audioEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	client, err := gspeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	engine := newEngine(func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
		return client.StreamingRecognize(ctx)
	}, audio, encoding, cfg.SampleRate, log)
	engine.client = client
	return engine, nil
}

func newEngine(newStream streamFunc, audio speech.AudioSource, encoding speechpb.RecognitionConfig_AudioEncoding, sampleRate int, log zerolog.Logger) *Engine {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Engine{
		newStream:  newStream,
		audio:      audio,
		encoding:   encoding,
		sampleRate: int32(sampleRate),
		log:        log,
		sessions:   make(map[string]context.CancelFunc),
	}
}

func (e *Engine) Available() bool {
	return e != nil && e.newStream != nil && e.audio != nil
}

// Start opens one streaming recognize call and returns once the config is
// sent. Audio and responses are pumped in the background.
func (e *Engine) Start(ctx context.Context, req speech.RecognitionRequest, emit func(speech.RecognitionEvent)) error {
	sessionCtx, cancel := context.WithCancel(ctx)

	stream, err := e.newStream(sessionCtx)
	if err != nil {
		cancel()
		return toRecognitionError(err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   e.encoding,
					SampleRateHertz:            e.sampleRate,
					LanguageCode:               req.Locale,
					EnableAutomaticPunctuation: true,
				},
				InterimResults:  req.InterimResults,
				SingleUtterance: !req.Continuous,
			},
		},
	})
	if err != nil {
		cancel()
		return toRecognitionError(err)
	}

	chunks, err := e.audio.OpenAudio(sessionCtx, req.SessionID, req.Locale)
	if err != nil {
		cancel()
		_ = stream.CloseSend()
		return speech.NewRecognitionError(speech.CodeAudioCapture, err.Error())
	}

	e.mu.Lock()
	e.sessions[req.SessionID] = cancel
	e.mu.Unlock()

	go e.pumpAudio(sessionCtx, stream, chunks)
	go e.receive(sessionCtx, req.SessionID, stream, emit)

	emit(speech.RecognitionEvent{SessionID: req.SessionID, Type: speech.RecognitionStarted})
	return nil
}

func (e *Engine) Stop(sessionID string) error {
	e.mu.Lock()
	cancel, ok := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	e.audio.CloseAudio(sessionID)
	if ok {
		cancel()
	}
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	for id, cancel := range e.sessions {
		cancel()
		delete(e.sessions, id)
	}
	e.mu.Unlock()
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *Engine) pumpAudio(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, chunks <-chan []byte) {
	defer func() {
		_ = stream.CloseSend()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if len(chunk) == 0 {
				continue
			}
			err := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
			})
			if err != nil {
				e.log.Debug().Err(err).Msg("send audio to speech stream")
				return
			}
		}
	}
}

func (e *Engine) receive(ctx context.Context, sessionID string, stream speechpb.Speech_StreamingRecognizeClient, emit func(speech.RecognitionEvent)) {
	defer e.forget(sessionID)

	for {
		resp, err := stream.Recv()
		if err != nil {
			if ev, ok := streamEnd(sessionID, err); ok && ctx.Err() == nil {
				emit(ev)
			}
			return
		}
		if st := resp.GetError(); st != nil && st.GetCode() != 0 {
			emit(speech.RecognitionEvent{
				SessionID: sessionID,
				Type:      speech.RecognitionFailed,
				Err:       toRecognitionError(status.ErrorProto(st)),
			})
			return
		}
		for _, result := range resp.GetResults() {
			alternatives := result.GetAlternatives()
			if len(alternatives) == 0 {
				continue
			}
			best := alternatives[0]
			text := strings.TrimSpace(best.GetTranscript())
			if text == "" {
				continue
			}
			emit(speech.RecognitionEvent{
				SessionID:  sessionID,
				Type:       speech.RecognitionResult,
				Text:       text,
				Final:      result.GetIsFinal(),
				Confidence: float64(best.GetConfidence()),
			})
		}
	}
}

func (e *Engine) forget(sessionID string) {
	e.mu.Lock()
	cancel, ok := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

// streamEnd maps a terminated stream onto the event the controller expects.
// ok is false when the stream was cancelled locally.
func streamEnd(sessionID string, err error) (speech.RecognitionEvent, bool) {
	if errors.Is(err, io.EOF) {
		return speech.RecognitionEvent{SessionID: sessionID, Type: speech.RecognitionEnded}, true
	}
	if errors.Is(err, context.Canceled) {
		return speech.RecognitionEvent{}, false
	}
	switch status.Code(err) {
	case codes.Canceled:
		return speech.RecognitionEvent{}, false
	case codes.OutOfRange:
		// Streams are capped at about five minutes of audio.
		return speech.RecognitionEvent{SessionID: sessionID, Type: speech.RecognitionEnded}, true
	}
	return speech.RecognitionEvent{
		SessionID: sessionID,
		Type:      speech.RecognitionFailed,
		Err:       toRecognitionError(err),
	}, true
}

func toRecognitionError(err error) *speech.RecognitionError {
	if err == nil {
		return nil
	}
	code := speech.CodeUnknown
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		code = speech.CodeNotAllowed
	case codes.InvalidArgument:
		code = speech.CodeLanguageNotSupported
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal:
		code = speech.CodeNetwork
	case codes.Aborted:
		code = speech.CodeAborted
	}
	return speech.NewRecognitionError(code, err.Error())
}

func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(strings.TrimSpace(encoding)) {
	case "", "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}
