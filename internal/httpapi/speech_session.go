package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"horse.fit/parley/internal/config"
	"horse.fit/parley/internal/payloadschema"
	"horse.fit/parley/internal/speech"
	"horse.fit/parley/internal/speech/device"
	"horse.fit/parley/internal/speech/googlestt"
	"horse.fit/parley/internal/translation"
)

// Control messages sent by the app over the device socket.
const (
	controlRecognitionStart = "recognition.start"
	controlRecognitionStop  = "recognition.stop"
	controlSpeak            = "speak"
	controlSpeakCancel      = "speak.cancel"
	controlTranslate        = "translate"
	controlDetect           = "detect"
)

// Replies sent back to the app.
const (
	replyRecognitionPartial = "recognition.partial"
	replyRecognitionFinal   = "recognition.final"
	replyRecognitionError   = "recognition.error"
	replyRecognitionState   = "recognition.state"
	replySpeakDone          = "speak.done"
	replyTranslateResult    = "translate.result"
	replyDetectResult       = "detect.result"
)

const controlQueueSize = 32

// SpeechOptions configures the controllers built for every device socket.
// MaxRetries follows speech.RecognitionOptions: zero uses the default and a
// negative value disables retries.
type SpeechOptions struct {
	RecognitionBackend string
	GoogleSTT          googlestt.Config
	IdleTimeout        time.Duration
	MaxRetries         int
	SynthesisWatchdog  time.Duration
	Scheduler          speech.Scheduler
}

func (s *Server) handleSpeechSocket(c echo.Context) error {
	log := s.logger.With().Str("device_session", uuid.NewString()).Logger()

	conn, err := device.Accept(c.Response(), c.Request(), s.opts.AllowedOrigins, log)
	if err != nil {
		log.Warn().Err(err).Msg("device upgrade failed")
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	var recognizer speech.RecognitionEngine = conn
	if strings.EqualFold(s.speech.RecognitionBackend, config.RecognitionBackendGoogle) {
		cloud, err := googlestt.New(ctx, s.speech.GoogleSTT, conn, log)
		if err != nil {
			log.Warn().Err(err).Msg("cloud recognition unavailable, using device engine")
		} else {
			recognizer = cloud
			defer func() {
				if closeErr := cloud.Close(); closeErr != nil {
					log.Debug().Err(closeErr).Msg("close cloud recognition")
				}
			}()
		}
	}

	recognition := speech.NewRecognitionController(recognizer, speech.RecognitionOptions{
		Scheduler:   s.speech.Scheduler,
		IdleTimeout: s.speech.IdleTimeout,
		MaxRetries:  s.speech.MaxRetries,
		Logger:      log,
	})
	synthesis := speech.NewSynthesisController(conn, speech.SynthesisOptions{
		Scheduler: s.speech.Scheduler,
		Watchdog:  s.speech.SynthesisWatchdog,
		Logger:    log,
	})

	session := newSpeechSession(ctx, conn, speech.NewOrchestrator(s.languages, recognition, synthesis, log), s.translator, log)
	conn.SetControlHandler(session)

	log.Info().Str("remote_ip", c.RealIP()).Msg("device connected")
	runErr := conn.Run(ctx)
	cancel()
	session.close()
	log.Info().Msg("device disconnected")

	if runErr != nil {
		log.Debug().Err(runErr).Msg("device connection ended with error")
	}
	return nil
}

// speechSession routes app control messages to one orchestrator. Recognition
// and speech commands run in arrival order on a single worker; translation
// and detection replies run concurrently.
type speechSession struct {
	ctx          context.Context
	conn         *device.Conn
	orchestrator *speech.Orchestrator
	translator   *translation.Service
	log          zerolog.Logger

	queue     chan func()
	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

func newSpeechSession(ctx context.Context, conn *device.Conn, orchestrator *speech.Orchestrator, translator *translation.Service, log zerolog.Logger) *speechSession {
	ss := &speechSession{
		ctx:          ctx,
		conn:         conn,
		orchestrator: orchestrator,
		translator:   translator,
		log:          log,
		queue:        make(chan func(), controlQueueSize),
		done:         make(chan struct{}),
	}
	ss.wg.Add(1)
	go ss.work()
	return ss
}

func (ss *speechSession) work() {
	defer ss.wg.Done()
	for {
		select {
		case <-ss.done:
			return
		case job := <-ss.queue:
			job()
		}
	}
}

func (ss *speechSession) close() {
	ss.closeOnce.Do(func() {
		close(ss.done)
	})
	ss.wg.Wait()
	ss.orchestrator.Close()
}

func (ss *speechSession) HandleControl(_ context.Context, msg *payloadschema.DeviceMessage) {
	switch msg.Type {
	case controlRecognitionStart:
		ss.enqueue(msg, func() { ss.startRecognition(msg) })
	case controlRecognitionStop:
		ss.enqueue(msg, ss.orchestrator.StopRecognition)
	case controlSpeak:
		ss.enqueue(msg, func() { ss.speak(msg) })
	case controlSpeakCancel:
		ss.enqueue(msg, ss.orchestrator.CancelSpeech)
	case controlTranslate:
		ss.spawn(func() { ss.translate(msg) })
	case controlDetect:
		ss.spawn(func() { ss.detect(msg) })
	default:
		ss.log.Debug().Str("type", msg.Type).Msg("ignoring device message")
	}
}

func (ss *speechSession) enqueue(msg *payloadschema.DeviceMessage, job func()) {
	select {
	case <-ss.done:
	case ss.queue <- job:
	default:
		ss.reply(payloadschema.DeviceMessage{
			Type:      device.TypeError,
			RequestID: msg.RequestID,
			Detail:    "session busy, dropped " + msg.Type,
		})
	}
}

func (ss *speechSession) spawn(job func()) {
	ss.wg.Add(1)
	go func() {
		defer ss.wg.Done()
		job()
	}()
}

func (ss *speechSession) startRecognition(msg *payloadschema.DeviceMessage) {
	requestID := msg.RequestID
	ok := ss.orchestrator.StartRecognitionWithHandlers(ss.ctx, msg.Language, speech.RecognitionHandlers{
		OnPartial: func(text string) {
			ss.reply(payloadschema.DeviceMessage{Type: replyRecognitionPartial, RequestID: requestID, Text: text})
		},
		OnFinal: func(text string) {
			ss.reply(payloadschema.DeviceMessage{Type: replyRecognitionFinal, RequestID: requestID, Text: text, Final: true})
		},
		OnError: func(rerr *speech.RecognitionError) {
			ss.reply(recognitionErrorReply(requestID, rerr))
		},
		OnState: func(state speech.RecognitionState) {
			ss.reply(payloadschema.DeviceMessage{Type: replyRecognitionState, RequestID: requestID, State: state.String()})
		},
	})
	if !ok {
		ss.reply(payloadschema.DeviceMessage{
			Type:      replyRecognitionError,
			RequestID: requestID,
			Code:      "unavailable",
			Category:  string(speech.CategoryDevice),
			Detail:    speech.ErrUnavailable.Error(),
		})
	}
}

func recognitionErrorReply(requestID string, rerr *speech.RecognitionError) payloadschema.DeviceMessage {
	msg := payloadschema.DeviceMessage{Type: replyRecognitionError, RequestID: requestID}
	if rerr == nil {
		return msg
	}
	msg.Code = rerr.Code
	msg.Category = string(rerr.Category)
	msg.Detail = rerr.Message
	msg.Remediation = rerr.Remediation
	return msg
}

func (ss *speechSession) speak(msg *payloadschema.DeviceMessage) {
	result := ss.orchestrator.Speak(ss.ctx, msg.Text, msg.Language, nil)
	requestID := msg.RequestID
	ss.spawn(func() {
		var outcome speech.SpeakResult
		select {
		case <-ss.done:
			return
		case outcome = <-result:
		}
		reply := payloadschema.DeviceMessage{
			Type:        replySpeakDone,
			RequestID:   requestID,
			UtteranceID: outcome.UtteranceID,
			Outcome:     outcome.State.String(),
			Voice:       outcome.Voice,
		}
		if outcome.Err != nil {
			reply.Detail = outcome.Err.Error()
		}
		ss.reply(reply)
	})
}

func (ss *speechSession) translate(msg *payloadschema.DeviceMessage) {
	result := ss.translator.TranslateDetailed(ss.ctx, msg.Text, msg.Source, msg.Target)
	ss.reply(payloadschema.DeviceMessage{
		Type:      replyTranslateResult,
		RequestID: msg.RequestID,
		Text:      result.Text,
		Source:    result.SourceLang,
		Target:    result.TargetLang,
		Outcome:   string(result.Outcome),
	})
}

func (ss *speechSession) detect(msg *payloadschema.DeviceMessage) {
	detection := ss.translator.DetectLanguage(msg.Text)
	ss.reply(payloadschema.DeviceMessage{
		Type:       replyDetectResult,
		RequestID:  msg.RequestID,
		Language:   detection.Code,
		Confidence: detection.Confidence,
	})
}

func (ss *speechSession) reply(msg payloadschema.DeviceMessage) {
	if err := ss.conn.Send(msg); err != nil && !errors.Is(err, device.ErrClosed) {
		ss.log.Warn().Err(err).Str("type", msg.Type).Msg("send device reply failed")
	}
}
