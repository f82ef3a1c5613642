package speech

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable is returned when the device has no capable recognition engine.
	ErrUnavailable          = errors.New("speech recognition is not available on this device")
	ErrSynthesisUnavailable = errors.New("speech synthesis is not available on this device")
)

// Recognition error codes as reported by engines.
const (
	CodeNoSpeech             = "no-speech"
	CodeNetwork              = "network"
	CodeAborted              = "aborted"
	CodeUnknown              = "unknown"
	CodeNotAllowed           = "not-allowed"
	CodeServiceNotAllowed    = "service-not-allowed"
	CodeAudioCapture         = "audio-capture"
	CodeLanguageNotSupported = "language-not-supported"
	CodeBadGrammar           = "bad-grammar"
)

type ErrorCategory string

const (
	CategoryPermission          ErrorCategory = "permission"
	CategoryDevice              ErrorCategory = "device"
	CategoryNetwork             ErrorCategory = "network"
	CategoryNoSpeech            ErrorCategory = "no_speech"
	CategoryUnsupportedLanguage ErrorCategory = "unsupported_language"
	CategoryAborted             ErrorCategory = "aborted"
	CategoryUnknown             ErrorCategory = "unknown"
)

// RecognitionError is a categorized recognition failure. Transient errors are
// retried by the controller; Terminal is set on the error handed to OnError.
type RecognitionError struct {
	Code        string        `json:"code"`
	Category    ErrorCategory `json:"category"`
	Message     string        `json:"message"`
	Remediation string        `json:"remediation,omitempty"`
	Detail      string        `json:"detail,omitempty"`
	Transient   bool          `json:"transient"`
	Terminal    bool          `json:"terminal"`
}

func (e *RecognitionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return fmt.Sprintf("recognition %s: %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("recognition %s: %s", e.Code, e.Message)
}

type errorClass struct {
	category    ErrorCategory
	transient   bool
	message     string
	remediation string
}

var recognitionErrorClasses = map[string]errorClass{
	CodeNoSpeech: {
		category:    CategoryNoSpeech,
		transient:   true,
		message:     "No speech was detected",
		remediation: "Speak closer to the microphone and check that it is not muted.",
	},
	CodeNetwork: {
		category:    CategoryNetwork,
		transient:   true,
		message:     "The speech service could not be reached",
		remediation: "Check your internet connection and try again.",
	},
	CodeAborted: {
		category:    CategoryAborted,
		transient:   true,
		message:     "Speech recognition was interrupted",
		remediation: "Start the recording again.",
	},
	CodeUnknown: {
		category:    CategoryUnknown,
		transient:   true,
		message:     "Speech recognition failed",
		remediation: "Try again. If the problem persists, reload the page.",
	},
	CodeNotAllowed: {
		category:    CategoryPermission,
		message:     "Microphone access was denied",
		remediation: "Allow microphone access in your browser settings and start again.",
	},
	CodeServiceNotAllowed: {
		category:    CategoryPermission,
		message:     "The speech service is not allowed on this page",
		remediation: "Use a supported browser over HTTPS, or enable speech services.",
	},
	CodeAudioCapture: {
		category:    CategoryDevice,
		message:     "No microphone was found",
		remediation: "Connect a microphone and make sure no other application is using it.",
	},
	CodeLanguageNotSupported: {
		category:    CategoryUnsupportedLanguage,
		message:     "This language is not supported for speech recognition",
		remediation: "Pick another language or type your answer instead.",
	},
	CodeBadGrammar: {
		category:    CategoryUnsupportedLanguage,
		message:     "The recognition grammar was rejected",
		remediation: "Pick another language or type your answer instead.",
	},
}

// NewRecognitionError classifies an engine error code. Unrecognized codes are
// treated as transient unknown errors.
func NewRecognitionError(code, detail string) *RecognitionError {
	code = strings.ToLower(strings.TrimSpace(code))
	class, ok := recognitionErrorClasses[code]
	if !ok {
		class = recognitionErrorClasses[CodeUnknown]
		if detail == "" {
			detail = code
		} else if code != "" {
			detail = code + ": " + detail
		}
		code = CodeUnknown
	}
	return &RecognitionError{
		Code:        code,
		Category:    class.category,
		Message:     class.message,
		Remediation: class.remediation,
		Detail:      strings.TrimSpace(detail),
		Transient:   class.transient,
	}
}

// AsRecognitionError returns err as a *RecognitionError, classifying foreign
// errors as unknown.
func AsRecognitionError(err error) *RecognitionError {
	if err == nil {
		return nil
	}
	var rerr *RecognitionError
	if errors.As(err, &rerr) {
		return rerr
	}
	return NewRecognitionError(CodeUnknown, err.Error())
}
