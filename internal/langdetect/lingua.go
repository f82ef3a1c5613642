package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detection is a detected ISO 639-1 code with the detector's confidence in [0, 1].
type Detection struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

func DetectISO6391(text string) string {
	detection, ok := Detect(text)
	if !ok {
		return ""
	}
	return detection.Code
}

// Detect returns the most likely language of text. ok is false for samples
// too short to classify or languages without a two-letter code.
func Detect(text string) (Detection, bool) {
	sample := strings.TrimSpace(text)
	if !longEnough(sample) {
		return Detection{}, false
	}

	values := getDetector().ComputeLanguageConfidenceValues(sample)
	if len(values) == 0 {
		return Detection{}, false
	}

	best := values[0]
	code := strings.ToLower(best.Language().IsoCode639_1().String())
	if len(code) != 2 {
		return Detection{}, false
	}
	return Detection{Code: code, Confidence: best.Value()}, true
}

func longEnough(sample string) bool {
	if sample == "" {
		return false
	}
	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
			if letterCount >= minLetters {
				return true
			}
		}
	}
	return false
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
