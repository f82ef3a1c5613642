package translation

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/parley/internal/langdetect"
	"horse.fit/parley/internal/language"
)

// DefaultTimeout bounds one provider request.
const DefaultTimeout = 8 * time.Second

const (
	// Fallback detection when the detector cannot classify a sample.
	fallbackDetectionCode       = language.EnglishCode
	fallbackDetectionConfidence = 0.3

	sourceAuto = "auto"
)

// Outcome says how a text was resolved.
type Outcome string

const (
	OutcomeSkipped    Outcome = "skipped"
	OutcomeCached     Outcome = "cached"
	OutcomeTranslated Outcome = "translated"
	OutcomeFailed     Outcome = "failed"
)

// Result is a translation with its provenance.
type Result struct {
	Text       string  `json:"text"`
	SourceLang string  `json:"source_lang"`
	TargetLang string  `json:"target_lang"`
	Provider   string  `json:"provider,omitempty"`
	Outcome    Outcome `json:"outcome"`
}

// Detection is a detected language with confidence in [0, 1].
type Detection = langdetect.Detection

// DetectFunc classifies text; ok is false when it cannot decide.
type DetectFunc func(text string) (Detection, bool)

type Options struct {
	Registry     *Registry
	Cache        *Cache
	Limiter      *RateLimiter
	Languages    *language.Registry
	IndianChain  []string
	DefaultChain []string
	Timeout      time.Duration
	Detect       DetectFunc
	Logger       zerolog.Logger
}

func DefaultIndianChain() []string {
	return []string{"google", "mymemory", "lingva", "gemini", "local"}
}

func DefaultGeneralChain() []string {
	return []string{"google", "lingva", "libretranslate", "mymemory", "gemini", "local"}
}

// Service translates text through an ordered provider chain with caching and
// per-provider rate limiting. Translate never fails: when every provider is
// exhausted the input text is returned unchanged and nothing is cached.
type Service struct {
	registry     *Registry
	cache        *Cache
	limiter      *RateLimiter
	languages    *language.Registry
	indianChain  []string
	defaultChain []string
	timeout      time.Duration
	detect       DetectFunc
	log          zerolog.Logger
	stats        statsCounters
}

func NewService(opts Options) *Service {
	s := &Service{
		registry:     opts.Registry,
		cache:        opts.Cache,
		limiter:      opts.Limiter,
		languages:    opts.Languages,
		indianChain:  opts.IndianChain,
		defaultChain: opts.DefaultChain,
		timeout:      opts.Timeout,
		detect:       opts.Detect,
		log:          opts.Logger.With().Str("component", "translation").Logger(),
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.cache == nil {
		s.cache = NewCache(NewMemoryStore(), DefaultCacheTTL, opts.Logger)
	}
	if s.limiter == nil {
		s.limiter = NewRateLimiter(DefaultIntervals(), DefaultMinInterval)
	}
	if s.languages == nil {
		s.languages = language.Builtin()
	}
	if len(s.indianChain) == 0 {
		s.indianChain = DefaultIndianChain()
	}
	if len(s.defaultChain) == 0 {
		s.defaultChain = DefaultGeneralChain()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.detect == nil {
		s.detect = langdetect.Detect
	}
	return s
}

func (s *Service) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	return s.TranslateDetailed(ctx, text, sourceLang, targetLang).Text
}

// TranslateMany translates texts in order through the same chain.
func (s *Service) TranslateMany(ctx context.Context, texts []string, sourceLang, targetLang string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = s.Translate(ctx, text, sourceLang, targetLang)
	}
	return out
}

func (s *Service) TranslateDetailed(ctx context.Context, text, sourceLang, targetLang string) Result {
	s.stats.total.Add(1)

	if strings.TrimSpace(text) == "" {
		s.stats.skipped.Add(1)
		return Result{Text: text, SourceLang: sourceLang, TargetLang: targetLang, Outcome: OutcomeSkipped}
	}

	if isAutoSource(sourceLang) {
		sourceLang = s.DetectLanguage(text).Code
	}

	source := s.languages.Lookup(sourceLang)
	target := s.languages.Lookup(targetLang)
	sourceCode := source.TranslationCode
	targetCode := target.TranslationCode
	result := Result{Text: text, SourceLang: sourceCode, TargetLang: targetCode}

	if strings.EqualFold(sourceCode, targetCode) {
		s.stats.skipped.Add(1)
		result.Outcome = OutcomeSkipped
		return result
	}

	if cached, ok := s.cache.Get(ctx, sourceCode, targetCode, text); ok {
		s.stats.cached.Add(1)
		result.Text = cached
		result.Outcome = OutcomeCached
		return result
	}

	chain := s.ChainFor(targetLang)
	for _, provider := range s.registry.Resolve(chain) {
		if ctx.Err() != nil {
			break
		}
		translated, ok := s.attempt(ctx, provider, text, sourceCode, targetCode)
		if !ok {
			continue
		}
		s.cache.Put(ctx, sourceCode, targetCode, text, translated)
		s.stats.translated.Add(1)
		result.Text = translated
		result.Provider = provider.Name()
		result.Outcome = OutcomeTranslated
		return result
	}

	s.stats.failed.Add(1)
	s.log.Warn().
		Str("source", sourceCode).
		Str("target", targetCode).
		Strs("chain", chain).
		Msg("translation providers exhausted; returning original text")
	result.Outcome = OutcomeFailed
	return result
}

// attempt runs one provider call and applies the acceptance rules: the call
// succeeded, returned non-empty text, and that text differs from the input.
func (s *Service) attempt(ctx context.Context, provider Provider, text, sourceCode, targetCode string) (string, bool) {
	name := provider.Name()
	log := s.log.With().Str("provider", name).Logger()

	if err := s.limiter.Acquire(ctx, name); err != nil {
		log.Debug().Err(err).Msg("rate limiter wait aborted")
		return "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := provider.Translate(callCtx, TranslateRequest{
		Text:       strings.TrimSpace(text),
		SourceLang: sourceCode,
		TargetLang: targetCode,
	})
	if err != nil {
		log.Debug().Err(err).Msg("provider failed")
		return "", false
	}
	if resp == nil {
		log.Debug().Msg("provider returned no response")
		return "", false
	}

	translated := strings.TrimSpace(resp.Text)
	if translated == "" {
		log.Debug().Msg("provider returned empty text")
		return "", false
	}
	if strings.EqualFold(translated, strings.TrimSpace(text)) {
		log.Debug().Msg("provider echoed input")
		return "", false
	}

	log.Debug().Int64("latency_ms", resp.LatencyMs).Msg("provider translated text")
	return translated, true
}

// ChainFor returns the provider order used for a target language.
func (s *Service) ChainFor(targetLang string) []string {
	chain := s.defaultChain
	if s.languages.Classify(targetLang) == language.GroupIndian {
		chain = s.indianChain
	}
	out := make([]string, len(chain))
	copy(out, chain)
	return out
}

// DetectLanguage never fails; undetectable text reports English with low confidence.
func (s *Service) DetectLanguage(text string) Detection {
	detection, ok := s.detect(text)
	if !ok || strings.TrimSpace(detection.Code) == "" {
		return Detection{Code: fallbackDetectionCode, Confidence: fallbackDetectionConfidence}
	}
	return detection
}

func (s *Service) SupportedLanguages() map[string]string {
	return s.languages.Supported()
}

func (s *Service) Stats() Stats {
	return s.stats.snapshot()
}

func (s *Service) Cache() *Cache {
	return s.cache
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func isAutoSource(code string) bool {
	trimmed := strings.TrimSpace(code)
	return trimmed == "" || strings.EqualFold(trimmed, sourceAuto)
}
