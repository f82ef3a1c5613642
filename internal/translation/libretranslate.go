package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultLibreTranslateURL = "https://libretranslate.com"

// LibreTranslateProvider calls a LibreTranslate server.
type LibreTranslateProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewLibreTranslateProvider(baseURL, apiKey string, timeout time.Duration) *LibreTranslateProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultLibreTranslateURL
	}
	return &LibreTranslateProvider{
		endpoint: baseURL + "/translate",
		apiKey:   strings.TrimSpace(apiKey),
		client:   newHTTPClient(timeout),
	}
}

func (p *LibreTranslateProvider) Name() string {
	return "libretranslate"
}

func (p *LibreTranslateProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

type libreTranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

func (p *LibreTranslateProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	source := normalizeLangCode(req.SourceLang)
	if source == "" {
		source = "auto"
	}
	target := normalizeLangCode(req.TargetLang)
	if target == "" {
		return nil, fmt.Errorf("target language is required")
	}

	body, err := json.Marshal(libreTranslateRequest{
		Q:      req.Text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal libretranslate request: %w", err)
	}

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build libretranslate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var parsed libreTranslateResponse
	if err := doJSON(p.client, httpReq, p.Name(), &parsed); err != nil {
		return nil, err
	}
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		return nil, providerError(p.Name(), 0, fmt.Errorf("%s", msg))
	}

	translated := strings.TrimSpace(parsed.TranslatedText)
	if translated == "" {
		return nil, providerError(p.Name(), 0, ErrEmptyTranslation)
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   source,
		TargetLang:   target,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}
