package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGoogleTranslateURL is the keyless gtx endpoint used by browser extensions.
const DefaultGoogleTranslateURL = "https://translate.googleapis.com/translate_a/single"

// GoogleProvider calls the free Google Translate gtx endpoint.
type GoogleProvider struct {
	endpoint string
	client   *http.Client
}

func NewGoogleProvider(endpoint string, timeout time.Duration) *GoogleProvider {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultGoogleTranslateURL
	}
	return &GoogleProvider{
		endpoint: endpoint,
		client:   newHTTPClient(timeout),
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *GoogleProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	source := strings.TrimSpace(req.SourceLang)
	if source == "" {
		source = "auto"
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", source)
	query.Set("tl", req.TargetLang)
	query.Set("dt", "t")
	query.Set("q", req.Text)

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build google request: %w", err)
	}

	var payload []json.RawMessage
	if err := doJSON(p.client, httpReq, p.Name(), &payload); err != nil {
		return nil, err
	}

	translated, detected, err := parseGTXPayload(payload)
	if err != nil {
		return nil, providerError(p.Name(), 0, err)
	}
	if detected == "" {
		detected = req.SourceLang
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   detected,
		TargetLang:   req.TargetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

// parseGTXPayload joins the translated segments of a gtx response:
// [[["hola","hello",...],...], null, "en", ...].
func parseGTXPayload(payload []json.RawMessage) (string, string, error) {
	if len(payload) == 0 {
		return "", "", fmt.Errorf("gtx response is empty")
	}

	var segments [][]any
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", "", fmt.Errorf("gtx segments: %w", err)
	}

	var b strings.Builder
	for _, segment := range segments {
		if len(segment) == 0 {
			continue
		}
		if text, ok := segment[0].(string); ok {
			b.WriteString(text)
		}
	}
	translated := strings.TrimSpace(b.String())
	if translated == "" {
		return "", "", ErrEmptyTranslation
	}

	var detected string
	if len(payload) > 2 {
		_ = json.Unmarshal(payload[2], &detected)
	}
	return translated, detected, nil
}
