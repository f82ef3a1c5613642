package translation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultLingvaURL = "https://lingva.ml"

// LingvaProvider calls a Lingva Translate instance.
type LingvaProvider struct {
	baseURL string
	client  *http.Client
}

func NewLingvaProvider(baseURL string, timeout time.Duration) *LingvaProvider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultLingvaURL
	}
	return &LingvaProvider{
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
	}
}

func (p *LingvaProvider) Name() string {
	return "lingva"
}

func (p *LingvaProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

type lingvaResponse struct {
	Translation string `json:"translation"`
	Error       string `json:"error"`
}

func (p *LingvaProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	source := strings.TrimSpace(req.SourceLang)
	if source == "" {
		source = "auto"
	}

	endpoint := fmt.Sprintf("%s/api/v1/%s/%s/%s",
		p.baseURL,
		url.PathEscape(source),
		url.PathEscape(req.TargetLang),
		url.PathEscape(req.Text),
	)

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lingva request: %w", err)
	}

	var parsed lingvaResponse
	if err := doJSON(p.client, httpReq, p.Name(), &parsed); err != nil {
		return nil, err
	}
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		return nil, providerError(p.Name(), 0, fmt.Errorf("%s", msg))
	}

	translated := strings.TrimSpace(parsed.Translation)
	if translated == "" {
		return nil, providerError(p.Name(), 0, ErrEmptyTranslation)
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}
