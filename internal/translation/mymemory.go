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

const DefaultMyMemoryURL = "https://api.mymemory.translated.net/get"

// MyMemoryProvider calls the MyMemory public translation memory API.
type MyMemoryProvider struct {
	endpoint string
	email    string
	client   *http.Client
}

func NewMyMemoryProvider(endpoint, email string, timeout time.Duration) *MyMemoryProvider {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultMyMemoryURL
	}
	return &MyMemoryProvider{
		endpoint: endpoint,
		email:    strings.TrimSpace(email),
		client:   newHTTPClient(timeout),
	}
}

func (p *MyMemoryProvider) Name() string {
	return "mymemory"
}

func (p *MyMemoryProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

func (p *MyMemoryProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	source := strings.TrimSpace(req.SourceLang)
	if source == "" || strings.EqualFold(source, "auto") {
		return nil, providerError(p.Name(), 0, fmt.Errorf("source language is required"))
	}

	query := url.Values{}
	query.Set("q", req.Text)
	query.Set("langpair", source+"|"+req.TargetLang)
	if p.email != "" {
		query.Set("de", p.email)
	}

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build mymemory request: %w", err)
	}

	var parsed myMemoryResponse
	if err := doJSON(p.client, httpReq, p.Name(), &parsed); err != nil {
		return nil, err
	}

	// responseStatus is sometimes a number and sometimes a quoted number.
	status := strings.Trim(strings.TrimSpace(string(parsed.ResponseStatus)), `"`)
	if status != "" && status != "200" {
		detail := strings.TrimSpace(parsed.ResponseDetails)
		if detail == "" {
			detail = "status " + status
		}
		return nil, providerError(p.Name(), 0, fmt.Errorf("%s", detail))
	}

	translated := strings.TrimSpace(parsed.ResponseData.TranslatedText)
	if translated == "" {
		return nil, providerError(p.Name(), 0, ErrEmptyTranslation)
	}
	if isMyMemoryNotice(translated) {
		return nil, providerError(p.Name(), 0, fmt.Errorf("%s", translated))
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   source,
		TargetLang:   req.TargetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

// MyMemory reports quota and validation problems inside translatedText.
func isMyMemoryNotice(text string) bool {
	upper := strings.ToUpper(text)
	return strings.HasPrefix(upper, "MYMEMORY WARNING") ||
		strings.HasPrefix(upper, "PLEASE SELECT TWO DISTINCT LANGUAGES") ||
		strings.HasPrefix(upper, "INVALID LANGUAGE PAIR") ||
		strings.HasPrefix(upper, "QUERY LENGTH LIMIT EXCEEDED")
}
