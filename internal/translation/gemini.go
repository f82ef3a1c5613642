package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// generateContentFunc matches genai's Models.GenerateContent.
type generateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiProvider translates with a Gemini model through the Gemini API.
type GeminiProvider struct {
	model    string
	generate generateContentFunc
}

func NewGeminiProvider(apiKey, model string) (*GeminiProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return newGeminiProvider(model, client.Models.GenerateContent), nil
}

func newGeminiProvider(model string, generate generateContentFunc) *GeminiProvider {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{model: model, generate: generate}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *GeminiProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil || p.generate == nil {
		return nil, fmt.Errorf("gemini provider is not initialized")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildGeminiPrompt(req), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	}

	started := time.Now()
	resp, err := p.generate(ctx, p.model, contents, config)
	if err != nil {
		return nil, providerError(p.Name(), 0, err)
	}

	translated := strings.TrimSpace(geminiText(resp))
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

func buildGeminiPrompt(req TranslateRequest) string {
	source := targetLanguageName(req.SourceLang)
	if strings.TrimSpace(req.SourceLang) == "" {
		source = "the detected language"
	}
	return fmt.Sprintf(
		"Translate the following text from %s to %s. Reply with the translation only, no quotes and no explanation.\n\n%s",
		source,
		targetLanguageName(req.TargetLang),
		req.Text,
	)
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
