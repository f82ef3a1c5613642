package httpapi

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/parley/internal/translation"
)

const (
	maxTextLength = 20000
	maxBatchSize  = 100
)

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateBatchRequest struct {
	Texts  []string `json:"texts"`
	Source string   `json:"source"`
	Target string   `json:"target"`
}

type detectRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	fieldErrors := map[string]string{}
	if strings.TrimSpace(req.Target) == "" {
		fieldErrors["target"] = "is required"
	}
	if len(req.Text) > maxTextLength {
		fieldErrors["text"] = fmt.Sprintf("must be at most %d bytes", maxTextLength)
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	result := s.translator.TranslateDetailed(c.Request().Context(), req.Text, req.Source, req.Target)
	return success(c, result)
}

func (s *Server) handleTranslateBatch(c echo.Context) error {
	var req translateBatchRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	fieldErrors := map[string]string{}
	if strings.TrimSpace(req.Target) == "" {
		fieldErrors["target"] = "is required"
	}
	switch {
	case len(req.Texts) == 0:
		fieldErrors["texts"] = "must contain at least one text"
	case len(req.Texts) > maxBatchSize:
		fieldErrors["texts"] = fmt.Sprintf("must contain at most %d texts", maxBatchSize)
	}
	for i, text := range req.Texts {
		if len(text) > maxTextLength {
			fieldErrors[fmt.Sprintf("texts[%d]", i)] = fmt.Sprintf("must be at most %d bytes", maxTextLength)
		}
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	ctx := c.Request().Context()
	items := make([]translation.Result, 0, len(req.Texts))
	for _, text := range req.Texts {
		items = append(items, s.translator.TranslateDetailed(ctx, text, req.Source, req.Target))
	}

	return success(c, map[string]any{
		"items":  items,
		"source": req.Source,
		"target": req.Target,
	})
}

func (s *Server) handleDetect(c echo.Context) error {
	var req detectRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if strings.TrimSpace(req.Text) == "" {
		return failValidation(c, map[string]string{"text": "is required"})
	}
	if len(req.Text) > maxTextLength {
		return failValidation(c, map[string]string{"text": fmt.Sprintf("must be at most %d bytes", maxTextLength)})
	}

	detection := s.translator.DetectLanguage(req.Text)
	profile := s.languages.Lookup(detection.Code)
	return success(c, map[string]any{
		"code":       detection.Code,
		"confidence": detection.Confidence,
		"name":       profile.Name,
		"group":      string(profile.Group),
	})
}
