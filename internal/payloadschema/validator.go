package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed cache_blob.schema.json
var cacheBlobSchemaJSON string

//go:embed device_message.schema.json
var deviceMessageSchemaJSON string

// CacheBlobEntry is one persisted translation; Timestamp is creation time in epoch milliseconds.
type CacheBlobEntry struct {
	Translation string `json:"translation"`
	Timestamp   int64  `json:"timestamp"`
}

type DeviceVoice struct {
	Name         string `json:"name"`
	Lang         string `json:"lang"`
	Default      bool   `json:"default,omitempty"`
	LocalService bool   `json:"local_service,omitempty"`
}

type DeviceCapabilities struct {
	Recognition bool `json:"recognition"`
	Synthesis   bool `json:"synthesis"`
	Audio       bool `json:"audio,omitempty"`
}

// DeviceMessage is the envelope for every text frame on the device bridge,
// in both directions. Only inbound frames are schema-validated.
type DeviceMessage struct {
	Type         string              `json:"type"`
	RequestID    string              `json:"request_id,omitempty"`
	SessionID    string              `json:"session_id,omitempty"`
	UtteranceID  string              `json:"utterance_id,omitempty"`
	Language     string              `json:"language,omitempty"`
	Source       string              `json:"source,omitempty"`
	Target       string              `json:"target,omitempty"`
	Locale       string              `json:"locale,omitempty"`
	Text         string              `json:"text,omitempty"`
	Final        bool                `json:"final,omitempty"`
	Code         string              `json:"code,omitempty"`
	Detail       string              `json:"detail,omitempty"`
	Category     string              `json:"category,omitempty"`
	Remediation  string              `json:"remediation,omitempty"`
	Voice        string              `json:"voice,omitempty"`
	Rate         float64             `json:"rate,omitempty"`
	Pitch        float64             `json:"pitch,omitempty"`
	Confidence   float64             `json:"confidence,omitempty"`
	State        string              `json:"state,omitempty"`
	Outcome      string              `json:"outcome,omitempty"`
	Voices       []DeviceVoice       `json:"voices,omitempty"`
	Capabilities *DeviceCapabilities `json:"capabilities,omitempty"`
}

type lazySchema struct {
	once   sync.Once
	name   string
	source string
	schema *jsonschema.Schema
	err    error
}

var (
	cacheBlobSchema     = &lazySchema{name: "cache_blob.schema.json", source: cacheBlobSchemaJSON}
	deviceMessageSchema = &lazySchema{name: "device_message.schema.json", source: deviceMessageSchemaJSON}
)

// ValidateCacheBlob decodes a persisted cache blob. Callers treat any error as
// a corrupt blob and discard it.
func ValidateCacheBlob(raw []byte) (map[string]CacheBlobEntry, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode cache blob: %w", err)
	}
	if err := validateValue(cacheBlobSchema, value); err != nil {
		return nil, err
	}

	entries := map[string]CacheBlobEntry{}
	if err := remarshal(value, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal cache blob: %w", err)
	}
	return entries, nil
}

func ValidateDeviceMessage(raw []byte) (*DeviceMessage, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode device message: %w", err)
	}
	if err := validateValue(deviceMessageSchema, value); err != nil {
		return nil, err
	}

	var msg DeviceMessage
	if err := remarshal(value, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal device message: %w", err)
	}
	if strings.TrimSpace(msg.Type) == "" {
		return nil, fmt.Errorf("type must not be empty")
	}
	return &msg, nil
}

func validateValue(ls *lazySchema, value any) error {
	schema, err := ls.load()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func (ls *lazySchema) load() (*jsonschema.Schema, error) {
	ls.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(ls.name, strings.NewReader(ls.source)); err != nil {
			ls.err = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(ls.name)
		if err != nil {
			ls.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		ls.schema = schema
	})

	if ls.err != nil {
		return nil, ls.err
	}
	if ls.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return ls.schema, nil
}

func remarshal(value any, out any) error {
	normalized, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(normalized, out)
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
