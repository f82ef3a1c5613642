package payloadschema

import (
	"strings"
	"testing"
)

func TestValidateCacheBlob_Valid(t *testing.T) {
	t.Parallel()

	entries, err := ValidateCacheBlob([]byte(`{
		"en_es_hello": {"translation": "hola", "timestamp": 1760000000000},
		"en_hi_thank you": {"translation": "धन्यवाद", "timestamp": 1760000000001}
	}`))
	if err != nil {
		t.Fatalf("expected blob to be valid, got error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if got := entries["en_es_hello"]; got.Translation != "hola" || got.Timestamp != 1760000000000 {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestValidateCacheBlob_Corrupt(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":            ``,
		"truncated":        `{"en_es_hello": {"translation": "hola"`,
		"missing field":    `{"en_es_hello": {"translation": "hola"}}`,
		"wrong type":       `{"en_es_hello": {"translation": 3, "timestamp": 1}}`,
		"not an object":    `["hola"]`,
		"trailing content": `{} {}`,
	}
	for name, raw := range cases {
		if _, err := ValidateCacheBlob([]byte(raw)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateDeviceMessage_Valid(t *testing.T) {
	t.Parallel()

	msg, err := ValidateDeviceMessage([]byte(`{
		"type": "engine.recognition.result",
		"session_id": "abc",
		"text": "hello there",
		"final": true
	}`))
	if err != nil {
		t.Fatalf("expected message to be valid, got error: %v", err)
	}
	if msg.Type != "engine.recognition.result" || !msg.Final || msg.Text != "hello there" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestValidateDeviceMessage_Hello(t *testing.T) {
	t.Parallel()

	msg, err := ValidateDeviceMessage([]byte(`{
		"type": "hello",
		"capabilities": {"recognition": true, "synthesis": true},
		"voices": [{"name": "Google हिन्दी", "lang": "hi-IN"}]
	}`))
	if err != nil {
		t.Fatalf("expected hello to be valid, got error: %v", err)
	}
	if msg.Capabilities == nil || !msg.Capabilities.Recognition {
		t.Fatalf("expected capabilities to decode, got %+v", msg.Capabilities)
	}
	if len(msg.Voices) != 1 || msg.Voices[0].Lang != "hi-IN" {
		t.Fatalf("unexpected voices: %+v", msg.Voices)
	}
}

func TestValidateDeviceMessage_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown type":           `{"type": "engine.recognition.start"}`,
		"missing session":        `{"type": "engine.recognition.started"}`,
		"missing utterance":      `{"type": "engine.synthesis.ended"}`,
		"error without code":     `{"type": "engine.recognition.error", "session_id": "s"}`,
		"translate without text": `{"type": "translate", "target": "es"}`,
	}
	for name, raw := range cases {
		_, err := ValidateDeviceMessage([]byte(raw))
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if !strings.Contains(err.Error(), "schema validation failed") {
			t.Fatalf("%s: expected schema error, got %v", name, err)
		}
	}
}
