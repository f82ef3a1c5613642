package language

import "testing"

func TestBuiltinHasFiftyProfiles(t *testing.T) {
	t.Parallel()

	supported := Builtin().Supported()
	if len(supported) != 50 {
		t.Fatalf("expected 50 supported languages, got %d", len(supported))
	}
	if supported["hi"] != "Hindi" {
		t.Fatalf("unexpected display name for hi: %q", supported["hi"])
	}

	indian := 0
	for _, profile := range Builtin().Profiles() {
		if profile.Group == GroupIndian {
			indian++
		}
	}
	if indian != 13 {
		t.Fatalf("expected 13 indian profiles, got %d", indian)
	}
}

func TestLookupResolutionOrder(t *testing.T) {
	t.Parallel()

	registry := Builtin()

	tests := []struct {
		name        string
		code        string
		wantCode    string
		synthesized bool
	}{
		{name: "exact", code: "hi", wantCode: "hi"},
		{name: "exact region tag", code: "zh_TW", wantCode: "zh-TW"},
		{name: "alias", code: "iw", wantCode: "he"},
		{name: "base prefix", code: "es-MX", wantCode: "es"},
		{name: "base prefix upper", code: "TA-in", wantCode: "ta"},
		{name: "numeric region", code: "es-419", wantCode: "es"},
		{name: "script alias", code: "zh-Hant", wantCode: "zh-TW"},
		{name: "synthesized", code: "eu", wantCode: "eu", synthesized: true},
		{name: "synthesized region", code: "gl-ES", wantCode: "gl-es", synthesized: true},
		{name: "blank", code: "  ", wantCode: "en"},
		{name: "garbage", code: "12!", wantCode: "en"},
		{name: "too long", code: "klingon", wantCode: "en"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := registry.Lookup(tc.code)
			if got.Code != tc.wantCode {
				t.Fatalf("Lookup(%q).Code = %q, want %q", tc.code, got.Code, tc.wantCode)
			}
			if got.Synthesized != tc.synthesized {
				t.Fatalf("Lookup(%q).Synthesized = %t, want %t", tc.code, got.Synthesized, tc.synthesized)
			}
		})
	}
}

func TestSynthesizedProfileLocale(t *testing.T) {
	t.Parallel()

	got := Builtin().Lookup("gl-es")
	if got.SynthesisLocale != "gl-ES" || got.RecognitionLocale != "gl-ES" {
		t.Fatalf("unexpected locales: %+v", got)
	}
	if got.TranslationCode != "gl" {
		t.Fatalf("unexpected translation code: %q", got.TranslationCode)
	}
	if got.Group != GroupInternational {
		t.Fatalf("unexpected group: %q", got.Group)
	}
}

func TestNumericRegionResolvesToBaseLanguage(t *testing.T) {
	t.Parallel()

	got := Builtin().Lookup("es-419")
	if got.Code != "es" || got.TranslationCode != "es" {
		t.Fatalf("Lookup(es-419) = %+v, want the es profile", got)
	}
	if got.SynthesisLocale != "es-ES" || got.RecognitionLocale != "es-ES" {
		t.Fatalf("unexpected locales for es-419: %+v", got)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	registry := Builtin()
	if got := registry.Classify("bn-IN"); got != GroupIndian {
		t.Fatalf("Classify(bn-IN) = %q", got)
	}
	if got := registry.Classify("ja"); got != GroupEastAsian {
		t.Fatalf("Classify(ja) = %q", got)
	}
	if got := registry.Classify("fr"); got != GroupInternational {
		t.Fatalf("Classify(fr) = %q", got)
	}
	if got := registry.Classify("unknown-code-value"); got != GroupInternational {
		t.Fatalf("Classify(unknown) = %q", got)
	}
}

func TestRTLProfiles(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"ar", "he", "fa", "ur"} {
		if !Builtin().Lookup(code).RTL {
			t.Fatalf("expected %s to be right-to-left", code)
		}
	}
	if Builtin().Lookup("en").RTL {
		t.Fatalf("expected en to be left-to-right")
	}
}

func TestKnown(t *testing.T) {
	t.Parallel()

	if !Builtin().Known("pt-PT") {
		t.Fatalf("expected pt-PT to resolve to a builtin profile")
	}
	if Builtin().Known("eu") {
		t.Fatalf("expected eu to be unknown")
	}
}
