package translation

import (
	"sort"

	"horse.fit/parley/internal/language"
)

type LanguageOption struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
	RTL    bool   `json:"rtl,omitempty"`
	Group  string `json:"group"`
}

// SupportedTranslationLanguageCodes lists the provider-facing codes of every builtin profile.
func SupportedTranslationLanguageCodes() []string {
	profiles := language.Builtin().Profiles()
	codes := make([]string, 0, len(profiles))
	for _, profile := range profiles {
		codes = append(codes, profile.TranslationCode)
	}
	sort.Strings(codes)
	return codes
}

func LanguageOptions(registry *language.Registry) []LanguageOption {
	if registry == nil {
		registry = language.Builtin()
	}
	profiles := registry.Profiles()
	options := make([]LanguageOption, 0, len(profiles))
	for _, profile := range profiles {
		options = append(options, LanguageOption{
			Code:   profile.Code,
			Label:  profile.Name,
			Native: profile.NativeName,
			RTL:    profile.RTL,
			Group:  string(profile.Group),
		})
	}
	return options
}

func normalizeLangCode(raw string) string {
	return language.NormalizeCode(raw)
}

func targetLanguageName(code string) string {
	profile := language.Builtin().Lookup(code)
	if profile.Synthesized {
		return code
	}
	return profile.Name
}
