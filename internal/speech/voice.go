package speech

import (
	"strings"

	"horse.fit/parley/internal/language"
)

var qualityKeywords = []string{"google", "microsoft", "natural", "neural", "premium", "enhanced", "online"}

// SelectVoice picks the best voice for profile. The first voice matching the
// highest rank wins:
//
//  1. exact synthesis locale and a language or quality keyword in the name
//  2. exact synthesis locale
//  3. same base language
//  4. any English voice
//  5. the first voice
//
// ok is false only when voices is empty.
func SelectVoice(profile language.Profile, voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	locale := language.NormalizeTag(profile.SynthesisLocale)
	base := language.NormalizeCode(profile.SynthesisLocale)
	if base == "" {
		base = language.NormalizeCode(profile.Code)
	}
	keywords := languageKeywords(profile)

	if locale != "" {
		for _, voice := range voices {
			if language.NormalizeTag(voice.Locale) != locale {
				continue
			}
			name := strings.ToLower(voice.Name)
			if containsAny(name, keywords) || containsAny(name, qualityKeywords) {
				return voice, true
			}
		}
		for _, voice := range voices {
			if language.NormalizeTag(voice.Locale) == locale {
				return voice, true
			}
		}
	}
	if base != "" {
		for _, voice := range voices {
			if language.NormalizeCode(voice.Locale) == base {
				return voice, true
			}
		}
	}
	for _, voice := range voices {
		if language.NormalizeCode(voice.Locale) == language.EnglishCode {
			return voice, true
		}
	}
	return voices[0], true
}

func languageKeywords(profile language.Profile) []string {
	raw := make([]string, 0, len(profile.VoiceKeywords)+2)
	raw = append(raw, profile.Name, profile.NativeName)
	raw = append(raw, profile.VoiceKeywords...)

	keywords := make([]string, 0, len(raw))
	for _, keyword := range raw {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}

func containsAny(name string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// Prosody returns the speaking rate and pitch for a regional group.
func Prosody(group language.Group) (rate, pitch float64) {
	if group.NeedsScriptClarity() {
		return 0.65, 1.1
	}
	return 0.85, 1.0
}
