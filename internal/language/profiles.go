package language

// Group is the regional policy bucket a language belongs to.
type Group string

const (
	GroupIndian        Group = "indian"
	GroupEastAsian     Group = "east_asian"
	GroupInternational Group = "international"
)

// NeedsScriptClarity reports whether speech in this group is synthesized slower
// with a raised pitch.
func (g Group) NeedsScriptClarity() bool {
	return g == GroupIndian || g == GroupEastAsian
}

// Profile describes how one language is recognized, spoken and translated.
type Profile struct {
	Code              string   `json:"code"`
	Name              string   `json:"name"`
	NativeName        string   `json:"native_name"`
	RecognitionLocale string   `json:"recognition_locale"`
	SynthesisLocale   string   `json:"synthesis_locale"`
	TranslationCode   string   `json:"translation_code"`
	RTL               bool     `json:"rtl"`
	Group             Group    `json:"group"`
	VoiceKeywords     []string `json:"voice_keywords,omitempty"`
	Synthesized       bool     `json:"synthesized,omitempty"`
}

const EnglishCode = "en"

func intl(code, name, native, locale string) Profile {
	return Profile{
		Code:              code,
		Name:              name,
		NativeName:        native,
		RecognitionLocale: locale,
		SynthesisLocale:   locale,
		TranslationCode:   code,
		Group:             GroupInternational,
	}
}

func indian(code, name, native, locale string, keywords ...string) Profile {
	p := intl(code, name, native, locale)
	p.Group = GroupIndian
	p.VoiceKeywords = keywords
	return p
}

func eastAsian(code, name, native, locale, translationCode string, keywords ...string) Profile {
	p := intl(code, name, native, locale)
	p.Group = GroupEastAsian
	p.TranslationCode = translationCode
	p.VoiceKeywords = keywords
	return p
}

func rtl(p Profile) Profile {
	p.RTL = true
	return p
}

func withTranslationCode(p Profile, translationCode string) Profile {
	p.TranslationCode = translationCode
	return p
}

func withVoiceKeywords(p Profile, keywords ...string) Profile {
	p.VoiceKeywords = keywords
	return p
}

var builtinProfiles = []Profile{
	withVoiceKeywords(intl("en", "English", "English", "en-US"), "Samantha", "Aria", "Jenny", "Guy"),
	intl("es", "Spanish", "Español", "es-ES"),
	intl("fr", "French", "Français", "fr-FR"),
	intl("de", "German", "Deutsch", "de-DE"),
	intl("it", "Italian", "Italiano", "it-IT"),
	intl("pt", "Portuguese", "Português", "pt-BR"),
	intl("ru", "Russian", "Русский", "ru-RU"),
	rtl(intl("ar", "Arabic", "العربية", "ar-SA")),
	rtl(intl("he", "Hebrew", "עברית", "he-IL")),
	rtl(intl("fa", "Persian", "فارسی", "fa-IR")),
	intl("tr", "Turkish", "Türkçe", "tr-TR"),
	intl("pl", "Polish", "Polski", "pl-PL"),
	intl("nl", "Dutch", "Nederlands", "nl-NL"),
	intl("sv", "Swedish", "Svenska", "sv-SE"),
	intl("da", "Danish", "Dansk", "da-DK"),
	intl("no", "Norwegian", "Norsk", "nb-NO"),
	intl("fi", "Finnish", "Suomi", "fi-FI"),
	intl("el", "Greek", "Ελληνικά", "el-GR"),
	intl("cs", "Czech", "Čeština", "cs-CZ"),
	intl("hu", "Hungarian", "Magyar", "hu-HU"),
	intl("ro", "Romanian", "Română", "ro-RO"),
	intl("uk", "Ukrainian", "Українська", "uk-UA"),
	intl("bg", "Bulgarian", "Български", "bg-BG"),
	intl("hr", "Croatian", "Hrvatski", "hr-HR"),
	intl("sk", "Slovak", "Slovenčina", "sk-SK"),
	intl("ca", "Catalan", "Català", "ca-ES"),
	intl("af", "Afrikaans", "Afrikaans", "af-ZA"),
	intl("id", "Indonesian", "Bahasa Indonesia", "id-ID"),
	intl("ms", "Malay", "Bahasa Melayu", "ms-MY"),
	intl("vi", "Vietnamese", "Tiếng Việt", "vi-VN"),
	withTranslationCode(intl("tl", "Filipino", "Filipino", "fil-PH"), "tl"),
	intl("sw", "Swahili", "Kiswahili", "sw-KE"),

	indian("hi", "Hindi", "हिन्दी", "hi-IN", "हिंदी", "Lekha", "Swara", "Madhur", "Kalpana"),
	indian("bn", "Bengali", "বাংলা", "bn-IN", "Bangla", "Tanishaa", "Bashkar"),
	indian("te", "Telugu", "తెలుగు", "te-IN", "Shruti", "Mohan"),
	indian("mr", "Marathi", "मराठी", "mr-IN", "Aarohi", "Manohar"),
	indian("ta", "Tamil", "தமிழ்", "ta-IN", "Pallavi", "Valluvar"),
	rtl(indian("ur", "Urdu", "اردو", "ur-IN", "Gul", "Salman")),
	indian("gu", "Gujarati", "ગુજરાતી", "gu-IN", "Dhwani", "Niranjan"),
	indian("kn", "Kannada", "ಕನ್ನಡ", "kn-IN", "Sapna", "Gagan"),
	indian("ml", "Malayalam", "മലയാളം", "ml-IN", "Sobhana", "Midhun"),
	indian("pa", "Punjabi", "ਪੰਜਾਬੀ", "pa-IN", "Gurmukhi"),
	indian("or", "Odia", "ଓଡ଼ିଆ", "or-IN", "Oriya"),
	indian("as", "Assamese", "অসমীয়া", "as-IN"),
	indian("ne", "Nepali", "नेपाली", "ne-NP", "Hemkala", "Sagar"),

	eastAsian("ja", "Japanese", "日本語", "ja-JP", "ja", "Kyoko", "Nanami", "Haruka"),
	eastAsian("ko", "Korean", "한국어", "ko-KR", "ko", "Yuna", "SunHi", "Heami"),
	eastAsian("zh", "Chinese (Simplified)", "简体中文", "zh-CN", "zh-CN", "Mandarin", "普通话", "Tingting", "Xiaoxiao"),
	eastAsian("zh-TW", "Chinese (Traditional)", "繁體中文", "zh-TW", "zh-TW", "國語", "Meijia", "HsiaoChen"),
	eastAsian("th", "Thai", "ไทย", "th-TH", "th", "Kanya", "Premwadee"),
}

// aliases maps legacy or alternate tags onto builtin profile codes.
var aliases = map[string]string{
	"iw":      "he",
	"fil":     "tl",
	"nb":      "no",
	"nn":      "no",
	"in":      "id",
	"zh-cn":   "zh",
	"zh-hans": "zh",
	"zh-sg":   "zh",
	"zh-hant": "zh-TW",
	"zh-hk":   "zh-TW",
	"zh-mo":   "zh-TW",
}
