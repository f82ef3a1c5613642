package language

import (
	"sort"
	"strings"
	"sync"
)

// Registry resolves language codes to profiles. Lookups never fail: unknown
// codes degrade to a synthesized profile or to English.
type Registry struct {
	byTag   map[string]Profile
	aliases map[string]string
	ordered []Profile
	english Profile
}

var (
	builtinOnce     sync.Once
	builtinRegistry *Registry
)

// Builtin returns the shared registry over the builtin profile table.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		builtinRegistry = NewRegistry(builtinProfiles, aliases)
	})
	return builtinRegistry
}

func NewRegistry(profiles []Profile, aliasTable map[string]string) *Registry {
	r := &Registry{
		byTag:   make(map[string]Profile, len(profiles)),
		aliases: make(map[string]string, len(aliasTable)),
	}
	for _, profile := range profiles {
		tag := NormalizeTag(profile.Code)
		if tag == "" {
			continue
		}
		if _, exists := r.byTag[tag]; exists {
			continue
		}
		r.byTag[tag] = profile
		r.ordered = append(r.ordered, profile)
	}
	for alias, target := range aliasTable {
		from := NormalizeTag(alias)
		to := NormalizeTag(target)
		if from == "" || to == "" {
			continue
		}
		if _, ok := r.byTag[to]; ok {
			r.aliases[from] = to
		}
	}
	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].Code < r.ordered[j].Code
	})

	if english, ok := r.byTag[EnglishCode]; ok {
		r.english = english
	} else {
		r.english = intl(EnglishCode, "English", "English", "en-US")
	}
	return r
}

// Lookup resolves code by exact tag, then by base language, then by
// synthesizing a profile for a well-formed code, then falls back to English.
func (r *Registry) Lookup(code string) Profile {
	tag := NormalizeTag(code)
	if tag == "" {
		return r.english
	}
	if profile, ok := r.exact(tag); ok {
		return profile
	}

	base := NormalizeCode(tag)
	if profile, ok := r.exact(base); ok {
		return profile
	}

	if isValidBaseCode(base) {
		return synthesize(tag)
	}
	return r.english
}

// Known reports whether code resolves to a builtin profile without synthesis.
func (r *Registry) Known(code string) bool {
	tag := NormalizeTag(code)
	if tag == "" {
		return false
	}
	if _, ok := r.exact(tag); ok {
		return true
	}
	_, ok := r.exact(NormalizeCode(tag))
	return ok
}

func (r *Registry) Classify(code string) Group {
	return r.Lookup(code).Group
}

// Supported returns code to display name for every builtin profile.
func (r *Registry) Supported() map[string]string {
	out := make(map[string]string, len(r.ordered))
	for _, profile := range r.ordered {
		out[profile.Code] = profile.Name
	}
	return out
}

// Profiles returns the builtin profiles sorted by code.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) English() Profile {
	return r.english
}

func (r *Registry) exact(tag string) (Profile, bool) {
	if tag == "" {
		return Profile{}, false
	}
	if profile, ok := r.byTag[tag]; ok {
		return profile, true
	}
	if target, ok := r.aliases[tag]; ok {
		profile, found := r.byTag[target]
		return profile, found
	}
	return Profile{}, false
}

func synthesize(tag string) Profile {
	locale := canonicalLocale(tag)
	return Profile{
		Code:              tag,
		Name:              strings.ToUpper(tag),
		NativeName:        strings.ToUpper(tag),
		RecognitionLocale: locale,
		SynthesisLocale:   locale,
		TranslationCode:   NormalizeCode(tag),
		Group:             GroupInternational,
		Synthesized:       true,
	}
}

// canonicalLocale renders "pt-br" as "pt-BR".
func canonicalLocale(tag string) string {
	parts := strings.Split(tag, "-")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) == 2 {
			parts[i] = strings.ToUpper(parts[i])
		}
	}
	return strings.Join(parts, "-")
}

func isValidBaseCode(base string) bool {
	return len(base) == 2 || len(base) == 3
}
