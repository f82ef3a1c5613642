package language

import "strings"

// NormalizeTag lowercases a BCP-47 style tag and joins its subtags with "-".
// The primary subtag must be alphabetic; later subtags may be alphanumeric
// ("es-419", "zh-hant-tw"). Returns "" for blank or malformed input.
func NormalizeTag(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}

	parts := strings.Split(strings.ReplaceAll(lowered, "_", "-"), "-")
	subtags := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		valid := isAlphaNumLower(part)
		if len(subtags) == 0 {
			valid = isAlphaLower(part)
		}
		if !valid {
			return ""
		}
		subtags = append(subtags, part)
	}

	if len(subtags) == 0 {
		return ""
	}
	return strings.Join(subtags, "-")
}

// NormalizeCode returns the primary language subtag ("es" for "es-419").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	primary, _, _ := strings.Cut(tag, "-")
	return primary
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func isAlphaNumLower(value string) bool {
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
