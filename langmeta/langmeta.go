// Package langmeta provides display metadata (native names and flags)
// for the site languages, used by the language switcher and translation
// prompts.
package langmeta

import "strings"

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains metadata for the languages the site can be asked to
// serve or translate into. Locale variants fall back to their base
// language in Resolve.
var Registry = map[string]Meta{
	"de":    {Name: "Deutsch", Flag: "🇩🇪"},
	"en":    {Name: "English", Flag: "🇺🇸"},
	"es":    {Name: "Español", Flag: "🇪🇸"},
	"fr":    {Name: "Français", Flag: "🇫🇷"},
	"ja":    {Name: "日本語", Flag: "🇯🇵"},
	"ko":    {Name: "한국어", Flag: "🇰🇷"},
	"ru":    {Name: "Русский", Flag: "🇷🇺"},
	"zh":    {Name: "中文", Flag: "🇨🇳"},
	"zh-CN": {Name: "简体中文", Flag: "🇨🇳"},
	"zh-TW": {Name: "繁體中文", Flag: "🇹🇼"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort metadata for a language code, supporting
// variants like zh_CN, zh-CN, and base-language fallbacks. Unknown codes
// come back with the code itself as the name.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang}
}

// NativeName returns the language's native display name.
func NativeName(lang string) string {
	return Resolve(lang).Name
}
