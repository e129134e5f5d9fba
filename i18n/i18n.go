// Package i18n localizes polyblog's own UI chrome (navigation, banner,
// pagination, footer). Article content is handled by the translation
// pipeline; this package only covers the strings the site itself emits.
//
// It wraps the gotext library. Catalogs are embedded in the binary via
// //go:embed and resolved per request language, since one server process
// renders pages in every site language.
package i18n

import (
	"embed"
	"sync"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the .po translation catalogs.
// Directory structure: locales/{lang}/LC_MESSAGES/polyblog.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name.
const domain = "polyblog"

var (
	mu     sync.Mutex
	byLang = make(map[string]*gotext.Locale)
)

// For returns the locale for lang, loading and caching it on first use.
// Languages without a catalog fall through to the English source strings.
func For(lang string) *gotext.Locale {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := byLang[lang]; ok {
		return l
	}
	l := gotext.NewLocaleFSWithPath(lang, locales, "locales")
	l.AddDomain(domain)
	l.SetDomain(domain)
	byLang[lang] = l
	return l
}

// T translates a UI string into lang, with optional sprintf arguments.
// An untranslated msgid passes through unchanged (standard gettext
// behavior), so English needs no catalog entries.
func T(lang, msgid string, vars ...any) string {
	return For(lang).Get(msgid, vars...)
}
