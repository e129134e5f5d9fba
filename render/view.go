package render

// ViewMode selects which variant of an article the reader asked for.
type ViewMode string

const (
	// ViewTranslated is the default: serve the page language's variant.
	ViewTranslated ViewMode = "translated"
	// ViewOriginal pins the post's authored language.
	ViewOriginal ViewMode = "original"
)

// View is the resolved presentation decision for one request.
type View struct {
	// Translate is true when the translation path should run.
	Translate bool
	// ToggleAvailable is true when the post exists in another language
	// than the page, so the original/translated switch is offered.
	ToggleAvailable bool
	// ToggleMode is the mode the switch links to.
	ToggleMode ViewMode
}

// ResolveView decides, purely from the post's authored language, the page
// language, and the requested mode, whether to translate and what toggle
// to offer. A post without a language tag renders as-is and never enters
// the translation pipeline.
func ResolveView(postLang, targetLang string, mode ViewMode) View {
	if postLang == "" || postLang == targetLang {
		return View{}
	}
	if mode == ViewOriginal {
		return View{
			Translate:       false,
			ToggleAvailable: true,
			ToggleMode:      ViewTranslated,
		}
	}
	return View{
		Translate:       true,
		ToggleAvailable: true,
		ToggleMode:      ViewOriginal,
	}
}
