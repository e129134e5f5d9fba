package markdown

import "regexp"

// Machine translation tends to collapse the space after markdown line
// markers ("# Title" comes back as "#Title"). Each pattern re-inserts the
// space when the marker is immediately followed by a non-space character.
var repairs = []struct {
	re   *regexp.Regexp
	repl string
}{
	// Headers: "#Title" -> "# Title" (any run of # up to 6).
	{regexp.MustCompile(`(?m)^(\s*#{1,6})([^#\s])`), "$1 $2"},
	// List markers: "-item" / "*item" -> "- item" / "* item". A doubled
	// marker ("**bold", "--") is emphasis or a rule, not a list.
	{regexp.MustCompile(`(?m)^(\s*)([-*])([^\s*-])`), "$1$2 $3"},
	// Blockquotes: ">quote" -> "> quote".
	{regexp.MustCompile(`(?m)^(\s*>+)([^\s>])`), "$1 $2"},
}

// Repair fixes whitespace artifacts that machine translation introduces
// into markdown prose. It is pure and total: it never fails and is a
// no-op on well-formed input.
//
// Repair must only ever be applied to prose segments; running it over a
// whole document would corrupt code blocks (e.g. shell comments).
func Repair(text string) string {
	for _, r := range repairs {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}
