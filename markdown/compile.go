package markdown

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// CompileError wraps a markdown compilation failure.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling markdown: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// compiler is the shared goldmark instance. GFM covers the table, task
// list, and strikethrough syntax the posts use; raw HTML passes through
// because the sources are trusted (single-author site).
var compiler = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// Compile renders markdown source to HTML. Failures come back as a
// *CompileError.
func Compile(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := compiler.Convert([]byte(source), &buf); err != nil {
		return "", &CompileError{Err: err}
	}
	return template.HTML(buf.String()), nil
}
