// Package markdown implements the text-level markdown operations used by
// the translation pipeline: code-block-safe splitting, machine-translation
// artifact repair, and compilation to HTML.
package markdown

import "strings"

// Segment kinds.
const (
	// KindProse marks text that is a candidate for translation.
	KindProse = "prose"
	// KindCode marks a fenced code block, kept verbatim.
	KindCode = "code"
)

// Segment is one fragment of an article body. Segments are produced in
// document order and reassemble losslessly (see Join).
type Segment struct {
	Kind string
	Text string
}

// IsTranslatable reports whether the segment should be offered to the
// translator: prose with at least one non-whitespace character.
func (s Segment) IsTranslatable() bool {
	return s.Kind == KindProse && strings.TrimSpace(s.Text) != ""
}

// Split partitions body into alternating prose and code segments. A code
// segment runs from an opening triple-backtick fence line (optionally
// carrying a language tag) through its closing fence line, both inclusive.
//
// The partition is lossless: Join(Split(body)) == body, byte for byte.
//
// An opening fence with no closing fence is a malformed input; the whole
// remaining tail is emitted as one prose segment and unterminated is
// returned true so callers can observe the condition.
func Split(body string) (segments []Segment, unterminated bool) {
	var prose strings.Builder

	flushProse := func() {
		if prose.Len() > 0 {
			segments = append(segments, Segment{Kind: KindProse, Text: prose.String()})
			prose.Reset()
		}
	}

	i := 0
	for i < len(body) {
		line, next := lineAt(body, i)
		if !isFence(line) {
			prose.WriteString(line)
			i = next
			continue
		}

		// Scan for the closing fence.
		closeEnd := -1
		j := next
		for j < len(body) {
			l, n := lineAt(body, j)
			if isFence(l) {
				closeEnd = n
				break
			}
			j = n
		}

		if closeEnd < 0 {
			// Malformed: odd number of fences. Never drop content — the
			// tail becomes prose.
			prose.WriteString(body[i:])
			i = len(body)
			unterminated = true
			break
		}

		flushProse()
		segments = append(segments, Segment{Kind: KindCode, Text: body[i:closeEnd]})
		i = closeEnd
	}

	flushProse()
	return segments, unterminated
}

// Join concatenates segment texts in order. It is the exact inverse of
// Split for any input.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// lineAt returns the line starting at offset i, including its trailing
// newline if present, and the offset of the next line.
func lineAt(s string, i int) (line string, next int) {
	if nl := strings.IndexByte(s[i:], '\n'); nl >= 0 {
		return s[i : i+nl+1], i + nl + 1
	}
	return s[i:], len(s)
}

// isFence reports whether a line opens or closes a fenced code block.
// Up to three spaces of indentation are allowed, matching CommonMark.
func isFence(line string) bool {
	trimmed := strings.TrimRight(line, "\r\n")
	for n := 0; n < 3 && strings.HasPrefix(trimmed, " "); n++ {
		trimmed = trimmed[1:]
	}
	return strings.HasPrefix(trimmed, "```")
}
