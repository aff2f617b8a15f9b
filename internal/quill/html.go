package quill

import (
	"fmt"
	"html"
	"strings"
)

// EmptyParagraph is the markup the authoring widget produces for a document
// with no content. Rendered output equal to this marker is treated as blank.
const EmptyParagraph = "<p><br></p>"

// HasContent reports whether rendered markup carries visible content: after
// trimming whitespace it must be non-empty and not the blank-document marker.
func HasContent(rendered string) bool {
	trimmed := strings.TrimSpace(rendered)
	return trimmed != "" && trimmed != EmptyParagraph
}

// segment is a run of text sharing one set of inline attributes.
type segment struct {
	text  string
	embed string // pre-rendered embed markup, exclusive with text
	attrs map[string]any
}

// line is a completed line of segments plus the block attributes taken from
// its terminating newline op.
type line struct {
	segments []segment
	attrs    map[string]any
}

// Render converts a delta to HTML. A blank delta renders as the canonical
// empty paragraph so the has-content predicate holds across the round trip.
func Render(d Delta) string {
	if d.IsZero() {
		return ""
	}

	lines := splitLines(d)

	var out strings.Builder
	listOpen := "" // "ordered", "bullet" or ""
	for _, ln := range lines {
		listType, _ := ln.attrs["list"].(string)
		if listOpen != "" && listOpen != listType {
			out.WriteString(closeList(listOpen))
			listOpen = ""
		}
		if listType != "" && listOpen == "" {
			out.WriteString(openList(listType))
			listOpen = listType
		}
		out.WriteString(renderLine(ln))
	}
	if listOpen != "" {
		out.WriteString(closeList(listOpen))
	}
	return out.String()
}

// splitLines walks the ops and cuts them into lines at newline inserts. The
// attributes of each newline become the block attributes of the line it ends.
func splitLines(d Delta) []line {
	var lines []line
	var current []segment

	for _, op := range d.Ops {
		switch ins := op.Insert.(type) {
		case string:
			rest := ins
			for {
				idx := strings.IndexByte(rest, '\n')
				if idx < 0 {
					break
				}
				if idx > 0 {
					current = append(current, segment{text: rest[:idx], attrs: op.Attributes})
				}
				lines = append(lines, line{segments: current, attrs: op.Attributes})
				current = nil
				rest = rest[idx+1:]
			}
			if rest != "" {
				current = append(current, segment{text: rest, attrs: op.Attributes})
			}
		case map[string]any:
			current = append(current, segment{embed: renderEmbed(ins), attrs: op.Attributes})
		}
	}
	// A well-formed delta ends with a newline; tolerate one that does not.
	if len(current) > 0 {
		lines = append(lines, line{segments: current})
	}
	return lines
}

func renderLine(ln line) string {
	content := renderSegments(ln.segments)
	if content == "" {
		content = "<br>"
	}

	if lvl, ok := headerLevel(ln.attrs); ok {
		return fmt.Sprintf("<h%d>%s</h%d>", lvl, content, lvl)
	}
	if list, _ := ln.attrs["list"].(string); list != "" {
		return fmt.Sprintf("<li>%s</li>", content)
	}
	if truthy(ln.attrs["blockquote"]) {
		return fmt.Sprintf("<blockquote>%s</blockquote>", content)
	}
	if truthy(ln.attrs["code-block"]) {
		return fmt.Sprintf("<pre><code>%s</code></pre>", content)
	}
	return fmt.Sprintf("<p>%s</p>", content)
}

func renderSegments(segments []segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.embed != "" {
			b.WriteString(seg.embed)
			continue
		}
		b.WriteString(renderText(seg.text, seg.attrs))
	}
	return b.String()
}

// renderText escapes text and wraps inline marks, innermost first.
func renderText(text string, attrs map[string]any) string {
	out := html.EscapeString(text)
	if len(attrs) == 0 {
		return out
	}

	if truthy(attrs["code"]) {
		out = "<code>" + out + "</code>"
	}
	if style := inlineStyle(attrs); style != "" {
		out = fmt.Sprintf(`<span style="%s">%s</span>`, style, out)
	}
	if truthy(attrs["strike"]) {
		out = "<s>" + out + "</s>"
	}
	if truthy(attrs["underline"]) {
		out = "<u>" + out + "</u>"
	}
	if truthy(attrs["italic"]) {
		out = "<em>" + out + "</em>"
	}
	if truthy(attrs["bold"]) {
		out = "<strong>" + out + "</strong>"
	}
	if href, ok := attrs["link"].(string); ok && href != "" {
		out = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), out)
	}
	return out
}

func renderEmbed(embed map[string]any) string {
	if src, ok := embed["image"].(string); ok {
		return fmt.Sprintf(`<img src="%s">`, html.EscapeString(src))
	}
	// Unknown embed types are dropped rather than guessed at.
	return ""
}

func inlineStyle(attrs map[string]any) string {
	var parts []string
	if c, ok := attrs["color"].(string); ok && c != "" {
		parts = append(parts, "color: "+html.EscapeString(c))
	}
	if c, ok := attrs["background"].(string); ok && c != "" {
		parts = append(parts, "background-color: "+html.EscapeString(c))
	}
	return strings.Join(parts, "; ")
}

func headerLevel(attrs map[string]any) (int, bool) {
	raw, ok := attrs["header"]
	if !ok {
		return 0, false
	}
	// JSON numbers decode as float64.
	if f, ok := raw.(float64); ok && f >= 1 && f <= 6 {
		return int(f), true
	}
	if n, ok := raw.(int); ok && n >= 1 && n <= 6 {
		return n, true
	}
	return 0, false
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func openList(listType string) string {
	if listType == "ordered" {
		return "<ol>"
	}
	return "<ul>"
}

func closeList(listType string) string {
	if listType == "ordered" {
		return "</ol>"
	}
	return "</ul>"
}
