// Package richtext renders CMS structured text blocks as HTML templ components.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"

	"github.com/eringen/spacetraveling/content"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("p", "pre")
	p.AllowAttrs("loading", "decoding").OnElements("img")
	p.RequireNoFollowOnFullyQualifiedLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Component returns a templ.Component that renders blocks as sanitised HTML.
func Component(blocks []content.Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, AsHTML(blocks))
		return err
	})
}

// AsHTML renders blocks and sanitises the result.
func AsHTML(blocks []content.Block) string {
	var buf bytes.Buffer
	Render(&buf, blocks)
	return policy.Sanitize(buf.String())
}

// AsText flattens blocks to plain text, one block per line.
func AsText(blocks []content.Block) string {
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Render writes the unsanitised HTML representation of blocks to buf.
// Consecutive list items are grouped into one list.
func Render(buf *bytes.Buffer, blocks []content.Block) {
	inList := false
	inOrderedList := false
	imageCount := 0

	flushList := func() {
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
	}
	flushOrderedList := func() {
		if inOrderedList {
			buf.WriteString("</ol>")
			inOrderedList = false
		}
	}

	for _, b := range blocks {
		switch b.Type {
		case "list-item":
			flushOrderedList()
			if !inList {
				buf.WriteString("<ul>")
				inList = true
			}
			buf.WriteString("<li>" + FormatSpans(b.Text, b.Spans) + "</li>")
			continue
		case "o-list-item":
			flushList()
			if !inOrderedList {
				buf.WriteString("<ol>")
				inOrderedList = true
			}
			buf.WriteString("<li>" + FormatSpans(b.Text, b.Spans) + "</li>")
			continue
		}

		flushList()
		flushOrderedList()
		switch b.Type {
		case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
			tag := "h" + strings.TrimPrefix(b.Type, "heading")
			buf.WriteString("<" + tag + ">" + FormatSpans(b.Text, b.Spans) + "</" + tag + ">")
		case "preformatted":
			buf.WriteString("<pre>" + html.EscapeString(b.Text) + "</pre>")
		case "image":
			src := SafeURL(b.URL)
			if src == "" {
				continue
			}
			imageCount++
			loadAttr := `loading="lazy"`
			if imageCount == 1 {
				loadAttr = `loading="eager"`
			}
			buf.WriteString(`<p class="block-img"><img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `" ` + loadAttr + ` decoding="async"/></p>`)
		default:
			buf.WriteString("<p>" + FormatSpans(b.Text, b.Spans) + "</p>")
		}
	}
	flushList()
	flushOrderedList()
}

type boundary struct {
	pos   int
	open  bool
	index int
}

// FormatSpans escapes text and wraps the span ranges in inline tags.
// Span offsets count UTF-16 code units, as produced by the CMS editor.
// Overlapping spans are closed and reopened so the output stays well nested.
func FormatSpans(text string, spans []content.Span) string {
	units := utf16.Encode([]rune(text))
	var valid []content.Span
	for _, s := range spans {
		if s.Start < 0 || s.End > len(units) || s.Start >= s.End {
			continue
		}
		if _, ok := openTag(s); !ok {
			continue
		}
		valid = append(valid, s)
	}
	// Wider spans open first so nested spans close before them.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	var bounds []boundary
	for i, s := range valid {
		bounds = append(bounds, boundary{pos: s.Start, open: true, index: i}, boundary{pos: s.End, open: false, index: i})
	}
	sort.SliceStable(bounds, func(i, j int) bool {
		if bounds[i].pos != bounds[j].pos {
			return bounds[i].pos < bounds[j].pos
		}
		// closings before openings at the same offset, innermost first
		if bounds[i].open != bounds[j].open {
			return !bounds[i].open
		}
		return !bounds[i].open && bounds[i].index > bounds[j].index
	})

	var b strings.Builder
	var stack []int
	last := 0
	writeText := func(from, to int) {
		if from >= to {
			return
		}
		seg := string(utf16.Decode(units[from:to]))
		b.WriteString(strings.ReplaceAll(html.EscapeString(seg), "\n", "<br/>"))
	}
	for _, bd := range bounds {
		writeText(last, bd.pos)
		last = bd.pos
		if bd.open {
			tag, _ := openTag(valid[bd.index])
			b.WriteString(tag)
			stack = append(stack, bd.index)
			continue
		}
		// Close down to the span, then reopen whatever was above it.
		at := -1
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] == bd.index {
				at = i
				break
			}
		}
		if at < 0 {
			continue
		}
		for i := len(stack) - 1; i >= at; i-- {
			b.WriteString(closeTag(valid[stack[i]]))
		}
		reopen := append([]int(nil), stack[at+1:]...)
		stack = stack[:at]
		for _, idx := range reopen {
			tag, _ := openTag(valid[idx])
			b.WriteString(tag)
			stack = append(stack, idx)
		}
	}
	writeText(last, len(units))
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString(closeTag(valid[stack[i]]))
	}
	return b.String()
}

func openTag(s content.Span) (string, bool) {
	switch s.Type {
	case "strong":
		return "<strong>", true
	case "em":
		return "<em>", true
	case "hyperlink":
		if s.Data == nil {
			return "", false
		}
		href := SafeURL(s.Data.URL)
		if href == "" {
			return "", false
		}
		attrs := ""
		if s.Data.Target == "_blank" {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>`, true
	}
	return "", false
}

func closeTag(s content.Span) string {
	switch s.Type {
	case "strong":
		return "</strong>"
	case "em":
		return "</em>"
	default:
		return "</a>"
	}
}

// SafeURL validates and escapes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
