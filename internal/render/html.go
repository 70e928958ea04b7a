package render

import (
	"html"
	"strings"
)

// WriteHTML serialises blocks to an HTML fragment. Every literal text run,
// title, and URL goes through html.EscapeString, so the escape step precedes
// any structural markup in the output by construction.
func WriteHTML(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Kind {
		case BlockQuote:
			b.WriteString("<blockquote>")
			writeSegments(&b, blk.Segments)
			b.WriteString("</blockquote>")
		default:
			writeSegments(&b, blk.Segments)
		}
	}
	return b.String()
}

func writeSegments(b *strings.Builder, segs []Segment) {
	for _, s := range segs {
		switch s.Kind {
		case SegText:
			b.WriteString(html.EscapeString(s.Text))
		case SegHighlight:
			b.WriteString("<mark>")
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString("</mark>")
		case SegLink:
			b.WriteString(`<a href="`)
			b.WriteString(html.EscapeString(s.URL))
			b.WriteString(`" rel="noopener">`)
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString("</a>")
		case SegAutoLink:
			u := html.EscapeString(s.URL)
			b.WriteString(`<a href="`)
			b.WriteString(u)
			b.WriteString(`" rel="noopener">`)
			b.WriteString(u)
			b.WriteString("</a>")
		case SegNoteLink:
			ref := html.EscapeString(s.Ref)
			if s.Unresolved {
				b.WriteString(`<span class="broken-link">[[`)
				b.WriteString(ref)
				b.WriteString(" (not found)]]</span>")
			} else {
				b.WriteString(`<a href="#" class="note-link" data-ref="`)
				b.WriteString(ref)
				b.WriteString(`">[[`)
				b.WriteString(ref)
				b.WriteString(" ")
				b.WriteString(html.EscapeString(s.Title))
				b.WriteString("]]</a>")
			}
		case SegBreak:
			b.WriteString("<br>")
		}
	}
}
