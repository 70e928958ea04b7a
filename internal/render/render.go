// Package render scans raw note content for the inline markup subset and
// resolves [[ref]] cross-references against a note set snapshot.
//
// The renderer is pure and total: unresolved refs are a normal, flagged
// outcome, never an error. Output is a stream of structured blocks; writing
// them out (see html.go) escapes every literal text run, so markup-looking
// text inside a note can never inject structure.
package render

import (
	"regexp"
	"strings"

	"github.com/starford/laguz/internal/models"
)

var (
	refRe       = regexp.MustCompile(`\[\[([\d.]+|B\d+)\]\]`)
	highlightRe = regexp.MustCompile(`==([^=\n]+)==`)
	extLinkRe   = regexp.MustCompile(`\[([^\[\]\n]*)\]\((https?://[^\s)]+)\)`)
	urlRe       = regexp.MustCompile(`https?://[^\s<>"]+`)
)

// Lookup resolves a ref to a note. *treeindex.Snapshot satisfies it.
type Lookup interface {
	ByRef(ref string) (*models.Note, bool)
}

// SegmentKind enumerates inline segment types.
type SegmentKind string

const (
	SegText      SegmentKind = "text"
	SegHighlight SegmentKind = "highlight"
	SegLink      SegmentKind = "link"
	SegAutoLink  SegmentKind = "autolink"
	SegNoteLink  SegmentKind = "note_link"
	SegBreak     SegmentKind = "break"
)

// Segment is one inline span of rendered output.
type Segment struct {
	Kind       SegmentKind `json:"kind"`
	Text       string      `json:"text,omitempty"`
	URL        string      `json:"url,omitempty"`
	Ref        string      `json:"ref,omitempty"`
	Title      string      `json:"title,omitempty"`
	TargetID   int64       `json:"target_id,omitempty"`
	Unresolved bool        `json:"unresolved,omitempty"`
}

// BlockKind enumerates block types.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockQuote     BlockKind = "quote"
)

// Block is a run of segments, either plain flow or a quoted block.
type Block struct {
	Kind     BlockKind `json:"kind"`
	Segments []Segment `json:"segments"`
}

// Link is one [[ref]] token found in content, with its byte span.
type Link struct {
	Ref        string `json:"ref"`
	Title      string `json:"title,omitempty"`
	TargetID   int64  `json:"target_id,omitempty"`
	Unresolved bool   `json:"unresolved,omitempty"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// ResolveLinks finds all [[ref]] tokens in content, left to right and
// non-overlapping, and resolves each against the note set. Lookup is exact
// and case-sensitive; a miss yields an Unresolved link, not an error.
func ResolveLinks(content string, notes Lookup) []Link {
	idxs := refRe.FindAllStringSubmatchIndex(content, -1)
	out := make([]Link, 0, len(idxs))
	for _, m := range idxs {
		ref := content[m[2]:m[3]]
		link := Link{Ref: ref, Start: m[0], End: m[1]}
		if n, ok := notes.ByRef(ref); ok {
			link.Title = n.Title
			link.TargetID = n.ID
		} else {
			link.Unresolved = true
		}
		out = append(out, link)
	}
	return out
}

const quotePrefix = "> "

// Render turns raw content into blocks. Inline markup is applied per line in
// fixed order (highlight, explicit link, auto-link, ref link); consecutive
// "> " lines merge into one quote block; remaining newlines become breaks.
func Render(content string, notes Lookup) []Block {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var blocks []Block
	var cur *Block

	flush := func() { cur = nil }
	appendLine := func(kind BlockKind, segs []Segment) {
		if cur == nil || cur.Kind != kind {
			blocks = append(blocks, Block{Kind: kind})
			cur = &blocks[len(blocks)-1]
		} else if len(cur.Segments) > 0 || kind == BlockParagraph {
			cur.Segments = append(cur.Segments, Segment{Kind: SegBreak})
		}
		cur.Segments = append(cur.Segments, segs...)
	}

	for _, line := range lines {
		if strings.HasPrefix(line, quotePrefix) {
			appendLine(BlockQuote, renderInline(line[len(quotePrefix):], notes))
			continue
		}
		if cur != nil && cur.Kind == BlockQuote {
			// A non-quoted line ends the quote run.
			flush()
		}
		appendLine(BlockParagraph, renderInline(line, notes))
	}
	return blocks
}

// renderInline scans one line for markup tokens, earliest match first. Ties
// at the same position resolve in pipeline order: highlight, explicit link,
// ref link. Plain stretches between tokens are auto-linked.
func renderInline(line string, notes Lookup) []Segment {
	var segs []Segment
	rest := line

	for rest != "" {
		type match struct {
			loc  []int
			kind SegmentKind
		}
		best := match{}
		consider := func(re *regexp.Regexp, kind SegmentKind) {
			loc := re.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			if best.loc == nil || loc[0] < best.loc[0] {
				best = match{loc: loc, kind: kind}
			}
		}
		consider(highlightRe, SegHighlight)
		consider(extLinkRe, SegLink)
		consider(refRe, SegNoteLink)

		if best.loc == nil {
			segs = appendAutoLinked(segs, rest)
			break
		}

		segs = appendAutoLinked(segs, rest[:best.loc[0]])

		switch best.kind {
		case SegHighlight:
			segs = append(segs, Segment{Kind: SegHighlight, Text: rest[best.loc[2]:best.loc[3]]})
		case SegLink:
			segs = append(segs, Segment{
				Kind: SegLink,
				Text: rest[best.loc[2]:best.loc[3]],
				URL:  rest[best.loc[4]:best.loc[5]],
			})
		case SegNoteLink:
			ref := rest[best.loc[2]:best.loc[3]]
			seg := Segment{Kind: SegNoteLink, Ref: ref}
			if n, ok := notes.ByRef(ref); ok {
				seg.Title = n.Title
				seg.TargetID = n.ID
			} else {
				seg.Unresolved = true
			}
			segs = append(segs, seg)
		}
		rest = rest[best.loc[1]:]
	}
	return segs
}

// appendAutoLinked splits text around bare http(s) URLs, emitting text and
// autolink segments. Empty text contributes nothing.
func appendAutoLinked(segs []Segment, text string) []Segment {
	for text != "" {
		loc := urlRe.FindStringIndex(text)
		if loc == nil {
			segs = append(segs, Segment{Kind: SegText, Text: text})
			break
		}
		if loc[0] > 0 {
			segs = append(segs, Segment{Kind: SegText, Text: text[:loc[0]]})
		}
		segs = append(segs, Segment{Kind: SegAutoLink, URL: text[loc[0]:loc[1]]})
		text = text[loc[1]:]
	}
	return segs
}
