package summary

import (
	"html"
	"strconv"
	"strings"
)

// BlockKind identifies a document block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
	BlockBreak
)

// Span is a run of inline text.
type Span struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Block is one line of an interpreted response.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"` // heading level 1..6
	Spans []Span    `json:"spans,omitempty"`
}

// Document is a display-ready summary.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// InterpretResponse converts a Markdown-flavoured answer in one pass over its
// lines. It understands headings, "* " and "- " bullets, blank lines and
// **bold**; every other line is a paragraph.
func InterpretResponse(raw string) Document {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")

	doc := Document{Blocks: make([]Block, 0, len(lines))}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockBreak})
			continue
		}
		if level, text, ok := heading(trimmed); ok {
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockHeading, Level: level, Spans: parseInline(text)})
			continue
		}
		if strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "- ") {
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockListItem, Spans: parseInline(strings.TrimSpace(trimmed[2:]))})
			continue
		}
		doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Spans: parseInline(trimmed)})
	}
	return doc
}

func heading(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(line) || line[level] != ' ' {
		return 0, "", false
	}
	return level, strings.TrimSpace(line[level:]), true
}

func parseInline(s string) []Span {
	parts := strings.Split(s, "**")
	// An odd number of markers leaves the last one unmatched; keep it literal.
	if len(parts)%2 == 0 {
		n := len(parts)
		parts = append(parts[:n-2], parts[n-2]+"**"+parts[n-1])
	}

	spans := make([]Span, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		spans = append(spans, Span{Text: p, Bold: i%2 == 1})
	}
	return spans
}

// Empty reports whether the document has no text.
func (d Document) Empty() bool {
	for _, b := range d.Blocks {
		if len(b.Spans) > 0 {
			return false
		}
	}
	return true
}

// HTML renders the document as escaped markup. Consecutive list items share
// one <ul>.
func (d Document) HTML() string {
	var sb strings.Builder
	inList := false
	for _, b := range d.Blocks {
		if b.Kind != BlockListItem && inList {
			sb.WriteString("</ul>\n")
			inList = false
		}
		switch b.Kind {
		case BlockHeading:
			tag := "h" + strconv.Itoa(b.Level)
			sb.WriteString("<" + tag + ">")
			writeSpansHTML(&sb, b.Spans)
			sb.WriteString("</" + tag + ">\n")
		case BlockListItem:
			if !inList {
				sb.WriteString("<ul>\n")
				inList = true
			}
			sb.WriteString("<li>")
			writeSpansHTML(&sb, b.Spans)
			sb.WriteString("</li>\n")
		case BlockBreak:
			sb.WriteString("<br>\n")
		default:
			sb.WriteString("<p>")
			writeSpansHTML(&sb, b.Spans)
			sb.WriteString("</p>\n")
		}
	}
	if inList {
		sb.WriteString("</ul>\n")
	}
	return sb.String()
}

func writeSpansHTML(sb *strings.Builder, spans []Span) {
	for _, s := range spans {
		if s.Bold {
			sb.WriteString("<strong>" + html.EscapeString(s.Text) + "</strong>")
			continue
		}
		sb.WriteString(html.EscapeString(s.Text))
	}
}

// Markdown renders the document back to normalised Markdown.
func (d Document) Markdown() string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		switch b.Kind {
		case BlockHeading:
			sb.WriteString(strings.Repeat("#", b.Level) + " ")
		case BlockListItem:
			sb.WriteString("* ")
		}
		writeSpansMarkdown(&sb, b.Spans)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Text renders the document without markup.
func (d Document) Text() string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		if b.Kind == BlockListItem {
			sb.WriteString("• ")
		}
		for _, s := range b.Spans {
			sb.WriteString(s.Text)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeSpansMarkdown(sb *strings.Builder, spans []Span) {
	for _, s := range spans {
		if s.Bold {
			sb.WriteString("**" + s.Text + "**")
			continue
		}
		sb.WriteString(s.Text)
	}
}

// messageDocument wraps a fixed message as a one-paragraph document.
func messageDocument(msg string) Document {
	return Document{Blocks: []Block{{Kind: BlockParagraph, Spans: []Span{{Text: msg}}}}}
}
