package toc

import (
	"fmt"
	"strconv"
	"strings"
)

// outlineWriter renders detected document structure as an indented text tree
// for the debug report.
type outlineWriter struct {
	w *strings.Builder
}

func newOutlineWriter() *outlineWriter {
	return &outlineWriter{
		w: &strings.Builder{},
	}
}

func (ow outlineWriter) String() string {
	return ow.w.String()
}

func (ow outlineWriter) Line(depth int, format string, args ...any) {
	for range depth {
		ow.w.WriteString("  ")
	}
	fmt.Fprintf(ow.w, format, args...)
	ow.w.WriteByte('\n')
}

func (ow outlineWriter) TextBlock(depth int, label, value string) {
	for range depth {
		ow.w.WriteString("  ")
	}
	ow.w.WriteString(label)
	ow.w.WriteString(": ")
	ow.w.WriteString(encodeText(value))
	ow.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

// DumpOutline renders headings, captions and their estimated pages. Depth
// follows heading levels so the section structure reads at a glance.
func DumpOutline(headings []Heading, captions *CaptionSet, pages *Pagination) string {

	ow := newOutlineWriter()
	ow.Line(0, "headings: %d", len(headings))
	for _, h := range headings {
		ow.Line(h.Level, "[%s] page %d node %d", h.Method, pages.PageFor(h.NodeIndex), h.NodeIndex)
		ow.TextBlock(h.Level+1, "text", h.Text)
	}
	if captions == nil || captions.Empty() {
		return ow.String()
	}
	ow.Line(0, "figures: %d", len(captions.Figures))
	for _, c := range captions.Figures {
		ow.Line(1, "figure %d page %d node %d", c.Ordinal, c.Page, c.NodeIndex)
		ow.TextBlock(2, "text", c.Text)
	}
	ow.Line(0, "tables: %d", len(captions.Tables))
	for _, c := range captions.Tables {
		ow.Line(1, "table %d page %d node %d in_cell %t", c.Ordinal, c.Page, c.NodeIndex, c.InCell)
		ow.TextBlock(2, "text", c.Text)
	}
	return ow.String()
}
