package toc

import (
	"strings"
	"testing"
)

func TestDumpOutline(t *testing.T) {

	headings := []Heading{
		{Text: "Opening", Level: 1, Method: MethodStyle, NodeIndex: 2},
		{Text: "Details", Level: 2, Method: MethodOutline, NodeIndex: 5},
	}
	captions := &CaptionSet{
		Figures: []CaptionEntry{{Text: "Revenue", Ordinal: 1, Kind: KindFigure, NodeIndex: 4, Page: 3}},
	}
	pages := &Pagination{Pages: map[int]int{2: 3, 5: 4}, floor: 3}

	out := DumpOutline(headings, captions, pages)

	for _, want := range []string{
		"headings: 2",
		`[style] page 3 node 2`,
		`text: "Opening"`,
		`[outline] page 4 node 5`,
		"figures: 1",
		"figure 1 page 3 node 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("outline missing %q:\n%s", want, out)
		}
	}
	// deeper headings indent further
	if !strings.Contains(out, "    [outline]") {
		t.Errorf("level two heading not indented:\n%s", out)
	}
}
