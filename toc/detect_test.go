package toc

import (
	"testing"

	"doctoc/docx/docxtest"
)

func TestHeadingClassifiers(t *testing.T) {

	cases := []struct {
		name   string
		para   docxtest.Para
		level  int
		method DetectionMethod
	}{
		{"style title", docxtest.Para{Text: "Annual Report", Style: "Title", Outline: -1}, 1, MethodStyle},
		{"style heading", docxtest.Para{Text: "Alpha Section", Style: "Heading3", Outline: -1}, 3, MethodStyle},
		{"style wins over outline", docxtest.Para{Text: "Overview", Style: "Heading2", Outline: 0}, 2, MethodStyle},
		{"outline level", docxtest.Para{Text: "Part Two Details", Outline: 1}, 2, MethodOutline},
		{"numbered bold", docxtest.Para{Text: "2.3 Results Of Testing", Bold: true, Outline: -1}, 2, MethodNumberedBold},
		{"numbered large font", docxtest.Para{Text: "4 Big Section", FontPt: 16, Outline: -1}, 1, MethodNumberedBold},
		{"bold roman prefix", docxtest.Para{Text: "IV. Appendices", Bold: true, Outline: -1}, 1, MethodBoldShort},
		{"bold letter prefix", docxtest.Para{Text: "B) Alternatives", Bold: true, Outline: -1}, 2, MethodBoldShort},
		{"bold short", docxtest.Para{Text: "Cost Drivers", Bold: true, Outline: -1}, 3, MethodBoldShort},
		{"numbered plain", docxtest.Para{Text: "3. Discussion Topics", Outline: -1}, 1, MethodNumberedPlain},
		{"keyword", docxtest.Para{Text: "Introduction", Outline: -1}, 2, MethodKeyword},
		{"keyword with bare number", docxtest.Para{Text: "2. Methodology", Bold: true, Outline: -1}, 1, MethodNumberedBold},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := buildDoc(t, docxtest.New().Para(tc.para))
			d := openDoc(t, path)

			headings := newTestDetector(t, d).Headings(d.Nodes(), nil)
			if len(headings) != 1 {
				t.Fatalf("expected one heading, got %d", len(headings))
			}
			h := headings[0]
			if h.Level != tc.level || h.Method != tc.method {
				t.Errorf("got level %d via %s, expected level %d via %s", h.Level, h.Method, tc.level, tc.method)
			}
		})
	}
}

func TestNonHeadings(t *testing.T) {

	cases := []struct {
		name string
		para docxtest.Para
	}{
		{"plain sentence", docxtest.Para{Text: "The quarterly numbers held steady across all regions.", Outline: -1}},
		{"bold sentence", docxtest.Para{Text: "All systems were verified twice.", Bold: true, Outline: -1}},
		{"empty paragraph", docxtest.Para{Outline: -1}},
		{"whitespace only", docxtest.Para{Text: "   ", Outline: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := buildDoc(t, docxtest.New().Para(tc.para))
			d := openDoc(t, path)

			if headings := newTestDetector(t, d).Headings(d.Nodes(), nil); len(headings) != 0 {
				t.Errorf("expected no headings, got %+v", headings)
			}
		})
	}
}

func TestHeadingsKeepDocumentOrder(t *testing.T) {

	path := buildDoc(t, docxtest.New().
		Para(docxtest.Para{Text: "First", Style: "Heading1", Outline: -1}).
		Text("Some body content in between the headings.").
		Para(docxtest.Para{Text: "Second", Style: "Heading1", Outline: -1}).
		Para(docxtest.Para{Text: "Second", Style: "Heading2", Outline: -1}))
	d := openDoc(t, path)

	headings := newTestDetector(t, d).Headings(d.Nodes(), nil)
	if len(headings) != 3 {
		t.Fatalf("expected 3 headings, got %d", len(headings))
	}
	for i := 1; i < len(headings); i++ {
		if headings[i].NodeIndex <= headings[i-1].NodeIndex {
			t.Errorf("headings out of document order: %+v", headings)
		}
	}
	// duplicate text is legal, position tells them apart
	if headings[1].Text != "Second" || headings[2].Text != "Second" {
		t.Errorf("duplicate heading text not preserved: %+v", headings[1:])
	}
}

func TestHeadingsSkip(t *testing.T) {

	path := buildDoc(t, docxtest.New().
		Para(docxtest.Para{Text: "Kept", Style: "Heading1", Outline: -1}).
		Para(docxtest.Para{Text: "Skipped", Style: "Heading1", Outline: -1}))
	d := openDoc(t, path)

	skipped := d.Nodes()[1].Index
	headings := newTestDetector(t, d).Headings(d.Nodes(), func(i int) bool { return i == skipped })
	if len(headings) != 1 || headings[0].Text != "Kept" {
		t.Errorf("skip filter not honored: %+v", headings)
	}
}
