package toc

import (
	"testing"

	"doctoc/docx/docxtest"
)

func TestCaptionDedup(t *testing.T) {

	path := buildDoc(t, docxtest.New().
		Text("Figure 1: Revenue Growth").
		Text("Some body content between the captions.").
		Text("Figure 1: Revenue Growth"))
	d := openDoc(t, path)

	set := newTestDetector(t, d).Captions(d.Nodes(), nil)
	if len(set.Figures) != 1 {
		t.Fatalf("expected one figure after dedup, got %d", len(set.Figures))
	}
	f := set.Figures[0]
	if f.Ordinal != 1 || f.Text != "Revenue Growth" {
		t.Errorf("unexpected caption: %+v", f)
	}
}

func TestBareCaptionGetsNextOrdinal(t *testing.T) {

	path := buildDoc(t, docxtest.New().
		Text("Figure 1: Revenue").
		Text("Figure : Costs Breakdown"))
	d := openDoc(t, path)

	set := newTestDetector(t, d).Captions(d.Nodes(), nil)
	if len(set.Figures) != 2 {
		t.Fatalf("expected two figures, got %+v", set.Figures)
	}
	if set.Figures[1].Ordinal != 2 {
		t.Errorf("malformed caption should get ordinal 2, got %d", set.Figures[1].Ordinal)
	}
	if set.Figures[1].Text != "Costs Breakdown" {
		t.Errorf("unexpected inferred caption title %q", set.Figures[1].Text)
	}
}

func TestBareCaptionWithNoPriorFigures(t *testing.T) {

	path := buildDoc(t, docxtest.New().Text("Fig: Standalone Sketch"))
	d := openDoc(t, path)

	set := newTestDetector(t, d).Captions(d.Nodes(), nil)
	if len(set.Figures) != 1 || set.Figures[0].Ordinal != 1 {
		t.Errorf("expected inferred ordinal 1, got %+v", set.Figures)
	}
}

func TestTableCaptionInsideCell(t *testing.T) {

	path := buildDoc(t, docxtest.New().
		Table(docxtest.Table{Cells: []string{"Table 2: Quarterly Stats", "plain cell"}}).
		Text("Table 1: Outside The Table"))
	d := openDoc(t, path)

	set := newTestDetector(t, d).Captions(d.Nodes(), nil)
	if len(set.Tables) != 2 {
		t.Fatalf("expected two tables, got %+v", set.Tables)
	}
	if !set.Tables[0].InCell || set.Tables[0].Ordinal != 2 {
		t.Errorf("cell caption not tracked: %+v", set.Tables[0])
	}
	if set.Tables[1].InCell {
		t.Errorf("body caption marked as cell caption: %+v", set.Tables[1])
	}
}

func TestCaptionVariants(t *testing.T) {

	cases := []struct {
		name    string
		text    string
		kind    CaptionKind
		ordinal int
	}{
		{"abbreviated", "Fig. 3: Sensor Layout", KindFigure, 3},
		{"dot separator", "Figure 7. Network Topology", KindFigure, 7},
		{"case insensitive", "TABLE 4: Raw Data", KindTable, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := buildDoc(t, docxtest.New().Text(tc.text))
			d := openDoc(t, path)

			set := newTestDetector(t, d).Captions(d.Nodes(), nil)
			var got []CaptionEntry
			if tc.kind == KindFigure {
				got = set.Figures
			} else {
				got = set.Tables
			}
			if len(got) != 1 || got[0].Ordinal != tc.ordinal {
				t.Errorf("expected one %s with ordinal %d, got %+v", tc.kind, tc.ordinal, got)
			}
		})
	}
}
