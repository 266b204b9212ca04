package toc

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"doctoc/docx/docxtest"
)

func runSynthesis(t *testing.T, path string) []string {
	t.Helper()

	d := openDoc(t, path)
	det := newTestDetector(t, d)
	est := NewEstimator(d.Geometry(), zaptest.NewLogger(t))

	headings := det.Headings(d.Nodes(), nil)
	captions := det.Captions(d.Nodes(), nil)
	sizes := est.EstimateSizes(len(headings), len(captions.Figures), len(captions.Tables))
	pages := est.Paginate(d.Nodes(), headings, &captions, sizes, nil)

	syn, err := NewSynthesizer(testConfig(t), est, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unable to create synthesizer: %v", err)
	}
	syn.Synthesize(d, headings, pages, &captions)

	var texts []string
	for _, n := range d.Nodes() {
		texts = append(texts, n.Text)
	}
	return texts
}

func TestSynthesizeAfterCoverBreak(t *testing.T) {

	texts := runSynthesis(t, buildDoc(t, docxtest.New().
		Text("Cover Page").
		PageBreak().
		Para(docxtest.Para{Text: "Alpha", Style: "Heading1", Outline: -1}).
		Text("Figure 1: Revenue").
		Para(docxtest.Para{Text: "Beta", Style: "Heading1", Outline: -1})))

	// cover and its break stay put, the TOC title lands right after
	if texts[0] != "Cover Page" || texts[2] != "Table of Contents" {
		t.Fatalf("unexpected layout: %q", texts[:3])
	}
	if !strings.HasPrefix(texts[3], "1 Alpha\t") || !strings.HasPrefix(texts[4], "2 Beta\t") {
		t.Errorf("entries missing synthesized numbering: %q", texts[3:5])
	}
	// a figure was found, so the list of figures follows behind a break
	var lofAt int
	for i, s := range texts {
		if s == "List of Figures" {
			lofAt = i
		}
	}
	if lofAt == 0 {
		t.Fatalf("list of figures not written: %q", texts)
	}
	if !strings.HasPrefix(texts[lofAt+1], "Figure 1: Revenue\t") {
		t.Errorf("unexpected figure entry %q", texts[lofAt+1])
	}
	// body resumes after the final break
	if texts[len(texts)-3] != "Alpha" && texts[len(texts)-4] != "Alpha" {
		t.Errorf("body content displaced: %q", texts)
	}
}

func TestSynthesizeKeepsExistingNumbering(t *testing.T) {

	texts := runSynthesis(t, buildDoc(t, docxtest.New().
		Text("Cover Page").
		PageBreak().
		Para(docxtest.Para{Text: "3.1 Custom Numbered", Bold: true, Outline: -1})))

	found := false
	for _, s := range texts {
		if strings.HasPrefix(s, "3.1 Custom Numbered\t") {
			found = true
		}
		if strings.HasPrefix(s, "1 3.1") {
			t.Errorf("numbering prefixed twice: %q", s)
		}
	}
	if !found {
		t.Errorf("pre-numbered heading entry not written: %q", texts)
	}
}

func TestSynthesizeWithoutCoverBreak(t *testing.T) {

	texts := runSynthesis(t, buildDoc(t, docxtest.New().
		Text("Tiny document").
		Para(docxtest.Para{Text: "Only Heading", Style: "Heading1", Outline: -1})))

	// nothing exhausts page one, front matter goes to the end with its own break
	if texts[0] != "Tiny document" || texts[1] != "Only Heading" {
		t.Fatalf("body content moved: %q", texts[:2])
	}
	sawBreakThenTitle := false
	for i := 1; i < len(texts); i++ {
		if texts[i] == "Table of Contents" && strings.TrimSpace(texts[i-1]) == "" {
			sawBreakThenTitle = true
		}
	}
	if !sawBreakThenTitle {
		t.Errorf("expected a page break in front of the appended title: %q", texts)
	}
}

func TestSectionNumbering(t *testing.T) {

	var sn sectionNumbers
	steps := []struct {
		level int
		want  string
	}{
		{1, "1"},
		{2, "1.1"},
		{2, "1.2"},
		{3, "1.2.1"},
		{1, "2"},
		{2, "2.1"},
	}
	for _, s := range steps {
		if got := sn.next(s.level); got != s.want {
			t.Fatalf("level %d numbered %q, expected %q", s.level, got, s.want)
		}
	}
}

func TestEntriesOrderedByPageThenLevel(t *testing.T) {

	b := docxtest.New().Text("Cover Page").PageBreak()
	filler := strings.Repeat("Padding text keeps the next heading further down the document. ", 10)
	b.Para(docxtest.Para{Text: "Deep One", Style: "Heading2", Outline: -1})
	for i := 0; i < 30; i++ {
		b.Text(filler)
	}
	b.Para(docxtest.Para{Text: "Top Late", Style: "Heading1", Outline: -1})
	texts := runSynthesis(t, buildDoc(t, b))

	deepAt, topAt := -1, -1
	for i, s := range texts {
		if strings.Contains(s, "Deep One\t") {
			deepAt = i
		}
		if strings.Contains(s, "Top Late\t") {
			topAt = i
		}
	}
	if deepAt < 0 || topAt < 0 {
		t.Fatalf("entries missing: %q", texts)
	}
	if deepAt > topAt {
		t.Errorf("earlier page entry written after later one")
	}
}
