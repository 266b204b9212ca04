package docx

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"doctoc/config"
	"doctoc/docx/docxtest"
)

func testDefaults() config.GeometryConfig {
	return config.GeometryConfig{
		PageWidth:    612,
		PageHeight:   792,
		MarginTop:    72,
		MarginBottom: 72,
		MarginLeft:   72,
		MarginRight:  72,
		BaseFontSize: 12,
		LineSpacing:  1.15,
	}
}

func buildPackage(t *testing.T, b *docxtest.Builder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.docx")
	if err := b.Write(path); err != nil {
		t.Fatalf("unable to build test package: %v", err)
	}
	return path
}

func openPackage(t *testing.T, b *docxtest.Builder) *Document {
	t.Helper()
	d, err := Open(buildPackage(t, b), testDefaults(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unable to open package: %v", err)
	}
	t.Cleanup(func() { _ = d.Cleanup() })
	return d
}

func TestOpenParsesNodesInOrder(t *testing.T) {
	d := openPackage(t, docxtest.New().
		Text("Cover").
		PageBreak().
		Para(docxtest.Para{Text: "Overview", Style: "Heading1", Outline: -1}).
		Table(docxtest.Table{Cells: []string{"a", "b"}}).
		Text("Body text"))

	nodes := d.Nodes()
	if len(nodes) != 5 {
		t.Fatalf("expected 5 nodes, got %d", len(nodes))
	}
	if nodes[0].Text != "Cover" || nodes[0].Kind != KindParagraph {
		t.Fatalf("unexpected first node: %+v", nodes[0])
	}
	if !nodes[1].PageBreak {
		t.Fatal("page break flag lost")
	}
	if nodes[2].StyleName != "heading 1" {
		t.Fatalf("style name not resolved: %q", nodes[2].StyleName)
	}
	if nodes[3].Kind != KindTable || !nodes[3].ExtraSpace {
		t.Fatalf("table node misread: %+v", nodes[3])
	}
	if len(nodes[3].CellTexts) != 2 {
		t.Fatalf("expected 2 cell paragraphs, got %d", len(nodes[3].CellTexts))
	}
	for i, n := range nodes {
		if n.Index != i {
			t.Fatalf("node %d has index %d", i, n.Index)
		}
	}
}

func TestOpenMissingBodyPartFails(t *testing.T) {
	// a zip without word/document.xml must surface a hard error
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/styles.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("<w:styles/>")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, testDefaults(), zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error for package without a body part")
	}
}

func TestNodeFlags(t *testing.T) {
	d := openPackage(t, docxtest.New().
		Para(docxtest.Para{Text: "Bold claim", Bold: true, Outline: -1}).
		Para(docxtest.Para{Text: "Large", FontPt: 16, Outline: -1}).
		Para(docxtest.Para{Text: "Outlined", Outline: 1}).
		Para(docxtest.Para{Text: "item one", List: true, Outline: -1}).
		Para(docxtest.Para{Text: "", Outline: -1}).
		Para(docxtest.Para{Text: "with section", SectionBreak: true, Outline: -1}))

	nodes := d.Nodes()
	if !nodes[0].Bold {
		t.Fatal("bold run not detected")
	}
	if nodes[1].MaxRunFont != 16 {
		t.Fatalf("run font size misread: %g", nodes[1].MaxRunFont)
	}
	if nodes[2].OutlineLevel != 1 {
		t.Fatalf("outline level misread: %d", nodes[2].OutlineLevel)
	}
	if !nodes[3].ListItem {
		t.Fatal("list item not detected")
	}
	if !nodes[4].IsEmpty() {
		t.Fatal("empty paragraph not recognized")
	}
	if !nodes[5].SectionBreak {
		t.Fatal("section break not detected")
	}
}

func TestGeometryFromPackage(t *testing.T) {
	// A4-ish: 11906x16838 twips, 720 twips margins, 10pt font, single spacing
	d := openPackage(t, docxtest.New().
		WithGeometry(11906, 16838, 720).
		WithFont(10, 240).
		Text("content"))

	g := d.Geometry()
	if g.PageWidth < 595 || g.PageWidth > 596 {
		t.Fatalf("page width misread: %g", g.PageWidth)
	}
	if g.MarginLeft != 36 {
		t.Fatalf("margin misread: %g", g.MarginLeft)
	}
	if g.BaseFontSize != 10 {
		t.Fatalf("base font misread: %g", g.BaseFontSize)
	}
	if g.LineSpacing != 1.0 {
		t.Fatalf("line spacing misread: %g", g.LineSpacing)
	}
	if g.LinesPerPage() <= 0 {
		t.Fatal("lines per page must be positive")
	}
}

func TestEditAndSaveRoundTrip(t *testing.T) {
	path := buildPackage(t, docxtest.New().
		Text("first").
		Text("second").
		Text("third"))

	log := zaptest.NewLogger(t)
	d, err := Open(path, testDefaults(), log)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Cleanup()

	// remove the middle node, insert a replacement before the last one
	nodes := d.Nodes()
	d.RemoveNode(nodes[1])
	p := NewParagraph()
	AddRun(p, "inserted", false, 0)
	d.InsertBefore(nodes[2].El, p)
	d.Refresh()

	got := make([]string, 0, 3)
	for _, n := range d.Nodes() {
		got = append(got, n.Text)
	}
	want := []string{"first", "inserted", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("after edit: got %v, want %v", got, want)
		}
	}

	if err := d.Save(); err != nil {
		t.Fatalf("unable to save: %v", err)
	}

	// reopened package reflects the edit
	d2, err := Open(path, testDefaults(), log)
	if err != nil {
		t.Fatalf("unable to reopen saved package: %v", err)
	}
	defer d2.Cleanup()
	if len(d2.Nodes()) != 3 || d2.Nodes()[1].Text != "inserted" {
		t.Fatalf("edit did not survive save: %v", d2.Nodes())
	}
}

func TestBuilders(t *testing.T) {
	p := NewParagraph()
	SetRightDotTab(p, 9360)
	AddRun(p, "Overview", false, 0)
	AddTabRun(p)
	AddRun(p, "3", false, 0)
	AddBookmark(p, 7, "_Toc_overview")

	if tab := p.FindElement("w:pPr/w:tabs/w:tab"); tab == nil {
		t.Fatal("tab stop missing")
	} else {
		if tab.SelectAttrValue("w:leader", "") != "dot" {
			t.Fatal("dotted leader missing")
		}
		if tab.SelectAttrValue("w:val", "") != "right" {
			t.Fatal("right alignment missing")
		}
	}
	if bm := p.SelectElement("w:bookmarkStart"); bm == nil || bm.SelectAttrValue("w:name", "") != "_Toc_overview" {
		t.Fatal("bookmark missing")
	}

	br := NewPageBreak()
	if el := br.FindElement("w:r/w:br"); el == nil || el.SelectAttrValue("w:type", "") != "page" {
		t.Fatal("page break shape wrong")
	}
}
