package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Builders for new body elements. Everything the synthesizer writes is
// assembled here so the XML shape of generated content stays in one place.

// NewParagraph creates a detached empty w:p element.
func NewParagraph() *etree.Element {
	return etree.NewElement("w:p")
}

// NewPageBreak creates a paragraph containing only an explicit page break.
func NewPageBreak() *etree.Element {
	p := NewParagraph()
	r := p.CreateElement("w:r")
	br := r.CreateElement("w:br")
	br.CreateAttr("w:type", "page")
	return p
}

// AddRun appends a text run. Bold and size (in points, 0 to omit) apply to
// the run only.
func AddRun(p *etree.Element, text string, bold bool, sizePt float64) *etree.Element {
	r := p.CreateElement("w:r")
	if bold || sizePt > 0 {
		rPr := r.CreateElement("w:rPr")
		if bold {
			rPr.CreateElement("w:b")
		}
		if sizePt > 0 {
			sz := rPr.CreateElement("w:sz")
			sz.CreateAttr("w:val", strconv.Itoa(int(sizePt*2))) // half-points
		}
	}
	t := r.CreateElement("w:t")
	if text != strings.TrimSpace(text) {
		t.CreateAttr("xml:space", "preserve")
	}
	t.SetText(text)
	return r
}

// AddTabRun appends a run holding a single tab character.
func AddTabRun(p *etree.Element) {
	r := p.CreateElement("w:r")
	r.CreateElement("w:tab")
}

// SetRightDotTab configures the paragraph with a single right-aligned tab
// stop with a dotted leader at pos twips - the classic TOC entry shape.
func SetRightDotTab(p *etree.Element, posTwips int) {
	pPr := p.SelectElement("w:pPr")
	if pPr == nil {
		pPr = etree.NewElement("w:pPr")
		p.InsertChildAt(0, pPr)
	}
	tabs := pPr.CreateElement("w:tabs")
	tab := tabs.CreateElement("w:tab")
	tab.CreateAttr("w:val", "right")
	tab.CreateAttr("w:leader", "dot")
	tab.CreateAttr("w:pos", strconv.Itoa(posTwips))
}

// AddBookmark wraps the paragraph start in a named bookmark so generated
// entries stay addressable.
func AddBookmark(p *etree.Element, id int, name string) {
	start := etree.NewElement("w:bookmarkStart")
	start.CreateAttr("w:id", strconv.Itoa(id))
	start.CreateAttr("w:name", name)
	end := etree.NewElement("w:bookmarkEnd")
	end.CreateAttr("w:id", strconv.Itoa(id))

	at := 0
	if pPr := p.SelectElement("w:pPr"); pPr != nil {
		at = pPr.Index() + 1
	}
	p.InsertChildAt(at, start)
	p.InsertChildAt(at+1, end)
}
