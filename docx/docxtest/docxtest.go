// Package docxtest builds small synthetic word-processing packages for tests.
package docxtest

import (
	"archive/zip"
	"fmt"
	"os"
	"strconv"

	"github.com/beevik/etree"
)

// Para describes one test paragraph.
type Para struct {
	Text         string
	Style        string // style ID, resolved through the styles part
	Outline      int    // w:outlineLvl value, negative to omit
	Bold         bool
	FontPt       float64 // explicit run size in points, 0 to omit
	PageBreak    bool
	SectionBreak bool
	List         bool
}

// Table describes one test table; every string becomes a one-paragraph cell.
type Table struct {
	Cells []string
}

// Builder accumulates content and emits a minimal but well-formed package.
type Builder struct {
	items  []any
	styles map[string]string

	pageWTw, pageHTw int
	marginTw         int
	baseFontHalfPt   int
	lineSpacing240   int
}

func New() *Builder {
	return &Builder{
		styles: map[string]string{
			"Heading1": "heading 1",
			"Heading2": "heading 2",
			"Heading3": "heading 3",
			"Title":    "Title",
		},
		pageWTw:        12240, // Letter
		pageHTw:        15840,
		marginTw:       1440, // one inch
		baseFontHalfPt: 24,   // 12pt
		lineSpacing240: 276,  // 1.15
	}
}

func (b *Builder) Para(p Para) *Builder {
	b.items = append(b.items, p)
	return b
}

// Text is shorthand for a plain body paragraph.
func (b *Builder) Text(text string) *Builder {
	return b.Para(Para{Text: text, Outline: -1})
}

func (b *Builder) PageBreak() *Builder {
	return b.Para(Para{PageBreak: true, Outline: -1})
}

func (b *Builder) Table(t Table) *Builder {
	b.items = append(b.items, t)
	return b
}

func (b *Builder) WithStyle(id, name string) *Builder {
	b.styles[id] = name
	return b
}

// WithGeometry overrides page size and margins, all in twips.
func (b *Builder) WithGeometry(widthTw, heightTw, marginTw int) *Builder {
	b.pageWTw, b.pageHTw, b.marginTw = widthTw, heightTw, marginTw
	return b
}

// WithFont overrides document default font size (points) and spacing (1.0 == 240).
func (b *Builder) WithFont(fontPt float64, spacing240 int) *Builder {
	b.baseFontHalfPt = int(fontPt * 2)
	b.lineSpacing240 = spacing240
	return b
}

// Write assembles the package at path.
func (b *Builder) Write(path string) error {

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypes)},
		{"word/document.xml", b.documentXML()},
		{"word/styles.xml", b.stylesXML()},
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create package: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("unable to create part %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return fmt.Errorf("unable to write part %s: %w", part.name, err)
		}
	}
	return zw.Close()
}

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

func (b *Builder) documentXML() []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", "http://schemas.openxmlformats.org/wordprocessingml/2006/main")
	body := root.CreateElement("w:body")

	for _, item := range b.items {
		switch it := item.(type) {
		case Para:
			writePara(body, it)
		case Table:
			tbl := body.CreateElement("w:tbl")
			tr := tbl.CreateElement("w:tr")
			for _, cell := range it.Cells {
				tc := tr.CreateElement("w:tc")
				writePara(tc, Para{Text: cell, Outline: -1})
			}
		}
	}

	sectPr := body.CreateElement("w:sectPr")
	pgSz := sectPr.CreateElement("w:pgSz")
	pgSz.CreateAttr("w:w", strconv.Itoa(b.pageWTw))
	pgSz.CreateAttr("w:h", strconv.Itoa(b.pageHTw))
	pgMar := sectPr.CreateElement("w:pgMar")
	pgMar.CreateAttr("w:top", strconv.Itoa(b.marginTw))
	pgMar.CreateAttr("w:bottom", strconv.Itoa(b.marginTw))
	pgMar.CreateAttr("w:left", strconv.Itoa(b.marginTw))
	pgMar.CreateAttr("w:right", strconv.Itoa(b.marginTw))

	data, err := doc.WriteToBytes()
	if err != nil {
		panic(err) // cannot happen for a tree we just built
	}
	return data
}

func writePara(parent *etree.Element, p Para) {
	el := parent.CreateElement("w:p")

	var pPr *etree.Element
	ensure := func() *etree.Element {
		if pPr == nil {
			pPr = etree.NewElement("w:pPr")
			el.InsertChildAt(0, pPr)
		}
		return pPr
	}

	if len(p.Style) > 0 {
		st := ensure().CreateElement("w:pStyle")
		st.CreateAttr("w:val", p.Style)
	}
	if p.Outline >= 0 {
		ol := ensure().CreateElement("w:outlineLvl")
		ol.CreateAttr("w:val", strconv.Itoa(p.Outline))
	}
	if p.List {
		numPr := ensure().CreateElement("w:numPr")
		numID := numPr.CreateElement("w:numId")
		numID.CreateAttr("w:val", "1")
	}
	if p.SectionBreak {
		ensure().CreateElement("w:sectPr")
	}

	if p.PageBreak {
		r := el.CreateElement("w:r")
		br := r.CreateElement("w:br")
		br.CreateAttr("w:type", "page")
	}

	if len(p.Text) > 0 {
		r := el.CreateElement("w:r")
		if p.Bold || p.FontPt > 0 {
			rPr := r.CreateElement("w:rPr")
			if p.Bold {
				rPr.CreateElement("w:b")
			}
			if p.FontPt > 0 {
				sz := rPr.CreateElement("w:sz")
				sz.CreateAttr("w:val", strconv.Itoa(int(p.FontPt*2)))
			}
		}
		t := r.CreateElement("w:t")
		t.SetText(p.Text)
	}
}

func (b *Builder) stylesXML() []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	root := doc.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", "http://schemas.openxmlformats.org/wordprocessingml/2006/main")

	dflt := root.CreateElement("w:docDefaults")
	rprD := dflt.CreateElement("w:rPrDefault")
	rpr := rprD.CreateElement("w:rPr")
	sz := rpr.CreateElement("w:sz")
	sz.CreateAttr("w:val", strconv.Itoa(b.baseFontHalfPt))
	pprD := dflt.CreateElement("w:pPrDefault")
	ppr := pprD.CreateElement("w:pPr")
	sp := ppr.CreateElement("w:spacing")
	sp.CreateAttr("w:line", strconv.Itoa(b.lineSpacing240))

	for id, name := range b.styles {
		st := root.CreateElement("w:style")
		st.CreateAttr("w:styleId", id)
		st.CreateAttr("w:type", "paragraph")
		n := st.CreateElement("w:name")
		n.CreateAttr("w:val", name)
	}

	data, err := doc.WriteToBytes()
	if err != nil {
		panic(err)
	}
	return data
}
