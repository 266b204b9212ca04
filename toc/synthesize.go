package toc

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/beevik/etree"
	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"doctoc/config"
	"doctoc/docx"
)

// captionLabel feeds the configured entry templates.
type captionLabel struct {
	Number int
	Title  string
}

// Synthesizer writes fresh TOC/LOF/LOT sections immediately after the cover
// page. Entries carry a right aligned dotted leader to the page number and a
// synthesized hierarchical section number when the heading has none of its
// own. Hierarchy shows only through the numbering, entries are not indented.
type Synthesizer struct {
	fm      config.FrontMatterConfig
	figTmpl *template.Template
	tblTmpl *template.Template
	est     *Estimator
	log     *zap.Logger
}

func NewSynthesizer(cfg *config.Config, est *Estimator, log *zap.Logger) (*Synthesizer, error) {

	fm := cfg.Document.FrontMatter
	figTmpl, err := template.New("figure").Funcs(sprig.TxtFuncMap()).Parse(fm.FigureEntryTemplate)
	if err != nil {
		return nil, fmt.Errorf("bad figure entry template: %w", err)
	}
	tblTmpl, err := template.New("table").Funcs(sprig.TxtFuncMap()).Parse(fm.TableEntryTemplate)
	if err != nil {
		return nil, fmt.Errorf("bad table entry template: %w", err)
	}
	return &Synthesizer{fm: fm, figTmpl: figTmpl, tblTmpl: tblTmpl, est: est, log: log}, nil
}

// insertionPoint locates where front matter goes: right after the first
// explicit page break, or where the first page runs out of lines when the
// cover has no break of its own.
func (s *Synthesizer) insertionPoint(d *docx.Document) (ref *etree.Element, needBreak bool) {

	nodes := d.Nodes()
	for i, n := range nodes {
		if n.PageBreak {
			if i+1 < len(nodes) {
				return nodes[i+1].El, false
			}
			return nil, false
		}
	}
	lpp := float64(d.Geometry().LinesPerPage())
	var lines float64
	for _, n := range nodes {
		lines += s.est.lineCount(n, false)
		if lines > lpp {
			return n.El, true
		}
	}
	return nil, true
}

func (s *Synthesizer) titleNode(text string) *etree.Element {
	p := docx.NewParagraph()
	docx.AddRun(p, text, true, 14)
	return p
}

func (s *Synthesizer) entryNode(display string, page, bookmarkID int, geom docx.Geometry) *etree.Element {
	p := docx.NewParagraph()
	docx.SetRightDotTab(p, int(geom.UsableWidth()*20)) // points to twips
	docx.AddBookmark(p, bookmarkID, fmt.Sprintf("_Toc_%d_%s", bookmarkID, slug.Make(display)))
	docx.AddRun(p, display, false, 0)
	docx.AddTabRun(p)
	docx.AddRun(p, strconv.Itoa(page), false, 0)
	return p
}

func (s *Synthesizer) renderLabel(tmpl *template.Template, c CaptionEntry) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, captionLabel{Number: c.Ordinal, Title: c.Text}); err != nil {
		s.log.Warn("Entry template failed, using plain label", zap.Error(err))
		return fmt.Sprintf("%d: %s", c.Ordinal, c.Text)
	}
	return buf.String()
}

// sectionNumbers synthesizes hierarchical numbering for headings which do not
// already start with their own. Counter state is kept per level and deeper
// levels reset whenever a shallower one increments.
type sectionNumbers struct {
	counters [maxHeadingLevel + 1]int
}

func (sn *sectionNumbers) next(level int) string {
	if level < 1 {
		level = 1
	} else if level > maxHeadingLevel {
		level = maxHeadingLevel
	}
	sn.counters[level]++
	for l := level + 1; l <= maxHeadingLevel; l++ {
		sn.counters[l] = 0
	}
	var parts []string
	for l := 1; l <= level; l++ {
		if sn.counters[l] > 0 {
			parts = append(parts, strconv.Itoa(sn.counters[l]))
		}
	}
	return strings.Join(parts, ".")
}

// Synthesize inserts TOC, LOF and LOT sections into the document body. It
// returns the number of TOC entries written. Entry nodes are not kept around,
// the second pass reopens the persisted package and finds them by text.
func (s *Synthesizer) Synthesize(d *docx.Document, headings []Heading, pages *Pagination, captions *CaptionSet) int {

	geom := d.Geometry()
	ref, needBreak := s.insertionPoint(d)

	ordered := make([]Heading, len(headings))
	copy(ordered, headings)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := pages.PageFor(ordered[i].NodeIndex), pages.PageFor(ordered[j].NodeIndex)
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Level < ordered[j].Level
	})

	var (
		els     []*etree.Element
		written int
		numbers sectionNumbers
		bkID    = 1
	)
	if needBreak {
		els = append(els, docx.NewPageBreak())
	}

	els = append(els, s.titleNode(s.fm.TOCTitle))
	for _, h := range ordered {
		display := h.Text
		if !numberedRe.MatchString(display) {
			display = numbers.next(h.Level) + " " + display
		} else {
			// the heading brought its own numbering, keep counters in step
			numbers.next(h.Level)
		}
		els = append(els, s.entryNode(display, pages.PageFor(h.NodeIndex), bkID, geom))
		bkID++
		written++
	}

	if captions != nil && len(captions.Figures) > 0 {
		els = append(els, docx.NewPageBreak(), s.titleNode(s.fm.LOFTitle))
		figs := make([]CaptionEntry, len(captions.Figures))
		copy(figs, captions.Figures)
		sort.SliceStable(figs, func(i, j int) bool { return figs[i].Ordinal < figs[j].Ordinal })
		for _, c := range figs {
			els = append(els, s.entryNode(s.renderLabel(s.figTmpl, c), c.Page, bkID, geom))
			bkID++
		}
	}
	if captions != nil && len(captions.Tables) > 0 {
		els = append(els, docx.NewPageBreak(), s.titleNode(s.fm.LOTTitle))
		tbls := make([]CaptionEntry, len(captions.Tables))
		copy(tbls, captions.Tables)
		sort.SliceStable(tbls, func(i, j int) bool { return tbls[i].Ordinal < tbls[j].Ordinal })
		for _, c := range tbls {
			els = append(els, s.entryNode(s.renderLabel(s.tblTmpl, c), c.Page, bkID, geom))
			bkID++
		}
	}
	els = append(els, docx.NewPageBreak())

	d.InsertBefore(ref, els...)
	d.Refresh()

	s.log.Debug("Front matter written",
		zap.Int("toc_entries", written),
		zap.Int("nodes", len(els)))
	return written
}
