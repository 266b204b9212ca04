package toc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"doctoc/config"
	"doctoc/docx"
)

// Converger runs the estimate/write cycle exactly twice. The first pass works
// with front matter sizes guessed from entry counts, the second reopens the
// persisted package, measures what was actually written and patches only the
// page number runs of the entries. It never iterates to a fixed point.
type Converger struct {
	cfg *config.Config
	rpt *config.Report
	log *zap.Logger
}

func NewConverger(cfg *config.Config, rpt *config.Report, log *zap.Logger) *Converger {
	return &Converger{cfg: cfg, rpt: rpt, log: log}
}

var wsRe = regexp.MustCompile(`\s+`)

// normKey reduces heading text to a stable matching key: NFC form, lower
// case, no leading section numbering, collapsed whitespace.
func normKey(text string) string {
	text = norm.NFC.String(text)
	if m := numberedRe.FindStringSubmatch(text); m != nil {
		text = m[2]
	}
	return wsRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}

// frontMatterSpan holds the located boundaries of the written sections in the
// reopened package. Indexes are node indexes, -1 marks an absent section.
type frontMatterSpan struct {
	start, end int
	lofStart   int
	lotStart   int
}

func (fs frontMatterSpan) contains(i int) bool {
	return i >= fs.start && i <= fs.end
}

// locateFrontMatter finds the written sections by their titles and walks
// forward while nodes still look like generated content.
func (c *Converger) locateFrontMatter(nodes []*docx.Node) (frontMatterSpan, bool) {

	fm := c.cfg.Document.FrontMatter
	span := frontMatterSpan{start: -1, end: -1, lofStart: -1, lotStart: -1}

	for _, n := range nodes {
		if strings.EqualFold(strings.TrimSpace(n.Text), fm.TOCTitle) {
			span.start = n.Index
			break
		}
	}
	if span.start < 0 {
		return span, false
	}

	span.end = span.start
	for _, n := range nodes {
		if n.Index <= span.start {
			continue
		}
		text := strings.TrimSpace(n.Text)
		switch {
		case strings.EqualFold(text, fm.LOFTitle):
			span.lofStart = n.Index
		case strings.EqualFold(text, fm.LOTTitle):
			span.lotStart = n.Index
		case n.PageBreak && len(text) == 0:
		case entryShaped(n, text):
		default:
			return span, true
		}
		span.end = n.Index
	}
	return span, true
}

// entryShaped is the loose recognizer used when walking a known generated
// region, a dotted leader or a trailing number is enough.
func entryShaped(n *docx.Node, text string) bool {
	if len(text) == 0 {
		return true
	}
	return trailingPageRe.MatchString(text) || hasDotLeader(n.El) || strings.ContainsRune(n.Text, '\t')
}

// measureSizes derives the real front matter page counts from the located
// span, using title to title boundaries.
func (c *Converger) measureSizes(est *Estimator, nodes []*docx.Node, span frontMatterSpan) FrontMatterSizes {

	tocEnd := span.end
	if span.lofStart >= 0 {
		tocEnd = span.lofStart - 1
	} else if span.lotStart >= 0 {
		tocEnd = span.lotStart - 1
	}

	var sizes FrontMatterSizes
	sizes.TOCPages = est.PagesForLines(est.MeasureLines(nodes, span.start, tocEnd))
	if span.lofStart >= 0 {
		lofEnd := span.end
		if span.lotStart >= 0 {
			lofEnd = span.lotStart - 1
		}
		sizes.LOFPages = est.PagesForLines(est.MeasureLines(nodes, span.lofStart, lofEnd))
	}
	if span.lotStart >= 0 {
		sizes.LOTPages = est.PagesForLines(est.MeasureLines(nodes, span.lotStart, span.end))
	}
	return sizes
}

// patchPageRun rewrites the last all digit text run of an entry paragraph.
func patchPageRun(el *etree.Element, page int) bool {
	var target *etree.Element
	for _, t := range el.FindElements(".//w:t") {
		txt := strings.TrimSpace(t.Text())
		if len(txt) > 0 && isAllDigits(txt) {
			target = t
		}
	}
	if target == nil {
		return false
	}
	target.SetText(strconv.Itoa(page))
	return true
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// entryText is the visible text of an entry paragraph without the trailing
// page number and tab.
func entryText(n *docx.Node) string {
	text := n.Text
	if i := strings.LastIndexByte(text, '\t'); i >= 0 {
		text = text[:i]
	} else {
		text = strings.TrimRight(text, "0123456789 ")
	}
	return strings.TrimSpace(text)
}

// Rebuild performs the full two pass cycle on an already cleaned document:
// detect, estimate, write, persist, then reopen, re-measure and patch page
// numbers. Returns the number of TOC entries written.
func (c *Converger) Rebuild(d *docx.Document, det *Detector) (entriesWritten int, err error) {

	// pass one, estimated sizes
	est := NewEstimator(d.Geometry(), c.log)
	nodes := d.Nodes()
	headings := det.Headings(nodes, nil)
	captions := det.Captions(nodes, nil)

	sizes := est.EstimateSizes(len(headings), len(captions.Figures), len(captions.Tables))
	pages := est.Paginate(nodes, headings, &captions, sizes, nil)
	c.rpt.StoreData("outline.txt", []byte(DumpOutline(headings, &captions, pages)))

	syn, err := NewSynthesizer(c.cfg, est, c.log)
	if err != nil {
		return 0, err
	}
	written := syn.Synthesize(d, headings, pages, &captions)

	if err := d.Save(); err != nil {
		return 0, fmt.Errorf("failed to persist first pass: %w", err)
	}

	// pass two, measured sizes
	d2, err := docx.Open(d.Path, c.cfg.Document.Geometry, c.log)
	if err != nil {
		return 0, fmt.Errorf("failed to reopen package for second pass: %w", err)
	}
	defer func() {
		err = multierr.Append(err, d2.Cleanup())
	}()

	nodes2 := d2.Nodes()
	span, ok := c.locateFrontMatter(nodes2)
	if !ok {
		// nothing was written, an empty document is a valid result
		c.log.Debug("No front matter found on second pass")
		return written, nil
	}
	skip := span.contains

	est2 := NewEstimator(d2.Geometry(), c.log)
	measured := c.measureSizes(est2, nodes2, span)
	c.log.Debug("Measured front matter",
		zap.Int("toc_pages", measured.TOCPages),
		zap.Int("lof_pages", measured.LOFPages),
		zap.Int("lot_pages", measured.LOTPages))

	headings2 := det.Headings(nodes2, skip)
	captions2 := det.Captions(nodes2, skip)
	pages2 := est2.Paginate(nodes2, headings2, &captions2, measured, skip)

	c.patchEntries(d2, nodes2, span, headings2, &captions2, pages2)

	if err := d2.Save(); err != nil {
		return 0, fmt.Errorf("failed to persist second pass: %w", err)
	}
	return written, nil
}

// patchEntries walks the written span and rewrites page numbers. TOC entries
// are matched against re-detected headings by normalized text, list entries
// by caption ordinal. Duplicate heading texts are consumed in order.
func (c *Converger) patchEntries(d *docx.Document, nodes []*docx.Node, span frontMatterSpan, headings []Heading, captions *CaptionSet, pages *Pagination) {

	byText := make(map[string][]int)
	for _, h := range headings {
		k := normKey(h.Text)
		byText[k] = append(byText[k], pages.PageFor(h.NodeIndex))
	}
	figPage := make(map[int]int, len(captions.Figures))
	for _, f := range captions.Figures {
		figPage[f.Ordinal] = f.Page
	}
	tblPage := make(map[int]int, len(captions.Tables))
	for _, t := range captions.Tables {
		tblPage[t.Ordinal] = t.Page
	}

	tocEnd := span.end
	if span.lofStart >= 0 {
		tocEnd = span.lofStart - 1
	} else if span.lotStart >= 0 {
		tocEnd = span.lotStart - 1
	}

	patched := 0
	for _, n := range nodes {
		if !span.contains(n.Index) || n.Index == span.start ||
			n.Index == span.lofStart || n.Index == span.lotStart {
			continue
		}
		text := entryText(n)
		if len(text) == 0 {
			continue
		}

		var page int
		var found bool
		switch {
		case n.Index <= tocEnd:
			k := normKey(text)
			if q := byText[k]; len(q) > 0 {
				page, byText[k], found = q[0], q[1:], true
			}
		case span.lotStart >= 0 && n.Index > span.lotStart:
			if m := tableRe.FindStringSubmatch(text); m != nil {
				page, found = tblPage[atoiSafe(m[1])]
			}
		case span.lofStart >= 0 && n.Index > span.lofStart:
			if m := figureRe.FindStringSubmatch(text); m != nil {
				page, found = figPage[atoiSafe(m[1])]
			}
		}
		if found && patchPageRun(n.El, page) {
			patched++
		}
	}
	c.log.Debug("Second pass patch complete", zap.Int("patched", patched))
}
