package toc

import (
	"math"

	"go.uber.org/zap"

	"doctoc/docx"
)

// FrontMatterSizes is the sole piece of state carried between convergence
// passes: how many pages the TOC, LOF and LOT sections occupy. The first
// pass estimates them from entry counts, the second measures the nodes that
// were actually written.
type FrontMatterSizes struct {
	TOCPages int
	LOFPages int
	LOTPages int
}

func (s FrontMatterSizes) Total() int {
	return s.TOCPages + s.LOFPages + s.LOTPages
}

// PageCursor is the mutable simulation state of one estimator pass.
type PageCursor struct {
	Page       int
	LineOffset float64
}

// PagePlacement is the diagnostic output for one heading.
type PagePlacement struct {
	Page  int `json:"page"`
	Level int `json:"level"`
}

// Estimator simulates pagination without a rendering engine: it walks the
// ordered node sequence converting each node into an estimated line count
// and assigns a page to every heading and caption. The model is deliberately
// coarse - downstream consumers assume this exact tolerance, so it must not
// be "improved".
type Estimator struct {
	geom docx.Geometry
	log  *zap.Logger
}

const (
	headingSpacing  = 1.5
	listSpacing     = 1.2
	emptyNodeLines  = 0.2
	tableExtraLines = 8.0
	fontWidthFactor = 0.6
)

func NewEstimator(geom docx.Geometry, log *zap.Logger) *Estimator {
	return &Estimator{geom: geom, log: log}
}

// lineCount estimates how many lines the node occupies. Empty nodes still
// consume a fraction of a line since blank paragraphs take vertical space.
func (e *Estimator) lineCount(n *docx.Node, isHeading bool) float64 {
	if n.IsEmpty() {
		return emptyNodeLines
	}
	charsPerLine := e.geom.UsableWidth() / (e.geom.BaseFontSize * fontWidthFactor)
	if charsPerLine < 1 {
		charsPerLine = 1
	}
	lines := float64(len(n.Text)) / charsPerLine
	if lines < 1 {
		lines = 1
	}
	switch {
	case isHeading:
		lines *= headingSpacing
	case n.ListItem:
		lines *= listSpacing
	}
	if n.ExtraSpace {
		// table height is unpredictable, reserve a fixed extra penalty
		lines += tableExtraLines
	}
	return lines
}

// Pagination maps node indexes of headings and captions to estimated pages.
type Pagination struct {
	Pages map[int]int
	floor int
}

// PageFor returns the assigned page for a node, flooring to the first body
// page when the node was never seen.
func (p *Pagination) PageFor(nodeIndex int) int {
	if page, ok := p.Pages[nodeIndex]; ok {
		return page
	}
	return p.floor
}

// Paginate performs one full estimation pass. Headings and captions are
// looked up by node index; skip, when non-nil, excludes nodes (typically the
// already written front matter) from the walk. Every emitted page number is
// floored so body content never lands inside the front matter: cover is page
// one, front matter occupies pages 2..N.
func (e *Estimator) Paginate(nodes []*docx.Node, headings []Heading, captions *CaptionSet, sizes FrontMatterSizes, skip func(int) bool) *Pagination {

	wanted := make(map[int]bool, len(headings))
	for _, h := range headings {
		wanted[h.NodeIndex] = true
	}
	if captions != nil {
		for _, c := range captions.Figures {
			wanted[c.NodeIndex] = true
		}
		for _, c := range captions.Tables {
			wanted[c.NodeIndex] = true
		}
	}
	isHeading := make(map[int]bool, len(headings))
	for _, h := range headings {
		isHeading[h.NodeIndex] = true
	}

	floor := 2 + sizes.Total()
	result := &Pagination{
		Pages: make(map[int]int, len(wanted)),
		floor: floor,
	}

	linesPerPage := float64(e.geom.LinesPerPage())
	cursor := PageCursor{Page: 1}

	for _, n := range nodes {
		if skip != nil && skip(n.Index) {
			continue
		}
		if n.PageBreak || n.SectionBreak {
			cursor.Page++
			cursor.LineOffset = 0
		}

		consumed := e.lineCount(n, isHeading[n.Index])

		if wanted[n.Index] {
			page := cursor.Page
			if cursor.LineOffset+consumed > linesPerPage {
				page = cursor.Page + 1
			}
			if page < floor {
				page = floor
			}
			result.Pages[n.Index] = page
		}

		cursor.LineOffset += consumed
		if cursor.LineOffset > linesPerPage {
			pagesToAdd := int(cursor.LineOffset / linesPerPage)
			cursor.Page += pagesToAdd
			cursor.LineOffset -= float64(pagesToAdd) * linesPerPage
		}
	}

	e.log.Debug("Estimation pass complete",
		zap.Int("last_page", cursor.Page),
		zap.Int("floor", floor),
		zap.Int("placed", len(result.Pages)))

	if captions != nil {
		for i := range captions.Figures {
			captions.Figures[i].Page = result.PageFor(captions.Figures[i].NodeIndex)
		}
		for i := range captions.Tables {
			captions.Tables[i].Page = result.PageFor(captions.Tables[i].NodeIndex)
		}
	}
	return result
}

// EstimateSizes guesses front matter page counts from entry counts before
// anything is written: entries average 1.2 lines apiece.
func (e *Estimator) EstimateSizes(tocEntries, lofEntries, lotEntries int) FrontMatterSizes {
	lpp := float64(e.geom.LinesPerPage())
	pages := func(entries int) int {
		if entries == 0 {
			return 0
		}
		p := int(math.Ceil(float64(entries) * 1.2 / lpp))
		if p < 1 {
			return 1
		}
		return p
	}
	sizes := FrontMatterSizes{
		TOCPages: pages(tocEntries),
		LOFPages: pages(lofEntries),
		LOTPages: pages(lotEntries),
	}
	// the TOC section with its title is written even when nothing was found,
	// so it always occupies at least one page
	if sizes.TOCPages < 1 {
		sizes.TOCPages = 1
	}
	return sizes
}

// MeasureLines sums estimated line counts for a contiguous node range,
// used to derive actual front matter sizes from what was physically written.
func (e *Estimator) MeasureLines(nodes []*docx.Node, from, to int) float64 {
	var lines float64
	for _, n := range nodes {
		if n.Index < from || n.Index > to {
			continue
		}
		lines += e.lineCount(n, false)
	}
	return lines
}

// PagesForLines converts a measured line count into whole pages, at least one.
func (e *Estimator) PagesForLines(lines float64) int {
	p := int(math.Ceil(lines / float64(e.geom.LinesPerPage())))
	if p < 1 {
		return 1
	}
	return p
}
