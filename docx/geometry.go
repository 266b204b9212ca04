package docx

import (
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"doctoc/config"
)

// Geometry describes the printable page: size, margins, base font and line
// spacing. All lengths are in points. It is computed once per run and never
// changes afterwards; fields which cannot be read from the package fall back
// to configured defaults one by one, so a package with readable page size but
// no margins still contributes what it has. Reading geometry never fails.
type Geometry struct {
	PageWidth    float64
	PageHeight   float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
	BaseFontSize float64
	LineSpacing  float64
}

func (g Geometry) UsableWidth() float64 {
	return g.PageWidth - g.MarginLeft - g.MarginRight
}

func (g Geometry) UsableHeight() float64 {
	return g.PageHeight - g.MarginTop - g.MarginBottom
}

func (g Geometry) LineHeight() float64 {
	return g.BaseFontSize * g.LineSpacing
}

// LinesPerPage returns how many text lines fit on one page, never less than 1.
func (g Geometry) LinesPerPage() int {
	lines := int(g.UsableHeight() / g.LineHeight())
	if lines < 1 {
		return 1
	}
	return lines
}

const twipsPerPoint = 20.0

// readGeometry extracts page layout from the parsed body XML and style
// defaults, substituting configured values for every field it cannot read.
func readGeometry(body *etree.Element, styles *etree.Document, defaults config.GeometryConfig, log *zap.Logger) Geometry {

	g := Geometry{
		PageWidth:    defaults.PageWidth,
		PageHeight:   defaults.PageHeight,
		MarginTop:    defaults.MarginTop,
		MarginBottom: defaults.MarginBottom,
		MarginLeft:   defaults.MarginLeft,
		MarginRight:  defaults.MarginRight,
		BaseFontSize: defaults.BaseFontSize,
		LineSpacing:  defaults.LineSpacing,
	}

	var sectPr *etree.Element
	if body != nil {
		sectPr = body.SelectElement("w:sectPr")
	}
	if sectPr == nil {
		log.Debug("Package has no section properties, using geometry defaults")
	} else {
		if pgSz := sectPr.SelectElement("w:pgSz"); pgSz != nil {
			readTwips(pgSz, "w:w", &g.PageWidth, log)
			readTwips(pgSz, "w:h", &g.PageHeight, log)
		}
		if pgMar := sectPr.SelectElement("w:pgMar"); pgMar != nil {
			readTwips(pgMar, "w:top", &g.MarginTop, log)
			readTwips(pgMar, "w:bottom", &g.MarginBottom, log)
			readTwips(pgMar, "w:left", &g.MarginLeft, log)
			readTwips(pgMar, "w:right", &g.MarginRight, log)
		}
	}

	if styles != nil {
		if root := styles.Root(); root != nil {
			if dflt := root.SelectElement("w:docDefaults"); dflt != nil {
				if rpr := selectPath(dflt, "w:rPrDefault", "w:rPr", "w:sz"); rpr != nil {
					if v, err := strconv.ParseFloat(rpr.SelectAttrValue("w:val", ""), 64); err == nil && v > 0 {
						g.BaseFontSize = v / 2 // half-points
					}
				}
				if sp := selectPath(dflt, "w:pPrDefault", "w:pPr", "w:spacing"); sp != nil {
					if v, err := strconv.ParseFloat(sp.SelectAttrValue("w:line", ""), 64); err == nil && v > 0 {
						g.LineSpacing = v / 240 // 240ths of a line
					}
				}
			}
		}
	}

	// a degenerate package must not break the estimator
	if g.UsableWidth() <= 0 || g.UsableHeight() <= 0 {
		log.Debug("Unusable geometry read from package, reverting to defaults",
			zap.Float64("width", g.PageWidth), zap.Float64("height", g.PageHeight))
		g.PageWidth, g.PageHeight = defaults.PageWidth, defaults.PageHeight
		g.MarginTop, g.MarginBottom = defaults.MarginTop, defaults.MarginBottom
		g.MarginLeft, g.MarginRight = defaults.MarginLeft, defaults.MarginRight
	}

	log.Debug("Page geometry",
		zap.Float64("page_width", g.PageWidth), zap.Float64("page_height", g.PageHeight),
		zap.Float64("base_font", g.BaseFontSize), zap.Float64("line_spacing", g.LineSpacing),
		zap.Int("lines_per_page", g.LinesPerPage()))
	return g
}

func readTwips(el *etree.Element, attr string, dst *float64, log *zap.Logger) {
	raw := el.SelectAttrValue(attr, "")
	if len(raw) == 0 {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		log.Debug("Ignoring unreadable geometry attribute", zap.String("attr", attr), zap.String("value", raw))
		return
	}
	*dst = v / twipsPerPoint
}

func selectPath(el *etree.Element, tags ...string) *etree.Element {
	for _, tag := range tags {
		if el = el.SelectElement(tag); el == nil {
			return nil
		}
	}
	return el
}
