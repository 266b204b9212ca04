// Package toc rebuilds document front matter: it discovers headings and
// captions, estimates which printed page every element lands on without a
// rendering engine, removes stale TOC/LOF/LOT content and writes fresh
// sections with literal page numbers.
package toc

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"doctoc/config"
	"doctoc/docx"
)

// DetectionMethod records which heuristic classified a heading.
type DetectionMethod string

const (
	MethodStyle         DetectionMethod = "style"
	MethodOutline       DetectionMethod = "outline"
	MethodNumberedBold  DetectionMethod = "numberedBold"
	MethodBoldShort     DetectionMethod = "boldShort"
	MethodNumberedPlain DetectionMethod = "numberedPlain"
	MethodKeyword       DetectionMethod = "keyword"
)

// Heading is one detected section title. Text is not unique - duplicate
// headings are legal - but NodeIndex is.
type Heading struct {
	Text      string
	Level     int
	Method    DetectionMethod
	NodeIndex int
}

const (
	maxHeadingLen        = 100
	maxKeywordHeadingLen = 80
	maxHeadingLevel      = 6
)

var (
	numberedRe   = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(.+)`)
	headingStyle = regexp.MustCompile(`(?i)heading\s*(\d)`)
	romanRe      = regexp.MustCompile(`^[IVXLCDM]+[.)]\s+`)
	letterRe     = regexp.MustCompile(`^[A-Za-z][.)]\s+`)
	bareNumRe    = regexp.MustCompile(`^\d+\.(?:\s|$)`)
	subNumRe     = regexp.MustCompile(`^\d+\.\d+`)
)

// Detector classifies body nodes into headings and captions. All heuristics
// are soft: they either match or silently pass, nothing here ever fails.
type Detector struct {
	keywords []keywordMatcher
	baseFont float64
	log      *zap.Logger
}

type keywordMatcher struct {
	word    string
	wholeRe *regexp.Regexp
}

func NewDetector(cfg config.DetectorConfig, geom docx.Geometry, log *zap.Logger) *Detector {
	d := &Detector{
		baseFont: geom.BaseFontSize,
		log:      log,
	}
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if len(kw) == 0 {
			continue
		}
		d.keywords = append(d.keywords, keywordMatcher{
			word:    kw,
			wholeRe: regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}
	return d
}

// classifier tries one heuristic; ok reports a match. Classifiers run in a
// fixed priority order and the first match wins, so no node is ever
// classified twice.
type classifier struct {
	method DetectionMethod
	fn     func(text string, n *docx.Node) (level int, ok bool)
}

func (d *Detector) chain() []classifier {
	return []classifier{
		{MethodStyle, d.byStyle},
		{MethodOutline, d.byOutline},
		{MethodNumberedBold, d.byNumberedEmphasized},
		{MethodBoldShort, d.byBoldShort},
		{MethodNumberedPlain, d.byNumberedPlain},
		{MethodKeyword, d.byKeyword},
	}
}

// Headings walks the ordered node sequence and returns every detected
// heading in document order. Skip, when non-nil, excludes nodes (by index)
// from consideration - used to ignore already written front matter.
func (d *Detector) Headings(nodes []*docx.Node, skip func(int) bool) []Heading {

	chain := d.chain()

	var found []Heading
	for _, n := range nodes {
		if n.Kind != docx.KindParagraph || n.IsEmpty() {
			continue
		}
		if skip != nil && skip(n.Index) {
			continue
		}
		text := strings.TrimSpace(n.Text)
		for _, c := range chain {
			level, ok := c.fn(text, n)
			if !ok {
				continue
			}
			found = append(found, Heading{
				Text:      text,
				Level:     clampLevel(level),
				Method:    c.method,
				NodeIndex: n.Index,
			})
			d.log.Debug("Heading detected",
				zap.String("text", text),
				zap.Int("level", clampLevel(level)),
				zap.String("method", string(c.method)),
				zap.Int("node", n.Index))
			break
		}
	}
	return found
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > maxHeadingLevel {
		return maxHeadingLevel
	}
	return level
}

// byStyle matches paragraphs carrying a known heading or title style; the
// level comes from the style name itself.
func (d *Detector) byStyle(_ string, n *docx.Node) (int, bool) {
	name := strings.ToLower(strings.TrimSpace(n.StyleName))
	if len(name) == 0 {
		return 0, false
	}
	switch name {
	case "title":
		return 1, true
	case "subtitle":
		return 2, true
	}
	if m := headingStyle.FindStringSubmatch(name); m != nil {
		lvl, err := strconv.Atoi(m[1])
		if err != nil || lvl < 1 {
			return 0, false
		}
		return lvl, true
	}
	return 0, false
}

// byOutline matches paragraphs with an explicit outline depth attribute.
func (d *Detector) byOutline(_ string, n *docx.Node) (int, bool) {
	if n.OutlineLevel < 0 {
		return 0, false
	}
	return n.OutlineLevel + 1, true
}

// byNumberedEmphasized matches "1.2.3 Something" when the paragraph is also
// emphasized: bold, larger than the base font, or styled like a heading.
func (d *Detector) byNumberedEmphasized(text string, n *docx.Node) (int, bool) {
	m := numberedRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	style := strings.ToLower(n.StyleName)
	emphasized := n.Bold || n.MaxRunFont > d.baseFont ||
		strings.Contains(style, "heading") || strings.Contains(style, "title")
	if !emphasized {
		return 0, false
	}
	return strings.Count(m[1], ".") + 1, true
}

// byBoldShort matches short bold paragraphs: roman numeral prefixes make
// top-level headings, single letter prefixes second-level ones, and anything
// short and bold that does not read like a sentence lands on level three.
func (d *Detector) byBoldShort(text string, n *docx.Node) (int, bool) {
	if !n.Bold || len(text) >= maxHeadingLen {
		return 0, false
	}
	if romanRe.MatchString(text) {
		return 1, true
	}
	if m := letterRe.FindString(text); len(m) > 0 && len(strings.TrimRight(m, " \t")) <= 2 {
		return 2, true
	}
	if endsSentence(text) {
		return 0, false
	}
	return 3, true
}

// byNumberedPlain matches the same numeric prefix as byNumberedEmphasized
// but without any emphasis, as long as the text stays short.
func (d *Detector) byNumberedPlain(text string, _ *docx.Node) (int, bool) {
	if len(text) >= maxHeadingLen {
		return 0, false
	}
	m := numberedRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return strings.Count(m[1], ".") + 1, true
}

// byKeyword matches well known section names from the configured vocabulary.
func (d *Detector) byKeyword(text string, n *docx.Node) (int, bool) {
	lower := strings.ToLower(text)

	matched := false
	for _, kw := range d.keywords {
		if strings.HasPrefix(lower, kw.word) || kw.wholeRe.MatchString(lower) {
			matched = true
			break
		}
	}
	if !matched {
		return 0, false
	}
	emphasized := n.Bold || n.MaxRunFont > d.baseFont
	if !emphasized && len(text) >= maxKeywordHeadingLen {
		return 0, false
	}
	switch {
	case subNumRe.MatchString(lower):
		return 2, true
	case bareNumRe.MatchString(lower):
		return 1, true
	}
	return 2, true
}

func endsSentence(text string) bool {
	trimmed := strings.TrimRight(text, " \t")
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
