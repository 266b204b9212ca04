package toc

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"doctoc/config"
	"doctoc/docx"
)

// Remover strips previously generated TOC/LOF/LOT sections and any automated
// field constructs so a fresh front matter can be written. Running it on an
// already clean document removes nothing.
type Remover struct {
	titles       map[string]bool
	keywords     []string
	placeholders map[string]string
	log          *zap.Logger
}

// maxEntryMisses tolerates incidental blank or formatting nodes inside an
// open front matter section before giving up on it.
const maxEntryMisses = 3

var (
	trailingPageRe = regexp.MustCompile(`\d+\s*$`)
	sectionNumRe   = regexp.MustCompile(`^\d+(?:\.\d+)*\.?\s`)
	captionRefRe   = regexp.MustCompile(`(?i)^(?:figure|fig|table)\b`)
)

func NewRemover(cfg *config.Config, placeholders map[string]string, log *zap.Logger) *Remover {

	titles := map[string]bool{
		"table of contents": true,
		"contents":          true,
		"toc":               true,
		"list of figures":   true,
		"figures":           true,
		"list of tables":    true,
		"tables":            true,
	}
	fm := cfg.Document.FrontMatter
	for _, t := range []string{fm.TOCTitle, fm.LOFTitle, fm.LOTTitle} {
		titles[strings.ToLower(strings.TrimSpace(t))] = true
	}

	var keywords []string
	for _, kw := range cfg.Document.Detector.Keywords {
		keywords = append(keywords, strings.ToLower(strings.TrimSpace(kw)))
	}
	return &Remover{titles: titles, keywords: keywords, placeholders: placeholders, log: log}
}

func (r *Remover) isTitle(text string) bool {
	return r.titles[strings.ToLower(text)]
}

// looksLikeEntry recognizes a generated front matter line: it must end with a
// page number and show at least one entry trait on top of that.
func (r *Remover) looksLikeEntry(n *docx.Node, text string) bool {
	if len(text) == 0 || !trailingPageRe.MatchString(text) {
		return false
	}
	if sectionNumRe.MatchString(text) || captionRefRe.MatchString(text) {
		return true
	}
	return strings.Contains(text, "...") || strings.ContainsRune(n.Text, '\t') || hasDotLeader(n.El)
}

// looksLikeBody recognizes an unambiguous return to real document content.
func (r *Remover) looksLikeBody(text string) bool {
	if len(text) > 150 && !trailingPageRe.MatchString(text) {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range r.keywords {
		if lower == kw || strings.HasPrefix(lower, kw+" ") {
			return true
		}
	}
	return false
}

func hasDotLeader(el *etree.Element) bool {
	if el == nil {
		return false
	}
	for _, tab := range el.FindElements(".//w:tabs/w:tab") {
		if tab.SelectAttrValue("w:leader", "") == "dot" {
			return true
		}
	}
	return false
}

// fieldStart reports whether the paragraph begins an automated TOC field,
// either as a self contained w:fldSimple or as a w:fldChar begin marker whose
// instruction text names TOC.
func fieldStart(el *etree.Element) (simple, begin bool) {
	if el == nil {
		return false, false
	}
	for _, fld := range el.FindElements(".//w:fldSimple") {
		if strings.Contains(strings.ToUpper(fld.SelectAttrValue("w:instr", "")), "TOC") {
			simple = true
		}
	}
	for _, fc := range el.FindElements(".//w:fldChar") {
		if fc.SelectAttrValue("w:fldCharType", "") == "begin" {
			begin = true
		}
	}
	return simple, begin
}

func fieldEnd(el *etree.Element) bool {
	if el == nil {
		return false
	}
	for _, fc := range el.FindElements(".//w:fldChar") {
		if fc.SelectAttrValue("w:fldCharType", "") == "end" {
			return true
		}
	}
	return false
}

func fieldInstr(el *etree.Element) string {
	var sb strings.Builder
	for _, it := range el.FindElements(".//w:instrText") {
		sb.WriteString(it.Text())
	}
	return sb.String()
}

// Remove deletes stale front matter from the document body and returns how
// many nodes were dropped. The document's node sequence is refreshed before
// returning when anything changed.
func (r *Remover) Remove(d *docx.Document) int {

	nodes := d.Nodes()
	var doomed []*docx.Node

	inSection := false
	misses := 0

	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		text := strings.TrimSpace(SubstitutePlaceholders(n.Text, r.placeholders))

		// field constructs are removed wherever they occur
		if simple, begin := fieldStart(n.El); simple || begin {
			if simple {
				r.log.Debug("Removing TOC field", zap.Int("node", n.Index))
				doomed = append(doomed, n)
				continue
			}
			// collect the span through the terminating marker, then decide
			span := []*docx.Node{n}
			instr := fieldInstr(n.El)
			j := i
			for !fieldEnd(nodes[j].El) && j+1 < len(nodes) {
				j++
				span = append(span, nodes[j])
				instr += fieldInstr(nodes[j].El)
			}
			if strings.Contains(strings.ToUpper(instr), "TOC") {
				r.log.Debug("Removing TOC field span",
					zap.Int("from", n.Index), zap.Int("to", nodes[j].Index))
				doomed = append(doomed, span...)
				i = j
				continue
			}
			// unrelated field, step over it untouched
			i = j
			continue
		}

		if !inSection {
			if r.isTitle(text) {
				inSection = true
				misses = 0
				doomed = append(doomed, n)
			}
			continue
		}

		switch {
		case r.isTitle(text):
			misses = 0
			doomed = append(doomed, n)
		case r.looksLikeEntry(n, text):
			misses = 0
			doomed = append(doomed, n)
		case n.PageBreak && len(text) == 0:
			// break separating generated sections, goes with them
			doomed = append(doomed, n)
		case r.looksLikeBody(text):
			inSection = false
			misses = 0
		default:
			misses++
			if misses > maxEntryMisses {
				inSection = false
				misses = 0
			}
		}
	}

	for _, n := range doomed {
		d.RemoveNode(n)
	}
	if len(doomed) > 0 {
		d.Refresh()
	}
	r.log.Debug("Front matter removal finished", zap.Int("removed", len(doomed)))
	return len(doomed)
}
