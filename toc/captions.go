package toc

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"doctoc/docx"
)

type CaptionKind string

const (
	KindFigure CaptionKind = "figure"
	KindTable  CaptionKind = "table"
)

// CaptionEntry is one discovered figure or table caption. Entries are
// deduplicated by (kind, ordinal) - the first occurrence wins.
type CaptionEntry struct {
	Text      string
	Ordinal   int
	Kind      CaptionKind
	NodeIndex int
	InCell    bool
	Page      int // assigned later by the estimator
}

// CaptionSet holds every caption found in one scan, in document order.
type CaptionSet struct {
	Figures []CaptionEntry
	Tables  []CaptionEntry
}

func (s *CaptionSet) Empty() bool {
	return len(s.Figures) == 0 && len(s.Tables) == 0
}

var (
	figureRe = regexp.MustCompile(`(?is)\b(?:figure|fig)\.?\s+(\d+)\s*[:.]\s*(\S.*)`)
	tableRe  = regexp.MustCompile(`(?is)\btable\.?\s+(\d+)\s*[:.]\s*(\S.*)`)
	// malformed figure caption: the word with a colon but no numeral
	figureBareRe = regexp.MustCompile(`(?i)\b(?:figure|fig)\.?\s*:\s*(\S.*)`)
	spacesRe     = regexp.MustCompile(`\s+`)
)

// Captions scans every paragraph - table cell paragraphs included, tracked
// separately - for caption patterns. A caption carrying the word "figure"
// with a colon but no number is recovered with the next sequential ordinal;
// this is best effort guesswork, not a correctness guarantee.
func (d *Detector) Captions(nodes []*docx.Node, skip func(int) bool) CaptionSet {

	var set CaptionSet
	seen := make(map[CaptionKind]map[int]bool)
	seen[KindFigure] = make(map[int]bool)
	seen[KindTable] = make(map[int]bool)
	maxFigure := 0

	record := func(kind CaptionKind, ordinal int, title string, nodeIndex int, inCell bool) {
		if seen[kind][ordinal] {
			d.log.Debug("Dropping duplicate caption",
				zap.String("kind", string(kind)), zap.Int("ordinal", ordinal), zap.Int("node", nodeIndex))
			return
		}
		seen[kind][ordinal] = true
		e := CaptionEntry{
			Text:      cleanCaptionTitle(title),
			Ordinal:   ordinal,
			Kind:      kind,
			NodeIndex: nodeIndex,
			InCell:    inCell,
		}
		if kind == KindFigure {
			if ordinal > maxFigure {
				maxFigure = ordinal
			}
			set.Figures = append(set.Figures, e)
		} else {
			set.Tables = append(set.Tables, e)
		}
	}

	scan := func(text string, nodeIndex int, inCell bool) {
		if m := figureRe.FindStringSubmatch(text); m != nil {
			record(KindFigure, atoiSafe(m[1]), m[2], nodeIndex, inCell)
		} else if m := figureBareRe.FindStringSubmatch(text); m != nil {
			// infer the next sequential ordinal for the malformed caption
			inferred := maxFigure + 1
			d.log.Debug("Inferring ordinal for unnumbered figure caption",
				zap.Int("ordinal", inferred), zap.Int("node", nodeIndex))
			record(KindFigure, inferred, m[1], nodeIndex, inCell)
		}
		if m := tableRe.FindStringSubmatch(text); m != nil {
			record(KindTable, atoiSafe(m[1]), m[2], nodeIndex, inCell)
		}
	}

	for _, n := range nodes {
		if skip != nil && skip(n.Index) {
			continue
		}
		switch n.Kind {
		case docx.KindParagraph:
			if !n.IsEmpty() {
				scan(n.Text, n.Index, false)
			}
		case docx.KindTable:
			for _, cell := range n.CellTexts {
				if len(strings.TrimSpace(cell)) > 0 {
					scan(cell, n.Index, true)
				}
			}
		}
	}
	return set
}

func cleanCaptionTitle(title string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(title, " "))
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}
