package docx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

type NodeKind int

const (
	KindParagraph NodeKind = iota
	KindTable
)

func (k NodeKind) String() string {
	if k == KindTable {
		return "table"
	}
	return "paragraph"
}

// Node is one element of the ordered body sequence - a paragraph or a table -
// with everything the detection and estimation heuristics need already pulled
// out of the XML. Nodes are read-only snapshots: structural edits go through
// the owning Document and are followed by Refresh which rebuilds the slice,
// keeping element references valid while indexes are reassigned.
type Node struct {
	Index        int
	Kind         NodeKind
	Text         string
	StyleID      string
	StyleName    string
	OutlineLevel int // raw w:outlineLvl value, -1 when absent
	Bold         bool
	MaxRunFont   float64 // largest explicit run size in points, 0 when none
	PageBreak    bool
	SectionBreak bool
	ListItem     bool
	CellTexts    []string // paragraph texts inside table cells, tables only
	ExtraSpace   bool     // tables reserve extra vertical room

	El *etree.Element
}

// IsEmpty reports whether the node carries no visible text.
func (n *Node) IsEmpty() bool {
	return len(strings.TrimSpace(n.Text)) == 0
}

func scanNodes(body *etree.Element, styles map[string]string) []*Node {
	if body == nil {
		return nil
	}

	var nodes []*Node
	for _, child := range body.ChildElements() {
		if child.Space != "w" {
			continue
		}
		switch child.Tag {
		case "p":
			nodes = append(nodes, scanParagraph(child, styles))
		case "tbl":
			nodes = append(nodes, scanTable(child))
		default:
			// w:sectPr and friends are not content
		}
	}
	for i, n := range nodes {
		n.Index = i
	}
	return nodes
}

func scanParagraph(el *etree.Element, styles map[string]string) *Node {
	n := &Node{
		Kind:         KindParagraph,
		OutlineLevel: -1,
		El:           el,
	}

	if pPr := el.SelectElement("w:pPr"); pPr != nil {
		if st := pPr.SelectElement("w:pStyle"); st != nil {
			n.StyleID = st.SelectAttrValue("w:val", "")
			if name, ok := styles[n.StyleID]; ok {
				n.StyleName = name
			} else {
				n.StyleName = n.StyleID
			}
		}
		if ol := pPr.SelectElement("w:outlineLvl"); ol != nil {
			if v, err := strconv.Atoi(ol.SelectAttrValue("w:val", "")); err == nil && v >= 0 {
				n.OutlineLevel = v
			}
		}
		if pPr.SelectElement("w:numPr") != nil {
			n.ListItem = true
		}
		if pPr.SelectElement("w:sectPr") != nil {
			n.SectionBreak = true
		}
		if rPr := pPr.SelectElement("w:rPr"); rPr != nil {
			if boolProp(rPr, "w:b") {
				n.Bold = true
			}
			n.MaxRunFont = maxFont(n.MaxRunFont, rPr)
		}
	}

	var text strings.Builder
	var boldLen int
	collectRuns(el, &text, &boldLen, n)
	n.Text = text.String()

	// paragraph counts as bold when bold runs carry most of its text
	if !n.Bold && boldLen > 0 && boldLen*2 > len(strings.TrimSpace(n.Text)) {
		n.Bold = true
	}
	return n
}

// collectRuns walks paragraph content in document order accumulating text and
// formatting signals. Hyperlinks and similar wrappers are descended into.
func collectRuns(el *etree.Element, text *strings.Builder, boldLen *int, n *Node) {
	for _, child := range el.ChildElements() {
		if child.Space != "w" {
			continue
		}
		switch child.Tag {
		case "r":
			runBold := false
			runFont := 0.0
			if rPr := child.SelectElement("w:rPr"); rPr != nil {
				runBold = boolProp(rPr, "w:b")
				runFont = maxFont(0, rPr)
			}
			if runFont > n.MaxRunFont {
				n.MaxRunFont = runFont
			}
			for _, rc := range child.ChildElements() {
				if rc.Space != "w" {
					continue
				}
				switch rc.Tag {
				case "t":
					text.WriteString(rc.Text())
					if runBold {
						*boldLen += len(strings.TrimSpace(rc.Text()))
					}
				case "tab":
					text.WriteByte('\t')
				case "br":
					if rc.SelectAttrValue("w:type", "") == "page" {
						n.PageBreak = true
					}
					text.WriteByte('\n')
					// w:lastRenderedPageBreak is a render artifact, not a break
				}
			}
		case "hyperlink", "smartTag", "ins":
			collectRuns(child, text, boldLen, n)
		case "fldSimple":
			collectRuns(child, text, boldLen, n)
		}
	}
}

func scanTable(el *etree.Element) *Node {
	n := &Node{
		Kind:         KindTable,
		OutlineLevel: -1,
		ExtraSpace:   true,
		El:           el,
	}

	var all strings.Builder
	for _, row := range el.SelectElements("w:tr") {
		for _, cell := range row.SelectElements("w:tc") {
			for _, p := range cell.SelectElements("w:p") {
				cn := scanParagraph(p, nil)
				n.CellTexts = append(n.CellTexts, cn.Text)
				if all.Len() > 0 {
					all.WriteByte('\n')
				}
				all.WriteString(cn.Text)
			}
		}
	}
	n.Text = all.String()
	return n
}

// boolProp interprets OOXML on/off properties: present without value means
// on, w:val of "false" or "0" means off.
func boolProp(rPr *etree.Element, tag string) bool {
	el := rPr.SelectElement(tag)
	if el == nil {
		return false
	}
	switch el.SelectAttrValue("w:val", "") {
	case "false", "0", "off":
		return false
	}
	return true
}

func maxFont(current float64, rPr *etree.Element) float64 {
	if sz := rPr.SelectElement("w:sz"); sz != nil {
		if v, err := strconv.ParseFloat(sz.SelectAttrValue("w:val", ""), 64); err == nil && v/2 > current {
			return v / 2 // half-points
		}
	}
	return current
}
