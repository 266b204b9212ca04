// Package docx models a word-processing package - a zip archive of XML parts -
// as an ordered sequence of content nodes over a mutable XML body.
package docx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"doctoc/archive"
	"doctoc/config"
	"doctoc/misc"
)

const (
	documentPart = "word/document.xml"
	stylesPart   = "word/styles.xml"
)

// Document is one opened package: the extracted work directory, the parsed
// body XML and the derived node sequence. It is not safe for concurrent use -
// the whole pipeline is strictly sequential since node indexes shift as nodes
// are removed and inserted.
type Document struct {
	Path    string
	WorkDir string

	xml    *etree.Document
	body   *etree.Element
	nodes  []*Node
	styles map[string]string // style ID -> friendly name
	geom   Geometry
	names  []string // archive entry order
	log    *zap.Logger
}

// Open extracts the package at path into a temporary work directory and
// parses its body part. A package without word/document.xml is a hard error;
// unreadable geometry is not - it falls back to the provided defaults field
// by field.
func Open(path string, defaults config.GeometryConfig, log *zap.Logger) (*Document, error) {

	workDir, err := os.MkdirTemp("", misc.GetAppName()+"-")
	if err != nil {
		return nil, fmt.Errorf("unable to create work directory: %w", err)
	}

	d := &Document{
		Path:    path,
		WorkDir: workDir,
		log:     log,
	}

	if d.names, err = archive.Extract(path, workDir); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to extract package: %w", err), d.Cleanup())
	}

	docPath := filepath.Join(workDir, filepath.FromSlash(documentPart))
	f, err := os.Open(docPath)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("package has no %s part: %w", documentPart, err), d.Cleanup())
	}
	defer f.Close()

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(f); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to parse %s: %w", documentPart, err), d.Cleanup())
	}

	root := doc.Root()
	if root == nil || root.Tag != "document" {
		return nil, multierr.Append(fmt.Errorf("unexpected body XML root"), d.Cleanup())
	}
	body := root.SelectElement("w:body")
	if body == nil {
		return nil, multierr.Append(fmt.Errorf("body XML has no w:body element"), d.Cleanup())
	}

	d.xml = doc
	d.body = body
	d.styles, d.geom = d.readStylesAndGeometry(defaults)
	d.Refresh()

	log.Debug("Package opened",
		zap.String("path", path),
		zap.String("work_dir", workDir),
		zap.Int("nodes", len(d.nodes)))
	return d, nil
}

func (d *Document) readStylesAndGeometry(defaults config.GeometryConfig) (map[string]string, Geometry) {

	styles := make(map[string]string)

	var stylesDoc *etree.Document
	if data, err := os.ReadFile(filepath.Join(d.WorkDir, filepath.FromSlash(stylesPart))); err == nil {
		sd := etree.NewDocument()
		sd.ReadSettings = etree.ReadSettings{CharsetReader: charset.NewReaderLabel, Permissive: true}
		if err := sd.ReadFromBytes(data); err == nil {
			stylesDoc = sd
		} else {
			d.log.Debug("Unable to parse styles part, style names unresolved", zap.Error(err))
		}
	}

	if stylesDoc != nil {
		if root := stylesDoc.Root(); root != nil {
			for _, st := range root.SelectElements("w:style") {
				id := st.SelectAttrValue("w:styleId", "")
				if len(id) == 0 {
					continue
				}
				if nameEl := st.SelectElement("w:name"); nameEl != nil {
					if name := nameEl.SelectAttrValue("w:val", ""); len(name) > 0 {
						styles[id] = name
					}
				}
			}
		}
	}
	return styles, readGeometry(d.body, stylesDoc, defaults, d.log)
}

// Nodes returns the ordered body content. The slice is valid until the next
// structural edit followed by Refresh.
func (d *Document) Nodes() []*Node {
	return d.nodes
}

func (d *Document) Geometry() Geometry {
	return d.geom
}

func (d *Document) Body() *etree.Element {
	return d.body
}

// StyleName resolves a style ID to its friendly name, falling back to the ID.
func (d *Document) StyleName(id string) string {
	if name, ok := d.styles[id]; ok {
		return name
	}
	return id
}

// Refresh rebuilds the node sequence from the body XML. Called after every
// batch of removals or insertions instead of patching sibling indexes in
// place.
func (d *Document) Refresh() {
	d.nodes = scanNodes(d.body, d.styles)
}

// RemoveNode detaches the node's backing element from the body. The node
// sequence is stale until Refresh.
func (d *Document) RemoveNode(n *Node) {
	if n != nil && n.El != nil && n.El.Parent() != nil {
		n.El.Parent().RemoveChild(n.El)
	}
}

// InsertBefore places els into the body immediately before ref. A nil ref
// appends at the end of the body (before trailing section properties when
// present).
func (d *Document) InsertBefore(ref *etree.Element, els ...*etree.Element) {
	if ref == nil {
		ref = d.body.SelectElement("w:sectPr")
	}
	for _, el := range els {
		if ref != nil {
			d.body.InsertChildAt(ref.Index(), el)
		} else {
			d.body.AddChild(el)
		}
	}
}

// MarshalBody serializes the current body XML part.
func (d *Document) MarshalBody() ([]byte, error) {
	d.xml.WriteSettings = etree.WriteSettings{CanonicalText: true, CanonicalAttrVal: true}
	return d.xml.WriteToBytes()
}

// Save writes the body part back into the work directory and atomically
// repacks the package over its original path. On failure the original file
// is left untouched.
func (d *Document) Save() error {

	data, err := d.MarshalBody()
	if err != nil {
		return fmt.Errorf("unable to serialize %s: %w", documentPart, err)
	}
	docPath := filepath.Join(d.WorkDir, filepath.FromSlash(documentPart))
	if err := os.WriteFile(docPath, data, 0644); err != nil {
		return fmt.Errorf("unable to write %s: %w", documentPart, err)
	}
	if err := archive.Repack(d.WorkDir, d.names, d.Path); err != nil {
		return fmt.Errorf("unable to repack package: %w", err)
	}
	d.log.Debug("Package saved", zap.String("path", d.Path), zap.Int("nodes", len(d.nodes)))
	return nil
}

// Cleanup removes the work directory. Safe to call more than once.
func (d *Document) Cleanup() error {
	if len(d.WorkDir) == 0 {
		return nil
	}
	dir := d.WorkDir
	d.WorkDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("unable to remove work directory: %w", err)
	}
	return nil
}
