package toc

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"doctoc/docx"
	"doctoc/state"
)

// RemovalResult reports what front matter removal did to the package.
type RemovalResult struct {
	Removed int  `json:"removed"`
	Success bool `json:"success"`
}

// RebuildResult reports the outcome of a full two pass rebuild.
type RebuildResult struct {
	EntriesWritten int  `json:"entries_written"`
	Success        bool `json:"success"`
}

// RemoveExistingFrontMatter deletes stale TOC/LOF/LOT content from the
// package at path. Safe to call speculatively, a clean document removes
// nothing and the file is not rewritten at all in that case.
func RemoveExistingFrontMatter(ctx context.Context, path string) (res RemovalResult, err error) {

	env := state.EnvFromContext(ctx)
	log := env.Log.With(zap.String("path", path))

	d, err := docx.Open(path, env.Cfg.Document.Geometry, log)
	if err != nil {
		return res, fmt.Errorf("unable to open document package: %w", err)
	}
	defer func() {
		err = multierr.Append(err, d.Cleanup())
	}()

	removed := NewRemover(env.Cfg, env.Placeholders, log).Remove(d)
	if removed > 0 {
		if err := d.Save(); err != nil {
			return res, fmt.Errorf("unable to save cleaned package: %w", err)
		}
	}
	log.Info("Front matter cleanup done", zap.Int("removed", removed))
	return RemovalResult{Removed: removed, Success: true}, nil
}

// RebuildTableOfContents removes stale front matter and writes fresh TOC,
// LOF and LOT sections with converged page numbers. A document without a
// single heading yields an empty but valid TOC.
func RebuildTableOfContents(ctx context.Context, path string) (res RebuildResult, err error) {

	env := state.EnvFromContext(ctx)
	log := env.Log.With(zap.String("path", path))

	d, err := docx.Open(path, env.Cfg.Document.Geometry, log)
	if err != nil {
		return res, fmt.Errorf("unable to open document package: %w", err)
	}
	defer func() {
		err = multierr.Append(err, d.Cleanup())
	}()

	removed := NewRemover(env.Cfg, env.Placeholders, log).Remove(d)
	log.Debug("Stale front matter removed", zap.Int("removed", removed))

	det := NewDetector(env.Cfg.Document.Detector, d.Geometry(), log)
	written, err := NewConverger(env.Cfg, env.Rpt, log).Rebuild(d, det)
	if err != nil {
		return res, err
	}

	log.Info("Table of contents rebuilt", zap.Int("entries", written))
	return RebuildResult{EntriesWritten: written, Success: true}, nil
}

// CalculatePageNumbers runs detection and estimation only, without touching
// the package, and maps heading text to its estimated placement. When two
// headings share the same text the first one in document order wins. The
// resulting map is also stored in the debug report when one is collected.
func CalculatePageNumbers(ctx context.Context, path string, sizes FrontMatterSizes) (m map[string]PagePlacement, err error) {

	env := state.EnvFromContext(ctx)
	log := env.Log.With(zap.String("path", path))

	d, err := docx.Open(path, env.Cfg.Document.Geometry, log)
	if err != nil {
		return nil, fmt.Errorf("unable to open document package: %w", err)
	}
	defer func() {
		err = multierr.Append(err, d.Cleanup())
	}()

	det := NewDetector(env.Cfg.Document.Detector, d.Geometry(), log)
	est := NewEstimator(d.Geometry(), log)

	nodes := d.Nodes()
	headings := det.Headings(nodes, nil)
	captions := det.Captions(nodes, nil)
	pages := est.Paginate(nodes, headings, &captions, sizes, nil)

	m = make(map[string]PagePlacement, len(headings))
	for _, h := range headings {
		if _, ok := m[h.Text]; ok {
			continue
		}
		m[h.Text] = PagePlacement{Page: pages.PageFor(h.NodeIndex), Level: h.Level}
	}

	if data, jerr := sonic.MarshalIndent(m, "", "  "); jerr == nil {
		env.Rpt.StoreData("pages.json", data)
	} else {
		log.Warn("Unable to serialize page map for report", zap.Error(jerr))
	}
	return m, nil
}
