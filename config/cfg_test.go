package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigurationDefaults(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("unable to load embedded defaults: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("unexpected configuration version %d", cfg.Version)
	}

	g := cfg.Document.Geometry
	if g.PageWidth != 612 || g.PageHeight != 792 {
		t.Fatalf("expected Letter page size, got %gx%g", g.PageWidth, g.PageHeight)
	}
	if g.BaseFontSize != 12 || g.LineSpacing != 1.15 {
		t.Fatalf("unexpected font defaults: %g/%g", g.BaseFontSize, g.LineSpacing)
	}
	if len(cfg.Document.Detector.Keywords) == 0 {
		t.Fatal("expected non-empty keyword vocabulary")
	}
	if cfg.Document.FrontMatter.TOCTitle != "Table of Contents" {
		t.Fatalf("unexpected TOC title %q", cfg.Document.FrontMatter.TOCTitle)
	}
}

func TestLoadConfigurationOverride(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "override.yaml")
	data := `version: 1
document:
  geometry:
    base_font_size: 10
`
	if err := os.WriteFile(fname, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfiguration(fname)
	if err != nil {
		t.Fatalf("unable to load configuration: %v", err)
	}
	if cfg.Document.Geometry.BaseFontSize != 10 {
		t.Fatalf("override was not applied: %g", cfg.Document.Geometry.BaseFontSize)
	}
	// untouched values come from defaults
	if cfg.Document.Geometry.PageWidth != 612 {
		t.Fatalf("default was lost: %g", cfg.Document.Geometry.PageWidth)
	}
}

func TestLoadConfigurationRejectsUnknownFields(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(fname, []byte("version: 1\nnonsense: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfiguration(fname); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestValidateCatchesBadGeometry(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Document.Geometry.MarginLeft = 400
	cfg.Document.Geometry.MarginRight = 400
	if err := cfg.validate(); err == nil {
		t.Fatal("expected margins exceeding page width to be rejected")
	}
}
