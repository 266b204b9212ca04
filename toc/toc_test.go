package toc

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"doctoc/config"
	"doctoc/docx"
	"doctoc/docx/docxtest"
	"doctoc/state"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("unable to load default configuration: %v", err)
	}
	return cfg
}

func buildDoc(t *testing.T, b *docxtest.Builder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	if err := b.Write(path); err != nil {
		t.Fatalf("unable to build test package: %v", err)
	}
	return path
}

func openDoc(t *testing.T, path string) *docx.Document {
	t.Helper()
	d, err := docx.Open(path, testConfig(t).Document.Geometry, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unable to open test package: %v", err)
	}
	t.Cleanup(func() { _ = d.Cleanup() })
	return d
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Cfg = testConfig(t)
	env.Log = zaptest.NewLogger(t)
	return ctx
}

func newTestDetector(t *testing.T, d *docx.Document) *Detector {
	t.Helper()
	return NewDetector(testConfig(t).Document.Detector, d.Geometry(), zaptest.NewLogger(t))
}
