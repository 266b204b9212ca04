package config

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestReportRoundTrip(t *testing.T) {
	dir := t.TempDir()

	extra := filepath.Join(dir, "extra.txt")
	if err := os.WriteFile(extra, []byte("on disk"), 0644); err != nil {
		t.Fatal(err)
	}

	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	rpt, err := conf.Prepare()
	if err != nil {
		t.Fatalf("unable to prepare report: %v", err)
	}

	rpt.StoreData("doc/pass1.xml", []byte("<doc/>"))
	rpt.StoreData("doc/pass1.xml", []byte("<doc2/>")) // versioned, not overwritten
	rpt.Store("extra.txt", extra)

	if err := rpt.Close(); err != nil {
		t.Fatalf("unable to finalize report: %v", err)
	}

	zr, err := zip.OpenReader(conf.Destination)
	if err != nil {
		t.Fatalf("report is not a readable archive: %v", err)
	}
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["MANIFEST"] {
		t.Fatal("missing MANIFEST")
	}
	if !names["doc/pass1.xml"] {
		t.Fatal("missing stored data entry")
	}
	if !names["extra.txt"] {
		t.Fatal("missing stored file entry")
	}
	if len(zr.File) != 4 {
		t.Fatalf("expected 4 entries (incl. versioned duplicate), got %d", len(zr.File))
	}
}

func TestNilReportIsSafe(t *testing.T) {
	var rpt *Report
	rpt.Store("a", "b")
	rpt.StoreData("c", []byte("d"))
	if rpt.Name() != "" {
		t.Fatal("nil report should have no name")
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("nil report close should be a no-op: %v", err)
	}
}
