package config

import (
	"archive/zip"
	"path/filepath"
	"testing"
)

func TestDebugReportCapturesLogWithoutDestination(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	rpt, err := conf.Prepare()
	if err != nil {
		t.Fatalf("unable to prepare report: %v", err)
	}

	// no file destination configured - the log must still be captured into
	// the report through a temporary file
	var lc LoggingConfig
	log, err := lc.Prepare(rpt)
	if err != nil {
		t.Fatalf("unable to prepare logger: %v", err)
	}
	log.Debug("must end up in the report")
	_ = log.Sync()

	if err := rpt.Close(); err != nil {
		t.Fatalf("unable to finalize report: %v", err)
	}

	zr, err := zip.OpenReader(conf.Destination)
	if err != nil {
		t.Fatalf("report is not a readable archive: %v", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == "final.log" {
			if f.UncompressedSize64 == 0 {
				t.Fatal("captured log is empty")
			}
			return
		}
	}
	t.Fatal("report has no final.log entry")
}
