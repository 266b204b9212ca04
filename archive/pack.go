package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/multierr"

	"doctoc/misc"
)

// Extract unpacks every entry of the package into destDir preserving the
// internal directory layout and returns entry names in archive order, so the
// package can later be repacked the way it arrived.
func Extract(archive, destDir string) ([]string, error) {

	var names []string
	err := Walk(archive, "", func(_ string, f *zip.File) error {
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("unable to create directory for %q: %w", f.Name, err)
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open entry %q: %w", f.Name, err)
		}
		defer rc.Close()

		out, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("unable to create %q: %w", target, err)
		}
		defer out.Close()

		if _, err := io.Copy(out, rc); err != nil {
			return fmt.Errorf("unable to extract %q: %w", f.Name, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("unable to finalize %q: %w", target, err)
		}

		names = append(names, f.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Repack zips srcDir contents back into a package and atomically replaces
// destPath with the result. Entries are written in the order given by names;
// files not listed there (if any) follow sorted by name. The original file at
// destPath is never left partially written - on any failure the temporary file
// is removed and destPath stays intact.
func Repack(srcDir string, names []string, destPath string) (err error) {

	tmp, err := os.CreateTemp(filepath.Dir(destPath), misc.GetAppName()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary package: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			err = multierr.Append(err, removeIfPresent(tmpName))
		}
	}()

	if err = writeArchive(tmp, srcDir, orderedEntries(srcDir, names)); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("unable to finalize temporary package: %w", err)
	}

	// Rewrite the archive dropping data descriptor records: some consumers of
	// the resulting package choke on streamed entries.
	normName := tmpName + ".norm"
	if err = copyZipWithoutDataDescriptors(tmpName, normName); err != nil {
		err = multierr.Append(err, removeIfPresent(normName))
		return err
	}
	if err = os.Remove(tmpName); err != nil {
		err = multierr.Append(fmt.Errorf("unable to remove temporary package: %w", err), removeIfPresent(normName))
		return err
	}
	tmpName = normName

	if err = os.Rename(normName, destPath); err != nil {
		return fmt.Errorf("unable to replace package: %w", err)
	}
	return nil
}

// orderedEntries returns relative slash-separated paths of all regular files
// under srcDir, preferring the supplied archive order.
func orderedEntries(srcDir string, names []string) []string {

	known := make(map[string]bool, len(names))
	var order []string
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(srcDir, filepath.FromSlash(n))); err == nil {
			known[n] = true
			order = append(order, n)
		}
	}

	var extra []string
	_ = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.Mode().IsRegular() {
			return nil //nolint:nilerr // ignore unreadable entries, archive write will not miss them
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !known[rel] {
			extra = append(extra, rel)
		}
		return nil
	})
	sort.Strings(extra)
	return append(order, extra...)
}

func writeArchive(w io.Writer, srcDir string, entries []string) error {

	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, name := range entries {
		if !isSafePath(name) {
			return fmt.Errorf("entry %q: unsafe path", name)
		}

		in, err := os.Open(filepath.Join(srcDir, filepath.FromSlash(name)))
		if err != nil {
			return fmt.Errorf("unable to open part %q: %w", name, err)
		}

		out, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			in.Close()
			return fmt.Errorf("unable to create entry %q: %w", name, err)
		}
		if _, err := io.Copy(out, in); err != nil {
			in.Close()
			return fmt.Errorf("unable to write entry %q: %w", name, err)
		}
		in.Close()
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close package: %w", err)
	}
	return nil
}

func copyZipWithoutDataDescriptors(from, to string) error {

	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

func removeIfPresent(name string) error {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to remove %q: %w", name, err)
	}
	return nil
}

// ReadPart returns the raw contents of a single named part of the package
// without extracting anything to disk.
func ReadPart(archive, name string) ([]byte, error) {

	var data []byte
	err := Walk(archive, "", func(_ string, f *zip.File) error {
		if f.Name != name && !strings.EqualFold(f.Name, name) {
			return nil
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open part %q: %w", name, err)
		}
		defer rc.Close()
		if data, err = io.ReadAll(rc); err != nil {
			return fmt.Errorf("unable to read part %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("package has no part %q", name)
	}
	return data, nil
}
