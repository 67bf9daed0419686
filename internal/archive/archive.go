// Package archive unpacks submission zip files into a grading directory.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrMalformed reports input that is not a readable zip archive.
	ErrMalformed = errors.New("archive: malformed archive")
	// ErrUnsafePath reports an entry that would land outside the destination.
	ErrUnsafePath = errors.New("archive: entry escapes destination")
)

// metadataDir is the resource-fork folder macOS adds to zips it creates.
const metadataDir = "__MACOSX"

// ExtractBytes extracts an in-memory archive into dest.
func ExtractBytes(data []byte, dest string) error {
	return Extract(bytes.NewReader(data), int64(len(data)), dest)
}

// Extract unpacks the zip read from r into dest, creating dest if needed and
// overwriting files that already exist there. When every entry lives under one
// shared top-level folder that folder is stripped, so dest holds the
// submission's files directly.
func Extract(r io.ReaderAt, size int64, dest string) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("archive: create %s: %w", dest, err)
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("archive: resolve %s: %w", dest, err)
	}

	entries := make([]*zip.File, 0, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		name, err := entryName(f.Name)
		if err != nil {
			return err
		}
		if name == "" || isMetadata(name) {
			continue
		}
		entries = append(entries, f)
		names = append(names, name)
	}
	prefix := sharedTopLevel(entries, names)

	for i, f := range entries {
		rel := strings.TrimPrefix(names[i], prefix)
		if rel == "" {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(rel))
		if !within(root, target) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}
		switch mode := f.Mode(); {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("archive: create %s: %w", target, err)
			}
		case mode&os.ModeSymlink != 0:
			continue
		default:
			if err := writeEntry(f, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("archive: create %s: %w", filepath.Dir(target), err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrMalformed, f.Name, err)
	}
	defer rc.Close()

	perm := os.FileMode(0o644)
	if f.Mode()&0o111 != 0 {
		perm = 0o755
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", target, err)
	}
	w := &trackingWriter{w: out}
	_, copyErr := io.Copy(w, rc)
	closeErr := out.Close()
	if copyErr != nil {
		if w.err != nil {
			return fmt.Errorf("archive: write %s: %w", target, w.err)
		}
		return fmt.Errorf("%w: read %s: %v", ErrMalformed, f.Name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("archive: close %s: %w", target, closeErr)
	}
	return nil
}

// trackingWriter remembers write-side failures so io.Copy errors can be split
// into archive corruption and filesystem trouble.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

// entryName normalizes an entry to a slash-separated relative path. Directory
// entries keep their trailing slash.
func entryName(raw string) (string, error) {
	name := strings.ReplaceAll(raw, `\`, "/")
	isDir := strings.HasSuffix(name, "/")
	if path.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, raw)
	}
	name = path.Clean(name)
	if name == ".." || strings.HasPrefix(name, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, raw)
	}
	if name == "." {
		return "", nil
	}
	if isDir {
		name += "/"
	}
	return name, nil
}

func isMetadata(name string) bool {
	return name == metadataDir+"/" || strings.HasPrefix(name, metadataDir+"/")
}

// sharedTopLevel returns "dir/" when every entry sits inside the same
// top-level directory, otherwise "".
func sharedTopLevel(entries []*zip.File, names []string) string {
	var top string
	nested := false
	for i, name := range names {
		first, rest, found := strings.Cut(name, "/")
		if !found {
			// a bare file at the root
			return ""
		}
		if top == "" {
			top = first
		} else if top != first {
			return ""
		}
		if rest != "" || !entries[i].Mode().IsDir() {
			nested = true
		}
	}
	if top == "" || !nested {
		return ""
	}
	return top + "/"
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
