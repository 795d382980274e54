package subtitle

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Bundle maps rendered format names to their on-disk paths.
type Bundle map[Format]string

// Formats returns the bundle's formats in sorted order.
func (b Bundle) Formats() []Format {
	formats := make([]Format, 0, len(b))
	for f := range b {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// WriteFiles renders every requested format and writes one file per format
// into dir, named base.<format>. All files are written or none: a failure
// removes any files already written for this call.
func WriteFiles(dir, base string, formats []Format, entries []Entry) (Bundle, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	bundle := make(Bundle, len(formats))
	for _, format := range formats {
		doc, err := Render(format, entries)
		if err != nil {
			removeBundle(bundle)
			return nil, err
		}
		path := filepath.Join(dir, base+"."+string(format))
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			removeBundle(bundle)
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		bundle[format] = path
	}
	return bundle, nil
}

// WriteArchive zips the bundle's files into archivePath. Entries in the
// archive are flat file names in format order.
func WriteArchive(archivePath string, bundle Bundle) error {
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, format := range bundle.Formats() {
		path := bundle[format]
		data, err := os.ReadFile(path)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("read %s: %w", path, err)
		}
		entry, err := zw.Create(filepath.Base(path))
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("add archive entry %s: %w", filepath.Base(path), err)
		}
		if _, err := entry.Write(data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("write archive entry %s: %w", filepath.Base(path), err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return f.Sync()
}

// BaseName derives the output file base from a source filename by dropping
// its extension.
func BaseName(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	trimmed := strings.TrimSuffix(base, ext)
	if trimmed == "" {
		return "transcript"
	}
	return trimmed
}

func removeBundle(bundle Bundle) {
	for _, path := range bundle {
		_ = os.Remove(path)
	}
}
