package bundle

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/nexabuild/go-services/internal/fileset"
)

// archiveModTime is stamped on every entry so equal sets give equal archives.
var archiveModTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Package returns the set as an in-memory ZIP archive.
func Package(fs fileset.FileSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, fs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteArchive streams the set as a ZIP archive to w, one entry per path in
// sorted order.
func WriteArchive(w io.Writer, fs fileset.FileSet) error {
	zw := zip.NewWriter(w)
	for _, p := range fs.Paths() {
		hdr := &zip.FileHeader{Name: p, Method: zip.Deflate, Modified: archiveModTime}
		hdr.SetMode(0o644)
		f, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrArchive, p, err)
		}
		if _, err := io.WriteString(f, fs[p]); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrArchive, p, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return nil
}
