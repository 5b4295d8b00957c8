package snapshot

import (
	"archive/zip"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/raoulx24/dbkeeper/internal/fs"
)

// DefaultCompressionLevel favours size; snapshots are written rarely and kept for days.
const DefaultCompressionLevel = flate.BestCompression

// archiveEncoder returns an fs.EncodeFunc writing a zip with exactly one
// deflated entry holding the source bytes.
func archiveEncoder(level int) fs.EncodeFunc {
	return func(w io.Writer, src io.Reader, info fs.FileInfo) error {
		return writeArchive(w, src, FromFileInfo(info), level)
	}
}

func writeArchive(w io.Writer, src io.Reader, a Artifact, level int) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	hdr := &zip.FileHeader{
		Name:     a.Name,
		Method:   zip.Deflate,
		Modified: a.ModTime,
	}
	hdr.SetMode(0o644)

	entry, err := zw.CreateHeader(hdr)
	if err != nil {
		_ = zw.Close()
		return err
	}
	if _, err := io.Copy(entry, src); err != nil {
		_ = zw.Close()
		return err
	}

	return zw.Close()
}
