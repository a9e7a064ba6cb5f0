// Package decompress expands gzip dumps into UTF-8 text files.
package decompress

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

var ErrCorruptArchive = errors.New("decompress: corrupt archive")

type Decompressor struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Decompressor {
	return &Decompressor{log: log.With("service", "DumpDecompressor")}
}

// Decompress streams srcGzPath into destPath. Output is always valid UTF-8:
// malformed byte sequences become U+FFFD rather than failing the run.
func (d *Decompressor) Decompress(srcGzPath, destPath string) (int64, error) {
	in, err := os.Open(srcGzPath)
	if err != nil {
		return 0, fmt.Errorf("decompress: open %s: %w", srcGzPath, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(bufio.NewReaderSize(in, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, srcGzPath, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("decompress: create dir: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("decompress: create %s: %w", destPath, err)
	}

	start := time.Now()
	src := transform.NewReader(gz, unicode.UTF8.NewDecoder())
	n, err := copyTagged(out, src)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("decompress: close %s: %w", destPath, cerr)
	}
	if err != nil {
		return n, err
	}

	d.log.Info("Extracted SQL file",
		"src", srcGzPath,
		"dest", destPath,
		"size", humanize.Bytes(uint64(n)),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return n, nil
}

// copyTagged is io.Copy that attributes read failures to the archive and
// write failures to the destination.
func copyTagged(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 1<<20)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("decompress: write: %w", werr)
			}
			if nw != nr {
				return written, fmt.Errorf("decompress: write: %w", io.ErrShortWrite)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("%w: %v", ErrCorruptArchive, rerr)
		}
	}
}
