package decompress

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

func writeGzip(t *testing.T, path string, payload []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDecompressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.sql.gz")
	payload := []byte("INSERT INTO `page` VALUES (1,0,'Alan_Turing'),(2,0,'Cat');\n")
	writeGzip(t, src, payload)

	dest := filepath.Join(dir, "sql", "page.sql")
	n, err := New(logger.NewNop()).Decompress(src, dest)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload: want=%q got=%q", payload, got)
	}
	if n != int64(len(payload)) {
		t.Fatalf("bytes: want=%d got=%d", len(payload), n)
	}
}

func TestDecompressReplacesMalformedBytes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.sql.gz")
	writeGzip(t, src, []byte("(1,0,'Caf\xe9')\n"))

	dest := filepath.Join(dir, "page.sql")
	if _, err := New(logger.NewNop()).Decompress(src, dest); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	got, _ := os.ReadFile(dest)
	if !utf8.Valid(got) {
		t.Fatalf("output is not valid UTF-8: %q", got)
	}
	if want := "(1,0,'Caf�')\n"; string(got) != want {
		t.Fatalf("want=%q got=%q", want, got)
	}
}

func TestDecompressCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.sql.gz")
	if err := os.WriteFile(src, []byte("definitely not gzip"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := New(logger.NewNop()).Decompress(src, filepath.Join(dir, "bad.sql"))
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("want ErrCorruptArchive got=%v", err)
	}
}

func TestDecompressTruncatedArchive(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full.sql.gz")
	writeGzip(t, full, bytes.Repeat([]byte("(1,0,2),"), 10000))
	raw, _ := os.ReadFile(full)
	src := filepath.Join(dir, "trunc.sql.gz")
	if err := os.WriteFile(src, raw[:len(raw)/2], 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := New(logger.NewNop()).Decompress(src, filepath.Join(dir, "trunc.sql"))
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("want ErrCorruptArchive got=%v", err)
	}
}
