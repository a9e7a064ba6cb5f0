package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

func TestFetchStreamsBodyToDisk(t *testing.T) {
	body := []byte("INSERT INTO `page` VALUES (1,0,'Alan_Turing');\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "dumps", "page_2025-01-01.sql.gz")
	n, err := New(logger.NewNop(), time.Second).Fetch(context.Background(), srv.URL, dest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n != int64(len(body)) {
		t.Fatalf("bytes: want=%d got=%d", len(body), n)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("body mismatch: got=%q", got)
	}
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "x.gz")
	_, err := New(logger.NewNop(), time.Second).Fetch(context.Background(), srv.URL, dest)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound got=%v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("dest should not be created on a bad status")
	}
}

func TestFetchInterruptedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(1<<20))
		_, _ = w.Write([]byte("partial"))
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		}
	}))
	defer srv.Close()

	_, err := New(logger.NewNop(), time.Second).Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x.gz"))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("want ErrTransferFailed got=%v", err)
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(logger.NewNop(), time.Second).Fetch(context.Background(), url, filepath.Join(t.TempDir(), "x.gz"))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("want ErrTransferFailed got=%v", err)
	}
}
