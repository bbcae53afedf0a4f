package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mcsm/internal/source"
)

func newFetcher(t *testing.T) *Fetcher {
	t.Helper()
	return &Fetcher{
		HTTP:       &http.Client{Timeout: 5 * time.Second},
		UserAgent:  "mcsm-test/1.0",
		ScratchDir: t.TempDir(),
		Strategy:   RetryStrategy(3, time.Millisecond),
	}
}

func TestFetchVerifiesDigest(t *testing.T) {
	body := []byte("artifact payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	sum := sha256.Sum256(body)
	f := newFetcher(t)
	staged, err := f.Fetch(context.Background(), source.Download{
		URL:      srv.URL + "/a.jar",
		Filename: "a.jar",
		Checksum: source.Checksum{Algo: source.ChecksumSHA256, Hex: hex.EncodeToString(sum[:])},
		Size:     int64(len(body)),
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if staged.SHA256 != hex.EncodeToString(sum[:]) || staged.Size != int64(len(body)) {
		t.Errorf("staged = %+v", staged)
	}
	got, err := os.ReadFile(staged.Path)
	if err != nil || string(got) != string(body) {
		t.Errorf("staged file = %q, %v", got, err)
	}
}

func TestFetchIntegrityMismatchIsFinal(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("not what was promised"))
	}))
	defer srv.Close()

	f := newFetcher(t)
	_, err := f.Fetch(context.Background(), source.Download{
		URL:      srv.URL + "/a.jar",
		Checksum: source.Checksum{Algo: source.ChecksumSHA256, Hex: strings.Repeat("00", 32)},
	})
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, integrity failures must not retry", n)
	}

	leftovers, err := filepath.Glob(filepath.Join(f.ScratchDir, "download-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("staging files left behind: %v", leftovers)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var hits int32
	body := []byte("eventually fine")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	f := newFetcher(t)
	staged, err := f.Fetch(context.Background(), source.Download{URL: srv.URL + "/a.jar"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if staged.Size != int64(len(body)) {
		t.Errorf("size = %d", staged.Size)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("hits = %d, want 3", hits)
	}
}

func TestFetchGivesUpAfterBudget(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newFetcher(t)
	_, err := f.Fetch(context.Background(), source.Download{URL: srv.URL + "/a.jar"})
	var te *source.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("hits = %d, want the 3-attempt budget", n)
	}
}

func TestFetchRejectsClientErrorImmediately(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newFetcher(t)
	_, err := f.Fetch(context.Background(), source.Download{URL: srv.URL + "/a.jar"})
	var te *source.TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusForbidden {
		t.Fatalf("err = %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("hits = %d, client errors must not retry", n)
	}
}

func TestFetchRejectsHTMLWithoutDigest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>404</html>"))
	}))
	defer srv.Close()

	f := newFetcher(t)
	_, err := f.Fetch(context.Background(), source.Download{URL: srv.URL + "/a.jar"})
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity for an HTML body", err)
	}
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	f := newFetcher(t)
	_, err := f.Fetch(context.Background(), source.Download{URL: srv.URL + "/a.jar"})
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity for an empty body", err)
	}
}
