package engine

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/retry.v1"

	"mcsm/internal/source"
)

// Staged is a fetched, verified artifact sitting in the scratch directory,
// ready to be swapped into place.
type Staged struct {
	Path   string
	SHA256 string
	Size   int64
}

// RetryStrategy builds the backoff policy for transient download failures.
func RetryStrategy(attempts int, baseDelay time.Duration) retry.Strategy {
	if attempts < 1 {
		attempts = 1
	}
	return retry.LimitCount(attempts, retry.Exponential{
		Initial: baseDelay,
		Factor:  2,
	})
}

// Fetcher downloads artifacts into the scratch directory and verifies them
// against the digest the source published. Nothing it does touches live
// files.
type Fetcher struct {
	HTTP       *http.Client
	UserAgent  string
	ScratchDir string
	Strategy   retry.Strategy
	Logf       func(format string, args ...any)
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.Logf != nil {
		f.Logf(format, args...)
	}
}

// Fetch downloads one artifact. Transient transport failures are retried
// under the fetcher's strategy; an integrity mismatch is final and discards
// the staged file immediately.
func (f *Fetcher) Fetch(ctx context.Context, dl source.Download) (Staged, error) {
	if err := os.MkdirAll(f.ScratchDir, 0o755); err != nil {
		return Staged{}, fmt.Errorf("create scratch dir: %w", err)
	}

	var lastErr error
	for attempt := retry.Start(f.Strategy, nil); attempt.Next(); {
		staged, err := f.fetchOnce(ctx, dl)
		if err == nil {
			return staged, nil
		}
		lastErr = err
		if !retriable(err) {
			return Staged{}, err
		}
		if attempt.More() {
			f.logf("download %s failed, retrying: %v", dl.URL, err)
		}
	}
	return Staged{}, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, dl source.Download) (Staged, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dl.URL, nil)
	if err != nil {
		return Staged{}, &source.TransportError{URL: dl.URL, Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return Staged{}, &source.TransportError{URL: dl.URL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Staged{}, &source.TransportError{URL: dl.URL, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	tmp, err := os.CreateTemp(f.ScratchDir, "download-*.part")
	if err != nil {
		return Staged{}, fmt.Errorf("create staging file: %w", err)
	}
	tmpName := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	recorder := sha256.New()
	sink := io.MultiWriter(tmp, recorder)
	var published hash.Hash
	if !dl.Checksum.Empty() {
		published = digestFor(dl.Checksum.Algo)
	}
	if published != nil {
		sink = io.MultiWriter(tmp, recorder, published)
	}

	size, err := io.Copy(sink, resp.Body)
	if err != nil {
		discard()
		return Staged{}, &source.TransportError{URL: dl.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Staged{}, fmt.Errorf("close staging file: %w", err)
	}

	if size == 0 {
		os.Remove(tmpName)
		return Staged{}, fmt.Errorf("%w: %s: empty response body", ErrIntegrity, dl.URL)
	}
	if dl.Size > 0 && size != dl.Size {
		os.Remove(tmpName)
		return Staged{}, fmt.Errorf("%w: %s: got %d bytes, source declares %d", ErrIntegrity, dl.URL, size, dl.Size)
	}
	if published != nil {
		got := hex.EncodeToString(published.Sum(nil))
		if got != dl.Checksum.Hex {
			os.Remove(tmpName)
			return Staged{}, fmt.Errorf("%w: %s: %s digest %s, source declares %s",
				ErrIntegrity, dl.URL, dl.Checksum.Algo, got, dl.Checksum.Hex)
		}
	} else {
		// Without a digest the only signals are size and content type; an
		// HTML body is a CDN error page, not an artifact.
		if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
			os.Remove(tmpName)
			return Staged{}, fmt.Errorf("%w: %s: content type %s is not a binary artifact", ErrIntegrity, dl.URL, ct)
		}
		f.logf("%s publishes no digest; accepting %d bytes unverified", dl.URL, size)
	}

	return Staged{
		Path:   tmpName,
		SHA256: hex.EncodeToString(recorder.Sum(nil)),
		Size:   size,
	}, nil
}

func digestFor(algo source.ChecksumAlgo) hash.Hash {
	switch algo {
	case source.ChecksumSHA256:
		return sha256.New()
	case source.ChecksumSHA512:
		return sha512.New()
	case source.ChecksumMD5:
		return md5.New()
	default:
		return nil
	}
}

func retriable(err error) bool {
	var te *source.TransportError
	if errors.As(err, &te) {
		return te.Retriable()
	}
	return false
}
