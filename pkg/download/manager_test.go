package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/modman/pkg/errors"
	"github.com/matzehuels/modman/pkg/integrity"
	"github.com/matzehuels/modman/pkg/observability"
)

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// fileServer serves /files/{name} from contents and records concurrency.
type fileServer struct {
	*httptest.Server
	requests atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFileServer(t *testing.T, contents map[string][]byte, delay time.Duration) *fileServer {
	t.Helper()
	fs := &fileServer{}
	r := chi.NewRouter()
	r.Get("/files/{name}", func(w http.ResponseWriter, req *http.Request) {
		fs.requests.Add(1)
		n := fs.inFlight.Add(1)
		defer fs.inFlight.Add(-1)
		for {
			m := fs.maxSeen.Load()
			if n <= m || fs.maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		data, ok := contents[chi.URLParam(req, "name")]
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Write(data)
	})
	fs.Server = httptest.NewServer(r)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fileServer) file(name string, content []byte) File {
	return File{
		Filename: name,
		URL:      fs.URL + "/files/" + name,
		Size:     int64(len(content)),
		Primary:  true,
		Hashes:   Hashes{SHA1: sha1Hex(content)},
	}
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.Cache == nil {
		c, err := NewCache(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		opts.Cache = c
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	m, err := NewManager(opts)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func seedCache(t *testing.T, c *Cache, name string, content []byte) {
	t.Helper()
	path, err := c.Path(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
}

func assertFile(t *testing.T, path string, want []byte) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(got) != string(want) {
		t.Errorf("%s = %q, want %q", path, got, want)
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%s should be empty, has %d entries", dir, len(entries))
	}
}

func TestDownloadCachedAndMissing(t *testing.T) {
	cached := []byte("sodium jar bytes")
	fresh := []byte("lithium jar bytes")
	srv := newFileServer(t, map[string][]byte{"lithium.jar": fresh}, 0)

	stats := &observability.Stats{}
	m := newTestManager(t, Options{Hooks: stats})
	seedCache(t, m.Cache(), "sodium.jar", cached)

	a := srv.file("sodium.jar", cached)
	b := srv.file("lithium.jar", fresh)
	dest := filepath.Join(t.TempDir(), "mods")

	report, err := m.Download(context.Background(), []File{a, b}, dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if n := srv.requests.Load(); n != 1 {
		t.Errorf("network transfers = %d, want 1", n)
	}
	if len(report.Paths) != 2 {
		t.Fatalf("result has %d entries, want 2", len(report.Paths))
	}
	if got := report.Paths[a]; got != filepath.Join(dest, "sodium.jar") {
		t.Errorf("path of cached file = %q", got)
	}
	if got := report.Paths[b]; got != filepath.Join(dest, "lithium.jar") {
		t.Errorf("path of fetched file = %q", got)
	}
	assertFile(t, report.Paths[a], cached)
	assertFile(t, report.Paths[b], fresh)

	for _, o := range report.Outcomes {
		if o.State != StateMoved {
			t.Errorf("%s state = %s, want moved", o.File.Filename, o.State)
		}
	}
	if report.Outcomes[1].TaskID == "" {
		t.Error("fetched file should carry a task id")
	}
	if report.Outcomes[0].TaskID != "" {
		t.Error("cache hit should not be assigned a task id")
	}

	snap := stats.Snapshot()
	if snap.FileCacheHits != 1 || snap.FileCacheMiss != 1 || snap.Fetched != 1 || snap.Bytes != int64(len(fresh)) {
		t.Errorf("stats = %+v", snap)
	}
}

func TestDownloadCorruptCacheAbortsBeforeFetch(t *testing.T) {
	good := []byte("good")
	fresh := []byte("fresh")
	srv := newFileServer(t, map[string][]byte{"fresh.jar": fresh}, 0)

	m := newTestManager(t, Options{})
	seedCache(t, m.Cache(), "good.jar", good)
	seedCache(t, m.Cache(), "corrupt.jar", []byte("tampered"))

	files := []File{
		srv.file("good.jar", good),
		srv.file("corrupt.jar", []byte("original")),
		srv.file("fresh.jar", fresh),
	}
	dest := t.TempDir()

	report, err := m.Download(context.Background(), files, dest)

	var ierr *IntegrityError
	if !errors.As(err, &ierr) {
		t.Fatalf("Download error = %v, want IntegrityError", err)
	}
	if ierr.File.Filename != "corrupt.jar" {
		t.Errorf("IntegrityError file = %s", ierr.File.Filename)
	}
	if !errors.Is(err, integrity.ErrMismatch) {
		t.Error("error should wrap integrity.ErrMismatch")
	}
	if !errs.Is(err, errs.ErrCodeIntegrity) {
		t.Error("error should carry INTEGRITY_MISMATCH code")
	}
	if n := srv.requests.Load(); n != 0 {
		t.Errorf("%d transfers started after cache corruption, want 0", n)
	}
	assertEmptyDir(t, dest)
	if len(report.Paths) != 0 {
		t.Errorf("result map = %v, want empty", report.Paths)
	}
	if _, ok := m.Cache().Lookup("corrupt.jar"); ok {
		t.Error("corrupt cache entry should be removed")
	}
}

func TestDownloadCorruptFetchAbortsRelocation(t *testing.T) {
	good := []byte("good")
	srv := newFileServer(t, map[string][]byte{
		"good.jar": good,
		"bad.jar":  []byte("served bytes"),
	}, 0)

	m := newTestManager(t, Options{})
	files := []File{srv.file("good.jar", good), srv.file("bad.jar", []byte("expected bytes"))}
	dest := t.TempDir()

	_, err := m.Download(context.Background(), files, dest)
	var ierr *IntegrityError
	if !errors.As(err, &ierr) || ierr.File.Filename != "bad.jar" {
		t.Fatalf("Download error = %v, want IntegrityError for bad.jar", err)
	}
	if n := srv.requests.Load(); n != 2 {
		t.Errorf("transfers = %d, want the whole wave (2)", n)
	}
	assertEmptyDir(t, dest)
}

func TestDownloadMissingDigest(t *testing.T) {
	content := []byte("x")
	srv := newFileServer(t, map[string][]byte{"x.jar": content}, 0)
	m := newTestManager(t, Options{})

	f := srv.file("x.jar", content)
	f.Hashes.SHA1 = ""

	_, err := m.Download(context.Background(), []File{f}, t.TempDir())
	if !errors.Is(err, ErrMissingDigest) {
		t.Errorf("Download error = %v, want ErrMissingDigest", err)
	}
}

func TestDownloadRespectsWorkerLimit(t *testing.T) {
	const n = 10
	contents := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		contents[string(rune('a'+i))+".jar"] = []byte{byte(i)}
	}
	srv := newFileServer(t, contents, 30*time.Millisecond)

	var files []File
	for name, data := range contents {
		files = append(files, srv.file(name, data))
	}

	m := newTestManager(t, Options{Workers: 3})
	paths, err := m.DownloadFiles(context.Background(), files, t.TempDir())
	if err != nil {
		t.Fatalf("DownloadFiles: %v", err)
	}
	if len(paths) != n {
		t.Errorf("moved %d files, want %d", len(paths), n)
	}
	if peak := srv.maxSeen.Load(); peak > 3 {
		t.Errorf("max in-flight transfers = %d, want <= 3", peak)
	}
	if srv.requests.Load() != n {
		t.Errorf("requests = %d, want %d", srv.requests.Load(), n)
	}
}

func TestDownloadFetchFailureOmitted(t *testing.T) {
	ok := []byte("ok")
	srv := newFileServer(t, map[string][]byte{"ok.jar": ok}, 0)
	m := newTestManager(t, Options{})

	good := srv.file("ok.jar", ok)
	missing := srv.file("missing.jar", []byte("never served"))
	dest := t.TempDir()

	report, err := m.Download(context.Background(), []File{good, missing}, dest)
	if err != nil {
		t.Fatalf("fetch failures must not fail the batch: %v", err)
	}
	if len(report.Paths) != 1 || report.Paths[good] == "" {
		t.Errorf("result map = %v, want only ok.jar", report.Paths)
	}
	if _, present := report.Paths[missing]; present {
		t.Error("failed file must be omitted from the result")
	}

	failed := report.Failed()
	if len(failed) != 1 || failed[0].File != missing || failed[0].Err == nil {
		t.Errorf("Failed() = %+v", failed)
	}
	if _, ok := m.Cache().Lookup("missing.jar"); ok {
		t.Error("failed transfer left a cache entry")
	}
}

func TestDownloadDoesNotOverwrite(t *testing.T) {
	content := []byte("new")
	srv := newFileServer(t, map[string][]byte{"a.jar": content}, 0)
	m := newTestManager(t, Options{})

	dest := t.TempDir()
	existing := filepath.Join(dest, "a.jar")
	if err := os.WriteFile(existing, []byte("user file"), 0644); err != nil {
		t.Fatal(err)
	}

	f := srv.file("a.jar", content)
	report, err := m.Download(context.Background(), []File{f}, dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(report.Paths) != 0 {
		t.Errorf("result map = %v, want empty", report.Paths)
	}
	assertFile(t, existing, []byte("user file"))

	failed := report.Failed()
	if len(failed) != 1 || !errors.Is(failed[0].Err, ErrDestinationExists) {
		t.Errorf("Failed() = %+v, want ErrDestinationExists", failed)
	}
	if _, ok := m.Cache().Lookup("a.jar"); !ok {
		t.Error("verified file should stay in the cache when it cannot be moved")
	}
}

func TestDownloadDuplicateFilename(t *testing.T) {
	content := []byte("same")
	srv := newFileServer(t, map[string][]byte{"a.jar": content}, 0)
	m := newTestManager(t, Options{})

	f := srv.file("a.jar", content)
	other := f
	other.URL = srv.URL + "/files/other"

	report, err := m.Download(context.Background(), []File{f, other}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcomes[0].State != StateMoved {
		t.Errorf("first file state = %s", report.Outcomes[0].State)
	}
	if !errors.Is(report.Outcomes[1].Err, ErrDuplicateFilename) {
		t.Errorf("second file err = %v, want ErrDuplicateFilename", report.Outcomes[1].Err)
	}
	if srv.requests.Load() != 1 {
		t.Errorf("requests = %d, want 1", srv.requests.Load())
	}
}

type recordingReporter struct {
	mu       sync.Mutex
	tasks    []Task
	started  map[string]bool
	bytes    map[string]int64
	done     map[string]error
	closed   int
}

func (r *recordingReporter) Start(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started[id] = true
}

func (r *recordingReporter) Advance(id string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes[id] += n
}

func (r *recordingReporter) Done(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done[id] = err
}

func (r *recordingReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func TestDownloadProgress(t *testing.T) {
	big := make([]byte, 100*1024)
	srv := newFileServer(t, map[string][]byte{"big.jar": big}, 0)

	rec := &recordingReporter{started: map[string]bool{}, bytes: map[string]int64{}, done: map[string]error{}}
	m := newTestManager(t, Options{Progress: func(tasks []Task) Reporter {
		rec.tasks = tasks
		return rec
	}})

	files := []File{srv.file("big.jar", big), srv.file("gone.jar", []byte("x"))}
	report, err := m.Download(context.Background(), files, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if len(rec.tasks) != 2 {
		t.Fatalf("reporter got %d tasks, want 2", len(rec.tasks))
	}
	if rec.closed != 1 {
		t.Errorf("Close called %d times, want 1", rec.closed)
	}
	bigID := report.Outcomes[0].TaskID
	if rec.bytes[bigID] != int64(len(big)) {
		t.Errorf("advanced %d bytes, want %d", rec.bytes[bigID], len(big))
	}
	if err, ok := rec.done[bigID]; !ok || err != nil {
		t.Errorf("Done(big) = %v, %v", err, ok)
	}
	if err := rec.done[report.Outcomes[1].TaskID]; err == nil {
		t.Error("Done(gone) should report the failure")
	}
}

func TestDownloadNoFetchSkipsReporter(t *testing.T) {
	content := []byte("cached")
	m := newTestManager(t, Options{Progress: func([]Task) Reporter {
		t.Error("reporter should not be created when nothing is fetched")
		return nopReporter{}
	}})
	seedCache(t, m.Cache(), "c.jar", content)

	f := File{Filename: "c.jar", URL: "http://unused.invalid/c.jar", Hashes: Hashes{SHA1: sha1Hex(content)}}
	paths, err := m.DownloadFiles(context.Background(), []File{f}, t.TempDir())
	if err != nil || len(paths) != 1 {
		t.Errorf("DownloadFiles = %v, %v", paths, err)
	}
}

func TestRelocateCrossDirectory(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.jar")
	if err := os.WriteFile(src, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "a.jar")

	if err := relocate(src, dst); err != nil {
		t.Fatalf("relocate: %v", err)
	}
	assertFile(t, dst, []byte("a"))
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone after relocate")
	}
	if err := relocate(dst, dst); !errors.Is(err, ErrDestinationExists) {
		t.Errorf("relocate onto existing path = %v, want ErrDestinationExists", err)
	}
}
