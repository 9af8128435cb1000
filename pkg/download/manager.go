package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/modman/pkg/buildinfo"
	errs "github.com/matzehuels/modman/pkg/errors"
	"github.com/matzehuels/modman/pkg/integrity"
	"github.com/matzehuels/modman/pkg/observability"
)

// DefaultWorkers is the default number of concurrent transfers.
const DefaultWorkers = 3

// copyBufferSize is the buffer used when streaming a response to disk.
const copyBufferSize = 32 * 1024

var (
	// ErrMissingDigest is wrapped by an [IntegrityError] for files published
	// without a sha1 digest.
	ErrMissingDigest = errors.New("no sha1 digest to verify against")

	// ErrDestinationExists is recorded for files whose destination path is
	// already taken. Existing files are never overwritten.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrDuplicateFilename is recorded for a file whose filename was already
	// claimed by another file in the same batch.
	ErrDuplicateFilename = errors.New("duplicate filename in batch")
)

// IntegrityError aborts a batch when a cached or freshly fetched file fails
// verification. No file of the batch is relocated once it is returned.
type IntegrityError struct {
	File File
	Err  error // *integrity.MismatchError or ErrMissingDigest
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: %v", e.File.Filename, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Code returns the error code for this error type.
func (e *IntegrityError) Code() errs.Code { return errs.ErrCodeIntegrity }

// Options configures a [Manager]. All fields are optional.
type Options struct {
	Cache      *Cache       // Defaults to NewCache("")
	HTTPClient *http.Client // Used for file transfers
	Workers    int          // Concurrent transfers; default DefaultWorkers
	Logger     *log.Logger
	Hooks      observability.DownloadHooks
	Progress   ProgressFunc
	UserAgent  string // Defaults to buildinfo.UserAgent()
}

// Manager downloads files through the cache into a destination directory.
// A Manager may be reused for several batches but batches should not run
// concurrently against the same cache, since files are keyed by filename.
type Manager struct {
	cache     *Cache
	http      *http.Client
	workers   int
	logger    *log.Logger
	hooks     observability.DownloadHooks
	progress  ProgressFunc
	userAgent string
}

// NewManager creates a Manager from opts.
func NewManager(opts Options) (*Manager, error) {
	m := &Manager{
		cache:     opts.Cache,
		http:      opts.HTTPClient,
		workers:   opts.Workers,
		logger:    opts.Logger,
		hooks:     opts.Hooks,
		progress:  opts.Progress,
		userAgent: opts.UserAgent,
	}
	if m.cache == nil {
		c, err := NewCache("")
		if err != nil {
			return nil, fmt.Errorf("open download cache: %w", err)
		}
		m.cache = c
	}
	if m.http == nil {
		m.http = &http.Client{}
	}
	if m.workers <= 0 {
		m.workers = DefaultWorkers
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	if m.hooks == nil {
		m.hooks = observability.NoopDownloadHooks{}
	}
	if m.progress == nil {
		m.progress = func([]Task) Reporter { return nopReporter{} }
	}
	if m.userAgent == "" {
		m.userAgent = buildinfo.UserAgent()
	}
	return m, nil
}

// Cache returns the download cache used by the manager.
func (m *Manager) Cache() *Cache { return m.cache }

// Report is the result of a batch.
type Report struct {
	Paths    ResultMap  // Files that reached StateMoved
	Outcomes []*Outcome // One per input file, in input order
}

// Failed returns the outcomes that ended in StateFailed.
func (r *Report) Failed() []*Outcome {
	var out []*Outcome
	for _, o := range r.Outcomes {
		if o.State == StateFailed {
			out = append(out, o)
		}
	}
	return out
}

// DownloadFiles is [Manager.Download] returning only the result map.
func (m *Manager) DownloadFiles(ctx context.Context, files []File, dest string) (ResultMap, error) {
	report, err := m.Download(ctx, files, dest)
	if err != nil {
		return nil, err
	}
	return report.Paths, nil
}

// Download makes every file available in dest.
//
// Files already in the cache are verified against their sha1 digest before
// anything is fetched; a mismatch aborts the batch at once. The remaining
// files are fetched concurrently, at most Workers at a time, and the call
// waits for every transfer before verifying the fresh files. Verified files
// are then moved from the cache into dest.
//
// A file whose transfer fails, or whose destination already exists, is
// logged and left out of the result. An integrity failure is returned as an
// [*IntegrityError] and nothing from the batch is moved. The report is
// returned in both cases.
func (m *Manager) Download(ctx context.Context, files []File, dest string) (*Report, error) {
	report := &Report{Paths: make(ResultMap)}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return report, fmt.Errorf("create destination: %w", err)
	}

	outcomes := m.plan(files)
	report.Outcomes = outcomes

	// Cache hits are verified first so a corrupt cache fails fast.
	var pending []*Outcome
	for _, o := range outcomes {
		if o.State != StatePending {
			continue
		}
		if _, ok := m.cache.Lookup(o.File.Filename); !ok {
			m.hooks.OnFileCacheMiss(ctx, o.File.Filename)
			pending = append(pending, o)
			continue
		}
		m.hooks.OnFileCacheHit(ctx, o.File.Filename)
		_ = o.transition(StateCacheHit)
		if err := m.verify(ctx, o); err != nil {
			return report, err
		}
	}

	m.fetchAll(ctx, pending)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for _, o := range pending {
		if o.State != StateFetching {
			continue
		}
		if err := m.verify(ctx, o); err != nil {
			return report, err
		}
	}

	for _, o := range outcomes {
		if o.State != StateVerified {
			continue
		}
		target := filepath.Join(dest, filepath.Base(o.CachePath))
		if err := relocate(o.CachePath, target); err != nil {
			o.fail(err)
			continue
		}
		_ = o.transition(StateMoved)
		o.Path = target
		report.Paths[o.File] = target
	}

	for _, o := range report.Failed() {
		m.logger.Warn("file omitted from download", "file", o.File.Filename, "err", o.Err)
	}
	return report, nil
}

// plan creates an outcome per file, failing invalid or duplicate filenames.
func (m *Manager) plan(files []File) []*Outcome {
	outcomes := make([]*Outcome, 0, len(files))
	claimed := make(map[string]struct{}, len(files))
	for _, f := range files {
		o := &Outcome{File: f}
		outcomes = append(outcomes, o)

		path, err := m.cache.Path(f.Filename)
		if err != nil {
			o.fail(err)
			continue
		}
		if _, ok := claimed[path]; ok {
			o.fail(fmt.Errorf("%w: %s", ErrDuplicateFilename, f.Filename))
			continue
		}
		claimed[path] = struct{}{}
		o.CachePath = path
	}
	return outcomes
}

// verify checks o against its sha1 digest. A corrupt file is removed from
// the cache so the next run fetches it again.
func (m *Manager) verify(ctx context.Context, o *Outcome) error {
	var err error
	if o.File.Hashes.SHA1 == "" {
		err = ErrMissingDigest
	} else {
		err = integrity.Check(o.CachePath, integrity.SHA1, o.File.Hashes.SHA1)
	}
	m.hooks.OnVerify(ctx, o.File.Filename, err == nil)

	if err != nil {
		ierr := &IntegrityError{File: o.File, Err: err}
		o.fail(ierr)
		if errors.Is(err, integrity.ErrMismatch) {
			if rmErr := os.Remove(o.CachePath); rmErr != nil {
				m.logger.Warn("could not remove corrupt cache entry", "path", o.CachePath, "err", rmErr)
			}
		}
		return ierr
	}
	return o.transition(StateVerified)
}

// fetchAll transfers every outcome concurrently and waits for all of them.
// Individual failures are recorded on the outcome and never stop the others.
func (m *Manager) fetchAll(ctx context.Context, outcomes []*Outcome) {
	if len(outcomes) == 0 {
		return
	}

	tasks := make([]Task, len(outcomes))
	for i, o := range outcomes {
		o.TaskID = uuid.NewString()
		_ = o.transition(StateFetching)
		tasks[i] = Task{ID: o.TaskID, Filename: o.File.Filename, Size: o.File.Size}
	}

	reporter := m.progress(tasks)
	defer func() {
		if err := reporter.Close(); err != nil {
			m.logger.Debug("progress reporter close", "err", err)
		}
	}()

	var g errgroup.Group
	g.SetLimit(m.workers)
	for _, o := range outcomes {
		g.Go(func() error {
			start := time.Now()
			reporter.Start(o.TaskID)
			n, err := m.fetch(ctx, o, reporter)
			reporter.Done(o.TaskID, err)
			m.hooks.OnFetchComplete(ctx, o.File.Filename, n, time.Since(start), err)
			if err != nil {
				m.logger.Debug("download failed", "file", o.File.Filename, "task", o.TaskID, "err", err)
				o.fail(err)
			} else {
				m.logger.Debug("downloaded", "file", o.File.Filename, "task", o.TaskID, "bytes", n)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// fetch streams o.File.URL into the cache via a .part file.
func (m *Manager) fetch(ctx context.Context, o *Outcome, reporter Reporter) (int64, error) {
	if err := errs.ValidateURL(o.File.URL); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.File.URL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s: unexpected status %d", o.File.URL, resp.StatusCode)
	}

	part := m.cache.partPath(o.CachePath)
	f, err := os.Create(part)
	if err != nil {
		return 0, err
	}

	pw := &progressWriter{id: o.TaskID, reporter: reporter}
	_, err = io.CopyBuffer(io.MultiWriter(f, pw), resp.Body, make([]byte, copyBufferSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return pw.n.Load(), err
	}
	if err := os.Rename(part, o.CachePath); err != nil {
		os.Remove(part)
		return pw.n.Load(), err
	}
	return pw.n.Load(), nil
}

// relocate moves src to dst without replacing an existing dst. When a plain
// rename fails (for example across devices) the file is copied into dst's
// directory and renamed into place.
func relocate(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".modman-*")
	if err != nil {
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	in.Close()
	return os.Remove(src)
}
