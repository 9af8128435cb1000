package download

import "sync/atomic"

// Task is one scheduled transfer shown by a progress display.
type Task struct {
	ID       string
	Filename string
	Size     int64 // Expected size in bytes, 0 if unknown
}

// Reporter displays per-task transfer progress. Workers call it
// concurrently, so implementations must be safe for concurrent use.
// Close is called exactly once when the fetch phase ends, on every path.
type Reporter interface {
	Start(id string)
	Advance(id string, n int64)
	Done(id string, err error)
	Close() error
}

// ProgressFunc creates a Reporter for a batch of tasks.
type ProgressFunc func(tasks []Task) Reporter

type nopReporter struct{}

func (nopReporter) Start(string)          {}
func (nopReporter) Advance(string, int64) {}
func (nopReporter) Done(string, error)    {}
func (nopReporter) Close() error          { return nil }

// progressWriter counts bytes written through it and forwards the count to
// a Reporter.
type progressWriter struct {
	id       string
	reporter Reporter
	n        atomic.Int64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.n.Add(int64(len(p)))
	w.reporter.Advance(w.id, int64(len(p)))
	return len(p), nil
}
