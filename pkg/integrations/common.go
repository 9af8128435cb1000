package integrations

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	errs "github.com/matzehuels/modman/pkg/errors"
)

const (
	httpTimeout = 30 * time.Second

	// maxRedirects is the number of redirects followed before giving up.
	maxRedirects = 5

	// maxLoggedBody caps response bodies written to the debug log.
	maxLoggedBody = 10240
)

var (
	// ErrNotFound is returned when a project, version or file doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrConnection is returned when the registry cannot be reached after all retries.
	ErrConnection = errors.New("connection error")
)

// ConnectionError reports a request that failed at the transport level on
// every attempt.
type ConnectionError struct {
	URL      string
	Attempts int
	Err      error // Last transport error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("GET %s: connection failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is matches [ErrConnection].
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// Code returns the error code for this error type.
func (e *ConnectionError) Code() errs.Code { return errs.ErrCodeConnection }

// StatusError reports a non-2xx, non-429 response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is matches [ErrNotFound] for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Code returns NOT_FOUND for 404 and HTTP_STATUS otherwise.
func (e *StatusError) Code() errs.Code {
	if e.StatusCode == http.StatusNotFound {
		return errs.ErrCodeNotFound
	}
	return errs.ErrCodeHTTPStatus
}

// NewHTTPClient creates an HTTP client with a standard timeout that follows
// at most five redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: httpTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// EncodeList serializes values as a JSON array, the form registry list
// parameters such as ids=["a","b"] expect. A nil slice encodes as [].
func EncodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

func shorten(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	return string(body[:maxLoggedBody]) + "...(truncated)"
}
