// Package integrity verifies downloaded files against expected digests.
//
// Files are hashed in fixed 4096-byte chunks so memory use does not grow
// with file size. Digests are compared as lowercase hex strings.
//
//	ok, err := integrity.Verify("sodium-0.5.8.jar", integrity.SHA1, "3b1e...")
//	if err := integrity.Check(path, integrity.SHA1, want); err != nil {
//	    var m *integrity.MismatchError
//	    if errors.As(err, &m) { ... }
//	}
package integrity

import (
	"crypto/sha1" //nolint:gosec // registry digests are sha1
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	errs "github.com/matzehuels/modman/pkg/errors"
)

// ChunkSize is the read buffer size used when hashing files.
const ChunkSize = 4096

// Algorithm names a supported digest.
type Algorithm string

// Supported algorithms.
const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// ErrMismatch is the sentinel wrapped by every [MismatchError].
var ErrMismatch = errors.New("integrity mismatch")

// MismatchError reports a file whose digest differs from the expected value.
type MismatchError struct {
	Path      string
	Algorithm Algorithm
	Expected  string
	Got       string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s digest mismatch for %s: expected %s, got %s", e.Algorithm, e.Path, e.Expected, e.Got)
}

// Unwrap returns ErrMismatch so callers can use errors.Is.
func (e *MismatchError) Unwrap() error { return ErrMismatch }

// Code returns the error code for this error type.
func (e *MismatchError) Code() errs.Code { return errs.ErrCodeIntegrity }

// ParseAlgorithm converts a case-insensitive name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case SHA1, SHA256, SHA512:
		return a, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidInput, "unsupported hash algorithm %q", name)
	}
}

// Size returns the digest length in bytes.
func (a Algorithm) Size() int {
	switch a {
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case SHA512:
		return sha512.Size
	}
	return 0
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	}
	return nil, errs.New(errs.ErrCodeInvalidInput, "unsupported hash algorithm %q", string(a))
}

// DigestReader hashes r with the given algorithm and returns the lowercase
// hex digest.
func DigestReader(r io.Reader, algo Algorithm) (string, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest hashes the file at path.
func Digest(path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return DigestReader(f, algo)
}

// Verify reports whether the digest of the file at path equals expectedHex.
// The comparison is against the lowercase form of expectedHex.
func Verify(path string, algo Algorithm, expectedHex string) (bool, error) {
	got, err := Digest(path, algo)
	if err != nil {
		return false, err
	}
	return got == strings.ToLower(expectedHex), nil
}

// Check is like Verify but returns a *MismatchError when the digests differ.
func Check(path string, algo Algorithm, expectedHex string) error {
	got, err := Digest(path, algo)
	if err != nil {
		return err
	}
	want := strings.ToLower(expectedHex)
	if got != want {
		return &MismatchError{Path: path, Algorithm: algo, Expected: want, Got: got}
	}
	return nil
}

// onlyReader hides WriterTo/ReaderFrom so io.CopyBuffer uses the fixed buffer.
type onlyReader struct{ io.Reader }
