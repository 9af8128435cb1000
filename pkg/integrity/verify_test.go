package integrity

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "github.com/matzehuels/modman/pkg/errors"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mod.jar")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDigest(t *testing.T) {
	// Larger than one chunk to exercise the streaming path.
	content := []byte(strings.Repeat("modman", 2000))
	path := writeFile(t, content)

	s1 := sha1.Sum(content)
	s256 := sha256.Sum256(content)
	s512 := sha512.Sum512(content)

	tests := []struct {
		algo Algorithm
		want string
	}{
		{SHA1, hex.EncodeToString(s1[:])},
		{SHA256, hex.EncodeToString(s256[:])},
		{SHA512, hex.EncodeToString(s512[:])},
	}
	for _, tt := range tests {
		t.Run(string(tt.algo), func(t *testing.T) {
			got, err := Digest(path, tt.algo)
			if err != nil {
				t.Fatalf("Digest: %v", err)
			}
			if got != tt.want {
				t.Errorf("Digest = %s, want %s", got, tt.want)
			}
			if len(got) != tt.algo.Size()*2 {
				t.Errorf("digest length %d, want %d", len(got), tt.algo.Size()*2)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	content := []byte("hello")
	path := writeFile(t, content)
	sum := sha1.Sum(content)
	good := hex.EncodeToString(sum[:])

	ok, err := Verify(path, SHA1, good)
	if err != nil || !ok {
		t.Errorf("Verify(correct) = %v, %v", ok, err)
	}

	ok, err = Verify(path, SHA1, strings.ToUpper(good))
	if err != nil || !ok {
		t.Errorf("Verify(uppercase) = %v, %v", ok, err)
	}

	ok, err = Verify(path, SHA1, strings.Repeat("0", 40))
	if err != nil || ok {
		t.Errorf("Verify(wrong) = %v, %v", ok, err)
	}

	if _, err := Verify(filepath.Join(t.TempDir(), "missing.jar"), SHA1, good); err == nil {
		t.Error("Verify on missing file should fail")
	}
}

func TestCheck(t *testing.T) {
	path := writeFile(t, []byte("payload"))

	err := Check(path, SHA256, strings.Repeat("a", 64))
	if err == nil {
		t.Fatal("Check should fail on mismatch")
	}
	var m *MismatchError
	if !errors.As(err, &m) {
		t.Fatalf("error type %T, want *MismatchError", err)
	}
	if m.Path != path || m.Algorithm != SHA256 {
		t.Errorf("MismatchError = %+v", m)
	}
	if !errors.Is(err, ErrMismatch) {
		t.Error("errors.Is(err, ErrMismatch) should be true")
	}
	if !errs.Is(err, errs.ErrCodeIntegrity) {
		t.Error("mismatch should carry INTEGRITY_MISMATCH code")
	}

	sum := sha256.Sum256([]byte("payload"))
	if err := Check(path, SHA256, hex.EncodeToString(sum[:])); err != nil {
		t.Errorf("Check(correct) = %v", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"sha1", SHA1, false},
		{"SHA256", SHA256, false},
		{" sha512 ", SHA512, false},
		{"md5", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAlgorithm(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	path := writeFile(t, []byte("x"))
	if _, err := Digest(path, Algorithm("crc32")); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Digest(crc32) error = %v", err)
	}
}
