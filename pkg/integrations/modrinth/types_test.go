package modrinth

import (
	"testing"

	"github.com/matzehuels/modman/pkg/download"
)

func TestProjectRelated(t *testing.T) {
	p := Project{ID: "AANobbMI", Slug: "sodium", Title: "Sodium"}

	tests := []struct {
		target string
		want   bool
	}{
		{"AANobbMI", true},
		{"aanobbmi", true},
		{" sodium ", true},
		{"SODIUM", true},
		{"lithium", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.Related(tt.target); got != tt.want {
			t.Errorf("Related(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestPrimaryFile(t *testing.T) {
	a := VersionFile{Filename: "a.jar"}
	b := VersionFile{Filename: "b.jar", Primary: true}
	c := VersionFile{Filename: "c.jar", Primary: true}

	tests := []struct {
		name   string
		files  []VersionFile
		want   string
		wantOK bool
	}{
		{"empty", nil, "", false},
		{"no primary falls back to first", []VersionFile{a}, "a.jar", true},
		{"first primary wins", []VersionFile{a, b, c}, "b.jar", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PrimaryFile(tt.files...)
			if ok != tt.wantOK || got.Filename != tt.want {
				t.Errorf("PrimaryFile() = %q, %v; want %q, %v", got.Filename, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestVersionFileDescriptor(t *testing.T) {
	f := VersionFile{
		Filename: "sodium.jar",
		URL:      "https://cdn.example/sodium.jar",
		Size:     42,
		Primary:  true,
		Hashes:   FileHashes{SHA1: "ABCDEF", SHA512: "0123"},
	}
	want := download.File{
		Filename: "sodium.jar",
		URL:      "https://cdn.example/sodium.jar",
		Size:     42,
		Primary:  true,
		Hashes:   download.Hashes{SHA1: "abcdef", SHA512: "0123"},
	}
	if got := f.Descriptor(); got != want {
		t.Errorf("Descriptor() = %+v, want %+v", got, want)
	}
}

func TestValidate(t *testing.T) {
	if err := (&Project{ID: "x", Slug: "abc"}).validate(); err != nil {
		t.Errorf("valid project: %v", err)
	}
	if err := (&Project{ID: "x", Slug: string(make([]byte, 65))}).validate(); err == nil {
		t.Error("slug longer than 64 should fail")
	}
	if err := (&Version{ID: "v", ProjectID: "p"}).validate(); err != nil {
		t.Errorf("version without files: %v", err)
	}
	if err := (&Version{ID: "v"}).validate(); err == nil {
		t.Error("version without project_id should fail")
	}
}
