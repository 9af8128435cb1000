package buildinfo

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	got := UserAgent()
	want := "modman/v1.2.3 (https://github.com/matzehuels/modman)"
	if got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.Contains(tmpl, Version) {
		t.Errorf("Template() = %q, should contain version %q", tmpl, Version)
	}
	if !strings.HasPrefix(tmpl, "{{.Name}}") {
		t.Errorf("Template() = %q, should start with name placeholder", tmpl)
	}
}
