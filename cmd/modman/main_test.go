package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/matzehuels/modman/pkg/download"
	errs "github.com/matzehuels/modman/pkg/errors"
	"github.com/matzehuels/modman/pkg/integrations"
	"github.com/matzehuels/modman/pkg/integrity"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), exitError},
		{"cancelled", fmt.Errorf("fetch: %w", context.Canceled), exitInterrupted},
		{"connection", &integrations.ConnectionError{URL: "https://api.modrinth.com/v2/projects", Attempts: 5, Err: errors.New("refused")}, exitConnection},
		{"integrity", &download.IntegrityError{File: download.File{Filename: "a.jar"}, Err: integrity.ErrMismatch}, exitIntegrity},
		{"rate limited", &errs.RateLimitedError{RetryAfter: 30, Attempts: 11}, exitError},
		{"not found", errs.New(errs.ErrCodeNotFound, "no files to download"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
