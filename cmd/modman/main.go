package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/modman/internal/cli"
	errs "github.com/matzehuels/modman/pkg/errors"
)

// Exit codes.
const (
	exitError       = 1
	exitConnection  = 2
	exitIntegrity   = 3
	exitInterrupted = 130 // Standard shell convention for SIGINT
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
		code := exitCode(err)
		if code != exitInterrupted {
			fmt.Fprintln(os.Stderr, "Error:", errs.UserMessage(err))
		}
		cancel()
		os.Exit(code)
	}
}

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeConnection:
		return exitConnection
	case errs.ErrCodeIntegrity:
		return exitIntegrity
	}
	return exitError
}
