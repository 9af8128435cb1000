package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Spinner provides a simple progress indicator with context cancellation support.
type Spinner struct {
	out     io.Writer
	message string
	width   int
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string
	mu      sync.Mutex
}

// newSpinner creates a new spinner with the given message.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that will stop when the context is cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     os.Stderr,
		message: message,
		width:   len(message),
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				frame := s.frames[i%len(s.frames)]
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.width = max(s.width, len(message))
}

// Stop stops the spinner and clears the line.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

// =============================================================================
// Rate limit cooldown
// =============================================================================

// cooldown shows a countdown spinner while the registry client waits for the
// rate limit window to reset. It implements httputil.WaitObserver.
type cooldown struct {
	logger *log.Logger
	out    io.Writer

	mu      sync.Mutex
	spinner *Spinner
}

func newCooldown(logger *log.Logger) *cooldown {
	return &cooldown{logger: logger, out: os.Stderr}
}

func (c *cooldown) WaitStarted(total time.Duration) {
	c.logger.Warn("rate limit reached, waiting for reset", "wait", total)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.spinner = newSpinner(cooldownMessage(total))
	c.spinner.out = c.out
	c.spinner.Start()
}

func (c *cooldown) WaitTick(elapsed, total time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spinner != nil {
		c.spinner.SetMessage(cooldownMessage(total - elapsed))
	}
}

func (c *cooldown) WaitFinished() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spinner != nil {
		c.spinner.Stop()
		c.spinner = nil
	}
}

func cooldownMessage(left time.Duration) string {
	return fmt.Sprintf("Rate limited, resuming in %s", left.Round(time.Second))
}
