package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/modman/pkg/download"
)

const (
	barWidth        = 24
	refreshInterval = 100 * time.Millisecond
)

var (
	barFilledStyle = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(colorDim)
	nameStyle      = lipgloss.NewStyle().Foreground(colorWhite)
)

// =============================================================================
// transferBoard - shared per-task state
// =============================================================================

// transferState is the displayed state of one task.
type transferState struct {
	Task    download.Task
	Bytes   int64
	Started bool
	Done    bool
	Err     error
}

// transferBoard collects progress from download workers. The model polls it
// on a timer so workers never block on the UI.
type transferBoard struct {
	mu    sync.Mutex
	order []string
	tasks map[string]*transferState
}

func newTransferBoard(tasks []download.Task) *transferBoard {
	b := &transferBoard{tasks: make(map[string]*transferState, len(tasks))}
	for _, t := range tasks {
		b.order = append(b.order, t.ID)
		b.tasks[t.ID] = &transferState{Task: t}
	}
	return b
}

func (b *transferBoard) Start(id string) {
	b.update(id, func(s *transferState) { s.Started = true })
}

func (b *transferBoard) Advance(id string, n int64) {
	b.update(id, func(s *transferState) { s.Bytes += n })
}

func (b *transferBoard) Done(id string, err error) {
	b.update(id, func(s *transferState) { s.Done, s.Err = true, err })
}

func (b *transferBoard) update(id string, fn func(*transferState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.tasks[id]; ok {
		fn(s)
	}
}

// snapshot copies the task states in scheduling order.
func (b *transferBoard) snapshot() []transferState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]transferState, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.tasks[id])
	}
	return out
}

// =============================================================================
// TransferModel - bubbletea view of a download batch
// =============================================================================

type tickMsg time.Time

type finishMsg struct{}

// TransferModel is the bubbletea model rendering concurrent transfers.
type TransferModel struct {
	board    *transferBoard
	rows     []transferState
	finished bool
}

func newTransferModel(board *transferBoard) TransferModel {
	return TransferModel{board: board, rows: board.snapshot()}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m TransferModel) Init() tea.Cmd {
	return tick()
}

func (m TransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		m.rows = m.board.snapshot()
		return m, tick()
	case finishMsg:
		m.rows = m.board.snapshot()
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m TransferModel) View() string {
	var b strings.Builder

	done, total := 0, len(m.rows)
	for _, r := range m.rows {
		if r.Done {
			done++
		}
	}
	b.WriteString(StyleTitle.Render("Downloading"))
	b.WriteString(StyleDim.Render(fmt.Sprintf(" %d/%d", done, total)))
	b.WriteString("\n")

	nameWidth := 0
	for _, r := range m.rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.Task.Filename))
	}

	for _, r := range m.rows {
		b.WriteString(transferIcon(r))
		b.WriteString(" ")
		b.WriteString(nameStyle.Width(nameWidth).Render(r.Task.Filename))
		b.WriteString(" ")
		b.WriteString(renderBar(r.Bytes, r.Task.Size, r.Done && r.Err == nil))
		b.WriteString(" ")
		b.WriteString(StyleDim.Render(transferDetail(r)))
		b.WriteString("\n")
	}
	return b.String()
}

func transferIcon(r transferState) string {
	switch {
	case r.Done && r.Err != nil:
		return styleIconError.Render(iconError)
	case r.Done:
		return styleIconSuccess.Render(iconSuccess)
	case r.Started:
		return styleIconSpinner.Render(iconArrow)
	}
	return StyleDim.Render(iconPending)
}

func transferDetail(r transferState) string {
	if r.Err != nil {
		return "failed"
	}
	if r.Task.Size > 0 {
		return fmt.Sprintf("%s / %s", formatBytes(r.Bytes), formatBytes(r.Task.Size))
	}
	return formatBytes(r.Bytes)
}

// renderBar draws a fixed-width bar. An unknown size shows an empty bar
// until the transfer completes.
func renderBar(n, size int64, complete bool) string {
	filled := 0
	switch {
	case complete:
		filled = barWidth
	case size > 0:
		filled = int(min(n, size) * barWidth / size)
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// =============================================================================
// Reporter
// =============================================================================

// teaReporter drives a bubbletea program from download worker callbacks.
type teaReporter struct {
	*transferBoard
	program *tea.Program
	exited  chan struct{}
	once    sync.Once
	err     error
}

// progressFunc returns a download.ProgressFunc that renders each batch to
// out until the batch's reporter is closed.
func progressFunc(ctx context.Context, out io.Writer) download.ProgressFunc {
	return func(tasks []download.Task) download.Reporter {
		board := newTransferBoard(tasks)
		r := &teaReporter{
			transferBoard: board,
			program: tea.NewProgram(newTransferModel(board),
				tea.WithContext(ctx),
				tea.WithOutput(out),
				tea.WithInput(nil),
				tea.WithoutSignalHandler(),
			),
			exited: make(chan struct{}),
		}
		go func() {
			defer close(r.exited)
			if _, err := r.program.Run(); err != nil && ctx.Err() == nil {
				r.err = err
			}
		}()
		return r
	}
}

// Close renders the final state and waits for the program to exit.
func (r *teaReporter) Close() error {
	r.once.Do(func() {
		r.program.Send(finishMsg{})
		<-r.exited
	})
	return r.err
}
