// Package ui provides reusable terminal components for the ledger CLI:
// spinners, tables, badges and banners.
package ui

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AshkanYarmoradi/go-ledger/cli/styles"
)

// SpinnerType defines different spinner animations
type SpinnerType int

const (
	SpinnerDots SpinnerType = iota
	SpinnerLine
	SpinnerMinidots
	SpinnerPulse
	SpinnerMeter
)

// SpinnerModel is a spinner component with a message
type SpinnerModel struct {
	spinner  spinner.Model
	message  string
	quitting bool
	done     bool
	result   string
	err      error
}

// NewSpinner creates a new spinner with the given message
func NewSpinner(message string, spinnerType SpinnerType) SpinnerModel {
	s := spinner.New()

	switch spinnerType {
	case SpinnerLine:
		s.Spinner = spinner.Line
	case SpinnerMinidots:
		s.Spinner = spinner.MiniDot
	case SpinnerPulse:
		s.Spinner = spinner.Pulse
	case SpinnerMeter:
		s.Spinner = spinner.Meter
	default:
		s.Spinner = spinner.Dot
	}

	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return SpinnerModel{
		spinner: s,
		message: message,
	}
}

func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case SpinnerDoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m SpinnerModel) View() string {
	if m.done {
		if m.err != nil {
			return styles.FormatError(m.result) + "\n"
		}
		return styles.FormatSuccess(m.result) + "\n"
	}

	if m.quitting {
		return styles.FormatWarning("Cancelled") + "\n"
	}

	return m.spinner.View() + " " + styles.Normal.Render(m.message) + "\n"
}

// SpinnerDoneMsg signals that the spinner operation is complete
type SpinnerDoneMsg struct {
	Result string
	Err    error
}

// RunSpinner shows a spinner on out while fn runs and replaces it with
// success (done) or the error. It returns fn's error.
func RunSpinner(ctx context.Context, out io.Writer, message, done string, fn func(ctx context.Context) error) error {
	p := tea.NewProgram(NewSpinner(message, SpinnerDots),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)

	errc := make(chan error, 1)
	go func() {
		err := fn(ctx)
		errc <- err

		msg := SpinnerDoneMsg{Result: done, Err: err}
		if err != nil {
			msg.Result = err.Error()
		}
		p.Send(msg)
	}()

	// A rendering failure only loses the animation; fn's outcome is what counts.
	_, _ = p.Run()
	return <-errc
}

// Table renders a bordered table
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with headers
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		widths:  widths,
	}
}

// AddRow adds a row to the table. Missing cells are left blank and extra
// values are dropped.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := 0; i < len(t.headers); i++ {
		if i < len(values) {
			row[i] = values[i]
			if w := lipgloss.Width(values[i]); w > t.widths[i] {
				t.widths[i] = w
			}
		}
	}
	t.rows = append(t.rows, row)
}

// Render returns the formatted table string
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Primary).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().
		Foreground(styles.Text).
		Padding(0, 1)

	borderStyle := lipgloss.NewStyle().
		Foreground(styles.Border)

	rule := func(left, mid, right string) {
		sb.WriteString(borderStyle.Render(left))
		for i, w := range t.widths {
			sb.WriteString(borderStyle.Render(strings.Repeat("─", w+2)))
			if i < len(t.widths)-1 {
				sb.WriteString(borderStyle.Render(mid))
			}
		}
		sb.WriteString(borderStyle.Render(right))
	}

	line := func(cells []string, style lipgloss.Style) {
		sb.WriteString(borderStyle.Render("│"))
		for i, cell := range cells {
			sb.WriteString(style.Width(t.widths[i] + 2).Render(cell))
			sb.WriteString(borderStyle.Render("│"))
		}
		sb.WriteString("\n")
	}

	rule("┌", "┬", "┐")
	sb.WriteString("\n")
	line(t.headers, headerStyle)
	rule("├", "┼", "┤")
	sb.WriteString("\n")
	for _, row := range t.rows {
		line(row, cellStyle)
	}
	rule("└", "┴", "┘")

	return sb.String()
}

// StatusBadge returns a styled status badge
func StatusBadge(status string) string {
	badge := lipgloss.NewStyle().Padding(0, 1)

	switch strings.ToLower(status) {
	case "ok", "healthy", "applied", "open", "credit":
		return badge.Background(styles.Success).Foreground(lipgloss.Color("#000000")).Render(status)
	case "pending", "duplicate", "skipped":
		return badge.Background(styles.Warning).Foreground(lipgloss.Color("#000000")).Render(status)
	case "error", "failed", "overdrawn", "debit":
		return badge.Background(styles.Error).Foreground(lipgloss.Color("#FFFFFF")).Render(status)
	default:
		return badge.Background(styles.Surface).Foreground(styles.Text).Render(status)
	}
}

// Banner renders the ledger banner
func Banner() string {
	banner := `
    ┌──────────────────────────────────────┐
    │   _          _                       │
    │  | | ___  __| | __ _  ___ _ __       │
    │  | |/ _ \/ _' |/ _' |/ _ \ '__|      │
    │  | |  __/ (_| | (_| |  __/ |         │
    │  |_|\___|\__,_|\__, |\___|_|         │
    │                |___/                 │
    │     Event-sourced banking ledger     │
    └──────────────────────────────────────┘
`
	return lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Render(banner)
}

// SimpleBanner returns a one-line banner
func SimpleBanner() string {
	return styles.IconLedger + " " + lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Primary).
		Render("ledger") +
		" " +
		styles.Muted.Render("- Event-sourced banking ledger")
}

// Divider returns a horizontal divider line
func Divider(width int) string {
	return styles.Dim.Render(strings.Repeat("─", width))
}

// ListItems formats a list of items with bullets
func ListItems(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(styles.ListItemBullet.Render(styles.IconDot))
		sb.WriteString(styles.ListItem.Render(item))
		sb.WriteString("\n")
	}
	return sb.String()
}
