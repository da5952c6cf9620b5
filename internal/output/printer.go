// Package output formats aioniser's terminal output.
//
// [Printer] renders trigger progress, cycle listings and persisted state.
// Styling uses lipgloss and is applied only when writing to a terminal, so
// output captured by tests or piped into other tools stays plain text.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// CycleSummary describes a configured cycle for [Printer.CycleList].
type CycleSummary struct {
	Name         string
	Steps        int
	Reset        bool
	ResetTimeout time.Duration
}

// CycleStatus describes a cycle's persisted state for [Printer.StatusList].
type CycleStatus struct {
	Name        string
	Steps       int // zero when the cycle is no longer configured
	Triggered   bool
	LastStep    int
	LastStepped time.Time
}

// Printer writes formatted output.
type Printer struct {
	out    io.Writer
	styled bool
}

// NewPrinterWithWriter creates a [Printer] that writes to w. Styling is
// enabled only when w is a terminal.
func NewPrinterWithWriter(w io.Writer) *Printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{out: w, styled: styled}
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// StepStart announces the step about to run.
func (p *Printer) StepStart(cycleName string, index, total int, dryRun bool) {
	label := fmt.Sprintf("%s [%d/%d]", cycleName, index+1, total)
	if dryRun {
		label += " (dry run)"
	}
	fmt.Fprintln(p.out, p.render(headerStyle, label))
}

// Command echoes a command before it runs.
func (p *Printer) Command(cmd string) {
	fmt.Fprintln(p.out, p.render(commandStyle, "$ "+cmd))
}

// Success prints a success message.
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, p.render(successStyle, "✓ "+msg))
}

// Error prints an error message.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.out, p.render(errorStyle, "✗ "+msg))
}

// CycleList prints the configured cycles.
func (p *Printer) CycleList(cycles []CycleSummary) {
	if len(cycles) == 0 {
		fmt.Fprintln(p.out, p.render(mutedStyle, "no cycles configured"))
		return
	}
	width := nameWidth(len(cycles), func(i int) string { return cycles[i].Name })
	for _, c := range cycles {
		line := fmt.Sprintf("%-*s  %d step%s", width, c.Name, c.Steps, plural(c.Steps))
		if c.Reset {
			line += fmt.Sprintf("  reset after %s", c.ResetTimeout)
		}
		fmt.Fprintln(p.out, line)
	}
}

// StatusList prints the persisted state of cycles.
func (p *Printer) StatusList(statuses []CycleStatus, now time.Time) {
	if len(statuses) == 0 {
		fmt.Fprintln(p.out, p.render(mutedStyle, "no cycles"))
		return
	}
	width := nameWidth(len(statuses), func(i int) string { return statuses[i].Name })
	for _, s := range statuses {
		var line string
		switch {
		case !s.Triggered:
			line = fmt.Sprintf("%-*s  %s", width, s.Name, p.render(mutedStyle, "never triggered"))
		case s.Steps == 0:
			line = fmt.Sprintf("%-*s  last step %d, %s ago %s", width, s.Name, s.LastStep+1,
				now.Sub(s.LastStepped).Round(time.Millisecond), p.render(mutedStyle, "(not configured)"))
		default:
			line = fmt.Sprintf("%-*s  last step %d/%d, %s ago", width, s.Name, s.LastStep+1, s.Steps,
				now.Sub(s.LastStepped).Round(time.Millisecond))
		}
		fmt.Fprintln(p.out, line)
	}
}

// Raw writes pre-formatted text unchanged.
func (p *Printer) Raw(text string) {
	fmt.Fprint(p.out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(p.out)
	}
}

func nameWidth(n int, name func(int) string) int {
	width := 0
	for i := 0; i < n; i++ {
		if l := len(name(i)); l > width {
			width = l
		}
	}
	return width
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
