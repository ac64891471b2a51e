// Package console prints the user-facing progress and result lines, apart
// from the structured log.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
)

// Mode selects how much the printer writes.
type Mode int

const (
	// Normal prints results and the final summary.
	Normal Mode = iota
	// Silent prints errors only.
	Silent
	// Progress prints a running item counter instead of per-item lines.
	Progress
)

// Printer writes console output in the selected mode.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Mode  Mode
	Color bool

	progressShown bool
}

// New returns a printer on stdout/stderr. Colour is disabled when color is
// false or NO_COLOR is set.
func New(mode Mode, useColor bool) *Printer {
	if os.Getenv("NO_COLOR") != "" {
		useColor = false
	}
	return &Printer{Out: os.Stdout, Err: os.Stderr, Mode: mode, Color: useColor}
}

func (p *Printer) paint(c color.Color, s string) string {
	if !p.Color {
		return s
	}
	return c.Sprint(s)
}

// Progress updates the running counter. It only prints in Progress mode.
func (p *Printer) Progress(done, total int, item string) {
	if p.Mode != Progress {
		return
	}
	pct := 0
	if total > 0 {
		pct = done * 100 / total
	}
	line := fmt.Sprintf("[%d/%d %3d%%] %s", done, total, pct, item)
	fmt.Fprintf(p.Err, "\r\033[K%s", p.paint(color.Cyan, line))
	p.progressShown = true
	if done == total {
		p.endProgress()
	}
}

func (p *Printer) endProgress() {
	if p.progressShown {
		fmt.Fprintln(p.Err)
		p.progressShown = false
	}
}

// Summary prints the rendered summary. Failure lines are highlighted.
func (p *Printer) Summary(text string, failed bool) {
	if p.Mode == Silent && !failed {
		return
	}
	p.endProgress()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "==="):
			line = p.paint(color.Bold, line)
		case strings.HasPrefix(strings.TrimSpace(line), "failed items:"):
			line = p.paint(color.Red, line)
		}
		fmt.Fprintln(p.Out, line)
	}
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	if p.Mode == Silent {
		return
	}
	p.endProgress()
	fmt.Fprintln(p.Out, p.paint(color.Green, "✓ "+fmt.Sprintf(format, args...)))
}

// Error prints an error line in every mode.
func (p *Printer) Error(format string, args ...any) {
	p.endProgress()
	fmt.Fprintln(p.Err, p.paint(color.Red, "✗ "+fmt.Sprintf(format, args...)))
}
