// Package cliui holds the terminal presentation of the council CLI: step
// indicators, markdown rendering and the stage by stage answer output.
package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	HashStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	RoleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	PreviewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	HeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerInterval = 80 * time.Millisecond

// Step runs fn and reports it on w as a ✓ or ✗ line with the elapsed time.
// On a terminal a spinner animates in place of the mark until fn returns.
func Step(w io.Writer, msg string, fn func() error) error {
	var stop func()
	if IsTerminal(w) {
		stop = spin(w, msg)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if stop != nil {
		stop()
	}
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	return err
}

// spin animates a spinner on w until the returned func is called. The
// func returns once the last frame has been written.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour,
// wrapping at width columns. On failure the raw content is returned with the
// error.
func RenderMarkdown(content string, width uint) (string, error) {
	if width == 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(int(width)),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
