// Package cliui provides reusable terminal UI helpers (spinners, status
// badges, truncation, prompts, markdown rendering) for meh CLI commands.
package cliui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/papercomputeco/meh/pkg/fact"
)

const (
	// DefaultWidth is used when the output is not a terminal.
	DefaultWidth = 100

	ellipsis = "…"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	PathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	IDStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	statusStyles = map[string]lipgloss.Style{
		"active":         lipgloss.NewStyle().Foreground(lipgloss.Color("70")),
		"pending_review": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"superseded":     lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
		"deprecated":     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		"archived":       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Go(func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			fmt.Fprint(w, Render(w, fmt.Sprintf("\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)))

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	})

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	wg.Wait()

	fmt.Fprint(w, Render(w, fmt.Sprintf("\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)))

	return err
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

// Status renders a fact status in its color.
func Status(status string) string {
	style, ok := statusStyles[status]
	if !ok {
		return status
	}
	return style.Render(status)
}

// Trust renders a 0 to 1 trust score as a percentage.
func Trust(score float64) string {
	return StepStyle.Render(fmt.Sprintf("%3.0f%%", score*100))
}

// Truncate shortens s to width terminal cells, keeping escape sequences
// intact and marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, ellipsis)
}

// OneLine collapses whitespace runs, including newlines, to single spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ColorEnabled reports whether styled output should be written to w. It
// honours NO_COLOR and is false for anything that is not a terminal.
func ColorEnabled(w io.Writer) bool {
	out := termenv.NewOutput(w)
	return !out.EnvNoColor() && out.Profile != termenv.Ascii
}

// Render strips styling from s when w cannot display it.
func Render(w io.Writer, s string) string {
	if ColorEnabled(w) {
		return s
	}
	return ansi.Strip(s)
}

// Fprintln writes a styled line to w, stripped when w has no color support.
func Fprintln(w io.Writer, a ...any) {
	fmt.Fprintln(w, Render(w, fmt.Sprint(a...)))
}

// Width is w's terminal width, or DefaultWidth when w is not a terminal.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Confirm asks a yes/no question on out and reads the answer from in.
// Anything but "y" or "yes" is a no.
func Confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
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

// FactLine renders f on one line: short id, status, trust, path and title,
// cut to width cells.
func FactLine(f *fact.Fact, width int) string {
	line := fmt.Sprintf("%s  %s  %s  %s  %s",
		IDStyle.Render(f.MehID()),
		Status(string(f.Status)),
		Trust(f.TrustScore),
		PathStyle.Render(f.Path),
		OneLine(f.Title),
	)
	return Truncate(line, width)
}

// FactHeader renders the metadata block shown above a fact's content.
func FactHeader(f *fact.Fact) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", TitleStyle.Render(f.Title))
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("id:     "), IDStyle.Render(f.MehID()+"  "+f.ID))
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("path:   "), PathStyle.Render(f.Path))
	fmt.Fprintf(&b, "%s %s  %s\n", KeyStyle.Render("status: "), Status(string(f.Status)), DimStyle.Render(string(f.Type)))
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("trust:  "), Trust(f.TrustScore))

	author := string(f.AuthorType)
	if f.AuthorID != "" {
		author += " (" + f.AuthorID + ")"
	}
	fmt.Fprintf(&b, "%s %s  %s\n", KeyStyle.Render("author: "), ValueStyle.Render(author), DimStyle.Render(string(f.Source)))
	fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("created:"), ValueStyle.Render(f.CreatedAt.Local().Format(time.DateTime)))

	if len(f.Tags) > 0 {
		fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("tags:   "), ValueStyle.Render(strings.Join(f.Tags, ", ")))
	}
	if f.Supersedes != nil {
		fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("replaces:"), IDStyle.Render(fact.MehIDPrefix+fact.ShortID(*f.Supersedes)))
	}
	for _, id := range f.Extends {
		fmt.Fprintf(&b, "%s %s\n", KeyStyle.Render("extends:"), IDStyle.Render(fact.MehIDPrefix+fact.ShortID(id)))
	}

	return b.String()
}
