package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/logrusorgru/aurora"
	runewidth "github.com/mattn/go-runewidth"
	indent "github.com/openconfig/goyang/pkg/indent"
	"golang.org/x/term"
)

const (
	indentUnit   = "  "
	sectionWidth = 50
	minBars      = 6
)

var borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

// TerminalUI writes decoded calls and logs to a terminal. Every Indent
// level adds two spaces.
type TerminalUI struct {
	level int
	out   io.Writer
	au    aurora.Aurora
	// spin is where the spinner draws, nil disables it
	spin io.Writer
}

// NewTerminalUI prints to stdout and spins on stderr, so redirecting
// stdout keeps the spinner frames out of the file. Colours follow
// whether stdout is a terminal.
func NewTerminalUI() *TerminalUI {
	u := NewTerminalUIWithWriter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
	u.spin = nil
	if term.IsTerminal(int(os.Stderr.Fd())) {
		u.spin = os.Stderr
	}
	return u
}

// NewTerminalUIWithWriter prints to out. colors also enables the spinner
// on out.
func NewTerminalUIWithWriter(out io.Writer, colors bool) *TerminalUI {
	u := &TerminalUI{out: out, au: aurora.NewAurora(colors)}
	if colors {
		u.spin = out
	}
	return u
}

func (u *TerminalUI) prefix() string {
	return strings.Repeat(indentUnit, u.level)
}

func (u *TerminalUI) println(line string) {
	fmt.Fprintf(u.out, "%s%s\n", u.prefix(), line)
}

func (u *TerminalUI) paint(severity Severity, text string) string {
	switch severity {
	case SeveritySuccess:
		return u.au.Green(text).String()
	case SeverityWarn:
		return u.au.Yellow(text).String()
	case SeverityError:
		return u.au.Red(text).String()
	case SeverityCritical:
		return u.au.Bold(text).String()
	}
	return text
}

func (u *TerminalUI) Style(t StyledText) string {
	return u.paint(t.Severity, t.Text)
}

func (u *TerminalUI) message(severity Severity, format string, args []any) {
	u.println(u.paint(severity, fmt.Sprintf(format, args...)))
}

func (u *TerminalUI) Info(format string, args ...any) {
	u.message(SeverityInfo, format, args)
}

func (u *TerminalUI) Success(format string, args ...any) {
	u.message(SeveritySuccess, format, args)
}

func (u *TerminalUI) Warn(format string, args ...any) {
	u.message(SeverityWarn, format, args)
}

func (u *TerminalUI) Error(format string, args ...any) {
	u.message(SeverityError, format, args)
}

func (u *TerminalUI) Critical(format string, args ...any) {
	u.message(SeverityCritical, format, args)
}

// Section centres title in a rule of '=' between blank lines.
func (u *TerminalUI) Section(title string) {
	title = " " + title + " "
	bars := max(sectionWidth-runewidth.StringWidth(title), minBars)
	fmt.Fprintf(u.out, "\n%s%s%s%s\n\n",
		u.prefix(),
		strings.Repeat("=", bars/2),
		title,
		strings.Repeat("=", bars-bars/2),
	)
}

func (u *TerminalUI) KeyValue(rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, visibleWidth(r[0]))
	}
	for _, r := range rows {
		u.println(padRight(r[0], width) + "  " + r[1])
	}
}

func (u *TerminalUI) Table(headers []string, rows [][]string) {
	u.TableWithGroups(headers, [][][]string{rows})
}

// TableWithGroups draws one bordered table with a divider between groups,
// e.g. one group per event log. Columns align across groups.
func (u *TerminalUI) TableWithGroups(headers []string, groups [][][]string) {
	if len(groups) == 0 {
		return
	}
	g := newGrid(headers, groups)
	for _, line := range g.lines() {
		u.println(line)
	}
}

// Spinner shows msg until the returned func is called.
func (u *TerminalUI) Spinner(msg string) func() {
	if u.spin == nil {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(u.spin))
	s.Suffix = " " + msg
	s.Start()
	return func() {
		s.Stop()
		// the spinner only returns the carriage
		fmt.Fprint(u.spin, "\n")
	}
}

func (u *TerminalUI) Indent() UI {
	child := *u
	child.level++
	return &child
}

// Writer indents everything written to it to the current level.
func (u *TerminalUI) Writer() io.Writer {
	if u.level == 0 {
		return u.out
	}
	return indent.NewWriter(u.out, u.prefix())
}

// grid lays out a table whose cells may hold colour codes and wide runes.
type grid struct {
	headers []string
	groups  [][][]string
	widths  []int
}

func newGrid(headers []string, groups [][][]string) *grid {
	cols := len(headers)
	if cols == 0 {
		for _, group := range groups {
			for _, row := range group {
				cols = max(cols, len(row))
			}
		}
	}
	g := &grid{headers: headers, groups: groups, widths: make([]int, cols)}
	g.measure(headers)
	for _, group := range groups {
		for _, row := range group {
			g.measure(row)
		}
	}
	return g
}

func (g *grid) measure(row []string) {
	for i := 0; i < len(g.widths) && i < len(row); i++ {
		g.widths[i] = max(g.widths[i], visibleWidth(row[i]))
	}
}

func (g *grid) rule(left, cross, right string) string {
	dashes := make([]string, len(g.widths))
	for i, w := range g.widths {
		dashes[i] = strings.Repeat("─", w+2)
	}
	return borderStyle.Render(left + strings.Join(dashes, cross) + right)
}

func (g *grid) row(cells []string) string {
	bar := borderStyle.Render("│")
	parts := make([]string, len(g.widths))
	for i, w := range g.widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = " " + padRight(cell, w) + " "
	}
	return bar + strings.Join(parts, bar) + bar
}

func (g *grid) lines() []string {
	divider := g.rule("├", "┼", "┤")
	lines := []string{g.rule("┌", "┬", "┐")}
	if len(g.headers) > 0 {
		lines = append(lines, g.row(g.headers), divider)
	}
	for i, group := range g.groups {
		if i > 0 {
			lines = append(lines, divider)
		}
		for _, r := range group {
			lines = append(lines, g.row(r))
		}
	}
	return append(lines, g.rule("└", "┴", "┘"))
}

func visibleWidth(s string) int {
	return runewidth.StringWidth(ansi.Strip(s))
}

func padRight(s string, width int) string {
	if pad := width - visibleWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
