package ui

import (
	"encoding/json"
	"io"
)

// Severity classifies the visual weight of a piece of inline text. The
// terminal maps each value to a style; data consumers see plain text.
type Severity uint8

const (
	SeverityInfo     Severity = iota // plain
	SeveritySuccess                  // green, decoded / known
	SeverityWarn                     // yellow, decoded through a fallback
	SeverityError                    // red, undecodable
	SeverityCritical                 // bold
)

// StyledText pairs a plain string with a Severity annotation. It marshals
// as the plain string so JSON output carries no ANSI codes.
type StyledText struct {
	Text     string
	Severity Severity
}

func (s StyledText) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Text)
}

// UI is where commands write their results.
//
// Production code uses TerminalUI; tests use RecordingUI, which captures
// every call. Use Indent to render nested results, e.g. the inner call of
// a multisig submission, one level deeper.
type UI interface {
	// Style returns the text of t coloured according to its Severity, or
	// unchanged when colours are disabled.
	Style(t StyledText) string

	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	// Error writes a failure in red. It does not exit.
	Error(format string, args ...any)
	Critical(format string, args ...any)

	// Section writes a separator centred around title:
	//
	//	===== Logs =====
	Section(title string)

	// KeyValue renders label/value rows with values aligned.
	KeyValue(rows [][2]string)

	// Table renders a bordered table, one header row then data rows.
	Table(headers []string, rows [][]string)

	// TableWithGroups separates each group of rows with a divider, e.g.
	// one group per event log.
	TableWithGroups(headers []string, groups [][][]string)

	// Spinner shows msg until the returned stop function is called.
	Spinner(msg string) func()

	// Indent returns a child UI one level deeper sharing the same output.
	Indent() UI

	// Writer returns an io.Writer that prefixes every line with the
	// current indentation.
	Writer() io.Writer
}
