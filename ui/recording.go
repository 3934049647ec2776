package ui

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Entry is one captured UI call. Depth is the Indent level it was made at.
type Entry struct {
	Method string
	Value  string
	Depth  int
	// Rows holds the cells of KeyValue and Table calls.
	Rows [][]string
}

type recording struct {
	entries []Entry
	written bytes.Buffer
}

// RecordingUI captures every call instead of printing it. Children made
// with Indent record into the same log.
type RecordingUI struct {
	log   *recording
	depth int
}

func NewRecordingUI() *RecordingUI {
	return &RecordingUI{log: &recording{}}
}

func (r *RecordingUI) add(method, value string, rows [][]string) {
	r.log.entries = append(r.log.entries, Entry{Method: method, Value: value, Depth: r.depth, Rows: rows})
}

func (r *RecordingUI) Style(t StyledText) string {
	return t.Text
}

func (r *RecordingUI) Info(format string, args ...any) {
	r.add("Info", fmt.Sprintf(format, args...), nil)
}

func (r *RecordingUI) Success(format string, args ...any) {
	r.add("Success", fmt.Sprintf(format, args...), nil)
}

func (r *RecordingUI) Warn(format string, args ...any) {
	r.add("Warn", fmt.Sprintf(format, args...), nil)
}

func (r *RecordingUI) Error(format string, args ...any) {
	r.add("Error", fmt.Sprintf(format, args...), nil)
}

func (r *RecordingUI) Critical(format string, args ...any) {
	r.add("Critical", fmt.Sprintf(format, args...), nil)
}

func (r *RecordingUI) Section(title string) {
	r.add("Section", title, nil)
}

func (r *RecordingUI) KeyValue(rows [][2]string) {
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, []string{row[0], row[1]})
	}
	r.add("KeyValue", "", cells)
}

func (r *RecordingUI) Table(headers []string, rows [][]string) {
	r.TableWithGroups(headers, [][][]string{rows})
}

// TableWithGroups records the rows of all groups in order, Value holds
// the headers joined by '|'.
func (r *RecordingUI) TableWithGroups(headers []string, groups [][][]string) {
	var rows [][]string
	for _, g := range groups {
		rows = append(rows, g...)
	}
	r.add("Table", strings.Join(headers, "|"), rows)
}

func (r *RecordingUI) Spinner(msg string) func() {
	return func() {}
}

func (r *RecordingUI) Indent() UI {
	return &RecordingUI{log: r.log, depth: r.depth + 1}
}

func (r *RecordingUI) Writer() io.Writer {
	return &r.log.written
}

func (r *RecordingUI) Entries() []Entry {
	return r.log.entries
}

// Messages returns the values recorded by method, e.g. "Warn".
func (r *RecordingUI) Messages(method string) []string {
	var out []string
	for _, e := range r.log.entries {
		if e.Method == method {
			out = append(out, e.Value)
		}
	}
	return out
}

func (r *RecordingUI) ErrorMessages() []string {
	return r.Messages("Error")
}

// Tables returns the rows of every table, in call order.
func (r *RecordingUI) Tables() [][][]string {
	var out [][][]string
	for _, e := range r.log.entries {
		if e.Method == "Table" {
			out = append(out, e.Rows)
		}
	}
	return out
}

// HasMessage reports whether a recorded value or cell contains substr,
// ignoring case.
func (r *RecordingUI) HasMessage(substr string) bool {
	substr = strings.ToLower(substr)
	for _, e := range r.log.entries {
		if strings.Contains(strings.ToLower(e.Value), substr) {
			return true
		}
		for _, row := range e.Rows {
			for _, cell := range row {
				if strings.Contains(strings.ToLower(cell), substr) {
					return true
				}
			}
		}
	}
	return false
}

// Output is everything written to Writer.
func (r *RecordingUI) Output() string {
	return r.log.written.String()
}
