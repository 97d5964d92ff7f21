// Package diag accumulates and prints compiler diagnostics.
//
// Diagnostics are collected, never thrown: the parser and semantic
// analyzer append to a shared list and printing happens once, in
// source order, after a pass completes. The collector is a plain
// error accumulator, generalized to carry a position and severity
// instead of a bare string.
package diag

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
)

// Severity is the level of a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warn"
	case Error:
		return "error"
	default:
		return "?"
	}
}

// Pos is a source position. File is carried per-diagnostic rather than
// assumed constant because a translation unit may in principle report
// against more than one logical file (macro expansion headers, etc.)
// even though this repo does not itself run the preprocessor.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Diagnostic is a single collected message.
type Diagnostic struct {
	Severity Severity
	Pos      Pos
	Message  string
	// Depth is the recursive-descent production depth at which a parse
	// diagnostic was recorded. Among competing parse failures the one
	// with the greatest depth is taken as the most specific and is
	// reported; Depth is 0 for non-parser diagnostics.
	Depth int
}

// Bag accumulates diagnostics for one translation unit.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(sev Severity, pos Pos, format string, args ...interface{}) {
	b.items = append(b.items, Diagnostic{
		Severity: sev,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	})
}

// AddAt is like Add but records a parser production depth for later
// deepest-error selection.
func (b *Bag) AddAt(sev Severity, pos Pos, depth int, format string, args ...interface{}) {
	b.items = append(b.items, Diagnostic{
		Severity: sev,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
		Depth:    depth,
	})
}

// All returns every accumulated diagnostic in insertion order.
func (b *Bag) All() []Diagnostic { return b.items }

// HasErrors reports whether any diagnostic at Error severity was
// recorded. This count (excluding warnings) gates whether compilation
// continues past the analyzer.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of Error-severity diagnostics.
func (b *Bag) ErrorCount() int {
	n := 0
	for _, d := range b.items {
		if d.Severity == Error {
			n++
		}
	}
	return n
}

// Deepest returns the parse diagnostic with the greatest recorded
// depth, or the zero value and false if the bag is empty. This
// implements the "the deepest recorded error identifies
// the best user message."
func (b *Bag) Deepest() (Diagnostic, bool) {
	if len(b.items) == 0 {
		return Diagnostic{}, false
	}
	best := b.items[0]
	for _, d := range b.items[1:] {
		if d.Depth > best.Depth {
			best = d
		}
	}
	return best, true
}

// SortBySource orders diagnostics by file, then line, then column, so
// Print reports them in source order regardless of accumulation order.
func (b *Bag) SortBySource() {
	sort.SliceStable(b.items, func(i, j int) bool {
		a, c := b.items[i].Pos, b.items[j].Pos
		if a.File != c.File {
			return a.File < c.File
		}
		if a.Line != c.Line {
			return a.Line < c.Line
		}
		return a.Col < c.Col
	})
}

var (
	errColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
)

// Print writes every diagnostic to w in the format
// "cc: <level>: [<row>:<col>] <message>". Severity is
// colorized when w supports it; color.NoColor (set by fatih/color
// based on terminal detection, or forced by callers) degrades to
// plain text for pipes and files.
func Print(w io.Writer, items []Diagnostic) {
	for _, d := range items {
		label := d.Severity.String()
		switch d.Severity {
		case Error:
			label = errColor.Sprint(label)
		case Warning:
			label = warnColor.Sprint(label)
		default:
			label = infoColor.Sprint(label)
		}
		fmt.Fprintf(w, "cc: %s: [%s] %s\n", label, d.Pos, d.Message)
	}
}
