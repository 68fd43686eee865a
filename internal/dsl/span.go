// Package dsl implements the lexer and permissive parser for .bench files.
//
// Parsing never fails outright: unparseable regions are recorded as
// Error or Missing nodes carrying a Span, so editor tooling can still
// offer diagnostics and structure for the rest of the file.
package dsl

import "fmt"

// Span is a source byte range plus start/end line/column, carried by
// every AST node and every embedded code block.
type Span struct {
	Start     int
	End       int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// Contains reports whether byte offset o falls within [Start, End).
func (s Span) Contains(o int) bool {
	return o >= s.Start && o < s.End
}

// joinSpans returns the smallest span covering both a and b.
func joinSpans(a, b Span) Span {
	out := a
	if b.Start < out.Start {
		out.Start = b.Start
		out.StartLine = b.StartLine
		out.StartCol = b.StartCol
	}
	if b.End > out.End {
		out.End = b.End
		out.EndLine = b.EndLine
		out.EndCol = b.EndCol
	}
	return out
}
