package vfile

import "strings"

// BenchToVirtual translates a byte offset in the original bench file
// into a (0-based line, 0-based column) position in this virtual file,
// grounded on the original's VirtualGoFile::bench_to_go. ok is false
// when offset doesn't fall inside any section this virtual file covers
// (e.g. it's in a block written for a different language).
func (f *File) BenchToVirtual(offset int) (line, col int, ok bool) {
	m, found := f.sectionForBenchOffset(offset)
	if !found {
		return 0, 0, false
	}
	rel := offset - m.BenchSpan.Start
	if rel < 0 {
		rel = 0
	}
	if rel > len(m.Code) {
		rel = len(m.Code)
	}
	lineInBlock, colInBlock := relativeLineCol(m.Code, rel)
	line = m.VirtualStartLine + lineInBlock
	col = colInBlock + m.IndentCols
	return line, col, true
}

// VirtualToBench is the inverse of BenchToVirtual: given a (0-based
// line, 0-based column) in this virtual file, it returns the
// corresponding byte offset in the original bench file. Grounded on the
// original's VirtualGoFile::go_to_bench.
func (f *File) VirtualToBench(line, col int) (offset int, ok bool) {
	m, found := f.sectionAt(line)
	if !found {
		return 0, false
	}
	lineInBlock := line - m.VirtualStartLine
	col -= m.IndentCols
	if col < 0 {
		col = 0
	}
	relOffset := offsetForLineCol(m.Code, lineInBlock, col)
	abs := m.BenchSpan.Start + relOffset
	if abs > m.BenchSpan.End {
		abs = m.BenchSpan.End
	}
	return abs, true
}

// relativeLineCol returns the 0-based line and 0-based column of byte
// offset rel within code.
func relativeLineCol(code string, rel int) (line, col int) {
	for i := 0; i < rel && i < len(code); i++ {
		if code[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return line, col
}

// offsetForLineCol returns the byte offset of (line, col) within code,
// clamped to len(code) when either coordinate runs past the end.
func offsetForLineCol(code string, line, col int) int {
	if line < 0 {
		line = 0
	}
	lines := strings.SplitAfter(code, "\n")
	if line >= len(lines) {
		return len(code)
	}
	offset := 0
	for i := 0; i < line; i++ {
		offset += len(lines[i])
	}
	lineText := strings.TrimSuffix(lines[line], "\n")
	if col > len(lineText) {
		col = len(lineText)
	}
	if col < 0 {
		col = 0
	}
	return offset + col
}
