// Package vfile builds synthetic, syntactically valid source files from
// the embedded code blocks of a .bench file, and translates positions
// between the original bench file and the generated virtual file. This
// is what lets a host language server (gopls, rust-analyzer, tsserver)
// give diagnostics, hover, and completion for code that only exists as
// fragments inside a .bench suite (spec §3's Virtual File, §4.K/L).
//
// Grounded on original_source/src/lsp/virtual_files.rs, the concrete
// (non-registry) implementation of VirtualGoFile/VirtualFileBuilder —
// generalized here from Go-only to all three host languages.
package vfile

import "github.com/jpequegn/polybench/internal/dsl"

// SectionMapping is one contiguous run of virtual-file lines produced
// from a single embedded code block, per spec §3's section_mapping
// tuple (virtual_start_line, line_count, bench_span, block_type, code).
type SectionMapping struct {
	VirtualStartLine int
	LineCount        int
	BenchSpan        dsl.Span
	BlockType        dsl.BlockType
	ContextName      string
	Code             string

	// IndentCols is how many columns were prepended to every line of
	// Code when it was written into the virtual file (0 for raw
	// sections like imports/declares/helpers, 1 for a block wrapped in
	// a function body with a single tab of indentation).
	IndentCols int
}

// containsLine reports whether virtual line (0-based) falls inside this
// section's line range.
func (m SectionMapping) containsLine(line int) bool {
	return line >= m.VirtualStartLine && line < m.VirtualStartLine+m.LineCount
}

// File is one generated virtual source file for one (bench file, host
// language) pair: a syntactically valid top-level source file plus the
// section mappings needed to translate positions in either direction.
type File struct {
	Lang      dsl.Lang
	BenchURI  string
	BenchPath string
	URI       string
	Path      string
	Content   string
	Version   int
	Sections  []SectionMapping
}

// sectionAt returns the mapping covering virtual line (0-based), if any.
func (f *File) sectionAt(line int) (SectionMapping, bool) {
	for _, m := range f.Sections {
		if m.containsLine(line) {
			return m, true
		}
	}
	return SectionMapping{}, false
}

// sectionForBenchOffset returns the mapping whose bench-file span
// contains the given byte offset, if any.
func (f *File) sectionForBenchOffset(offset int) (SectionMapping, bool) {
	for _, m := range f.Sections {
		if m.BenchSpan.Contains(offset) {
			return m, true
		}
	}
	return SectionMapping{}, false
}
