package vfile

import (
	"fmt"
	"strings"

	"github.com/jpequegn/polybench/internal/cache"
	"github.com/jpequegn/polybench/internal/dsl"
)

// hashPath derives the 16-hex-digit identifier used in a virtual file's
// name, matching the original's `{:016x}` of a DefaultHasher over
// bench_path. We don't need a specific hash algorithm's guarantees here
// (this is a filename, not a security boundary), so this reuses the
// compile cache's SHA-256 helper rather than adding a second hashing
// dependency for the same concern.
func hashPath(benchPath string) string {
	sum := cache.HashSource(benchPath)
	if len(sum) > 16 {
		return sum[:16]
	}
	return sum
}

// header is the line (if any) that must open a valid top-level source
// file in lang, before any embedded block content.
func header(lang dsl.Lang) string {
	switch lang {
	case dsl.LangGo:
		return "package main\n"
	default:
		return ""
	}
}

// footer is appended after every block has been emitted, for languages
// whose compiler/analyzer expects a concrete entry point even though
// this file is never actually built or run.
func footer(lang dsl.Lang) string {
	switch lang {
	case dsl.LangGo:
		return "func main() {}\n"
	case dsl.LangRust:
		return "fn main() {}\n"
	default:
		return ""
	}
}

// funcKeyword is the per-language keyword for a named top-level
// function declaration.
func funcKeyword(lang dsl.Lang) string {
	switch lang {
	case dsl.LangGo:
		return "func"
	case dsl.LangTypeScript:
		return "function"
	default:
		return "fn"
	}
}

// wrapInFunc wraps code in a named top-level function using lang's
// function-declaration syntax. Go uses `func init() { ... }` for
// BlockSetupInit specifically (it's the idiomatic equivalent); every
// other block kind, in every language, gets its own uniquely-named
// function so gopls/rust-analyzer/tsserver can type-check it in
// isolation without name collisions.
func wrapInFunc(lang dsl.Lang, name, code string) string {
	kw := funcKeyword(lang)
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s() {\n", kw, name)
	b.WriteString(indent(code))
	if !strings.HasSuffix(code, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func indent(code string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = "\t" + l
	}
	return strings.Join(lines, "\n")
}

// funcNameFor derives the synthesized function name for a non-init
// block, matching the original's `__polybench_<kind>_<n>` scheme.
func funcNameFor(t dsl.BlockType, n int) string {
	switch t {
	case dsl.BlockFixture:
		return fmt.Sprintf("__polybench_fixture_%d", n)
	case dsl.BlockBenchmark:
		return fmt.Sprintf("__polybench_bench_%d", n)
	case dsl.BlockHook:
		return fmt.Sprintf("__polybench_hook_%d", n)
	case dsl.BlockSkip:
		return fmt.Sprintf("__polybench_skip_%d", n)
	case dsl.BlockValidate:
		return fmt.Sprintf("__polybench_validate_%d", n)
	default:
		return fmt.Sprintf("__polybench_block_%d", n)
	}
}

// Build generates the virtual file for one (bench file, host language)
// pair. source is the raw .bench file text the blocks were parsed from;
// it's used only to refine each block's span down to its own code
// substring, since dsl.CodeBlock.Span (derived from the AST) covers the
// whole multi-language declaration it came from, not just one
// language's slice of it.
//
// Section ordering (spec §3's "non-overlapping cover", grounded on the
// original's VirtualFileBuilder): header, then SetupImport, then
// SetupDeclare, then SetupHelpers, then a single function wrapping all
// SetupInit blocks, then every remaining block (fixtures, benchmarks,
// hooks, skip/validate) individually wrapped in its own function, in
// the order dsl.File.Blocks() produced them, then the footer.
func Build(file *dsl.File, source string, benchURI, benchPath string, lang dsl.Lang, version int) *File {
	var imports, declares, helpers, inits []dsl.CodeBlock
	var others []dsl.CodeBlock

	for _, blk := range file.Blocks() {
		if blk.Lang != lang {
			continue
		}
		blk.Span = refineSpan(source, blk)
		switch blk.Type {
		case dsl.BlockSetupImport:
			imports = append(imports, blk)
		case dsl.BlockSetupDeclare:
			declares = append(declares, blk)
		case dsl.BlockSetupHelpers:
			helpers = append(helpers, blk)
		case dsl.BlockSetupInit:
			inits = append(inits, blk)
		default:
			others = append(others, blk)
		}
	}

	var b strings.Builder
	var sections []SectionMapping
	line := 0

	codeLineCount := func(code string) int {
		n := strings.Count(code, "\n")
		if !strings.HasSuffix(code, "\n") {
			n++
		}
		return n
	}

	writeRaw := func(blk dsl.CodeBlock) {
		start := line
		b.WriteString(blk.Code)
		if !strings.HasSuffix(blk.Code, "\n") {
			b.WriteString("\n")
		}
		n := codeLineCount(blk.Code)
		sections = append(sections, SectionMapping{
			VirtualStartLine: start,
			LineCount:        n,
			BenchSpan:        blk.Span,
			BlockType:        blk.Type,
			ContextName:      blk.ContextName,
			Code:             blk.Code,
			IndentCols:       0,
		})
		line += n
		b.WriteString("\n")
		line++
	}

	// writeWrapped emits `<kw> name() {\n<indented code>\n}\n`. The
	// section mapping's VirtualStartLine points at the first line of
	// code itself (one past the opening brace line), since that's what
	// bench_to_virtual/virtual_to_bench need to translate against.
	writeWrapped := func(blk dsl.CodeBlock, name string) {
		openLine := line
		wrapped := wrapInFunc(lang, name, blk.Code)
		b.WriteString(wrapped)
		n := codeLineCount(blk.Code)
		sections = append(sections, SectionMapping{
			VirtualStartLine: openLine + 1,
			LineCount:        n,
			BenchSpan:        blk.Span,
			BlockType:        blk.Type,
			ContextName:      blk.ContextName,
			Code:             blk.Code,
			IndentCols:       1,
		})
		line += strings.Count(wrapped, "\n")
		b.WriteString("\n")
		line++
	}

	if h := header(lang); h != "" {
		b.WriteString(h)
		line += strings.Count(h, "\n")
		b.WriteString("\n")
		line++
	}

	for _, blk := range imports {
		writeRaw(blk)
	}
	for _, blk := range declares {
		writeRaw(blk)
	}
	for _, blk := range helpers {
		writeRaw(blk)
	}

	if len(inits) > 0 {
		var merged strings.Builder
		for _, blk := range inits {
			merged.WriteString(blk.Code)
			if !strings.HasSuffix(blk.Code, "\n") {
				merged.WriteString("\n")
			}
		}
		initName := "init"
		if lang != dsl.LangGo {
			initName = "__polybench_init"
		}
		combined := dsl.CodeBlock{
			Type:        dsl.BlockSetupInit,
			Code:        merged.String(),
			Span:        inits[0].Span,
			ContextName: "setup.init",
		}
		writeWrapped(combined, initName)
	}

	for i, blk := range others {
		writeWrapped(blk, funcNameFor(blk.Type, i))
	}

	if f := footer(lang); f != "" {
		b.WriteString(f)
	}

	ext := extensionFor(lang)
	return &File{
		Lang:      lang,
		BenchURI:  benchURI,
		BenchPath: benchPath,
		URI:       "virtual://" + virtualName(benchPath, lang, ext),
		Path:      virtualName(benchPath, lang, ext),
		Content:   b.String(),
		Version:   version,
		Sections:  sections,
	}
}

func extensionFor(lang dsl.Lang) string {
	switch lang {
	case dsl.LangGo:
		return "go"
	case dsl.LangRust:
		return "rs"
	case dsl.LangTypeScript:
		return "ts"
	default:
		return "txt"
	}
}

// refineSpan narrows blk.Span (the whole multi-language declaration's
// span) down to the byte range blk.Code actually occupies within
// source, by searching for it inside the outer span. Falls back to the
// outer span when the exact substring can't be located (defensive:
// should not happen for well-formed input).
func refineSpan(source string, blk dsl.CodeBlock) dsl.Span {
	outer := blk.Span
	if outer.Start < 0 || outer.End > len(source) || outer.Start >= outer.End {
		return outer
	}
	region := source[outer.Start:outer.End]
	idx := strings.Index(region, blk.Code)
	if idx < 0 {
		return outer
	}
	start := outer.Start + idx
	end := start + len(blk.Code)
	startLine, startCol := lineColOfOffset(source, start)
	endLine, endCol := lineColOfOffset(source, end)
	return dsl.Span{Start: start, End: end, StartLine: startLine, StartCol: startCol, EndLine: endLine, EndCol: endCol}
}

// lineColOfOffset computes the 1-based line and column of a byte
// offset in source, matching dsl.Span's convention.
func lineColOfOffset(source string, offset int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// virtualName derives a deterministic, collision-free filename for the
// virtual file of one (bench file, language) pair, following spec §6's
// `<lang>/bin/_lsp_virtual_<hash>.<ext>` on-disk layout. The hash is
// over benchPath (not content), so the same bench file always maps to
// the same virtual path across edits/versions, matching the original's
// DefaultHasher-of-bench_path scheme.
func virtualName(benchPath string, lang dsl.Lang, ext string) string {
	return fmt.Sprintf("%s/bin/_lsp_virtual_%s.%s", lang, hashPath(benchPath), ext)
}
