package lsp

import (
	"context"
	"regexp"
	"sort"

	"go.lsp.dev/protocol"

	"github.com/jpequegn/polybench/internal/dsl"
)

// Semantic token type indices, matching the order of SemanticTokenTypes
// in types.go — the legend semanticTokens/full must encode against.
const (
	semKeyword = iota
	semType
	semFunction
	semVariable
	semString
	semNumber
	semComment
	semProperty
	semNamespace
	semParameter
	semOperator
)

// semToken is one token located in absolute (line, col) coordinates,
// before delta-encoding.
type semToken struct {
	line, col, length int
	tokenType         int
}

// SemanticTokens walks the document's partial AST and emits one token
// per recognizable lexical unit the parser preserved a span for (spec
// §4.L, §6's legend). Unlike Hover/Completion it never forwards to a
// host language server: the embedded code blocks' own highlighting is
// the host editor's syntax grammar, not this server's job — only the
// DSL's own keywords, names, and literals are tokenized here.
func (s *Server) SemanticTokens(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	v, ok := s.docs.Load(params.TextDocument.URI)
	if !ok {
		return &protocol.SemanticTokens{}, nil
	}
	doc := v.(*Document)
	text, f, _ := doc.snapshot()
	if f == nil {
		return &protocol.SemanticTokens{}, nil
	}
	toks := semanticTokensForFile(text, f)
	return &protocol.SemanticTokens{Data: encodeSemanticTokens(toks)}, nil
}

func semanticTokensForFile(text string, f *dsl.File) []semToken {
	var toks []semToken

	for _, use := range f.StdlibImports {
		toks = append(toks, tokensForUseStd(text, use)...)
	}
	if f.GlobalSetup != nil {
		toks = append(toks, tokensForGlobalSetup(text, *f.GlobalSetup)...)
	}
	for _, suite := range f.Suites {
		toks = append(toks, tokensForSuite(text, suite)...)
	}

	sort.Slice(toks, func(i, j int) bool {
		if toks[i].line != toks[j].line {
			return toks[i].line < toks[j].line
		}
		return toks[i].col < toks[j].col
	})
	return toks
}

func tokensForUseStd(text string, use dsl.UseStd) []semToken {
	var toks []semToken
	if line, col, ok := findWord(text, use.Span, "use"); ok {
		toks = append(toks, semToken{line, col, len("use"), semKeyword})
	}
	if use.Module != "" {
		if line, col, ok := findWord(text, use.Span, use.Module); ok {
			toks = append(toks, semToken{line, col, len(use.Module), semNamespace})
		}
	}
	return toks
}

func tokensForGlobalSetup(text string, gs dsl.GlobalSetup) []semToken {
	var toks []semToken
	if line, col, ok := findWord(text, gs.Span, "globalSetup"); ok {
		toks = append(toks, semToken{line, col, len("globalSetup"), semKeyword})
	}
	if gs.HasAnvil && gs.AnvilForkURL.IsValid() {
		toks = append(toks, semToken{gs.AnvilForkURL.Span.StartLine, gs.AnvilForkURL.Span.StartCol,
			gs.AnvilForkURL.Span.End - gs.AnvilForkURL.Span.Start, semString})
	}
	return toks
}

func tokensForSuite(text string, suite *dsl.Suite) []semToken {
	var toks []semToken

	keywordLine, keywordCol, ok := findWord(text, suite.Span, "suite")
	if ok {
		toks = append(toks, semToken{keywordLine, keywordCol, len("suite"), semKeyword})
	}
	if suite.Name != "" {
		// Search after the "suite" keyword so a suite named the same as
		// another identifier earlier in the span isn't matched instead.
		searchFrom := suite.Span
		if ok {
			searchFrom.Start = offsetOf(text, keywordLine, keywordCol) + len("suite")
		}
		if line, col, ok := findWord(text, searchFrom, suite.Name); ok {
			toks = append(toks, semToken{line, col, len(suite.Name), semNamespace})
		}
	}

	for lang, setup := range suite.Setups {
		toks = append(toks, tokensForSetup(text, setup, lang)...)
	}
	for _, fx := range suite.Fixtures {
		toks = append(toks, tokensForFixture(text, fx)...)
	}
	for _, bm := range suite.Benchmarks {
		toks = append(toks, tokensForBenchmark(text, bm)...)
	}
	return toks
}

func tokensForSetup(text string, setup *dsl.Setup, lang dsl.Lang) []semToken {
	var toks []semToken
	if line, col, ok := findWord(text, setup.Span, "setup"); ok {
		toks = append(toks, semToken{line, col, len("setup"), semKeyword})
	}
	if line, col, ok := findWord(text, setup.Span, string(lang)); ok {
		toks = append(toks, semToken{line, col, len(lang), semType})
	}
	return toks
}

func tokensForFixture(text string, fx *dsl.Fixture) []semToken {
	var toks []semToken
	if line, col, ok := findWord(text, fx.Span, "fixture"); ok {
		toks = append(toks, semToken{line, col, len("fixture"), semKeyword})
	}
	if fx.Name != "" {
		if line, col, ok := findWord(text, fx.Span, fx.Name); ok {
			toks = append(toks, semToken{line, col, len(fx.Name), semVariable})
		}
	}
	if fx.Hex.IsValid() {
		toks = append(toks, semToken{fx.Hex.Span.StartLine, fx.Hex.Span.StartCol,
			fx.Hex.Span.End - fx.Hex.Span.Start, semString})
	}
	if fx.HexFile != nil {
		toks = append(toks, semToken{fx.HexFile.Span.StartLine, fx.HexFile.Span.StartCol,
			fx.HexFile.Span.End - fx.HexFile.Span.Start, semString})
	}
	return toks
}

func tokensForBenchmark(text string, bm *dsl.Benchmark) []semToken {
	var toks []semToken
	if line, col, ok := findWord(text, bm.Span, "bench"); ok {
		toks = append(toks, semToken{line, col, len("bench"), semKeyword})
	}
	if bm.Name != "" {
		if line, col, ok := findWord(text, bm.Span, bm.Name); ok {
			toks = append(toks, semToken{line, col, len(bm.Name), semFunction})
		}
	}
	for lang := range bm.Implementations {
		if line, col, ok := findWord(text, bm.Span, string(lang)); ok {
			toks = append(toks, semToken{line, col, len(lang), semType})
		}
	}
	return toks
}

// findWord locates the first occurrence of word as a whole identifier
// within text[span.Start:span.End], translating the byte offset back
// to (line, col) relative to the span's own start position.
func findWord(text string, span dsl.Span, word string) (line, col int, ok bool) {
	if span.Start < 0 || span.End > len(text) || span.Start >= span.End {
		return 0, 0, false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return 0, 0, false
	}
	loc := re.FindStringIndex(text[span.Start:span.End])
	if loc == nil {
		return 0, 0, false
	}
	abs := span.Start + loc[0]
	l, c := advancePosition(text, span.Start, span.StartLine, span.StartCol, abs)
	return l, c, true
}

// advancePosition walks text[fromIdx:toIdx] counting newlines, returning
// the (line, col) reached starting from (fromLine, fromCol) at fromIdx.
func advancePosition(text string, fromIdx, fromLine, fromCol, toIdx int) (line, col int) {
	line, col = fromLine, fromCol
	for i := fromIdx; i < toIdx && i < len(text); i++ {
		if text[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return line, col
}

// offsetOf recovers a byte offset from a (line, col) pair by scanning
// from the start of text — used only to re-anchor a narrowed search
// span after a keyword match, never on a hot path.
func offsetOf(text string, line, col int) int {
	curLine, curCol := 0, 0
	for i, r := range text {
		if curLine == line && curCol == col {
			return i
		}
		if r == '\n' {
			curLine++
			curCol = 0
		} else {
			curCol++
		}
	}
	return len(text)
}

// encodeSemanticTokens delta-encodes a line/col-sorted token list per
// the LSP semanticTokens/full wire format: each token is five integers
// (deltaLine, deltaStartChar, length, tokenType, tokenModifiers)
// relative to the previous token.
func encodeSemanticTokens(toks []semToken) []uint32 {
	data := make([]uint32, 0, len(toks)*5)
	prevLine, prevCol := 0, 0
	for _, t := range toks {
		deltaLine := t.line - prevLine
		deltaCol := t.col
		if deltaLine == 0 {
			deltaCol = t.col - prevCol
		}
		data = append(data, uint32(deltaLine), uint32(deltaCol), uint32(t.length), uint32(t.tokenType), 0)
		prevLine, prevCol = t.line, t.col
	}
	return data
}
