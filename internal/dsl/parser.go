package dsl

import (
	"fmt"
	"strings"
)

// Parser builds a partial File from a token stream plus the original
// source (needed to brace-balance embedded code blocks verbatim).
type Parser struct {
	src    string
	toks   []Token
	pos    int
	errors []ParseDiagnostic
}

// Parse tokenizes and parses src into a File. It never returns an error:
// recoverable problems are appended to File.ParseErrors.
func Parse(src string) *File {
	lx := NewLexer(src)
	toks, lexErrs := lx.Tokenize()
	p := &Parser{src: src, toks: toks}
	for _, e := range lexErrs {
		p.errors = append(p.errors, ParseDiagnostic{Span: e.Span, Message: e.Message})
	}
	f := p.parseFile()
	f.ParseErrors = append(f.ParseErrors, p.errors...)
	return f
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) kind() TokenKind { return p.toks[p.pos].Kind }

func (p *Parser) atEOF() bool { return p.kind() == TokEOF }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k TokenKind) bool { return p.kind() == k }

func (p *Parser) accept(k TokenKind) (Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	return Token{}, false
}

func (p *Parser) errAt(span Span, format string, args ...any) {
	p.errors = append(p.errors, ParseDiagnostic{Span: span, Message: fmt.Sprintf(format, args...)})
}

// expect consumes a token of kind k, recording a parse error (but still
// advancing conceptually) if absent. Returns the token found (zero value
// on mismatch) so callers can use its span defensively.
func (p *Parser) expect(k TokenKind, what string) (Token, bool) {
	if tok, ok := p.accept(k); ok {
		return tok, true
	}
	p.errAt(p.cur().Span, "expected %s", what)
	return Token{}, false
}

// syncTo advances until one of the given kinds or EOF is found, without
// consuming it — used for statement-boundary error recovery.
func (p *Parser) syncTo(kinds ...TokenKind) {
	for !p.atEOF() {
		for _, k := range kinds {
			if p.check(k) {
				return
			}
		}
		if p.check(TokLBrace) {
			// Skip a whole balanced block rather than getting lost inside it.
			p.skipBalanced()
			continue
		}
		p.advance()
	}
}

func (p *Parser) skipBalanced() {
	depth := 0
	for !p.atEOF() {
		switch p.kind() {
		case TokLBrace:
			depth++
		case TokRBrace:
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseFile() *File {
	file := &File{}
	for !p.atEOF() {
		before := p.pos
		switch p.kind() {
		case TokUse:
			file.StdlibImports = append(file.StdlibImports, p.parseUseStd())
		case TokGlobalSetup:
			file.GlobalSetup = p.parseGlobalSetup()
		case TokSuite:
			file.Suites = append(file.Suites, p.parseSuite())
		default:
			p.errAt(p.cur().Span, "expected 'use', 'globalSetup', or 'suite', found %q", p.cur().Text)
			p.syncTo(TokUse, TokGlobalSetup, TokSuite)
		}
		if p.pos == before {
			// Nothing recognized moved the cursor; force progress.
			p.advance()
		}
	}
	return file
}

func (p *Parser) parseUseStd() UseStd {
	startTok := p.advance() // 'use'
	if _, ok := p.accept(TokStd); !ok {
		p.errAt(p.cur().Span, "expected 'std' after 'use'")
	}
	if _, ok := p.accept(TokDoubleColon); !ok {
		p.errAt(p.cur().Span, "expected '::' after 'std'")
	}
	modTok := p.cur()
	module := ""
	if p.check(TokIdent) || isKeywordIdentLike(p.kind()) {
		module = p.advance().Text
	} else {
		p.errAt(p.cur().Span, "expected stdlib module name")
	}
	return UseStd{Module: module, Span: joinSpans(startTok.Span, modTok.Span)}
}

// isKeywordIdentLike reports whether a keyword token may stand in for a
// module name. No keyword qualifies, so it always returns false.
func isKeywordIdentLike(k TokenKind) bool {
	return false
}

func (p *Parser) parseGlobalSetup() *GlobalSetup {
	startTok := p.advance() // 'globalSetup'
	gs := &GlobalSetup{}
	lb, braceOK := p.expect(TokLBrace, "'{'")
	if !braceOK {
		gs.Span = startTok.Span
		return gs
	}
	// Body: look for `spawnAnvil(` ... `)` by scanning identifiers; content
	// is otherwise raw text since it's a bridge to host-language init code.
	inner, whole, next, ok := ReadBalancedBlock(p.src, lb.Span.Start)
	if ok {
		if idx := strings.Index(inner, "spawnAnvil"); idx >= 0 {
			gs.HasAnvil = true
			rest := inner[idx+len("spawnAnvil"):]
			if u := extractQuotedArg(rest); u != "" {
				gs.AnvilForkURL = Valid(u, whole)
			}
		}
	}
	p.seekPast(next)
	gs.Span = joinSpans(startTok.Span, whole)
	return gs
}

// extractQuotedArg pulls the first "..." literal out of a parenthesized
// call-argument fragment, e.g. `("https://...")` -> the URL.
func extractQuotedArg(s string) string {
	i := strings.IndexByte(s, '"')
	if i < 0 {
		return ""
	}
	j := strings.IndexByte(s[i+1:], '"')
	if j < 0 {
		return ""
	}
	return s[i+1 : i+1+j]
}

// seekPast advances the token cursor until its underlying byte offset is
// >= target, used after consuming raw text directly from source.
func (p *Parser) seekPast(target int) {
	for !p.atEOF() && p.cur().Span.Start < target {
		p.advance()
	}
}

// benchBodyKeywords are the tokens that can only start a new benchmark-body
// item, never appear inside a bare (unbraced) language implementation.
var benchBodyKeywords = []TokenKind{
	TokDescription, TokIterations, TokWarmup, TokTimeout, TokTags,
	TokSkip, TokValidate, TokBefore, TokAfter, TokEach,
	TokMode, TokTargetTime, TokMinIterations, TokMaxIterations,
	TokSink, TokMemory, TokConcurrency, TokOutlierDetection, TokCvThreshold, TokCount,
}

// fixtureBodyKeywords mirrors benchBodyKeywords for a fixture's body.
var fixtureBodyKeywords = []TokenKind{TokHex, TokDescription, TokShape}

// readFixtureLangBody captures a bare (unbraced) per-language fixture
// generator body, analogous to readLangImplementation.
func (p *Parser) readFixtureLangBody() (code string, next int) {
	return p.readRawBody(fixtureBodyKeywords)
}

// readLangImplementation captures a bare (unbraced) language implementation
// body verbatim (spec §4.A: "anything introduced by a language tag ... is
// captured as raw text"). Unlike setup/hook sections, a bench-level `go:`,
// `ts:`, or `rust:` body is not itself wrapped in its own braces — it runs
// from the current token to whichever comes first, at bracket depth zero:
// the bench's closing '}', another language tag, or a benchmark-body
// keyword. Brace/paren/bracket depth is tracked so a multi-line expression
// (a struct literal, a closure) is not cut short.
func (p *Parser) readLangImplementation() (code string, next int) {
	return p.readRawBody(benchBodyKeywords)
}

// readRawBody is the shared scanner behind readLangImplementation and
// readFixtureLangBody: it captures raw source from the current token up
// to (not including) whichever comes first at bracket depth zero — the
// enclosing block's closing '}', another language tag, or one of
// stopKeywords.
func (p *Parser) readRawBody(stopKeywords []TokenKind) (code string, next int) {
	start := p.cur().Span.Start
	depth := 0
	for !p.atEOF() {
		k := p.kind()
		if depth == 0 {
			if k == TokRBrace {
				break
			}
			if _, ok := normalizeLang(k); ok {
				if p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == TokColon {
					break
				}
			}
			stop := false
			for _, bk := range stopKeywords {
				if k == bk {
					stop = true
					break
				}
			}
			if stop {
				break
			}
		}
		switch k {
		case TokLBrace, TokLParen, TokLBracket:
			depth++
		case TokRBrace, TokRParen, TokRBracket:
			depth--
		}
		p.advance()
	}
	end := p.cur().Span.Start
	return strings.TrimSpace(p.src[start:end]), end
}

func (p *Parser) parseSuite() *Suite {
	startTok := p.advance() // 'suite'
	nameTok, _ := p.expect(TokIdent, "suite name")
	s := &Suite{Name: nameTok.Text, Setups: make(map[Lang]*Setup), Order: OrderSequential}

	_, ok := p.expect(TokLBrace, "'{'")
	if !ok {
		s.Span = joinSpans(startTok.Span, nameTok.Span)
		return s
	}

	for !p.atEOF() && !p.check(TokRBrace) {
		before := p.pos
		switch p.kind() {
		case TokDescription:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokString); ok {
				s.Description = t.Text
			}
		case TokIterations:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				s.DefaultIterations = &v
			}
		case TokWarmup:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				s.DefaultWarmup = &v
			}
		case TokTimeout:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokDuration); ok {
				v := t.Millis
				s.Timeout = &v
			} else if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				s.Timeout = &v
			}
		case TokRequires:
			p.advance()
			p.expect(TokColon, "':'")
			p.parseLangList(&s.Requires)
		case TokOrder:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokIdent); ok {
				switch t.Text {
				case "parallel":
					s.Order = OrderParallel
				case "random":
					s.Order = OrderRandom
				default:
					s.Order = OrderSequential
				}
			}
		case TokBaseline:
			p.advance()
			p.expect(TokColon, "':'")
			if lang, ok := p.parseLangTag(); ok {
				s.Baseline = lang
			}
			s.Compare = true
		case TokMode:
			p.advance()
			p.expect(TokColon, "':'")
			s.DefaultMode = p.parseCalibrationMode()
		case TokTargetTime:
			p.advance()
			p.expect(TokColon, "':'")
			s.DefaultTargetTimeMs = p.parseMillisValue()
		case TokMinIterations:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				s.DefaultMinIterations = &v
			}
		case TokMaxIterations:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				s.DefaultMaxIterations = &v
			}
		case TokSink:
			p.advance()
			p.expect(TokColon, "':'")
			s.DefaultSink = p.parseBoolValue()
		case TokMemory:
			p.advance()
			p.expect(TokColon, "':'")
			s.DefaultMemory = p.parseBoolValue()
		case TokConcurrency:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				s.DefaultConcurrency = &v
			}
		case TokOutlierDetection:
			p.advance()
			p.expect(TokColon, "':'")
			s.DefaultOutlierDetection = p.parseBoolValue()
		case TokCvThreshold:
			p.advance()
			p.expect(TokColon, "':'")
			s.DefaultCVThreshold = p.parseFloatValue()
		case TokCount:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				s.DefaultCount = &v
			}
		case TokUse:
			s.StdlibImports = append(s.StdlibImports, p.parseUseStd())
		case TokGlobalSetup:
			s.GlobalSetup = p.parseGlobalSetup()
		case TokSetup:
			setup := p.parseSetup()
			s.Setups[setup.Lang] = setup
		case TokFixture:
			s.Fixtures = append(s.Fixtures, p.parseFixture())
		case TokBench, TokBenchAsync:
			s.Benchmarks = append(s.Benchmarks, p.parseBenchmark())
		case TokAfter:
			// Suite-level after { chart(...) ... } directive block.
			p.parseAfterBlock(s)
		default:
			p.errAt(p.cur().Span, "unexpected token %q in suite body", p.cur().Text)
			p.syncTo(TokDescription, TokIterations, TokWarmup, TokTimeout, TokRequires,
				TokOrder, TokBaseline, TokMode, TokTargetTime, TokMinIterations, TokMaxIterations,
				TokSink, TokMemory, TokConcurrency, TokOutlierDetection, TokCvThreshold, TokCount,
				TokUse, TokGlobalSetup, TokSetup, TokFixture,
				TokBench, TokBenchAsync, TokRBrace)
		}
		if p.pos == before {
			// Guarantee forward progress on any unhandled case.
			p.advance()
		}
	}
	rb, _ := p.expect(TokRBrace, "'}'")
	s.Span = joinSpans(startTok.Span, rb.Span)
	return s
}

func (p *Parser) parseAfterBlock(s *Suite) {
	p.advance() // 'after' (the TokAfter keyword)
	lb, ok := p.expect(TokLBrace, "'{'")
	if !ok {
		return
	}
	inner, whole, next, _ := ReadBalancedBlock(p.src, lb.Span.Start)
	s.AfterCharts = append(s.AfterCharts, parseChartDirectives(inner, whole)...)
	p.seekPast(next)
}

func parseChartDirectives(code string, span Span) []ChartDirective {
	var out []ChartDirective
	for _, fn := range []struct {
		name string
		typ  ChartType
	}{{"barChart", ChartBar}, {"pieChart", ChartPie}, {"lineChart", ChartLine}} {
		idx := 0
		for {
			i := strings.Index(code[idx:], fn.name+"(")
			if i < 0 {
				break
			}
			idx = idx + i + len(fn.name) + 1
			out = append(out, ChartDirective{Type: fn.typ, Span: span})
		}
	}
	return out
}

func (p *Parser) parseLangList(dst *[]Lang) {
	p.expect(TokLBracket, "'['")
	for !p.atEOF() && !p.check(TokRBracket) {
		if lang, ok := p.parseLangTag(); ok {
			*dst = append(*dst, lang)
		} else {
			p.advance()
		}
		if _, ok := p.accept(TokComma); !ok {
			break
		}
	}
	p.expect(TokRBracket, "']'")
}

func (p *Parser) parseLangTag() (Lang, bool) {
	if lang, ok := normalizeLang(p.kind()); ok {
		p.advance()
		return lang, true
	}
	if p.check(TokIdent) {
		t := p.advance()
		return Lang(t.Text), true
	}
	p.errAt(p.cur().Span, "expected a language tag")
	return "", false
}

// parseCalibrationMode parses a `mode:` value (spec §6: `auto`, `fixed`).
// An unrecognized identifier leaves the mode unset rather than guessing.
func (p *Parser) parseCalibrationMode() CalibrationMode {
	t, ok := p.accept(TokIdent)
	if !ok {
		return ModeUnset
	}
	switch t.Text {
	case "fixed":
		return ModeFixed
	case "auto":
		return ModeAuto
	default:
		p.errAt(t.Span, "unknown mode %q (expected 'auto' or 'fixed')", t.Text)
		return ModeUnset
	}
}

// parseMillisValue accepts either a bare integer (milliseconds) or a
// duration literal (normalized to milliseconds by the lexer).
func (p *Parser) parseMillisValue() *int64 {
	if t, ok := p.accept(TokDuration); ok {
		v := t.Millis
		return &v
	}
	if t, ok := p.accept(TokNumber); ok {
		v := t.Number
		return &v
	}
	return nil
}

// parseBoolValue parses a `true`/`false` literal.
func (p *Parser) parseBoolValue() *bool {
	if _, ok := p.accept(TokTrue); ok {
		v := true
		return &v
	}
	if _, ok := p.accept(TokFalse); ok {
		v := false
		return &v
	}
	return nil
}

// parseFloatValue accepts a float literal or an integer literal used in
// float position (e.g. `cvThreshold: 5`).
func (p *Parser) parseFloatValue() *float64 {
	if t, ok := p.accept(TokFloat); ok {
		v := t.Float
		return &v
	}
	if t, ok := p.accept(TokNumber); ok {
		v := float64(t.Number)
		return &v
	}
	return nil
}

func (p *Parser) parseSetup() *Setup {
	startTok := p.advance() // 'setup'
	lang, _ := p.parseLangTag()
	setup := &Setup{Lang: lang}
	p.expect(TokLBrace, "'{'")
	for !p.atEOF() && !p.check(TokRBrace) {
		before := p.pos
		async := false
		if p.check(TokAsync) {
			p.advance()
			async = true
		}
		var kind BlockType
		switch p.kind() {
		case TokImport:
			kind = BlockSetupImport
		case TokDeclare:
			kind = BlockSetupDeclare
		case TokInit:
			kind = BlockSetupInit
			if async {
				setup.Async = true
			}
		case TokHelpers:
			kind = BlockSetupHelpers
		default:
			p.errAt(p.cur().Span, "expected 'import', 'declare', 'init', or 'helpers'")
			p.syncTo(TokImport, TokDeclare, TokInit, TokHelpers, TokRBrace)
			if p.pos == before {
				p.advance()
			}
			continue
		}
		p.advance() // section keyword
		lb, ok := p.expect(TokLBrace, "'{'")
		if !ok {
			continue
		}
		inner, whole, next, _ := ReadBalancedBlock(p.src, lb.Span.Start)
		setup.Sections = append(setup.Sections, SetupSection{Kind: kind, Code: inner, Span: whole})
		p.seekPast(next)
	}
	rb, _ := p.expect(TokRBrace, "'}'")
	setup.Span = joinSpans(startTok.Span, rb.Span)
	return setup
}

func (p *Parser) parseFixture() *Fixture {
	startTok := p.advance() // 'fixture'
	nameTok, _ := p.expect(TokIdent, "fixture name")
	fx := &Fixture{Name: nameTok.Text, Implementations: make(map[Lang]string)}

	if _, ok := p.accept(TokLParen); ok {
		for !p.atEOF() && !p.check(TokRParen) {
			pname, _ := p.expect(TokIdent, "parameter name")
			p.expect(TokColon, "':'")
			ptype, _ := p.expect(TokIdent, "parameter type")
			fx.Params = append(fx.Params, FixtureParam{Name: pname.Text, Type: ptype.Text})
			if _, ok := p.accept(TokComma); !ok {
				break
			}
		}
		p.expect(TokRParen, "')'")
	}

	_, ok := p.expect(TokLBrace, "'{'")
	if !ok {
		fx.Span = joinSpans(startTok.Span, nameTok.Span)
		return fx
	}
	for !p.atEOF() && !p.check(TokRBrace) {
		before := p.pos
		switch p.kind() {
		case TokHex:
			p.advance()
			p.expect(TokColon, "':'")
			if p.check(TokAt) {
				ref := p.parseFileRef()
				fx.HexFile = &ref
			} else if t, ok := p.accept(TokHexLiteral); ok {
				fx.Hex = Valid(t.Text, t.Span)
			} else if t, ok := p.accept(TokString); ok {
				fx.Hex = Valid(t.Text, t.Span)
			}
		case TokDescription:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokString); ok {
				fx.Description = t.Text
			}
		case TokShape:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokString); ok {
				fx.Shape = t.Text
			}
		default:
			if lang, ok := normalizeLang(p.kind()); ok {
				p.advance()
				p.expect(TokColon, "':'")
				if p.check(TokLBrace) {
					lb2 := p.cur()
					inner, _, next, _ := ReadBalancedBlock(p.src, lb2.Span.Start)
					fx.Implementations[lang] = inner
					p.seekPast(next)
				} else {
					inner, _ := p.readFixtureLangBody()
					fx.Implementations[lang] = inner
				}
			} else {
				p.errAt(p.cur().Span, "unexpected token in fixture body")
				p.syncTo(TokHex, TokDescription, TokShape, TokRBrace)
			}
		}
		if p.pos == before {
			p.advance()
		}
	}
	rb, _ := p.expect(TokRBrace, "'}'")
	fx.Span = joinSpans(startTok.Span, rb.Span)
	return fx
}

func (p *Parser) parseFileRef() FileRef {
	atTok := p.advance() // '@'
	// 'file' is lexed as a plain identifier here.
	if t, ok := p.accept(TokIdent); !ok || t.Text != "file" {
		p.errAt(p.cur().Span, "expected 'file' after '@'")
	}
	p.expect(TokLParen, "'('")
	path := ""
	if t, ok := p.accept(TokString); ok {
		path = t.Text
	}
	rp, _ := p.expect(TokRParen, "')'")
	return FileRef{Path: path, Span: joinSpans(atTok.Span, rp.Span)}
}

func (p *Parser) parseBenchmark() *Benchmark {
	startTok := p.advance() // 'bench' or 'benchAsync'
	async := startTok.Kind == TokBenchAsync
	nameTok, _ := p.expect(TokIdent, "benchmark name")
	b := &Benchmark{
		Name:            nameTok.Text,
		Skip:            make(map[Lang]string),
		Validate:        make(map[Lang]string),
		Before:          make(map[Lang]string),
		After:           make(map[Lang]string),
		Each:            make(map[Lang]string),
		Implementations: make(map[Lang]string),
		Async:           make(map[Lang]bool),
	}

	_, ok := p.expect(TokLBrace, "'{'")
	if !ok {
		b.Span = joinSpans(startTok.Span, nameTok.Span)
		return b
	}
	for !p.atEOF() && !p.check(TokRBrace) {
		before := p.pos
		switch p.kind() {
		case TokDescription:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokString); ok {
				b.Description = t.Text
			}
		case TokIterations:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				b.Iterations = &v
			}
		case TokWarmup:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				b.Warmup = &v
			}
		case TokTimeout:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokDuration); ok {
				v := t.Millis
				b.Timeout = &v
			} else if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				b.Timeout = &v
			}
		case TokTags:
			p.advance()
			p.expect(TokColon, "':'")
			p.expect(TokLBracket, "'['")
			for !p.atEOF() && !p.check(TokRBracket) {
				if t, ok := p.accept(TokString); ok {
					b.Tags = append(b.Tags, t.Text)
				} else {
					p.advance()
				}
				if _, ok := p.accept(TokComma); !ok {
					break
				}
			}
			p.expect(TokRBracket, "']'")
		case TokSkip:
			p.parsePerLangCode("skip", b.Skip)
		case TokValidate:
			p.parsePerLangCode("validate", b.Validate)
		case TokBefore:
			p.parsePerLangCode("before", b.Before)
		case TokAfter:
			p.parsePerLangCode("after", b.After)
		case TokEach:
			p.parsePerLangCode("each", b.Each)
		case TokMode:
			p.advance()
			p.expect(TokColon, "':'")
			b.Mode = p.parseCalibrationMode()
		case TokTargetTime:
			p.advance()
			p.expect(TokColon, "':'")
			b.TargetTimeMs = p.parseMillisValue()
		case TokMinIterations:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				b.MinIterations = &v
			}
		case TokMaxIterations:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				b.MaxIterations = &v
			}
		case TokSink:
			p.advance()
			p.expect(TokColon, "':'")
			b.Sink = p.parseBoolValue()
		case TokMemory:
			p.advance()
			p.expect(TokColon, "':'")
			b.Memory = p.parseBoolValue()
		case TokConcurrency:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				b.Concurrency = &v
			}
		case TokOutlierDetection:
			p.advance()
			p.expect(TokColon, "':'")
			b.OutlierDetection = p.parseBoolValue()
		case TokCvThreshold:
			p.advance()
			p.expect(TokColon, "':'")
			b.CVThreshold = p.parseFloatValue()
		case TokCount:
			p.advance()
			p.expect(TokColon, "':'")
			if t, ok := p.accept(TokNumber); ok {
				v := t.Number
				b.Count = &v
			}
		default:
			if lang, ok := normalizeLang(p.kind()); ok {
				p.advance()
				p.expect(TokColon, "':'")
				if p.check(TokLBrace) {
					lb2 := p.cur()
					inner, _, next, _ := ReadBalancedBlock(p.src, lb2.Span.Start)
					b.Implementations[lang] = inner
					b.Async[lang] = async
					p.seekPast(next)
				} else {
					inner, _ := p.readLangImplementation()
					b.Implementations[lang] = inner
					b.Async[lang] = async
				}
			} else {
				p.errAt(p.cur().Span, "unexpected token in benchmark body")
				p.syncTo(TokDescription, TokIterations, TokWarmup, TokTimeout, TokTags,
					TokSkip, TokValidate, TokBefore, TokAfter, TokEach,
					TokMode, TokTargetTime, TokMinIterations, TokMaxIterations,
					TokSink, TokMemory, TokConcurrency, TokOutlierDetection, TokCvThreshold, TokCount,
					TokRBrace)
			}
		}
		if p.pos == before {
			p.advance()
		}
	}
	rb, _ := p.expect(TokRBrace, "'}'")
	b.Span = joinSpans(startTok.Span, rb.Span)
	return b
}

func (p *Parser) parsePerLangCode(what string, dst map[Lang]string) {
	p.advance() // the keyword itself
	p.expect(TokColon, "':'")
	if lang, ok := normalizeLang(p.kind()); ok {
		p.advance()
		p.expect(TokColon, "':'")
		if lb, ok := p.expect(TokLBrace, "'{'"); ok {
			inner, _, next, _ := ReadBalancedBlock(p.src, lb.Span.Start)
			dst[lang] = inner
			p.seekPast(next)
			return
		}
	}
	p.errAt(p.cur().Span, "expected a language tag after '%s:'", what)
}
