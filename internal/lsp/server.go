package lsp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.lsp.dev/protocol"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
	"github.com/jpequegn/polybench/internal/lspclient"
	"github.com/jpequegn/polybench/internal/synth"
	"github.com/jpequegn/polybench/internal/validator"
)

// hostRequestTimeout bounds every request forwarded to a host language
// server, so a wedged gopls/rust-analyzer/tsserver never blocks the
// main document loop (spec §5: "the main loop never blocks on the host
// server"; §4.L: "per-request timeouts").
const hostRequestTimeout = 2 * time.Second

// domainDocs answers hover requests that land outside any embedded code
// block, on DSL keywords the host language servers have no notion of
// (spec §4.L: "fallback domain documentation").
var domainDocs = map[string]string{
	"suite":       "A suite groups related benchmarks and shares setup, fixtures, and defaults.",
	"bench":       "bench declares one measured operation, with one implementation per host language.",
	"fixture":     "A fixture supplies benchmark input data: an inline literal, a hex byte string, a referenced file, or a per-language generator function.",
	"setup":       "Setup declares per-language imports, declarations, helpers, and one-time init code shared by every benchmark in the suite.",
	"globalSetup": "globalSetup runs once per run, before any suite, typically to spawn a local Anvil chain.",
	"skip":        "skip guards a benchmark implementation with a per-language boolean expression; a true result excludes that language from the run.",
	"validate":    "validate checks a benchmark implementation's result after measurement; a false result marks the run a failure without discarding the timing.",
	"before":      "before runs once per language before the measured loop starts.",
	"after":       "after runs once per language after the measured loop ends.",
	"each":        "each runs once per language per iteration, outside the timed region.",
}

// Initialize reports the capabilities this server advertises (spec
// §4.L): full text sync, hover, completion, formatting, and semantic
// tokens using the legend spec §6 names.
func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider:              true,
			CompletionProvider:         &protocol.CompletionOptions{TriggerCharacters: []string{".", ":"}},
			DocumentFormattingProvider: true,
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: true,
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: "polybench-lsp"},
	}, nil
}

func (s *Server) hostClient(lang dsl.Lang) (lspclient.Client, error) {
	s.hostClientsMu.Lock()
	defer s.hostClientsMu.Unlock()
	if c, ok := s.hostClients[lang]; ok {
		return c, nil
	}
	c, err := s.newHostClient(lang)
	if err != nil {
		return nil, err
	}
	s.hostClients[lang] = c
	return c, nil
}

// DidOpen registers a new document and publishes its first diagnostics.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := &Document{URI: params.TextDocument.URI, Version: params.TextDocument.Version}
	s.docs.Store(doc.URI, doc)
	s.refresh(ctx, doc, params.TextDocument.Text, true)
	return nil
}

// DidChange replaces a document's full text (spec advertises full sync,
// matching vfile.Manager's whole-source rebuild model) and republishes
// diagnostics, excluding the cross-language synth check.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	v, ok := s.docs.Load(params.TextDocument.URI)
	if !ok {
		return fmt.Errorf("lsp: didChange for unopened document %s", params.TextDocument.URI)
	}
	doc := v.(*Document)
	if len(params.ContentChanges) == 0 {
		return nil
	}
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.refresh(ctx, doc, text, false)
	doc.mu.Lock()
	doc.Version = params.TextDocument.Version
	doc.mu.Unlock()
	return nil
}

// DidSave republishes diagnostics including the cross-language synth
// check, which is too expensive to run on every keystroke (spec §4.L:
// "didSave including the expensive cross-language-compile path").
func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	v, ok := s.docs.Load(params.TextDocument.URI)
	if !ok {
		return nil
	}
	doc := v.(*Document)
	text, _, _ := doc.snapshot()
	s.refresh(ctx, doc, text, true)
	return nil
}

// DidClose forgets a document and drops every virtual file derived from
// it, across every host language (spec §5: "virtual files... deleted on
// close").
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.docs.Delete(params.TextDocument.URI)
	if s.watcher != nil {
		s.watcher.Forget(params.TextDocument.URI)
	}
	return s.vfiles.RemoveAll(string(params.TextDocument.URI))
}

// refresh reparses and relowers doc's text, stores the result, and
// publishes fresh diagnostics. includeSynthCheck gates the expensive
// per-language template synthesis pass.
func (s *Server) refresh(ctx context.Context, doc *Document, text string, includeSynthCheck bool) {
	f := dsl.Parse(text)

	var lowered *ir.BenchmarkIR
	var lowerDiags []ir.Diagnostic
	var validateDiags []validator.Diagnostic
	if !f.HasErrors() {
		lowered, lowerDiags = ir.Lower(s.fs, f, ".")
		if lowered != nil {
			validateDiags = validator.Validate(lowered, f)
		}
	}

	doc.mu.Lock()
	doc.Text = text
	doc.AST = f
	doc.IR = lowered
	doc.mu.Unlock()

	if s.watcher != nil {
		s.watcher.Sync(doc.URI, benchPathFromURI(doc.URI), f)
	}

	var diags []protocol.Diagnostic
	for _, pe := range f.ParseErrors {
		diags = append(diags, spanDiagnostic(pe.Span, pe.Message, protocol.DiagnosticSeverityError))
	}
	for _, d := range lowerDiags {
		diags = append(diags, spanDiagnostic(d.Span, d.Message, protocol.DiagnosticSeverityError))
	}
	for _, d := range validateDiags {
		sev := protocol.DiagnosticSeverityError
		if d.Severity == validator.SeverityWarning {
			sev = protocol.DiagnosticSeverityWarning
		}
		diags = append(diags, spanDiagnostic(d.Span, d.Message, sev))
	}
	if includeSynthCheck && lowered != nil {
		diags = append(diags, s.synthCheckDiagnostics(lowered)...)
	}

	if s.notifier != nil {
		s.notifier.PublishDiagnostics(&protocol.PublishDiagnosticsParams{
			URI:         doc.URI,
			Diagnostics: diags,
		})
	}
}

// synthCheckDiagnostics runs every benchmark's implementation through
// its per-language template, surfacing template-level errors (e.g. a
// missing required hook) without shelling out to a real toolchain —
// that full compile is the scheduler's job, not the editor's.
func (s *Server) synthCheckDiagnostics(file *ir.BenchmarkIR) []protocol.Diagnostic {
	var diags []protocol.Diagnostic
	for _, suite := range file.Suites {
		for _, bm := range suite.Benchmarks {
			for lang := range bm.Implementations {
				tmpl, ok := synth.ForLang(lang)
				if !ok {
					continue
				}
				if _, err := tmpl.Synthesize(bm, suite, file); err != nil {
					diags = append(diags, protocol.Diagnostic{
						Range:    protocol.Range{},
						Severity: protocol.DiagnosticSeverityError,
						Source:   "polybench-synth",
						Message:  fmt.Sprintf("%s (%s): %v", bm.FullName, lang, err),
					})
				}
			}
		}
	}
	return diags
}

func spanDiagnostic(span dsl.Span, message string, sev protocol.DiagnosticSeverity) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(span.StartLine), Character: uint32(span.StartCol)},
			End:   protocol.Position{Line: uint32(span.EndLine), Character: uint32(span.EndCol)},
		},
		Severity: sev,
		Source:   "polybench",
		Message:  message,
	}
}

// Hover answers a hover request either from fallback domain
// documentation, when the position falls outside any embedded code
// block, or by synthesizing the virtual file for the block's language
// and forwarding to that host server (spec §4.L).
func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	v, ok := s.docs.Load(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	doc := v.(*Document)
	text, f, _ := doc.snapshot()
	if f == nil {
		return nil, nil
	}

	offset := offsetForPosition(text, params.Position)
	for _, blk := range f.Blocks() {
		if !blk.Span.Contains(offset) {
			continue
		}
		return s.forwardHover(ctx, doc, text, f, blk.Lang, offset)
	}

	word := wordAt(text, offset)
	if docText, ok := domainDocs[word]; ok {
		return &protocol.Hover{
			Contents: protocol.MarkupContent{Kind: protocol.PlainText, Value: docText},
		}, nil
	}
	return nil, nil
}

func (s *Server) forwardHover(ctx context.Context, doc *Document, text string, f *dsl.File, lang dsl.Lang, offset int) (*protocol.Hover, error) {
	vf, err := s.vfiles.GetOrCreate(f, text, string(doc.URI), string(doc.URI), lang)
	if err != nil {
		s.logger.Warnw("building virtual file failed", "lang", lang, "err", err)
		return nil, nil
	}
	line, col, ok := vf.BenchToVirtual(offset)
	if !ok {
		return nil, nil
	}

	client, err := s.hostClient(lang)
	if err != nil {
		s.logger.Warnw("no host client available", "lang", lang, "err", err)
		return nil, nil
	}

	hctx, cancel := context.WithTimeout(ctx, hostRequestTimeout)
	defer cancel()

	if err := client.DidOpen(hctx, protocol.DocumentURI(vf.URI), string(lang), int32(vf.Version), vf.Content); err != nil {
		s.logger.Warnw("forwarding didOpen to host server failed", "lang", lang, "err", err)
		return nil, nil
	}
	hover, err := client.Hover(hctx, protocol.DocumentURI(vf.URI), protocol.Position{Line: uint32(line), Character: uint32(col)})
	if err != nil {
		s.logger.Warnw("host hover timed out or failed", "lang", lang, "err", err)
		return nil, nil
	}
	return hover, nil
}

// Completion forwards to the host server for the block's language,
// same as Hover; outside any block it returns a keyword/value list
// scoped to the enclosing construct (spec §4.L: context-sensitive
// completion, not a flat keyword dump).
func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	v, ok := s.docs.Load(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	doc := v.(*Document)
	text, f, _ := doc.snapshot()
	if f == nil {
		return nil, nil
	}

	offset := offsetForPosition(text, params.Position)
	for _, blk := range f.Blocks() {
		if !blk.Span.Contains(offset) {
			continue
		}
		vf, err := s.vfiles.GetOrCreate(f, text, string(doc.URI), string(doc.URI), blk.Lang)
		if err != nil {
			return nil, nil
		}
		line, col, ok := vf.BenchToVirtual(offset)
		if !ok {
			return nil, nil
		}
		client, err := s.hostClient(blk.Lang)
		if err != nil {
			return nil, nil
		}
		hctx, cancel := context.WithTimeout(ctx, hostRequestTimeout)
		defer cancel()
		if err := client.DidOpen(hctx, protocol.DocumentURI(vf.URI), string(blk.Lang), int32(vf.Version), vf.Content); err != nil {
			return nil, nil
		}
		return client.Completion(hctx, protocol.DocumentURI(vf.URI), protocol.Position{Line: uint32(line), Character: uint32(col)})
	}

	return &protocol.CompletionList{Items: domainCompletionItems(text, offset)}, nil
}

// Formatting reformats a whole document using the DSL's canonical
// formatter; it requires a clean parse (spec §4.L: formatting is
// best-effort and declines on a broken document rather than mangling
// it further).
func (s *Server) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	v, ok := s.docs.Load(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	doc := v.(*Document)
	text, f, _ := doc.snapshot()
	if f == nil || f.HasErrors() {
		return nil, nil
	}
	formatted := dsl.Format(f)
	if formatted == text {
		return nil, nil
	}
	lines := strings.Count(text, "\n") + 1
	return []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: uint32(lines), Character: 0},
		},
		NewText: formatted,
	}}, nil
}

func offsetForPosition(text string, pos protocol.Position) int {
	line, col := 0, 0
	for i, r := range text {
		if line == int(pos.Line) && col == int(pos.Character) {
			return i
		}
		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return len(text)
}

func wordAt(text string, offset int) string {
	if offset < 0 || offset > len(text) {
		return ""
	}
	isWord := func(b byte) bool {
		return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}
	start, end := offset, offset
	for start > 0 && isWord(text[start-1]) {
		start--
	}
	for end < len(text) && isWord(text[end]) {
		end++
	}
	return text[start:end]
}
