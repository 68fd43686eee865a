package lsp

import (
	"context"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/jpequegn/polybench/internal/dsl"
)

const validSrc = `suite hash {
  iterations: 100
  fixture data { hex: "deadbeef" }
  bench k { go: hash.Keccak256(data)
            ts: keccak256(data) }
}`

const brokenSrc = `suite hash {
  bogus nonsense here
  bench k { go: hash.Keccak256(data) }
}`

type capturingNotifier struct {
	mu   sync.Mutex
	last *protocol.PublishDiagnosticsParams
}

func (c *capturingNotifier) PublishDiagnostics(params *protocol.PublishDiagnosticsParams) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = params
}

func (c *capturingNotifier) diagnostics() []protocol.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	return c.last.Diagnostics
}

func newTestServer(t *testing.T, notifier Notifier) *Server {
	t.Helper()
	return NewServer(afero.NewMemMapFs(), zap.NewNop(), "/work/.polybench/runtime-env", notifier)
}

func TestDidOpen_ValidSourceProducesNoDiagnostics(t *testing.T) {
	notifier := &capturingNotifier{}
	s := newTestServer(t, notifier)

	uri := protocol.DocumentURI("file:///a.bench")
	err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: validSrc},
	})
	if err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	if diags := notifier.diagnostics(); len(diags) != 0 {
		t.Errorf("diagnostics = %+v, want none", diags)
	}
}

func TestDidOpen_MalformedSourceProducesErrorDiagnostic(t *testing.T) {
	notifier := &capturingNotifier{}
	s := newTestServer(t, notifier)

	uri := protocol.DocumentURI("file:///b.bench")
	if err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: brokenSrc},
	}); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	diags := notifier.diagnostics()
	if len(diags) == 0 {
		t.Fatal("expected at least one diagnostic for malformed source")
	}
	if diags[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want Error", diags[0].Severity)
	}
}

func TestDidChange_UpdatesStoredDocumentAndVersion(t *testing.T) {
	notifier := &capturingNotifier{}
	s := newTestServer(t, notifier)
	uri := protocol.DocumentURI("file:///c.bench")

	if err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: brokenSrc},
	}); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}

	err := s.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: validSrc}},
	})
	if err != nil {
		t.Fatalf("DidChange: %v", err)
	}
	if diags := notifier.diagnostics(); len(diags) != 0 {
		t.Errorf("diagnostics after fixing source = %+v, want none", diags)
	}

	v, ok := s.docs.Load(uri)
	if !ok {
		t.Fatal("document missing after DidChange")
	}
	doc := v.(*Document)
	if doc.Version != 2 {
		t.Errorf("Version = %d, want 2", doc.Version)
	}
	if doc.IR == nil {
		t.Error("IR not populated after a valid DidChange")
	}
}

func TestDidChange_UnopenedDocumentReturnsError(t *testing.T) {
	s := newTestServer(t, &capturingNotifier{})
	err := s.DidChange(context.Background(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///never-opened.bench"},
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: validSrc}},
	})
	if err == nil {
		t.Fatal("expected an error for an unopened document")
	}
}

func TestDidClose_RemovesDocumentAndVirtualFiles(t *testing.T) {
	s := newTestServer(t, &capturingNotifier{})
	uri := protocol.DocumentURI("file:///d.bench")

	if err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: validSrc},
	}); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	// Force a virtual file to exist before closing.
	v, _ := s.docs.Load(uri)
	doc := v.(*Document)
	text, f, _ := doc.snapshot()
	if _, err := s.vfiles.GetOrCreate(f, text, string(uri), string(uri), dsl.LangGo); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, ok := s.vfiles.Get(string(uri), dsl.LangGo); !ok {
		t.Fatal("expected a cached virtual file before close")
	}

	if err := s.DidClose(context.Background(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}); err != nil {
		t.Fatalf("DidClose: %v", err)
	}
	if _, ok := s.docs.Load(uri); ok {
		t.Error("document still present after DidClose")
	}
	if _, ok := s.vfiles.Get(string(uri), dsl.LangGo); ok {
		t.Error("virtual file still cached after DidClose")
	}
}

func TestHover_FallsBackToDomainDocumentationOutsideAnyBlock(t *testing.T) {
	s := newTestServer(t, &capturingNotifier{})
	uri := protocol.DocumentURI("file:///e.bench")
	if err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: validSrc},
	}); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}

	// validSrc's first line is "suite hash {" - position 0,0 lands on
	// the "suite" keyword, well outside any embedded code block.
	hover, err := s.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	if err != nil {
		t.Fatalf("Hover: %v", err)
	}
	if hover == nil {
		t.Fatal("expected fallback domain documentation, got nil")
	}
	if hover.Contents.Value != domainDocs["suite"] {
		t.Errorf("hover text = %q, want %q", hover.Contents.Value, domainDocs["suite"])
	}
}

func TestHover_NoResultForUnknownWordOutsideAnyBlock(t *testing.T) {
	s := newTestServer(t, &capturingNotifier{})
	uri := protocol.DocumentURI("file:///f.bench")
	src := `suite xyz {
  bench k { go: doWork() }
}`
	if err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: src},
	}); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	// "xyz" the suite name isn't a DSL keyword.
	hover, err := s.Hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 6},
		},
	})
	if err != nil {
		t.Fatalf("Hover: %v", err)
	}
	if hover != nil {
		t.Errorf("expected nil hover for a non-keyword word, got %+v", hover)
	}
}

func TestFormatting_DeclinesOnMalformedSource(t *testing.T) {
	s := newTestServer(t, &capturingNotifier{})
	uri := protocol.DocumentURI("file:///g.bench")
	if err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: brokenSrc},
	}); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	edits, err := s.Formatting(context.Background(), &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	if err != nil {
		t.Fatalf("Formatting: %v", err)
	}
	if edits != nil {
		t.Errorf("expected no edits for malformed source, got %+v", edits)
	}
}

func TestWordAt_FindsIdentifierBoundaries(t *testing.T) {
	text := "suite hash_thing { }"
	if got := wordAt(text, 7); got != "hash_thing" {
		t.Errorf("wordAt = %q, want hash_thing", got)
	}
	if got := wordAt(text, 0); got != "suite" {
		t.Errorf("wordAt = %q, want suite", got)
	}
}
