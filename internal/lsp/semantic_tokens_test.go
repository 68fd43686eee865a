package lsp

import (
	"context"
	"testing"

	"go.lsp.dev/protocol"
)

// decodeSemanticTokens reverses encodeSemanticTokens's delta encoding
// back into absolute (line, col, length, tokenType) tuples.
func decodeSemanticTokens(data []uint32) []semToken {
	var toks []semToken
	line, col := 0, 0
	for i := 0; i+5 <= len(data); i += 5 {
		deltaLine, deltaCol, length, tokenType := data[i], data[i+1], data[i+2], data[i+3]
		if deltaLine == 0 {
			col += int(deltaCol)
		} else {
			line += int(deltaLine)
			col = int(deltaCol)
		}
		toks = append(toks, semToken{line: line, col: col, length: int(length), tokenType: int(tokenType)})
	}
	return toks
}

func TestSemanticTokens_EmitsFunctionTokenAtBenchmarkName(t *testing.T) {
	s := newTestServer(t, &capturingNotifier{})
	uri := protocol.DocumentURI("file:///bar.bench")
	src := `suite s {
  bench bar { go: doWork() }
}`
	if err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: src},
	}); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}

	result, err := s.SemanticTokens(context.Background(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	if err != nil {
		t.Fatalf("SemanticTokens: %v", err)
	}
	toks := decodeSemanticTokens(result.Data)

	wantLine, wantCol := 1, 8 // "  bench bar" - bar starts at column 8
	found := false
	for _, tok := range toks {
		if tok.tokenType == semFunction && tok.line == wantLine && tok.col == wantCol && tok.length == len("bar") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no function token at %d:%d for benchmark name %q, got %+v", wantLine, wantCol, "bar", toks)
	}
}

func TestSemanticTokens_EmitsKeywordTokenForSuite(t *testing.T) {
	s := newTestServer(t, &capturingNotifier{})
	uri := protocol.DocumentURI("file:///suite-kw.bench")
	src := `suite hash {
  bench k { go: doWork() }
}`
	if err := s.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Version: 1, Text: src},
	}); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}

	result, err := s.SemanticTokens(context.Background(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	if err != nil {
		t.Fatalf("SemanticTokens: %v", err)
	}
	toks := decodeSemanticTokens(result.Data)

	found := false
	for _, tok := range toks {
		if tok.tokenType == semKeyword && tok.line == 0 && tok.col == 0 && tok.length == len("suite") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no keyword token at 0:0 for %q, got %+v", "suite", toks)
	}
}

func TestSemanticTokens_UnopenedDocumentReturnsEmpty(t *testing.T) {
	s := newTestServer(t, &capturingNotifier{})
	result, err := s.SemanticTokens(context.Background(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///never-opened.bench"},
	})
	if err != nil {
		t.Fatalf("SemanticTokens: %v", err)
	}
	if len(result.Data) != 0 {
		t.Errorf("expected no tokens for an unopened document, got %v", result.Data)
	}
}
