// Package lspclient maintains one long-lived JSON-RPC client per host
// language server (gopls, rust-analyzer, tsserver/typescript-language-server),
// spawned lazily on first use (spec §4.M). Grounded on
// original_source/poly-bench-lsp-v2/src/gopls_client.rs's generic
// LspClient<Config> pattern, generalized here from one hardcoded
// config (gopls) to a small per-language table.
package lspclient

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/jpequegn/polybench/internal/dsl"
)

// Client is a workspace-scoped connection to one host language server.
// Every method is safe to call before the server has actually been
// spawned: the first call triggers binary discovery and initialize
// (spec §4.M: "the client is lazy").
type Client interface {
	// DidOpen tells the host server about (or updates the content of) a
	// virtual file.
	DidOpen(ctx context.Context, uri protocol.DocumentURI, languageID string, version int32, text string) error
	// DidChange pushes new content for an already-open virtual file.
	DidChange(ctx context.Context, uri protocol.DocumentURI, version int32, text string) error
	// Hover forwards a hover request at the given position.
	Hover(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) (*protocol.Hover, error)
	// Completion forwards a completion request at the given position.
	Completion(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) (*protocol.CompletionList, error)
	// Close stops the underlying subprocess, if one was ever spawned.
	Close() error
}

// Config names one host language server: its binary, LSP languageId,
// and spawn arguments.
type Config struct {
	ServerName string
	LanguageID string
	Args       []string
}

// configFor returns the host language server config for lang, grounded
// on spec §4.M's named binaries.
func configFor(lang dsl.Lang) (Config, bool) {
	switch lang {
	case dsl.LangGo:
		return Config{ServerName: "gopls", LanguageID: "go", Args: []string{"serve"}}, true
	case dsl.LangRust:
		return Config{ServerName: "rust-analyzer", LanguageID: "rust"}, true
	case dsl.LangTypeScript:
		return Config{ServerName: "typescript-language-server", LanguageID: "typescript", Args: []string{"--stdio"}}, true
	default:
		return Config{}, false
	}
}

// New builds a lazy Client for lang's host language server. It returns
// an error only when lang has no known host server (spec §4.M only
// names gopls/rust-analyzer/tsserver); the returned error for a missing
// binary surfaces later, on first actual use, not here.
func New(lang dsl.Lang) (Client, error) {
	cfg, ok := configFor(lang)
	if !ok {
		return nil, errUnsupportedLang(lang)
	}
	return &process{cfg: cfg, workspaceRoot: "."}, nil
}
