// Package lsp implements the editor-facing language server: a document
// store, diagnostics, hover, completion, semantic tokens, and
// formatting for .bench files (spec §4.L). It forwards hover and
// completion requests that land inside an embedded code block to the
// matching host language server via internal/lspclient, using
// internal/vfile to translate positions in both directions.
package lsp

import (
	"sync"

	"github.com/spf13/afero"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
	"github.com/jpequegn/polybench/internal/lspclient"
	"github.com/jpequegn/polybench/internal/vfile"
)

// SemanticTokenTypes and SemanticTokenModifiers are the legend spec §6
// mandates, in the exact order semanticTokens/full must encode indices
// against.
var SemanticTokenTypes = []string{
	"keyword", "type", "function", "variable", "string", "number",
	"comment", "property", "namespace", "parameter", "operator",
}

var SemanticTokenModifiers = []string{
	"definition", "declaration", "readonly", "static",
}

// Document is one open .bench file. Each Document has its own lock so
// requests against different documents never block each other (spec
// §5: "each document is protected by its own lock").
type Document struct {
	mu sync.Mutex

	URI     protocol.DocumentURI
	Version int32
	Text    string

	AST *dsl.File
	IR  *ir.BenchmarkIR // nil when lowering failed
}

// snapshot returns a consistent (text, ast, ir) triple under the
// document's lock.
func (d *Document) snapshot() (string, *dsl.File, *ir.BenchmarkIR) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Text, d.AST, d.IR
}

// Notifier publishes diagnostics for a document; Serve wires this to a
// jsonrpc2 notification, tests wire it to a capturing stub.
type Notifier interface {
	PublishDiagnostics(params *protocol.PublishDiagnosticsParams)
}

// Server holds all LSP-server-owned state: the document map (spec §5:
// "concurrent map keyed by URI"), the virtual-file bridge, and one lazy
// host-language client per target language.
type Server struct {
	logger *zap.SugaredLogger
	fs     afero.Fs

	docs sync.Map // protocol.DocumentURI -> *Document

	vfiles        *vfile.Manager
	runtimeEnvDir string

	hostClientsMu sync.Mutex
	hostClients   map[dsl.Lang]lspclient.Client
	newHostClient func(lang dsl.Lang) (lspclient.Client, error)

	notifier Notifier
	watcher  *FileWatcher
}

// SetWatcher attaches a FileWatcher so didOpen/didChange/didClose keep
// its watch set in sync with each document's fixture references.
// Optional: a Server with no watcher just skips the sync calls.
func (s *Server) SetWatcher(w *FileWatcher) { s.watcher = w }

// NewServer builds a Server. runtimeEnvDir is where virtual files are
// written (normally `.polybench/runtime-env`, shared with the
// scheduler's on-disk layout, spec §6). A nil logger is replaced by a
// no-op one; in production it's a sugared file logger writing to `.polybench/lsp.log`,
// since stdio here carries the JSON-RPC transport and can't also carry
// log output (spec §4.L ambient-stack note).
func NewServer(fs afero.Fs, logger *zap.Logger, runtimeEnvDir string, notifier Notifier) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:        logger.Sugar(),
		fs:            fs,
		vfiles:        vfile.NewManager(fs, runtimeEnvDir),
		runtimeEnvDir: runtimeEnvDir,
		hostClients:   make(map[dsl.Lang]lspclient.Client),
		newHostClient: lspclient.New,
		notifier:      notifier,
	}
}
