package lspclient

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// process is the concrete, lazily-spawned Client: a subprocess plus a
// JSON-RPC connection over its stdin/stdout. initOnce guards the
// spawn+initialize handshake so concurrent first calls only spawn one
// subprocess (spec §4.M: "the client is lazy: first use triggers
// binary discovery... and initialize").
type process struct {
	cfg           Config
	workspaceRoot string

	initOnce sync.Once
	initErr  error

	cmd  *exec.Cmd
	conn jsonrpc2.Conn

	// sessionID tags every log line this client instance ever produces,
	// so the host server's own log (and ours) can be correlated across
	// a workspace that restarts this client more than once.
	sessionID string

	mu      sync.Mutex
	opened  map[protocol.DocumentURI]bool
	version map[protocol.DocumentURI]int32
}

func (p *process) ensureStarted(ctx context.Context) error {
	p.initOnce.Do(func() {
		p.sessionID = uuid.NewString()

		bin, err := findExecutable(p.cfg.ServerName)
		if err != nil {
			p.initErr = err
			return
		}

		cmd := exec.CommandContext(ctx, bin, p.cfg.Args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			p.initErr = fmt.Errorf("lspclient: stdin pipe for %s: %w", p.cfg.ServerName, err)
			return
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			p.initErr = fmt.Errorf("lspclient: stdout pipe for %s: %w", p.cfg.ServerName, err)
			return
		}
		if err := cmd.Start(); err != nil {
			p.initErr = fmt.Errorf("lspclient: starting %s (session %s): %w", p.cfg.ServerName, p.sessionID, err)
			return
		}
		p.cmd = cmd

		stream := jsonrpc2.NewStream(rwc{bufio.NewReader(stdout), stdin})
		p.conn = jsonrpc2.NewConn(stream)
		p.conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
			// Host servers occasionally send requests back (e.g.
			// workspace/configuration); we have nothing useful to say,
			// so decline politely rather than hanging the host server.
			return reply(ctx, nil, nil)
		})

		initParams := &protocol.InitializeParams{
			ProcessID: int32(cmd.Process.Pid),
			RootURI:   protocol.DocumentURI("file://" + p.workspaceRoot),
			ClientInfo: &protocol.ClientInfo{
				Name:    "polybench",
				Version: p.sessionID,
			},
		}
		var result protocol.InitializeResult
		if _, err := p.conn.Call(ctx, protocol.MethodInitialize, initParams, &result); err != nil {
			p.initErr = fmt.Errorf("lspclient: initialize %s: %w", p.cfg.ServerName, err)
			return
		}
		if err := p.conn.Notify(ctx, protocol.MethodInitialized, &protocol.InitializedParams{}); err != nil {
			p.initErr = fmt.Errorf("lspclient: initialized notify to %s: %w", p.cfg.ServerName, err)
			return
		}

		p.opened = make(map[protocol.DocumentURI]bool)
		p.version = make(map[protocol.DocumentURI]int32)
	})
	return p.initErr
}

func (p *process) DidOpen(ctx context.Context, uri protocol.DocumentURI, languageID string, version int32, text string) error {
	if err := p.ensureStarted(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	p.opened[uri] = true
	p.version[uri] = version
	p.mu.Unlock()

	return p.conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: protocol.LanguageIdentifier(languageID),
			Version:    version,
			Text:       text,
		},
	})
}

func (p *process) DidChange(ctx context.Context, uri protocol.DocumentURI, version int32, text string) error {
	if err := p.ensureStarted(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	alreadyOpen := p.opened[uri]
	p.version[uri] = version
	p.mu.Unlock()
	if !alreadyOpen {
		return p.DidOpen(ctx, uri, p.cfg.LanguageID, version, text)
	}

	return p.conn.Notify(ctx, protocol.MethodTextDocumentDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
}

func (p *process) Hover(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) (*protocol.Hover, error) {
	if err := p.ensureStarted(ctx); err != nil {
		return nil, err
	}
	var result protocol.Hover
	if _, err := p.conn.Call(ctx, protocol.MethodTextDocumentHover, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     pos,
		},
	}, &result); err != nil {
		return nil, fmt.Errorf("lspclient: hover via %s: %w", p.cfg.ServerName, err)
	}
	return &result, nil
}

func (p *process) Completion(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) (*protocol.CompletionList, error) {
	if err := p.ensureStarted(ctx); err != nil {
		return nil, err
	}
	var result protocol.CompletionList
	if _, err := p.conn.Call(ctx, protocol.MethodTextDocumentCompletion, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     pos,
		},
	}, &result); err != nil {
		return nil, fmt.Errorf("lspclient: completion via %s: %w", p.cfg.ServerName, err)
	}
	return &result, nil
}

func (p *process) Close() error {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

// rwc adapts a separate reader and writer into one io.ReadWriteCloser
// for jsonrpc2.NewStream, since a subprocess's stdout and stdin are two
// distinct pipes.
type rwc struct {
	r *bufio.Reader
	w interface {
		Write([]byte) (int, error)
		Close() error
	}
}

func (s rwc) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s rwc) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s rwc) Close() error                { return s.w.Close() }
