package lsp

import (
	"context"
	"encoding/json"
	"io"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Serve runs the server's JSON-RPC-over-stdio loop until rwc closes or
// ctx is canceled, dispatching each request/notification to the
// matching Server method (spec §4.L). It blocks until the connection
// ends, so callers normally run it in its own goroutine.
func Serve(ctx context.Context, s *Server, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)
	s.notifier = &connNotifier{conn: conn}

	conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		return s.dispatch(ctx, conn, reply, req)
	})

	<-conn.Done()
	return conn.Err()
}

// connNotifier publishes diagnostics over an active jsonrpc2.Conn.
type connNotifier struct {
	conn jsonrpc2.Conn
}

func (n *connNotifier) PublishDiagnostics(params *protocol.PublishDiagnosticsParams) {
	_ = n.conn.Notify(context.Background(), protocol.MethodTextDocumentPublishDiagnostics, params)
}

// dispatch decodes req's params for the methods this server handles and
// calls the matching Server method. Unknown methods and notifications
// this server doesn't care about are acknowledged with an empty result,
// matching spec §4.L's note that unsupported requests never hang the
// client waiting on a reply.
func (s *Server) dispatch(ctx context.Context, conn jsonrpc2.Conn, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case protocol.MethodInitialize:
		var params protocol.InitializeParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result, err := s.Initialize(ctx, &params)
		return reply(ctx, result, err)

	case protocol.MethodInitialized:
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			s.logger.Warnw("decoding didOpen", "error", err)
			return nil
		}
		if err := s.DidOpen(ctx, &params); err != nil {
			s.logger.Warnw("didOpen", "error", err)
		}
		return nil

	case protocol.MethodTextDocumentDidChange:
		var params protocol.DidChangeTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			s.logger.Warnw("decoding didChange", "error", err)
			return nil
		}
		if err := s.DidChange(ctx, &params); err != nil {
			s.logger.Warnw("didChange", "error", err)
		}
		return nil

	case protocol.MethodTextDocumentDidSave:
		var params protocol.DidSaveTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			s.logger.Warnw("decoding didSave", "error", err)
			return nil
		}
		if err := s.DidSave(ctx, &params); err != nil {
			s.logger.Warnw("didSave", "error", err)
		}
		return nil

	case protocol.MethodTextDocumentDidClose:
		var params protocol.DidCloseTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			s.logger.Warnw("decoding didClose", "error", err)
			return nil
		}
		if err := s.DidClose(ctx, &params); err != nil {
			s.logger.Warnw("didClose", "error", err)
		}
		return nil

	case protocol.MethodTextDocumentHover:
		var params protocol.HoverParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result, err := s.Hover(ctx, &params)
		return reply(ctx, result, err)

	case protocol.MethodTextDocumentCompletion:
		var params protocol.CompletionParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result, err := s.Completion(ctx, &params)
		return reply(ctx, result, err)

	case protocol.MethodTextDocumentFormatting:
		var params protocol.DocumentFormattingParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result, err := s.Formatting(ctx, &params)
		return reply(ctx, result, err)

	case protocol.MethodTextDocumentSemanticTokensFull:
		var params protocol.SemanticTokensParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		result, err := s.SemanticTokens(ctx, &params)
		return reply(ctx, result, err)

	case protocol.MethodShutdown:
		return reply(ctx, nil, nil)

	case protocol.MethodExit:
		return conn.Close()

	default:
		// Reply is a no-op for plain notifications in this transport, so
		// it's safe to call unconditionally for any method this server
		// doesn't recognize.
		return reply(ctx, nil, nil)
	}
}
