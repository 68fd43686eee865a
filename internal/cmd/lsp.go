package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jpequegn/polybench/internal/lsp"
)

// lspCmd starts the editor-facing language server over stdio (spec
// §4.L). Logging cannot share stdio with the JSON-RPC transport, so it
// goes to a file under the runtime-env directory instead of stderr.
var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the .bench language server over stdio",
	RunE:  runLSP,
}

func init() {
	rootCmd.AddCommand(lspCmd)
}

func runLSP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.RuntimeEnvDir, 0o755); err != nil {
		return &ExitCodeError{Code: 2, Err: fmt.Errorf("creating runtime-env dir: %w", err)}
	}

	logPath := filepath.Join(cfg.RuntimeEnvDir, "lsp.log")
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{logPath}
	zlog, err := zcfg.Build()
	if err != nil {
		zlog = zap.NewNop()
	}
	defer zlog.Sync()

	srv := lsp.NewServer(fs, zlog, cfg.RuntimeEnvDir, nil)

	watcher, err := lsp.NewFileWatcher(srv)
	if err != nil {
		zlog.Sugar().Warnw("starting file watcher", "error", err)
	} else {
		srv.SetWatcher(watcher)
		defer watcher.Close()
	}

	return lsp.Serve(ctx, srv, stdio{})
}

// stdio adapts os.Stdin/os.Stdout to io.ReadWriteCloser for the JSON-RPC
// transport, the same pairing gopls and other LSP servers use for their
// stdio mode.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error {
	_ = os.Stdin.Close()
	return os.Stdout.Close()
}
