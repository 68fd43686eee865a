package lsp

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.lsp.dev/protocol"

	"github.com/jpequegn/polybench/internal/dsl"
)

// FileWatcher watches a document's own path and every `@file()`
// fixture reference it contains, so an edit made outside the editor
// (a fixture regenerated by some other tool, or the .bench file itself
// touched by a VCS checkout) re-triggers diagnostics without waiting
// for the editor's own didChange. This is the SPEC_FULL ambient-stack
// pairing for fsnotify — already an indirect teacher dependency via
// viper — promoted to a direct, exercised one.
type FileWatcher struct {
	srv *Server

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	watched map[protocol.DocumentURI]map[string]bool // docURI -> set of watched paths

	cancel context.CancelFunc
}

// NewFileWatcher starts the underlying fsnotify watcher and its event
// loop. Call Close to stop it.
func NewFileWatcher(srv *Server) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	fw := &FileWatcher{
		srv:     srv,
		watcher: w,
		watched: make(map[protocol.DocumentURI]map[string]bool),
		cancel:  cancel,
	}
	go fw.loop(ctx)
	return fw, nil
}

// Close stops the event loop and releases the underlying inotify/kqueue
// handles.
func (fw *FileWatcher) Close() error {
	fw.cancel()
	return fw.watcher.Close()
}

// Sync replaces the set of paths watched on behalf of docURI with the
// fixture file references extracted from f, plus benchPath itself (when
// non-empty — an untitled/virtual document has none). Paths no longer
// referenced are unwatched; already-watched paths are left alone so a
// fixture shared by two suites isn't double-added.
func (fw *FileWatcher) Sync(docURI protocol.DocumentURI, benchPath string, f *dsl.File) {
	if f == nil {
		return
	}
	benchDir := "."
	if benchPath != "" {
		benchDir = filepath.Dir(benchPath)
	}

	want := make(map[string]bool)
	if benchPath != "" {
		want[benchPath] = true
	}
	for _, suite := range f.Suites {
		for _, fx := range suite.Fixtures {
			if fx.HexFile == nil {
				continue
			}
			path := fx.HexFile.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(benchDir, path)
			}
			want[path] = true
		}
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	prev := fw.watched[docURI]
	for path := range want {
		if prev[path] {
			continue
		}
		_ = fw.watcher.Add(path) // best-effort: a missing fixture file just never fires
	}
	for path := range prev {
		if want[path] {
			continue
		}
		if !fw.stillWatchedElsewhere(docURI, path) {
			_ = fw.watcher.Remove(path)
		}
	}
	fw.watched[docURI] = want
}

// Forget stops watching every path registered for docURI (spec §5:
// virtual-file and watch state alike are dropped on close).
func (fw *FileWatcher) Forget(docURI protocol.DocumentURI) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for path := range fw.watched[docURI] {
		if !fw.stillWatchedElsewhere(docURI, path) {
			_ = fw.watcher.Remove(path)
		}
	}
	delete(fw.watched, docURI)
}

// stillWatchedElsewhere reports whether some other document still
// wants path watched. Caller holds fw.mu.
func (fw *FileWatcher) stillWatchedElsewhere(except protocol.DocumentURI, path string) bool {
	for uri, set := range fw.watched {
		if uri == except {
			continue
		}
		if set[path] {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			fw.onFileChanged(ctx, ev.Name)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			if fw.srv.logger != nil {
				fw.srv.logger.Warnw("fsnotify watcher error", "error", err)
			}
		}
	}
}

// onFileChanged re-publishes diagnostics for every open document that
// watches path: the bench document directly, or any document whose
// fixtures reference it.
func (fw *FileWatcher) onFileChanged(ctx context.Context, path string) {
	fw.mu.Lock()
	affected := make([]protocol.DocumentURI, 0, 1)
	for uri, set := range fw.watched {
		if set[path] {
			affected = append(affected, uri)
		}
	}
	fw.mu.Unlock()

	for _, uri := range affected {
		v, ok := fw.srv.docs.Load(uri)
		if !ok {
			continue
		}
		doc := v.(*Document)
		text, _, _ := doc.snapshot()
		fw.srv.refresh(ctx, doc, text, false)
	}
}

// benchPathFromURI converts a file:// document URI to a filesystem
// path; non-file URIs (rare for .bench documents) return "".
func benchPathFromURI(uri protocol.DocumentURI) string {
	s := string(uri)
	if !strings.HasPrefix(s, "file://") {
		return ""
	}
	return strings.TrimPrefix(s, "file://")
}
