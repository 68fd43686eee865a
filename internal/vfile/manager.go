package vfile

import (
	"fmt"
	"path"
	"sync"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/cache"
	"github.com/jpequegn/polybench/internal/dsl"
)

// cacheKey is the composite key a Manager indexes virtual files by,
// matching the original manager's `"{bench_uri}\0{lang:?}"` scheme.
func cacheKey(benchURI string, lang dsl.Lang) string {
	return fmt.Sprintf("%s\x00%s", benchURI, lang)
}

// entry is what the Manager keeps per (bench URI, lang): the built
// virtual file plus the source hash it was built from, so a repeat
// GetOrCreate for an unchanged bench file is a cache hit rather than a
// version bump (spec §3: "versions increase monotonically per bench
// URI" — only on an actual content change).
type entry struct {
	file       *File
	sourceHash string
}

// Manager owns every virtual file for a workspace: it builds them, caches
// them keyed by (bench URI, lang), writes them to disk under
// runtimeEnvDir, and deletes them on didClose / cache-clear (spec §3's
// ownership note: "virtual files are owned by the virtual-file manager
// and deleted from disk when the bench file is closed or the cache is
// cleared for that language"). Grounded on
// original_source/poly-bench-lsp-v2/src/virtual_files.rs's
// VirtualFileManagers for the cache-key/invalidation shape; the actual
// file content comes from Build, grounded on the older, concrete
// src/lsp/virtual_files.rs.
type Manager struct {
	fs            afero.Fs
	runtimeEnvDir string

	mu    sync.Mutex
	files map[string]*entry
}

// NewManager builds a Manager that writes virtual files under
// runtimeEnvDir (normally `.polybench/runtime-env`).
func NewManager(fs afero.Fs, runtimeEnvDir string) *Manager {
	return &Manager{fs: fs, runtimeEnvDir: runtimeEnvDir, files: make(map[string]*entry)}
}

// GetOrCreate returns the virtual file for (benchURI, lang), rebuilding
// and rewriting it to disk only when source has changed since the last
// call (or there's no cached entry yet). On rebuild, Version increases
// by one over the previous entry's version.
func (m *Manager) GetOrCreate(file *dsl.File, source, benchURI, benchPath string, lang dsl.Lang) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cacheKey(benchURI, lang)
	hash := cache.HashSource(source)

	if existing, ok := m.files[key]; ok && existing.sourceHash == hash {
		return existing.file, nil
	}

	version := 1
	if existing, ok := m.files[key]; ok {
		version = existing.file.Version + 1
	}

	vf := Build(file, source, benchURI, benchPath, lang, version)
	fullPath := path.Join(m.runtimeEnvDir, vf.Path)
	if err := m.fs.MkdirAll(path.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("vfile: creating %s: %w", path.Dir(fullPath), err)
	}
	if err := afero.WriteFile(m.fs, fullPath, []byte(vf.Content), 0o644); err != nil {
		return nil, fmt.Errorf("vfile: writing %s: %w", fullPath, err)
	}

	m.files[key] = &entry{file: vf, sourceHash: hash}
	return vf, nil
}

// Get returns the previously built virtual file for (benchURI, lang),
// if one exists, without building or writing anything.
func (m *Manager) Get(benchURI string, lang dsl.Lang) (*File, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.files[cacheKey(benchURI, lang)]
	if !ok {
		return nil, false
	}
	return e.file, true
}

// RemoveAll deletes every virtual file for benchURI (every language),
// both from the cache and from disk (spec §3: "deleted from disk when
// the bench file is closed").
func (m *Manager) RemoveAll(benchURI string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.files {
		if e.file.BenchURI != benchURI {
			continue
		}
		if err := m.removeFromDisk(e.file); err != nil {
			return err
		}
		delete(m.files, key)
	}
	return nil
}

// ClearForLang deletes every cached virtual file for lang, across all
// bench files, e.g. when that language's toolchain config changes.
func (m *Manager) ClearForLang(lang dsl.Lang) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.files {
		if e.file.Lang != lang {
			continue
		}
		if err := m.removeFromDisk(e.file); err != nil {
			return err
		}
		delete(m.files, key)
	}
	return nil
}

// ClearAll deletes every cached virtual file, from the cache and disk.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.files {
		if err := m.removeFromDisk(e.file); err != nil {
			return err
		}
		delete(m.files, key)
	}
	return nil
}

// removeFromDisk is best-effort: a virtual file that's already gone
// (or was never written, e.g. a build failure before the write) isn't
// an error worth surfacing, since the in-memory cache entry is what
// GetOrCreate actually relies on for staleness checks.
func (m *Manager) removeFromDisk(vf *File) error {
	fullPath := path.Join(m.runtimeEnvDir, vf.Path)
	_ = m.fs.Remove(fullPath)
	return nil
}
