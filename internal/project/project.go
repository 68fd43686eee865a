// Package project reads and validates the external project manifest
// (spec §6): a TOML file at the project root naming the project and
// enabling a subset of host languages, with per-language dependency
// sections. This is a thin external-collaborator package (spec §1's
// Non-goals exclude "project scaffolding and manifest management") —
// it only reads and validates an existing manifest, never writes or
// scaffolds one.
package project

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
)

// RustDependency is Cargo's version-plus-features dependency shape,
// the one language spec §6 calls out as needing more than a bare
// version string.
type RustDependency struct {
	Version  string   `toml:"version"`
	Features []string `toml:"features,omitempty"`
}

// Manifest is the decoded project manifest.
type Manifest struct {
	Name      string   `toml:"name"`
	Languages []string `toml:"languages"`

	Go         map[string]string         `toml:"go"`
	TypeScript map[string]string         `toml:"typescript"`
	Rust       map[string]RustDependency `toml:"rust"`
}

// Load reads and decodes the manifest at path. It does not validate;
// call Validate separately so a caller can decide how to present
// problems (LSP diagnostic vs. CLI error).
func Load(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("project: reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("project: parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// knownLanguages is the closed set spec §6 and the rest of the tree
// recognize (internal/dsl.Lang's three host languages).
var knownLanguages = map[string]dsl.Lang{
	"go":         dsl.LangGo,
	"rust":       dsl.LangRust,
	"typescript": dsl.LangTypeScript,
}

// Validate checks structural problems Load can't catch on its own: an
// empty project name, an unknown language name in the enabled list,
// and a duplicate entry in that list. It returns every problem found
// rather than stopping at the first.
func Validate(m *Manifest) []error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, fmt.Errorf("project: manifest is missing a name"))
	}

	seen := make(map[string]bool, len(m.Languages))
	for _, l := range m.Languages {
		if seen[l] {
			errs = append(errs, fmt.Errorf("project: language %q listed more than once", l))
			continue
		}
		seen[l] = true
		if _, ok := knownLanguages[l]; !ok {
			errs = append(errs, fmt.Errorf("project: unknown language %q", l))
		}
	}
	return errs
}

// EnabledLanguages returns the manifest's enabled languages as
// dsl.Lang values, silently dropping any unknown name — callers that
// care about unknown names should run Validate first.
func (m *Manifest) EnabledLanguages() []dsl.Lang {
	out := make([]dsl.Lang, 0, len(m.Languages))
	for _, l := range m.Languages {
		if lang, ok := knownLanguages[l]; ok {
			out = append(out, lang)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DepsFor flattens a language's declared dependencies into the plain
// name->version map internal/synth.EnsureManifest expects. Rust
// dependency features are dropped here: the synthesized Cargo.toml
// EnsureManifest writes is a minimal bootstrap manifest, not a
// round-trip of the user's own Cargo.toml, so only the version string
// carries over.
func (m *Manifest) DepsFor(lang dsl.Lang) map[string]string {
	switch lang {
	case dsl.LangGo:
		return m.Go
	case dsl.LangTypeScript:
		return m.TypeScript
	case dsl.LangRust:
		deps := make(map[string]string, len(m.Rust))
		for name, dep := range m.Rust {
			deps[name] = dep.Version
		}
		return deps
	default:
		return nil
	}
}

// HasLanguage reports whether lang appears in the manifest's enabled
// language list.
func (m *Manifest) HasLanguage(lang dsl.Lang) bool {
	for _, l := range m.EnabledLanguages() {
		if l == lang {
			return true
		}
	}
	return false
}
