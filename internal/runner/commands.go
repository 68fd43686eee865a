package runner

import (
	"fmt"
	"path/filepath"

	"github.com/jpequegn/polybench/internal/dsl"
)

// sourcePath returns the deterministic path a synthesized program is
// written to, relative to envDir (spec §4.F: "a deterministic path inside
// the project's runtime-env directory (one per language)"). Rust is the
// one exception: cargo auto-discovers every `src/bin/<name>.rs` as its
// own binary, so that's where a Rust benchmark's source has to live for
// `cargo run --bin` to find it without a hand-maintained [[bin]] table.
func sourcePath(envDir string, lang dsl.Lang, fullName, ext string) string {
	switch lang {
	case dsl.LangRust:
		return filepath.Join(envDir, "rust", "src", "bin", fullName+"."+ext)
	default:
		return filepath.Join(envDir, string(lang), fullName+"."+ext)
	}
}

// manifestDir is the directory EnsureManifest writes the language's
// project manifest into — the cargo package root for Rust (one level
// above src/bin), the language directory itself otherwise.
func manifestDir(envDir string, lang dsl.Lang) string {
	switch lang {
	case dsl.LangRust:
		return filepath.Join(envDir, "rust")
	default:
		return filepath.Join(envDir, string(lang))
	}
}

// buildCommand returns the build-and-run invocation for lang: the
// executable name, its arguments, and the working directory the command
// should run from. srcPath is absolute or relative to the caller's cwd;
// workDir is where the child process's cwd is set.
func buildCommand(lang dsl.Lang, srcPath, fullName string) (name string, args []string, workDir string, err error) {
	switch lang {
	case dsl.LangGo:
		return "go", []string{"run", filepath.Base(srcPath)}, filepath.Dir(srcPath), nil
	case dsl.LangTypeScript:
		return "node", []string{filepath.Base(srcPath)}, filepath.Dir(srcPath), nil
	case dsl.LangRust:
		// srcPath is .../rust/src/bin/<fullName>.rs; cargo runs from the
		// package root two levels up.
		cargoRoot := filepath.Dir(filepath.Dir(filepath.Dir(srcPath)))
		return "cargo", []string{"run", "--quiet", "--release", "--bin", fullName}, cargoRoot, nil
	default:
		return "", nil, "", fmt.Errorf("runner: no build command for language %q", lang)
	}
}
