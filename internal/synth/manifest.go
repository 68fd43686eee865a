package synth

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
)

// EnsureManifest writes a minimal project manifest for lang into dir if
// one does not already exist, listing deps plus the serialization
// library the synthesizer's JSON sink needs (spec §4.E). An existing
// manifest is left untouched.
func EnsureManifest(fs afero.Fs, dir string, lang dsl.Lang, deps map[string]string) error {
	name, content, ok := manifestFor(lang, deps)
	if !ok {
		return nil
	}
	path := filepath.Join(dir, name)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return fmt.Errorf("checking for existing manifest %s: %w", path, err)
	}
	if exists {
		return nil
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating runtime-env dir %s: %w", dir, err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

func manifestFor(lang dsl.Lang, deps map[string]string) (name, content string, ok bool) {
	switch lang {
	case dsl.LangGo:
		var b strings.Builder
		b.WriteString("module polybench-runtime-env\n\ngo 1.24\n")
		if len(deps) > 0 {
			b.WriteString("\nrequire (\n")
			for dep, ver := range deps {
				fmt.Fprintf(&b, "\t%s %s\n", dep, ver)
			}
			b.WriteString(")\n")
		}
		return "go.mod", b.String(), true
	case dsl.LangTypeScript:
		var b strings.Builder
		b.WriteString("{\n  \"name\": \"polybench-runtime-env\",\n  \"type\": \"module\",\n  \"dependencies\": {\n")
		i := 0
		for dep, ver := range deps {
			comma := ","
			if i == len(deps)-1 {
				comma = ""
			}
			fmt.Fprintf(&b, "    %q: %q%s\n", dep, ver, comma)
			i++
		}
		b.WriteString("  }\n}\n")
		return "package.json", b.String(), true
	case dsl.LangRust:
		var b strings.Builder
		b.WriteString("[package]\nname = \"polybench-runtime-env\"\nversion = \"0.1.0\"\nedition = \"2021\"\n\n[dependencies]\nserde = { version = \"1\", features = [\"derive\"] }\nserde_json = \"1\"\n")
		for dep, ver := range deps {
			fmt.Fprintf(&b, "%s = %q\n", dep, ver)
		}
		return "Cargo.toml", b.String(), true
	default:
		return "", "", false
	}
}
