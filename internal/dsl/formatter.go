package dsl

import (
	"fmt"
	"strings"
)

// Format pretty-prints a File back to .bench source text using a single
// canonical four-space indent. It writes stdlib imports, the globalSetup
// anvil call, and for each suite its description, iterations and warmup,
// its fixtures' names and inline hex, and its benchmarks' implementations.
// Setups, hooks, the other suite and benchmark properties, @file()
// fixtures, fixture parameters and implementations, and comments are not
// written out. Embedded code goes through reindentBlock, which strips the
// minimum common leading whitespace but does not re-indent continuation
// lines to the surrounding level.
func Format(f *File) string {
	var b strings.Builder
	for _, u := range f.StdlibImports {
		fmt.Fprintf(&b, "use std::%s\n", u.Module)
	}
	if f.GlobalSetup != nil && f.GlobalSetup.HasAnvil {
		b.WriteString("globalSetup {\n")
		if f.GlobalSetup.AnvilForkURL.IsValid() {
			fmt.Fprintf(&b, "    spawnAnvil(\"%s\")\n", f.GlobalSetup.AnvilForkURL.Value)
		} else {
			b.WriteString("    spawnAnvil()\n")
		}
		b.WriteString("}\n")
	}
	if len(f.StdlibImports) > 0 || f.GlobalSetup != nil {
		b.WriteString("\n")
	}
	for i, s := range f.Suites {
		if i > 0 {
			b.WriteString("\n")
		}
		formatSuite(&b, s)
	}
	return b.String()
}

func formatSuite(b *strings.Builder, s *Suite) {
	fmt.Fprintf(b, "suite %s {\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(b, "    description: %q\n", s.Description)
	}
	if s.DefaultIterations != nil {
		fmt.Fprintf(b, "    iterations: %d\n", *s.DefaultIterations)
	}
	if s.DefaultWarmup != nil {
		fmt.Fprintf(b, "    warmup: %d\n", *s.DefaultWarmup)
	}
	for _, fx := range s.Fixtures {
		formatFixture(b, fx)
	}
	for _, bm := range s.Benchmarks {
		formatBenchmark(b, bm)
	}
	b.WriteString("}\n")
}

func formatFixture(b *strings.Builder, fx *Fixture) {
	fmt.Fprintf(b, "    fixture %s {\n", fx.Name)
	if fx.Hex.IsValid() {
		fmt.Fprintf(b, "        hex: %q\n", fx.Hex.Value)
	}
	b.WriteString("    }\n")
}

func formatBenchmark(b *strings.Builder, bm *Benchmark) {
	fmt.Fprintf(b, "    bench %s {\n", bm.Name)
	for lang, code := range bm.Implementations {
		fmt.Fprintf(b, "        %s: { %s }\n", lang, reindentBlock(code))
	}
	b.WriteString("    }\n")
}

// reindentBlock trims a single-line body; for a multi-line body it strips
// the minimum common leading whitespace from every line, keeps the line
// breaks, and trims the result.
func reindentBlock(code string) string {
	trimmed := strings.TrimSpace(code)
	if !strings.Contains(trimmed, "\n") {
		return trimmed
	}
	lines := strings.Split(code, "\n")
	minIndent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := len(l) - len(strings.TrimLeft(l, " \t"))
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent < 0 {
		minIndent = 0
	}
	for i, l := range lines {
		if len(l) >= minIndent {
			lines[i] = l[minIndent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
