// Package validator checks a lowered-but-not-synthesized BenchmarkIR for
// problems that the parser cannot see because they span multiple
// declarations: missing implementations, dangling fixture references,
// bad baselines, and unsupported stdlib modules.
package validator

import (
	"fmt"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
)

// Severity tags a Diagnostic as blocking (Error) or informational
// (Warning), per spec §4.B.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one validation finding.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     dsl.Span
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// knownStdlibModules is the closed set named in spec §6.
var knownStdlibModules = map[string]bool{
	"constants": true,
	"anvil":     true,
	"math":      true,
	"charting":  true,
}

// knownChartTypes is the closed set of chart directive names the
// synthesizer and vfile bridge both recognize.
var knownChartTypes = map[dsl.ChartType]bool{
	dsl.ChartBar:  true,
	dsl.ChartPie:  true,
	dsl.ChartLine: true,
}

// Validate runs every check in spec §4.B against one lowered file and
// returns every diagnostic found; it never stops early, so a caller sees
// every problem in one pass.
func Validate(file *ir.BenchmarkIR, src *dsl.File) []Diagnostic {
	var diags []Diagnostic

	for mod := range file.StdlibImports {
		if !knownStdlibModules[mod] {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("use std::%s: unsupported stdlib module", mod),
			})
		}
	}

	for i, suite := range file.Suites {
		var srcSuite *dsl.Suite
		if src != nil && i < len(src.Suites) {
			srcSuite = src.Suites[i]
		}
		diags = append(diags, validateSuite(suite, srcSuite)...)
	}

	return diags
}

func validateSuite(suite *ir.Suite, srcSuite *dsl.Suite) []Diagnostic {
	var diags []Diagnostic

	if suite.Baseline != "" {
		found := false
		for _, l := range suite.Requires {
			if l == suite.Baseline {
				found = true
				break
			}
		}
		if !found && len(suite.Requires) > 0 {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("suite %q: baseline %q is not in requires", suite.Name, suite.Baseline),
			})
		}
	}

	for mod := range suite.StdlibImports {
		if !knownStdlibModules[mod] {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("suite %q: use std::%s: unsupported stdlib module", suite.Name, mod),
			})
		}
	}

	for _, c := range suite.AfterCharts {
		if !knownChartTypes[c.Type] {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("suite %q: after block names an unknown chart function", suite.Name),
			})
		}
	}

	if srcSuite != nil {
		diags = append(diags, validateSetupArity(suite.Name, srcSuite)...)
	}

	fixtureNames := make(map[string]bool, len(suite.Fixtures))
	for _, fx := range suite.Fixtures {
		fixtureNames[fx.Name] = true
	}

	for _, bm := range suite.Benchmarks {
		diags = append(diags, validateBenchmark(suite, bm, fixtureNames)...)
	}

	return diags
}

// validateSetupArity enforces "at most one setup <lang> per suite; at
// most one section of each kind per setup" (spec §4.B). The parser's
// Suite.Setups is keyed by Lang, so a second `setup go { }` block
// replaces the first during parsing and is never seen here. Sections,
// by contrast, are appended in source order, so this reports every
// repeated section kind within one setup as a warning; ir.Lower keeps
// the last one.
func validateSetupArity(suiteName string, s *dsl.Suite) []Diagnostic {
	var diags []Diagnostic
	for lang, setup := range s.Setups {
		seen := map[dsl.BlockType]bool{}
		for _, sec := range setup.Sections {
			if seen[sec.Kind] {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("suite %q: setup %s has more than one %s section; only the last is kept", suiteName, lang, sec.Kind),
					Span:     sec.Span,
				})
			}
			seen[sec.Kind] = true
		}
	}
	return diags
}

func validateBenchmark(suite *ir.Suite, bm *ir.BenchmarkSpec, fixtureNames map[string]bool) []Diagnostic {
	var diags []Diagnostic

	if len(bm.Implementations) == 0 {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Message:  fmt.Sprintf("benchmark %q: no language implementation", bm.FullName),
		})
	}

	for _, required := range suite.Requires {
		if !bm.HasLang(required) {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("benchmark %q: missing required language %q", bm.FullName, required),
			})
		}
	}

	for _, ref := range bm.FixtureRefs {
		if !fixtureNames[ref] {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("benchmark %q: references undeclared fixture %q", bm.FullName, ref),
			})
		}
	}

	return diags
}

// HasErrors reports whether any diagnostic in diags is blocking.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
